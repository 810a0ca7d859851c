package mocks

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/argo-oanda/internal/types"
)

type QuoteGeneratorTestSuite struct {
	suite.Suite
}

func TestQuoteGeneratorSuite(t *testing.T) {
	suite.Run(t, new(QuoteGeneratorTestSuite))
}

func (suite *QuoteGeneratorTestSuite) TestGenerate() {
	config := DefaultConfig()
	config.Count = 100

	lines := NewQuoteGenerator(42).Generate(config)
	suite.Len(lines, 100)

	var previous types.ClientPrice

	for i, line := range lines {
		suite.True(strings.HasSuffix(line, "\n"))

		price, err := types.ParseClientPrice([]byte(line))
		suite.Require().NoError(err, "line %d", i)
		suite.Equal(config.Instrument, price.Instrument.Unwrap())

		bid, ask, ok := price.TopOfBook()
		suite.True(ok)
		suite.True(ask.GreaterThan(bid))
		suite.True(bid.IsPositive())

		if i > 0 {
			suite.True(price.Timestamp.After(previous.Timestamp))
		}

		previous = price
	}
}

func (suite *QuoteGeneratorTestSuite) TestGenerateIsReproducible() {
	config := DefaultConfig()
	config.Count = 20

	suite.Equal(NewQuoteGenerator(7).Generate(config), NewQuoteGenerator(7).Generate(config))
}

func (suite *QuoteGeneratorTestSuite) TestGenerateHeartbeats() {
	config := DefaultConfig()
	config.Count = 10
	config.HeartbeatEvery = 5

	lines := NewQuoteGenerator(1).Generate(config)
	suite.Len(lines, 12)
	suite.Contains(lines[5], "HEARTBEAT")
	suite.Contains(lines[11], "HEARTBEAT")
}

func (suite *QuoteGeneratorTestSuite) TestGenerateMultiInstrument() {
	config := DefaultConfig()
	config.Count = 3

	lines := NewQuoteGenerator(42).GenerateMultiInstrument([]string{"USD_JPY", "EUR_USD"}, config)
	suite.Len(lines, 6)
	suite.Contains(lines[0], "USD_JPY")
	suite.Contains(lines[1], "EUR_USD")
}
