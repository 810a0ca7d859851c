package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/argo-oanda/pkg/errors"
)

type PricingTestSuite struct {
	suite.Suite
}

func TestPricingSuite(t *testing.T) {
	suite.Run(t, new(PricingTestSuite))
}

const streamPrice = `{
	"type": "PRICE",
	"time": "2025-03-24T15:34:25.366624289Z",
	"bids": [{"price": "150.693", "liquidity": 250000}, {"price": "150.692", "liquidity": 500000}],
	"asks": [{"price": "150.697", "liquidity": 250000}],
	"closeoutBid": "150.687",
	"closeoutAsk": "150.703",
	"status": "tradeable",
	"tradeable": true,
	"instrument": "USD_JPY"
}`

func (suite *PricingTestSuite) TestParseClientPrice() {
	price, err := ParseClientPrice([]byte(streamPrice))
	suite.Require().NoError(err)

	suite.Equal(PriceTypePrice, price.Type)
	suite.Equal("USD_JPY", price.Instrument.Unwrap())
	suite.True(price.Tradeable.Unwrap())
	suite.True(price.Timestamp.Equal(time.Date(2025, 3, 24, 15, 34, 25, 366624289, time.UTC)))
	suite.Require().Len(price.Bids, 2)
	suite.Equal("150.693", price.Bids[0].Price.String())
	suite.Equal(int64(250000), price.Bids[0].Liquidity)
	suite.Equal("150.692", price.Bids[1].Price.String())
	suite.Require().Len(price.Asks, 1)
	suite.Equal("150.697", price.Asks[0].Price.String())
	suite.Equal("150.687", price.CloseoutBid.String())
	suite.Equal("150.703", price.CloseoutAsk.String())

	spread, ok := price.Spread()
	suite.True(ok)
	suite.Equal("0.004", spread.String())
}

func (suite *PricingTestSuite) TestParseClientPriceVariants() {
	tests := []struct {
		name      string
		raw       string
		expectErr errors.ErrorCode
		check     func(ClientPrice)
	}{
		{
			name: "missing type defaults to PRICE",
			raw:  `{"time":"2025-03-24T15:34:25Z","bids":[],"asks":[],"closeoutBid":"1","closeoutAsk":"2"}`,
			check: func(p ClientPrice) {
				suite.Equal(PriceTypePrice, p.Type)
				suite.True(p.Instrument.IsNone())
				suite.True(p.Tradeable.IsNone())
				_, _, ok := p.TopOfBook()
				suite.False(ok)
			},
		},
		{
			name: "timestamp key and quoted liquidity",
			raw:  `{"timestamp":"2025-03-27T12:34:11.618910233Z","bids":[{"price":"150.759","liquidity":"250000"}],"asks":[{"price":"150.763","liquidity":"250000"}],"closeoutBid":"150.753","closeoutAsk":"150.769"}`,
			check: func(p ClientPrice) {
				suite.Equal(int64(250000), p.Bids[0].Liquidity)
				suite.Equal(2025, p.Timestamp.Year())
			},
		},
		{
			name:      "other message type is unknown",
			raw:       `{"type":"PRICE_V2","time":"2025-03-24T15:34:25Z"}`,
			expectErr: errors.ErrCodeUnknownType,
		},
		{
			name:      "missing closeout",
			raw:       `{"time":"2025-03-24T15:34:25Z","bids":[],"asks":[],"closeoutBid":"1"}`,
			expectErr: errors.ErrCodeMissingField,
		},
		{
			name:      "malformed bid price",
			raw:       `{"time":"2025-03-24T15:34:25Z","bids":[{"price":"abc","liquidity":1}],"asks":[],"closeoutBid":"1","closeoutAsk":"2"}`,
			expectErr: errors.ErrCodeInvalidField,
		},
		{
			name:      "not an object",
			raw:       `[1,2,3]`,
			expectErr: errors.ErrCodeInvalidField,
		},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			price, err := ParseClientPrice([]byte(tt.raw))
			if tt.expectErr != 0 {
				suite.Error(err)
				suite.Equal(tt.expectErr, errors.GetCode(err))

				return
			}

			suite.Require().NoError(err)
			tt.check(price)
		})
	}
}
