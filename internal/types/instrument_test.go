package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/argo-oanda/pkg/errors"
)

type InstrumentTestSuite struct {
	suite.Suite
}

func TestInstrumentSuite(t *testing.T) {
	suite.Run(t, new(InstrumentTestSuite))
}

func (suite *InstrumentTestSuite) TestParseGetCandlesResponse() {
	raw := `{
		"instrument": "USD_JPY",
		"granularity": "M1",
		"candles": [
			{"complete": true, "volume": 134, "time": "2025-03-24T15:34:00.000000000Z",
			 "mid": {"o": "150.694", "h": "150.710", "l": "150.690", "c": "150.701"}},
			{"complete": false, "volume": 12, "time": "2025-03-24T15:35:00.000000000Z",
			 "mid": {"o": "150.701", "h": "150.703", "l": "150.699", "c": "150.700"}}
		]
	}`

	resp, err := ParseGetCandlesResponse([]byte(raw))
	suite.Require().NoError(err)
	suite.Equal("USD_JPY", resp.Instrument)
	suite.Equal(GranularityM1, resp.Granularity)
	suite.Require().Len(resp.Candles, 2)

	first := resp.Candles[0]
	suite.True(first.Complete)
	suite.Equal(int64(134), first.Volume)
	suite.True(first.Time.Equal(time.Date(2025, 3, 24, 15, 34, 0, 0, time.UTC)))
	suite.True(first.Bid.IsNone())
	suite.True(first.Ask.IsNone())
	suite.Equal("150.71", first.Mid.Unwrap().H.String())
	suite.False(resp.Candles[1].Complete)
}

func (suite *InstrumentTestSuite) TestParseCandlestickErrors() {
	_, err := ParseCandlestick([]byte(`{"complete": true, "time": "2025-03-24T15:34:00Z"}`))
	suite.Equal(errors.ErrCodeMissingField, errors.GetCode(err))

	_, err = ParseCandlestick([]byte(`{"complete": true, "volume": 1, "time": "2025-03-24T15:34:00Z", "bid": {"o": "1", "h": "1", "l": "1"}}`))
	suite.Equal(errors.ErrCodeInvalidField, errors.GetCode(err))
}

func (suite *InstrumentTestSuite) TestParseGranularity() {
	g, err := ParseGranularity("H4")
	suite.NoError(err)
	suite.Equal(GranularityH4, g)
	suite.Equal(4*time.Hour, g.Duration())

	_, err = ParseGranularity("Y1")
	suite.Equal(errors.ErrCodeInvalidParameter, errors.GetCode(err))
}
