package types

import (
	"time"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"

	"github.com/rxtech-lab/argo-oanda/pkg/errors"
)

// CandlestickGranularity https://developer.oanda.com/rest-live-v20/instrument-df/#CandlestickGranularity
type CandlestickGranularity string

const (
	GranularityS5  CandlestickGranularity = "S5"
	GranularityS30 CandlestickGranularity = "S30"
	GranularityM1  CandlestickGranularity = "M1"
	GranularityM5  CandlestickGranularity = "M5"
	GranularityM15 CandlestickGranularity = "M15"
	GranularityM30 CandlestickGranularity = "M30"
	GranularityH1  CandlestickGranularity = "H1"
	GranularityH4  CandlestickGranularity = "H4"
	GranularityD   CandlestickGranularity = "D"
)

var granularityValues = []CandlestickGranularity{
	GranularityS5, GranularityS30, GranularityM1, GranularityM5, GranularityM15,
	GranularityM30, GranularityH1, GranularityH4, GranularityD,
}

var granularityDurations = map[CandlestickGranularity]time.Duration{
	GranularityS5:  5 * time.Second,
	GranularityS30: 30 * time.Second,
	GranularityM1:  time.Minute,
	GranularityM5:  5 * time.Minute,
	GranularityM15: 15 * time.Minute,
	GranularityM30: 30 * time.Minute,
	GranularityH1:  time.Hour,
	GranularityH4:  4 * time.Hour,
	GranularityD:   24 * time.Hour,
}

// ParseGranularity validates s against the supported granularities.
func ParseGranularity(s string) (CandlestickGranularity, error) {
	for _, g := range granularityValues {
		if string(g) == s {
			return g, nil
		}
	}

	return "", errors.Newf(errors.ErrCodeInvalidParameter, "unsupported granularity %q", s)
}

// Duration is the length of one candle.
func (g CandlestickGranularity) Duration() time.Duration {
	return granularityDurations[g]
}

// CandlestickData https://developer.oanda.com/rest-live-v20/instrument-df/#CandlestickData
type CandlestickData struct {
	O decimal.Decimal
	H decimal.Decimal
	L decimal.Decimal
	C decimal.Decimal
}

// Candlestick https://developer.oanda.com/rest-live-v20/instrument-df/#Candlestick
type Candlestick struct {
	Time     time.Time
	Volume   int64
	Complete bool
	Bid      optional.Option[CandlestickData]
	Ask      optional.Option[CandlestickData]
	Mid      optional.Option[CandlestickData]
}

// GetCandlesResponse is the body of GET /v3/instruments/{instrument}/candles.
type GetCandlesResponse struct {
	Instrument  string
	Granularity CandlestickGranularity
	Candles     []Candlestick
}

// ParseCandlestick decodes a single candle object.
func ParseCandlestick(raw []byte) (Candlestick, error) {
	f, err := parseFields(raw)
	if err != nil {
		return Candlestick{}, err
	}

	return parseCandlestick(f)
}

// ParseGetCandlesResponse decodes a candles response body.
func ParseGetCandlesResponse(raw []byte) (GetCandlesResponse, error) {
	f, err := parseFields(raw)
	if err != nil {
		return GetCandlesResponse{}, err
	}

	instrument, err := f.str("instrument")
	if err != nil {
		return GetCandlesResponse{}, err
	}

	granularity, err := enum(f, "granularity", granularityValues...)
	if err != nil {
		return GetCandlesResponse{}, err
	}

	candles, err := parseEach(f, "candles", parseCandlestick)
	if err != nil {
		return GetCandlesResponse{}, err
	}

	return GetCandlesResponse{
		Instrument:  instrument,
		Granularity: granularity,
		Candles:     candles,
	}, nil
}

func parseCandlestick(f fields) (Candlestick, error) {
	t, err := f.time("time")
	if err != nil {
		return Candlestick{}, err
	}

	volume, err := f.integer("volume")
	if err != nil {
		return Candlestick{}, err
	}

	complete, err := f.boolean("complete")
	if err != nil {
		return Candlestick{}, err
	}

	bid, err := parseOpt(f, "bid", parseCandlestickData)
	if err != nil {
		return Candlestick{}, err
	}

	ask, err := parseOpt(f, "ask", parseCandlestickData)
	if err != nil {
		return Candlestick{}, err
	}

	mid, err := parseOpt(f, "mid", parseCandlestickData)
	if err != nil {
		return Candlestick{}, err
	}

	return Candlestick{
		Time:     t,
		Volume:   volume,
		Complete: complete,
		Bid:      bid,
		Ask:      ask,
		Mid:      mid,
	}, nil
}

func parseCandlestickData(f fields) (CandlestickData, error) {
	var (
		d   CandlestickData
		err error
	)

	if d.O, err = f.dec("o"); err != nil {
		return CandlestickData{}, err
	}

	if d.H, err = f.dec("h"); err != nil {
		return CandlestickData{}, err
	}

	if d.L, err = f.dec("l"); err != nil {
		return CandlestickData{}, err
	}

	if d.C, err = f.dec("c"); err != nil {
		return CandlestickData{}, err
	}

	return d, nil
}
