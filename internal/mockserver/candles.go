package mockserver

import (
	"math"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/rxtech-lab/argo-oanda/internal/types"
)

const (
	defaultCandleCount = 500
	maxCandleCount     = 5000
)

type candleQuery struct {
	granularity  types.CandlestickGranularity
	price        string
	count        int
	countSet     bool
	from         time.Time
	to           time.Time
	includeFirst bool
}

func parseCandleQuery(values url.Values) (candleQuery, string) {
	//nolint:exhaustruct
	q := candleQuery{
		granularity:  types.GranularityS5,
		price:        "M",
		count:        defaultCandleCount,
		includeFirst: true,
	}

	if raw := values.Get("granularity"); raw != "" {
		g, err := types.ParseGranularity(raw)
		if err != nil {
			return q, "Invalid value specified for 'granularity'"
		}

		q.granularity = g
	}

	if raw := values.Get("price"); raw != "" {
		if strings.Trim(raw, "MBA") != "" {
			return q, "Invalid value specified for 'price'"
		}

		q.price = raw
	}

	if raw := values.Get("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxCandleCount {
			return q, "Invalid value specified for 'count'"
		}

		q.count, q.countSet = n, true
	}

	for key, target := range map[string]*time.Time{"from": &q.from, "to": &q.to} {
		if raw := values.Get(key); raw != "" {
			t, err := types.ParseTime(raw)
			if err != nil {
				return q, "Invalid value specified for '" + key + "'"
			}

			*target = t
		}
	}

	if q.countSet && !q.from.IsZero() && !q.to.IsZero() {
		return q, "Invalid value specified for 'count'. Count cannot be specified when both from and to are set"
	}

	if raw := values.Get("includeFirst"); raw != "" {
		include, err := strconv.ParseBool(raw)
		if err != nil {
			return q, "Invalid value specified for 'includeFirst'"
		}

		q.includeFirst = include
	}

	return q, ""
}

func (s *MockOANDAServer) handleCandles(w http.ResponseWriter, r *http.Request) {
	instrument := mux.Vars(r)["instrument"]

	q, problem := parseCandleQuery(r.URL.Query())
	if problem != "" {
		writeError(w, http.StatusBadRequest, problem)

		return
	}

	now := s.config.Now().UTC()
	step := q.granularity.Duration()

	var start time.Time

	switch {
	case !q.from.IsZero():
		start = q.from.UTC().Truncate(step)
		if start.Before(q.from) || (!q.includeFirst && start.Equal(q.from)) {
			start = start.Add(step)
		}
	case !q.to.IsZero():
		start = q.to.UTC().Truncate(step).Add(-time.Duration(q.count) * step)
	default:
		start = now.Truncate(step).Add(-time.Duration(q.count-1) * step)
	}

	limit := q.count
	if !q.from.IsZero() && !q.to.IsZero() {
		limit = maxCandleCount
	}

	candles := make([]map[string]any, 0, limit)

	for t := start; len(candles) < limit && !t.After(now); t = t.Add(step) {
		if !q.to.IsZero() && !t.Before(q.to) {
			break
		}

		candles = append(candles, s.candle(instrument, t, step, now, q.price))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"instrument":  instrument,
		"granularity": string(q.granularity),
		"candles":     candles,
	})
}

// candle derives a deterministic candle from the instrument and its start time.
func (s *MockOANDAServer) candle(instrument string, t time.Time, step time.Duration, now time.Time, price string) map[string]any {
	var instrumentSeed uint64
	for _, c := range instrument {
		instrumentSeed = instrumentSeed*31 + uint64(c)
	}

	rng := rand.New(rand.NewPCG(s.config.Seed^instrumentSeed, uint64(t.UnixNano())))

	base := s.config.Quotes.InitialMid * (1 + 0.002*math.Sin(float64(t.Unix())/21600))
	vol := s.config.Quotes.Volatility * math.Sqrt(step.Seconds())

	open := base * (1 + vol*(rng.Float64()-0.5))
	closing := base * (1 + vol*(rng.Float64()-0.5))
	high := math.Max(open, closing) * (1 + vol*rng.Float64()/2)
	low := math.Min(open, closing) * (1 - vol*rng.Float64()/2)

	candle := map[string]any{
		"time":     types.FormatTime(t),
		"volume":   1 + rng.IntN(500),
		"complete": !t.Add(step).After(now),
	}

	half := s.config.Quotes.HalfSpread
	for _, component := range price {
		switch component {
		case 'M':
			candle["mid"] = s.ohlc(open, high, low, closing, 0)
		case 'B':
			candle["bid"] = s.ohlc(open, high, low, closing, -half)
		case 'A':
			candle["ask"] = s.ohlc(open, high, low, closing, half)
		}
	}

	return candle
}

func (s *MockOANDAServer) ohlc(o, h, l, c, shift float64) map[string]string {
	precision := int32(s.config.Quotes.Precision)
	format := func(v float64) string {
		return decimal.NewFromFloat(v + shift).StringFixed(precision)
	}

	return map[string]string{"o": format(o), "h": format(h), "l": format(l), "c": format(c)}
}
