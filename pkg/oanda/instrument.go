package oanda

import (
	"context"
	"iter"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-resty/resty/v2"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-oanda/internal/logger"
	"github.com/rxtech-lab/argo-oanda/internal/types"
	"github.com/rxtech-lab/argo-oanda/pkg/errors"
)

// MaxCandlesPerRequest is the largest count the candles endpoint accepts.
const MaxCandlesPerRequest = 5000

// PriceComponentMid requests midpoint candles.
const PriceComponentMid = "M"

// CandlesQuery holds the query parameters of GET /v3/instruments/{instrument}/candles.
// Count must not be combined with both From and To.
type CandlesQuery struct {
	Count       optional.Option[int]
	From        optional.Option[time.Time]
	To          optional.Option[time.Time]
	Granularity types.CandlestickGranularity `validate:"omitempty,oneof=S5 S30 M1 M5 M15 M30 H1 H4 D"`
	// Price is any combination of "M", "B" and "A"; empty means "M".
	Price string `validate:"omitempty,max=3"`
	// IncludeFirst controls whether a candle starting exactly at From is returned.
	IncludeFirst optional.Option[bool]
}

// Validate validates the CandlesQuery struct.
func (q CandlesQuery) Validate() error {
	validate := validator.New()
	if err := validate.Struct(q); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidParameter, "invalid candles query", err)
	}

	if strings.Trim(q.Price, "MBA") != "" {
		return errors.Newf(errors.ErrCodeInvalidParameter, "invalid price component %q", q.Price)
	}

	if q.Count.IsSome() {
		count := q.Count.Unwrap()
		if count < 1 || count > MaxCandlesPerRequest {
			return errors.Newf(errors.ErrCodeInvalidParameter, "count must be between 1 and %d, got %d", MaxCandlesPerRequest, count)
		}

		if q.From.IsSome() && q.To.IsSome() {
			return errors.New(errors.ErrCodeInvalidParameter, "count cannot be combined with both from and to")
		}
	}

	if q.From.IsSome() && q.To.IsSome() && !q.To.Unwrap().After(q.From.Unwrap()) {
		return errors.New(errors.ErrCodeInvalidParameter, "to must be after from")
	}

	return nil
}

func (q CandlesQuery) params() map[string]string {
	granularity := q.Granularity
	if granularity == "" {
		granularity = types.GranularityM1
	}

	price := q.Price
	if price == "" {
		price = PriceComponentMid
	}

	params := map[string]string{
		"price":       price,
		"granularity": string(granularity),
	}

	if q.Count.IsSome() {
		params["count"] = strconv.Itoa(q.Count.Unwrap())
	}

	if q.From.IsSome() {
		params["from"] = types.FormatTime(q.From.Unwrap())
	}

	if q.To.IsSome() {
		params["to"] = types.FormatTime(q.To.Unwrap())
	}

	if q.IncludeFirst.IsSome() {
		params["includeFirst"] = strconv.FormatBool(q.IncludeFirst.Unwrap())
	}

	return params
}

// InstrumentClient calls the instrument endpoints.
// https://developer.oanda.com/rest-live-v20/instrument-ep/
type InstrumentClient struct {
	rest   *resty.Client
	logger *logger.Logger
}

// GetCandles fetches candlesticks for instrument.
func (c *InstrumentClient) GetCandles(ctx context.Context, instrument string, query CandlesQuery) (types.GetCandlesResponse, error) {
	if instrument == "" {
		return types.GetCandlesResponse{}, errors.New(errors.ErrCodeMissingParameter, "instrument is required")
	}

	if err := query.Validate(); err != nil {
		return types.GetCandlesResponse{}, err
	}

	resp, err := c.rest.R().
		SetContext(ctx).
		SetPathParam("instrument", instrument).
		SetQueryParams(query.params()).
		Get("/v3/instruments/{instrument}/candles")
	if err != nil {
		return types.GetCandlesResponse{}, errors.Wrapf(errors.ErrCodeRESTRequestFailed, err, "failed to get candles for %s", instrument)
	}

	if err := expectStatus(resp, http.StatusOK); err != nil {
		return types.GetCandlesResponse{}, err
	}

	candles, err := types.ParseGetCandlesResponse(resp.Body())
	if err != nil {
		return types.GetCandlesResponse{}, errors.Wrap(errors.ErrCodeRESTDecodeFailed, "failed to decode candles response", err)
	}

	c.logger.Debug("Fetched candles",
		zap.String("instrument", instrument),
		zap.Int("count", len(candles.Candles)),
	)

	return candles, nil
}

// Candles pages through all candles in [from, to) and yields them in time order.
// Iteration stops at the first error, which is yielded with a zero candle.
func (c *InstrumentClient) Candles(
	ctx context.Context,
	instrument string,
	granularity types.CandlestickGranularity,
	from, to time.Time,
) iter.Seq2[types.Candlestick, error] {
	return func(yield func(types.Candlestick, error) bool) {
		cursor := from
		includeFirst := true

		for cursor.Before(to) {
			//nolint:exhaustruct
			page, err := c.GetCandles(ctx, instrument, CandlesQuery{
				Count:        optional.Some(MaxCandlesPerRequest),
				From:         optional.Some(cursor),
				Granularity:  granularity,
				IncludeFirst: optional.Some(includeFirst),
			})
			if err != nil {
				yield(types.Candlestick{}, err)

				return
			}

			if len(page.Candles) == 0 {
				return
			}

			for _, candle := range page.Candles {
				if !candle.Time.Before(to) {
					return
				}

				if !yield(candle, nil) {
					return
				}
			}

			last := page.Candles[len(page.Candles)-1].Time
			if !last.After(cursor) && !includeFirst {
				return
			}

			cursor = last
			includeFirst = false
		}
	}
}

// expectStatus turns any status other than want into ErrCodeRESTUnexpectedCode.
func expectStatus(resp *resty.Response, want int) error {
	if resp.StatusCode() == want {
		return nil
	}

	return errors.Newf(errors.ErrCodeRESTUnexpectedCode,
		"unexpected status %d from %s %s: %s",
		resp.StatusCode(), resp.Request.Method, resp.Request.URL, string(resp.Body()))
}
