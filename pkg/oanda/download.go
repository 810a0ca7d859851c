package oanda

import (
	"context"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-oanda/internal/types"
	"github.com/rxtech-lab/argo-oanda/pkg/errors"
	"github.com/rxtech-lab/argo-oanda/pkg/recorder"
)

// OnDownloadProgress receives the number of candles written and the expected
// total for the requested range.
type OnDownloadProgress = func(current float64, total float64, message string)

// DownloadParams selects the candles written by DownloadCandles.
type DownloadParams struct {
	Instrument  string                       `validate:"required"`
	Granularity types.CandlestickGranularity `validate:"required,oneof=S5 S30 M1 M5 M15 M30 H1 H4 D"`
	From        time.Time                    `validate:"required"`
	To          time.Time                    `validate:"required,gtfield=From"`
	DataPath    string                       `validate:"required"`
}

// FileName is {instrument}_{granularity}_{from}_{to}.parquet with dates in
// YYYY-MM-DD form.
func (p DownloadParams) FileName() string {
	return recorder.CandleFileName(p.Instrument, p.Granularity, p.From.UTC().Format("2006-01-02"), p.To.UTC().Format("2006-01-02"))
}

// ExpectedCandles is an upper bound on the candles in the range, ignoring
// market closures.
func (p DownloadParams) ExpectedCandles() int {
	d := p.Granularity.Duration()
	if d <= 0 {
		return 0
	}

	return int(p.To.Sub(p.From) / d)
}

// DownloadCandles pages through [From, To) and writes every candle to a parquet
// file under DataPath, returning its path. onProgress may be nil.
func (c *Client) DownloadCandles(ctx context.Context, params DownloadParams, onProgress OnDownloadProgress) (string, error) {
	if err := validator.New().Struct(params); err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidParameter, "invalid download parameters", err)
	}

	log := c.logger.Named("download").With(
		zap.String("instrument", params.Instrument),
		zap.String("granularity", string(params.Granularity)),
	)

	writer := recorder.NewCandleRecorder(filepath.Join(params.DataPath, params.FileName()), log)
	if err := writer.Initialize(); err != nil {
		return "", err
	}

	defer func() {
		if err := writer.Close(); err != nil {
			log.Warn("Failed to close candle writer", zap.Error(err))
		}
	}()

	total := float64(params.ExpectedCandles())

	for candle, err := range c.Instruments().Candles(ctx, params.Instrument, params.Granularity, params.From, params.To) {
		if err != nil {
			return "", err
		}

		if err := writer.Write(params.Instrument, candle); err != nil {
			return "", err
		}

		if onProgress != nil {
			onProgress(float64(writer.Written()), total, candle.Time.Format(time.RFC3339))
		}
	}

	return writer.Finalize()
}
