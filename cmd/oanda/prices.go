package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-oanda/internal/logger"
	"github.com/rxtech-lab/argo-oanda/internal/types"
	"github.com/rxtech-lab/argo-oanda/pkg/errors"
	"github.com/rxtech-lab/argo-oanda/pkg/recorder"
	"github.com/rxtech-lab/argo-oanda/pkg/stream"
)

func pricesCommand() *cli.Command {
	return &cli.Command{
		Name:  "prices",
		Usage: "Stream prices for one or more instruments",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "instruments",
				Aliases:  []string{"i"},
				Usage:    "Comma separated instruments (e.g. USD_JPY,EUR_USD)",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "record",
				Usage: "Directory to record quotes into as parquet",
			},
			&cli.IntFlag{
				Name:  "flush-every",
				Usage: "Recorded quotes buffered between parquet exports",
				Value: recorder.DefaultFlushEvery,
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Stop after this many prices (0 streams until interrupted)",
			},
		},
		Action: pricesAction,
	}
}

func pricesAction(ctx context.Context, cmd *cli.Command) error {
	rt, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.logger.Sync()

	instruments := ParseInstruments(cmd.String("instruments"))
	if len(instruments) == 0 {
		return errors.New(errors.ErrCodeMissingParameter, "at least one instrument is required")
	}

	var quotes recorder.QuoteWriter

	if dir := cmd.String("record"); dir != "" {
		quotes = recorder.NewQuoteRecorder(dir, instruments,
			recorder.WithFlushEvery(int(cmd.Int("flush-every"))),
			recorder.WithRecorderLogger(rt.logger.Named("recorder")),
		)
		if err := quotes.Initialize(); err != nil {
			return err
		}

		defer func() {
			if err := quotes.Close(); err != nil {
				rt.logger.Error("Failed to close quote recorder", zap.Error(err))
			}
		}()
	}

	s, err := rt.client.PricingStream(instruments, stream.WithStateHook(logTransitions(rt.logger)))
	if err != nil {
		return err
	}

	limit := int(cmd.Int("limit"))
	out := cmd.Root().Writer
	seen := 0

	for price, err := range s.All(ctx) {
		if err != nil {
			return err
		}

		fmt.Fprintln(out, FormatPrice(price))

		if quotes != nil {
			if q, ok := recorder.QuoteFromPrice(price); ok {
				if err := quotes.Write(q); err != nil {
					return err
				}
			}
		}

		seen++
		if limit > 0 && seen >= limit {
			break
		}
	}

	return nil
}

// FormatPrice renders a price as "time instrument bid/ask".
func FormatPrice(p types.ClientPrice) string {
	instrument := "?"
	if p.Instrument.IsSome() {
		instrument = p.Instrument.Unwrap()
	}

	bid, ask, ok := p.TopOfBook()
	if !ok {
		return fmt.Sprintf("%s %s -/-", types.FormatTime(p.Timestamp), instrument)
	}

	return fmt.Sprintf("%s %s %s/%s", types.FormatTime(p.Timestamp), instrument, bid.String(), ask.String())
}

// logTransitions reports connection state changes through log.
func logTransitions(log *logger.Logger) stream.StateHook {
	return func(t stream.Transition) {
		fields := []zap.Field{
			zap.String("from", t.From.String()),
			zap.String("to", t.To.String()),
			zap.Int("attempt", t.Attempt),
		}

		switch t.To {
		case stream.StateBackingOff:
			log.Warn("Stream reconnecting", append(fields, zap.Duration("delay", t.Delay), zap.Error(t.Err))...)
		case stream.StateTerminated:
			log.Info("Stream terminated", append(fields, zap.String("reason", t.Termination.String()), zap.Error(t.Err))...)
		default:
			log.Debug("Stream state changed", fields...)
		}
	}
}
