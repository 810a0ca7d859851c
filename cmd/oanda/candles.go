package main

import (
	"context"
	"fmt"
	"time"

	"github.com/moznion/go-optional"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"

	"github.com/rxtech-lab/argo-oanda/internal/types"
	"github.com/rxtech-lab/argo-oanda/pkg/oanda"
)

func candlesCommand() *cli.Command {
	return &cli.Command{
		Name:  "candles",
		Usage: "Fetch candles, printing them or downloading a range to parquet",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "instrument",
				Aliases:  []string{"i"},
				Usage:    "Instrument (e.g. USD_JPY)",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "granularity",
				Aliases: []string{"g"},
				Usage:   "Candle granularity (S5, S30, M1, M5, M15, M30, H1, H4, D)",
				Value:   string(types.GranularityM1),
			},
			&cli.IntFlag{
				Name:  "count",
				Usage: "Number of most recent candles to print",
				Value: 10,
			},
			&cli.TimestampFlag{
				Name:  "from",
				Usage: "Range start in `YYYY-MM-DD` or RFC3339 format",
				Config: cli.TimestampConfig{
					Layouts: []string{"2006-01-02", time.RFC3339},
				},
			},
			&cli.TimestampFlag{
				Name:  "to",
				Usage: "Range end in `YYYY-MM-DD` or RFC3339 format. Defaults to now.",
				Config: cli.TimestampConfig{
					Layouts: []string{"2006-01-02", time.RFC3339},
				},
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Directory to download the range into as parquet. Requires --from.",
			},
		},
		Action: candlesAction,
	}
}

func candlesAction(ctx context.Context, cmd *cli.Command) error {
	rt, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.logger.Sync()

	instrument := cmd.String("instrument")

	granularity, err := types.ParseGranularity(cmd.String("granularity"))
	if err != nil {
		return err
	}

	out := cmd.Root().Writer

	if dir := cmd.String("output"); dir != "" {
		to := cmd.Timestamp("to")
		if to.IsZero() {
			to = time.Now().UTC()
		}

		params := oanda.DownloadParams{
			Instrument:  instrument,
			Granularity: granularity,
			From:        cmd.Timestamp("from"),
			To:          to,
			DataPath:    dir,
		}

		bar := progressbar.NewOptions(params.ExpectedCandles(),
			progressbar.OptionSetDescription(fmt.Sprintf("Downloading %s %s", instrument, granularity)),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWriter(cmd.Root().ErrWriter),
		)

		path, err := rt.client.DownloadCandles(ctx, params, func(current, _ float64, _ string) {
			_ = bar.Set(int(current))
		})
		if err != nil {
			return err
		}

		_ = bar.Finish()
		fmt.Fprintf(out, "\nSaved candles to %s\n", path)

		return nil
	}

	//nolint:exhaustruct
	query := oanda.CandlesQuery{Granularity: granularity}

	if from := cmd.Timestamp("from"); !from.IsZero() {
		query.From = optional.Some(from)
		if to := cmd.Timestamp("to"); !to.IsZero() {
			query.To = optional.Some(to)
		} else {
			query.Count = optional.Some(int(cmd.Int("count")))
		}
	} else {
		query.Count = optional.Some(int(cmd.Int("count")))
	}

	resp, err := rt.client.Instruments().GetCandles(ctx, instrument, query)
	if err != nil {
		return err
	}

	for _, c := range resp.Candles {
		fmt.Fprintln(out, FormatCandle(c))
	}

	return nil
}

// FormatCandle renders the mid prices of c, or bid prices when mid was not
// requested.
func FormatCandle(c types.Candlestick) string {
	data := c.Mid
	if data.IsNone() {
		data = c.Bid
	}

	state := "complete"
	if !c.Complete {
		state = "forming"
	}

	if data.IsNone() {
		return fmt.Sprintf("%s volume=%d %s", types.FormatTime(c.Time), c.Volume, state)
	}

	d := data.Unwrap()

	return fmt.Sprintf("%s O=%s H=%s L=%s C=%s volume=%d %s",
		types.FormatTime(c.Time), d.O, d.H, d.L, d.C, c.Volume, state)
}
