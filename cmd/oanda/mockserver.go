package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/rxtech-lab/argo-oanda/internal/config"
	"github.com/rxtech-lab/argo-oanda/internal/mockserver"
)

func mockServerCommand() *cli.Command {
	defaults := mockserver.DefaultServerConfig()

	return &cli.Command{
		Name:  "mockserver",
		Usage: "Serve a fake OANDA account for local testing",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address",
				Value: "127.0.0.1:8080",
			},
			&cli.StringFlag{
				Name:  "token",
				Usage: "Bearer token accepted by the server",
				Value: defaults.Token,
			},
			&cli.StringFlag{
				Name:  "account",
				Usage: "Account ID served",
				Value: defaults.AccountID,
			},
			&cli.DurationFlag{
				Name:  "interval",
				Usage: "Pause between pricing lines",
				Value: 500 * time.Millisecond,
			},
			&cli.IntFlag{
				Name:  "count",
				Usage: "Prices sent per pricing connection before only heartbeats follow",
				Value: 100000,
			},
			&cli.IntFlag{
				Name:  "drop-after",
				Usage: "Drop each pricing connection after this many lines (0 never drops)",
			},
			&cli.Uint64Flag{
				Name:  "seed",
				Usage: "Seed for generated prices and candles",
				Value: defaults.Seed,
			},
		},
		Action: mockServerAction,
	}
}

func mockServerAction(ctx context.Context, cmd *cli.Command) error {
	cfg := mockserver.DefaultServerConfig()
	cfg.Token = cmd.String("token")
	cfg.AccountID = cmd.String("account")
	cfg.StreamInterval = cmd.Duration("interval")
	cfg.Quotes.Count = int(cmd.Int("count"))
	cfg.DropAfter = int(cmd.Int("drop-after"))
	cfg.Seed = cmd.Uint64("seed")

	server := mockserver.NewMockOANDAServer(cfg)
	if err := server.Start(cmd.String("addr")); err != nil {
		return err
	}

	out := cmd.Root().Writer
	fmt.Fprintf(out, "Mock OANDA server listening on %s\n", server.BaseURL())
	fmt.Fprintf(out, "  export %s=%s\n", config.EnvRESTURL, server.BaseURL())
	fmt.Fprintf(out, "  export %s=%s\n", config.EnvStreamURL, server.BaseURL())
	fmt.Fprintf(out, "  export %s=%s\n", config.EnvToken, cfg.Token)
	fmt.Fprintf(out, "  export %s=%s\n", config.EnvAccountID, cfg.AccountID)

	<-ctx.Done()

	return server.Stop()
}
