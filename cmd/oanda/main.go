package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/rxtech-lab/argo-oanda/internal/config"
	"github.com/rxtech-lab/argo-oanda/internal/logger"
	"github.com/rxtech-lab/argo-oanda/internal/version"
	"github.com/rxtech-lab/argo-oanda/pkg/oanda"
)

func newApp(stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "oanda",
		Usage:     "Stream prices and transactions from the OANDA v20 API",
		Version:   version.GetVersion(),
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML config file",
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Path to a .env file loaded before the config",
				Value: ".env",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Overrides the configured log level (debug, info, warn, error)",
			},
		},
		Commands: []*cli.Command{
			pricesCommand(),
			transactionsCommand(),
			candlesCommand(),
			watchCommand(),
			mockServerCommand(),
			configCommand(),
			versionCommand(),
		},
	}
}

// runtime is what every API command needs: a validated config, a logger and a
// client built from both.
type runtime struct {
	cfg    *config.Config
	logger *logger.Logger
	client *oanda.Client
}

func loadRuntime(cmd *cli.Command) (*runtime, error) {
	if err := config.LoadEnvFile(cmd.String("env-file")); err != nil {
		return nil, err
	}

	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, err
	}

	if level := cmd.String("log-level"); level != "" {
		cfg.LogLevel = level
	}

	log, err := logger.NewLoggerWithLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	client, err := oanda.NewClient(cfg, oanda.WithLogger(log))
	if err != nil {
		return nil, err
	}

	return &runtime{cfg: cfg, logger: log, client: client}, nil
}

// ParseInstruments splits comma separated instruments, trimming and upper-casing
// each one.
func ParseInstruments(values ...string) []string {
	instruments := make([]string, 0, len(values))

	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			s := strings.TrimSpace(strings.ToUpper(part))
			if s != "" {
				instruments = append(instruments, s)
			}
		}
	}

	return instruments
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp(os.Stdout, os.Stderr).Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
