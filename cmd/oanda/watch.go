package main

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/rxtech-lab/argo-oanda/internal/logger"
	"github.com/rxtech-lab/argo-oanda/pkg/oanda"
)

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Watch prices or transactions in an interactive terminal view",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "instruments",
				Aliases: []string{"i"},
				Usage:   "Start streaming prices for these instruments right away",
			},
		},
		Action: watchAction,
	}
}

func watchAction(ctx context.Context, cmd *cli.Command) error {
	rt, err := loadRuntime(cmd)
	if err != nil {
		return err
	}

	// Log lines would tear the terminal view.
	client, err := oanda.NewClient(rt.cfg, oanda.WithLogger(logger.NewNopLogger()))
	if err != nil {
		return err
	}

	m := NewModel(clientStreamer{client: client})
	if instruments := ParseInstruments(cmd.String("instruments")); len(instruments) > 0 {
		m = m.WithPrices(instruments)
	}

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}

	return nil
}
