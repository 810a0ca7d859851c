package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/rxtech-lab/argo-oanda/internal/types"
	"github.com/rxtech-lab/argo-oanda/pkg/stream"
)

func transactionsCommand() *cli.Command {
	return &cli.Command{
		Name:  "transactions",
		Usage: "Stream account transactions",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Stop after this many transactions (0 streams until interrupted)",
			},
		},
		Action: transactionsAction,
	}
}

func transactionsAction(ctx context.Context, cmd *cli.Command) error {
	rt, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.logger.Sync()

	s, err := rt.client.TransactionStream(stream.WithStateHook(logTransitions(rt.logger)))
	if err != nil {
		return err
	}

	limit := int(cmd.Int("limit"))
	out := cmd.Root().Writer
	seen := 0

	for tx, err := range s.All(ctx) {
		if err != nil {
			return err
		}

		fmt.Fprintln(out, FormatTransaction(tx))

		seen++
		if limit > 0 && seen >= limit {
			break
		}
	}

	return nil
}

// FormatTransaction renders the header and the fields that matter for each
// transaction type on one line.
func FormatTransaction(tx types.Transaction) string {
	h := tx.Header()
	prefix := fmt.Sprintf("%s #%s %s", types.FormatTime(h.Time), h.ID, h.Type)

	switch t := tx.(type) {
	case *types.MarketOrderTransaction:
		return fmt.Sprintf("%s %s units=%s reason=%s", prefix, t.Instrument, t.Units, t.Reason)
	case *types.LimitOrderTransaction:
		return fmt.Sprintf("%s %s units=%s price=%s tif=%s", prefix, t.Instrument, t.Units, t.Price, t.TimeInForce)
	case *types.OrderFillTransaction:
		price := "-"
		if t.Price.IsSome() {
			price = t.Price.Unwrap().String()
		}

		return fmt.Sprintf("%s order=%s %s units=%s price=%s", prefix, t.OrderID, t.Instrument, t.Units, price)
	case *types.OrderCancelTransaction:
		return fmt.Sprintf("%s order=%s reason=%s", prefix, t.OrderID, t.Reason)
	default:
		return prefix
	}
}
