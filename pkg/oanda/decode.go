package oanda

import (
	"github.com/rxtech-lab/argo-oanda/internal/types"
	"github.com/rxtech-lab/argo-oanda/pkg/errors"
	"github.com/rxtech-lab/argo-oanda/pkg/stream"
)

var (
	_ stream.DecodeFunc[types.ClientPrice] = DecodePrice
	_ stream.DecodeFunc[types.Transaction] = DecodeTransaction
)

// DecodePrice decodes one line of the pricing stream.
func DecodePrice(raw []byte) (types.ClientPrice, error) {
	return types.ParseClientPrice(raw)
}

// DecodeTransaction decodes one line of the transaction stream. Transactions of a
// type this package does not model are reported as ErrCodeUnknownType so the
// stream skips them.
func DecodeTransaction(raw []byte) (types.Transaction, error) {
	tx, err := types.ParseTransaction(raw)
	if err != nil {
		return nil, err
	}

	if unknown, ok := tx.(types.UnknownTransaction); ok {
		return nil, errors.Newf(errors.ErrCodeUnknownType, "unknown transaction type %q (id %s)", unknown.Type, unknown.ID)
	}

	return tx, nil
}
