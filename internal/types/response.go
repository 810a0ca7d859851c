package types

import (
	"github.com/moznion/go-optional"

	"github.com/rxtech-lab/argo-oanda/pkg/errors"
)

// CreateLimitOrderResponse is the 201 body of POST /v3/accounts/{accountID}/orders for a limit order.
type CreateLimitOrderResponse struct {
	OrderCreateTransaction *LimitOrderTransaction
	// The order may be filled immediately when the price is already marketable.
	OrderFillTransaction   optional.Option[*OrderFillTransaction]
	OrderCancelTransaction optional.Option[*OrderCancelTransaction]
	RelatedTransactionIDs  []string
	LastTransactionID      string
}

// CreateMarketOrderResponse is the 201 body of POST /v3/accounts/{accountID}/orders for a market order.
type CreateMarketOrderResponse struct {
	OrderCreateTransaction *MarketOrderTransaction
	OrderFillTransaction   optional.Option[*OrderFillTransaction]
	OrderCancelTransaction optional.Option[*OrderCancelTransaction]
	RelatedTransactionIDs  []string
	LastTransactionID      string
}

// CancelOrderResponse is the 200 body of PUT /v3/accounts/{accountID}/orders/{orderSpecifier}/cancel.
type CancelOrderResponse struct {
	OrderCancelTransaction *OrderCancelTransaction
	RelatedTransactionIDs  []string
	LastTransactionID      string
}

// ParseCreateLimitOrderResponse decodes a create limit order response body.
func ParseCreateLimitOrderResponse(raw []byte) (CreateLimitOrderResponse, error) {
	f, err := parseFields(raw)
	if err != nil {
		return CreateLimitOrderResponse{}, err
	}

	var resp CreateLimitOrderResponse

	if resp.OrderCreateTransaction, err = parseTyped(f, "orderCreateTransaction", TransactionTypeLimitOrder, parseLimitOrderTransaction); err != nil {
		return CreateLimitOrderResponse{}, err
	}

	if resp.OrderFillTransaction, err = parseOpt(f, "orderFillTransaction", parseOrderFillTransaction); err != nil {
		return CreateLimitOrderResponse{}, err
	}

	if resp.OrderCancelTransaction, err = parseOpt(f, "orderCancelTransaction", parseOrderCancelTransaction); err != nil {
		return CreateLimitOrderResponse{}, err
	}

	if resp.RelatedTransactionIDs, err = f.strings("relatedTransactionIDs"); err != nil {
		return CreateLimitOrderResponse{}, err
	}

	if resp.LastTransactionID, err = f.str("lastTransactionID"); err != nil {
		return CreateLimitOrderResponse{}, err
	}

	return resp, nil
}

// ParseCreateMarketOrderResponse decodes a create market order response body.
func ParseCreateMarketOrderResponse(raw []byte) (CreateMarketOrderResponse, error) {
	f, err := parseFields(raw)
	if err != nil {
		return CreateMarketOrderResponse{}, err
	}

	var resp CreateMarketOrderResponse

	if resp.OrderCreateTransaction, err = parseTyped(f, "orderCreateTransaction", TransactionTypeMarketOrder, parseMarketOrderTransaction); err != nil {
		return CreateMarketOrderResponse{}, err
	}

	if resp.OrderFillTransaction, err = parseOpt(f, "orderFillTransaction", parseOrderFillTransaction); err != nil {
		return CreateMarketOrderResponse{}, err
	}

	if resp.OrderCancelTransaction, err = parseOpt(f, "orderCancelTransaction", parseOrderCancelTransaction); err != nil {
		return CreateMarketOrderResponse{}, err
	}

	if resp.RelatedTransactionIDs, err = f.strings("relatedTransactionIDs"); err != nil {
		return CreateMarketOrderResponse{}, err
	}

	if resp.LastTransactionID, err = f.str("lastTransactionID"); err != nil {
		return CreateMarketOrderResponse{}, err
	}

	return resp, nil
}

// ParseCancelOrderResponse decodes a cancel order response body.
func ParseCancelOrderResponse(raw []byte) (CancelOrderResponse, error) {
	f, err := parseFields(raw)
	if err != nil {
		return CancelOrderResponse{}, err
	}

	var resp CancelOrderResponse

	if resp.OrderCancelTransaction, err = parseTyped(f, "orderCancelTransaction", TransactionTypeOrderCancel, parseOrderCancelTransaction); err != nil {
		return CancelOrderResponse{}, err
	}

	if resp.RelatedTransactionIDs, err = f.strings("relatedTransactionIDs"); err != nil {
		return CancelOrderResponse{}, err
	}

	if resp.LastTransactionID, err = f.str("lastTransactionID"); err != nil {
		return CancelOrderResponse{}, err
	}

	return resp, nil
}

// parseTyped parses the required transaction object under key, checking its type.
func parseTyped[T any](f fields, key string, want TransactionType, parse func(fields) (T, error)) (T, error) {
	var zero T

	obj, err := f.object(key)
	if err != nil {
		return zero, err
	}

	typ, err := obj.str("type")
	if err != nil {
		return zero, errors.Wrapf(errors.ErrCodeInvalidField, err, "invalid field %q", key)
	}

	if TransactionType(typ) != want {
		return zero, errors.Newf(errors.ErrCodeInvalidField, "invalid field %q: expected %s transaction, got %s", key, want, typ)
	}

	v, err := parse(obj)
	if err != nil {
		return zero, errors.Wrapf(errors.ErrCodeInvalidField, err, "invalid field %q", key)
	}

	return v, nil
}
