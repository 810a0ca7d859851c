package oanda

import (
	"context"
	"net/http"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-oanda/internal/logger"
	"github.com/rxtech-lab/argo-oanda/internal/types"
	"github.com/rxtech-lab/argo-oanda/pkg/errors"
)

// OrderClient calls the order endpoints of one account.
// https://developer.oanda.com/rest-live-v20/order-ep/
type OrderClient struct {
	rest   *resty.Client
	logger *logger.Logger
}

type orderEnvelope[T any] struct {
	Order T `json:"order"`
}

// CreateLimitOrder submits a limit order. The response may already carry a fill or
// a cancel when the order was marketable or rejected on arrival.
func (c *OrderClient) CreateLimitOrder(ctx context.Context, req types.LimitOrderRequest) (types.CreateLimitOrderResponse, error) {
	if err := req.Validate(); err != nil {
		return types.CreateLimitOrderResponse{}, err
	}

	body, err := c.post(ctx, "limit", req.Instrument, orderEnvelope[types.LimitOrderRequest]{Order: req})
	if err != nil {
		return types.CreateLimitOrderResponse{}, err
	}

	resp, err := types.ParseCreateLimitOrderResponse(body)
	if err != nil {
		return types.CreateLimitOrderResponse{}, errors.Wrap(errors.ErrCodeRESTDecodeFailed, "failed to decode create limit order response", err)
	}

	c.logger.Info("Limit order created",
		zap.String("order_id", resp.OrderCreateTransaction.ID),
		zap.Bool("filled", resp.OrderFillTransaction.IsSome()),
		zap.Bool("cancelled", resp.OrderCancelTransaction.IsSome()),
	)

	return resp, nil
}

// CreateMarketOrder submits a market order.
func (c *OrderClient) CreateMarketOrder(ctx context.Context, req types.MarketOrderRequest) (types.CreateMarketOrderResponse, error) {
	if err := req.Validate(); err != nil {
		return types.CreateMarketOrderResponse{}, err
	}

	body, err := c.post(ctx, "market", req.Instrument, orderEnvelope[types.MarketOrderRequest]{Order: req})
	if err != nil {
		return types.CreateMarketOrderResponse{}, err
	}

	resp, err := types.ParseCreateMarketOrderResponse(body)
	if err != nil {
		return types.CreateMarketOrderResponse{}, errors.Wrap(errors.ErrCodeRESTDecodeFailed, "failed to decode create market order response", err)
	}

	c.logger.Info("Market order created",
		zap.String("order_id", resp.OrderCreateTransaction.ID),
		zap.Bool("filled", resp.OrderFillTransaction.IsSome()),
		zap.Bool("cancelled", resp.OrderCancelTransaction.IsSome()),
	)

	return resp, nil
}

// CancelOrder cancels a pending order. orderID may be an order id or "@" followed
// by a client order id.
func (c *OrderClient) CancelOrder(ctx context.Context, orderID string) (types.CancelOrderResponse, error) {
	if orderID == "" {
		return types.CancelOrderResponse{}, errors.New(errors.ErrCodeMissingParameter, "order id is required")
	}

	c.logger.Info("Cancelling order", zap.String("order_id", orderID))

	resp, err := c.rest.R().
		SetContext(ctx).
		SetPathParam("orderSpecifier", orderID).
		Put("/v3/accounts/{accountID}/orders/{orderSpecifier}/cancel")
	if err != nil {
		return types.CancelOrderResponse{}, errors.Wrapf(errors.ErrCodeRESTRequestFailed, err, "failed to cancel order %s", orderID)
	}

	if err := expectStatus(resp, http.StatusOK); err != nil {
		c.logger.Error("Cancel order rejected", zap.String("order_id", orderID), zap.Error(err))

		return types.CancelOrderResponse{}, err
	}

	cancelled, err := types.ParseCancelOrderResponse(resp.Body())
	if err != nil {
		return types.CancelOrderResponse{}, errors.Wrap(errors.ErrCodeRESTDecodeFailed, "failed to decode cancel order response", err)
	}

	return cancelled, nil
}

func (c *OrderClient) post(ctx context.Context, kind, instrument string, payload any) ([]byte, error) {
	c.logger.Info("Creating order", zap.String("kind", kind), zap.String("instrument", instrument))

	resp, err := c.rest.R().
		SetContext(ctx).
		SetBody(payload).
		Post("/v3/accounts/{accountID}/orders")
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeRESTRequestFailed, err, "failed to create %s order", kind)
	}

	if err := expectStatus(resp, http.StatusCreated); err != nil {
		c.logger.Error("Create order rejected", zap.String("kind", kind), zap.Error(err))

		return nil, err
	}

	return resp.Body(), nil
}
