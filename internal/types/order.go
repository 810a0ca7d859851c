package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"

	"github.com/rxtech-lab/argo-oanda/pkg/errors"
)

// OrderType https://developer.oanda.com/rest-live-v20/order-df/#OrderType
type OrderType string

const (
	OrderTypeMarket     OrderType = "MARKET"
	OrderTypeLimit      OrderType = "LIMIT"
	OrderTypeTakeProfit OrderType = "TAKE_PROFIT"
	OrderTypeStopLoss   OrderType = "STOP_LOSS"
)

// OrderState https://developer.oanda.com/rest-live-v20/order-df/#OrderState
type OrderState string

const (
	OrderStatePending   OrderState = "PENDING"
	OrderStateFilled    OrderState = "FILLED"
	OrderStateTriggered OrderState = "TRIGGERED"
	OrderStateCancelled OrderState = "CANCELLED"
)

// TakeProfitDetails https://developer.oanda.com/rest-live-v20/transaction-df/#TakeProfitDetails
type TakeProfitDetails struct {
	Price            decimal.Decimal                   `json:"price"`
	TimeInForce      TimeInForce                       `json:"timeInForce" validate:"required,oneof=GTC GTD GFD"`
	GTDTime          optional.Option[time.Time]        `json:"gtdTime,omitempty"`
	ClientExtensions optional.Option[ClientExtensions] `json:"clientExtensions,omitempty"`
}

// StopLossDetails https://developer.oanda.com/rest-live-v20/transaction-df/#StopLossDetails
// Exactly one of Price and Distance must be set.
type StopLossDetails struct {
	Price            optional.Option[decimal.Decimal]  `json:"price,omitempty"`
	Distance         optional.Option[decimal.Decimal]  `json:"distance,omitempty"`
	TimeInForce      TimeInForce                       `json:"timeInForce" validate:"required,oneof=GTC GTD GFD"`
	GTDTime          optional.Option[time.Time]        `json:"gtdTime,omitempty"`
	ClientExtensions optional.Option[ClientExtensions] `json:"clientExtensions,omitempty"`
}

// LimitOrderRequest https://developer.oanda.com/rest-live-v20/order-df/#LimitOrderRequest
// Positive units buy, negative units sell.
type LimitOrderRequest struct {
	Type                  OrderType                          `json:"type" validate:"required,eq=LIMIT"`
	Instrument            string                             `json:"instrument" validate:"required"`
	Units                 decimal.Decimal                    `json:"units"`
	Price                 decimal.Decimal                    `json:"price"`
	TimeInForce           TimeInForce                        `json:"timeInForce" validate:"required,oneof=GTC GTD GFD FOK IOC"`
	GTDTime               optional.Option[time.Time]         `json:"gtdTime,omitempty"`
	PositionFill          OrderPositionFill                  `json:"positionFill" validate:"required,oneof=OPEN_ONLY REDUCE_FIRST REDUCE_ONLY DEFAULT"`
	TriggerCondition      OrderTriggerCondition              `json:"triggerCondition" validate:"required,oneof=DEFAULT INVERSE BID ASK MID"`
	ClientExtensions      optional.Option[ClientExtensions]  `json:"clientExtensions,omitempty"`
	TakeProfitOnFill      optional.Option[TakeProfitDetails] `json:"takeProfitOnFill,omitempty"`
	StopLossOnFill        optional.Option[StopLossDetails]   `json:"stopLossOnFill,omitempty"`
	TradeClientExtensions optional.Option[ClientExtensions]  `json:"tradeClientExtensions,omitempty"`
}

// NewLimitOrderRequest returns a GTC limit order with default fill and trigger settings.
func NewLimitOrderRequest(instrument string, units, price decimal.Decimal) LimitOrderRequest {
	//nolint:exhaustruct
	return LimitOrderRequest{
		Type:             OrderTypeLimit,
		Instrument:       instrument,
		Units:            units,
		Price:            price,
		TimeInForce:      TimeInForceGTC,
		PositionFill:     OrderPositionFillDefault,
		TriggerCondition: OrderTriggerConditionDefault,
	}
}

// Validate validates the LimitOrderRequest struct.
func (r *LimitOrderRequest) Validate() error {
	validate := validator.New()
	if err := validate.Struct(r); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidOrderRequest, "invalid limit order request", err)
	}

	if r.Units.IsZero() {
		return errors.New(errors.ErrCodeInvalidOrderRequest, "invalid limit order request: units must not be zero")
	}

	if !r.Price.IsPositive() {
		return errors.New(errors.ErrCodeInvalidOrderRequest, "invalid limit order request: price must be positive")
	}

	if r.TimeInForce == TimeInForceGTD && r.GTDTime.IsNone() {
		return errors.New(errors.ErrCodeInvalidOrderRequest, "invalid limit order request: gtdTime is required for GTD")
	}

	return validateOnFill(validate, r.TakeProfitOnFill, r.StopLossOnFill)
}

// MarketOrderRequest https://developer.oanda.com/rest-live-v20/order-df/#MarketOrderRequest
type MarketOrderRequest struct {
	Type                  OrderType                          `json:"type" validate:"required,eq=MARKET"`
	Instrument            string                             `json:"instrument" validate:"required"`
	Units                 decimal.Decimal                    `json:"units"`
	TimeInForce           TimeInForce                        `json:"timeInForce" validate:"required,oneof=FOK IOC"`
	PriceBound            optional.Option[decimal.Decimal]   `json:"priceBound,omitempty"`
	PositionFill          OrderPositionFill                  `json:"positionFill" validate:"required,oneof=OPEN_ONLY REDUCE_FIRST REDUCE_ONLY DEFAULT"`
	ClientExtensions      optional.Option[ClientExtensions]  `json:"clientExtensions,omitempty"`
	TakeProfitOnFill      optional.Option[TakeProfitDetails] `json:"takeProfitOnFill,omitempty"`
	StopLossOnFill        optional.Option[StopLossDetails]   `json:"stopLossOnFill,omitempty"`
	TradeClientExtensions optional.Option[ClientExtensions]  `json:"tradeClientExtensions,omitempty"`
}

// NewMarketOrderRequest returns a fill-or-kill market order.
func NewMarketOrderRequest(instrument string, units decimal.Decimal) MarketOrderRequest {
	//nolint:exhaustruct
	return MarketOrderRequest{
		Type:         OrderTypeMarket,
		Instrument:   instrument,
		Units:        units,
		TimeInForce:  TimeInForceFOK,
		PositionFill: OrderPositionFillDefault,
	}
}

// Validate validates the MarketOrderRequest struct.
func (r *MarketOrderRequest) Validate() error {
	validate := validator.New()
	if err := validate.Struct(r); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidOrderRequest, "invalid market order request", err)
	}

	if r.Units.IsZero() {
		return errors.New(errors.ErrCodeInvalidOrderRequest, "invalid market order request: units must not be zero")
	}

	if r.PriceBound.IsSome() && !r.PriceBound.Unwrap().IsPositive() {
		return errors.New(errors.ErrCodeInvalidOrderRequest, "invalid market order request: priceBound must be positive")
	}

	return validateOnFill(validate, r.TakeProfitOnFill, r.StopLossOnFill)
}

func validateOnFill(
	validate *validator.Validate,
	takeProfit optional.Option[TakeProfitDetails],
	stopLoss optional.Option[StopLossDetails],
) error {
	if takeProfit.IsSome() {
		tp := takeProfit.Unwrap()
		if err := validate.Struct(tp); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidOrderRequest, "invalid take profit", err)
		}

		if !tp.Price.IsPositive() {
			return errors.New(errors.ErrCodeInvalidOrderRequest, "invalid take profit: price must be positive")
		}
	}

	if stopLoss.IsSome() {
		sl := stopLoss.Unwrap()
		if err := validate.Struct(sl); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidOrderRequest, "invalid stop loss", err)
		}

		if sl.Price.IsSome() == sl.Distance.IsSome() {
			return errors.New(errors.ErrCodeInvalidOrderRequest, "invalid stop loss: exactly one of price and distance must be set")
		}
	}

	return nil
}
