package types

import (
	"encoding/json"
	"time"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
)

// TransactionType is the discriminant of transaction stream messages.
// https://developer.oanda.com/rest-live-v20/transaction-df/#TransactionType
type TransactionType string

const (
	TransactionTypeLimitOrder  TransactionType = "LIMIT_ORDER"
	TransactionTypeMarketOrder TransactionType = "MARKET_ORDER"
	TransactionTypeOrderCancel TransactionType = "ORDER_CANCEL"
	TransactionTypeOrderFill   TransactionType = "ORDER_FILL"
	TransactionTypeHeartbeat   TransactionType = "HEARTBEAT"
)

// LimitOrderReason https://developer.oanda.com/rest-live-v20/transaction-df/#LimitOrderReason
type LimitOrderReason string

const (
	LimitOrderReasonClientOrder LimitOrderReason = "CLIENT_ORDER"
	LimitOrderReasonReplacement LimitOrderReason = "REPLACEMENT"
)

// MarketOrderReason https://developer.oanda.com/rest-live-v20/transaction-df/#MarketOrderReason
type MarketOrderReason string

const (
	MarketOrderReasonClientOrder          MarketOrderReason = "CLIENT_ORDER"
	MarketOrderReasonTradeClose           MarketOrderReason = "TRADE_CLOSE"
	MarketOrderReasonPositionCloseout     MarketOrderReason = "POSITION_CLOSEOUT"
	MarketOrderReasonMarginCloseout       MarketOrderReason = "MARGIN_CLOSEOUT"
	MarketOrderReasonDelayedTradeCloseout MarketOrderReason = "DELAYED_TRADE_CLOSEOUT"
)

// OrderCancelReason https://developer.oanda.com/rest-live-v20/transaction-df/#OrderCancelReason
type OrderCancelReason string

const (
	OrderCancelReasonInternalServerError   OrderCancelReason = "INTERNAL_SERVER_ERROR"
	OrderCancelReasonAccountLocked         OrderCancelReason = "ACCOUNT_LOCKED"
	OrderCancelReasonClientRequest         OrderCancelReason = "CLIENT_REQUEST"
	OrderCancelReasonClientRequestReplaced OrderCancelReason = "CLIENT_REQUEST_REPLACED"
	OrderCancelReasonMarketHalted          OrderCancelReason = "MARKET_HALTED"
	OrderCancelReasonLinkedTradeClosed     OrderCancelReason = "LINKED_TRADE_CLOSED"
	OrderCancelReasonTimeInForceExpired    OrderCancelReason = "TIME_IN_FORCE_EXPIRED"
	OrderCancelReasonInsufficientMargin    OrderCancelReason = "INSUFFICIENT_MARGIN"
	OrderCancelReasonFIFOViolation         OrderCancelReason = "FIFO_VIOLATION"
	OrderCancelReasonBoundsViolation       OrderCancelReason = "BOUNDS_VIOLATION"
	OrderCancelReasonInsufficientLiquidity OrderCancelReason = "INSUFFICIENT_LIQUIDITY"
)

var orderCancelReasonValues = []OrderCancelReason{
	OrderCancelReasonInternalServerError, OrderCancelReasonAccountLocked,
	OrderCancelReasonClientRequest, OrderCancelReasonClientRequestReplaced,
	OrderCancelReasonMarketHalted, OrderCancelReasonLinkedTradeClosed,
	OrderCancelReasonTimeInForceExpired, OrderCancelReasonInsufficientMargin,
	OrderCancelReasonFIFOViolation, OrderCancelReasonBoundsViolation,
	OrderCancelReasonInsufficientLiquidity,
}

// OrderFillReason https://developer.oanda.com/rest-live-v20/transaction-df/#OrderFillReason
type OrderFillReason string

const (
	OrderFillReasonLimitOrder                   OrderFillReason = "LIMIT_ORDER"
	OrderFillReasonStopOrder                    OrderFillReason = "STOP_ORDER"
	OrderFillReasonMarketIfTouchedOrder         OrderFillReason = "MARKET_IF_TOUCHED_ORDER"
	OrderFillReasonTakeProfitOrder              OrderFillReason = "TAKE_PROFIT_ORDER"
	OrderFillReasonStopLossOrder                OrderFillReason = "STOP_LOSS_ORDER"
	OrderFillReasonTrailingStopLossOrder        OrderFillReason = "TRAILING_STOP_LOSS_ORDER"
	OrderFillReasonMarketOrder                  OrderFillReason = "MARKET_ORDER"
	OrderFillReasonMarketOrderTradeClose        OrderFillReason = "MARKET_ORDER_TRADE_CLOSE"
	OrderFillReasonMarketOrderPositionCloseout  OrderFillReason = "MARKET_ORDER_POSITION_CLOSEOUT"
	OrderFillReasonMarketOrderMarginCloseout    OrderFillReason = "MARKET_ORDER_MARGIN_CLOSEOUT"
	OrderFillReasonMarketOrderDelayedTradeClose OrderFillReason = "MARKET_ORDER_DELAYED_TRADE_CLOSE"
)

var orderFillReasonValues = []OrderFillReason{
	OrderFillReasonLimitOrder, OrderFillReasonStopOrder, OrderFillReasonMarketIfTouchedOrder,
	OrderFillReasonTakeProfitOrder, OrderFillReasonStopLossOrder, OrderFillReasonTrailingStopLossOrder,
	OrderFillReasonMarketOrder, OrderFillReasonMarketOrderTradeClose,
	OrderFillReasonMarketOrderPositionCloseout, OrderFillReasonMarketOrderMarginCloseout,
	OrderFillReasonMarketOrderDelayedTradeClose,
}

// TransactionHeader holds the fields common to every transaction.
type TransactionHeader struct {
	ID        string
	Time      time.Time
	UserID    int64
	AccountID string
	BatchID   string
	// RequestID may be empty; fills triggered server-side carry none.
	RequestID string
	Type      TransactionType
}

// Header returns the common transaction fields.
func (h TransactionHeader) Header() TransactionHeader { return h }

func (TransactionHeader) transaction() {}

// Transaction is the closed set of transaction variants decoded from the stream:
// *LimitOrderTransaction, *MarketOrderTransaction, *OrderCancelTransaction,
// *OrderFillTransaction and UnknownTransaction for types this package does not model.
type Transaction interface {
	Header() TransactionHeader
	transaction()
}

// LimitOrderTransaction https://developer.oanda.com/rest-live-v20/transaction-df/#LimitOrderTransaction
type LimitOrderTransaction struct {
	TransactionHeader
	Instrument       string
	Units            decimal.Decimal
	Price            decimal.Decimal
	TimeInForce      TimeInForce
	GTDTime          optional.Option[time.Time]
	PositionFill     OrderPositionFill
	TriggerCondition OrderTriggerCondition
	Reason           LimitOrderReason
	ClientExtensions optional.Option[ClientExtensions]
}

// MarketOrderTransaction https://developer.oanda.com/rest-live-v20/transaction-df/#MarketOrderTransaction
type MarketOrderTransaction struct {
	TransactionHeader
	Instrument       string
	Units            decimal.Decimal
	TimeInForce      TimeInForce
	PriceBound       optional.Option[decimal.Decimal]
	PositionFill     OrderPositionFill
	Reason           MarketOrderReason
	ClientExtensions optional.Option[ClientExtensions]
}

// OrderCancelTransaction https://developer.oanda.com/rest-live-v20/transaction-df/#OrderCancelTransaction
type OrderCancelTransaction struct {
	TransactionHeader
	OrderID           string
	Reason            OrderCancelReason
	ClientOrderID     optional.Option[string]
	ReplacedByOrderID optional.Option[string]
}

// TradeOpen https://developer.oanda.com/rest-live-v20/transaction-df/#TradeOpen
type TradeOpen struct {
	TradeID               string
	Units                 decimal.Decimal
	Price                 decimal.Decimal
	HalfSpreadCost        decimal.Decimal
	InitialMarginRequired decimal.Decimal
	ClientExtensions      optional.Option[ClientExtensions]
}

// TradeReduce https://developer.oanda.com/rest-live-v20/transaction-df/#TradeReduce
type TradeReduce struct {
	TradeID    string
	Units      decimal.Decimal
	Price      decimal.Decimal
	RealizedPL optional.Option[decimal.Decimal]
}

// OrderFillTransaction https://developer.oanda.com/rest-live-v20/transaction-df/#OrderFillTransaction
type OrderFillTransaction struct {
	TransactionHeader
	OrderID        string
	ClientOrderID  optional.Option[string]
	Instrument     string
	Units          decimal.Decimal
	RequestedUnits decimal.Decimal
	AccountBalance decimal.Decimal
	HalfSpreadCost decimal.Decimal
	Reason         OrderFillReason
	Price          optional.Option[decimal.Decimal]
	FullVWAP       optional.Option[decimal.Decimal]
	FullPrice      optional.Option[ClientPrice]
	PL             optional.Option[decimal.Decimal]
	Financing      optional.Option[decimal.Decimal]
	Commission     optional.Option[decimal.Decimal]
	TradeOpened    optional.Option[TradeOpen]
	TradesClosed   []TradeReduce
	TradeReduced   optional.Option[TradeReduce]
}

// UnknownTransaction is a well-formed transaction whose type is not modeled here.
// Only the header fields that were present are populated.
type UnknownTransaction struct {
	TransactionHeader
	Raw json.RawMessage
}

var (
	_ Transaction = (*LimitOrderTransaction)(nil)
	_ Transaction = (*MarketOrderTransaction)(nil)
	_ Transaction = (*OrderCancelTransaction)(nil)
	_ Transaction = (*OrderFillTransaction)(nil)
	_ Transaction = UnknownTransaction{}
)

// ParseTransaction decodes one transaction payload into its variant. Unrecognized
// types are returned as UnknownTransaction with a nil error.
func ParseTransaction(raw []byte) (Transaction, error) {
	f, err := parseFields(raw)
	if err != nil {
		return nil, err
	}

	return parseTransaction(f, raw)
}

func parseTransaction(f fields, raw []byte) (Transaction, error) {
	typ, err := f.str("type")
	if err != nil {
		return nil, err
	}

	switch TransactionType(typ) {
	case TransactionTypeLimitOrder:
		return asTransaction(parseLimitOrderTransaction(f))
	case TransactionTypeMarketOrder:
		return asTransaction(parseMarketOrderTransaction(f))
	case TransactionTypeOrderCancel:
		return asTransaction(parseOrderCancelTransaction(f))
	case TransactionTypeOrderFill:
		return asTransaction(parseOrderFillTransaction(f))
	default:
		return UnknownTransaction{
			TransactionHeader: partialHeader(f, TransactionType(typ)),
			Raw:               append(json.RawMessage(nil), raw...),
		}, nil
	}
}

// asTransaction keeps a failed parse from leaking a typed nil into the interface.
func asTransaction[T Transaction](tx T, err error) (Transaction, error) {
	if err != nil {
		return nil, err
	}

	return tx, nil
}

func parseHeader(f fields) (TransactionHeader, error) {
	id, err := f.str("id")
	if err != nil {
		return TransactionHeader{}, err
	}

	t, err := f.time("time")
	if err != nil {
		return TransactionHeader{}, err
	}

	userID, err := f.integer("userID")
	if err != nil {
		return TransactionHeader{}, err
	}

	accountID, err := f.str("accountID")
	if err != nil {
		return TransactionHeader{}, err
	}

	batchID, err := f.str("batchID")
	if err != nil {
		return TransactionHeader{}, err
	}

	requestID, err := f.strOr("requestID", "")
	if err != nil {
		return TransactionHeader{}, err
	}

	typ, err := f.str("type")
	if err != nil {
		return TransactionHeader{}, err
	}

	return TransactionHeader{
		ID:        id,
		Time:      t,
		UserID:    userID,
		AccountID: accountID,
		BatchID:   batchID,
		RequestID: requestID,
		Type:      TransactionType(typ),
	}, nil
}

// partialHeader fills whatever header fields parse, ignoring errors.
func partialHeader(f fields, typ TransactionType) TransactionHeader {
	h := TransactionHeader{Type: typ}
	h.ID, _ = f.strOr("id", "")
	h.AccountID, _ = f.strOr("accountID", "")
	h.BatchID, _ = f.strOr("batchID", "")
	h.RequestID, _ = f.strOr("requestID", "")

	if t, err := f.time("time"); err == nil {
		h.Time = t
	}

	if u, err := f.integer("userID"); err == nil {
		h.UserID = u
	}

	return h
}

func parseLimitOrderTransaction(f fields) (*LimitOrderTransaction, error) {
	header, err := parseHeader(f)
	if err != nil {
		return nil, err
	}

	tx := &LimitOrderTransaction{TransactionHeader: header}

	if tx.Instrument, err = f.str("instrument"); err != nil {
		return nil, err
	}

	if tx.Units, err = f.dec("units"); err != nil {
		return nil, err
	}

	if tx.Price, err = f.dec("price"); err != nil {
		return nil, err
	}

	if tx.TimeInForce, err = enum(f, "timeInForce", timeInForceValues...); err != nil {
		return nil, err
	}

	if tx.GTDTime, err = f.optTime("gtdTime"); err != nil {
		return nil, err
	}

	if tx.PositionFill, err = enumOr(f, "positionFill", OrderPositionFillDefault, orderPositionFillValues...); err != nil {
		return nil, err
	}

	if tx.TriggerCondition, err = enum(f, "triggerCondition", orderTriggerConditionValues...); err != nil {
		return nil, err
	}

	if tx.Reason, err = enum(f, "reason", LimitOrderReasonClientOrder, LimitOrderReasonReplacement); err != nil {
		return nil, err
	}

	if tx.ClientExtensions, err = parseOpt(f, "clientExtensions", parseClientExtensions); err != nil {
		return nil, err
	}

	return tx, nil
}

func parseMarketOrderTransaction(f fields) (*MarketOrderTransaction, error) {
	header, err := parseHeader(f)
	if err != nil {
		return nil, err
	}

	tx := &MarketOrderTransaction{TransactionHeader: header}

	if tx.Instrument, err = f.str("instrument"); err != nil {
		return nil, err
	}

	if tx.Units, err = f.dec("units"); err != nil {
		return nil, err
	}

	if tx.TimeInForce, err = enum(f, "timeInForce", timeInForceValues...); err != nil {
		return nil, err
	}

	if tx.PriceBound, err = f.optDec("priceBound"); err != nil {
		return nil, err
	}

	if tx.PositionFill, err = enumOr(f, "positionFill", OrderPositionFillDefault, orderPositionFillValues...); err != nil {
		return nil, err
	}

	tx.Reason, err = enum(f, "reason",
		MarketOrderReasonClientOrder, MarketOrderReasonTradeClose, MarketOrderReasonPositionCloseout,
		MarketOrderReasonMarginCloseout, MarketOrderReasonDelayedTradeCloseout)
	if err != nil {
		return nil, err
	}

	if tx.ClientExtensions, err = parseOpt(f, "clientExtensions", parseClientExtensions); err != nil {
		return nil, err
	}

	return tx, nil
}

func parseOrderCancelTransaction(f fields) (*OrderCancelTransaction, error) {
	header, err := parseHeader(f)
	if err != nil {
		return nil, err
	}

	tx := &OrderCancelTransaction{TransactionHeader: header}

	if tx.OrderID, err = f.str("orderID"); err != nil {
		return nil, err
	}

	if tx.Reason, err = enum(f, "reason", orderCancelReasonValues...); err != nil {
		return nil, err
	}

	if tx.ClientOrderID, err = f.optStr("clientOrderID"); err != nil {
		return nil, err
	}

	if tx.ReplacedByOrderID, err = f.optStr("replacedByOrderID"); err != nil {
		return nil, err
	}

	return tx, nil
}

func parseTradeOpen(f fields) (TradeOpen, error) {
	var (
		t   TradeOpen
		err error
	)

	if t.TradeID, err = f.str("tradeID"); err != nil {
		return TradeOpen{}, err
	}

	if t.Units, err = f.dec("units"); err != nil {
		return TradeOpen{}, err
	}

	if t.Price, err = f.dec("price"); err != nil {
		return TradeOpen{}, err
	}

	if t.HalfSpreadCost, err = f.dec("halfSpreadCost"); err != nil {
		return TradeOpen{}, err
	}

	if t.InitialMarginRequired, err = f.dec("initialMarginRequired"); err != nil {
		return TradeOpen{}, err
	}

	if t.ClientExtensions, err = parseOpt(f, "clientExtensions", parseClientExtensions); err != nil {
		return TradeOpen{}, err
	}

	return t, nil
}

func parseTradeReduce(f fields) (TradeReduce, error) {
	var (
		t   TradeReduce
		err error
	)

	if t.TradeID, err = f.str("tradeID"); err != nil {
		return TradeReduce{}, err
	}

	if t.Units, err = f.dec("units"); err != nil {
		return TradeReduce{}, err
	}

	if t.Price, err = f.dec("price"); err != nil {
		return TradeReduce{}, err
	}

	if t.RealizedPL, err = f.optDec("realizedPL"); err != nil {
		return TradeReduce{}, err
	}

	return t, nil
}

func parseOrderFillTransaction(f fields) (*OrderFillTransaction, error) {
	header, err := parseHeader(f)
	if err != nil {
		return nil, err
	}

	tx := &OrderFillTransaction{TransactionHeader: header}

	if tx.OrderID, err = f.str("orderID"); err != nil {
		return nil, err
	}

	if tx.ClientOrderID, err = f.optStr("clientOrderID"); err != nil {
		return nil, err
	}

	if tx.Instrument, err = f.str("instrument"); err != nil {
		return nil, err
	}

	if tx.Units, err = f.dec("units"); err != nil {
		return nil, err
	}

	if tx.RequestedUnits, err = f.dec("requestedUnits"); err != nil {
		return nil, err
	}

	if tx.AccountBalance, err = f.dec("accountBalance"); err != nil {
		return nil, err
	}

	if tx.HalfSpreadCost, err = f.dec("halfSpreadCost"); err != nil {
		return nil, err
	}

	if tx.Reason, err = enum(f, "reason", orderFillReasonValues...); err != nil {
		return nil, err
	}

	if tx.Price, err = f.optDec("price"); err != nil {
		return nil, err
	}

	if tx.FullVWAP, err = f.optDec("fullVWAP"); err != nil {
		return nil, err
	}

	if tx.FullPrice, err = parseOpt(f, "fullPrice", parseClientPrice); err != nil {
		return nil, err
	}

	if tx.PL, err = f.optDec("pl"); err != nil {
		return nil, err
	}

	if tx.Financing, err = f.optDec("financing"); err != nil {
		return nil, err
	}

	if tx.Commission, err = f.optDec("commission"); err != nil {
		return nil, err
	}

	if tx.TradeOpened, err = parseOpt(f, "tradeOpened", parseTradeOpen); err != nil {
		return nil, err
	}

	if f.has("tradesClosed") {
		if tx.TradesClosed, err = parseEach(f, "tradesClosed", parseTradeReduce); err != nil {
			return nil, err
		}
	}

	if tx.TradeReduced, err = parseOpt(f, "tradeReduced", parseTradeReduce); err != nil {
		return nil, err
	}

	return tx, nil
}
