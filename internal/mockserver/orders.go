package mockserver

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/rxtech-lab/argo-oanda/internal/types"
)

// marginRate approximates the margin requirement of a 25:1 account.
var marginRate = decimal.RequireFromString("0.04")

type wireOrder struct {
	Type             types.OrderType         `json:"type"`
	Instrument       string                  `json:"instrument"`
	Units            decimal.Decimal         `json:"units"`
	Price            decimal.NullDecimal     `json:"price"`
	PriceBound       decimal.NullDecimal     `json:"priceBound"`
	TimeInForce      types.TimeInForce       `json:"timeInForce"`
	PositionFill     types.OrderPositionFill `json:"positionFill"`
	TriggerCondition string                  `json:"triggerCondition"`
	ClientExtensions *types.ClientExtensions `json:"clientExtensions"`
}

// batch collects the transactions produced by one request.
type batch struct {
	server    *MockOANDAServer
	id        string
	requestID string
	emitted   []map[string]any
}

func (s *MockOANDAServer) newBatch() *batch {
	return &batch{
		server:    s,
		id:        "",
		requestID: uuid.NewString(),
		emitted:   nil,
	}
}

// add assigns the next transaction id and fills the common header. Callers hold s.mu.
func (b *batch) add(typ types.TransactionType, body map[string]any) map[string]any {
	b.server.transactionSeq++
	id := strconv.FormatInt(b.server.transactionSeq, 10)

	if b.id == "" {
		b.id = id
	}

	body["id"] = id
	body["time"] = types.FormatTime(b.server.config.Now())
	body["userID"] = b.server.config.UserID
	body["accountID"] = b.server.config.AccountID
	body["batchID"] = b.id
	body["requestID"] = b.requestID
	body["type"] = string(typ)

	b.emitted = append(b.emitted, body)

	return body
}

func (b *batch) ids() []string {
	ids := make([]string, 0, len(b.emitted))
	for _, tx := range b.emitted {
		ids = append(ids, tx["id"].(string))
	}

	return ids
}

// commit records the batch and pushes it to open transaction streams. Callers
// must not hold s.mu.
func (b *batch) commit() {
	lines := make([][]byte, 0, len(b.emitted))
	for _, tx := range b.emitted {
		lines = append(lines, mustMarshal(tx))
	}

	b.server.mu.Lock()
	b.server.transactions = append(b.server.transactions, lines...)
	b.server.mu.Unlock()

	for _, line := range lines {
		b.server.Publish(line)
	}
}

func (s *MockOANDAServer) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Order *wireOrder `json:"order"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Order == nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON, ensure that the request body is valid JSON")

		return
	}

	order := req.Order
	if order.Instrument == "" || order.Units.IsZero() {
		writeError(w, http.StatusBadRequest, "Invalid value specified for 'order'")

		return
	}

	applyDefaults(order)

	s.mu.Lock()

	b := s.newBatch()
	response := map[string]any{}

	switch order.Type {
	case types.OrderTypeMarket:
		s.createMarketOrder(b, order, response)
	case types.OrderTypeLimit:
		if !order.Price.Valid || !order.Price.Decimal.IsPositive() {
			s.mu.Unlock()
			writeError(w, http.StatusBadRequest, "Invalid value specified for 'price'")

			return
		}

		s.createLimitOrder(b, order, response)
	default:
		s.mu.Unlock()
		writeError(w, http.StatusBadRequest, "Order type not supported by the mock server")

		return
	}

	response["relatedTransactionIDs"] = b.ids()
	response["lastTransactionID"] = strconv.FormatInt(s.transactionSeq, 10)

	s.mu.Unlock()

	b.commit()
	writeJSON(w, http.StatusCreated, response)
}

// createMarketOrder fills at the touch unless the price bound is violated. Callers hold s.mu.
func (s *MockOANDAServer) createMarketOrder(b *batch, order *wireOrder, response map[string]any) {
	create := b.add(types.TransactionTypeMarketOrder, map[string]any{
		"instrument":   order.Instrument,
		"units":        order.Units.String(),
		"timeInForce":  string(order.TimeInForce),
		"positionFill": string(order.PositionFill),
		"reason":       "CLIENT_ORDER",
	})
	if order.PriceBound.Valid {
		create["priceBound"] = order.PriceBound.Decimal.String()
	}

	response["orderCreateTransaction"] = create

	s.storeOrder(create, order, types.OrderStateFilled)

	quote := s.quote(order.Instrument)
	fillPrice := quote.Ask
	violated := order.PriceBound.Valid && fillPrice.GreaterThan(order.PriceBound.Decimal)

	if order.Units.IsNegative() {
		fillPrice = quote.Bid
		violated = order.PriceBound.Valid && fillPrice.LessThan(order.PriceBound.Decimal)
	}

	if violated {
		response["orderCancelTransaction"] = s.cancel(b, create["id"].(string), types.OrderCancelReasonBoundsViolation)

		return
	}

	response["orderFillTransaction"] = s.fill(b, create["id"].(string), order, quote, fillPrice, types.OrderFillReasonMarketOrder)
}

// createLimitOrder fills marketable orders immediately and rests the others.
// Callers hold s.mu.
func (s *MockOANDAServer) createLimitOrder(b *batch, order *wireOrder, response map[string]any) {
	create := b.add(types.TransactionTypeLimitOrder, map[string]any{
		"instrument":       order.Instrument,
		"units":            order.Units.String(),
		"price":            order.Price.Decimal.String(),
		"timeInForce":      string(order.TimeInForce),
		"positionFill":     string(order.PositionFill),
		"triggerCondition": order.TriggerCondition,
		"reason":           "CLIENT_ORDER",
	})
	if order.ClientExtensions != nil {
		create["clientExtensions"] = order.ClientExtensions
	}

	response["orderCreateTransaction"] = create
	orderID := create["id"].(string)

	quote := s.quote(order.Instrument)
	marketable := order.Price.Decimal.GreaterThanOrEqual(quote.Ask)
	fillPrice := quote.Ask

	if order.Units.IsNegative() {
		marketable = order.Price.Decimal.LessThanOrEqual(quote.Bid)
		fillPrice = quote.Bid
	}

	switch {
	case marketable:
		s.storeOrder(create, order, types.OrderStateFilled)
		response["orderFillTransaction"] = s.fill(b, orderID, order, quote, fillPrice, types.OrderFillReasonLimitOrder)
	case order.TimeInForce == types.TimeInForceFOK || order.TimeInForce == types.TimeInForceIOC:
		s.storeOrder(create, order, types.OrderStateCancelled)
		response["orderCancelTransaction"] = s.cancel(b, orderID, types.OrderCancelReasonTimeInForceExpired)
	default:
		s.storeOrder(create, order, types.OrderStatePending)
	}
}

// applyDefaults fills the fields OANDA defaults when a request omits them.
func applyDefaults(order *wireOrder) {
	if order.TimeInForce == "" {
		order.TimeInForce = types.TimeInForceGTC
		if order.Type == types.OrderTypeMarket {
			order.TimeInForce = types.TimeInForceFOK
		}
	}

	if order.PositionFill == "" {
		order.PositionFill = types.OrderPositionFillDefault
	}

	if order.TriggerCondition == "" {
		order.TriggerCondition = "DEFAULT"
	}
}

func (s *MockOANDAServer) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	specifier := mux.Vars(r)["orderSpecifier"]

	s.mu.Lock()

	order := s.findOrder(specifier)
	if order == nil || order.State != types.OrderStatePending {
		s.mu.Unlock()
		writeJSON(w, http.StatusNotFound, map[string]string{
			"errorCode":    "ORDER_DOESNT_EXIST",
			"errorMessage": "The Order specified does not exist",
		})

		return
	}

	b := s.newBatch()
	cancelTx := s.cancel(b, order.ID, types.OrderCancelReasonClientRequest)
	order.State = types.OrderStateCancelled

	response := map[string]any{
		"orderCancelTransaction": cancelTx,
		"relatedTransactionIDs":  b.ids(),
		"lastTransactionID":      strconv.FormatInt(s.transactionSeq, 10),
	}

	s.mu.Unlock()

	b.commit()
	writeJSON(w, http.StatusOK, response)
}

func (s *MockOANDAServer) cancel(b *batch, orderID string, reason types.OrderCancelReason) map[string]any {
	return b.add(types.TransactionTypeOrderCancel, map[string]any{
		"orderID": orderID,
		"reason":  string(reason),
	})
}

func (s *MockOANDAServer) fill(
	b *batch,
	orderID string,
	order *wireOrder,
	quote Quote,
	price decimal.Decimal,
	reason types.OrderFillReason,
) map[string]any {
	units := order.Units.Abs()
	halfSpread := quote.Ask.Sub(quote.Bid).Div(decimal.NewFromInt(2))
	halfSpreadCost := halfSpread.Mul(units).Round(4)

	fill := b.add(types.TransactionTypeOrderFill, map[string]any{
		"orderID":        orderID,
		"instrument":     order.Instrument,
		"units":          order.Units.String(),
		"requestedUnits": order.Units.String(),
		"price":          price.String(),
		"fullVWAP":       price.String(),
		"pl":             "0.0000",
		"financing":      "0.0000",
		"commission":     "0.0000",
		"accountBalance": s.balance.StringFixed(4),
		"halfSpreadCost": halfSpreadCost.String(),
		"reason":         string(reason),
	})

	fill["tradeOpened"] = map[string]any{
		"tradeID":               fill["id"],
		"units":                 order.Units.String(),
		"price":                 price.String(),
		"halfSpreadCost":        halfSpreadCost.String(),
		"initialMarginRequired": units.Mul(price).Mul(marginRate).Round(4).String(),
	}

	return fill
}

// quote returns the tracked price for instrument, falling back to the configured
// initial mid. Callers hold s.mu.
func (s *MockOANDAServer) quote(instrument string) Quote {
	if q, ok := s.prices[instrument]; ok {
		return q
	}

	mid := decimal.NewFromFloat(s.config.Quotes.InitialMid)
	half := decimal.NewFromFloat(s.config.Quotes.HalfSpread)

	return Quote{Bid: mid.Sub(half), Ask: mid.Add(half)}
}

func (s *MockOANDAServer) storeOrder(create map[string]any, order *wireOrder, state types.OrderState) {
	stored := &Order{
		ID:         create["id"].(string),
		Type:       order.Type,
		Instrument: order.Instrument,
		Units:      order.Units,
		Price:      order.Price.Decimal,
		State:      state,
		CreatedAt:  s.config.Now(),
		ClientID:   "",
	}
	if order.ClientExtensions != nil {
		stored.ClientID = order.ClientExtensions.ID
	}

	s.orders[stored.ID] = stored
}

// findOrder resolves an order id or "@clientID". Callers hold s.mu.
func (s *MockOANDAServer) findOrder(specifier string) *Order {
	clientID, byClient := strings.CutPrefix(specifier, "@")
	if !byClient {
		return s.orders[specifier]
	}

	for _, order := range s.orders {
		if order.ClientID != "" && order.ClientID == clientID {
			return order
		}
	}

	return nil
}
