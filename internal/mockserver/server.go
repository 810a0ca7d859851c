// Package mockserver provides a fake OANDA v20 server. It serves the pricing and
// transaction streams plus the candle and order endpoints over plain HTTP so the
// client can be exercised end to end without an account.
package mockserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/rxtech-lab/argo-oanda/internal/types"
	"github.com/rxtech-lab/argo-oanda/mocks"
)

// ServerConfig holds configuration for the mock server.
type ServerConfig struct {
	Token     string
	AccountID string
	UserID    int64
	// Quote generation for the pricing stream.
	Quotes mocks.GeneratorConfig
	Seed   uint64
	// StreamInterval is the pause between pricing lines.
	StreamInterval time.Duration
	// HeartbeatInterval is the pause between heartbeats on idle streams.
	HeartbeatInterval time.Duration
	// DropAfter ends each pricing response after this many lines; 0 never drops.
	DropAfter int
	// Balance is the starting account balance.
	Balance decimal.Decimal
	// Now bounds generated candles. Defaults to time.Now.
	Now func() time.Time
}

// DefaultServerConfig returns a practice-like account quoting USD_JPY.
func DefaultServerConfig() ServerConfig {
	quotes := mocks.DefaultConfig()
	quotes.HeartbeatEvery = 5

	return ServerConfig{
		Token:             "mock-token",
		AccountID:         "101-009-00000000-001",
		UserID:            1,
		Quotes:            quotes,
		Seed:              42,
		StreamInterval:    10 * time.Millisecond,
		HeartbeatInterval: 5 * time.Second,
		DropAfter:         0,
		Balance:           decimal.NewFromInt(100000),
		Now:               time.Now,
	}
}

// MockOANDAServer is a fake OANDA v20 endpoint.
type MockOANDAServer struct {
	mu sync.RWMutex

	config ServerConfig

	httpServer *http.Server
	listener   net.Listener

	// Account state
	transactionSeq int64
	orders         map[string]*Order
	prices         map[string]Quote
	balance        decimal.Decimal
	transactions   [][]byte

	// Streaming state
	connections int
	subscribers map[chan []byte]struct{}
	subMu       sync.Mutex
}

// Quote is the top of book the server fills orders against.
type Quote struct {
	Bid decimal.Decimal
	Ask decimal.Decimal
}

// Order is an order the server has accepted.
type Order struct {
	ID         string
	Type       types.OrderType
	Instrument string
	Units      decimal.Decimal
	Price      decimal.Decimal
	State      types.OrderState
	CreatedAt  time.Time
	ClientID   string
}

// NewMockOANDAServer creates a new mock server.
func NewMockOANDAServer(config ServerConfig) *MockOANDAServer {
	if config.Now == nil {
		config.Now = time.Now
	}

	if config.HeartbeatInterval <= 0 {
		config.HeartbeatInterval = 5 * time.Second
	}

	return &MockOANDAServer{
		mu:             sync.RWMutex{},
		config:         config,
		httpServer:     nil,
		listener:       nil,
		transactionSeq: 0,
		orders:         make(map[string]*Order),
		prices:         make(map[string]Quote),
		balance:        config.Balance,
		transactions:   nil,
		connections:    0,
		subscribers:    make(map[chan []byte]struct{}),
		subMu:          sync.Mutex{},
	}
}

// Handler returns the router, for use with httptest.
func (s *MockOANDAServer) Handler() http.Handler {
	router := mux.NewRouter()
	router.Use(s.authenticate)

	account := router.PathPrefix("/v3/accounts/{accountID}").Subrouter()
	account.Use(s.checkAccount)
	account.HandleFunc("/pricing/stream", s.handlePricingStream).Methods(http.MethodGet)
	account.HandleFunc("/transactions/stream", s.handleTransactionStream).Methods(http.MethodGet)
	account.HandleFunc("/orders", s.handleCreateOrder).Methods(http.MethodPost)
	account.HandleFunc("/orders/{orderSpecifier}/cancel", s.handleCancelOrder).Methods(http.MethodPut)

	router.HandleFunc("/v3/instruments/{instrument}/candles", s.handleCandles).Methods(http.MethodGet)

	return router
}

// Start starts the server on address (e.g. ":0" for a random port).
func (s *MockOANDAServer) Start(address string) error {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	s.listener = listener
	//nolint:exhaustruct
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		_ = s.httpServer.Serve(listener)
	}()

	return nil
}

// Stop shuts the server down and drops open streams.
func (s *MockOANDAServer) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return s.httpServer.Close()
	}

	return nil
}

// Address returns the listening address.
func (s *MockOANDAServer) Address() string {
	if s.listener == nil {
		return ""
	}

	return s.listener.Addr().String()
}

// BaseURL returns the HTTP base URL. It serves both REST and streaming paths.
func (s *MockOANDAServer) BaseURL() string {
	return "http://" + s.Address()
}

// Config returns the server configuration.
func (s *MockOANDAServer) Config() ServerConfig {
	return s.config
}

// SetPrice sets the quote orders on instrument are filled against.
func (s *MockOANDAServer) SetPrice(instrument string, bid, ask decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.prices[instrument] = Quote{Bid: bid, Ask: ask}
}

// GetOrder returns a copy of the order with id, or nil.
func (s *MockOANDAServer) GetOrder(id string) *Order {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.orders[id]
	if !ok {
		return nil
	}

	copied := *order

	return &copied
}

// Transactions returns every transaction emitted so far as raw JSON.
func (s *MockOANDAServer) Transactions() [][]byte {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([][]byte, len(s.transactions))
	copy(out, s.transactions)

	return out
}

// Connections returns how many pricing streams have been opened.
func (s *MockOANDAServer) Connections() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.connections
}

// Publish sends a raw line to every open transaction stream, as if the account
// had produced it.
func (s *MockOANDAServer) Publish(line []byte) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	for ch := range s.subscribers {
		select {
		case ch <- line:
		default:
		}
	}
}

func (s *MockOANDAServer) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token != s.config.Token {
			writeError(w, http.StatusUnauthorized, "Insufficient authorization to perform request.")

			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *MockOANDAServer) checkAccount(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if mux.Vars(r)["accountID"] != s.config.AccountID {
			writeError(w, http.StatusForbidden, "The provided request was forbidden.")

			return
		}

		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"errorMessage": message})
}
