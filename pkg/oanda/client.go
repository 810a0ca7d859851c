// Package oanda wires the streaming core and the REST endpoints of the OANDA v20
// API to a loaded configuration.
package oanda

import (
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-oanda/internal/config"
	"github.com/rxtech-lab/argo-oanda/internal/logger"
	"github.com/rxtech-lab/argo-oanda/internal/types"
	"github.com/rxtech-lab/argo-oanda/pkg/errors"
	"github.com/rxtech-lab/argo-oanda/pkg/stream"
)

// DefaultRESTTimeout bounds one REST round trip. Streams are not subject to it.
const DefaultRESTTimeout = 30 * time.Second

// Client groups the REST and streaming endpoints of one account.
type Client struct {
	cfg       *config.Config
	rest      *resty.Client
	transport stream.Transport
	logger    *logger.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithRESTClient replaces the resty client used for REST calls. Base URL, auth and
// headers are set on it by NewClient.
func WithRESTClient(c *resty.Client) ClientOption {
	return func(client *Client) {
		client.rest = c
	}
}

// WithTransport replaces the transport used to open streams.
func WithTransport(t stream.Transport) ClientOption {
	return func(client *Client) {
		client.transport = t
	}
}

// WithLogger sets the logger shared by the REST clients and streams.
func WithLogger(l *logger.Logger) ClientOption {
	return func(client *Client) {
		client.logger = l
	}
}

// NewClient validates cfg and builds a Client for its account.
func NewClient(cfg *config.Config, opts ...ClientOption) (*Client, error) {
	if cfg == nil {
		return nil, errors.New(errors.ErrCodeMissingParameter, "config is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	//nolint:exhaustruct
	client := &Client{cfg: cfg}
	for _, opt := range opts {
		opt(client)
	}

	if client.logger == nil {
		client.logger = logger.NewNopLogger()
	}

	if client.rest == nil {
		client.rest = resty.New().SetTimeout(DefaultRESTTimeout)
	}

	client.rest.
		SetBaseURL(cfg.RESTURL).
		SetAuthToken(cfg.Token).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept-Datetime-Format", "RFC3339").
		SetPathParam("accountID", cfg.AccountID)

	if client.transport == nil {
		client.transport = stream.NewRestyTransport(nil)
	}

	return client, nil
}

// Config returns the configuration the client was built with.
func (c *Client) Config() *config.Config {
	return c.cfg
}

// Instruments returns the instrument endpoints.
func (c *Client) Instruments() *InstrumentClient {
	return &InstrumentClient{rest: c.rest, logger: c.logger.Named("instrument")}
}

// Orders returns the order endpoints.
func (c *Client) Orders() *OrderClient {
	return &OrderClient{rest: c.rest, logger: c.logger.Named("order")}
}

// PricingStream creates a price stream for instruments. Backoff and buffer size
// come from the config; opts are applied after them and take precedence.
func (c *Client) PricingStream(instruments []string, opts ...stream.Option) (*stream.Stream[types.ClientPrice], error) {
	sub, err := stream.NewPricingSubscription(c.cfg.AccountStreamURL(), c.cfg.Token, instruments)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("Creating pricing stream", zap.Strings("instruments", instruments))

	return stream.New(c.transport, sub, DecodePrice, c.streamOptions("pricing", opts)...)
}

// TransactionStream creates a stream of account transactions.
func (c *Client) TransactionStream(opts ...stream.Option) (*stream.Stream[types.Transaction], error) {
	sub, err := stream.NewTransactionSubscription(c.cfg.AccountStreamURL(), c.cfg.Token)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("Creating transaction stream")

	return stream.New(c.transport, sub, DecodeTransaction, c.streamOptions("transactions", opts)...)
}

func (c *Client) streamOptions(name string, opts []stream.Option) []stream.Option {
	defaults := []stream.Option{
		stream.WithBackoff(c.cfg.Backoff()),
		stream.WithBuffer(c.cfg.Stream.Buffer),
		stream.WithLogger(c.logger.Named(name)),
	}

	return append(defaults, opts...)
}

// NewPricingStream is a shorthand for NewClient followed by PricingStream.
func NewPricingStream(cfg *config.Config, instruments []string, opts ...stream.Option) (*stream.Stream[types.ClientPrice], error) {
	client, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}

	return client.PricingStream(instruments, opts...)
}

// NewTransactionStream is a shorthand for NewClient followed by TransactionStream.
func NewTransactionStream(cfg *config.Config, opts ...stream.Option) (*stream.Stream[types.Transaction], error) {
	client, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}

	return client.TransactionStream(opts...)
}
