package stream

import (
	"net/url"
	"slices"
	"strings"

	"github.com/rxtech-lab/argo-oanda/pkg/errors"
)

// Kind selects the streaming endpoint.
type Kind string

const (
	KindPricing      Kind = "pricing"
	KindTransactions Kind = "transactions"
)

// Subscription is an immutable description of one stream. BaseURL is the account
// scoped stream URL, e.g. https://stream-fxpractice.oanda.com/v3/accounts/{accountID}.
type Subscription struct {
	kind        Kind
	instruments []string
	token       string
	baseURL     string
}

// NewPricingSubscription subscribes to prices for instruments.
func NewPricingSubscription(baseURL, token string, instruments []string) (Subscription, error) {
	if len(instruments) == 0 {
		return Subscription{}, errors.New(errors.ErrCodeMissingParameter, "pricing stream needs at least one instrument")
	}

	return newSubscription(KindPricing, baseURL, token, slices.Clone(instruments))
}

// NewTransactionSubscription subscribes to the account's transactions.
func NewTransactionSubscription(baseURL, token string) (Subscription, error) {
	return newSubscription(KindTransactions, baseURL, token, nil)
}

func newSubscription(kind Kind, baseURL, token string, instruments []string) (Subscription, error) {
	if token == "" {
		return Subscription{}, errors.New(errors.ErrCodeMissingParameter, "stream token is required")
	}

	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return Subscription{}, errors.Wrapf(errors.ErrCodeInvalidParameter, err, "invalid stream base URL %q", baseURL)
	}

	return Subscription{
		kind:        kind,
		instruments: instruments,
		token:       token,
		baseURL:     strings.TrimRight(baseURL, "/"),
	}, nil
}

func (s Subscription) Kind() Kind { return s.kind }

// Instruments returns a copy of the subscribed instruments.
func (s Subscription) Instruments() []string { return slices.Clone(s.instruments) }

// Request builds the HTTP request for the subscription.
func (s Subscription) Request() Request {
	req := Request{Token: s.token, Query: url.Values{}}

	switch s.kind {
	case KindPricing:
		req.URL = s.baseURL + "/pricing/stream"
		req.Query.Set("instruments", strings.Join(s.instruments, ","))
	case KindTransactions:
		req.URL = s.baseURL + "/transactions/stream"
	}

	return req
}
