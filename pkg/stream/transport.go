package stream

import (
	"context"
	"io"
	"net/url"

	"github.com/go-resty/resty/v2"
)

// Request describes one streaming GET.
type Request struct {
	URL   string
	Token string
	Query url.Values
}

// Conn is an open streaming response. Body is consumed lazily and must be closed
// by the caller.
type Conn struct {
	StatusCode int
	Body       io.ReadCloser
}

// Transport opens streaming connections. Cancelling ctx must abort an in-flight
// read on the returned body.
type Transport interface {
	Open(ctx context.Context, req Request) (*Conn, error)
}

// RestyTransport is the default Transport. The response body is handed over
// unread so lines can be consumed as they arrive.
type RestyTransport struct {
	client *resty.Client
}

// NewRestyTransport wraps client, or a fresh resty client when nil. The client must
// not set an overall request timeout, which would cut long-lived streams.
func NewRestyTransport(client *resty.Client) *RestyTransport {
	if client == nil {
		client = resty.New()
	}

	return &RestyTransport{client: client}
}

// Open issues the GET and returns the raw response.
func (t *RestyTransport) Open(ctx context.Context, req Request) (*Conn, error) {
	resp, err := t.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		SetAuthToken(req.Token).
		SetHeader("Accept-Datetime-Format", "RFC3339").
		SetQueryParamsFromValues(req.Query).
		Get(req.URL)
	if err != nil {
		return nil, err
	}

	return &Conn{
		StatusCode: resp.StatusCode(),
		Body:       resp.RawBody(),
	}, nil
}
