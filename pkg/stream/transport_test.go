package stream_test

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/argo-oanda/internal/types"
	"github.com/rxtech-lab/argo-oanda/pkg/stream"
)

type RestyTransportTestSuite struct {
	suite.Suite
}

func TestRestyTransportSuite(t *testing.T) {
	suite.Run(t, new(RestyTransportTestSuite))
}

func (suite *RestyTransportTestSuite) TestOpenSendsHeadersAndStreamsLazily() {
	release := make(chan struct{})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		suite.Equal("/v3/accounts/1/pricing/stream", r.URL.Path)
		suite.Equal("Bearer secret", r.Header.Get("Authorization"))
		suite.Equal("RFC3339", r.Header.Get("Accept-Datetime-Format"))
		suite.Equal("USD_JPY,EUR_USD", r.URL.Query().Get("instruments"))

		flusher, ok := w.(http.Flusher)
		suite.Require().True(ok)

		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, validPrice1)
		flusher.Flush()

		// The client must see the first line before the handler finishes.
		<-release
		fmt.Fprintln(w, validPrice2)
	}))
	defer server.Close()

	sub, err := stream.NewPricingSubscription(server.URL+"/v3/accounts/1", "secret", []string{"USD_JPY", "EUR_USD"})
	suite.Require().NoError(err)

	conn, err := stream.NewRestyTransport(nil).Open(context.Background(), sub.Request())
	suite.Require().NoError(err)
	defer conn.Body.Close()

	suite.Equal(http.StatusOK, conn.StatusCode)

	reader := bufio.NewReader(conn.Body)

	first, err := reader.ReadString('\n')
	suite.Require().NoError(err)
	suite.Equal(validPrice1+"\n", first)

	close(release)

	second, err := reader.ReadString('\n')
	suite.Require().NoError(err)
	suite.Equal(validPrice2+"\n", second)
}

func (suite *RestyTransportTestSuite) TestCancelAbortsStalledStream() {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, `{"type":"HEARTBEAT","time":"2025-03-24T15:34:25Z"}`)
		w.(http.Flusher).Flush()

		<-r.Context().Done()
	}))
	defer server.Close()

	sub, err := stream.NewPricingSubscription(server.URL+"/v3/accounts/1", "secret", []string{"USD_JPY"})
	suite.Require().NoError(err)

	streaming := make(chan struct{})
	s, err := stream.New(stream.NewRestyTransport(nil), sub, types.ParseClientPrice,
		stream.WithStateHook(func(t stream.Transition) {
			if t.To == stream.StateStreaming {
				close(streaming)
			}
		}),
	)
	suite.Require().NoError(err)

	handle := s.Start(context.Background())

	select {
	case <-streaming:
	case <-time.After(5 * time.Second):
		suite.FailNow("stream never connected")
	}

	stopped := make(chan error, 1)

	go func() { stopped <- handle.Stop() }()

	select {
	case err := <-stopped:
		suite.NoError(err)
	case <-time.After(5 * time.Second):
		suite.FailNow("stop did not abort the pending read")
	}
}

func (suite *RestyTransportTestSuite) TestNonOKStatusIsReturned() {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"errorMessage":"Insufficient authorization to perform request."}`)
	}))
	defer server.Close()

	sub, err := stream.NewTransactionSubscription(server.URL+"/v3/accounts/1", "bad")
	suite.Require().NoError(err)

	s, err := stream.New(stream.NewRestyTransport(nil), sub, func(raw []byte) (string, error) { return string(raw), nil },
		stream.WithBackoff(stream.Backoff{Base: time.Millisecond, Max: time.Millisecond, MaxRetries: 1}),
	)
	suite.Require().NoError(err)

	err = s.Supervisor().Run(context.Background(), func(string) bool { return true })
	suite.True(stream.IsRetryBudgetExhausted(err))
	suite.Contains(err.Error(), "401")
	suite.Contains(err.Error(), "Insufficient authorization")
}
