package stream

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/argo-oanda/pkg/errors"
)

type ClassifyTestSuite struct {
	suite.Suite
}

func TestClassifySuite(t *testing.T) {
	suite.Run(t, new(ClassifyTestSuite))
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func (suite *ClassifyTestSuite) TestRetryable() {
	tests := []struct {
		name string
		err  error
	}{
		{name: "eof", err: io.EOF},
		{name: "unexpected eof", err: io.ErrUnexpectedEOF},
		{name: "wrapped eof", err: fmt.Errorf("read body: %w", io.EOF)},
		{name: "connection reset", err: &net.OpError{Op: "read", Net: "tcp", Err: os.NewSyscallError("read", syscall.ECONNRESET)}},
		{name: "connection refused", err: fmt.Errorf("dial: %w", syscall.ECONNREFUSED)},
		{name: "broken pipe", err: syscall.EPIPE},
		{name: "timeout", err: timeoutError{}},
		{name: "idle close", err: fmt.Errorf("http: server closed idle connection")},
		{name: "coded wrap", err: errors.Wrap(errors.ErrCodeStreamDisconnected, "lost", io.EOF)},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			suite.True(IsRetryable(tt.err))
		})
	}
}

func (suite *ClassifyTestSuite) TestFatal() {
	tests := []struct {
		name string
		err  error
	}{
		{name: "nil", err: nil},
		{name: "plain", err: fmt.Errorf("unsupported protocol scheme")},
		{name: "cancelled", err: context.Canceled},
		{name: "coded", err: errors.New(errors.ErrCodeInvalidParameter, "bad request")},
		{name: "missing port", err: &net.OpError{Op: "dial", Net: "tcp", Err: &net.AddrError{Err: "missing port in address", Addr: "stream.example.com"}}},
		{name: "bad ip", err: &net.OpError{Op: "dial", Net: "tcp", Err: &net.ParseError{Type: "IP address", Text: "300.1.1.1"}}},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			suite.False(IsRetryable(tt.err))
		})
	}
}
