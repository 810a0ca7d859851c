package stream

import (
	"io"
	"net"
	"strings"
	"syscall"

	"github.com/rxtech-lab/argo-oanda/pkg/errors"
)

var retryableErrnos = []syscall.Errno{
	syscall.ECONNRESET,
	syscall.ECONNABORTED,
	syscall.ECONNREFUSED,
	syscall.EPIPE,
	syscall.ETIMEDOUT,
}

// Transport failures that net/http reports as plain strings.
var retryableMessages = []string{
	"server closed idle connection",
	"connection reset by peer",
	"http2: server sent GOAWAY",
	"http2: stream closed",
	"unexpected EOF",
}

// IsRetryable reports whether err is a transient transport fault worth reconnecting
// for: EOF, truncation, resets, refused connections, timeouts and other network
// operation errors. Malformed addresses and anything else are fatal.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	for _, errno := range retryableErrnos {
		if errors.Is(err, errno) {
			return true
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	// A malformed address fails the same way on every attempt.
	var addrErr *net.AddrError
	if errors.As(err, &addrErr) {
		return false
	}

	var parseErr *net.ParseError
	if errors.As(err, &parseErr) {
		return false
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	msg := err.Error()
	for _, m := range retryableMessages {
		if strings.Contains(msg, m) {
			return true
		}
	}

	return false
}
