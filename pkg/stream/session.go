package stream

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-oanda/internal/logger"
)

// maxErrorBody bounds how much of a non-200 response body is kept.
const maxErrorBody = 4 << 10

type outcomeKind int

const (
	outcomeCancelled outcomeKind = iota
	// outcomeStopped means the consumer declined further events.
	outcomeStopped
	outcomeConnectFailed
	outcomeDisconnected
)

type outcome struct {
	kind   outcomeKind
	status int
	body   string
	err    error
}

// session owns one HTTP connection for its lifetime.
type session[E any] struct {
	id        string
	transport Transport
	request   Request
	decode    DecodeFunc[E]
	sink      ErrorSink
	logger    *logger.Logger
}

func newSession[E any](transport Transport, req Request, decode DecodeFunc[E], sink ErrorSink, log *logger.Logger) *session[E] {
	id := uuid.NewString()
	log = log.With(zap.String("session_id", id))

	if sink == nil {
		sink = LogSink(log)
	}

	return &session[E]{
		id:        id,
		transport: transport,
		request:   req,
		decode:    decode,
		sink:      sink,
		logger:    log,
	}
}

// run connects and pumps lines until the body ends, ctx is cancelled or emit
// returns false. onStreaming is called once, when the first line arrives.
func (s *session[E]) run(ctx context.Context, emit func(E) bool, onStreaming func()) outcome {
	s.logger.Debug("Opening stream", zap.String("url", s.request.URL))

	// connCtx is cancelled on every exit so the request is aborted even when
	// closing the body alone would not interrupt a pending read.
	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	conn, err := s.transport.Open(connCtx, s.request)
	if err != nil {
		if ctx.Err() != nil {
			return outcome{kind: outcomeCancelled}
		}

		return outcome{kind: outcomeDisconnected, err: err}
	}

	if conn.StatusCode != http.StatusOK {
		body := readErrorBody(conn.Body)
		s.logger.Warn("Stream connection rejected",
			zap.Int("status", conn.StatusCode),
			zap.String("body", body),
		)

		return outcome{kind: outcomeConnectFailed, status: conn.StatusCode, body: body}
	}

	if conn.Body == nil {
		return outcome{kind: outcomeDisconnected, err: io.EOF}
	}

	lines := make(chan []byte)
	readErr := make(chan error, 1)
	stop := make(chan struct{})
	done := make(chan struct{})

	go s.read(conn.Body, lines, readErr, stop, done)

	// teardown aborts the connection and waits for the reader to exit.
	teardown := func() {
		close(stop)
		cancel()
		_ = conn.Body.Close()
		<-done

		select {
		case err := <-readErr:
			s.logger.Debug("Abandoned stream read ended", zap.Error(err))
		default:
		}
	}

	streaming := false

	for {
		select {
		case <-ctx.Done():
			teardown()
			s.logger.Debug("Stream cancelled")

			return outcome{kind: outcomeCancelled}

		case err := <-readErr:
			teardown()

			if ctx.Err() != nil {
				return outcome{kind: outcomeCancelled}
			}

			s.logger.Info("Stream disconnected", zap.Error(err))

			return outcome{kind: outcomeDisconnected, err: err}

		case line := <-lines:
			if !streaming {
				streaming = true

				s.logger.Info("Stream connected")
				onStreaming()
			}

			if !s.handle(line, emit) {
				teardown()

				if ctx.Err() != nil {
					return outcome{kind: outcomeCancelled}
				}

				return outcome{kind: outcomeStopped}
			}
		}
	}
}

// handle routes one line through the decoder and reports whether the consumer
// still wants events.
func (s *session[E]) handle(line []byte, emit func(E) bool) bool {
	decoded := DecodeLine(line, s.decode)

	switch decoded.Kind {
	case LineEvent:
		return emit(decoded.Event)
	case LineParseError:
		s.sink(Report{
			Severity: SeverityError,
			Message:  "failed to parse stream line",
			Line:     line,
			Err:      decoded.Err,
		})
	case LineSkip:
		if decoded.Err != nil {
			s.sink(Report{
				Severity: SeverityWarning,
				Message:  "skipping stream message of unknown type",
				Line:     line,
				Err:      decoded.Err,
			})
		}
	}

	return true
}

// read hands lines over one at a time until the body fails or stop is closed.
// A final line without a trailing newline is still delivered.
func (s *session[E]) read(body io.Reader, lines chan<- []byte, readErr chan<- error, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	reader := bufio.NewReader(body)

	for {
		line, err := reader.ReadBytes('\n')
		if len(line) > 0 {
			select {
			case lines <- line:
			case <-stop:
				return
			}
		}

		if err != nil {
			readErr <- err

			return
		}
	}
}

func readErrorBody(body io.ReadCloser) string {
	if body == nil {
		return ""
	}

	defer body.Close()

	data, _ := io.ReadAll(io.LimitReader(body, maxErrorBody))

	return strings.TrimSpace(string(data))
}
