package stream

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-oanda/internal/logger"
	"github.com/rxtech-lab/argo-oanda/pkg/errors"
)

// DefaultBuffer is the channel capacity used by Stream.Start.
const DefaultBuffer = 64

type options struct {
	backoff Backoff
	sink    ErrorSink
	logger  *logger.Logger
	hook    StateHook
	buffer  int
}

// Option configures a Supervisor or Stream.
type Option func(*options)

// WithBackoff replaces the default reconnect policy.
func WithBackoff(b Backoff) Option {
	return func(o *options) { o.backoff = b }
}

// WithErrorSink receives parse failures and reconnect notices. Without one, parse
// failures are logged with the session's logger.
func WithErrorSink(sink ErrorSink) Option {
	return func(o *options) { o.sink = sink }
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithStateHook observes state transitions.
func WithStateHook(hook StateHook) Option {
	return func(o *options) { o.hook = hook }
}

// WithBuffer sets the event channel capacity of Stream.Start.
func WithBuffer(n int) Option {
	return func(o *options) { o.buffer = n }
}

func newOptions(opts []Option) options {
	o := options{
		backoff: DefaultBackoff(),
		logger:  logger.NewNopLogger(),
		buffer:  DefaultBuffer,
	}

	for _, opt := range opts {
		opt(&o)
	}

	if o.buffer < 0 {
		o.buffer = 0
	}

	return o
}

// Supervisor runs sessions for one subscription and reconnects with backoff.
// It holds no per-run state, so concurrent Runs are independent.
type Supervisor[E any] struct {
	transport Transport
	request   Request
	decode    DecodeFunc[E]
	backoff   Backoff
	sink      ErrorSink
	logger    *logger.Logger
	hook      StateHook
}

// NewSupervisor creates a supervisor for sub, decoding lines with decode.
func NewSupervisor[E any](transport Transport, sub Subscription, decode DecodeFunc[E], opts ...Option) (*Supervisor[E], error) {
	o := newOptions(opts)

	if transport == nil {
		return nil, errors.New(errors.ErrCodeMissingParameter, "transport is required")
	}

	if decode == nil {
		return nil, errors.New(errors.ErrCodeMissingParameter, "decode function is required")
	}

	if err := o.backoff.Validate(); err != nil {
		return nil, err
	}

	return &Supervisor[E]{
		transport: transport,
		request:   sub.Request(),
		decode:    decode,
		backoff:   o.backoff,
		sink:      o.sink,
		logger:    o.logger.With(zap.String("stream", string(sub.Kind()))),
		hook:      o.hook,
	}, nil
}

// Run streams events to emit until ctx is cancelled, emit returns false, a fatal
// fault occurs or the retry budget runs out. It returns nil in the first two cases,
// and an error coded ErrCodeStreamFatal or ErrCodeRetryBudgetExhausted otherwise.
// emit is called on the goroutine that called Run, in line order.
func (s *Supervisor[E]) Run(ctx context.Context, emit func(E) bool) error {
	run := &supervisorRun{hook: s.hook, state: StateIdle}
	attempt := 0

	for {
		if ctx.Err() != nil {
			run.terminate(attempt, TerminationCancelled, nil)

			return nil
		}

		run.transition(Transition{To: StateConnecting, Attempt: attempt})

		sess := newSession(s.transport, s.request, s.decode, s.sink, s.logger)
		out := sess.run(ctx, emit, func() {
			attempt = 0
			run.transition(Transition{To: StateStreaming, Attempt: attempt})
		})

		var cause error

		switch out.kind {
		case outcomeCancelled, outcomeStopped:
			run.terminate(attempt, TerminationCancelled, nil)

			return nil
		case outcomeConnectFailed:
			cause = errors.Newf(errors.ErrCodeStreamConnectFailed, "stream connect failed with status %d: %s", out.status, out.body)
		case outcomeDisconnected:
			if !IsRetryable(out.err) {
				err := errors.Wrap(errors.ErrCodeStreamFatal, "stream failed", out.err)
				s.logger.Error("Stream failed with a non-retryable error", zap.Error(out.err))
				run.terminate(attempt, TerminationFatal, err)

				return err
			}

			cause = errors.Wrap(errors.ErrCodeStreamDisconnected, "stream disconnected", out.err)
		}

		attempt++

		if s.backoff.Exhausted(attempt) {
			err := errors.Wrapf(errors.ErrCodeRetryBudgetExhausted, cause,
				"giving up after %d connection attempts", attempt)
			s.logger.Error("Stream retry budget exhausted", zap.Int("attempts", attempt), zap.Error(cause))
			run.terminate(attempt, TerminationRetryBudgetExhausted, err)

			return err
		}

		delay := s.backoff.Delay(attempt)
		run.transition(Transition{To: StateBackingOff, Attempt: attempt, Delay: delay, Err: cause})
		s.logger.Warn("Reconnecting stream",
			zap.Int("attempt", attempt),
			zap.Int("max_retries", s.backoff.MaxRetries),
			zap.Duration("delay", delay),
			zap.Error(cause),
		)
		if s.sink != nil {
			s.sink(Report{
				Severity: SeverityWarning,
				Message:  "stream interrupted, reconnecting",
				Err:      cause,
			})
		}

		if !sleep(ctx, delay) {
			run.terminate(attempt, TerminationCancelled, nil)

			return nil
		}
	}
}

// sleep waits for d and reports false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

type supervisorRun struct {
	hook  StateHook
	state State
}

func (r *supervisorRun) transition(t Transition) {
	t.From = r.state
	r.state = t.To

	if r.hook != nil {
		r.hook(t)
	}
}

func (r *supervisorRun) terminate(attempt int, reason Termination, err error) {
	r.transition(Transition{To: StateTerminated, Attempt: attempt, Termination: reason, Err: err})
}

// IsRetryBudgetExhausted reports whether err ended a run because the retry budget ran out.
func IsRetryBudgetExhausted(err error) bool {
	return errors.GetCode(err) == errors.ErrCodeRetryBudgetExhausted
}

// IsFatal reports whether err ended a run because of a non-retryable fault.
func IsFatal(err error) bool {
	return errors.GetCode(err) == errors.ErrCodeStreamFatal
}
