package stream

import (
	"context"
	"iter"
)

// Stream exposes a Supervisor to consumers either as a pull iterator (All) or as
// a background goroutine feeding a bounded channel (Start).
type Stream[E any] struct {
	supervisor *Supervisor[E]
	buffer     int
}

// New creates a Stream for sub.
func New[E any](transport Transport, sub Subscription, decode DecodeFunc[E], opts ...Option) (*Stream[E], error) {
	supervisor, err := NewSupervisor(transport, sub, decode, opts...)
	if err != nil {
		return nil, err
	}

	return &Stream[E]{
		supervisor: supervisor,
		buffer:     newOptions(opts).buffer,
	}, nil
}

// Supervisor returns the underlying supervisor.
func (s *Stream[E]) Supervisor() *Supervisor[E] {
	return s.supervisor
}

// All returns an iterator over the stream. Each event is yielded with a nil error.
// If the stream fails, the final pair carries the zero event and the terminal
// error. Cancelling ctx or breaking out of the loop ends the iteration without
// an error.
func (s *Stream[E]) All(ctx context.Context) iter.Seq2[E, error] {
	return func(yield func(E, error) bool) {
		err := s.supervisor.Run(ctx, func(event E) bool {
			return yield(event, nil)
		})
		if err != nil {
			var zero E
			yield(zero, err)
		}
	}
}

// Handle is a running stream started with Start.
type Handle[E any] struct {
	events chan E
	done   chan struct{}
	cancel context.CancelFunc
	err    error
}

// Start runs the stream in a new goroutine. Events are delivered on a channel of
// the configured buffer size; when it is full, line reading pauses until the
// consumer catches up. A consumer that stops reading does not stop the stream:
// cancel ctx or call Stop for that.
func (s *Stream[E]) Start(ctx context.Context) *Handle[E] {
	ctx, cancel := context.WithCancel(ctx)

	h := &Handle[E]{
		events: make(chan E, s.buffer),
		done:   make(chan struct{}),
		cancel: cancel,
	}

	go func() {
		defer close(h.done)
		defer close(h.events)
		defer cancel()

		h.err = s.supervisor.Run(ctx, func(event E) bool {
			select {
			case h.events <- event:
				return true
			case <-ctx.Done():
				return false
			}
		})
	}()

	return h
}

// Events is closed once the stream terminates.
func (h *Handle[E]) Events() <-chan E {
	return h.events
}

// Done is closed once the stream terminates.
func (h *Handle[E]) Done() <-chan struct{} {
	return h.done
}

// Err returns the terminal error after Done is closed: nil when the stream was
// cancelled, otherwise an error for which IsFatal or IsRetryBudgetExhausted holds.
func (h *Handle[E]) Err() error {
	<-h.done

	return h.err
}

// Stop cancels the stream and waits for it to terminate.
func (h *Handle[E]) Stop() error {
	h.cancel()

	return h.Err()
}
