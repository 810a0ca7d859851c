package stream

import (
	"math/rand/v2"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jpillora/backoff"

	"github.com/rxtech-lab/argo-oanda/pkg/errors"
)

const (
	DefaultBaseDelay  = time.Second
	DefaultMaxDelay   = 60 * time.Second
	DefaultJitter     = time.Second
	DefaultMaxRetries = 5
)

// Backoff computes reconnect delays. The delay before retry n (1-based) is
// Base*2^(n-1), capped at Max, plus a uniform random term in [0, Jitter).
type Backoff struct {
	Base       time.Duration `validate:"gt=0"`
	Max        time.Duration `validate:"gtefield=Base"`
	Jitter     time.Duration `validate:"gte=0"`
	MaxRetries int           `validate:"gte=0"`
}

// DefaultBackoff returns 1s base, 60s cap, 1s jitter and 5 retries.
func DefaultBackoff() Backoff {
	return Backoff{
		Base:       DefaultBaseDelay,
		Max:        DefaultMaxDelay,
		Jitter:     DefaultJitter,
		MaxRetries: DefaultMaxRetries,
	}
}

// Validate validates the Backoff struct.
func (b Backoff) Validate() error {
	validate := validator.New()
	if err := validate.Struct(b); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid backoff policy", err)
	}

	return nil
}

// Exhausted reports whether attempt has gone past the retry budget.
func (b Backoff) Exhausted(attempt int) bool {
	return attempt > b.MaxRetries
}

// Exponential is the delay for attempt without the jitter term.
func (b Backoff) Exponential(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	//nolint:exhaustruct
	policy := &backoff.Backoff{
		Min:    b.Base,
		Max:    b.Max,
		Factor: 2,
		Jitter: false,
	}

	return policy.ForAttempt(float64(attempt - 1))
}

// Delay is the full wait before attempt, jitter included.
func (b Backoff) Delay(attempt int) time.Duration {
	delay := b.Exponential(attempt)
	if b.Jitter > 0 {
		delay += rand.N(b.Jitter)
	}

	return delay
}
