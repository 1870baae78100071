package amqptransport

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// StoppingError marks an action that must not be retried because the
// process is shutting down. An action passed to Retrier.Do returns it to
// make Do return at once instead of retrying: a stopping sentinel
// bypasses the retry wrapper rather than racing it. Within this module
// only Dial runs an action through Retrier.Do, and that action never
// returns a StoppingError.
type StoppingError struct {
	Reason string
}

func (e *StoppingError) Error() string { return "stopping: " + e.Reason }

// Retrier wraps an AMQP action with bounded reconnect attempts. A
// MaxAttempts of zero means unbounded: the action is retried forever
// until it succeeds, a *StoppingError arrives, or ctx is cancelled.
type Retrier struct {
	MaxAttempts int
	Delay       time.Duration
	Logger      zerolog.Logger
}

// Do runs action, retrying on error up to MaxAttempts times (or forever
// if MaxAttempts <= 0) with Delay between attempts. A *StoppingError is
// returned immediately without retrying. ctx cancellation aborts the
// wait between attempts.
func (r *Retrier) Do(ctx context.Context, action func() error) error {
	var lastErr error
	unbounded := r.MaxAttempts <= 0

	for attempt := 1; unbounded || attempt <= r.MaxAttempts; attempt++ {
		err := action()
		if err == nil {
			return nil
		}

		var stopping *StoppingError
		if errors.As(err, &stopping) {
			return err
		}

		lastErr = err
		if !unbounded && attempt == r.MaxAttempts {
			break
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		r.Logger.Warn().Err(err).Int("attempt", attempt).Msg("amqp action failed, retrying")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.Delay):
		}
	}

	return fmt.Errorf("giving up after %d attempt(s): %w", r.MaxAttempts, lastErr)
}
