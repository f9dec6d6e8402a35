package hotspot

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Executor wraps a remote operation with bounded retries. Only
// connection-level failures are re-attempted; command traps and benign
// not-found results surface immediately.
//
// Mutating commands are not inherently idempotent, so the callers keep
// repeats safe themselves: user creation is check-then-create and
// tolerates duplicate-name traps, disable is naturally idempotent.
type Executor struct {
	attempts int
	backoff  time.Duration
}

// NewExecutor builds an executor with at most attempts tries and a fixed
// backoff between them.
func NewExecutor(attempts int, backoff time.Duration) *Executor {
	if attempts <= 0 {
		attempts = 3
	}
	if backoff <= 0 {
		backoff = time.Second
	}
	return &Executor{attempts: attempts, backoff: backoff}
}

// Execute runs fn up to the attempt budget. After exhausting retries the
// last error is surfaced wrapped in RemoteOperationError, which callers
// treat as terminal.
func (e *Executor) Execute(ctx context.Context, deviceID int64, operation string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= e.attempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return err
		}
		if attempt == e.attempts {
			break
		}

		zap.L().Warn("remote operation attempt failed",
			zap.Int64("device_id", deviceID),
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)

		timer := time.NewTimer(e.backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	zap.L().Error("remote operation failed, retries exhausted",
		zap.Int64("device_id", deviceID),
		zap.String("operation", operation),
		zap.Int("attempts", e.attempts),
		zap.Error(lastErr),
	)

	return &RemoteOperationError{
		DeviceID:  deviceID,
		Operation: operation,
		Attempts:  e.attempts,
		Err:       lastErr,
	}
}
