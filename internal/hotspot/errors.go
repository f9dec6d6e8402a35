package hotspot

import (
	"errors"
	"fmt"

	"github.com/go-routeros/routeros/v3"
)

// Failure taxonomy for the device integration engine. Public operations
// surface one of these kinds; raw transport errors never escape.
var (
	// ErrRateLimitExceeded is returned when a device's call budget for
	// the current window is spent. Callers fail fast and must not retry
	// until the window resets.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrNotFoundOnDevice marks a benign miss: the queried record does
	// not exist on the device. Reconciliation treats it as a repair
	// trigger, not a failure.
	ErrNotFoundOnDevice = errors.New("not found on device")
)

// ConnectionError wraps transport or authentication failures talking to a
// device. Connection errors are retryable.
type ConnectionError struct {
	DeviceID int64
	Addr     string
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("device %d connection error (%s): %v", e.DeviceID, e.Addr, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// RemoteOperationError is surfaced after the retrying executor exhausts
// its attempts. It is terminal: callers must not retry it.
type RemoteOperationError struct {
	DeviceID  int64
	Operation string
	Attempts  int
	Err       error
}

func (e *RemoteOperationError) Error() string {
	return fmt.Sprintf("remote operation %s failed on device %d after %d attempts: %v",
		e.Operation, e.DeviceID, e.Attempts, e.Err)
}

func (e *RemoteOperationError) Unwrap() error { return e.Err }

// PersistenceError marks a local-store failure that happened after a
// remote mutation already succeeded. The remote and local stores are now
// diverged; the reconciliation sweep repairs the orphan.
type PersistenceError struct {
	Code string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence error for voucher %s (remote state already applied): %v", e.Code, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// IsRetryable reports whether the executor may re-attempt the operation.
// Only connection-level failures qualify; command traps, rate limits and
// not-found results are final.
func IsRetryable(err error) bool {
	var ce *ConnectionError
	return errors.As(err, &ce)
}

// classifyRunError separates RouterOS command traps (the device answered
// and rejected the command) from transport failures (the session is
// broken and must be rebuilt).
func classifyRunError(deviceID int64, addr string, err error) error {
	var devErr *routeros.DeviceError
	if errors.As(err, &devErr) {
		return err
	}
	return &ConnectionError{DeviceID: deviceID, Addr: addr, Err: err}
}

// trapMessage extracts the device-side failure message, if any.
func trapMessage(err error) string {
	var devErr *routeros.DeviceError
	if errors.As(err, &devErr) && devErr.Sentence != nil {
		return devErr.Sentence.Map["message"]
	}
	return ""
}
