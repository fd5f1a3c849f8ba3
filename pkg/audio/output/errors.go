// ABOUTME: Output error types and the write recovery policy
// ABOUTME: Distinguishes recoverable buffer faults from configuration failures
package output

import (
	"errors"
	"fmt"
)

var (
	// ErrUnderrun means the device ran out of samples; the stream is recoverable
	ErrUnderrun = errors.New("buffer underrun")

	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrDeviceNotFound    = errors.New("output device not found")
	ErrStalled           = errors.New("device stopped consuming samples")
	ErrClosed            = errors.New("sink closed")
	ErrUnavailable       = errors.New("backend not available in this build")
)

// DeviceError records a failed backend operation
type DeviceError struct {
	Op      string // "open", "write", "recover", "drain", "close"
	Backend string
	Err     error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Backend, e.Op, e.Err)
}

func (e *DeviceError) Unwrap() error {
	return e.Err
}

// IsRecoverable reports whether Recover may return a sink to service after err
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrUnderrun)
}

// WriteWithRecovery writes samples to sink. On a recoverable failure it calls
// Recover once and retries the write once. The returned error is the last
// failure, if any; recovered reports whether a recovery was attempted.
func WriteWithRecovery(sink Sink, samples []int16) (recovered bool, err error) {
	err = sink.Write(samples)
	if err == nil || !IsRecoverable(err) {
		return false, err
	}

	if rerr := sink.Recover(err); rerr != nil {
		return true, fmt.Errorf("recover after %v: %w", err, rerr)
	}
	return true, sink.Write(samples)
}
