package driver

import (
	"github.com/pkg/errors"
)

// Driver errors.
var (
	// ErrAlreadyStarted is returned by Start on a running coordinator.
	ErrAlreadyStarted = errors.New("driver already started")

	// ErrNotStarted is returned by operations that need a running driver.
	ErrNotStarted = errors.New("driver not started")

	// ErrUnsupported is returned for commands the platform cannot carry,
	// such as terminal queries on a console without a byte stream.
	ErrUnsupported = errors.New("operation not supported by this console")

	// ErrStopTimeout is returned by Stop when the reader does not exit in time.
	ErrStopTimeout = errors.New("timed out waiting for the input reader")
)

// InitError reports which component failed to come up during Start.
type InitError struct {
	Component string
	Err       error
}

func (e *InitError) Error() string {
	return "init " + e.Component + ": " + e.Err.Error()
}

func (e *InitError) Unwrap() error {
	return e.Err
}
