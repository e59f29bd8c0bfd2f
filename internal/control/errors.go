package control

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nerrad567/framehub-core/internal/hub"
)

var (
	// ErrWriteFailed is matched by every hub write failure.
	ErrWriteFailed = errors.New("control: write failed")

	// ErrPartialCompositeFailure is returned when at least one write of a
	// multi-characteristic command failed.
	ErrPartialCompositeFailure = errors.New("control: partial composite failure")

	// ErrTimeout is matched when a hub write did not complete within the
	// configured write timeout.
	ErrTimeout = errors.New("control: write timed out")
)

// WriteError describes one failed characteristic write.
//
// It matches ErrWriteFailed and whatever Err matches:
//
//	var we *control.WriteError
//	if errors.As(err, &we) {
//	    log.Println(we.DeviceID, we.Characteristic)
//	}
type WriteError struct {
	DeviceID       string
	Characteristic hub.CharacteristicType
	Err            error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("control: writing %s on %s: %v", e.Characteristic, e.DeviceID, e.Err)
}

// Unwrap returns ErrWriteFailed and the underlying cause.
func (e *WriteError) Unwrap() []error {
	return []error{ErrWriteFailed, e.Err}
}

// CompositeError reports the failed writes of a command that issues several
// writes together. It matches ErrPartialCompositeFailure and each failure.
type CompositeError struct {
	DeviceID string
	Failures []error
}

func (e *CompositeError) Error() string {
	msgs := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		msgs[i] = f.Error()
	}
	return fmt.Sprintf("control: %d write(s) on %s failed: %s", len(e.Failures), e.DeviceID, strings.Join(msgs, "; "))
}

// Unwrap returns ErrPartialCompositeFailure followed by each failure.
func (e *CompositeError) Unwrap() []error {
	return append([]error{ErrPartialCompositeFailure}, e.Failures...)
}
