package util

import (
	"errors"
	"fmt"
	"time"
)

var ErrAdmissionAborted = errors.New("admission aborted")

type FramepoolError struct {
	Message string
	Err     error
}

func (e *FramepoolError) Error() string {
	return e.Message
}

func (e *FramepoolError) Unwrap() error {
	return e.Err
}

// AdmissionAbortedError is returned by Pin when no frame became available
// before the admission deadline, or when the caller gave up waiting.
// No frame is held by the caller when it is returned.
type AdmissionAbortedError struct {
	*FramepoolError
	Block  fmt.Stringer
	Waited time.Duration
}

func NewAdmissionAbortedError(block fmt.Stringer, waited time.Duration) *AdmissionAbortedError {
	return &AdmissionAbortedError{
		FramepoolError: &FramepoolError{
			Message: fmt.Sprintf("admission aborted for %s after %v", block, waited.Round(time.Millisecond)),
			Err:     ErrAdmissionAborted,
		},
		Block:  block,
		Waited: waited,
	}
}
