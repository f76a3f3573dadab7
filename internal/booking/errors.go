package booking

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrSlotUnavailable   = errors.New("slot no longer available")
	ErrInvalidSelection  = errors.New("invalid selection")
	ErrInvalidChoice     = errors.New("invalid choice")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrMissingSession    = errors.New("missing session id")
)

// CommitError is a failed appointment write. Retryable errors leave the
// selection in place so the client can resubmit.
type CommitError struct {
	Code      string
	Message   string
	Retryable bool
	Err       error
}

func (e *CommitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *CommitError) Unwrap() error { return e.Err }

func newWriteError(err error) error {
	return &CommitError{
		Code:      "write_failed",
		Message:   "could not save the appointment, please try again",
		Retryable: true,
		Err:       err,
	}
}
