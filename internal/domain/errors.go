package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrUploadNotFound     = errors.New("upload not found")
	ErrDuplicateUpload    = errors.New("duplicate upload")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrContentNotFound    = errors.New("content not found")
	ErrClaimLost          = errors.New("row claim lost")
	ErrBatchTimeout       = errors.New("batch timed out")
	ErrPhaseConflict      = errors.New("upload phase changed concurrently")
	ErrEncodingCancelled  = errors.New("encoding cancelled")
)

// ValidationError is bad input to a core operation.
type ValidationError struct {
	Field  string
	Reason string
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IllegalTransitionError is a violation of the phase graph.
type IllegalTransitionError struct {
	UploadID string
	From     Phase
	To       Phase
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("upload %s: illegal transition %s -> %s", e.UploadID, e.From, e.To)
}

// BacklogStallError is raised when recovery exhausts its budget without
// draining the backlog.
type BacklogStallError struct {
	Pending    int
	Iterations int
	Elapsed    time.Duration
	Err        error
}

func (e *BacklogStallError) Error() string {
	msg := fmt.Sprintf("backlog stall: %d rows still pending after %d iterations (%s)",
		e.Pending, e.Iterations, e.Elapsed.Round(time.Millisecond))
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

func (e *BacklogStallError) Unwrap() error {
	return e.Err
}
