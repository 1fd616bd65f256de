package resumes

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("resume not found")
	ErrDuplicateResume   = errors.New("duplicate resume")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidInput      = errors.New("invalid input")
)

// DuplicateError reports that the user already uploaded the same bytes.
type DuplicateError struct {
	ExistingID string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate resume: existing id %s", e.ExistingID)
}

func (e *DuplicateError) Unwrap() error { return ErrDuplicateResume }

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
