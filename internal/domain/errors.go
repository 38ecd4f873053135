package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation       = errors.New("validation failed")
	ErrNotFound         = errors.New("not found")
	ErrUpload           = errors.New("upload failed")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrConflict         = errors.New("conflict")
)

// Validationf wraps ErrValidation with a caller facing message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFoundf wraps ErrNotFound with a caller facing message.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// Conflictf wraps ErrConflict: the row exists but other rows still depend on it.
func Conflictf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

// PartialDeleteError reports an article whose row is gone while its blob
// could not be removed. Blob names the orphan left in Container.
type PartialDeleteError struct {
	ArticleID uint
	Container string
	Blob      string
	Err       error
}

func (e *PartialDeleteError) Error() string {
	return fmt.Sprintf("article %d deleted but blob %s/%s was not: %v", e.ArticleID, e.Container, e.Blob, e.Err)
}

func (e *PartialDeleteError) Unwrap() error { return e.Err }

// CompensationError is returned when a write failed and undoing an earlier
// step failed too. It unwraps to the original failure.
type CompensationError struct {
	Err          error
	Step         string
	Compensation error
}

func (e *CompensationError) Error() string {
	return fmt.Sprintf("%v (compensation %q failed: %v)", e.Err, e.Step, e.Compensation)
}

func (e *CompensationError) Unwrap() error { return e.Err }
