package app

import (
	"errors"
	"fmt"
)

var (
	// ErrBusy is returned by editing commands while emissions are active.
	ErrBusy = errors.New("emissions are active: stop them first")
	// ErrConfirmLargeLimit asks the caller to confirm a limit above budget.LargeLimit.
	ErrConfirmLargeLimit = errors.New("large character limit needs confirmation")
	// ErrNoFile is returned by SaveBulletin when neither a path nor a current file is known.
	ErrNoFile = errors.New("no bulletin file selected")
	// ErrHistoryDisabled is returned by History when no storage driver is configured.
	ErrHistoryDisabled = errors.New("emission history is disabled")
)

// ValidationError reports a rejected operator input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is (or wraps) a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
