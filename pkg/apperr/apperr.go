// Package apperr defines the error taxonomy shared by the domain services:
// validation errors rejected at write time, not-found errors propagated to
// the caller, and non-blocking data-integrity warnings carried inside
// resolution results.
package apperr

import (
	"errors"
	"fmt"
)

// ErrNotFound is the sentinel for lookups of nonexistent entity ids. Repos
// map driver-level "no rows" errors onto it so handlers can return 404
// instead of treating the miss as empty success.
var ErrNotFound = errors.New("not found")

// NotFoundf wraps ErrNotFound with entity context.
func NotFoundf(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, ErrNotFound)...)
}

// IsNotFound reports whether err is (or wraps) ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// ValidationError rejects malformed input at write time. It is never used
// for absent events or empty result sets, which are valid domain state.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Validationf builds a ValidationError for the given field.
func Validationf(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Warning is a detectable inconsistency that does not block resolution:
// overlapping shift assignments, a zero-weight care plan, and the like.
// Resolution continues with best-effort defaults and the warning is
// surfaced alongside the result.
type Warning struct {
	Code   string `json:"code"`
	Detail string `json:"detail"`
}

// Warningf builds a Warning with a formatted detail message.
func Warningf(code, format string, args ...interface{}) Warning {
	return Warning{Code: code, Detail: fmt.Sprintf(format, args...)}
}
