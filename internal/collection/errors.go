package collection

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes controller errors shown on the banner.
type ErrorCode string

const (
	// ErrCodeFetchFailed indicates the page source failed.
	ErrCodeFetchFailed ErrorCode = "FETCH_FAILED"

	// ErrCodeSaveFailed indicates the saver rejected the edit buffer.
	ErrCodeSaveFailed ErrorCode = "SAVE_FAILED"

	// ErrCodeValidationFailed indicates local validation blocked a save
	// or an edit.
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"

	// ErrCodeLookupFailed indicates a reference lookup failed. These are
	// logged, never shown.
	ErrCodeLookupFailed ErrorCode = "LOOKUP_FAILED"
)

// Error is a failure surfaced by the controller.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// TableType is the collection the failure belongs to.
	TableType string

	// Offset is the page offset for fetch failures, -1 otherwise.
	Offset int

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Offset >= 0 {
		msg = fmt.Sprintf("%s (table=%s, offset=%d)", msg, e.TableType, e.Offset)
	} else if e.TableType != "" {
		msg = fmt.Sprintf("%s (table=%s)", msg, e.TableType)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// ErrorCode returns the code as a string for banner messages.
func (e *Error) ErrorCode() string {
	return string(e.Code)
}

// NewFetchError wraps a page source failure.
func NewFetchError(table string, offset int, err error) *Error {
	return &Error{
		Code:      ErrCodeFetchFailed,
		Message:   "could not load records",
		TableType: table,
		Offset:    offset,
		Err:       err,
	}
}

// NewSaveError wraps a saver failure.
func NewSaveError(table string, err error) *Error {
	return &Error{
		Code:      ErrCodeSaveFailed,
		Message:   "could not save changes",
		TableType: table,
		Offset:    -1,
		Err:       err,
	}
}

// NewValidationError reports a local validation failure.
func NewValidationError(table, message string) *Error {
	return &Error{
		Code:      ErrCodeValidationFailed,
		Message:   message,
		TableType: table,
		Offset:    -1,
	}
}

func hasCode(err error, code ErrorCode) bool {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}

// IsFetchError reports whether err is a page source failure.
// Uses errors.As to handle wrapped errors.
func IsFetchError(err error) bool {
	return hasCode(err, ErrCodeFetchFailed)
}

// IsSaveError reports whether err is a saver failure.
func IsSaveError(err error) bool {
	return hasCode(err, ErrCodeSaveFailed)
}

// IsValidationError reports whether err is a local validation failure.
func IsValidationError(err error) bool {
	return hasCode(err, ErrCodeValidationFailed)
}
