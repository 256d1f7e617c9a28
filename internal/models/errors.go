package models

import (
	"errors"
	"fmt"
)

// ErrorType represents different categories of errors
type ErrorType int

const (
	ErrNotSupported ErrorType = iota
	ErrNetwork
	ErrNotFound
	ErrIntegrity
	ErrInstall
	ErrParse
	ErrInvalidConfig
)

// String returns the string representation of ErrorType
func (e ErrorType) String() string {
	switch e {
	case ErrNotSupported:
		return "NotSupported"
	case ErrNetwork:
		return "Network"
	case ErrNotFound:
		return "NotFound"
	case ErrIntegrity:
		return "Integrity"
	case ErrInstall:
		return "Install"
	case ErrParse:
		return "Parse"
	case ErrInvalidConfig:
		return "InvalidConfig"
	default:
		return "Unknown"
	}
}

// TapError represents an error raised while resolving, fetching, verifying
// or installing a release artifact
type TapError struct {
	Type    ErrorType
	Package string
	Err     error
}

// Error implements the error interface
func (e *TapError) Error() string {
	if e.Package != "" {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Package, e.Err)
	}
	return fmt.Sprintf("[%s] %v", e.Type, e.Err)
}

// Unwrap returns the wrapped error
func (e *TapError) Unwrap() error {
	return e.Err
}

// NewError is a shorthand for building a TapError from a format string
func NewError(t ErrorType, pkg string, format string, args ...interface{}) *TapError {
	return &TapError{
		Type:    t,
		Package: pkg,
		Err:     fmt.Errorf(format, args...),
	}
}

// IsErrorType reports whether any TapError in err's chain has type t
func IsErrorType(err error, t ErrorType) bool {
	var tapErr *TapError
	if !errors.As(err, &tapErr) {
		return false
	}
	if tapErr.Type == t {
		return true
	}
	return IsErrorType(tapErr.Err, t)
}
