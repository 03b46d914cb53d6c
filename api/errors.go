// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types shared by the listener, reactor and driver.

package api

import (
	"errors"
	"fmt"
)

// Common errors used across the module.
var (
	ErrReactorClosed     = fmt.Errorf("reactor is closed")
	ErrAlreadyRegistered = fmt.Errorf("descriptor already registered")
	ErrNotFound          = fmt.Errorf("connection not found")
	ErrInvalidArgument   = fmt.Errorf("invalid argument")
	ErrBlockingFD        = fmt.Errorf("descriptor is in blocking mode")
)

// ErrorCode classifies where a steady-state error originated.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeRegister
	ErrCodeAccept
	ErrCodeRead
	ErrCodeEvent
	ErrCodeClose
	ErrCodeWait
)

func (c ErrorCode) String() string {
	switch c {
	case ErrCodeOK:
		return "ok"
	case ErrCodeRegister:
		return "register"
	case ErrCodeAccept:
		return "accept"
	case ErrCodeRead:
		return "read"
	case ErrCodeEvent:
		return "event"
	case ErrCodeClose:
		return "close"
	case ErrCodeWait:
		return "wait"
	}
	return fmt.Sprintf("code(%d)", int(c))
}

// Error is a structured error carrying the failing operation and context.
type Error struct {
	Code    ErrorCode
	Op      string
	Err     error
	Context map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Op
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	if len(e.Context) == 0 {
		return msg
	}
	return fmt.Sprintf("%s (context: %+v)", msg, e.Context)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError creates a new structured error.
func NewError(code ErrorCode, op string, err error) *Error {
	return &Error{
		Code:    code,
		Op:      op,
		Err:     err,
		Context: make(map[string]any),
	}
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// SetupError reports a failed startup step. The process cannot proceed
// past one of these; the driver prints it and exits.
type SetupError struct {
	Step string
	Err  error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *SetupError) Unwrap() error { return e.Err }

// IsSetupError reports whether err (or anything it wraps) is a *SetupError.
func IsSetupError(err error) bool {
	var se *SetupError
	return errors.As(err, &se)
}
