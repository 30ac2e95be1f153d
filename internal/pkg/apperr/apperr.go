package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Code standardizes planner failure semantics across layers.
type Code string

const (
	CodeValidation         Code = "validation"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeInvariantViolation Code = "invariant_violation"
	CodePreconditionFailed Code = "precondition_failed"
	CodeRetryable          Code = "retryable"
	CodeInternal           Code = "internal"
)

// Error is the canonical error wrapper carried across the engine.
type Error struct {
	Code    Code
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	op := strings.TrimSpace(e.Op)
	msg := strings.TrimSpace(e.Message)
	switch {
	case op != "" && msg != "":
		return fmt.Sprintf("%s: %s (%s)", op, msg, e.Code)
	case op != "":
		return fmt.Sprintf("%s (%s)", op, e.Code)
	case msg != "":
		return fmt.Sprintf("%s (%s)", msg, e.Code)
	default:
		return string(e.Code)
	}
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an error with explicit code + operation.
func New(code Code, op, message string, cause error) error {
	return &Error{
		Code:    code,
		Op:      strings.TrimSpace(op),
		Message: strings.TrimSpace(message),
		Cause:   cause,
	}
}

// Wrap annotates an existing error with planner error semantics.
func Wrap(code Code, op string, err error) error {
	if err == nil {
		return nil
	}
	return New(code, op, err.Error(), err)
}

// IsCode checks whether err (or a wrapped err) carries the given code.
func IsCode(err error, code Code) bool {
	var appErr *Error
	if !errors.As(err, &appErr) {
		return false
	}
	return appErr.Code == code
}

// CodeOf extracts the error code when available.
func CodeOf(err error) Code {
	var appErr *Error
	if !errors.As(err, &appErr) {
		return ""
	}
	return appErr.Code
}

// Validation reports invalid caller input (bad settings, out-of-range score).
func Validation(op, message string) error {
	return New(CodeValidation, op, message, nil)
}

// Conflict reports a lost concurrency race (second activation, double generate).
func Conflict(op, message string) error {
	return New(CodeConflict, op, message, nil)
}

// Invariant reports a broken internal invariant (two active schedules).
func Invariant(op, message string) error {
	return New(CodeInvariantViolation, op, message, nil)
}
