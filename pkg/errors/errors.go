// Package errors provides the unified error type and factory functions for the
// ozone reporting core.  Every layer (domain, application, infrastructure,
// interfaces) uses AppError as the single carrier for structured error
// information, so that the excluded web/admin layers can map failures to
// consistent responses and the logging layer can attach codes to entries.
package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// stackDepth is the maximum number of frames captured per error.
const stackDepth = 32

// captureStack returns a formatted call-stack string starting two frames above
// the caller (skipping captureStack itself and New/Wrap).
func captureStack(skip int) string {
	pcs := make([]uintptr, stackDepth)
	n := runtime.Callers(skip+2, pcs)
	if n == 0 {
		return ""
	}
	frames := runtime.CallersFrames(pcs[:n])
	var sb strings.Builder
	for {
		f, more := frames.Next()
		// Trim standard-library noise to keep traces readable.
		if !strings.Contains(f.File, "runtime/") {
			fmt.Fprintf(&sb, "\n\t%s:%d %s", f.File, f.Line, f.Function)
		}
		if !more {
			break
		}
	}
	return sb.String()
}

// ─────────────────────────────────────────────────────────────────────────────
// AppError — the canonical platform error type
// ─────────────────────────────────────────────────────────────────────────────

// AppError is the single structured error type used throughout the core.
// It satisfies the standard error interface and supports Go 1.13+ error
// wrapping so that errors.Is / errors.As / errors.Unwrap work transparently
// across all layers.
//
// Usage:
//
//	return errors.New(errors.ErrCodeSubmissionNotFound, "submission 7f3a… not found")
//	return errors.Wrap(repoErr, errors.ErrCodeDatabaseError, "failed to load prodcons row")
//	return errors.TransitionUnavailable("finalize requires flag_valid to be assessed").
//	           WithDetail("submission=7f3a… state=data_entry")
type AppError struct {
	// Code is the typed error code that uniquely identifies the failure category.
	Code ErrorCode

	// Message is the primary human-readable description of the error.
	Message string

	// Detail carries supplementary context (entity keys, states, periods)
	// that aids debugging without leaking internals to end users.
	Detail string

	// Cause is the underlying error that triggered this AppError, enabling
	// errors.Is / errors.As traversal of the full error chain.
	Cause error

	// Stack contains the formatted call-stack captured at the point of error
	// creation.  It is intentionally not included in Error() output; callers
	// that need it (logging middleware) inspect the field directly.
	Stack string
}

// Error implements the standard error interface.
// Format: "[<code>] <message>: <detail>"; the detail segment is omitted when
// Detail is empty.
func (e *AppError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Detail)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error, enabling errors.Is and errors.As
// to traverse the full error chain.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetail returns a shallow copy of the receiver with Detail set.
// It is safe to call on a nil pointer (returns nil).
func (e *AppError) WithDetail(detail string) *AppError {
	if e == nil {
		return nil
	}
	clone := *e
	clone.Detail = detail
	return &clone
}

// WithCause returns a shallow copy of the receiver with Cause set to err.
func (e *AppError) WithCause(err error) *AppError {
	if e == nil {
		return nil
	}
	clone := *e
	clone.Cause = err
	return &clone
}

// ─────────────────────────────────────────────────────────────────────────────
// Primary factory functions
// ─────────────────────────────────────────────────────────────────────────────

// New constructs a fresh AppError with the given code and message.
// A call-stack snapshot is captured automatically.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Stack:   captureStack(1),
	}
}

// Wrap constructs an AppError that wraps an existing error.
// If err is nil, Wrap returns nil so it can be used inline.
//
// When err is already an *AppError and code is ErrCodeUnknown the original
// code is preserved, preventing loss of the original classification during
// cross-layer propagation.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	if code == ErrCodeUnknown {
		var ae *AppError
		if errors.As(err, &ae) {
			code = ae.Code
		}
	}
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
		Stack:   captureStack(1),
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Error-chain inspection helpers
// ─────────────────────────────────────────────────────────────────────────────

// IsCode reports whether any error in err's chain is an *AppError with the
// given code.
//
//	if errors.IsCode(err, errors.ErrCodeTransitionUnavailable) { ... }
func IsCode(err error, code ErrorCode) bool {
	var ae *AppError
	for err != nil {
		if errors.As(err, &ae) && ae.Code == code {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}

// IsNotFound reports whether any error in err's chain is an *AppError with a
// not-found code (generic or reference-data specific).
func IsNotFound(err error) bool {
	var ae *AppError
	for err != nil {
		if errors.As(err, &ae) {
			switch ae.Code {
			case ErrCodeNotFound, ErrCodePartyNotFound, ErrCodePeriodNotFound,
				ErrCodeGroupNotFound, ErrCodeSubstanceNotFound,
				ErrCodeHistoryMissing, ErrCodeSubmissionNotFound:
				return true
			}
		}
		err = errors.Unwrap(err)
	}
	return false
}

// IsValidation reports whether err carries a user-facing validation code, as
// opposed to an internal or configuration failure.  State-machine violations
// and concurrency losses are validation errors: the caller made an illegal
// request or lost a race, and the system state is unchanged.
func IsValidation(err error) bool {
	code := GetCode(err)
	switch code {
	case ErrCodeValidation, ErrCodeBadRequest, ErrCodeConflict,
		ErrCodeUnknownTransition, ErrCodeTransitionNotReachable,
		ErrCodeTransitionUnavailable, ErrCodeDuplicateDataEntry,
		ErrCodeVersionConflict:
		return true
	}
	return false
}

// GetCode extracts the ErrorCode from the first *AppError found in err's
// chain.  If no *AppError is present, ErrCodeUnknown is returned.
func GetCode(err error) ErrorCode {
	if err == nil {
		return CodeOK
	}
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ErrCodeUnknown
}

// ─────────────────────────────────────────────────────────────────────────────
// Convenience factory functions
// ─────────────────────────────────────────────────────────────────────────────

// NotFound constructs a generic ErrCodeNotFound AppError.  Prefer the
// entity-specific codes in repository layers; this generic form is
// appropriate in shared infrastructure.
func NotFound(message string) *AppError {
	return &AppError{
		Code:    ErrCodeNotFound,
		Message: message,
		Stack:   captureStack(1),
	}
}

// InvalidParam constructs an ErrCodeBadRequest AppError.
func InvalidParam(message string) *AppError {
	return &AppError{
		Code:    ErrCodeBadRequest,
		Message: message,
		Stack:   captureStack(1),
	}
}

// Conflict constructs an ErrCodeConflict AppError.
func Conflict(message string) *AppError {
	return &AppError{
		Code:    ErrCodeConflict,
		Message: message,
		Stack:   captureStack(1),
	}
}

// Internal constructs an ErrCodeInternal AppError.  Use this for unexpected
// server-side failures where no more specific code applies.
func Internal(message string) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: message,
		Stack:   captureStack(1),
	}
}

// Config constructs an ErrCodeConfiguration AppError.  Configuration and
// programming errors (a baseline formula invoked with the wrong number of
// source periods, an unknown workflow) must abort the operation rather than
// produce a plausible-looking wrong number; they are never downgraded to a
// nil result.
func Config(message string) *AppError {
	return &AppError{
		Code:    ErrCodeConfiguration,
		Message: message,
		Stack:   captureStack(1),
	}
}

// UnknownTransition constructs an ErrCodeUnknownTransition AppError: the
// named transition is not defined in the submission's workflow at all.
func UnknownTransition(message string) *AppError {
	return &AppError{
		Code:    ErrCodeUnknownTransition,
		Message: message,
		Stack:   captureStack(1),
	}
}

// TransitionNotReachable constructs an ErrCodeTransitionNotReachable
// AppError: the transition exists but is not reachable from the submission's
// current state.
func TransitionNotReachable(message string) *AppError {
	return &AppError{
		Code:    ErrCodeTransitionNotReachable,
		Message: message,
		Stack:   captureStack(1),
	}
}

// TransitionUnavailable constructs an ErrCodeTransitionUnavailable AppError:
// the transition is reachable but its guard condition does not hold.
func TransitionUnavailable(message string) *AppError {
	return &AppError{
		Code:    ErrCodeTransitionUnavailable,
		Message: message,
		Stack:   captureStack(1),
	}
}
