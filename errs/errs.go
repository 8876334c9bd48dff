// Package errs defines the shared error taxonomy of the lifecycle
// engine. Every failing engine operation returns an *errs.Error; the
// transport layer maps Kind to an HTTP status and Code to the wire
// error code.
package errs

import (
	"errors"
	"fmt"
)

// Kind buckets an error by how the caller should react
type Kind int

const (
	// KindValidation means the input was malformed; resubmit corrected input.
	KindValidation Kind = iota
	// KindConflict means the action is incompatible with current state;
	// poll state before retrying.
	KindConflict
	// KindCooldown means the action was issued too soon; wait the
	// advertised remaining time.
	KindCooldown
	// KindNotFound means the addressed entity does not exist.
	KindNotFound
)

// Wire error codes
const (
	CodeValidationFailed       = "VALIDATION_FAILED"
	CodeNotFound               = "NOT_FOUND"
	CodeRequestPending         = "CONFLICT_REQUEST_PENDING"
	CodeApplyingInProgress     = "CONFLICT_APPLYING_IN_PROGRESS"
	CodeInstallationInProgress = "INSTALLATION_IN_PROGRESS"
	CodeScanNotSupported       = "SCAN_NOT_SUPPORTED"
	CodeMaxResourcesReached    = "MAX_RESOURCES_REACHED"
	CodeScanInProgress         = "SCAN_IN_PROGRESS"
	CodeScanTooRecent          = "SCAN_TOO_RECENT"
)

// Error is a classified engine error with a machine-readable code and
// optional metadata (remaining seconds, conflicting job id)
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Meta    map[string]any
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// WithMeta attaches a metadata key to the error
func (e *Error) WithMeta(key string, value any) *Error {
	if e.Meta == nil {
		e.Meta = make(map[string]any)
	}
	e.Meta[key] = value
	return e
}

// Validation creates a validation error
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Code: CodeValidationFailed, Message: fmt.Sprintf(format, args...)}
}

// ValidationCode creates a validation error with an explicit code
func ValidationCode(code, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: fmt.Sprintf(format, args...)}
}

// Conflict creates a conflict error with an explicit code
func Conflict(code, format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: fmt.Sprintf(format, args...)}
}

// Cooldown creates a rate/cooldown error with an explicit code
func Cooldown(code, format string, args ...any) *Error {
	return &Error{Kind: KindCooldown, Code: code, Message: fmt.Sprintf(format, args...)}
}

// NotFound creates a not-found error
func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the Kind from err, or KindValidation if err is not
// an *Error (unclassified errors are treated as caller mistakes)
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return KindValidation, false
}

// CodeOf extracts the wire code from err, empty if unclassified
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// MetaOf extracts metadata from err, nil if unclassified
func MetaOf(err error) map[string]any {
	var e *Error
	if errors.As(err, &e) {
		return e.Meta
	}
	return nil
}
