package dualbind

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a machine-readable error code.
type ErrorCode string

const (
	// CodeConfiguration is raised at descriptor-build or bind time for
	// unrecognized verbs or operation kinds, missing required options,
	// or a member that is neither static nor instance. Always fatal to
	// the binding of that member.
	CodeConfiguration ErrorCode = "configuration"

	// CodeInvalidArgument is raised by adapters when a request value
	// cannot be decoded or converted to the declared parameter type.
	CodeInvalidArgument ErrorCode = "invalid_argument"

	// CodeNotFound is raised at call time by a lifted callable when the
	// identifier resolves to no entity.
	CodeNotFound ErrorCode = "not_found"

	// CodePermissionDenied is raised at call time when a permission rule
	// evaluates to deny. The wrapped handler never executes.
	CodePermissionDenied ErrorCode = "permission_denied"

	// CodeConflict is raised when the same static name, route, or
	// operation is bound twice.
	CodeConflict ErrorCode = "conflict"

	CodeInternal ErrorCode = "internal"
)

// Error is the standard error envelope for the binding engine.
// Errors surface directly to the calling protocol adapter; the engine
// performs no local recovery or retry.
type Error struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewError creates a new engine error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Errorf creates a new engine error with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// WithDetail returns a new Error with the key-value pair added to details.
func (e *Error) WithDetail(key string, value any) *Error {
	details := make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
	}
}

// CodeOf extracts the ErrorCode from err, or CodeInternal if err does
// not carry one.
func CodeOf(err error) ErrorCode {
	var engineErr *Error
	if errors.As(err, &engineErr) {
		return engineErr.Code
	}
	return CodeInternal
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

// HTTPStatus maps an ErrorCode to an HTTP status code.
func (c ErrorCode) HTTPStatus() int {
	switch c {
	case CodeConfiguration, CodeInvalidArgument:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodePermissionDenied:
		return http.StatusForbidden
	case CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
