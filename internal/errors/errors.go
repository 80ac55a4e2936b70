package errors

import "fmt"

// ErrorCode represents a Prism error code.
type ErrorCode string

const (
	ErrDuplicateCapability ErrorCode = "DUPLICATE_CAPABILITY" // 409, fatal at startup
	ErrInvalidCapability   ErrorCode = "INVALID_CAPABILITY"   // 422, fatal at startup
	ErrUnknownCapability   ErrorCode = "UNKNOWN_CAPABILITY"   // 422, recoverable per turn
	ErrFieldCoercion       ErrorCode = "FIELD_COERCION"       // per-field, never fatal
	ErrTransportFailure    ErrorCode = "TRANSPORT_FAILURE"    // 502, recoverable per turn
	ErrInvalidRequest      ErrorCode = "INVALID_REQUEST"      // 400
	ErrNotFound            ErrorCode = "NOT_FOUND"            // 404
	ErrConflict            ErrorCode = "CONFLICT"             // 409
	ErrInternal            ErrorCode = "INTERNAL"             // 500
)

// PrismError represents a structured error with code, status, and details.
type PrismError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *PrismError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewDuplicateCapability creates a 409 error for a capability identifier
// registered twice. Registration errors abort startup.
func NewDuplicateCapability(identifier string) *PrismError {
	return &PrismError{
		Code:    ErrDuplicateCapability,
		Status:  409,
		Message: fmt.Sprintf("capability %q is already registered", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewInvalidCapability creates a 422 error for a structurally malformed
// capability descriptor (empty identifier, dangling required field).
func NewInvalidCapability(identifier, reason string) *PrismError {
	return &PrismError{
		Code:    ErrInvalidCapability,
		Status:  422,
		Message: fmt.Sprintf("invalid capability %q: %s", identifier, reason),
		Details: map[string]any{"identifier": identifier, "reason": reason},
	}
}

// NewUnknownCapability creates a 422 error for an invocation naming a
// capability absent from the registry. The model invoked something outside
// the compiled tool list, so this is surfaced, never silently dropped.
func NewUnknownCapability(identifier string) *PrismError {
	return &PrismError{
		Code:    ErrUnknownCapability,
		Status:  422,
		Message: fmt.Sprintf("model invoked unregistered capability %q", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewFieldCoercion creates a per-field coercion error. The affected field is
// omitted from the activation; the activation itself proceeds.
func NewFieldCoercion(field, reason string) *PrismError {
	return &PrismError{
		Code:    ErrFieldCoercion,
		Status:  422,
		Message: fmt.Sprintf("cannot coerce field %q: %s", field, reason),
		Details: map[string]any{"field": field, "reason": reason},
	}
}

// NewTransportFailure creates a 502 error for a failure to reach the model.
// The dispatch session remains in its pre-call state.
func NewTransportFailure(err error) *PrismError {
	msg := "model transport failed"
	if err != nil {
		msg = err.Error()
	}
	return &PrismError{
		Code:    ErrTransportFailure,
		Status:  502,
		Message: msg,
	}
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *PrismError {
	return &PrismError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a record that cannot be found.
func NewNotFound(identifier string) *PrismError {
	return &PrismError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewConflict creates a 409 error for general conflicts.
func NewConflict(msg string) *PrismError {
	return &PrismError{
		Code:    ErrConflict,
		Status:  409,
		Message: msg,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *PrismError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &PrismError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// Is checks if an error is a PrismError with the given code.
func Is(err error, code ErrorCode) bool {
	if pErr, ok := err.(*PrismError); ok {
		return pErr.Code == code
	}
	return false
}
