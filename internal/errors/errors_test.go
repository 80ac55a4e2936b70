package errors

import (
	stderrors "errors"
	"testing"
)

func TestErrorString(t *testing.T) {
	err := NewUnknownCapability("delete_everything")
	want := `UNKNOWN_CAPABILITY: model invoked unregistered capability "delete_everything"`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestConstructorCodes(t *testing.T) {
	tests := []struct {
		name   string
		err    *PrismError
		code   ErrorCode
		status int
	}{
		{"duplicate", NewDuplicateCapability("add_task"), ErrDuplicateCapability, 409},
		{"invalid", NewInvalidCapability("add_task", "empty identifier"), ErrInvalidCapability, 422},
		{"unknown", NewUnknownCapability("x"), ErrUnknownCapability, 422},
		{"coercion", NewFieldCoercion("limit", "not a number"), ErrFieldCoercion, 422},
		{"transport", NewTransportFailure(stderrors.New("connection refused")), ErrTransportFailure, 502},
		{"invalid request", NewInvalidRequest("bad"), ErrInvalidRequest, 400},
		{"not found", NewNotFound("abc"), ErrNotFound, 404},
		{"conflict", NewConflict("clash"), ErrConflict, 409},
		{"internal", NewInternal(nil), ErrInternal, 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("Code = %q, want %q", tt.err.Code, tt.code)
			}
			if tt.err.Status != tt.status {
				t.Errorf("Status = %d, want %d", tt.err.Status, tt.status)
			}
		})
	}
}

func TestIs(t *testing.T) {
	err := NewNotFound("abc")
	if !Is(err, ErrNotFound) {
		t.Error("Is should match NOT_FOUND")
	}
	if Is(err, ErrConflict) {
		t.Error("Is should not match CONFLICT")
	}
	if Is(stderrors.New("plain"), ErrNotFound) {
		t.Error("Is should not match a plain error")
	}
	if Is(nil, ErrNotFound) {
		t.Error("Is should not match nil")
	}
}

func TestTransportFailureNilErr(t *testing.T) {
	err := NewTransportFailure(nil)
	if err.Message != "model transport failed" {
		t.Errorf("Message = %q", err.Message)
	}
}

func TestDetails(t *testing.T) {
	err := NewFieldCoercion("priority", "not in enum")
	if err.Details["field"] != "priority" {
		t.Errorf("Details[field] = %v, want priority", err.Details["field"])
	}
}
