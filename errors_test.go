package dualbind

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestErrorFormatting(t *testing.T) {
	err := Errorf(CodeNotFound, "Widget %q not found", "7")
	want := `not_found: Widget "7" not found`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestCodeOf(t *testing.T) {
	if got := CodeOf(NewError(CodeConflict, "dup")); got != CodeConflict {
		t.Errorf("CodeOf = %q, want conflict", got)
	}
	wrapped := fmt.Errorf("bind failed: %w", NewError(CodeConfiguration, "bad verb"))
	if got := CodeOf(wrapped); got != CodeConfiguration {
		t.Errorf("CodeOf(wrapped) = %q, want configuration", got)
	}
	if got := CodeOf(errors.New("plain")); got != CodeInternal {
		t.Errorf("CodeOf(plain) = %q, want internal", got)
	}
}

func TestWithDetailCopies(t *testing.T) {
	base := NewError(CodeInvalidArgument, "bad input")
	detailed := base.WithDetail("field", "name")
	if len(base.Details) != 0 {
		t.Error("WithDetail must not mutate the original error")
	}
	if detailed.Details["field"] != "name" {
		t.Errorf("details = %v", detailed.Details)
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{CodeConfiguration, http.StatusBadRequest},
		{CodeInvalidArgument, http.StatusBadRequest},
		{CodeNotFound, http.StatusNotFound},
		{CodePermissionDenied, http.StatusForbidden},
		{CodeConflict, http.StatusConflict},
		{CodeInternal, http.StatusInternalServerError},
		{ErrorCode("mystery"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := tt.code.HTTPStatus(); got != tt.want {
			t.Errorf("%s.HTTPStatus() = %d, want %d", tt.code, got, tt.want)
		}
	}
}
