package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAsWrapsForeignErrors(t *testing.T) {
	e := As(errors.New("boom"))
	if e.Kind != KindInternal {
		t.Errorf("Expected internal kind, got %v", e.Kind)
	}
	if e.Code != CodeInternal {
		t.Errorf("Expected code %s, got %s", CodeInternal, e.Code)
	}
	if As(nil) != nil {
		t.Error("Expected nil for nil error")
	}
}

func TestKindSurvivesWrapping(t *testing.T) {
	base := SessionExpired("token expired")
	wrapped := fmt.Errorf("set billing address: %w", base)

	if !IsSessionExpired(wrapped) {
		t.Error("Expected wrapped error to be session expired")
	}
	if CodeOf(wrapped) != CodeSessionExpired {
		t.Errorf("Expected code %s, got %s", CodeSessionExpired, CodeOf(wrapped))
	}
}

func TestPublic(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"message", Failed(CodeShippingMethod, "no carrier"), "no carrier"},
		{"wrapped cause", Unavailable(errors.New("dial tcp: refused")), "dial tcp: refused"},
		{"code only", &Error{Kind: KindFailed, Code: CodePlaceOrder}, CodePlaceOrder},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Public(tt.err); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindSessionExpired, http.StatusUnauthorized},
		{KindValidation, http.StatusBadRequest},
		{KindNotFound, http.StatusNotFound},
		{KindConflict, http.StatusConflict},
		{KindRemoteUnavailable, http.StatusBadGateway},
		{KindFailed, http.StatusUnprocessableEntity},
		{KindForbidden, http.StatusForbidden},
		{KindInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			if got := HTTPStatus(tt.kind); got != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, got)
			}
		})
	}
}
