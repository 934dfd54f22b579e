package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestConstructorStatusMapping(t *testing.T) {
	cases := []struct {
		err    *Error
		code   string
		status int
	}{
		{NotFound("sample %s", "x"), CodeNotFound, http.StatusNotFound},
		{AlreadyExists("dup"), CodeAlreadyExists, http.StatusConflict},
		{InvalidData("bad"), CodeInvalidData, http.StatusBadRequest},
		{InvalidStateTransition("frozen"), CodeInvalidStateTransition, http.StatusConflict},
		{StaleSupersession("stale"), CodeStaleSupersession, http.StatusConflict},
		{ResourceExhausted("busy"), CodeResourceExhausted, http.StatusServiceUnavailable},
		{Forbidden("no"), CodeForbidden, http.StatusForbidden},
		{Unauthorized("who"), CodeUnauthorized, http.StatusUnauthorized},
		{Internal(errors.New("boom")), CodeInternal, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if tc.err.Code != tc.code {
			t.Errorf("code = %s, want %s", tc.err.Code, tc.code)
		}
		if tc.err.Status != tc.status {
			t.Errorf("%s: status = %d, want %d", tc.code, tc.err.Status, tc.status)
		}
	}
}

func TestFrom(t *testing.T) {
	t.Run("nil passes through", func(t *testing.T) {
		if From(nil) != nil {
			t.Fatal("From(nil) should be nil")
		}
	})

	t.Run("taxonomy errors survive wrapping", func(t *testing.T) {
		wrapped := fmt.Errorf("while creating: %w", NotFound("sample missing"))
		ae := From(wrapped)
		if ae.Code != CodeNotFound {
			t.Fatalf("code = %s, want not_found", ae.Code)
		}
	})

	t.Run("unknown errors collapse to internal", func(t *testing.T) {
		ae := From(errors.New("pq: connection reset"))
		if ae.Code != CodeInternal {
			t.Fatalf("code = %s, want internal", ae.Code)
		}
		if ae.Error() != "internal error" {
			t.Fatalf("message = %q, want scrubbed internal error", ae.Error())
		}
	})
}

func TestMessageScrubsInternalDetail(t *testing.T) {
	internal := Internal(errors.New("dial tcp 10.0.0.1:5432: refused"))
	if internal.Message() != "internal error" {
		t.Fatalf("message = %q, want internal error", internal.Message())
	}
	visible := InvalidData("objective is required")
	if visible.Message() != "objective is required" {
		t.Fatalf("message = %q, want the original text", visible.Message())
	}
}

func TestIsCode(t *testing.T) {
	err := fmt.Errorf("outer: %w", Forbidden("viewers may not write"))
	if !IsCode(err, CodeForbidden) {
		t.Fatal("wrapped forbidden not detected")
	}
	if IsCode(err, CodeNotFound) {
		t.Fatal("wrong code matched")
	}
	if IsCode(errors.New("plain"), CodeInternal) {
		t.Fatal("plain error should not match any code")
	}
}
