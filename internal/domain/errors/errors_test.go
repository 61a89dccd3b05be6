package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestDaybookError_Error(t *testing.T) {
	t.Run("without cause", func(t *testing.T) {
		err := NewError(CodeAuth, "token rejected", nil)
		want := "[AUTH] token rejected"
		if err.Error() != want {
			t.Errorf("Error() = %q, want %q", err.Error(), want)
		}
	})

	t.Run("with cause", func(t *testing.T) {
		cause := errors.New("401 unauthorized")
		err := NewError(CodeAuth, "token rejected", cause)
		want := "[AUTH] token rejected: 401 unauthorized"
		if err.Error() != want {
			t.Errorf("Error() = %q, want %q", err.Error(), want)
		}
	})
}

func TestDaybookError_Unwrap(t *testing.T) {
	cause := ErrSessionExpired
	err := NewError(CodeRecovery, "recovery rejected", cause)

	if !errors.Is(err, ErrSessionExpired) {
		t.Error("errors.Is() should find the wrapped sentinel")
	}

	var de *DaybookError
	if !errors.As(err, &de) {
		t.Fatal("errors.As() should find the DaybookError")
	}
	if de.Code != CodeRecovery {
		t.Errorf("Code = %q, want %q", de.Code, CodeRecovery)
	}
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"direct domain error", NewError(CodeTransport, "dial failed", nil), CodeTransport},
		{"wrapped domain error", fmt.Errorf("connect: %w", NewError(CodeAuth, "rejected", nil)), CodeAuth},
		{"plain error", errors.New("boom"), ""},
		{"nil error", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CodeOf(tt.err); got != tt.want {
				t.Errorf("CodeOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsAuth(t *testing.T) {
	if !IsAuth(NewError(CodeAuth, "rejected", nil)) {
		t.Error("IsAuth() = false for auth error")
	}
	if IsAuth(NewError(CodeTransport, "dropped", nil)) {
		t.Error("IsAuth() = true for transport error")
	}
}
