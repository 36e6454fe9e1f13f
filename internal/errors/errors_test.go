package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestIs(t *testing.T) {
	wrapped := Wrap(ErrNetwork, errors.New("dial tcp: connection refused"))
	if !errors.Is(wrapped, ErrNetwork) {
		t.Error("expected wrapped error to match its sentinel")
	}
	if errors.Is(wrapped, ErrServer) {
		t.Error("expected no match against a different code")
	}
	if !errors.Is(fmt.Errorf("backup: %w", WithMessage(ErrWalletNotFound, "gone")), ErrWalletNotFound) {
		t.Error("expected match through fmt wrapping")
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("disk I/O error")
	err := Wrap(ErrInternal, cause)

	if err.Code != "INTERNAL_ERROR" || err.StatusCode != http.StatusInternalServerError {
		t.Errorf("unexpected error: %+v", err)
	}
	if err.Error() != ErrInternal.Message {
		t.Errorf("expected sentinel message, got %q", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("expected cause to be reachable with errors.Is")
	}
	if ErrInternal.Internal != nil {
		t.Error("sentinel must not be mutated")
	}
}

func TestWithMessage(t *testing.T) {
	err := WithMessage(ErrInvalidInput, "amount must be greater than zero")
	if err.Message != "amount must be greater than zero" || err.Kind != KindValidation {
		t.Errorf("unexpected error: %+v", err)
	}
	if ErrInvalidInput.Message != "Invalid input" {
		t.Error("sentinel must not be mutated")
	}
}

func TestKindOfAndRetryable(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		kind      Kind
		retryable bool
	}{
		{"network", ErrNetwork, KindNetwork, true},
		{"server", Wrap(ErrServer, errors.New("502")), KindServer, true},
		{"auth", ErrAuthRequired, KindAuthRequired, false},
		{"cancelled", ErrCancelled, KindCancelled, false},
		{"funds", ErrInsufficientFunds, KindInsufficientFunds, false},
		{"plain", errors.New("boom"), KindInternal, false},
		{"nil", nil, KindInternal, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.kind {
				t.Errorf("KindOf = %q, want %q", got, tt.kind)
			}
			if got := IsRetryable(tt.err); got != tt.retryable {
				t.Errorf("IsRetryable = %v, want %v", got, tt.retryable)
			}
		})
	}
}
