package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

// TestErrorFormatting verifies the string form with and without a cause.
func TestErrorFormatting(t *testing.T) {
	plain := New(CategoryConfig, SeverityFatal, "missing key")
	if plain.Error() != "config (fatal): missing key" {
		t.Fatalf("unexpected format: %s", plain.Error())
	}
	wrapped := Wrap(fmt.Errorf("boom"), CategoryNetwork, SeverityWarning, "request failed")
	if wrapped.Error() != "network (warning): request failed: boom" {
		t.Fatalf("unexpected wrapped format: %s", wrapped.Error())
	}
}

// TestUnwrap ensures errors.Is works through the structured wrapper.
func TestUnwrap(t *testing.T) {
	cause := fmt.Errorf("underlying")
	wrapped := WrapRetryable(cause, CategoryQuota, SeverityWarning, "quota")
	if !errors.Is(wrapped, cause) {
		t.Fatalf("expected errors.Is to find cause")
	}
}

// TestClassificationHelpers covers IsRetryable/IsCategory/IsExhausted on both
// structured and plain errors.
func TestClassificationHelpers(t *testing.T) {
	quota := QuotaExceeded(fmt.Errorf("429"))
	if !IsRetryable(quota) {
		t.Fatalf("quota errors must be retryable")
	}
	if !IsCategory(quota, CategoryQuota) {
		t.Fatalf("expected quota category")
	}
	auth := APIAuthError(fmt.Errorf("401"))
	if IsRetryable(auth) {
		t.Fatalf("auth errors must not be retryable")
	}
	if !IsFatal(auth) {
		t.Fatalf("auth errors are fatal")
	}
	if IsRetryable(fmt.Errorf("plain")) || IsExhausted(fmt.Errorf("plain")) {
		t.Fatalf("plain errors classify as neither retryable nor exhausted")
	}
}

// TestRetryExhausted verifies the exhaustion marker and last-cause carrying.
func TestRetryExhausted(t *testing.T) {
	cause := QuotaExceeded(fmt.Errorf("429"))
	err := RetryExhausted("plan", 4, cause)
	if !IsExhausted(err) {
		t.Fatalf("expected exhausted marker")
	}
	if IsRetryable(err) {
		t.Fatalf("exhausted errors must not retry again")
	}
	if !errors.Is(err, cause) {
		t.Fatalf("exhausted error must wrap its last cause")
	}
	if err.Context["attempts"] != 4 {
		t.Fatalf("expected attempts context, got %v", err.Context["attempts"])
	}
}

// TestFormatError checks the user-facing message per category and that
// verbose mode falls back to the full structured form.
func TestFormatError(t *testing.T) {
	a := NewCLIErrorAdapter(false, nil)
	if got := a.FormatError(nil); got != "" {
		t.Fatalf("nil error must format empty, got %q", got)
	}
	if got := a.FormatError(fmt.Errorf("boom")); got != "Error: boom" {
		t.Fatalf("plain error format: %q", got)
	}
	auth := APIAuthError(fmt.Errorf("401"))
	if got := a.FormatError(auth); !strings.Contains(got, "Check your API key") {
		t.Fatalf("auth hint missing: %q", got)
	}
	cfg := ConfigNotFound("docgen.yaml")
	if got := a.FormatError(cfg); !strings.Contains(got, "Configuration error") {
		t.Fatalf("config prefix missing: %q", got)
	}

	verbose := NewCLIErrorAdapter(true, nil)
	if got := verbose.FormatError(auth); got != auth.Error() {
		t.Fatalf("verbose must show the full form, got %q", got)
	}
}

// TestExitCodes checks category to exit-code mapping.
func TestExitCodes(t *testing.T) {
	a := NewCLIErrorAdapter(false, nil)
	cases := []struct {
		err  error
		code int
	}{
		{nil, 0},
		{fmt.Errorf("plain"), 1},
		{New(CategoryValidation, SeverityFatal, "x"), 2},
		{New(CategoryAuth, SeverityFatal, "x"), 5},
		{New(CategoryConfig, SeverityFatal, "x"), 7},
		{New(CategoryQuota, SeverityFatal, "x"), 8},
		{New(CategoryRender, SeverityError, "x"), 11},
	}
	for _, c := range cases {
		if got := a.ExitCodeFor(c.err); got != c.code {
			t.Fatalf("exit code for %v: expected %d got %d", c.err, c.code, got)
		}
	}
}
