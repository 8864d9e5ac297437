package ferr

import (
	"fmt"
	"testing"
)

func TestCategoryMapping(t *testing.T) {
	cases := []struct {
		code Code
		want Category
	}{
		{CodeBadRequest, CategoryInput},
		{CodeQuotaExceeded, CategoryPolicy},
		{CodeUnsafe, CategoryCapacity},
		{CodeTaskFailed, CategoryRuntime},
		{CodeTimedOut, CategoryTimeout},
		{CodeUnreachable, CategoryTransport},
		{CodeInternal, CategoryFatal},
	}
	for _, c := range cases {
		e := New(c.code, "x")
		if got := e.Category(); got != c.want {
			t.Errorf("Category(%s) = %s, want %s", c.code, got, c.want)
		}
	}
}

func TestRetryable(t *testing.T) {
	if !ExceedsAvailable().Retryable {
		t.Error("EXCEEDS_AVAILABLE should be retryable")
	}
	if NotOwner().Retryable {
		t.Error("NOT_OWNER should not be retryable")
	}
}

func TestAsUnwraps(t *testing.T) {
	inner := Unsafe()
	wrapped := fmt.Errorf("request failed: %w", inner)
	got, ok := As(wrapped)
	if !ok || got.Code != CodeUnsafe {
		t.Fatalf("As() = %v, %v; want CodeUnsafe", got, ok)
	}
}

func TestWithCauseChaining(t *testing.T) {
	base := Internal("boom")
	err := TaskFailed(base)
	if err.Unwrap() != base {
		t.Fatalf("expected Unwrap to return the original cause")
	}
}
