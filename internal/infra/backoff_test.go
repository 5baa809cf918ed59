package infra

import (
	"testing"
	"time"
)

func TestCalculateBackoff(t *testing.T) {
	if got := CalculateBackoff(0); got != 1*time.Second {
		t.Errorf("backoff(0) = %v, want 1s", got)
	}
	if got := CalculateBackoff(2); got != 4*time.Second {
		t.Errorf("backoff(2) = %v, want 4s", got)
	}
	if got := CalculateBackoff(100); got != 60*time.Second {
		t.Errorf("backoff(100) = %v, want the 60s cap", got)
	}
}
