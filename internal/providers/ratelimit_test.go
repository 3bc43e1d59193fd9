package providers

import (
	"context"
	"testing"
	"time"
)

func TestRateLimiterTryConsume(t *testing.T) {
	r := NewRateLimiter(2)

	if !r.TryConsume() {
		t.Error("first TryConsume() = false, want true")
	}
	if !r.TryConsume() {
		t.Error("second TryConsume() = false, want true")
	}
	if r.TryConsume() {
		t.Error("third TryConsume() = true, want false (bucket drained)")
	}
}

func TestRateLimiterRecord429Drains(t *testing.T) {
	r := NewRateLimiter(10)
	r.Record429(5 * time.Second)

	if r.TryConsume() {
		t.Error("TryConsume() = true after 429 drain, want false")
	}

	status := r.Status()
	if status.Last429Time.IsZero() {
		t.Error("Last429Time not recorded")
	}
}

func TestRateLimiterWaitCancelled(t *testing.T) {
	r := NewRateLimiter(1)
	if !r.TryConsume() {
		t.Fatal("setup: could not drain token")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if err := r.Wait(ctx); err == nil {
		t.Error("Wait() error = nil with drained bucket and cancelled context, want error")
	}
}
