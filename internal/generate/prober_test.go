package generate

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bookvision/bookvision/internal/types"
)

func TestProberInterval(t *testing.T) {
	p := NewProber(100*time.Millisecond, 2.0, 400*time.Millisecond, 10)

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{2, 400 * time.Millisecond},
		{3, 400 * time.Millisecond}, // capped
		{8, 400 * time.Millisecond},
	}
	for _, tt := range tests {
		if got := p.Interval(tt.attempt); got != tt.want {
			t.Errorf("Interval(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestProberDefaults(t *testing.T) {
	p := NewProber(0, 0, 0, 0)

	if p.Interval(0) != 1500*time.Millisecond {
		t.Errorf("default initial interval = %v", p.Interval(0))
	}
	if p.maxAttempts != 20 {
		t.Errorf("default max attempts = %d", p.maxAttempts)
	}
}

func TestProberWaitFor(t *testing.T) {
	t.Run("already ready", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "artifact.mp3")
		if err := os.WriteFile(path, []byte("audio"), 0644); err != nil {
			t.Fatal(err)
		}

		p := NewProber(time.Hour, 2.0, time.Hour, 3)
		if err := p.WaitFor(context.Background(), path); err != nil {
			t.Errorf("WaitFor() error = %v, want nil without waiting", err)
		}
	})

	t.Run("appears mid-schedule", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "artifact.mp3")

		go func() {
			time.Sleep(30 * time.Millisecond)
			os.WriteFile(path, []byte("audio"), 0644)
		}()

		p := NewProber(10*time.Millisecond, 1.5, 50*time.Millisecond, 20)
		if err := p.WaitFor(context.Background(), path); err != nil {
			t.Errorf("WaitFor() error = %v, want nil", err)
		}
	})

	t.Run("empty file is not ready", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "artifact.mp3")
		if err := os.WriteFile(path, nil, 0644); err != nil {
			t.Fatal(err)
		}

		p := NewProber(time.Millisecond, 1.5, 5*time.Millisecond, 2)
		var timeout *types.TimeoutError
		if err := p.WaitFor(context.Background(), path); !errors.As(err, &timeout) {
			t.Errorf("WaitFor() error = %v, want *types.TimeoutError", err)
		}
	})

	t.Run("exhausts schedule", func(t *testing.T) {
		p := NewProber(time.Millisecond, 1.5, 5*time.Millisecond, 3)

		err := p.WaitFor(context.Background(), filepath.Join(t.TempDir(), "never.mp3"))
		var timeout *types.TimeoutError
		if !errors.As(err, &timeout) {
			t.Fatalf("WaitFor() error = %T, want *types.TimeoutError", err)
		}
	})

	t.Run("cancel stops scheduled retry", func(t *testing.T) {
		p := NewProber(time.Hour, 2.0, time.Hour, 5)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() {
			done <- p.WaitFor(ctx, filepath.Join(t.TempDir(), "never.mp3"))
		}()

		cancel()
		select {
		case err := <-done:
			if !errors.Is(err, context.Canceled) {
				t.Errorf("WaitFor() error = %v, want context.Canceled", err)
			}
		case <-time.After(time.Second):
			t.Fatal("WaitFor() did not return after cancel; retry timer not cancellable")
		}
	})
}
