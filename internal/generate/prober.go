package generate

import (
	"context"
	"math"
	"os"
	"time"

	"github.com/bookvision/bookvision/internal/types"
)

// Prober checks for artifact files on a growing backoff schedule.
// Each artifact is probed independently; a slow artifact never delays
// probes for another.
type Prober struct {
	initial     time.Duration
	growth      float64
	max         time.Duration
	maxAttempts int
}

// NewProber creates a Prober. Zero values fall back to a 1.5s initial
// interval growing 1.5x per attempt, capped at 15s, for 20 attempts.
func NewProber(initial time.Duration, growth float64, max time.Duration, maxAttempts int) *Prober {
	if initial <= 0 {
		initial = 1500 * time.Millisecond
	}
	if growth <= 1 {
		growth = 1.5
	}
	if max <= 0 {
		max = 15 * time.Second
	}
	if maxAttempts <= 0 {
		maxAttempts = 20
	}
	return &Prober{
		initial:     initial,
		growth:      growth,
		max:         max,
		maxAttempts: maxAttempts,
	}
}

// Interval returns the wait before probe attempt n (0-based):
// initial * growth^n, capped at max.
func (p *Prober) Interval(attempt int) time.Duration {
	d := time.Duration(float64(p.initial) * math.Pow(p.growth, float64(attempt)))
	if d > p.max {
		return p.max
	}
	return d
}

// Ready reports whether the artifact exists and is non-empty.
func (p *Prober) Ready(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Size() > 0
}

// WaitFor probes until the artifact at path exists, the schedule is
// exhausted, or ctx is cancelled. The scheduled retry timer is
// cancellable: cancelling ctx stops the wait immediately rather than
// letting a pending probe fire. Calling WaitFor again restarts the
// schedule from the initial interval, which is how a manual retry
// resets backoff.
func (p *Prober) WaitFor(ctx context.Context, path string) error {
	if p.Ready(path) {
		return nil
	}

	timer := time.NewTimer(p.Interval(0))
	defer timer.Stop()

	for attempt := 0; attempt < p.maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		if p.Ready(path) {
			return nil
		}
		if attempt+1 < p.maxAttempts {
			timer.Reset(p.Interval(attempt + 1))
		}
	}

	total := time.Duration(0)
	for i := 0; i < p.maxAttempts; i++ {
		total += p.Interval(i)
	}
	return &types.TimeoutError{Op: "artifact probe for " + path, Seconds: int(total.Seconds())}
}
