package portraits

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/bookvision/bookvision/internal/home"
	"github.com/bookvision/bookvision/internal/providers"
	"github.com/bookvision/bookvision/internal/types"
)

func testCache(t *testing.T) (*Cache, *providers.MockImageProvider, *home.Dir) {
	t.Helper()

	dir, err := home.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := dir.EnsureExists(); err != nil {
		t.Fatal(err)
	}

	img := providers.NewMockImageProvider()
	reg := providers.NewRegistry()
	reg.RegisterImage("mock-image", img)

	return NewCache(reg, dir, "mock-image", "storybook", 42, nil), img, dir
}

var ahab = types.Entity{Name: "Ahab", Role: types.RoleCharacter, VisualDescription: "A grizzled captain"}

func TestCacheGet(t *testing.T) {
	c, img, dir := testCache(t)

	path, err := c.Get(context.Background(), "b1", ahab, 0)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if path != dir.EntityImagePath("b1", "Ahab") {
		t.Errorf("Get() path = %s", path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("portrait not written: %v", err)
	}

	// Second request hits the disk cache.
	if _, err := c.Get(context.Background(), "b1", ahab, 0); err != nil {
		t.Fatalf("cached Get() error = %v", err)
	}
	if img.RequestCount() != 1 {
		t.Errorf("provider requests = %d, want 1 (second hit cached)", img.RequestCount())
	}
}

func TestCacheSingleflight(t *testing.T) {
	c, img, _ := testCache(t)
	img.Latency = 50 * time.Millisecond

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.Get(context.Background(), "b1", ahab, 0)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("concurrent Get(%d) error = %v", i, err)
		}
	}
	if img.RequestCount() != 1 {
		t.Errorf("provider requests = %d, want 1 (duplicates suppressed)", img.RequestCount())
	}
}

func TestCacheFailureRetriesOnNextGet(t *testing.T) {
	c, img, _ := testCache(t)
	img.ShouldFail = true

	var nf *types.NotFoundError
	if _, err := c.Get(context.Background(), "b1", ahab, 0); !errors.As(err, &nf) {
		t.Fatalf("Get() error = %T, want *types.NotFoundError", err)
	}

	// The failure left nothing behind; the next request generates again.
	img.ShouldFail = false
	if _, err := c.Get(context.Background(), "b1", ahab, 0); err != nil {
		t.Fatalf("second Get() error = %v, want retry and success", err)
	}
	if img.RequestCount() != 2 {
		t.Errorf("provider requests = %d, want 2 (miss after failure re-generates)", img.RequestCount())
	}
}

func TestCacheRegenerate(t *testing.T) {
	c, img, _ := testCache(t)

	if _, err := c.Get(context.Background(), "b1", ahab, 0); err != nil {
		t.Fatal(err)
	}
	if c.Version("b1", "Ahab") != 0 {
		t.Errorf("initial version = %d, want 0", c.Version("b1", "Ahab"))
	}

	if _, err := c.Regenerate(context.Background(), "b1", ahab, 0); err != nil {
		t.Fatalf("Regenerate() error = %v", err)
	}
	if c.Version("b1", "Ahab") != 1 {
		t.Errorf("version after regenerate = %d, want 1", c.Version("b1", "Ahab"))
	}
	if img.RequestCount() != 2 {
		t.Errorf("provider requests = %d, want 2 (regenerate forces)", img.RequestCount())
	}
}

func TestCacheRegenerateAfterFailure(t *testing.T) {
	c, img, _ := testCache(t)
	img.ShouldFail = true

	var nf *types.NotFoundError
	if _, err := c.Get(context.Background(), "b1", ahab, 0); !errors.As(err, &nf) {
		t.Fatal("setup: expected generation failure")
	}

	img.ShouldFail = false
	if _, err := c.Regenerate(context.Background(), "b1", ahab, 0); err != nil {
		t.Fatalf("Regenerate() after failure error = %v", err)
	}
	if c.Version("b1", "Ahab") != 1 {
		t.Errorf("version = %d, want 1", c.Version("b1", "Ahab"))
	}

	// Gets now hit the disk cache.
	if _, err := c.Get(context.Background(), "b1", ahab, 0); err != nil {
		t.Errorf("Get() after recovery error = %v", err)
	}
	if img.RequestCount() != 2 {
		t.Errorf("provider requests = %d, want 2", img.RequestCount())
	}
}
