package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/bookvision/bookvision/internal/home"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, port string) *Server {
	t.Helper()

	h, err := home.New(t.TempDir())
	if err != nil {
		t.Fatalf("home.New() error = %v", err)
	}

	srv, err := New(Config{
		Host:   "127.0.0.1",
		Port:   port,
		Home:   h,
		Logger: testLogger(),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return srv
}

// waitForServer polls the health endpoint until the server responds.
func waitForServer(ctx context.Context, baseURL string) error {
	client := &http.Client{Timeout: 2 * time.Second}

	return retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, "GET", baseURL+"/health", nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			resp, err := client.Do(req)
			if err != nil {
				return err
			}
			resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("health returned %d", resp.StatusCode)
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(30),
		retry.Delay(200*time.Millisecond),
		retry.DelayType(retry.FixedDelay),
	)
}

func TestServerLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping server test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	srv := newTestServer(t, "18870")

	serverErr := make(chan error, 1)
	serverCtx, serverCancel := context.WithCancel(ctx)

	go func() {
		serverErr <- srv.Start(serverCtx)
	}()

	baseURL := "http://" + srv.Addr()
	if err := waitForServer(ctx, baseURL); err != nil {
		serverCancel()
		t.Fatalf("server did not start: %v", err)
	}

	t.Run("health_endpoint", func(t *testing.T) {
		resp, err := http.Get(baseURL + "/health")
		if err != nil {
			t.Fatalf("health check failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Errorf("health status = %d, want %d", resp.StatusCode, http.StatusOK)
		}

		var health struct {
			Status      string `json:"status"`
			Initialized bool   `json:"initialized"`
			Version     string `json:"version"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if health.Status != "ok" {
			t.Errorf("health.Status = %q, want %q", health.Status, "ok")
		}
		if !health.Initialized {
			t.Error("health.Initialized = false after Start, want true")
		}
		if health.Version == "" {
			t.Error("health.Version is empty")
		}
	})

	t.Run("status_endpoint", func(t *testing.T) {
		resp, err := http.Get(baseURL + "/status")
		if err != nil {
			t.Fatalf("status check failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Errorf("status code = %d, want %d", resp.StatusCode, http.StatusOK)
		}

		var status struct {
			Server string `json:"server"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if status.Server != "running" {
			t.Errorf("status.Server = %q, want %q", status.Server, "running")
		}
	})

	t.Run("is_running", func(t *testing.T) {
		if !srv.IsRunning() {
			t.Error("IsRunning() = false, want true")
		}
	})

	t.Run("double_start", func(t *testing.T) {
		if err := srv.Start(ctx); err == nil {
			t.Error("second Start() should return error")
		}
	})

	serverCancel()

	select {
	case err := <-serverErr:
		if err != nil {
			t.Logf("server returned error (expected during shutdown): %v", err)
		}
	case <-time.After(30 * time.Second):
		t.Fatal("server did not shut down within timeout")
	}

	t.Run("not_running_after_shutdown", func(t *testing.T) {
		if srv.IsRunning() {
			t.Error("IsRunning() = true after shutdown, want false")
		}
	})
}

func TestServerRequiresInitBeforeStart(t *testing.T) {
	srv := newTestServer(t, "18871")

	// The server has not started, so services are absent and guarded
	// endpoints must refuse requests.
	req := httptest.NewRequest("GET", "/api/library", nil)
	rec := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("guarded endpoint status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}

	// Health is available even before initialization.
	req = httptest.NewRequest("GET", "/health", nil)
	rec = httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("health status = %d, want %d", rec.Code, http.StatusOK)
	}

	var health struct {
		Initialized bool `json:"initialized"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&health); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if health.Initialized {
		t.Error("health.Initialized = true before Start, want false")
	}
}
