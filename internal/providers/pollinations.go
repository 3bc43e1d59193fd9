package providers

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	PollinationsName    = "pollinations"
	PollinationsBaseURL = "https://image.pollinations.ai"

	pollinationsDefaultWidth  = 768
	pollinationsDefaultHeight = 768
)

// PollinationsConfig holds configuration for the Pollinations image client.
type PollinationsConfig struct {
	BaseURL        string  // Optional (tests)
	RateLimit      float64 // Requests per second across all callers (default: 0.5)
	MaxAttempts    int     // Attempts per image (default: 5)
	RequestTimeout time.Duration
	Width          int
	Height         int
}

// PollinationsClient implements ImageProvider against the pollinations.ai
// image endpoint. The service is free and aggressively rate limited, so the
// client serializes requests through a shared limiter and retries with
// exponential backoff and jitter.
type PollinationsClient struct {
	baseURL        string
	limiter        *rate.Limiter
	maxAttempts    int
	requestTimeout time.Duration
	width          int
	height         int
	client         *http.Client
}

// NewPollinationsClient creates a new Pollinations image client.
func NewPollinationsClient(cfg PollinationsConfig) *PollinationsClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = PollinationsBaseURL
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 0.5
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 90 * time.Second
	}
	if cfg.Width <= 0 {
		cfg.Width = pollinationsDefaultWidth
	}
	if cfg.Height <= 0 {
		cfg.Height = pollinationsDefaultHeight
	}

	return &PollinationsClient{
		baseURL:        cfg.BaseURL,
		limiter:        rate.NewLimiter(rate.Limit(cfg.RateLimit), 1),
		maxAttempts:    cfg.MaxAttempts,
		requestTimeout: cfg.RequestTimeout,
		width:          cfg.Width,
		height:         cfg.Height,
		client:         &http.Client{Timeout: cfg.RequestTimeout},
	}
}

// Name returns the provider identifier.
func (c *PollinationsClient) Name() string {
	return PollinationsName
}

// imageURL composes the GET endpoint for a prompt. The prompt (with style
// suffix) is path-encoded; seed makes generation reproducible.
func (c *PollinationsClient) imageURL(req *ImageRequest) string {
	prompt := strings.TrimSpace(req.Prompt)
	if req.Style != "" {
		prompt = fmt.Sprintf("%s, %s style", prompt, req.Style)
	}

	width := req.Width
	if width <= 0 {
		width = c.width
	}
	height := req.Height
	if height <= 0 {
		height = c.height
	}

	params := url.Values{}
	params.Set("width", fmt.Sprintf("%d", width))
	params.Set("height", fmt.Sprintf("%d", height))
	params.Set("seed", fmt.Sprintf("%d", req.Seed))
	params.Set("nologo", "true")

	return fmt.Sprintf("%s/prompt/%s?%s", c.baseURL, url.PathEscape(prompt), params.Encode())
}

// Generate fetches an image for the prompt, retrying transient failures.
func (c *PollinationsClient) Generate(ctx context.Context, req *ImageRequest) (*ImageResult, error) {
	start := time.Now()
	endpoint := c.imageURL(req)

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return &ImageResult{
				Success:       false,
				Attempts:      attempt,
				ExecutionTime: time.Since(start),
				ErrorMessage:  err.Error(),
			}, err
		}

		img, err := c.fetch(ctx, endpoint)
		if err == nil {
			return &ImageResult{
				Success:       true,
				Image:         img,
				Format:        "jpg",
				Attempts:      attempt,
				ExecutionTime: time.Since(start),
			}, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			break
		}
		if attempt < c.maxAttempts {
			sleepBackoff(ctx, attempt)
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("image generation failed")
	}
	err := fmt.Errorf("pollinations: %d attempts failed: %w", c.maxAttempts, lastErr)
	return &ImageResult{
		Success:       false,
		Attempts:      c.maxAttempts,
		ExecutionTime: time.Since(start),
		ErrorMessage:  err.Error(),
	}, err
}

func (c *PollinationsClient) fetch(ctx context.Context, endpoint string) ([]byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, "GET", endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &RateLimitError{
			Message:    "pollinations rate limited",
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			StatusCode: resp.StatusCode,
		}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("empty image response")
	}
	return body, nil
}

// sleepBackoff waits 2^(attempt+1) seconds plus jitter, respecting cancellation.
func sleepBackoff(ctx context.Context, attempt int) {
	delay := time.Duration(1<<(attempt+1)) * time.Second
	if delay > 30*time.Second {
		delay = 30 * time.Second
	}
	delay += time.Duration(rand.Int63n(int64(time.Second)))

	select {
	case <-ctx.Done():
	case <-time.After(delay):
	}
}

// Verify interface
var _ ImageProvider = (*PollinationsClient)(nil)
