package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"
)

const MockClientName = "mock"

// MockClient is an LLMClient for testing.
type MockClient struct {
	// Configurable behavior
	Latency      time.Duration
	ShouldFail   bool
	FailAfter    int // Fail after N requests (0 = never)
	ResponseText string
	ResponseJSON json.RawMessage

	// State
	requestCount atomic.Int64
}

// NewMockClient creates a new mock client with sensible defaults.
func NewMockClient() *MockClient {
	return &MockClient{
		Latency:      time.Millisecond,
		ResponseText: "mock response",
	}
}

// Name returns the client identifier.
func (c *MockClient) Name() string {
	return MockClientName
}

// Chat sends a mock chat request.
func (c *MockClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	start := time.Now()
	count := c.requestCount.Add(1)

	result := &ChatResult{
		RequestID: fmt.Sprintf("mock-%d", count),
		Provider:  MockClientName,
		ModelUsed: req.Model,
		Attempts:  1,
	}

	if c.ShouldFail {
		result.Success = false
		result.ErrorType = "mock_failure"
		result.ErrorMessage = "mock client configured to fail"
		return result, fmt.Errorf("mock client configured to fail")
	}
	if c.FailAfter > 0 && int(count) > c.FailAfter {
		result.Success = false
		result.ErrorType = "mock_failure"
		result.ErrorMessage = fmt.Sprintf("mock client failed after %d requests", c.FailAfter)
		return result, fmt.Errorf("mock client failed after %d requests", c.FailAfter)
	}

	select {
	case <-time.After(c.Latency):
	case <-ctx.Done():
		result.Success = false
		result.ErrorType = "context_cancelled"
		result.ErrorMessage = ctx.Err().Error()
		return result, ctx.Err()
	}

	result.Success = true
	result.Content = c.ResponseText
	result.ExecutionTime = time.Since(start)

	promptTokens := 0
	for _, m := range req.Messages {
		promptTokens += len(m.Content) / 4 // Rough estimate
	}
	result.PromptTokens = promptTokens
	result.CompletionTokens = len(c.ResponseText) / 4
	result.TotalTokens = result.PromptTokens + result.CompletionTokens

	if req.ResponseFormat != nil && len(c.ResponseJSON) > 0 {
		result.ParsedJSON = c.ResponseJSON
		result.Content = string(c.ResponseJSON)
	}

	return result, nil
}

// RequestCount returns the number of requests made.
func (c *MockClient) RequestCount() int64 {
	return c.requestCount.Load()
}

// Reset resets the request counter.
func (c *MockClient) Reset() {
	c.requestCount.Store(0)
}

// Verify interface
var _ LLMClient = (*MockClient)(nil)

// MockTTSProvider is a TTSProvider for testing.
type MockTTSProvider struct {
	ProviderName string
	Latency      time.Duration
	ShouldFail   bool
	FailAfter    int
	Audio        []byte
	RPS          float64
	Retries      int
	RetryDelay   time.Duration

	requestCount atomic.Int64
}

// NewMockTTSProvider creates a new mock TTS provider.
func NewMockTTSProvider() *MockTTSProvider {
	return &MockTTSProvider{
		ProviderName: "mock-tts",
		Latency:      time.Millisecond,
		Audio:        []byte("mock-audio-bytes"),
		RPS:          10.0,
		Retries:      3,
		RetryDelay:   time.Second,
	}
}

// Name returns the provider identifier.
func (p *MockTTSProvider) Name() string {
	return p.ProviderName
}

// RequestsPerSecond returns the rate limit.
func (p *MockTTSProvider) RequestsPerSecond() float64 {
	return p.RPS
}

// MaxRetries returns the max retry count.
func (p *MockTTSProvider) MaxRetries() int {
	return p.Retries
}

// RetryDelayBase returns the base retry delay.
func (p *MockTTSProvider) RetryDelayBase() time.Duration {
	return p.RetryDelay
}

// Generate synthesizes mock audio.
func (p *MockTTSProvider) Generate(ctx context.Context, req *TTSRequest) (*TTSResult, error) {
	start := time.Now()
	count := p.requestCount.Add(1)

	if p.ShouldFail {
		return &TTSResult{
			Success:       false,
			ErrorMessage:  "mock TTS provider configured to fail",
			CharCount:     len(req.Text),
			ExecutionTime: time.Since(start),
		}, fmt.Errorf("mock TTS provider configured to fail")
	}
	if p.FailAfter > 0 && int(count) > p.FailAfter {
		err := fmt.Errorf("mock TTS provider failed after %d requests", p.FailAfter)
		return &TTSResult{
			Success:       false,
			ErrorMessage:  err.Error(),
			CharCount:     len(req.Text),
			ExecutionTime: time.Since(start),
		}, err
	}

	select {
	case <-time.After(p.Latency):
	case <-ctx.Done():
		return &TTSResult{
			Success:       false,
			ErrorMessage:  ctx.Err().Error(),
			CharCount:     len(req.Text),
			ExecutionTime: time.Since(start),
		}, ctx.Err()
	}

	return &TTSResult{
		Success:       true,
		Audio:         p.Audio,
		DurationMS:    1000,
		Format:        "mp3",
		CharCount:     len(req.Text),
		ExecutionTime: time.Since(start),
		RequestID:     fmt.Sprintf("mock-tts-%d", count),
	}, nil
}

// RequestCount returns the number of requests made.
func (p *MockTTSProvider) RequestCount() int64 {
	return p.requestCount.Load()
}

// Verify interface
var _ TTSProvider = (*MockTTSProvider)(nil)

// MockImageProvider is an ImageProvider for testing.
type MockImageProvider struct {
	ProviderName string
	Latency      time.Duration
	ShouldFail   bool
	FailAfter    int
	Image        []byte

	requestCount atomic.Int64
}

// NewMockImageProvider creates a new mock image provider.
func NewMockImageProvider() *MockImageProvider {
	return &MockImageProvider{
		ProviderName: "mock-image",
		Latency:      time.Millisecond,
		Image:        []byte("mock-image-bytes"),
	}
}

// Name returns the provider identifier.
func (p *MockImageProvider) Name() string {
	return p.ProviderName
}

// Generate renders a mock image.
func (p *MockImageProvider) Generate(ctx context.Context, req *ImageRequest) (*ImageResult, error) {
	start := time.Now()
	count := p.requestCount.Add(1)

	if p.ShouldFail {
		return &ImageResult{
			Success:       false,
			Attempts:      1,
			ExecutionTime: time.Since(start),
			ErrorMessage:  "mock image provider configured to fail",
		}, fmt.Errorf("mock image provider configured to fail")
	}
	if p.FailAfter > 0 && int(count) > p.FailAfter {
		err := fmt.Errorf("mock image provider failed after %d requests", p.FailAfter)
		return &ImageResult{
			Success:       false,
			Attempts:      1,
			ExecutionTime: time.Since(start),
			ErrorMessage:  err.Error(),
		}, err
	}

	select {
	case <-time.After(p.Latency):
	case <-ctx.Done():
		return &ImageResult{
			Success:       false,
			Attempts:      1,
			ExecutionTime: time.Since(start),
			ErrorMessage:  ctx.Err().Error(),
		}, ctx.Err()
	}

	return &ImageResult{
		Success:       true,
		Image:         p.Image,
		Format:        "jpg",
		Attempts:      1,
		ExecutionTime: time.Since(start),
	}, nil
}

// RequestCount returns the number of requests made.
func (p *MockImageProvider) RequestCount() int64 {
	return p.requestCount.Load()
}

// Verify interface
var _ ImageProvider = (*MockImageProvider)(nil)
