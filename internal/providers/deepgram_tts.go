package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DeepgramTTSName      = "deepgram"
	DeepgramAPIBaseURL   = "https://api.deepgram.com/v1"
	DeepgramDefaultVoice = "aura-2-thalia-en"
)

// deepgramVoiceAliases maps well-known ElevenLabs voice IDs to the nearest
// Aura-2 voice so callers can switch providers without changing voice config.
var deepgramVoiceAliases = map[string]string{
	"pNInz6obpgDQGcFmaJgB": "aura-2-odysseus-en", // Adam
	"21m00Tcm4TlvDq8ikWAM": "aura-2-luna-en",     // Rachel
}

// DeepgramTTSConfig holds configuration for the Deepgram TTS client.
type DeepgramTTSConfig struct {
	APIKey     string
	BaseURL    string // Optional (tests)
	Voice      string // Aura model name, e.g. "aura-2-thalia-en"
	Format     string // "mp3" (default) or "linear16"
	Timeout    time.Duration
	RateLimit  float64
	MaxRetries int
	RetryDelay time.Duration
}

// DeepgramTTSClient implements TTSProvider using the Deepgram Speak API.
type DeepgramTTSClient struct {
	apiKey     string
	baseURL    string
	voice      string
	format     string
	rateLimit  float64
	maxRetries int
	retryDelay time.Duration
	client     *http.Client
}

// NewDeepgramTTSClient creates a new Deepgram TTS client.
func NewDeepgramTTSClient(cfg DeepgramTTSConfig) *DeepgramTTSClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DeepgramAPIBaseURL
	}
	if cfg.Voice == "" {
		cfg.Voice = DeepgramDefaultVoice
	}
	if cfg.Format == "" {
		cfg.Format = "mp3"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = 10.0
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = 2 * time.Second
	}

	return &DeepgramTTSClient{
		apiKey:     cfg.APIKey,
		baseURL:    cfg.BaseURL,
		voice:      cfg.Voice,
		format:     cfg.Format,
		rateLimit:  cfg.RateLimit,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Name returns the provider identifier.
func (c *DeepgramTTSClient) Name() string {
	return DeepgramTTSName
}

// RequestsPerSecond returns the rate limit.
func (c *DeepgramTTSClient) RequestsPerSecond() float64 {
	return c.rateLimit
}

// MaxRetries returns the maximum retry attempts.
func (c *DeepgramTTSClient) MaxRetries() int {
	return c.maxRetries
}

// RetryDelayBase returns the base delay for exponential backoff.
func (c *DeepgramTTSClient) RetryDelayBase() time.Duration {
	return c.retryDelay
}

// resolveVoice maps the requested voice to an Aura model name.
func (c *DeepgramTTSClient) resolveVoice(requested string) string {
	requested = strings.TrimSpace(requested)
	if requested == "" {
		return c.voice
	}
	if alias, ok := deepgramVoiceAliases[requested]; ok {
		return alias
	}
	if strings.HasPrefix(requested, "aura-") {
		return requested
	}
	return c.voice
}

// Generate converts text to audio using the Deepgram Speak API. Deepgram has
// no stability/similarity controls; those request fields are ignored.
func (c *DeepgramTTSClient) Generate(ctx context.Context, req *TTSRequest) (*TTSResult, error) {
	start := time.Now()

	text := strings.TrimSpace(req.Text)
	if text == "" {
		err := fmt.Errorf("text is required")
		return &TTSResult{
			Success:       false,
			ErrorMessage:  err.Error(),
			ExecutionTime: time.Since(start),
		}, err
	}

	voice := c.resolveVoice(req.Voice)

	params := url.Values{}
	params.Set("model", voice)
	if c.format == "mp3" {
		params.Set("encoding", "mp3")
	} else {
		params.Set("encoding", c.format)
	}

	bodyBytes, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/speak?%s", c.baseURL, params.Encode())
	httpReq, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Token "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		err = fmt.Errorf("request failed: %w", err)
		return &TTSResult{
			Success:       false,
			ErrorMessage:  err.Error(),
			CharCount:     len(text),
			ExecutionTime: time.Since(start),
		}, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		err = fmt.Errorf("failed to read response: %w", err)
		return &TTSResult{
			Success:       false,
			ErrorMessage:  err.Error(),
			CharCount:     len(text),
			ExecutionTime: time.Since(start),
		}, err
	}

	if resp.StatusCode != http.StatusOK {
		errMsg := string(respBody)
		var errResp struct {
			ErrMsg string `json:"err_msg"`
		}
		if json.Unmarshal(respBody, &errResp) == nil && errResp.ErrMsg != "" {
			errMsg = errResp.ErrMsg
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			err = &RateLimitError{
				Message:    fmt.Sprintf("Deepgram rate limited: %s", errMsg),
				RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
				StatusCode: resp.StatusCode,
			}
		} else {
			err = fmt.Errorf("Deepgram TTS error (status %d): %s", resp.StatusCode, errMsg)
		}
		return &TTSResult{
			Success:       false,
			ErrorMessage:  err.Error(),
			CharCount:     len(text),
			ExecutionTime: time.Since(start),
		}, err
	}

	estimatedDurationMS := (len(text) * 60 * 1000) / (150 * 5)

	// Deepgram Aura pricing: ~$0.015 per 1000 characters.
	cost := float64(len(text)) * 0.000015

	return &TTSResult{
		Success:       true,
		Audio:         respBody,
		DurationMS:    estimatedDurationMS,
		Format:        c.format,
		CostUSD:       cost,
		CharCount:     len(text),
		ExecutionTime: time.Since(start),
	}, nil
}

// ListVoices returns the built-in Aura-2 voice list.
func (c *DeepgramTTSClient) ListVoices(_ context.Context) ([]Voice, error) {
	names := []string{
		"aura-2-thalia-en", "aura-2-luna-en", "aura-2-stella-en",
		"aura-2-athena-en", "aura-2-hera-en", "aura-2-odysseus-en",
		"aura-2-arcas-en", "aura-2-orion-en", "aura-2-perseus-en",
		"aura-2-angus-en", "aura-2-orpheus-en", "aura-2-helios-en",
		"aura-2-zeus-en",
	}

	voices := make([]Voice, 0, len(names))
	for _, name := range names {
		voices = append(voices, Voice{VoiceID: name, Name: name})
	}
	return voices, nil
}

// Verify interface
var _ TTSProvider = (*DeepgramTTSClient)(nil)
var _ VoicesLister = (*DeepgramTTSClient)(nil)
