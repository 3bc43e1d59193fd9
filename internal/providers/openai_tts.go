package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	OpenAITTSName         = "openai"
	openAITTSDefaultModel = openai.SpeechModelTTS1HD
	openAITTSDefaultVoice = "onyx"
)

// OpenAITTSConfig holds configuration for the OpenAI TTS client.
type OpenAITTSConfig struct {
	APIKey     string
	Model      string        // "tts-1-hd" (default), "tts-1"
	Voice      string        // "onyx" (default)
	Speed      float64       // 0.25-4.0
	RateLimit  float64       // Requests per second
	MaxRetries int           // Retry attempts for SDK transport
	RetryDelay time.Duration // Base retry delay for backoff
	Timeout    time.Duration // HTTP timeout
	BaseURL    string        // Optional (tests)
	HTTPClient *http.Client  // Optional (tests)
}

// OpenAITTSClient implements TTSProvider using the official OpenAI SDK.
type OpenAITTSClient struct {
	apiKey     string
	model      string
	voice      string
	speed      float64
	rateLimit  float64
	maxRetries int
	retryDelay time.Duration
	client     openai.Client
}

// NewOpenAITTSClient creates a new OpenAI TTS client.
func NewOpenAITTSClient(cfg OpenAITTSConfig) *OpenAITTSClient {
	if cfg.Model == "" {
		cfg.Model = openAITTSDefaultModel
	}
	if cfg.Voice == "" {
		cfg.Voice = openAITTSDefaultVoice
	}
	if cfg.Speed <= 0 {
		cfg.Speed = 1.0
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 8.0
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = 2 * time.Second
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 300 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAITTSClient{
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		voice:      cfg.Voice,
		speed:      cfg.Speed,
		rateLimit:  cfg.RateLimit,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		client:     openai.NewClient(opts...),
	}
}

// Name returns the provider identifier.
func (c *OpenAITTSClient) Name() string {
	return OpenAITTSName
}

// RequestsPerSecond returns the configured rate limit.
func (c *OpenAITTSClient) RequestsPerSecond() float64 {
	return c.rateLimit
}

// MaxRetries returns the maximum retry attempts.
func (c *OpenAITTSClient) MaxRetries() int {
	return c.maxRetries
}

// RetryDelayBase returns the base delay for exponential backoff.
func (c *OpenAITTSClient) RetryDelayBase() time.Duration {
	return c.retryDelay
}

// HealthCheck verifies the OpenAI API is reachable and the API key is valid.
func (c *OpenAITTSClient) HealthCheck(ctx context.Context) error {
	page, err := c.client.Models.List(ctx)
	if err != nil {
		return fmt.Errorf("openai models list failed: %w", mapOpenAIError(err))
	}
	if page == nil {
		return fmt.Errorf("openai models list returned nil response")
	}
	return nil
}

// Generate converts text to audio using the OpenAI TTS API. OpenAI voices
// are named rather than ID'd; unknown voice IDs fall back to the default.
func (c *OpenAITTSClient) Generate(ctx context.Context, req *TTSRequest) (*TTSResult, error) {
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

	voice := strings.TrimSpace(req.Voice)
	if !isOpenAIVoice(voice) {
		voice = c.voice
	}

	speed := c.speed
	if req.Speed > 0 {
		speed = req.Speed
	}

	format := normalizeOpenAIFormat(req.Format)
	params := openai.AudioSpeechNewParams{
		Input:          text,
		Model:          openai.SpeechModel(c.model),
		Voice:          openai.AudioSpeechNewParamsVoice(voice),
		ResponseFormat: format,
		Speed:          openai.Float(speed),
	}

	resp, err := c.client.Audio.Speech.New(ctx, params)
	if err != nil {
		err = mapOpenAIError(err)
		return &TTSResult{
			Success:       false,
			ErrorMessage:  err.Error(),
			CharCount:     len(text),
			ExecutionTime: time.Since(start),
		}, err
	}
	defer resp.Body.Close()

	audioBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		err = fmt.Errorf("failed reading openai audio response: %w", err)
		return &TTSResult{
			Success:       false,
			ErrorMessage:  err.Error(),
			CharCount:     len(text),
			ExecutionTime: time.Since(start),
		}, err
	}

	estimatedDurationMS := (len(text) * 60 * 1000) / (150 * 5)

	return &TTSResult{
		Success:       true,
		Audio:         audioBytes,
		DurationMS:    estimatedDurationMS,
		Format:        openAIResultFormat(format),
		CostUSD:       estimateOpenAITTSCostUSD(c.model, text),
		CharCount:     len(text),
		ExecutionTime: time.Since(start),
	}, nil
}

func estimateOpenAITTSCostUSD(model, text string) float64 {
	switch strings.TrimSpace(strings.ToLower(model)) {
	case "tts-1-hd":
		return float64(len(text)) * (0.03 / 1000.0)
	default:
		return float64(len(text)) * (0.015 / 1000.0)
	}
}

var openAIVoiceNames = []string{
	"alloy", "ash", "ballad", "coral", "echo", "fable", "nova",
	"onyx", "sage", "shimmer", "verse", "marin", "cedar",
}

func isOpenAIVoice(name string) bool {
	for _, v := range openAIVoiceNames {
		if v == name {
			return true
		}
	}
	return false
}

// ListVoices returns the built-in OpenAI TTS voice list.
func (c *OpenAITTSClient) ListVoices(_ context.Context) ([]Voice, error) {
	voices := make([]Voice, 0, len(openAIVoiceNames))
	for _, name := range openAIVoiceNames {
		voices = append(voices, Voice{
			VoiceID: name,
			Name:    name,
		})
	}
	return voices, nil
}

func normalizeOpenAIFormat(format string) openai.AudioSpeechNewParamsResponseFormat {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "mp3", "mp3_44100_128":
		return openai.AudioSpeechNewParamsResponseFormatMP3
	case "opus":
		return openai.AudioSpeechNewParamsResponseFormatOpus
	case "aac":
		return openai.AudioSpeechNewParamsResponseFormatAAC
	case "flac":
		return openai.AudioSpeechNewParamsResponseFormatFLAC
	case "wav":
		return openai.AudioSpeechNewParamsResponseFormatWAV
	case "pcm":
		return openai.AudioSpeechNewParamsResponseFormatPCM
	default:
		return openai.AudioSpeechNewParamsResponseFormatMP3
	}
}

func openAIResultFormat(format openai.AudioSpeechNewParamsResponseFormat) string {
	switch format {
	case openai.AudioSpeechNewParamsResponseFormatOpus:
		return "opus"
	case openai.AudioSpeechNewParamsResponseFormatAAC:
		return "aac"
	case openai.AudioSpeechNewParamsResponseFormatFLAC:
		return "flac"
	case openai.AudioSpeechNewParamsResponseFormatWAV:
		return "wav"
	case openai.AudioSpeechNewParamsResponseFormatPCM:
		return "wav"
	default:
		return "mp3"
	}
}

func mapOpenAIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusTooManyRequests {
			retryAfter := time.Duration(0)
			if apiErr.Response != nil {
				retryAfter = parseRetryAfter(apiErr.Response.Header.Get("Retry-After"))
			}
			return &RateLimitError{
				Message:    fmt.Sprintf("OpenAI rate limited: %s", apiErr.Message),
				RetryAfter: retryAfter,
				StatusCode: apiErr.StatusCode,
			}
		}
		if apiErr.Message != "" {
			return fmt.Errorf("OpenAI TTS error (status %d): %s", apiErr.StatusCode, apiErr.Message)
		}
		return fmt.Errorf("OpenAI TTS error (status %d)", apiErr.StatusCode)
	}
	return err
}

var _ TTSProvider = (*OpenAITTSClient)(nil)
var _ VoicesLister = (*OpenAITTSClient)(nil)
