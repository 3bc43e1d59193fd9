package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// LLMClient is the interface for chat/completion requests used by the
// analysis, podcast-script, and Q&A paths.
type LLMClient interface {
	// Chat sends a chat completion request.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error)

	// Name returns the client identifier (e.g., "openrouter").
	Name() string
}

// TTSProvider converts text to speech. Implementations: elevenlabs,
// deepgram, openai.
type TTSProvider interface {
	// Name returns the provider identifier.
	Name() string

	// Generate converts text to audio.
	Generate(ctx context.Context, req *TTSRequest) (*TTSResult, error)

	// Rate limiting properties
	RequestsPerSecond() float64
	MaxRetries() int
	RetryDelayBase() time.Duration
}

// ImageProvider renders an illustration from a text prompt.
type ImageProvider interface {
	// Name returns the provider identifier.
	Name() string

	// Generate renders an image for the prompt.
	Generate(ctx context.Context, req *ImageRequest) (*ImageResult, error)
}

// VoicesLister is implemented by TTS providers that can enumerate voices.
type VoicesLister interface {
	ListVoices(ctx context.Context) ([]Voice, error)
}

// Voice describes an available TTS voice.
type Voice struct {
	VoiceID     string `json:"voice_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// ResponseFormat specifies structured output format.
type ResponseFormat struct {
	Type       string          `json:"type"` // "json_schema"
	JSONSchema json.RawMessage `json:"json_schema,omitempty"`
}

// ChatRequest is a request to an LLM.
type ChatRequest struct {
	Messages []Message `json:"messages"`

	// Model selection (uses client default if empty)
	Model string `json:"model,omitempty"`

	// Generation parameters
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Timeout     time.Duration

	// Structured output
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`

	// Request tracking
	RequestID string `json:"-"`
}

// ChatResult is the complete response from an LLM call.
type ChatResult struct {
	Content    string          `json:"content"`
	ParsedJSON json.RawMessage `json:"parsed_json,omitempty"` // Set if ResponseFormat was requested

	// Token counts
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`

	// Timing
	ExecutionTime time.Duration `json:"execution_time"`

	// Provider info
	Provider  string `json:"provider"`
	ModelUsed string `json:"model_used"`

	// Request tracking
	RequestID string `json:"request_id"`
	Attempts  int    `json:"attempts"`

	// Success/error
	Success      bool   `json:"success"`
	ErrorType    string `json:"error_type,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	RetryAfter   time.Duration
}

// TTSRequest is a request to a TTS provider. Zero-valued voice settings
// fall back to the provider's configured defaults.
type TTSRequest struct {
	Text   string `json:"text"`
	Voice  string `json:"voice,omitempty"`  // Provider voice ID
	Format string `json:"format,omitempty"` // Provider output format

	// Voice settings (ElevenLabs semantics; other providers map or ignore)
	Stability  float64 `json:"stability,omitempty"`
	Similarity float64 `json:"similarity,omitempty"`
	Style      float64 `json:"style,omitempty"`
	Speed      float64 `json:"speed,omitempty"`

	// PreviousRequestIDs enables request stitching for prosody continuity
	// across consecutive segments (ElevenLabs).
	PreviousRequestIDs []string `json:"-"`
}

// TTSResult is the response from a TTS provider.
type TTSResult struct {
	Success    bool   `json:"success"`
	Audio      []byte `json:"-"`
	DurationMS int    `json:"duration_ms"`
	Format     string `json:"format"`
	SampleRate int    `json:"sample_rate,omitempty"`

	// Cost and timing
	CostUSD       float64       `json:"cost_usd"`
	CharCount     int           `json:"char_count"`
	ExecutionTime time.Duration `json:"execution_time"`

	// Request tracking (for stitching)
	RequestID string `json:"request_id,omitempty"`

	ErrorMessage string `json:"error_message,omitempty"`
}

// ImageRequest is a request to an image provider.
type ImageRequest struct {
	Prompt string `json:"prompt"`
	Style  string `json:"style,omitempty"`
	Seed   int    `json:"seed"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// ImageResult is the response from an image provider.
type ImageResult struct {
	Success       bool          `json:"success"`
	Image         []byte        `json:"-"`
	Format        string        `json:"format"` // "jpg", "png"
	Attempts      int           `json:"attempts"`
	ExecutionTime time.Duration `json:"execution_time"`
	ErrorMessage  string        `json:"error_message,omitempty"`
}

// RateLimitError indicates the provider returned 429.
type RateLimitError struct {
	Message    string
	RetryAfter time.Duration
	StatusCode int
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s (retry after %s)", e.Message, e.RetryAfter)
	}
	return e.Message
}

// parseRetryAfter parses a Retry-After header value (seconds or HTTP date).
func parseRetryAfter(value string) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(value); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
