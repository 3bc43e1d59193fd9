package providers

import (
	"os"
)

// TestConfig holds provider configurations loaded from environment variables.
// This allows tests to use the same configuration pattern as production.
type TestConfig struct {
	OpenRouterAPIKey string
	ElevenLabsAPIKey string
	DeepgramAPIKey   string
	OpenAIAPIKey     string
}

// LoadTestConfig loads provider API keys from environment variables.
// Returns a TestConfig with whatever keys are available.
func LoadTestConfig() TestConfig {
	return TestConfig{
		OpenRouterAPIKey: os.Getenv("OPENROUTER_API_KEY"),
		ElevenLabsAPIKey: os.Getenv("ELEVENLABS_API_KEY"),
		DeepgramAPIKey:   os.Getenv("DEEPGRAM_API_KEY"),
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
	}
}

// HasOpenRouter returns true if OpenRouter API key is configured.
func (c TestConfig) HasOpenRouter() bool {
	return c.OpenRouterAPIKey != ""
}

// HasAnyTTS returns true if any TTS provider is configured.
func (c TestConfig) HasAnyTTS() bool {
	return c.ElevenLabsAPIKey != "" || c.DeepgramAPIKey != "" || c.OpenAIAPIKey != ""
}

// ToRegistryConfig converts test config to a RegistryConfig for the provider
// registry. Only includes providers that have API keys configured.
func (c TestConfig) ToRegistryConfig() RegistryConfig {
	cfg := RegistryConfig{
		LLMProviders:   make(map[string]LLMProviderConfig),
		TTSProviders:   make(map[string]TTSProviderConfig),
		ImageProviders: make(map[string]ImageProviderConfig),
	}

	if c.HasOpenRouter() {
		cfg.LLMProviders["openrouter"] = LLMProviderConfig{
			Type:      "openrouter",
			APIKey:    c.OpenRouterAPIKey,
			RateLimit: 60,
			Enabled:   true,
		}
	}
	if c.ElevenLabsAPIKey != "" {
		cfg.TTSProviders["elevenlabs"] = TTSProviderConfig{
			Type:      "elevenlabs",
			APIKey:    c.ElevenLabsAPIKey,
			RateLimit: 10,
			Enabled:   true,
		}
	}
	if c.DeepgramAPIKey != "" {
		cfg.TTSProviders["deepgram"] = TTSProviderConfig{
			Type:      "deepgram",
			APIKey:    c.DeepgramAPIKey,
			RateLimit: 10,
			Enabled:   true,
		}
	}
	if c.OpenAIAPIKey != "" {
		cfg.TTSProviders["openai"] = TTSProviderConfig{
			Type:      "openai",
			APIKey:    c.OpenAIAPIKey,
			RateLimit: 8,
			Enabled:   true,
		}
	}

	cfg.ImageProviders["pollinations"] = ImageProviderConfig{
		Type:    "pollinations",
		Enabled: true,
	}

	return cfg
}
