package config

// Config holds bookvision configuration.
// Stored at: {home}/config.yaml
type Config struct {
	LLMProviders   map[string]LLMProviderCfg   `mapstructure:"llm_providers" yaml:"llm_providers"`
	TTSProviders   map[string]TTSProviderCfg   `mapstructure:"tts_providers" yaml:"tts_providers"`
	ImageProviders map[string]ImageProviderCfg `mapstructure:"image_providers" yaml:"image_providers"`
	Defaults       DefaultsCfg                 `mapstructure:"defaults" yaml:"defaults"`
	Server         ServerCfg                   `mapstructure:"server" yaml:"server"`
	Generation     GenerationCfg               `mapstructure:"generation" yaml:"generation"`
}

// LLMProviderCfg configures an LLM provider.
type LLMProviderCfg struct {
	Type      string  `mapstructure:"type" yaml:"type"`             // "openrouter"
	Model     string  `mapstructure:"model" yaml:"model"`           // Model name
	APIKey    string  `mapstructure:"api_key" yaml:"api_key"`       // API key (supports ${ENV_VAR} syntax)
	RateLimit float64 `mapstructure:"rate_limit" yaml:"rate_limit"` // Requests per second
	Enabled   bool    `mapstructure:"enabled" yaml:"enabled"`
}

// TTSProviderCfg configures a TTS provider.
type TTSProviderCfg struct {
	Type       string  `mapstructure:"type" yaml:"type"` // "elevenlabs", "deepgram", "openai"
	Model      string  `mapstructure:"model" yaml:"model"`
	Voice      string  `mapstructure:"voice" yaml:"voice"`
	Format     string  `mapstructure:"format" yaml:"format"`
	APIKey     string  `mapstructure:"api_key" yaml:"api_key"` // API key (supports ${ENV_VAR} syntax)
	RateLimit  float64 `mapstructure:"rate_limit" yaml:"rate_limit"`
	Stability  float64 `mapstructure:"stability" yaml:"stability"`
	Similarity float64 `mapstructure:"similarity" yaml:"similarity"`
	Enabled    bool    `mapstructure:"enabled" yaml:"enabled"`
}

// ImageProviderCfg configures an image generation provider.
type ImageProviderCfg struct {
	Type           string  `mapstructure:"type" yaml:"type"` // "pollinations"
	RateLimit      float64 `mapstructure:"rate_limit" yaml:"rate_limit"`
	MaxAttempts    int     `mapstructure:"max_attempts" yaml:"max_attempts"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	Width          int     `mapstructure:"width" yaml:"width"`
	Height         int     `mapstructure:"height" yaml:"height"`
	Enabled        bool    `mapstructure:"enabled" yaml:"enabled"`
}

// DefaultsCfg specifies default provider selections.
type DefaultsCfg struct {
	LLMProvider   string   `mapstructure:"llm_provider" yaml:"llm_provider"`     // Default LLM provider
	TTSProviders  []string `mapstructure:"tts_providers" yaml:"tts_providers"`   // Ordered TTS fallback chain
	ImageProvider string   `mapstructure:"image_provider" yaml:"image_provider"` // Default image provider
}

// ServerCfg holds HTTP server configuration.
type ServerCfg struct {
	Host      string `mapstructure:"host" yaml:"host"`
	Port      int    `mapstructure:"port" yaml:"port"`
	APIPrefix string `mapstructure:"api_prefix" yaml:"api_prefix"`
}

// GenerationCfg bounds the generation workflows.
type GenerationCfg struct {
	// MaxAudioChars caps narration input; longer text is truncated before
	// dispatch and the truncated length reported back to the caller.
	MaxAudioChars int `mapstructure:"max_audio_chars" yaml:"max_audio_chars"`
	// MaxPodcastChars caps the excerpt fed to podcast script generation.
	MaxPodcastChars int `mapstructure:"max_podcast_chars" yaml:"max_podcast_chars"`
	// MaxConcurrentImages bounds in-flight image requests per visuals job.
	MaxConcurrentImages int `mapstructure:"max_concurrent_images" yaml:"max_concurrent_images"`
	// DefaultSeed seeds image generation when the caller omits one.
	DefaultSeed int `mapstructure:"default_seed" yaml:"default_seed"`
	// DefaultStyle is the art style when the caller omits one.
	DefaultStyle string `mapstructure:"default_style" yaml:"default_style"`
	// MaxEntities bounds how many entities analysis keeps per book.
	MaxEntities int `mapstructure:"max_entities" yaml:"max_entities"`
	// QAContextChars caps the book excerpt in the Q&A context window.
	QAContextChars int `mapstructure:"qa_context_chars" yaml:"qa_context_chars"`
	// QATimeoutSeconds is the hard ceiling on a Q&A round trip.
	QATimeoutSeconds int `mapstructure:"qa_timeout_seconds" yaml:"qa_timeout_seconds"`
	// Poll controls the artifact readiness probe schedule.
	Poll PollCfg `mapstructure:"poll" yaml:"poll"`
}

// PollCfg controls the artifact readiness probe backoff schedule.
type PollCfg struct {
	InitialIntervalMS int     `mapstructure:"initial_interval_ms" yaml:"initial_interval_ms"`
	GrowthFactor      float64 `mapstructure:"growth_factor" yaml:"growth_factor"`
	MaxIntervalMS     int     `mapstructure:"max_interval_ms" yaml:"max_interval_ms"`
	MaxAttempts       int     `mapstructure:"max_attempts" yaml:"max_attempts"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		LLMProviders: map[string]LLMProviderCfg{
			"openrouter": {
				Type:    "openrouter",
				Model:   "anthropic/claude-3.5-sonnet",
				APIKey:  "${OPENROUTER_API_KEY}",
				Enabled: true,
			},
		},
		TTSProviders: map[string]TTSProviderCfg{
			"elevenlabs": {
				Type:       "elevenlabs",
				Model:      "eleven_multilingual_v2",
				APIKey:     "${ELEVENLABS_API_KEY}",
				RateLimit:  10.0,
				Stability:  0.5,
				Similarity: 0.75,
				Enabled:    true,
			},
			"deepgram": {
				Type:      "deepgram",
				APIKey:    "${DEEPGRAM_API_KEY}",
				RateLimit: 10.0,
				Enabled:   true,
			},
			"openai": {
				Type:      "openai",
				Model:     "tts-1-hd",
				Voice:     "onyx",
				APIKey:    "${OPENAI_API_KEY}",
				RateLimit: 8.0,
				Enabled:   true,
			},
		},
		ImageProviders: map[string]ImageProviderCfg{
			"pollinations": {
				Type:           "pollinations",
				RateLimit:      0.5,
				MaxAttempts:    5,
				TimeoutSeconds: 90,
				Enabled:        true,
			},
		},
		Defaults: DefaultsCfg{
			LLMProvider:   "openrouter",
			TTSProviders:  []string{"elevenlabs", "deepgram", "openai"},
			ImageProvider: "pollinations",
		},
		Server: ServerCfg{
			Host:      "127.0.0.1",
			Port:      8870,
			APIPrefix: "/api",
		},
		Generation: GenerationCfg{
			MaxAudioChars:       2000,
			MaxPodcastChars:     12000,
			MaxConcurrentImages: 3,
			DefaultSeed:         42,
			DefaultStyle:        "storybook",
			MaxEntities:         10,
			QAContextChars:      10000,
			QATimeoutSeconds:    45,
			Poll: PollCfg{
				InitialIntervalMS: 1500,
				GrowthFactor:      1.5,
				MaxIntervalMS:     15000,
				MaxAttempts:       20,
			},
		},
	}
}

// GetLLMProvider returns an LLM provider config by name.
func (c *Config) GetLLMProvider(name string) (LLMProviderCfg, bool) {
	cfg, ok := c.LLMProviders[name]
	return cfg, ok
}

// GetTTSProvider returns a TTS provider config by name.
func (c *Config) GetTTSProvider(name string) (TTSProviderCfg, bool) {
	cfg, ok := c.TTSProviders[name]
	return cfg, ok
}

// TTSChain returns the configured TTS fallback chain, skipping providers
// that are missing or disabled.
func (c *Config) TTSChain() []string {
	chain := make([]string, 0, len(c.Defaults.TTSProviders))
	for _, name := range c.Defaults.TTSProviders {
		if cfg, ok := c.TTSProviders[name]; ok && cfg.Enabled {
			chain = append(chain, name)
		}
	}
	return chain
}
