package providers

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Registry holds references to LLM, TTS, and image providers. It supports
// config-driven instantiation, hot-reload, and thread-safe access.
type Registry struct {
	mu           sync.RWMutex
	llmClients   map[string]LLMClient
	ttsProviders map[string]TTSProvider
	imgProviders map[string]ImageProvider
	logger       *slog.Logger
}

// NewRegistry creates a new empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		llmClients:   make(map[string]LLMClient),
		ttsProviders: make(map[string]TTSProvider),
		imgProviders: make(map[string]ImageProvider),
		logger:       slog.Default(),
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger *slog.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = logger
}

// RegisterLLM registers an LLM client by name.
func (r *Registry) RegisterLLM(name string, client LLMClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.llmClients[name] = client
	if r.logger != nil {
		r.logger.Info("registered LLM client", "name", name)
	}
}

// RegisterTTS registers a TTS provider by name.
func (r *Registry) RegisterTTS(name string, provider TTSProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ttsProviders[name] = provider
	if r.logger != nil {
		r.logger.Info("registered TTS provider", "name", name)
	}
}

// RegisterImage registers an image provider by name.
func (r *Registry) RegisterImage(name string, provider ImageProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.imgProviders[name] = provider
	if r.logger != nil {
		r.logger.Info("registered image provider", "name", name)
	}
}

// GetLLM returns an LLM client by name.
func (r *Registry) GetLLM(name string) (LLMClient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	client, ok := r.llmClients[name]
	if !ok {
		return nil, fmt.Errorf("LLM client not found: %s", name)
	}
	return client, nil
}

// GetTTS returns a TTS provider by name.
func (r *Registry) GetTTS(name string) (TTSProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	provider, ok := r.ttsProviders[name]
	if !ok {
		return nil, fmt.Errorf("TTS provider not found: %s", name)
	}
	return provider, nil
}

// GetImage returns an image provider by name.
func (r *Registry) GetImage(name string) (ImageProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	provider, ok := r.imgProviders[name]
	if !ok {
		return nil, fmt.Errorf("image provider not found: %s", name)
	}
	return provider, nil
}

// ListLLM returns all registered LLM client names.
func (r *Registry) ListLLM() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.llmClients))
	for name := range r.llmClients {
		names = append(names, name)
	}
	return names
}

// ListTTS returns all registered TTS provider names.
func (r *Registry) ListTTS() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.ttsProviders))
	for name := range r.ttsProviders {
		names = append(names, name)
	}
	return names
}

// ListImage returns all registered image provider names.
func (r *Registry) ListImage() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.imgProviders))
	for name := range r.imgProviders {
		names = append(names, name)
	}
	return names
}

// HasTTS checks if a TTS provider is registered.
func (r *Registry) HasTTS(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.ttsProviders[name]
	return ok
}

// RegistryConfig defines the providers to instantiate from config.
type RegistryConfig struct {
	LLMProviders   map[string]LLMProviderConfig
	TTSProviders   map[string]TTSProviderConfig
	ImageProviders map[string]ImageProviderConfig
}

// LLMProviderConfig matches config.LLMProviderCfg with resolved API key.
type LLMProviderConfig struct {
	Type      string // "openrouter"
	Model     string
	APIKey    string // Resolved API key
	RateLimit float64
	Enabled   bool
}

// TTSProviderConfig matches config.TTSProviderCfg with resolved API key.
type TTSProviderConfig struct {
	Type       string // "elevenlabs", "deepgram", "openai"
	Model      string
	Voice      string
	Format     string
	APIKey     string // Resolved API key
	RateLimit  float64
	Stability  float64
	Similarity float64
	Enabled    bool
}

// ImageProviderConfig matches config.ImageProviderCfg.
type ImageProviderConfig struct {
	Type           string // "pollinations"
	RateLimit      float64
	MaxAttempts    int
	TimeoutSeconds int
	Width          int
	Height         int
	Enabled        bool
}

// NewRegistryFromConfig creates a registry with providers based on configuration.
// Only enabled providers (with API keys where required) are registered.
func NewRegistryFromConfig(cfg RegistryConfig) *Registry {
	r := NewRegistry()
	r.applyConfig(cfg)
	return r
}

// Reload updates the registry based on new configuration. Providers that are
// no longer configured are unregistered; changed ones are recreated.
func (r *Registry) Reload(cfg RegistryConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	wantLLM := make(map[string]bool)
	wantTTS := make(map[string]bool)
	wantImg := make(map[string]bool)

	for name, provCfg := range cfg.LLMProviders {
		if !provCfg.Enabled || provCfg.APIKey == "" {
			continue
		}
		wantLLM[name] = true

		existing, hasExisting := r.llmClients[name]
		if !hasExisting || needsLLMUpdate(existing, provCfg) {
			if client := createLLMClient(provCfg); client != nil {
				r.llmClients[name] = client
				r.logReload(hasExisting, "LLM client", name, provCfg.Type)
			}
		}
	}

	for name, provCfg := range cfg.TTSProviders {
		if !provCfg.Enabled || provCfg.APIKey == "" {
			continue
		}
		wantTTS[name] = true

		existing, hasExisting := r.ttsProviders[name]
		if !hasExisting || needsTTSUpdate(existing, provCfg) {
			if provider := createTTSProvider(provCfg); provider != nil {
				r.ttsProviders[name] = provider
				r.logReload(hasExisting, "TTS provider", name, provCfg.Type)
			}
		}
	}

	for name, provCfg := range cfg.ImageProviders {
		if !provCfg.Enabled {
			continue
		}
		wantImg[name] = true

		// Image providers are cheap to recreate; always rebuild on reload.
		if provider := createImageProvider(provCfg); provider != nil {
			_, hasExisting := r.imgProviders[name]
			r.imgProviders[name] = provider
			r.logReload(hasExisting, "image provider", name, provCfg.Type)
		}
	}

	for name := range r.llmClients {
		if !wantLLM[name] {
			delete(r.llmClients, name)
			if r.logger != nil {
				r.logger.Info("unregistered LLM client", "name", name)
			}
		}
	}
	for name := range r.ttsProviders {
		if !wantTTS[name] {
			delete(r.ttsProviders, name)
			if r.logger != nil {
				r.logger.Info("unregistered TTS provider", "name", name)
			}
		}
	}
	for name := range r.imgProviders {
		if !wantImg[name] {
			delete(r.imgProviders, name)
			if r.logger != nil {
				r.logger.Info("unregistered image provider", "name", name)
			}
		}
	}
}

func (r *Registry) logReload(updated bool, kind, name, typ string) {
	if r.logger == nil {
		return
	}
	if updated {
		r.logger.Info("updated "+kind, "name", name, "type", typ)
	} else {
		r.logger.Info("registered "+kind, "name", name, "type", typ)
	}
}

// applyConfig applies configuration without locking (used during init).
func (r *Registry) applyConfig(cfg RegistryConfig) {
	for name, provCfg := range cfg.LLMProviders {
		if !provCfg.Enabled || provCfg.APIKey == "" {
			continue
		}
		if client := createLLMClient(provCfg); client != nil {
			r.llmClients[name] = client
		}
	}
	for name, provCfg := range cfg.TTSProviders {
		if !provCfg.Enabled || provCfg.APIKey == "" {
			continue
		}
		if provider := createTTSProvider(provCfg); provider != nil {
			r.ttsProviders[name] = provider
		}
	}
	for name, provCfg := range cfg.ImageProviders {
		if !provCfg.Enabled {
			continue
		}
		if provider := createImageProvider(provCfg); provider != nil {
			r.imgProviders[name] = provider
		}
	}
}

// createLLMClient creates an LLM client based on provider type.
func createLLMClient(cfg LLMProviderConfig) LLMClient {
	switch cfg.Type {
	case "openrouter":
		return NewOpenRouterClient(OpenRouterConfig{
			APIKey:       cfg.APIKey,
			DefaultModel: cfg.Model,
			RPS:          cfg.RateLimit,
		})
	default:
		return nil
	}
}

// createTTSProvider creates a TTS provider based on provider type.
func createTTSProvider(cfg TTSProviderConfig) TTSProvider {
	switch cfg.Type {
	case "elevenlabs":
		return NewElevenLabsTTSClient(ElevenLabsTTSConfig{
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			Voice:      cfg.Voice,
			Format:     cfg.Format,
			Stability:  cfg.Stability,
			Similarity: cfg.Similarity,
			RateLimit:  cfg.RateLimit,
		})
	case "deepgram":
		return NewDeepgramTTSClient(DeepgramTTSConfig{
			APIKey:    cfg.APIKey,
			Voice:     cfg.Voice,
			Format:    cfg.Format,
			RateLimit: cfg.RateLimit,
		})
	case "openai":
		return NewOpenAITTSClient(OpenAITTSConfig{
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			Voice:     cfg.Voice,
			RateLimit: cfg.RateLimit,
		})
	default:
		return nil
	}
}

// createImageProvider creates an image provider based on provider type.
func createImageProvider(cfg ImageProviderConfig) ImageProvider {
	switch cfg.Type {
	case "pollinations":
		return NewPollinationsClient(PollinationsConfig{
			RateLimit:      cfg.RateLimit,
			MaxAttempts:    cfg.MaxAttempts,
			RequestTimeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
			Width:          cfg.Width,
			Height:         cfg.Height,
		})
	default:
		return nil
	}
}

// needsLLMUpdate checks if an LLM client needs to be recreated.
func needsLLMUpdate(client LLMClient, cfg LLMProviderConfig) bool {
	switch c := client.(type) {
	case *OpenRouterClient:
		return c.apiKey != cfg.APIKey ||
			c.defaultModel != cfg.Model ||
			c.rps != cfg.RateLimit
	default:
		return true
	}
}

// needsTTSUpdate checks if a TTS provider needs to be recreated.
func needsTTSUpdate(provider TTSProvider, cfg TTSProviderConfig) bool {
	switch p := provider.(type) {
	case *ElevenLabsTTSClient:
		return p.apiKey != cfg.APIKey ||
			p.model != cfg.Model ||
			p.voice != cfg.Voice ||
			p.rateLimit != cfg.RateLimit
	case *DeepgramTTSClient:
		return p.apiKey != cfg.APIKey ||
			p.voice != cfg.Voice ||
			p.rateLimit != cfg.RateLimit
	case *OpenAITTSClient:
		return p.apiKey != cfg.APIKey ||
			p.model != cfg.Model ||
			p.voice != cfg.Voice
	default:
		return true
	}
}
