package providers

import (
	"testing"
)

func testRegistryConfig() RegistryConfig {
	return RegistryConfig{
		LLMProviders: map[string]LLMProviderConfig{
			"openrouter": {
				Type:      "openrouter",
				Model:     "anthropic/claude-3.5-sonnet",
				APIKey:    "llm-key",
				RateLimit: 10,
				Enabled:   true,
			},
		},
		TTSProviders: map[string]TTSProviderConfig{
			"elevenlabs": {
				Type:      "elevenlabs",
				Voice:     "v1",
				APIKey:    "tts-key",
				RateLimit: 10,
				Enabled:   true,
			},
			"deepgram": {
				Type:    "deepgram",
				APIKey:  "dg-key",
				Enabled: true,
			},
		},
		ImageProviders: map[string]ImageProviderConfig{
			"pollinations": {
				Type:    "pollinations",
				Enabled: true,
			},
		},
	}
}

func TestNewRegistryFromConfig(t *testing.T) {
	reg := NewRegistryFromConfig(testRegistryConfig())

	if _, err := reg.GetLLM("openrouter"); err != nil {
		t.Errorf("GetLLM(openrouter) error = %v", err)
	}
	if _, err := reg.GetTTS("elevenlabs"); err != nil {
		t.Errorf("GetTTS(elevenlabs) error = %v", err)
	}
	if _, err := reg.GetTTS("deepgram"); err != nil {
		t.Errorf("GetTTS(deepgram) error = %v", err)
	}
	if _, err := reg.GetImage("pollinations"); err != nil {
		t.Errorf("GetImage(pollinations) error = %v", err)
	}
	if _, err := reg.GetTTS("missing"); err == nil {
		t.Error("GetTTS(missing) error = nil, want error")
	}
}

func TestRegistryDisabledAndKeylessSkipped(t *testing.T) {
	cfg := testRegistryConfig()
	dg := cfg.TTSProviders["deepgram"]
	dg.Enabled = false
	cfg.TTSProviders["deepgram"] = dg

	el := cfg.TTSProviders["elevenlabs"]
	el.APIKey = ""
	cfg.TTSProviders["elevenlabs"] = el

	reg := NewRegistryFromConfig(cfg)

	if reg.HasTTS("deepgram") {
		t.Error("disabled provider was registered")
	}
	if reg.HasTTS("elevenlabs") {
		t.Error("provider without API key was registered")
	}
}

func TestRegistryReload(t *testing.T) {
	reg := NewRegistryFromConfig(testRegistryConfig())

	t.Run("removes dropped providers", func(t *testing.T) {
		cfg := testRegistryConfig()
		delete(cfg.TTSProviders, "deepgram")
		reg.Reload(cfg)

		if reg.HasTTS("deepgram") {
			t.Error("deepgram still registered after removal from config")
		}
		if !reg.HasTTS("elevenlabs") {
			t.Error("elevenlabs dropped during reload")
		}
	})

	t.Run("recreates changed providers", func(t *testing.T) {
		cfg := testRegistryConfig()
		delete(cfg.TTSProviders, "deepgram")

		before, err := reg.GetTTS("elevenlabs")
		if err != nil {
			t.Fatalf("GetTTS() error = %v", err)
		}

		el := cfg.TTSProviders["elevenlabs"]
		el.Voice = "v2"
		cfg.TTSProviders["elevenlabs"] = el
		reg.Reload(cfg)

		after, err := reg.GetTTS("elevenlabs")
		if err != nil {
			t.Fatalf("GetTTS() error = %v", err)
		}
		if before == after {
			t.Error("changed provider was not recreated")
		}
	})

	t.Run("unchanged LLM survives reload", func(t *testing.T) {
		cfg := testRegistryConfig()
		delete(cfg.TTSProviders, "deepgram")
		el := cfg.TTSProviders["elevenlabs"]
		el.Voice = "v2"
		cfg.TTSProviders["elevenlabs"] = el

		before, _ := reg.GetLLM("openrouter")
		reg.Reload(cfg)
		after, _ := reg.GetLLM("openrouter")
		if before != after {
			t.Error("unchanged LLM client was recreated")
		}
	})
}

func TestRegistryManualRegistration(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterLLM("mock", NewMockClient())
	reg.RegisterTTS("mock-tts", NewMockTTSProvider())
	reg.RegisterImage("mock-image", NewMockImageProvider())

	if got := len(reg.ListLLM()); got != 1 {
		t.Errorf("ListLLM() len = %d, want 1", got)
	}
	if got := len(reg.ListTTS()); got != 1 {
		t.Errorf("ListTTS() len = %d, want 1", got)
	}
	if got := len(reg.ListImage()); got != 1 {
		t.Errorf("ListImage() len = %d, want 1", got)
	}
}
