package config

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if len(cfg.LLMProviders) == 0 {
		t.Error("expected default LLM providers")
	}
	if cfg.LLMProviders["openrouter"].APIKey != "${OPENROUTER_API_KEY}" {
		t.Error("expected openrouter API key placeholder")
	}
	if len(cfg.Defaults.TTSProviders) == 0 {
		t.Error("expected a default TTS fallback chain")
	}
	if cfg.Generation.MaxAudioChars == 0 {
		t.Error("expected a default audio character cap")
	}
	if cfg.Generation.Poll.GrowthFactor <= 1.0 {
		t.Errorf("poll growth factor = %v, want > 1", cfg.Generation.Poll.GrowthFactor)
	}
}

func TestResolveEnvVars(t *testing.T) {
	t.Run("resolves environment variable", func(t *testing.T) {
		os.Setenv("TEST_API_KEY", "secret123")
		defer os.Unsetenv("TEST_API_KEY")

		result := ResolveEnvVars("${TEST_API_KEY}")
		if result != "secret123" {
			t.Errorf("expected secret123, got %s", result)
		}
	})

	t.Run("returns empty for missing env var", func(t *testing.T) {
		result := ResolveEnvVars("${DEFINITELY_NOT_SET_12345}")
		if result != "" {
			t.Errorf("expected empty string, got %s", result)
		}
	})

	t.Run("leaves literal values unchanged", func(t *testing.T) {
		result := ResolveEnvVars("literal-value")
		if result != "literal-value" {
			t.Errorf("expected literal-value, got %s", result)
		}
	})
}

func TestConfig_ToProviderRegistryConfig(t *testing.T) {
	os.Setenv("TEST_ELEVENLABS_KEY", "el-key-123")
	defer os.Unsetenv("TEST_ELEVENLABS_KEY")

	cfg := &Config{
		LLMProviders: map[string]LLMProviderCfg{
			"openrouter": {Type: "openrouter", APIKey: "direct-key", Enabled: true},
		},
		TTSProviders: map[string]TTSProviderCfg{
			"elevenlabs": {Type: "elevenlabs", APIKey: "${TEST_ELEVENLABS_KEY}", Enabled: true},
		},
		ImageProviders: map[string]ImageProviderCfg{
			"pollinations": {Type: "pollinations", Enabled: true},
		},
	}

	reg := cfg.ToProviderRegistryConfig()

	if reg.LLMProviders["openrouter"].APIKey != "direct-key" {
		t.Errorf("literal key not preserved: %s", reg.LLMProviders["openrouter"].APIKey)
	}
	if reg.TTSProviders["elevenlabs"].APIKey != "el-key-123" {
		t.Errorf("env var key not resolved: %s", reg.TTSProviders["elevenlabs"].APIKey)
	}
	if _, ok := reg.ImageProviders["pollinations"]; !ok {
		t.Error("image provider missing from registry config")
	}
}

func TestConfig_TTSChain(t *testing.T) {
	cfg := &Config{
		TTSProviders: map[string]TTSProviderCfg{
			"elevenlabs": {Type: "elevenlabs", Enabled: true},
			"deepgram":   {Type: "deepgram", Enabled: false},
			"openai":     {Type: "openai", Enabled: true},
		},
		Defaults: DefaultsCfg{
			TTSProviders: []string{"elevenlabs", "deepgram", "openai", "unknown"},
		},
	}

	chain := cfg.TTSChain()
	want := []string{"elevenlabs", "openai"}
	if len(chain) != len(want) {
		t.Fatalf("TTSChain() = %v, want %v", chain, want)
	}
	for i := range want {
		if chain[i] != want[i] {
			t.Errorf("TTSChain()[%d] = %s, want %s", i, chain[i], want[i])
		}
	}
}

func TestNewManager(t *testing.T) {
	t.Run("loads from config file", func(t *testing.T) {
		tmpDir := t.TempDir()
		configFile := filepath.Join(tmpDir, "config.yaml")

		configContent := `
server:
  host: "0.0.0.0"
  port: 9099
`
		if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
			t.Fatalf("failed to write config file: %v", err)
		}

		mgr, err := NewManager(configFile)
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}

		cfg := mgr.Get()
		if cfg.Server.Port != 9099 {
			t.Errorf("expected port 9099, got %d", cfg.Server.Port)
		}
	})
}

func TestManager_OnChange_Multiple(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.yaml")

	configContent := `
server:
  port: 9099
`
	if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	mgr, err := NewManager(configFile)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	// Register multiple callbacks
	mgr.OnChange(func(cfg *Config) {})
	mgr.OnChange(func(cfg *Config) {})
	mgr.OnChange(func(cfg *Config) {})

	mgr.mu.RLock()
	if len(mgr.callbacks) != 3 {
		t.Errorf("expected 3 callbacks, got %d", len(mgr.callbacks))
	}
	mgr.mu.RUnlock()
}

func TestManager_Get_ThreadSafe(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.yaml")

	configContent := `
server:
  port: 9099
`
	if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	mgr, err := NewManager(configFile)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	// Call Get concurrently to verify no race conditions
	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				cfg := mgr.Get()
				_ = cfg.Server.Port
			}
			done <- struct{}{}
		}()
	}

	// Wait for all goroutines
	for i := 0; i < 10; i++ {
		<-done
	}
}

func TestManager_WatchConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.yaml")

	configContent := `
server:
  port: 9099
`
	if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	mgr, err := NewManager(configFile)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	// Verify initial value
	cfg := mgr.Get()
	if cfg.Server.Port != 9099 {
		t.Errorf("initial value mismatch: expected 9099, got %d", cfg.Server.Port)
	}

	// Track callback invocations
	var callbackCount atomic.Int32
	var lastPort atomic.Int32

	mgr.OnChange(func(cfg *Config) {
		callbackCount.Add(1)
		lastPort.Store(int32(cfg.Server.Port))
	})

	// Start watching
	mgr.WatchConfig()

	// Give fsnotify time to set up the watcher
	time.Sleep(100 * time.Millisecond)

	// Update the config file
	newContent := `
server:
  port: 9100
`
	if err := os.WriteFile(configFile, []byte(newContent), 0644); err != nil {
		t.Fatalf("failed to write updated config file: %v", err)
	}

	// Wait for the watcher to detect the change (fsnotify is async)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if callbackCount.Load() > 0 {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	if callbackCount.Load() == 0 {
		t.Error("callback was not invoked after config file change")
	}

	// Verify the config was updated
	newCfg := mgr.Get()
	if newCfg.Server.Port != 9100 {
		t.Errorf("config not updated: expected 9100, got %d", newCfg.Server.Port)
	}

	if lastPort.Load() != 9100 {
		t.Errorf("callback received wrong value: expected 9100, got %d", lastPort.Load())
	}
}
