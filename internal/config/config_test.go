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

	or, ok := cfg.GetLLMProvider("openrouter")
	if !ok {
		t.Fatal("expected default openrouter provider")
	}
	if or.APIKey != "${OPENROUTER_API_KEY}" {
		t.Error("expected openrouter API key placeholder")
	}
	if !or.Enabled {
		t.Error("expected openrouter enabled by default")
	}

	if cfg.Extraction.Provider != "openrouter" {
		t.Errorf("expected default extraction provider openrouter, got %s", cfg.Extraction.Provider)
	}
	if cfg.Extraction.CropRatio != 0.9 {
		t.Errorf("expected default crop ratio 0.9, got %v", cfg.Extraction.CropRatio)
	}
	if cfg.Extraction.RenderDPI != 150 {
		t.Errorf("expected default render DPI 150, got %d", cfg.Extraction.RenderDPI)
	}
	if cfg.Extraction.HistoryWindow != 10 {
		t.Errorf("expected default history window 10, got %d", cfg.Extraction.HistoryWindow)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 8080 {
		t.Errorf("expected default server 127.0.0.1:8080, got %s:%d", cfg.Server.Host, cfg.Server.Port)
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

func TestExtractionModel(t *testing.T) {
	cfg := &Config{
		LLMProviders: map[string]LLMProviderCfg{
			"openrouter": {Type: "openrouter", Model: "provider-model"},
		},
		Extraction: ExtractionCfg{Provider: "openrouter"},
	}

	if m := cfg.ExtractionModel(); m != "provider-model" {
		t.Errorf("expected provider model, got %s", m)
	}

	cfg.Extraction.Model = "override-model"
	if m := cfg.ExtractionModel(); m != "override-model" {
		t.Errorf("expected override model, got %s", m)
	}
}

func TestToProviderRegistryConfig(t *testing.T) {
	os.Setenv("TEST_OPENROUTER_KEY", "or-key-123")
	defer os.Unsetenv("TEST_OPENROUTER_KEY")

	cfg := &Config{
		LLMProviders: map[string]LLMProviderCfg{
			"openrouter": {Type: "openrouter", Model: "m", APIKey: "${TEST_OPENROUTER_KEY}", Enabled: true},
			"literal":    {Type: "openai", APIKey: "direct-key", Enabled: true},
		},
	}

	rc := cfg.ToProviderRegistryConfig()
	if rc.LLMProviders["openrouter"].APIKey != "or-key-123" {
		t.Errorf("expected resolved key, got %s", rc.LLMProviders["openrouter"].APIKey)
	}
	if rc.LLMProviders["literal"].APIKey != "direct-key" {
		t.Errorf("expected literal key, got %s", rc.LLMProviders["literal"].APIKey)
	}
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	configFile := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configFile, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return configFile
}

func TestNewManager(t *testing.T) {
	configFile := writeConfigFile(t, `
extraction:
  provider: openrouter
  crop_ratio: 0.8
`)

	mgr, err := NewManager(configFile)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	cfg := mgr.Get()
	if cfg.Extraction.CropRatio != 0.8 {
		t.Errorf("expected crop_ratio 0.8, got %v", cfg.Extraction.CropRatio)
	}
	if cfg.Extraction.Provider != "openrouter" {
		t.Errorf("expected provider openrouter, got %s", cfg.Extraction.Provider)
	}
}

func TestManager_OnChange_Multiple(t *testing.T) {
	configFile := writeConfigFile(t, "extraction:\n  provider: openrouter\n")

	mgr, err := NewManager(configFile)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

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
	configFile := writeConfigFile(t, "extraction:\n  provider: openrouter\n")

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
				_ = cfg.Extraction.Provider
			}
			done <- struct{}{}
		}()
	}

	for i := 0; i < 10; i++ {
		<-done
	}
}

func TestManager_WatchConfig(t *testing.T) {
	configFile := writeConfigFile(t, "extraction:\n  provider: openrouter\n  crop_ratio: 0.9\n")

	mgr, err := NewManager(configFile)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	if got := mgr.Get().Extraction.CropRatio; got != 0.9 {
		t.Errorf("initial value mismatch: expected 0.9, got %v", got)
	}

	var callbackCount atomic.Int32
	var lastValue atomic.Value

	mgr.OnChange(func(cfg *Config) {
		callbackCount.Add(1)
		lastValue.Store(cfg.Extraction.CropRatio)
	})

	mgr.WatchConfig()

	// Give fsnotify time to set up the watcher
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(configFile, []byte("extraction:\n  provider: openrouter\n  crop_ratio: 0.7\n"), 0644); err != nil {
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

	if got := mgr.Get().Extraction.CropRatio; got != 0.7 {
		t.Errorf("config not updated: expected 0.7, got %v", got)
	}

	if v := lastValue.Load(); v != 0.7 {
		t.Errorf("callback received wrong value: expected 0.7, got %v", v)
	}
}
