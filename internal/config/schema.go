package config

import (
	"github.com/pvolkov/tome/internal/classify"
	"github.com/pvolkov/tome/internal/raster"
)

// Config holds tome configuration.
// Stored at: ~/.tome/config.yaml
type Config struct {
	LLMProviders map[string]LLMProviderCfg `mapstructure:"llm_providers" yaml:"llm_providers"`
	Extraction   ExtractionCfg             `mapstructure:"extraction" yaml:"extraction"`
	Server       ServerCfg                 `mapstructure:"server" yaml:"server"`
}

// LLMProviderCfg configures an LLM provider.
type LLMProviderCfg struct {
	Type    string `mapstructure:"type" yaml:"type"`       // "openrouter", "openai"
	Model   string `mapstructure:"model" yaml:"model"`     // Model name
	APIKey  string `mapstructure:"api_key" yaml:"api_key"` // API key (supports ${ENV_VAR} syntax)
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
}

// ExtractionCfg holds segmentation run parameters.
type ExtractionCfg struct {
	Provider      string  `mapstructure:"provider" yaml:"provider"`             // LLM provider name
	Model         string  `mapstructure:"model" yaml:"model"`                   // Override of the provider's model
	CropRatio     float64 `mapstructure:"crop_ratio" yaml:"crop_ratio"`         // Top fraction of each page kept
	RenderDPI     int     `mapstructure:"render_dpi" yaml:"render_dpi"`         // Rasterization resolution
	JPEGQuality   int     `mapstructure:"jpeg_quality" yaml:"jpeg_quality"`     // JPEG encode quality
	HistoryWindow int     `mapstructure:"history_window" yaml:"history_window"` // Rolling classifier history size
}

// ServerCfg holds HTTP server settings.
type ServerCfg struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		LLMProviders: map[string]LLMProviderCfg{
			"openrouter": {
				Type:    "openrouter",
				Model:   "anthropic/claude-sonnet-4",
				APIKey:  "${OPENROUTER_API_KEY}",
				Enabled: true,
			},
			"openai": {
				Type:    "openai",
				Model:   "gpt-4o",
				APIKey:  "${OPENAI_API_KEY}",
				Enabled: false,
			},
		},
		Extraction: ExtractionCfg{
			Provider:      "openrouter",
			CropRatio:     raster.DefaultCropRatio,
			RenderDPI:     raster.DefaultDPI,
			JPEGQuality:   raster.DefaultJPEGQuality,
			HistoryWindow: classify.DefaultHistoryWindow,
		},
		Server: ServerCfg{
			Host: "127.0.0.1",
			Port: 8080,
		},
	}
}

// GetLLMProvider returns an LLM provider config by name.
func (c *Config) GetLLMProvider(name string) (LLMProviderCfg, bool) {
	cfg, ok := c.LLMProviders[name]
	return cfg, ok
}

// EnabledLLMProviders returns all enabled LLM providers.
func (c *Config) EnabledLLMProviders() map[string]LLMProviderCfg {
	result := make(map[string]LLMProviderCfg)
	for name, cfg := range c.LLMProviders {
		if cfg.Enabled {
			result[name] = cfg
		}
	}
	return result
}

// ExtractionModel resolves the model used for extraction runs: the explicit
// extraction override when set, otherwise the selected provider's model.
func (c *Config) ExtractionModel() string {
	if c.Extraction.Model != "" {
		return c.Extraction.Model
	}
	if p, ok := c.GetLLMProvider(c.Extraction.Provider); ok {
		return p.Model
	}
	return ""
}
