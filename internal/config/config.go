// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Browser  BrowserConfig  `mapstructure:"browser" yaml:"browser"`
	Network  NetworkConfig  `mapstructure:"network" yaml:"network"`
	Explorer ExplorerConfig `mapstructure:"explorer" yaml:"explorer"`
	LLM      LLMConfig      `mapstructure:"llm" yaml:"llm"`
	// Run gets its marching orders from CLI flags, not the config file.
	Run RunConfig `mapstructure:"-" yaml:"-"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// BrowserConfig holds settings for the headless browser instance.
type BrowserConfig struct {
	Headless        bool     `mapstructure:"headless" yaml:"headless"`
	DisableCache    bool     `mapstructure:"disable_cache" yaml:"disable_cache"`
	IgnoreTLSErrors bool     `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	Debug           bool     `mapstructure:"debug" yaml:"debug"`
	Args            []string `mapstructure:"args" yaml:"args"`
	WindowWidth     int      `mapstructure:"window_width" yaml:"window_width"`
	WindowHeight    int      `mapstructure:"window_height" yaml:"window_height"`
}

// NetworkConfig tunes page load and settle timing.
type NetworkConfig struct {
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	QuietPeriod       time.Duration `mapstructure:"quiet_period" yaml:"quiet_period"`
	PostLoadWait      time.Duration `mapstructure:"post_load_wait" yaml:"post_load_wait"`
}

// ExplorerConfig tunes the exploration loop itself.
type ExplorerConfig struct {
	MaxIterations int `mapstructure:"max_iterations" yaml:"max_iterations"`
	// ResetThreshold is the tried-set size above which the next view reset
	// reloads the page and clears the set.
	ResetThreshold int           `mapstructure:"reset_threshold" yaml:"reset_threshold"`
	ActionTimeout  time.Duration `mapstructure:"action_timeout" yaml:"action_timeout"`
}

// LLMProvider defines the supported LLM providers.
type LLMProvider string

const (
	ProviderGoogle LLMProvider = "google"
	ProviderOllama LLMProvider = "ollama"
)

// LLMConfig configures the decision oracle's model backend.
type LLMConfig struct {
	Provider    LLMProvider   `mapstructure:"provider" yaml:"provider"`
	Model       string        `mapstructure:"model" yaml:"model"`
	APIKey      string        `mapstructure:"api_key" yaml:"-"`
	Endpoint    string        `mapstructure:"endpoint" yaml:"endpoint"`
	APITimeout  time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
	Temperature float32       `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens" yaml:"max_tokens"`
	// RequestsPerMinute throttles oracle calls; 0 disables throttling.
	RequestsPerMinute float64 `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`
}

// RunConfig holds settings populated from CLI flags for a specific run.
type RunConfig struct {
	Targets []string
	Output  string
	Format  string
}

// NewDefaultConfig creates a configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Should not happen with defaults alone.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "doctrail")
	v.SetDefault("logger.log_file", "doctrail.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.disable_cache", true)
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.debug", false)
	v.SetDefault("browser.window_width", 1440)
	v.SetDefault("browser.window_height", 900)

	// -- Network --
	v.SetDefault("network.navigation_timeout", "90s")
	v.SetDefault("network.quiet_period", "500ms")
	v.SetDefault("network.post_load_wait", "2s")

	// -- Explorer --
	v.SetDefault("explorer.max_iterations", 20)
	v.SetDefault("explorer.reset_threshold", 5)
	v.SetDefault("explorer.action_timeout", "30s")

	// -- LLM --
	v.SetDefault("llm.provider", "ollama")
	v.SetDefault("llm.model", "qwen2.5:14b")
	v.SetDefault("llm.endpoint", "http://localhost:11434")
	v.SetDefault("llm.api_timeout", "120s")
	v.SetDefault("llm.temperature", 0.1)
	v.SetDefault("llm.max_tokens", 2048)
	v.SetDefault("llm.requests_per_minute", 0)
}

// NewConfigFromViper creates a configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Bind environment variables for sensitive data.
	v.BindEnv("llm.api_key", "DOCTRAIL_LLM_API_KEY")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Explorer.MaxIterations <= 0 {
		return fmt.Errorf("explorer.max_iterations must be a positive integer")
	}
	if c.Explorer.ResetThreshold <= 0 {
		return fmt.Errorf("explorer.reset_threshold must be a positive integer")
	}
	if c.Network.NavigationTimeout <= 0 {
		return fmt.Errorf("network.navigation_timeout must be a positive duration")
	}
	switch c.LLM.Provider {
	case ProviderGoogle:
		if c.LLM.APIKey == "" {
			return fmt.Errorf("llm.api_key is required for the google provider. Set DOCTRAIL_LLM_API_KEY")
		}
	case ProviderOllama:
		if c.LLM.Endpoint == "" {
			return fmt.Errorf("llm.endpoint is required for the ollama provider")
		}
	default:
		return fmt.Errorf("unsupported llm.provider %q", c.LLM.Provider)
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("llm.model is a required configuration field")
	}
	return nil
}
