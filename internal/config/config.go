// Package config handles application configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/channelchat/channelchat/internal/core"
	"github.com/channelchat/channelchat/internal/credits"
	"github.com/channelchat/channelchat/internal/textgen"
)

// Config represents the application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Generation GenerationConfig `yaml:"generation"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Debate     DebateConfig     `yaml:"debate"`
	Runner     RunnerConfig     `yaml:"runner"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// DatabaseConfig holds storage settings.
type DatabaseConfig struct {
	Path string `yaml:"path,omitempty"`
}

// GenerationConfig holds text-generation service settings.
type GenerationConfig struct {
	BaseURL    string        `yaml:"base_url"`
	APIKey     string        `yaml:"api_key,omitempty"`
	Model      string        `yaml:"model"`
	MaxTokens  int           `yaml:"max_tokens,omitempty"`
	Timeout    time.Duration `yaml:"timeout,omitempty"`
	MaxRetries int           `yaml:"max_retries,omitempty"`
}

// RetrievalConfig holds chunk-retrieval service settings.
type RetrievalConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key,omitempty"`
}

// DebateConfig holds debate state-machine settings.
type DebateConfig struct {
	MaxTurns   int `yaml:"max_turns"`
	DebateCost int `yaml:"debate_cost"`
	ChatCredit int `yaml:"chat_credit"`
}

// RunnerConfig holds client-orchestration settings.
type RunnerConfig struct {
	Debounce     time.Duration `yaml:"debounce"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8480,
		},
		Generation: GenerationConfig{
			Model:      "gpt-4o-mini",
			MaxTokens:  textgen.DefaultMaxTokens,
			Timeout:    textgen.DefaultTimeout,
			MaxRetries: 2,
		},
		Debate: DebateConfig{
			MaxTurns:   core.DefaultMaxTurns,
			DebateCost: credits.DefaultDebateCost,
			ChatCredit: credits.DefaultChatCredit,
		},
		Runner: RunnerConfig{
			Debounce:     2 * time.Second,
			PollInterval: 3 * time.Second,
		},
	}
}

// Load loads configuration from the default path.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigPath())
}

// LoadFrom loads configuration from a specific path, then applies .env
// and environment overrides.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// No config file, proceed with defaults
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	// .env values fill the process environment without clobbering
	// variables set by the caller.
	godotenv.Load(".env")
	applyEnvOverrides(cfg)

	return cfg, nil
}

// applyEnvOverrides updates the configuration from environment variables.
func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv("CHANNELCHAT_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			cfg.Server.Port = port
		}
	}
	if val := os.Getenv("CHANNELCHAT_DB"); val != "" {
		cfg.Database.Path = val
	}
	if val := os.Getenv("GENERATION_BASE_URL"); val != "" {
		cfg.Generation.BaseURL = val
	}
	if val := os.Getenv("GENERATION_API_KEY"); val != "" {
		cfg.Generation.APIKey = val
	}
	if val := os.Getenv("GENERATION_MODEL"); val != "" {
		cfg.Generation.Model = val
	}
	if val := os.Getenv("GENERATION_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Generation.Timeout = d
		}
	}
	if val := os.Getenv("RETRIEVAL_BASE_URL"); val != "" {
		cfg.Retrieval.BaseURL = val
	}
	if val := os.Getenv("RETRIEVAL_API_KEY"); val != "" {
		cfg.Retrieval.APIKey = val
	}
	if val := os.Getenv("MAX_TURNS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			cfg.Debate.MaxTurns = n
		}
	}
	if val := os.Getenv("DEBATE_COST"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			cfg.Debate.DebateCost = n
		}
	}
	if val := os.Getenv("CHAT_CREDIT"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			cfg.Debate.ChatCredit = n
		}
	}
}

// GeneratorConfig converts the generation section into a textgen config.
func (c *Config) GeneratorConfig() textgen.Config {
	return textgen.Config{
		Name:       "channelchat",
		BaseURL:    c.Generation.BaseURL,
		APIKey:     c.Generation.APIKey,
		Model:      c.Generation.Model,
		MaxTokens:  c.Generation.MaxTokens,
		Timeout:    c.Generation.Timeout,
		MaxRetries: c.Generation.MaxRetries,
	}
}

// Save saves the configuration to the default path.
func (c *Config) Save() error {
	return c.SaveTo(DefaultConfigPath())
}

// SaveTo saves the configuration to a specific path.
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// DefaultConfigPath returns the default configuration file path.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "channelchat.yaml"
	}
	return filepath.Join(home, ".channelchat", "config.yaml")
}
