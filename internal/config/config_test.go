package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/channelchat/channelchat/internal/core"
	"github.com/channelchat/channelchat/internal/credits"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Server.Port != 8480 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Debate.MaxTurns != core.DefaultMaxTurns {
		t.Errorf("max_turns = %d", cfg.Debate.MaxTurns)
	}
	if cfg.Debate.DebateCost != credits.DefaultDebateCost {
		t.Errorf("debate_cost = %d", cfg.Debate.DebateCost)
	}
	if cfg.Debate.ChatCredit != credits.DefaultChatCredit {
		t.Errorf("chat_credit = %d", cfg.Debate.ChatCredit)
	}
}

func TestLoadFrom(t *testing.T) {
	t.Run("MissingFileUsesDefaults", func(t *testing.T) {
		cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml"))
		if err != nil {
			t.Fatalf("LoadFrom failed: %v", err)
		}
		if cfg.Server.Port != 8480 {
			t.Errorf("port = %d", cfg.Server.Port)
		}
	})

	t.Run("FileOverridesDefaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		data := []byte(`server:
  port: 9999
debate:
  max_turns: 6
  debate_cost: 25
generation:
  base_url: http://localhost:4000
  model: test-model
`)
		if err := os.WriteFile(path, data, 0644); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		cfg, err := LoadFrom(path)
		if err != nil {
			t.Fatalf("LoadFrom failed: %v", err)
		}
		if cfg.Server.Port != 9999 {
			t.Errorf("port = %d", cfg.Server.Port)
		}
		if cfg.Debate.MaxTurns != 6 {
			t.Errorf("max_turns = %d", cfg.Debate.MaxTurns)
		}
		if cfg.Debate.DebateCost != 25 {
			t.Errorf("debate_cost = %d", cfg.Debate.DebateCost)
		}
		if cfg.Generation.Model != "test-model" {
			t.Errorf("model = %q", cfg.Generation.Model)
		}
	})

	t.Run("EnvironmentOverridesFile", func(t *testing.T) {
		t.Setenv("CHANNELCHAT_PORT", "7070")
		t.Setenv("GENERATION_BASE_URL", "http://env-host:1234")
		t.Setenv("MAX_TURNS", "4")

		cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml"))
		if err != nil {
			t.Fatalf("LoadFrom failed: %v", err)
		}
		if cfg.Server.Port != 7070 {
			t.Errorf("port = %d", cfg.Server.Port)
		}
		if cfg.Generation.BaseURL != "http://env-host:1234" {
			t.Errorf("base_url = %q", cfg.Generation.BaseURL)
		}
		if cfg.Debate.MaxTurns != 4 {
			t.Errorf("max_turns = %d", cfg.Debate.MaxTurns)
		}
	})

	t.Run("InvalidEnvValuesIgnored", func(t *testing.T) {
		t.Setenv("CHANNELCHAT_PORT", "not-a-number")
		t.Setenv("MAX_TURNS", "-3")

		cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml"))
		if err != nil {
			t.Fatalf("LoadFrom failed: %v", err)
		}
		if cfg.Server.Port != 8480 {
			t.Errorf("port = %d", cfg.Server.Port)
		}
		if cfg.Debate.MaxTurns != core.DefaultMaxTurns {
			t.Errorf("max_turns = %d", cfg.Debate.MaxTurns)
		}
	})
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.Server.Port = 8585
	cfg.Generation.BaseURL = "http://localhost:9000"
	cfg.Runner.Debounce = 5 * time.Second

	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo failed: %v", err)
	}

	got, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	if got.Server.Port != 8585 {
		t.Errorf("port = %d", got.Server.Port)
	}
	if got.Generation.BaseURL != "http://localhost:9000" {
		t.Errorf("base_url = %q", got.Generation.BaseURL)
	}
	if got.Runner.Debounce != 5*time.Second {
		t.Errorf("debounce = %v", got.Runner.Debounce)
	}
}

func TestGeneratorConfig(t *testing.T) {
	cfg := Default()
	cfg.Generation.BaseURL = "http://localhost:9000"
	cfg.Generation.APIKey = "secret"

	gc := cfg.GeneratorConfig()
	if gc.BaseURL != "http://localhost:9000" || gc.APIKey != "secret" {
		t.Errorf("generator config = %+v", gc)
	}
	if gc.Model != cfg.Generation.Model {
		t.Errorf("model = %q", gc.Model)
	}
}
