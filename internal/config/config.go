// Package config loads service configuration by layering defaults, an
// optional YAML file, and GREENROOM_ environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	DB        DBConfig        `koanf:"db"`
	Anthropic AnthropicConfig `koanf:"anthropic"`
	Followups FollowupsConfig `koanf:"followups"`
}

type ServerConfig struct {
	Port       int `koanf:"port"`
	TimeoutSec int `koanf:"timeout_sec"`
}

type DBConfig struct {
	Path string `koanf:"path"`
}

type AnthropicConfig struct {
	APIKey    string `koanf:"api_key"`
	Model     string `koanf:"model"`
	MaxTokens int    `koanf:"max_tokens"`
}

type FollowupsConfig struct {
	// AnswerBudgetTokens bounds how much of a candidate answer goes into the
	// generation prompt.
	AnswerBudgetTokens int `koanf:"answer_budget_tokens"`
	// ServiceURL points interview clients at a remote follow-up service.
	// Empty means generate in process.
	ServiceURL string `koanf:"service_url"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server:    ServerConfig{Port: 8080, TimeoutSec: 30},
		DB:        DBConfig{Path: "./data/greenroom.db"},
		Anthropic: AnthropicConfig{Model: "claude-3-5-haiku-latest", MaxTokens: 256},
		Followups: FollowupsConfig{AnswerBudgetTokens: 1024},
	}
}

// Load builds a Config by layering (low to high): defaults, a YAML file named
// by GREENROOM_CONFIG or the optional path argument, and GREENROOM_ env vars
// (GREENROOM_SERVER_PORT -> server.port).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path == "" {
		path = os.Getenv("GREENROOM_CONFIG")
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	if err := k.Load(env.Provider("GREENROOM_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "GREENROOM_")), "_", ".", 1)
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env: %w", err)
	}

	cfg := *Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if cfg.Server.Port <= 0 {
		return nil, errors.New("server.port must be positive")
	}
	return &cfg, nil
}
