package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidChatProviders lists the backends the proxy call method understands.
// Used by [Validate] to warn about unrecognised provider names.
var ValidChatProviders = []string{
	"openai", "anthropic", "gemini", "ollama", "deepseek", "mistral", "groq",
}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader] and
// [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg as YAML to path, creating parent directories as needed.
// Used by the settings flow to persist operator changes.
func Save(cfg *Config, path string) error {
	if err := Validate(cfg); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: encode yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("config: write %q: %w", path, err)
	}
	return nil
}

// applyDefaults fills in zero values that have documented defaults.
func applyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = "127.0.0.1:8419"
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	if cfg.Chat.CallMethod == "" {
		cfg.Chat.CallMethod = CallDirect
	}
	if cfg.Chat.Provider == "" {
		cfg.Chat.Provider = "openai"
	}
	if cfg.Transcription.PrimaryLanguage == "" {
		cfg.Transcription.PrimaryLanguage = "auto"
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = defaultStoragePath()
	}
	if cfg.Assistant.QuietPeriodMS == 0 {
		cfg.Assistant.QuietPeriodMS = 2000
	}
}

// Validate checks that cfg contains a coherent set of values. It returns a
// joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Chat.CallMethod != "" && !cfg.Chat.CallMethod.IsValid() {
		errs = append(errs, fmt.Errorf("chat.call_method %q is invalid; valid values: direct, proxy", cfg.Chat.CallMethod))
	}
	if cfg.Chat.Provider != "" && !slices.Contains(ValidChatProviders, cfg.Chat.Provider) {
		slog.Warn("unrecognised chat provider name; the proxy call method may reject it",
			"provider", cfg.Chat.Provider)
	}
	if cfg.Chat.CallMethod == CallProxy && cfg.Chat.Provider == "" {
		errs = append(errs, errors.New("chat.provider is required when chat.call_method is proxy"))
	}
	if cfg.Assistant.QuietPeriodMS < 0 {
		errs = append(errs, fmt.Errorf("assistant.quiet_period_ms %d must not be negative", cfg.Assistant.QuietPeriodMS))
	}

	if !cfg.Chat.Configured() {
		slog.Warn("chat credentials incomplete; submissions are blocked until settings are saved")
	}
	if cfg.Transcription.APIKey == "" {
		slog.Warn("transcription.api_key is empty; recording will not start")
	}

	return errors.Join(errs...)
}

// defaultStoragePath places the database under the user config directory,
// falling back to the working directory.
func defaultStoragePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "interview-assistant.db"
	}
	return filepath.Join(dir, "interview-assistant", "interview-assistant.db")
}
