// Package config provides the configuration schema and loader for the
// interview assistant.
package config

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// CallMethod selects how chat completions are issued.
type CallMethod string

const (
	// CallDirect talks to an OpenAI-compatible endpoint with the official
	// client.
	CallDirect CallMethod = "direct"

	// CallProxy routes through the multi-provider proxy layer, which covers
	// non-OpenAI backends but does not carry image content.
	CallProxy CallMethod = "proxy"
)

// IsValid reports whether m is a recognised call method.
func (m CallMethod) IsValid() bool {
	return m == CallDirect || m == CallProxy
}

// Config is the root configuration structure.
type Config struct {
	// Server holds local endpoint settings.
	Server ServerConfig `yaml:"server"`

	// Chat configures the completion provider.
	Chat ChatConfig `yaml:"chat"`

	// Transcription configures the streaming speech-to-text provider.
	Transcription TranscriptionConfig `yaml:"transcription"`

	// Storage configures the local database.
	Storage StorageConfig `yaml:"storage"`

	// Assistant tunes session behavior.
	Assistant AssistantConfig `yaml:"assistant"`
}

// ServerConfig holds the local HTTP endpoint and logging settings.
type ServerConfig struct {
	// ListenAddr is the address for the health and metrics endpoints.
	// Default: "127.0.0.1:8419".
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel is one of debug, info, warn, error. Default: info.
	LogLevel LogLevel `yaml:"log_level"`
}

// ChatConfig configures the completion provider.
type ChatConfig struct {
	// Provider is the backend name, e.g. "openai", "anthropic", "ollama".
	Provider string `yaml:"provider"`

	// APIKey is the provider credential.
	APIKey string `yaml:"api_key"`

	// APIBase overrides the provider endpoint URL. Optional.
	APIBase string `yaml:"api_base"`

	// Model is the completion model name.
	Model string `yaml:"model"`

	// CallMethod is "direct" or "proxy". Default: direct.
	CallMethod CallMethod `yaml:"call_method"`
}

// Configured reports whether enough is set to issue completions.
func (c ChatConfig) Configured() bool {
	return c.APIKey != "" && c.Model != ""
}

// TranscriptionConfig configures the streaming speech-to-text provider.
type TranscriptionConfig struct {
	// APIKey is the transcription provider credential.
	APIKey string `yaml:"api_key"`

	// PrimaryLanguage is the BCP-47 tag of the expected language, or "auto".
	PrimaryLanguage string `yaml:"primary_language"`

	// SecondaryLanguage enables detection of a second language. Optional.
	SecondaryLanguage string `yaml:"secondary_language"`
}

// StorageConfig configures the local database.
type StorageConfig struct {
	// Path is the SQLite database file. Default: "interview-assistant.db"
	// in the user config directory.
	Path string `yaml:"path"`
}

// AssistantConfig tunes session behavior.
type AssistantConfig struct {
	// AutoSubmit enables quiet-period submission at startup.
	AutoSubmit bool `yaml:"auto_submit"`

	// QuietPeriodMS is the silence threshold in milliseconds before the
	// buffered question is submitted. Default: 2000.
	QuietPeriodMS int `yaml:"quiet_period_ms"`
}
