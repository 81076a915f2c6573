// Package config provides the configuration schema, loader, watcher and
// provider registry for the lingualert server.
package config

import (
	"time"

	"github.com/MrWong99/lingualert/internal/events"
	"github.com/MrWong99/lingualert/pkg/langdetect"
	"github.com/MrWong99/lingualert/pkg/translate"
)

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

// Config is the root configuration structure. It is typically loaded from a
// YAML file using [Load] or [LoadFromReader]. Zero values select the
// defaults of the package that consumes them.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Providers   ProvidersConfig   `yaml:"providers"`
	Recognition RecognitionConfig `yaml:"recognition"`
	Recording   RecordingConfig   `yaml:"recording"`
	Detection   DetectionConfig   `yaml:"detection"`
	Translation TranslationConfig `yaml:"translation"`
	Speech      SpeechConfig      `yaml:"speech"`
	Reports     ReportsConfig     `yaml:"reports"`
	Events      events.Config     `yaml:"events"`
}

// ServerConfig holds network and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on. Defaults to ":8080".
	ListenAddr string `yaml:"listen_addr"`

	LogLevel LogLevel `yaml:"log_level"`

	// TLS configures TLS for the server. When nil, the server runs plain HTTP.
	TLS *TLSConfig `yaml:"tls"`

	// AllowedOrigins lists host patterns accepted for cross-origin
	// WebSocket upgrades (e.g. "app.example.org", "*.example.org").
	AllowedOrigins []string `yaml:"allowed_origins"`

	// MaxSessions caps concurrent recording sockets. Zero means no limit.
	MaxSessions int `yaml:"max_sessions"`

	// TraceSampleRatio is the share of new traces that are sampled. Zero
	// samples every trace.
	TraceSampleRatio float64 `yaml:"trace_sample_ratio"`
}

// TLSConfig holds TLS certificate paths for enabling HTTPS.
type TLSConfig struct {
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// ProvidersConfig selects the backend for each remote service. Each entry
// names a factory registered in the [Registry]. An entry with an empty name
// leaves the service unconfigured.
type ProvidersConfig struct {
	STT         ProviderEntry `yaml:"stt"`
	Translation ProviderEntry `yaml:"translation"`
	LangID      ProviderEntry `yaml:"langid"`
	TTS         ProviderEntry `yaml:"tts"`
}

// ProviderEntry is the configuration block shared by all provider kinds.
type ProviderEntry struct {
	// Name selects the registered provider implementation (e.g. "deepgram",
	// "google", "ollama").
	Name string `yaml:"name"`

	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider.
	Model string `yaml:"model"`

	// Options holds provider-specific values not covered above.
	Options map[string]any `yaml:"options"`

	// Fallbacks are tried in order when this provider fails or its circuit
	// breaker is open. Nested fallbacks are not allowed.
	Fallbacks []ProviderEntry `yaml:"fallbacks"`
}

// RecognitionConfig tunes the locale-rotating recognizer.
type RecognitionConfig struct {
	// Locales is the rotation order. Empty uses the built-in list.
	Locales []string `yaml:"locales"`

	// StartLocale must be one of Locales.
	StartLocale string `yaml:"start_locale"`

	SampleRate      int           `yaml:"sample_rate"`
	SettleDelay     time.Duration `yaml:"settle_delay"`
	MaxOpenFailures int           `yaml:"max_open_failures"`
}

// RecordingConfig tunes recording sessions.
type RecordingConfig struct {
	MaxDuration     time.Duration `yaml:"max_duration"`
	CountdownFrom   int           `yaml:"countdown_from"`
	FinalizeTimeout time.Duration `yaml:"finalize_timeout"`

	// StashTTL is how long a finished recording stays available for report
	// creation. Defaults to 15 minutes.
	StashTTL time.Duration `yaml:"stash_ttl"`
}

// DetectionConfig tunes language detection.
type DetectionConfig struct {
	Timeout    time.Duration      `yaml:"timeout"`
	BatchLimit int                `yaml:"batch_limit"`
	Tuning     *langdetect.Tuning `yaml:"tuning"`
}

// TranslationConfig tunes translation to English.
type TranslationConfig struct {
	Timeout time.Duration     `yaml:"timeout"`
	Tuning  *translate.Tuning `yaml:"tuning"`
}

// SpeechConfig tunes speech synthesis.
type SpeechConfig struct {
	// Voice is the default voice key or id.
	Voice     string `yaml:"voice"`
	CacheSize int    `yaml:"cache_size"`
}

// ReportsConfig configures report persistence.
type ReportsConfig struct {
	// PostgresDSN is the connection string of the report database. When
	// empty, reports are kept in memory.
	PostgresDSN string `yaml:"postgres_dsn"`
}
