package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/MrWong99/lingualert/pkg/langdetect"
	"github.com/MrWong99/lingualert/pkg/language"
	"github.com/MrWong99/lingualert/pkg/translate"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"stt":         {"deepgram", "google"},
	"translation": {"google", "openai", "anthropic", "gemini", "ollama", "mistral", "llamacpp"},
	"langid":      {"google", "openai", "anthropic", "gemini", "ollama", "mistral", "llamacpp"},
	"tts":         {"elevenlabs"},
}

// Environment variables that override file values. Secrets usually arrive
// this way rather than through the YAML file.
const (
	EnvListenAddr        = "LINGUALERT_LISTEN_ADDR"
	EnvLogLevel          = "LINGUALERT_LOG_LEVEL"
	EnvSTTAPIKey         = "LINGUALERT_STT_API_KEY"
	EnvTranslationAPIKey = "LINGUALERT_TRANSLATION_API_KEY"
	EnvLangIDAPIKey      = "LINGUALERT_LANGID_API_KEY"
	EnvTTSAPIKey         = "LINGUALERT_TTS_API_KEY"
	EnvPostgresDSN       = "LINGUALERT_POSTGRES_DSN"
	EnvEventsBackend     = "LINGUALERT_EVENTS_BACKEND"
	EnvKafkaBrokers      = "LINGUALERT_KAFKA_BROKERS"
	EnvAMQPURL           = "LINGUALERT_AMQP_URL"
)

// maxRecordingDuration caps recording.max_duration.
const maxRecordingDuration = 10 * time.Minute

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment. Missing files are skipped and variables that are already
// set are not overwritten.
func LoadDotEnv(files ...string) error {
	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("config: stat %q: %w", f, err)
		}
		existing = append(existing, f)
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("config: load env files: %w", err)
	}
	return nil
}

// Load reads the YAML configuration file at path and returns a validated
// [Config] with environment overrides applied.
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

// LoadFromReader decodes a YAML config from r, applies environment
// overrides and validates the result. Tuning blocks start from the package
// defaults, so a file only lists the values it changes.
func LoadFromReader(r io.Reader) (*Config, error) {
	dt, tt := langdetect.DefaultTuning(), translate.DefaultTuning()
	cfg := &Config{
		Detection:   DetectionConfig{Tuning: &dt},
		Translation: TranslationConfig{Tuning: &tt},
	}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyEnv(cfg, os.LookupEnv)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overwrites cfg fields with the LINGUALERT_* variables that
// lookup reports as set.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	set(EnvListenAddr, &cfg.Server.ListenAddr)
	set(EnvSTTAPIKey, &cfg.Providers.STT.APIKey)
	set(EnvTranslationAPIKey, &cfg.Providers.Translation.APIKey)
	set(EnvLangIDAPIKey, &cfg.Providers.LangID.APIKey)
	set(EnvTTSAPIKey, &cfg.Providers.TTS.APIKey)
	set(EnvPostgresDSN, &cfg.Reports.PostgresDSN)
	set(EnvEventsBackend, &cfg.Events.Backend)
	set(EnvAMQPURL, &cfg.Events.URL)

	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		cfg.Server.LogLevel = LogLevel(strings.ToLower(v))
	}
	if v, ok := lookup(EnvKafkaBrokers); ok && v != "" {
		var brokers []string
		for b := range strings.SplitSeq(v, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
		cfg.Events.Brokers = brokers
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if tls := cfg.Server.TLS; tls != nil && (tls.CertFile == "" || tls.KeyFile == "") {
		errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
	}
	if cfg.Server.MaxSessions < 0 {
		errs = append(errs, fmt.Errorf("server.max_sessions %d must not be negative", cfg.Server.MaxSessions))
	}
	if r := cfg.Server.TraceSampleRatio; r < 0 || r > 1 {
		errs = append(errs, fmt.Errorf("server.trace_sample_ratio %v is out of range [0, 1]", r))
	}

	errs = append(errs, validateProvider("stt", cfg.Providers.STT)...)
	errs = append(errs, validateProvider("translation", cfg.Providers.Translation)...)
	errs = append(errs, validateProvider("langid", cfg.Providers.LangID)...)
	errs = append(errs, validateProvider("tts", cfg.Providers.TTS)...)

	if cfg.Providers.STT.Name == "" {
		slog.Warn("providers.stt is not configured; recordings will be audio only")
	}
	if cfg.Providers.Translation.Name == "" {
		slog.Warn("providers.translation is not configured; transcripts will not be translated")
	}

	rc := cfg.Recognition
	seen := make(map[string]int, len(rc.Locales))
	for i, l := range rc.Locales {
		if strings.TrimSpace(l) == "" || language.Normalize(l) == "" {
			errs = append(errs, fmt.Errorf("recognition.locales[%d] must not be empty", i))
			continue
		}
		if prev, ok := seen[l]; ok {
			errs = append(errs, fmt.Errorf("recognition.locales[%d] %q is a duplicate of recognition.locales[%d]", i, l, prev))
		}
		seen[l] = i
	}
	if rc.StartLocale != "" && len(rc.Locales) > 0 && !slices.Contains(rc.Locales, rc.StartLocale) {
		errs = append(errs, fmt.Errorf("recognition.start_locale %q is not in recognition.locales", rc.StartLocale))
	}
	if rc.SampleRate < 0 {
		errs = append(errs, fmt.Errorf("recognition.sample_rate %d must not be negative", rc.SampleRate))
	}
	if rc.SettleDelay < 0 {
		errs = append(errs, fmt.Errorf("recognition.settle_delay %s must not be negative", rc.SettleDelay))
	}
	if rc.MaxOpenFailures < 0 {
		errs = append(errs, fmt.Errorf("recognition.max_open_failures %d must not be negative", rc.MaxOpenFailures))
	}

	rec := cfg.Recording
	if rec.MaxDuration < 0 || rec.MaxDuration > maxRecordingDuration {
		errs = append(errs, fmt.Errorf("recording.max_duration %s is out of range [0, %s]", rec.MaxDuration, maxRecordingDuration))
	}
	if rec.CountdownFrom > 10 {
		errs = append(errs, fmt.Errorf("recording.countdown_from %d must not exceed 10", rec.CountdownFrom))
	}
	if rec.FinalizeTimeout < 0 {
		errs = append(errs, fmt.Errorf("recording.finalize_timeout %s must not be negative", rec.FinalizeTimeout))
	}
	if rec.StashTTL < 0 {
		errs = append(errs, fmt.Errorf("recording.stash_ttl %s must not be negative", rec.StashTTL))
	}

	if cfg.Detection.Timeout < 0 {
		errs = append(errs, fmt.Errorf("detection.timeout %s must not be negative", cfg.Detection.Timeout))
	}
	if cfg.Detection.BatchLimit < 0 {
		errs = append(errs, fmt.Errorf("detection.batch_limit %d must not be negative", cfg.Detection.BatchLimit))
	}
	if t := cfg.Detection.Tuning; t != nil {
		if err := t.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("detection.tuning: %w", err))
		}
	}
	if cfg.Translation.Timeout < 0 {
		errs = append(errs, fmt.Errorf("translation.timeout %s must not be negative", cfg.Translation.Timeout))
	}
	if t := cfg.Translation.Tuning; t != nil {
		if err := t.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("translation.tuning: %w", err))
		}
	}

	if cfg.Speech.CacheSize < 0 {
		errs = append(errs, fmt.Errorf("speech.cache_size %d must not be negative", cfg.Speech.CacheSize))
	}
	if cfg.Speech.Voice != "" && cfg.Providers.TTS.Name == "" {
		slog.Warn("speech.voice is set but providers.tts is not configured")
	}

	if err := cfg.Events.Validate(); err != nil {
		errs = append(errs, err)
	}
	if cfg.Reports.PostgresDSN == "" {
		slog.Warn("reports.postgres_dsn is empty; reports are kept in memory only")
	}

	return errors.Join(errs...)
}

// validateProvider checks one provider entry and its fallbacks. Unknown
// names only produce a warning so third-party factories can be registered.
func validateProvider(kind string, e ProviderEntry) []error {
	var errs []error
	warnUnknownProvider(kind, e.Name)
	if e.Name == "" && len(e.Fallbacks) > 0 {
		errs = append(errs, fmt.Errorf("providers.%s: fallbacks require a primary name", kind))
	}
	for i, fb := range e.Fallbacks {
		prefix := fmt.Sprintf("providers.%s.fallbacks[%d]", kind, i)
		if fb.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
		}
		if len(fb.Fallbacks) > 0 {
			errs = append(errs, fmt.Errorf("%s: nested fallbacks are not allowed", prefix))
		}
		warnUnknownProvider(kind, fb.Name)
	}
	return errs
}

func warnUnknownProvider(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok || slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name, may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
