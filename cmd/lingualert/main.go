// Command lingualert serves the multilingual emergency reporting API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/option"

	"github.com/MrWong99/lingualert/internal/app"
	"github.com/MrWong99/lingualert/internal/config"
	"github.com/MrWong99/lingualert/internal/observe"
	"github.com/MrWong99/lingualert/internal/report"
	"github.com/MrWong99/lingualert/internal/resilience"
	"github.com/MrWong99/lingualert/pkg/provider/langid"
	"github.com/MrWong99/lingualert/pkg/provider/stt"
	"github.com/MrWong99/lingualert/pkg/provider/stt/deepgram"
	"github.com/MrWong99/lingualert/pkg/provider/stt/googlespeech"
	"github.com/MrWong99/lingualert/pkg/provider/translation"
	googletranslate "github.com/MrWong99/lingualert/pkg/provider/translation/google"
	llmtranslate "github.com/MrWong99/lingualert/pkg/provider/translation/llm"
	"github.com/MrWong99/lingualert/pkg/provider/tts"
	"github.com/MrWong99/lingualert/pkg/provider/tts/elevenlabs"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	envFile := flag.String("env-file", ".env", "optional file with LINGUALERT_* variables")
	flag.Parse()

	if err := config.LoadDotEnv(*envFile); err != nil {
		fmt.Fprintf(os.Stderr, "lingualert: %v\n", err)
		return 1
	}

	// ── Load configuration ────────────────────────────────────────────────────
	var (
		level       = new(slog.LevelVar)
		application *app.App
	)
	watcher, err := config.NewWatcher(*configPath, func(old, next *config.Config, d config.ConfigDiff) {
		if d.LogLevelChanged {
			level.Set(slogLevel(d.NewLogLevel))
			slog.Info("log level changed", "level", d.NewLogLevel)
		}
		if err := application.Reload(context.Background(), next, d); err != nil {
			slog.Error("config reload failed", "err", err)
		}
	})
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "lingualert: config file %q not found, copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "lingualert: %v\n", err)
		}
		return 1
	}
	cfg := watcher.Current()

	// ── Logger ────────────────────────────────────────────────────────────────
	level.Set(slogLevel(cfg.Server.LogLevel))
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	slog.Info("lingualert starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "lingualert",
		ServiceVersion: version,
		SampleRatio:    cfg.Server.TraceSampleRatio,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		tctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(tctx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Providers ─────────────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(ctx, reg)

	providers, closers, err := buildProviders(cfg, reg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	opts := []app.Option{app.WithMetrics(observe.DefaultMetrics())}
	for _, c := range closers {
		opts = append(opts, app.WithCloser(c))
	}

	// ── Report storage ────────────────────────────────────────────────────────
	if dsn := cfg.Reports.PostgresDSN; dsn != "" {
		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			slog.Error("failed to connect to report database", "err", err)
			return 1
		}
		store := report.NewPostgresStore(pool)
		if err := store.Migrate(ctx); err != nil {
			pool.Close()
			slog.Error("failed to migrate report database", "err", err)
			return 1
		}
		opts = append(opts,
			app.WithReportStore(store),
			app.WithCloser(func() error { pool.Close(); return nil }),
		)
	}

	printStartupSummary(cfg)

	application, err = app.New(ctx, cfg, providers, opts...)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	slog.Info("server ready, press Ctrl+C to shut down")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return application.Run(gctx) })
	g.Go(func() error { return watcher.Run(gctx) })
	runErr := g.Wait()

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("shutting down")
	code := 0
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		slog.Error("run error", "err", runErr)
		code = 1
	}
	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		code = 1
	}
	slog.Info("goodbye")
	return code
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// llmBackends are the any-llm-go backends usable for translation and
// language identification.
var llmBackends = []string{"openai", "anthropic", "gemini", "ollama", "mistral", "llamacpp"}

// registerBuiltinProviders wires all built-in provider factories into reg.
func registerBuiltinProviders(ctx context.Context, reg *config.Registry) {
	// ── Recognition ───────────────────────────────────────────────────────────

	reg.RegisterSTT("deepgram", func(entry config.ProviderEntry) (stt.Provider, error) {
		var opts []deepgram.Option
		if entry.Model != "" {
			opts = append(opts, deepgram.WithModel(entry.Model))
		}
		if entry.BaseURL != "" {
			opts = append(opts, deepgram.WithEndpoint(entry.BaseURL))
		}
		return deepgram.New(entry.APIKey, opts...)
	})

	reg.RegisterSTT("google", func(entry config.ProviderEntry) (stt.Provider, error) {
		var copts []option.ClientOption
		if entry.APIKey != "" {
			copts = append(copts, option.WithAPIKey(entry.APIKey))
		}
		if entry.BaseURL != "" {
			copts = append(copts, option.WithEndpoint(entry.BaseURL))
		}
		if f := optString(entry.Options, "credentials_file"); f != "" {
			copts = append(copts, option.WithCredentialsFile(f))
		}
		opts := []googlespeech.Option{googlespeech.WithClientOptions(copts...)}
		if entry.Model != "" {
			opts = append(opts, googlespeech.WithModel(entry.Model))
		}
		return googlespeech.New(ctx, opts...)
	})

	// ── Translation and language identification ───────────────────────────────

	newGoogle := func(entry config.ProviderEntry) (*googletranslate.Provider, error) {
		var opts []googletranslate.Option
		if entry.BaseURL != "" {
			opts = append(opts, googletranslate.WithBaseURL(entry.BaseURL))
		}
		return googletranslate.New(entry.APIKey, opts...)
	}
	reg.RegisterTranslation("google", func(entry config.ProviderEntry) (translation.Provider, error) {
		return newGoogle(entry)
	})
	reg.RegisterLangID("google", func(entry config.ProviderEntry) (langid.Provider, error) {
		return newGoogle(entry)
	})

	// The LLM backends share the same pattern: optional APIKey + optional
	// BaseURL. ollama and llamacpp are local servers and usually only set
	// BaseURL.
	for _, backend := range llmBackends {
		newLLM := func(entry config.ProviderEntry) (*llmtranslate.Provider, error) {
			var opts []anyllmlib.Option
			if entry.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			return llmtranslate.New(backend, entry.Model, opts...)
		}
		reg.RegisterTranslation(backend, func(entry config.ProviderEntry) (translation.Provider, error) {
			return newLLM(entry)
		})
		reg.RegisterLangID(backend, func(entry config.ProviderEntry) (langid.Provider, error) {
			return newLLM(entry)
		})
	}

	// ── Speech ────────────────────────────────────────────────────────────────

	reg.RegisterTTS("elevenlabs", func(entry config.ProviderEntry) (tts.Provider, error) {
		var opts []elevenlabs.Option
		if entry.Model != "" {
			opts = append(opts, elevenlabs.WithModel(entry.Model))
		}
		if entry.BaseURL != "" {
			opts = append(opts, elevenlabs.WithBaseURL(entry.BaseURL))
		}
		return elevenlabs.New(entry.APIKey, opts...)
	})

	for _, kind := range []string{"stt", "translation", "langid", "tts"} {
		slog.Debug("registered providers", "kind", kind, "names", reg.Names(kind))
	}
}

// fallbackAdder is implemented by the resilience fallback wrappers.
type fallbackAdder[T any] interface {
	AddFallback(name string, p T)
}

// buildProvider creates the provider named by entry plus its fallbacks.
// wrap puts the primary behind a fallback group; it is only called when
// fallbacks are configured. Providers holding connections are appended to
// closers. A nil result with a nil error means the service stays
// unconfigured.
func buildProvider[T any](
	kind string,
	entry config.ProviderEntry,
	create func(config.ProviderEntry) (T, error),
	wrap func(primary T, name string) (T, fallbackAdder[T]),
	closers *[]func() error,
) (T, error) {
	var zero T
	if entry.Name == "" {
		return zero, nil
	}
	p, err := create(entry)
	if errors.Is(err, config.ErrProviderNotRegistered) {
		slog.Warn("provider not available, skipping", "kind", kind, "name", entry.Name)
		return zero, nil
	}
	if err != nil {
		return zero, fmt.Errorf("create %s provider %q: %w", kind, entry.Name, err)
	}
	collectCloser(p, closers)
	slog.Info("provider created", "kind", kind, "name", entry.Name)

	if len(entry.Fallbacks) == 0 {
		return p, nil
	}
	wrapped, group := wrap(p, entry.Name)
	for _, fb := range entry.Fallbacks {
		fp, err := create(fb)
		if errors.Is(err, config.ErrProviderNotRegistered) {
			slog.Warn("fallback provider not available, skipping", "kind", kind, "name", fb.Name)
			continue
		}
		if err != nil {
			return zero, fmt.Errorf("create %s fallback %q: %w", kind, fb.Name, err)
		}
		collectCloser(fp, closers)
		group.AddFallback(fb.Name, fp)
		slog.Info("fallback provider created", "kind", kind, "name", fb.Name)
	}
	return wrapped, nil
}

func collectCloser(p any, closers *[]func() error) {
	if c, ok := p.(io.Closer); ok {
		*closers = append(*closers, c.Close)
	}
}

// buildProviders instantiates all providers named in cfg using the registry.
// The returned closers release provider connections on shutdown.
func buildProviders(cfg *config.Config, reg *config.Registry) (*app.Providers, []func() error, error) {
	var (
		closers []func() error
		err     error
		pc      = cfg.Providers
		fbc     = resilience.FallbackConfig{}
	)
	ps := &app.Providers{
		STTName:         pc.STT.Name,
		TranslationName: pc.Translation.Name,
		LangIDName:      pc.LangID.Name,
		TTSName:         pc.TTS.Name,
	}

	ps.STT, err = buildProvider("stt", pc.STT, reg.CreateSTT,
		func(p stt.Provider, name string) (stt.Provider, fallbackAdder[stt.Provider]) {
			f := resilience.NewSTTFallback(p, name, fbc)
			return f, f
		}, &closers)
	if err != nil {
		return nil, closers, err
	}

	ps.Translation, err = buildProvider("translation", pc.Translation, reg.CreateTranslation,
		func(p translation.Provider, name string) (translation.Provider, fallbackAdder[translation.Provider]) {
			f := resilience.NewTranslationFallback(p, name, fbc)
			return f, f
		}, &closers)
	if err != nil {
		return nil, closers, err
	}

	ps.LangID, err = buildProvider("langid", pc.LangID, reg.CreateLangID,
		func(p langid.Provider, name string) (langid.Provider, fallbackAdder[langid.Provider]) {
			f := resilience.NewLangIDFallback(p, name, fbc)
			return f, f
		}, &closers)
	if err != nil {
		return nil, closers, err
	}

	ps.TTS, err = buildProvider("tts", pc.TTS, reg.CreateTTS,
		func(p tts.Provider, name string) (tts.Provider, fallbackAdder[tts.Provider]) {
			f := resilience.NewTTSFallback(p, name, fbc)
			return f, f
		}, &closers)
	if err != nil {
		return nil, closers, err
	}
	return ps, closers, nil
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║       lingualert startup summary      ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printProvider("Recognition", cfg.Providers.STT.Name, cfg.Providers.STT.Model)
	printProvider("Translation", cfg.Providers.Translation.Name, cfg.Providers.Translation.Model)
	printProvider("Language ID", cfg.Providers.LangID.Name, cfg.Providers.LangID.Model)
	printProvider("Speech", cfg.Providers.TTS.Name, cfg.Providers.TTS.Model)

	storage := "memory"
	if cfg.Reports.PostgresDSN != "" {
		storage = "postgres"
	}
	fmt.Printf("║  Reports         : %-19s ║\n", storage)
	backend := cfg.Events.Backend
	if backend == "" {
		backend = "log"
	}
	fmt.Printf("║  Events          : %-19s ║\n", backend)
	if cfg.Server.MaxSessions > 0 {
		fmt.Printf("║  Max sessions    : %-19d ║\n", cfg.Server.MaxSessions)
	} else {
		fmt.Printf("║  Max sessions    : %-19s ║\n", "(unlimited)")
	}
	addr := cfg.Server.ListenAddr
	if addr == "" {
		addr = app.DefaultListenAddr
	}
	fmt.Printf("║  Listen addr     : %-19s ║\n", addr)
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printProvider(kind, name, model string) {
	value := name
	if value == "" {
		value = "(not configured)"
	} else if model != "" {
		value = name + " / " + model
	}
	if len(value) > 19 {
		value = value[:16] + "..."
	}
	fmt.Printf("║  %-12s    : %-19s ║\n", kind, value)
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// optString extracts a string value from a provider Options map[string]any.
// Returns "" if the map is nil, the key is absent, or the value is not a string.
func optString(opts map[string]any, key string) string {
	v, ok := opts[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}
