// Package app wires the Lingualert subsystems into a running HTTP service.
//
// The App struct owns the full lifecycle: New builds language detection,
// translation and speech synthesis from the configured providers, Handler
// exposes the REST API and the recording socket, Run serves them, and
// Shutdown tears everything down in order.
//
// For testing, inject doubles via functional options (WithReportStore,
// WithPublisher, etc.). When an option is not provided, New falls back to
// in-memory implementations.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MrWong99/lingualert/internal/config"
	"github.com/MrWong99/lingualert/internal/events"
	"github.com/MrWong99/lingualert/internal/health"
	"github.com/MrWong99/lingualert/internal/observe"
	"github.com/MrWong99/lingualert/internal/recognition"
	"github.com/MrWong99/lingualert/internal/recording"
	"github.com/MrWong99/lingualert/internal/report"
	"github.com/MrWong99/lingualert/internal/speech"
	"github.com/MrWong99/lingualert/pkg/audio"
	"github.com/MrWong99/lingualert/pkg/langdetect"
	"github.com/MrWong99/lingualert/pkg/provider/langid"
	"github.com/MrWong99/lingualert/pkg/provider/stt"
	"github.com/MrWong99/lingualert/pkg/provider/translation"
	"github.com/MrWong99/lingualert/pkg/provider/tts"
	"github.com/MrWong99/lingualert/pkg/translate"
)

const (
	// DefaultListenAddr is used when server.listen_addr is empty.
	DefaultListenAddr = ":8080"

	readHeaderTimeout = 10 * time.Second
)

// Providers holds one interface value per provider slot. Nil means the
// provider is not configured. Populated by main.go via the config registry.
type Providers struct {
	STT         stt.Provider
	Translation translation.Provider
	LangID      langid.Provider
	TTS         tts.Provider

	// Names label metrics and logs. Empty names fall back to the kind.
	STTName         string
	TranslationName string
	LangIDName      string
	TTSName         string
}

// services are the parts rebuilt when the configuration is reloaded.
type services struct {
	detector   *langdetect.Detector
	translator *translate.Translator
	speech     *speech.Service
	voice      string
	recording  config.RecordingConfig
}

// App owns all subsystem lifetimes.
type App struct {
	cfg       *config.Config
	providers *Providers
	metrics   *observe.Metrics

	live     atomic.Pointer[services]
	reports  report.Store
	events   events.Publisher
	stash    *Stash
	sessions *SessionManager
	health   *health.Handler

	newEncoder func() (recording.Encoder, error)

	mu     sync.Mutex
	server *http.Server

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithReportStore injects the report store instead of an in-memory one.
func WithReportStore(s report.Store) Option {
	return func(a *App) { a.reports = s }
}

// WithPublisher injects the event publisher instead of creating one from
// config.
func WithPublisher(p events.Publisher) Option {
	return func(a *App) { a.events = p }
}

// WithMetrics sets the metrics instruments. Defaults to
// [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithRecordingEncoder replaces the Ogg Opus encoder of new recordings.
func WithRecordingEncoder(fn func() (recording.Encoder, error)) Option {
	return func(a *App) { a.newEncoder = fn }
}

// WithCloser registers fn to run during Shutdown after the built-in
// closers.
func WithCloser(fn func() error) Option {
	return func(a *App) { a.closers = append(a.closers, fn) }
}

// New creates an App by wiring all subsystems together. The providers
// struct comes from main.go (populated via the config registry); nil slots
// leave the matching feature unavailable.
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	if providers == nil {
		providers = &Providers{}
	}
	a := &App{
		cfg:       cfg,
		providers: providers,
	}
	for _, o := range opts {
		o(a)
	}
	extra := a.closers
	a.closers = nil

	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}

	svc, err := a.buildServices(cfg)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	a.live.Store(svc)

	if a.reports == nil {
		a.reports = report.NewMemoryStore(report.DefaultMemoryCapacity)
		slog.Info("reports kept in memory", "capacity", report.DefaultMemoryCapacity)
	}

	if a.events == nil {
		pub, err := events.New(cfg.Events, a.metrics)
		if err != nil {
			return nil, fmt.Errorf("app: init events: %w", err)
		}
		a.events = pub
	}

	a.stash = NewStash(cfg.Recording.StashTTL)
	a.sessions = NewSessionManager(cfg.Server.MaxSessions, a.metrics)

	checkers := []health.Checker{{Name: "reports", Check: a.reports.Ping}}
	if p, ok := a.events.(events.Pinger); ok {
		checkers = append(checkers, health.Checker{Name: "events", Check: p.Ping})
	}
	a.health = health.New(checkers...)

	a.closers = append(a.closers, a.stash.Close, a.events.Close)
	a.closers = append(a.closers, extra...)

	observe.Logger(ctx).Info("application ready",
		"stt", providers.STT != nil,
		"translation", svc.translator.Available(),
		"langid", svc.detector.Available(),
		"tts", svc.speech.Available(),
	)
	return a, nil
}

// buildServices creates the detector, translator and speech service from
// cfg and the fixed providers.
func (a *App) buildServices(cfg *config.Config) (*services, error) {
	p := a.providers

	dopts := []langdetect.Option{
		langdetect.WithMetrics(a.metrics),
		langdetect.WithProviderName(nameOr(p.LangIDName, "langid")),
	}
	if t := cfg.Detection.Tuning; t != nil {
		dopts = append(dopts, langdetect.WithTuning(*t))
	}
	if cfg.Detection.Timeout > 0 {
		dopts = append(dopts, langdetect.WithTimeout(cfg.Detection.Timeout))
	}
	if cfg.Detection.BatchLimit > 0 {
		dopts = append(dopts, langdetect.WithBatchLimit(cfg.Detection.BatchLimit))
	}
	det, err := langdetect.New(p.LangID, dopts...)
	if err != nil {
		return nil, fmt.Errorf("init detection: %w", err)
	}

	topts := []translate.Option{
		translate.WithMetrics(a.metrics),
		translate.WithProviderName(nameOr(p.TranslationName, "translation")),
	}
	if t := cfg.Translation.Tuning; t != nil {
		topts = append(topts, translate.WithTuning(*t))
	}
	if cfg.Translation.Timeout > 0 {
		topts = append(topts, translate.WithTimeout(cfg.Translation.Timeout))
	}
	tr, err := translate.New(p.Translation, det, topts...)
	if err != nil {
		return nil, fmt.Errorf("init translation: %w", err)
	}

	sopts := []speech.Option{
		speech.WithMetrics(a.metrics),
		speech.WithProviderName(nameOr(p.TTSName, "tts")),
	}
	if cfg.Speech.CacheSize > 0 {
		sopts = append(sopts, speech.WithCacheSize(cfg.Speech.CacheSize))
	}

	return &services{
		detector:   det,
		translator: tr,
		speech:     speech.New(p.TTS, sopts...),
		voice:      cfg.Speech.Voice,
		recording:  cfg.Recording,
	}, nil
}

// Reload applies a changed configuration. Detection, translation, speech
// and recording settings take effect for new requests and recordings;
// sections that need a restart are only reported.
func (a *App) Reload(ctx context.Context, next *config.Config, d config.ConfigDiff) error {
	log := observe.Logger(ctx)
	if d.RestartRequired() {
		log.Warn("configuration changes need a restart to take effect",
			"server", d.ServerChanged,
			"providers", d.ProvidersChanged,
			"recognition", d.RecognitionChanged,
			"reports", d.ReportsChanged,
			"events", d.EventsChanged,
		)
	}
	if !d.DetectionChanged && !d.TranslationChanged && !d.SpeechChanged && !d.RecordingChanged {
		return nil
	}
	svc, err := a.buildServices(next)
	if err != nil {
		return fmt.Errorf("app: reload: %w", err)
	}
	a.live.Store(svc)
	if d.RecordingChanged {
		a.stash.SetTTL(next.Recording.StashTTL)
	}
	log.Info("configuration reloaded",
		"detection", d.DetectionChanged,
		"translation", d.TranslationChanged,
		"speech", d.SpeechChanged,
		"recording", d.RecordingChanged,
	)
	return nil
}

func (a *App) current() *services { return a.live.Load() }

// Handler returns the HTTP handler serving the API, the recording socket,
// health probes and metrics.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/record", a.handleRecord)
	mux.HandleFunc("POST /v1/detect", a.handleDetect)
	mux.HandleFunc("POST /v1/translate", a.handleTranslate)
	mux.HandleFunc("POST /v1/speech", a.handleSpeech)
	mux.HandleFunc("GET /v1/voices", a.handleVoices)
	mux.HandleFunc("GET /v1/languages", a.handleLanguages)
	mux.HandleFunc("GET /v1/languages/{code}", a.handleLanguage)
	mux.HandleFunc("GET /v1/recordings/{id}", a.handleRecording)
	mux.HandleFunc("GET /v1/recordings/{id}/audio", a.handleRecordingAudio)
	mux.HandleFunc("POST /v1/reports", a.handleCreateReport)
	mux.HandleFunc("GET /v1/reports", a.handleRecentReports)
	mux.HandleFunc("GET /v1/reports/{id}", a.handleGetReport)
	a.health.Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())
	return observe.Middleware(a.metrics)(mux)
}

// Run serves HTTP until ctx is cancelled or the listener fails. It
// returns ctx.Err() after cancellation; call Shutdown afterwards.
func (a *App) Run(ctx context.Context) error {
	addr := a.cfg.Server.ListenAddr
	if addr == "" {
		addr = DefaultListenAddr
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		ErrorLog:          slog.NewLogLogger(slog.Default().Handler(), slog.LevelWarn),
	}
	a.mu.Lock()
	a.server = srv
	a.mu.Unlock()

	errc := make(chan error, 1)
	go func() {
		if tls := a.cfg.Server.TLS; tls != nil {
			errc <- srv.ListenAndServeTLS(tls.CertFile, tls.KeyFile)
			return
		}
		errc <- srv.ListenAndServe()
	}()
	observe.Logger(ctx).Info("listening", "addr", addr, "tls", a.cfg.Server.TLS != nil)

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("app: serve: %w", err)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops accepting requests, ends open recording sockets and tears
// down all subsystems. It respects the context deadline: if ctx expires
// before all closers finish, remaining closers are skipped and the context
// error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "sessions", a.sessions.Count(), "closers", len(a.closers))

		a.mu.Lock()
		srv := a.server
		a.mu.Unlock()
		if srv != nil {
			if err := srv.Shutdown(ctx); err != nil {
				slog.Warn("http shutdown error", "err", err)
			}
		}

		// Hijacked sockets are not covered by srv.Shutdown.
		a.sessions.StopAll()
		if err := a.sessions.Wait(ctx); err != nil {
			slog.Warn("recording sessions still open", "remaining", a.sessions.Count())
		}

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}

// newSession creates the recording session behind one socket.
func (a *App) newSession(src audio.Source, l recording.Listener) (*recording.Session, error) {
	svc := a.current()
	rc := a.cfg.Recognition
	return recording.New(recording.Config{
		Source: src,
		Recognition: recognition.Config{
			Provider:        a.providers.STT,
			Locales:         rc.Locales,
			StartLocale:     rc.StartLocale,
			SampleRate:      rc.SampleRate,
			SettleDelay:     rc.SettleDelay,
			MaxOpenFailures: rc.MaxOpenFailures,
		},
		Detector:        svc.detector,
		Translator:      svc.translator,
		Listener:        l,
		Metrics:         a.metrics,
		MaxDuration:     svc.recording.MaxDuration,
		CountdownFrom:   svc.recording.CountdownFrom,
		FinalizeTimeout: svc.recording.FinalizeTimeout,
		NewEncoder:      a.newEncoder,
	})
}

// publish sends an event, logging failures. Events never fail a request.
func (a *App) publish(ctx context.Context, e events.Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := a.events.Publish(ctx, e); err != nil {
		observe.Logger(ctx).Warn("event publish failed", "type", e.Type, "key", e.Key, "err", err)
	}
}

const publishTimeout = 5 * time.Second

func nameOr(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}
