// Package recording runs one voice emergency recording from countdown to a
// reconciled, translated result.
//
// A [Session] owns the microphone capture, the Ogg Opus encoder, the level
// monitor and a [recognition.Controller]. While audio is captured, settled
// transcripts run through language detection and translation so the caller
// sees a live English rendering. When the recording stops the session picks
// the best transcript, reuses the live translation when it still matches and
// otherwise translates once more.
package recording

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/MrWong99/lingualert/internal/observe"
	"github.com/MrWong99/lingualert/internal/recognition"
	"github.com/MrWong99/lingualert/pkg/audio"
	"github.com/MrWong99/lingualert/pkg/audio/opus"
	"github.com/MrWong99/lingualert/pkg/langdetect"
	"github.com/MrWong99/lingualert/pkg/language"
	"github.com/MrWong99/lingualert/pkg/provider/stt"
	"github.com/MrWong99/lingualert/pkg/translate"
)

const (
	DefaultMaxDuration     = 60 * time.Second
	DefaultCountdownFrom   = 3
	DefaultCountdownTick   = time.Second
	DefaultFinalizeTimeout = 10 * time.Second

	// liveMinRunes is the shortest text the live pipeline looks at.
	liveMinRunes = 5

	// liveTranslateMinConfidence is the detection confidence above which
	// live text is translated.
	liveTranslateMinConfidence = 0.3

	// preferLocaleConfidence is the detection confidence above which a
	// reliable detection switches the recognition locale.
	preferLocaleConfidence = 0.8
)

// Messages surfaced to the user.
const (
	MessageMicrophone          = "Failed to access microphone. Please check your permissions and try again."
	MessageProcessing          = "Processing audio and finalizing translation..."
	MessageTranslationDegraded = "Translation temporarily unavailable"
)

var (
	// ErrBusy is returned when a recording is already in progress.
	ErrBusy = errors.New("recording: session busy")

	// ErrNotRecording is returned by Stop when nothing is being captured.
	ErrNotRecording = errors.New("recording: not recording")
)

// Phase is the lifecycle phase of a session.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseCountdown  Phase = "countdown"
	PhaseRecording  Phase = "recording"
	PhaseProcessing Phase = "processing"
	PhaseDone       Phase = "done"
	PhaseFailed     Phase = "failed"
)

// Result is a finished recording.
type Result struct {
	ID          string            `json:"id"`
	Transcript  string            `json:"transcript"`
	Confidence  float64           `json:"confidence"`
	Language    string            `json:"language,omitempty"`
	Translation *translate.Result `json:"translation,omitempty"`
	Audio       []byte            `json:"-"`
	AudioType   string            `json:"audio_type"`
	Duration    time.Duration     `json:"duration"`
	CreatedAt   time.Time         `json:"created_at"`
}

// Detector is the detection capability the live pipeline needs.
type Detector interface {
	DetectEnhanced(ctx context.Context, text string) *langdetect.Enhanced
}

// Translator is the translation capability the session needs.
type Translator interface {
	Available() bool
	TranslateToEnglish(ctx context.Context, text, hint string) (translate.Result, error)
}

// Encoder compresses captured audio. [opus.Encoder] is the production
// implementation.
type Encoder interface {
	Write(f audio.Frame) error
	Finalize() ([]byte, error)
}

// Listener receives session events. Calls may arrive from several
// goroutines; implementations must be safe for concurrent use.
type Listener interface {
	OnCountdown(n int)
	OnPhase(phase Phase, message string)
	OnLevel(level float64)
	OnRecognition(state recognition.State, locale string)
	OnTranscript(text, interim string, confidence float64)
	OnDetection(e langdetect.Enhanced)
	OnTranslation(r translate.Result)
	OnAdvisory(message string)
	OnError(message string)
	OnResult(r *Result)
}

// NopListener ignores every event. Embed it to implement only some methods.
type NopListener struct{}

func (NopListener) OnCountdown(int)                         {}
func (NopListener) OnPhase(Phase, string)                   {}
func (NopListener) OnLevel(float64)                         {}
func (NopListener) OnRecognition(recognition.State, string) {}
func (NopListener) OnTranscript(string, string, float64)    {}
func (NopListener) OnDetection(langdetect.Enhanced)         {}
func (NopListener) OnTranslation(translate.Result)          {}
func (NopListener) OnAdvisory(string)                       {}
func (NopListener) OnError(string)                          {}
func (NopListener) OnResult(*Result)                        {}

var _ Listener = NopListener{}

// Config configures a [Session].
type Config struct {
	// Source opens the microphone. Required.
	Source audio.Source

	// Recognition configures speech recognition. A nil Provider records
	// audio only. The Listener and Metrics fields are set by the session.
	Recognition recognition.Config

	Detector   Detector
	Translator Translator
	Listener   Listener
	Metrics    *observe.Metrics

	MaxDuration     time.Duration
	CountdownFrom   int
	CountdownTick   time.Duration
	FinalizeTimeout time.Duration

	// ChunkDuration is the amount of audio per encoded page. Defaults to
	// [opus.DefaultChunkDuration].
	ChunkDuration time.Duration

	// NewEncoder creates the encoder for each recording. Defaults to an
	// Opus encoder.
	NewEncoder func() (Encoder, error)
}

// Session is one browser's recording slot. Only one recording runs at a
// time.
type Session struct {
	cfg   Config
	ctrl  *recognition.Controller
	acc   *recognition.Accumulator
	level *audio.LevelMonitor

	activity atomic.Bool

	mu              sync.Mutex
	phase           Phase
	id              string
	countdownCancel context.CancelFunc
	runCtx          context.Context
	runCancel       context.CancelFunc
	capture         audio.Capture
	enc             Encoder
	pumpDone        chan struct{}
	maxTimer        *time.Timer
	startedAt       time.Time
	detection       *langdetect.Detection
	live            *liveTranslation
	result          *Result

	// reconciled is set once Stop has read the live results. Live runs
	// store their results only before that, and only if no later run
	// stored first.
	reconciled   bool
	liveRuns     uint64
	detectionRun uint64
	liveRun      uint64
	done            chan struct{}
}

// New creates an idle session.
func New(cfg Config) (*Session, error) {
	if cfg.Source == nil {
		return nil, errors.New("recording: no audio source")
	}
	if cfg.Listener == nil {
		cfg.Listener = NopListener{}
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observe.DefaultMetrics()
	}
	if cfg.MaxDuration <= 0 {
		cfg.MaxDuration = DefaultMaxDuration
	}
	if cfg.CountdownFrom < 0 {
		cfg.CountdownFrom = 0
	} else if cfg.CountdownFrom == 0 {
		cfg.CountdownFrom = DefaultCountdownFrom
	}
	if cfg.CountdownTick <= 0 {
		cfg.CountdownTick = DefaultCountdownTick
	}
	if cfg.FinalizeTimeout <= 0 {
		cfg.FinalizeTimeout = DefaultFinalizeTimeout
	}
	if cfg.ChunkDuration <= 0 {
		cfg.ChunkDuration = opus.DefaultChunkDuration
	}
	if cfg.NewEncoder == nil {
		chunk := cfg.ChunkDuration
		cfg.NewEncoder = func() (Encoder, error) {
			return opus.NewEncoder(opus.WithChunkDuration(chunk))
		}
	}

	s := &Session{
		cfg:   cfg,
		acc:   &recognition.Accumulator{},
		phase: PhaseIdle,
	}
	s.level = audio.NewLevelMonitor(cfg.Listener.OnLevel, s.markActivity)

	if cfg.Recognition.Provider != nil {
		rc := cfg.Recognition
		rc.Listener = recognitionListener{s}
		rc.Metrics = cfg.Metrics
		ctrl, err := recognition.New(rc)
		if err != nil {
			return nil, fmt.Errorf("recording: %w", err)
		}
		s.ctrl = ctrl
	}
	return s, nil
}

// Phase returns the current phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Recognition returns a snapshot of the recognition controller, or the zero
// value when the session records audio only.
func (s *Session) Recognition() recognition.Snapshot {
	if s.ctrl == nil {
		return recognition.Snapshot{}
	}
	return s.ctrl.Snapshot()
}

// BeginCountdown resets the session and counts down before capture starts.
// It returns immediately; the countdown runs in the background.
func (s *Session) BeginCountdown(ctx context.Context) error {
	s.mu.Lock()
	if s.busyLocked() {
		s.mu.Unlock()
		return ErrBusy
	}
	s.resetLocked()
	s.phase = PhaseCountdown
	cdCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.countdownCancel = cancel
	s.mu.Unlock()

	s.cfg.Listener.OnPhase(PhaseCountdown, "")
	go s.countdown(cdCtx)
	return nil
}

func (s *Session) countdown(ctx context.Context) {
	for n := s.cfg.CountdownFrom; n > 0; n-- {
		s.cfg.Listener.OnCountdown(n)
		select {
		case <-time.After(s.cfg.CountdownTick):
		case <-ctx.Done():
			return
		}
	}
	s.cfg.Listener.OnCountdown(0)
	if err := s.startCapture(ctx, true); err != nil && !errors.Is(err, ErrNotRecording) {
		observe.Logger(ctx).Warn("recording failed to start", "error", err)
	}
}

// StartCapture opens the microphone and starts encoding, level metering and
// recognition. Called during a countdown it skips the rest of it.
func (s *Session) StartCapture(ctx context.Context) error {
	return s.startCapture(ctx, false)
}

func (s *Session) startCapture(ctx context.Context, fromCountdown bool) error {
	s.mu.Lock()
	switch {
	case fromCountdown:
		// A countdown cancelled by Stop must not start capturing.
		if s.phase != PhaseCountdown || ctx.Err() != nil {
			s.mu.Unlock()
			return ErrNotRecording
		}
	case s.phase == PhaseCountdown:
		s.countdownCancel()
	case s.phase == PhaseIdle || s.phase == PhaseDone || s.phase == PhaseFailed:
		s.resetLocked()
	default:
		s.mu.Unlock()
		return ErrBusy
	}
	s.countdownCancel = nil
	s.phase = PhaseRecording
	runCtx, runCancel := context.WithCancel(context.WithoutCancel(ctx))
	s.runCtx, s.runCancel = runCtx, runCancel
	s.mu.Unlock()

	log := observe.Logger(ctx)
	capture, err := s.cfg.Source.Open(runCtx)
	if err != nil {
		if runCtx.Err() != nil {
			// Stopped while the microphone was opening.
			s.abandon()
			return ErrNotRecording
		}
		log.Error("microphone unavailable", "error", err)
		s.fail(runCancel)
		return fmt.Errorf("recording: open microphone: %w", err)
	}
	enc, err := s.cfg.NewEncoder()
	if err != nil {
		_ = capture.Close()
		log.Error("audio encoder unavailable", "error", err)
		s.fail(runCancel)
		return fmt.Errorf("recording: create encoder: %w", err)
	}

	if s.ctrl != nil {
		if err := s.ctrl.Start(runCtx, s.acc); err != nil {
			log.Warn("speech recognition did not start, recording audio only", "error", err)
		}
	}

	pumpDone := make(chan struct{})
	s.mu.Lock()
	if runCtx.Err() != nil {
		s.mu.Unlock()
		_ = capture.Close()
		if s.ctrl != nil {
			s.ctrl.Stop()
		}
		s.abandon()
		return ErrNotRecording
	}
	s.capture = capture
	s.enc = enc
	s.pumpDone = pumpDone
	s.startedAt = time.Now()
	s.maxTimer = time.AfterFunc(s.cfg.MaxDuration, func() {
		observe.Logger(runCtx).Info("recording reached maximum duration", "max", s.cfg.MaxDuration)
		_, _ = s.Stop(runCtx)
	})
	s.mu.Unlock()

	s.cfg.Metrics.ActiveRecordings.Add(ctx, 1)
	go s.pump(runCtx, capture, enc, pumpDone)
	s.cfg.Listener.OnPhase(PhaseRecording, "")
	log.Info("recording started", "format", capture.Format())
	return nil
}

// abandon returns a recording that never got its microphone to idle.
func (s *Session) abandon() {
	s.mu.Lock()
	s.phase = PhaseIdle
	s.mu.Unlock()
	s.cfg.Listener.OnPhase(PhaseIdle, "")
}

func (s *Session) fail(cancel context.CancelFunc) {
	cancel()
	s.mu.Lock()
	s.phase = PhaseFailed
	s.mu.Unlock()
	s.cfg.Metrics.RecordRecording(context.Background(), string(PhaseFailed), 0)
	s.cfg.Listener.OnError(MessageMicrophone)
	s.cfg.Listener.OnPhase(PhaseFailed, MessageMicrophone)
}

// pump feeds every captured frame to the encoder, the level monitor and the
// recognizer. A capture that ends on its own stops the recording.
func (s *Session) pump(ctx context.Context, capture audio.Capture, enc Encoder, done chan struct{}) {
	defer close(done)
	warned := false
	for f := range capture.Frames() {
		if err := enc.Write(f); err != nil && !warned {
			observe.Logger(ctx).Warn("audio encoding failed", "error", err)
			warned = true
		}
		s.level.Process(f)
		if s.ctrl != nil {
			_ = s.ctrl.SendAudio(f)
		}
	}
	if s.Phase() == PhaseRecording {
		observe.Logger(ctx).Warn("microphone capture ended unexpectedly")
		go func() { _, _ = s.Stop(ctx) }()
	}
}

// Stop ends the recording and returns its result. Concurrent and repeated
// calls return the same result. Stopping during the countdown cancels it
// and returns ErrNotRecording.
func (s *Session) Stop(ctx context.Context) (*Result, error) {
	s.mu.Lock()
	switch s.phase {
	case PhaseCountdown:
		s.countdownCancel()
		s.phase = PhaseIdle
		s.mu.Unlock()
		s.cfg.Listener.OnPhase(PhaseIdle, "")
		return nil, ErrNotRecording
	case PhaseProcessing, PhaseDone:
		done := s.done
		s.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.result, nil
	case PhaseRecording:
		if s.capture == nil {
			// Still opening the microphone; startCapture backs out.
			s.runCancel()
			s.mu.Unlock()
			return nil, ErrNotRecording
		}
	default:
		s.mu.Unlock()
		return nil, ErrNotRecording
	}
	s.phase = PhaseProcessing
	if s.maxTimer != nil {
		s.maxTimer.Stop()
	}
	capture, enc, pumpDone := s.capture, s.enc, s.pumpDone
	runCtx, runCancel := s.runCtx, s.runCancel
	id, startedAt, done := s.id, s.startedAt, s.done
	s.mu.Unlock()

	s.cfg.Listener.OnPhase(PhaseProcessing, MessageProcessing)
	ctx, span := observe.StartSpan(runCtx, "recording.finalize")
	ctx, cancel := context.WithTimeout(ctx, s.cfg.FinalizeTimeout)
	defer cancel()
	log := observe.Logger(ctx)

	if s.ctrl != nil {
		s.ctrl.Stop()
	}

	_ = capture.Close()
	select {
	case <-pumpDone:
	case <-ctx.Done():
		log.Warn("audio pump did not drain before finalize timeout")
	}
	blob, err := enc.Finalize()
	if err != nil {
		log.Error("audio finalize failed", "error", err)
	}

	activity := s.activity.Load()
	if s.ctrl != nil {
		activity = activity || s.ctrl.Snapshot().SpeechActivity
	}
	transcript, confidence := Reconcile(s.acc.Final(), s.acc.Interim(), s.acc.Confidence(), activity)

	s.mu.Lock()
	s.reconciled = true
	live, det := s.live, s.detection
	s.mu.Unlock()

	res := &Result{
		ID:         id,
		Transcript: transcript,
		Confidence: confidence,
		Audio:      blob,
		AudioType:  opus.ContentType,
		Duration:   time.Since(startedAt),
		CreatedAt:  time.Now().UTC(),
	}
	if det != nil {
		res.Language = det.Language
	}
	res.Translation = s.finalTranslation(ctx, transcript, res.Language, live)

	observe.EndSpan(span, nil)
	runCancel()
	s.cfg.Metrics.ActiveRecordings.Add(ctx, -1)
	s.cfg.Metrics.RecordRecording(ctx, string(PhaseDone), res.Duration.Seconds())
	log.Info("recording finished",
		"id", id, "confidence", confidence, "language", res.Language,
		"duration", res.Duration, "audio_bytes", len(blob))

	s.mu.Lock()
	s.result = res
	s.phase = PhaseDone
	s.capture, s.enc = nil, nil
	close(done)
	s.mu.Unlock()

	s.cfg.Listener.OnResult(res)
	s.cfg.Listener.OnPhase(PhaseDone, "")
	return res, nil
}

func (s *Session) finalTranslation(ctx context.Context, transcript, hint string, live *liveTranslation) *translate.Result {
	if !translatable(transcript) || s.cfg.Translator == nil || !s.cfg.Translator.Available() {
		return nil
	}
	if live.reusable(transcript) {
		r := live.result
		return &r
	}
	r, err := s.cfg.Translator.TranslateToEnglish(ctx, transcript, hint)
	if err != nil {
		observe.Logger(ctx).Warn("final translation failed", "code", translate.CodeOf(err), "error", err)
		source := hint
		if source == "" {
			source = translate.UnknownLanguage
		}
		s.cfg.Listener.OnError(errorMessage(err))
		return &translate.Result{TranslatedText: transcript, SourceLanguage: source, Status: translate.StatusFailed}
	}
	return &r
}

func errorMessage(err error) string {
	var te *translate.Error
	if errors.As(err, &te) && te.Message != "" {
		return te.Message
	}
	return "Translation unavailable. Please try again."
}

// Close cancels a countdown and finishes any running recording. The
// session remains usable.
func (s *Session) Close(ctx context.Context) {
	if _, err := s.Stop(ctx); err != nil && !errors.Is(err, ErrNotRecording) {
		observe.Logger(ctx).Warn("closing recording session", "error", err)
	}
}

// livePipeline runs detection and translation on settled text. Runs may
// overlap; a result is kept only if the recording has not been reconciled
// yet and no newer run already stored one.
func (s *Session) livePipeline(text string) {
	if utf8.RuneCountInString(text) < liveMinRunes || s.cfg.Detector == nil {
		return
	}
	s.mu.Lock()
	if s.reconciled || s.runCtx == nil {
		s.mu.Unlock()
		return
	}
	ctx, id := s.runCtx, s.id
	s.liveRuns++
	run := s.liveRuns
	s.mu.Unlock()

	e := s.cfg.Detector.DetectEnhanced(ctx, text)
	if e == nil {
		return
	}
	p := e.Primary
	s.mu.Lock()
	if !s.acceptLocked(id, run, s.detectionRun) {
		s.mu.Unlock()
		return
	}
	s.detection = &p
	s.detectionRun = run
	s.mu.Unlock()
	s.cfg.Listener.OnDetection(*e)

	if p.IsReliable && p.Confidence > preferLocaleConfidence && s.ctrl != nil {
		if loc := recognition.LocaleFor(p.Language); loc != "" {
			s.ctrl.PreferLocale(loc)
		}
	}

	var res translate.Result
	switch {
	case p.Language == language.English:
		res = translate.Result{TranslatedText: text, SourceLanguage: language.English, Confidence: 1, Status: translate.StatusNotRequired}
	case p.Confidence > liveTranslateMinConfidence && s.cfg.Translator != nil && s.cfg.Translator.Available():
		r, err := s.cfg.Translator.TranslateToEnglish(ctx, text, p.Language)
		if err != nil {
			if ctx.Err() == nil {
				observe.Logger(ctx).Warn("live translation failed", "code", translate.CodeOf(err), "error", err)
				s.cfg.Listener.OnAdvisory(MessageTranslationDegraded)
			}
			return
		}
		res = r
	default:
		return
	}

	s.mu.Lock()
	if !s.acceptLocked(id, run, s.liveRun) {
		s.mu.Unlock()
		return
	}
	s.live = &liveTranslation{source: text, result: res}
	s.liveRun = run
	s.mu.Unlock()
	s.cfg.Listener.OnTranslation(res)
}

// acceptLocked reports whether live run number run of recording id may
// replace a result stored by run stored.
func (s *Session) acceptLocked(id string, run, stored uint64) bool {
	return !s.reconciled && s.id == id && run > stored
}

func (s *Session) markActivity() {
	s.activity.Store(true)
	if s.ctrl != nil {
		s.ctrl.MarkActivity()
	}
}

func (s *Session) busyLocked() bool {
	return s.phase == PhaseCountdown || s.phase == PhaseRecording || s.phase == PhaseProcessing
}

func (s *Session) resetLocked() {
	s.id = uuid.NewString()
	s.acc.Reset()
	s.level.Reset()
	s.activity.Store(false)
	s.reconciled = false
	s.detectionRun, s.liveRun = 0, 0
	s.detection = nil
	s.live = nil
	s.result = nil
	s.done = make(chan struct{})
	s.countdownCancel = nil
}

// recognitionListener forwards controller notifications into the session.
type recognitionListener struct{ s *Session }

func (l recognitionListener) OnState(state recognition.State, locale string) {
	l.s.cfg.Listener.OnRecognition(state, locale)
}

func (l recognitionListener) OnTranscript(snap recognition.Snapshot) {
	l.s.cfg.Listener.OnTranscript(snap.Transcript, snap.Interim, snap.Confidence)
}

func (l recognitionListener) OnLiveText(text string, _ bool) {
	l.s.livePipeline(text)
}

func (l recognitionListener) OnAdvisory(message string) {
	l.s.cfg.Listener.OnAdvisory(message)
}

func (l recognitionListener) OnFatal(_ *stt.StreamError, message string) {
	l.s.cfg.Listener.OnError(message)
	l.s.mu.Lock()
	ctx := l.s.runCtx
	l.s.mu.Unlock()
	go func() { _, _ = l.s.Stop(ctx) }()
}
