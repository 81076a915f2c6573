// Package recognition keeps a continuous speech recognition stream alive for
// the length of a recording and rotates through recognition locales until one
// of them produces finalized speech.
//
// Streaming backends end sessions on their own (silence, network hiccups,
// unsupported locale). The [Controller] restarts them after a short settle
// delay and decides which locale to use next:
//
//   - audio activity but no finalized speech: advance to the next locale;
//   - no activity at all: reuse the same locale;
//   - once anything was finalized: stay on that locale for good.
//
// All rotation and latch state is owned by a single goroutine that drains a
// queue of commands, stream events and restart timers. Stream events carry
// the generation of the stream that produced them, so events from a stream
// that has already been replaced are dropped.
package recognition

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/MrWong99/lingualert/internal/debounce"
	"github.com/MrWong99/lingualert/internal/observe"
	"github.com/MrWong99/lingualert/pkg/audio"
	"github.com/MrWong99/lingualert/pkg/provider/stt"
)

// Controller defaults applied by New to zero Config fields.
const (
	// DefaultSettleDelay is the pause before a stream is reopened after it
	// ended or rotated. Configured values are clamped to
	// [MinSettleDelay, MaxSettleDelay].
	DefaultSettleDelay = 150 * time.Millisecond
	MinSettleDelay     = 100 * time.Millisecond
	MaxSettleDelay     = 200 * time.Millisecond

	// DefaultFinalDebounce is how long finalized text must settle before
	// OnLiveText fires.
	DefaultFinalDebounce = 500 * time.Millisecond

	// DefaultInterimDebounce is the settle time for interim text.
	DefaultInterimDebounce = 1500 * time.Millisecond

	// DefaultInterimMinRunes is the displayed length interim text must
	// exceed before it triggers the live pipeline.
	DefaultInterimMinRunes = 10

	// DefaultSampleRate is the PCM rate streamed to the backend in Hz.
	DefaultSampleRate = 16000

	// DefaultMaxOpenFailures is how many consecutive failed stream opens
	// are tolerated before recognition gives up and continues audio-only.
	DefaultMaxOpenFailures = 3

	liveKey = "live"
)

// Messages surfaced to the user.
const (
	MessageCaptureFailed    = "Microphone access failed. Please check your microphone permissions."
	MessagePermissionDenied = "Microphone access denied. Please allow microphone access and try again."
	MessageNetwork          = "Speech recognition unavailable due to network issues. Recording audio only - please speak clearly."
	MessageServiceRefused   = "Speech recognition service is unavailable right now. Recording audio only - please speak clearly."
)

// Rotation reasons reported to metrics.
const (
	reasonNoFinal     = "no_final"
	reasonUnsupported = "unsupported"
)

var (
	ErrNoProvider    = errors.New("recognition: no stt provider configured")
	ErrUnknownLocale = errors.New("recognition: start locale is not in the rotation")
	ErrRunning       = errors.New("recognition: controller already running")
)

// Listener receives controller notifications. Methods other than OnLiveText
// run on the controller goroutine and must not call [Controller.Stop]
// synchronously. OnLiveText runs on a timer goroutine.
type Listener interface {
	// OnState reports a state transition and the locale in use.
	OnState(state State, locale string)

	// OnTranscript reports the transcript after every result.
	OnTranscript(snap Snapshot)

	// OnLiveText fires once a burst of results settled and the text is
	// worth running through detection and translation.
	OnLiveText(text string, interim bool)

	// OnAdvisory reports a non-fatal condition the user should know about.
	OnAdvisory(message string)

	// OnFatal reports an error that ends the recording.
	OnFatal(err *stt.StreamError, message string)
}

// NopListener ignores every notification. Embed it to implement only some
// methods.
type NopListener struct{}

func (NopListener) OnState(State, string)            {}
func (NopListener) OnTranscript(Snapshot)            {}
func (NopListener) OnLiveText(string, bool)          {}
func (NopListener) OnAdvisory(string)                {}
func (NopListener) OnFatal(*stt.StreamError, string) {}

var _ Listener = NopListener{}

// Config configures a [Controller].
type Config struct {
	// Provider opens recognition streams. Required.
	Provider stt.Provider

	// Locales is the rotation order. Defaults to [DefaultLocales].
	Locales []string

	// StartLocale is the first locale of every recording. Defaults to
	// Locales[0] and must be part of Locales.
	StartLocale string

	// SampleRate is the rate audio is delivered to the provider at.
	// Defaults to 16 kHz. Audio is always sent mono.
	SampleRate int

	// SettleDelay is the pause before a stream is restarted. Clamped to
	// [MinSettleDelay, MaxSettleDelay].
	SettleDelay time.Duration

	// FinalDebounce and InterimDebounce delay the live pipeline after
	// final and interim results.
	FinalDebounce   time.Duration
	InterimDebounce time.Duration

	// InterimMinRunes is the transcript length an interim result must
	// exceed to trigger the live pipeline.
	InterimMinRunes int

	// MaxOpenFailures is the number of consecutive failed stream opens
	// after which recognition gives up and the recording continues audio
	// only.
	MaxOpenFailures int

	Listener Listener
	Metrics  *observe.Metrics
}

// Snapshot is a point-in-time view of a controller.
type Snapshot struct {
	State             State   `json:"state"`
	Locale            string  `json:"locale"`
	PreferredLocale   string  `json:"preferred_locale,omitempty"`
	HasReceivedSpeech bool    `json:"has_received_speech"`
	SpeechActivity    bool    `json:"speech_activity"`
	ErrorLatched      bool    `json:"error_latched"`
	AudioOnly         bool    `json:"audio_only"`
	Transcript        string  `json:"transcript"`
	Interim           string  `json:"interim"`
	Confidence        float64 `json:"confidence"`
	Rotations         int     `json:"rotations"`
}

type streamEvent struct {
	gen uint64
	ev  stt.Event
}

// Controller drives recognition for one recording at a time. Create it with
// [New]; it may be started again after [Controller.Stop].
type Controller struct {
	cfg Config

	feedMu sync.Mutex
	conv   audio.FormatConverter

	stopped atomic.Bool

	// mu guards the fields below for readers on other goroutines. They are
	// written only by the controller goroutine, or by Start before it runs.
	mu            sync.Mutex
	state         State
	index         int
	locale        string
	preferred     string
	hasSpeech     bool
	activity      bool
	latched       bool
	audioOnly     bool
	pendingRotate bool
	rotations     int
	openFailures  int
	unsupported   int
	gen           uint64
	handle        stt.SessionHandle
	restart       *time.Timer
	acc           *Accumulator
	debouncer     *debounce.Debouncer
	cmds          chan func(context.Context)
	events        chan streamEvent
	cancel        context.CancelFunc
	done          chan struct{}
}

// New validates cfg and returns an idle controller.
func New(cfg Config) (*Controller, error) {
	if cfg.Provider == nil {
		return nil, ErrNoProvider
	}
	if len(cfg.Locales) == 0 {
		cfg.Locales = DefaultLocales
	}
	cfg.Locales = slices.Clone(cfg.Locales)
	if cfg.StartLocale == "" {
		cfg.StartLocale = cfg.Locales[0]
	}
	if !slices.Contains(cfg.Locales, cfg.StartLocale) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownLocale, cfg.StartLocale)
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = DefaultSampleRate
	}
	if cfg.SettleDelay == 0 {
		cfg.SettleDelay = DefaultSettleDelay
	}
	cfg.SettleDelay = min(max(cfg.SettleDelay, MinSettleDelay), MaxSettleDelay)
	if cfg.FinalDebounce <= 0 {
		cfg.FinalDebounce = DefaultFinalDebounce
	}
	if cfg.InterimDebounce <= 0 {
		cfg.InterimDebounce = DefaultInterimDebounce
	}
	if cfg.InterimMinRunes <= 0 {
		cfg.InterimMinRunes = DefaultInterimMinRunes
	}
	if cfg.MaxOpenFailures <= 0 {
		cfg.MaxOpenFailures = DefaultMaxOpenFailures
	}
	if cfg.Listener == nil {
		cfg.Listener = NopListener{}
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observe.DefaultMetrics()
	}
	return &Controller{
		cfg:    cfg,
		conv:   audio.FormatConverter{Target: audio.Format{SampleRate: cfg.SampleRate, Channels: 1}},
		locale: cfg.StartLocale,
	}, nil
}

// Start resets the per-recording state and opens the first stream on the
// start locale. Transcripts are collected into acc (a fresh one if nil).
func (c *Controller) Start(ctx context.Context, acc *Accumulator) error {
	c.mu.Lock()
	if c.done != nil {
		select {
		case <-c.done:
		default:
			c.mu.Unlock()
			return ErrRunning
		}
	}
	if acc == nil {
		acc = &Accumulator{}
	}
	c.state = StateIdle
	c.index = slices.Index(c.cfg.Locales, c.cfg.StartLocale)
	c.locale = c.cfg.StartLocale
	c.preferred = ""
	c.hasSpeech, c.activity, c.latched, c.audioOnly, c.pendingRotate = false, false, false, false, false
	c.rotations, c.openFailures, c.unsupported = 0, 0, 0
	c.acc = acc
	c.debouncer = debounce.New()
	c.cmds = make(chan func(context.Context), 64)
	c.events = make(chan streamEvent, 64)
	loopCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	c.stopped.Store(false)
	c.mu.Unlock()

	go c.run(loopCtx)
	c.enqueue(c.open)
	return nil
}

// Stop latches the controller, cancels pending live-pipeline triggers,
// closes the stream and waits for the controller goroutine to exit. It is
// idempotent and safe to call before Start.
func (c *Controller) Stop() {
	c.stopped.Store(true)
	c.mu.Lock()
	deb, cancel, done := c.debouncer, c.cancel, c.done
	c.mu.Unlock()
	if deb != nil {
		deb.Stop()
	}
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Stopped reports whether Stop was called since the last Start.
func (c *Controller) Stopped() bool { return c.stopped.Load() }

// MarkActivity records audio-energy activity. It never blocks; a mark is
// dropped when the queue is full since the next frame will repeat it.
func (c *Controller) MarkActivity() {
	c.mu.Lock()
	already := c.activity
	cmds := c.cmds
	c.mu.Unlock()
	if already || cmds == nil {
		return
	}
	select {
	case cmds <- func(context.Context) { c.setActivity() }:
	default:
	}
}

// PreferLocale asks the controller to use locale from the next (re)start on.
func (c *Controller) PreferLocale(locale string) {
	if locale == "" {
		return
	}
	c.enqueue(func(ctx context.Context) {
		if locale == c.locale {
			return
		}
		c.mu.Lock()
		c.preferred = locale
		c.mu.Unlock()
		observe.Logger(ctx).Info("recognition locale preferred", "current", c.locale, "preferred", locale)
	})
}

// SendAudio converts f to the recognizer format and forwards it to the open
// stream. Audio arriving while no stream is open is dropped.
func (c *Controller) SendAudio(f audio.Frame) error {
	c.feedMu.Lock()
	conv := c.conv.Convert(f)
	c.feedMu.Unlock()

	c.mu.Lock()
	h := c.handle
	c.mu.Unlock()
	if h == nil || len(conv.Data) == 0 {
		return nil
	}
	return h.SendAudio(conv.Data)
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	s := Snapshot{
		State:             c.state,
		Locale:            c.locale,
		PreferredLocale:   c.preferred,
		HasReceivedSpeech: c.hasSpeech,
		SpeechActivity:    c.activity,
		ErrorLatched:      c.latched,
		AudioOnly:         c.audioOnly,
		Rotations:         c.rotations,
	}
	acc := c.acc
	c.mu.Unlock()
	if acc != nil {
		s.Transcript = acc.Final()
		s.Interim = acc.Interim()
		s.Confidence = acc.Confidence()
	}
	return s
}

func (c *Controller) enqueue(fn func(context.Context)) {
	c.mu.Lock()
	cmds, done := c.cmds, c.done
	c.mu.Unlock()
	if cmds == nil {
		return
	}
	select {
	case cmds <- fn:
	case <-done:
	}
}

func (c *Controller) run(ctx context.Context) {
	c.mu.Lock()
	cmds, events, done := c.cmds, c.events, c.done
	c.mu.Unlock()
	defer close(done)
	defer c.shutdown()

	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-cmds:
			fn(ctx)
		case se := <-events:
			c.handleEvent(ctx, se)
		}
	}
}

func (c *Controller) shutdown() {
	c.mu.Lock()
	h := c.handle
	c.handle = nil
	if c.restart != nil {
		c.restart.Stop()
		c.restart = nil
	}
	c.gen++
	c.state = StateIdle
	locale := c.locale
	deb := c.debouncer
	c.mu.Unlock()

	deb.Stop()
	if h != nil {
		_ = h.Close()
	}
	c.cfg.Listener.OnState(StateIdle, locale)
}

// open starts a stream on the next locale. Runs on the controller goroutine.
func (c *Controller) open(ctx context.Context) {
	if c.stopped.Load() || c.latched || c.audioOnly || ctx.Err() != nil {
		return
	}
	locale := c.locale
	if c.preferred != "" {
		locale = c.preferred
		if i := slices.Index(c.cfg.Locales, locale); i >= 0 {
			c.index = i
		}
	}

	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.state = StateStarting
	c.locale = locale
	c.preferred = ""
	c.restart = nil
	events, done := c.events, c.done
	c.mu.Unlock()
	c.cfg.Listener.OnState(StateStarting, locale)

	spanCtx, span := observe.StartSpan(ctx, "recognition.open")
	start := time.Now()
	h, err := c.cfg.Provider.StartStream(spanCtx, stt.StreamConfig{
		SampleRate: c.cfg.SampleRate,
		Channels:   1,
		Language:   locale,
		Interim:    true,
	})
	c.cfg.Metrics.STTDuration.Record(ctx, time.Since(start).Seconds())
	observe.EndSpan(span, err)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		c.cfg.Metrics.RecordProviderRequest(ctx, "stt", "stream", "error")
		c.cfg.Metrics.RecordProviderError(ctx, "stt", "stream")
		se := stt.AsStreamError(err)
		observe.Logger(ctx).Warn("recognition stream failed to open", "locale", locale, "kind", se.Kind, "error", err)
		c.handleError(ctx, se)
		c.handleEnd(ctx)
		return
	}
	c.cfg.Metrics.RecordProviderRequest(ctx, "stt", "stream", "ok")

	c.mu.Lock()
	c.handle = h
	c.mu.Unlock()
	go forward(gen, h, events, done)
}

// forward relays a stream's events to the controller goroutine. After the
// controller exited it keeps draining until the stream closes.
func forward(gen uint64, h stt.SessionHandle, events chan<- streamEvent, done <-chan struct{}) {
	for ev := range h.Events() {
		select {
		case events <- streamEvent{gen: gen, ev: ev}:
		case <-done:
		}
	}
}

func (c *Controller) handleEvent(ctx context.Context, se streamEvent) {
	if se.gen != c.gen {
		observe.Logger(ctx).Debug("dropping event from superseded stream", "kind", se.ev.Kind, "gen", se.gen)
		return
	}
	switch se.ev.Kind {
	case stt.EventStart:
		c.mu.Lock()
		c.state = StateListening
		c.openFailures, c.unsupported = 0, 0
		locale := c.locale
		c.mu.Unlock()
		c.cfg.Listener.OnState(StateListening, locale)
	case stt.EventResult:
		c.handleResult(se.ev.Transcript)
	case stt.EventError:
		if se.ev.Err != nil {
			c.handleError(ctx, se.ev.Err)
		}
	case stt.EventEnd:
		c.handleEnd(ctx)
	}
}

func (c *Controller) handleResult(t stt.Transcript) {
	text := strings.TrimSpace(t.Text)
	c.mu.Lock()
	if text != "" {
		c.activity = true
	}
	if t.IsFinal {
		c.hasSpeech = true
	}
	c.mu.Unlock()

	switch {
	case t.IsFinal && text != "":
		c.acc.AppendFinal(text, t.Confidence)
	case t.IsFinal:
		c.acc.SetInterim("")
	default:
		c.acc.SetInterim(text)
	}
	c.cfg.Listener.OnTranscript(c.Snapshot())

	if t.IsFinal {
		if text != "" {
			c.trigger(c.acc.Final(), false, c.cfg.FinalDebounce)
		}
		return
	}
	if display := c.acc.Display(); utf8.RuneCountInString(display) > c.cfg.InterimMinRunes {
		c.trigger(display, true, c.cfg.InterimDebounce)
	}
}

func (c *Controller) trigger(text string, interim bool, delay time.Duration) {
	c.debouncer.Call(liveKey, delay, func() {
		if c.stopped.Load() {
			return
		}
		c.cfg.Listener.OnLiveText(text, interim)
	})
}

func (c *Controller) handleError(ctx context.Context, se *stt.StreamError) {
	log := observe.Logger(ctx)
	switch se.Kind {
	case stt.ErrorNoSpeech:
		// The end event that follows decides about rotation.
		log.Debug("recognition heard no speech", "locale", c.locale)
	case stt.ErrorAudioCapture, stt.ErrorPermissionDenied:
		c.latch(ctx, se)
	case stt.ErrorNetwork:
		c.degrade(ctx, se, MessageNetwork)
	case stt.ErrorServiceNotAllowed:
		// Rejected credentials or audio do not recover by reopening.
		c.degrade(ctx, se, MessageServiceRefused)
	case stt.ErrorLanguageNotSupported:
		c.pendingRotate = true
		c.unsupported++
		if c.unsupported >= len(c.cfg.Locales) {
			c.degrade(ctx, se, MessageNetwork)
		}
	case stt.ErrorAborted:
	default:
		c.openFailures++
		log.Warn("recognition error", "locale", c.locale, "error", se)
		if c.openFailures >= c.cfg.MaxOpenFailures {
			c.degrade(ctx, se, MessageNetwork)
		}
	}
}

func (c *Controller) latch(ctx context.Context, se *stt.StreamError) {
	c.mu.Lock()
	c.latched = true
	c.state = StateErrorLatched
	locale := c.locale
	c.mu.Unlock()
	c.debouncer.CancelAll()

	msg := MessageCaptureFailed
	if se.Kind == stt.ErrorPermissionDenied {
		msg = MessagePermissionDenied
	}
	observe.Logger(ctx).Error("recognition latched on fatal error", "locale", locale, "kind", se.Kind, "error", se)
	c.cfg.Listener.OnState(StateErrorLatched, locale)
	c.cfg.Listener.OnFatal(se, msg)
}

// degrade stops restarting recognition for the rest of the recording.
func (c *Controller) degrade(ctx context.Context, se *stt.StreamError, advisory string) {
	if c.audioOnly {
		return
	}
	c.mu.Lock()
	c.audioOnly = true
	c.mu.Unlock()
	observe.Logger(ctx).Warn("recognition unavailable, continuing audio-only", "locale", c.locale, "kind", se.Kind)
	c.cfg.Listener.OnAdvisory(advisory)
}

func (c *Controller) handleEnd(ctx context.Context) {
	c.mu.Lock()
	h := c.handle
	c.handle = nil
	c.mu.Unlock()
	if h != nil {
		_ = h.Close()
	}

	if c.stopped.Load() || c.latched {
		return
	}
	if c.audioOnly {
		c.setState(StateIdle)
		return
	}
	c.setState(StateEnding)

	reason := ""
	switch {
	case c.pendingRotate:
		reason = reasonUnsupported
	case c.preferred != "", c.hasSpeech:
	case c.activity:
		reason = reasonNoFinal
	}
	c.pendingRotate = false
	if reason != "" {
		c.rotate(ctx, reason)
	}

	gen := c.gen
	t := time.AfterFunc(c.cfg.SettleDelay, func() {
		c.enqueue(func(ctx context.Context) {
			if c.gen == gen {
				c.open(ctx)
			}
		})
	})
	c.mu.Lock()
	c.restart = t
	c.mu.Unlock()
}

func (c *Controller) rotate(ctx context.Context, reason string) {
	c.mu.Lock()
	c.index = (c.index + 1) % len(c.cfg.Locales)
	c.locale = c.cfg.Locales[c.index]
	c.rotations++
	locale := c.locale
	c.mu.Unlock()
	c.cfg.Metrics.RecordRotation(ctx, reason, locale)
	observe.Logger(ctx).Info("rotating recognition locale", "reason", reason, "to", locale)
}

func (c *Controller) setActivity() {
	c.mu.Lock()
	c.activity = true
	c.mu.Unlock()
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	locale := c.locale
	c.mu.Unlock()
	c.cfg.Listener.OnState(s, locale)
}
