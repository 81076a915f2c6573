// Package langdetect identifies the language of short transcripts.
//
// A [Detector] asks a remote [langid.Provider] for candidates and then
// cross-checks the answer against the script the text is written in: a
// language normally written in the observed script gains confidence, one
// that is not loses it. When the remote side fails (error, timeout, open
// circuit) the detector falls back to guessing the most common language for
// the dominant script.
//
// Detect never returns an error. A nil result means "no usable guess".
package langdetect

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/lingualert/internal/observe"
	"github.com/MrWong99/lingualert/internal/resilience"
	"github.com/MrWong99/lingualert/pkg/language"
	"github.com/MrWong99/lingualert/pkg/provider/langid"
	"github.com/MrWong99/lingualert/pkg/script"
)

const (
	defaultTimeout    = 15 * time.Second
	defaultBatchLimit = 4
)

// Detection is one language guess.
type Detection struct {
	Language   string  `json:"language"`
	Confidence float64 `json:"confidence"`
	Script     string  `json:"script"`
	IsReliable bool    `json:"is_reliable"`
}

// TextAnalysis summarises the script analysis of the detected text.
type TextAnalysis struct {
	Length          int      `json:"length"`
	HasNumbers      bool     `json:"has_numbers"`
	HasSpecialChars bool     `json:"has_special_chars"`
	ScriptType      string   `json:"script_type"`
	UnicodeBlocks   []string `json:"unicode_blocks"`
}

// Enhanced is a detection together with lower-ranked candidates and the
// script analysis it was checked against.
type Enhanced struct {
	Primary      Detection    `json:"primary"`
	Alternatives []Detection  `json:"alternatives"`
	TextAnalysis TextAnalysis `json:"text_analysis"`
}

// Option is a functional option for [New].
type Option func(*Detector)

// WithTuning replaces [DefaultTuning].
func WithTuning(t Tuning) Option {
	return func(d *Detector) { d.tuning = t }
}

// WithTimeout bounds each remote call.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Detector) { d.timeout = timeout }
}

// WithMetrics sets the metrics sink. Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(d *Detector) { d.metrics = m }
}

// WithProviderName labels metrics and spans. Defaults to "langid".
func WithProviderName(name string) Option {
	return func(d *Detector) { d.providerName = name }
}

// WithCircuitBreaker configures the breaker guarding the remote provider.
func WithCircuitBreaker(cfg resilience.CircuitBreakerConfig) Option {
	return func(d *Detector) { d.breakerCfg = cfg }
}

// WithBatchLimit caps the concurrency of [Detector.DetectBatch].
func WithBatchLimit(n int) Option {
	return func(d *Detector) { d.batchLimit = n }
}

// Detector combines remote language identification with script analysis.
// It is safe for concurrent use.
type Detector struct {
	provider     langid.Provider
	providerName string
	tuning       Tuning
	timeout      time.Duration
	batchLimit   int
	metrics      *observe.Metrics
	breakerCfg   resilience.CircuitBreakerConfig
	breaker      *resilience.CircuitBreaker
}

// New creates a Detector. A nil provider yields an unconfigured detector
// whose Detect always returns nil.
func New(provider langid.Provider, opts ...Option) (*Detector, error) {
	d := &Detector{
		provider:     provider,
		providerName: "langid",
		tuning:       DefaultTuning(),
		timeout:      defaultTimeout,
		batchLimit:   defaultBatchLimit,
	}
	for _, o := range opts {
		o(d)
	}
	if err := d.tuning.Validate(); err != nil {
		return nil, errors.Join(errors.New("langdetect: invalid tuning"), err)
	}
	if d.metrics == nil {
		d.metrics = observe.DefaultMetrics()
	}
	if d.batchLimit <= 0 {
		d.batchLimit = defaultBatchLimit
	}
	cfg := d.breakerCfg
	if cfg.Name == "" {
		cfg.Name = "langdetect/" + d.providerName
	}
	d.breaker = resilience.NewCircuitBreaker(cfg)
	return d, nil
}

// Available reports whether a remote provider is configured.
func (d *Detector) Available() bool {
	return d != nil && d.provider != nil
}

// Tuning returns the active tuning.
func (d *Detector) Tuning() Tuning { return d.tuning }

// Detect returns the best language guess for text, or nil.
func (d *Detector) Detect(ctx context.Context, text string) *Detection {
	e := d.DetectEnhanced(ctx, text)
	if e == nil {
		return nil
	}
	return &e.Primary
}

// DetectEnhanced returns the best guess together with alternatives and the
// script analysis, or nil.
func (d *Detector) DetectEnhanced(ctx context.Context, text string) *Enhanced {
	if !d.Available() {
		return nil
	}
	clean := strings.TrimSpace(text)
	if clean == "" {
		return nil
	}
	analysis := script.Analyze(clean)
	ta := TextAnalysis{
		Length:          utf8.RuneCountInString(clean),
		HasNumbers:      analysis.HasNumbers,
		HasSpecialChars: analysis.HasSpecialChars,
		ScriptType:      analysis.Script,
		UnicodeBlocks:   analysis.Blocks,
	}

	cands, err := d.remote(ctx, clean)
	if err != nil {
		observe.Logger(ctx).Warn("language detection failed, using script fallback",
			"provider", d.providerName, "script", analysis.Script, "error", err)
		fb := d.fallback(analysis)
		if fb == nil {
			return nil
		}
		d.metrics.DetectionFallbacks.Add(ctx, 1)
		return &Enhanced{Primary: *fb, TextAnalysis: ta}
	}
	if len(cands) == 0 {
		return nil
	}

	out := &Enhanced{TextAnalysis: ta}
	for i, c := range cands {
		det := d.adjust(c, analysis, ta.Length)
		if i == 0 {
			out.Primary = det
			continue
		}
		out.Alternatives = append(out.Alternatives, det)
	}
	return out
}

// DetectBatch detects every text concurrently. The result has one entry per
// input, in order; entries may be nil.
func (d *Detector) DetectBatch(ctx context.Context, texts []string) []*Detection {
	out := make([]*Detection, len(texts))
	var g errgroup.Group
	g.SetLimit(d.batchLimit)
	for i, t := range texts {
		g.Go(func() error {
			out[i] = d.Detect(ctx, t)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (d *Detector) remote(ctx context.Context, text string) ([]langid.Candidate, error) {
	ctx, span := observe.StartSpan(ctx, "langdetect.detect")
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := time.Now()
	var cands []langid.Candidate
	err := d.breaker.Execute(func() error {
		var err error
		cands, err = d.provider.Detect(ctx, text)
		return err
	})
	d.metrics.DetectDuration.Record(ctx, time.Since(start).Seconds())
	observe.EndSpan(span, err)
	if err != nil {
		d.metrics.RecordProviderRequest(ctx, d.providerName, "detect", "error")
		d.metrics.RecordProviderError(ctx, d.providerName, "detect")
		return nil, err
	}
	d.metrics.RecordProviderRequest(ctx, d.providerName, "detect", "ok")
	return cands, nil
}

// adjust rescales a raw candidate against the script analysis.
func (d *Detector) adjust(c langid.Candidate, a script.Analysis, length int) Detection {
	t := d.tuning
	lang := language.Normalize(c.Language)
	conf := clamp01(c.Confidence)

	if expected := language.ExpectedScript(lang); expected != "" {
		if language.MatchesScript(lang, a.Script) {
			conf = math.Min(conf*t.ScriptMatchBoost, 1)
		} else {
			conf *= t.ScriptMismatchPenalty
		}
	}
	if length > t.LongTextRunes {
		conf = math.Min(conf*t.LongTextBoost, 1)
	}
	return Detection{
		Language:   lang,
		Confidence: conf,
		Script:     a.Script,
		IsReliable: conf >= t.ReliableConfidence && a.Confidence >= t.ReliableScriptConfidence,
	}
}

// fallback guesses the most common language for the dominant script.
func (d *Detector) fallback(a script.Analysis) *Detection {
	lang, ok := language.ForScript(a.Script)
	if !ok || a.Confidence < d.tuning.FallbackMinScript {
		return nil
	}
	return &Detection{
		Language:   lang,
		Confidence: a.Confidence * d.tuning.FallbackFactor,
		Script:     a.Script,
		IsReliable: a.Confidence >= d.tuning.FallbackReliableScript,
	}
}

func clamp01(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
