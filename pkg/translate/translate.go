// Package translate turns emergency transcripts into English.
//
// A [Translator] resolves the source language (from a caller hint or by
// running language detection), skips texts that need no translation, calls
// the remote translation backend and grades the result with a confidence
// and a [Status] derived from how sure the language detection was.
package translate

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/MrWong99/lingualert/internal/observe"
	"github.com/MrWong99/lingualert/pkg/langdetect"
	"github.com/MrWong99/lingualert/pkg/language"
	"github.com/MrWong99/lingualert/pkg/provider/translation"
)

// Placeholder transcripts produced when a recording had no recognisable
// speech. They are never sent for translation.
const (
	PlaceholderRecorded       = "Audio recorded"
	PlaceholderSpeechDetected = "Audio recorded - speech detected"
)

// UnknownLanguage is reported for texts too short to classify.
const UnknownLanguage = "unknown"

const defaultTimeout = 15 * time.Second

// Status is the outcome of a translation.
type Status string

const (
	StatusPending       Status = "pending"
	StatusCompleted     Status = "completed"
	StatusLowConfidence Status = "low_confidence"
	StatusFailed        Status = "failed"
	StatusNotRequired   Status = "not_required"
)

// Result is a graded translation.
type Result struct {
	TranslatedText string  `json:"translated_text"`
	SourceLanguage string  `json:"source_language"`
	Confidence     float64 `json:"confidence"`
	Status         Status  `json:"status"`
}

// Detector is the subset of [langdetect.Detector] the translator needs.
type Detector interface {
	DetectEnhanced(ctx context.Context, text string) *langdetect.Enhanced
}

// Option is a functional option for [New].
type Option func(*Translator)

// WithTuning replaces [DefaultTuning].
func WithTuning(t Tuning) Option {
	return func(tr *Translator) { tr.tuning = t }
}

// WithTimeout bounds each remote translation.
func WithTimeout(d time.Duration) Option {
	return func(tr *Translator) { tr.timeout = d }
}

// WithMetrics sets the metrics sink. Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(tr *Translator) { tr.metrics = m }
}

// WithProviderName labels metrics. Defaults to "translation".
func WithProviderName(name string) Option {
	return func(tr *Translator) { tr.providerName = name }
}

// Translator translates transcripts to English. It is safe for concurrent
// use.
type Translator struct {
	provider     translation.Provider
	detector     Detector
	providerName string
	tuning       Tuning
	timeout      time.Duration
	metrics      *observe.Metrics
}

// New creates a Translator. A nil provider yields an unconfigured
// translator whose calls fail with [CodeUnconfigured]. detector may be nil,
// in which case un-hinted texts are sent with source "auto".
func New(provider translation.Provider, detector Detector, opts ...Option) (*Translator, error) {
	tr := &Translator{
		provider:     provider,
		detector:     detector,
		providerName: "translation",
		tuning:       DefaultTuning(),
		timeout:      defaultTimeout,
	}
	for _, o := range opts {
		o(tr)
	}
	if err := tr.tuning.Validate(); err != nil {
		return nil, errors.Join(errors.New("translate: invalid tuning"), err)
	}
	if tr.metrics == nil {
		tr.metrics = observe.DefaultMetrics()
	}
	return tr, nil
}

// Available reports whether a translation backend is configured.
func (tr *Translator) Available() bool {
	return tr != nil && tr.provider != nil
}

// Tuning returns the active tuning.
func (tr *Translator) Tuning() Tuning { return tr.tuning }

// TranslateToEnglish translates text. hint, when non-empty, is trusted as
// the source language. Failures are returned as *Error.
func (tr *Translator) TranslateToEnglish(ctx context.Context, text, hint string) (Result, error) {
	if !tr.Available() {
		return Result{}, &Error{Code: CodeUnconfigured, Message: "Translation service is not configured."}
	}
	clean := strings.TrimSpace(text)
	if clean == "" {
		return Result{}, &Error{Code: CodeEmptyInput, Message: "No text provided for translation."}
	}
	if utf8.RuneCountInString(clean) < tr.tuning.MinRunes || IsPlaceholder(clean) {
		return tr.done(ctx, Result{TranslatedText: clean, SourceLanguage: UnknownLanguage, Status: StatusNotRequired}), nil
	}

	lang, detConf, reliable := tr.resolve(ctx, clean, hint)
	lang = language.Normalize(lang)
	if lang == language.English {
		return tr.done(ctx, Result{TranslatedText: clean, SourceLanguage: language.English, Confidence: 1, Status: StatusNotRequired}), nil
	}

	resp, err := tr.remote(ctx, clean, lang)
	if err != nil {
		te := classify(err)
		observe.Logger(ctx).Warn("translation failed",
			"provider", tr.providerName, "source", lang, "code", te.Code, "error", err)
		tr.metrics.RecordTranslation(ctx, string(StatusFailed))
		return Result{}, te
	}

	source := lang
	if resp.DetectedSourceLanguage != "" {
		source = language.Normalize(resp.DetectedSourceLanguage)
	}
	if strings.EqualFold(strings.TrimSpace(resp.TranslatedText), clean) {
		return tr.done(ctx, Result{TranslatedText: clean, SourceLanguage: source, Confidence: 1, Status: StatusNotRequired}), nil
	}

	conf := tr.tuning.Confidence(detConf, reliable)
	res := Result{
		TranslatedText: resp.TranslatedText,
		SourceLanguage: source,
		Confidence:     conf,
		Status:         tr.tuning.Status(conf, reliable),
	}
	observe.Logger(ctx).Debug("translation finished",
		"source", source, "confidence", conf, "status", res.Status)
	return tr.done(ctx, res), nil
}

// IsPlaceholder reports whether text is one of the no-speech placeholders.
func IsPlaceholder(text string) bool {
	return text == PlaceholderRecorded || text == PlaceholderSpeechDetected
}

// resolve picks the source language and how much to trust it.
func (tr *Translator) resolve(ctx context.Context, text, hint string) (string, float64, bool) {
	if hint != "" && hint != language.Auto {
		return hint, 1, true
	}
	if tr.detector != nil {
		if e := tr.detector.DetectEnhanced(ctx, text); e != nil {
			return e.Primary.Language, e.Primary.Confidence, e.Primary.IsReliable
		}
	}
	return language.Auto, tr.tuning.UndetectedConfidence, false
}

func (tr *Translator) remote(ctx context.Context, text, source string) (translation.Response, error) {
	ctx, span := observe.StartSpan(ctx, "translate.to_english")
	ctx, cancel := context.WithTimeout(ctx, tr.timeout)
	defer cancel()

	req := translation.Request{Text: text, Target: language.English}
	if source != language.Auto {
		req.Source = source
	}

	start := time.Now()
	resp, err := tr.provider.Translate(ctx, req)
	tr.metrics.TranslateDuration.Record(ctx, time.Since(start).Seconds())
	observe.EndSpan(span, err)
	if err != nil {
		tr.metrics.RecordProviderRequest(ctx, tr.providerName, "translate", "error")
		tr.metrics.RecordProviderError(ctx, tr.providerName, "translate")
		return translation.Response{}, err
	}
	tr.metrics.RecordProviderRequest(ctx, tr.providerName, "translate", "ok")
	return resp, nil
}

func (tr *Translator) done(ctx context.Context, r Result) Result {
	tr.metrics.RecordTranslation(ctx, string(r.Status))
	return r
}
