package resilience

import (
	"context"

	"github.com/MrWong99/lingualert/pkg/provider/tts"
)

// TTSFallback implements [tts.Provider] with automatic failover across multiple
// TTS backends. Each backend has its own circuit breaker.
//
// Input-level failures (empty text, unknown voice, rejected request) are
// returned straight away; no other backend would accept them either.
type TTSFallback struct {
	group *FallbackGroup[tts.Provider]
}

var _ tts.Provider = (*TTSFallback)(nil)

// NewTTSFallback creates a [TTSFallback] with primary as the preferred backend.
func NewTTSFallback(primary tts.Provider, primaryName string, cfg FallbackConfig) *TTSFallback {
	if cfg.Permanent == nil {
		cfg.Permanent = ttsInputError
	}
	if cfg.CircuitBreaker.IgnoreError == nil {
		cfg.CircuitBreaker.IgnoreError = ttsInputError
	}
	return &TTSFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional TTS provider as a fallback.
func (f *TTSFallback) AddFallback(name string, provider tts.Provider) {
	f.group.AddFallback(name, provider)
}

// Group exposes the underlying group for health reporting.
func (f *TTSFallback) Group() *FallbackGroup[tts.Provider] { return f.group }

// Synthesize renders text with the first healthy provider.
func (f *TTSFallback) Synthesize(ctx context.Context, text, voiceID string) (tts.Audio, error) {
	return ExecuteWithResult(f.group, func(p tts.Provider) (tts.Audio, error) {
		return p.Synthesize(ctx, text, voiceID)
	})
}

// Voices returns the primary provider's voices.
func (f *TTSFallback) Voices() []tts.Voice {
	return f.group.entries[0].value.Voices()
}

func ttsInputError(err error) bool {
	switch tts.CodeOf(err) {
	case tts.CodeInvalidInput, tts.CodeInvalidVoice, tts.CodeInvalidRequest:
		return true
	}
	return false
}
