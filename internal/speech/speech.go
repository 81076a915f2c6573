// Package speech turns English text into spoken audio for playback to the
// person who recorded an emergency.
//
// The [Service] normalizes punctuation spacing, resolves short voice names
// to provider voice IDs and caches rendered audio in memory. Concurrent
// requests for the same voice and text share one provider call.
package speech

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/MrWong99/lingualert/internal/observe"
	"github.com/MrWong99/lingualert/pkg/provider/tts"
)

const (
	// DefaultVoice is used when a request names no voice.
	DefaultVoice = "rachel"

	// DefaultCacheSize bounds the number of cached utterances.
	DefaultCacheSize = 256
)

var (
	punctSpacing = regexp.MustCompile(`([.,:;])(\S)`)
	whitespace   = regexp.MustCompile(`\s+`)
)

// PrepareText inserts a space after sentence punctuation that is directly
// followed by another character and collapses runs of whitespace.
func PrepareText(text string) string {
	text = punctSpacing.ReplaceAllString(text, "$1 $2")
	return strings.TrimSpace(whitespace.ReplaceAllString(text, " "))
}

// Option configures a [Service].
type Option func(*Service)

// WithCacheSize sets the cache capacity. Zero disables caching.
func WithCacheSize(n int) Option {
	return func(s *Service) { s.cacheSize = n }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithProviderName sets the provider label on metrics.
func WithProviderName(name string) Option {
	return func(s *Service) { s.providerName = name }
}

// Service synthesizes speech through a [tts.Provider].
type Service struct {
	provider     tts.Provider
	providerName string
	metrics      *observe.Metrics
	cacheSize    int

	group singleflight.Group

	mu    sync.Mutex
	cache map[string]tts.Audio
	order []string
}

// New creates a Service. A nil provider yields a service whose Speak always
// fails with [tts.CodeAPIKeyMissing].
func New(provider tts.Provider, opts ...Option) *Service {
	s := &Service{
		provider:     provider,
		providerName: "elevenlabs",
		cacheSize:    DefaultCacheSize,
		cache:        make(map[string]tts.Audio),
	}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	return s
}

// Available reports whether a provider is configured.
func (s *Service) Available() bool { return s.provider != nil }

// Voices lists the selectable voices.
func (s *Service) Voices() []tts.Voice {
	if s.provider == nil {
		return nil
	}
	return s.provider.Voices()
}

// ResolveVoice maps a voice key or ID to a provider voice ID. An empty
// voice selects [DefaultVoice].
func (s *Service) ResolveVoice(voice string) (string, error) {
	if voice == "" {
		voice = DefaultVoice
	}
	for _, v := range s.Voices() {
		if strings.EqualFold(v.Key, voice) || v.ID == voice {
			return v.ID, nil
		}
	}
	return "", &tts.Error{Code: tts.CodeInvalidVoice, Message: "Unknown voice: " + voice}
}

// Speak renders text with the given voice.
func (s *Service) Speak(ctx context.Context, text, voice string) (tts.Audio, error) {
	if s.provider == nil {
		return tts.Audio{}, &tts.Error{Code: tts.CodeAPIKeyMissing, Message: "Speech synthesis is not configured"}
	}
	text = PrepareText(text)
	if text == "" {
		return tts.Audio{}, &tts.Error{Code: tts.CodeInvalidInput, Message: "Text is required for speech generation"}
	}
	voiceID, err := s.ResolveVoice(voice)
	if err != nil {
		return tts.Audio{}, err
	}

	key := voiceID + "\x00" + text
	if a, ok := s.cached(key); ok {
		return a, nil
	}

	v, err, shared := s.group.Do(key, func() (any, error) {
		return s.synthesize(context.WithoutCancel(ctx), text, voiceID)
	})
	if err != nil {
		return tts.Audio{}, err
	}
	a := v.(tts.Audio)
	if !shared {
		s.store(key, a)
	}
	return a, nil
}

func (s *Service) synthesize(ctx context.Context, text, voiceID string) (tts.Audio, error) {
	ctx, span := observe.StartSpan(ctx, "speech.synthesize")
	start := time.Now()
	a, err := s.provider.Synthesize(ctx, text, voiceID)
	s.metrics.TTSDuration.Record(ctx, time.Since(start).Seconds())
	observe.EndSpan(span, err)
	if err != nil {
		s.metrics.RecordProviderRequest(ctx, s.providerName, "tts", "error")
		s.metrics.RecordProviderError(ctx, s.providerName, "tts")
		observe.Logger(ctx).Warn("speech synthesis failed", "code", tts.CodeOf(err), "voice", voiceID, "error", err)
		return tts.Audio{}, err
	}
	s.metrics.RecordProviderRequest(ctx, s.providerName, "tts", "ok")
	if len(a.Data) == 0 {
		return tts.Audio{}, &tts.Error{Code: tts.CodeEmptyAudio, Message: "received empty audio response"}
	}
	return a, nil
}

func (s *Service) cached(key string) (tts.Audio, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.cache[key]
	return a, ok
}

// store adds a to the cache, evicting the oldest entry when full.
func (s *Service) store(key string, a tts.Audio) {
	if s.cacheSize <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cache[key]; ok {
		return
	}
	for len(s.order) >= s.cacheSize {
		delete(s.cache, s.order[0])
		s.order = s.order[1:]
	}
	s.cache[key] = a
	s.order = append(s.order, key)
}

// CacheLen returns the number of cached utterances.
func (s *Service) CacheLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cache)
}
