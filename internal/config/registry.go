package config

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/MrWong99/lingualert/pkg/provider/langid"
	"github.com/MrWong99/lingualert/pkg/provider/stt"
	"github.com/MrWong99/lingualert/pkg/provider/translation"
	"github.com/MrWong99/lingualert/pkg/provider/tts"
)

// ErrProviderNotRegistered is returned by Create* methods when no factory has
// been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Factory builds a provider from its config entry.
type Factory[T any] func(ProviderEntry) (T, error)

// Registry maps provider names to their constructor functions for each
// provider kind. It is safe for concurrent use.
type Registry struct {
	mu          sync.RWMutex
	stt         map[string]Factory[stt.Provider]
	translation map[string]Factory[translation.Provider]
	langid      map[string]Factory[langid.Provider]
	tts         map[string]Factory[tts.Provider]
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		stt:         make(map[string]Factory[stt.Provider]),
		translation: make(map[string]Factory[translation.Provider]),
		langid:      make(map[string]Factory[langid.Provider]),
		tts:         make(map[string]Factory[tts.Provider]),
	}
}

func register[T any](r *Registry, m map[string]Factory[T], name string, f Factory[T]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m[name] = f
}

func create[T any](r *Registry, m map[string]Factory[T], kind string, entry ProviderEntry) (T, error) {
	r.mu.RLock()
	f, ok := m[entry.Name]
	r.mu.RUnlock()
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: %s/%q", ErrProviderNotRegistered, kind, entry.Name)
	}
	p, err := f(entry)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("config: create %s/%q: %w", kind, entry.Name, err)
	}
	return p, nil
}

func names[T any](r *Registry, m map[string]Factory[T]) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(m))
	for name := range m {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// RegisterSTT registers a recognition provider factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterSTT(name string, f Factory[stt.Provider]) { register(r, r.stt, name, f) }

// RegisterTranslation registers a translation provider factory under name.
func (r *Registry) RegisterTranslation(name string, f Factory[translation.Provider]) {
	register(r, r.translation, name, f)
}

// RegisterLangID registers a language identification provider factory.
func (r *Registry) RegisterLangID(name string, f Factory[langid.Provider]) {
	register(r, r.langid, name, f)
}

// RegisterTTS registers a speech synthesis provider factory under name.
func (r *Registry) RegisterTTS(name string, f Factory[tts.Provider]) { register(r, r.tts, name, f) }

// CreateSTT instantiates the recognition provider named by entry.Name.
// Returns [ErrProviderNotRegistered] if no factory has been registered for
// that name.
func (r *Registry) CreateSTT(entry ProviderEntry) (stt.Provider, error) {
	return create(r, r.stt, "stt", entry)
}

// CreateTranslation instantiates the translation provider named by entry.Name.
func (r *Registry) CreateTranslation(entry ProviderEntry) (translation.Provider, error) {
	return create(r, r.translation, "translation", entry)
}

// CreateLangID instantiates the language identification provider named by
// entry.Name.
func (r *Registry) CreateLangID(entry ProviderEntry) (langid.Provider, error) {
	return create(r, r.langid, "langid", entry)
}

// CreateTTS instantiates the speech synthesis provider named by entry.Name.
func (r *Registry) CreateTTS(entry ProviderEntry) (tts.Provider, error) {
	return create(r, r.tts, "tts", entry)
}

// Names returns the registered provider names of kind ("stt",
// "translation", "langid" or "tts"), sorted.
func (r *Registry) Names(kind string) []string {
	switch kind {
	case "stt":
		return names(r, r.stt)
	case "translation":
		return names(r, r.translation)
	case "langid":
		return names(r, r.langid)
	case "tts":
		return names(r, r.tts)
	}
	return nil
}
