package resilience

import (
	"context"

	"github.com/MrWong99/lingualert/pkg/provider/langid"
)

// LangIDFallback implements [langid.Provider] with failover across language
// identification backends.
type LangIDFallback struct {
	group *FallbackGroup[langid.Provider]
}

var _ langid.Provider = (*LangIDFallback)(nil)

// NewLangIDFallback creates a [LangIDFallback] with primary as the preferred
// backend.
func NewLangIDFallback(primary langid.Provider, primaryName string, cfg FallbackConfig) *LangIDFallback {
	return &LangIDFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional language identification backend.
func (f *LangIDFallback) AddFallback(name string, provider langid.Provider) {
	f.group.AddFallback(name, provider)
}

// Group exposes the underlying group for health reporting.
func (f *LangIDFallback) Group() *FallbackGroup[langid.Provider] { return f.group }

// Detect asks the first healthy backend.
func (f *LangIDFallback) Detect(ctx context.Context, text string) ([]langid.Candidate, error) {
	return ExecuteWithResult(f.group, func(p langid.Provider) ([]langid.Candidate, error) {
		return p.Detect(ctx, text)
	})
}
