package resilience

import (
	"context"
	"errors"
	"net/http"

	"github.com/MrWong99/lingualert/pkg/provider/translation"
)

// TranslationFallback implements [translation.Provider] with failover across
// translation backends, for example the Google REST API backed by an LLM.
type TranslationFallback struct {
	group *FallbackGroup[translation.Provider]
}

var _ translation.Provider = (*TranslationFallback)(nil)

// NewTranslationFallback creates a [TranslationFallback] with primary as the
// preferred backend. A 400 from a backend means the text itself was
// rejected; it is returned as-is and does not count against the breaker.
func NewTranslationFallback(primary translation.Provider, primaryName string, cfg FallbackConfig) *TranslationFallback {
	if cfg.Permanent == nil {
		cfg.Permanent = rejectedText
	}
	if cfg.CircuitBreaker.IgnoreError == nil {
		cfg.CircuitBreaker.IgnoreError = rejectedText
	}
	return &TranslationFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional translation backend.
func (f *TranslationFallback) AddFallback(name string, provider translation.Provider) {
	f.group.AddFallback(name, provider)
}

// Group exposes the underlying group for health reporting.
func (f *TranslationFallback) Group() *FallbackGroup[translation.Provider] { return f.group }

// Translate translates with the first healthy backend.
func (f *TranslationFallback) Translate(ctx context.Context, req translation.Request) (translation.Response, error) {
	return ExecuteWithResult(f.group, func(p translation.Provider) (translation.Response, error) {
		return p.Translate(ctx, req)
	})
}

func rejectedText(err error) bool {
	var se *translation.StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusBadRequest
}
