// Package langid defines the Provider interface for remote language
// identification backends.
//
// A langid provider answers one question: which language is this text
// written in? Implementations return raw candidates; confidence adjustment
// against the script of the text and the offline fallback live in the
// langdetect package, so providers stay thin wire adapters.
package langid

import "context"

// Candidate is one language guess returned by a provider.
type Candidate struct {
	// Language is the tag as returned by the backend (e.g. "bn", "zh-CN").
	// Callers normalise it.
	Language string

	// Confidence is the backend's confidence in [0, 1].
	Confidence float64
}

// Provider is the abstraction over any language identification backend.
//
// Implementations must be safe for concurrent use.
type Provider interface {
	// Detect returns the candidates for text, best first. An empty slice
	// with a nil error means the backend answered but had no guess.
	Detect(ctx context.Context, text string) ([]Candidate, error)
}
