// Package translation defines the Provider interface for machine
// translation backends.
//
// Providers are thin wire adapters. Confidence scoring, status selection and
// error classification happen in the translate package, which consumes
// Provider values and the StatusError type defined here.
package translation

import (
	"context"
	"errors"
	"fmt"
)

// Request is a single translation request.
type Request struct {
	// Text is the source text.
	Text string

	// Source is the source language code. Empty or "auto" asks the backend
	// to detect it.
	Source string

	// Target is the target language code.
	Target string
}

// Response is the backend's answer.
type Response struct {
	// TranslatedText is the translated text.
	TranslatedText string

	// DetectedSourceLanguage is the source language the backend detected,
	// if it reported one.
	DetectedSourceLanguage string
}

// Provider is the abstraction over any translation backend.
//
// Implementations must be safe for concurrent use.
type Provider interface {
	// Translate translates req.Text. A backend that answered with a
	// non-success HTTP status returns a *StatusError.
	Translate(ctx context.Context, req Request) (Response, error)
}

// StatusError reports a non-success HTTP status from a remote backend.
type StatusError struct {
	// Provider names the backend (e.g. "google").
	Provider string

	// StatusCode is the HTTP status code.
	StatusCode int

	// Message is the backend's error message, if any.
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: status %d", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Provider, e.StatusCode, e.Message)
}

// ErrNoTranslation is returned when a backend answered successfully but the
// response carried no translation.
var ErrNoTranslation = errors.New("translation: response contained no translation")
