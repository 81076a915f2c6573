// Package mock provides a test double for translation.Provider.
//
// Set TranslateFunc for per-request behaviour, or Response and TranslateErr
// for a fixed answer. Every call is recorded in TranslateCalls.
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/lingualert/pkg/provider/translation"
)

// Provider is a mock implementation of translation.Provider.
type Provider struct {
	mu sync.Mutex

	// Response is returned by Translate unless TranslateFunc is set.
	Response translation.Response

	// TranslateErr, if non-nil, is returned as the error from Translate.
	TranslateErr error

	// TranslateFunc, if set, overrides Response and TranslateErr.
	TranslateFunc func(ctx context.Context, req translation.Request) (translation.Response, error)

	// TranslateCalls records every request passed to Translate.
	TranslateCalls []translation.Request
}

// Translate records the call and returns the configured response.
func (p *Provider) Translate(ctx context.Context, req translation.Request) (translation.Response, error) {
	p.mu.Lock()
	p.TranslateCalls = append(p.TranslateCalls, req)
	fn, resp, err := p.TranslateFunc, p.Response, p.TranslateErr
	p.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	if err != nil {
		return translation.Response{}, err
	}
	return resp, nil
}

// Calls returns a copy of the recorded requests. Thread-safe.
func (p *Provider) Calls() []translation.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]translation.Request, len(p.TranslateCalls))
	copy(out, p.TranslateCalls)
	return out
}

var _ translation.Provider = (*Provider)(nil)
