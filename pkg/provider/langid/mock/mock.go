// Package mock provides a test double for langid.Provider.
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/lingualert/pkg/provider/langid"
)

// DetectCall records a single invocation of Provider.Detect.
type DetectCall struct {
	Text string
}

// Provider is a mock implementation of langid.Provider.
type Provider struct {
	mu sync.Mutex

	// Candidates is returned by every Detect call unless DetectFunc is set.
	Candidates []langid.Candidate

	// DetectErr, if non-nil, is returned as the error from Detect.
	DetectErr error

	// DetectFunc, if set, overrides Candidates and DetectErr.
	DetectFunc func(ctx context.Context, text string) ([]langid.Candidate, error)

	// DetectCalls records every call to Detect.
	DetectCalls []DetectCall
}

// Detect records the call and returns the configured response.
func (p *Provider) Detect(ctx context.Context, text string) ([]langid.Candidate, error) {
	p.mu.Lock()
	p.DetectCalls = append(p.DetectCalls, DetectCall{Text: text})
	fn, cands, err := p.DetectFunc, p.Candidates, p.DetectErr
	p.mu.Unlock()

	if fn != nil {
		return fn(ctx, text)
	}
	if err != nil {
		return nil, err
	}
	return cands, nil
}

// CallCount returns the number of Detect calls. Thread-safe.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.DetectCalls)
}

var _ langid.Provider = (*Provider)(nil)
