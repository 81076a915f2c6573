// Package mock provides a test double for tts.Provider.
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/lingualert/pkg/provider/tts"
)

// SynthesizeCall records a single invocation of Provider.Synthesize.
type SynthesizeCall struct {
	Text    string
	VoiceID string
}

// Provider is a mock implementation of tts.Provider.
type Provider struct {
	mu sync.Mutex

	// Audio is returned by every successful Synthesize call.
	Audio tts.Audio

	// SynthesizeErr, if non-nil, is returned as the error from Synthesize.
	SynthesizeErr error

	// VoiceList is returned by Voices.
	VoiceList []tts.Voice

	// SynthesizeCalls records every call to Synthesize.
	SynthesizeCalls []SynthesizeCall
}

// Synthesize records the call and returns Audio, SynthesizeErr.
func (p *Provider) Synthesize(_ context.Context, text, voiceID string) (tts.Audio, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.SynthesizeCalls = append(p.SynthesizeCalls, SynthesizeCall{Text: text, VoiceID: voiceID})
	if p.SynthesizeErr != nil {
		return tts.Audio{}, p.SynthesizeErr
	}
	return p.Audio, nil
}

// Voices returns VoiceList.
func (p *Provider) Voices() []tts.Voice {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.VoiceList
}

// CallCount returns the number of Synthesize calls. Thread-safe.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.SynthesizeCalls)
}

var _ tts.Provider = (*Provider)(nil)
