// Package mock provides test doubles for the stt package interfaces.
//
// Provider creates a fresh Session for every StartStream call and records
// it, so tests can drive each recognition stream individually:
//
//	p := &mock.Provider{}
//	handle, _ := p.StartStream(ctx, cfg)
//	sess := p.LastSession()
//	sess.Start()
//	sess.Result("help", true, 0.9)
//	sess.End()
package mock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/MrWong99/lingualert/pkg/provider/stt"
)

// StartStreamCall records a single invocation of Provider.StartStream.
type StartStreamCall struct {
	// Ctx is the context passed to StartStream.
	Ctx context.Context
	// Cfg is the StreamConfig passed to StartStream.
	Cfg stt.StreamConfig
}

// Provider is a mock implementation of stt.Provider.
type Provider struct {
	mu sync.Mutex

	// StartStreamErr, if non-nil, is returned by every StartStream call.
	StartStreamErr error

	// StartStreamErrs is consumed one entry per call before StartStreamErr
	// is consulted. A nil entry lets that call succeed.
	StartStreamErrs []error

	// StartStreamCalls records every call to StartStream.
	StartStreamCalls []StartStreamCall

	// Sessions holds every session handed out, in order.
	Sessions []*Session
}

// StartStream records the call and returns a new Session, or an error.
func (p *Provider) StartStream(ctx context.Context, cfg stt.StreamConfig) (stt.SessionHandle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.StartStreamCalls = append(p.StartStreamCalls, StartStreamCall{Ctx: ctx, Cfg: cfg})
	if len(p.StartStreamErrs) > 0 {
		err := p.StartStreamErrs[0]
		p.StartStreamErrs = p.StartStreamErrs[1:]
		if err != nil {
			return nil, err
		}
	} else if p.StartStreamErr != nil {
		return nil, p.StartStreamErr
	}
	s := NewSession()
	s.Cfg = cfg
	p.Sessions = append(p.Sessions, s)
	return s, nil
}

// Calls returns a copy of the recorded StartStream calls. Thread-safe.
func (p *Provider) Calls() []StartStreamCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]StartStreamCall, len(p.StartStreamCalls))
	copy(out, p.StartStreamCalls)
	return out
}

// Languages returns the Language of every StartStream call, in order.
func (p *Provider) Languages() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.StartStreamCalls))
	for i, c := range p.StartStreamCalls {
		out[i] = c.Cfg.Language
	}
	return out
}

// LastSession returns the most recent Session, or nil.
func (p *Provider) LastSession() *Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.Sessions) == 0 {
		return nil
	}
	return p.Sessions[len(p.Sessions)-1]
}

// WaitCalls polls until at least n StartStream calls were made or the
// timeout elapses. It reports whether the count was reached.
func (p *Provider) WaitCalls(n int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		p.mu.Lock()
		got := len(p.StartStreamCalls)
		p.mu.Unlock()
		if got >= n {
			return true
		}
		time.Sleep(2 * time.Millisecond)
	}
	return false
}

// Ensure Provider implements stt.Provider at compile time.
var _ stt.Provider = (*Provider)(nil)

// Session is a mock implementation of stt.SessionHandle. Tests push events
// with Start, Result, Fail and End.
type Session struct {
	mu sync.Mutex

	// Cfg is the config the session was opened with.
	Cfg stt.StreamConfig

	// SendAudioErr, if non-nil, is returned by every SendAudio call.
	SendAudioErr error

	events chan stt.Event
	ended  bool

	// SendAudioCalls records a copy of every chunk passed to SendAudio.
	SendAudioCalls [][]byte

	// CloseCallCount is the number of times Close was called.
	CloseCallCount int
}

// NewSession returns a Session with a buffered event channel.
func NewSession() *Session {
	return &Session{events: make(chan stt.Event, 64)}
}

// Start emits EventStart.
func (s *Session) Start() { s.emit(stt.Event{Kind: stt.EventStart}) }

// Result emits an EventResult.
func (s *Session) Result(text string, final bool, confidence float64) {
	s.emit(stt.Event{Kind: stt.EventResult, Transcript: stt.Transcript{Text: text, IsFinal: final, Confidence: confidence}})
}

// Fail emits an EventError of the given kind followed by EventEnd.
func (s *Session) Fail(kind stt.ErrorKind) {
	s.emit(stt.Event{Kind: stt.EventError, Err: stt.NewError(kind, "", nil)})
	s.End()
}

// End emits EventEnd and closes the channel. Safe to call repeatedly.
func (s *Session) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return
	}
	s.ended = true
	s.events <- stt.Event{Kind: stt.EventEnd}
	close(s.events)
}

func (s *Session) emit(ev stt.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return
	}
	s.events <- ev
}

// Ended reports whether End has been called.
func (s *Session) Ended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ended
}

var errEnded = errors.New("mock: session ended")

// SendAudio records the chunk and returns SendAudioErr.
func (s *Session) SendAudio(chunk []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return errEnded
	}
	cp := make([]byte, len(chunk))
	copy(cp, chunk)
	s.SendAudioCalls = append(s.SendAudioCalls, cp)
	return s.SendAudioErr
}

// Events returns the session's event channel.
func (s *Session) Events() <-chan stt.Event { return s.events }

// SendAudioCallCount returns the number of SendAudio calls. Thread-safe.
func (s *Session) SendAudioCallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.SendAudioCalls)
}

// Close records the call and ends the stream like a real backend would.
func (s *Session) Close() error {
	s.mu.Lock()
	s.CloseCallCount++
	s.mu.Unlock()
	s.End()
	return nil
}

// Closed reports whether Close was called at least once.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.CloseCallCount > 0
}

// Ensure Session implements stt.SessionHandle at compile time.
var _ stt.SessionHandle = (*Session)(nil)
