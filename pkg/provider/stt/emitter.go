package stt

import "sync"

// Emitter delivers a session's events in order and guarantees that exactly
// one EventEnd is sent before the channel closes. Backends embed one per
// session. Consumers must drain Events until it is closed.
type Emitter struct {
	ch chan Event

	mu      sync.Mutex
	started bool
	ended   bool
	done    chan struct{}
}

// NewEmitter returns an Emitter whose channel has the given buffer size.
func NewEmitter(buffer int) *Emitter {
	return &Emitter{
		ch:   make(chan Event, buffer),
		done: make(chan struct{}),
	}
}

// Events returns the event channel.
func (e *Emitter) Events() <-chan Event { return e.ch }

// Done is closed once EventEnd has been sent.
func (e *Emitter) Done() <-chan struct{} { return e.done }

// Start emits EventStart once. Later calls are no-ops.
func (e *Emitter) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started || e.ended {
		return
	}
	e.started = true
	e.ch <- Event{Kind: EventStart}
}

// Result emits an EventResult. It reports false after End.
func (e *Emitter) Result(t Transcript) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ended {
		return false
	}
	e.ch <- Event{Kind: EventResult, Transcript: t}
	return true
}

// Fail emits a classified EventError followed by EventEnd.
func (e *Emitter) Fail(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ended {
		return
	}
	e.ch <- Event{Kind: EventError, Err: AsStreamError(err)}
	e.endLocked()
}

// End emits EventEnd and closes the channel. Safe to call repeatedly.
func (e *Emitter) End() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.endLocked()
}

func (e *Emitter) endLocked() {
	if e.ended {
		return
	}
	e.ended = true
	e.ch <- Event{Kind: EventEnd}
	close(e.ch)
	close(e.done)
}
