// Package mock provides in-memory test doubles for [audio.Source] and
// [audio.Capture].
//
// Typical usage:
//
//	src := &mock.Source{Capture: mock.NewCapture(audio.Format{SampleRate: 16000, Channels: 1}, 16)}
//	capture, err := src.Open(ctx)
//	src.Capture.Push(pcm)
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/MrWong99/lingualert/pkg/audio"
)

// Source is a mock implementation of [audio.Source].
type Source struct {
	mu sync.Mutex

	// Capture is returned by Open when OpenErr is nil.
	Capture *Capture

	// OpenErr, if non-nil, is returned by Open.
	OpenErr error

	// OpenCallCount records how many times Open was called.
	OpenCallCount int
}

// Open implements [audio.Source].
func (s *Source) Open(ctx context.Context) (audio.Capture, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.OpenCallCount++
	if s.OpenErr != nil {
		return nil, s.OpenErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.Capture, nil
}

// Opens returns OpenCallCount. Thread-safe.
func (s *Source) Opens() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.OpenCallCount
}

var _ audio.Source = (*Source)(nil)

// Capture is a mock implementation of [audio.Capture]. Tests feed it with
// Push and end it with Close or End.
type Capture struct {
	mu      sync.Mutex
	format  audio.Format
	frames  chan audio.Frame
	closed  bool
	elapsed time.Duration

	// CloseCallCount records how many times Close was called.
	CloseCallCount int
}

// NewCapture returns a Capture delivering frames in format f.
func NewCapture(f audio.Format, buffer int) *Capture {
	return &Capture{format: f, frames: make(chan audio.Frame, buffer)}
}

// Push delivers pcm as one frame. It blocks if the buffer is full and
// reports false once the capture is closed.
func (c *Capture) Push(pcm []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	ts := c.elapsed
	c.elapsed += c.format.Duration(pcm)
	c.frames <- audio.Frame{Data: pcm, SampleRate: c.format.SampleRate, Channels: c.format.Channels, Timestamp: ts}
	return true
}

// End closes the frame channel as if the device went away.
func (c *Capture) End() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.frames)
	}
}

// Format implements [audio.Capture].
func (c *Capture) Format() audio.Format { return c.format }

// Frames implements [audio.Capture].
func (c *Capture) Frames() <-chan audio.Frame { return c.frames }

// Close implements [audio.Capture].
func (c *Capture) Close() error {
	c.mu.Lock()
	c.CloseCallCount++
	c.mu.Unlock()
	c.End()
	return nil
}

// Closed reports whether Close was called.
func (c *Capture) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.CloseCallCount > 0
}

var _ audio.Capture = (*Capture)(nil)
