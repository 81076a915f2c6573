package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrPipeClosed is returned by Pipe methods after Close.
var ErrPipeClosed = errors.New("audio: pipe closed")

// Pipe is a [Source] whose audio is pushed in from elsewhere, typically
// binary frames arriving on a WebSocket from a browser microphone.
//
// The remote side first announces the device with Ready (or Refuse), then
// pushes PCM with Write. The announcement holds for later captures until
// the next Ready or Refuse. Only one capture may be open at a time.
type Pipe struct {
	buffer int

	mu      sync.Mutex
	format  Format
	ready   chan struct{}
	refused error
	cur     *pipeCapture
	closed  bool
}

// NewPipe creates a Pipe whose captures buffer up to buffer frames. Frames
// written while the buffer is full are dropped.
func NewPipe(buffer int) *Pipe {
	if buffer <= 0 {
		buffer = 64
	}
	return &Pipe{buffer: buffer, ready: make(chan struct{})}
}

// Ready announces that the microphone is available with format f.
func (p *Pipe) Ready(f Format) error {
	if f.SampleRate <= 0 || f.Channels <= 0 {
		return fmt.Errorf("audio: invalid capture format %dHz %dch", f.SampleRate, f.Channels)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPipeClosed
	}
	p.format = f
	p.refused = nil
	p.signal()
	return nil
}

// Refuse announces that the microphone cannot be opened.
func (p *Pipe) Refuse(err error) {
	if err == nil {
		err = ErrNoDevice
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refused = err
	p.signal()
}

// signal wakes Open waiters. Must be called with p.mu held.
func (p *Pipe) signal() {
	select {
	case <-p.ready:
	default:
		close(p.ready)
	}
}

// Open implements [Source].
func (p *Pipe) Open(ctx context.Context) (Capture, error) {
	p.mu.Lock()
	ready := p.ready
	p.mu.Unlock()

	select {
	case <-ready:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrPipeClosed
	}
	if p.refused != nil {
		err := p.refused
		p.refused = nil
		p.ready = make(chan struct{})
		return nil, err
	}
	if p.cur != nil {
		return nil, errors.New("audio: pipe already has an open capture")
	}
	c := &pipeCapture{pipe: p, format: p.format, frames: make(chan Frame, p.buffer)}
	p.cur = c
	return c, nil
}

// Write pushes PCM in the announced format to the open capture. Writes
// without an open capture are discarded. It reports whether the frame was
// delivered.
func (p *Pipe) Write(pcm []byte) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	c := p.cur
	if c == nil || len(pcm) == 0 {
		return false
	}
	data := make([]byte, len(pcm))
	copy(data, pcm)
	f := Frame{Data: data, SampleRate: c.format.SampleRate, Channels: c.format.Channels, Timestamp: c.elapsed}
	select {
	case c.frames <- f:
		c.elapsed += c.format.Duration(data)
		return true
	default:
		return false
	}
}

// Close ends any open capture and makes further Opens fail.
func (p *Pipe) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	p.signal()
	if p.cur != nil {
		close(p.cur.frames)
		p.cur = nil
	}
	return nil
}

type pipeCapture struct {
	pipe    *Pipe
	format  Format
	frames  chan Frame
	elapsed time.Duration
}

func (c *pipeCapture) Format() Format       { return c.format }
func (c *pipeCapture) Frames() <-chan Frame { return c.frames }

func (c *pipeCapture) Close() error {
	p := c.pipe
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cur != c {
		return nil
	}
	close(c.frames)
	p.cur = nil
	return nil
}
