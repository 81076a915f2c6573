// Package opus encodes captured PCM into an Ogg Opus recording.
//
// Audio is encoded in 20 ms Opus packets at 48 kHz mono and grouped into
// one Ogg page per chunk (100 ms by default), so the recording grows in
// the same steps a browser MediaRecorder would deliver them.
package opus

import (
	"bytes"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"layeh.com/gopus"

	"github.com/MrWong99/lingualert/pkg/audio"
)

// ContentType is the MIME type of a finalized recording.
const ContentType = "audio/ogg; codecs=opus"

const (
	// SampleRate is the encoder's internal rate.
	SampleRate = 48000

	frameDuration = 20 * time.Millisecond
	frameSize     = SampleRate / 1000 * 20
	maxPacket     = 4000
	preSkip       = 312

	// DefaultChunkDuration is the audio covered by one Ogg page.
	DefaultChunkDuration = 100 * time.Millisecond
)

// ErrFinalized is returned by Write and Finalize after Finalize succeeded.
var ErrFinalized = errors.New("opus: encoder already finalized")

// Chunk describes one flushed page.
type Chunk struct {
	Index    int
	Bytes    int
	Duration time.Duration
}

type packetEncoder interface {
	Encode(pcm []int16, frameSize, maxDataBytes int) ([]byte, error)
}

// Option is a functional option for [NewEncoder].
type Option func(*Encoder)

// WithChunkDuration sets how much audio goes into one page. It is rounded
// down to a multiple of 20 ms (at least one packet).
func WithChunkDuration(d time.Duration) Option {
	return func(e *Encoder) {
		n := int(d / frameDuration)
		if n < 1 {
			n = 1
		}
		e.packetsPerPage = n
	}
}

// WithOnChunk registers a callback invoked after every flushed page.
func WithOnChunk(fn func(Chunk)) Option {
	return func(e *Encoder) { e.onChunk = fn }
}

// Encoder turns PCM frames into an Ogg Opus file held in memory. It is safe
// for concurrent use.
type Encoder struct {
	mu             sync.Mutex
	enc            packetEncoder
	conv           audio.FormatConverter
	buf            bytes.Buffer
	ogg            *oggWriter
	pending        []int16
	page           [][]byte
	packetsPerPage int
	samples        int64
	chunks         int
	pageStart      int
	onChunk        func(Chunk)
	finalized      bool
}

// NewEncoder creates an encoder and writes the Opus headers.
func NewEncoder(opts ...Option) (*Encoder, error) {
	enc, err := gopus.NewEncoder(SampleRate, 1, gopus.Voip)
	if err != nil {
		return nil, fmt.Errorf("opus: create encoder: %w", err)
	}
	return newEncoder(enc, opts...)
}

func newEncoder(pe packetEncoder, opts ...Option) (*Encoder, error) {
	e := &Encoder{
		enc:            pe,
		conv:           audio.FormatConverter{Target: audio.Format{SampleRate: SampleRate, Channels: 1}},
		packetsPerPage: int(DefaultChunkDuration / frameDuration),
	}
	for _, o := range opts {
		o(e)
	}
	e.ogg = &oggWriter{w: &e.buf, serial: rand.Uint32()}
	if err := e.ogg.writePage([][]byte{opusHead(1, preSkip, SampleRate)}, 0, pageBOS); err != nil {
		return nil, fmt.Errorf("opus: write head: %w", err)
	}
	if err := e.ogg.writePage([][]byte{opusTags("lingualert")}, 0, 0); err != nil {
		return nil, fmt.Errorf("opus: write tags: %w", err)
	}
	e.pageStart = e.buf.Len()
	return e, nil
}

// Write encodes a captured frame. Frames in any format are converted to
// 48 kHz mono first.
func (e *Encoder) Write(f audio.Frame) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.finalized {
		return ErrFinalized
	}
	conv := e.conv.Convert(f)
	if len(conv.Data) == 0 {
		return nil
	}
	e.pending = append(e.pending, audio.Int16s(conv.Data)...)
	for len(e.pending) >= frameSize {
		if err := e.encodeFrame(e.pending[:frameSize], frameSize); err != nil {
			return err
		}
		e.pending = e.pending[frameSize:]
	}
	return nil
}

// Finalize flushes buffered audio, closes the stream and returns the
// complete Ogg Opus file.
func (e *Encoder) Finalize() ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.finalized {
		return nil, ErrFinalized
	}
	if n := len(e.pending); n > 0 {
		frame := make([]int16, frameSize)
		copy(frame, e.pending)
		if err := e.encodeFrame(frame, n); err != nil {
			return nil, err
		}
		e.pending = nil
	}
	if err := e.flush(pageEOS); err != nil {
		return nil, err
	}
	e.finalized = true
	out := make([]byte, e.buf.Len())
	copy(out, e.buf.Bytes())
	return out, nil
}

// Duration returns the amount of audio encoded so far.
func (e *Encoder) Duration() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return time.Duration(e.samples) * time.Second / SampleRate
}

// Chunks returns the number of audio pages written.
func (e *Encoder) Chunks() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.chunks
}

// encodeFrame encodes one full frame; n is the number of non-padding
// samples in it. Must be called with e.mu held.
func (e *Encoder) encodeFrame(pcm []int16, n int) error {
	pkt, err := e.enc.Encode(pcm, frameSize, maxPacket)
	if err != nil {
		return fmt.Errorf("opus: encode: %w", err)
	}
	e.page = append(e.page, pkt)
	e.samples += int64(n)
	if len(e.page) >= e.packetsPerPage {
		return e.flush(0)
	}
	return nil
}

// flush writes the buffered packets as one page. Must be called with e.mu
// held.
func (e *Encoder) flush(flags byte) error {
	if len(e.page) == 0 && flags&pageEOS == 0 {
		return nil
	}
	packets := len(e.page)
	if err := e.ogg.writePage(e.page, preSkip+e.samples, flags); err != nil {
		return fmt.Errorf("opus: write page: %w", err)
	}
	e.page = e.page[:0]
	if packets == 0 {
		return nil
	}
	c := Chunk{Index: e.chunks, Bytes: e.buf.Len() - e.pageStart, Duration: time.Duration(packets) * frameDuration}
	e.chunks++
	e.pageStart = e.buf.Len()
	if e.onChunk != nil {
		e.onChunk(c)
	}
	return nil
}
