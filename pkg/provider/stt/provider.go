// Package stt defines the Provider interface for streaming Speech-to-Text
// backends.
//
// An STT provider wraps a real-time recognition service (Deepgram, Google
// Cloud Speech) and exposes a uniform streaming interface. Once opened, a
// SessionHandle accepts raw PCM16LE audio and emits a single ordered stream
// of Events: one EventStart, any number of EventResult (interim and final),
// optionally one EventError, and exactly one EventEnd, after which the
// channel is closed. The order mirrors a browser recognition session so the
// rotation logic above this package can treat every backend alike.
//
// Implementations must be safe for concurrent use.
package stt

import "context"

// StreamConfig describes the audio format and recognition locale for a new
// session.
type StreamConfig struct {
	// SampleRate is the audio sample rate in Hz (e.g. 16000, 48000).
	SampleRate int

	// Channels is the number of interleaved audio channels. 1 = mono.
	Channels int

	// Language is the BCP-47 recognition locale (e.g. "bn-BD", "en-US").
	Language string

	// Interim requests low-latency interim results in addition to finals.
	Interim bool
}

// SessionHandle represents an open recognition stream.
//
// Callers must call Close when the session is no longer needed. All methods
// must be safe for concurrent use.
type SessionHandle interface {
	// SendAudio delivers a chunk of PCM16LE audio. Calling SendAudio after
	// the stream ended or was closed returns an error.
	SendAudio(chunk []byte) error

	// Events returns the session's event stream. The channel is closed after
	// the EventEnd event has been delivered.
	Events() <-chan Event

	// Close terminates the stream. An EventEnd is still delivered if it has
	// not been already. Calling Close more than once is safe and returns nil.
	Close() error
}

// Provider is the abstraction over any streaming STT backend.
type Provider interface {
	// StartStream opens a new recognition stream. Errors opening the stream
	// should be, or wrap, a *StreamError so callers can classify them.
	StartStream(ctx context.Context, cfg StreamConfig) (SessionHandle, error)
}
