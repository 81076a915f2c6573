package audio

import "time"

// Frame is one chunk of captured PCM audio. Data is little-endian signed
// 16-bit, interleaved when Channels > 1.
type Frame struct {
	Data []byte

	// SampleRate in Hz (e.g. 48000 for browser capture, 16000 for STT).
	SampleRate int

	Channels int

	// Timestamp is the offset from the start of the capture.
	Timestamp time.Duration
}

// Format returns the frame's format.
func (f Frame) Format() Format {
	return Format{SampleRate: f.SampleRate, Channels: f.Channels}
}
