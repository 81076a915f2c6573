// Package audio holds the capture-side audio primitives: PCM frames, format
// conversion, microphone sources and level metering.
//
// A [Source] is something that can be opened to produce a [Capture]. In the
// service the microphone lives in the browser, so the production Source is a
// [Pipe] fed by the recording socket; tests use the mock subpackage.
package audio

import (
	"context"
	"errors"
)

// ErrPermissionDenied is returned by Open when the user refused microphone
// access.
var ErrPermissionDenied = errors.New("audio: microphone permission denied")

// ErrNoDevice is returned by Open when no capture device is available.
var ErrNoDevice = errors.New("audio: no capture device")

// Source opens a microphone.
type Source interface {
	// Open starts capturing. It blocks until the device is ready, refused,
	// or ctx is done.
	Open(ctx context.Context) (Capture, error)
}

// Capture is an open microphone.
//
// Implementations must be safe for concurrent use.
type Capture interface {
	// Format reports the format of the frames delivered on Frames.
	Format() Format

	// Frames delivers captured audio. The channel is closed when the
	// capture ends, either because Close was called or the device went away.
	Frames() <-chan Frame

	// Close stops capturing. Safe to call more than once.
	Close() error
}
