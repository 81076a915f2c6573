// Package tts defines the Provider interface for text-to-speech backends.
//
// Providers synthesise a complete utterance per call and return encoded
// audio (typically MP3) ready to be handed to a browser. Errors that callers
// branch on are reported as *Error with one of the Code constants.
package tts

import "context"

// Provider is the abstraction over any TTS backend.
//
// Implementations must be safe for concurrent use.
type Provider interface {
	// Synthesize converts text to audio using the given voice ID.
	Synthesize(ctx context.Context, text, voiceID string) (Audio, error)

	// Voices lists the voices callers may choose from.
	Voices() []Voice
}
