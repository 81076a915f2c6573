package tts

import (
	"errors"
	"fmt"
)

// Voice describes a selectable voice.
type Voice struct {
	// Key is the short name callers use (e.g. "rachel").
	Key string `json:"key"`

	// ID is the provider-specific voice identifier.
	ID string `json:"id"`

	// Name is the human-readable voice name.
	Name string `json:"name"`
}

// Audio is a synthesised utterance.
type Audio struct {
	// Data is the encoded audio.
	Data []byte

	// ContentType is the MIME type of Data (e.g. "audio/mpeg").
	ContentType string
}

// Code classifies synthesis failures.
type Code string

const (
	CodeAPIKeyMissing  Code = "API_KEY_MISSING"
	CodeInvalidInput   Code = "INVALID_INPUT"
	CodeInvalidVoice   Code = "INVALID_VOICE"
	CodeInvalidRequest Code = "INVALID_REQUEST"
	CodeUnauthorized   Code = "UNAUTHORIZED"
	CodeForbidden      Code = "FORBIDDEN"
	CodeRateLimited    Code = "RATE_LIMITED"
	CodeServerError    Code = "SERVER_ERROR"
	CodeTimeout        Code = "TIMEOUT"
	CodeEmptyAudio     Code = "EMPTY_AUDIO"
	CodeUnknown        Code = "UNKNOWN"
)

// Error is a classified synthesis failure.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("tts: %s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("tts: %s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// CodeOf returns the Code of err, or CodeUnknown when err is not an *Error.
func CodeOf(err error) Code {
	var te *Error
	if errors.As(err, &te) {
		return te.Code
	}
	return CodeUnknown
}
