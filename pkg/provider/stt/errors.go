package stt

import (
	"context"
	"errors"
	"net"
)

// ErrorKind classifies recognition failures. The values match the error
// codes of browser speech recognition.
//
// ErrorAudioCapture and ErrorPermissionDenied describe the capture device
// only. A backend that refuses the stream, for example over credentials or
// audio it cannot decode, reports ErrorServiceNotAllowed.
type ErrorKind string

const (
	ErrorNoSpeech             ErrorKind = "no-speech"
	ErrorAudioCapture         ErrorKind = "audio-capture"
	ErrorPermissionDenied     ErrorKind = "permission-denied"
	ErrorNetwork              ErrorKind = "network"
	ErrorLanguageNotSupported ErrorKind = "language-not-supported"
	ErrorServiceNotAllowed    ErrorKind = "service-not-allowed"
	ErrorAborted              ErrorKind = "aborted"
	ErrorOther                ErrorKind = "other"
)

// Fatal reports whether the kind ends the recording session. Only capture
// device failures are fatal.
func (k ErrorKind) Fatal() bool {
	return k == ErrorAudioCapture || k == ErrorPermissionDenied
}

// StreamError is a classified recognition failure.
type StreamError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *StreamError) Error() string {
	msg := string(e.Kind)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *StreamError) Unwrap() error { return e.Err }

// NewError returns a *StreamError of the given kind.
func NewError(kind ErrorKind, msg string, err error) *StreamError {
	return &StreamError{Kind: kind, Message: msg, Err: err}
}

// Classify returns the kind of err. A *StreamError anywhere in the chain
// wins; cancellation maps to aborted and transport failures to network.
func Classify(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var se *StreamError
	if errors.As(err, &se) {
		return se.Kind
	}
	if errors.Is(err, context.Canceled) {
		return ErrorAborted
	}
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.As(err, &ne) {
		return ErrorNetwork
	}
	return ErrorOther
}

// AsStreamError converts err into a *StreamError using Classify.
func AsStreamError(err error) *StreamError {
	var se *StreamError
	if errors.As(err, &se) {
		return se
	}
	return &StreamError{Kind: Classify(err), Err: err}
}
