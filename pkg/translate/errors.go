package translate

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/MrWong99/lingualert/pkg/provider/translation"
)

// Code classifies translation failures.
type Code string

const (
	CodeInvalidText  Code = "invalid_text"
	CodeAccessDenied Code = "access_denied"
	CodeUnavailable  Code = "unavailable"
	CodeTimeout      Code = "timeout"
	CodeServiceError Code = "service_error"
	CodeBadResponse  Code = "bad_response"
	CodeUnconfigured Code = "unconfigured"
	CodeEmptyInput   Code = "empty_input"
)

// Error is a classified translation failure. Message is safe to show to
// the person recording.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("translate: %s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("translate: %s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatus suggests a status code for API responses carrying e.
func (e *Error) HTTPStatus() int {
	switch e.Code {
	case CodeInvalidText, CodeEmptyInput:
		return http.StatusBadRequest
	case CodeAccessDenied, CodeServiceError, CodeBadResponse:
		return http.StatusBadGateway
	case CodeUnavailable, CodeUnconfigured:
		return http.StatusServiceUnavailable
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// CodeOf returns the Code of err, or "" when err is not an *Error.
func CodeOf(err error) Code {
	var te *Error
	if errors.As(err, &te) {
		return te.Code
	}
	return ""
}

// classify maps a provider error onto an *Error.
func classify(err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Code: CodeTimeout, Message: "Translation timed out. Please check your connection and try again.", Err: err}
	}
	if errors.Is(err, translation.ErrNoTranslation) {
		return &Error{Code: CodeBadResponse, Message: "Invalid response from translation service.", Err: err}
	}
	var se *translation.StatusError
	if errors.As(err, &se) {
		switch se.StatusCode {
		case http.StatusBadRequest:
			return &Error{Code: CodeInvalidText, Message: "Invalid text for translation. Please try recording again.", Err: err}
		case http.StatusForbidden:
			return &Error{Code: CodeAccessDenied, Message: "Translation API access denied. Please check your API key.", Err: err}
		case http.StatusTooManyRequests:
			return &Error{Code: CodeUnavailable, Message: "Translation service temporarily unavailable. Please try again.", Err: err}
		default:
			return &Error{Code: CodeServiceError, Message: fmt.Sprintf("Translation service error (%d). Please try again.", se.StatusCode), Err: err}
		}
	}
	return &Error{Code: CodeServiceError, Message: "Translation failed. Please try again.", Err: err}
}
