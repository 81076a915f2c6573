package resilience

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/MrWong99/lingualert/pkg/provider/translation"
	translationmock "github.com/MrWong99/lingualert/pkg/provider/translation/mock"
)

func TestTranslationFallback_Failover(t *testing.T) {
	primary := &translationmock.Provider{TranslateErr: &translation.StatusError{Provider: "google", StatusCode: http.StatusServiceUnavailable}}
	secondary := &translationmock.Provider{Response: translation.Response{TranslatedText: "help"}}

	fb := NewTranslationFallback(primary, "google", FallbackConfig{})
	fb.AddFallback("llm", secondary)

	resp, err := fb.Translate(context.Background(), translation.Request{Text: "সাহায্য", Target: "en"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.TranslatedText != "help" {
		t.Errorf("TranslatedText = %q, want help", resp.TranslatedText)
	}
}

func TestTranslationFallback_RejectedTextIsPermanent(t *testing.T) {
	primary := &translationmock.Provider{TranslateErr: &translation.StatusError{Provider: "google", StatusCode: http.StatusBadRequest}}
	secondary := &translationmock.Provider{Response: translation.Response{TranslatedText: "help"}}

	fb := NewTranslationFallback(primary, "google", FallbackConfig{})
	fb.AddFallback("llm", secondary)

	_, err := fb.Translate(context.Background(), translation.Request{Text: "x", Target: "en"})
	var se *translation.StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusBadRequest {
		t.Fatalf("err = %v, want 400 StatusError", err)
	}
	if n := len(secondary.Calls()); n != 0 {
		t.Errorf("secondary called %d times, want 0", n)
	}
}
