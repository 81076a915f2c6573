package elevenlabs

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MrWong99/lingualert/pkg/provider/tts"
)

func TestNew_EmptyAPIKey(t *testing.T) {
	_, err := New("")
	if got := tts.CodeOf(err); got != tts.CodeAPIKeyMissing {
		t.Errorf("CodeOf = %q, want %q", got, tts.CodeAPIKeyMissing)
	}
}

func TestSynthesize(t *testing.T) {
	var body synthesizeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/text-to-speech/21m00Tcm4TlvDq8ikWAM" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("xi-api-key"); got != "key" {
			t.Errorf("xi-api-key = %q", got)
		}
		if got := r.Header.Get("Accept"); got != "audio/mpeg" {
			t.Errorf("Accept = %q", got)
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("ID3fake"))
	}))
	defer srv.Close()

	p, err := New("key", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatal(err)
	}
	audio, err := p.Synthesize(context.Background(), "Fire at the station.", "21m00Tcm4TlvDq8ikWAM")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if string(audio.Data) != "ID3fake" || audio.ContentType != "audio/mpeg" {
		t.Errorf("audio = %q (%s)", audio.Data, audio.ContentType)
	}
	if body.ModelID != "eleven_multilingual_v2" {
		t.Errorf("model_id = %q", body.ModelID)
	}
	if body.VoiceSettings != DefaultVoiceSettings {
		t.Errorf("voice_settings = %+v, want %+v", body.VoiceSettings, DefaultVoiceSettings)
	}
}

func TestSynthesize_StatusCodes(t *testing.T) {
	tests := []struct {
		status int
		want   tts.Code
	}{
		{http.StatusBadRequest, tts.CodeInvalidRequest},
		{http.StatusUnauthorized, tts.CodeUnauthorized},
		{http.StatusForbidden, tts.CodeForbidden},
		{http.StatusTooManyRequests, tts.CodeRateLimited},
		{http.StatusInternalServerError, tts.CodeServerError},
		{http.StatusServiceUnavailable, tts.CodeServerError},
		{http.StatusTeapot, tts.CodeUnknown},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"detail":"nope"}`))
			}))
			defer srv.Close()

			p, _ := New("key", WithBaseURL(srv.URL))
			_, err := p.Synthesize(context.Background(), "hello", "v")
			if got := tts.CodeOf(err); got != tt.want {
				t.Errorf("CodeOf = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSynthesize_EmptyAudio(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p, _ := New("key", WithBaseURL(srv.URL))
	_, err := p.Synthesize(context.Background(), "hello", "v")
	if got := tts.CodeOf(err); got != tts.CodeEmptyAudio {
		t.Errorf("CodeOf = %q, want %q", got, tts.CodeEmptyAudio)
	}
}

func TestSynthesize_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	p, _ := New("key", WithBaseURL(srv.URL), WithTimeout(20*time.Millisecond))
	_, err := p.Synthesize(context.Background(), "hello", "v")
	if got := tts.CodeOf(err); got != tts.CodeTimeout {
		t.Errorf("CodeOf = %q, want %q (err = %v)", got, tts.CodeTimeout, err)
	}
}

func TestSynthesize_EmptyVoice(t *testing.T) {
	p, _ := New("key")
	_, err := p.Synthesize(context.Background(), "hello", "")
	if got := tts.CodeOf(err); got != tts.CodeInvalidVoice {
		t.Errorf("CodeOf = %q, want %q", got, tts.CodeInvalidVoice)
	}
}

func TestVoices(t *testing.T) {
	p, _ := New("key")
	v := p.Voices()
	if len(v) != 4 || v[0].Key != "rachel" {
		t.Errorf("Voices = %+v", v)
	}
	v[0].Key = "mutated"
	if DefaultVoices[0].Key != "rachel" {
		t.Error("Voices returned shared slice")
	}
}
