package speech

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.opentelemetry.io/otel/metric/noop"

	"github.com/MrWong99/lingualert/internal/observe"
	"github.com/MrWong99/lingualert/pkg/provider/tts"
	"github.com/MrWong99/lingualert/pkg/provider/tts/mock"
)

var voices = []tts.Voice{
	{Key: "rachel", ID: "voice-rachel", Name: "Rachel"},
	{Key: "adam", ID: "voice-adam", Name: "Adam"},
}

func newService(t *testing.T, p tts.Provider, opts ...Option) *Service {
	t.Helper()
	m, err := observe.NewMetrics(noop.NewMeterProvider())
	if err != nil {
		t.Fatal(err)
	}
	return New(p, append([]Option{WithMetrics(m)}, opts...)...)
}

func TestPrepareText(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Help.Fire", "Help. Fire"},
		{"one,two;three:four", "one, two; three: four"},
		{"  lots   of\n\tspace  ", "lots of space"},
		{"done. ", "done."},
		{"3.5 km", "3. 5 km"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := PrepareText(tt.in); got != tt.want {
			t.Errorf("PrepareText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestService_ResolveVoice(t *testing.T) {
	s := newService(t, &mock.Provider{VoiceList: voices})
	tests := []struct {
		voice string
		want  string
		code  tts.Code
	}{
		{voice: "", want: "voice-rachel"},
		{voice: "Adam", want: "voice-adam"},
		{voice: "voice-adam", want: "voice-adam"},
		{voice: "morgan", code: tts.CodeInvalidVoice},
	}
	for _, tt := range tests {
		got, err := s.ResolveVoice(tt.voice)
		if tt.code != "" {
			if tts.CodeOf(err) != tt.code {
				t.Errorf("ResolveVoice(%q) err = %v, want code %s", tt.voice, err, tt.code)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ResolveVoice(%q) = (%q, %v), want %q", tt.voice, got, err, tt.want)
		}
	}
}

func TestService_Speak(t *testing.T) {
	p := &mock.Provider{VoiceList: voices, Audio: tts.Audio{Data: []byte("mp3"), ContentType: "audio/mpeg"}}
	s := newService(t, p)

	a, err := s.Speak(context.Background(), "Stay calm.Help is coming", "adam")
	if err != nil {
		t.Fatalf("Speak: %v", err)
	}
	if string(a.Data) != "mp3" {
		t.Errorf("Data = %q, want mp3", a.Data)
	}
	if p.SynthesizeCalls[0].Text != "Stay calm. Help is coming" || p.SynthesizeCalls[0].VoiceID != "voice-adam" {
		t.Errorf("call = %+v, want prepared text and adam", p.SynthesizeCalls[0])
	}

	if _, err := s.Speak(context.Background(), "Stay calm. Help  is coming", "adam"); err != nil {
		t.Fatalf("second Speak: %v", err)
	}
	if n := p.CallCount(); n != 1 {
		t.Errorf("provider calls = %d, want 1 (cached)", n)
	}
}

func TestService_SpeakErrors(t *testing.T) {
	tests := []struct {
		name     string
		provider tts.Provider
		text     string
		voice    string
		want     tts.Code
	}{
		{name: "no provider", provider: nil, text: "hi", want: tts.CodeAPIKeyMissing},
		{name: "blank text", provider: &mock.Provider{VoiceList: voices}, text: " \n ", want: tts.CodeInvalidInput},
		{name: "unknown voice", provider: &mock.Provider{VoiceList: voices}, text: "hi", voice: "zed", want: tts.CodeInvalidVoice},
		{
			name:     "provider failure",
			provider: &mock.Provider{VoiceList: voices, SynthesizeErr: &tts.Error{Code: tts.CodeRateLimited, Message: "busy"}},
			text:     "hi",
			want:     tts.CodeRateLimited,
		},
		{name: "empty audio", provider: &mock.Provider{VoiceList: voices}, text: "hi", want: tts.CodeEmptyAudio},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newService(t, tt.provider)
			_, err := s.Speak(context.Background(), tt.text, tt.voice)
			if got := tts.CodeOf(err); got != tt.want {
				t.Errorf("code = %s, want %s (err %v)", got, tt.want, err)
			}
			if s.CacheLen() != 0 {
				t.Error("failure was cached")
			}
		})
	}
}

// slowProvider blocks every Synthesize call until release is closed.
type slowProvider struct {
	mu      sync.Mutex
	calls   int
	release chan struct{}
}

func (p *slowProvider) Synthesize(context.Context, string, string) (tts.Audio, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	<-p.release
	return tts.Audio{Data: []byte("x")}, nil
}

func (p *slowProvider) Voices() []tts.Voice { return voices }

func TestService_SharesConcurrentRequests(t *testing.T) {
	p := &slowProvider{release: make(chan struct{})}
	s := newService(t, p)

	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Speak(context.Background(), "same text", "")
			errs <- err
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(p.release)
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Errorf("Speak: %v", err)
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.calls != 1 {
		t.Errorf("provider calls = %d, want 1", p.calls)
	}
}

func TestService_CacheEviction(t *testing.T) {
	p := &mock.Provider{VoiceList: voices, Audio: tts.Audio{Data: []byte("a")}}
	s := newService(t, p, WithCacheSize(2))
	for _, text := range []string{"one", "two", "three", "one"} {
		if _, err := s.Speak(context.Background(), text, ""); err != nil {
			t.Fatal(err)
		}
	}
	if n := p.CallCount(); n != 4 {
		t.Errorf("provider calls = %d, want 4 (one was evicted)", n)
	}
	if n := s.CacheLen(); n != 2 {
		t.Errorf("CacheLen = %d, want 2", n)
	}
}

func TestService_Unavailable(t *testing.T) {
	s := newService(t, nil)
	if s.Available() {
		t.Error("Available = true, want false")
	}
	if v := s.Voices(); v != nil {
		t.Errorf("Voices = %v, want nil", v)
	}
	var te *tts.Error
	if _, err := s.Speak(context.Background(), "x", ""); !errors.As(err, &te) {
		t.Errorf("err = %v, want *tts.Error", err)
	}
}
