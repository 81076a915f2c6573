package translate

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"testing"
	"time"

	"go.opentelemetry.io/otel/metric/noop"

	"github.com/MrWong99/lingualert/internal/observe"
	"github.com/MrWong99/lingualert/pkg/langdetect"
	"github.com/MrWong99/lingualert/pkg/provider/translation"
	"github.com/MrWong99/lingualert/pkg/provider/translation/mock"
)

type fakeDetector struct {
	result *langdetect.Enhanced
	calls  int
}

func (f *fakeDetector) DetectEnhanced(_ context.Context, _ string) *langdetect.Enhanced {
	f.calls++
	return f.result
}

func detected(lang string, conf float64, reliable bool) *fakeDetector {
	return &fakeDetector{result: &langdetect.Enhanced{
		Primary: langdetect.Detection{Language: lang, Confidence: conf, IsReliable: reliable},
	}}
}

func newTranslator(t *testing.T, p translation.Provider, d Detector, opts ...Option) *Translator {
	t.Helper()
	m, err := observe.NewMetrics(noop.NewMeterProvider())
	if err != nil {
		t.Fatal(err)
	}
	tr, err := New(p, d, append([]Option{WithMetrics(m)}, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return tr
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestTranslateToEnglish_Unconfigured(t *testing.T) {
	tr := newTranslator(t, nil, nil)
	_, err := tr.TranslateToEnglish(context.Background(), "আগুন লেগেছে", "")
	if got := CodeOf(err); got != CodeUnconfigured {
		t.Errorf("CodeOf = %q, want %q", got, CodeUnconfigured)
	}
}

func TestTranslateToEnglish_EmptyInput(t *testing.T) {
	tr := newTranslator(t, &mock.Provider{}, nil)
	_, err := tr.TranslateToEnglish(context.Background(), " \n\t", "")
	if got := CodeOf(err); got != CodeEmptyInput {
		t.Errorf("CodeOf = %q, want %q", got, CodeEmptyInput)
	}
}

func TestTranslateToEnglish_SkipsWithoutRemoteCall(t *testing.T) {
	tests := []struct {
		name string
		text string
		det  *fakeDetector
		want Result
	}{
		{"too short", " ok ", detected("bn", 1, true), Result{TranslatedText: "ok", SourceLanguage: UnknownLanguage, Status: StatusNotRequired}},
		{"placeholder", PlaceholderRecorded, detected("bn", 1, true), Result{TranslatedText: PlaceholderRecorded, SourceLanguage: UnknownLanguage, Status: StatusNotRequired}},
		{"speech placeholder", PlaceholderSpeechDetected, detected("bn", 1, true), Result{TranslatedText: PlaceholderSpeechDetected, SourceLanguage: UnknownLanguage, Status: StatusNotRequired}},
		{"english", "there is a fire", detected("en-US", 0.9, true), Result{TranslatedText: "there is a fire", SourceLanguage: "en", Confidence: 1, Status: StatusNotRequired}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &mock.Provider{}
			tr := newTranslator(t, p, tt.det)
			got, err := tr.TranslateToEnglish(context.Background(), tt.text, "")
			if err != nil {
				t.Fatalf("err = %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
			if n := len(p.Calls()); n != 0 {
				t.Errorf("provider called %d times, want 0", n)
			}
		})
	}
}

func TestTranslateToEnglish_Grading(t *testing.T) {
	tests := []struct {
		name       string
		det        *fakeDetector
		wantSource string
		wantConf   float64
		wantStatus Status
	}{
		{"reliable and sure", detected("bn", 0.92, true), "bn", 0.92 * 0.95 * 1.05, StatusCompleted},
		{"reliable below boost", detected("bn", 0.85, true), "bn", 0.85 * 0.95, StatusLowConfidence},
		{"unreliable", detected("bn", 0.7, false), "bn", 0.7 * 0.95, StatusLowConfidence},
		{"weak", detected("bn", 0.5, true), "bn", 0.5 * 0.95, StatusFailed},
		{"boost capped", detected("bn", 1.0, true), "bn", 0.98, StatusCompleted},
		{"nothing detected", &fakeDetector{}, "", 0.5 * 0.95, StatusFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &mock.Provider{Response: translation.Response{TranslatedText: "My house is on fire"}}
			tr := newTranslator(t, p, tt.det)
			got, err := tr.TranslateToEnglish(context.Background(), "আমার বাড়িতে আগুন", "")
			if err != nil {
				t.Fatalf("err = %v", err)
			}
			if !approx(got.Confidence, tt.wantConf) {
				t.Errorf("Confidence = %v, want %v", got.Confidence, tt.wantConf)
			}
			if got.Status != tt.wantStatus {
				t.Errorf("Status = %q, want %q", got.Status, tt.wantStatus)
			}
			calls := p.Calls()
			if len(calls) != 1 {
				t.Fatalf("provider calls = %d, want 1", len(calls))
			}
			if calls[0].Source != tt.wantSource || calls[0].Target != "en" {
				t.Errorf("request = %+v, want source %q target en", calls[0], tt.wantSource)
			}
		})
	}
}

func TestTranslateToEnglish_HintSkipsDetection(t *testing.T) {
	p := &mock.Provider{Response: translation.Response{TranslatedText: "help"}}
	det := detected("bn", 0.4, false)
	tr := newTranslator(t, p, det)

	got, err := tr.TranslateToEnglish(context.Background(), "मदद करो", "hi-IN")
	if err != nil {
		t.Fatal(err)
	}
	if det.calls != 0 {
		t.Errorf("detector called %d times, want 0", det.calls)
	}
	if got.SourceLanguage != "hi" || got.Status != StatusCompleted || !approx(got.Confidence, 0.98) {
		t.Errorf("got %+v, want hi/completed/0.98", got)
	}
	if src := p.Calls()[0].Source; src != "hi" {
		t.Errorf("request source = %q, want hi", src)
	}
}

func TestTranslateToEnglish_EnglishHint(t *testing.T) {
	p := &mock.Provider{}
	tr := newTranslator(t, p, nil)
	got, err := tr.TranslateToEnglish(context.Background(), "fire at the station", "en-GB")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != StatusNotRequired || got.SourceLanguage != "en" {
		t.Errorf("got %+v", got)
	}
}

func TestTranslateToEnglish_UnchangedOutput(t *testing.T) {
	p := &mock.Provider{Response: translation.Response{TranslatedText: "  HELP ME  ", DetectedSourceLanguage: "en"}}
	tr := newTranslator(t, p, detected("de", 0.6, false))

	got, err := tr.TranslateToEnglish(context.Background(), "help me", "")
	if err != nil {
		t.Fatal(err)
	}
	want := Result{TranslatedText: "help me", SourceLanguage: "en", Confidence: 1, Status: StatusNotRequired}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestTranslateToEnglish_ReportedSourceWins(t *testing.T) {
	p := &mock.Provider{Response: translation.Response{TranslatedText: "help", DetectedSourceLanguage: "zh-CN"}}
	tr := newTranslator(t, p, &fakeDetector{})

	got, err := tr.TranslateToEnglish(context.Background(), "救命啊", "")
	if err != nil {
		t.Fatal(err)
	}
	if got.SourceLanguage != "zh" {
		t.Errorf("SourceLanguage = %q, want zh", got.SourceLanguage)
	}
}

func TestTranslateToEnglish_Errors(t *testing.T) {
	tests := []struct {
		err  error
		want Code
		http int
	}{
		{&translation.StatusError{Provider: "google", StatusCode: http.StatusBadRequest}, CodeInvalidText, http.StatusBadRequest},
		{&translation.StatusError{Provider: "google", StatusCode: http.StatusForbidden}, CodeAccessDenied, http.StatusBadGateway},
		{&translation.StatusError{Provider: "google", StatusCode: http.StatusTooManyRequests}, CodeUnavailable, http.StatusServiceUnavailable},
		{&translation.StatusError{Provider: "google", StatusCode: http.StatusInternalServerError}, CodeServiceError, http.StatusBadGateway},
		{fmt.Errorf("google: %w", translation.ErrNoTranslation), CodeBadResponse, http.StatusBadGateway},
		{context.DeadlineExceeded, CodeTimeout, http.StatusGatewayTimeout},
		{errors.New("connection reset"), CodeServiceError, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			tr := newTranslator(t, &mock.Provider{TranslateErr: tt.err}, detected("bn", 0.9, true))
			_, err := tr.TranslateToEnglish(context.Background(), "আমার বাড়িতে আগুন", "")
			var te *Error
			if !errors.As(err, &te) {
				t.Fatalf("err = %v, want *Error", err)
			}
			if te.Code != tt.want {
				t.Errorf("Code = %q, want %q", te.Code, tt.want)
			}
			if te.HTTPStatus() != tt.http {
				t.Errorf("HTTPStatus = %d, want %d", te.HTTPStatus(), tt.http)
			}
			if te.Message == "" {
				t.Error("Message is empty")
			}
		})
	}
}

func TestTranslateToEnglish_Timeout(t *testing.T) {
	p := &mock.Provider{TranslateFunc: func(ctx context.Context, _ translation.Request) (translation.Response, error) {
		<-ctx.Done()
		return translation.Response{}, ctx.Err()
	}}
	tr := newTranslator(t, p, detected("bn", 0.9, true), WithTimeout(10*time.Millisecond))

	_, err := tr.TranslateToEnglish(context.Background(), "আমার বাড়িতে আগুন", "")
	if got := CodeOf(err); got != CodeTimeout {
		t.Errorf("CodeOf = %q, want %q", got, CodeTimeout)
	}
}

func TestTuning_Validate(t *testing.T) {
	if err := DefaultTuning().Validate(); err != nil {
		t.Fatalf("DefaultTuning().Validate() = %v", err)
	}
	bad := DefaultTuning()
	bad.LowConfidenceThreshold = 0.9
	if err := bad.Validate(); err == nil {
		t.Error("Validate accepted low threshold above completed threshold")
	}
	bad = DefaultTuning()
	bad.CompletedThreshold = 0.99
	if err := bad.Validate(); err == nil {
		t.Error("Validate accepted completed threshold above max confidence")
	}
}

func TestTuning_ConfidenceIsMonotonic(t *testing.T) {
	tu := DefaultTuning()
	for _, reliable := range []bool{false, true} {
		prev := -1.0
		for i := 0; i <= 100; i++ {
			c := tu.Confidence(float64(i)/100, reliable)
			if c < prev {
				t.Fatalf("Confidence(%v, %v) = %v decreased from %v", float64(i)/100, reliable, c, prev)
			}
			if c > tu.MaxConfidence {
				t.Fatalf("Confidence(%v, %v) = %v exceeds max %v", float64(i)/100, reliable, c, tu.MaxConfidence)
			}
			prev = c
		}
	}
}

func TestTuning_Status(t *testing.T) {
	tu := DefaultTuning()
	tests := []struct {
		conf     float64
		reliable bool
		want     Status
	}{
		{0.9, true, StatusCompleted},
		{0.9, false, StatusLowConfidence},
		{0.85, true, StatusCompleted},
		{0.6, true, StatusLowConfidence},
		{0.59, true, StatusFailed},
	}
	for _, tt := range tests {
		if got := tu.Status(tt.conf, tt.reliable); got != tt.want {
			t.Errorf("Status(%v, %v) = %q, want %q", tt.conf, tt.reliable, got, tt.want)
		}
	}
}
