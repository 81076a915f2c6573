package langdetect

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/MrWong99/lingualert/internal/observe"
	"github.com/MrWong99/lingualert/internal/resilience"
	"github.com/MrWong99/lingualert/pkg/provider/langid"
	"github.com/MrWong99/lingualert/pkg/provider/langid/mock"
)

func testMetrics(t *testing.T) (*observe.Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

func newDetector(t *testing.T, p langid.Provider, opts ...Option) *Detector {
	t.Helper()
	m, _ := testMetrics(t)
	d, err := New(p, append([]Option{WithMetrics(m)}, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return d
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestDetect_Adjustment(t *testing.T) {
	long := strings.Repeat("there is a fire ", 4)
	tests := []struct {
		name     string
		text     string
		cand     langid.Candidate
		wantLang string
		wantConf float64
		reliable bool
	}{
		{"script match boosts", "আমার বাড়িতে আগুন", langid.Candidate{Language: "bn", Confidence: 0.8}, "bn", 0.88, true},
		{"boost is capped", "আমার বাড়িতে আগুন", langid.Candidate{Language: "bn", Confidence: 0.95}, "bn", 1.0, true},
		{"script mismatch penalises", "help me please", langid.Candidate{Language: "hi", Confidence: 0.9}, "hi", 0.72, false},
		{"long text boost", long, langid.Candidate{Language: "en", Confidence: 0.5}, "en", 0.5 * 1.1 * 1.05, false},
		{"compound tag normalised", "救命啊", langid.Candidate{Language: "zh-CN", Confidence: 0.9}, "zh", 0.99, true},
		{"japanese kana matches mixed script", "たすけて", langid.Candidate{Language: "ja", Confidence: 0.8}, "ja", 0.88, true},
		{"unknown language left alone", "help", langid.Candidate{Language: "xx", Confidence: 0.6}, "xx", 0.6, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newDetector(t, &mock.Provider{Candidates: []langid.Candidate{tt.cand}})
			got := d.Detect(context.Background(), tt.text)
			if got == nil {
				t.Fatal("Detect = nil")
			}
			if got.Language != tt.wantLang {
				t.Errorf("Language = %q, want %q", got.Language, tt.wantLang)
			}
			if !approx(got.Confidence, tt.wantConf) {
				t.Errorf("Confidence = %v, want %v", got.Confidence, tt.wantConf)
			}
			if got.IsReliable != tt.reliable {
				t.Errorf("IsReliable = %v, want %v", got.IsReliable, tt.reliable)
			}
		})
	}
}

func TestDetect_UnreliableWhenScriptIsMixed(t *testing.T) {
	// Latin dominates but only at 4/7, so the script check fails even
	// though the provider is sure.
	d := newDetector(t, &mock.Provider{Candidates: []langid.Candidate{{Language: "en", Confidence: 0.95}}})
	got := d.Detect(context.Background(), "help мой")
	if got == nil {
		t.Fatal("Detect = nil")
	}
	if got.IsReliable {
		t.Errorf("IsReliable = true, want false (script confidence too low)")
	}
}

func TestDetect_FallbackOnError(t *testing.T) {
	m, reader := testMetrics(t)
	p := &mock.Provider{DetectErr: errors.New("503")}
	d, err := New(p, WithMetrics(m))
	if err != nil {
		t.Fatal(err)
	}

	got := d.Detect(context.Background(), "আমার বাড়িতে আগুন")
	if got == nil {
		t.Fatal("Detect = nil, want script fallback")
	}
	if got.Language != "bn" || !approx(got.Confidence, 0.7) || !got.IsReliable {
		t.Errorf("Detect = %+v, want bn/0.7/reliable", got)
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatal(err)
	}
	var fallbacks int64
	for _, sm := range rm.ScopeMetrics {
		for _, met := range sm.Metrics {
			if met.Name != "lingualert.detect.fallbacks" {
				continue
			}
			for _, dp := range met.Data.(metricdata.Sum[int64]).DataPoints {
				fallbacks += dp.Value
			}
		}
	}
	if fallbacks != 1 {
		t.Errorf("fallbacks = %d, want 1", fallbacks)
	}
}

func TestDetect_FallbackGivesUpOnWeakScript(t *testing.T) {
	d := newDetector(t, &mock.Provider{DetectErr: errors.New("down")})
	if got := d.Detect(context.Background(), "ab вг ده"); got != nil {
		t.Errorf("Detect = %+v, want nil", got)
	}
}

func TestDetect_FallbackOnTimeout(t *testing.T) {
	p := &mock.Provider{DetectFunc: func(ctx context.Context, _ string) ([]langid.Candidate, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	d := newDetector(t, p, WithTimeout(10*time.Millisecond))

	got := d.Detect(context.Background(), "пожар в доме")
	if got == nil || got.Language != "ru" {
		t.Errorf("Detect = %+v, want ru fallback", got)
	}
}

func TestDetect_OpenBreakerSkipsProvider(t *testing.T) {
	p := &mock.Provider{DetectErr: errors.New("down")}
	d := newDetector(t, p, WithCircuitBreaker(resilience.CircuitBreakerConfig{MaxFailures: 1, ResetTimeout: time.Hour}))

	_ = d.Detect(context.Background(), "fire")
	got := d.Detect(context.Background(), "fire")
	if got == nil || got.Language != "en" {
		t.Errorf("Detect = %+v, want en fallback", got)
	}
	if n := p.CallCount(); n != 1 {
		t.Errorf("provider calls = %d, want 1", n)
	}
}

func TestDetect_NoCandidates(t *testing.T) {
	d := newDetector(t, &mock.Provider{})
	if got := d.Detect(context.Background(), "fire"); got != nil {
		t.Errorf("Detect = %+v, want nil", got)
	}
}

func TestDetect_EmptyAndUnconfigured(t *testing.T) {
	p := &mock.Provider{Candidates: []langid.Candidate{{Language: "en", Confidence: 1}}}
	d := newDetector(t, p)
	if got := d.Detect(context.Background(), "   "); got != nil {
		t.Errorf("Detect(blank) = %+v, want nil", got)
	}
	if p.CallCount() != 0 {
		t.Errorf("provider called for blank text")
	}

	un := newDetector(t, nil)
	if un.Available() {
		t.Error("Available = true for nil provider")
	}
	if got := un.Detect(context.Background(), "fire"); got != nil {
		t.Errorf("Detect(unconfigured) = %+v, want nil", got)
	}
}

func TestDetectEnhanced(t *testing.T) {
	p := &mock.Provider{Candidates: []langid.Candidate{
		{Language: "hi", Confidence: 0.9},
		{Language: "mr", Confidence: 0.4},
	}}
	d := newDetector(t, p)

	got := d.DetectEnhanced(context.Background(), "  मदद करो 112  ")
	if got == nil {
		t.Fatal("DetectEnhanced = nil")
	}
	if got.Primary.Language != "hi" {
		t.Errorf("Primary.Language = %q, want hi", got.Primary.Language)
	}
	if len(got.Alternatives) != 1 || got.Alternatives[0].Language != "mr" {
		t.Errorf("Alternatives = %+v", got.Alternatives)
	}
	ta := got.TextAnalysis
	if ta.ScriptType != "Devanagari" || !ta.HasNumbers || ta.Length != 11 {
		t.Errorf("TextAnalysis = %+v", ta)
	}
	if calls := p.DetectCalls; len(calls) != 1 || calls[0].Text != "मदद करो 112" {
		t.Errorf("provider saw %+v, want trimmed text", calls)
	}
}

func TestDetectBatch(t *testing.T) {
	p := &mock.Provider{DetectFunc: func(_ context.Context, text string) ([]langid.Candidate, error) {
		switch text {
		case "fire":
			return []langid.Candidate{{Language: "en", Confidence: 0.9}}, nil
		case "пожар":
			return []langid.Candidate{{Language: "ru", Confidence: 0.9}}, nil
		}
		return nil, nil
	}}
	d := newDetector(t, p, WithBatchLimit(2))

	got := d.DetectBatch(context.Background(), []string{"fire", "", "пожар", "zzz"})
	if len(got) != 4 {
		t.Fatalf("len = %d, want 4", len(got))
	}
	if got[0] == nil || got[0].Language != "en" {
		t.Errorf("got[0] = %+v", got[0])
	}
	if got[1] != nil {
		t.Errorf("got[1] = %+v, want nil", got[1])
	}
	if got[2] == nil || got[2].Language != "ru" {
		t.Errorf("got[2] = %+v", got[2])
	}
	if got[3] != nil {
		t.Errorf("got[3] = %+v, want nil", got[3])
	}
}

func TestTuning_Validate(t *testing.T) {
	if err := DefaultTuning().Validate(); err != nil {
		t.Fatalf("DefaultTuning().Validate() = %v", err)
	}

	bad := DefaultTuning()
	bad.ScriptMatchBoost = 0.9
	bad.ScriptMismatchPenalty = 1.2
	bad.FallbackMinScript = 0.9
	err := bad.Validate()
	if err == nil {
		t.Fatal("Validate = nil, want error")
	}
	for _, want := range []string{"script_match_boost", "script_mismatch_penalty", "fallback_min_script"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}

	if _, err := New(&mock.Provider{}, WithTuning(bad)); err == nil {
		t.Error("New accepted invalid tuning")
	}
}

func TestTuning_DefaultOrdering(t *testing.T) {
	tu := DefaultTuning()
	if tu.ScriptMismatchPenalty >= 1 || tu.ScriptMatchBoost <= 1 {
		t.Errorf("match boost %v / mismatch penalty %v not on opposite sides of 1", tu.ScriptMatchBoost, tu.ScriptMismatchPenalty)
	}
	if tu.FallbackFactor >= tu.ReliableConfidence {
		t.Errorf("a perfect-script fallback (%v) must stay below the remote reliability bar (%v)", tu.FallbackFactor, tu.ReliableConfidence)
	}
}
