package resilience

import (
	"context"
	"errors"
	"testing"

	"github.com/MrWong99/lingualert/pkg/provider/langid"
	langidmock "github.com/MrWong99/lingualert/pkg/provider/langid/mock"
)

func TestLangIDFallback_Failover(t *testing.T) {
	primary := &langidmock.Provider{DetectErr: errors.New("down")}
	secondary := &langidmock.Provider{Candidates: []langid.Candidate{{Language: "bn", Confidence: 0.9}}}

	fb := NewLangIDFallback(primary, "google", FallbackConfig{})
	fb.AddFallback("llm", secondary)

	got, err := fb.Detect(context.Background(), "সাহায্য")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Language != "bn" {
		t.Errorf("Detect = %+v", got)
	}
	if primary.CallCount() != 1 || secondary.CallCount() != 1 {
		t.Errorf("calls = %d/%d, want 1/1", primary.CallCount(), secondary.CallCount())
	}
}
