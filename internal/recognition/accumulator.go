package recognition

import (
	"strings"
	"sync"
)

// DefaultFinalConfidence is used for final results whose backend reported
// no confidence, and as the floor of a reconciled final transcript.
const DefaultFinalConfidence = 0.8

// Accumulator collects the transcript of one recording. It is safe for
// concurrent use: the controller writes while the session reads.
type Accumulator struct {
	mu         sync.Mutex
	final      string
	interim    string
	confidence float64
}

// AppendFinal appends a finalized fragment and raises the running maximum
// confidence. A zero confidence counts as [DefaultFinalConfidence].
func (a *Accumulator) AppendFinal(text string, confidence float64) {
	if confidence <= 0 {
		confidence = DefaultFinalConfidence
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.final = strings.TrimSpace(a.final + " " + strings.TrimSpace(text))
	a.confidence = max(a.confidence, confidence)
	a.interim = ""
}

// SetInterim replaces the interim fragment.
func (a *Accumulator) SetInterim(text string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.interim = strings.TrimSpace(text)
}

// Final returns the finalized transcript.
func (a *Accumulator) Final() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.final
}

// Interim returns the current interim fragment.
func (a *Accumulator) Interim() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.interim
}

// Display returns the finalized transcript followed by the interim fragment.
func (a *Accumulator) Display() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return strings.TrimSpace(a.final + " " + a.interim)
}

// Confidence returns the highest confidence of any final fragment, or 0.
func (a *Accumulator) Confidence() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.confidence
}

// Reset clears everything.
func (a *Accumulator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.final, a.interim, a.confidence = "", "", 0
}
