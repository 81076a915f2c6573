package translate

import (
	"errors"
	"fmt"
	"math"
)

// Tuning holds the constants that turn a detection confidence into a
// translation confidence and status.
type Tuning struct {
	// DetectionWeight scales the detection confidence.
	DetectionWeight float64 `yaml:"detection_weight"`

	// ReliableBoost is applied when the detection is reliable and at least
	// ReliableBoostFrom confident. The boosted value is capped at
	// MaxConfidence.
	ReliableBoost     float64 `yaml:"reliable_boost"`
	ReliableBoostFrom float64 `yaml:"reliable_boost_from"`
	MaxConfidence     float64 `yaml:"max_confidence"`

	// CompletedThreshold is the minimum confidence for StatusCompleted
	// (which also requires a reliable detection).
	CompletedThreshold float64 `yaml:"completed_threshold"`

	// LowConfidenceThreshold is the minimum confidence for
	// StatusLowConfidence. Anything below is StatusFailed.
	LowConfidenceThreshold float64 `yaml:"low_confidence_threshold"`

	// UndetectedConfidence is assumed when detection found nothing.
	UndetectedConfidence float64 `yaml:"undetected_confidence"`

	// MinRunes is the shortest text worth translating.
	MinRunes int `yaml:"min_runes"`
}

// DefaultTuning returns the production values.
func DefaultTuning() Tuning {
	return Tuning{
		DetectionWeight:        0.95,
		ReliableBoost:          1.05,
		ReliableBoostFrom:      0.9,
		MaxConfidence:          0.98,
		CompletedThreshold:     0.85,
		LowConfidenceThreshold: 0.6,
		UndetectedConfidence:   0.5,
		MinRunes:               3,
	}
}

// Validate checks ranges and threshold ordering.
func (t Tuning) Validate() error {
	var errs []error
	if t.DetectionWeight <= 0 || t.DetectionWeight > 1 {
		errs = append(errs, fmt.Errorf("detection_weight %v must be in (0, 1]", t.DetectionWeight))
	}
	if t.ReliableBoost < 1 {
		errs = append(errs, fmt.Errorf("reliable_boost %v must be >= 1", t.ReliableBoost))
	}
	if t.MaxConfidence <= 0 || t.MaxConfidence > 1 {
		errs = append(errs, fmt.Errorf("max_confidence %v must be in (0, 1]", t.MaxConfidence))
	}
	if t.LowConfidenceThreshold < 0 || t.LowConfidenceThreshold >= t.CompletedThreshold {
		errs = append(errs, errors.New("low_confidence_threshold must be >= 0 and below completed_threshold"))
	}
	if t.CompletedThreshold > t.MaxConfidence {
		errs = append(errs, errors.New("completed_threshold must not exceed max_confidence"))
	}
	if t.ReliableBoostFrom < 0 || t.ReliableBoostFrom > 1 {
		errs = append(errs, fmt.Errorf("reliable_boost_from %v must be in [0, 1]", t.ReliableBoostFrom))
	}
	if t.UndetectedConfidence < 0 || t.UndetectedConfidence > 1 {
		errs = append(errs, fmt.Errorf("undetected_confidence %v must be in [0, 1]", t.UndetectedConfidence))
	}
	if t.MinRunes < 0 {
		errs = append(errs, fmt.Errorf("min_runes %d must not be negative", t.MinRunes))
	}
	return errors.Join(errs...)
}

// Confidence converts a detection confidence into a translation confidence.
func (t Tuning) Confidence(detection float64, reliable bool) float64 {
	c := detection * t.DetectionWeight
	if reliable && detection >= t.ReliableBoostFrom {
		c = math.Min(c*t.ReliableBoost, t.MaxConfidence)
	}
	return c
}

// Status maps a translation confidence onto a status.
func (t Tuning) Status(confidence float64, reliable bool) Status {
	switch {
	case confidence >= t.CompletedThreshold && reliable:
		return StatusCompleted
	case confidence >= t.LowConfidenceThreshold:
		return StatusLowConfidence
	default:
		return StatusFailed
	}
}
