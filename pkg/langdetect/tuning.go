package langdetect

import (
	"errors"
	"fmt"
)

// Tuning holds the multipliers and thresholds used to turn a raw provider
// confidence into a script-aware one.
type Tuning struct {
	// ScriptMatchBoost multiplies the confidence when the detected
	// language's usual script equals the script of the text.
	ScriptMatchBoost float64 `yaml:"script_match_boost"`

	// ScriptMismatchPenalty multiplies the confidence when the scripts
	// differ.
	ScriptMismatchPenalty float64 `yaml:"script_mismatch_penalty"`

	// LongTextBoost is applied on top for texts longer than LongTextRunes.
	LongTextBoost float64 `yaml:"long_text_boost"`
	LongTextRunes int     `yaml:"long_text_runes"`

	// A detection is reliable when its adjusted confidence reaches
	// ReliableConfidence and the script analysis reaches
	// ReliableScriptConfidence.
	ReliableConfidence       float64 `yaml:"reliable_confidence"`
	ReliableScriptConfidence float64 `yaml:"reliable_script_confidence"`

	// FallbackFactor scales the script confidence into a language
	// confidence when the remote detector failed.
	FallbackFactor float64 `yaml:"fallback_factor"`

	// FallbackReliableScript is the script confidence at which a fallback
	// detection counts as reliable.
	FallbackReliableScript float64 `yaml:"fallback_reliable_script"`

	// FallbackMinScript is the script confidence below which the fallback
	// gives up.
	FallbackMinScript float64 `yaml:"fallback_min_script"`
}

// DefaultTuning returns the production values.
func DefaultTuning() Tuning {
	return Tuning{
		ScriptMatchBoost:         1.1,
		ScriptMismatchPenalty:    0.8,
		LongTextBoost:            1.05,
		LongTextRunes:            50,
		ReliableConfidence:       0.8,
		ReliableScriptConfidence: 0.7,
		FallbackFactor:           0.7,
		FallbackReliableScript:   0.8,
		FallbackMinScript:        0.5,
	}
}

// Validate checks ranges and ordering. All problems are reported together.
func (t Tuning) Validate() error {
	var errs []error
	if t.ScriptMatchBoost < 1 {
		errs = append(errs, fmt.Errorf("script_match_boost %v must be >= 1", t.ScriptMatchBoost))
	}
	if t.ScriptMismatchPenalty <= 0 || t.ScriptMismatchPenalty > 1 {
		errs = append(errs, fmt.Errorf("script_mismatch_penalty %v must be in (0, 1]", t.ScriptMismatchPenalty))
	}
	if t.LongTextBoost < 1 {
		errs = append(errs, fmt.Errorf("long_text_boost %v must be >= 1", t.LongTextBoost))
	}
	if t.LongTextRunes < 0 {
		errs = append(errs, fmt.Errorf("long_text_runes %d must not be negative", t.LongTextRunes))
	}
	for name, v := range map[string]float64{
		"reliable_confidence":        t.ReliableConfidence,
		"reliable_script_confidence": t.ReliableScriptConfidence,
		"fallback_reliable_script":   t.FallbackReliableScript,
		"fallback_min_script":        t.FallbackMinScript,
	} {
		if v < 0 || v > 1 {
			errs = append(errs, fmt.Errorf("%s %v must be in [0, 1]", name, v))
		}
	}
	if t.FallbackFactor <= 0 || t.FallbackFactor > 1 {
		errs = append(errs, fmt.Errorf("fallback_factor %v must be in (0, 1]", t.FallbackFactor))
	}
	if t.FallbackMinScript > t.FallbackReliableScript {
		errs = append(errs, errors.New("fallback_min_script must not exceed fallback_reliable_script"))
	}
	return errors.Join(errs...)
}
