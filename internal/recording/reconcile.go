package recording

import (
	"strings"
	"unicode/utf8"

	"github.com/antzucaro/matchr"

	"github.com/MrWong99/lingualert/internal/recognition"
	"github.com/MrWong99/lingualert/pkg/script"
	"github.com/MrWong99/lingualert/pkg/translate"
)

// Confidences assigned by Reconcile to each kind of transcript.
const (
	InterimConfidence        = 0.6
	SpeechDetectedConfidence = 0.4
	SilenceConfidence        = 0.2
)

const (
	reusePrefixRunes = 15
	reuseSimilarity  = 0.9

	// minTranslatableRunes is the transcript length above which the final
	// transcript is translated.
	minTranslatableRunes = 3
)

// nonPrefixScripts are scripts whose recognizers often re-segment or
// re-order text between interim and final results, so a literal prefix
// match is too strict.
var nonPrefixScripts = map[string]bool{
	"Arabic":   true,
	"Hebrew":   true,
	"Han":      true,
	"Hiragana": true,
	"Katakana": true,
}

// Reconcile picks the transcript of a finished recording and its confidence,
// in order of preference: finalized text, the last interim fragment, a
// placeholder noting that speech was heard, and a placeholder for silence.
func Reconcile(final, interim string, runningMax float64, activity bool) (string, float64) {
	final = strings.TrimSpace(final)
	interim = strings.TrimSpace(interim)
	switch {
	case final != "":
		return final, max(runningMax, recognition.DefaultFinalConfidence)
	case interim != "":
		return interim, InterimConfidence
	case activity:
		return translate.PlaceholderSpeechDetected, SpeechDetectedConfidence
	default:
		return translate.PlaceholderRecorded, SilenceConfidence
	}
}

// translatable reports whether a reconciled transcript is real speech.
func translatable(transcript string) bool {
	return !translate.IsPlaceholder(transcript) && utf8.RuneCountInString(transcript) > minTranslatableRunes
}

// liveTranslation is the last translation produced while recording, with
// the text it was computed from.
type liveTranslation struct {
	source string
	result translate.Result
}

// reusable reports whether the live translation still describes the final
// transcript.
func (l *liveTranslation) reusable(transcript string) bool {
	if l == nil || l.result.Status != translate.StatusCompleted {
		return false
	}
	prefix := l.source
	if r := []rune(prefix); len(r) > reusePrefixRunes {
		prefix = string(r[:reusePrefixRunes])
	}
	if prefix != "" && strings.Contains(strings.ToLower(transcript), strings.ToLower(prefix)) {
		return true
	}
	if !nonPrefixScripts[script.Analyze(transcript).Script] {
		return false
	}
	return matchr.JaroWinkler(l.source, transcript, false) >= reuseSimilarity
}
