// Package script classifies text by the writing systems it uses.
//
// Classification works on Unicode block ranges rather than a language model,
// so it is cheap, deterministic and available offline. The result is used
// both to cross-check remote language detection and as the last-resort
// fallback when the remote detector is unreachable.
package script

import (
	"unicode"
)

// Latin is the script reported for empty or unclassifiable text.
const Latin = "Latin"

// Analysis is the result of classifying a text by script.
type Analysis struct {
	// Script is the dominant script name (e.g. "Latin", "Bengali").
	Script string

	// Blocks lists every script observed in the text, in table order.
	Blocks []string

	// Confidence is the dominant script's share of the classifiable
	// characters, in [0, 1]. Zero when nothing was classifiable.
	Confidence float64

	// HasNumbers reports whether any decimal digit appeared.
	HasNumbers bool

	// HasSpecialChars reports whether any character other than letters,
	// combining marks, digits and whitespace appeared.
	HasSpecialChars bool
}

// Analyze classifies text. Whitespace, punctuation and digits do not count
// toward any script; every other rune is matched against the block table.
// Ties between scripts resolve to the one listed first in the table.
func Analyze(text string) Analysis {
	var (
		counts       [len(table)]int
		classifiable int
		a            Analysis
	)

	for _, r := range text {
		switch {
		case unicode.IsDigit(r):
			a.HasNumbers = true
			continue
		case unicode.IsSpace(r):
			continue
		}
		if !unicode.IsLetter(r) && !unicode.IsMark(r) {
			a.HasSpecialChars = true
		}
		if unicode.IsPunct(r) {
			continue
		}
		if idx := lookup(r); idx >= 0 {
			counts[idx]++
			classifiable++
		}
	}

	a.Script = Latin
	best := 0
	for i, n := range counts {
		if n == 0 {
			continue
		}
		a.Blocks = append(a.Blocks, table[i].name)
		if n > best {
			best = n
			a.Script = table[i].name
		}
	}
	if classifiable > 0 {
		a.Confidence = float64(best) / float64(classifiable)
	}
	return a
}

// Names returns every script name the analyser can report, in table order.
func Names() []string {
	out := make([]string, len(table))
	for i, s := range table {
		out[i] = s.name
	}
	return out
}

// Known reports whether name is a script the analyser can report.
func Known(name string) bool {
	for _, s := range table {
		if s.name == name {
			return true
		}
	}
	return false
}

func lookup(r rune) int {
	for i, s := range table {
		for _, rg := range s.ranges {
			if r >= rg.lo && r <= rg.hi {
				return i
			}
		}
	}
	return -1
}
