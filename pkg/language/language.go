// Package language is the static catalogue of languages the service can
// detect and translate, together with tag normalisation and the
// script-to-language fallback table used when remote detection fails.
package language

import (
	"slices"
	"strings"

	xlanguage "golang.org/x/text/language"

	"github.com/MrWong99/lingualert/pkg/script"
)

// English is the normalised code of the translation target.
const English = "en"

// Auto is the pseudo-code used when the source language is unknown and the
// translation backend should detect it.
const Auto = "auto"

// Info describes one supported language.
type Info struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Script string `json:"script"`
	Family string `json:"family"`
}

// compound maps regional tags to their canonical base code. Keys are
// lower-case with '-' as separator.
var compound = map[string]string{
	"zh-cn": "zh", "zh-tw": "zh", "zh-hk": "zh",
	"pt-br": "pt", "pt-pt": "pt",
	"en-us": "en", "en-gb": "en",
	"es-es": "es", "es-mx": "es",
	"fr-fr": "fr", "fr-ca": "fr",
	"de-de": "de", "de-at": "de",
	"it-it": "it",
	"ru-ru": "ru",
	"ja-jp": "ja",
	"ko-kr": "ko",
	"ar-sa": "ar",
	"hi-in": "hi",
	"bn-bd": "bn", "bn-in": "bn",
}

// Normalize converts a BCP-47-ish tag to the base code used throughout the
// service. "" and "auto" pass through unchanged. Underscores are accepted
// as separators.
func Normalize(code string) string {
	if code == "" || code == Auto {
		return code
	}
	lc := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(code), "_", "-"))
	if base, ok := compound[lc]; ok {
		return base
	}
	// Backends still answer with deprecated subtags such as "iw" or "in".
	if tag, err := xlanguage.Deprecated.Parse(lc); err == nil {
		if base, conf := tag.Base(); conf == xlanguage.Exact {
			return base.String()
		}
	}
	base, _, _ := strings.Cut(lc, "-")
	return base
}

// Lookup returns the catalogue entry for code after normalisation.
func Lookup(code string) (Info, bool) {
	info, ok := byCode[Normalize(code)]
	return info, ok
}

// IsSupported reports whether code names a catalogued language.
func IsSupported(code string) bool {
	_, ok := Lookup(code)
	return ok
}

// ExpectedScript returns the script the language is normally written in, or
// "" for unknown languages.
func ExpectedScript(code string) string {
	info, ok := Lookup(code)
	if !ok {
		return ""
	}
	return info.Script
}

// Supported returns every catalogued language sorted by code.
func Supported() []Info {
	out := make([]Info, len(catalogue))
	copy(out, catalogue)
	slices.SortFunc(out, func(a, b Info) int { return strings.Compare(a.Code, b.Code) })
	return out
}

// ByScript returns the catalogued languages written in script, sorted by code.
func ByScript(script string) []Info {
	var out []Info
	for _, info := range catalogue {
		if info.Script == script {
			out = append(out, info)
		}
	}
	slices.SortFunc(out, func(a, b Info) int { return strings.Compare(a.Code, b.Code) })
	return out
}

// ForScript returns the most common language for a script. It is the last
// resort when no remote detector answered.
func ForScript(script string) (string, bool) {
	code, ok := scriptDefault[script]
	return code, ok
}

// ScriptOf returns the dominant script of text and its share of the
// classifiable characters. Text without letters reports Latin with zero
// confidence.
func ScriptOf(text string) (string, float64) {
	a := script.Analyze(text)
	return a.Script, a.Confidence
}

var scriptDefault = map[string]string{
	"Latin":      "en",
	"Cyrillic":   "ru",
	"Arabic":     "ar",
	"Devanagari": "hi",
	"Bengali":    "bn",
	"Gujarati":   "gu",
	"Gurmukhi":   "pa",
	"Tamil":      "ta",
	"Telugu":     "te",
	"Kannada":    "kn",
	"Malayalam":  "ml",
	"Odia":       "or",
	"Sinhala":    "si",
	"Thai":       "th",
	"Lao":        "lo",
	"Myanmar":    "my",
	"Khmer":      "km",
	"Georgian":   "ka",
	"Armenian":   "hy",
	"Hebrew":     "he",
	"Ethiopic":   "am",
	"Han":        "zh",
	"Hiragana":   "ja",
	"Katakana":   "ja",
	"Hangul":     "ko",
}

var byCode = func() map[string]Info {
	m := make(map[string]Info, len(catalogue))
	for _, info := range catalogue {
		m[info.Code] = info
	}
	return m
}()
