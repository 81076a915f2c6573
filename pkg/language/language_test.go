package language_test

import (
	"testing"

	"github.com/MrWong99/lingualert/pkg/language"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"auto", "auto"},
		{"en", "en"},
		{"EN", "en"},
		{"zh-CN", "zh"},
		{"zh-TW", "zh"},
		{"pt-BR", "pt"},
		{"bn-BD", "bn"},
		{"bn-IN", "bn"},
		{"en_GB", "en"},
		{"sr-Latn-RS", "sr"},
		{"fil", "fil"},
		{" de-CH ", "de"},
		{"iw", "he"},
		{"in-ID", "id"},
		{"xx-YY", "xx"},
	}
	for _, tt := range tests {
		if got := language.Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLookup(t *testing.T) {
	t.Parallel()

	info, ok := language.Lookup("bn-BD")
	if !ok {
		t.Fatal("Lookup(bn-BD) not found")
	}
	if info.Name != "Bengali" || info.Script != "Bengali" {
		t.Errorf("Lookup(bn-BD) = %+v, want Bengali/Bengali", info)
	}
	if _, ok := language.Lookup("xx"); ok {
		t.Error("Lookup(xx) found, want missing")
	}
}

func TestSupportedIsSortedAndUnique(t *testing.T) {
	t.Parallel()

	all := language.Supported()
	if len(all) < 90 {
		t.Fatalf("len(Supported()) = %d, want at least 90", len(all))
	}
	seen := make(map[string]bool)
	for i, info := range all {
		if seen[info.Code] {
			t.Errorf("duplicate code %q", info.Code)
		}
		seen[info.Code] = true
		if i > 0 && all[i-1].Code >= info.Code {
			t.Errorf("Supported() not sorted at %d: %q >= %q", i, all[i-1].Code, info.Code)
		}
	}
}

func TestByScript(t *testing.T) {
	t.Parallel()

	got := language.ByScript("Bengali")
	if len(got) != 2 || got[0].Code != "as" || got[1].Code != "bn" {
		t.Errorf("ByScript(Bengali) = %+v, want [as bn]", got)
	}
	if got := language.ByScript("Klingon"); len(got) != 0 {
		t.Errorf("ByScript(Klingon) = %+v, want empty", got)
	}
}

func TestForScript(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"Latin":    "en",
		"Cyrillic": "ru",
		"Bengali":  "bn",
		"Han":      "zh",
		"Hangul":   "ko",
		"Ethiopic": "am",
	}
	for s, want := range tests {
		got, ok := language.ForScript(s)
		if !ok || got != want {
			t.Errorf("ForScript(%q) = %q, %v; want %q, true", s, got, ok, want)
		}
	}
	if _, ok := language.ForScript("Klingon"); ok {
		t.Error("ForScript(Klingon) ok = true, want false")
	}
}

func TestMatchesScript(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code, script string
		want         bool
	}{
		{"en", "Latin", true},
		{"en", "Cyrillic", false},
		{"ja", "Hiragana", true},
		{"ja", "Han", true},
		{"ja", "Latin", false},
		{"zh-CN", "Han", true},
		{"xx", "Latin", false},
	}
	for _, tt := range tests {
		if got := language.MatchesScript(tt.code, tt.script); got != tt.want {
			t.Errorf("MatchesScript(%q, %q) = %v, want %v", tt.code, tt.script, got, tt.want)
		}
	}
}

func TestExpectedScript(t *testing.T) {
	t.Parallel()

	if got := language.ExpectedScript("ru"); got != "Cyrillic" {
		t.Errorf("ExpectedScript(ru) = %q, want Cyrillic", got)
	}
	if got := language.ExpectedScript("xx"); got != "" {
		t.Errorf("ExpectedScript(xx) = %q, want empty", got)
	}
}

func TestScriptOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text     string
		want     string
		wantConf float64
	}{
		{"", "Latin", 0},
		{"আমাকে সাহায্য করুন", "Bengali", 1},
		{"Пожар в доме", "Cyrillic", 1},
		{"112", "Latin", 0},
	}
	for _, tt := range tests {
		got, conf := language.ScriptOf(tt.text)
		if got != tt.want || conf != tt.wantConf {
			t.Errorf("ScriptOf(%q) = %q, %v, want %q, %v", tt.text, got, conf, tt.want, tt.wantConf)
		}
	}
}
