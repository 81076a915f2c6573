package language

// Mixed marks languages written in more than one script at once.
const Mixed = "Mixed"

// mixedScripts lists the scripts a Mixed language may be written in.
var mixedScripts = map[string][]string{
	"ja": {"Han", "Hiragana", "Katakana"},
}

// MatchesScript reports whether text in script is consistent with code.
// Unknown languages never match.
func MatchesScript(code, script string) bool {
	info, ok := Lookup(code)
	if !ok {
		return false
	}
	if info.Script != Mixed {
		return info.Script == script
	}
	for _, s := range mixedScripts[info.Code] {
		if s == script {
			return true
		}
	}
	return false
}

var catalogue = []Info{
	// Latin: Germanic
	{"en", "English", "Latin", "Germanic"},
	{"de", "German", "Latin", "Germanic"},
	{"nl", "Dutch", "Latin", "Germanic"},
	{"sv", "Swedish", "Latin", "Germanic"},
	{"da", "Danish", "Latin", "Germanic"},
	{"no", "Norwegian", "Latin", "Germanic"},
	{"is", "Icelandic", "Latin", "Germanic"},
	{"af", "Afrikaans", "Latin", "Germanic"},
	{"lb", "Luxembourgish", "Latin", "Germanic"},
	{"fo", "Faroese", "Latin", "Germanic"},

	// Latin: Romance
	{"es", "Spanish", "Latin", "Romance"},
	{"fr", "French", "Latin", "Romance"},
	{"it", "Italian", "Latin", "Romance"},
	{"pt", "Portuguese", "Latin", "Romance"},
	{"ro", "Romanian", "Latin", "Romance"},
	{"ca", "Catalan", "Latin", "Romance"},
	{"gl", "Galician", "Latin", "Romance"},
	{"co", "Corsican", "Latin", "Romance"},
	{"sc", "Sardinian", "Latin", "Romance"},
	{"rm", "Romansh", "Latin", "Romance"},
	{"fur", "Friulian", "Latin", "Romance"},
	{"lad", "Ladino", "Latin", "Romance"},
	{"vec", "Venetian", "Latin", "Romance"},
	{"nap", "Neapolitan", "Latin", "Romance"},
	{"scn", "Sicilian", "Latin", "Romance"},

	// Latin: other families
	{"fi", "Finnish", "Latin", "Finno-Ugric"},
	{"hu", "Hungarian", "Latin", "Finno-Ugric"},
	{"et", "Estonian", "Latin", "Finno-Ugric"},
	{"pl", "Polish", "Latin", "Slavic"},
	{"cs", "Czech", "Latin", "Slavic"},
	{"sk", "Slovak", "Latin", "Slavic"},
	{"hr", "Croatian", "Latin", "Slavic"},
	{"sl", "Slovenian", "Latin", "Slavic"},
	{"bs", "Bosnian", "Latin", "Slavic"},
	{"lv", "Latvian", "Latin", "Baltic"},
	{"lt", "Lithuanian", "Latin", "Baltic"},
	{"ga", "Irish", "Latin", "Celtic"},
	{"cy", "Welsh", "Latin", "Celtic"},
	{"gd", "Scottish Gaelic", "Latin", "Celtic"},
	{"br", "Breton", "Latin", "Celtic"},
	{"tr", "Turkish", "Latin", "Turkic"},
	{"az", "Azerbaijani", "Latin", "Turkic"},
	{"uz", "Uzbek", "Latin", "Turkic"},
	{"tk", "Turkmen", "Latin", "Turkic"},
	{"kk", "Kazakh", "Latin", "Turkic"},
	{"ky", "Kyrgyz", "Latin", "Turkic"},
	{"id", "Indonesian", "Latin", "Austronesian"},
	{"ms", "Malay", "Latin", "Austronesian"},
	{"tl", "Filipino", "Latin", "Austronesian"},
	{"sw", "Swahili", "Latin", "Niger-Congo"},
	{"zu", "Zulu", "Latin", "Niger-Congo"},
	{"xh", "Xhosa", "Latin", "Niger-Congo"},
	{"mt", "Maltese", "Latin", "Semitic"},
	{"eu", "Basque", "Latin", "Isolate"},
	{"vi", "Vietnamese", "Latin", "Austroasiatic"},
	{"sq", "Albanian", "Latin", "Indo-European"},

	// Cyrillic
	{"ru", "Russian", "Cyrillic", "Slavic"},
	{"uk", "Ukrainian", "Cyrillic", "Slavic"},
	{"be", "Belarusian", "Cyrillic", "Slavic"},
	{"bg", "Bulgarian", "Cyrillic", "Slavic"},
	{"sr", "Serbian", "Cyrillic", "Slavic"},
	{"mk", "Macedonian", "Cyrillic", "Slavic"},
	{"mn", "Mongolian", "Cyrillic", "Mongolic"},

	// Arabic
	{"ar", "Arabic", "Arabic", "Semitic"},
	{"fa", "Persian", "Arabic", "Indo-Iranian"},
	{"ur", "Urdu", "Arabic", "Indo-Iranian"},
	{"ps", "Pashto", "Arabic", "Indo-Iranian"},
	{"ku", "Kurdish", "Arabic", "Indo-Iranian"},
	{"sd", "Sindhi", "Arabic", "Indo-Iranian"},

	// Indic
	{"hi", "Hindi", "Devanagari", "Indo-Iranian"},
	{"ne", "Nepali", "Devanagari", "Indo-Iranian"},
	{"mr", "Marathi", "Devanagari", "Indo-Iranian"},
	{"sa", "Sanskrit", "Devanagari", "Indo-Iranian"},
	{"bn", "Bengali", "Bengali", "Indo-Iranian"},
	{"as", "Assamese", "Bengali", "Indo-Iranian"},
	{"gu", "Gujarati", "Gujarati", "Indo-Iranian"},
	{"pa", "Punjabi", "Gurmukhi", "Indo-Iranian"},
	{"or", "Odia", "Odia", "Indo-Iranian"},
	{"si", "Sinhala", "Sinhala", "Indo-Iranian"},

	// Dravidian
	{"ta", "Tamil", "Tamil", "Dravidian"},
	{"te", "Telugu", "Telugu", "Dravidian"},
	{"kn", "Kannada", "Kannada", "Dravidian"},
	{"ml", "Malayalam", "Malayalam", "Dravidian"},

	// East and Southeast Asia
	{"zh", "Chinese", "Han", "Sino-Tibetan"},
	{"ja", "Japanese", Mixed, "Japonic"},
	{"ko", "Korean", "Hangul", "Koreanic"},
	{"th", "Thai", "Thai", "Tai-Kadai"},
	{"lo", "Lao", "Lao", "Tai-Kadai"},
	{"my", "Myanmar", "Myanmar", "Sino-Tibetan"},
	{"km", "Khmer", "Khmer", "Austroasiatic"},

	// Caucasus, Hebrew, Ethiopic
	{"ka", "Georgian", "Georgian", "Kartvelian"},
	{"hy", "Armenian", "Armenian", "Indo-European"},
	{"he", "Hebrew", "Hebrew", "Semitic"},
	{"yi", "Yiddish", "Hebrew", "Germanic"},
	{"am", "Amharic", "Ethiopic", "Semitic"},
	{"ti", "Tigrinya", "Ethiopic", "Semitic"},
}
