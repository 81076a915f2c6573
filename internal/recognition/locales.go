package recognition

import "github.com/MrWong99/lingualert/pkg/language"

// DefaultLocales is the rotation order used when none is configured. Bengali
// comes first, followed by the languages most often heard in emergency calls
// in South Asia and then the rest of the world.
var DefaultLocales = []string{
	"bn-BD", "bn-IN",
	"hi-IN",
	"en-US", "en-GB", "en-AU", "en-CA",
	"es-ES", "es-US", "es-MX", "es-AR",
	"zh-CN", "zh-TW", "zh-HK",
	"ar-SA", "ar-EG", "ar-AE", "ar-MA",
	"fr-FR", "fr-CA", "fr-BE", "fr-CH",
	"ru-RU",
	"pt-BR", "pt-PT",
	"de-DE", "de-AT", "de-CH",
	"ja-JP", "ko-KR", "it-IT", "tr-TR",
	"ur-PK", "ur-IN",
	"fa-IR", "th-TH", "vi-VN",
	"ta-IN", "ta-LK",
	"te-IN", "gu-IN", "kn-IN", "ml-IN", "mr-IN", "pa-IN", "or-IN", "as-IN",
	"ne-NP", "si-LK", "my-MM", "km-KH", "lo-LA",
	"ka-GE", "hy-AM", "he-IL", "am-ET",
	"sw-KE", "sw-TZ", "zu-ZA", "xh-ZA", "af-ZA",
	"nl-NL", "nl-BE", "sv-SE", "da-DK", "no-NO", "fi-FI",
	"pl-PL", "cs-CZ", "sk-SK", "hu-HU", "ro-RO", "hr-HR", "sr-RS", "sl-SI",
	"bg-BG", "mk-MK", "et-EE", "lv-LV", "lt-LT", "mt-MT",
	"cy-GB", "ga-IE", "eu-ES", "ca-ES", "gl-ES", "is-IS",
	"sq-AL", "bs-BA", "az-AZ", "uz-UZ", "kk-KZ", "ky-KG", "tg-TJ", "mn-MN",
	"id-ID", "ms-MY", "tl-PH",
	"yo-NG", "ig-NG", "ha-NG", "rw-RW",
}

// preferredLocale maps a base language to the locale used when a reliable
// detection asks the controller to switch.
var preferredLocale = map[string]string{
	"bn": "bn-BD", "hi": "hi-IN", "en": "en-US", "es": "es-ES", "zh": "zh-CN",
	"ar": "ar-SA", "fr": "fr-FR", "ru": "ru-RU", "pt": "pt-BR", "de": "de-DE",
	"ja": "ja-JP", "ko": "ko-KR", "it": "it-IT", "tr": "tr-TR", "pl": "pl-PL",
	"nl": "nl-NL", "sv": "sv-SE", "da": "da-DK", "no": "no-NO", "fi": "fi-FI",
	"ur": "ur-PK", "fa": "fa-IR", "th": "th-TH", "vi": "vi-VN", "ta": "ta-IN",
	"te": "te-IN", "gu": "gu-IN", "kn": "kn-IN", "ml": "ml-IN", "mr": "mr-IN",
	"pa": "pa-IN", "or": "or-IN", "as": "as-IN", "ne": "ne-NP", "si": "si-LK",
	"my": "my-MM", "km": "km-KH", "lo": "lo-LA", "ka": "ka-GE", "hy": "hy-AM",
	"he": "he-IL", "am": "am-ET", "sw": "sw-KE", "zu": "zu-ZA", "xh": "xh-ZA",
	"af": "af-ZA", "uk": "uk-UA", "be": "be-BY", "bg": "bg-BG", "sr": "sr-RS",
	"mk": "mk-MK", "mn": "mn-MN", "cs": "cs-CZ", "sk": "sk-SK", "hu": "hu-HU",
	"ro": "ro-RO", "hr": "hr-HR", "sl": "sl-SI", "et": "et-EE", "lv": "lv-LV",
	"lt": "lt-LT", "mt": "mt-MT", "ga": "ga-IE", "cy": "cy-GB", "eu": "eu-ES",
	"ca": "ca-ES", "gl": "gl-ES", "is": "is-IS", "sq": "sq-AL", "bs": "bs-BA",
	"az": "az-AZ", "uz": "uz-UZ", "kk": "kk-KZ", "ky": "ky-KG", "tg": "tg-TJ",
	"id": "id-ID", "ms": "ms-MY", "tl": "tl-PH",
}

// LocaleFor returns the recognition locale for a language code, or "" when
// there is none.
func LocaleFor(lang string) string {
	return preferredLocale[language.Normalize(lang)]
}
