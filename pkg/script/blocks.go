package script

type runeRange struct{ lo, hi rune }

type block struct {
	name   string
	ranges []runeRange
}

// table lists scripts in priority order. Order matters: ties resolve to the
// earlier entry, and Latin must stay first so mixed ASCII text stays Latin.
var table = [...]block{
	{"Latin", []runeRange{
		{0x0000, 0x007F}, {0x0080, 0x00FF}, {0x0100, 0x017F}, {0x0180, 0x024F},
		{0x1E00, 0x1EFF}, {0x2C60, 0x2C7F}, {0xA720, 0xA7FF},
	}},
	{"Cyrillic", []runeRange{
		{0x0400, 0x04FF}, {0x0500, 0x052F}, {0x2DE0, 0x2DFF}, {0xA640, 0xA69F},
	}},
	{"Arabic", []runeRange{
		{0x0600, 0x06FF}, {0x0750, 0x077F}, {0x08A0, 0x08FF}, {0xFB50, 0xFDFF}, {0xFE70, 0xFEFF},
	}},
	{"Devanagari", []runeRange{{0x0900, 0x097F}, {0xA8E0, 0xA8FF}}},
	{"Bengali", []runeRange{{0x0980, 0x09FF}}},
	{"Gujarati", []runeRange{{0x0A80, 0x0AFF}}},
	{"Gurmukhi", []runeRange{{0x0A00, 0x0A7F}}},
	{"Tamil", []runeRange{{0x0B80, 0x0BFF}}},
	{"Telugu", []runeRange{{0x0C00, 0x0C7F}}},
	{"Kannada", []runeRange{{0x0C80, 0x0CFF}}},
	{"Malayalam", []runeRange{{0x0D00, 0x0D7F}}},
	{"Odia", []runeRange{{0x0B00, 0x0B7F}}},
	{"Sinhala", []runeRange{{0x0D80, 0x0DFF}}},
	{"Thai", []runeRange{{0x0E00, 0x0E7F}}},
	{"Lao", []runeRange{{0x0E80, 0x0EFF}}},
	{"Myanmar", []runeRange{{0x1000, 0x109F}}},
	{"Khmer", []runeRange{{0x1780, 0x17FF}}},
	{"Georgian", []runeRange{{0x10A0, 0x10FF}, {0x2D00, 0x2D2F}}},
	{"Armenian", []runeRange{{0x0530, 0x058F}}},
	{"Hebrew", []runeRange{{0x0590, 0x05FF}, {0xFB1D, 0xFB4F}}},
	{"Ethiopic", []runeRange{{0x1200, 0x137F}, {0x1380, 0x139F}, {0x2D80, 0x2DDF}}},
	{"Han", []runeRange{
		{0x4E00, 0x9FFF}, {0x3400, 0x4DBF}, {0x20000, 0x2A6DF}, {0x2A700, 0x2B73F},
		{0x2B740, 0x2B81F}, {0x2B820, 0x2CEAF},
	}},
	{"Hiragana", []runeRange{{0x3040, 0x309F}}},
	{"Katakana", []runeRange{{0x30A0, 0x30FF}, {0x31F0, 0x31FF}}},
	{"Hangul", []runeRange{
		{0xAC00, 0xD7AF}, {0x1100, 0x11FF}, {0x3130, 0x318F}, {0xA960, 0xA97F},
	}},
}
