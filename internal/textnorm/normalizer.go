package textnorm

import (
	"regexp"
	"strings"
	"unicode"

	"go.uber.org/fx"
	"golang.org/x/text/unicode/norm"
)

var (
	// Arabic diacritics (tashkeel) range: U+064B to U+065F.
	tashkeel = regexp.MustCompile(`[\x{064B}-\x{065F}]`)
	// Arabic tatweel (kashida): U+0640.
	tatweel    = regexp.MustCompile(`\x{0640}`)
	whitespace = regexp.MustCompile(`\s+`)
)

// Eastern Arabic to Western Arabic numerals.
var easternToWestern = map[rune]rune{
	'٠': '0',
	'١': '1',
	'٢': '2',
	'٣': '3',
	'٤': '4',
	'٥': '5',
	'٦': '6',
	'٧': '7',
	'٨': '8',
	'٩': '9',
}

// Hamza variants folded to their base forms.
var hamzaFold = map[rune]rune{
	'أ': 'ا',
	'إ': 'ا',
	'آ': 'ا',
	'ٱ': 'ا',
	'ؤ': 'و',
	'ئ': 'ي',
}

// Normalizer cleans multilingual free-text fields before persistence. It is
// a pure transform with no failure path; the worst case returns the input
// unchanged.
type Normalizer struct{}

func New() *Normalizer {
	return &Normalizer{}
}

var Module = fx.Module("textnorm",
	fx.Provide(New),
)

// Normalize applies language-aware cleanup. The language hint forces Arabic
// handling for Arabic-script languages; otherwise the script is detected
// from the text itself.
func (n *Normalizer) Normalize(text, languageHint string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}

	hint := strings.ToLower(strings.TrimSpace(languageHint))
	if hint == "ar" || hint == "ur" || ContainsArabic(text) {
		return n.NormalizeArabic(text)
	}
	return n.NormalizeBasic(text)
}

// NormalizeArabic applies NFC normalization, strips tashkeel and tatweel,
// folds hamza variants, converts Eastern Arabic numerals and collapses
// whitespace.
func (n *Normalizer) NormalizeArabic(text string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}

	result := norm.NFC.String(text)
	result = tashkeel.ReplaceAllString(result, "")
	result = tatweel.ReplaceAllString(result, "")
	result = foldRunes(result, hamzaFold)
	result = foldRunes(result, easternToWestern)
	return collapseWhitespace(result)
}

// NormalizeBasic applies NFC normalization, numeral conversion for mixed
// text and whitespace collapsing.
func (n *Normalizer) NormalizeBasic(text string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}

	result := norm.NFC.String(text)
	result = foldRunes(result, easternToWestern)
	return collapseWhitespace(result)
}

// ContainsArabic reports whether the text has any Arabic-script runes.
func ContainsArabic(text string) bool {
	for _, r := range text {
		if unicode.Is(unicode.Arabic, r) {
			return true
		}
	}
	return false
}

// IsPrimarilyArabic reports whether more than half of the letters are
// Arabic script.
func IsPrimarilyArabic(text string) bool {
	var arabic, letters int
	for _, r := range text {
		if unicode.IsLetter(r) {
			letters++
			if unicode.Is(unicode.Arabic, r) {
				arabic++
			}
		}
	}
	return letters > 0 && float64(arabic)/float64(letters) > 0.5
}

func foldRunes(text string, table map[rune]rune) string {
	return strings.Map(func(r rune) rune {
		if mapped, ok := table[r]; ok {
			return mapped
		}
		return r
	}, text)
}

func collapseWhitespace(text string) string {
	return whitespace.ReplaceAllString(strings.TrimSpace(text), " ")
}
