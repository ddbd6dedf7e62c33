package textnorm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeArabic_RemovesTashkeel(t *testing.T) {
	n := New()

	normalized := n.NormalizeArabic("مُحَمَّد")
	assert.NotContains(t, normalized, "َ")
	assert.NotContains(t, normalized, "ُ")
	assert.NotContains(t, normalized, "ِ")
	assert.Equal(t, "محمد", normalized)
}

func TestNormalizeArabic_RemovesTatweel(t *testing.T) {
	n := New()

	normalized := n.NormalizeArabic("مـــحـــمـــد")
	assert.NotContains(t, normalized, "ـ")
	assert.Equal(t, "محمد", normalized)
}

func TestNormalizeArabic_FoldsHamza(t *testing.T) {
	n := New()

	normalized := n.NormalizeArabic("أحمد")
	assert.Equal(t, "احمد", normalized)

	normalized = n.NormalizeArabic("إبراهيم")
	assert.True(t, strings.HasPrefix(normalized, "ا"))
}

func TestNormalizeArabic_ConvertsEasternNumerals(t *testing.T) {
	n := New()

	assert.Equal(t, "1234567890", n.NormalizeArabic("١٢٣٤٥٦٧٨٩٠"))
}

func TestNormalizeArabic_PreservesNonArabicText(t *testing.T) {
	n := New()

	assert.Equal(t, "Hello World 123", n.NormalizeArabic("Hello World 123"))
}

func TestNormalizeArabic_MixedText(t *testing.T) {
	n := New()

	normalized := n.NormalizeArabic("حادث على شارع Sheikh Zayed Road ١٢٣")
	assert.Contains(t, normalized, "Sheikh Zayed Road")
	assert.Contains(t, normalized, "123")
}

func TestNormalize_LanguageHint(t *testing.T) {
	n := New()

	// Urdu shares the Arabic script handling.
	assert.Equal(t, "123", n.Normalize("١٢٣", "ur"))
	// Arabic content is detected even without a hint.
	assert.Equal(t, "محمد", n.Normalize("مُحَمَّد", ""))
	// Blank input passes through untouched.
	assert.Equal(t, "", n.Normalize("", "en"))
	assert.Equal(t, "   ", n.Normalize("   ", "en"))
}

func TestNormalizeBasic_CollapsesWhitespace(t *testing.T) {
	n := New()

	assert.Equal(t, "Sheikh Zayed Road", n.NormalizeBasic("  Sheikh   Zayed \t Road  "))
}

func TestContainsArabic(t *testing.T) {
	assert.True(t, ContainsArabic("مرحبا"))
	assert.False(t, ContainsArabic("Hello World"))
	assert.True(t, ContainsArabic("Hello مرحبا"))
}

func TestIsPrimarilyArabic(t *testing.T) {
	assert.True(t, IsPrimarilyArabic("مرحبا بالعالم"))
	assert.False(t, IsPrimarilyArabic("Hello World"))
	assert.False(t, IsPrimarilyArabic("12345"))
}
