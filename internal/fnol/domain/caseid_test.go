package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDFormat_Format(t *testing.T) {
	format := NewIDFormat("FNOL", 6)
	assert.Equal(t, "FNOL-AE-2026-000001", format.Format("AE", 2026, 1))
	assert.Equal(t, "FNOL-SA-2026-001234", format.Format("sa", 2026, 1234))

	wide := NewIDFormat("CLM", 8)
	assert.Equal(t, "CLM-QA-2026-00000042", wide.Format("QA", 2026, 42))

	// Sequences wider than the padding render unpadded.
	assert.Equal(t, "FNOL-AE-2026-12345678", format.Format("AE", 2026, 12345678))
}

func TestNewIDFormat_Defaults(t *testing.T) {
	format := NewIDFormat("", 0)
	assert.Equal(t, DefaultIDPrefix, format.Prefix)
	assert.Equal(t, DefaultIDPadding, format.Padding)

	assert.Equal(t, 4, NewIDFormat("FNOL", 2).Padding)
	assert.Equal(t, 10, NewIDFormat("FNOL", 20).Padding)
}

func TestParseCaseID_RoundTrip(t *testing.T) {
	formats := []IDFormat{
		NewIDFormat("FNOL", 6),
		NewIDFormat("CLM", 4),
		NewIDFormat("FNOL", 10),
	}
	jurisdictions := []string{"AE", "SA", "QA", "BH", "KW", "OM"}
	years := []int{2020, 2026, 2100}
	sequences := []uint64{1, 42, 999999, 123456789}

	for _, format := range formats {
		for _, jurisdiction := range jurisdictions {
			for _, year := range years {
				for _, sequence := range sequences {
					value := format.Format(jurisdiction, year, sequence)
					parsed, err := ParseCaseID(value)
					require.NoError(t, err, value)
					assert.Equal(t, format.Prefix, parsed.Prefix)
					assert.Equal(t, jurisdiction, parsed.Jurisdiction)
					assert.Equal(t, year, parsed.Year)
					assert.Equal(t, sequence, parsed.Sequence)
				}
			}
		}
	}
}

func TestParseCaseID_Rejects(t *testing.T) {
	for _, value := range []string{
		"",
		"   ",
		"FNOL-AE-2026",
		"FNOL-AE-2026-",
		"FNOL-AE-26-000001",
		"FNOL-AEX-2026-000001",
		"FNOL_AE_2026_000001",
		"FNOL-ZZ-2026-000001",
		"FNOL-AE-2019-000001",
		"FNOL-AE-2101-000001",
		"FNOL-AE-2026-000000",
		"-AE-2026-000001",
	} {
		_, err := ParseCaseID(value)
		assert.ErrorIs(t, err, ErrInvalidCaseID, "value %q", value)
	}
}

func TestParseCaseID_CaseInsensitive(t *testing.T) {
	parsed, err := ParseCaseID(" fnol-ae-2026-000007 ")
	require.NoError(t, err)
	assert.Equal(t, "FNOL", parsed.Prefix)
	assert.Equal(t, "AE", parsed.Jurisdiction)
	assert.Equal(t, uint64(7), parsed.Sequence)
}

func TestIsValidCaseID(t *testing.T) {
	assert.True(t, IsValidCaseID("FNOL-AE-2026-000001"))
	assert.False(t, IsValidCaseID("FNOL-XX-2026-000001"))
}

func TestCountryFromCode(t *testing.T) {
	country, ok := CountryFromCode("ae")
	require.True(t, ok)
	assert.Equal(t, "United Arab Emirates", country.Name)
	assert.Equal(t, "+971", country.PhonePrefix)

	_, ok = CountryFromCode("US")
	assert.False(t, ok)
}

func TestCountryFromPhonePrefix(t *testing.T) {
	country, ok := CountryFromPhonePrefix("+966")
	require.True(t, ok)
	assert.Equal(t, "SA", country.Code)

	_, ok = CountryFromPhonePrefix("+1")
	assert.False(t, ok)
}
