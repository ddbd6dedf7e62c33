package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Canonical textual form: PREFIX-JURISDICTION-YEAR-SEQUENCE with the sequence
// rendered as a fixed-width zero-padded decimal.
var caseIDPattern = regexp.MustCompile(`^([A-Z]+)-([A-Z]{2})-(\d{4})-(\d+)$`)

const (
	DefaultIDPrefix  = "FNOL"
	DefaultIDPadding = 6

	minCaseYear = 2020
	maxCaseYear = 2100
)

var ErrInvalidCaseID = errors.New("invalid_case_id")

// CaseID is the parsed form of a case identifier.
type CaseID struct {
	Prefix       string
	Jurisdiction string
	Year         int
	Sequence     uint64
}

// IDFormat renders case identifiers. Padding is the minimum sequence width;
// longer sequences render unpadded rather than truncated.
type IDFormat struct {
	Prefix  string
	Padding int
}

// NewIDFormat applies defaults for zero values and clamps the padding to a
// sane range.
func NewIDFormat(prefix string, padding int) IDFormat {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" {
		prefix = DefaultIDPrefix
	}
	if padding <= 0 {
		padding = DefaultIDPadding
	}
	if padding < 4 {
		padding = 4
	}
	if padding > 10 {
		padding = 10
	}
	return IDFormat{Prefix: prefix, Padding: padding}
}

// Format renders the canonical identifier for (jurisdiction, year, sequence).
func (f IDFormat) Format(jurisdiction string, year int, sequence uint64) string {
	return fmt.Sprintf("%s-%s-%d-%0*d", f.Prefix, strings.ToUpper(strings.TrimSpace(jurisdiction)), year, f.Padding, sequence)
}

// CounterName returns the sequence counter this format allocates from. Each
// (prefix, jurisdiction, year) tuple owns its own counter so yearly sequences
// restart at 1.
func (f IDFormat) CounterName(jurisdiction string, year int) string {
	return fmt.Sprintf("%s-%s-%d", f.Prefix, strings.ToUpper(strings.TrimSpace(jurisdiction)), year)
}

// ParseCaseID is the inverse of Format for all valid identifiers. It rejects
// malformed shapes, unsupported jurisdictions, out-of-range years and zero
// sequences.
func ParseCaseID(value string) (CaseID, error) {
	value = strings.ToUpper(strings.TrimSpace(value))
	if value == "" {
		return CaseID{}, fmt.Errorf("%w: empty value", ErrInvalidCaseID)
	}

	match := caseIDPattern.FindStringSubmatch(value)
	if match == nil {
		return CaseID{}, fmt.Errorf("%w: expected PREFIX-CC-YYYY-NNNNNN, got %q", ErrInvalidCaseID, value)
	}

	year, err := strconv.Atoi(match[3])
	if err != nil || year < minCaseYear || year > maxCaseYear {
		return CaseID{}, fmt.Errorf("%w: year out of range in %q", ErrInvalidCaseID, value)
	}

	sequence, err := strconv.ParseUint(match[4], 10, 64)
	if err != nil || sequence < 1 {
		return CaseID{}, fmt.Errorf("%w: sequence out of range in %q", ErrInvalidCaseID, value)
	}

	jurisdiction := match[2]
	if !IsSupportedJurisdiction(jurisdiction) {
		return CaseID{}, fmt.Errorf("%w: unsupported jurisdiction %q", ErrInvalidCaseID, jurisdiction)
	}

	return CaseID{
		Prefix:       match[1],
		Jurisdiction: jurisdiction,
		Year:         year,
		Sequence:     sequence,
	}, nil
}

// IsValidCaseID reports whether the value parses as a case identifier.
func IsValidCaseID(value string) bool {
	_, err := ParseCaseID(value)
	return err == nil
}
