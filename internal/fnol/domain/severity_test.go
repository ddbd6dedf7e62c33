package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify_DecisionTable(t *testing.T) {
	cases := []struct {
		name      string
		hasInjury bool
		drivable  bool
		coverage  CoverageClass
		fleet     bool
		level     SeverityLevel
		route     Route
	}{
		{"injury overrides everything", true, true, CoverageFull, true, SeverityHigh, RouteComplex},
		{"injury with basic coverage", true, false, CoverageBasic, false, SeverityHigh, RouteComplex},
		{"not drivable beats fleet comprehensive", false, false, CoverageFull, true, SeverityMedium, RouteStandard},
		{"not drivable with basic coverage", false, false, CoverageBasic, false, SeverityMedium, RouteStandard},
		{"fleet comprehensive fast track", false, true, CoverageFull, true, SeverityLow, RouteFastTrack},
		{"basic coverage fast track", false, true, CoverageBasic, false, SeverityLow, RouteFastTrack},
		{"basic fleet fast track", false, true, CoverageBasic, true, SeverityLow, RouteFastTrack},
		{"non-fleet comprehensive gets review", false, true, CoverageFull, false, SeverityLow, RouteStandard},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			level, route := Classify(tc.hasInjury, tc.drivable, tc.coverage, tc.fleet)
			assert.Equal(t, tc.level, level)
			assert.Equal(t, tc.route, route)
		})
	}
}

func TestClassify_Deterministic(t *testing.T) {
	level1, route1 := Classify(false, false, CoverageFull, false)
	level2, route2 := Classify(false, false, CoverageFull, false)
	assert.Equal(t, level1, level2)
	assert.Equal(t, route1, route2)
}

// The flag view and the decision table must derive the same severity level
// for every reachable input combination.
func TestClassify_AgreesWithFlagView(t *testing.T) {
	bools := []bool{false, true}
	coverages := []CoverageClass{CoverageBasic, CoverageFull}

	for _, injury := range bools {
		for _, drivable := range bools {
			for _, coverage := range coverages {
				for _, fleet := range bools {
					level, _ := Classify(injury, drivable, coverage, fleet)
					flags := ComputeFlags(injury, drivable, coverage, fleet)
					assert.Equal(t, level, flags.Level(),
						"injury=%v drivable=%v coverage=%s fleet=%v", injury, drivable, coverage, fleet)
				}
			}
		}
	}
}

func TestSeverityFlags_Summary(t *testing.T) {
	assert.Equal(t, "NONE", SeverityFlags{}.Summary())
	assert.Equal(t, "INJURY", SeverityFlags{PotentialInjury: true}.Summary())
	assert.Equal(t, "INJURY, NOT_DRIVABLE, HIGH_VALUE", SeverityFlags{
		PotentialInjury: true,
		NotDrivable:     true,
		HighValue:       true,
	}.Summary())
}

func TestParseCoverageClass(t *testing.T) {
	for _, alias := range []string{"BASIC", "basic", "TPL", "tpl"} {
		got, ok := ParseCoverageClass(alias)
		assert.True(t, ok, alias)
		assert.Equal(t, CoverageBasic, got)
	}
	for _, alias := range []string{"FULL", "full", "COMPREHENSIVE", " comprehensive "} {
		got, ok := ParseCoverageClass(alias)
		assert.True(t, ok, alias)
		assert.Equal(t, CoverageFull, got)
	}
	_, ok := ParseCoverageClass("GOLD")
	assert.False(t, ok)
}

func TestParseRoute(t *testing.T) {
	for _, alias := range []string{"FAST_TRACK", "fast-track", "fast_track"} {
		got, ok := ParseRoute(alias)
		assert.True(t, ok, alias)
		assert.Equal(t, RouteFastTrack, got)
	}
	_, ok := ParseRoute("express")
	assert.False(t, ok)
}
