package domain

import "strings"

// SeverityFlags is the flag view of severity. The decision table in Classify
// is the routing authority; the flags are persisted for reporting and must
// derive the same level for every reachable input combination.
type SeverityFlags struct {
	NotDrivable     bool
	PotentialInjury bool
	HighValue       bool
}

// ComputeFlags derives the severity flags from caller-supplied case inputs.
// HighValue marks non-fleet comprehensive vehicles that can no longer drive.
func ComputeFlags(hasInjury, drivable bool, coverage CoverageClass, fleetFlag bool) SeverityFlags {
	return SeverityFlags{
		NotDrivable:     !drivable,
		PotentialInjury: hasInjury,
		HighValue:       coverage == CoverageFull && !fleetFlag && !drivable,
	}
}

// Level derives the severity level from the flags alone.
func (f SeverityFlags) Level() SeverityLevel {
	switch {
	case f.PotentialInjury:
		return SeverityHigh
	case f.NotDrivable || f.HighValue:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// RequiresAttention reports whether any flag is raised.
func (f SeverityFlags) RequiresAttention() bool {
	return f.NotDrivable || f.PotentialInjury || f.HighValue
}

// Summary lists the raised flags for logging.
func (f SeverityFlags) Summary() string {
	parts := make([]string, 0, 3)
	if f.PotentialInjury {
		parts = append(parts, "INJURY")
	}
	if f.NotDrivable {
		parts = append(parts, "NOT_DRIVABLE")
	}
	if f.HighValue {
		parts = append(parts, "HIGH_VALUE")
	}
	if len(parts) == 0 {
		return "NONE"
	}
	return strings.Join(parts, ", ")
}

// Classify maps case inputs to a severity level and routing bucket. The rules
// are evaluated in strict priority order and the first match wins: injury
// overrides everything, non-drivability overrides coverage and fleet status.
func Classify(hasInjury, drivable bool, coverage CoverageClass, fleetFlag bool) (SeverityLevel, Route) {
	switch {
	case hasInjury:
		return SeverityHigh, RouteComplex
	case !drivable:
		return SeverityMedium, RouteStandard
	case fleetFlag && coverage == CoverageFull:
		return SeverityLow, RouteFastTrack
	case coverage == CoverageBasic:
		return SeverityLow, RouteFastTrack
	case coverage == CoverageFull:
		return SeverityLow, RouteStandard
	default:
		return SeverityLow, RouteStandard
	}
}
