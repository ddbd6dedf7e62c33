package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type CoverageClass string

const (
	CoverageBasic CoverageClass = "BASIC"
	CoverageFull  CoverageClass = "FULL"
)

// ParseCoverageClass maps inbound spellings onto the canonical classes.
// Market-specific product names stay accepted for backward compatibility.
func ParseCoverageClass(value string) (CoverageClass, bool) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "BASIC", "TPL", "THIRD_PARTY", "THIRD-PARTY":
		return CoverageBasic, true
	case "FULL", "COMPREHENSIVE":
		return CoverageFull, true
	default:
		return "", false
	}
}

type SeverityLevel string

const (
	SeverityLow    SeverityLevel = "LOW"
	SeverityMedium SeverityLevel = "MEDIUM"
	SeverityHigh   SeverityLevel = "HIGH"
)

func (s SeverityLevel) Description() string {
	switch s {
	case SeverityHigh:
		return "High priority - requires immediate attention (potential injury)"
	case SeverityMedium:
		return "Medium priority - requires review (vehicle not drivable or high value)"
	case SeverityLow:
		return "Low priority - can be processed via fast-track"
	default:
		return "Unknown severity"
	}
}

type Route string

const (
	RouteFastTrack Route = "FAST_TRACK"
	RouteStandard  Route = "STANDARD"
	RouteComplex   Route = "COMPLEX"
)

// ParseRoute accepts both the canonical tokens and the dashed spellings used
// by older process definitions.
func ParseRoute(value string) (Route, bool) {
	switch strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(value), "-", "_")) {
	case "FAST_TRACK":
		return RouteFastTrack, true
	case "STANDARD":
		return RouteStandard, true
	case "COMPLEX":
		return RouteComplex, true
	default:
		return "", false
	}
}

func (r Route) Description() string {
	switch r {
	case RouteComplex:
		return "Complex case - assigned to senior claims handler"
	case RouteStandard:
		return "Standard review - assigned to claims team"
	case RouteFastTrack:
		return "Fast-track processing - automated or minimal review"
	default:
		return "Unknown route"
	}
}

const (
	CaseStatusSubmitted  = "SUBMITTED"
	CaseStatusInProgress = "IN_PROGRESS"
)

// Case is one incident report moving through the pipeline. CaseID is assigned
// exactly once by the orchestrator and never reused. Everything after
// WorkflowHandle is assigned belongs to the workflow engine.
type Case struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	CaseID        string       `gorm:"uniqueIndex;size:64;not null" json:"case_id"`
	CorrelationID string       `gorm:"size:128" json:"correlation_id,omitempty"`

	Jurisdiction string `gorm:"size:2;not null;index" json:"jurisdiction"`
	PolicyNumber string `gorm:"size:64" json:"policy_number,omitempty"`
	InsuredName  string `gorm:"size:255" json:"insured_name,omitempty"`
	NationalID   string `gorm:"size:32" json:"national_id,omitempty"`
	MobileNumber string `gorm:"size:32" json:"mobile_number,omitempty"`
	LanguageCode string `gorm:"size:2" json:"language_code,omitempty"`

	PlateNumber       string        `gorm:"size:32" json:"plate_number,omitempty"`
	PlateJurisdiction string        `gorm:"size:2" json:"plate_jurisdiction,omitempty"`
	CoverageClass     CoverageClass `gorm:"size:16;not null" json:"coverage_class"`
	FleetFlag         bool          `gorm:"not null" json:"fleet_flag"`
	VehicleType       string        `gorm:"size:32" json:"vehicle_type,omitempty"`

	LossAt                 time.Time `gorm:"not null" json:"loss_at"`
	LossLocation           string    `json:"loss_location,omitempty"`
	LossLocationNormalized string    `json:"loss_location_normalized,omitempty"`
	Description            string    `json:"description,omitempty"`
	DescriptionNormalized  string    `json:"description_normalized,omitempty"`
	PoliceReportNumber     string    `gorm:"size:64" json:"police_report_number,omitempty"`
	Drivable               bool      `gorm:"not null" json:"drivable"`
	HasInjury              bool      `gorm:"not null" json:"has_injury"`

	FlagNotDrivable     bool          `gorm:"not null" json:"flag_not_drivable"`
	FlagPotentialInjury bool          `gorm:"not null" json:"flag_potential_injury"`
	FlagHighValue       bool          `gorm:"not null" json:"flag_high_value"`
	SeverityLevel       SeverityLevel `gorm:"size:8;not null" json:"severity_level"`
	Route               Route         `gorm:"size:16;not null" json:"route"`

	Attachments datatypes.JSON `gorm:"type:jsonb" json:"attachments,omitempty"`

	Status         string    `gorm:"size:32;not null" json:"status"`
	WorkflowHandle string    `gorm:"size:64" json:"workflow_handle,omitempty"`
	SubmittedAt    time.Time `gorm:"not null" json:"submitted_at"`
	CreatedAt      time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Case) TableName() string {
	return "fnol_cases"
}

// Attachment is a caller-supplied document reference stored alongside the
// case as an opaque JSON list.
type Attachment struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	URL         string `json:"url"`
}
