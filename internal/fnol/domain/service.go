package domain

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type SubmitRequest struct {
	IdempotencyToken string
	CorrelationID    string

	Jurisdiction string
	PolicyNumber string
	InsuredName  string
	NationalID   string
	MobileNumber string
	LanguageCode string

	PlateNumber       string
	PlateJurisdiction string
	CoverageClass     string
	FleetFlag         bool
	VehicleType       string

	LossAt             time.Time
	LossLocation       string
	Description        string
	PoliceReportNumber string
	Drivable           bool
	HasInjury          bool

	Attachments []Attachment
}

type SubmitResponse struct {
	CaseID         string        `json:"case_id"`
	SeverityLevel  SeverityLevel `json:"severity_level"`
	Route          Route         `json:"route"`
	WorkflowHandle string        `json:"workflow_handle,omitempty"`
	SubmittedAt    time.Time     `json:"submitted_at"`
	Duplicate      bool          `json:"duplicate"`
}

type StatusResponse struct {
	CaseID         string        `json:"case_id"`
	Status         string        `json:"status"`
	SeverityLevel  SeverityLevel `json:"severity_level"`
	Route          Route         `json:"route"`
	WorkflowHandle string        `json:"workflow_handle,omitempty"`
	SubmittedAt    time.Time     `json:"submitted_at"`
}

type Service interface {
	Submit(context.Context, SubmitRequest) (SubmitResponse, error)
	GetStatus(ctx context.Context, caseID string) (StatusResponse, error)
	GetByCaseID(ctx context.Context, caseID string) (Case, error)
}

var (
	ErrCaseNotFound             = errors.New("case_not_found")
	ErrSequenceAllocationFailed = errors.New("sequence_allocation_failed")
	ErrPersistenceFailed        = errors.New("persistence_failed")
	ErrWorkflowStartFailed      = errors.New("workflow_start_failed")
	// ErrCorruptedIdempotencyState marks an idempotency record that points at
	// a case the store no longer has. This is an invariant violation and is
	// never repaired by creating a second case.
	ErrCorruptedIdempotencyState = errors.New("corrupted_idempotency_state")
)

// WorkflowStartError reports a failed or ambiguous process start after the
// case was already persisted. The case remains valid and retrievable; only
// the workflow start should be retried.
type WorkflowStartError struct {
	CaseID         string
	OutcomeUnknown bool
	Err            error
}

func (e *WorkflowStartError) Error() string {
	if e.OutcomeUnknown {
		return fmt.Sprintf("workflow start outcome unknown for case %s: %v", e.CaseID, e.Err)
	}
	return fmt.Sprintf("workflow start failed for case %s: %v", e.CaseID, e.Err)
}

func (e *WorkflowStartError) Unwrap() error {
	return e.Err
}

func (e *WorkflowStartError) Is(target error) bool {
	return target == ErrWorkflowStartFailed
}
