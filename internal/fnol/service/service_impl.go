package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/fnol/internal/clock"
	"github.com/smallbiznis/fnol/internal/config"
	"github.com/smallbiznis/fnol/internal/fnol/domain"
	idempotencydomain "github.com/smallbiznis/fnol/internal/idempotency/domain"
	"github.com/smallbiznis/fnol/internal/notifier"
	"github.com/smallbiznis/fnol/internal/observability/metrics"
	sequencedomain "github.com/smallbiznis/fnol/internal/sequence/domain"
	"github.com/smallbiznis/fnol/internal/textnorm"
	"github.com/smallbiznis/fnol/internal/validation"
	workflowdomain "github.com/smallbiznis/fnol/internal/workflow/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Config     config.Config
	Repo       domain.Repository
	Allocator  sequencedomain.Allocator
	Guard      idempotencydomain.Guard
	Validator  *validation.Service
	Normalizer *textnorm.Normalizer
	Starter    workflowdomain.Starter
	Notifier   notifier.Notifier
	Clock      clock.Clock
	Metrics    *metrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	cfg        config.Config
	idFormat   domain.IDFormat
	repo       domain.Repository
	allocator  sequencedomain.Allocator
	guard      idempotencydomain.Guard
	validator  *validation.Service
	normalizer *textnorm.Normalizer
	starter    workflowdomain.Starter
	notifier   notifier.Notifier
	clock      clock.Clock
	metrics    *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("fnol.service"),
		genID:      p.GenID,
		cfg:        p.Config,
		idFormat:   domain.NewIDFormat(p.Config.IDPrefix, p.Config.IDSequencePadding),
		repo:       p.Repo,
		allocator:  p.Allocator,
		guard:      p.Guard,
		validator:  p.Validator,
		normalizer: p.Normalizer,
		starter:    p.Starter,
		notifier:   p.Notifier,
		clock:      p.Clock,
		metrics:    p.Metrics,
	}
}

// Submit processes one incident report exactly once. The steps run in a
// fixed order: dedupe, validate, classify, allocate an identifier, persist,
// register the idempotency mapping, start the workflow, notify. Failures
// after persistence never delete the case; the caller is told precisely
// which step failed and whether a retry is safe.
func (s *Service) Submit(ctx context.Context, req domain.SubmitRequest) (domain.SubmitResponse, error) {
	token := strings.TrimSpace(req.IdempotencyToken)
	if token == "" {
		// Derive a deterministic token from caller identity so accidental
		// double-submits without a client token still dedupe.
		token = s.guard.SyntheticToken(idempotencydomain.TokenFields{
			MobileNumber: req.MobileNumber,
			NationalID:   req.NationalID,
			PlateNumber:  req.PlateNumber,
			IncidentDate: req.LossAt.UTC().Format("2006-01-02"),
		})
	}

	if resp, found, err := s.resolveDuplicate(ctx, token); err != nil {
		return domain.SubmitResponse{}, err
	} else if found {
		s.recordDuplicate(ctx, req.Jurisdiction)
		return resp, nil
	}

	coverage, ok := domain.ParseCoverageClass(req.CoverageClass)
	if !ok {
		return domain.SubmitResponse{}, validation.Errors{{
			Field:   "coverageClass",
			Code:    "INVALID_VALUE",
			Message: "Coverage class must be BASIC or FULL",
		}}
	}
	if err := s.validator.ValidateAll(req.Jurisdiction, req.MobileNumber, req.NationalID, req.PlateNumber, req.PlateJurisdiction); err != nil {
		return domain.SubmitResponse{}, err
	}

	flags := domain.ComputeFlags(req.HasInjury, req.Drivable, coverage, req.FleetFlag)
	level, route := domain.Classify(req.HasInjury, req.Drivable, coverage, req.FleetFlag)

	now := s.clock.Now()
	jurisdiction := strings.ToUpper(strings.TrimSpace(req.Jurisdiction))
	counterName := s.idFormat.CounterName(jurisdiction, now.Year())

	sequence, err := s.allocator.Allocate(ctx, counterName)
	if err != nil {
		return domain.SubmitResponse{}, fmt.Errorf("%w: %v", domain.ErrSequenceAllocationFailed, err)
	}
	caseID := s.idFormat.Format(jurisdiction, now.Year(), sequence)

	record, err := s.buildCase(req, caseID, jurisdiction, coverage, flags, level, route, now)
	if err != nil {
		return domain.SubmitResponse{}, fmt.Errorf("%w: %v", domain.ErrPersistenceFailed, err)
	}

	if err := s.repo.Insert(ctx, s.db, &record); err != nil {
		return domain.SubmitResponse{}, fmt.Errorf("%w: %v", domain.ErrPersistenceFailed, err)
	}

	if err := s.guard.Register(ctx, token, caseID, s.cfg.IdempotencyTTL); err != nil {
		if errors.Is(err, idempotencydomain.ErrAlreadyRegistered) {
			return s.resolveRegisterConflict(ctx, token, caseID, req.Jurisdiction)
		}
		s.discardCase(ctx, caseID)
		return domain.SubmitResponse{}, fmt.Errorf("%w: register idempotency key: %v", domain.ErrPersistenceFailed, err)
	}

	handle, startErr := s.startWorkflow(ctx, record)
	if startErr != nil {
		// The case stays persisted without a handle. Deleting it would
		// invalidate the registered token and the allocated sequence.
		return domain.SubmitResponse{}, startErr
	}
	record.WorkflowHandle = handle
	if err := s.repo.UpdateWorkflowHandle(ctx, s.db, caseID, handle); err != nil {
		s.log.Error("workflow handle update failed",
			zap.String("case_id", caseID),
			zap.String("workflow_handle", handle),
			zap.Error(err),
		)
	}

	s.notifier.CaseCreated(ctx, record)
	s.recordSubmission(ctx, jurisdiction, route, level)
	s.log.Info("case submitted",
		zap.String("case_id", caseID),
		zap.String("jurisdiction", jurisdiction),
		zap.String("severity", string(level)),
		zap.String("route", string(route)),
		zap.String("flags", flags.Summary()),
		zap.String("workflow_handle", handle),
	)

	return domain.SubmitResponse{
		CaseID:         caseID,
		SeverityLevel:  level,
		Route:          route,
		WorkflowHandle: handle,
		SubmittedAt:    record.SubmittedAt,
		Duplicate:      false,
	}, nil
}

func (s *Service) GetStatus(ctx context.Context, caseID string) (domain.StatusResponse, error) {
	record, err := s.GetByCaseID(ctx, caseID)
	if err != nil {
		return domain.StatusResponse{}, err
	}
	return domain.StatusResponse{
		CaseID:         record.CaseID,
		Status:         record.Status,
		SeverityLevel:  record.SeverityLevel,
		Route:          record.Route,
		WorkflowHandle: record.WorkflowHandle,
		SubmittedAt:    record.SubmittedAt,
	}, nil
}

func (s *Service) GetByCaseID(ctx context.Context, caseID string) (domain.Case, error) {
	// Stored identifiers keep the sequence width they were minted with, so
	// the lookup uses the caller's exact string instead of a re-rendered one.
	caseID = strings.ToUpper(strings.TrimSpace(caseID))
	if _, err := domain.ParseCaseID(caseID); err != nil {
		return domain.Case{}, err
	}

	record, err := s.repo.FindByCaseID(ctx, s.db, caseID)
	if err != nil {
		return domain.Case{}, fmt.Errorf("%w: %v", domain.ErrPersistenceFailed, err)
	}
	if record == nil {
		return domain.Case{}, domain.ErrCaseNotFound
	}
	return *record, nil
}

// resolveDuplicate replays a previous submission when the token is already
// registered. A registered token whose case is missing is an invariant
// violation, never silently repaired by resubmitting.
func (s *Service) resolveDuplicate(ctx context.Context, token string) (domain.SubmitResponse, bool, error) {
	existingID, found, err := s.guard.Lookup(ctx, token)
	if err != nil {
		return domain.SubmitResponse{}, false, fmt.Errorf("%w: idempotency lookup: %v", domain.ErrPersistenceFailed, err)
	}
	if !found {
		return domain.SubmitResponse{}, false, nil
	}

	record, err := s.repo.FindByCaseID(ctx, s.db, existingID)
	if err != nil {
		return domain.SubmitResponse{}, false, fmt.Errorf("%w: %v", domain.ErrPersistenceFailed, err)
	}
	if record == nil {
		s.log.Error("idempotency record points at missing case",
			zap.String("case_id", existingID),
		)
		return domain.SubmitResponse{}, false, fmt.Errorf("%w: case %s", domain.ErrCorruptedIdempotencyState, existingID)
	}

	return domain.SubmitResponse{
		CaseID:         record.CaseID,
		SeverityLevel:  record.SeverityLevel,
		Route:          record.Route,
		WorkflowHandle: record.WorkflowHandle,
		SubmittedAt:    record.SubmittedAt,
		Duplicate:      true,
	}, true, nil
}

// resolveRegisterConflict handles losing the registration race against a
// concurrent identical submission: discard our half-built case and return
// the winner's.
func (s *Service) resolveRegisterConflict(ctx context.Context, token, ownCaseID, jurisdiction string) (domain.SubmitResponse, error) {
	s.log.Info("lost idempotency registration race, resolving to winner",
		zap.String("own_case_id", ownCaseID),
	)
	s.discardCase(ctx, ownCaseID)

	resp, found, err := s.resolveDuplicate(ctx, token)
	if err != nil {
		return domain.SubmitResponse{}, err
	}
	if !found {
		// The winner's record vanished between the conflict and our re-read.
		return domain.SubmitResponse{}, fmt.Errorf("%w: token registered but unresolvable after conflict", domain.ErrCorruptedIdempotencyState)
	}
	s.recordDuplicate(ctx, jurisdiction)
	return resp, nil
}

func (s *Service) discardCase(ctx context.Context, caseID string) {
	if err := s.repo.DeleteByCaseID(ctx, s.db, caseID); err != nil {
		s.log.Error("failed to discard half-built case",
			zap.String("case_id", caseID),
			zap.Error(err),
		)
	}
}

func (s *Service) startWorkflow(ctx context.Context, record domain.Case) (string, error) {
	startCtx := ctx
	if s.cfg.Workflow.StartTimeout > 0 {
		var cancel context.CancelFunc
		startCtx, cancel = context.WithTimeout(ctx, s.cfg.Workflow.StartTimeout)
		defer cancel()
	}

	handle, err := s.starter.Start(startCtx, record)
	if err != nil {
		outcomeUnknown := errors.Is(err, workflowdomain.ErrOutcomeUnknown)
		s.log.Error("workflow start failed",
			zap.String("case_id", record.CaseID),
			zap.Bool("outcome_unknown", outcomeUnknown),
			zap.Error(err),
		)
		if s.metrics != nil {
			s.metrics.RecordWorkflowStart(ctx, s.cfg.Workflow.Mode, "failed")
		}
		return "", &domain.WorkflowStartError{
			CaseID:         record.CaseID,
			OutcomeUnknown: outcomeUnknown,
			Err:            err,
		}
	}

	if s.metrics != nil {
		s.metrics.RecordWorkflowStart(ctx, s.cfg.Workflow.Mode, "started")
	}
	return handle, nil
}

func (s *Service) buildCase(
	req domain.SubmitRequest,
	caseID, jurisdiction string,
	coverage domain.CoverageClass,
	flags domain.SeverityFlags,
	level domain.SeverityLevel,
	route domain.Route,
	now time.Time,
) (domain.Case, error) {
	attachments, err := json.Marshal(req.Attachments)
	if err != nil {
		return domain.Case{}, fmt.Errorf("marshal attachments: %w", err)
	}

	plateJurisdiction := strings.ToUpper(strings.TrimSpace(req.PlateJurisdiction))
	if plateJurisdiction == "" {
		plateJurisdiction = jurisdiction
	}

	return domain.Case{
		ID:                     s.genID.Generate(),
		CaseID:                 caseID,
		CorrelationID:          strings.TrimSpace(req.CorrelationID),
		Jurisdiction:           jurisdiction,
		PolicyNumber:           strings.TrimSpace(req.PolicyNumber),
		InsuredName:            strings.TrimSpace(req.InsuredName),
		NationalID:             strings.TrimSpace(req.NationalID),
		MobileNumber:           validation.NormalizeMobileNumber(req.MobileNumber),
		LanguageCode:           strings.TrimSpace(req.LanguageCode),
		PlateNumber:            strings.ToUpper(strings.TrimSpace(req.PlateNumber)),
		PlateJurisdiction:      plateJurisdiction,
		CoverageClass:          coverage,
		FleetFlag:              req.FleetFlag,
		VehicleType:            strings.TrimSpace(req.VehicleType),
		LossAt:                 req.LossAt.UTC(),
		LossLocation:           req.LossLocation,
		LossLocationNormalized: s.normalizer.Normalize(req.LossLocation, req.LanguageCode),
		Description:            req.Description,
		DescriptionNormalized:  s.normalizer.Normalize(req.Description, req.LanguageCode),
		PoliceReportNumber:     strings.TrimSpace(req.PoliceReportNumber),
		Drivable:               req.Drivable,
		HasInjury:              req.HasInjury,
		FlagNotDrivable:        flags.NotDrivable,
		FlagPotentialInjury:    flags.PotentialInjury,
		FlagHighValue:          flags.HighValue,
		SeverityLevel:          level,
		Route:                  route,
		Attachments:            attachments,
		Status:                 domain.CaseStatusSubmitted,
		SubmittedAt:            now,
		CreatedAt:              now,
		UpdatedAt:              now,
	}, nil
}

func (s *Service) recordSubmission(ctx context.Context, jurisdiction string, route domain.Route, level domain.SeverityLevel) {
	if s.metrics != nil {
		s.metrics.RecordSubmission(ctx, jurisdiction, string(route), string(level))
	}
}

func (s *Service) recordDuplicate(ctx context.Context, jurisdiction string) {
	if s.metrics != nil {
		s.metrics.RecordDuplicate(ctx, strings.ToUpper(strings.TrimSpace(jurisdiction)))
	}
}
