package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/fnol/internal/clock"
	"github.com/smallbiznis/fnol/internal/config"
	"github.com/smallbiznis/fnol/internal/fnol/domain"
	fnolrepository "github.com/smallbiznis/fnol/internal/fnol/repository"
	idempotencydomain "github.com/smallbiznis/fnol/internal/idempotency/domain"
	idempotencyrepository "github.com/smallbiznis/fnol/internal/idempotency/repository"
	idempotencyservice "github.com/smallbiznis/fnol/internal/idempotency/service"
	sequencedomain "github.com/smallbiznis/fnol/internal/sequence/domain"
	sequencerepository "github.com/smallbiznis/fnol/internal/sequence/repository"
	sequenceservice "github.com/smallbiznis/fnol/internal/sequence/service"
	"github.com/smallbiznis/fnol/internal/textnorm"
	"github.com/smallbiznis/fnol/internal/validation"
	workflowdomain "github.com/smallbiznis/fnol/internal/workflow/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type stubStarter struct {
	mu     sync.Mutex
	err    error
	calls  int
	nextID int
}

func (s *stubStarter) Start(_ context.Context, _ domain.Case) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	s.nextID++
	return fmt.Sprintf("WF-%d", s.nextID), nil
}

type stubNotifier struct {
	mu      sync.Mutex
	created []string
}

func (n *stubNotifier) CaseCreated(_ context.Context, record domain.Case) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.created = append(n.created, record.CaseID)
}

func (n *stubNotifier) CaseUpdated(context.Context, domain.Case) {}

type fixture struct {
	svc      domain.Service
	db       *gorm.DB
	clk      *clock.FakeClock
	starter  *stubStarter
	notifier *stubNotifier
	guard    idempotencydomain.Guard
	repo     domain.Repository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithConfig(t, testConfig())
}

func newFixtureWithConfig(t *testing.T, cfg config.Config) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Case{}, &sequencedomain.Counter{}, &idempotencydomain.Record{}))

	// SQLite allows a single writer; serialize access so concurrent
	// submissions queue instead of failing with a busy error.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	log := zap.NewNop()
	clk := clock.NewFakeClock(time.Date(2026, time.March, 15, 9, 30, 0, 0, time.UTC))

	guard := idempotencyservice.New(idempotencyservice.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Repo:  idempotencyrepository.Provide(),
		Clock: clk,
	})

	starter := &stubStarter{}
	notified := &stubNotifier{}
	f := &fixture{
		db:       db,
		clk:      clk,
		starter:  starter,
		notifier: notified,
		guard:    guard,
		repo:     fnolrepository.Provide(),
	}
	f.svc = New(Params{
		DB:     db,
		Log:    log,
		GenID:  node,
		Config: cfg,
		Repo:   f.repo,
		Allocator: sequenceservice.New(sequenceservice.Params{
			DB:    db,
			Log:   log,
			Repo:  sequencerepository.Provide(),
			Clock: clk,
		}),
		Guard:      guard,
		Validator:  newTestValidator(log),
		Normalizer: textnorm.New(),
		Starter:    starter,
		Notifier:   notified,
		Clock:      clk,
	})
	return f
}

func testConfig() config.Config {
	return config.Config{
		IDPrefix:          "FNOL",
		IDSequencePadding: 6,
		IdempotencyTTL:    24 * time.Hour,
		Workflow: config.WorkflowConfig{
			Mode:         config.WorkflowModeDemo,
			StartTimeout: 5 * time.Second,
		},
	}
}

func newTestValidator(log *zap.Logger) *validation.Service {
	return validation.New(validation.Params{
		Log:   log,
		Rules: config.NewStaticCountryRulesHolder(config.DefaultCountryRules()),
	})
}

func validRequest() domain.SubmitRequest {
	return domain.SubmitRequest{
		IdempotencyToken:   "T1",
		Jurisdiction:       "AE",
		PolicyNumber:       "POL-2026-001",
		InsuredName:        "Ahmed Al Mansouri",
		NationalID:         "784-1985-1234567-1",
		MobileNumber:       "+971 50 123 4567",
		LanguageCode:       "ar",
		PlateNumber:        "a12345",
		CoverageClass:      "FULL",
		FleetFlag:          true,
		VehicleType:        "SEDAN",
		LossAt:             time.Date(2026, time.March, 14, 22, 15, 0, 0, time.UTC),
		LossLocation:       "شارع الشيخ زايد",
		Description:        "Rear-end collision at low speed",
		PoliceReportNumber: "DXB-2026-4521",
		Drivable:           true,
		HasInjury:          false,
	}
}

func TestSubmitEndToEnd(t *testing.T) {
	f := newFixture(t)

	resp, err := f.svc.Submit(context.Background(), validRequest())
	require.NoError(t, err)

	assert.Equal(t, "FNOL-AE-2026-000001", resp.CaseID)
	assert.Equal(t, domain.SeverityLow, resp.SeverityLevel)
	assert.Equal(t, domain.RouteFastTrack, resp.Route)
	assert.Equal(t, "WF-1", resp.WorkflowHandle)
	assert.False(t, resp.Duplicate)
	assert.Equal(t, f.clk.Now(), resp.SubmittedAt)

	record, err := f.svc.GetByCaseID(context.Background(), resp.CaseID)
	require.NoError(t, err)
	assert.Equal(t, "+971501234567", record.MobileNumber)
	assert.Equal(t, "A12345", record.PlateNumber)
	assert.Equal(t, "AE", record.PlateJurisdiction)
	assert.Equal(t, domain.CaseStatusSubmitted, record.Status)
	assert.Equal(t, "WF-1", record.WorkflowHandle)
	assert.Equal(t, "شارع الشيخ زايد", record.LossLocationNormalized)

	status, err := f.svc.GetStatus(context.Background(), resp.CaseID)
	require.NoError(t, err)
	assert.Equal(t, domain.CaseStatusSubmitted, status.Status)
	assert.Equal(t, "WF-1", status.WorkflowHandle)

	f.notifier.mu.Lock()
	defer f.notifier.mu.Unlock()
	assert.Equal(t, []string{"FNOL-AE-2026-000001"}, f.notifier.created)
}

func TestSubmitReplaySameToken(t *testing.T) {
	f := newFixture(t)

	first, err := f.svc.Submit(context.Background(), validRequest())
	require.NoError(t, err)
	require.False(t, first.Duplicate)

	second, err := f.svc.Submit(context.Background(), validRequest())
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Equal(t, first.CaseID, second.CaseID)
	assert.Equal(t, first.WorkflowHandle, second.WorkflowHandle)
	assert.Equal(t, 1, f.starter.calls)

	// A distinct token still advances the counter from where it left off.
	req := validRequest()
	req.IdempotencyToken = "T2"
	third, err := f.svc.Submit(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "FNOL-AE-2026-000002", third.CaseID)
}

func TestSubmitWorkflowStartFailureKeepsCase(t *testing.T) {
	f := newFixture(t)
	f.starter.err = fmt.Errorf("%w: gateway returned 503", workflowdomain.ErrStartFailed)

	_, err := f.svc.Submit(context.Background(), validRequest())
	require.Error(t, err)

	var startErr *domain.WorkflowStartError
	require.ErrorAs(t, err, &startErr)
	assert.Equal(t, "FNOL-AE-2026-000001", startErr.CaseID)
	assert.False(t, startErr.OutcomeUnknown)
	assert.ErrorIs(t, err, domain.ErrWorkflowStartFailed)

	// The case survives without a handle and the token stays bound to it.
	record, err := f.svc.GetByCaseID(context.Background(), "FNOL-AE-2026-000001")
	require.NoError(t, err)
	assert.Empty(t, record.WorkflowHandle)

	// A retry with the same token replays the existing case instead of
	// consuming a second sequence value.
	f.starter.err = nil
	resp, err := f.svc.Submit(context.Background(), validRequest())
	require.NoError(t, err)
	assert.True(t, resp.Duplicate)
	assert.Equal(t, "FNOL-AE-2026-000001", resp.CaseID)

	req := validRequest()
	req.IdempotencyToken = "fresh"
	next, err := f.svc.Submit(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "FNOL-AE-2026-000002", next.CaseID)
}

func TestSubmitAmbiguousStartOutcome(t *testing.T) {
	f := newFixture(t)
	f.starter.err = fmt.Errorf("%w: request timed out", workflowdomain.ErrOutcomeUnknown)

	_, err := f.svc.Submit(context.Background(), validRequest())
	require.Error(t, err)

	var startErr *domain.WorkflowStartError
	require.ErrorAs(t, err, &startErr)
	assert.True(t, startErr.OutcomeUnknown)
}

func TestSubmitExpiredTokenCreatesNewCase(t *testing.T) {
	f := newFixture(t)

	first, err := f.svc.Submit(context.Background(), validRequest())
	require.NoError(t, err)

	f.clk.Advance(25 * time.Hour)

	second, err := f.svc.Submit(context.Background(), validRequest())
	require.NoError(t, err)
	assert.False(t, second.Duplicate)
	assert.NotEqual(t, first.CaseID, second.CaseID)
}

func TestSubmitCorruptedIdempotencyState(t *testing.T) {
	f := newFixture(t)

	resp, err := f.svc.Submit(context.Background(), validRequest())
	require.NoError(t, err)

	// Remove the case row while its idempotency record is still live.
	require.NoError(t, f.db.Exec("DELETE FROM fnol_cases WHERE case_id = ?", resp.CaseID).Error)

	_, err = f.svc.Submit(context.Background(), validRequest())
	assert.ErrorIs(t, err, domain.ErrCorruptedIdempotencyState)
}

func TestSubmitValidationFailureConsumesNoSequence(t *testing.T) {
	f := newFixture(t)

	req := validRequest()
	req.MobileNumber = "+44 20 7946 0958"
	_, err := f.svc.Submit(context.Background(), req)

	var verrs validation.Errors
	require.ErrorAs(t, err, &verrs)

	// Rejected submissions leave the counter untouched.
	resp, err := f.svc.Submit(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, "FNOL-AE-2026-000001", resp.CaseID)
}

func TestSubmitInvalidCoverageClass(t *testing.T) {
	f := newFixture(t)

	req := validRequest()
	req.CoverageClass = "PLATINUM"
	_, err := f.svc.Submit(context.Background(), req)

	var verrs validation.Errors
	require.ErrorAs(t, err, &verrs)
	require.Len(t, verrs, 1)
	assert.Equal(t, "coverageClass", verrs[0].Field)
}

func TestSubmitBlankTokenDerivesSyntheticToken(t *testing.T) {
	f := newFixture(t)

	req := validRequest()
	req.IdempotencyToken = ""
	first, err := f.svc.Submit(context.Background(), req)
	require.NoError(t, err)
	require.False(t, first.Duplicate)

	// The same caller identity on the same day dedupes even without a token.
	second, err := f.svc.Submit(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Equal(t, first.CaseID, second.CaseID)
}

func TestGetByCaseIDErrors(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.GetByCaseID(context.Background(), "not-a-case-id")
	assert.ErrorIs(t, err, domain.ErrInvalidCaseID)

	_, err = f.svc.GetByCaseID(context.Background(), "FNOL-AE-2026-000042")
	assert.ErrorIs(t, err, domain.ErrCaseNotFound)
}

func TestGetByCaseIDConfiguredPadding(t *testing.T) {
	cfg := testConfig()
	cfg.IDSequencePadding = 8
	f := newFixtureWithConfig(t, cfg)

	resp, err := f.svc.Submit(context.Background(), validRequest())
	require.NoError(t, err)
	require.Equal(t, "FNOL-AE-2026-00000001", resp.CaseID)

	// The identifier handed out by Submit reads back as stored.
	record, err := f.svc.GetByCaseID(context.Background(), resp.CaseID)
	require.NoError(t, err)
	assert.Equal(t, resp.CaseID, record.CaseID)

	status, err := f.svc.GetStatus(context.Background(), resp.CaseID)
	require.NoError(t, err)
	assert.Equal(t, resp.CaseID, status.CaseID)

	// Lowercase input normalizes to the stored form.
	record, err = f.svc.GetByCaseID(context.Background(), "fnol-ae-2026-00000001")
	require.NoError(t, err)
	assert.Equal(t, resp.CaseID, record.CaseID)
}

// raceGuard simulates losing the registration race: the first lookup misses,
// registration conflicts, and subsequent lookups resolve to the winner.
type raceGuard struct {
	inner    idempotencydomain.Guard
	winnerID string

	mu       sync.Mutex
	lookups  int
	conflict bool
}

func (g *raceGuard) Lookup(ctx context.Context, rawToken string) (string, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lookups++
	if g.lookups == 1 {
		return "", false, nil
	}
	return g.winnerID, true, nil
}

func (g *raceGuard) Register(ctx context.Context, rawToken, caseID string, ttl time.Duration) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.conflict = true
	return idempotencydomain.ErrAlreadyRegistered
}

func (g *raceGuard) SyntheticToken(fields idempotencydomain.TokenFields) string {
	return g.inner.SyntheticToken(fields)
}

func (g *raceGuard) CleanupExpired(ctx context.Context) (int64, error) {
	return 0, nil
}

func TestSubmitRegisterConflictResolvesToWinner(t *testing.T) {
	f := newFixture(t)

	// The winner's submission completed normally.
	winner, err := f.svc.Submit(context.Background(), validRequest())
	require.NoError(t, err)

	guard := &raceGuard{inner: f.guard, winnerID: winner.CaseID}
	loserStarter := &stubStarter{}
	racing := New(Params{
		DB:     f.db,
		Log:    zap.NewNop(),
		GenID:  mustNode(t),
		Config: testConfig(),
		Repo:   f.repo,
		Allocator: sequenceservice.New(sequenceservice.Params{
			DB:    f.db,
			Log:   zap.NewNop(),
			Repo:  sequencerepository.Provide(),
			Clock: f.clk,
		}),
		Guard:      guard,
		Validator:  newTestValidator(zap.NewNop()),
		Normalizer: textnorm.New(),
		Starter:    loserStarter,
		Notifier:   &stubNotifier{},
		Clock:      f.clk,
	})

	req := validRequest()
	req.IdempotencyToken = "T1"
	resp, err := racing.Submit(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, resp.Duplicate)
	assert.Equal(t, winner.CaseID, resp.CaseID)
	assert.True(t, guard.conflict)

	// Exactly one case exists for this token; the loser's draft was discarded.
	var count int64
	require.NoError(t, f.db.Model(&domain.Case{}).Where("jurisdiction = ?", "AE").Count(&count).Error)
	assert.Equal(t, int64(1), count)

	// The loser never started a workflow for its discarded draft.
	assert.Equal(t, 0, loserStarter.calls)
}

func mustNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(2)
	require.NoError(t, err)
	return node
}

func TestConcurrentDistinctSubmissions(t *testing.T) {
	f := newFixture(t)

	const n = 8
	var wg sync.WaitGroup
	results := make([]string, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := validRequest()
			req.IdempotencyToken = fmt.Sprintf("token-%d", i)
			resp, err := f.svc.Submit(context.Background(), req)
			results[i] = resp.CaseID
			errs[i] = err
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.False(t, seen[results[i]], "case id %s assigned twice", results[i])
		seen[results[i]] = true
	}
}
