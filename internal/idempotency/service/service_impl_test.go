package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/fnol/internal/clock"
	"github.com/smallbiznis/fnol/internal/idempotency/domain"
	"github.com/smallbiznis/fnol/internal/idempotency/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestGuard(t *testing.T, clk clock.Clock) domain.Guard {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&domain.Record{})
	require.NoError(t, err)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
		Clock: clk,
	})
}

func TestGuard_BlankTokenSkipsDedup(t *testing.T) {
	guard := newTestGuard(t, clock.NewSystemClock())
	ctx := context.Background()

	_, found, err := guard.Lookup(ctx, "")
	assert.NoError(t, err)
	assert.False(t, found)

	_, found, err = guard.Lookup(ctx, "   ")
	assert.NoError(t, err)
	assert.False(t, found)

	// Register is a no-op for blank tokens, so a later lookup still misses.
	err = guard.Register(ctx, "  ", "FNOL-AE-2026-000001", time.Hour)
	assert.NoError(t, err)
}

func TestGuard_RegisterThenLookup(t *testing.T) {
	guard := newTestGuard(t, clock.NewSystemClock())
	ctx := context.Background()

	caseID, found, err := guard.Lookup(ctx, "token-1")
	assert.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, caseID)

	err = guard.Register(ctx, "token-1", "FNOL-AE-2026-000001", 24*time.Hour)
	assert.NoError(t, err)

	caseID, found, err = guard.Lookup(ctx, "token-1")
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "FNOL-AE-2026-000001", caseID)

	// Leading and trailing whitespace does not change the token identity.
	caseID, found, err = guard.Lookup(ctx, "  token-1  ")
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "FNOL-AE-2026-000001", caseID)
}

func TestGuard_RegisterConflict(t *testing.T) {
	guard := newTestGuard(t, clock.NewSystemClock())
	ctx := context.Background()

	err := guard.Register(ctx, "token-race", "FNOL-AE-2026-000001", time.Hour)
	require.NoError(t, err)

	err = guard.Register(ctx, "token-race", "FNOL-AE-2026-000002", time.Hour)
	assert.ErrorIs(t, err, domain.ErrAlreadyRegistered)

	// The winner's mapping is untouched.
	caseID, found, err := guard.Lookup(ctx, "token-race")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "FNOL-AE-2026-000001", caseID)
}

func TestGuard_ExpiredBehavesNotFound(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC))
	guard := newTestGuard(t, clk)
	ctx := context.Background()

	err := guard.Register(ctx, "token-ttl", "FNOL-AE-2026-000001", 24*time.Hour)
	require.NoError(t, err)

	_, found, err := guard.Lookup(ctx, "token-ttl")
	require.NoError(t, err)
	assert.True(t, found)

	// Past the expiry the row still exists but reads behave as a miss.
	clk.Advance(25 * time.Hour)
	_, found, err = guard.Lookup(ctx, "token-ttl")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestGuard_RegisterReclaimsExpiredSlot(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC))
	guard := newTestGuard(t, clk)
	ctx := context.Background()

	require.NoError(t, guard.Register(ctx, "token-ttl", "FNOL-AE-2026-000001", 24*time.Hour))

	// The sweeper has not run yet, but the expired row must not block a new
	// registration under the same token.
	clk.Advance(25 * time.Hour)
	err := guard.Register(ctx, "token-ttl", "FNOL-AE-2026-000002", 24*time.Hour)
	require.NoError(t, err)

	caseID, found, err := guard.Lookup(ctx, "token-ttl")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "FNOL-AE-2026-000002", caseID)
}

func TestGuard_CleanupExpired(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC))
	guard := newTestGuard(t, clk)
	ctx := context.Background()

	require.NoError(t, guard.Register(ctx, "old", "FNOL-AE-2026-000001", time.Hour))
	require.NoError(t, guard.Register(ctx, "fresh", "FNOL-AE-2026-000002", 48*time.Hour))

	clk.Advance(2 * time.Hour)
	deleted, err := guard.CleanupExpired(ctx)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, found, err := guard.Lookup(ctx, "fresh")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestGuard_SyntheticTokenDeterministic(t *testing.T) {
	guard := newTestGuard(t, clock.NewSystemClock())

	token1 := guard.SyntheticToken(domain.TokenFields{
		MobileNumber: "+971 55 816 0396",
		NationalID:   "784-1234-1234567-1",
		PlateNumber:  "A 12345",
		IncidentDate: "2026-08-28",
	})
	token2 := guard.SyntheticToken(domain.TokenFields{
		MobileNumber: "+971558160396",
		NationalID:   "784-1234-1234567-1 ",
		PlateNumber:  "a12345",
		IncidentDate: " 2026-08-28",
	})
	assert.Equal(t, token1, token2)
	assert.Len(t, token1, 64)

	token3 := guard.SyntheticToken(domain.TokenFields{
		MobileNumber: "+971558160397",
		NationalID:   "784-1234-1234567-1",
		PlateNumber:  "A 12345",
		IncidentDate: "2026-08-28",
	})
	assert.NotEqual(t, token1, token3)
}
