package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/smallbiznis/fnol/internal/clock"
	"github.com/smallbiznis/fnol/internal/sequence/domain"
	"github.com/smallbiznis/fnol/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var namePattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

// seedAttempts bounds retries when two callers race to create the same
// counter row for the first time.
const seedAttempts = 3

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Repo  domain.Repository
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	repo  domain.Repository
	clock clock.Clock
}

func New(p Params) domain.Allocator {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("sequence.service"),
		repo:  p.Repo,
		clock: p.Clock,
	}
}

// Allocate reserves and returns the next value for the named counter. The
// counter row is created lazily on first use, so the first allocation for any
// name returns 1. The increment and the read run inside one transaction,
// which serializes concurrent allocators on the counter row.
func (s *Service) Allocate(ctx context.Context, name string) (uint64, error) {
	name = strings.TrimSpace(name)
	if !namePattern.MatchString(name) {
		return 0, domain.ErrInvalidName
	}

	var lastErr error
	for attempt := 0; attempt < seedAttempts; attempt++ {
		value, seeded, err := s.allocateOnce(ctx, name)
		if err == nil {
			return value, nil
		}
		if seeded && db.IsDuplicateKeyErr(err) {
			// Another allocator created the row between our UPDATE and
			// INSERT. Retry; the UPDATE path will hit next time.
			lastErr = err
			continue
		}
		return 0, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return 0, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, lastErr)
}

func (s *Service) allocateOnce(ctx context.Context, name string) (uint64, bool, error) {
	var (
		allocated uint64
		seeded    bool
	)
	err := s.db.Transaction(func(tx *gorm.DB) error {
		rows, err := s.repo.Increment(ctx, tx, name)
		if err != nil {
			return err
		}
		if rows == 0 {
			seeded = true
			counter := domain.Counter{
				Name:      name,
				NextValue: 2,
				UpdatedAt: s.clock.Now(),
			}
			if err := s.repo.Create(ctx, tx, &counter); err != nil {
				return err
			}
			allocated = 1
			return nil
		}

		next, err := s.repo.NextValue(ctx, tx, name)
		if err != nil {
			return err
		}
		allocated = next - 1
		return nil
	})
	if err != nil {
		return 0, seeded, err
	}
	return allocated, false, nil
}
