package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/fnol/internal/clock"
	"github.com/smallbiznis/fnol/internal/idempotency/domain"
	"github.com/smallbiznis/fnol/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var whitespace = regexp.MustCompile(`\s+`)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
	clock clock.Clock
}

func New(p Params) domain.Guard {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("idempotency.service"),
		genID: p.GenID,
		repo:  p.Repo,
		clock: p.Clock,
	}
}

func (s *Service) Lookup(ctx context.Context, rawToken string) (string, bool, error) {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return "", false, nil
	}

	digest := hashToken(rawToken)
	record, err := s.repo.FindLiveByDigest(ctx, s.db, digest, s.clock.Now())
	if err != nil {
		return "", false, err
	}
	if record == nil {
		return "", false, nil
	}

	s.log.Info("duplicate submission detected",
		zap.String("key_digest", digest[:8]),
		zap.String("case_id", record.CaseID),
	)
	return record.CaseID, true, nil
}

func (s *Service) Register(ctx context.Context, rawToken, caseID string, ttl time.Duration) error {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return nil
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	now := s.clock.Now()
	record := domain.Record{
		ID:        s.genID.Generate(),
		KeyDigest: hashToken(rawToken),
		CaseID:    caseID,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}

	if err := s.repo.Insert(ctx, s.db, &record); err != nil {
		if !db.IsDuplicateKeyErr(err) {
			return err
		}
		// The digest slot may be held by an expired row the sweeper has not
		// removed yet. Reclaim it and retry once; a second collision means a
		// live registration won the slot in the meantime.
		reclaimed, delErr := s.repo.DeleteExpiredByDigest(ctx, s.db, record.KeyDigest, now)
		if delErr != nil {
			return delErr
		}
		if reclaimed == 0 {
			return domain.ErrAlreadyRegistered
		}
		record.ID = s.genID.Generate()
		if retryErr := s.repo.Insert(ctx, s.db, &record); retryErr != nil {
			if db.IsDuplicateKeyErr(retryErr) {
				return domain.ErrAlreadyRegistered
			}
			return retryErr
		}
	}

	s.log.Debug("idempotency key registered",
		zap.String("key_digest", record.KeyDigest[:8]),
		zap.String("case_id", caseID),
	)
	return nil
}

// SyntheticToken joins the normalized identity fields and hashes them, so
// the same logical submission always derives the same token.
func (s *Service) SyntheticToken(fields domain.TokenFields) string {
	data := strings.Join([]string{
		normalizeField(fields.MobileNumber),
		normalizeField(fields.NationalID),
		normalizeField(fields.PlateNumber),
		normalizeField(fields.IncidentDate),
	}, "|")
	return hashToken(data)
}

func (s *Service) CleanupExpired(ctx context.Context) (int64, error) {
	deleted, err := s.repo.DeleteExpired(ctx, s.db, s.clock.Now())
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		s.log.Info("cleaned up expired idempotency records", zap.Int64("deleted", deleted))
	}
	return deleted, nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func normalizeField(value string) string {
	return whitespace.ReplaceAllString(strings.ToLower(strings.TrimSpace(value)), "")
}
