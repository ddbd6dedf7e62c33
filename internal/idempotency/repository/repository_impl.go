package repository

import (
	"context"
	"time"

	"github.com/smallbiznis/fnol/internal/idempotency/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, record *domain.Record) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO fnol_idempotency_keys (id, key_digest, case_id, expires_at, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		record.ID,
		record.KeyDigest,
		record.CaseID,
		record.ExpiresAt,
		record.CreatedAt,
	).Error
}

func (r *repo) FindLiveByDigest(ctx context.Context, db *gorm.DB, digest string, now time.Time) (*domain.Record, error) {
	var record domain.Record
	err := db.WithContext(ctx).Raw(
		`SELECT id, key_digest, case_id, expires_at, created_at
		 FROM fnol_idempotency_keys WHERE key_digest = ? AND expires_at > ?`,
		digest,
		now,
	).Scan(&record).Error
	if err != nil {
		return nil, err
	}
	if record.ID == 0 {
		return nil, nil
	}
	return &record, nil
}

func (r *repo) DeleteExpiredByDigest(ctx context.Context, db *gorm.DB, digest string, now time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`DELETE FROM fnol_idempotency_keys WHERE key_digest = ? AND expires_at <= ?`,
		digest,
		now,
	)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *repo) DeleteExpired(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`DELETE FROM fnol_idempotency_keys WHERE expires_at <= ?`,
		now,
	)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
