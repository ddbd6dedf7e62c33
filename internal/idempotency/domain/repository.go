package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, record *Record) error
	// FindLiveByDigest returns the record for a digest if it has not expired
	// at the given instant, or nil. Expired rows behave as absent even before
	// the sweep removes them.
	FindLiveByDigest(ctx context.Context, db *gorm.DB, digest string, now time.Time) (*Record, error)
	// DeleteExpiredByDigest reclaims an expired row that still occupies the
	// digest's unique slot, so a new registration can take its place.
	DeleteExpiredByDigest(ctx context.Context, db *gorm.DB, digest string, now time.Time) (int64, error)
	DeleteExpired(ctx context.Context, db *gorm.DB, now time.Time) (int64, error)
}
