package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	// Increment advances the counter in place and reports how many rows were
	// touched. Zero rows means the counter does not exist yet.
	Increment(ctx context.Context, db *gorm.DB, name string) (int64, error)
	// NextValue reads the counter value after an increment in the same
	// transaction, so the allocated value is NextValue - 1.
	NextValue(ctx context.Context, db *gorm.DB, name string) (uint64, error)
	Create(ctx context.Context, db *gorm.DB, counter *Counter) error
}
