package repository

import (
	"context"

	"github.com/smallbiznis/fnol/internal/sequence/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Increment(ctx context.Context, db *gorm.DB, name string) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE fnol_sequences SET next_value = next_value + 1, updated_at = CURRENT_TIMESTAMP
		 WHERE name = ?`,
		name,
	)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *repo) NextValue(ctx context.Context, db *gorm.DB, name string) (uint64, error) {
	var counter domain.Counter
	err := db.WithContext(ctx).Raw(
		`SELECT name, next_value, updated_at FROM fnol_sequences WHERE name = ?`,
		name,
	).Scan(&counter).Error
	if err != nil {
		return 0, err
	}
	return counter.NextValue, nil
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, counter *domain.Counter) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO fnol_sequences (name, next_value, updated_at) VALUES (?, ?, ?)`,
		counter.Name,
		counter.NextValue,
		counter.UpdatedAt,
	).Error
}
