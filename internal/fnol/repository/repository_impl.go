package repository

import (
	"context"

	"github.com/smallbiznis/fnol/internal/fnol/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, record *domain.Case) error {
	return db.WithContext(ctx).Create(record).Error
}

func (r *repo) FindByCaseID(ctx context.Context, db *gorm.DB, caseID string) (*domain.Case, error) {
	var record domain.Case
	err := db.WithContext(ctx).
		Where("case_id = ?", caseID).
		First(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (r *repo) ExistsByCaseID(ctx context.Context, db *gorm.DB, caseID string) (bool, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Case{}).
		Where("case_id = ?", caseID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) UpdateWorkflowHandle(ctx context.Context, db *gorm.DB, caseID, handle string) error {
	return db.WithContext(ctx).Exec(
		`UPDATE fnol_cases SET workflow_handle = ?, updated_at = CURRENT_TIMESTAMP WHERE case_id = ?`,
		handle,
		caseID,
	).Error
}

func (r *repo) DeleteByCaseID(ctx context.Context, db *gorm.DB, caseID string) error {
	return db.WithContext(ctx).Exec(
		`DELETE FROM fnol_cases WHERE case_id = ? AND workflow_handle = ''`,
		caseID,
	).Error
}
