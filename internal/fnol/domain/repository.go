package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, record *Case) error
	FindByCaseID(ctx context.Context, db *gorm.DB, caseID string) (*Case, error)
	ExistsByCaseID(ctx context.Context, db *gorm.DB, caseID string) (bool, error)
	UpdateWorkflowHandle(ctx context.Context, db *gorm.DB, caseID, handle string) error
	// DeleteByCaseID removes a half-built case after losing a concurrent
	// idempotency registration. It must never run once a workflow handle is
	// assigned.
	DeleteByCaseID(ctx context.Context, db *gorm.DB, caseID string) error
}
