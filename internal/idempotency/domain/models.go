package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Record maps a hashed idempotency token to the case it produced. Raw tokens
// are never persisted; KeyDigest holds a SHA-256 hex digest, which also keeps
// the column a fixed width. At most one live record may exist per digest,
// enforced by the unique index.
type Record struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	KeyDigest string       `gorm:"uniqueIndex;size:64;not null" json:"key_digest"`
	CaseID    string       `gorm:"size:64;not null" json:"case_id"`
	ExpiresAt time.Time    `gorm:"not null;index" json:"expires_at"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Record) TableName() string {
	return "fnol_idempotency_keys"
}
