package domain

import (
	"context"
	"errors"
	"time"
)

// Guard deduplicates submissions by idempotency token. Blank tokens opt out
// of deduplication entirely.
type Guard interface {
	// Lookup resolves a raw token to the case it previously produced.
	Lookup(ctx context.Context, rawToken string) (caseID string, found bool, err error)
	// Register stores the token-to-case mapping with an expiry. A concurrent
	// registration of the same token fails with ErrAlreadyRegistered.
	Register(ctx context.Context, rawToken, caseID string, ttl time.Duration) error
	// SyntheticToken derives a deterministic token from caller-identity
	// fields for clients that do not supply their own.
	SyntheticToken(fields TokenFields) string
	// CleanupExpired removes expired records and reports how many were swept.
	CleanupExpired(ctx context.Context) (int64, error)
}

// TokenFields are the caller-identity inputs of a synthetic token. The same
// logical submission must always derive the same token.
type TokenFields struct {
	MobileNumber string
	NationalID   string
	PlateNumber  string
	IncidentDate string
}

var ErrAlreadyRegistered = errors.New("idempotency_key_already_registered")
