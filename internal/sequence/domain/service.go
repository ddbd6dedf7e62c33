package domain

import (
	"context"
	"errors"
)

// Allocator hands out strictly monotonic values per counter name. Allocated
// values are never reused, even when the caller later fails.
type Allocator interface {
	Allocate(ctx context.Context, name string) (uint64, error)
}

var (
	ErrInvalidName      = errors.New("invalid_sequence_name")
	ErrStoreUnavailable = errors.New("sequence_store_unavailable")
)
