package domain

import (
	"context"
	"errors"

	fnoldomain "github.com/smallbiznis/fnol/internal/fnol/domain"
)

// Starter launches the downstream workflow instance for a persisted case and
// returns an opaque instance handle.
type Starter interface {
	Start(ctx context.Context, record fnoldomain.Case) (handle string, err error)
}

var (
	// ErrStartFailed means the engine definitely did not start an instance.
	// The start may be retried for the same case.
	ErrStartFailed = errors.New("workflow_start_failed")
	// ErrOutcomeUnknown means the request may or may not have reached the
	// engine, typically a timeout. A blind retry could start two instances
	// for one case, so it must go through out-of-band reconciliation.
	ErrOutcomeUnknown = errors.New("workflow_start_outcome_unknown")
)
