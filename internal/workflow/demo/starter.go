package demo

import (
	"context"
	"fmt"
	"sync/atomic"

	fnoldomain "github.com/smallbiznis/fnol/internal/fnol/domain"
	"go.uber.org/zap"
)

// Starter fakes the workflow engine for local runs and demos. Handles are
// process-local and not durable.
type Starter struct {
	log     *zap.Logger
	counter atomic.Uint64
}

func NewStarter(log *zap.Logger) *Starter {
	return &Starter{log: log.Named("workflow.demo")}
}

func (s *Starter) Start(ctx context.Context, record fnoldomain.Case) (string, error) {
	handle := fmt.Sprintf("DEMO-%d", s.counter.Add(1))
	s.log.Info("demo process started",
		zap.String("case_id", record.CaseID),
		zap.String("process_instance_key", handle),
		zap.String("severity", string(record.SeverityLevel)),
		zap.String("route", string(record.Route)),
	)
	return handle, nil
}
