package sweeper

import (
	"context"
	"time"

	"github.com/smallbiznis/fnol/internal/idempotency/domain"
	"github.com/smallbiznis/fnol/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const sweepLockKey = "fnol:idempotency:sweep"

type Params struct {
	fx.In

	Log    *zap.Logger
	Guard  domain.Guard
	Locker *ratelimit.Locker `optional:"true"`
	Config Config            `optional:"true"`
}

// Worker periodically deletes expired idempotency records. With multiple
// service instances a redis lock elects one sweeper per interval; without
// redis every instance sweeps, which is wasteful but harmless since the
// delete is idempotent.
type Worker struct {
	log    *zap.Logger
	guard  domain.Guard
	locker *ratelimit.Locker
	cfg    Config
}

func NewWorker(p Params) *Worker {
	return &Worker{
		log:    p.Log.Named("idempotency.sweeper"),
		guard:  p.Guard,
		locker: p.Locker,
		cfg:    p.Config.withDefaults(),
	}
}

func (w *Worker) RunForever(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if err := w.RunOnce(ctx); err != nil {
			w.log.Warn("idempotency sweep failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (w *Worker) RunOnce(parentCtx context.Context) error {
	ctx, cancel := context.WithTimeout(parentCtx, w.cfg.RunTimeout)
	defer cancel()

	if w.locker != nil {
		token, ok, err := w.locker.TryLock(ctx, sweepLockKey, w.cfg.LockTTL)
		if err != nil {
			w.log.Warn("sweep lock unavailable, sweeping anyway", zap.Error(err))
		} else if !ok {
			return nil
		} else {
			defer func() {
				if err := w.locker.Release(ctx, sweepLockKey, token); err != nil {
					w.log.Warn("sweep lock release failed", zap.Error(err))
				}
			}()
		}
	}

	_, err := w.guard.CleanupExpired(ctx)
	return err
}
