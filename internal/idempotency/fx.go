package idempotency

import (
	"context"

	"github.com/smallbiznis/fnol/internal/idempotency/repository"
	"github.com/smallbiznis/fnol/internal/idempotency/service"
	"github.com/smallbiznis/fnol/internal/idempotency/sweeper"
	"go.uber.org/fx"
)

var Module = fx.Module("idempotency.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	fx.Provide(sweeper.DefaultConfig),
	fx.Provide(sweeper.NewWorker),
	fx.Invoke(runSweeper),
)

func runSweeper(lc fx.Lifecycle, worker *sweeper.Worker) {
	runCtx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go worker.RunForever(runCtx)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}
