package notifier

import (
	"context"

	"github.com/smallbiznis/fnol/internal/config"
	fnoldomain "github.com/smallbiznis/fnol/internal/fnol/domain"
	"github.com/smallbiznis/fnol/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Notifier delivers case lifecycle events to interested parties. Delivery is
// best-effort and asynchronous; failures are logged, never surfaced to the
// submission caller.
type Notifier interface {
	CaseCreated(ctx context.Context, record fnoldomain.Case)
	CaseUpdated(ctx context.Context, record fnoldomain.Case)
}

var Module = fx.Module("notifier",
	fx.Provide(New),
)

type Params struct {
	fx.In

	Lifecycle fx.Lifecycle `optional:"true"`
	Config    config.Config
	Log       *zap.Logger
	Metrics   *metrics.Metrics `optional:"true"`
}

// New returns the webhook notifier when one is configured, otherwise a
// no-op. Shutdown stops the webhook's retry loops.
func New(p Params) Notifier {
	if !p.Config.Webhook.Enabled || p.Config.Webhook.URL == "" {
		p.Log.Info("webhook notifications disabled")
		return noop{}
	}

	webhook := NewWebhook(p.Config.Webhook, p.Log, p.Metrics)
	if p.Lifecycle != nil {
		p.Lifecycle.Append(fx.Hook{
			OnStop: func(context.Context) error {
				webhook.Close()
				return nil
			},
		})
	}
	return webhook
}

type noop struct{}

func (noop) CaseCreated(context.Context, fnoldomain.Case) {}
func (noop) CaseUpdated(context.Context, fnoldomain.Case) {}
