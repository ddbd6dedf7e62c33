package workflow

import (
	"github.com/smallbiznis/fnol/internal/config"
	"github.com/smallbiznis/fnol/internal/workflow/demo"
	"github.com/smallbiznis/fnol/internal/workflow/domain"
	"github.com/smallbiznis/fnol/internal/workflow/zeebe"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("workflow",
	fx.Provide(NewStarter),
)

// NewStarter selects the process starter by configured mode. Demo mode keeps
// the submission path runnable without a Zeebe gateway.
func NewStarter(cfg config.Config, log *zap.Logger) domain.Starter {
	switch cfg.Workflow.Mode {
	case config.WorkflowModeZeebe:
		return zeebe.NewStarter(cfg.Workflow, log)
	default:
		return demo.NewStarter(log)
	}
}
