package sequence

import (
	"github.com/smallbiznis/fnol/internal/sequence/repository"
	"github.com/smallbiznis/fnol/internal/sequence/service"
	"go.uber.org/fx"
)

var Module = fx.Module("sequence.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
