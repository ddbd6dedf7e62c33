package fnol

import (
	"github.com/smallbiznis/fnol/internal/fnol/repository"
	"github.com/smallbiznis/fnol/internal/fnol/service"
	"go.uber.org/fx"
)

var Module = fx.Module("fnol.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
