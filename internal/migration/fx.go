package migration

import (
	"github.com/smallbiznis/fnol/internal/config"
	fnoldomain "github.com/smallbiznis/fnol/internal/fnol/domain"
	idempotencydomain "github.com/smallbiznis/fnol/internal/idempotency/domain"
	sequencedomain "github.com/smallbiznis/fnol/internal/sequence/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		// Versioned SQL migrations exist for postgres only; mysql and sqlite
		// deployments are dev setups and get the schema auto-migrated.
		if cfg.DBType != "postgres" {
			return conn.AutoMigrate(
				&fnoldomain.Case{},
				&sequencedomain.Counter{},
				&idempotencydomain.Record{},
			)
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}),
)
