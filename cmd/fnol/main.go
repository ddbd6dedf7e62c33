package main

import (
	"os"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/fnol/internal/clock"
	"github.com/smallbiznis/fnol/internal/config"
	"github.com/smallbiznis/fnol/internal/fnol"
	"github.com/smallbiznis/fnol/internal/idempotency"
	"github.com/smallbiznis/fnol/internal/migration"
	"github.com/smallbiznis/fnol/internal/notifier"
	"github.com/smallbiznis/fnol/internal/observability"
	"github.com/smallbiznis/fnol/internal/ratelimit"
	"github.com/smallbiznis/fnol/internal/sequence"
	"github.com/smallbiznis/fnol/internal/server"
	"github.com/smallbiznis/fnol/internal/textnorm"
	"github.com/smallbiznis/fnol/internal/validation"
	"github.com/smallbiznis/fnol/internal/workflow"
	"github.com/smallbiznis/fnol/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// Functional domains
		sequence.Module,
		idempotency.Module,
		validation.Module,
		textnorm.Module,
		workflow.Module,
		notifier.Module,
		ratelimit.Module,
		fnol.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	nodeID := int64(1)
	if raw := os.Getenv("SNOWFLAKE_NODE_ID"); raw != "" {
		if parsed, err := strconv.ParseInt(raw, 10, 64); err == nil {
			nodeID = parsed
		}
	}

	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		panic(err)
	}
	return node
}
