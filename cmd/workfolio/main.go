package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/workfolio/workfolio/internal/clock"
	"github.com/workfolio/workfolio/internal/config"
	"github.com/workfolio/workfolio/internal/logger"
	"github.com/workfolio/workfolio/internal/metrics"
	"github.com/workfolio/workfolio/internal/migration"
	"github.com/workfolio/workfolio/internal/server"
	"github.com/workfolio/workfolio/internal/tracing"
	"github.com/workfolio/workfolio/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		logger.Module,
		tracing.Module,
		metrics.Module,
		fx.Provide(newSnowflakeNode),
		db.Module,
		clock.Module,
		migration.Module,

		// HTTP surface and domain modules
		server.Module,
	)
	app.Run()
}

func newSnowflakeNode() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
