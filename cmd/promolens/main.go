package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/promolens/internal/config"
	"github.com/smallbiznis/promolens/internal/migration"
	"github.com/smallbiznis/promolens/internal/observability"
	"github.com/smallbiznis/promolens/internal/server"
	"github.com/smallbiznis/promolens/pkg/db"
	"github.com/smallbiznis/promolens/pkg/log"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		log.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		server.Module,
		migration.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
