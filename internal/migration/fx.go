package migration

import (
	"context"

	"github.com/smallbiznis/promolens/internal/config"
	factdomain "github.com/smallbiznis/promolens/internal/fact/domain"
	"github.com/smallbiznis/promolens/internal/seed"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, facts factdomain.Repository) error {
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}

		if err := RunMigrations(sqlDB); err != nil {
			return err
		}

		if err := facts.Provision(context.Background(), conn); err != nil {
			return err
		}

		if !cfg.IsProduction() {
			return seed.EnsureDevAPIKey(conn, cfg.SeedDevAPIKey)
		}
		return nil
	}),
)
