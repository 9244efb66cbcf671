package migration

import (
	billingdomain "github.com/workfolio/workfolio/internal/billing/domain"
	"github.com/workfolio/workfolio/internal/config"
	teamdomain "github.com/workfolio/workfolio/internal/team/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		// The versioned SQL migrations target postgres; other dialects are
		// dev/test conveniences and get the gorm schema directly.
		if cfg.DBType != "postgres" {
			return conn.AutoMigrate(
				&teamdomain.Team{},
				&billingdomain.EventRecord{},
			)
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}),
)
