package migration

import (
	"github.com/smallbiznis/invoicer/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(Apply),
)

// Apply brings the schema up to date before the HTTP server and scheduler
// start. Postgres gets the versioned SQL files; other backends are
// auto-migrated from the models.
func Apply(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
	log = log.Named("migration").With(zap.String("db_type", cfg.DBType))

	if cfg.DBType != "postgres" {
		log.Info("auto-migrating invoice schema")
		return AutoMigrate(conn)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	version, err := RunMigrations(sqlDB)
	if err != nil {
		return err
	}
	log.Info("invoice schema migrated", zap.Uint("version", version))
	return nil
}
