package migrate

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/angelmondragon/quickdelivery-backend/pkg/config"
	"github.com/angelmondragon/quickdelivery-backend/pkg/db"
	"github.com/angelmondragon/quickdelivery-backend/pkg/db/models"
	"github.com/angelmondragon/quickdelivery-backend/pkg/logger"
)

// Models lists the tables owned by the service, parents first.
func Models() []any {
	return []any{
		&models.User{},
		&models.Order{},
		&models.OrderStatusEvent{},
		&models.OutboxEvent{},
		&models.OutboxDLQ{},
	}
}

// AutoMigrate creates the schema from the models. The SQL migrations target
// postgres; the embedded sqlite driver used for local runs and tests goes
// through here instead.
func AutoMigrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db is required")
	}
	if err := conn.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// MaybeRunDev executes migrations automatically when the app is running in dev mode and
// the feature flag is enabled.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	if cfg.DB.IsSQLite() {
		logg.Info(logg.WithField(ctx, "driver", config.DBDriverSQLite), "running model auto-migration (dev auto-run)")
		return AutoMigrate(client.DB())
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}
	source, err := Source("")
	if err != nil {
		return err
	}
	migrator, err := NewMigrator(sqlDB, source)
	if err != nil {
		return err
	}

	ctx = logg.WithField(ctx, "env", cfg.App.Env)
	logg.Info(ctx, "applying embedded migrations (dev auto-run)")
	results, err := migrator.Up(ctx)
	if err != nil {
		return err
	}
	logg.Info(logg.WithField(ctx, "applied", len(results)), "migrations up to date")
	return nil
}
