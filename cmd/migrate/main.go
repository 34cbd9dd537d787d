package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"

	"github.com/angelmondragon/quickdelivery-backend/pkg/config"
	"github.com/angelmondragon/quickdelivery-backend/pkg/db"
	"github.com/angelmondragon/quickdelivery-backend/pkg/logger"
	"github.com/angelmondragon/quickdelivery-backend/pkg/migrate"
)

func main() {
	_ = godotenv.Load()

	cmd := flag.String("cmd", "up", "up|down|status|version|create|validate")
	dir := flag.String("dir", "", "migrations directory (empty uses the embedded set)")
	name := flag.String("name", "", "migration name for -cmd=create")
	version := flag.String("version", "", "target YYYYMMDDHHMMSS for -cmd=version")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "migrate"})
	ctx := context.Background()

	cfg, err := config.Load()
	exitOn(ctx, logg, "load config", err)
	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "cmd": *cmd})

	switch *cmd {
	case "create":
		if *name == "" {
			exitOn(ctx, logg, "create", fmt.Errorf("-name is required"))
		}
		target := *dir
		if target == "" {
			target = migrate.DefaultDir
		}
		path, err := migrate.CreateSQLMigration(target, *name, time.Now())
		exitOn(ctx, logg, "create migration", err)
		logg.Info(logg.WithField(ctx, "path", path), "migration created")
		return
	case "validate":
		source, err := migrate.Source(*dir)
		exitOn(ctx, logg, "open migrations", err)
		exitOn(ctx, logg, "validate migrations", migrate.ValidateFS(source))
		logg.Info(ctx, "migrations valid")
		return
	}

	dbClient, err := db.New(ctx, cfg.DB, logg)
	exitOn(ctx, logg, "open database", err)
	defer dbClient.Close()

	if cfg.DB.IsSQLite() {
		if *cmd != "up" {
			exitOn(ctx, logg, *cmd, fmt.Errorf("sqlite only supports up (model auto-migration)"))
		}
		exitOn(ctx, logg, "auto migrate", migrate.AutoMigrate(dbClient.DB()))
		logg.Info(ctx, "sqlite schema up to date")
		return
	}

	sqlDB, err := dbClient.DB().DB()
	exitOn(ctx, logg, "sql handle", err)

	source, err := migrate.Source(*dir)
	exitOn(ctx, logg, "open migrations", err)
	migrator, err := migrate.NewMigrator(sqlDB, source)
	exitOn(ctx, logg, "build migrator", err)

	switch *cmd {
	case "up":
		results, err := migrator.Up(ctx)
		logResults(ctx, logg, results)
		exitOn(ctx, logg, "migrate up", err)
	case "down":
		result, err := migrator.Down(ctx)
		if result != nil {
			logResults(ctx, logg, []*goose.MigrationResult{result})
		}
		exitOn(ctx, logg, "migrate down", err)
	case "status":
		statuses, err := migrator.Status(ctx)
		exitOn(ctx, logg, "migrate status", err)
		for _, st := range statuses {
			fields := map[string]any{"version": st.Source.Version, "state": string(st.State)}
			if !st.AppliedAt.IsZero() {
				fields["applied_at"] = st.AppliedAt
			}
			logg.Info(logg.WithFields(ctx, fields), st.Source.Path)
		}
	case "version":
		target, err := migrate.ParseVersion(*version)
		exitOn(ctx, logg, "parse -version", err)
		results, err := migrator.ToVersion(ctx, target)
		logResults(ctx, logg, results)
		exitOn(ctx, logg, "migrate to version", err)
	default:
		exitOn(ctx, logg, "dispatch", fmt.Errorf("unknown -cmd %q", *cmd))
	}
}

func logResults(ctx context.Context, logg *logger.Logger, results []*goose.MigrationResult) {
	if len(results) == 0 {
		logg.Info(ctx, "nothing to apply")
		return
	}
	for _, r := range results {
		entry := logg.WithFields(ctx, map[string]any{
			"version":   r.Source.Version,
			"direction": r.Direction,
			"took":      r.Duration.String(),
		})
		if r.Error != nil {
			logg.Error(entry, r.Source.Path, r.Error)
			continue
		}
		logg.Info(entry, r.Source.Path)
	}
}

func exitOn(ctx context.Context, logg *logger.Logger, step string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, step+" failed", err)
	os.Exit(1)
}
