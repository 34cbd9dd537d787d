// Package dbtest opens throwaway sqlite databases with the service schema.
package dbtest

import (
	"io"
	"log"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/quickdelivery-backend/pkg/db"
	"github.com/angelmondragon/quickdelivery-backend/pkg/migrate"
)

// Open returns a migrated in-memory database. The pool is pinned to one
// connection so every statement sees the same memory database.
func Open(t testing.TB) *db.Client {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:                 gormlogger.New(log.New(io.Discard, "", log.LstdFlags), gormlogger.Config{LogLevel: gormlogger.Silent}),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := migrate.AutoMigrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db.NewFromGorm(conn)
}
