package db

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/quickdelivery-backend/pkg/config"
	"github.com/angelmondragon/quickdelivery-backend/pkg/logger"
)

type testModel struct {
	ID   int
	Name string
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&testModel{}); err != nil {
		t.Fatalf("failed to migrate sqlite: %v", err)
	}
	return conn
}

func TestWithTx_CommitsAndRollbacks(t *testing.T) {
	db := newTestDB(t)
	client := &Client{conn: db}

	ctx := context.Background()
	if err := client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&testModel{Name: "committed"}).Error
	}); err != nil {
		t.Fatalf("WithTx commit failed: %v", err)
	}

	var count int64
	if err := db.Model(&testModel{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 record, got %d", count)
	}

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&testModel{Name: "rolled"}).Error; err != nil {
			return err
		}
		return errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected WithTx to return an error")
	}
	if err := db.Model(&testModel{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed after rollback: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected rollback to leave 1 record, got %d", count)
	}
}

func TestPing(t *testing.T) {
	db := newTestDB(t)
	client := &Client{conn: db}
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected ping error: %v", err)
	}
}

func TestWithTx_PanicRollsBack(t *testing.T) {
	db := newTestDB(t)
	client := NewFromGorm(db)

	var before int64
	if err := db.Model(&testModel{}).Count(&before).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}

	func() {
		defer func() {
			if r := recover(); r == nil {
				t.Fatal("expected panic to propagate")
			}
		}()
		_ = client.WithTx(context.Background(), func(tx *gorm.DB) error {
			if err := tx.Create(&testModel{Name: "panicky"}).Error; err != nil {
				return err
			}
			panic("boom")
		})
	}()

	var after int64
	if err := db.Model(&testModel{}).Count(&after).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if after != before {
		t.Fatalf("expected panic to roll back, before=%d after=%d", before, after)
	}
}

func TestDialectorFor(t *testing.T) {
	if got := dialectorFor(config.DBConfig{Driver: "sqlite", DSN: "file::memory:"}).Name(); got != "sqlite" {
		t.Fatalf("expected sqlite dialector, got %s", got)
	}
	if got := dialectorFor(config.DBConfig{Driver: "postgres", DSN: "postgres://x"}).Name(); got != "postgres" {
		t.Fatalf("expected postgres dialector, got %s", got)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	if !IsUniqueViolation(errors.New("UNIQUE constraint failed: users.phone"), "") {
		t.Fatal("expected sqlite unique violation")
	}
	if !IsUniqueViolation(errors.New(`duplicate key value violates unique constraint "ux_users_phone"`), "ux_users_phone") {
		t.Fatal("expected named postgres unique violation")
	}
	if IsUniqueViolation(errors.New("connection refused"), "") {
		t.Fatal("unexpected match")
	}
	if IsUniqueViolation(nil, "") {
		t.Fatal("nil is not a violation")
	}
	pgErr := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "ux_users_phone"})
	if !IsUniqueViolation(pgErr, "ux_users_phone") || IsUniqueViolation(pgErr, "orders_pkey") {
		t.Fatal("expected pg constraint name to decide")
	}
}

func TestWithTxRetriesSerializationFailures(t *testing.T) {
	client := NewFromGorm(newTestDB(t))
	var calls int
	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		calls++
		if calls < 3 {
			return &pgconn.PgError{Code: "40001"}
		}
		return tx.Create(&testModel{Name: "third time"}).Error
	})
	if err != nil {
		t.Fatalf("expected success on third attempt, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}

	calls = 0
	err = client.WithTx(context.Background(), func(*gorm.DB) error {
		calls++
		return &pgconn.PgError{Code: "40P01"}
	})
	if !IsRetryable(err) || calls != maxTxAttempts {
		t.Fatalf("expected retries to stop at %d, got calls=%d err=%v", maxTxAttempts, calls, err)
	}

	calls = 0
	_ = client.WithTx(context.Background(), func(*gorm.DB) error {
		calls++
		return errors.New("plain failure")
	})
	if calls != 1 {
		t.Fatalf("plain errors must not retry, got %d calls", calls)
	}
}

func TestQueryLoggerReportsSlowAndFailedOnly(t *testing.T) {
	buf := &bytes.Buffer{}
	logg := logger.New(logger.Options{ServiceName: "test", Output: buf})
	ql := newQueryLogger(logg, 50*time.Millisecond)
	ctx := context.Background()
	stmt := func() (string, int64) { return "SELECT 1", 1 }

	ql.Trace(ctx, time.Now(), stmt, nil)
	ql.Trace(ctx, time.Now(), stmt, gorm.ErrRecordNotFound)
	if buf.Len() != 0 {
		t.Fatalf("expected fast and not-found queries to stay quiet, got %s", buf.String())
	}

	ql.Trace(ctx, time.Now().Add(-time.Second), stmt, nil)
	if !strings.Contains(buf.String(), "slow query") {
		t.Fatalf("expected slow query entry, got %s", buf.String())
	}
	buf.Reset()

	ql.Trace(ctx, time.Now(), stmt, errors.New("syntax error"))
	if !strings.Contains(buf.String(), "query failed") {
		t.Fatalf("expected failure entry, got %s", buf.String())
	}
	buf.Reset()

	ql.LogMode(gormlogger.Silent).Trace(ctx, time.Now(), stmt, errors.New("syntax error"))
	if buf.Len() != 0 {
		t.Fatal("silent mode should not log")
	}
}
