// Package dbtest opens isolated SQLite databases carrying the full model
// schema for repository and service tests.
package dbtest

import (
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/listingz-backend/pkg/db"
	"github.com/angelmondragon/listingz-backend/pkg/db/models"
)

// ConcurrentConns is the pool size of databases returned by OpenFile.
const ConcurrentConns = 8

// Open returns a migrated in-memory connection private to the calling test.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%s?mode=memory&cache=shared", name, uuid.NewString())

	// one connection keeps the shared in-memory database alive and serializes writers
	return open(t, dsn, 1)
}

// OpenFile returns a migrated file-backed database with a multi-connection
// pool, for tests that race transactions against each other. Transactions
// begin IMMEDIATE so concurrent writers queue on the busy timeout instead of
// failing on lock upgrade.
func OpenFile(t testing.TB) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "listingz.db")
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=10000&_txlock=immediate", path)
	return open(t, dsn, ConcurrentConns)
}

func open(t testing.TB, dsn string, maxConns int) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.New(log.New(io.Discard, "", 0), gormlogger.Config{LogLevel: gormlogger.Silent}),
		SkipDefaultTransaction: true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(maxConns)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := conn.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return conn
}

// Client wraps Open in a db.Client so services can run transactions.
func Client(t testing.TB) (*db.Client, *gorm.DB) {
	t.Helper()
	conn := Open(t)
	return db.NewFromGorm(conn), conn
}

// FileClient wraps OpenFile in a db.Client.
func FileClient(t testing.TB) (*db.Client, *gorm.DB) {
	t.Helper()
	conn := OpenFile(t)
	return db.NewFromGorm(conn), conn
}
