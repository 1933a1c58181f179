package testutil

import (
	"context"
	"testing"

	"gorm.io/gorm"

	"github.com/Skotchmaster/car_catalog/internal/db"
)

// OpenDB opens a migrated in-memory SQLite database that is closed with the test.
func OpenDB(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	gdb, err := db.Open(ctx, db.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close(gdb) })

	if err := db.Migrate(ctx, gdb); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return gdb
}

func Float(v float64) *float64 { return &v }
