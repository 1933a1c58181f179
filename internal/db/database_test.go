package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/car_catalog/internal/models"
)

func TestOpenAndMigrate(t *testing.T) {
	ctx := context.Background()

	gdb, err := Open(ctx, DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(gdb) })

	require.NoError(t, Migrate(ctx, gdb))
	// idempotent
	require.NoError(t, Migrate(ctx, gdb))

	var roles []models.Role
	require.NoError(t, gdb.Order("rol_id").Find(&roles).Error)
	require.Len(t, roles, 2)
	assert.Equal(t, models.RoleViewerOwn, roles[0].Name)
	assert.Equal(t, models.RoleViewerAll, roles[1].Name)

	for _, table := range []string{"users", "roles", "user_roles", "cars", "user_cars"} {
		assert.True(t, gdb.Migrator().HasTable(table), table)
	}

	require.NoError(t, Ping(ctx, gdb))
}

func TestOpen_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := Open(ctx, DriverSQLite, "")
	require.Error(t, err)

	_, err = Open(ctx, "mysql", "x")
	require.Error(t, err)
}

func TestPing_ClosedDB(t *testing.T) {
	ctx := context.Background()

	gdb, err := Open(ctx, DriverSQLite, ":memory:")
	require.NoError(t, err)
	require.NoError(t, Close(gdb))

	assert.Error(t, Ping(ctx, gdb))
}
