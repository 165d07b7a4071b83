package postgres

import (
	"context"
	"strings"
	"testing"
	"time"

	"boatnav/internal/general/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{
		Host:     "db",
		Port:     5433,
		User:     "boat",
		Password: "p@ss word",
		Name:     "archive",
	})
	assert.Equal(t, "postgres://boat:p%40ss%20word@db:5433/archive?sslmode=disable", dsn)
}

func TestMigrationFiles(t *testing.T) {
	names, err := migrationFiles()
	require.NoError(t, err)
	require.NotEmpty(t, names)
	assert.Equal(t, "001_create_schema.up.sql", names[0])

	sql, err := migrations.ReadFile("migrations/" + names[0])
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(sql), "CREATE TABLE IF NOT EXISTS trips"))
	assert.True(t, strings.Contains(string(sql), "CREATE TABLE IF NOT EXISTS trip_path_points"))
}

func TestTripRepo_RequiresTransaction(t *testing.T) {
	repo := NewTripRepo()
	ctx := context.Background()

	assert.Error(t, repo.UpsertStarted(ctx, "t", "b", time.Now(), nil))
	assert.Error(t, repo.MarkCompleted(ctx, "t", "b", time.Now()))
	assert.Error(t, repo.SaveSummary(ctx, "t", "b", time.Now(), 1))
	_, err := repo.ReplacePath(ctx, "t", nil)
	assert.Error(t, err)
	_, err = repo.GetByID(ctx, "t")
	assert.Error(t, err)

	_, ok := TxFromContext(ctx)
	assert.False(t, ok)
}
