// Package postgres_test provides integration tests for the database migration
// functionality. These tests require a live PostgreSQL instance.
//
//go:build integration

package postgres_test

import (
	"context"
	"os"
	"testing"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/internal/config"
	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/internal/infrastructure/database/postgres"
	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/internal/infrastructure/monitoring/logging"
)

const testMigrationsPath = "file://./migrations"

func getTestDBURL(t *testing.T) string {
	t.Helper()
	dbURL := os.Getenv("INTEGRATION_TEST_DB_URL")
	if dbURL == "" {
		t.Skip("INTEGRATION_TEST_DB_URL not set; skipping integration test")
	}
	return dbURL
}

func TestRunMigrations_AppliesAllMigrations(t *testing.T) {
	dbURL := getTestDBURL(t)

	err := postgres.RunMigrations(dbURL, testMigrationsPath)
	require.NoError(t, err)

	cfg := config.DatabaseConfig{
		Host: "localhost", Port: 5432, User: "test", Password: "test",
		DBName: "test_retrosynth", SSLMode: "disable", MaxConns: 5,
	}
	logger := logging.NewNopLogger()
	pool, err := postgres.NewConnectionPool(cfg, logger)
	require.NoError(t, err)
	defer postgres.Close(pool)

	var exists bool
	err = pool.QueryRow(context.Background(), `SELECT EXISTS (
		SELECT FROM information_schema.tables
		WHERE table_schema = 'public' AND table_name = 'reactions'
	)`).Scan(&exists)
	require.NoError(t, err)
	assert.True(t, exists, "reactions table should exist after migrations")
}

func TestRunMigrations_NoChangeWhenAlreadyUpToDate(t *testing.T) {
	dbURL := getTestDBURL(t)

	err := postgres.RunMigrations(dbURL, testMigrationsPath)
	require.NoError(t, err)

	err = postgres.RunMigrations(dbURL, testMigrationsPath)
	require.NoError(t, err)
}
