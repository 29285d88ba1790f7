//go:build integration

package postgres_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/turtacn/platemap/internal/domain/library"
	"github.com/turtacn/platemap/internal/domain/plate"
	"github.com/turtacn/platemap/internal/domain/platemap"
	"github.com/turtacn/platemap/internal/domain/protocol"
	"github.com/turtacn/platemap/internal/infrastructure/database/postgres"
	"github.com/turtacn/platemap/internal/infrastructure/monitoring/logging"
)

// ─────────────────────────────────────────────────────────────────────────────
// Test environment setup
// ─────────────────────────────────────────────────────────────────────────────

// testDSN returns PLATEMAP_TEST_POSTGRES_URL when set. Otherwise it starts a
// PostgreSQL 16 container for the test.
func testDSN(t *testing.T) string {
	t.Helper()
	if dsn := os.Getenv("PLATEMAP_TEST_POSTGRES_URL"); dsn != "" {
		return dsn
	}

	ctx := context.Background()
	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "platemap_test",
		},
		WaitingFor: wait.ForAll(
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			wait.ForListeningPort("5432/tcp"),
		).WithDeadline(60 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)
	return fmt.Sprintf("postgres://test:test@%s:%s/platemap_test?sslmode=disable", host, port.Port())
}

func setupTestDB(t *testing.T) (*pgxpool.Pool, string) {
	t.Helper()

	dsn := testDSN(t)
	require.NoError(t, postgres.RunMigrations(dsn, logging.NewNopLogger()))

	cfg, err := pgxpool.ParseConfig(dsn)
	require.NoError(t, err)
	pool, err := pgxpool.NewWithConfig(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { postgres.Close(pool) })
	return pool, dsn
}

func TestRunMigrations_Idempotent(t *testing.T) {
	_, dsn := setupTestDB(t)

	require.NoError(t, postgres.RunMigrations(dsn, nil))
	version, dirty, err := postgres.MigrationStatus(dsn)
	require.NoError(t, err)
	assert.EqualValues(t, 2, version)
	assert.False(t, dirty)
}

func TestPlateMapSink_SaveAndReplace(t *testing.T) {
	pool, _ := setupTestDB(t)
	ctx := context.Background()
	sink := postgres.NewPlateMapSink(pool, logging.NewNopLogger())

	runID := "it-" + time.Now().Format("150405.000000")
	t.Cleanup(func() { _, _ = pool.Exec(ctx, "DELETE FROM platemap_runs WHERE run_id = $1", runID) })

	run := &platemap.Run{
		ID:         runID,
		StartedAt:  time.Now().UTC(),
		FinishedAt: time.Now().UTC(),
		Status:     platemap.RunComplete,
		Wells:      1,
		Summary:    library.Summary{Total: 1, Success: 1},
		Records: []platemap.ReconciledRecord{{
			Entry:       protocol.DestinationMapEntry{Well: plate.Well{Label: "A1"}},
			SulfonylKey: "S_001",
			AmineKey:    "Amine_ID_001",
			Product:     &library.Product{ID: 0, Structure: "C", Status: library.StatusSuccess},
		}},
	}
	require.NoError(t, sink.Save(ctx, run))

	run.Status = platemap.RunIncomplete
	run.Missing = 1
	run.Records[0].Product = nil
	require.NoError(t, sink.Save(ctx, run))

	var status string
	var missing int
	require.NoError(t, pool.QueryRow(ctx, "SELECT status, missing FROM platemap_runs WHERE run_id = $1", runID).Scan(&status, &missing))
	assert.Equal(t, "incomplete", status)
	assert.Equal(t, 1, missing)

	var unmatched int
	require.NoError(t, pool.QueryRow(ctx, "SELECT COUNT(*) FROM platemap_records WHERE run_id = $1 AND product_id IS NULL", runID).Scan(&unmatched))
	assert.Equal(t, 1, unmatched)
}

//Personal.AI order the ending
