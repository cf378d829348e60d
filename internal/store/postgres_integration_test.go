package store

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/gdc-multiomics-manifest/internal/domain"
)

func TestPostgresStore_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("manifests"),
		postgres.WithUsername("manifest"),
		postgres.WithPassword("manifest"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	defer func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate PostgreSQL container: %v", err)
		}
	}()

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	logger, _ := test.NewNullLogger()

	// Migrate and open through the same path the CLI uses.
	s, err := Open(ctx, domain.StoreConfig{Driver: domain.StoreDriverPostgres, PostgresDSN: dsn, MaxOpenConns: 4}, logger)
	require.NoError(t, err)
	defer s.Close()

	runner, err := NewMigrationRunner(dsn, logger)
	require.NoError(t, err)
	require.NoError(t, runner.Up(ctx), "second up is a no-op")
	version, dirty, err := runner.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)
	require.NoError(t, runner.Close())

	run, err := s.StartRun(ctx, "TCGA-BRCA")
	require.NoError(t, err)

	want := testManifest()
	require.NoError(t, s.SaveManifest(ctx, run.ID, want))
	require.NoError(t, s.FinishRun(ctx, run.ID, RunOutcome{
		Status:     RunStatusSucceeded,
		CohortSize: want.CohortSize,
		RowCount:   len(want.Rows),
		OutputPath: "TCGA-BRCA.csv",
	}))

	got, err := s.GetManifest(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	stored, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusSucceeded, stored.Status)
	assert.Equal(t, 2, stored.CohortSize)

	runs, err := s.ListRuns(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)
}
