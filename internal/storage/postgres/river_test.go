package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMigrateRiverProvisionsJobQueue(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	pool, _ := setupPostgres(t, ctx)

	// Start from a clean slate; the shared container may carry state from
	// earlier runs.
	_, err := pool.Exec(ctx, `
		DROP TABLE IF EXISTS river_job, river_leader, river_queue,
			river_client, river_client_queue, river_migration CASCADE;
		DROP TYPE IF EXISTS river_job_state`)
	require.NoError(t, err)

	require.NoError(t, MigrateRiver(ctx, pool))

	var exists bool
	require.NoError(t, pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_schema = 'public' AND table_name = 'river_job'
		)`).Scan(&exists))
	require.True(t, exists, "river_job table should exist after provisioning")

	require.NoError(t, MigrateRiver(ctx, pool), "re-running must be a no-op")
}
