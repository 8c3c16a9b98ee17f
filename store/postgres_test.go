package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/review-impact/impact-sim/sim"
)

// openTestPostgres connects to IMPACT_SIM_POSTGRES_DSN, skipping when unset.
func openTestPostgres(t *testing.T) *Postgres {
	t.Helper()
	dsn := os.Getenv("IMPACT_SIM_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("IMPACT_SIM_POSTGRES_DSN not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	pg, err := OpenPostgres(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { pg.Close() })
	require.NoError(t, pg.RunMigrations(ctx))
	return pg
}

func TestPostgres_ReplaceThenLoad(t *testing.T) {
	pg := openTestPostgres(t)
	ctx := context.Background()
	want := sampleSnapshot()

	require.NoError(t, pg.ReplaceSnapshot(ctx, want))
	got, err := sim.LoadSnapshot(ctx, pg)

	require.NoError(t, err)
	assert.Equal(t, want.Rules, got.Rules)
	assert.Equal(t, want.Videos, got.Videos)
	assert.Equal(t, want.EnqueueSignals, got.EnqueueSignals)
	assert.Equal(t, want.RoutingSignals, got.RoutingSignals)
	assert.Equal(t, want.VerdictSignals, got.VerdictSignals)
	require.Len(t, got.Queues, 2)
	assert.Equal(t, want.Queues[0], got.Queues[0])
	assert.Empty(t, got.Queues[1].Owners)
}

var _ sim.SnapshotReader = (*Postgres)(nil)

func TestPostgres_ReadSnapshotMatchesGetters(t *testing.T) {
	pg := openTestPostgres(t)
	ctx := context.Background()
	require.NoError(t, pg.ReplaceSnapshot(ctx, sampleSnapshot()))

	snap, err := pg.ReadSnapshot(ctx)
	require.NoError(t, err)

	queues, err := pg.GetAllQueues(ctx)
	require.NoError(t, err)
	signals, err := pg.GetAllVerdictSignals(ctx)
	require.NoError(t, err)
	assert.Equal(t, queues, snap.Queues)
	assert.Equal(t, signals, snap.VerdictSignals)
	assert.Len(t, snap.EnqueueSignals, 1)
}

func TestPostgres_ReplaceIsIdempotent(t *testing.T) {
	pg := openTestPostgres(t)
	ctx := context.Background()

	require.NoError(t, pg.ReplaceSnapshot(ctx, sampleSnapshot()))
	require.NoError(t, pg.ReplaceSnapshot(ctx, sampleSnapshot()))

	signals, err := pg.GetAllEnqueueSignals(ctx)
	require.NoError(t, err)
	assert.Len(t, signals, 1)
}

func TestPostgres_MigrationsRerun(t *testing.T) {
	pg := openTestPostgres(t)
	assert.NoError(t, pg.RunMigrations(context.Background()))
}
