package graph

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/passbi/passbi_netex/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Requires a scratch database, e.g.
// TEST_DATABASE_URL=postgres://postgres@localhost:5432/netex_test?sslmode=disable
func testStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	store := NewStore(pool)
	require.NoError(t, store.Migrate(ctx))
	return store
}

func TestStoreRoundTrip(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	g := compile(t, 2)

	require.NoError(t, store.SaveGraph(ctx, g))
	loaded, err := store.LoadGraph(ctx)
	require.NoError(t, err)
	assert.Equal(t, g, loaded)

	// saving again replaces the previous graph
	require.NoError(t, store.SaveGraph(ctx, g))
	loaded, err = store.LoadGraph(ctx)
	require.NoError(t, err)
	assert.Equal(t, g.JourneyCount(), loaded.JourneyCount())

	m := NewInMemoryGraph()
	require.NoError(t, m.LoadFromStore(ctx, store))
	assert.True(t, m.IsLoaded())
}

func TestStoreCompileLog(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	okID, err := store.LogCompile(ctx, time.Now().Add(-time.Second), 2, &Stats{Nodes: 4, Edges: 3, Journeys: 5}, nil)
	require.NoError(t, err)
	failedID, err := store.LogCompile(ctx, time.Now(), 2, nil, errors.New("boom"))
	require.NoError(t, err)

	logs, err := store.RecentCompileLogs(ctx, 2)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, failedID, logs[0].ID)
	assert.Equal(t, "failed", logs[0].Status)
	assert.Equal(t, "boom", logs[0].ErrorMsg)
	assert.Equal(t, okID, logs[1].ID)
	assert.Equal(t, 5, logs[1].JourneysCount)
	require.NotNil(t, logs[1].CompletedAt)
}

// batchRecorder is a pgx.Tx that records the size of every batch sent
type batchRecorder struct {
	pgx.Tx
	execs   []string
	batches []int
}

func (r *batchRecorder) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	r.execs = append(r.execs, sql)
	return pgconn.CommandTag{}, nil
}

func (r *batchRecorder) SendBatch(_ context.Context, b *pgx.Batch) pgx.BatchResults {
	r.batches = append(r.batches, b.Len())
	return okResults{}
}

type okResults struct{}

func (okResults) Exec() (pgconn.CommandTag, error) { return pgconn.CommandTag{}, nil }
func (okResults) Query() (pgx.Rows, error)         { return nil, errors.New("not supported") }
func (okResults) QueryRow() pgx.Row                { return nil }
func (okResults) Close() error                     { return nil }

func TestWriteGraphBatchSizes(t *testing.T) {
	const nodes = 2*batchSize + 500

	g := &models.Graph{Nodes: make([]models.Node, nodes)}
	for i := 0; i < nodes-1; i++ {
		g.Edges = append(g.Edges, models.Edge{
			StartNode: i,
			EndNode:   i + 1,
			Timetable: models.Timetable{
				Journeys: []models.Journey{{Departure: 480, Arrival: 490}},
				Periods:  []models.OperatingPeriod{{From: 240101, To: 240131, ValidDay: []byte{0x01}}},
			},
		})
	}

	tx := &batchRecorder{}
	require.NoError(t, writeGraph(context.Background(), tx, g))
	require.Len(t, tx.execs, 1)

	total := 0
	for _, size := range tx.batches {
		assert.LessOrEqual(t, size, batchSize)
		assert.Positive(t, size)
		total += size
	}
	// nodes + edges + one period and one journey per edge
	assert.Equal(t, nodes+3*(nodes-1), total)
}
