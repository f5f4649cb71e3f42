package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supersteps/graphrun/graph"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "checkpoints.db")
	s, err := NewSQLiteStore(path, "run-1")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStore_LoadBeforeSaveReturnsNotOK(t *testing.T) {
	s := newTestSQLiteStore(t)
	_, _, ok, err := s.LoadCheckpoint(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLiteStore_SaveThenLoadRoundTrips(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()
	want := graph.PendingMap{"n1": {graph.NewState("a", 1)}}

	require.NoError(t, s.SaveCheckpoint(ctx, 5, want))

	step, got, ok, err := s.LoadCheckpoint(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 5, step)
	assert.Equal(t, want["n1"][0].Messages, got["n1"][0].Messages)
}

func TestSQLiteStore_SaveUpsertsSameNamespace(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveCheckpoint(ctx, 1, graph.PendingMap{"n1": {graph.NewState("first")}}))
	require.NoError(t, s.SaveCheckpoint(ctx, 2, graph.PendingMap{"n1": {graph.NewState("second")}}))

	step, got, ok, err := s.LoadCheckpoint(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, step)
	assert.Equal(t, "second", got["n1"][0].Last())
}

func TestSQLiteStore_ClearCheckpointsRemovesRow(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveCheckpoint(ctx, 1, graph.PendingMap{"n1": {graph.NewState("a")}}))
	require.NoError(t, s.ClearCheckpoints(ctx))

	_, _, ok, err := s.LoadCheckpoint(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLiteStore_FileCheckpointerRoundTrip(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()
	want := graph.CheckpointData{GraphID: "g1", Superstep: 3}

	require.NoError(t, s.SaveCheckpointData(ctx, "/run/1.json", want))

	got, ok, err := s.LoadCheckpointData(ctx, "/run/1.json")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want.GraphID, got.GraphID)
	assert.Equal(t, want.Superstep, got.Superstep)
}

func TestSQLiteStore_NamespacesAreIndependent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoints.db")
	a, err := NewSQLiteStore(path, "run-a")
	require.NoError(t, err)
	defer func() { _ = a.Close() }()
	b, err := NewSQLiteStore(path, "run-b")
	require.NoError(t, err)
	defer func() { _ = b.Close() }()

	ctx := context.Background()
	require.NoError(t, a.SaveCheckpoint(ctx, 1, graph.PendingMap{"n1": {graph.NewState("a-state")}}))

	_, _, ok, err := b.LoadCheckpoint(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "run-b must not see run-a's checkpoint")
}
