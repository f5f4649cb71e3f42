package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supersteps/graphrun/graph"
)

func TestJSONFileCheckpointer_LoadMissingFileReturnsNotOK(t *testing.T) {
	c := NewJSONFileCheckpointer()
	path := filepath.Join(t.TempDir(), "missing.json")

	data, ok, err := c.LoadCheckpointData(context.Background(), path)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, graph.CheckpointData{}, data)
}

func TestJSONFileCheckpointer_SaveThenLoadRoundTrips(t *testing.T) {
	c := NewJSONFileCheckpointer()
	path := filepath.Join(t.TempDir(), "run.json")
	ctx := context.Background()

	want := graph.CheckpointData{
		GraphID:   "g1",
		Superstep: 3,
		Pending:   graph.PendingMap{"n1": {graph.NewState("a", 1)}},
	}
	require.NoError(t, c.SaveCheckpointData(ctx, path, want))

	got, ok, err := c.LoadCheckpointData(ctx, path)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want.GraphID, got.GraphID)
	assert.Equal(t, want.Superstep, got.Superstep)
	assert.Equal(t, want.Pending["n1"][0].Messages, got.Pending["n1"][0].Messages)
}

func TestJSONFileCheckpointer_SaveOverwritesAtomically(t *testing.T) {
	c := NewJSONFileCheckpointer()
	path := filepath.Join(t.TempDir(), "run.json")
	ctx := context.Background()

	require.NoError(t, c.SaveCheckpointData(ctx, path, graph.CheckpointData{Superstep: 1}))
	require.NoError(t, c.SaveCheckpointData(ctx, path, graph.CheckpointData{Superstep: 2}))

	got, ok, err := c.LoadCheckpointData(ctx, path)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, got.Superstep)
}

func TestJSONFileCheckpointer_NoTempFileLeftBehindOnSuccess(t *testing.T) {
	c := NewJSONFileCheckpointer()
	dir := t.TempDir()
	path := filepath.Join(dir, "run.json")

	require.NoError(t, c.SaveCheckpointData(context.Background(), path, graph.CheckpointData{Superstep: 1}))

	entries, err := filepathGlobTempFiles(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temp files must be renamed away, never left alongside the final file")
}

func filepathGlobTempFiles(dir string) ([]string, error) {
	return filepath.Glob(filepath.Join(dir, ".checkpoint-*.tmp"))
}
