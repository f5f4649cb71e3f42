package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/supersteps/graphrun/graph"
)

// JSONFileCheckpointer implements graph.FileCheckpointer by writing a full
// CheckpointData record to a JSON file, using the write-temp-then-rename
// pattern spec §6 requires for atomic replace semantics. No third-party
// library covers atomic file replace better than os.Rename, which is
// atomic on POSIX filesystems when source and destination share a
// directory; this is the one place in the module built directly on the
// standard library (see DESIGN.md).
type JSONFileCheckpointer struct{}

// NewJSONFileCheckpointer returns a ready-to-use JSONFileCheckpointer.
func NewJSONFileCheckpointer() *JSONFileCheckpointer {
	return &JSONFileCheckpointer{}
}

// SaveCheckpointData marshals data and atomically replaces path's contents.
func (JSONFileCheckpointer) SaveCheckpointData(_ context.Context, path string, data graph.CheckpointData) error {
	blob, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal checkpoint data: %w", err)
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".checkpoint-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp checkpoint file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(blob); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write temp checkpoint file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp checkpoint file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename checkpoint file into place: %w", err)
	}
	return nil
}

// LoadCheckpointData reads back a CheckpointData record from path.
func (JSONFileCheckpointer) LoadCheckpointData(_ context.Context, path string) (graph.CheckpointData, bool, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return graph.CheckpointData{}, false, nil
		}
		return graph.CheckpointData{}, false, fmt.Errorf("read checkpoint file: %w", err)
	}
	var data graph.CheckpointData
	if err := json.Unmarshal(blob, &data); err != nil {
		return graph.CheckpointData{}, false, fmt.Errorf("unmarshal checkpoint data: %w", err)
	}
	return data, true, nil
}
