package graph

import "context"

// PendingMap is the scheduler's pending-input buffer: node id -> the states
// awaiting execution at that node in the next superstep (spec §4.2).
type PendingMap map[string][]State

// clone returns a deep copy of m, independent of the original (states are
// deep-copied via State.deepCopy).
func (m PendingMap) clone() PendingMap {
	out := make(PendingMap, len(m))
	for k, states := range m {
		cp := make([]State, len(states))
		for i, s := range states {
			cp[i] = s.deepCopy()
		}
		out[k] = cp
	}
	return out
}

// CheckpointStore persists (superstep, pending map) atomically between
// supersteps and can load or clear the most recent snapshot (spec §2, §6).
// This is the "store-driven" checkpoint model of spec §4.2.
type CheckpointStore interface {
	// SaveCheckpoint atomically persists step and pending. A successful
	// save implies resuming from it re-executes exactly the remaining
	// supersteps of an interrupted run (spec §4.2).
	SaveCheckpoint(ctx context.Context, step int, pending PendingMap) error

	// LoadCheckpoint returns the most recently saved (step, pending), or
	// ok=false if none exists.
	LoadCheckpoint(ctx context.Context) (step int, pending PendingMap, ok bool, err error)

	// ClearCheckpoints removes any persisted checkpoint.
	ClearCheckpoints(ctx context.Context) error
}

// CheckpointData is the "file-driven" checkpoint model of spec §4.2: a full
// record sufficient to resume without a live Graph/Executor in memory,
// bundling the graph identity, initial state, pending map, superstep index
// and final state alongside the policies in effect.
type CheckpointData struct {
	GraphID      string     `json:"graph_id"`
	InitialState State      `json:"initial_state"`
	Pending      PendingMap `json:"pending"`
	Superstep    int        `json:"superstep"`
	FinalState   *State     `json:"final_state,omitempty"`
	RetryPolicy  RetryPolicy `json:"retry_policy"`
	MaxWorkers   int        `json:"max_workers"`
}

// FileCheckpointer persists a full CheckpointData record to a path every
// checkpointEvery supersteps, implemented by graph/store file-backed types.
type FileCheckpointer interface {
	SaveCheckpointData(ctx context.Context, path string, data CheckpointData) error
	LoadCheckpointData(ctx context.Context, path string) (CheckpointData, bool, error)
}
