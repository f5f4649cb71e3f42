package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/supersteps/graphrun/graph"
)

// SQLiteStore is a SQLite-backed graph.CheckpointStore and
// graph.FileCheckpointer, implementing the store-driven and file-driven
// checkpoint models of spec §4.2 against a single database file.
//
// Each store is scoped to one namespace (typically a run id); SaveCheckpoint
// replaces that namespace's row atomically inside a transaction.
type SQLiteStore struct {
	db        *sql.DB
	mu        sync.Mutex
	namespace string
}

// NewSQLiteStore opens (creating if needed) a SQLite database at path and
// migrates its schema. namespace scopes the single active checkpoint this
// store manages; pass ":memory:" for an ephemeral, test-only database.
func NewSQLiteStore(path, namespace string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy_timeout: %w", err)
	}

	s := &SQLiteStore{db: db, namespace: namespace}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	const checkpoints = `
		CREATE TABLE IF NOT EXISTS graph_checkpoints (
			namespace TEXT PRIMARY KEY,
			step INTEGER NOT NULL,
			pending TEXT NOT NULL,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`
	if _, err := s.db.ExecContext(ctx, checkpoints); err != nil {
		return fmt.Errorf("create graph_checkpoints: %w", err)
	}
	const files = `
		CREATE TABLE IF NOT EXISTS graph_checkpoint_files (
			path TEXT PRIMARY KEY,
			data TEXT NOT NULL,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`
	if _, err := s.db.ExecContext(ctx, files); err != nil {
		return fmt.Errorf("create graph_checkpoint_files: %w", err)
	}
	return nil
}

// Close releases the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveCheckpoint replaces this store's namespace row inside a transaction.
func (s *SQLiteStore) SaveCheckpoint(ctx context.Context, step int, pending graph.PendingMap) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(pending)
	if err != nil {
		return fmt.Errorf("marshal pending map: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const upsert = `
		INSERT INTO graph_checkpoints (namespace, step, pending, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(namespace) DO UPDATE SET
			step = excluded.step, pending = excluded.pending, updated_at = CURRENT_TIMESTAMP
	`
	if _, err := tx.ExecContext(ctx, upsert, s.namespace, step, string(data)); err != nil {
		return fmt.Errorf("upsert checkpoint: %w", err)
	}
	return tx.Commit()
}

// LoadCheckpoint returns this store's namespace's most recent (step, pending).
func (s *SQLiteStore) LoadCheckpoint(ctx context.Context) (int, graph.PendingMap, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var step int
	var data string
	row := s.db.QueryRowContext(ctx, `SELECT step, pending FROM graph_checkpoints WHERE namespace = ?`, s.namespace)
	if err := row.Scan(&step, &data); err != nil {
		if err == sql.ErrNoRows {
			return 0, nil, false, nil
		}
		return 0, nil, false, fmt.Errorf("load checkpoint: %w", err)
	}

	var pending graph.PendingMap
	if err := json.Unmarshal([]byte(data), &pending); err != nil {
		return 0, nil, false, fmt.Errorf("unmarshal pending map: %w", err)
	}
	return step, pending, true, nil
}

// ClearCheckpoints removes this store's namespace row.
func (s *SQLiteStore) ClearCheckpoints(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `DELETE FROM graph_checkpoints WHERE namespace = ?`, s.namespace)
	return err
}

// SaveCheckpointData persists a full CheckpointData record under path,
// implementing graph.FileCheckpointer against the same database file.
func (s *SQLiteStore) SaveCheckpointData(ctx context.Context, path string, data graph.CheckpointData) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	blob, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal checkpoint data: %w", err)
	}
	const upsert = `
		INSERT INTO graph_checkpoint_files (path, data, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(path) DO UPDATE SET data = excluded.data, updated_at = CURRENT_TIMESTAMP
	`
	_, err = s.db.ExecContext(ctx, upsert, path, string(blob))
	return err
}

// LoadCheckpointData reads back a CheckpointData record saved under path.
func (s *SQLiteStore) LoadCheckpointData(ctx context.Context, path string) (graph.CheckpointData, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var blob string
	row := s.db.QueryRowContext(ctx, `SELECT data FROM graph_checkpoint_files WHERE path = ?`, path)
	if err := row.Scan(&blob); err != nil {
		if err == sql.ErrNoRows {
			return graph.CheckpointData{}, false, nil
		}
		return graph.CheckpointData{}, false, fmt.Errorf("load checkpoint data: %w", err)
	}
	var data graph.CheckpointData
	if err := json.Unmarshal([]byte(blob), &data); err != nil {
		return graph.CheckpointData{}, false, fmt.Errorf("unmarshal checkpoint data: %w", err)
	}
	return data, true, nil
}
