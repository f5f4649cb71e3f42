package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/supersteps/graphrun/graph"
)

// MySQLStore is a MySQL/MariaDB-backed graph.CheckpointStore, intended for
// production deployments that need checkpoints to survive process restarts
// and to be visible to other workers (spec §2, §4.2's store-driven model).
//
// The DSN format is:
//
//	[username[:password]@][protocol[(address)]]/dbname[?param1=value1&...]
//
// Example: user:pass@tcp(localhost:3306)/graphrun?parseTime=true
//
// Security: never hardcode credentials; read the DSN from the environment.
type MySQLStore struct {
	db        *sql.DB
	mu        sync.Mutex
	namespace string
}

// NewMySQLStore opens a connection pool against dsn, migrates the schema,
// and scopes the returned store to namespace (typically a run id).
func NewMySQLStore(dsn, namespace string) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}

	s := &MySQLStore{db: db, namespace: namespace}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *MySQLStore) migrate(ctx context.Context) error {
	const checkpoints = `
		CREATE TABLE IF NOT EXISTS graph_checkpoints (
			namespace VARCHAR(255) PRIMARY KEY,
			step INT NOT NULL,
			pending LONGTEXT NOT NULL,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
		) ENGINE=InnoDB`
	if _, err := s.db.ExecContext(ctx, checkpoints); err != nil {
		return fmt.Errorf("create graph_checkpoints: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *MySQLStore) Close() error {
	return s.db.Close()
}

// SaveCheckpoint replaces this store's namespace row inside a transaction.
func (s *MySQLStore) SaveCheckpoint(ctx context.Context, step int, pending graph.PendingMap) error {
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
		INSERT INTO graph_checkpoints (namespace, step, pending)
		VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE step = VALUES(step), pending = VALUES(pending)
	`
	if _, err := tx.ExecContext(ctx, upsert, s.namespace, step, string(data)); err != nil {
		return fmt.Errorf("upsert checkpoint: %w", err)
	}
	return tx.Commit()
}

// LoadCheckpoint returns this store's namespace's most recent (step, pending).
func (s *MySQLStore) LoadCheckpoint(ctx context.Context) (int, graph.PendingMap, bool, error) {
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
func (s *MySQLStore) ClearCheckpoints(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `DELETE FROM graph_checkpoints WHERE namespace = ?`, s.namespace)
	return err
}
