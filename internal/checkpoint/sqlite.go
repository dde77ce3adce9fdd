package checkpoint

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Keys under which the SQLite store files its records.
const (
	KeyActive   = "activeAssessment"
	KeyProgress = "assessmentProgress"
)

// SQLiteStore keeps the checkpoint in a key/value table. The full record
// lives under KeyActive; KeyProgress mirrors the compact progress view.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the database at dbPath and creates the table if needed.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS checkpoints (
		key TEXT PRIMARY KEY,
		version INTEGER NOT NULL,
		session_id TEXT NOT NULL,
		data TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Save writes both records in one transaction.
func (s *SQLiteStore) Save(cp *Checkpoint) error {
	stamp(cp)

	full, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("marshaling checkpoint: %w", err)
	}
	progress, err := json.Marshal(cp.ProgressView())
	if err != nil {
		return fmt.Errorf("marshaling progress: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	upsert := `INSERT INTO checkpoints (key, version, session_id, data, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			version = excluded.version,
			session_id = excluded.session_id,
			data = excluded.data,
			updated_at = excluded.updated_at`

	now := time.Now()
	if _, err := tx.Exec(upsert, KeyActive, cp.Version, cp.SessionID, string(full), now); err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	if _, err := tx.Exec(upsert, KeyProgress, cp.Version, cp.SessionID, string(progress), now); err != nil {
		return fmt.Errorf("save progress: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit checkpoint: %w", err)
	}
	return nil
}

// Load returns the active checkpoint, or nil, nil when none is stored.
func (s *SQLiteStore) Load() (*Checkpoint, error) {
	var data string
	err := s.db.QueryRow(`SELECT data FROM checkpoints WHERE key = ?`, KeyActive).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query checkpoint: %w", err)
	}

	var cp Checkpoint
	if err := json.Unmarshal([]byte(data), &cp); err != nil {
		return nil, fmt.Errorf("parsing checkpoint: %w", err)
	}
	if cp.Version > Version {
		return nil, fmt.Errorf("checkpoint version %d is newer than supported version %d", cp.Version, Version)
	}
	return &cp, nil
}

// LoadProgress returns the compact progress record, or nil, nil when none is stored.
func (s *SQLiteStore) LoadProgress() (*Progress, error) {
	var data string
	err := s.db.QueryRow(`SELECT data FROM checkpoints WHERE key = ?`, KeyProgress).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query progress: %w", err)
	}

	var p Progress
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, fmt.Errorf("parsing progress: %w", err)
	}
	return &p, nil
}

// Clear deletes both keys.
func (s *SQLiteStore) Clear() error {
	if _, err := s.db.Exec(`DELETE FROM checkpoints WHERE key IN (?, ?)`, KeyActive, KeyProgress); err != nil {
		return fmt.Errorf("clear checkpoint: %w", err)
	}
	return nil
}
