package session

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Store provides SQLite-backed persistence for session history.
type Store struct {
	db *sql.DB
}

// NewStore opens the SQLite database at dbPath and creates tables if they don't exist.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := createTables(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func createTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		remote_id TEXT NOT NULL,
		tier TEXT NOT NULL,
		mode TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS responses (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		question_id TEXT NOT NULL,
		answer TEXT NOT NULL,
		score INTEGER NOT NULL,
		phase TEXT NOT NULL,
		response_time_ms INTEGER DEFAULT 0,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (session_id) REFERENCES sessions(id)
	);
	`
	_, err := db.Exec(schema)
	return err
}

// CreateSession records a new active session for the given remote id.
func (s *Store) CreateSession(remoteID, tier, mode string) (*Session, error) {
	id := uuid.New().String()
	now := time.Now()

	_, err := s.db.Exec(
		`INSERT INTO sessions (id, remote_id, tier, mode, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, remoteID, tier, mode, StatusActive, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}

	return &Session{
		ID:        id,
		RemoteID:  remoteID,
		Tier:      tier,
		Mode:      mode,
		Status:    StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// GetByRemoteID returns the most recent session for a remote id, or nil if none.
func (s *Store) GetByRemoteID(remoteID string) (*Session, error) {
	row := s.db.QueryRow(
		`SELECT id, remote_id, tier, mode, status, created_at, updated_at
		 FROM sessions WHERE remote_id = ?
		 ORDER BY created_at DESC
		 LIMIT 1`,
		remoteID,
	)

	var sess Session
	err := row.Scan(&sess.ID, &sess.RemoteID, &sess.Tier, &sess.Mode, &sess.Status, &sess.CreatedAt, &sess.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan session: %w", err)
	}

	return &sess, nil
}

// SetStatus updates the status of a session.
func (s *Store) SetStatus(id, status string) error {
	_, err := s.db.Exec(
		`UPDATE sessions SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return nil
}

// ListSessions returns summaries of the most recent sessions.
func (s *Store) ListSessions(limit int) ([]Summary, error) {
	rows, err := s.db.Query(
		`SELECT s.id, s.remote_id, s.tier, s.status, s.updated_at,
		        COALESCE(COUNT(r.id), 0) as responses
		 FROM sessions s
		 LEFT JOIN responses r ON s.id = r.session_id
		 GROUP BY s.id
		 ORDER BY s.updated_at DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var summaries []Summary
	for rows.Next() {
		var sum Summary
		if err := rows.Scan(&sum.ID, &sum.RemoteID, &sum.Tier, &sum.Status, &sum.UpdatedAt, &sum.Responses); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		summaries = append(summaries, sum)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return summaries, nil
}

// AddResponse appends a response to the session's ledger mirror.
func (s *Store) AddResponse(sessionID string, r Response) error {
	_, err := s.db.Exec(
		`INSERT INTO responses (session_id, question_id, answer, score, phase, response_time_ms, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sessionID, r.QuestionID, r.Answer, r.Score, r.Phase, r.ResponseTimeMs, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("insert response: %w", err)
	}

	_, err = s.db.Exec(`UPDATE sessions SET updated_at = ? WHERE id = ?`, time.Now(), sessionID)
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return nil
}

// RemoveLastResponse deletes the most recent response of a session.
func (s *Store) RemoveLastResponse(sessionID string) error {
	_, err := s.db.Exec(
		`DELETE FROM responses WHERE id = (
			SELECT id FROM responses WHERE session_id = ? ORDER BY id DESC LIMIT 1
		 )`,
		sessionID,
	)
	if err != nil {
		return fmt.Errorf("delete response: %w", err)
	}
	return nil
}

// GetResponses retrieves all responses for a session in answer order.
func (s *Store) GetResponses(sessionID string) ([]Response, error) {
	rows, err := s.db.Query(
		`SELECT id, session_id, question_id, answer, score, phase, response_time_ms, timestamp
		 FROM responses
		 WHERE session_id = ?
		 ORDER BY id ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query responses: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var responses []Response
	for rows.Next() {
		var r Response
		if err := rows.Scan(&r.ID, &r.SessionID, &r.QuestionID, &r.Answer, &r.Score, &r.Phase, &r.ResponseTimeMs, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("scan response: %w", err)
		}
		responses = append(responses, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return responses, nil
}
