// Package session provides SQLite-backed history for assessment sessions.
package session

import "time"

// Session status values.
const (
	StatusActive    = "active"
	StatusComplete  = "complete"
	StatusAbandoned = "abandoned"
)

// Session represents one assessment run as seen locally.
type Session struct {
	ID        string // local id
	RemoteID  string // session id issued by the scoring service
	Tier      string
	Mode      string
	Status    string // active, complete, abandoned
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Response mirrors one recorded answer.
type Response struct {
	ID             int
	SessionID      string
	QuestionID     string
	Answer         string
	Score          int
	Phase          string
	ResponseTimeMs int64
	Timestamp      time.Time
}

// Summary provides a high-level view of a session for listing.
type Summary struct {
	ID        string
	RemoteID  string
	Tier      string
	Status    string
	Responses int
	UpdatedAt time.Time
}
