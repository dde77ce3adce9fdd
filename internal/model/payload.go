package model

import "time"

// Metadata describes a finished session for the report pipeline.
type Metadata struct {
	CompletedAt      time.Time `json:"completedAt"`
	TotalQuestions   int       `json:"totalQuestions"`
	SessionID        string    `json:"sessionId"`
	Tier             Tier      `json:"tier"`
	CompletionTimeMs int64     `json:"completionTimeMs"`
}

// Payload is the object handed to the report pipeline once a session
// completes. Duration is in whole seconds.
type Payload struct {
	Responses []Response `json:"responses"`
	Tier      Tier       `json:"tier"`
	Duration  int64      `json:"duration"`
	Metadata  Metadata   `json:"metadata"`
}
