// Package model defines data structures for the companion service.
package model

import (
	"time"
)

// Session represents one in-memory conversation session. Sessions live for
// the lifetime of the process only; there is no database.
type Session struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
}

// CreateSessionResponse is returned when a session is created. It carries the
// seeded welcome message so clients can render it immediately.
type CreateSessionResponse struct {
	Session Session `json:"session"`
	Welcome Message `json:"welcome"`
}
