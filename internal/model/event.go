package model

import (
	"time"
)

// EventType represents the type of session event emitted by the pipeline.
type EventType string

const (
	EventTypeCrisisDetected   EventType = "crisis_detected"
	EventTypeProviderFallback EventType = "provider_fallback"
	EventTypeSafetyBlocked    EventType = "safety_blocked"
	EventTypeBackendProbe     EventType = "backend_probe"
	EventTypeRequestError     EventType = "request_error"
)

// SessionEvent records a notable pipeline occurrence for downstream review
// tooling. Events are telemetry; they never influence the response returned
// to the user.
type SessionEvent struct {
	ID        string         `json:"id"`
	SessionID string         `json:"session_id"`
	Type      EventType      `json:"type"`
	Reason    string         `json:"reason,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
