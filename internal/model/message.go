package model

import (
	"time"
)

// Sender identifies who authored a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Message represents a conversation message. Messages are immutable once
// appended to a session.
type Message struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Sender    Sender    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	IsError   bool      `json:"is_error,omitempty"`
}

// SendMessageRequest is the request to send a new user message.
type SendMessageRequest struct {
	Content string `json:"content"`
	Mood    string `json:"mood,omitempty"`
}

// SendMessageResponse is the response after the pipeline produced a reply.
type SendMessageResponse struct {
	Message        *Message `json:"message"`
	Reply          *Message `json:"reply"`
	UsedLocalModel bool     `json:"used_local_model"`
}

// ListMessagesResponse is the response for listing a session transcript.
type ListMessagesResponse struct {
	Messages []Message `json:"messages"`
}

// BackendStatus is the ephemeral result of probing the local model backend.
// It is fetched fresh per orchestration call and never cached.
type BackendStatus struct {
	IsAvailable bool   `json:"is_available"`
	ModelLoaded bool   `json:"model_loaded"`
	Status      string `json:"status"`
}
