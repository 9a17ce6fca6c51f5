// Package session provides in-memory conversation session state. Sessions
// live for the lifetime of the process; there is no persistence layer.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/serene-mind/companion-api/internal/model"
	"github.com/serene-mind/companion-api/pkg/metrics"
)

// WelcomeMessage seeds every new session.
const WelcomeMessage = "Welcome to Serene Mind. I'm here to support your mental wellbeing. How are you feeling today?"

// ErrSessionNotFound is returned for unknown session identifiers.
var ErrSessionNotFound = errors.New("session not found")

// Store holds conversation sessions and their transcripts.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*model.Session
	messages map[string][]model.Message
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*model.Session),
		messages: make(map[string][]model.Message),
	}
}

// Create provisions a new session seeded with the welcome message.
func (s *Store) Create(_ context.Context) (*model.Session, *model.Message) {
	now := time.Now()

	sess := &model.Session{
		ID:        uuid.Must(uuid.NewV7()).String(),
		CreatedAt: now,
		UpdatedAt: now,
	}

	welcome := model.Message{
		ID:        uuid.Must(uuid.NewV7()).String(),
		SessionID: sess.ID,
		Sender:    model.SenderBot,
		Text:      WelcomeMessage,
		Timestamp: now,
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.messages[sess.ID] = []model.Message{welcome}
	sess.MessageCount = 1
	s.mu.Unlock()

	metrics.MessagesTotal.WithLabelValues(string(model.SenderBot)).Inc()

	return sess, &welcome
}

// Get retrieves a session by ID.
func (s *Store) Get(_ context.Context, sessionID string) (*model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// Append adds a message to the session transcript and returns the stored
// copy. Messages are immutable once appended.
func (s *Store) Append(_ context.Context, sessionID string, sender model.Sender, text string, isError bool) (*model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}

	msg := model.Message{
		ID:        uuid.Must(uuid.NewV7()).String(),
		SessionID: sessionID,
		Sender:    sender,
		Text:      text,
		Timestamp: time.Now(),
		IsError:   isError,
	}

	s.messages[sessionID] = append(s.messages[sessionID], msg)
	sess.MessageCount++
	sess.UpdatedAt = msg.Timestamp

	metrics.MessagesTotal.WithLabelValues(string(sender)).Inc()

	return &msg, nil
}

// Transcript returns a copy of the session's messages in append order.
func (s *Store) Transcript(_ context.Context, sessionID string) ([]model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs, ok := s.messages[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}

	copied := make([]model.Message, len(msgs))
	copy(copied, msgs)
	return copied, nil
}
