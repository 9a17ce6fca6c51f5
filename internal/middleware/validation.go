package middleware

import (
	"errors"
	"unicode/utf8"

	"github.com/google/uuid"
)

// ValidateMessageContent validates user message content.
func ValidateMessageContent(content string) error {
	if len(content) == 0 {
		return errors.New("content cannot be empty")
	}
	if len(content) > 100000 { // ~100KB limit
		return errors.New("content exceeds maximum length")
	}
	if !utf8.ValidString(content) {
		return errors.New("content must be valid UTF-8")
	}
	return nil
}

// ValidateSessionID validates a session ID.
func ValidateSessionID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.New("invalid session ID format")
	}
	return nil
}

// ValidateMood validates an optional mood label.
func ValidateMood(mood string) error {
	if len(mood) > 64 {
		return errors.New("mood exceeds maximum length")
	}
	if !utf8.ValidString(mood) {
		return errors.New("mood must be valid UTF-8")
	}
	return nil
}
