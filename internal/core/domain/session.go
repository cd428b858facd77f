package domain

import "time"

// ConversationSession tracks a settings dialog a user is in the middle of.
type ConversationSession struct {
	ID        string
	UserID    UserID
	Action    Action
	StartedAt time.Time
	ExpiresAt time.Time
}

func (s *ConversationSession) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}
