package ports

import (
	"context"
	"time"

	"mirrorbot/internal/core/domain"
)

// EntitlementRepository stores one premium expiry per user. Single operations
// are atomic per key; nothing is atomic across calls.
type EntitlementRepository interface {
	// Get returns domain.ErrNotEntitled when no record exists or the record
	// has no expiry.
	Get(ctx context.Context, userID domain.UserID) (*domain.Entitlement, error)
	Upsert(ctx context.Context, userID domain.UserID, expireAt time.Time) error
	// Remove is a no-op for unknown users.
	Remove(ctx context.Context, userID domain.UserID) error
	// RemoveExpired deletes the record only if it still expires at or before
	// now, and reports whether it did. A record renewed since it was read
	// survives.
	RemoveExpired(ctx context.Context, userID domain.UserID, now time.Time) (bool, error)
	ListUserIDs(ctx context.Context) ([]domain.UserID, error)
}

type SettingsRepository interface {
	// Get returns domain.ErrSettingsNotFound when the user never saved anything.
	Get(ctx context.Context, userID domain.UserID) (*domain.UserSettings, error)
	Set(ctx context.Context, userID domain.UserID, field domain.SettingsField, value string) error
	// AddCleanWords merges words into the delete list and returns the result.
	AddCleanWords(ctx context.Context, userID domain.UserID, words []string) ([]string, error)
	// Unset clears fields and reports whether any of them held a value.
	Unset(ctx context.Context, userID domain.UserID, fields ...domain.SettingsField) (bool, error)
	FindByChatID(ctx context.Context, chatID string) (*domain.UserSettings, error)
}

// SessionStore keeps at most one live conversation per user.
type SessionStore interface {
	// Begin replaces any existing session of the user.
	Begin(ctx context.Context, session *domain.ConversationSession) error
	// Take returns and deletes the live session, or domain.ErrSessionNotFound.
	Take(ctx context.Context, userID domain.UserID) (*domain.ConversationSession, error)
	Cancel(ctx context.Context, userID domain.UserID) (bool, error)
}
