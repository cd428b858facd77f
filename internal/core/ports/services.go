package ports

import (
	"context"
	"time"

	"mirrorbot/internal/core/domain"
)

type EntitlementService interface {
	Grant(ctx context.Context, userID domain.UserID, expr domain.DurationExpression) (*domain.Grant, error)
	Query(ctx context.Context, userID domain.UserID) (*domain.Status, error)
	Transfer(ctx context.Context, from, to domain.UserID) (*domain.Transfer, error)
	Remove(ctx context.Context, userID domain.UserID) error
}

type SweepService interface {
	Sweep(ctx context.Context) (*domain.SweepReport, error)
}

type ConversationService interface {
	Begin(ctx context.Context, userID domain.UserID, action domain.Action) (*domain.ConversationSession, error)
	Take(ctx context.Context, userID domain.UserID) (*domain.ConversationSession, error)
	Cancel(ctx context.Context, userID domain.UserID) (bool, error)
}

type SettingsService interface {
	Get(ctx context.Context, userID domain.UserID) (*domain.UserSettings, error)
	SetChat(ctx context.Context, userID domain.UserID, input string) (string, error)
	SetRenameTag(ctx context.Context, userID domain.UserID, tag string) (string, error)
	SetCaption(ctx context.Context, userID domain.UserID, caption string) error
	SetReplacement(ctx context.Context, userID domain.UserID, input string) (word, replacement string, err error)
	AddDeleteWords(ctx context.Context, userID domain.UserID, input string) ([]string, error)
	SetSession(ctx context.Context, userID domain.UserID, session string) error
	SetThumbnail(ctx context.Context, userID domain.UserID, fileID string) error
	Logout(ctx context.Context, userID domain.UserID) (bool, error)
	Reset(ctx context.Context, userID domain.UserID) error
	RemoveThumbnail(ctx context.Context, userID domain.UserID) (bool, error)
	RenameFile(ctx context.Context, userID domain.UserID, fileName string) (string, error)
	RenderCaption(ctx context.Context, userID domain.UserID, original string) (string, error)
}

type MirrorService interface {
	// Target reports whether a post in chatID must be mirrored. Copies the bot
	// made itself are never mirrored again.
	Target(ctx context.Context, chatID int64, messageID int) (bool, error)
	RememberCopy(chatID int64, messageID int)
	// Forget drops cached lookups after a target chat changed.
	Forget(chatIDs ...int64)
	// Close stops the cache janitors.
	Close()
}

// ExpiryNotifier delivers the expiry notice of the sweep.
type ExpiryNotifier interface {
	NotifyExpired(ctx context.Context, userID domain.UserID, name string) error
}

// SweepReporter publishes a sweep summary to operators.
type SweepReporter interface {
	ReportSweep(ctx context.Context, report *domain.SweepReport) error
}

type UserDirectory interface {
	Lookup(ctx context.Context, userID domain.UserID) (*domain.User, error)
}

// ChatResolver resolves a chat reference and checks that the bot administers it.
type ChatResolver interface {
	ResolveAdminChat(ctx context.Context, ref domain.ChatRef) (int64, error)
}

type MetricsRecorder interface {
	RecordGrant(unit domain.Unit)
	RecordTransfer()
	RecordRemoval(reason string)
	RecordNotification(kind string, err error)
	RecordSweep(duration time.Duration, report *domain.SweepReport)
	RecordCommand(command string, duration time.Duration, err error)
	RecordMirror(kind string, err error)
	RecordStoreCall(operation string, duration time.Duration, err error)
}
