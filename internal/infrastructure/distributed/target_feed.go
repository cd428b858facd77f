package distributed

import (
	"context"
	"errors"
	"slices"
	"strconv"

	"mirrorbot/internal/core/domain"
	"mirrorbot/internal/core/ports"

	"go.uber.org/zap"
)

// TargetFeed decorates a settings repository and announces every change of a
// user's target chat. Local caches are invalidated directly; other instances
// learn about it through the event bus.
type TargetFeed struct {
	ports.SettingsRepository

	forget func(chatIDs ...int64)
	bus    *EventBus
	logger *zap.SugaredLogger
}

// NewTargetFeed wraps repo. bus may be nil for a single instance.
func NewTargetFeed(
	repo ports.SettingsRepository,
	forget func(chatIDs ...int64),
	bus *EventBus,
	logger *zap.SugaredLogger,
) *TargetFeed {
	return &TargetFeed{
		SettingsRepository: repo,
		forget:             forget,
		bus:                bus,
		logger:             logger,
	}
}

func (f *TargetFeed) Set(ctx context.Context, userID domain.UserID, field domain.SettingsField, value string) error {
	if field != domain.FieldChatID {
		return f.SettingsRepository.Set(ctx, userID, field, value)
	}

	previous := f.currentChat(ctx, userID)
	if err := f.SettingsRepository.Set(ctx, userID, field, value); err != nil {
		return err
	}
	f.announce(ctx, userID, previous, value)
	return nil
}

func (f *TargetFeed) Unset(ctx context.Context, userID domain.UserID, fields ...domain.SettingsField) (bool, error) {
	if !slices.Contains(fields, domain.FieldChatID) {
		return f.SettingsRepository.Unset(ctx, userID, fields...)
	}

	previous := f.currentChat(ctx, userID)
	removed, err := f.SettingsRepository.Unset(ctx, userID, fields...)
	if err != nil {
		return removed, err
	}
	f.announce(ctx, userID, previous)
	return removed, nil
}

// Handle applies an event received from another instance.
func (f *TargetFeed) Handle(event *Event) error {
	if event.Type != EventTargetChanged {
		return nil
	}
	f.forget(event.ChatIDs...)
	return nil
}

// Run subscribes to the event bus until ctx is done. Without a bus it only
// waits.
func (f *TargetFeed) Run(ctx context.Context) error {
	if f.bus == nil {
		<-ctx.Done()
		return nil
	}
	err := f.bus.Subscribe(ctx, f.Handle)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (f *TargetFeed) currentChat(ctx context.Context, userID domain.UserID) string {
	settings, err := f.SettingsRepository.Get(ctx, userID)
	if err != nil {
		return ""
	}
	return settings.ChatID
}

func (f *TargetFeed) announce(ctx context.Context, userID domain.UserID, chats ...string) {
	ids := make([]int64, 0, len(chats))
	for _, c := range chats {
		id, err := strconv.ParseInt(c, 10, 64)
		if err != nil || slices.Contains(ids, id) {
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return
	}

	f.forget(ids...)

	if f.bus == nil {
		return
	}
	if err := f.bus.PublishTargetChanged(ctx, userID, ids...); err != nil {
		f.logger.Warnw("failed to publish target change",
			"user_id", userID,
			"chat_ids", ids,
			"error", err,
		)
	}
}
