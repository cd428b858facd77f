package memory

import (
	"context"
	"testing"
	"time"

	"mirrorbot/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntitlementRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryEntitlementRepository()

	_, err := repo.Get(ctx, 1)
	assert.ErrorIs(t, err, domain.ErrNotEntitled)

	expire := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, repo.Upsert(ctx, 2, expire))
	require.NoError(t, repo.Upsert(ctx, 1, expire.Add(time.Hour)))

	ent, err := repo.Get(ctx, 2)
	require.NoError(t, err)
	assert.True(t, ent.ExpireAt.Equal(expire))

	ids, err := repo.ListUserIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.UserID{1, 2}, ids)

	require.NoError(t, repo.Remove(ctx, 2))
	require.NoError(t, repo.Remove(ctx, 2), "removing a missing record is a no-op")
	_, err = repo.Get(ctx, 2)
	assert.ErrorIs(t, err, domain.ErrNotEntitled)
}

func TestEntitlementRepository_RemoveExpiredKeepsRenewed(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryEntitlementRepository()
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, repo.Upsert(ctx, 1, now))
	require.NoError(t, repo.Upsert(ctx, 2, now.Add(time.Second)))

	removed, err := repo.RemoveExpired(ctx, 1, now)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = repo.RemoveExpired(ctx, 2, now)
	require.NoError(t, err)
	assert.False(t, removed)

	removed, err = repo.RemoveExpired(ctx, 9, now)
	require.NoError(t, err)
	assert.False(t, removed)

	ids, err := repo.ListUserIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.UserID{2}, ids)
}

func TestEntitlementRepository_ZeroExpiryIsNotEntitled(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryEntitlementRepository()

	require.NoError(t, repo.Upsert(ctx, 5, time.Time{}))
	_, err := repo.Get(ctx, 5)
	assert.ErrorIs(t, err, domain.ErrNotEntitled)
}

func TestSettingsRepository_SetAndUnset(t *testing.T) {
	ctx := context.Background()
	repo := NewMemorySettingsRepository()

	_, err := repo.Get(ctx, 7)
	assert.ErrorIs(t, err, domain.ErrSettingsNotFound)

	require.NoError(t, repo.Set(ctx, 7, domain.FieldRenameTag, "@tag"))
	require.NoError(t, repo.Set(ctx, 7, domain.FieldSession, "sess"))
	assert.Error(t, repo.Set(ctx, 7, domain.FieldCleanWords, "x"))

	words, err := repo.AddCleanWords(ctx, 7, []string{"a", "b"})
	require.NoError(t, err)
	words, err = repo.AddCleanWords(ctx, 7, []string{"b", "c"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, words)

	changed, err := repo.Unset(ctx, 7, domain.ResetFields...)
	require.NoError(t, err)
	assert.True(t, changed)

	s, err := repo.Get(ctx, 7)
	require.NoError(t, err)
	assert.Empty(t, s.RenameTag)
	assert.Empty(t, s.CleanWords)
	assert.Equal(t, "sess", s.Session)

	changed, err = repo.Unset(ctx, 7, domain.FieldThumbnail)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestSettingsRepository_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	repo := NewMemorySettingsRepository()
	_, err := repo.AddCleanWords(ctx, 1, []string{"x"})
	require.NoError(t, err)

	s, err := repo.Get(ctx, 1)
	require.NoError(t, err)
	s.CleanWords[0] = "mutated"

	again, err := repo.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, again.CleanWords)
}

func TestSettingsRepository_FindByChatID(t *testing.T) {
	ctx := context.Background()
	repo := NewMemorySettingsRepository()
	require.NoError(t, repo.Set(ctx, 3, domain.FieldChatID, "-100123"))

	s, err := repo.FindByChatID(ctx, "-100123")
	require.NoError(t, err)
	assert.Equal(t, domain.UserID(3), s.UserID)

	_, err = repo.FindByChatID(ctx, "-100999")
	assert.ErrorIs(t, err, domain.ErrSettingsNotFound)
}

func TestSessionStore_TakeIsOneShot(t *testing.T) {
	ctx := context.Background()
	store := NewMemorySessionStore(time.Minute)
	defer store.(*MemorySessionStore).Close()

	session := &domain.ConversationSession{
		ID:        "conv_1",
		UserID:    9,
		Action:    domain.ActionSetCaption,
		StartedAt: time.Now(),
		ExpiresAt: time.Now().Add(time.Minute),
	}
	require.NoError(t, store.Begin(ctx, session))

	got, err := store.Take(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionSetCaption, got.Action)

	_, err = store.Take(ctx, 9)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestSessionStore_Cancel(t *testing.T) {
	ctx := context.Background()
	store := NewMemorySessionStore(time.Minute)
	defer store.(*MemorySessionStore).Close()

	cancelled, err := store.Cancel(ctx, 4)
	require.NoError(t, err)
	assert.False(t, cancelled)

	require.NoError(t, store.Begin(ctx, &domain.ConversationSession{
		UserID:    4,
		Action:    domain.ActionSetChat,
		ExpiresAt: time.Now().Add(time.Minute),
	}))
	cancelled, err = store.Cancel(ctx, 4)
	require.NoError(t, err)
	assert.True(t, cancelled)
}
