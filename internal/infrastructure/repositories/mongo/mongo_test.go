package mongo

import (
	"context"
	"testing"
	"time"

	"mirrorbot/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestPremiumDocument_ToDomain(t *testing.T) {
	exp := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	ent, err := (&premiumDocument{UserID: 42, ExpireDate: &exp}).toDomain()
	require.NoError(t, err)
	assert.Equal(t, domain.UserID(42), ent.UserID)
	assert.True(t, ent.ExpireAt.Equal(exp))

	_, err = (&premiumDocument{UserID: 42}).toDomain()
	assert.ErrorIs(t, err, domain.ErrNotEntitled)
}

func TestSettingsDocument_ToDomain(t *testing.T) {
	doc := &settingsDocument{UserID: 1, ChatID: "-100", CleanWords: []string{"a"}, ThumbnailFileID: "f"}
	s := doc.toDomain()
	assert.Equal(t, domain.UserID(1), s.UserID)
	assert.Equal(t, "-100", s.ChatID)
	assert.Equal(t, []string{"a"}, s.CleanWords)
	assert.Equal(t, "f", s.ThumbnailFileID)
}

func TestEntitlementRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	exp := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)

	mt.Run("get existing", func(mt *mtest.T) {
		repo := NewMongoEntitlementRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "user_data.premium_db", mtest.FirstBatch,
			bson.D{{Key: "_id", Value: int64(42)}, {Key: "expire_date", Value: exp}},
		))

		ent, err := repo.Get(context.Background(), 42)
		require.NoError(mt, err)
		assert.True(mt, ent.ExpireAt.Equal(exp))
	})

	mt.Run("get missing", func(mt *mtest.T) {
		repo := NewMongoEntitlementRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "user_data.premium_db", mtest.FirstBatch))

		_, err := repo.Get(context.Background(), 42)
		assert.ErrorIs(mt, err, domain.ErrNotEntitled)
	})

	mt.Run("get without expiry", func(mt *mtest.T) {
		repo := NewMongoEntitlementRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "user_data.premium_db", mtest.FirstBatch,
			bson.D{{Key: "_id", Value: int64(42)}},
		))

		_, err := repo.Get(context.Background(), 42)
		assert.ErrorIs(mt, err, domain.ErrNotEntitled)
	})

	mt.Run("upsert and remove", func(mt *mtest.T) {
		repo := NewMongoEntitlementRepository(mt.Coll)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
		)

		require.NoError(mt, repo.Upsert(context.Background(), 42, exp))
		require.NoError(mt, repo.Remove(context.Background(), 42))
	})

	mt.Run("remove expired only", func(mt *mtest.T) {
		repo := NewMongoEntitlementRepository(mt.Coll)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}),
		)

		removed, err := repo.RemoveExpired(context.Background(), 42, exp)
		require.NoError(mt, err)
		assert.True(mt, removed)

		removed, err = repo.RemoveExpired(context.Background(), 42, exp)
		require.NoError(mt, err)
		assert.False(mt, removed)
	})

	mt.Run("list ids", func(mt *mtest.T) {
		repo := NewMongoEntitlementRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "user_data.premium_db", mtest.FirstBatch,
			bson.D{{Key: "_id", Value: int64(1)}},
			bson.D{{Key: "_id", Value: int64(2)}},
		))

		ids, err := repo.ListUserIDs(context.Background())
		require.NoError(mt, err)
		assert.Equal(mt, []domain.UserID{1, 2}, ids)
	})

	mt.Run("server error", func(mt *mtest.T) {
		repo := NewMongoEntitlementRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    91,
			Message: "shutdown in progress",
			Name:    "ShutdownInProgress",
		}))

		_, err := repo.Get(context.Background(), 42)
		assert.Error(mt, err)
		assert.NotErrorIs(mt, err, domain.ErrNotEntitled)
	})
}

func TestSettingsRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("find by chat id", func(mt *mtest.T) {
		repo := NewMongoSettingsRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "user_data.users_data_db", mtest.FirstBatch,
			bson.D{
				{Key: "_id", Value: int64(9)},
				{Key: "chat_id", Value: "-100555"},
				{Key: "rename_tag", Value: "@tag"},
			},
		))

		s, err := repo.FindByChatID(context.Background(), "-100555")
		require.NoError(mt, err)
		assert.Equal(mt, domain.UserID(9), s.UserID)
		assert.Equal(mt, "@tag", s.RenameTag)
	})

	mt.Run("add clean words returns merged list", func(mt *mtest.T) {
		repo := NewMongoSettingsRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{
			Key: "value",
			Value: bson.D{
				{Key: "_id", Value: int64(9)},
				{Key: "clean_words", Value: bson.A{"a", "b", "c"}},
			},
		}))

		words, err := repo.AddCleanWords(context.Background(), 9, []string{"b", "c"})
		require.NoError(mt, err)
		assert.Equal(mt, []string{"a", "b", "c"}, words)
	})

	mt.Run("unset reports modification", func(mt *mtest.T) {
		repo := NewMongoSettingsRepository(mt.Coll)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 0}),
		)

		changed, err := repo.Unset(context.Background(), 9, domain.FieldSession)
		require.NoError(mt, err)
		assert.True(mt, changed)

		changed, err = repo.Unset(context.Background(), 9, domain.FieldSession)
		require.NoError(mt, err)
		assert.False(mt, changed)
	})

	mt.Run("set rejects list field", func(mt *mtest.T) {
		repo := NewMongoSettingsRepository(mt.Coll)
		assert.Error(mt, repo.Set(context.Background(), 9, domain.FieldCleanWords, "x"))
	})

	mt.Run("missing user", func(mt *mtest.T) {
		repo := NewMongoSettingsRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "user_data.users_data_db", mtest.FirstBatch))

		_, err := repo.Get(context.Background(), 9)
		assert.ErrorIs(mt, err, domain.ErrSettingsNotFound)
	})
}
