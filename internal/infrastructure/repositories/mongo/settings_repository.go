package mongo

import (
	"context"
	"errors"
	"fmt"

	"mirrorbot/internal/core/domain"
	"mirrorbot/internal/core/ports"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoSettingsRepository struct {
	coll *mongo.Collection
}

func NewMongoSettingsRepository(coll *mongo.Collection) ports.SettingsRepository {
	return &MongoSettingsRepository{coll: coll}
}

func (r *MongoSettingsRepository) Get(ctx context.Context, userID domain.UserID) (*domain.UserSettings, error) {
	return r.findOne(ctx, bson.M{"_id": int64(userID)})
}

func (r *MongoSettingsRepository) findOne(ctx context.Context, filter bson.M) (*domain.UserSettings, error) {
	var doc settingsDocument
	err := r.coll.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrSettingsNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find settings document: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *MongoSettingsRepository) Set(ctx context.Context, userID domain.UserID, field domain.SettingsField, value string) error {
	if !(&domain.UserSettings{}).SetValue(field, value) {
		return fmt.Errorf("unsupported settings field %q", field)
	}

	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": int64(userID)},
		bson.M{"$set": bson.M{string(field): value}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to set %s: %w", field, err)
	}
	return nil
}

func (r *MongoSettingsRepository) AddCleanWords(ctx context.Context, userID domain.UserID, words []string) ([]string, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After).
		SetProjection(bson.M{string(domain.FieldCleanWords): 1})

	var doc settingsDocument
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": int64(userID)},
		bson.M{"$addToSet": bson.M{string(domain.FieldCleanWords): bson.M{"$each": words}}},
		opts,
	).Decode(&doc)
	if err != nil {
		return nil, fmt.Errorf("failed to add clean words: %w", err)
	}
	return doc.CleanWords, nil
}

func (r *MongoSettingsRepository) Unset(ctx context.Context, userID domain.UserID, fields ...domain.SettingsField) (bool, error) {
	if len(fields) == 0 {
		return false, nil
	}

	unset := bson.M{}
	for _, f := range fields {
		unset[string(f)] = ""
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": int64(userID)}, bson.M{"$unset": unset})
	if err != nil {
		return false, fmt.Errorf("failed to unset settings: %w", err)
	}
	return res.ModifiedCount > 0, nil
}

func (r *MongoSettingsRepository) FindByChatID(ctx context.Context, chatID string) (*domain.UserSettings, error) {
	if chatID == "" {
		return nil, domain.ErrSettingsNotFound
	}
	return r.findOne(ctx, bson.M{"chat_id": chatID})
}
