package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mirrorbot/internal/core/domain"
	"mirrorbot/internal/core/ports"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoEntitlementRepository keeps one {_id, expire_date} document per user.
// Single document writes give the per-key atomicity the services rely on.
type MongoEntitlementRepository struct {
	coll *mongo.Collection
}

func NewMongoEntitlementRepository(coll *mongo.Collection) ports.EntitlementRepository {
	return &MongoEntitlementRepository{coll: coll}
}

func (r *MongoEntitlementRepository) Get(ctx context.Context, userID domain.UserID) (*domain.Entitlement, error) {
	var doc premiumDocument
	err := r.coll.FindOne(ctx, bson.M{"_id": int64(userID)}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotEntitled
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find premium document: %w", err)
	}
	return doc.toDomain()
}

func (r *MongoEntitlementRepository) Upsert(ctx context.Context, userID domain.UserID, expireAt time.Time) error {
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": int64(userID)},
		bson.M{"$set": bson.M{"expire_date": expireAt.UTC()}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert premium document: %w", err)
	}
	return nil
}

func (r *MongoEntitlementRepository) Remove(ctx context.Context, userID domain.UserID) error {
	if _, err := r.coll.DeleteOne(ctx, bson.M{"_id": int64(userID)}); err != nil {
		return fmt.Errorf("failed to delete premium document: %w", err)
	}
	return nil
}

func (r *MongoEntitlementRepository) RemoveExpired(ctx context.Context, userID domain.UserID, now time.Time) (bool, error) {
	res, err := r.coll.DeleteOne(ctx, bson.M{
		"_id":         int64(userID),
		"expire_date": bson.M{"$lte": now.UTC()},
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete expired premium document: %w", err)
	}
	return res.DeletedCount > 0, nil
}

func (r *MongoEntitlementRepository) ListUserIDs(ctx context.Context) ([]domain.UserID, error) {
	cur, err := r.coll.Find(ctx, bson.M{}, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, fmt.Errorf("failed to list premium documents: %w", err)
	}
	defer cur.Close(ctx)

	var ids []domain.UserID
	for cur.Next(ctx) {
		var doc premiumDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode premium document: %w", err)
		}
		ids = append(ids, domain.UserID(doc.UserID))
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate premium documents: %w", err)
	}
	return ids, nil
}
