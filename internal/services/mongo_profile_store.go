package services

import (
	"context"
	"errors"

	"dealflow/internal/database"
	"dealflow/internal/lifecycle"
	"dealflow/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoProfileStore handles MongoDB persistence for seller profiles
type MongoProfileStore struct {
	collection *mongo.Collection
}

// NewMongoProfileStore creates a new profile store
func NewMongoProfileStore(mongodb *database.MongoDB) *MongoProfileStore {
	return &MongoProfileStore{
		collection: mongodb.Collection(database.CollectionSellerProfiles),
	}
}

// Get retrieves the profile for a seller
func (s *MongoProfileStore) Get(ctx context.Context, sellerID string) (*models.SellerProfile, error) {
	var profile models.SellerProfile
	err := s.collection.FindOne(ctx, bson.M{"sellerId": sellerID}).Decode(&profile)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, lifecycle.NotFound("profile", sellerID)
		}
		return nil, lifecycle.StoreUnavailable("get profile", err)
	}
	return &profile, nil
}

// Put upserts the profile document keyed by seller. Last write wins.
func (s *MongoProfileStore) Put(ctx context.Context, profile *models.SellerProfile) error {
	result, err := s.collection.ReplaceOne(ctx,
		bson.M{"sellerId": profile.SellerID},
		profile,
		options.Replace().SetUpsert(true))
	if err != nil {
		return lifecycle.StoreUnavailable("put profile", err)
	}
	if oid, ok := result.UpsertedID.(primitive.ObjectID); ok {
		profile.ID = oid
	}
	return nil
}
