package services

import (
	"context"
	"errors"
	"time"

	"dealflow/internal/database"
	"dealflow/internal/lifecycle"
	"dealflow/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoTaskStore handles MongoDB CRUD for seller tasks
type MongoTaskStore struct {
	collection *mongo.Collection
}

// NewMongoTaskStore creates a new task store
func NewMongoTaskStore(mongodb *database.MongoDB) *MongoTaskStore {
	return &MongoTaskStore{
		collection: mongodb.Collection(database.CollectionTasks),
	}
}

// Create inserts a new task
func (s *MongoTaskStore) Create(ctx context.Context, task *models.Task) error {
	now := time.Now()
	task.CreatedAt = now
	task.UpdatedAt = now
	if task.Status == "" {
		task.Status = models.TaskStatusPending
	}

	result, err := s.collection.InsertOne(ctx, task)
	if err != nil {
		return lifecycle.StoreUnavailable("create task", err)
	}

	task.ID = result.InsertedID.(primitive.ObjectID)
	return nil
}

// Get retrieves a task by ID, scoped to seller
func (s *MongoTaskStore) Get(ctx context.Context, sellerID string, taskID primitive.ObjectID) (*models.Task, error) {
	var task models.Task
	err := s.collection.FindOne(ctx, bson.M{
		"_id":      taskID,
		"sellerId": sellerID,
	}).Decode(&task)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, lifecycle.NotFound("task", taskID.Hex())
		}
		return nil, lifecycle.StoreUnavailable("get task", err)
	}
	return &task, nil
}

// Put replaces the full task document. Last write wins.
func (s *MongoTaskStore) Put(ctx context.Context, task *models.Task) error {
	result, err := s.collection.ReplaceOne(ctx, bson.M{
		"_id":      task.ID,
		"sellerId": task.SellerID,
	}, task)
	if err != nil {
		return lifecycle.StoreUnavailable("put task", err)
	}
	if result.MatchedCount == 0 {
		return lifecycle.NotFound("task", task.ID.Hex())
	}
	return nil
}

// List returns tasks for a seller with optional filters, scheduledAt ascending
func (s *MongoTaskStore) List(ctx context.Context, sellerID string, filters TaskFilters) ([]models.Task, error) {
	filter := bson.M{"sellerId": sellerID}
	if len(filters.Statuses) > 0 {
		filter["status"] = bson.M{"$in": filters.Statuses}
	}
	if filters.ScheduledFrom != nil || filters.ScheduledTo != nil {
		window := bson.M{}
		if filters.ScheduledFrom != nil {
			window["$gte"] = *filters.ScheduledFrom
		}
		if filters.ScheduledTo != nil {
			window["$lt"] = *filters.ScheduledTo
		}
		filter["scheduledAt"] = window
	}

	limit := int64(200)
	if filters.Limit > 0 && filters.Limit <= 500 {
		limit = filters.Limit
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "scheduledAt", Value: 1}}).
		SetLimit(limit)

	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, lifecycle.StoreUnavailable("list tasks", err)
	}
	defer cursor.Close(ctx)

	var tasks []models.Task
	if err := cursor.All(ctx, &tasks); err != nil {
		return nil, lifecycle.StoreUnavailable("decode tasks", err)
	}
	return tasks, nil
}

// ListDueSnoozed returns snoozed tasks across sellers whose snoozedUntil has passed
func (s *MongoTaskStore) ListDueSnoozed(ctx context.Context, before time.Time, limit int64) ([]models.Task, error) {
	if limit <= 0 {
		limit = 100
	}

	cursor, err := s.collection.Find(ctx, bson.M{
		"status":       models.TaskStatusSnoozed,
		"snoozedUntil": bson.M{"$lte": before},
	}, options.Find().
		SetSort(bson.D{{Key: "snoozedUntil", Value: 1}}).
		SetLimit(limit))
	if err != nil {
		return nil, lifecycle.StoreUnavailable("list due snoozed tasks", err)
	}
	defer cursor.Close(ctx)

	var tasks []models.Task
	if err := cursor.All(ctx, &tasks); err != nil {
		return nil, lifecycle.StoreUnavailable("decode due snoozed tasks", err)
	}
	return tasks, nil
}
