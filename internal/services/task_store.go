package services

import (
	"context"
	"time"

	"dealflow/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TaskFilters defines filter options for listing tasks
type TaskFilters struct {
	Statuses      []models.TaskStatus // empty = all statuses
	ScheduledFrom *time.Time          // inclusive lower bound on scheduledAt
	ScheduledTo   *time.Time          // exclusive upper bound on scheduledAt
	Limit         int64
}

// TaskStore is the task persistence boundary. Production uses MongoDB;
// tests and store-less dev mode use the in-memory implementation.
// Put is a whole-document replace: last write wins at single-task granularity.
type TaskStore interface {
	Create(ctx context.Context, task *models.Task) error
	Get(ctx context.Context, sellerID string, taskID primitive.ObjectID) (*models.Task, error)
	Put(ctx context.Context, task *models.Task) error
	List(ctx context.Context, sellerID string, filters TaskFilters) ([]models.Task, error)

	// ListDueSnoozed returns snoozed tasks across all sellers whose
	// snoozedUntil has passed. Used by the snooze wake sweep.
	ListDueSnoozed(ctx context.Context, before time.Time, limit int64) ([]models.Task, error)
}

// ProfileStore is the seller profile persistence boundary
type ProfileStore interface {
	// Get returns the profile for a seller, or a NotFound error when the
	// seller has no profile yet.
	Get(ctx context.Context, sellerID string) (*models.SellerProfile, error)
	// Put upserts the profile document. Last write wins.
	Put(ctx context.Context, profile *models.SellerProfile) error
}
