package services

import (
	"context"
	"time"

	"dealflow/internal/lifecycle"
	"dealflow/internal/logging"
	"dealflow/internal/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TaskService applies lifecycle transitions to stored tasks. Each operation
// is a synchronous load-apply-persist on a single task document; sibling
// tasks are never touched. Failed transitions leave the store unchanged.
type TaskService struct {
	store TaskStore
	now   func() time.Time
}

// NewTaskService creates a new task service
func NewTaskService(store TaskStore) *TaskService {
	return &TaskService{
		store: store,
		now:   time.Now,
	}
}

// Create persists a new task supplied by the external generator or the UI.
// The guidance payload is stored as-is, never interpreted.
func (s *TaskService) Create(ctx context.Context, task *models.Task) (*models.Task, error) {
	if task.SellerID == "" {
		return nil, lifecycle.ValidationFailed("seller_id", "task must have an assignee")
	}
	if task.Title == "" {
		return nil, lifecycle.ValidationFailed("title", "task title is required")
	}
	if task.Kind == "" {
		task.Kind = models.TaskKindOther
	}
	if task.ScheduledAt.IsZero() {
		return nil, lifecycle.ValidationFailed("scheduled_at", "task must have a scheduled time")
	}
	task.Status = models.TaskStatusPending

	if err := s.store.Create(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// Get returns a single task by id, scoped to the seller
func (s *TaskService) Get(ctx context.Context, sellerID string, taskID primitive.ObjectID) (*models.Task, error) {
	return s.store.Get(ctx, sellerID, taskID)
}

// Start moves a pending task to in_progress
func (s *TaskService) Start(ctx context.Context, sellerID string, taskID primitive.ObjectID) (*models.Task, error) {
	return s.apply(ctx, sellerID, taskID, lifecycle.ActionStart, func(t *models.Task, now time.Time) error {
		return lifecycle.Start(t, now)
	})
}

// Complete finishes an in-progress task with the caller-supplied execution record
func (s *TaskService) Complete(ctx context.Context, sellerID string, taskID primitive.ObjectID, in lifecycle.CompletionInput) (*models.Task, error) {
	return s.apply(ctx, sellerID, taskID, lifecycle.ActionComplete, func(t *models.Task, now time.Time) error {
		return lifecycle.Complete(t, now, in)
	})
}

// Skip abandons a task for the day
func (s *TaskService) Skip(ctx context.Context, sellerID string, taskID primitive.ObjectID) (*models.Task, error) {
	return s.apply(ctx, sellerID, taskID, lifecycle.ActionSkip, func(t *models.Task, now time.Time) error {
		return lifecycle.Skip(t, now)
	})
}

// Dismiss archives a task
func (s *TaskService) Dismiss(ctx context.Context, sellerID string, taskID primitive.ObjectID) (*models.Task, error) {
	return s.apply(ctx, sellerID, taskID, lifecycle.ActionDismiss, func(t *models.Task, now time.Time) error {
		return lifecycle.Dismiss(t, now)
	})
}

// Snooze postpones a task to a later time with a reason
func (s *TaskService) Snooze(ctx context.Context, sellerID string, taskID primitive.ObjectID, until time.Time, reason string) (*models.Task, error) {
	return s.apply(ctx, sellerID, taskID, lifecycle.ActionSnooze, func(t *models.Task, now time.Time) error {
		return lifecycle.Snooze(t, now, until, reason)
	})
}

// Restore brings a snoozed or dismissed task back to pending
func (s *TaskService) Restore(ctx context.Context, sellerID string, taskID primitive.ObjectID) (*models.Task, error) {
	return s.apply(ctx, sellerID, taskID, lifecycle.ActionRestore, func(t *models.Task, now time.Time) error {
		return lifecycle.Restore(t, now)
	})
}

// apply runs one transition: load, mutate in memory, persist. A rejected
// transition or validation failure returns before the store is written.
func (s *TaskService) apply(ctx context.Context, sellerID string, taskID primitive.ObjectID, action lifecycle.TaskAction, mutate func(*models.Task, time.Time) error) (*models.Task, error) {
	requestID := uuid.NewString()
	logger := logging.WithTask(requestID, taskID.Hex(), sellerID)

	task, err := s.store.Get(ctx, sellerID, taskID)
	if err != nil {
		recordTransition(action, "load_failed")
		return nil, err
	}

	fromStatus := task.Status
	if err := mutate(task, s.now()); err != nil {
		logger.Debug("transition rejected", "action", action, "from", fromStatus, "error", err)
		recordTransition(action, "rejected")
		return nil, err
	}

	if err := s.store.Put(ctx, task); err != nil {
		recordTransition(action, "store_failed")
		return nil, err
	}

	logger.Info("task transition applied", "action", action, "from", fromStatus, "to", task.Status)
	recordTransition(action, "applied")
	return task, nil
}
