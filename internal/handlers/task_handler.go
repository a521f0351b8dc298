package handlers

import (
	"context"
	"errors"
	"log"
	"time"

	"dealflow/internal/lifecycle"
	"dealflow/internal/models"
	"dealflow/internal/services"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TaskHandler handles task lifecycle API endpoints
type TaskHandler struct {
	taskService       *services.TaskService
	collectionService *services.TaskCollectionService
	contextService    *services.SellerContextService
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(
	taskService *services.TaskService,
	collectionService *services.TaskCollectionService,
	contextService *services.SellerContextService,
) *TaskHandler {
	return &TaskHandler{
		taskService:       taskService,
		collectionService: collectionService,
		contextService:    contextService,
	}
}

// CreateTaskRequest is the payload for task creation
type CreateTaskRequest struct {
	Title       string               `json:"title"`
	Description string               `json:"description"`
	Kind        models.TaskKind      `json:"kind"`
	ScheduledAt time.Time            `json:"scheduled_at"`
	Guidance    *models.TaskGuidance `json:"guidance"`
}

// CreateTask persists a new task for the authenticated seller
// POST /api/v1/tasks
func (h *TaskHandler) CreateTask(c *fiber.Ctx) error {
	sellerID, ok := c.Locals("user_id").(string)
	if !ok || sellerID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	var req CreateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	ctx, cancel := requestContext()
	defer cancel()

	task, err := h.taskService.Create(ctx, &models.Task{
		SellerID:    sellerID,
		Title:       req.Title,
		Description: req.Description,
		Kind:        req.Kind,
		ScheduledAt: req.ScheduledAt,
		Guidance:    req.Guidance,
	})
	if err != nil {
		return respondLifecycleError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(task)
}

// GetTask returns a single task by id
// GET /api/v1/tasks/:id
func (h *TaskHandler) GetTask(c *fiber.Ctx) error {
	sellerID, taskID, ok := sellerAndTaskID(c)
	if !ok {
		return nil
	}

	ctx, cancel := requestContext()
	defer cancel()

	task, err := h.taskService.Get(ctx, sellerID, taskID)
	if err != nil {
		return respondLifecycleError(c, err)
	}
	return c.JSON(task)
}

// DailyView partitions the seller's active tasks into today/tomorrow buckets
// GET /api/v1/tasks/daily?today=2026-01-02&tomorrow=2026-01-03&tz=Europe/Rome
func (h *TaskHandler) DailyView(c *fiber.Ctx) error {
	sellerID, ok := c.Locals("user_id").(string)
	if !ok || sellerID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	loc := time.UTC
	if tz := c.Query("tz", ""); tz != "" {
		parsed, err := time.LoadLocation(tz)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Unknown timezone",
			})
		}
		loc = parsed
	}

	today := time.Now().In(loc)
	if raw := c.Query("today", ""); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, loc)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid today date, expected YYYY-MM-DD",
			})
		}
		today = parsed
	}
	tomorrow := today.AddDate(0, 0, 1)
	if raw := c.Query("tomorrow", ""); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, loc)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid tomorrow date, expected YYYY-MM-DD",
			})
		}
		tomorrow = parsed
	}

	ctx, cancel := requestContext()
	defer cancel()

	daily, err := h.collectionService.PartitionByDay(ctx, sellerID, today, tomorrow, loc)
	if err != nil {
		return respondLifecycleError(c, err)
	}

	return c.JSON(fiber.Map{
		"today":                    daily.Today,
		"tomorrow":                 daily.Tomorrow,
		"today_completion_percent": services.CompletionRatio(daily.Today),
	})
}

// ArchivedView returns the seller's snoozed and dismissed tasks
// GET /api/v1/tasks/archived
func (h *TaskHandler) ArchivedView(c *fiber.Ctx) error {
	sellerID, ok := c.Locals("user_id").(string)
	if !ok || sellerID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	ctx, cancel := requestContext()
	defer cancel()

	archived, err := h.collectionService.ArchivedView(ctx, sellerID)
	if err != nil {
		return respondLifecycleError(c, err)
	}
	return c.JSON(archived)
}

// StartTask moves a pending task to in_progress
// POST /api/v1/tasks/:id/start
func (h *TaskHandler) StartTask(c *fiber.Ctx) error {
	return h.transition(c, func(ctx context.Context, sellerID string, taskID primitive.ObjectID) (*models.Task, error) {
		return h.taskService.Start(ctx, sellerID, taskID)
	})
}

// CompleteTaskRequest is the payload for task completion
type CompleteTaskRequest struct {
	Notes               string                     `json:"notes"`
	Outcome             models.TaskOutcome         `json:"outcome"`
	ActualDuration      int                        `json:"actual_duration"`
	Attachments         []models.TaskAttachment    `json:"attachments"`
	AttachmentSummaries []models.AttachmentSummary `json:"attachment_summaries"`
}

// CompleteTask finishes an in-progress task and folds it into the seller's
// profile. The transition and the ingestion are one logical completion: the
// profile ingestion runs exactly once, after the transition persisted.
// POST /api/v1/tasks/:id/complete
func (h *TaskHandler) CompleteTask(c *fiber.Ctx) error {
	sellerID, taskID, ok := sellerAndTaskID(c)
	if !ok {
		return nil
	}

	var req CompleteTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	ctx, cancel := requestContext()
	defer cancel()

	task, err := h.taskService.Complete(ctx, sellerID, taskID, lifecycle.CompletionInput{
		Notes:          req.Notes,
		Outcome:        req.Outcome,
		ActualDuration: req.ActualDuration,
		Attachments:    req.Attachments,
	})
	if err != nil {
		return respondLifecycleError(c, err)
	}

	// Completion is already persisted; an ingestion failure must not be
	// reported as a failed completion, but it is never swallowed either.
	profileUpdated := true
	if _, err := h.contextService.IngestCompletion(ctx, sellerID, task, req.AttachmentSummaries); err != nil {
		log.Printf("❌ [TASK-API] Profile ingestion failed for task %s: %v", taskID.Hex(), err)
		profileUpdated = false
	}

	return c.JSON(fiber.Map{
		"task":            task,
		"profile_updated": profileUpdated,
	})
}

// SkipTask abandons a task for the day
// POST /api/v1/tasks/:id/skip
func (h *TaskHandler) SkipTask(c *fiber.Ctx) error {
	return h.transition(c, func(ctx context.Context, sellerID string, taskID primitive.ObjectID) (*models.Task, error) {
		return h.taskService.Skip(ctx, sellerID, taskID)
	})
}

// DismissTask archives a task
// POST /api/v1/tasks/:id/dismiss
func (h *TaskHandler) DismissTask(c *fiber.Ctx) error {
	return h.transition(c, func(ctx context.Context, sellerID string, taskID primitive.ObjectID) (*models.Task, error) {
		return h.taskService.Dismiss(ctx, sellerID, taskID)
	})
}

// SnoozeTaskRequest is the payload for task snoozing
type SnoozeTaskRequest struct {
	Until  time.Time `json:"until"`
	Reason string    `json:"reason"`
}

// SnoozeTask postpones a task
// POST /api/v1/tasks/:id/snooze
func (h *TaskHandler) SnoozeTask(c *fiber.Ctx) error {
	sellerID, taskID, ok := sellerAndTaskID(c)
	if !ok {
		return nil
	}

	var req SnoozeTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	ctx, cancel := requestContext()
	defer cancel()

	task, err := h.taskService.Snooze(ctx, sellerID, taskID, req.Until, req.Reason)
	if err != nil {
		return respondLifecycleError(c, err)
	}
	return c.JSON(task)
}

// RestoreTask brings an archived task back to pending
// POST /api/v1/tasks/:id/restore
func (h *TaskHandler) RestoreTask(c *fiber.Ctx) error {
	return h.transition(c, func(ctx context.Context, sellerID string, taskID primitive.ObjectID) (*models.Task, error) {
		return h.taskService.Restore(ctx, sellerID, taskID)
	})
}

// transition runs a body-less transition endpoint
func (h *TaskHandler) transition(c *fiber.Ctx, apply func(context.Context, string, primitive.ObjectID) (*models.Task, error)) error {
	sellerID, taskID, ok := sellerAndTaskID(c)
	if !ok {
		return nil
	}

	ctx, cancel := requestContext()
	defer cancel()

	task, err := apply(ctx, sellerID, taskID)
	if err != nil {
		return respondLifecycleError(c, err)
	}
	return c.JSON(task)
}

// sellerAndTaskID extracts the authenticated seller and the :id path param.
// On failure the response is already written and ok is false.
func sellerAndTaskID(c *fiber.Ctx) (string, primitive.ObjectID, bool) {
	sellerID, authed := c.Locals("user_id").(string)
	if !authed || sellerID == "" {
		c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
		return "", primitive.NilObjectID, false
	}

	taskID, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid task ID",
		})
		return "", primitive.NilObjectID, false
	}
	return sellerID, taskID, true
}

// respondLifecycleError maps typed lifecycle errors onto HTTP statuses
func respondLifecycleError(c *fiber.Ctx, err error) error {
	kind := lifecycle.KindOf(err)

	status := fiber.StatusInternalServerError
	switch kind {
	case lifecycle.ErrorKindInvalidTransition:
		status = fiber.StatusConflict
	case lifecycle.ErrorKindValidationFailed:
		status = fiber.StatusBadRequest
	case lifecycle.ErrorKindNotFound:
		status = fiber.StatusNotFound
	case lifecycle.ErrorKindStoreUnavailable:
		status = fiber.StatusServiceUnavailable
	}

	body := fiber.Map{
		"error": err.Error(),
		"kind":  kind.String(),
	}
	var lcErr *lifecycle.Error
	if errors.As(err, &lcErr) && lcErr.Field != "" {
		body["field"] = lcErr.Field
	}
	return c.Status(status).JSON(body)
}

func requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 10*time.Second)
}
