package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"dealflow/internal/lifecycle"
	"dealflow/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryTaskStore is an in-memory TaskStore used by tests and by dev mode
// when MongoDB is not configured. Data does not survive a restart.
type MemoryTaskStore struct {
	mu    sync.RWMutex
	tasks map[primitive.ObjectID]models.Task
}

// NewMemoryTaskStore creates an empty in-memory task store
func NewMemoryTaskStore() *MemoryTaskStore {
	return &MemoryTaskStore{tasks: make(map[primitive.ObjectID]models.Task)}
}

// Create inserts a new task
func (s *MemoryTaskStore) Create(ctx context.Context, task *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	task.CreatedAt = now
	task.UpdatedAt = now
	if task.Status == "" {
		task.Status = models.TaskStatusPending
	}
	if task.ID.IsZero() {
		task.ID = primitive.NewObjectID()
	}
	s.tasks[task.ID] = cloneTask(task)
	return nil
}

// Get retrieves a task by ID, scoped to seller
func (s *MemoryTaskStore) Get(ctx context.Context, sellerID string, taskID primitive.ObjectID) (*models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.tasks[taskID]
	if !ok || task.SellerID != sellerID {
		return nil, lifecycle.NotFound("task", taskID.Hex())
	}
	copied := cloneTask(&task)
	return &copied, nil
}

// Put replaces the stored task. Last write wins.
func (s *MemoryTaskStore) Put(ctx context.Context, task *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.tasks[task.ID]
	if !ok || existing.SellerID != task.SellerID {
		return lifecycle.NotFound("task", task.ID.Hex())
	}
	s.tasks[task.ID] = cloneTask(task)
	return nil
}

// List returns tasks for a seller with optional filters, scheduledAt ascending
func (s *MemoryTaskStore) List(ctx context.Context, sellerID string, filters TaskFilters) ([]models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var tasks []models.Task
	for _, task := range s.tasks {
		if task.SellerID != sellerID {
			continue
		}
		if len(filters.Statuses) > 0 && !statusIn(task.Status, filters.Statuses) {
			continue
		}
		if filters.ScheduledFrom != nil && task.ScheduledAt.Before(*filters.ScheduledFrom) {
			continue
		}
		if filters.ScheduledTo != nil && !task.ScheduledAt.Before(*filters.ScheduledTo) {
			continue
		}
		tasks = append(tasks, cloneTask(&task))
	}

	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].ScheduledAt.Before(tasks[j].ScheduledAt)
	})

	if filters.Limit > 0 && int64(len(tasks)) > filters.Limit {
		tasks = tasks[:filters.Limit]
	}
	return tasks, nil
}

// ListDueSnoozed returns snoozed tasks across sellers whose snoozedUntil has passed
func (s *MemoryTaskStore) ListDueSnoozed(ctx context.Context, before time.Time, limit int64) ([]models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var tasks []models.Task
	for _, task := range s.tasks {
		if task.Status != models.TaskStatusSnoozed || task.SnoozedUntil == nil {
			continue
		}
		if task.SnoozedUntil.After(before) {
			continue
		}
		tasks = append(tasks, cloneTask(&task))
	}

	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].SnoozedUntil.Before(*tasks[j].SnoozedUntil)
	})

	if limit > 0 && int64(len(tasks)) > limit {
		tasks = tasks[:limit]
	}
	return tasks, nil
}

func statusIn(status models.TaskStatus, statuses []models.TaskStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

// cloneTask deep-copies a task so callers cannot mutate store state in place
func cloneTask(t *models.Task) models.Task {
	copied := *t
	if t.Attachments != nil {
		copied.Attachments = append([]models.TaskAttachment(nil), t.Attachments...)
	}
	if t.PostponeHistory != nil {
		copied.PostponeHistory = append([]models.PostponeRecord(nil), t.PostponeHistory...)
	}
	if t.Guidance != nil {
		guidance := *t.Guidance
		if t.Guidance.Objectives != nil {
			guidance.Objectives = append([]string(nil), t.Guidance.Objectives...)
		}
		if t.Guidance.BestPractices != nil {
			guidance.BestPractices = append([]string(nil), t.Guidance.BestPractices...)
		}
		if t.Guidance.CommonMistakes != nil {
			guidance.CommonMistakes = append([]string(nil), t.Guidance.CommonMistakes...)
		}
		if t.Guidance.ExpectedOutput != nil {
			expected := *t.Guidance.ExpectedOutput
			guidance.ExpectedOutput = &expected
		}
		copied.Guidance = &guidance
	}
	return copied
}

// MemoryProfileStore is an in-memory ProfileStore counterpart to MemoryTaskStore
type MemoryProfileStore struct {
	mu       sync.RWMutex
	profiles map[string]models.SellerProfile
}

// NewMemoryProfileStore creates an empty in-memory profile store
func NewMemoryProfileStore() *MemoryProfileStore {
	return &MemoryProfileStore{profiles: make(map[string]models.SellerProfile)}
}

// Get retrieves the profile for a seller
func (s *MemoryProfileStore) Get(ctx context.Context, sellerID string) (*models.SellerProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	profile, ok := s.profiles[sellerID]
	if !ok {
		return nil, lifecycle.NotFound("profile", sellerID)
	}
	copied := cloneProfile(&profile)
	return &copied, nil
}

// Put upserts the profile. Last write wins.
func (s *MemoryProfileStore) Put(ctx context.Context, profile *models.SellerProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if profile.ID.IsZero() {
		profile.ID = primitive.NewObjectID()
	}
	s.profiles[profile.SellerID] = cloneProfile(profile)
	return nil
}

func cloneProfile(p *models.SellerProfile) models.SellerProfile {
	copied := *p
	if p.History != nil {
		copied.History = append([]models.CompletedTaskEntry(nil), p.History...)
	}
	if p.Stats.ObjectionSignals != nil {
		copied.Stats.ObjectionSignals = append([]string(nil), p.Stats.ObjectionSignals...)
	}
	if p.Stats.EffectiveTactics != nil {
		copied.Stats.EffectiveTactics = append([]string(nil), p.Stats.EffectiveTactics...)
	}
	if p.Custom.Strengths != nil {
		copied.Custom.Strengths = append([]string(nil), p.Custom.Strengths...)
	}
	if p.Custom.Weaknesses != nil {
		copied.Custom.Weaknesses = append([]string(nil), p.Custom.Weaknesses...)
	}
	if p.Custom.LearningGoals != nil {
		copied.Custom.LearningGoals = append([]string(nil), p.Custom.LearningGoals...)
	}
	return copied
}
