package services

import (
	"context"
	"math"
	"sort"
	"time"

	"dealflow/internal/models"
)

// DailyTasks is the result of partitioning a seller's active tasks by day
type DailyTasks struct {
	Today    []models.Task `json:"today"`
	Tomorrow []models.Task `json:"tomorrow"`
}

// ArchivedTasks holds the two disjoint archive lists
type ArchivedTasks struct {
	Snoozed   []models.Task `json:"snoozed"`   // snoozedUntil ascending
	Dismissed []models.Task `json:"dismissed"` // dismissedAt descending
}

// TaskCollectionService answers queries over the set of tasks belonging to
// one seller. It never mutates tasks; consumers re-derive buckets after any
// transition instead of patching lists in place.
type TaskCollectionService struct {
	store TaskStore
}

// NewTaskCollectionService creates a new task collection service
func NewTaskCollectionService(store TaskStore) *TaskCollectionService {
	return &TaskCollectionService{store: store}
}

// activeStatuses are the statuses surfaced in daily views
var activeStatuses = []models.TaskStatus{
	models.TaskStatusPending,
	models.TaskStatusInProgress,
	models.TaskStatusCompleted,
	models.TaskStatusSkipped,
}

// PartitionByDay splits the seller's non-archived tasks into today and
// tomorrow buckets by the calendar date of scheduledAt in the given location.
// Tasks scheduled outside both days appear in neither bucket; they stay
// addressable by id.
func (s *TaskCollectionService) PartitionByDay(ctx context.Context, sellerID string, today, tomorrow time.Time, loc *time.Location) (*DailyTasks, error) {
	if loc == nil {
		loc = time.UTC
	}

	tasks, err := s.store.List(ctx, sellerID, TaskFilters{Statuses: activeStatuses})
	if err != nil {
		return nil, err
	}

	todayY, todayM, todayD := today.In(loc).Date()
	tomY, tomM, tomD := tomorrow.In(loc).Date()

	result := &DailyTasks{Today: []models.Task{}, Tomorrow: []models.Task{}}
	for _, task := range tasks {
		y, m, d := task.ScheduledAt.In(loc).Date()
		switch {
		case y == todayY && m == todayM && d == todayD:
			result.Today = append(result.Today, task)
		case y == tomY && m == tomM && d == tomD:
			result.Tomorrow = append(result.Tomorrow, task)
		}
	}
	return result, nil
}

// ArchivedView returns the seller's snoozed and dismissed tasks as two
// disjoint lists: snoozed ordered by snoozedUntil ascending, dismissed by
// dismissedAt descending.
func (s *TaskCollectionService) ArchivedView(ctx context.Context, sellerID string) (*ArchivedTasks, error) {
	tasks, err := s.store.List(ctx, sellerID, TaskFilters{
		Statuses: []models.TaskStatus{models.TaskStatusSnoozed, models.TaskStatusDismissed},
	})
	if err != nil {
		return nil, err
	}

	result := &ArchivedTasks{Snoozed: []models.Task{}, Dismissed: []models.Task{}}
	for _, task := range tasks {
		switch task.Status {
		case models.TaskStatusSnoozed:
			result.Snoozed = append(result.Snoozed, task)
		case models.TaskStatusDismissed:
			result.Dismissed = append(result.Dismissed, task)
		}
	}

	sort.SliceStable(result.Snoozed, func(i, j int) bool {
		a, b := result.Snoozed[i].SnoozedUntil, result.Snoozed[j].SnoozedUntil
		if a == nil || b == nil {
			return b == nil && a != nil
		}
		return a.Before(*b)
	})
	sort.SliceStable(result.Dismissed, func(i, j int) bool {
		a, b := result.Dismissed[i].DismissedAt, result.Dismissed[j].DismissedAt
		if a == nil || b == nil {
			return a == nil && b != nil
		}
		return a.After(*b)
	})

	return result, nil
}

// CompletionRatio returns completed/total for a bucket as a nearest-integer
// percent, 0 for an empty bucket.
func CompletionRatio(bucket []models.Task) int {
	if len(bucket) == 0 {
		return 0
	}
	completed := 0
	for _, task := range bucket {
		if task.Status == models.TaskStatusCompleted {
			completed++
		}
	}
	return int(math.Round(float64(completed) / float64(len(bucket)) * 100))
}
