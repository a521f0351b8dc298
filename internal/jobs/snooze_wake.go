package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"dealflow/internal/lifecycle"
	"dealflow/internal/services"

	"github.com/robfig/cron/v3"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// snoozeWakeBatch caps how many due tasks one sweep restores
const snoozeWakeBatch = 200

// SnoozeWakeJob restores snoozed tasks whose snoozedUntil has passed, so they
// resurface in daily views. Restoration goes through the normal restore
// transition; tasks a seller restored or dismissed in the meantime are simply
// skipped by the state machine.
type SnoozeWakeJob struct {
	store       services.TaskStore
	taskService *services.TaskService
	schedule    cron.Schedule
}

// NewSnoozeWakeJob creates the wake job from a standard cron expression
func NewSnoozeWakeJob(store services.TaskStore, taskService *services.TaskService, cronExpr string) (*SnoozeWakeJob, error) {
	schedule, err := cron.ParseStandard(cronExpr)
	if err != nil {
		return nil, fmt.Errorf("invalid snooze wake cron expression %q: %w", cronExpr, err)
	}
	return &SnoozeWakeJob{
		store:       store,
		taskService: taskService,
		schedule:    schedule,
	}, nil
}

// GetNextRunTime returns the next cron tick
func (j *SnoozeWakeJob) GetNextRunTime() time.Time {
	return j.schedule.Next(time.Now())
}

// Run sweeps due snoozed tasks and restores them
func (j *SnoozeWakeJob) Run(ctx context.Context) error {
	due, err := j.store.ListDueSnoozed(ctx, time.Now(), snoozeWakeBatch)
	if err != nil {
		return fmt.Errorf("failed to list due snoozed tasks: %w", err)
	}
	if len(due) == 0 {
		return nil
	}

	restored := 0
	for _, task := range due {
		if _, err := j.taskService.Restore(ctx, task.SellerID, task.ID); err != nil {
			// Lost the race with a manual restore/dismiss: not a failure
			if lifecycle.IsKind(err, lifecycle.ErrorKindInvalidTransition) || lifecycle.IsKind(err, lifecycle.ErrorKindNotFound) {
				continue
			}
			logWakeFailure(task.ID, err)
			continue
		}
		restored++
		if m := services.GetMetrics(); m != nil {
			m.SnoozeWakes.Inc()
		}
	}

	if restored > 0 {
		log.Printf("⏰ [SNOOZE-WAKE] Restored %d due snoozed task(s)", restored)
	}
	return nil
}

func logWakeFailure(taskID primitive.ObjectID, err error) {
	log.Printf("❌ [SNOOZE-WAKE] Failed to restore task %s: %v", taskID.Hex(), err)
}
