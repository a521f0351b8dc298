package jobs

import (
	"context"
	"testing"
	"time"

	"dealflow/internal/models"
	"dealflow/internal/services"
)

func seedSnoozedTask(t *testing.T, svc *services.TaskService, scheduledAt, until time.Time) *models.Task {
	t.Helper()
	ctx := context.Background()

	task, err := svc.Create(ctx, &models.Task{
		SellerID:    "seller-1",
		Title:       "snoozed call",
		Kind:        models.TaskKindCall,
		ScheduledAt: scheduledAt,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := svc.Snooze(ctx, "seller-1", task.ID, until, "seller asked to move it"); err != nil {
		t.Fatalf("Snooze failed: %v", err)
	}
	return task
}

func TestSnoozeWakeRestoresDueTasks(t *testing.T) {
	store := services.NewMemoryTaskStore()
	svc := services.NewTaskService(store)
	ctx := context.Background()

	pastWake := time.Now().Add(-time.Hour)
	futureWake := time.Now().Add(24 * time.Hour)
	due := seedSnoozedTask(t, svc, pastWake.Add(-24*time.Hour), pastWake)
	notDue := seedSnoozedTask(t, svc, futureWake.Add(-24*time.Hour), futureWake)

	job, err := NewSnoozeWakeJob(store, svc, "*/5 * * * *")
	if err != nil {
		t.Fatalf("NewSnoozeWakeJob failed: %v", err)
	}
	if err := job.Run(ctx); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	woken, err := svc.Get(ctx, "seller-1", due.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if woken.Status != models.TaskStatusPending {
		t.Errorf("Expected due task restored to pending, got %s", woken.Status)
	}
	if woken.SnoozedUntil != nil {
		t.Error("Expected snoozedUntil cleared on wake")
	}

	sleeping, err := svc.Get(ctx, "seller-1", notDue.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if sleeping.Status != models.TaskStatusSnoozed {
		t.Errorf("Expected future task still snoozed, got %s", sleeping.Status)
	}
}

func TestSnoozeWakeEmptySweep(t *testing.T) {
	store := services.NewMemoryTaskStore()
	svc := services.NewTaskService(store)

	job, err := NewSnoozeWakeJob(store, svc, "*/5 * * * *")
	if err != nil {
		t.Fatalf("NewSnoozeWakeJob failed: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Errorf("Expected empty sweep to succeed, got: %v", err)
	}
}

func TestSnoozeWakeRejectsBadCron(t *testing.T) {
	store := services.NewMemoryTaskStore()
	svc := services.NewTaskService(store)

	if _, err := NewSnoozeWakeJob(store, svc, "not a cron line"); err == nil {
		t.Error("Expected an error for a malformed cron expression")
	}
}

func TestSnoozeWakeNextRunTime(t *testing.T) {
	store := services.NewMemoryTaskStore()
	svc := services.NewTaskService(store)

	job, err := NewSnoozeWakeJob(store, svc, "*/5 * * * *")
	if err != nil {
		t.Fatalf("NewSnoozeWakeJob failed: %v", err)
	}
	next := job.GetNextRunTime()
	if !next.After(time.Now()) {
		t.Errorf("Expected next run in the future, got %v", next)
	}
	if next.Sub(time.Now()) > 5*time.Minute {
		t.Errorf("Expected next run within 5 minutes, got %v", next)
	}
}
