package lifecycle

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"dealflow/internal/models"
)

func newTestTask(status models.TaskStatus) *models.Task {
	scheduled := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	return &models.Task{
		SellerID:    "seller-1",
		Title:       "Call Acme about renewal",
		Kind:        models.TaskKindCall,
		ScheduledAt: scheduled,
		Status:      status,
		CreatedAt:   scheduled.Add(-24 * time.Hour),
		UpdatedAt:   scheduled.Add(-24 * time.Hour),
	}
}

func applyAction(t *models.Task, action TaskAction, now time.Time) error {
	switch action {
	case ActionStart:
		return Start(t, now)
	case ActionComplete:
		return Complete(t, now, CompletionInput{
			Notes:   "spoke with the champion",
			Outcome: models.TaskOutcomeSuccess,
		})
	case ActionSkip:
		return Skip(t, now)
	case ActionDismiss:
		return Dismiss(t, now)
	case ActionSnooze:
		return Snooze(t, now, now.Add(48*time.Hour), "customer asked to reschedule")
	case ActionRestore:
		return Restore(t, now)
	}
	return nil
}

func TestTransitionTable(t *testing.T) {
	allStatuses := []models.TaskStatus{
		models.TaskStatusPending,
		models.TaskStatusInProgress,
		models.TaskStatusCompleted,
		models.TaskStatusSkipped,
		models.TaskStatusDismissed,
		models.TaskStatusSnoozed,
	}

	allowed := map[models.TaskStatus]map[TaskAction]bool{
		models.TaskStatusPending:    {ActionStart: true, ActionSkip: true, ActionDismiss: true, ActionSnooze: true},
		models.TaskStatusInProgress: {ActionComplete: true, ActionSkip: true, ActionDismiss: true, ActionSnooze: true},
		models.TaskStatusCompleted:  {},
		models.TaskStatusSkipped:    {},
		models.TaskStatusDismissed:  {ActionRestore: true},
		models.TaskStatusSnoozed:    {ActionRestore: true},
	}

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	for _, status := range allStatuses {
		for _, action := range AllActions {
			t.Run(string(status)+"_"+string(action), func(t *testing.T) {
				task := newTestTask(status)
				if status == models.TaskStatusSnoozed {
					until := now.Add(24 * time.Hour)
					task.SnoozedUntil = &until
				}
				before := *task

				err := applyAction(task, action, now)

				if allowed[status][action] {
					if err != nil {
						t.Fatalf("Expected %s from %s to succeed, got error: %v", action, status, err)
					}
					return
				}

				if err == nil {
					t.Fatalf("Expected %s from %s to be rejected", action, status)
				}
				if !IsKind(err, ErrorKindInvalidTransition) {
					t.Errorf("Expected invalid_transition error, got: %v", err)
				}
				if !reflect.DeepEqual(before, *task) {
					t.Errorf("Rejected transition mutated the task: before=%+v after=%+v", before, *task)
				}
			})
		}
	}
}

func TestCanApplyMatchesMutators(t *testing.T) {
	if CanApply(models.TaskStatusPending, ActionStart) != true {
		t.Error("Expected start to be allowed from pending")
	}
	if CanApply(models.TaskStatusPending, ActionComplete) != false {
		t.Error("Expected complete to be rejected from pending")
	}
	if CanApply(models.TaskStatusPending, ActionRestore) != false {
		t.Error("Expected restore to be rejected from pending")
	}
	if CanApply("bogus", ActionStart) != false {
		t.Error("Expected unknown status to reject every action")
	}
}

func TestIsTerminal(t *testing.T) {
	terminal := []models.TaskStatus{models.TaskStatusCompleted, models.TaskStatusSkipped}
	for _, status := range terminal {
		if !IsTerminal(status) {
			t.Errorf("Expected %s to be terminal", status)
		}
	}
	open := []models.TaskStatus{
		models.TaskStatusPending,
		models.TaskStatusInProgress,
		models.TaskStatusDismissed,
		models.TaskStatusSnoozed,
	}
	for _, status := range open {
		if IsTerminal(status) {
			t.Errorf("Expected %s to not be terminal", status)
		}
	}
}

func TestCompleteValidation(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		input     CompletionInput
		wantField string
	}{
		{
			name:      "missing notes",
			input:     CompletionInput{Outcome: models.TaskOutcomeSuccess},
			wantField: "notes",
		},
		{
			name:      "missing outcome",
			input:     CompletionInput{Notes: "done"},
			wantField: "outcome",
		},
		{
			name:      "unknown outcome",
			input:     CompletionInput{Notes: "done", Outcome: "amazing"},
			wantField: "outcome",
		},
		{
			name:      "negative duration",
			input:     CompletionInput{Notes: "done", Outcome: models.TaskOutcomeSuccess, ActualDuration: -5},
			wantField: "actual_duration",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := newTestTask(models.TaskStatusInProgress)
			err := Complete(task, now, tt.input)
			if err == nil {
				t.Fatal("Expected validation error, got nil")
			}
			if !IsKind(err, ErrorKindValidationFailed) {
				t.Fatalf("Expected validation_failed, got: %v", err)
			}
			var lcErr *Error
			if !errors.As(err, &lcErr) {
				t.Fatalf("Expected *lifecycle.Error, got %T", err)
			}
			if lcErr.Field != tt.wantField {
				t.Errorf("Expected field %q, got %q", tt.wantField, lcErr.Field)
			}
			if task.Status != models.TaskStatusInProgress {
				t.Errorf("Expected status unchanged after rejection, got %s", task.Status)
			}
			if task.CompletedAt != nil {
				t.Error("Expected completedAt to remain unset after rejection")
			}
		})
	}
}

func TestCompleteRequiresDocumentAttachment(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	task := newTestTask(models.TaskStatusInProgress)
	task.Guidance = &models.TaskGuidance{
		ExpectedOutput: &models.ExpectedOutput{
			Description:      "proposal PDF",
			RequiresDocument: true,
		},
	}

	err := Complete(task, now, CompletionInput{Notes: "sent it", Outcome: models.TaskOutcomeSuccess})
	if !IsKind(err, ErrorKindValidationFailed) {
		t.Fatalf("Expected validation_failed without attachment, got: %v", err)
	}

	err = Complete(task, now, CompletionInput{
		Notes:       "sent it",
		Outcome:     models.TaskOutcomeSuccess,
		Attachments: []models.TaskAttachment{{URI: "s3://docs/proposal.pdf", Filename: "proposal.pdf"}},
	})
	if err != nil {
		t.Fatalf("Expected completion with attachment to succeed, got: %v", err)
	}
	if task.Status != models.TaskStatusCompleted {
		t.Errorf("Expected status completed, got %s", task.Status)
	}
}

func TestCompleteFreezesExecutionRecord(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	task := newTestTask(models.TaskStatusInProgress)

	in := CompletionInput{
		Notes:          "demo went well, decision next week",
		Outcome:        models.TaskOutcomePartial,
		ActualDuration: 45,
	}
	if err := Complete(task, now, in); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	if task.Notes != in.Notes {
		t.Errorf("Expected notes %q, got %q", in.Notes, task.Notes)
	}
	if task.Outcome != models.TaskOutcomePartial {
		t.Errorf("Expected outcome partial, got %s", task.Outcome)
	}
	if task.ActualDuration != 45 {
		t.Errorf("Expected duration 45, got %d", task.ActualDuration)
	}
	if task.CompletedAt == nil || !task.CompletedAt.Equal(now) {
		t.Errorf("Expected completedAt %v, got %v", now, task.CompletedAt)
	}
}

func TestSnoozeFreezesOriginalScheduledAt(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	task := newTestTask(models.TaskStatusPending)
	original := task.ScheduledAt

	first := now.Add(24 * time.Hour)
	if err := Snooze(task, now, first, "out of office"); err != nil {
		t.Fatalf("First snooze failed: %v", err)
	}
	if task.OriginalScheduledAt == nil || !task.OriginalScheduledAt.Equal(original) {
		t.Fatalf("Expected originalScheduledAt %v, got %v", original, task.OriginalScheduledAt)
	}
	if !task.ScheduledAt.Equal(first) {
		t.Errorf("Expected scheduledAt moved to %v, got %v", first, task.ScheduledAt)
	}
	if task.SnoozedUntil == nil || !task.SnoozedUntil.Equal(first) {
		t.Errorf("Expected snoozedUntil %v, got %v", first, task.SnoozedUntil)
	}

	if err := Restore(task, now.Add(time.Hour)); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}

	second := now.Add(72 * time.Hour)
	if err := Snooze(task, now.Add(2*time.Hour), second, "still traveling"); err != nil {
		t.Fatalf("Second snooze failed: %v", err)
	}
	if !task.OriginalScheduledAt.Equal(original) {
		t.Errorf("Expected originalScheduledAt to stay %v after second snooze, got %v", original, task.OriginalScheduledAt)
	}

	if len(task.PostponeHistory) != 2 {
		t.Fatalf("Expected 2 postpone records, got %d", len(task.PostponeHistory))
	}
	if !task.PostponeHistory[0].PostponedFrom.Equal(original) {
		t.Errorf("Expected first record postponedFrom %v, got %v", original, task.PostponeHistory[0].PostponedFrom)
	}
	if !task.PostponeHistory[1].PostponedFrom.Equal(first) {
		t.Errorf("Expected second record postponedFrom %v, got %v", first, task.PostponeHistory[1].PostponedFrom)
	}
	if !task.PostponeHistory[1].PostponedTo.Equal(second) {
		t.Errorf("Expected second record postponedTo %v, got %v", second, task.PostponeHistory[1].PostponedTo)
	}
}

func TestSnoozeValidation(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	task := newTestTask(models.TaskStatusPending)
	if err := Snooze(task, now, time.Time{}, "reason"); !IsKind(err, ErrorKindValidationFailed) {
		t.Errorf("Expected validation_failed for zero until, got: %v", err)
	}
	if err := Snooze(task, now, now.Add(time.Hour), ""); !IsKind(err, ErrorKindValidationFailed) {
		t.Errorf("Expected validation_failed for empty reason, got: %v", err)
	}
	if task.Status != models.TaskStatusPending {
		t.Errorf("Expected task untouched after rejected snooze, got status %s", task.Status)
	}
	if len(task.PostponeHistory) != 0 {
		t.Errorf("Expected no postpone records after rejected snooze, got %d", len(task.PostponeHistory))
	}
}

func TestRestoreClearsMarkersKeepsHistory(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	task := newTestTask(models.TaskStatusPending)
	until := now.Add(24 * time.Hour)
	if err := Snooze(task, now, until, "busy day"); err != nil {
		t.Fatalf("Snooze failed: %v", err)
	}
	if err := Restore(task, now.Add(time.Hour)); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}

	if task.Status != models.TaskStatusPending {
		t.Errorf("Expected status pending after restore, got %s", task.Status)
	}
	if task.SnoozedUntil != nil {
		t.Error("Expected snoozedUntil cleared after restore")
	}
	if len(task.PostponeHistory) != 1 {
		t.Errorf("Expected postpone history kept after restore, got %d records", len(task.PostponeHistory))
	}
	if !task.ScheduledAt.Equal(until) {
		t.Errorf("Expected scheduledAt to stay at snooze target %v, got %v", until, task.ScheduledAt)
	}

	// Dismissed tasks restore the same way
	dismissed := newTestTask(models.TaskStatusPending)
	if err := Dismiss(dismissed, now); err != nil {
		t.Fatalf("Dismiss failed: %v", err)
	}
	if err := Restore(dismissed, now.Add(time.Hour)); err != nil {
		t.Fatalf("Restore of dismissed failed: %v", err)
	}
	if dismissed.DismissedAt != nil {
		t.Error("Expected dismissedAt cleared after restore")
	}
}
