package lifecycle

import (
	"time"

	"dealflow/internal/models"
)

// TaskAction names a requested status change
type TaskAction string

const (
	ActionStart    TaskAction = "start"
	ActionComplete TaskAction = "complete"
	ActionSkip     TaskAction = "skip"
	ActionDismiss  TaskAction = "dismiss"
	ActionSnooze   TaskAction = "snooze"
	ActionRestore  TaskAction = "restore"
)

// AllActions lists every task action, used by the handlers and tests
var AllActions = []TaskAction{
	ActionStart, ActionComplete, ActionSkip,
	ActionDismiss, ActionSnooze, ActionRestore,
}

// validTransitions defines the allowed actions per status.
// Any (status, action) pair not listed here is rejected with InvalidTransition.
var validTransitions = map[models.TaskStatus]map[TaskAction]bool{
	models.TaskStatusPending: {
		ActionStart:   true,
		ActionSkip:    true,
		ActionDismiss: true,
		ActionSnooze:  true,
	},
	models.TaskStatusInProgress: {
		ActionComplete: true,
		ActionSkip:     true,
		ActionDismiss:  true,
		ActionSnooze:   true,
	},
	// completed and skipped are terminal
	models.TaskStatusCompleted: {},
	models.TaskStatusSkipped:   {},
	// archived states: recoverable only via restore
	models.TaskStatusDismissed: {
		ActionRestore: true,
	},
	models.TaskStatusSnoozed: {
		ActionRestore: true,
	},
}

// CanApply reports whether the action is permitted from the given status
func CanApply(status models.TaskStatus, action TaskAction) bool {
	allowed, ok := validTransitions[status]
	return ok && allowed[action]
}

// IsTerminal returns true if no action can move the task out of this status
func IsTerminal(status models.TaskStatus) bool {
	return status == models.TaskStatusCompleted || status == models.TaskStatusSkipped
}

// CompletionInput carries the caller-supplied execution record for complete
type CompletionInput struct {
	Notes          string
	Outcome        models.TaskOutcome
	ActualDuration int // minutes, 0 = not reported
	Attachments    []models.TaskAttachment
}

// Start moves a pending task to in_progress and stamps startedAt
func Start(t *models.Task, now time.Time) error {
	if !CanApply(t.Status, ActionStart) {
		return InvalidTransition(string(t.Status), string(ActionStart))
	}
	t.Status = models.TaskStatusInProgress
	t.StartedAt = &now
	t.UpdatedAt = now
	return nil
}

// Complete finishes an in-progress task, freezing the execution record.
// Notes and outcome are mandatory; a document attachment is mandatory when the
// guidance payload marks one as required. Validation runs before any mutation.
func Complete(t *models.Task, now time.Time, in CompletionInput) error {
	if !CanApply(t.Status, ActionComplete) {
		return InvalidTransition(string(t.Status), string(ActionComplete))
	}
	if in.Notes == "" {
		return ValidationFailed("notes", "completion notes are required")
	}
	switch in.Outcome {
	case models.TaskOutcomeSuccess, models.TaskOutcomePartial, models.TaskOutcomeFailed, models.TaskOutcomeNoAnswer:
	case "":
		return ValidationFailed("outcome", "completion outcome is required")
	default:
		return ValidationFailed("outcome", "unknown outcome tag")
	}
	if in.ActualDuration < 0 {
		return ValidationFailed("actual_duration", "duration cannot be negative")
	}
	if t.RequiresAttachment() && len(in.Attachments) == 0 {
		return ValidationFailed("attachments", "this task requires a document attachment to complete")
	}

	t.Status = models.TaskStatusCompleted
	t.CompletedAt = &now
	t.Notes = in.Notes
	t.Outcome = in.Outcome
	t.ActualDuration = in.ActualDuration
	t.Attachments = in.Attachments
	t.UpdatedAt = now
	return nil
}

// Skip abandons a task for the day without postponement semantics
func Skip(t *models.Task, now time.Time) error {
	if !CanApply(t.Status, ActionSkip) {
		return InvalidTransition(string(t.Status), string(ActionSkip))
	}
	t.Status = models.TaskStatusSkipped
	t.UpdatedAt = now
	return nil
}

// Dismiss archives a task. Scheduling fields are kept for audit and restore.
func Dismiss(t *models.Task, now time.Time) error {
	if !CanApply(t.Status, ActionDismiss) {
		return InvalidTransition(string(t.Status), string(ActionDismiss))
	}
	t.Status = models.TaskStatusDismissed
	t.DismissedAt = &now
	t.UpdatedAt = now
	return nil
}

// Snooze postpones a task to a later time. The first snooze freezes the
// original scheduled time; later snoozes never overwrite it. Every snooze
// appends one postpone-history record.
func Snooze(t *models.Task, now time.Time, until time.Time, reason string) error {
	if !CanApply(t.Status, ActionSnooze) {
		return InvalidTransition(string(t.Status), string(ActionSnooze))
	}
	if until.IsZero() {
		return ValidationFailed("until", "snooze target time is required")
	}
	if reason == "" {
		return ValidationFailed("reason", "snooze reason is required")
	}

	if t.OriginalScheduledAt == nil {
		orig := t.ScheduledAt
		t.OriginalScheduledAt = &orig
	}
	t.PostponeHistory = append(t.PostponeHistory, models.PostponeRecord{
		Timestamp:     now,
		Reason:        reason,
		PostponedFrom: t.ScheduledAt,
		PostponedTo:   until,
	})
	t.SnoozedUntil = &until
	t.ScheduledAt = until
	t.Status = models.TaskStatusSnoozed
	t.UpdatedAt = now
	return nil
}

// Restore brings an archived task back to pending. Postpone history is kept;
// only the current snooze/dismiss markers are cleared. Scheduling is left as
// previously recorded, restoring never reschedules to "now".
func Restore(t *models.Task, now time.Time) error {
	if !CanApply(t.Status, ActionRestore) {
		return InvalidTransition(string(t.Status), string(ActionRestore))
	}
	t.Status = models.TaskStatusPending
	t.SnoozedUntil = nil
	t.DismissedAt = nil
	t.UpdatedAt = now
	return nil
}
