package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TaskStatus represents the lifecycle state of a seller task
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusSkipped    TaskStatus = "skipped"
	TaskStatusDismissed  TaskStatus = "dismissed"
	TaskStatusSnoozed    TaskStatus = "snoozed"
)

// TaskKind classifies the type of sales activity
type TaskKind string

const (
	TaskKindCall           TaskKind = "call"
	TaskKindEmail          TaskKind = "email"
	TaskKindMeeting        TaskKind = "meeting"
	TaskKindDemo           TaskKind = "demo"
	TaskKindFollowUp       TaskKind = "follow_up"
	TaskKindResearch       TaskKind = "research"
	TaskKindAdministrative TaskKind = "administrative"
	TaskKindOther          TaskKind = "other"
)

// TaskOutcome records how a completed task went
type TaskOutcome string

const (
	TaskOutcomeSuccess  TaskOutcome = "success"
	TaskOutcomePartial  TaskOutcome = "partial"
	TaskOutcomeFailed   TaskOutcome = "failed"
	TaskOutcomeNoAnswer TaskOutcome = "no_answer"
)

// Task represents a unit of assigned sales work
type Task struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SellerID string             `bson:"sellerId" json:"seller_id"`

	// Definition
	Title       string   `bson:"title" json:"title"`
	Description string   `bson:"description,omitempty" json:"description,omitempty"`
	Kind        TaskKind `bson:"kind" json:"kind"`

	// Scheduling
	ScheduledAt         time.Time  `bson:"scheduledAt" json:"scheduled_at"`
	OriginalScheduledAt *time.Time `bson:"originalScheduledAt,omitempty" json:"original_scheduled_at,omitempty"` // set on first snooze, never overwritten
	SnoozedUntil        *time.Time `bson:"snoozedUntil,omitempty" json:"snoozed_until,omitempty"`

	// Lifecycle state
	Status TaskStatus `bson:"status" json:"status"`

	// Execution record (frozen on completion)
	Notes          string           `bson:"notes,omitempty" json:"notes,omitempty"`
	Outcome        TaskOutcome      `bson:"outcome,omitempty" json:"outcome,omitempty"`
	ActualDuration int              `bson:"actualDuration,omitempty" json:"actual_duration,omitempty"` // minutes
	Attachments    []TaskAttachment `bson:"attachments,omitempty" json:"attachments,omitempty"`

	// AI-authored guidance, supplied at creation by the generator. Opaque to
	// the lifecycle core: stored and forwarded, never interpreted.
	Guidance *TaskGuidance `bson:"guidance,omitempty" json:"guidance,omitempty"`

	// Postpone audit trail, append-only
	PostponeHistory []PostponeRecord `bson:"postponeHistory,omitempty" json:"postpone_history,omitempty"`

	// Timestamps
	CreatedAt   time.Time  `bson:"createdAt" json:"created_at"`
	StartedAt   *time.Time `bson:"startedAt,omitempty" json:"started_at,omitempty"`
	CompletedAt *time.Time `bson:"completedAt,omitempty" json:"completed_at,omitempty"`
	DismissedAt *time.Time `bson:"dismissedAt,omitempty" json:"dismissed_at,omitempty"`
	UpdatedAt   time.Time  `bson:"updatedAt" json:"updated_at"`
}

// TaskAttachment references a document produced while working a task
type TaskAttachment struct {
	URI      string `bson:"uri" json:"uri"`
	Filename string `bson:"filename,omitempty" json:"filename,omitempty"`
	Summary  string `bson:"summary,omitempty" json:"summary,omitempty"` // extracted text summary, if any
}

// TaskGuidance holds the generator-supplied coaching payload
type TaskGuidance struct {
	Rationale      string          `bson:"rationale,omitempty" json:"rationale,omitempty"`
	Objectives     []string        `bson:"objectives,omitempty" json:"objectives,omitempty"`
	Script         string          `bson:"script,omitempty" json:"script,omitempty"` // talking points / call script
	BestPractices  []string        `bson:"bestPractices,omitempty" json:"best_practices,omitempty"`
	CommonMistakes []string        `bson:"commonMistakes,omitempty" json:"common_mistakes,omitempty"`
	ExpectedOutput *ExpectedOutput `bson:"expectedOutput,omitempty" json:"expected_output,omitempty"`
}

// ExpectedOutput describes what the generator expects the seller to produce
type ExpectedOutput struct {
	Description      string `bson:"description,omitempty" json:"description,omitempty"`
	RequiresDocument bool   `bson:"requiresDocument" json:"requires_document"`
}

// PostponeRecord captures one snooze action on a task
type PostponeRecord struct {
	Timestamp     time.Time `bson:"timestamp" json:"timestamp"`
	Reason        string    `bson:"reason" json:"reason"`
	PostponedFrom time.Time `bson:"postponedFrom" json:"postponed_from"`
	PostponedTo   time.Time `bson:"postponedTo" json:"postponed_to"`
}

// IsArchived reports whether the task is excluded from daily views
func (t *Task) IsArchived() bool {
	return t.Status == TaskStatusSnoozed || t.Status == TaskStatusDismissed
}

// RequiresAttachment reports whether the guidance payload mandates a document on completion
func (t *Task) RequiresAttachment() bool {
	return t.Guidance != nil && t.Guidance.ExpectedOutput != nil && t.Guidance.ExpectedOutput.RequiresDocument
}
