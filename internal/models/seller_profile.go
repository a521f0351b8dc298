package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Bounds on the task-derived portion of a seller profile
const (
	ProfileHistoryLimit   = 100 // completed-task entries kept, newest first
	ProfileSignalLimit    = 10  // deduplicated objection signals
	ProfileTacticLimit    = 10  // deduplicated effective tactics
	ProfileRecentInPrompt = 5   // history entries rendered into prompt context
)

// SellerProfile is the per-seller behavioral summary derived from completed
// tasks, plus admin-authored custom context. Rebuildable state: the history is
// the source of truth and the statistics are recomputed from it on every write.
type SellerProfile struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SellerID string             `bson:"sellerId" json:"seller_id"`
	Name     string             `bson:"name,omitempty" json:"name,omitempty"`

	// Bounded rolling history, newest first
	History []CompletedTaskEntry `bson:"history,omitempty" json:"history,omitempty"`

	// Derived statistics, recomputed from History on every insertion
	Stats ProfileStats `bson:"stats" json:"stats"`

	// Admin-authored context, merged by shallow override only
	Custom CustomContext `bson:"custom" json:"custom"`

	// Every write bumps Version and refreshes UpdatedAt
	Version   int64     `bson:"version" json:"version"`
	CreatedAt time.Time `bson:"createdAt" json:"created_at"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updated_at"`
}

// CompletedTaskEntry is one completed task folded into the profile history
type CompletedTaskEntry struct {
	TaskID      string      `bson:"taskId" json:"task_id"`
	Kind        TaskKind    `bson:"kind" json:"kind"`
	Title       string      `bson:"title" json:"title"`
	Description string      `bson:"description,omitempty" json:"description,omitempty"`
	CompletedAt time.Time   `bson:"completedAt" json:"completed_at"`
	Outcome     TaskOutcome `bson:"outcome" json:"outcome"`

	Notes          string `bson:"notes,omitempty" json:"notes,omitempty"`
	ActualDuration int    `bson:"actualDuration,omitempty" json:"actual_duration,omitempty"` // minutes, 0 = not reported

	// Guidance fields present on the task at completion time
	Rationale     string   `bson:"rationale,omitempty" json:"rationale,omitempty"`
	Objectives    []string `bson:"objectives,omitempty" json:"objectives,omitempty"`
	BestPractices []string `bson:"bestPractices,omitempty" json:"best_practices,omitempty"`

	AttachmentSummaries []AttachmentSummary `bson:"attachmentSummaries,omitempty" json:"attachment_summaries,omitempty"`

	// Downstream analysis attached after completion (LLM post-processing), pass-through
	Analysis string   `bson:"analysis,omitempty" json:"analysis,omitempty"`
	Lessons  []string `bson:"lessons,omitempty" json:"lessons,omitempty"`
}

// AttachmentSummary pairs an attachment filename with its extracted summary
type AttachmentSummary struct {
	Filename string `bson:"filename" json:"filename"`
	Summary  string `bson:"summary,omitempty" json:"summary,omitempty"`
}

// ProfileStats holds the aggregate statistics derived from the bounded history
type ProfileStats struct {
	TotalCompleted   int      `bson:"totalCompleted" json:"total_completed"`
	SuccessRate      int      `bson:"successRate" json:"success_rate"` // nearest integer percent, 0 when empty
	AvgDuration      float64  `bson:"avgDuration" json:"avg_duration"` // mean minutes over entries that report one
	ObjectionSignals []string `bson:"objectionSignals,omitempty" json:"objection_signals,omitempty"`
	EffectiveTactics []string `bson:"effectiveTactics,omitempty" json:"effective_tactics,omitempty"`
}

// CustomContext is the admin-authored portion of a profile. Updates are
// field-by-field: omitted fields keep their prior values.
type CustomContext struct {
	Instructions       string   `bson:"instructions,omitempty" json:"instructions,omitempty"`
	Strengths          []string `bson:"strengths,omitempty" json:"strengths,omitempty"`
	Weaknesses         []string `bson:"weaknesses,omitempty" json:"weaknesses,omitempty"`
	LearningGoals      []string `bson:"learningGoals,omitempty" json:"learning_goals,omitempty"`
	CommunicationStyle string   `bson:"communicationStyle,omitempty" json:"communication_style,omitempty"`
	IndustryKnowledge  string   `bson:"industryKnowledge,omitempty" json:"industry_knowledge,omitempty"`
	OrgGuidelines      string   `bson:"orgGuidelines,omitempty" json:"org_guidelines,omitempty"`
}

// CustomContextUpdate is a partial CustomContext; nil fields are left untouched
type CustomContextUpdate struct {
	Instructions       *string   `json:"instructions,omitempty"`
	Strengths          *[]string `json:"strengths,omitempty"`
	Weaknesses         *[]string `json:"weaknesses,omitempty"`
	LearningGoals      *[]string `json:"learning_goals,omitempty"`
	CommunicationStyle *string   `json:"communication_style,omitempty"`
	IndustryKnowledge  *string   `json:"industry_knowledge,omitempty"`
	OrgGuidelines      *string   `json:"org_guidelines,omitempty"`
}

// NewSellerProfile returns an empty profile for a seller. Version stays 0
// until the first persisted write.
func NewSellerProfile(sellerID string) *SellerProfile {
	return &SellerProfile{
		SellerID: sellerID,
		History:  []CompletedTaskEntry{},
		Stats:    ProfileStats{},
		Custom:   CustomContext{},
	}
}
