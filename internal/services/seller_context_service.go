package services

import (
	"context"
	"strings"
	"time"

	"dealflow/internal/config"
	"dealflow/internal/lifecycle"
	"dealflow/internal/logging"
	"dealflow/internal/models"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
)

// SellerContextService folds completed tasks into per-seller behavioral
// profiles and renders them as prompt context for AI guidance generation.
//
// Ingestion contract: the complete() handler calls IngestCompletion exactly
// once per successful completion transition. The service does not deduplicate
// by task id; retried completions are already rejected by the state machine,
// so a double ingest can only come from a caller bug.
type SellerContextService struct {
	store   ProfileStore
	signals *config.SignalsConfig
	lock    IngestLock
	now     func() time.Time

	// Rendered prompt context per seller, invalidated on every profile write
	promptCache *gocache.Cache
}

// NewSellerContextService creates a new seller context service
func NewSellerContextService(store ProfileStore, signals *config.SignalsConfig, lock IngestLock, cacheTTL time.Duration) *SellerContextService {
	if signals == nil {
		signals = config.DefaultSignals()
	}
	if lock == nil {
		lock = NewLocalIngestLock()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &SellerContextService{
		store:       store,
		signals:     signals,
		lock:        lock,
		now:         time.Now,
		promptCache: gocache.New(cacheTTL, 10*time.Minute),
	}
}

// GetProfile returns the seller's profile, or an empty unsaved profile when
// none exists yet.
func (s *SellerContextService) GetProfile(ctx context.Context, sellerID string) (*models.SellerProfile, error) {
	profile, err := s.store.Get(ctx, sellerID)
	if err != nil {
		if lifecycle.IsKind(err, lifecycle.ErrorKindNotFound) {
			return models.NewSellerProfile(sellerID), nil
		}
		return nil, err
	}
	return profile, nil
}

// IngestCompletion folds one completed task into the seller's profile:
// prepend a history entry, truncate to the bounded window, recompute every
// statistic from scratch over the surviving entries, persist with a version
// bump. Statistics are never patched incrementally; eviction of old entries
// would make incremental counters drift.
func (s *SellerContextService) IngestCompletion(ctx context.Context, sellerID string, task *models.Task, attachmentSummaries []models.AttachmentSummary) (*models.SellerProfile, error) {
	if task == nil {
		return nil, lifecycle.ValidationFailed("task", "task is required")
	}
	if task.Status != models.TaskStatusCompleted || task.CompletedAt == nil {
		return nil, lifecycle.ValidationFailed("task", "only completed tasks can be ingested")
	}

	requestID := uuid.NewString()
	logger := logging.WithSeller(requestID, sellerID)
	started := s.now()

	release, err := s.lock.Acquire(ctx, sellerID)
	if err != nil {
		return nil, lifecycle.StoreUnavailable("acquire ingest lock", err)
	}
	defer release()

	profile, err := s.GetProfile(ctx, sellerID)
	if err != nil {
		return nil, err
	}

	entry := buildHistoryEntry(task, attachmentSummaries)
	profile.History = append([]models.CompletedTaskEntry{entry}, profile.History...)
	if len(profile.History) > models.ProfileHistoryLimit {
		profile.History = profile.History[:models.ProfileHistoryLimit]
	}
	profile.Stats = s.recomputeStats(profile.History)

	if err := s.persist(ctx, profile); err != nil {
		if m := GetMetrics(); m != nil {
			m.ProfileIngestionFails.Inc()
		}
		return nil, err
	}

	s.promptCache.Delete(sellerID)
	if m := GetMetrics(); m != nil {
		m.ProfileIngestions.Inc()
		m.IngestionLatency.Observe(s.now().Sub(started).Seconds())
	}
	logger.Info("completion ingested",
		"task_id", entry.TaskID,
		"outcome", entry.Outcome,
		"history_len", len(profile.History),
		"version", profile.Version)

	return profile, nil
}

// UpdateCustomContext merges the supplied fields into the seller's
// admin-authored context. Omitted (nil) fields keep their prior values.
// Task-derived history and statistics are never touched here.
func (s *SellerContextService) UpdateCustomContext(ctx context.Context, sellerID, name string, update models.CustomContextUpdate) (*models.SellerProfile, error) {
	release, err := s.lock.Acquire(ctx, sellerID)
	if err != nil {
		return nil, lifecycle.StoreUnavailable("acquire ingest lock", err)
	}
	defer release()

	profile, err := s.GetProfile(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	if name != "" {
		profile.Name = name
	}

	custom := &profile.Custom
	if update.Instructions != nil {
		custom.Instructions = *update.Instructions
	}
	if update.Strengths != nil {
		custom.Strengths = *update.Strengths
	}
	if update.Weaknesses != nil {
		custom.Weaknesses = *update.Weaknesses
	}
	if update.LearningGoals != nil {
		custom.LearningGoals = *update.LearningGoals
	}
	if update.CommunicationStyle != nil {
		custom.CommunicationStyle = *update.CommunicationStyle
	}
	if update.IndustryKnowledge != nil {
		custom.IndustryKnowledge = *update.IndustryKnowledge
	}
	if update.OrgGuidelines != nil {
		custom.OrgGuidelines = *update.OrgGuidelines
	}

	if err := s.persist(ctx, profile); err != nil {
		return nil, err
	}
	s.promptCache.Delete(sellerID)
	return profile, nil
}

// persist bumps the version, refreshes timestamps and writes the profile.
// The first write for a seller initializes the record at version 1.
func (s *SellerContextService) persist(ctx context.Context, profile *models.SellerProfile) error {
	now := s.now()
	if profile.Version == 0 {
		profile.CreatedAt = now
	}
	profile.Version++
	profile.UpdatedAt = now
	return s.store.Put(ctx, profile)
}

// buildHistoryEntry captures the completed task's fields plus any supplied
// attachment summaries into one bounded-history entry
func buildHistoryEntry(task *models.Task, attachmentSummaries []models.AttachmentSummary) models.CompletedTaskEntry {
	entry := models.CompletedTaskEntry{
		TaskID:              task.ID.Hex(),
		Kind:                task.Kind,
		Title:               task.Title,
		Description:         task.Description,
		CompletedAt:         *task.CompletedAt,
		Outcome:             task.Outcome,
		Notes:               task.Notes,
		ActualDuration:      task.ActualDuration,
		AttachmentSummaries: attachmentSummaries,
	}
	if task.Guidance != nil {
		entry.Rationale = task.Guidance.Rationale
		entry.Objectives = task.Guidance.Objectives
		entry.BestPractices = task.Guidance.BestPractices
	}
	// Summaries already extracted onto the task itself count too
	for _, att := range task.Attachments {
		if att.Summary == "" {
			continue
		}
		if hasAttachmentSummary(entry.AttachmentSummaries, att.Filename) {
			continue
		}
		entry.AttachmentSummaries = append(entry.AttachmentSummaries, models.AttachmentSummary{
			Filename: att.Filename,
			Summary:  att.Summary,
		})
	}
	return entry
}

func hasAttachmentSummary(summaries []models.AttachmentSummary, filename string) bool {
	for _, s := range summaries {
		if s.Filename == filename {
			return true
		}
	}
	return false
}

// recomputeStats derives every aggregate from scratch over the bounded history
func (s *SellerContextService) recomputeStats(history []models.CompletedTaskEntry) models.ProfileStats {
	stats := models.ProfileStats{TotalCompleted: len(history)}
	if len(history) == 0 {
		return stats
	}

	successes := 0
	durationSum := 0
	durationCount := 0
	for _, entry := range history {
		if entry.Outcome == models.TaskOutcomeSuccess {
			successes++
		}
		if entry.ActualDuration > 0 {
			durationSum += entry.ActualDuration
			durationCount++
		}
	}
	stats.SuccessRate = roundPercent(successes, len(history))
	if durationCount > 0 {
		stats.AvgDuration = float64(durationSum) / float64(durationCount)
	}

	stats.ObjectionSignals = s.detectObjectionSignals(history)
	stats.EffectiveTactics = collectEffectiveTactics(history)
	return stats
}

// detectObjectionSignals scans completion notes for objection-indicating
// phrases and returns the matched canonical labels, deduplicated and
// order-preserving, capped at the profile signal limit.
func (s *SellerContextService) detectObjectionSignals(history []models.CompletedTaskEntry) []string {
	var signals []string
	seen := make(map[string]bool)

	for _, entry := range history {
		if entry.Notes == "" {
			continue
		}
		notes := strings.ToLower(entry.Notes)
		for _, signal := range s.signals.Signals {
			if seen[signal.Label] {
				continue
			}
			for _, phrase := range signal.Phrases {
				if strings.Contains(notes, phrase) {
					seen[signal.Label] = true
					signals = append(signals, signal.Label)
					break
				}
			}
			if len(signals) >= models.ProfileSignalLimit {
				return signals
			}
		}
	}
	return signals
}

// collectEffectiveTactics gathers up to two best-practice strings from each
// successful entry, deduplicated and order-preserving, capped at the tactic limit
func collectEffectiveTactics(history []models.CompletedTaskEntry) []string {
	var tactics []string
	seen := make(map[string]bool)

	for _, entry := range history {
		if entry.Outcome != models.TaskOutcomeSuccess {
			continue
		}
		taken := 0
		for _, practice := range entry.BestPractices {
			if taken >= 2 {
				break
			}
			if practice == "" || seen[practice] {
				continue
			}
			seen[practice] = true
			tactics = append(tactics, practice)
			taken++
			if len(tactics) >= models.ProfileTacticLimit {
				return tactics
			}
		}
	}
	return tactics
}

func roundPercent(part, total int) int {
	if total == 0 {
		return 0
	}
	return (part*100 + total/2) / total
}
