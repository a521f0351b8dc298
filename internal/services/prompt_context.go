package services

import (
	"context"
	"fmt"
	"strings"

	"dealflow/internal/models"
)

// attachmentSummaryMaxChars caps attachment text rendered into prompt context
const attachmentSummaryMaxChars = 200

// FormatForPrompt renders the seller's profile as a deterministic plain-text
// document for embedding into AI guidance prompts. Results are cached per
// seller until the next profile write.
func (s *SellerContextService) FormatForPrompt(ctx context.Context, sellerID string) (string, error) {
	if cached, ok := s.promptCache.Get(sellerID); ok {
		if m := GetMetrics(); m != nil {
			m.PromptCacheHits.Inc()
		}
		return cached.(string), nil
	}

	profile, err := s.GetProfile(ctx, sellerID)
	if err != nil {
		return "", err
	}

	doc := renderPromptContext(profile)
	s.promptCache.SetDefault(sellerID, doc)
	if m := GetMetrics(); m != nil {
		m.PromptBuilds.Inc()
	}
	return doc, nil
}

// renderPromptContext builds the prompt document. Section order is fixed and
// sections with no content are omitted entirely, never printed empty.
func renderPromptContext(profile *models.SellerProfile) string {
	var sb strings.Builder

	// 1. Header
	name := profile.Name
	if name == "" {
		name = profile.SellerID
	}
	sb.WriteString(fmt.Sprintf("SELLER PROFILE: %s\n\n", name))

	// 2. Statistics
	sb.WriteString("PERFORMANCE\n")
	sb.WriteString(fmt.Sprintf("- Completed tasks: %d\n", profile.Stats.TotalCompleted))
	sb.WriteString(fmt.Sprintf("- Success rate: %d%%\n", profile.Stats.SuccessRate))
	if profile.Stats.AvgDuration > 0 {
		sb.WriteString(fmt.Sprintf("- Average task duration: %.0f min\n", profile.Stats.AvgDuration))
	}
	sb.WriteString("\n")

	// 3. Admin-authored context
	if profile.Custom.Instructions != "" {
		sb.WriteString("CUSTOM INSTRUCTIONS\n")
		sb.WriteString(profile.Custom.Instructions)
		sb.WriteString("\n\n")
	}
	writeListSection(&sb, "STRENGTHS", profile.Custom.Strengths)
	writeListSection(&sb, "WEAKNESSES", profile.Custom.Weaknesses)
	writeListSection(&sb, "LEARNING GOALS", profile.Custom.LearningGoals)
	writeTextSection(&sb, "COMMUNICATION STYLE", profile.Custom.CommunicationStyle)
	writeTextSection(&sb, "INDUSTRY KNOWLEDGE", profile.Custom.IndustryKnowledge)
	writeTextSection(&sb, "ORGANIZATION GUIDELINES", profile.Custom.OrgGuidelines)

	// 4. Task-derived signals
	writeListSection(&sb, "EFFECTIVE TACTICS", profile.Stats.EffectiveTactics)
	writeListSection(&sb, "RECURRING OBJECTIONS", profile.Stats.ObjectionSignals)

	// 5. Recent completions
	recent := profile.History
	if len(recent) > models.ProfileRecentInPrompt {
		recent = recent[:models.ProfileRecentInPrompt]
	}
	if len(recent) > 0 {
		sb.WriteString("RECENT COMPLETIONS\n")
		for _, entry := range recent {
			sb.WriteString(fmt.Sprintf("- [%s] %s — %s (%s)\n",
				entry.Outcome, entry.CompletedAt.Format("2006-01-02"), entry.Title, entry.Kind))
			if entry.Notes != "" {
				sb.WriteString(fmt.Sprintf("  Notes: %s\n", truncateText(entry.Notes, attachmentSummaryMaxChars)))
			}
			if entry.Analysis != "" {
				sb.WriteString(fmt.Sprintf("  Analysis: %s\n", truncateText(entry.Analysis, attachmentSummaryMaxChars)))
			}
			for _, att := range entry.AttachmentSummaries {
				if att.Summary != "" {
					sb.WriteString(fmt.Sprintf("  Attachment %s: %s\n", att.Filename, truncateText(att.Summary, attachmentSummaryMaxChars)))
				} else {
					sb.WriteString(fmt.Sprintf("  Attachment %s\n", att.Filename))
				}
			}
		}
	}

	return strings.TrimRight(sb.String(), "\n") + "\n"
}

func writeListSection(sb *strings.Builder, header string, items []string) {
	if len(items) == 0 {
		return
	}
	sb.WriteString(header)
	sb.WriteString("\n")
	for _, item := range items {
		sb.WriteString(fmt.Sprintf("- %s\n", item))
	}
	sb.WriteString("\n")
}

func writeTextSection(sb *strings.Builder, header, text string) {
	if text == "" {
		return
	}
	sb.WriteString(header)
	sb.WriteString("\n")
	sb.WriteString(text)
	sb.WriteString("\n\n")
}

// truncateText truncates a string to maxLen characters
func truncateText(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
