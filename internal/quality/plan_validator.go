package quality

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aimorme/dateplan-back/internal/domain"
)

var ErrPlanRejected = errors.New("plan failed quality checks")

const (
	maxActivities        = 6
	maxPromptsPerStop    = 5
	maxActivityNameLen   = 120
	maxDescriptionLen    = 900
	maxPromptLen         = 280
	maxPracticalNotesLen = 400
)

// ValidatePlan normalizes a model-produced plan in place and rejects
// anything too thin to show a user. Overlong fields are trimmed rather
// than rejected.
func ValidatePlan(plan *domain.DatePlan) error {
	if plan == nil {
		return fmt.Errorf("%w: plan is nil", ErrPlanRejected)
	}

	plan.Title = normalizeText(plan.Title)
	if plan.Title == "" {
		plan.Title = "Your Date Plan"
	}
	plan.Theme = normalizeText(plan.Theme)
	plan.TotalDuration = normalizeText(plan.TotalDuration)

	activities := make([]domain.Activity, 0, len(plan.Activities))
	for _, activity := range plan.Activities {
		activity.Name = truncateAtWord(normalizeText(activity.Name), maxActivityNameLen)
		if activity.Name == "" {
			continue
		}
		activity.TimeSlot = normalizeText(activity.TimeSlot)
		activity.LocationName = normalizeText(activity.LocationName)
		activity.Address = normalizeText(activity.Address)
		activity.Description = truncateAtWord(normalizeText(activity.Description), maxDescriptionLen)
		activity.BackupOption = normalizeText(activity.BackupOption)

		notes := make([]string, 0, len(activity.PracticalNotes))
		for _, note := range activity.PracticalNotes {
			normalized := truncateAtWord(normalizeText(note), maxPracticalNotesLen)
			if normalized == "" {
				continue
			}
			notes = append(notes, normalized)
		}
		activity.PracticalNotes = notes

		prompts := make([]string, 0, len(activity.ConversationPrompts))
		for _, prompt := range activity.ConversationPrompts {
			normalized := truncateAtWord(normalizeText(prompt), maxPromptLen)
			if normalized == "" {
				continue
			}
			prompts = append(prompts, normalized)
			if len(prompts) == maxPromptsPerStop {
				break
			}
		}
		activity.ConversationPrompts = prompts

		activities = append(activities, activity)
		if len(activities) == maxActivities {
			break
		}
	}

	if len(activities) == 0 {
		return fmt.Errorf("%w: no usable activities", ErrPlanRejected)
	}
	plan.Activities = activities
	return nil
}

func normalizeText(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	parts := strings.Fields(trimmed)
	return strings.Join(parts, " ")
}

func truncateAtWord(value string, maxLen int) string {
	if len(value) <= maxLen || maxLen <= 0 {
		return value
	}
	cut := value[:maxLen]
	lastSpace := strings.LastIndex(cut, " ")
	if lastSpace > maxLen/2 {
		cut = cut[:lastSpace]
	}
	return strings.TrimSpace(cut)
}
