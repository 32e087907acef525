package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aimorme/dateplan-back/internal/ai"
	"github.com/aimorme/dateplan-back/internal/domain"
	"github.com/aimorme/dateplan-back/internal/quality"
)

const activityPlanningInstructions = `You design a date itinerary from compatibility data and cultural recommendations.
Return strict JSON:
{"title":"","theme":"","activities":[{"name":"","time_slot":"","description":"",
"conversation_prompts":[],"practical_notes":"","backup_option":""}]}
Plan 2-4 activities that fit the requested duration, time of day and season.
Do not invent venue names or addresses; describe the kind of place instead.
conversation_prompts are 2-3 openers grounded in their shared interests. Respond with JSON only.`

// ActivityPlanningStage drafts the itinerary skeleton. Last load-bearing
// stage: a usable partial plan exists from here on.
type ActivityPlanningStage struct {
	generator ai.TextGenerator
	model     string
}

func NewActivityPlanningStage(generator ai.TextGenerator, model string) *ActivityPlanningStage {
	return &ActivityPlanningStage{generator: generator, model: model}
}

func (s *ActivityPlanningStage) Index() int {
	return domain.StageActivityPlanning
}

func (s *ActivityPlanningStage) Execute(ctx context.Context, ws *Workspace) (StageResult, error) {
	input, err := json.Marshal(map[string]any{
		"context":         ws.Request.Context,
		"analysis":        ws.Analysis,
		"compatibility":   ws.Compatibility,
		"recommendations": ws.Discovery.Recommendations,
	})
	if err != nil {
		return StageResult{}, fmt.Errorf("activity planning: encode input: %w", err)
	}

	generated, err := s.generator.Generate(ctx, ai.GenerateRequest{
		Model:           s.model,
		Instructions:    activityPlanningInstructions,
		Input:           string(input),
		Temperature:     0.7,
		MaxOutputTokens: 1400,
	})
	usage := domain.ProviderUsage{ReasoningCalls: 1, ReasoningTokens: generated.Usage.TotalTokens}
	if err != nil {
		return StageResult{Usage: usage}, fmt.Errorf("activity planning: %w", err)
	}

	var draft ActivityDraft
	if err := quality.DecodeInto(generated.Text, &draft); err != nil {
		return StageResult{Usage: usage}, fmt.Errorf("activity planning: %w", err)
	}
	if len(draft.Activities) == 0 {
		return StageResult{Usage: usage}, fmt.Errorf("activity planning: %w", errors.New("no activities drafted"))
	}

	ws.Draft = draft
	preview := fmt.Sprintf("Drafted %d-stop itinerary", len(draft.Activities))
	if draft.Theme != "" {
		preview = "Planned a " + draft.Theme + " date arc"
	}
	return StageResult{
		Output:  marshalOutput(draft),
		Preview: preview,
		Usage:   usage,
	}, nil
}
