package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aimorme/dateplan-back/internal/ai"
	"github.com/aimorme/dateplan-back/internal/domain"
	"github.com/aimorme/dateplan-back/internal/quality"
)

const finalOptimizationInstructions = `You polish a drafted date itinerary into its final form.
Return strict JSON:
{"title":"","theme":"","location_city":"","total_duration":"",
"activities":[{"name":"","time_slot":"","location_name":"","address":"","description":"",
"conversation_prompts":[],"practical_notes":"","backup_option":""}]}
Keep the matched venues exactly as given. Tighten descriptions, order activities into a
natural arc for the time of day, fill time_slot for every stop and add practical_notes
(reservations, weather, transit between stops). Respond with JSON only.`

// FinalOptimizationStage runs a last reasoning pass over the assembled plan.
// Degradable: the fallback assembles the final plan mechanically from the
// draft and venue matches.
type FinalOptimizationStage struct {
	generator ai.TextGenerator
	model     string
}

func NewFinalOptimizationStage(generator ai.TextGenerator, model string) *FinalOptimizationStage {
	return &FinalOptimizationStage{generator: generator, model: model}
}

func (s *FinalOptimizationStage) Index() int {
	return domain.StageFinalOptimization
}

func (s *FinalOptimizationStage) Execute(ctx context.Context, ws *Workspace) (StageResult, error) {
	input, err := json.Marshal(map[string]any{
		"context":       ws.Request.Context,
		"draft":         ws.Draft,
		"venues":        ws.Venues.Venues,
		"compatibility": ws.Compatibility,
	})
	if err != nil {
		return StageResult{}, fmt.Errorf("final optimization: encode input: %w", err)
	}

	generated, err := s.generator.Generate(ctx, ai.GenerateRequest{
		Model:           s.model,
		Instructions:    finalOptimizationInstructions,
		Input:           string(input),
		Temperature:     0.5,
		MaxOutputTokens: 1600,
	})
	usage := domain.ProviderUsage{ReasoningCalls: 1, ReasoningTokens: generated.Usage.TotalTokens}
	if err != nil {
		return StageResult{Usage: usage}, fmt.Errorf("final optimization: %w", err)
	}

	var plan domain.DatePlan
	if err := quality.DecodeInto(generated.Text, &plan); err != nil {
		return StageResult{Usage: usage}, fmt.Errorf("final optimization: %w", err)
	}
	if plan.LocationCity == "" {
		plan.LocationCity = ws.Request.Context.Location
	}
	if plan.TotalDuration == "" {
		plan.TotalDuration = ws.Request.Context.Duration
	}
	if err := quality.ValidatePlan(&plan); err != nil {
		return StageResult{Usage: usage}, fmt.Errorf("final optimization: %w", err)
	}

	ws.Plan = plan
	return StageResult{
		Output:  marshalOutput(plan),
		Preview: "Polished the final plan: " + plan.Title,
		Usage:   usage,
	}, nil
}

// Fallback assembles the plan directly from the draft and whatever venues
// were matched, without another model call.
func (s *FinalOptimizationStage) Fallback(ws *Workspace) StageResult {
	plan := domain.DatePlan{
		Title:         ws.Draft.Title,
		Theme:         ws.Draft.Theme,
		LocationCity:  ws.Request.Context.Location,
		TotalDuration: ws.Request.Context.Duration,
		Activities:    append([]domain.Activity(nil), ws.Draft.Activities...),
	}
	if err := quality.ValidatePlan(&plan); err != nil {
		// Draft had nothing usable either; surface an empty but valid plan.
		plan.Activities = nil
	}

	ws.Plan = plan
	ws.DegradedFinalOptimization = true
	return StageResult{
		Output:  marshalOutput(plan),
		Preview: "Assembled final plan from draft",
	}
}
