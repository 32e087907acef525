package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aimorme/dateplan-back/internal/ai"
	"github.com/aimorme/dateplan-back/internal/domain"
	"github.com/aimorme/dateplan-back/internal/quality"
)

const compatibilityInstructions = `You score romantic compatibility from structured profile analyses and cultural taste data.
Return strict JSON:
{"score":0,"dimensions":{"interests":0,"energy":0,"conversation":0,"cultural_taste":0},
"shared_foundations":[],"narrative":""}
All scores are 0-100 integers. narrative is 2-3 sentences, warm but specific. Respond with JSON only.`

// CompatibilityStage turns the analyses plus cultural data into a scored
// compatibility read. Load-bearing.
type CompatibilityStage struct {
	generator ai.TextGenerator
	model     string
}

func NewCompatibilityStage(generator ai.TextGenerator, model string) *CompatibilityStage {
	return &CompatibilityStage{generator: generator, model: model}
}

func (s *CompatibilityStage) Index() int {
	return domain.StageCompatibility
}

func (s *CompatibilityStage) Execute(ctx context.Context, ws *Workspace) (StageResult, error) {
	input, err := json.Marshal(map[string]any{
		"analysis":        ws.Analysis,
		"cultural_seeds":  ws.Discovery.Seeds,
		"recommendations": ws.Discovery.Recommendations,
	})
	if err != nil {
		return StageResult{}, fmt.Errorf("compatibility: encode input: %w", err)
	}

	generated, err := s.generator.Generate(ctx, ai.GenerateRequest{
		Model:           s.model,
		Instructions:    compatibilityInstructions,
		Input:           string(input),
		Temperature:     0.4,
		MaxOutputTokens: 700,
	})
	usage := domain.ProviderUsage{ReasoningCalls: 1, ReasoningTokens: generated.Usage.TotalTokens}
	if err != nil {
		return StageResult{Usage: usage}, fmt.Errorf("compatibility: %w", err)
	}

	var report CompatibilityReport
	if err := quality.DecodeInto(generated.Text, &report); err != nil {
		return StageResult{Usage: usage}, fmt.Errorf("compatibility: %w", err)
	}
	if report.Score < 0 {
		report.Score = 0
	}
	if report.Score > 100 {
		report.Score = 100
	}

	ws.Compatibility = report
	return StageResult{
		Output:  marshalOutput(report),
		Preview: fmt.Sprintf("Compatibility scored at %.0f%%", report.Score),
		Usage:   usage,
	}, nil
}
