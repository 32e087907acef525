package pipeline

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/aimorme/dateplan-back/internal/domain"
)

// DegradationFlags marks which degradable stages ran on fallback output.
type DegradationFlags struct {
	VenueMatching     bool `json:"venue_matching"`
	FinalOptimization bool `json:"final_optimization"`
}

// FinalPlanResult is the payload persisted as the job's final_result.
type FinalPlanResult struct {
	Plan                   domain.DatePlan      `json:"plan"`
	CompatibilityScore     float64              `json:"compatibility_score"`
	CompatibilityNarrative string               `json:"compatibility_narrative,omitempty"`
	CulturalHighlights     []string             `json:"cultural_highlights,omitempty"`
	Degraded               DegradationFlags     `json:"degraded"`
	Usage                  domain.ProviderUsage `json:"usage"`
	GeneratedAt            time.Time            `json:"generated_at"`
	ProcessingSeconds      float64              `json:"processing_seconds"`
}

func buildFinalResult(ws *Workspace, record *domain.JobRecord, now time.Time) json.RawMessage {
	result := FinalPlanResult{
		Plan:                   ws.Plan,
		CompatibilityScore:     ws.Compatibility.Score,
		CompatibilityNarrative: ws.Compatibility.Narrative,
		CulturalHighlights:     ws.Discovery.Highlights,
		Degraded: DegradationFlags{
			VenueMatching:     ws.Venues.Degraded,
			FinalOptimization: ws.DegradedFinalOptimization,
		},
		Usage:       record.Usage,
		GeneratedAt: now,
	}
	if record.StartedAt != nil {
		result.ProcessingSeconds = now.Sub(*record.StartedAt).Seconds()
	}
	return marshalOutput(result)
}

// buildPartialResult snapshots the outputs of every resolved stage so a
// failed job still returns everything the pipeline managed to produce.
func buildPartialResult(stages []domain.StageState) json.RawMessage {
	snapshot := make(map[string]json.RawMessage, len(stages))
	completed := make([]string, 0, len(stages))
	for _, stage := range stages {
		if stage.Status != domain.StageStatusComplete && stage.Status != domain.StageStatusSkipped {
			continue
		}
		completed = append(completed, stage.Name)
		if len(stage.Output) > 0 {
			snapshot[snakeName(stage.Name)] = stage.Output
		}
	}
	if len(completed) == 0 {
		return nil
	}

	payload := map[string]any{
		"completed_stages": completed,
		"outputs":          snapshot,
	}
	return marshalOutput(payload)
}

func snakeName(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "_")
}
