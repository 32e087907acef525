package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/aimorme/dateplan-back/internal/ai"
	"github.com/aimorme/dateplan-back/internal/domain"
	"github.com/aimorme/dateplan-back/internal/quality"
)

const profileAnalysisInstructions = `You analyze two dating profiles for a date planning service.
Read both profiles and return strict JSON with this shape:
{"profile_a":{"interests":[],"personality_traits":[],"conversation_style":"","energy_level":""},
"profile_b":{"interests":[],"personality_traits":[],"conversation_style":"","energy_level":""},
"shared_interests":[]}
Interests must be concrete and searchable (artists, cuisines, genres, hobbies), 3 to 8 per profile.
energy_level is one of: low, moderate, high. Respond with JSON only.`

// ProfileAnalysisStage reads both raw profiles into structured traits and
// shared interests. Load-bearing: everything downstream keys off its output.
type ProfileAnalysisStage struct {
	generator ai.TextGenerator
	model     string
}

func NewProfileAnalysisStage(generator ai.TextGenerator, model string) *ProfileAnalysisStage {
	return &ProfileAnalysisStage{generator: generator, model: model}
}

func (s *ProfileAnalysisStage) Index() int {
	return domain.StageProfileAnalysis
}

func (s *ProfileAnalysisStage) Execute(ctx context.Context, ws *Workspace) (StageResult, error) {
	input := buildProfileInput(ws.Request)
	generated, err := s.generator.Generate(ctx, ai.GenerateRequest{
		Model:           s.model,
		Instructions:    profileAnalysisInstructions,
		Input:           input,
		Images:          profileImages(ws.Request),
		Temperature:     0.3,
		MaxOutputTokens: 900,
	})
	usage := domain.ProviderUsage{ReasoningCalls: 1, ReasoningTokens: generated.Usage.TotalTokens}
	if err != nil {
		return StageResult{Usage: usage}, fmt.Errorf("profile analysis: %w", err)
	}

	var analysis ProfileAnalysis
	if err := quality.DecodeInto(generated.Text, &analysis); err != nil {
		return StageResult{Usage: usage}, fmt.Errorf("profile analysis: %w", err)
	}
	if len(analysis.ProfileA.Interests) == 0 && len(analysis.ProfileB.Interests) == 0 {
		return StageResult{Usage: usage}, fmt.Errorf("profile analysis: %w: no interests extracted", quality.ErrMalformedOutput)
	}

	ws.Analysis = analysis
	preview := "Analyzed both personalities"
	if shared := joinTop(analysis.SharedInterests, 3); shared != "" {
		preview = "Found shared ground: " + shared
	}
	return StageResult{
		Output:  marshalOutput(analysis),
		Preview: preview,
		Usage:   usage,
	}, nil
}

func buildProfileInput(request domain.PlanRequest) string {
	var builder strings.Builder
	builder.WriteString("PROFILE A:\n")
	builder.WriteString(request.ProfileA.Text)
	if count := len(request.ProfileA.ImageData); count > 0 {
		fmt.Fprintf(&builder, "\n(the first %d attached image(s) are profile A screenshots)", count)
	}
	builder.WriteString("\n\nPROFILE B:\n")
	builder.WriteString(request.ProfileB.Text)
	if count := len(request.ProfileB.ImageData); count > 0 {
		fmt.Fprintf(&builder, "\n(the remaining %d attached image(s) are profile B screenshots)", count)
	}
	builder.WriteString("\n\nDATE CONTEXT: ")
	builder.WriteString(request.Context.DateType)
	builder.WriteString(" in ")
	builder.WriteString(request.Context.Location)
	builder.WriteString(", ")
	builder.WriteString(request.Context.TimeOfDay)
	builder.WriteString(", ")
	builder.WriteString(request.Context.Season)
	return builder.String()
}

// profileImages orders A's screenshots before B's, matching the attribution
// note in the text input.
func profileImages(request domain.PlanRequest) []string {
	images := make([]string, 0, len(request.ProfileA.ImageData)+len(request.ProfileB.ImageData))
	images = append(images, request.ProfileA.ImageData...)
	images = append(images, request.ProfileB.ImageData...)
	return images
}
