package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aimorme/dateplan-back/internal/ai"
	"github.com/aimorme/dateplan-back/internal/cultural"
	"github.com/aimorme/dateplan-back/internal/domain"
)

type fakeGenerator struct {
	text        string
	err         error
	lastRequest ai.GenerateRequest
}

func (g *fakeGenerator) Generate(_ context.Context, request ai.GenerateRequest) (ai.GenerateResult, error) {
	g.lastRequest = request
	if g.err != nil {
		return ai.GenerateResult{}, g.err
	}
	return ai.GenerateResult{Text: g.text, Usage: ai.TokenUsage{TotalTokens: 42}}, nil
}

func (g *fakeGenerator) Available() bool { return true }

type fakeDiscoverer struct {
	searchResults   []cultural.Entity
	insightsResults map[string][]cultural.Entity
	searchErr       error
	insightsErr     error
	available       bool
}

func (d *fakeDiscoverer) Search(_ context.Context, _ cultural.SearchParams) ([]cultural.Entity, error) {
	return d.searchResults, d.searchErr
}

func (d *fakeDiscoverer) Insights(_ context.Context, params cultural.InsightsParams) ([]cultural.Entity, error) {
	if d.insightsErr != nil {
		return nil, d.insightsErr
	}
	return d.insightsResults[params.EntityType], nil
}

func (d *fakeDiscoverer) Available() bool { return d.available }

func testWorkspace() *Workspace {
	return NewWorkspace(domain.PlanRequest{
		ProfileA: domain.ProfileInput{Text: "loves jazz"},
		ProfileB: domain.ProfileInput{Text: "loves food"},
		Context: domain.DateContext{
			Location: "amsterdam", TimeOfDay: "evening",
			Season: "summer", Duration: "4 hours", DateType: "first_date",
		},
	})
}

func TestProfileAnalysisStageParsesModelOutput(t *testing.T) {
	generator := &fakeGenerator{text: `{
		"profile_a": {"interests": ["jazz", "museums"], "energy_level": "moderate"},
		"profile_b": {"interests": ["hiking"], "energy_level": "high"},
		"shared_interests": ["live music"]
	}`}
	stage := NewProfileAnalysisStage(generator, "model")
	ws := testWorkspace()

	result, err := stage.Execute(context.Background(), ws)
	require.NoError(t, err)
	require.Equal(t, []string{"jazz", "museums"}, ws.Analysis.ProfileA.Interests)
	require.Equal(t, []string{"live music"}, ws.Analysis.SharedInterests)
	require.Equal(t, 1, result.Usage.ReasoningCalls)
	require.Equal(t, 42, result.Usage.ReasoningTokens)
	require.NotEmpty(t, result.Output)
	require.Contains(t, result.Preview, "live music")
}

func TestProfileAnalysisStageForwardsProfileImages(t *testing.T) {
	generator := &fakeGenerator{text: `{
		"profile_a": {"interests": ["jazz"]},
		"profile_b": {"interests": ["food"]},
		"shared_interests": []
	}`}
	stage := NewProfileAnalysisStage(generator, "model")
	ws := testWorkspace()
	ws.Request.ProfileA.ImageData = []string{"imgA1", "imgA2"}
	ws.Request.ProfileB.ImageData = []string{"imgB1"}

	_, err := stage.Execute(context.Background(), ws)
	require.NoError(t, err)
	require.Equal(t, []string{"imgA1", "imgA2", "imgB1"}, generator.lastRequest.Images,
		"profile A screenshots come before profile B's")
	require.Contains(t, generator.lastRequest.Input, "profile A screenshots")
	require.Contains(t, generator.lastRequest.Input, "profile B screenshots")
}

func TestProfileAnalysisStageRejectsEmptyAnalysis(t *testing.T) {
	generator := &fakeGenerator{text: `{"profile_a":{},"profile_b":{},"shared_interests":[]}`}
	stage := NewProfileAnalysisStage(generator, "model")

	_, err := stage.Execute(context.Background(), testWorkspace())
	require.Error(t, err)
	require.False(t, ai.IsTransient(err), "malformed output must be permanent")
}

func TestCulturalDiscoveryStageAggregatesRecommendations(t *testing.T) {
	discoverer := &fakeDiscoverer{
		available:     true,
		searchResults: []cultural.Entity{{ID: "e1", Name: "Miles Davis"}},
		insightsResults: map[string][]cultural.Entity{
			"urn:entity:artist": {{ID: "a1", Name: "Chet Baker"}},
			"urn:entity:place":  {{ID: "p1", Name: "Bimhuis"}},
		},
	}
	stage := NewCulturalDiscoveryStage(discoverer)
	ws := testWorkspace()
	ws.Analysis = ProfileAnalysis{SharedInterests: []string{"jazz"}}

	result, err := stage.Execute(context.Background(), ws)
	require.NoError(t, err)
	require.NotEmpty(t, ws.Discovery.Seeds)
	require.Len(t, ws.Discovery.Recommendations["music"], 1, "recommendations are keyed by domain name")
	require.Len(t, ws.Discovery.Recommendations["dining"], 1)
	require.NotEmpty(t, ws.Discovery.Highlights)
	require.Greater(t, result.Usage.CulturalCalls, 0)
}

func TestCulturalDiscoveryStageFailsWithoutSeeds(t *testing.T) {
	stage := NewCulturalDiscoveryStage(&fakeDiscoverer{available: true})
	ws := testWorkspace()

	_, err := stage.Execute(context.Background(), ws)
	require.Error(t, err)
}

func TestCulturalDiscoveryStageReportsUnavailableProvider(t *testing.T) {
	stage := NewCulturalDiscoveryStage(&fakeDiscoverer{available: false})
	ws := testWorkspace()
	ws.Analysis = ProfileAnalysis{SharedInterests: []string{"jazz"}}

	_, err := stage.Execute(context.Background(), ws)
	require.ErrorIs(t, err, cultural.ErrUnavailable)
}

func TestVenueDiscoveryStageAttachesVenues(t *testing.T) {
	discoverer := &fakeDiscoverer{
		available: true,
		insightsResults: map[string][]cultural.Entity{
			"urn:entity:place": {
				{ID: "v1", Name: "Bimhuis", Address: "Piet Heinkade 3", Tags: []string{"jazz"}},
				{ID: "v2", Name: "Cafe Brecht", Address: "Weteringschans 157"},
			},
		},
	}
	stage := NewVenueDiscoveryStage(discoverer)
	ws := testWorkspace()
	ws.Draft = ActivityDraft{Activities: []domain.Activity{
		{Name: "Listen to live jazz"},
		{Name: "Grab a drink"},
	}}

	_, err := stage.Execute(context.Background(), ws)
	require.NoError(t, err)
	require.Equal(t, "Bimhuis", ws.Draft.Activities[0].LocationName, "tag overlap should win")
	require.Equal(t, "Cafe Brecht", ws.Draft.Activities[1].LocationName)
	require.Equal(t, 2, ws.Venues.Matched)
	require.False(t, ws.Venues.Degraded)
}

func TestVenueDiscoveryFallbackFlagsDegradation(t *testing.T) {
	stage := NewVenueDiscoveryStage(&fakeDiscoverer{available: true, insightsErr: errors.New("down")})
	ws := testWorkspace()

	result := stage.Fallback(ws)
	require.True(t, ws.Venues.Degraded)
	require.NotEmpty(t, result.Preview)
}

func TestFinalOptimizationStageFillsMissingFields(t *testing.T) {
	generator := &fakeGenerator{text: `{
		"title": "Jazz Evening",
		"activities": [{"name": "Live set at Bimhuis", "time_slot": "20:00"}]
	}`}
	stage := NewFinalOptimizationStage(generator, "model")
	ws := testWorkspace()
	ws.Draft = ActivityDraft{Activities: []domain.Activity{{Name: "Jazz"}}}

	_, err := stage.Execute(context.Background(), ws)
	require.NoError(t, err)
	require.Equal(t, "amsterdam", ws.Plan.LocationCity)
	require.Equal(t, "4 hours", ws.Plan.TotalDuration)
	require.Len(t, ws.Plan.Activities, 1)
}

func TestFinalOptimizationFallbackAssemblesFromDraft(t *testing.T) {
	stage := NewFinalOptimizationStage(&fakeGenerator{err: errors.New("down")}, "model")
	ws := testWorkspace()
	ws.Draft = ActivityDraft{
		Title:      "Draft Title",
		Activities: []domain.Activity{{Name: "Canal walk"}},
	}

	result := stage.Fallback(ws)
	require.True(t, ws.DegradedFinalOptimization)
	require.Equal(t, "Draft Title", ws.Plan.Title)
	require.Len(t, ws.Plan.Activities, 1)
	require.NotEmpty(t, result.Output)
}
