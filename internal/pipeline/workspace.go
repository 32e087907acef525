package pipeline

import (
	"github.com/aimorme/dateplan-back/internal/cultural"
	"github.com/aimorme/dateplan-back/internal/domain"
)

// ProfileTraits is the structured read of one dating profile produced by
// the analysis stage.
type ProfileTraits struct {
	Interests         []string `json:"interests"`
	PersonalityTraits []string `json:"personality_traits"`
	ConversationStyle string   `json:"conversation_style"`
	EnergyLevel       string   `json:"energy_level"`
}

type ProfileAnalysis struct {
	ProfileA        ProfileTraits `json:"profile_a"`
	ProfileB        ProfileTraits `json:"profile_b"`
	SharedInterests []string      `json:"shared_interests"`
}

// CulturalDiscovery carries resolved interest entities and the cross-domain
// recommendations derived from them.
type CulturalDiscovery struct {
	Seeds           []cultural.Entity            `json:"seeds"`
	Recommendations map[string][]cultural.Entity `json:"recommendations"`
	Highlights      []string                     `json:"highlights"`
}

type CompatibilityReport struct {
	Score             float64            `json:"score"`
	Dimensions        map[string]float64 `json:"dimensions"`
	SharedFoundations []string           `json:"shared_foundations"`
	Narrative         string             `json:"narrative"`
}

// ActivityDraft is the venue-agnostic plan skeleton from the planning stage.
type ActivityDraft struct {
	Title      string            `json:"title"`
	Theme      string            `json:"theme"`
	Activities []domain.Activity `json:"activities"`
}

type VenueMatches struct {
	Venues   []cultural.Entity `json:"venues"`
	Matched  int               `json:"matched"`
	Degraded bool              `json:"degraded"`
}

// Workspace is the in-memory working document a single pipeline run threads
// through its stages. Each stage reads what earlier stages wrote; nothing
// here is shared between runs.
type Workspace struct {
	Request domain.PlanRequest

	Analysis      ProfileAnalysis
	Discovery     CulturalDiscovery
	Compatibility CompatibilityReport
	Draft         ActivityDraft
	Venues        VenueMatches
	Plan          domain.DatePlan

	DegradedFinalOptimization bool
}

func NewWorkspace(request domain.PlanRequest) *Workspace {
	return &Workspace{Request: request}
}
