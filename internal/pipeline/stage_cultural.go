package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/aimorme/dateplan-back/internal/cultural"
	"github.com/aimorme/dateplan-back/internal/domain"
)

// culturalDomains are the taste graph verticals explored per shared
// interest seed.
var culturalDomains = map[string]string{
	"music":      "urn:entity:artist",
	"dining":     "urn:entity:place",
	"film":       "urn:entity:movie",
	"literature": "urn:entity:book",
}

const (
	maxSeedInterests     = 6
	maxSeedEntities      = 8
	recommendationsTake  = 6
	minUsableDiscoveries = 1
)

// CulturalDiscoveryStage resolves extracted interests against the taste
// graph and expands them into cross-domain recommendations. Load-bearing:
// compatibility and venue matching both consume its output.
type CulturalDiscoveryStage struct {
	discoverer cultural.Discoverer
}

func NewCulturalDiscoveryStage(discoverer cultural.Discoverer) *CulturalDiscoveryStage {
	return &CulturalDiscoveryStage{discoverer: discoverer}
}

func (s *CulturalDiscoveryStage) Index() int {
	return domain.StageCulturalDiscovery
}

func (s *CulturalDiscoveryStage) Execute(ctx context.Context, ws *Workspace) (StageResult, error) {
	if !s.discoverer.Available() {
		return StageResult{}, fmt.Errorf("cultural discovery: %w", cultural.ErrUnavailable)
	}

	seeds := seedInterests(ws.Analysis)
	if len(seeds) == 0 {
		return StageResult{}, errors.New("cultural discovery: no interest seeds from analysis")
	}

	discovery := CulturalDiscovery{
		Recommendations: make(map[string][]cultural.Entity, len(culturalDomains)),
	}
	usage := domain.ProviderUsage{}
	var lastErr error

	for _, seed := range seeds {
		if ctx.Err() != nil {
			return StageResult{Usage: usage}, ctx.Err()
		}
		usage.CulturalCalls++
		entities, err := s.discoverer.Search(ctx, cultural.SearchParams{
			Query:    seed,
			Location: ws.Request.Context.Location,
			Take:     2,
		})
		if err != nil {
			lastErr = err
			continue
		}
		for _, entity := range entities {
			discovery.Seeds = append(discovery.Seeds, entity)
			if len(discovery.Seeds) >= maxSeedEntities {
				break
			}
		}
		if len(discovery.Seeds) >= maxSeedEntities {
			break
		}
	}
	if len(discovery.Seeds) == 0 {
		if lastErr != nil {
			return StageResult{Usage: usage}, fmt.Errorf("cultural discovery: seed resolution: %w", lastErr)
		}
		return StageResult{Usage: usage}, errors.New("cultural discovery: no seeds resolved")
	}

	signalIDs := make([]string, 0, len(discovery.Seeds))
	for _, seed := range discovery.Seeds {
		if seed.ID != "" {
			signalIDs = append(signalIDs, seed.ID)
		}
	}

	resolvedDomains := 0
	for name, entityType := range culturalDomains {
		if ctx.Err() != nil {
			return StageResult{Usage: usage}, ctx.Err()
		}
		usage.CulturalCalls++
		entities, err := s.discoverer.Insights(ctx, cultural.InsightsParams{
			EntityType:     entityType,
			SignalEntities: signalIDs,
			LocationQuery:  ws.Request.Context.Location,
			Take:           recommendationsTake,
		})
		if err != nil {
			lastErr = err
			continue
		}
		if len(entities) == 0 {
			continue
		}
		discovery.Recommendations[name] = entities
		resolvedDomains++
		discovery.Highlights = append(discovery.Highlights, entities[0].Name)
	}
	if resolvedDomains < minUsableDiscoveries {
		if lastErr != nil {
			return StageResult{Usage: usage}, fmt.Errorf("cultural discovery: insights: %w", lastErr)
		}
		return StageResult{Usage: usage}, errors.New("cultural discovery: no recommendations resolved")
	}

	ws.Discovery = discovery
	preview := "Explored cultural preferences"
	if highlight := joinTop(discovery.Highlights, 2); highlight != "" {
		preview = "Discovered tastes like " + highlight
	}
	return StageResult{
		Output:  marshalOutput(discovery),
		Preview: preview,
		Usage:   usage,
	}, nil
}

func seedInterests(analysis ProfileAnalysis) []string {
	seen := make(map[string]struct{})
	seeds := make([]string, 0, maxSeedInterests)
	ordered := append([]string{}, analysis.SharedInterests...)
	ordered = append(ordered, analysis.ProfileA.Interests...)
	ordered = append(ordered, analysis.ProfileB.Interests...)
	for _, interest := range ordered {
		if interest == "" {
			continue
		}
		if _, exists := seen[interest]; exists {
			continue
		}
		seen[interest] = struct{}{}
		seeds = append(seeds, interest)
		if len(seeds) == maxSeedInterests {
			break
		}
	}
	return seeds
}
