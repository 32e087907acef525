package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/aimorme/dateplan-back/internal/cultural"
	"github.com/aimorme/dateplan-back/internal/domain"
)

const venueTake = 10

// VenueDiscoveryStage matches drafted activities to real venues in the
// requested city. Degradable: on failure the draft's generic locations
// stand and the result is flagged.
type VenueDiscoveryStage struct {
	discoverer cultural.Discoverer
}

func NewVenueDiscoveryStage(discoverer cultural.Discoverer) *VenueDiscoveryStage {
	return &VenueDiscoveryStage{discoverer: discoverer}
}

func (s *VenueDiscoveryStage) Index() int {
	return domain.StageVenueDiscovery
}

func (s *VenueDiscoveryStage) Execute(ctx context.Context, ws *Workspace) (StageResult, error) {
	if !s.discoverer.Available() {
		return StageResult{}, fmt.Errorf("venue discovery: %w", cultural.ErrUnavailable)
	}

	signalIDs := make([]string, 0, len(ws.Discovery.Seeds))
	for _, seed := range ws.Discovery.Seeds {
		if seed.ID != "" {
			signalIDs = append(signalIDs, seed.ID)
		}
	}

	usage := domain.ProviderUsage{CulturalCalls: 1}
	venues, err := s.discoverer.Insights(ctx, cultural.InsightsParams{
		EntityType:     "urn:entity:place",
		SignalEntities: signalIDs,
		LocationQuery:  ws.Request.Context.Location,
		PopularityMin:  0.3,
		Take:           venueTake,
	})
	if err != nil {
		return StageResult{Usage: usage}, fmt.Errorf("venue discovery: %w", err)
	}
	if len(venues) == 0 {
		return StageResult{Usage: usage}, fmt.Errorf("venue discovery: no venues found for %s", ws.Request.Context.Location)
	}

	matched := attachVenues(ws, venues)
	ws.Venues = VenueMatches{Venues: venues, Matched: matched}

	return StageResult{
		Output:  marshalOutput(ws.Venues),
		Preview: fmt.Sprintf("Matched %d venues in %s", matched, ws.Request.Context.Location),
		Usage:   usage,
	}, nil
}

// Fallback keeps the draft's generic location descriptions.
func (s *VenueDiscoveryStage) Fallback(ws *Workspace) StageResult {
	ws.Venues = VenueMatches{Degraded: true}
	return StageResult{
		Output:  marshalOutput(ws.Venues),
		Preview: "Using general location suggestions",
	}
}

// attachVenues assigns discovered venues to drafted activities in order,
// preferring a venue whose tags overlap the activity name.
func attachVenues(ws *Workspace, venues []cultural.Entity) int {
	used := make(map[int]bool, len(venues))
	matched := 0
	for i := range ws.Draft.Activities {
		activity := &ws.Draft.Activities[i]
		pick := -1
		lowered := strings.ToLower(activity.Name + " " + activity.Description)
		for j, venue := range venues {
			if used[j] {
				continue
			}
			for _, tag := range venue.Tags {
				if tag != "" && strings.Contains(lowered, strings.ToLower(tag)) {
					pick = j
					break
				}
			}
			if pick >= 0 {
				break
			}
		}
		if pick < 0 {
			for j := range venues {
				if !used[j] {
					pick = j
					break
				}
			}
		}
		if pick < 0 {
			break
		}
		used[pick] = true
		activity.LocationName = venues[pick].Name
		activity.Address = venues[pick].Address
		matched++
	}
	return matched
}
