package routing

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/indago/internal/common"
	"github.com/ternarybob/indago/internal/services/registry"
	"github.com/ternarybob/indago/pkg/models"
)

func newTestRouter(t *testing.T) *Service {
	t.Helper()
	reg, err := registry.NewService(nil, arbor.NewLogger())
	require.NoError(t, err)
	return NewService(reg, common.NewDefaultConfig().Routing, arbor.NewLogger())
}

func jobIntent(region models.Region, industry models.Industry, confidence float64) models.IntentResult {
	intent := models.NewIntentResult()
	intent.Region = region
	intent.RegionConfidence = confidence
	intent.Industry = industry
	intent.IndustryConfidence = confidence
	intent.IsJobRelated = models.TernaryTrue
	intent.OverallConfidence = confidence
	return intent
}

func selectedIDs(decision models.RoutingDecision, role models.AgentRole) []models.AgentID {
	var ids []models.AgentID
	for _, sel := range decision.AgentsWithRole(role) {
		ids = append(ids, sel.AgentID)
	}
	return ids
}

func rejectionFor(decision models.RoutingDecision, id models.AgentID) (models.RejectedAgent, bool) {
	for _, rej := range decision.Rejected {
		if rej.AgentID == id {
			return rej, true
		}
	}
	return models.RejectedAgent{}, false
}

func TestRoute_EuropeTechnologySelection(t *testing.T) {
	router := newTestRouter(t)

	decision, err := router.Route(jobIntent(models.RegionEurope, models.IndustryTechnology, 1.0), nil)
	require.NoError(t, err)

	assert.Equal(t,
		[]models.AgentID{models.AgentLinkedIn, models.AgentIndeed},
		selectedIDs(decision, models.RolePrimary))
	assert.Equal(t,
		[]models.AgentID{models.AgentGlassdoor, models.AgentGoogle},
		selectedIDs(decision, models.RoleSecondary))

	// Composite = 0.5*region + 0.3*industry + 0.2*reliability at full
	// confidence.
	weights := map[models.AgentID]float64{}
	for _, sel := range decision.Selected {
		weights[sel.AgentID] = sel.Weight
	}
	assert.InDelta(t, 0.965, weights[models.AgentLinkedIn], 1e-9)
	assert.InDelta(t, 0.930, weights[models.AgentIndeed], 1e-9)
	assert.InDelta(t, 0.895, weights[models.AgentGlassdoor], 1e-9)
	assert.InDelta(t, 0.586, weights[models.AgentGoogle], 1e-9)

	// Every geo-specific board outside Europe is rejected with an explicit
	// reason; selected plus rejected covers the whole catalog.
	for _, id := range []models.AgentID{
		models.AgentZipRecruiter, models.AgentSeek, models.AgentNaukri,
		models.AgentBayt, models.AgentBdjobs,
	} {
		rej, found := rejectionFor(decision, id)
		require.True(t, found, "agent %s must be rejected", id)
		assert.Equal(t, models.RejectionNoRegionCoverage, rej.Reason, "agent %s", id)
		assert.NotEmpty(t, rej.Detail)
	}
	assert.Len(t, decision.Selected, 4)
	assert.Len(t, decision.Rejected, 5)
}

func TestRoute_WorldwideQueryExcludesGeoRestrictedBoards(t *testing.T) {
	router := newTestRouter(t)

	decision, err := router.Route(jobIntent(models.RegionGlobal, models.IndustryTechnology, 1.0), nil)
	require.NoError(t, err)

	assert.Equal(t,
		[]models.AgentID{models.AgentLinkedIn, models.AgentIndeed},
		selectedIDs(decision, models.RolePrimary))
	assert.Equal(t,
		[]models.AgentID{models.AgentGoogle},
		selectedIDs(decision, models.RoleSecondary))

	// The exclusion that once leaked: glassdoor must never serve a
	// worldwide query.
	rej, found := rejectionFor(decision, models.AgentGlassdoor)
	require.True(t, found)
	assert.Equal(t, models.RejectionRegionExcluded, rej.Reason)
	assert.Contains(t, rej.Detail, "not available for global")

	for _, sel := range decision.Selected {
		assert.NotEqual(t, models.AgentGlassdoor, sel.AgentID)
	}
	assert.Len(t, decision.Rejected, 6)
}

func TestRoute_NonJobQueryRejectsEverything(t *testing.T) {
	router := newTestRouter(t)

	intent := models.NewIntentResult()
	intent.IsJobRelated = models.TernaryFalse

	decision, err := router.Route(intent, nil)
	require.NoError(t, err)

	assert.Empty(t, decision.Selected)
	assert.Len(t, decision.Rejected, len(models.AllAgentIDs()))
	for _, rej := range decision.Rejected {
		assert.Equal(t, models.RejectionQueryRejected, rej.Reason)
	}
	require.NotEmpty(t, decision.Reasoning)
	assert.Equal(t, "gate", decision.Reasoning[0].Stage)
	assert.Zero(t, decision.PredictedConfidence)
}

func TestRoute_UnknownRegionUsesGlobalCapableAgentsOnly(t *testing.T) {
	router := newTestRouter(t)

	decision, err := router.Route(jobIntent(models.RegionUnknown, models.IndustryTechnology, 0.8), nil)
	require.NoError(t, err)

	for _, sel := range decision.Selected {
		if sel.Role == models.RoleFallback {
			continue
		}
		switch sel.AgentID {
		case models.AgentLinkedIn, models.AgentIndeed, models.AgentGoogle:
		default:
			t.Errorf("non global-capable agent %s selected for unknown region", sel.AgentID)
		}
	}

	// Geo-restricted boards hit the Global exclusion when no region was
	// detected.
	rej, found := rejectionFor(decision, models.AgentSeek)
	require.True(t, found)
	assert.Equal(t, models.RejectionRegionExcluded, rej.Reason)
}

func TestRoute_LowConfidenceDemotesToFallback(t *testing.T) {
	router := newTestRouter(t)

	decision, err := router.Route(jobIntent(models.RegionEurope, models.IndustryTechnology, 0.2), nil)
	require.NoError(t, err)

	// google: (0.5*0.4 + 0.3*0.70 + 0.2*0.88) * 0.2 = 0.117 < 0.15
	fallbacks := selectedIDs(decision, models.RoleFallback)
	assert.Equal(t, []models.AgentID{models.AgentGoogle}, fallbacks)

	// The three agents above the floor keep active roles.
	assert.Equal(t,
		[]models.AgentID{models.AgentLinkedIn, models.AgentIndeed},
		selectedIDs(decision, models.RolePrimary))
	assert.Equal(t,
		[]models.AgentID{models.AgentGlassdoor},
		selectedIDs(decision, models.RoleSecondary))
}

func TestRoute_ForceAgents(t *testing.T) {
	router := newTestRouter(t)

	t.Run("forced agents become primaries", func(t *testing.T) {
		decision, err := router.Route(
			jobIntent(models.RegionEurope, models.IndustryTechnology, 1.0),
			[]models.AgentID{models.AgentIndeed, models.AgentSeek})
		require.NoError(t, err)

		assert.Equal(t,
			[]models.AgentID{models.AgentIndeed, models.AgentSeek},
			selectedIDs(decision, models.RolePrimary))

		rej, found := rejectionFor(decision, models.AgentLinkedIn)
		require.True(t, found)
		assert.Equal(t, models.RejectionNotForced, rej.Reason)
	})

	t.Run("hard exclusion still applies to forced agents", func(t *testing.T) {
		decision, err := router.Route(
			jobIntent(models.RegionGlobal, models.IndustryTechnology, 1.0),
			[]models.AgentID{models.AgentGlassdoor, models.AgentIndeed})
		require.NoError(t, err)

		assert.Equal(t,
			[]models.AgentID{models.AgentIndeed},
			selectedIDs(decision, models.RolePrimary))

		rej, found := rejectionFor(decision, models.AgentGlassdoor)
		require.True(t, found)
		assert.Equal(t, models.RejectionRegionExcluded, rej.Reason)
	})

	t.Run("unknown forced id is an error", func(t *testing.T) {
		_, err := router.Route(
			jobIntent(models.RegionEurope, models.IndustryTechnology, 1.0),
			[]models.AgentID{models.AgentID("monster")})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown agent id")
	})
}

func TestRoute_DeterministicDecision(t *testing.T) {
	router := newTestRouter(t)
	intent := jobIntent(models.RegionEurope, models.IndustryTechnology, 0.77)

	first, err := router.Route(intent, nil)
	require.NoError(t, err)
	firstJSON, err := json.Marshal(first)
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		next, err := router.Route(intent, nil)
		require.NoError(t, err)
		nextJSON, err := json.Marshal(next)
		require.NoError(t, err)
		require.Equal(t, string(firstJSON), string(nextJSON),
			"routing decision must be byte-identical for identical input")
	}
}

func TestRoute_SyntheticRegistryAllExcludeGlobal(t *testing.T) {
	catalog := []models.AgentDescriptor{
		{
			ID:                models.AgentID("alpha"),
			PrimaryRegions:    []models.Region{models.RegionEurope},
			ExcludedRegions:   []models.Region{models.RegionGlobal},
			ReliabilityScore:  0.9,
			AvgLatencyMS:      1000,
			RateLimit:         models.RateLimit{RequestsPerMinute: 10, Burst: 2},
			MaxResultsPerCall: 100,
		},
		{
			ID:                models.AgentID("beta"),
			PrimaryRegions:    []models.Region{models.RegionNorthAmerica},
			ExcludedRegions:   []models.Region{models.RegionGlobal},
			ReliabilityScore:  0.8,
			AvgLatencyMS:      1000,
			RateLimit:         models.RateLimit{RequestsPerMinute: 10, Burst: 2},
			MaxResultsPerCall: 100,
		},
	}
	reg, err := registry.NewServiceWithCatalog(catalog, nil, arbor.NewLogger())
	require.NoError(t, err)
	router := NewService(reg, common.NewDefaultConfig().Routing, arbor.NewLogger())

	decision, err := router.Route(jobIntent(models.RegionGlobal, models.IndustryUnknown, 1.0), nil)
	require.NoError(t, err)

	assert.Empty(t, decision.Selected, "no agent may serve a worldwide query when all exclude Global")
	assert.Len(t, decision.Rejected, 2)
	for _, rej := range decision.Rejected {
		assert.Equal(t, models.RejectionRegionExcluded, rej.Reason)
	}
}

func TestRoute_DiversityRulePromotesGlobalAgent(t *testing.T) {
	catalog := []models.AgentDescriptor{
		{
			ID:                models.AgentID("specialist"),
			PrimaryRegions:    []models.Region{models.RegionEurope},
			ExcludedRegions:   []models.Region{models.RegionGlobal},
			ReliabilityScore:  0.9,
			AvgLatencyMS:      1000,
			RateLimit:         models.RateLimit{RequestsPerMinute: 10, Burst: 2},
			MaxResultsPerCall: 100,
		},
		{
			ID:                models.AgentID("worldws"),
			PrimaryRegions:    []models.Region{models.RegionGlobal},
			ReliabilityScore:  0.5,
			AvgLatencyMS:      1000,
			RateLimit:         models.RateLimit{RequestsPerMinute: 10, Burst: 2},
			MaxResultsPerCall: 100,
		},
	}
	reg, err := registry.NewServiceWithCatalog(catalog, nil, arbor.NewLogger())
	require.NoError(t, err)

	cfg := common.NewDefaultConfig().Routing
	cfg.KPrimary = 1
	cfg.KSecondary = 0
	router := NewService(reg, cfg, arbor.NewLogger())

	decision, err := router.Route(jobIntent(models.RegionEurope, models.IndustryUnknown, 1.0), nil)
	require.NoError(t, err)

	assert.Equal(t,
		[]models.AgentID{models.AgentID("specialist")},
		selectedIDs(decision, models.RolePrimary))

	// One specialist alone does not satisfy the diversity rule; the
	// global-capable candidate is pulled back in as secondary.
	assert.Equal(t,
		[]models.AgentID{models.AgentID("worldws")},
		selectedIDs(decision, models.RoleSecondary))

	_, stillRejected := rejectionFor(decision, models.AgentID("worldws"))
	assert.False(t, stillRejected, "promoted agent must leave the rejected list")
}
