// Package routing selects agents for a run by scoring every registered
// descriptor against the classified intent. Scoring is pure arithmetic over
// registry data, so identical input always produces an identical decision
// and reasoning trail.
package routing

import (
	"fmt"
	"sort"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/indago/internal/common"
	"github.com/ternarybob/indago/internal/services/registry"
	"github.com/ternarybob/indago/pkg/models"
)

// Region score tiers. Primary coverage dominates; global-capable agents get
// partial credit away from their primary markets, and a middle tier when the
// region could not be detected at all.
const (
	regionScorePrimary         = 1.0
	regionScoreGlobalSecondary = 0.4
	regionScoreUnknownRegion   = 0.6

	// neutralIndustryScore applies to every agent when the detected
	// industry is unknown.
	neutralIndustryScore = 0.5
)

// Service scores and selects agents. Stateless between calls.
type Service struct {
	registry *registry.Service
	cfg      common.RoutingConfig
	logger   arbor.ILogger
}

// NewService builds the routing engine over a validated registry.
func NewService(reg *registry.Service, cfg common.RoutingConfig, logger arbor.ILogger) *Service {
	if logger == nil {
		logger = common.GetLogger()
	}
	return &Service{registry: reg, cfg: cfg, logger: logger}
}

// candidate is the working state for one agent during a routing pass.
type candidate struct {
	desc        models.AgentDescriptor
	regionScore float64
	industry    float64
	composite   float64
}

// Route produces the routing decision for a classified query. forceAgents,
// when non-empty, bypasses scoring-based selection and promotes exactly the
// named agents to primary; the hard region-exclusion filter still applies to
// them.
func (s *Service) Route(intent models.IntentResult, forceAgents []models.AgentID) (models.RoutingDecision, error) {
	decision := models.RoutingDecision{}

	if intent.IsJobRelated == models.TernaryFalse {
		return s.rejectAll(), nil
	}

	if len(forceAgents) > 0 {
		return s.routeForced(intent, forceAgents)
	}

	// The exclusion check runs against Global when the region is unknown, so
	// geo-restricted boards never serve queries with no detectable market.
	checkRegion := intent.Region
	if checkRegion == models.RegionUnknown {
		checkRegion = models.RegionGlobal
	}

	var candidates []*candidate
	for _, desc := range s.registry.GetAllAgents() {
		if desc.ExcludesRegion(checkRegion) {
			decision.Rejected = append(decision.Rejected, models.RejectedAgent{
				AgentID: desc.ID,
				Reason:  models.RejectionRegionExcluded,
				Detail:  fmt.Sprintf("%s is not available for %s queries", desc.ID, checkRegion),
			})
			decision.Reasoning = append(decision.Reasoning, models.ReasoningStep{
				Stage:   "exclusion",
				AgentID: desc.ID,
				Verdict: "rejected:region_excluded",
			})
			continue
		}

		c := &candidate{desc: desc}
		c.regionScore = s.regionScore(desc, intent.Region)
		if c.regionScore == 0 {
			decision.Rejected = append(decision.Rejected, models.RejectedAgent{
				AgentID: desc.ID,
				Reason:  models.RejectionNoRegionCoverage,
				Detail:  fmt.Sprintf("no coverage for region %s", intent.Region),
			})
			decision.Reasoning = append(decision.Reasoning, models.ReasoningStep{
				Stage:   "score",
				AgentID: desc.ID,
				Verdict: "rejected:no_region_coverage",
			})
			continue
		}

		c.industry = s.industryScore(desc.ID, intent.Industry)
		c.composite = s.composite(c.regionScore, c.industry, desc.ReliabilityScore, intent.OverallConfidence)
		candidates = append(candidates, c)
	}

	sortCandidates(candidates)

	primaries, secondaries := 0, 0
	var fallbacks int

	for _, c := range candidates {
		step := models.ReasoningStep{
			Stage:            "score",
			AgentID:          c.desc.ID,
			RegionScore:      c.regionScore,
			IndustryScore:    c.industry,
			ReliabilityScore: c.desc.ReliabilityScore,
			CompositeScore:   c.composite,
		}

		switch {
		case c.composite < s.cfg.MinSelectionScore && fallbacks < s.cfg.KFallback:
			fallbacks++
			step.Verdict = "fallback"
			decision.Selected = append(decision.Selected, models.SelectedAgent{
				AgentID: c.desc.ID, Role: models.RoleFallback, Weight: c.composite,
			})
		case c.composite < s.cfg.MinSelectionScore:
			step.Verdict = "rejected:outranked"
			decision.Rejected = append(decision.Rejected, models.RejectedAgent{
				AgentID: c.desc.ID,
				Reason:  models.RejectionOutranked,
				Detail:  fmt.Sprintf("composite score %.3f below minimum %.2f and fallback slots full", c.composite, s.cfg.MinSelectionScore),
			})
		case primaries < s.cfg.KPrimary:
			primaries++
			step.Verdict = "primary"
			decision.Selected = append(decision.Selected, models.SelectedAgent{
				AgentID: c.desc.ID, Role: models.RolePrimary, Weight: c.composite,
			})
		case secondaries < s.cfg.KSecondary:
			secondaries++
			step.Verdict = "secondary"
			decision.Selected = append(decision.Selected, models.SelectedAgent{
				AgentID: c.desc.ID, Role: models.RoleSecondary, Weight: c.composite,
			})
		default:
			step.Verdict = "rejected:outranked"
			decision.Rejected = append(decision.Rejected, models.RejectedAgent{
				AgentID: c.desc.ID,
				Reason:  models.RejectionOutranked,
				Detail:  fmt.Sprintf("composite score %.3f ranked below the selection quota", c.composite),
			})
		}
		decision.Reasoning = append(decision.Reasoning, step)
	}

	s.applyHardExclusionFilter(&decision, checkRegion)
	s.applyDiversityRule(&decision, candidates, intent.Region)

	decision.PredictedConfidence = activeMeanWeight(decision)
	sortRejected(decision.Rejected)

	s.logger.Debug().
		Str("region", string(intent.Region)).
		Str("industry", string(intent.Industry)).
		Int("selected", len(decision.Selected)).
		Int("rejected", len(decision.Rejected)).
		Msg("Routing decision computed")

	return decision, nil
}

// rejectAll handles the is_job_related=false gate: no agent runs, every
// agent is accounted for.
func (s *Service) rejectAll() models.RoutingDecision {
	decision := models.RoutingDecision{
		Reasoning: []models.ReasoningStep{{Stage: "gate", Verdict: "rejected:query_rejected"}},
	}
	for _, desc := range s.registry.GetAllAgents() {
		decision.Rejected = append(decision.Rejected, models.RejectedAgent{
			AgentID: desc.ID,
			Reason:  models.RejectionQueryRejected,
			Detail:  "query is not job related",
		})
	}
	return decision
}

// routeForced promotes the named agents to primary, keeping the hard
// exclusion filter in force. Everything else is reported as not_forced.
func (s *Service) routeForced(intent models.IntentResult, forceAgents []models.AgentID) (models.RoutingDecision, error) {
	decision := models.RoutingDecision{}

	checkRegion := intent.Region
	if checkRegion == models.RegionUnknown {
		checkRegion = models.RegionGlobal
	}

	forced := make(map[models.AgentID]bool, len(forceAgents))
	for _, id := range forceAgents {
		if forced[id] {
			continue
		}
		desc, ok := s.registry.Get(id)
		if !ok {
			return models.RoutingDecision{}, fmt.Errorf("force_agents names unknown agent id %q", id)
		}
		forced[id] = true

		if desc.ExcludesRegion(checkRegion) {
			decision.Rejected = append(decision.Rejected, models.RejectedAgent{
				AgentID: id,
				Reason:  models.RejectionRegionExcluded,
				Detail:  fmt.Sprintf("%s is not available for %s queries (forced selection overridden)", id, checkRegion),
			})
			decision.Reasoning = append(decision.Reasoning, models.ReasoningStep{
				Stage:   "forced",
				AgentID: id,
				Verdict: "rejected:region_excluded",
			})
			continue
		}

		regionScore := s.regionScore(desc, intent.Region)
		industryScore := s.industryScore(id, intent.Industry)
		composite := s.composite(regionScore, industryScore, desc.ReliabilityScore, intent.OverallConfidence)

		decision.Selected = append(decision.Selected, models.SelectedAgent{
			AgentID: id, Role: models.RolePrimary, Weight: composite,
		})
		decision.Reasoning = append(decision.Reasoning, models.ReasoningStep{
			Stage:            "forced",
			AgentID:          id,
			RegionScore:      regionScore,
			IndustryScore:    industryScore,
			ReliabilityScore: desc.ReliabilityScore,
			CompositeScore:   composite,
			Verdict:          "primary",
		})
	}

	for _, desc := range s.registry.GetAllAgents() {
		if !forced[desc.ID] {
			decision.Rejected = append(decision.Rejected, models.RejectedAgent{
				AgentID: desc.ID,
				Reason:  models.RejectionNotForced,
				Detail:  "left out by force_agents override",
			})
		}
	}

	decision.PredictedConfidence = activeMeanWeight(decision)
	sortRejected(decision.Rejected)
	return decision, nil
}

func (s *Service) regionScore(desc models.AgentDescriptor, region models.Region) float64 {
	if region == models.RegionUnknown {
		if desc.IsGlobalCapable() {
			return regionScoreUnknownRegion
		}
		return 0
	}
	if desc.HasPrimaryRegion(region) {
		return regionScorePrimary
	}
	if desc.IsGlobalCapable() {
		return regionScoreGlobalSecondary
	}
	return 0
}

func (s *Service) industryScore(id models.AgentID, industry models.Industry) float64 {
	if industry == models.IndustryUnknown {
		return neutralIndustryScore
	}
	return s.registry.IndustryAffinity(id, industry)
}

func (s *Service) composite(region, industry, reliability, confidence float64) float64 {
	base := s.cfg.RegionWeight*region + s.cfg.IndustryWeight*industry + s.cfg.ReliabilityWeight*reliability
	return base * confidence
}

// sortCandidates ranks by composite descending with deterministic
// tie-breaking: higher reliability first, then lexical agent id.
func sortCandidates(candidates []*candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.composite != b.composite {
			return a.composite > b.composite
		}
		if a.desc.ReliabilityScore != b.desc.ReliabilityScore {
			return a.desc.ReliabilityScore > b.desc.ReliabilityScore
		}
		return a.desc.ID < b.desc.ID
	})
}

// applyHardExclusionFilter re-verifies every selected agent against the
// excluded-regions set. An agent whose descriptor excludes the query
// region must never survive selection, whatever path put it there.
func (s *Service) applyHardExclusionFilter(decision *models.RoutingDecision, checkRegion models.Region) {
	kept := decision.Selected[:0]
	for _, sel := range decision.Selected {
		desc, ok := s.registry.Get(sel.AgentID)
		if ok && !desc.ExcludesRegion(checkRegion) {
			kept = append(kept, sel)
			continue
		}
		decision.Rejected = append(decision.Rejected, models.RejectedAgent{
			AgentID: sel.AgentID,
			Reason:  models.RejectionRegionExcluded,
			Detail:  fmt.Sprintf("%s is not available for %s queries (hard filter)", sel.AgentID, checkRegion),
		})
		decision.Reasoning = append(decision.Reasoning, models.ReasoningStep{
			Stage:   "hard_filter",
			AgentID: sel.AgentID,
			Verdict: "rejected:region_excluded",
		})
	}
	decision.Selected = kept
}

// applyDiversityRule keeps at least one global-capable agent in the active
// set unless the region already has two dedicated specialists selected.
func (s *Service) applyDiversityRule(decision *models.RoutingDecision, candidates []*candidate, region models.Region) {
	specialists, hasGlobal := 0, false
	for _, sel := range decision.Selected {
		if sel.Role == models.RoleFallback {
			continue
		}
		desc, ok := s.registry.Get(sel.AgentID)
		if !ok {
			continue
		}
		if desc.IsGlobalCapable() {
			hasGlobal = true
		} else if region != models.RegionUnknown && desc.HasPrimaryRegion(region) {
			specialists++
		}
	}
	if hasGlobal || specialists >= 2 {
		return
	}

	// Promote the best-ranked global-capable candidate not already active.
	active := make(map[models.AgentID]bool)
	for _, sel := range decision.Selected {
		if sel.Role != models.RoleFallback {
			active[sel.AgentID] = true
		}
	}
	for _, c := range candidates {
		if active[c.desc.ID] || !c.desc.IsGlobalCapable() {
			continue
		}
		removeSelection(decision, c.desc.ID)
		removeRejection(decision, c.desc.ID)
		decision.Selected = append(decision.Selected, models.SelectedAgent{
			AgentID: c.desc.ID, Role: models.RoleSecondary, Weight: c.composite,
		})
		decision.Reasoning = append(decision.Reasoning, models.ReasoningStep{
			Stage:            "diversity",
			AgentID:          c.desc.ID,
			RegionScore:      c.regionScore,
			IndustryScore:    c.industry,
			ReliabilityScore: c.desc.ReliabilityScore,
			CompositeScore:   c.composite,
			Verdict:          "promoted:secondary",
		})
		return
	}

	decision.Reasoning = append(decision.Reasoning, models.ReasoningStep{
		Stage:   "diversity",
		Verdict: "no global-capable candidate available",
	})
}

func removeSelection(decision *models.RoutingDecision, id models.AgentID) {
	kept := decision.Selected[:0]
	for _, sel := range decision.Selected {
		if sel.AgentID != id {
			kept = append(kept, sel)
		}
	}
	decision.Selected = kept
}

func removeRejection(decision *models.RoutingDecision, id models.AgentID) {
	kept := decision.Rejected[:0]
	for _, rej := range decision.Rejected {
		if rej.AgentID != id {
			kept = append(kept, rej)
		}
	}
	decision.Rejected = kept
}

// activeMeanWeight averages the composite scores of the primary and
// secondary selections.
func activeMeanWeight(decision models.RoutingDecision) float64 {
	sum, n := 0.0, 0
	for _, sel := range decision.Selected {
		if sel.Role == models.RolePrimary || sel.Role == models.RoleSecondary {
			sum += sel.Weight
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func sortRejected(rejected []models.RejectedAgent) {
	sort.Slice(rejected, func(i, j int) bool {
		return rejected[i].AgentID < rejected[j].AgentID
	})
}
