// Package registry maintains the catalog of scraping agent descriptors and
// answers capability questions for the routing layer.
package registry

import (
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/indago/internal/common"
	"github.com/ternarybob/indago/pkg/models"
)

// DefaultIndustryAffinity is assumed when a descriptor has no entry for the
// detected industry.
const DefaultIndustryAffinity = 0.2

var descriptorValidate = validator.New()

// Service holds the validated agent catalog. The catalog is immutable after
// construction, so reads need no locking.
type Service struct {
	agents map[models.AgentID]models.AgentDescriptor
	logger arbor.ILogger
}

// NewService builds the registry from the built-in catalog, applies any
// [agents.<id>] overrides from configuration and validates the result.
// Unknown agent ids in the override table are an error rather than a warning:
// a typo there would otherwise silently leave the intended agent untouched.
func NewService(cfg *common.Config, logger arbor.ILogger) (*Service, error) {
	return NewServiceWithCatalog(builtinCatalog(), cfg, logger)
}

// NewServiceWithCatalog builds the registry from a caller-supplied catalog.
// This is the extension point for registering agents beyond the built-in
// set; descriptors go through the same validation as the shipped catalog.
func NewServiceWithCatalog(catalog []models.AgentDescriptor, cfg *common.Config, logger arbor.ILogger) (*Service, error) {
	if logger == nil {
		logger = common.GetLogger()
	}

	s := &Service{
		agents: make(map[models.AgentID]models.AgentDescriptor),
		logger: logger,
	}

	for _, desc := range catalog {
		if _, dup := s.agents[desc.ID]; dup {
			return nil, fmt.Errorf("duplicate agent descriptor: %s", desc.ID)
		}
		s.agents[desc.ID] = desc.Clone()
	}

	if cfg != nil {
		if err := s.applyOverrides(cfg.Agents); err != nil {
			return nil, err
		}
	}

	for id, desc := range s.agents {
		if err := validateDescriptor(desc); err != nil {
			return nil, fmt.Errorf("agent %s: %w", id, err)
		}
	}

	s.logger.Info().
		Int("agents", len(s.agents)).
		Int("overridden", overrideCount(cfg)).
		Msg("Agent registry initialized")

	return s, nil
}

func overrideCount(cfg *common.Config) int {
	if cfg == nil {
		return 0
	}
	return len(cfg.Agents)
}

func (s *Service) applyOverrides(overrides map[string]common.AgentOverrideConfig) error {
	for rawID, ov := range overrides {
		id := models.AgentID(rawID)
		desc, ok := s.agents[id]
		if !ok {
			return fmt.Errorf("agent override for unknown agent id: %s", rawID)
		}
		if ov.RequestsPerMinute != nil {
			desc.RateLimit.RequestsPerMinute = *ov.RequestsPerMinute
		}
		if ov.Burst != nil {
			desc.RateLimit.Burst = *ov.Burst
		}
		if ov.ReliabilityScore != nil {
			desc.ReliabilityScore = *ov.ReliabilityScore
		}
		if ov.AvgLatencyMS != nil {
			desc.AvgLatencyMS = *ov.AvgLatencyMS
		}
		if ov.MaxResultsPerCall != nil {
			desc.MaxResultsPerCall = *ov.MaxResultsPerCall
		}
		s.agents[id] = desc
		s.logger.Debug().Str("agent", rawID).Msg("Applied agent override")
	}
	return nil
}

func validateDescriptor(desc models.AgentDescriptor) error {
	if !validAgentID(string(desc.ID)) {
		return fmt.Errorf("invalid agent id %q", string(desc.ID))
	}
	if err := descriptorValidate.Struct(desc); err != nil {
		return fmt.Errorf("descriptor validation failed: %w", err)
	}
	for _, r := range desc.PrimaryRegions {
		if !r.IsValid() || r == models.RegionUnknown {
			return fmt.Errorf("invalid primary region %q", string(r))
		}
	}
	for _, r := range desc.ExcludedRegions {
		if !r.IsValid() || r == models.RegionUnknown {
			return fmt.Errorf("invalid excluded region %q", string(r))
		}
		if desc.HasPrimaryRegion(r) {
			return fmt.Errorf("region %s is both primary and excluded", r)
		}
	}
	for ind := range desc.IndustryAffinity {
		if !ind.IsValid() || ind == models.IndustryUnknown {
			return fmt.Errorf("invalid affinity industry %q", string(ind))
		}
	}
	for _, c := range desc.Capabilities {
		if !c.IsValid() {
			return fmt.Errorf("invalid capability %q", string(c))
		}
	}
	return nil
}

// validAgentID accepts lowercase snake-case identifiers. Catalog extension
// agents follow the same naming as the built-in set.
func validAgentID(id string) bool {
	if id == "" {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			return false
		}
	}
	return true
}

// GetAllAgents returns descriptor copies sorted by agent id. Sorted order
// keeps downstream routing deterministic regardless of map iteration.
func (s *Service) GetAllAgents() []models.AgentDescriptor {
	out := make([]models.AgentDescriptor, 0, len(s.agents))
	for _, desc := range s.agents {
		out = append(out, desc.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Get returns a copy of the descriptor for the given agent id.
func (s *Service) Get(id models.AgentID) (models.AgentDescriptor, bool) {
	desc, ok := s.agents[id]
	if !ok {
		return models.AgentDescriptor{}, false
	}
	return desc.Clone(), true
}

// Count returns the number of registered agents.
func (s *Service) Count() int {
	return len(s.agents)
}

// SupportsRegion reports whether the agent can serve the given region:
// the region must not be excluded, and the agent must either list it as
// primary or be global-capable. Unknown regions are served only by
// global-capable agents that do not exclude Global.
func (s *Service) SupportsRegion(id models.AgentID, region models.Region) bool {
	desc, ok := s.agents[id]
	if !ok {
		return false
	}
	if region == models.RegionUnknown {
		return desc.IsGlobalCapable() && !desc.ExcludesRegion(models.RegionGlobal)
	}
	if desc.ExcludesRegion(region) {
		return false
	}
	return desc.HasPrimaryRegion(region) || desc.IsGlobalCapable()
}

// SupportsIndustry reports whether the agent has better-than-default affinity
// for the given industry.
func (s *Service) SupportsIndustry(id models.AgentID, industry models.Industry) bool {
	return s.IndustryAffinity(id, industry) > DefaultIndustryAffinity
}

// IndustryAffinity returns the agent's affinity for the industry, falling
// back to DefaultIndustryAffinity when the catalog has no entry. The neutral
// treatment of IndustryUnknown is a routing concern, not a catalog one.
func (s *Service) IndustryAffinity(id models.AgentID, industry models.Industry) float64 {
	desc, ok := s.agents[id]
	if !ok {
		return 0
	}
	if affinity, ok := desc.IndustryAffinity[industry]; ok {
		return affinity
	}
	return DefaultIndustryAffinity
}
