package models

// AgentID identifies one of the supported job-board agents. The registry is
// the single authority for this set; ids outside it are rejected at init.
type AgentID string

const (
	AgentLinkedIn     AgentID = "linkedin"
	AgentIndeed       AgentID = "indeed"
	AgentGlassdoor    AgentID = "glassdoor"
	AgentGoogle       AgentID = "google" // Google Jobs aggregator
	AgentZipRecruiter AgentID = "ziprecruiter"
	AgentSeek         AgentID = "seek"   // Australia / New Zealand
	AgentNaukri       AgentID = "naukri" // India
	AgentBayt         AgentID = "bayt"   // Middle East / North Africa
	AgentBdjobs       AgentID = "bdjobs" // Bangladesh
)

// IsValid checks if the AgentID is a known, valid value
func (a AgentID) IsValid() bool {
	switch a {
	case AgentLinkedIn, AgentIndeed, AgentGlassdoor, AgentGoogle,
		AgentZipRecruiter, AgentSeek, AgentNaukri, AgentBayt, AgentBdjobs:
		return true
	}
	return false
}

// String returns the string representation of the AgentID
func (a AgentID) String() string {
	return string(a)
}

// AllAgentIDs returns a slice of all valid AgentID values
func AllAgentIDs() []AgentID {
	return []AgentID{
		AgentLinkedIn,
		AgentIndeed,
		AgentGlassdoor,
		AgentGoogle,
		AgentZipRecruiter,
		AgentSeek,
		AgentNaukri,
		AgentBayt,
		AgentBdjobs,
	}
}

// AgentRole is the role an agent plays within one routing decision.
type AgentRole string

const (
	RolePrimary   AgentRole = "primary"
	RoleSecondary AgentRole = "secondary"
	RoleFallback  AgentRole = "fallback"
)

// String returns the string representation of the AgentRole
func (r AgentRole) String() string {
	return string(r)
}

// Capability flags an optional feature a job board exposes through its agent.
type Capability string

const (
	CapabilitySalary        Capability = "salary"
	CapabilityRemoteFilter  Capability = "remote_filter"
	CapabilityDateFilter    Capability = "date_filter"
	CapabilityDescription   Capability = "description"
	CapabilityCompanyRating Capability = "company_rating"
)

// IsValid checks if the Capability is a known, valid value
func (c Capability) IsValid() bool {
	switch c {
	case CapabilitySalary, CapabilityRemoteFilter, CapabilityDateFilter,
		CapabilityDescription, CapabilityCompanyRating:
		return true
	}
	return false
}

// RateLimit is the sustained and burst request budget for one agent.
type RateLimit struct {
	RequestsPerMinute int `json:"requests_per_minute" toml:"requests_per_minute" validate:"gt=0"`
	Burst             int `json:"burst" toml:"burst" validate:"gt=0"`
}

// AgentDescriptor is the static capability record for one agent. Descriptors
// are loaded once by the registry and never mutated at runtime; callers
// always receive copies.
//
// ExcludedRegions is a hard constraint: routing must never select the agent
// for an excluded region, regardless of score. Geo-specific boards carry
// RegionGlobal in this set so worldwide queries cannot reach them.
type AgentDescriptor struct {
	ID                    AgentID              `json:"id" toml:"id" validate:"required"`
	PrimaryRegions        []Region             `json:"primary_regions" toml:"primary_regions" validate:"min=1"`
	ExcludedRegions       []Region             `json:"excluded_regions,omitempty" toml:"excluded_regions"`
	IndustryAffinity      map[Industry]float64 `json:"industry_affinity,omitempty" toml:"industry_affinity" validate:"dive,gte=0,lte=1"`
	ReliabilityScore      float64              `json:"reliability_score" toml:"reliability_score" validate:"gte=0,lte=1"`
	AvgLatencyMS          int                  `json:"avg_latency_ms" toml:"avg_latency_ms" validate:"gt=0"`
	RateLimit             RateLimit            `json:"rate_limit" toml:"rate_limit"`
	Capabilities          []Capability         `json:"capabilities,omitempty" toml:"capabilities"`
	MaxResultsPerCall     int                  `json:"max_results_per_call" toml:"max_results_per_call" validate:"gt=0"`
	SupportsJobTypeFilter bool                 `json:"supports_job_type_filter" toml:"supports_job_type_filter"`
}

// IsGlobalCapable reports whether the agent serves queries with no specific
// geography, which also qualifies it for secondary coverage of regions
// outside its primary set.
func (d *AgentDescriptor) IsGlobalCapable() bool {
	for _, r := range d.PrimaryRegions {
		if r == RegionGlobal {
			return true
		}
	}
	return false
}

// HasPrimaryRegion reports whether region is in the agent's primary set.
func (d *AgentDescriptor) HasPrimaryRegion(region Region) bool {
	for _, r := range d.PrimaryRegions {
		if r == region {
			return true
		}
	}
	return false
}

// ExcludesRegion reports whether region is hard-excluded for the agent.
func (d *AgentDescriptor) ExcludesRegion(region Region) bool {
	for _, r := range d.ExcludedRegions {
		if r == region {
			return true
		}
	}
	return false
}

// HasCapability reports whether the agent advertises the capability.
func (d *AgentDescriptor) HasCapability(c Capability) bool {
	for _, cap := range d.Capabilities {
		if cap == c {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the descriptor so registry state cannot be
// mutated through returned values.
func (d *AgentDescriptor) Clone() AgentDescriptor {
	out := *d
	out.PrimaryRegions = append([]Region(nil), d.PrimaryRegions...)
	out.ExcludedRegions = append([]Region(nil), d.ExcludedRegions...)
	out.Capabilities = append([]Capability(nil), d.Capabilities...)
	if d.IndustryAffinity != nil {
		out.IndustryAffinity = make(map[Industry]float64, len(d.IndustryAffinity))
		for k, v := range d.IndustryAffinity {
			out.IndustryAffinity[k] = v
		}
	}
	return out
}
