package registry

import (
	"github.com/ternarybob/indago/pkg/models"
)

// builtinCatalog returns the shipped descriptor set. Values are priors tuned
// against observed board behavior; deployments adjust them through the
// [agents.<id>] config overrides rather than editing this table.
//
// Geo-specific boards carry RegionGlobal in ExcludedRegions. That exclusion
// is load-bearing: it is what keeps a worldwide query from being routed to a
// board that only serves one market.
func builtinCatalog() []models.AgentDescriptor {
	return []models.AgentDescriptor{
		{
			ID:             models.AgentLinkedIn,
			PrimaryRegions: []models.Region{models.RegionGlobal, models.RegionNorthAmerica, models.RegionEurope},
			IndustryAffinity: map[models.Industry]float64{
				models.IndustryTechnology:    0.95,
				models.IndustryFinance:       0.85,
				models.IndustryHealthcare:    0.60,
				models.IndustryEducation:     0.55,
				models.IndustryManufacturing: 0.55,
				models.IndustryGovernment:    0.50,
				models.IndustryRetail:        0.50,
				models.IndustryConstruction:  0.40,
				models.IndustryOther:         0.60,
			},
			ReliabilityScore: 0.90,
			AvgLatencyMS:     4500, // browser-assisted pagination
			RateLimit:        models.RateLimit{RequestsPerMinute: 10, Burst: 2},
			Capabilities: []models.Capability{
				models.CapabilityRemoteFilter,
				models.CapabilityDateFilter,
				models.CapabilityDescription,
			},
			MaxResultsPerCall:     1000,
			SupportsJobTypeFilter: true,
		},
		{
			ID:             models.AgentIndeed,
			PrimaryRegions: []models.Region{models.RegionGlobal, models.RegionNorthAmerica, models.RegionEurope, models.RegionOceania},
			IndustryAffinity: map[models.Industry]float64{
				models.IndustryTechnology:    0.80,
				models.IndustryHealthcare:    0.75,
				models.IndustryRetail:        0.75,
				models.IndustryConstruction:  0.70,
				models.IndustryManufacturing: 0.70,
				models.IndustryOther:         0.70,
				models.IndustryFinance:       0.65,
				models.IndustryEducation:     0.65,
				models.IndustryGovernment:    0.60,
			},
			ReliabilityScore: 0.95,
			AvgLatencyMS:     2500,
			RateLimit:        models.RateLimit{RequestsPerMinute: 30, Burst: 5},
			Capabilities: []models.Capability{
				models.CapabilitySalary,
				models.CapabilityRemoteFilter,
				models.CapabilityDateFilter,
				models.CapabilityDescription,
				models.CapabilityCompanyRating,
			},
			MaxResultsPerCall:     500,
			SupportsJobTypeFilter: true,
		},
		{
			ID:              models.AgentGlassdoor,
			PrimaryRegions:  []models.Region{models.RegionNorthAmerica, models.RegionEurope},
			ExcludedRegions: []models.Region{models.RegionGlobal},
			IndustryAffinity: map[models.Industry]float64{
				models.IndustryTechnology: 0.75,
				models.IndustryFinance:    0.70,
				models.IndustryHealthcare: 0.60,
				models.IndustryEducation:  0.55,
				models.IndustryOther:      0.55,
			},
			ReliabilityScore: 0.85,
			AvgLatencyMS:     5000, // browser-assisted
			RateLimit:        models.RateLimit{RequestsPerMinute: 12, Burst: 2},
			Capabilities: []models.Capability{
				models.CapabilitySalary,
				models.CapabilityRemoteFilter,
				models.CapabilityDateFilter,
				models.CapabilityDescription,
				models.CapabilityCompanyRating,
			},
			MaxResultsPerCall:     900,
			SupportsJobTypeFilter: true,
		},
		{
			ID:             models.AgentGoogle,
			PrimaryRegions: []models.Region{models.RegionGlobal},
			IndustryAffinity: map[models.Industry]float64{
				models.IndustryTechnology:    0.70,
				models.IndustryHealthcare:    0.65,
				models.IndustryOther:         0.65,
				models.IndustryFinance:       0.60,
				models.IndustryRetail:        0.60,
				models.IndustryConstruction:  0.60,
				models.IndustryEducation:     0.60,
				models.IndustryManufacturing: 0.60,
				models.IndustryGovernment:    0.55,
			},
			ReliabilityScore: 0.88,
			AvgLatencyMS:     3500,
			RateLimit:        models.RateLimit{RequestsPerMinute: 20, Burst: 4},
			Capabilities: []models.Capability{
				models.CapabilityDateFilter,
				models.CapabilityDescription,
			},
			MaxResultsPerCall:     300,
			SupportsJobTypeFilter: false,
		},
		{
			ID:              models.AgentZipRecruiter,
			PrimaryRegions:  []models.Region{models.RegionNorthAmerica},
			ExcludedRegions: []models.Region{models.RegionGlobal},
			IndustryAffinity: map[models.Industry]float64{
				models.IndustryHealthcare:    0.70,
				models.IndustryRetail:        0.70,
				models.IndustryTechnology:    0.65,
				models.IndustryConstruction:  0.65,
				models.IndustryManufacturing: 0.65,
				models.IndustryOther:         0.60,
			},
			ReliabilityScore: 0.80,
			AvgLatencyMS:     2000, // JSON API
			RateLimit:        models.RateLimit{RequestsPerMinute: 60, Burst: 10},
			Capabilities: []models.Capability{
				models.CapabilitySalary,
				models.CapabilityRemoteFilter,
				models.CapabilityDateFilter,
				models.CapabilityDescription,
			},
			MaxResultsPerCall:     500,
			SupportsJobTypeFilter: true,
		},
		{
			ID:              models.AgentSeek,
			PrimaryRegions:  []models.Region{models.RegionOceania},
			ExcludedRegions: []models.Region{models.RegionGlobal},
			IndustryAffinity: map[models.Industry]float64{
				models.IndustryConstruction:  0.75,
				models.IndustryTechnology:    0.70,
				models.IndustryHealthcare:    0.70,
				models.IndustryRetail:        0.65,
				models.IndustryGovernment:    0.65,
				models.IndustryFinance:       0.60,
				models.IndustryEducation:     0.60,
				models.IndustryManufacturing: 0.60,
				models.IndustryOther:         0.60,
			},
			ReliabilityScore: 0.86,
			AvgLatencyMS:     2800,
			RateLimit:        models.RateLimit{RequestsPerMinute: 30, Burst: 5},
			Capabilities: []models.Capability{
				models.CapabilitySalary,
				models.CapabilityDateFilter,
				models.CapabilityDescription,
			},
			MaxResultsPerCall:     400,
			SupportsJobTypeFilter: true,
		},
		{
			ID:              models.AgentNaukri,
			PrimaryRegions:  []models.Region{models.RegionSouthAsia},
			ExcludedRegions: []models.Region{models.RegionGlobal},
			IndustryAffinity: map[models.Industry]float64{
				models.IndustryTechnology:    0.90,
				models.IndustryFinance:       0.70,
				models.IndustryManufacturing: 0.60,
				models.IndustryHealthcare:    0.55,
				models.IndustryOther:         0.55,
			},
			ReliabilityScore: 0.82,
			AvgLatencyMS:     3000,
			RateLimit:        models.RateLimit{RequestsPerMinute: 30, Burst: 5},
			Capabilities: []models.Capability{
				models.CapabilityDateFilter,
				models.CapabilityDescription,
			},
			MaxResultsPerCall:     300,
			SupportsJobTypeFilter: true,
		},
		{
			ID:              models.AgentBayt,
			PrimaryRegions:  []models.Region{models.RegionMiddleEast},
			ExcludedRegions: []models.Region{models.RegionGlobal},
			IndustryAffinity: map[models.Industry]float64{
				models.IndustryConstruction: 0.75,
				models.IndustryFinance:      0.65,
				models.IndustryTechnology:   0.60,
				models.IndustryRetail:       0.60,
				models.IndustryHealthcare:   0.60,
				models.IndustryOther:        0.55,
			},
			ReliabilityScore: 0.75,
			AvgLatencyMS:     3200,
			RateLimit:        models.RateLimit{RequestsPerMinute: 20, Burst: 4},
			Capabilities: []models.Capability{
				models.CapabilityDescription,
			},
			MaxResultsPerCall:     200,
			SupportsJobTypeFilter: false,
		},
		{
			ID:              models.AgentBdjobs,
			PrimaryRegions:  []models.Region{models.RegionSouthAsia},
			ExcludedRegions: []models.Region{models.RegionGlobal},
			IndustryAffinity: map[models.Industry]float64{
				models.IndustryManufacturing: 0.65,
				models.IndustryRetail:        0.60,
				models.IndustryGovernment:    0.60,
				models.IndustryTechnology:    0.55,
				models.IndustryOther:         0.50,
			},
			ReliabilityScore: 0.70,
			AvgLatencyMS:     3600,
			RateLimit:        models.RateLimit{RequestsPerMinute: 15, Burst: 3},
			Capabilities: []models.Capability{
				models.CapabilityDescription,
			},
			MaxResultsPerCall:     150,
			SupportsJobTypeFilter: false,
		},
	}
}
