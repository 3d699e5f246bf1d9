package models

import "strings"

// Industry represents a broad employment sector used for agent affinity
// scoring. Like Region, the set is closed.
type Industry string

const (
	IndustryTechnology    Industry = "technology"
	IndustryFinance       Industry = "finance"
	IndustryHealthcare    Industry = "healthcare"
	IndustryConstruction  Industry = "construction"
	IndustryEducation     Industry = "education"
	IndustryRetail        Industry = "retail"
	IndustryManufacturing Industry = "manufacturing"
	IndustryGovernment    Industry = "government"
	IndustryOther         Industry = "other"
	IndustryUnknown       Industry = "unknown"
)

// IsValid checks if the Industry is a known, valid value
func (i Industry) IsValid() bool {
	switch i {
	case IndustryTechnology, IndustryFinance, IndustryHealthcare,
		IndustryConstruction, IndustryEducation, IndustryRetail,
		IndustryManufacturing, IndustryGovernment, IndustryOther, IndustryUnknown:
		return true
	}
	return false
}

// String returns the string representation of the Industry
func (i Industry) String() string {
	return string(i)
}

// AllIndustries returns a slice of all valid Industry values
func AllIndustries() []Industry {
	return []Industry{
		IndustryTechnology,
		IndustryFinance,
		IndustryHealthcare,
		IndustryConstruction,
		IndustryEducation,
		IndustryRetail,
		IndustryManufacturing,
		IndustryGovernment,
		IndustryOther,
		IndustryUnknown,
	}
}

// ParseIndustry maps free-form industry labels onto the closed Industry set.
// Unrecognized input yields IndustryUnknown.
func ParseIndustry(s string) Industry {
	normalized := strings.ToLower(strings.TrimSpace(s))

	switch normalized {
	case "technology", "tech", "it", "software", "information_technology", "information technology":
		return IndustryTechnology
	case "finance", "financial", "banking", "fintech":
		return IndustryFinance
	case "healthcare", "health", "medical", "pharma":
		return IndustryHealthcare
	case "construction", "building", "trades":
		return IndustryConstruction
	case "education", "academic", "teaching":
		return IndustryEducation
	case "retail", "ecommerce", "e-commerce", "commerce":
		return IndustryRetail
	case "manufacturing", "industrial":
		return IndustryManufacturing
	case "government", "public_sector", "public sector", "civil_service":
		return IndustryGovernment
	case "other", "general":
		return IndustryOther
	}
	return IndustryUnknown
}
