package models

// Seniority buckets a role's experience level.
type Seniority string

const (
	SeniorityIntern  Seniority = "intern"
	SeniorityJunior  Seniority = "junior"
	SeniorityMid     Seniority = "mid"
	SenioritySenior  Seniority = "senior"
	SeniorityLead    Seniority = "lead"
	SeniorityUnknown Seniority = "unknown"
)

// IsValid checks if the Seniority is a known, valid value
func (s Seniority) IsValid() bool {
	switch s {
	case SeniorityIntern, SeniorityJunior, SeniorityMid, SenioritySenior, SeniorityLead, SeniorityUnknown:
		return true
	}
	return false
}

// String returns the string representation of the Seniority
func (s Seniority) String() string {
	return string(s)
}

// Ternary is a three-valued flag for classifications that can be undecided.
type Ternary string

const (
	TernaryTrue    Ternary = "true"
	TernaryFalse   Ternary = "false"
	TernaryUnknown Ternary = "unknown"
)

// String returns the string representation of the Ternary
func (t Ternary) String() string {
	return string(t)
}

// IntentResult is the classifier's view of one query: detected region and
// industry with per-field confidence, extracted entities, and the
// job-relatedness verdict that gates routing.
type IntentResult struct {
	Region             Region    `json:"region"`
	RegionConfidence   float64   `json:"region_confidence"`
	Industry           Industry  `json:"industry"`
	IndustryConfidence float64   `json:"industry_confidence"`
	ExtractedLocation  *string   `json:"extracted_location,omitempty"`
	ExtractedJobTitles []string  `json:"extracted_job_titles,omitempty"`
	ExtractedSkills    []string  `json:"extracted_skills,omitempty"`
	Seniority          Seniority `json:"seniority"`
	IsRemote           *bool     `json:"is_remote,omitempty"`
	IsJobRelated       Ternary   `json:"is_job_related"`
	OverallConfidence  float64   `json:"overall_confidence"`
}

// NewIntentResult returns a result with every classification undecided.
func NewIntentResult() IntentResult {
	return IntentResult{
		Region:       RegionUnknown,
		Industry:     IndustryUnknown,
		Seniority:    SeniorityUnknown,
		IsJobRelated: TernaryUnknown,
	}
}

// HasExtractedEntities reports whether at least one job title or skill was
// pulled out of the query text.
func (r *IntentResult) HasExtractedEntities() bool {
	return len(r.ExtractedJobTitles) > 0 || len(r.ExtractedSkills) > 0
}
