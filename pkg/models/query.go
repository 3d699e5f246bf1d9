package models

import "fmt"

// JobType represents an employment arrangement filter.
type JobType string

const (
	JobTypeFullTime   JobType = "fulltime"
	JobTypePartTime   JobType = "parttime"
	JobTypeContract   JobType = "contract"
	JobTypeTemporary  JobType = "temporary"
	JobTypeInternship JobType = "internship"
)

// IsValid checks if the JobType is a known, valid value
func (j JobType) IsValid() bool {
	switch j {
	case JobTypeFullTime, JobTypePartTime, JobTypeContract, JobTypeTemporary, JobTypeInternship:
		return true
	}
	return false
}

// String returns the string representation of the JobType
func (j JobType) String() string {
	return string(j)
}

const (
	// DefaultResultsWanted applies when a query does not say how many records
	// it wants.
	DefaultResultsWanted = 20
	// MaxResultsWanted caps any single run.
	MaxResultsWanted = 500
)

// Query is the immutable input to a run: free-form text plus optional
// structured hints. Construct with NewQuery, which applies defaults; the
// engine treats the value as read-only afterwards.
type Query struct {
	Text          string   `json:"text"`
	Location      *string  `json:"location,omitempty"`
	ResultsWanted int      `json:"results_wanted"`
	MaxAgeHours   *int     `json:"max_age_hours,omitempty"`
	JobType       *JobType `json:"job_type,omitempty"`
	IsRemote      *bool    `json:"is_remote,omitempty"`
	CountryHint   *string  `json:"country_hint,omitempty"`
	LanguageHint  *string  `json:"language_hint,omitempty"`
}

// NewQuery creates a query with defaults applied.
func NewQuery(text string) *Query {
	return &Query{
		Text:          text,
		ResultsWanted: DefaultResultsWanted,
	}
}

// Normalized returns a copy with ResultsWanted clamped into
// [1, MaxResultsWanted] and a zero value replaced by the default.
func (q *Query) Normalized() Query {
	out := *q
	if out.ResultsWanted <= 0 {
		out.ResultsWanted = DefaultResultsWanted
	}
	if out.ResultsWanted > MaxResultsWanted {
		out.ResultsWanted = MaxResultsWanted
	}
	return out
}

// Validate checks the structural invariants that make a query runnable.
// Violations are programmer errors surfaced through Run's error return.
func (q *Query) Validate() error {
	if q.Text == "" {
		return fmt.Errorf("query text is required")
	}
	if q.JobType != nil && !q.JobType.IsValid() {
		return fmt.Errorf("invalid job_type %q", *q.JobType)
	}
	if q.MaxAgeHours != nil && *q.MaxAgeHours <= 0 {
		return fmt.Errorf("max_age_hours must be positive, got %d", *q.MaxAgeHours)
	}
	return nil
}
