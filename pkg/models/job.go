package models

import (
	"fmt"
	"time"
)

// DescriptionFormat tells consumers how a description field is encoded.
type DescriptionFormat string

const (
	FormatPlain    DescriptionFormat = "plain"
	FormatMarkdown DescriptionFormat = "markdown"
	FormatHTML     DescriptionFormat = "html"
)

// IsValid checks if the DescriptionFormat is a known, valid value
func (f DescriptionFormat) IsValid() bool {
	switch f {
	case FormatPlain, FormatMarkdown, FormatHTML:
		return true
	}
	return false
}

// String returns the string representation of the DescriptionFormat
func (f DescriptionFormat) String() string {
	return string(f)
}

// CompensationInterval is the pay period a salary range refers to.
type CompensationInterval string

const (
	IntervalHour  CompensationInterval = "hour"
	IntervalDay   CompensationInterval = "day"
	IntervalWeek  CompensationInterval = "week"
	IntervalMonth CompensationInterval = "month"
	IntervalYear  CompensationInterval = "year"
)

// IsValid checks if the CompensationInterval is a known, valid value
func (i CompensationInterval) IsValid() bool {
	switch i {
	case IntervalHour, IntervalDay, IntervalWeek, IntervalMonth, IntervalYear:
		return true
	}
	return false
}

// String returns the string representation of the CompensationInterval
func (i CompensationInterval) String() string {
	return string(i)
}

// CompensationSource says whether a salary came from the listing itself or a
// board-side estimate.
type CompensationSource string

const (
	CompensationFromListing  CompensationSource = "listing"
	CompensationFromEstimate CompensationSource = "estimate"
)

// String returns the string representation of the CompensationSource
func (s CompensationSource) String() string {
	return string(s)
}

// ListingKind distinguishes organic results from paid placements.
type ListingKind string

const (
	ListingOrganic   ListingKind = "organic"
	ListingSponsored ListingKind = "sponsored"
)

// String returns the string representation of the ListingKind
func (k ListingKind) String() string {
	return string(k)
}

// Location is the structured form of a listing's location string. Raw is
// always the text as scraped; the parsed parts are best effort.
type Location struct {
	Raw      string  `json:"raw"`
	City     *string `json:"city,omitempty"`
	State    *string `json:"state,omitempty"`
	Country  *string `json:"country,omitempty"`
	IsRemote bool    `json:"is_remote"`
}

// Compensation is a normalized salary range. Currency is ISO-4217 and is
// required whenever either bound is present.
type Compensation struct {
	Min      *float64             `json:"min,omitempty"`
	Max      *float64             `json:"max,omitempty"`
	Currency string               `json:"currency,omitempty"`
	Interval CompensationInterval `json:"interval,omitempty"`
	Source   CompensationSource   `json:"source,omitempty"`
}

// Validate checks the range and currency invariants.
func (c *Compensation) Validate() error {
	if c.Min != nil && c.Max != nil && *c.Min > *c.Max {
		return fmt.Errorf("compensation min %.2f exceeds max %.2f", *c.Min, *c.Max)
	}
	if (c.Min != nil || c.Max != nil) && c.Currency == "" {
		return fmt.Errorf("compensation currency required when a bound is present")
	}
	return nil
}

// JobRecord is the 34-field canonical schema every agent's output is merged
// into. Absent optional fields are nil pointers or empty slices, never empty
// strings. Records are immutable once the merger emits them.
//
// ID is stable per source: "<agent_id>:<site_native_id>". DedupKey is the
// cross-source fingerprint; two records sharing it are candidate duplicates.
type JobRecord struct {
	ID                string            `json:"id"`
	SourceAgent       AgentID           `json:"source_agent"`
	SourceURL         string            `json:"source_url"`
	DirectApplyURL    *string           `json:"direct_apply_url,omitempty"`
	Title             string            `json:"title"`
	Company           string            `json:"company"`
	CompanyURL        *string           `json:"company_url,omitempty"`
	CompanyLogo       *string           `json:"company_logo,omitempty"`
	CompanySize       *string           `json:"company_size,omitempty"`
	CompanyIndustry   *string           `json:"company_industry,omitempty"`
	Location          Location          `json:"location"`
	PostedAt          *time.Time        `json:"posted_at,omitempty"`
	ScrapedAt         time.Time         `json:"scraped_at"`
	Description       *string           `json:"description,omitempty"`
	DescriptionFormat DescriptionFormat `json:"description_format,omitempty"`
	JobType           *JobType          `json:"job_type,omitempty"`
	Seniority         *Seniority        `json:"seniority,omitempty"`
	Compensation      *Compensation     `json:"compensation,omitempty"`
	Skills            []string          `json:"skills,omitempty"`
	Benefits          []string          `json:"benefits,omitempty"`
	ListingKind       *ListingKind      `json:"listing_kind,omitempty"`
	DedupKey          string            `json:"dedup_key"`
	QualityScore      float64           `json:"quality_score"`
	Aliases           []string          `json:"aliases,omitempty"`
	SourceWarnings    []string          `json:"source_warnings,omitempty"`
	Attempts          int               `json:"attempts"`
}

// ValidatePartial checks the fields every agent must populate before handing
// a record to the scheduler.
func (r *JobRecord) ValidatePartial() error {
	if r.ID == "" {
		return fmt.Errorf("record id is required")
	}
	if !r.SourceAgent.IsValid() {
		return fmt.Errorf("record %s: invalid source_agent %q", r.ID, r.SourceAgent)
	}
	if r.SourceURL == "" {
		return fmt.Errorf("record %s: source_url is required", r.ID)
	}
	if r.Title == "" {
		return fmt.Errorf("record %s: title is required", r.ID)
	}
	if r.Company == "" {
		return fmt.Errorf("record %s: company is required", r.ID)
	}
	if r.Location.Raw == "" {
		return fmt.Errorf("record %s: location.raw is required", r.ID)
	}
	if r.Compensation != nil {
		if err := r.Compensation.Validate(); err != nil {
			return fmt.Errorf("record %s: %w", r.ID, err)
		}
	}
	return nil
}

// Clone returns a deep copy so merger back-filling never aliases slices
// between records.
func (r *JobRecord) Clone() JobRecord {
	out := *r
	out.Skills = append([]string(nil), r.Skills...)
	out.Benefits = append([]string(nil), r.Benefits...)
	out.Aliases = append([]string(nil), r.Aliases...)
	out.SourceWarnings = append([]string(nil), r.SourceWarnings...)
	if r.DirectApplyURL != nil {
		v := *r.DirectApplyURL
		out.DirectApplyURL = &v
	}
	if r.CompanyURL != nil {
		v := *r.CompanyURL
		out.CompanyURL = &v
	}
	if r.CompanyLogo != nil {
		v := *r.CompanyLogo
		out.CompanyLogo = &v
	}
	if r.CompanySize != nil {
		v := *r.CompanySize
		out.CompanySize = &v
	}
	if r.CompanyIndustry != nil {
		v := *r.CompanyIndustry
		out.CompanyIndustry = &v
	}
	if r.Location.City != nil {
		v := *r.Location.City
		out.Location.City = &v
	}
	if r.Location.State != nil {
		v := *r.Location.State
		out.Location.State = &v
	}
	if r.Location.Country != nil {
		v := *r.Location.Country
		out.Location.Country = &v
	}
	if r.PostedAt != nil {
		v := *r.PostedAt
		out.PostedAt = &v
	}
	if r.Description != nil {
		v := *r.Description
		out.Description = &v
	}
	if r.JobType != nil {
		v := *r.JobType
		out.JobType = &v
	}
	if r.Seniority != nil {
		v := *r.Seniority
		out.Seniority = &v
	}
	if r.Compensation != nil {
		c := *r.Compensation
		if r.Compensation.Min != nil {
			m := *r.Compensation.Min
			c.Min = &m
		}
		if r.Compensation.Max != nil {
			m := *r.Compensation.Max
			c.Max = &m
		}
		out.Compensation = &c
	}
	if r.ListingKind != nil {
		v := *r.ListingKind
		out.ListingKind = &v
	}
	return out
}
