package models

// CanonicalColumns is the flat 34-column view of a JobRecord, in the order
// external serializers (CSV, JSON export) are expected to emit. The nested
// location and compensation structs map onto the location_* and salary_*
// columns.
func CanonicalColumns() []string {
	return []string{
		"id",
		"source_agent",
		"source_url",
		"direct_apply_url",
		"title",
		"company",
		"company_url",
		"company_logo",
		"company_size",
		"company_industry",
		"location_raw",
		"city",
		"state",
		"country",
		"is_remote",
		"posted_at",
		"scraped_at",
		"description",
		"description_format",
		"job_type",
		"seniority",
		"salary_min",
		"salary_max",
		"salary_currency",
		"salary_interval",
		"salary_source",
		"skills",
		"benefits",
		"listing_kind",
		"dedup_key",
		"quality_score",
		"aliases",
		"source_warnings",
		"attempts",
	}
}

// PresentFieldCount returns how many of the canonical columns carry a value
// for this record. Mandatory columns always count; optional columns count
// when non-nil, non-empty, or (for salary columns) when the compensation
// block carries them. Export writers use this to report record density.
func (r *JobRecord) PresentFieldCount() int {
	n := 0
	for _, present := range r.fieldPresence() {
		if present {
			n++
		}
	}
	return n
}

// CanonicalFieldTotal returns the canonical column count.
func CanonicalFieldTotal() int {
	return len(CanonicalColumns())
}

func (r *JobRecord) fieldPresence() []bool {
	comp := r.Compensation
	return []bool{
		r.ID != "",
		r.SourceAgent != "",
		r.SourceURL != "",
		r.DirectApplyURL != nil,
		r.Title != "",
		r.Company != "",
		r.CompanyURL != nil,
		r.CompanyLogo != nil,
		r.CompanySize != nil,
		r.CompanyIndustry != nil,
		r.Location.Raw != "",
		r.Location.City != nil,
		r.Location.State != nil,
		r.Location.Country != nil,
		true, // is_remote: booleans are always present
		r.PostedAt != nil,
		!r.ScrapedAt.IsZero(),
		r.Description != nil,
		r.Description != nil && r.DescriptionFormat != "",
		r.JobType != nil,
		r.Seniority != nil,
		comp != nil && comp.Min != nil,
		comp != nil && comp.Max != nil,
		comp != nil && comp.Currency != "",
		comp != nil && comp.Interval != "",
		comp != nil && comp.Source != "",
		len(r.Skills) > 0,
		len(r.Benefits) > 0,
		r.ListingKind != nil,
		r.DedupKey != "",
		true, // quality_score: assigned to every emitted record
		len(r.Aliases) > 0,
		len(r.SourceWarnings) > 0,
		true, // attempts: always tracked
	}
}

// HasSalary reports whether at least one salary bound is present.
func (r *JobRecord) HasSalary() bool {
	return r.Compensation != nil && (r.Compensation.Min != nil || r.Compensation.Max != nil)
}
