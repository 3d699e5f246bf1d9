package models

// TerminatedReason is how an agent reports the end of a scrape call. Every
// failure mode is a value here; agents never surface errors or panics across
// the contract boundary.
type TerminatedReason string

const (
	// TerminatedComplete means the agent collected everything it was asked for.
	TerminatedComplete TerminatedReason = "complete"
	// TerminatedTruncatedResultsCap means the agent hit its per-call results
	// ceiling with more available upstream.
	TerminatedTruncatedResultsCap TerminatedReason = "truncated_results_cap"
	// TerminatedRateLimitedUpstream means the site throttled the agent.
	TerminatedRateLimitedUpstream TerminatedReason = "rate_limited_upstream"
	// TerminatedTimedOut means the deadline expired; records collected before
	// the breach are still returned.
	TerminatedTimedOut TerminatedReason = "timed_out"
	// TerminatedSiteStructureError means the site markup or payload no longer
	// matches what the agent expects.
	TerminatedSiteStructureError TerminatedReason = "site_structure_error"
	// TerminatedNetworkError means transport-level failure.
	TerminatedNetworkError TerminatedReason = "network_error"
	// TerminatedRegionUnsupported means the concrete country in the input
	// cannot be served by this board.
	TerminatedRegionUnsupported TerminatedReason = "region_unsupported"
)

// IsValid checks if the TerminatedReason is a known, valid value
func (t TerminatedReason) IsValid() bool {
	switch t {
	case TerminatedComplete, TerminatedTruncatedResultsCap, TerminatedRateLimitedUpstream,
		TerminatedTimedOut, TerminatedSiteStructureError, TerminatedNetworkError,
		TerminatedRegionUnsupported:
		return true
	}
	return false
}

// String returns the string representation of the TerminatedReason
func (t TerminatedReason) String() string {
	return string(t)
}

// IsSuccess reports whether the reason still counts as a successful call.
func (t TerminatedReason) IsSuccess() bool {
	return t == TerminatedComplete || t == TerminatedTruncatedResultsCap
}

// IsRetriable reports whether the scheduler may retry the call. Only
// transport failures and deadline breaches qualify; structural and policy
// failures repeat deterministically and are not worth a second attempt.
func (t TerminatedReason) IsRetriable() bool {
	return t == TerminatedNetworkError || t == TerminatedTimedOut
}

// ScrapeInput is the uniform request passed to every agent. Cancellation and
// the per-call deadline travel on the context, not in the struct.
type ScrapeInput struct {
	SearchTerm    string   `json:"search_term"`
	Location      *string  `json:"location,omitempty"`
	ResultsWanted int      `json:"results_wanted"`
	MaxAgeHours   *int     `json:"max_age_hours,omitempty"`
	JobType       *JobType `json:"job_type,omitempty"`
	IsRemote      *bool    `json:"is_remote,omitempty"`
	Country       *string  `json:"country,omitempty"`
	Language      *string  `json:"language,omitempty"`
}

// ScrapeOutput is the uniform response from every agent. Records are partial:
// ID, SourceAgent, SourceURL, Title, Company, and Location.Raw are mandatory,
// all other fields best effort.
type ScrapeOutput struct {
	Records          []JobRecord      `json:"records"`
	TerminatedReason TerminatedReason `json:"terminated_reason"`
	Warnings         []string         `json:"warnings,omitempty"`
}
