package models

// RunOutcome is the terminal classification of a whole run.
type RunOutcome string

const (
	// OutcomeCompleted means the scheduler ran to completion, with or without
	// records and with or without the deadline expiring.
	OutcomeCompleted RunOutcome = "completed"
	// OutcomeQueryRejected means the intent gate decided the query is not
	// job related; no agents ran.
	OutcomeQueryRejected RunOutcome = "query_rejected"
	// OutcomeNoAgentsSelected means routing produced an empty selection for a
	// job-related query.
	OutcomeNoAgentsSelected RunOutcome = "no_agents_selected"
)

// String returns the string representation of the RunOutcome
func (o RunOutcome) String() string {
	return string(o)
}

// AgentReport pairs an execution record with its contribution to the merged
// output.
type AgentReport struct {
	Execution   AgentExecution `json:"execution"`
	RecordCount int            `json:"record_count"`
}

// RunReport is the per-run observability record. One is produced on every
// terminal path, including rejection and deadline expiry. It is pure data;
// rendering is the caller's concern.
type RunReport struct {
	RunID               string          `json:"run_id"`
	Query               Query           `json:"query"`
	Intent              IntentResult    `json:"intent"`
	Routing             RoutingDecision `json:"routing"`
	PerAgent            []AgentReport   `json:"per_agent"`
	MergedCount         int             `json:"merged_count"`
	DedupCollapsedCount int             `json:"dedup_collapsed_count"`
	DroppedRecordCount  int             `json:"dropped_record_count"`
	TotalDurationMS     int64           `json:"total_duration_ms"`
	DeadlineExceeded    bool            `json:"deadline_exceeded"`
	Outcome             RunOutcome      `json:"outcome"`
	RejectionMessage    string          `json:"rejection_message,omitempty"`
}

// AgentReportFor returns the report entry for one agent, nil when the agent
// was not executed.
func (r *RunReport) AgentReportFor(id AgentID) *AgentReport {
	for i := range r.PerAgent {
		if r.PerAgent[i].Execution.AgentID == id {
			return &r.PerAgent[i]
		}
	}
	return nil
}

// RunResult is the caller-facing output of a run. Records is capped at the
// query's ResultsWanted; Overflow carries the remainder when the caller asked
// for it.
type RunResult struct {
	Records                  []JobRecord `json:"records"`
	MergedCount              int         `json:"merged_count"`
	TruncatedToResultsWanted bool        `json:"truncated_to_results_wanted"`
	Overflow                 []JobRecord `json:"overflow,omitempty"`
}
