package models

// RejectionReason explains why routing left an agent out of a run.
type RejectionReason string

const (
	// RejectionQueryRejected applies to every agent when the query itself is
	// not job related.
	RejectionQueryRejected RejectionReason = "query_rejected"
	// RejectionRegionExcluded marks a hard exclusion hit: the detected region
	// is in the agent's excluded set.
	RejectionRegionExcluded RejectionReason = "region_excluded"
	// RejectionNoRegionCoverage marks an agent with zero coverage score for a
	// known detected region.
	RejectionNoRegionCoverage RejectionReason = "no_region_coverage"
	// RejectionOutranked marks an agent that scored above the selection floor
	// but did not fit within the primary and secondary quotas.
	RejectionOutranked RejectionReason = "outranked"
	// RejectionNotForced marks an agent left out because the caller supplied
	// an explicit force_agents override naming other agents.
	RejectionNotForced RejectionReason = "not_forced"
)

// String returns the string representation of the RejectionReason
func (r RejectionReason) String() string {
	return string(r)
}

// SelectedAgent is one routing pick, in priority order.
type SelectedAgent struct {
	AgentID AgentID   `json:"agent_id"`
	Role    AgentRole `json:"role"`
	Weight  float64   `json:"weight"`
}

// RejectedAgent is a diagnostic entry for an agent routing passed over.
type RejectedAgent struct {
	AgentID AgentID         `json:"agent_id"`
	Reason  RejectionReason `json:"reason"`
	Detail  string          `json:"detail,omitempty"`
}

// ReasoningStep is one line of the routing audit trail. Steps are emitted in
// a fixed order for identical input so decisions can be compared byte for
// byte in tests.
type ReasoningStep struct {
	Stage            string  `json:"stage"`
	AgentID          AgentID `json:"agent_id,omitempty"`
	RegionScore      float64 `json:"region_score"`
	IndustryScore    float64 `json:"industry_score"`
	ReliabilityScore float64 `json:"reliability_score"`
	CompositeScore   float64 `json:"composite_score"`
	Verdict          string  `json:"verdict"`
}

// RoutingDecision is the routing engine's full output: the ordered selection,
// the rejections with reasons, and the deterministic reasoning trail.
type RoutingDecision struct {
	Selected            []SelectedAgent `json:"selected"`
	Rejected            []RejectedAgent `json:"rejected"`
	PredictedConfidence float64         `json:"predicted_confidence"`
	Reasoning           []ReasoningStep `json:"reasoning"`
}

// AgentsWithRole returns the selected agents holding the given role, in
// selection order.
func (d *RoutingDecision) AgentsWithRole(role AgentRole) []SelectedAgent {
	var out []SelectedAgent
	for _, s := range d.Selected {
		if s.Role == role {
			out = append(out, s)
		}
	}
	return out
}

// ActiveCount returns how many primary plus secondary agents were selected.
func (d *RoutingDecision) ActiveCount() int {
	n := 0
	for _, s := range d.Selected {
		if s.Role == RolePrimary || s.Role == RoleSecondary {
			n++
		}
	}
	return n
}
