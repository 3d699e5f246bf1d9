package models

import (
	"time"

	"github.com/google/uuid"
)

// ExecutionState tracks one agent's progress through a run.
type ExecutionState string

const (
	StateQueued      ExecutionState = "queued"
	StateRunning     ExecutionState = "running"
	StateSucceeded   ExecutionState = "succeeded"
	StateFailed      ExecutionState = "failed"
	StateTimedOut    ExecutionState = "timed_out"
	StateRateLimited ExecutionState = "rate_limited"
	StateCircuitOpen ExecutionState = "circuit_open"
)

// String returns the string representation of the ExecutionState
func (s ExecutionState) String() string {
	return string(s)
}

// IsTerminal reports whether no further transitions are possible.
func (s ExecutionState) IsTerminal() bool {
	switch s {
	case StateSucceeded, StateFailed, StateTimedOut, StateRateLimited, StateCircuitOpen:
		return true
	}
	return false
}

// ErrorKind classifies a non-successful execution for the run report.
type ErrorKind string

const (
	// ErrorKindTransient covers network failures and timeouts, which are
	// retried before becoming terminal.
	ErrorKindTransient ErrorKind = "transient"
	// ErrorKindStructural covers site markup or payload changes. Never
	// retried and never trips the circuit breaker.
	ErrorKindStructural ErrorKind = "structural"
	// ErrorKindUnsupportedRegion means the agent could not serve the concrete
	// country it was given.
	ErrorKindUnsupportedRegion ErrorKind = "unsupported_region"
	// ErrorKindRateLimitedLocal means the local token budget ran out before a
	// call could be issued.
	ErrorKindRateLimitedLocal ErrorKind = "rate_limited_local"
	// ErrorKindRateLimitedUpstream means the site itself throttled the agent.
	ErrorKindRateLimitedUpstream ErrorKind = "rate_limited_upstream"
	// ErrorKindCircuitOpen means the breaker was open and no call was made.
	ErrorKindCircuitOpen ErrorKind = "circuit_open"
	// ErrorKindCancelled means the run was cancelled before the agent
	// finished.
	ErrorKindCancelled ErrorKind = "cancelled"
)

// String returns the string representation of the ErrorKind
func (k ErrorKind) String() string {
	return string(k)
}

// AgentExecution is the runtime record for one selected agent within a run.
// State moves strictly forward: queued, then running, then exactly one
// terminal state. The guarded Mark methods enforce this; an illegal
// transition is a no-op returning false.
type AgentExecution struct {
	ID             string            `json:"id"`
	AgentID        AgentID           `json:"agent_id"`
	Role           AgentRole         `json:"role"`
	State          ExecutionState    `json:"state"`
	Attempts       int               `json:"attempts"`
	FirstStartedAt *time.Time        `json:"first_started_at,omitempty"`
	EndedAt        *time.Time        `json:"ended_at,omitempty"`
	ErrorKind      *ErrorKind        `json:"error_kind,omitempty"`
	LastReason     *TerminatedReason `json:"last_reason,omitempty"`
	JobsReturned   int               `json:"jobs_returned"`
	RawRecordCount int               `json:"raw_record_count"`
}

// NewAgentExecution creates a queued execution record for one agent.
func NewAgentExecution(agentID AgentID, role AgentRole) *AgentExecution {
	return &AgentExecution{
		ID:      uuid.New().String(),
		AgentID: agentID,
		Role:    role,
		State:   StateQueued,
	}
}

// MarkRunning transitions queued to running and stamps FirstStartedAt.
func (e *AgentExecution) MarkRunning(now time.Time) bool {
	if e.State != StateQueued {
		return false
	}
	e.State = StateRunning
	e.FirstStartedAt = &now
	return true
}

// MarkSucceeded transitions running to succeeded.
func (e *AgentExecution) MarkSucceeded(reason TerminatedReason, now time.Time) bool {
	if !e.terminate(StateSucceeded, now) {
		return false
	}
	e.LastReason = &reason
	return true
}

// MarkFailed transitions running to failed with a classification.
func (e *AgentExecution) MarkFailed(kind ErrorKind, reason TerminatedReason, now time.Time) bool {
	if !e.terminate(StateFailed, now) {
		return false
	}
	e.ErrorKind = &kind
	e.LastReason = &reason
	return true
}

// MarkTimedOut transitions running to timed_out.
func (e *AgentExecution) MarkTimedOut(now time.Time) bool {
	if !e.terminate(StateTimedOut, now) {
		return false
	}
	kind := ErrorKindTransient
	reason := TerminatedTimedOut
	e.ErrorKind = &kind
	e.LastReason = &reason
	return true
}

// MarkRateLimited transitions running to rate_limited. Kind distinguishes a
// spent local token budget from upstream throttling.
func (e *AgentExecution) MarkRateLimited(kind ErrorKind, now time.Time) bool {
	if !e.terminate(StateRateLimited, now) {
		return false
	}
	e.ErrorKind = &kind
	if kind == ErrorKindRateLimitedUpstream {
		reason := TerminatedRateLimitedUpstream
		e.LastReason = &reason
	}
	return true
}

// MarkCircuitOpen transitions running to circuit_open.
func (e *AgentExecution) MarkCircuitOpen(now time.Time) bool {
	if !e.terminate(StateCircuitOpen, now) {
		return false
	}
	kind := ErrorKindCircuitOpen
	e.ErrorKind = &kind
	return true
}

// MarkCancelled records a cooperative cancellation as timed_out with the
// cancelled classification.
func (e *AgentExecution) MarkCancelled(now time.Time) bool {
	if !e.terminate(StateTimedOut, now) {
		return false
	}
	kind := ErrorKindCancelled
	e.ErrorKind = &kind
	return true
}

func (e *AgentExecution) terminate(state ExecutionState, now time.Time) bool {
	if e.State != StateRunning {
		return false
	}
	e.State = state
	e.EndedAt = &now
	return true
}

// Duration returns wall time from first start to end, zero until terminal.
func (e *AgentExecution) Duration() time.Duration {
	if e.FirstStartedAt == nil || e.EndedAt == nil {
		return 0
	}
	return e.EndedAt.Sub(*e.FirstStartedAt)
}
