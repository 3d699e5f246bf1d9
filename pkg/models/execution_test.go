package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAgentExecutionLifecycle(t *testing.T) {
	now := time.Now()
	exec := NewAgentExecution(AgentIndeed, RolePrimary)

	require.NotEmpty(t, exec.ID)
	assert.Equal(t, StateQueued, exec.State)
	assert.Nil(t, exec.FirstStartedAt)

	assert.True(t, exec.MarkRunning(now))
	assert.Equal(t, StateRunning, exec.State)
	require.NotNil(t, exec.FirstStartedAt)

	assert.True(t, exec.MarkSucceeded(TerminatedComplete, now.Add(2*time.Second)))
	assert.Equal(t, StateSucceeded, exec.State)
	assert.Equal(t, 2*time.Second, exec.Duration())
}

func TestAgentExecutionMonotonicTransitions(t *testing.T) {
	now := time.Now()

	t.Run("cannot terminate from queued", func(t *testing.T) {
		exec := NewAgentExecution(AgentSeek, RoleSecondary)
		assert.False(t, exec.MarkSucceeded(TerminatedComplete, now))
		assert.False(t, exec.MarkFailed(ErrorKindTransient, TerminatedNetworkError, now))
		assert.Equal(t, StateQueued, exec.State)
	})

	t.Run("cannot leave a terminal state", func(t *testing.T) {
		exec := NewAgentExecution(AgentSeek, RoleSecondary)
		exec.MarkRunning(now)
		require.True(t, exec.MarkTimedOut(now))

		assert.False(t, exec.MarkRunning(now))
		assert.False(t, exec.MarkSucceeded(TerminatedComplete, now))
		assert.False(t, exec.MarkRateLimited(ErrorKindRateLimitedLocal, now))
		assert.Equal(t, StateTimedOut, exec.State)
	})

	t.Run("cannot rerun after start", func(t *testing.T) {
		exec := NewAgentExecution(AgentSeek, RoleSecondary)
		require.True(t, exec.MarkRunning(now))
		assert.False(t, exec.MarkRunning(now.Add(time.Second)))
		assert.Equal(t, now, *exec.FirstStartedAt)
	})
}

func TestAgentExecutionTerminalClassification(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name      string
		mark      func(e *AgentExecution) bool
		wantState ExecutionState
		wantKind  *ErrorKind
	}{
		{
			name:      "network failure",
			mark:      func(e *AgentExecution) bool { return e.MarkFailed(ErrorKindTransient, TerminatedNetworkError, now) },
			wantState: StateFailed,
			wantKind:  errorKindPtr(ErrorKindTransient),
		},
		{
			name:      "structural failure",
			mark:      func(e *AgentExecution) bool { return e.MarkFailed(ErrorKindStructural, TerminatedSiteStructureError, now) },
			wantState: StateFailed,
			wantKind:  errorKindPtr(ErrorKindStructural),
		},
		{
			name:      "local token budget exhausted",
			mark:      func(e *AgentExecution) bool { return e.MarkRateLimited(ErrorKindRateLimitedLocal, now) },
			wantState: StateRateLimited,
			wantKind:  errorKindPtr(ErrorKindRateLimitedLocal),
		},
		{
			name:      "upstream throttled",
			mark:      func(e *AgentExecution) bool { return e.MarkRateLimited(ErrorKindRateLimitedUpstream, now) },
			wantState: StateRateLimited,
			wantKind:  errorKindPtr(ErrorKindRateLimitedUpstream),
		},
		{
			name:      "breaker open",
			mark:      func(e *AgentExecution) bool { return e.MarkCircuitOpen(now) },
			wantState: StateCircuitOpen,
			wantKind:  errorKindPtr(ErrorKindCircuitOpen),
		},
		{
			name:      "cancelled",
			mark:      func(e *AgentExecution) bool { return e.MarkCancelled(now) },
			wantState: StateTimedOut,
			wantKind:  errorKindPtr(ErrorKindCancelled),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := NewAgentExecution(AgentBayt, RolePrimary)
			exec.MarkRunning(now)

			require.True(t, tt.mark(exec))
			assert.Equal(t, tt.wantState, exec.State)
			assert.True(t, exec.State.IsTerminal())
			require.NotNil(t, exec.ErrorKind)
			assert.Equal(t, *tt.wantKind, *exec.ErrorKind)
		})
	}
}

func errorKindPtr(k ErrorKind) *ErrorKind {
	return &k
}
