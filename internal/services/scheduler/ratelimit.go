package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ternarybob/indago/pkg/models"
)

// tokenGate holds one token bucket per agent, sized from the registry's
// RateLimit descriptor. Buckets persist across runs: two back-to-back runs
// share the same budget, so the second one waits or skips rather than
// hammering a site that was just scraped.
type tokenGate struct {
	mu       sync.Mutex
	limiters map[models.AgentID]*rate.Limiter
}

func newTokenGate(descriptors []models.AgentDescriptor) *tokenGate {
	g := &tokenGate{
		limiters: make(map[models.AgentID]*rate.Limiter, len(descriptors)),
	}
	for _, desc := range descriptors {
		rpm := desc.RateLimit.RequestsPerMinute
		burst := desc.RateLimit.Burst
		if rpm <= 0 || burst <= 0 {
			continue
		}
		g.limiters[desc.ID] = rate.NewLimiter(rate.Limit(float64(rpm)/60.0), burst)
	}
	return g
}

// acquire blocks until a token for the agent is available, the wait budget
// runs out, or the run is cancelled. A nil error means the call may proceed.
// Budget exhaustion and run cancellation are distinguished through the
// returned error so the caller can pick the right terminal state.
func (g *tokenGate) acquire(ctx context.Context, agentID models.AgentID, budget time.Duration) error {
	g.mu.Lock()
	lim := g.limiters[agentID]
	g.mu.Unlock()
	if lim == nil {
		return nil
	}

	waitCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	if err := lim.Wait(waitCtx); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("run cancelled while waiting for rate token: %w", ctx.Err())
		}
		return errTokenBudgetExhausted
	}
	return nil
}

// errTokenBudgetExhausted means no token became available within the wait
// budget. The agent is skipped for this run with rate_limited_local.
var errTokenBudgetExhausted = fmt.Errorf("rate token wait budget exhausted")
