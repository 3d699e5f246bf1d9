// Package scheduler executes the agents a routing decision selected. It owns
// the worker pool, per-agent rate tokens, circuit breakers, retries, and the
// run deadline, and streams every scraped record into the merger's channel
// as soon as the producing call returns.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/indago/internal/common"
	"github.com/ternarybob/indago/pkg/interfaces"
	"github.com/ternarybob/indago/pkg/models"
)

// Service schedules agent calls for runs. Token buckets and circuit breakers
// live on the service, not the run, so consecutive runs against the same
// engine share rate budgets and failure history.
type Service struct {
	cfg      common.SchedulerConfig
	gate     *tokenGate
	breakers *breakerSet
	latency  map[models.AgentID]time.Duration
	logger   arbor.ILogger
}

// NewService creates the scheduler. Descriptors size the per-agent token
// buckets and per-call deadlines.
func NewService(cfg common.SchedulerConfig, descriptors []models.AgentDescriptor, logger arbor.ILogger) *Service {
	latency := make(map[models.AgentID]time.Duration, len(descriptors))
	for _, desc := range descriptors {
		latency[desc.ID] = time.Duration(desc.AvgLatencyMS) * time.Millisecond
	}

	svc := &Service{
		cfg:      cfg,
		gate:     newTokenGate(descriptors),
		breakers: newBreakerSet(cfg.FailureThreshold, cfg.CircuitBreakerCoolDown),
		latency:  latency,
		logger:   logger,
	}

	svc.logger.Info().
		Int("token_buckets", len(svc.gate.limiters)).
		Int("failure_threshold", cfg.FailureThreshold).
		Dur("run_deadline", cfg.RunDeadline).
		Msg("Scheduler service initialized")

	return svc
}

// Input carries everything one scheduling pass needs.
type Input struct {
	Query    models.Query
	Intent   models.IntentResult
	Decision models.RoutingDecision

	// Agents binds registry identities to implementations. A selected agent
	// with no implementation fails structurally instead of aborting the run.
	Agents map[models.AgentID]interfaces.Agent

	// Sink is the merger's feed. The scheduler is the only producer and
	// closes it when the last agent finishes or is abandoned.
	Sink chan<- models.JobRecord

	// MergedCount reports the merger's unique record count so far. Consulted
	// once, after the active agents finish, to decide fallback activation.
	// Nil disables fallbacks.
	MergedCount func() int

	// RunDeadline and MaxConcurrent override the configured run budget and
	// worker ceiling for this pass only. Zero keeps the service defaults.
	RunDeadline   time.Duration
	MaxConcurrent int
}

// Output summarizes one scheduling pass for the run report.
type Output struct {
	Executions        map[models.AgentID]*models.AgentExecution
	FallbackActivated bool
	DroppedRecords    int
	DeadlineHit       bool
}

// Execute runs every active agent in the decision concurrently, then the
// fallback agents if the merged result count is below the floor, and closes
// input.Sink when the stream is finished. It blocks until every execution
// reaches a terminal state or the run deadline plus the grace period passes.
func (s *Service) Execute(ctx context.Context, input Input) Output {
	deadline := input.RunDeadline
	if deadline <= 0 {
		deadline = s.cfg.RunDeadline
	}
	runCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	var active, fallbacks []models.SelectedAgent
	for _, sel := range input.Decision.Selected {
		if sel.Role == models.RoleFallback {
			fallbacks = append(fallbacks, sel)
		} else {
			active = append(active, sel)
		}
	}

	s.logger.Info().
		Int("active_agents", len(active)).
		Int("fallback_agents", len(fallbacks)).
		Int("results_wanted", input.Query.ResultsWanted).
		Msg("Scheduling run started")

	executions := make(map[models.AgentID]*models.AgentExecution, len(input.Decision.Selected))
	var dropped atomic.Int64

	s.runPool(runCtx, input, active, executions, &dropped)

	fallbackActivated := false
	if len(fallbacks) > 0 && runCtx.Err() == nil && input.MergedCount != nil {
		// Let the merger absorb anything still buffered before sampling its
		// unique count. The count may trail by the record in flight, which
		// is fine for a floor heuristic.
		for len(input.Sink) > 0 && runCtx.Err() == nil {
			time.Sleep(time.Millisecond)
		}

		merged := input.MergedCount()
		floor := s.resultFloor(input.Query.ResultsWanted)
		if merged < floor {
			fallbackActivated = true
			s.logger.Info().
				Int("merged", merged).
				Int("floor", floor).
				Int("fallback_agents", len(fallbacks)).
				Msg("Result floor not met, activating fallback agents")
			s.runPool(runCtx, input, fallbacks, executions, &dropped)
		}
	}

	close(input.Sink)

	return Output{
		Executions:        executions,
		FallbackActivated: fallbackActivated,
		DroppedRecords:    int(dropped.Load()),
		DeadlineHit:       runCtx.Err() != nil,
	}
}

// runPool dispatches the given selections through a bounded worker pool and
// blocks until all of them are terminal.
func (s *Service) runPool(ctx context.Context, input Input, selections []models.SelectedAgent, executions map[models.AgentID]*models.AgentExecution, dropped *atomic.Int64) {
	if len(selections) == 0 {
		return
	}

	for _, sel := range selections {
		executions[sel.AgentID] = models.NewAgentExecution(sel.AgentID, sel.Role)
	}

	workers := input.MaxConcurrent
	if workers <= 0 {
		workers = s.cfg.MaxConcurrentAgents
	}
	if workers > len(selections) {
		workers = len(selections)
	}
	if workers < 1 {
		workers = 1
	}

	tasks := make(chan models.SelectedAgent)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		common.SafeGo(s.logger, "scheduler-worker", func() {
			defer wg.Done()
			for sel := range tasks {
				s.runAgent(ctx, input, sel, executions[sel.AgentID], dropped)
			}
		})
	}

	for _, sel := range selections {
		tasks <- sel
	}
	close(tasks)
	wg.Wait()
}

// runAgent drives one agent from queued to a terminal state: breaker check,
// rate token, then up to RetryMaxAttempts Scrape calls with exponential
// backoff for network-class failures. Records from every attempt, including
// failed ones, are forwarded to the sink the moment the call returns.
func (s *Service) runAgent(ctx context.Context, input Input, sel models.SelectedAgent, exec *models.AgentExecution, dropped *atomic.Int64) {
	exec.MarkRunning(time.Now().UTC())

	if ctx.Err() != nil {
		exec.MarkCancelled(time.Now().UTC())
		return
	}

	agent := input.Agents[sel.AgentID]
	if agent == nil {
		s.logger.Warn().
			Str("agent", sel.AgentID.String()).
			Msg("No implementation registered for selected agent")
		exec.MarkFailed(models.ErrorKindStructural, models.TerminatedSiteStructureError, time.Now().UTC())
		return
	}

	breaker := s.breakers.get(sel.AgentID.String())
	if !breaker.Allow() {
		s.logger.Warn().
			Str("agent", sel.AgentID.String()).
			Str("breaker_state", breaker.State().String()).
			Msg("Circuit breaker rejected agent call")
		exec.MarkCircuitOpen(time.Now().UTC())
		return
	}

	if err := s.gate.acquire(ctx, sel.AgentID, s.tokenBudget(ctx)); err != nil {
		if ctx.Err() != nil {
			exec.MarkCancelled(time.Now().UTC())
			return
		}
		s.logger.Warn().
			Str("agent", sel.AgentID.String()).
			Err(err).
			Msg("No rate token within budget, skipping agent")
		exec.MarkRateLimited(models.ErrorKindRateLimitedLocal, time.Now().UTC())
		return
	}

	scrapeInput := buildScrapeInput(input.Query, input.Intent)
	policy := retryPolicy{maxAttempts: s.cfg.RetryMaxAttempts, baseBackoff: s.cfg.RetryBaseBackoff}
	seen := make(map[string]bool)

	for attempt := 1; ; attempt++ {
		exec.Attempts = attempt

		output := s.callAgent(ctx, agent, scrapeInput, s.callTimeout(ctx, sel.AgentID))
		s.forward(output.Records, sel.AgentID, exec, seen, input.Sink, dropped)

		reason := output.TerminatedReason
		if !reason.IsValid() {
			s.logger.Warn().
				Str("agent", sel.AgentID.String()).
				Str("terminated_reason", reason.String()).
				Msg("Agent returned unknown terminated_reason, treating as structural failure")
			reason = models.TerminatedSiteStructureError
		}

		for _, warning := range output.Warnings {
			s.logger.Debug().
				Str("agent", sel.AgentID.String()).
				Str("warning", warning).
				Msg("Agent warning")
		}

		now := time.Now().UTC()
		switch reason {
		case models.TerminatedComplete, models.TerminatedTruncatedResultsCap:
			breaker.RecordSuccess()
			exec.MarkSucceeded(reason, now)
			return
		case models.TerminatedRateLimitedUpstream:
			// The site itself is throttling. Backing off is the agent's
			// terminal outcome for this run; the breaker only counts
			// transport failures.
			exec.MarkRateLimited(models.ErrorKindRateLimitedUpstream, now)
			return
		case models.TerminatedRegionUnsupported:
			exec.MarkFailed(models.ErrorKindUnsupportedRegion, reason, now)
			return
		case models.TerminatedSiteStructureError:
			exec.MarkFailed(models.ErrorKindStructural, reason, now)
			return
		}

		// network_error or timed_out
		if ctx.Err() != nil {
			// The run was cancelled out from under the agent. Not the
			// agent's fault, so the breaker does not count it.
			exec.MarkCancelled(time.Now().UTC())
			return
		}
		breaker.RecordFailure()

		if attempt >= policy.maxAttempts {
			s.markNetworkTerminal(exec, reason)
			return
		}

		backoff := policy.backoff(attempt)
		if deadline, ok := ctx.Deadline(); ok && time.Now().Add(backoff).After(deadline) {
			s.logger.Debug().
				Str("agent", sel.AgentID.String()).
				Dur("backoff", backoff).
				Msg("Backoff would outlive the run deadline, giving up")
			s.markNetworkTerminal(exec, reason)
			return
		}

		s.logger.Debug().
			Str("agent", sel.AgentID.String()).
			Int("attempt", attempt).
			Str("terminated_reason", reason.String()).
			Dur("backoff", backoff).
			Msg("Retrying agent after backoff")

		select {
		case <-ctx.Done():
			exec.MarkCancelled(time.Now().UTC())
			return
		case <-time.After(backoff):
		}

		if !breaker.Allow() {
			exec.MarkCircuitOpen(time.Now().UTC())
			return
		}
	}
}

func (s *Service) markNetworkTerminal(exec *models.AgentExecution, reason models.TerminatedReason) {
	now := time.Now().UTC()
	if reason == models.TerminatedTimedOut {
		exec.MarkTimedOut(now)
		return
	}
	exec.MarkFailed(models.ErrorKindTransient, reason, now)
}

// callAgent runs one Scrape attempt in its own goroutine so a stuck agent
// can be abandoned instead of wedging the worker. A panic inside the agent
// becomes a site_structure_error output. When the per-call deadline fires
// the agent gets CancelGracePeriod to honor the context; after that the call
// is written off as timed_out and whatever it eventually returns is
// discarded.
func (s *Service) callAgent(ctx context.Context, agent interfaces.Agent, input models.ScrapeInput, timeout time.Duration) models.ScrapeOutput {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	results := make(chan models.ScrapeOutput, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error().
					Str("agent", agent.ID().String()).
					Str("panic", fmt.Sprintf("%v", r)).
					Msg("Agent panicked during scrape")
				results <- models.ScrapeOutput{
					TerminatedReason: models.TerminatedSiteStructureError,
					Warnings:         []string{fmt.Sprintf("agent panicked: %v", r)},
				}
			}
		}()
		results <- agent.Scrape(attemptCtx, input)
	}()

	select {
	case output := <-results:
		return output
	case <-attemptCtx.Done():
	}

	grace := time.NewTimer(s.cfg.CancelGracePeriod)
	defer grace.Stop()
	select {
	case output := <-results:
		return output
	case <-grace.C:
		s.logger.Warn().
			Str("agent", agent.ID().String()).
			Dur("grace", s.cfg.CancelGracePeriod).
			Msg("Agent ignored cancellation, abandoning call")
		return models.ScrapeOutput{TerminatedReason: models.TerminatedTimedOut}
	}
}

// forward streams one attempt's records into the sink. Sends never block:
// when the merger's buffer is full the record is dropped and counted.
// Records already forwarded by an earlier attempt of the same agent are
// skipped so retries cannot inflate the stream.
func (s *Service) forward(records []models.JobRecord, agentID models.AgentID, exec *models.AgentExecution, seen map[string]bool, sink chan<- models.JobRecord, dropped *atomic.Int64) {
	now := time.Now().UTC()
	for i := range records {
		record := records[i]
		exec.RawRecordCount++

		if record.ID == "" {
			s.logger.Debug().
				Str("agent", agentID.String()).
				Msg("Agent emitted record without id, skipping")
			continue
		}
		if seen[record.ID] {
			continue
		}
		seen[record.ID] = true

		if record.SourceAgent == "" {
			record.SourceAgent = agentID
		}
		if record.ScrapedAt.IsZero() {
			record.ScrapedAt = now
		}
		record.Attempts = exec.Attempts

		select {
		case sink <- record:
			exec.JobsReturned++
		default:
			dropped.Add(1)
		}
	}
}

// callTimeout returns the per-call deadline: the agent's expected latency
// scaled by ExpectedLatencyFactor, never more than the remaining run budget.
func (s *Service) callTimeout(ctx context.Context, agentID models.AgentID) time.Duration {
	timeout := time.Duration(float64(s.latency[agentID]) * s.cfg.ExpectedLatencyFactor)
	if timeout <= 0 {
		timeout = s.cfg.RunDeadline
	}
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if timeout < 0 {
		timeout = 0
	}
	return timeout
}

// tokenBudget is how long an agent may wait for a rate token: a fixed share
// of whatever run budget is left, so token waits can never consume the run.
func (s *Service) tokenBudget(ctx context.Context) time.Duration {
	remaining := s.cfg.RunDeadline
	if deadline, ok := ctx.Deadline(); ok {
		remaining = time.Until(deadline)
	}
	if remaining < 0 {
		remaining = 0
	}
	return time.Duration(float64(remaining) * s.cfg.TokenWaitBudgetRatio)
}

// resultFloor is the merged-count threshold below which fallback agents
// activate.
func (s *Service) resultFloor(resultsWanted int) int {
	if s.cfg.MinResultsForSuccess > 0 {
		return s.cfg.MinResultsForSuccess
	}
	floor := resultsWanted / 2
	if floor > 10 {
		floor = 10
	}
	if floor < 1 {
		floor = 1
	}
	return floor
}

// buildScrapeInput maps the run's query and classified intent onto the
// uniform agent request. Explicit query fields win; intent fills the gaps.
func buildScrapeInput(query models.Query, intent models.IntentResult) models.ScrapeInput {
	input := models.ScrapeInput{
		SearchTerm:    query.Text,
		Location:      query.Location,
		ResultsWanted: query.ResultsWanted,
		MaxAgeHours:   query.MaxAgeHours,
		JobType:       query.JobType,
		IsRemote:      query.IsRemote,
		Country:       query.CountryHint,
		Language:      query.LanguageHint,
	}
	if input.Location == nil && intent.ExtractedLocation != nil {
		input.Location = intent.ExtractedLocation
	}
	if input.IsRemote == nil && intent.IsRemote != nil {
		input.IsRemote = intent.IsRemote
	}
	return input
}
