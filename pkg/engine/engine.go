// Package engine assembles the full aggregation pipeline behind one entry
// point: classify the query, route it across the agent catalog, schedule the
// scrapes, merge the record streams, and account for all of it in a run
// report. Hosts construct one Engine and reuse it; token buckets and circuit
// breakers live on the engine, so consecutive runs share rate budgets and
// failure history.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/indago/internal/common"
	"github.com/ternarybob/indago/internal/services/intent"
	"github.com/ternarybob/indago/internal/services/merge"
	"github.com/ternarybob/indago/internal/services/oracle"
	"github.com/ternarybob/indago/internal/services/registry"
	"github.com/ternarybob/indago/internal/services/routing"
	"github.com/ternarybob/indago/internal/services/scheduler"
	"github.com/ternarybob/indago/pkg/interfaces"
	"github.com/ternarybob/indago/pkg/models"
)

// The error return of New and Run is reserved for caller mistakes. Anything
// that goes wrong operationally during a run, from agent failures to deadline
// expiry, is reported as data in the RunReport instead.
var (
	// ErrNilQuery is returned when Run receives a nil query.
	ErrNilQuery = errors.New("query is nil")
	// ErrInvalidQuery wraps a query that fails structural validation.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrInvalidConfig wraps a configuration or catalog rejected at New.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrUnknownAgent is returned when RunOptions.ForceAgents names an agent
	// id the registry does not have.
	ErrUnknownAgent = errors.New("unknown agent")
)

// RunOptions are the per-run knobs. The zero value is fully usable: deadline
// and concurrency fall back to the engine configuration, selection is
// score-based, and classification runs rule-only.
type RunOptions struct {
	// RunDeadline bounds the whole run. Zero means the configured
	// scheduler run_deadline.
	RunDeadline time.Duration

	// MaxConcurrentAgents caps parallel agent calls for this run. Zero means
	// the configured ceiling.
	MaxConcurrentAgents int

	// ForceAgents bypasses scoring-based selection and promotes exactly the
	// named agents to primary. Hard region exclusions still apply to them.
	ForceAgents []models.AgentID

	// IntentOracle, when non-nil, augments rule-based classification with an
	// LLM verdict for this run, replacing any oracle the engine built from
	// its config. Oracle failures degrade to rule-only and never fail the
	// run.
	IntentOracle interfaces.IntentOracle

	// VerboseReasoning keeps the routing engine's full scoring trail in the
	// report. Off, the report still carries selections and rejections, just
	// not the per-agent audit steps.
	VerboseReasoning bool

	// IncludeOverflow returns merged records beyond ResultsWanted in
	// RunResult.Overflow instead of discarding them.
	IncludeOverflow bool
}

type settings struct {
	catalog []models.AgentDescriptor
	agents  map[models.AgentID]interfaces.Agent
}

// Option customizes engine construction.
type Option func(*settings)

// WithCatalog replaces the built-in agent catalog. Descriptors pass the same
// validation as the shipped set, and config overrides still apply on top.
func WithCatalog(catalog []models.AgentDescriptor) Option {
	return func(s *settings) {
		s.catalog = catalog
	}
}

// WithAgent registers a scraper implementation under its own id. A routed
// agent with no registered implementation terminates as a structural failure
// at run time, so hosts register one per catalog entry they intend to serve.
func WithAgent(agent interfaces.Agent) Option {
	return func(s *settings) {
		if s.agents == nil {
			s.agents = make(map[models.AgentID]interfaces.Agent)
		}
		s.agents[agent.ID()] = agent
	}
}

// Engine is the long-lived pipeline host. Limiter and breaker state carries
// across runs, which is what makes per-agent rate budgets meaningful for
// hosts issuing queries back to back.
type Engine struct {
	cfg       *common.Config
	logger    arbor.ILogger
	registry  *registry.Service
	intents   *intent.Service
	router    *routing.Service
	scheduler *scheduler.Service
	oracle    interfaces.IntentOracle
	agents    map[models.AgentID]interfaces.Agent
}

// New builds an engine. A nil cfg uses the defaults; an invalid cfg, catalog,
// or agent override is rejected with ErrInvalidConfig.
func New(cfg *common.Config, logger arbor.ILogger, opts ...Option) (*Engine, error) {
	if cfg == nil {
		cfg = common.NewDefaultConfig()
	} else {
		cfg = cfg.Clone()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if logger == nil {
		logger = common.GetLogger()
	}

	var s settings
	for _, opt := range opts {
		opt(&s)
	}

	var reg *registry.Service
	var err error
	if s.catalog != nil {
		reg, err = registry.NewServiceWithCatalog(s.catalog, cfg, logger)
	} else {
		reg, err = registry.NewService(cfg, logger)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	lex, err := intent.LoadLexicon("")
	if err != nil {
		return nil, fmt.Errorf("intent lexicon: %w", err)
	}

	defaultOracle, err := oracle.New(context.Background(), cfg.Oracle, logger)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	eng := &Engine{
		cfg:       cfg,
		logger:    logger,
		registry:  reg,
		intents:   intent.NewService(lex, logger),
		router:    routing.NewService(reg, cfg.Routing, logger),
		scheduler: scheduler.NewService(cfg.Scheduler, reg.GetAllAgents(), logger),
		oracle:    defaultOracle,
		agents:    s.agents,
	}

	logger.Info().
		Int("agents", reg.Count()).
		Int("implementations", len(s.agents)).
		Str("oracle", cfg.Oracle.Provider).
		Msg("Engine initialized")

	return eng, nil
}

// Run executes one query end to end. A report is produced on every terminal
// path, including rejection; the error return fires only for a nil or
// structurally invalid query and for ForceAgents naming an unknown id.
func (e *Engine) Run(ctx context.Context, query *models.Query, opts RunOptions) (*models.RunResult, *models.RunReport, error) {
	if query == nil {
		return nil, nil, ErrNilQuery
	}
	if err := query.Validate(); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}

	runID := uuid.New().String()
	log := e.logger.WithCorrelationId(runID)
	q := query.Normalized()
	started := time.Now()

	log.Info().
		Str("query", q.Text).
		Int("results_wanted", q.ResultsWanted).
		Msg("Run started")

	runOracle := opts.IntentOracle
	if runOracle == nil {
		runOracle = e.oracle
	}
	intentRes := e.intents.ClassifyWithOracle(ctx, &q, runOracle, e.cfg.Oracle.Timeout)

	decision, err := e.router.Route(intentRes, opts.ForceAgents)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrUnknownAgent, err)
	}

	if intentRes.IsJobRelated == models.TernaryFalse {
		report := e.buildReport(runID, q, intentRes, decision, scheduler.Output{}, merge.Result{}, started, opts)
		report.Outcome = models.OutcomeQueryRejected
		report.RejectionMessage = rejectionMessage(q.Text)
		log.Info().
			Str("outcome", report.Outcome.String()).
			Msg("Query is not job related, no agents dispatched")
		return &models.RunResult{Records: []models.JobRecord{}}, report, nil
	}

	if len(decision.Selected) == 0 {
		report := e.buildReport(runID, q, intentRes, decision, scheduler.Output{}, merge.Result{}, started, opts)
		report.Outcome = models.OutcomeNoAgentsSelected
		log.Warn().
			Int("rejected_agents", len(decision.Rejected)).
			Msg("Routing selected no agents")
		return &models.RunResult{Records: []models.JobRecord{}}, report, nil
	}

	merger := merge.NewMerger(e.cfg.Merger, e.registry.GetAllAgents(), log)
	sink := make(chan models.JobRecord, e.sinkCapacity(q.ResultsWanted))
	merger.Start(sink)

	out := e.scheduler.Execute(ctx, scheduler.Input{
		Query:         q,
		Intent:        intentRes,
		Decision:      decision,
		Agents:        e.agents,
		Sink:          sink,
		MergedCount:   merger.UniqueCount,
		RunDeadline:   opts.RunDeadline,
		MaxConcurrent: opts.MaxConcurrentAgents,
	})
	merger.Wait()

	merged := merger.Finalize(q.ResultsWanted, opts.IncludeOverflow)

	report := e.buildReport(runID, q, intentRes, decision, out, merged, started, opts)
	report.Outcome = models.OutcomeCompleted

	result := &models.RunResult{
		Records:                  merged.Records,
		MergedCount:              merged.MergedCount,
		TruncatedToResultsWanted: merged.MergedCount > len(merged.Records),
		Overflow:                 merged.Overflow,
	}

	log.Info().
		Int("merged", merged.MergedCount).
		Int("returned", len(merged.Records)).
		Int("collapsed", merged.DedupCollapsedCount).
		Int("dropped", out.DroppedRecords).
		Bool("deadline_exceeded", out.DeadlineHit).
		Dur("duration", time.Since(started)).
		Msg("Run completed")

	return result, report, nil
}

// sinkCapacity sizes the channel between scheduler and merger. When the
// buffer fills the scheduler drops records rather than block a scrape, and
// the drops are counted in the report.
func (e *Engine) sinkCapacity(resultsWanted int) int {
	factor := e.cfg.Scheduler.MergeBufferFactor
	if factor < 1 {
		factor = 1
	}
	return factor * resultsWanted
}

func (e *Engine) buildReport(runID string, q models.Query, intentRes models.IntentResult, decision models.RoutingDecision, out scheduler.Output, merged merge.Result, started time.Time, opts RunOptions) *models.RunReport {
	report := &models.RunReport{
		RunID:               runID,
		Query:               q,
		Intent:              intentRes,
		Routing:             decision,
		MergedCount:         merged.MergedCount,
		DedupCollapsedCount: merged.DedupCollapsedCount,
		DroppedRecordCount:  out.DroppedRecords,
		TotalDurationMS:     time.Since(started).Milliseconds(),
		DeadlineExceeded:    out.DeadlineHit,
	}
	if !opts.VerboseReasoning {
		report.Routing.Reasoning = nil
	}

	// Selection order is priority order; fallbacks that never activated have
	// no execution and are visible in Routing.Selected only.
	for _, sel := range decision.Selected {
		exec, ok := out.Executions[sel.AgentID]
		if !ok {
			continue
		}
		report.PerAgent = append(report.PerAgent, models.AgentReport{
			Execution:   *exec,
			RecordCount: exec.JobsReturned,
		})
	}
	return report
}

// rejectionMessage shows the caller what a runnable query looks like.
func rejectionMessage(text string) string {
	return fmt.Sprintf("%q does not look like a job search. Try a query such as %q, %q, or %q.",
		text, "software engineer jobs in Berlin", "remote data analyst", "senior accountant jobs in Singapore")
}
