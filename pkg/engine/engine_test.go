package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/indago/internal/common"
	"github.com/ternarybob/indago/pkg/agents/agenttest"
	"github.com/ternarybob/indago/pkg/models"
	"github.com/ternarybob/indago/pkg/watch"
)

func testLogger() arbor.ILogger {
	return arbor.NewLogger()
}

func testConfig() *common.Config {
	cfg := common.NewDefaultConfig()
	cfg.Scheduler.RunDeadline = 5 * time.Second
	cfg.Scheduler.RetryBaseBackoff = 10 * time.Millisecond
	cfg.Scheduler.CancelGracePeriod = 200 * time.Millisecond
	return cfg
}

func syntheticDescriptor(id models.AgentID, reliability float64, latencyMS, rpm, burst int) models.AgentDescriptor {
	return models.AgentDescriptor{
		ID:                id,
		PrimaryRegions:    []models.Region{models.RegionGlobal},
		ReliabilityScore:  reliability,
		AvgLatencyMS:      latencyMS,
		RateLimit:         models.RateLimit{RequestsPerMinute: rpm, Burst: burst},
		MaxResultsPerCall: 100,
	}
}

func rejectionsByAgent(report *models.RunReport) map[models.AgentID]models.RejectionReason {
	out := make(map[models.AgentID]models.RejectionReason, len(report.Routing.Rejected))
	for _, r := range report.Routing.Rejected {
		out[r.AgentID] = r.Reason
	}
	return out
}

func TestRun_EuropeTechnologyQueryRoutesAndExcludes(t *testing.T) {
	ids := []models.AgentID{models.AgentLinkedIn, models.AgentIndeed, models.AgentGlassdoor, models.AgentGoogle}
	stubs := make(map[models.AgentID]*agenttest.Agent, len(ids))
	opts := make([]Option, 0, len(ids))
	for _, id := range ids {
		stub := agenttest.New(id, agenttest.Step{Records: agenttest.Records(id, string(id), 3)})
		stubs[id] = stub
		opts = append(opts, WithAgent(stub))
	}

	eng, err := New(testConfig(), testLogger(), opts...)
	require.NoError(t, err)

	query := models.NewQuery("I want to find AI Engineer jobs in Europe")
	query.ResultsWanted = 30

	result, report, err := eng.Run(context.Background(), query, RunOptions{RunDeadline: 60 * time.Second})
	require.NoError(t, err)
	require.NotNil(t, result)
	require.NotNil(t, report)

	assert.Equal(t, models.RegionEurope, report.Intent.Region)
	assert.GreaterOrEqual(t, report.Intent.RegionConfidence, 0.9)
	assert.Equal(t, models.IndustryTechnology, report.Intent.Industry)

	primaries := report.Routing.AgentsWithRole(models.RolePrimary)
	require.Len(t, primaries, 2)
	assert.Equal(t, models.AgentLinkedIn, primaries[0].AgentID)
	assert.Equal(t, models.AgentIndeed, primaries[1].AgentID)

	secondaries := report.Routing.AgentsWithRole(models.RoleSecondary)
	require.Len(t, secondaries, 2)
	assert.Equal(t, models.AgentGlassdoor, secondaries[0].AgentID)
	assert.Equal(t, models.AgentGoogle, secondaries[1].AgentID)

	// Every catalog agent is accounted for, selected or rejected.
	assert.Equal(t, 9, len(report.Routing.Selected)+len(report.Routing.Rejected))
	rejected := rejectionsByAgent(report)
	for _, id := range []models.AgentID{models.AgentZipRecruiter, models.AgentSeek, models.AgentNaukri, models.AgentBayt, models.AgentBdjobs} {
		assert.Equal(t, models.RejectionNoRegionCoverage, rejected[id], "agent %s", id)
	}

	assert.Equal(t, models.OutcomeCompleted, report.Outcome)
	assert.False(t, report.DeadlineExceeded)
	assert.Equal(t, 12, result.MergedCount)
	assert.Len(t, result.Records, 12)
	assert.Zero(t, report.DedupCollapsedCount)
	assert.Zero(t, report.DroppedRecordCount)

	require.Len(t, report.PerAgent, 4)
	for _, pa := range report.PerAgent {
		assert.Equal(t, models.StateSucceeded, pa.Execution.State, "agent %s", pa.Execution.AgentID)
		assert.Equal(t, 3, pa.RecordCount)
	}
	for id, stub := range stubs {
		assert.Equal(t, 1, stub.Calls(), "agent %s", id)
		input, ok := stub.LastInput()
		require.True(t, ok)
		assert.Equal(t, 30, input.ResultsWanted)
	}
}

func TestRun_NonJobQueryRejectedWithGuidance(t *testing.T) {
	stub := agenttest.New(models.AgentIndeed, agenttest.Step{Records: agenttest.Records(models.AgentIndeed, "x", 2)})
	eng, err := New(testConfig(), testLogger(), WithAgent(stub))
	require.NoError(t, err)

	result, report, err := eng.Run(context.Background(), models.NewQuery("recommend me a movie"), RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, models.TernaryFalse, report.Intent.IsJobRelated)
	assert.Equal(t, models.OutcomeQueryRejected, report.Outcome)
	assert.Empty(t, report.Routing.Selected)
	assert.Len(t, report.Routing.Rejected, 9)
	assert.Empty(t, report.PerAgent)
	assert.Zero(t, stub.Calls())

	assert.Empty(t, result.Records)
	assert.Zero(t, result.MergedCount)

	assert.Contains(t, report.RejectionMessage, "recommend me a movie")
	assert.Contains(t, report.RejectionMessage, "software engineer jobs in Berlin")
}

// vetoOracle rejects everything, imitating an over-eager LLM verdict.
type vetoOracle struct{}

func (vetoOracle) Analyze(ctx context.Context, text, hint string) (models.IntentResult, error) {
	res := models.NewIntentResult()
	res.IsJobRelated = models.TernaryFalse
	res.OverallConfidence = 0.9
	return res, nil
}

func TestRun_OracleOverRejectionOverridden(t *testing.T) {
	var opts []Option
	for _, id := range []models.AgentID{models.AgentLinkedIn, models.AgentIndeed, models.AgentGoogle} {
		opts = append(opts, WithAgent(agenttest.New(id, agenttest.Step{Records: agenttest.Records(id, string(id), 2)})))
	}
	eng, err := New(testConfig(), testLogger(), opts...)
	require.NoError(t, err)

	query := models.NewQuery("data scientist openings in Kaohsiung")
	result, report, err := eng.Run(context.Background(), query, RunOptions{IntentOracle: vetoOracle{}})
	require.NoError(t, err)

	// Rule-based extraction found a job title and a place, which overrides
	// the oracle's blanket rejection.
	assert.Equal(t, models.TernaryTrue, report.Intent.IsJobRelated)
	assert.Equal(t, models.RegionEastAsia, report.Intent.Region)
	assert.Equal(t, models.OutcomeCompleted, report.Outcome)
	assert.NotEmpty(t, report.Routing.Selected)
	assert.NotEmpty(t, report.PerAgent)
	assert.NotEmpty(t, result.Records)
}

func TestRun_AgentTimeoutRetriedWhileOthersSucceed(t *testing.T) {
	catalog := []models.AgentDescriptor{
		syntheticDescriptor("alpha", 0.9, 40, 600, 10),
		syntheticDescriptor("beta", 0.9, 40, 600, 10),
		syntheticDescriptor("gamma", 0.9, 40, 600, 10),
	}
	slow := agenttest.New("alpha", agenttest.Step{Delay: 2 * time.Second})
	b := agenttest.New("beta", agenttest.Step{Records: agenttest.Records("beta", "b", 5)})
	c := agenttest.New("gamma", agenttest.Step{Records: agenttest.Records("gamma", "c", 5)})

	eng, err := New(testConfig(), testLogger(), WithCatalog(catalog), WithAgent(slow), WithAgent(b), WithAgent(c))
	require.NoError(t, err)

	query := models.NewQuery("software engineer jobs worldwide")
	result, report, err := eng.Run(context.Background(), query, RunOptions{RunDeadline: 3 * time.Second})
	require.NoError(t, err)

	alpha := report.AgentReportFor("alpha")
	require.NotNil(t, alpha)
	assert.Equal(t, models.StateTimedOut, alpha.Execution.State)
	assert.Equal(t, 3, alpha.Execution.Attempts)
	assert.Equal(t, 3, slow.Calls())
	assert.Zero(t, alpha.RecordCount)

	for _, id := range []models.AgentID{"beta", "gamma"} {
		pa := report.AgentReportFor(id)
		require.NotNil(t, pa)
		assert.Equal(t, models.StateSucceeded, pa.Execution.State)
		assert.Equal(t, 5, pa.RecordCount)
	}

	assert.Equal(t, 10, result.MergedCount)
	assert.Equal(t, models.OutcomeCompleted, report.Outcome)
	assert.False(t, report.DeadlineExceeded)
}

func TestRun_RateBudgetPersistsAcrossRuns(t *testing.T) {
	catalog := []models.AgentDescriptor{
		syntheticDescriptor("alpha", 0.9, 40, 6, 1), // one token, next one ~10s out
		syntheticDescriptor("beta", 0.9, 40, 600, 10),
	}
	a := agenttest.New("alpha", agenttest.Step{Records: agenttest.Records("alpha", "a", 2)})
	b := agenttest.New("beta", agenttest.Step{Records: agenttest.Records("beta", "b", 2)})

	eng, err := New(testConfig(), testLogger(), WithCatalog(catalog), WithAgent(a), WithAgent(b))
	require.NoError(t, err)

	query := models.NewQuery("software engineer jobs worldwide")

	_, first, err := eng.Run(context.Background(), query, RunOptions{RunDeadline: time.Second})
	require.NoError(t, err)
	firstAlpha := first.AgentReportFor("alpha")
	require.NotNil(t, firstAlpha)
	assert.Equal(t, models.StateSucceeded, firstAlpha.Execution.State)

	_, second, err := eng.Run(context.Background(), query, RunOptions{RunDeadline: time.Second})
	require.NoError(t, err)

	// The bucket refills at 6/min, so the wait would dwarf the token budget
	// and no second call goes out.
	secondAlpha := second.AgentReportFor("alpha")
	require.NotNil(t, secondAlpha)
	assert.Equal(t, models.StateRateLimited, secondAlpha.Execution.State)
	require.NotNil(t, secondAlpha.Execution.ErrorKind)
	assert.Equal(t, models.ErrorKindRateLimitedLocal, *secondAlpha.Execution.ErrorKind)
	assert.Equal(t, 1, a.Calls())

	secondBeta := second.AgentReportFor("beta")
	require.NotNil(t, secondBeta)
	assert.Equal(t, models.StateSucceeded, secondBeta.Execution.State)
	assert.Equal(t, 2, b.Calls())
}

func TestRun_CrossAgentNearDuplicateBackfillsSalary(t *testing.T) {
	catalog := []models.AgentDescriptor{
		syntheticDescriptor("alpha", 0.9, 40, 600, 10),
		syntheticDescriptor("beta", 0.7, 40, 600, 10),
	}

	minComp, maxComp := 70000.0, 90000.0
	base := models.JobRecord{
		ID:          "alpha:listing-1",
		SourceAgent: "alpha",
		SourceURL:   "https://example.com/alpha/listing-1",
		Title:       "Platform Engineer",
		Company:     "Initech",
		Location:    models.Location{Raw: "Berlin, Germany"},
	}
	dup := models.JobRecord{
		ID:          "beta:listing-7",
		SourceAgent: "beta",
		SourceURL:   "https://example.com/beta/listing-7",
		Title:       "Platform Engineer",
		Company:     "Initech",
		Location:    models.Location{Raw: "Berlin, Germany"},
		Compensation: &models.Compensation{
			Min:      &minComp,
			Max:      &maxComp,
			Currency: "EUR",
			Interval: models.IntervalYear,
		},
	}

	a := agenttest.New("alpha", agenttest.Step{Records: []models.JobRecord{base}})
	b := agenttest.New("beta", agenttest.Step{Records: []models.JobRecord{dup}})

	eng, err := New(testConfig(), testLogger(), WithCatalog(catalog), WithAgent(a), WithAgent(b))
	require.NoError(t, err)

	result, report, err := eng.Run(context.Background(), models.NewQuery("software engineer jobs worldwide"), RunOptions{})
	require.NoError(t, err)

	require.Len(t, result.Records, 1)
	rec := result.Records[0]
	assert.Equal(t, models.AgentID("alpha"), rec.SourceAgent)
	assert.Equal(t, "alpha:listing-1", rec.ID)
	require.NotNil(t, rec.Compensation)
	require.NotNil(t, rec.Compensation.Min)
	assert.Equal(t, 70000.0, *rec.Compensation.Min)
	assert.Contains(t, rec.Aliases, "beta:listing-7")

	assert.Equal(t, 1, report.MergedCount)
	assert.Equal(t, 1, report.DedupCollapsedCount)
}

func TestRun_MissingImplementationsFailStructurally(t *testing.T) {
	eng, err := New(testConfig(), testLogger())
	require.NoError(t, err)

	result, report, err := eng.Run(context.Background(), models.NewQuery("software engineer jobs worldwide"), RunOptions{})
	require.NoError(t, err)

	assert.Empty(t, result.Records)
	assert.Equal(t, models.OutcomeCompleted, report.Outcome)
	require.NotEmpty(t, report.PerAgent)
	for _, pa := range report.PerAgent {
		assert.Equal(t, models.StateFailed, pa.Execution.State, "agent %s", pa.Execution.AgentID)
		require.NotNil(t, pa.Execution.ErrorKind)
		assert.Equal(t, models.ErrorKindStructural, *pa.Execution.ErrorKind)
		assert.Zero(t, pa.RecordCount)
	}
}

func TestRun_ForceAgentsBypassesScoring(t *testing.T) {
	linked := agenttest.New(models.AgentLinkedIn, agenttest.Step{Records: agenttest.Records(models.AgentLinkedIn, "li", 2)})
	indeed := agenttest.New(models.AgentIndeed, agenttest.Step{Records: agenttest.Records(models.AgentIndeed, "in", 2)})
	eng, err := New(testConfig(), testLogger(), WithAgent(linked), WithAgent(indeed))
	require.NoError(t, err)

	_, report, err := eng.Run(context.Background(), models.NewQuery("software engineer jobs worldwide"),
		RunOptions{ForceAgents: []models.AgentID{models.AgentIndeed}})
	require.NoError(t, err)

	require.Len(t, report.Routing.Selected, 1)
	assert.Equal(t, models.AgentIndeed, report.Routing.Selected[0].AgentID)
	assert.Equal(t, models.RolePrimary, report.Routing.Selected[0].Role)
	assert.Equal(t, 1, indeed.Calls())
	assert.Zero(t, linked.Calls())

	rejected := rejectionsByAgent(report)
	assert.Equal(t, models.RejectionNotForced, rejected[models.AgentLinkedIn])
}

func TestRun_ForcedAgentExcludedByRegionYieldsNoAgents(t *testing.T) {
	stub := agenttest.New(models.AgentZipRecruiter, agenttest.Step{Records: agenttest.Records(models.AgentZipRecruiter, "z", 2)})
	eng, err := New(testConfig(), testLogger(), WithAgent(stub))
	require.NoError(t, err)

	// No place name anywhere in the query, so the exclusion check runs
	// against Global, which ziprecruiter opts out of.
	result, report, err := eng.Run(context.Background(), models.NewQuery("software engineer jobs"),
		RunOptions{ForceAgents: []models.AgentID{models.AgentZipRecruiter}})
	require.NoError(t, err)

	assert.Equal(t, models.OutcomeNoAgentsSelected, report.Outcome)
	assert.Empty(t, result.Records)
	assert.Empty(t, report.PerAgent)
	assert.Zero(t, stub.Calls())

	rejected := rejectionsByAgent(report)
	assert.Equal(t, models.RejectionRegionExcluded, rejected[models.AgentZipRecruiter])
}

func TestRun_VerboseReasoningTogglesAuditTrail(t *testing.T) {
	stub := agenttest.New(models.AgentIndeed)
	eng, err := New(testConfig(), testLogger(), WithAgent(stub))
	require.NoError(t, err)

	query := models.NewQuery("software engineer jobs worldwide")

	_, lean, err := eng.Run(context.Background(), query, RunOptions{})
	require.NoError(t, err)
	assert.Empty(t, lean.Routing.Reasoning)
	assert.NotEmpty(t, lean.Routing.Selected)

	_, verbose, err := eng.Run(context.Background(), query, RunOptions{VerboseReasoning: true})
	require.NoError(t, err)
	assert.NotEmpty(t, verbose.Routing.Reasoning)
}

func TestRun_OverflowOptIn(t *testing.T) {
	stub := agenttest.New(models.AgentIndeed, agenttest.Step{Records: agenttest.Records(models.AgentIndeed, "bulk", 8)})
	eng, err := New(testConfig(), testLogger(), WithAgent(stub))
	require.NoError(t, err)

	query := models.NewQuery("software engineer jobs worldwide")
	query.ResultsWanted = 5
	force := RunOptions{ForceAgents: []models.AgentID{models.AgentIndeed}}

	result, _, err := eng.Run(context.Background(), query, force)
	require.NoError(t, err)
	assert.Len(t, result.Records, 5)
	assert.Equal(t, 8, result.MergedCount)
	assert.True(t, result.TruncatedToResultsWanted)
	assert.Empty(t, result.Overflow)

	force.IncludeOverflow = true
	result, _, err = eng.Run(context.Background(), query, force)
	require.NoError(t, err)
	assert.Len(t, result.Records, 5)
	assert.Len(t, result.Overflow, 3)
}

func TestRun_DeadlineExpiryReported(t *testing.T) {
	catalog := []models.AgentDescriptor{syntheticDescriptor("alpha", 0.9, 40, 600, 10)}
	stub := agenttest.New("alpha", agenttest.Step{Delay: 2 * time.Second, IgnoreContext: true})
	eng, err := New(testConfig(), testLogger(), WithCatalog(catalog), WithAgent(stub))
	require.NoError(t, err)

	start := time.Now()
	result, report, err := eng.Run(context.Background(), models.NewQuery("software engineer jobs worldwide"),
		RunOptions{RunDeadline: 150 * time.Millisecond})
	require.NoError(t, err)

	assert.True(t, report.DeadlineExceeded)
	assert.Empty(t, result.Records)
	assert.Less(t, time.Since(start), 2*time.Second)

	alpha := report.AgentReportFor("alpha")
	require.NotNil(t, alpha)
	assert.Equal(t, models.StateTimedOut, alpha.Execution.State)
}

// Hosts watch a query by wrapping Run in a watch.Runner. Cycle two repeats
// cycle one's listings plus one new posting; only the new one is reported.
func TestRun_WatchedQueryNotifiesOnlyNewRecords(t *testing.T) {
	first := agenttest.Records(models.AgentIndeed, "first", 2)
	again := append(agenttest.Records(models.AgentIndeed, "first", 2),
		agenttest.Records(models.AgentIndeed, "second", 1)...)
	stub := agenttest.New(models.AgentIndeed,
		agenttest.Step{Records: first},
		agenttest.Step{Records: again},
	)

	eng, err := New(testConfig(), testLogger(), WithAgent(stub))
	require.NoError(t, err)

	var batches [][]models.JobRecord
	w, err := watch.New("@hourly", models.NewQuery("backend engineer jobs in Berlin"),
		func(ctx context.Context, q *models.Query) ([]models.JobRecord, error) {
			result, _, runErr := eng.Run(ctx, q, RunOptions{})
			if runErr != nil {
				return nil, runErr
			}
			return result.Records, nil
		},
		func(_ *models.Query, fresh []models.JobRecord) {
			batches = append(batches, fresh)
		},
		testLogger())
	require.NoError(t, err)

	w.TriggerNow()
	w.TriggerNow()

	require.Len(t, batches, 2)
	assert.Len(t, batches[0], 2)
	require.Len(t, batches[1], 1)
	assert.Equal(t, "Acme second", batches[1][0].Company)
	assert.Equal(t, 2, stub.Calls())
}

func TestRun_InputValidation(t *testing.T) {
	eng, err := New(nil, testLogger())
	require.NoError(t, err)

	_, _, err = eng.Run(context.Background(), nil, RunOptions{})
	assert.ErrorIs(t, err, ErrNilQuery)

	bad := models.NewQuery("golang jobs")
	jt := models.JobType("gig")
	bad.JobType = &jt
	_, _, err = eng.Run(context.Background(), bad, RunOptions{})
	assert.ErrorIs(t, err, ErrInvalidQuery)

	_, _, err = eng.Run(context.Background(), models.NewQuery("golang jobs"),
		RunOptions{ForceAgents: []models.AgentID{"monster"}})
	assert.ErrorIs(t, err, ErrUnknownAgent)
}

func TestNew_InvalidConfigRejected(t *testing.T) {
	cfg := common.NewDefaultConfig()
	cfg.Scheduler.RunDeadline = -time.Second
	_, err := New(cfg, testLogger())
	assert.ErrorIs(t, err, ErrInvalidConfig)

	override := common.NewDefaultConfig()
	override.Agents["monster"] = common.AgentOverrideConfig{}
	_, err = New(override, testLogger())
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNew_ConfiguredOracleProvider(t *testing.T) {
	cfg := common.NewDefaultConfig()
	cfg.Oracle.Provider = common.OracleProviderClaude
	cfg.Oracle.APIKey = "test-key"
	eng, err := New(cfg, testLogger())
	require.NoError(t, err)
	assert.NotNil(t, eng.oracle)

	// A provider with no key in config or environment cannot be built.
	bare := common.NewDefaultConfig()
	bare.Oracle.Provider = common.OracleProviderClaude
	t.Setenv("ANTHROPIC_API_KEY", "")
	_, err = New(bare, testLogger())
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
