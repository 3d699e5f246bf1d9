// Package agenttest provides a scriptable Agent implementation for testing
// engine behavior without touching real job boards. Each stub plays back a
// sequence of scripted outcomes, one per Scrape call, and records what it
// was asked so tests can assert on inputs as well as outputs.
package agenttest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/indago/pkg/models"
)

// Step is one scripted Scrape outcome. Calls consume steps in order; once
// the script runs out the last step repeats.
type Step struct {
	Records []models.JobRecord
	// Reason left empty means complete.
	Reason models.TerminatedReason
	// Delay holds the call for this long before returning. Unless
	// IgnoreContext is set the stub honors cancellation during the delay and
	// returns timed_out with no records, like a well behaved scraper.
	Delay         time.Duration
	IgnoreContext bool
	// PanicMessage, when non-empty, makes the call panic instead of return.
	PanicMessage string
	Warnings     []string
}

// Agent is a scriptable stand-in for a real scraper. Safe for concurrent
// use.
type Agent struct {
	id models.AgentID

	mu     sync.Mutex
	steps  []Step
	calls  int
	inputs []models.ScrapeInput
}

// New creates a stub that plays the given steps in order. With no steps
// every call returns an empty complete output.
func New(id models.AgentID, steps ...Step) *Agent {
	return &Agent{id: id, steps: steps}
}

// ID returns the stub's registry identity.
func (a *Agent) ID() models.AgentID {
	return a.id
}

// Calls returns how many times Scrape has been invoked.
func (a *Agent) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

// Inputs returns a copy of every ScrapeInput received so far.
func (a *Agent) Inputs() []models.ScrapeInput {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]models.ScrapeInput(nil), a.inputs...)
}

// LastInput returns the most recent ScrapeInput, if any call happened.
func (a *Agent) LastInput() (models.ScrapeInput, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.inputs) == 0 {
		return models.ScrapeInput{}, false
	}
	return a.inputs[len(a.inputs)-1], true
}

// Scrape plays back the next scripted step.
func (a *Agent) Scrape(ctx context.Context, input models.ScrapeInput) models.ScrapeOutput {
	a.mu.Lock()
	step := Step{Reason: models.TerminatedComplete}
	if len(a.steps) > 0 {
		idx := a.calls
		if idx >= len(a.steps) {
			idx = len(a.steps) - 1
		}
		step = a.steps[idx]
	}
	a.calls++
	a.inputs = append(a.inputs, input)
	a.mu.Unlock()

	if step.PanicMessage != "" {
		panic(step.PanicMessage)
	}

	if step.Delay > 0 {
		if step.IgnoreContext {
			time.Sleep(step.Delay)
		} else {
			timer := time.NewTimer(step.Delay)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return models.ScrapeOutput{TerminatedReason: models.TerminatedTimedOut}
			case <-timer.C:
			}
		}
	}

	records := make([]models.JobRecord, len(step.Records))
	for i := range step.Records {
		records[i] = step.Records[i].Clone()
	}
	reason := step.Reason
	if reason == "" {
		reason = models.TerminatedComplete
	}
	return models.ScrapeOutput{
		Records:          records,
		TerminatedReason: reason,
		Warnings:         append([]string(nil), step.Warnings...),
	}
}

// Records builds n minimally valid records attributed to the agent, with ids
// "<prefix>-1" through "<prefix>-n". Tests layer extra fields on top as
// needed.
func Records(agentID models.AgentID, prefix string, n int) []models.JobRecord {
	out := make([]models.JobRecord, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, models.JobRecord{
			ID:          fmt.Sprintf("%s:%s-%d", agentID, prefix, i),
			SourceAgent: agentID,
			SourceURL:   fmt.Sprintf("https://example.com/%s/%s-%d", agentID, prefix, i),
			Title:       fmt.Sprintf("Software Engineer %d", i),
			Company:     fmt.Sprintf("Acme %s", prefix),
			Location:    models.Location{Raw: "Berlin, Germany"},
		})
	}
	return out
}
