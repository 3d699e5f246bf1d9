package interfaces

import (
	"context"

	"github.com/ternarybob/indago/pkg/models"
)

// Agent is the uniform contract over every job-board scraper. How an agent
// gets its records (HTTP plus HTML parsing, a JSON API, or browser
// automation) is entirely its own business; the engine only sees this
// interface.
//
// Contract obligations:
//   - Honor the context deadline. On breach return TerminatedTimedOut with
//     whatever records were collected so far.
//   - Check ctx.Err() at least between result pages so cancellation is
//     honored promptly.
//   - Never report failure through panics or out-of-band channels. Every
//     failure mode maps to a TerminatedReason in the output; the scheduler
//     treats a panic as TerminatedSiteStructureError.
//   - Return TerminatedRegionUnsupported only when the concrete country in
//     the input cannot be served, which is distinct from routing-level region
//     exclusion.
//   - Populate at least ID, SourceAgent, SourceURL, Title, Company, and
//     Location.Raw on every record; everything else is best effort.
//
// Agents with heavy startup cost (headless browsers) should advertise a
// higher AvgLatencyMS in the registry so the scheduler budgets their per-call
// deadline accordingly.
type Agent interface {
	// ID returns the agent's registry identity.
	ID() models.AgentID

	// Scrape runs one search against the agent's job board.
	Scrape(ctx context.Context, input models.ScrapeInput) models.ScrapeOutput
}
