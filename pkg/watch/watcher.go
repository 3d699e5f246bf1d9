// Package watch re-runs a saved query on a cron schedule and reports the
// records no earlier cycle produced. State is in memory only; a restarted
// watcher reports its first cycle's records as new.
package watch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/indago/internal/common"
	"github.com/ternarybob/indago/pkg/models"
)

// Runner executes one search run for the watched query and returns its
// merged records. Hosts usually wrap engine.Run in one; tests supply fakes.
type Runner func(ctx context.Context, query *models.Query) ([]models.JobRecord, error)

// NewRecordsFunc receives the records a cycle produced that no earlier
// cycle had seen.
type NewRecordsFunc func(query *models.Query, fresh []models.JobRecord)

// Status is a point-in-time snapshot of a watcher.
type Status struct {
	Running     bool       `json:"running"`
	CycleActive bool       `json:"cycle_active"`
	Cycles      int        `json:"cycles"`
	SeenRecords int        `json:"seen_records"`
	LastRun     *time.Time `json:"last_run,omitempty"`
	NextRun     *time.Time `json:"next_run,omitempty"`
	LastError   string     `json:"last_error,omitempty"`
}

// Watcher re-runs one query on a cron schedule and diffs each cycle's
// records against every earlier cycle by dedup key. The lifecycle is one
// way: New, optionally TriggerNow for a baseline, Start, Stop. A stopped
// watcher cannot be restarted; build a new one.
type Watcher struct {
	schedule string
	query    *models.Query
	run      Runner
	notify   NewRecordsFunc
	logger   arbor.ILogger

	cron    *cron.Cron
	entryID cron.EntryID

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	seen    map[string]bool
	running bool
	stopped bool
	cycling bool
	cycles  int
	lastRun *time.Time
	lastErr string
}

// New builds a watcher. The schedule is a standard 5-field cron expression;
// descriptors like "@hourly" and "@every 30m" also work.
func New(schedule string, query *models.Query, run Runner, notify NewRecordsFunc, logger arbor.ILogger) (*Watcher, error) {
	if query == nil {
		return nil, fmt.Errorf("watch query is required")
	}
	if run == nil {
		return nil, fmt.Errorf("watch runner is required")
	}
	if notify == nil {
		return nil, fmt.Errorf("watch callback is required")
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid watch schedule %q: %w", schedule, err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Watcher{
		schedule: schedule,
		query:    query,
		run:      run,
		notify:   notify,
		logger:   logger,
		cron:     cron.New(),
		ctx:      ctx,
		cancel:   cancel,
		seen:     make(map[string]bool),
	}, nil
}

// Start schedules the watch cycles. The first scheduled cycle runs at the
// schedule's next firing, not immediately; call TriggerNow first when a
// baseline is wanted.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return fmt.Errorf("watcher is stopped")
	}
	if w.running {
		return fmt.Errorf("watcher already running")
	}

	entryID, err := w.cron.AddFunc(w.schedule, w.runCycle)
	if err != nil {
		return fmt.Errorf("failed to schedule watch: %w", err)
	}
	w.entryID = entryID
	w.cron.Start()
	w.running = true

	w.logger.Info().
		Str("schedule", w.schedule).
		Str("query", w.query.Text).
		Msg("Watcher started")

	return nil
}

// Stop cancels the in-flight cycle if any and waits for it to finish.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	w.running = false
	w.mu.Unlock()

	w.cancel()
	<-w.cron.Stop().Done()

	w.logger.Info().
		Str("query", w.query.Text).
		Msg("Watcher stopped")
}

// TriggerNow runs one cycle synchronously, outside the schedule. It returns
// after the cycle and its notification complete.
func (w *Watcher) TriggerNow() {
	w.runCycle()
}

// Status reports the watcher's current state.
func (w *Watcher) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()

	status := Status{
		Running:     w.running,
		CycleActive: w.cycling,
		Cycles:      w.cycles,
		SeenRecords: len(w.seen),
		LastError:   w.lastErr,
	}
	if w.lastRun != nil {
		t := *w.lastRun
		status.LastRun = &t
	}
	if w.running {
		for _, entry := range w.cron.Entries() {
			if entry.ID == w.entryID {
				next := entry.Next
				status.NextRun = &next
				break
			}
		}
	}
	return status
}

// runCycle executes one watch cycle: run the query, diff against everything
// seen so far, notify with the new records. Overlapping firings are skipped
// rather than queued so a slow run cannot pile up cycles behind it.
func (w *Watcher) runCycle() {
	defer common.RecoverPanic(w.logger, "watch-cycle")

	w.mu.Lock()
	if w.cycling || w.stopped {
		skipped := w.cycling
		w.mu.Unlock()
		if skipped {
			w.logger.Debug().Msg("Previous watch cycle still running, skipping")
		}
		return
	}
	w.cycling = true
	ctx := w.ctx
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.cycling = false
		w.mu.Unlock()
	}()

	started := time.Now()
	records, err := w.run(ctx, w.query)

	w.mu.Lock()
	w.cycles++
	now := time.Now()
	w.lastRun = &now
	if err != nil {
		w.lastErr = err.Error()
		w.mu.Unlock()
		w.logger.Warn().
			Err(err).
			Dur("duration", time.Since(started)).
			Msg("Watch cycle failed")
		return
	}
	w.lastErr = ""
	fresh := w.diffLocked(records)
	w.mu.Unlock()

	w.logger.Info().
		Int("records", len(records)).
		Int("new_records", len(fresh)).
		Dur("duration", time.Since(started)).
		Msg("Watch cycle completed")

	if len(fresh) > 0 {
		w.notify(w.query, fresh)
	}
}

// diffLocked returns the records whose keys are unseen and registers them.
// Records carry their merger dedup key; records without one fall back to
// the listing id. Caller holds w.mu.
func (w *Watcher) diffLocked(records []models.JobRecord) []models.JobRecord {
	var fresh []models.JobRecord
	for _, rec := range records {
		key := rec.DedupKey
		if key == "" {
			key = rec.ID
		}
		if key == "" || w.seen[key] {
			continue
		}
		w.seen[key] = true
		fresh = append(fresh, rec)
	}
	return fresh
}
