// Package merge turns the scheduler's raw record stream into the canonical
// output set: every record normalized, near-duplicates across boards
// collapsed with field back-fill, and a quality score stamped on what
// survives. One merger instance serves one run.
package merge

import (
	"sync/atomic"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/indago/internal/common"
	"github.com/ternarybob/indago/pkg/models"
)

type entry struct {
	rec     models.JobRecord
	descLen int
	fields  int
}

// Merger owns all merge state. A single goroutine mutates it, fed by the
// scheduler's channel, so no locking is needed beyond the live unique
// counter the scheduler polls for its fallback decision.
type Merger struct {
	policy      string
	norm        *normalizer
	reliability map[models.AgentID]float64
	logger      arbor.ILogger

	entries   []*entry
	byID      map[string]int
	byKey     map[string]int
	collapsed int

	unique atomic.Int64
	done   chan struct{}
}

// NewMerger creates a merger for one run. Descriptors provide the
// reliability scores that settle cross-agent duplicate contests and feed
// quality scoring.
func NewMerger(cfg common.MergerConfig, descriptors []models.AgentDescriptor, logger arbor.ILogger) *Merger {
	reliability := make(map[models.AgentID]float64, len(descriptors))
	for _, desc := range descriptors {
		reliability[desc.ID] = desc.ReliabilityScore
	}

	return &Merger{
		policy:      cfg.DedupPolicy,
		norm:        newNormalizer(cfg, logger),
		reliability: reliability,
		logger:      logger,
		byID:        make(map[string]int),
		byKey:       make(map[string]int),
		done:        make(chan struct{}),
	}
}

// Start consumes the stream on its own goroutine until the channel closes.
func (m *Merger) Start(in <-chan models.JobRecord) {
	common.SafeGo(m.logger, "merger", func() {
		defer close(m.done)
		for rec := range in {
			m.ingest(rec)
		}
	})
}

// Wait blocks until the stream is closed and fully absorbed.
func (m *Merger) Wait() {
	<-m.done
}

// UniqueCount reports how many distinct records the merger holds. Safe to
// call while the stream is still flowing.
func (m *Merger) UniqueCount() int {
	return int(m.unique.Load())
}

func (m *Merger) ingest(rec models.JobRecord) {
	descLen := m.norm.normalize(&rec)

	// Stage 1: exact id. Later arrivals are the same listing seen again.
	if _, ok := m.byID[rec.ID]; ok {
		m.collapsed++
		return
	}

	// Stage 2: fingerprint.
	if m.policy == common.DedupPolicyIDAndFingerprint {
		if idx, ok := m.byKey[rec.DedupKey]; ok {
			m.mergeNear(idx, &rec, descLen)
			return
		}
	}

	e := &entry{rec: rec, descLen: descLen, fields: optionalFieldCount(&rec)}
	m.entries = append(m.entries, e)
	idx := len(m.entries) - 1
	m.byID[rec.ID] = idx
	m.byKey[rec.DedupKey] = idx
	m.unique.Store(int64(len(m.entries)))
}

// mergeNear collapses an incoming record into the entry sharing its
// fingerprint. The merged record keeps the existing entry's arrival slot so
// output order stays stable.
func (m *Merger) mergeNear(idx int, incoming *models.JobRecord, incomingDescLen int) {
	existing := m.entries[idx]
	m.collapsed++
	m.byID[incoming.ID] = idx

	if existing.rec.SourceAgent == incoming.SourceAgent {
		// Same board listed the role twice. Keep the richer record; on a
		// tie the earlier scrape stands.
		incomingFields := optionalFieldCount(incoming)
		if incomingFields > existing.fields ||
			(incomingFields == existing.fields && incoming.ScrapedAt.Before(existing.rec.ScrapedAt)) {
			existing.rec = *incoming
			existing.descLen = incomingDescLen
			existing.fields = incomingFields
		}
		return
	}

	// Different boards. The more reliable agent's record is the base, the
	// other back-fills its gaps and survives as an alias.
	base, donor := &existing.rec, incoming
	baseDescLen, donorDescLen := existing.descLen, incomingDescLen
	if m.reliabilityFor(incoming.SourceAgent) > m.reliabilityFor(existing.rec.SourceAgent) {
		base, donor = incoming, &existing.rec
		baseDescLen, donorDescLen = incomingDescLen, existing.descLen
	}

	hadDescription := base.Description != nil
	backfill(base, donor)

	descLen := baseDescLen
	if !hadDescription && base.Description != nil {
		descLen = donorDescLen
	}

	base.Aliases = append(base.Aliases, donor.ID)
	base.Aliases = append(base.Aliases, donor.Aliases...)

	m.logger.Debug().
		Str("base", base.ID).
		Str("alias", donor.ID).
		Str("dedup_key", base.DedupKey).
		Msg("Merged cross-agent duplicate")

	existing.rec = *base
	existing.descLen = descLen
	existing.fields = optionalFieldCount(base)
}

func (m *Merger) reliabilityFor(id models.AgentID) float64 {
	if rel, ok := m.reliability[id]; ok {
		return rel
	}
	return 0.5
}

// Result is the merger's final output for one run.
type Result struct {
	Records             []models.JobRecord
	Overflow            []models.JobRecord
	MergedCount         int
	DedupCollapsedCount int
}

// Finalize stamps quality scores and splits the merged set into the capped
// output and the overflow beyond resultsWanted. Records keep arrival order;
// the cap is a soft one, so overflow records took full part in merging and
// are returned when the caller opted in. Call only after Wait.
func (m *Merger) Finalize(resultsWanted int, includeOverflow bool) Result {
	records := make([]models.JobRecord, 0, len(m.entries))
	for _, e := range m.entries {
		rec := e.rec.Clone()
		rec.QualityScore = qualityScore(&rec, m.reliabilityFor(rec.SourceAgent), e.descLen)
		records = append(records, rec)
	}

	result := Result{
		MergedCount:         len(records),
		DedupCollapsedCount: m.collapsed,
	}
	if resultsWanted > 0 && len(records) > resultsWanted {
		result.Records = records[:resultsWanted]
		if includeOverflow {
			result.Overflow = records[resultsWanted:]
		}
	} else {
		result.Records = records
	}
	return result
}
