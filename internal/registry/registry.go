// Package registry maps source identifiers to their extractor implementations
// and tracks per-source health counters. A Registry is constructed explicitly
// and injected into the orchestrator; there is no process-wide instance.
package registry

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lexharvest/docstream/internal/extraction"
)

// Registry stores registered extractors keyed by source id.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	logger  *zap.Logger
}

type entry struct {
	extractor extraction.Extractor
	enabled   bool
	stats     extraction.SourceStats
}

// New constructs an empty Registry.
func New(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		entries: make(map[string]*entry),
		logger:  logger,
	}
}

// Register binds an extractor to a source id, enabled by default.
// Re-registering a source replaces its extractor and resets its counters.
func (r *Registry) Register(sourceID string, extractor extraction.Extractor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[sourceID] = &entry{
		extractor: extractor,
		enabled:   true,
		stats:     extraction.SourceStats{SourceID: sourceID, Enabled: true},
	}
	r.logger.Info("source registered", zap.String("source_id", sourceID))
}

// SetEnabled toggles a source's availability. Unknown sources are ignored.
func (r *Registry) SetEnabled(sourceID string, enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[sourceID]
	if !ok {
		return
	}
	e.enabled = enabled
	e.stats.Enabled = enabled
}

// Extractor resolves the extractor for sourceID. An unregistered or disabled
// source yields SourceUnavailableError; a registered source with a nil
// extractor yields ExtractorNotFoundError.
func (r *Registry) Extractor(sourceID string) (extraction.Extractor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[sourceID]
	if !ok || !e.enabled {
		return nil, &extraction.SourceUnavailableError{SourceID: sourceID}
	}
	if e.extractor == nil {
		return nil, &extraction.ExtractorNotFoundError{SourceID: sourceID}
	}
	return e.extractor, nil
}

// Sources lists the registered source ids in lexical order.
func (r *Registry) Sources() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.entries))
	for id := range r.entries {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// RecordStart bumps the started counter and last-run timestamp for a source.
func (r *Registry) RecordStart(sourceID string, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[sourceID]; ok {
		e.stats.JobsStarted++
		ts := at
		e.stats.LastRunAt = &ts
	}
}

// RecordOutcome bumps the completed or failed counter for a source.
func (r *Registry) RecordOutcome(sourceID string, succeeded bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[sourceID]
	if !ok {
		return
	}
	if succeeded {
		e.stats.JobsCompleted++
	} else {
		e.stats.JobsFailed++
	}
}

// Stats returns a snapshot of every source's counters, ordered by source id.
func (r *Registry) Stats() []extraction.SourceStats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]extraction.SourceStats, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.stats)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SourceID < out[j].SourceID })
	return out
}

// Health summarizes registry state: "ok" when at least one source is enabled,
// "degraded" when sources exist but all are disabled, "empty" otherwise.
func (r *Registry) Health() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.entries) == 0 {
		return "empty"
	}
	for _, e := range r.entries {
		if e.enabled {
			return "ok"
		}
	}
	return "degraded"
}
