package sinks

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/lexharvest/docstream/internal/progress"
)

// PrometheusSink exports extraction progress metrics via Prometheus. It owns
// all collectors for jobs started/completed/running, retries, and document
// throughput.
type PrometheusSink struct {
	jobsStarted   *prometheus.CounterVec
	jobsCompleted *prometheus.CounterVec
	jobsRunning   prometheus.Gauge
	jobRetries    *prometheus.CounterVec
	jobRuntime    *prometheus.HistogramVec

	documentsFound     *prometheus.CounterVec
	documentsProcessed *prometheus.CounterVec

	tracker *jobTracker
}

// NewPrometheusSink registers the collectors against the provided registry.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		jobsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "extraction_jobs_started_total",
			Help: "Total jobs that have started, partitioned by source.",
		}, []string{"source"}),
		jobsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "extraction_jobs_completed_total",
			Help: "Total jobs completed partitioned by source and result.",
		}, []string{"source", "result"}),
		jobsRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "extraction_jobs_running",
			Help: "Current number of running jobs.",
		}),
		jobRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "extraction_job_retries_total",
			Help: "Extraction attempts retried, partitioned by source.",
		}, []string{"source"}),
		jobRuntime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "extraction_job_runtime_seconds",
			Help:    "Wall time per completed job.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		}, []string{"result"}),
		documentsFound: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "extraction_documents_found_total",
			Help: "Documents reported by extractors, partitioned by source.",
		}, []string{"source"}),
		documentsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "extraction_documents_processed_total",
			Help: "Documents persisted by the pipeline, partitioned by source.",
		}, []string{"source"}),
		tracker: newJobTracker(),
	}
	for _, collector := range []prometheus.Collector{
		s.jobsStarted,
		s.jobsCompleted,
		s.jobsRunning,
		s.jobRetries,
		s.jobRuntime,
		s.documentsFound,
		s.documentsProcessed,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the Prometheus collectors using the provided batch. It is
// safe for concurrent use by multiple goroutines.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		s.consumeEvent(evt)
	}
	return nil
}

func (s *PrometheusSink) consumeEvent(evt progress.Event) {
	source := evt.SourceID
	if source == "" {
		source = "unknown"
	}
	switch evt.Stage {
	case progress.StageStart:
		s.jobsStarted.WithLabelValues(source).Inc()
		if s.tracker.start(evt.JobID) {
			s.jobsRunning.Inc()
		}
	case progress.StageRetry:
		s.jobRetries.WithLabelValues(source).Inc()
	case progress.StageDone:
		s.jobsCompleted.WithLabelValues(source, "success").Inc()
		s.finishJob(evt, "success")
		s.observeDocuments(source, evt)
	case progress.StageError:
		s.jobsCompleted.WithLabelValues(source, "error").Inc()
		s.finishJob(evt, "error")
	case progress.StageCancelled:
		s.jobsCompleted.WithLabelValues(source, "cancelled").Inc()
		s.finishJob(evt, "cancelled")
	}
}

func (s *PrometheusSink) finishJob(evt progress.Event, result string) {
	if s.tracker.complete(evt.JobID) {
		s.jobsRunning.Dec()
	}
	if evt.Dur > 0 {
		s.jobRuntime.WithLabelValues(result).Observe(evt.Dur.Seconds())
	}
}

func (s *PrometheusSink) observeDocuments(source string, evt progress.Event) {
	if evt.DocumentsFound > 0 {
		s.documentsFound.WithLabelValues(source).Add(float64(evt.DocumentsFound))
	}
	if evt.DocumentsProcessed > 0 {
		s.documentsProcessed.WithLabelValues(source).Add(float64(evt.DocumentsProcessed))
	}
}

// Close implements the Sink interface; it performs no action.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}

type jobTracker struct {
	mu      sync.Mutex
	running map[string]struct{}
}

func newJobTracker() *jobTracker {
	return &jobTracker{running: make(map[string]struct{})}
}

func (t *jobTracker) start(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.running[id]; ok {
		return false
	}
	t.running[id] = struct{}{}
	return true
}

func (t *jobTracker) complete(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.running[id]; !ok {
		return false
	}
	delete(t.running, id)
	return true
}
