// Package orchestrator schedules extraction jobs against a bounded pool of
// concurrent slots. Submissions beyond the ceiling wait in a FIFO queue that
// drains when slots free up, on a periodic tick, or on an explicit drain call.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lexharvest/docstream/internal/extraction"
	"github.com/lexharvest/docstream/internal/progress"
	"github.com/lexharvest/docstream/internal/registry"
)

// resultPreviewLimit caps how many per-document previews land in the history
// record; full documents are already persisted by the pipeline.
const resultPreviewLimit = 5

// AttemptRunner executes one extraction with whatever retry policy it
// implements. Satisfied by retry.Supervisor.
type AttemptRunner interface {
	Execute(ctx context.Context, job extraction.Job, extractor extraction.Extractor) (extraction.ExtractionResult, error)
}

// DocumentPipeline persists the raw documents of a successful extraction.
// Satisfied by pipeline.Pipeline.
type DocumentPipeline interface {
	ProcessBatch(ctx context.Context, job extraction.Job, raws []extraction.RawDocument) []extraction.NormalizedDocument
}

// IDGenerator produces the random suffix for job identifiers.
type IDGenerator interface {
	NewSuffix() (string, error)
}

// Config controls scheduling.
type Config struct {
	// MaxConcurrentJobs is the slot ceiling (default 3).
	MaxConcurrentJobs int
	// QueueDrainInterval is the periodic drain tick (default 5s).
	QueueDrainInterval time.Duration
	// ExtractionTimeout bounds a single job run end to end (default 10m).
	ExtractionTimeout time.Duration
}

type activeJob struct {
	job       extraction.Job
	extractor extraction.Extractor
	cancel    context.CancelFunc
	cancelled bool
}

// Orchestrator owns the job lifecycle: admission, queueing, execution,
// cancellation, and status lookups.
type Orchestrator struct {
	cfg      Config
	registry *registry.Registry
	runner   AttemptRunner
	pipeline DocumentPipeline
	history  extraction.HistoryStore
	emitter  progress.Emitter
	clock    extraction.Clock
	ids      IDGenerator
	logger   *zap.Logger

	mu     sync.Mutex
	active map[string]*activeJob
	queue  fifo

	// baseCtx parents every job context so Run's shutdown reaches them.
	baseCtx    context.Context
	baseCancel context.CancelFunc

	wg sync.WaitGroup
}

// New constructs an Orchestrator.
func New(
	cfg Config,
	reg *registry.Registry,
	runner AttemptRunner,
	pipe DocumentPipeline,
	history extraction.HistoryStore,
	emitter progress.Emitter,
	clock extraction.Clock,
	ids IDGenerator,
	logger *zap.Logger,
) *Orchestrator {
	if cfg.MaxConcurrentJobs <= 0 {
		cfg.MaxConcurrentJobs = 3
	}
	if cfg.QueueDrainInterval <= 0 {
		cfg.QueueDrainInterval = 5 * time.Second
	}
	if cfg.ExtractionTimeout <= 0 {
		cfg.ExtractionTimeout = 10 * time.Minute
	}
	if emitter == nil {
		emitter = progress.NopEmitter{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	baseCtx, baseCancel := context.WithCancel(context.Background())
	return &Orchestrator{
		cfg:        cfg,
		registry:   reg,
		runner:     runner,
		pipeline:   pipe,
		history:    history,
		emitter:    emitter,
		clock:      clock,
		ids:        ids,
		logger:     logger,
		active:     make(map[string]*activeJob),
		baseCtx:    baseCtx,
		baseCancel: baseCancel,
	}
}

// Submit registers a new extraction job for the given source. The job starts
// immediately when a slot is free and queues otherwise; either way the
// returned Job reflects the state at admission time.
func (o *Orchestrator) Submit(ctx context.Context, sourceID, ownerID string, params map[string]any) (extraction.Job, error) {
	extractor, err := o.registry.Extractor(sourceID)
	if err != nil {
		return extraction.Job{}, err
	}

	suffix, err := o.ids.NewSuffix()
	if err != nil {
		return extraction.Job{}, fmt.Errorf("generate job id: %w", err)
	}
	now := o.clock.Now()
	job := extraction.Job{
		ID:         fmt.Sprintf("%s-%d-%s", sourceID, now.UnixMilli(), suffix),
		SourceID:   sourceID,
		OwnerID:    ownerID,
		Parameters: params,
		Status:     extraction.JobStatusPending,
		CreatedAt:  now,
	}

	if err := o.history.CreateRecord(ctx, historyFromJob(job)); err != nil {
		o.logger.Warn("history create failed", zap.String("job_id", job.ID), zap.Error(err))
	}

	o.mu.Lock()
	if len(o.active) < o.cfg.MaxConcurrentJobs {
		o.startLocked(pendingJob{job: job, extractor: extractor})
		o.mu.Unlock()
		return job, nil
	}
	o.queue.push(pendingJob{job: job, extractor: extractor})
	queued := o.queue.len()
	o.mu.Unlock()

	o.logger.Info("job queued",
		zap.String("job_id", job.ID),
		zap.String("source_id", sourceID),
		zap.Int("queue_depth", queued),
	)
	o.emitter.Emit(progress.Event{
		JobID:    job.ID,
		OwnerID:  job.OwnerID,
		SourceID: job.SourceID,
		TS:       o.clock.Now(),
		Stage:    progress.StageQueued,
		Percent:  0,
		Message:  fmt.Sprintf("queued at position %d", queued),
	})
	return job, nil
}

// startLocked admits a pending job into an execution slot. Caller holds mu.
func (o *Orchestrator) startLocked(item pendingJob) {
	jobCtx, cancel := context.WithTimeout(o.baseCtx, o.cfg.ExtractionTimeout)
	entry := &activeJob{job: item.job, extractor: item.extractor, cancel: cancel}
	entry.job.Status = extraction.JobStatusRunning
	startedAt := o.clock.Now()
	entry.job.StartedAt = &startedAt
	o.active[entry.job.ID] = entry

	o.wg.Add(1)
	go o.runJob(jobCtx, entry)
}

func (o *Orchestrator) runJob(ctx context.Context, entry *activeJob) {
	defer o.wg.Done()
	defer entry.cancel()

	job := entry.job
	o.registry.RecordStart(job.SourceID, *job.StartedAt)
	o.logger.Info("job started",
		zap.String("job_id", job.ID),
		zap.String("source_id", job.SourceID),
	)
	o.emitter.Emit(progress.Event{
		JobID:    job.ID,
		OwnerID:  job.OwnerID,
		SourceID: job.SourceID,
		TS:       *job.StartedAt,
		Stage:    progress.StageStart,
		Percent:  5,
		Message:  "extraction started",
	})

	result, err := o.runner.Execute(ctx, job, entry.extractor)

	completedAt := o.clock.Now()
	job.CompletedAt = &completedAt
	dur := completedAt.Sub(*job.StartedAt)

	switch {
	case o.wasCancelled(entry):
		// Cancellation wins even when the extractor returned a result: the
		// pipeline never runs for a cancelled job.
		job.Status = extraction.JobStatusCancelled
		job.ErrorText = "cancelled by request"
	case err != nil:
		job.Status = extraction.JobStatusFailed
		job.ErrorText = err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			job.ErrorText = fmt.Sprintf("extraction timed out after %s", o.cfg.ExtractionTimeout)
		}
	default:
		docs := o.pipeline.ProcessBatch(ctx, job, result.Documents)
		job.Status = extraction.JobStatusCompleted
		job.Result = &extraction.JobResult{
			Documents:          docs,
			TotalFound:         result.TotalFound,
			DocumentsProcessed: len(docs),
			ExtractionSeconds:  dur.Seconds(),
		}
	}

	// The terminal decision and emit happen under the same lock Cancel takes.
	// Either Cancel marked the entry first, in which case subscribers were
	// already told nothing further is coming and the job stays silent, or the
	// entry leaves the active set here and a later Cancel finds nothing.
	o.mu.Lock()
	if entry.cancelled && job.Status != extraction.JobStatusCancelled {
		job.Status = extraction.JobStatusCancelled
		job.ErrorText = "cancelled by request"
		job.Result = nil
	}
	delete(o.active, job.ID)
	if job.Status != extraction.JobStatusCancelled {
		o.emitTerminal(job, dur)
	}
	o.drainLocked()
	o.mu.Unlock()

	if job.Status == extraction.JobStatusCancelled {
		o.logger.Info("job cancelled", zap.String("job_id", job.ID))
	}
	o.registry.RecordOutcome(job.SourceID, job.Status == extraction.JobStatusCompleted)
	if err := o.history.UpdateRecord(context.WithoutCancel(ctx), historyFromJob(job)); err != nil {
		o.logger.Warn("history update failed", zap.String("job_id", job.ID), zap.Error(err))
	}
}

func (o *Orchestrator) emitTerminal(job extraction.Job, dur time.Duration) {
	evt := progress.Event{
		JobID:    job.ID,
		OwnerID:  job.OwnerID,
		SourceID: job.SourceID,
		TS:       *job.CompletedAt,
		Percent:  100,
		Dur:      dur,
	}
	switch job.Status {
	case extraction.JobStatusCompleted:
		evt.Stage = progress.StageDone
		evt.Message = "extraction completed"
		evt.DocumentsFound = job.Result.TotalFound
		evt.DocumentsProcessed = job.Result.DocumentsProcessed
		o.logger.Info("job completed",
			zap.String("job_id", job.ID),
			zap.Int("documents_processed", job.Result.DocumentsProcessed),
			zap.Duration("runtime", dur),
		)
	default:
		evt.Stage = progress.StageError
		evt.Message = "extraction failed"
		evt.Note = job.ErrorText
		o.logger.Error("job failed",
			zap.String("job_id", job.ID),
			zap.String("error", job.ErrorText),
			zap.Duration("runtime", dur),
		)
	}
	o.emitter.Emit(evt)
}

func (o *Orchestrator) wasCancelled(entry *activeJob) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return entry.cancelled
}

// Cancel stops a running job: the extractor is asked to stop cooperatively
// and the job leaves the active set at once. It returns true only when the
// job was actively executing; queued, finished, and unknown jobs are not
// cancellable.
func (o *Orchestrator) Cancel(jobID string) bool {
	o.mu.Lock()
	entry, ok := o.active[jobID]
	if !ok {
		o.mu.Unlock()
		return false
	}
	entry.cancelled = true
	delete(o.active, jobID)
	o.mu.Unlock()

	entry.extractor.CancelExtraction()
	entry.cancel()
	o.logger.Info("cancellation requested", zap.String("job_id", jobID))
	o.emitter.Emit(progress.Event{
		JobID:    entry.job.ID,
		OwnerID:  entry.job.OwnerID,
		SourceID: entry.job.SourceID,
		TS:       o.clock.Now(),
		Stage:    progress.StageCancelled,
		Percent:  100,
		Message:  "extraction cancelled",
	})
	return true
}

// GetStatus returns the current view of a job: active first, then queued,
// then the durable history record. ErrJobNotFound when no trace exists.
func (o *Orchestrator) GetStatus(ctx context.Context, jobID string) (extraction.Job, error) {
	o.mu.Lock()
	if entry, ok := o.active[jobID]; ok {
		job := entry.job
		o.mu.Unlock()
		return job, nil
	}
	if job, ok := o.queue.find(jobID); ok {
		o.mu.Unlock()
		return job, nil
	}
	o.mu.Unlock()

	record, err := o.history.GetRecord(ctx, jobID)
	if err != nil {
		if errors.Is(err, extraction.ErrJobNotFound) {
			return extraction.Job{}, extraction.ErrJobNotFound
		}
		return extraction.Job{}, fmt.Errorf("history lookup: %w", err)
	}
	return jobFromHistory(record), nil
}

// Stats snapshots the scheduler and per-source counters.
func (o *Orchestrator) Stats() extraction.SystemStats {
	o.mu.Lock()
	activeCount := len(o.active)
	queuedCount := o.queue.len()
	o.mu.Unlock()

	return extraction.SystemStats{
		Sources:        o.registry.Stats(),
		ActiveJobCount: activeCount,
		QueuedJobCount: queuedCount,
		SystemHealth:   o.registry.Health(),
	}
}

// Sources lists the registered source identifiers.
func (o *Orchestrator) Sources() []string {
	return o.registry.Sources()
}

// DrainNow admits queued jobs into any free slots immediately.
func (o *Orchestrator) DrainNow() {
	o.mu.Lock()
	o.drainLocked()
	o.mu.Unlock()
}

// drainLocked moves queued jobs into free slots. Caller holds mu.
func (o *Orchestrator) drainLocked() {
	for len(o.active) < o.cfg.MaxConcurrentJobs {
		item, ok := o.queue.pop()
		if !ok {
			return
		}
		o.startLocked(item)
	}
}

// Run drains the queue on a fixed tick until ctx ends, then cancels every
// in-flight job and waits for their goroutines to settle.
func (o *Orchestrator) Run(ctx context.Context) {
	ticker := time.NewTicker(o.cfg.QueueDrainInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			o.shutdown()
			return
		case <-ticker.C:
			o.DrainNow()
		}
	}
}

func (o *Orchestrator) shutdown() {
	o.baseCancel()
	o.wg.Wait()
	o.logger.Info("orchestrator stopped")
}

func historyFromJob(job extraction.Job) extraction.HistoryRecord {
	record := extraction.HistoryRecord{
		ID:          job.ID,
		SourceID:    job.SourceID,
		OwnerID:     job.OwnerID,
		Status:      string(job.Status),
		StartedAt:   job.StartedAt,
		CompletedAt: job.CompletedAt,
		ErrorText:   job.ErrorText,
	}
	if job.Parameters != nil {
		if data, err := json.Marshal(job.Parameters); err == nil {
			record.ParametersJSON = string(data)
		}
	}
	if job.Result != nil {
		record.DocumentsFound = job.Result.TotalFound
		record.DocumentsProcessed = job.Result.DocumentsProcessed
		record.ExecutionSeconds = job.Result.ExtractionSeconds
		previews := make([]extraction.DocumentPreview, 0, min(len(job.Result.Documents), resultPreviewLimit))
		for i, doc := range job.Result.Documents {
			if i == resultPreviewLimit {
				break
			}
			previews = append(previews, extraction.DocumentPreview{ID: doc.ID, Title: doc.Title, URL: doc.URL})
		}
		if data, err := json.Marshal(previews); err == nil {
			record.ResultPreviewJSON = string(data)
		}
	}
	return record
}

func jobFromHistory(record extraction.HistoryRecord) extraction.Job {
	job := extraction.Job{
		ID:          record.ID,
		SourceID:    record.SourceID,
		OwnerID:     record.OwnerID,
		Status:      extraction.JobStatus(record.Status),
		StartedAt:   record.StartedAt,
		CompletedAt: record.CompletedAt,
		ErrorText:   record.ErrorText,
	}
	if record.StartedAt != nil {
		job.CreatedAt = *record.StartedAt
	}
	if record.ParametersJSON != "" {
		var params map[string]any
		if err := json.Unmarshal([]byte(record.ParametersJSON), &params); err == nil {
			job.Parameters = params
		}
	}
	if job.Status == extraction.JobStatusCompleted {
		job.Result = &extraction.JobResult{
			TotalFound:         record.DocumentsFound,
			DocumentsProcessed: record.DocumentsProcessed,
			ExtractionSeconds:  record.ExecutionSeconds,
		}
	}
	return job
}
