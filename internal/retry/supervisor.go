// Package retry wraps a single extraction invocation with bounded retries and
// linear backoff. The whole extraction call is retried, not individual
// documents within it: a partially-successful attempt starts over.
package retry

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lexharvest/docstream/internal/extraction"
	"github.com/lexharvest/docstream/internal/progress"
)

// Sleeper waits for the given duration or until the context ends. Injectable
// so tests can assert backoff without wall-clock waits.
type Sleeper func(ctx context.Context, d time.Duration) error

// Config controls the Supervisor.
type Config struct {
	// MaxAttempts bounds the total number of extraction calls (default 3).
	MaxAttempts int
	// BaseDelay is the backoff unit; the wait before attempt n+1 is
	// n × BaseDelay (default 2s: 2s, 4s, 6s, …).
	BaseDelay time.Duration
	// Sleep defaults to a context-aware time.Sleep.
	Sleep Sleeper
}

// Supervisor executes extractions with retry and progress reporting.
type Supervisor struct {
	cfg     Config
	emitter progress.Emitter
	clock   extraction.Clock
	logger  *zap.Logger
}

// New constructs a Supervisor.
func New(cfg Config, emitter progress.Emitter, clock extraction.Clock, logger *zap.Logger) *Supervisor {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 2 * time.Second
	}
	if cfg.Sleep == nil {
		cfg.Sleep = sleepCtx
	}
	if emitter == nil {
		emitter = progress.NopEmitter{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Supervisor{cfg: cfg, emitter: emitter, clock: clock, logger: logger}
}

// Execute runs the extractor until one attempt succeeds or the attempt budget
// is exhausted, in which case the last error is returned. A context
// cancellation or deadline ends the sequence immediately.
func (s *Supervisor) Execute(
	ctx context.Context,
	job extraction.Job,
	extractor extraction.Extractor,
) (extraction.ExtractionResult, error) {
	var lastErr error
	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			wait := time.Duration(attempt-1) * s.cfg.BaseDelay
			s.logger.Warn("extraction attempt failed, backing off",
				zap.String("job_id", job.ID),
				zap.Int("attempt", attempt-1),
				zap.Duration("wait", wait),
				zap.Error(lastErr),
			)
			s.emitter.Emit(progress.Event{
				JobID:    job.ID,
				OwnerID:  job.OwnerID,
				SourceID: job.SourceID,
				TS:       s.clock.Now(),
				Stage:    progress.StageRetry,
				Percent:  10,
				Message:  fmt.Sprintf("retrying extraction (attempt %d of %d)", attempt, s.cfg.MaxAttempts),
				Note:     lastErr.Error(),
			})
			if err := s.cfg.Sleep(ctx, wait); err != nil {
				return extraction.ExtractionResult{}, err
			}
		}

		result, err := extractor.ExecuteExtraction(ctx, job.ID, job.Parameters)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return extraction.ExtractionResult{}, fmt.Errorf("extraction aborted: %w", ctx.Err())
		}
	}
	return extraction.ExtractionResult{}, fmt.Errorf("extraction failed after %d attempts: %w", s.cfg.MaxAttempts, lastErr)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("backoff wait: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}
