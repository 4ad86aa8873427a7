package classify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/weiliang-ho/dealerdocs/internal/entity"
)

// Policy selects how the scheduler drives the classifier over a batch.
type Policy string

const (
	// PolicySequential processes one file at a time with a fixed delay
	// between items that hit the network. Rate-limit safe.
	PolicySequential Policy = "sequential"
	// PolicyBounded processes fixed-size chunks concurrently with a short
	// pause between chunks. Throughput-optimized.
	PolicyBounded Policy = "bounded"
)

// ProgressFunc receives one notification per completed item. Completed is
// monotonically non-decreasing; invocation order reflects completion order.
type ProgressFunc func(entity.BatchProgress)

// ItemClassifier is the single-item contract the scheduler drives. The
// production implementation never returns errors; the scheduler still guards
// against panics in case that contract is violated upstream.
type ItemClassifier interface {
	Classify(ctx context.Context, fd entity.FileDescriptor) entity.ClassificationResult
	NeedsNetwork(fd entity.FileDescriptor) bool
}

// SchedulerConfig tunes batch pacing.
type SchedulerConfig struct {
	Policy          Policy
	SequentialDelay time.Duration
	Concurrency     int
	ChunkDelay      time.Duration
}

// Scheduler drives an ItemClassifier over a list of files under the
// configured policy. Output order always matches input order.
type Scheduler struct {
	classifier ItemClassifier
	cfg        SchedulerConfig
	logger     *slog.Logger

	inFlight atomic.Int64
}

func NewScheduler(classifier ItemClassifier, cfg SchedulerConfig, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Policy == "" {
		cfg.Policy = PolicySequential
	}
	if cfg.SequentialDelay <= 0 {
		cfg.SequentialDelay = 1500 * time.Millisecond
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.ChunkDelay <= 0 {
		cfg.ChunkDelay = 500 * time.Millisecond
	}
	return &Scheduler{classifier: classifier, cfg: cfg, logger: logger}
}

// ClassifyBatch classifies every file and returns results index-aligned with
// the input, regardless of policy or completion order. It never fails: a bad
// item degrades to an `other` result and the batch continues.
func (s *Scheduler) ClassifyBatch(ctx context.Context, files []entity.FileDescriptor, onProgress ProgressFunc) []entity.ClassificationResult {
	results := make([]entity.ClassificationResult, len(files))
	if len(files) == 0 {
		return results
	}

	s.logger.Info("batch.start",
		"policy", s.cfg.Policy, "files", len(files), "concurrency", s.cfg.Concurrency)
	start := time.Now()

	switch s.cfg.Policy {
	case PolicyBounded:
		s.runBounded(ctx, files, results, onProgress)
	default:
		s.runSequential(ctx, files, results, onProgress)
	}

	s.logger.Info("batch.done", "files", len(files), "elapsed_ms", time.Since(start).Milliseconds())
	return results
}

func (s *Scheduler) runSequential(ctx context.Context, files []entity.FileDescriptor, results []entity.ClassificationResult, onProgress ProgressFunc) {
	// Burst 1 with a full initial token: the first networked item starts
	// immediately, subsequent ones are spaced by SequentialDelay. Local
	// short-circuits never consume a token.
	limiter := rate.NewLimiter(rate.Every(s.cfg.SequentialDelay), 1)
	progress := newProgressTracker(len(files), onProgress)

	for i, fd := range files {
		if s.classifier.NeedsNetwork(fd) {
			if err := limiter.Wait(ctx); err != nil {
				s.logger.Warn("batch.throttle_interrupted", "file", fd.Name, "error", err)
			}
		}
		results[i] = s.safeClassify(ctx, fd)
		progress.completed(fd.Name, &results[i])
	}
}

func (s *Scheduler) runBounded(ctx context.Context, files []entity.FileDescriptor, results []entity.ClassificationResult, onProgress ProgressFunc) {
	progress := newProgressTracker(len(files), onProgress)
	chunkSize := s.cfg.Concurrency

	for offset := 0; offset < len(files); offset += chunkSize {
		end := offset + chunkSize
		if end > len(files) {
			end = len(files)
		}

		var g errgroup.Group
		for i := offset; i < end; i++ {
			idx := i
			fd := files[i]
			g.Go(func() error {
				cur := s.inFlight.Add(1)
				if cur > int64(s.cfg.Concurrency) {
					// Contract violation, not a user error: chunking is
					// supposed to make this impossible.
					s.logger.Error("batch.ceiling_exceeded", "in_flight", cur, "ceiling", s.cfg.Concurrency)
				}
				defer s.inFlight.Add(-1)

				results[idx] = s.safeClassify(ctx, fd)
				progress.completed(fd.Name, &results[idx])
				return nil
			})
		}
		_ = g.Wait()

		if end < len(files) {
			if !sleepCtx(ctx, s.cfg.ChunkDelay) {
				s.logger.Warn("batch.chunk_delay_interrupted")
			}
		}
	}
}

// safeClassify converts a panicking classifier into a fallback result so one
// bad file cannot abort the batch.
func (s *Scheduler) safeClassify(ctx context.Context, fd entity.FileDescriptor) (res entity.ClassificationResult) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("batch.item_panic", "file", fd.Name, "panic", r)
			res = fallback(entity.SourceNone, false, fmt.Sprintf("classifier panic: %v", r))
		}
	}()
	return s.classifier.Classify(ctx, fd)
}

// InFlight reports the number of classification calls currently running.
func (s *Scheduler) InFlight() int64 {
	return s.inFlight.Load()
}

// progressTracker serializes progress callbacks so Completed is monotonic
// even when workers finish concurrently.
type progressTracker struct {
	mu    sync.Mutex
	done  int
	total int
	fn    ProgressFunc
}

func newProgressTracker(total int, fn ProgressFunc) *progressTracker {
	return &progressTracker{total: total, fn: fn}
}

func (p *progressTracker) completed(filename string, result *entity.ClassificationResult) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done++
	if p.fn != nil {
		p.fn(entity.BatchProgress{
			Completed: p.done,
			Total:     p.total,
			Filename:  filename,
			Result:    result,
		})
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
