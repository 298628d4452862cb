package services

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aeromaint/atarec/internal/engine"
	"github.com/aeromaint/atarec/internal/metrics"
	"github.com/aeromaint/atarec/internal/models"
	"github.com/aeromaint/atarec/internal/utils"
)

const defaultProgressInterval = 10 * time.Second

// Runner fans a batch of work orders out across row workers. Rows are
// independent; the registry and catalog snapshots are shared read-only, so
// the only coordination is the job channel and the result slots.
type Runner struct {
	logger        *slog.Logger
	pipeline      *engine.Pipeline
	workers       int
	progressEvery time.Duration
	latencies     *utils.LatencyTracker
}

// NewRunner constructs a batch runner with the given worker count. Progress
// is logged at most once per progressEvery while the batch runs.
func NewRunner(logger *slog.Logger, pipeline *engine.Pipeline, workers int, progressEvery time.Duration) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if workers <= 0 {
		workers = 1
	}
	if progressEvery <= 0 {
		progressEvery = defaultProgressInterval
	}
	return &Runner{
		logger:        logger,
		pipeline:      pipeline,
		workers:       workers,
		progressEvery: progressEvery,
		latencies:     utils.NewLatencyTracker(4096),
	}
}

// Run processes every work order and returns exactly one result per input,
// in input order. Row-level problems degrade signals and never abort the
// batch; only context cancellation stops a run early.
func (r *Runner) Run(ctx context.Context, orders []models.WorkOrder) ([]models.Result, RunReport, error) {
	start := time.Now()

	if !r.pipeline.RegistryAvailable() {
		r.logger.Warn("reference registry not built; citation validity degrades to unknown")
	}
	if !r.pipeline.CatalogAvailable() {
		r.logger.Warn("ata catalog not built; similarity inference disabled")
	}

	results := make([]models.Result, len(orders))

	// Identical defect/action text yields identical text signals, so they
	// are memoised across rows. Decisions are recomputed per row because the
	// entered code varies.
	var cache sync.Map
	var processed atomic.Int64
	var lastProgress atomic.Int64
	lastProgress.Store(start.UnixNano())

	g, gctx := errgroup.WithContext(ctx)
	jobs := make(chan int)

	g.Go(func() error {
		defer close(jobs)
		for i := range orders {
			select {
			case jobs <- i:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	for w := 0; w < r.workers; w++ {
		g.Go(func() error {
			for idx := range jobs {
				rowStart := time.Now()
				results[idx] = r.processRow(orders[idx], &cache)
				elapsed := time.Since(rowStart)

				r.latencies.Observe(elapsed)
				metrics.ObserveRow(elapsed, string(results[idx].Disposition))
				r.observeDegradation(results[idx])

				n := processed.Add(1)
				now := time.Now().UnixNano()
				if last := lastProgress.Load(); now-last >= int64(r.progressEvery) &&
					lastProgress.CompareAndSwap(last, now) {
					r.logger.Info("batch progress",
						slog.Int64("rows", n),
						slog.Int("total", len(orders)),
						slog.Duration("p95", r.latencies.Percentile(95)),
					)
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, RunReport{}, err
	}

	report := buildReport(results, reportContext{
		duration:          time.Since(start),
		workers:           r.workers,
		registryAvailable: r.pipeline.RegistryAvailable(),
		catalogAvailable:  r.pipeline.CatalogAvailable(),
		systemName: func(ata04 string) string {
			entry, ok := r.pipeline.CatalogInfo(ata04)
			if !ok {
				return ""
			}
			return entry.SystemName
		},
	})
	report.MeanRowLatency = r.latencies.Mean()
	return results, report, nil
}

func (r *Runner) processRow(wo models.WorkOrder, cache *sync.Map) models.Result {
	key := textKey(wo.Description, wo.Action)

	var sig engine.TextSignals
	if cached, ok := cache.Load(key); ok {
		sig = cached.(engine.TextSignals)
	} else {
		sig = r.pipeline.Analyze(wo.Description, wo.Action)
		cache.Store(key, sig)
	}

	result := r.pipeline.Resolve(wo, sig)
	if result.Derived.Present {
		metrics.ObserveSimilarity(result.Derived.Score)
	}
	return result
}

func (r *Runner) observeDegradation(res models.Result) {
	if res.EnteredATA != "" && models.NormalizeATA(res.EnteredATA) == "" {
		metrics.ObserveDegradedSignal(metrics.SignalEntered)
	}
	if !res.IsDefect {
		return
	}
	if res.Cited.Present && res.Cited.Validity == models.ValidityUnknown {
		metrics.ObserveDegradedSignal(metrics.SignalCitation)
	}
	if !res.Derived.Present {
		metrics.ObserveDegradedSignal(metrics.SignalSimilarity)
	}
}

func textKey(description, action string) string {
	h := sha1.Sum([]byte(description + "|" + action))
	return hex.EncodeToString(h[:])
}
