// Package check is the concurrent domain-checking engine: it fans a
// domain list out over a bounded number of in-flight probes, in fixed
// batches with a pacing delay in between, and folds every failure mode
// into a ProbeResult so one bad domain can never abort a run.
package check

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/myatko/domainwatch/internal/domain"
	"github.com/myatko/domainwatch/internal/probe"
	"github.com/myatko/domainwatch/internal/tzutil"
)

const (
	// DefaultMaxConcurrent bounds in-flight probes across a whole run.
	DefaultMaxConcurrent = 50
	// batchSize is the join-barrier granularity: the engine waits for a
	// full batch before dispatching the next one.
	defaultBatchSize = 50
	// defaultBatchPause is the backpressure valve between batches, so a
	// 150+ domain run is not a single burst.
	defaultBatchPause = 100 * time.Millisecond
)

// Engine runs bulk checks. A fresh prober (and connection pool) is built
// per CheckMany call and torn down at the end, so concurrent runs never
// starve each other's connection budgets.
type Engine struct {
	Log           *zap.Logger
	MaxConcurrent int
	BatchSize     int
	BatchPause    time.Duration

	// NewProber overrides the probe session factory; tests use it to
	// inject fakes or short-timeout clients. The returned func tears the
	// session down.
	NewProber func() (probe.Checker, func())
}

func New(log *zap.Logger, maxConcurrent int) *Engine {
	if maxConcurrent < 1 {
		maxConcurrent = DefaultMaxConcurrent
	}
	return &Engine{
		Log:           log,
		MaxConcurrent: maxConcurrent,
		BatchSize:     defaultBatchSize,
		BatchPause:    defaultBatchPause,
	}
}

func (e *Engine) session() (probe.Checker, func()) {
	if e.NewProber != nil {
		return e.NewProber()
	}
	tr := probe.NewTransport()
	return probe.New(tr), tr.CloseIdleConnections
}

func (e *Engine) batchSize() int {
	if e.BatchSize > 0 {
		return e.BatchSize
	}
	return defaultBatchSize
}

// CheckMany probes every domain in names and returns exactly one result
// per input. Ordering is relaxed: batches are sequential, but within a
// batch results land in completion order — consumers key off
// ProbeResult.Domain, never position. Empty input returns an empty slice
// without building a connection pool.
func (e *Engine) CheckMany(ctx context.Context, names []string) []domain.ProbeResult {
	if len(names) == 0 {
		return []domain.ProbeResult{}
	}

	prober, done := e.session()
	defer done()

	size := e.batchSize()
	totalBatches := (len(names) + size - 1) / size

	sem := make(chan struct{}, e.MaxConcurrent)
	results := make([]domain.ProbeResult, 0, len(names))
	var mu sync.Mutex

	for start := 0; start < len(names); start += size {
		end := start + size
		if end > len(names) {
			end = len(names)
		}
		batch := names[start:end]
		e.Log.Info("checking batch",
			zap.Int("batch", start/size+1),
			zap.Int("batches", totalBatches),
			zap.Int("domains", len(batch)),
		)

		var wg sync.WaitGroup
		for _, name := range batch {
			sem <- struct{}{}
			wg.Add(1)
			go func(name string) {
				defer func() { <-sem }()
				defer wg.Done()

				res := e.runProbe(ctx, prober, name)
				mu.Lock()
				results = append(results, res)
				mu.Unlock()
			}(name)
		}
		wg.Wait()

		// Pacing delay, skipped after the final batch. Cancellation just
		// skips the pause; probes in later batches fail fast on their own.
		if end < len(names) {
			select {
			case <-ctx.Done():
			case <-time.After(e.BatchPause):
			}
		}
	}
	return results
}

// runProbe shields the batch from a panicking prober: the panic becomes
// one DOWN result instead of taking down the run.
func (e *Engine) runProbe(ctx context.Context, p probe.Checker, name string) (res domain.ProbeResult) {
	defer func() {
		if r := recover(); r != nil {
			e.Log.Warn("probe panicked", zap.String("domain", name), zap.Any("panic", r))
			res = domain.ProbeResult{
				Domain:    name,
				Status:    domain.StatusDown,
				Timestamp: tzutil.Now(),
				Error:     fmt.Sprint(r),
			}
		}
	}()
	return p.Probe(ctx, name)
}

// CheckByGroup runs CheckMany once per named group, sequentially, and
// maps each group to its results. Empty groups map to an empty slice
// without touching the network. Sequential groups keep the aggregate
// in-flight connection count at the single MaxConcurrent budget.
func (e *Engine) CheckByGroup(ctx context.Context, byGroup map[string][]string) map[string][]domain.ProbeResult {
	out := make(map[string][]domain.ProbeResult, len(byGroup))
	for group, names := range byGroup {
		if len(names) == 0 {
			out[group] = []domain.ProbeResult{}
			continue
		}
		e.Log.Info("checking group", zap.String("group", group), zap.Int("domains", len(names)))
		out[group] = e.CheckMany(ctx, names)
	}
	return out
}
