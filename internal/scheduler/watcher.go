// Package scheduler drives the periodic all-domain check: every
// interval it lists monitored domains, runs the checking engine,
// alerts on UP→DOWN transitions and writes the new statuses back.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/myatko/domainwatch/internal/check"
	"github.com/myatko/domainwatch/internal/domain"
	"github.com/myatko/domainwatch/internal/notify"
	"github.com/myatko/domainwatch/internal/repo"
)

// Runner is the slice of the checking engine the watcher needs.
// *check.Engine satisfies it.
type Runner interface {
	CheckMany(ctx context.Context, names []string) []domain.ProbeResult
}

type Watcher struct {
	Log      *zap.Logger
	Domains  repo.DomainStore
	Engine   Runner
	Notifier notify.Notifier

	Interval     time.Duration // default 5m
	InitialDelay time.Duration // default 30s after process start

	mu   sync.Mutex
	cron *cron.Cron
	kick *time.Timer
}

func New(log *zap.Logger, domains repo.DomainStore, engine Runner, notifier notify.Notifier) *Watcher {
	return &Watcher{
		Log:          log,
		Domains:      domains,
		Engine:       engine,
		Notifier:     notifier,
		Interval:     5 * time.Minute,
		InitialDelay: 30 * time.Second,
	}
}

// Start schedules the repeating check and the one-shot initial kick.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	c := cron.New()
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", w.Interval), func() {
		w.RunOnce(ctx)
	}); err != nil {
		return err
	}
	c.Start()
	w.cron = c
	w.kick = time.AfterFunc(w.InitialDelay, func() { w.RunOnce(ctx) })

	w.Log.Info("watcher started",
		zap.Duration("interval", w.Interval),
		zap.Duration("initial_delay", w.InitialDelay),
	)
	return nil
}

// Stop cancels the schedule and waits for a running job to finish.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.kick != nil {
		w.kick.Stop()
	}
	if w.cron != nil {
		<-w.cron.Stop().Done()
	}
	w.Log.Info("watcher stopped")
}

// RunOnce performs one scheduled pass. Previous statuses are snapshotted
// from the listing before the bulk write, so transition detection never
// compares a result against itself.
func (w *Watcher) RunOnce(ctx context.Context) {
	recs, err := w.Domains.List(ctx)
	if err != nil {
		w.Log.Error("scheduled check: listing domains failed", zap.Error(err))
		return
	}
	if len(recs) == 0 {
		return
	}

	names := make([]string, 0, len(recs))
	previous := make(map[string]domain.Status, len(recs))
	for _, rec := range recs {
		names = append(names, rec.Domain)
		previous[rec.Domain] = rec.LastStatus
	}

	w.Log.Info("scheduled check starting", zap.Int("domains", len(names)))
	results := w.Engine.CheckMany(ctx, names)

	notified := 0
	for _, res := range results {
		if !check.ShouldNotify(previous[res.Domain], res) {
			continue
		}
		title, text := notify.DownAlert(res)
		if err := w.Notifier.Send(ctx, title, text); err != nil {
			w.Log.Error("down alert delivery failed",
				zap.String("domain", res.Domain), zap.Error(err))
		}
		notified++
	}

	updated, err := w.Domains.BulkUpdateStatus(ctx, check.ToBulkUpdate(results))
	if err != nil {
		w.Log.Error("bulk status update failed", zap.Error(err))
	}

	s := check.Summarize(results)
	w.Log.Info("scheduled check finished",
		zap.Int("checked", s.Total),
		zap.Int("up", s.Up),
		zap.Int("down", s.Down),
		zap.Int("notified", notified),
		zap.Int("updated", updated),
	)
}
