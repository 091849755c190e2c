package scheduler

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/myatko/domainwatch/internal/domain"
	"github.com/myatko/domainwatch/internal/repo/memory"
	"github.com/myatko/domainwatch/internal/tzutil"
)

// scriptedRunner marks configured domains DOWN, the rest UP.
type scriptedRunner struct {
	down map[string]bool
}

func (s *scriptedRunner) CheckMany(ctx context.Context, names []string) []domain.ProbeResult {
	out := make([]domain.ProbeResult, 0, len(names))
	for _, n := range names {
		r := domain.ProbeResult{Domain: n, Status: domain.StatusUp, Timestamp: tzutil.Now()}
		if s.down[n] {
			r.Status = domain.StatusDown
			r.Error = "HTTP 500"
		}
		out = append(out, r)
	}
	return out
}

type captureNotifier struct {
	mu   sync.Mutex
	sent []string
}

func (c *captureNotifier) Send(ctx context.Context, title, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, text)
	return nil
}

func seedStore(t *testing.T, statuses map[string]domain.Status) *memory.DomainStore {
	t.Helper()
	store := memory.NewDomainStore()
	ctx := context.Background()
	ops := []domain.UpdateOp{}
	for name, st := range statuses {
		if _, err := store.Add(ctx, name, ""); err != nil {
			t.Fatal(err)
		}
		if st != "" {
			ops = append(ops, domain.UpdateOp{Domain: name, Status: st, Checked: time.Now()})
		}
	}
	if _, err := store.BulkUpdateStatus(ctx, ops); err != nil {
		t.Fatal(err)
	}
	return store
}

func TestRunOnce_NotifiesOnlyOnUpToDown(t *testing.T) {
	store := seedStore(t, map[string]domain.Status{
		"was-up.example":   domain.StatusUp,   // goes down -> alert
		"was-down.example": domain.StatusDown, // stays down -> silent
		"recovers.example": domain.StatusDown, // comes back -> silent
		"fresh.example":    "",                // first check, down -> silent
		"healthy.example":  domain.StatusUp,   // stays up -> silent
		"fresh-up.example": "",                // first check, up -> silent
	})
	runner := &scriptedRunner{down: map[string]bool{
		"was-up.example":   true,
		"was-down.example": true,
		"fresh.example":    true,
	}}
	n := &captureNotifier{}

	w := New(zap.NewNop(), store, runner, n)
	w.RunOnce(context.Background())

	if len(n.sent) != 1 {
		t.Fatalf("want exactly one alert, got %d: %v", len(n.sent), n.sent)
	}
	if want := "was-up.example"; !strings.Contains(n.sent[0], want) {
		t.Fatalf("alert should name %s:\n%s", want, n.sent[0])
	}

	// Statuses were written back.
	rec, _ := store.Get(context.Background(), "recovers.example")
	if rec.LastStatus != domain.StatusUp {
		t.Fatalf("recovered domain persisted as %s", rec.LastStatus)
	}
	rec, _ = store.Get(context.Background(), "was-up.example")
	if rec.LastStatus != domain.StatusDown || rec.LastError != "HTTP 500" {
		t.Fatalf("down domain persisted as %+v", rec)
	}
}

func TestRunOnce_SecondPassStaysSilent(t *testing.T) {
	// After the first pass persisted DOWN, a repeat DOWN must not re-alert.
	store := seedStore(t, map[string]domain.Status{"flaky.example": domain.StatusUp})
	runner := &scriptedRunner{down: map[string]bool{"flaky.example": true}}
	n := &captureNotifier{}
	w := New(zap.NewNop(), store, runner, n)

	w.RunOnce(context.Background())
	w.RunOnce(context.Background())
	if len(n.sent) != 1 {
		t.Fatalf("repeat DOWN must not re-alert, got %d alerts", len(n.sent))
	}
}

func TestRunOnce_EmptyStoreIsNoop(t *testing.T) {
	store := memory.NewDomainStore()
	runner := &scriptedRunner{}
	n := &captureNotifier{}
	w := New(zap.NewNop(), store, runner, n)
	w.RunOnce(context.Background()) // must not panic or alert
	if len(n.sent) != 0 {
		t.Fatalf("no domains, no alerts")
	}
}

func TestStartStop(t *testing.T) {
	store := memory.NewDomainStore()
	w := New(zap.NewNop(), store, &scriptedRunner{}, &captureNotifier{})
	w.Interval = time.Minute
	w.InitialDelay = time.Hour // keep the kick from firing during the test

	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	w.Stop()
}
