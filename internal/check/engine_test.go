package check

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/myatko/domainwatch/internal/domain"
	"github.com/myatko/domainwatch/internal/probe"
	"github.com/myatko/domainwatch/internal/tzutil"
)

// fakeProber returns canned results and tracks concurrency.
type fakeProber struct {
	delay    time.Duration
	inFlight int32
	peak     int32
	calls    int32
	panicOn  string
}

func (f *fakeProber) Probe(ctx context.Context, name string) domain.ProbeResult {
	atomic.AddInt32(&f.calls, 1)
	cur := atomic.AddInt32(&f.inFlight, 1)
	for {
		p := atomic.LoadInt32(&f.peak)
		if cur <= p || atomic.CompareAndSwapInt32(&f.peak, p, cur) {
			break
		}
	}
	defer atomic.AddInt32(&f.inFlight, -1)

	if name == f.panicOn {
		panic("prober exploded on " + name)
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return domain.ProbeResult{Domain: name, Status: domain.StatusUp, Timestamp: tzutil.Now()}
}

func fakeEngine(t *testing.T, f *fakeProber, maxConcurrent int) *Engine {
	t.Helper()
	e := New(zap.NewNop(), maxConcurrent)
	e.NewProber = func() (probe.Checker, func()) { return f, func() {} }
	return e
}

func names(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("host-%03d.example", i)
	}
	return out
}

func TestCheckMany_Totality(t *testing.T) {
	for _, n := range []int{1, 7, 50, 51, 120} {
		f := &fakeProber{}
		e := fakeEngine(t, f, 20)
		e.BatchPause = 0

		in := names(n)
		results := e.CheckMany(context.Background(), in)
		if len(results) != n {
			t.Fatalf("n=%d: got %d results", n, len(results))
		}
		got := make([]string, 0, n)
		for _, r := range results {
			got = append(got, r.Domain)
		}
		sort.Strings(got)
		want := append([]string(nil), in...)
		sort.Strings(want)
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("n=%d: result set mismatch at %d: %q vs %q", n, i, got[i], want[i])
			}
		}
	}
}

func TestCheckMany_EmptyInput(t *testing.T) {
	sessions := 0
	e := New(zap.NewNop(), 10)
	e.NewProber = func() (probe.Checker, func()) {
		sessions++
		return &fakeProber{}, func() {}
	}

	results := e.CheckMany(context.Background(), nil)
	if results == nil || len(results) != 0 {
		t.Fatalf("want empty slice, got %#v", results)
	}
	if sessions != 0 {
		t.Fatalf("empty input must not build a probe session")
	}
}

func TestCheckMany_ConcurrencyCeiling(t *testing.T) {
	f := &fakeProber{delay: 20 * time.Millisecond}
	e := fakeEngine(t, f, 5)
	e.BatchPause = 0

	e.CheckMany(context.Background(), names(30))
	if peak := atomic.LoadInt32(&f.peak); peak > 5 {
		t.Fatalf("in-flight peak %d exceeds budget 5", peak)
	}
	if calls := atomic.LoadInt32(&f.calls); calls != 30 {
		t.Fatalf("want 30 probes, got %d", calls)
	}
}

func TestCheckMany_BatchBoundary(t *testing.T) {
	const pause = 200 * time.Millisecond

	// 50 domains: one batch, no pause.
	f := &fakeProber{}
	e := fakeEngine(t, f, 50)
	e.BatchPause = pause
	start := time.Now()
	e.CheckMany(context.Background(), names(50))
	if el := time.Since(start); el >= pause {
		t.Fatalf("single batch must not pause, took %s", el)
	}

	// 51 domains: two batches (50 + 1), one pause in between.
	f = &fakeProber{}
	e = fakeEngine(t, f, 50)
	e.BatchPause = pause
	start = time.Now()
	results := e.CheckMany(context.Background(), names(51))
	if el := time.Since(start); el < pause {
		t.Fatalf("two batches must include one pause, took %s", el)
	}
	if len(results) != 51 {
		t.Fatalf("got %d results", len(results))
	}
}

func TestCheckMany_PanicBecomesDownResult(t *testing.T) {
	f := &fakeProber{panicOn: "host-003.example"}
	e := fakeEngine(t, f, 10)
	e.BatchPause = 0

	results := e.CheckMany(context.Background(), names(5))
	if len(results) != 5 {
		t.Fatalf("a panicking probe must not drop results, got %d", len(results))
	}
	var bad *domain.ProbeResult
	for i := range results {
		if results[i].Domain == "host-003.example" {
			bad = &results[i]
		}
	}
	if bad == nil {
		t.Fatalf("panicked domain missing from results")
	}
	if bad.Status != domain.StatusDown || bad.Error == "" {
		t.Fatalf("want down with message, got %+v", bad)
	}
	if bad.StatusCode != nil || bad.ResponseTime != nil {
		t.Fatalf("converted panic must carry no code or latency")
	}
}

// End-to-end classification through the real prober against local servers.
func TestCheckMany_Classification(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
	}))
	defer up.Close()
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", 500)
	}))
	defer down.Close()
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer slow.Close()

	e := New(zap.NewNop(), 10)
	e.BatchPause = 0
	e.NewProber = func() (probe.Checker, func()) {
		tr := probe.NewTransport()
		p := &probe.HTTPProber{Client: &http.Client{Transport: tr, Timeout: 100 * time.Millisecond}}
		return p, tr.CloseIdleConnections
	}

	results := e.CheckMany(context.Background(), []string{up.URL, down.URL, slow.URL})
	byDomain := map[string]domain.ProbeResult{}
	for _, r := range results {
		byDomain[r.Domain] = r
	}

	s := Summarize(results)
	if s.Up != 1 || s.Down != 2 {
		t.Fatalf("want 1 up / 2 down, got %+v", s)
	}
	if r := byDomain[down.URL]; r.Error != "HTTP 500" {
		t.Fatalf("want HTTP 500, got %q", r.Error)
	}
	if r := byDomain[slow.URL]; r.Error != "Connection timeout" {
		t.Fatalf("want Connection timeout, got %q", r.Error)
	}
	if r := byDomain[up.URL]; r.Error != "" || *r.StatusCode != 200 {
		t.Fatalf("want clean 200, got %+v", r)
	}
}

func TestCheckByGroup(t *testing.T) {
	f := &fakeProber{}
	e := fakeEngine(t, f, 10)
	e.BatchPause = 0

	out := e.CheckByGroup(context.Background(), map[string][]string{
		"A": {},
		"B": {"x.example"},
	})
	if len(out) != 2 {
		t.Fatalf("want both groups present, got %v", out)
	}
	if got := out["A"]; got == nil || len(got) != 0 {
		t.Fatalf("empty group maps to empty result list, got %#v", got)
	}
	if len(out["B"]) != 1 || out["B"][0].Domain != "x.example" {
		t.Fatalf("group B: got %#v", out["B"])
	}
	if calls := atomic.LoadInt32(&f.calls); calls != 1 {
		t.Fatalf("empty group must not probe, got %d calls", calls)
	}
}
