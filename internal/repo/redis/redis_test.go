package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/myatko/domainwatch/internal/domain"
)

func setup(t *testing.T) *goredis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(mr.Close)
	return goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
}

func TestDomainStore_AddGetRemove(t *testing.T) {
	s := NewDomainStore(setup(t))
	ctx := context.Background()

	added, err := s.Add(ctx, "a.example", "Prod")
	if err != nil || !added {
		t.Fatalf("add: %v %v", added, err)
	}
	if added, _ := s.Add(ctx, "a.example", "Prod"); added {
		t.Fatalf("duplicate add must report false")
	}

	rec, err := s.Get(ctx, "a.example")
	if err != nil || rec == nil {
		t.Fatalf("get: %+v %v", rec, err)
	}
	if rec.Group != "Prod" || rec.AddedAt.IsZero() {
		t.Fatalf("record: %+v", rec)
	}
	if rec, _ := s.Get(ctx, "nope.example"); rec != nil {
		t.Fatalf("absent must be nil, nil")
	}

	if ok, _ := s.Remove(ctx, "a.example"); !ok {
		t.Fatalf("remove")
	}
	if ok, _ := s.Remove(ctx, "a.example"); ok {
		t.Fatalf("second remove must report false")
	}
	if n, _ := s.Count(ctx); n != 0 {
		t.Fatalf("count after remove: %d", n)
	}
}

func TestDomainStore_ListSorted(t *testing.T) {
	s := NewDomainStore(setup(t))
	ctx := context.Background()
	for _, name := range []string{"c.example", "a.example", "b.example"} {
		_, _ = s.Add(ctx, name, "")
	}
	list, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 3 || list[0].Domain != "a.example" || list[2].Domain != "c.example" {
		t.Fatalf("list: %+v", list)
	}
}

func TestDomainStore_BulkAddReport(t *testing.T) {
	s := NewDomainStore(setup(t))
	ctx := context.Background()
	_, _ = s.Add(ctx, "same.example", "Prod")
	_, _ = s.Add(ctx, "other.example", "Staging")

	rep, err := s.BulkAdd(ctx, []string{"new.example", "same.example", "other.example"}, "Prod")
	if err != nil {
		t.Fatal(err)
	}
	if len(rep.Added) != 1 || rep.Added[0] != "new.example" {
		t.Fatalf("added: %v", rep.Added)
	}
	if len(rep.ExistingSameGroup) != 1 || len(rep.ExistingOtherGroup) != 1 {
		t.Fatalf("report: %+v", rep)
	}
	if rep.ExistingOtherGroup[0] != "other.example (in Staging)" {
		t.Fatalf("other group note: %v", rep.ExistingOtherGroup)
	}
}

func TestDomainStore_BulkUpdateStatus(t *testing.T) {
	s := NewDomainStore(setup(t))
	ctx := context.Background()
	_, _ = s.Add(ctx, "a.example", "Prod")
	_, _ = s.Add(ctx, "b.example", "Prod")

	code := 503
	rt := 1.25
	n, err := s.BulkUpdateStatus(ctx, []domain.UpdateOp{
		{Domain: "a.example", Status: domain.StatusDown, Checked: time.Now(), StatusCode: &code, Error: "HTTP 503"},
		{Domain: "b.example", Status: domain.StatusUp, Checked: time.Now(), ResponseTime: &rt},
		{Domain: "gone.example", Status: domain.StatusUp, Checked: time.Now()},
	})
	if err != nil || n != 2 {
		t.Fatalf("want 2 touched, got %d err=%v", n, err)
	}

	rec, _ := s.Get(ctx, "a.example")
	if rec.LastStatus != domain.StatusDown || rec.LastError != "HTTP 503" {
		t.Fatalf("a.example: %+v", rec)
	}
	if rec.LastChecked == nil || rec.LastStatusCode == nil || *rec.LastStatusCode != 503 {
		t.Fatalf("a.example fields: %+v", rec)
	}
	rec, _ = s.Get(ctx, "b.example")
	if rec.LastStatus != domain.StatusUp || rec.LastResponseTime == nil || *rec.LastResponseTime != 1.25 {
		t.Fatalf("b.example: %+v", rec)
	}
}

func TestDomainStore_GroupOps(t *testing.T) {
	s := NewDomainStore(setup(t))
	ctx := context.Background()
	_, _ = s.Add(ctx, "a.example", "Prod")
	_, _ = s.Add(ctx, "b.example", "Staging")
	_, _ = s.BulkUpdateStatus(ctx, []domain.UpdateOp{
		{Domain: "a.example", Status: domain.StatusUp, Checked: time.Now()},
	})

	groups, _ := s.Groups(ctx)
	if len(groups) != 2 || groups[0] != "Prod" {
		t.Fatalf("groups: %v", groups)
	}

	sum, _ := s.GroupSummary(ctx)
	if sum["Prod"].Up != 1 || sum["Staging"].Unknown != 1 {
		t.Fatalf("summary: %+v", sum)
	}

	if ok, _ := s.SetGroup(ctx, "b.example", "Prod"); !ok {
		t.Fatalf("set group")
	}
	prod, _ := s.ListByGroup(ctx, "Prod")
	if len(prod) != 2 {
		t.Fatalf("prod members: %+v", prod)
	}
	if ok, _ := s.SetGroup(ctx, "ghost.example", "Prod"); ok {
		t.Fatalf("set group on absent domain must report false")
	}
}

func TestUserStore(t *testing.T) {
	s := NewUserStore(setup(t))
	ctx := context.Background()

	_ = s.Upsert(ctx, &domain.User{ID: 7, Username: "bob", Role: domain.RoleGuest, Groups: []string{"Prod"}})
	u, err := s.Get(ctx, 7)
	if err != nil || u == nil || u.Role != domain.RoleGuest {
		t.Fatalf("get: %+v %v", u, err)
	}
	if len(u.Groups) != 1 || u.Groups[0] != "Prod" {
		t.Fatalf("groups survive round trip: %+v", u)
	}

	if ok, _ := s.SetRole(ctx, 7, domain.RoleUser); !ok {
		t.Fatalf("set role")
	}
	u, _ = s.Get(ctx, 7)
	if u.Role != domain.RoleUser {
		t.Fatalf("role: %+v", u)
	}

	_ = s.RecordInteraction(ctx, 7, "@Bob", "Bob")
	id, ok, _ := s.ResolveUsername(ctx, "bob")
	if !ok || id != 7 {
		t.Fatalf("resolve: %d %v", id, ok)
	}

	list, _ := s.List(ctx)
	if len(list) != 1 {
		t.Fatalf("list: %+v", list)
	}
	if ok, _ := s.Remove(ctx, 7); !ok {
		t.Fatalf("remove")
	}
	if u, _ := s.Get(ctx, 7); u != nil {
		t.Fatalf("removed user must be nil")
	}
}

func TestDomainStore_BulkUpdateStatusSurfacesBackendErrors(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(mr.Close)
	s := NewDomainStore(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	ctx := context.Background()

	if _, err := s.Add(ctx, "a.example", ""); err != nil {
		t.Fatal(err)
	}

	mr.SetError("backend unavailable")
	ops := []domain.UpdateOp{{Domain: "a.example", Status: domain.StatusUp, Checked: time.Now()}}
	if _, err := s.BulkUpdateStatus(ctx, ops); err == nil {
		t.Fatalf("backend failure must surface an error")
	}
}
