// Package memory holds the in-process store adapters used by tests and
// by deployments without Redis.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/myatko/domainwatch/internal/domain"
	"github.com/myatko/domainwatch/internal/repo"
	"github.com/myatko/domainwatch/internal/tzutil"
)

// DomainStore keeps domain records in a mutex-guarded map.
type DomainStore struct {
	mu      sync.RWMutex
	domains map[string]*domain.DomainRecord
}

var _ repo.DomainStore = (*DomainStore)(nil)

func NewDomainStore() *DomainStore {
	return &DomainStore{domains: make(map[string]*domain.DomainRecord)}
}

func (m *DomainStore) Add(ctx context.Context, name, group string) (bool, error) {
	if group == "" {
		group = domain.DefaultGroup
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.domains[name]; ok {
		return false, nil
	}
	m.domains[name] = &domain.DomainRecord{Domain: name, Group: group, AddedAt: tzutil.Now()}
	return true, nil
}

func (m *DomainStore) BulkAdd(ctx context.Context, names []string, group string) (*repo.BulkAddReport, error) {
	if group == "" {
		group = domain.DefaultGroup
	}
	rep := &repo.BulkAddReport{
		Added:              []string{},
		Existing:           []string{},
		ExistingSameGroup:  []string{},
		ExistingOtherGroup: []string{},
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, name := range names {
		if rec, ok := m.domains[name]; ok {
			rep.Existing = append(rep.Existing, name)
			if rec.Group == group {
				rep.ExistingSameGroup = append(rep.ExistingSameGroup, name)
			} else {
				rep.ExistingOtherGroup = append(rep.ExistingOtherGroup, name+" (in "+rec.Group+")")
			}
			continue
		}
		m.domains[name] = &domain.DomainRecord{Domain: name, Group: group, AddedAt: tzutil.Now()}
		rep.Added = append(rep.Added, name)
	}
	return rep, nil
}

func (m *DomainStore) Remove(ctx context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.domains[name]; !ok {
		return false, nil
	}
	delete(m.domains, name)
	return true, nil
}

func (m *DomainStore) Get(ctx context.Context, name string) (*domain.DomainRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.domains[name]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (m *DomainStore) List(ctx context.Context) ([]domain.DomainRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.DomainRecord, 0, len(m.domains))
	for _, rec := range m.domains {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Domain < out[j].Domain })
	return out, nil
}

func (m *DomainStore) ListByGroup(ctx context.Context, group string) ([]domain.DomainRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.DomainRecord, 0)
	for _, rec := range m.domains {
		if rec.Group == group {
			out = append(out, *rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Domain < out[j].Domain })
	return out, nil
}

func (m *DomainStore) Groups(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := map[string]struct{}{}
	for _, rec := range m.domains {
		seen[rec.Group] = struct{}{}
	}
	if len(seen) == 0 {
		return []string{domain.DefaultGroup}, nil
	}
	out := make([]string, 0, len(seen))
	for g := range seen {
		out = append(out, g)
	}
	sort.Strings(out)
	return out, nil
}

func (m *DomainStore) GroupSummary(ctx context.Context) (map[string]domain.GroupSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := map[string]domain.GroupSummary{}
	for _, rec := range m.domains {
		s := out[rec.Group]
		s.Total++
		switch rec.LastStatus {
		case domain.StatusUp:
			s.Up++
		case domain.StatusDown:
			s.Down++
		default:
			s.Unknown++
		}
		out[rec.Group] = s
	}
	return out, nil
}

func (m *DomainStore) SetGroup(ctx context.Context, name, group string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.domains[name]
	if !ok {
		return false, nil
	}
	rec.Group = group
	return true, nil
}

func (m *DomainStore) BulkUpdateStatus(ctx context.Context, ops []domain.UpdateOp) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, op := range ops {
		rec, ok := m.domains[op.Domain]
		if !ok {
			continue
		}
		checked := op.Checked
		rec.LastStatus = op.Status
		rec.LastChecked = &checked
		rec.LastResponseTime = op.ResponseTime
		rec.LastStatusCode = op.StatusCode
		rec.LastError = op.Error
		n++
	}
	return n, nil
}

func (m *DomainStore) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.domains), nil
}

type interaction struct {
	username  string
	firstName string
}

// UserStore keeps registered users and interaction breadcrumbs.
type UserStore struct {
	mu           sync.RWMutex
	users        map[int64]*domain.User
	interactions map[int64]interaction
}

var _ repo.UserStore = (*UserStore)(nil)

func NewUserStore() *UserStore {
	return &UserStore{
		users:        make(map[int64]*domain.User),
		interactions: make(map[int64]interaction),
	}
}

func (m *UserStore) Upsert(ctx context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	if cp.AddedAt.IsZero() {
		cp.AddedAt = tzutil.Now()
	}
	m.users[cp.ID] = &cp
	return nil
}

func (m *UserStore) Get(ctx context.Context, id int64) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (m *UserStore) List(ctx context.Context) ([]domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *UserStore) SetRole(ctx context.Context, id int64, role domain.Role) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return false, nil
	}
	u.Role = role
	return true, nil
}

func (m *UserStore) Remove(ctx context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return false, nil
	}
	delete(m.users, id)
	return true, nil
}

func (m *UserStore) RecordInteraction(ctx context.Context, id int64, username, firstName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.interactions[id] = interaction{
		username:  strings.ToLower(strings.TrimPrefix(username, "@")),
		firstName: firstName,
	}
	if u, ok := m.users[id]; ok {
		u.LastSeen = tzutil.Now()
		if username != "" {
			u.Username = username
		}
	}
	return nil
}

func (m *UserStore) ResolveUsername(ctx context.Context, username string) (int64, bool, error) {
	want := strings.ToLower(strings.TrimPrefix(username, "@"))
	if want == "" {
		return 0, false, nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for id, it := range m.interactions {
		if it.username == want {
			return id, true, nil
		}
	}
	return 0, false, nil
}
