// Package redis adapts the repo ports onto Redis: records are JSON
// values behind set indexes, bulk writes go through a pipeline.
package redis

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/myatko/domainwatch/internal/domain"
	"github.com/myatko/domainwatch/internal/repo"
	"github.com/myatko/domainwatch/internal/tzutil"
)

const (
	domainsKey = "domains" // set of monitored names
	usersKey   = "users"   // set of user IDs
)

func domainKey(name string) string   { return "domain:" + name }
func userKey(id int64) string        { return "user:" + strconv.FormatInt(id, 10) }
func seenKey(id int64) string        { return "seen:" + strconv.FormatInt(id, 10) }
func usernameKey(name string) string { return "uname:" + name }

// NewClient dials addr with the default DB.
func NewClient(addr string) *goredis.Client {
	return goredis.NewClient(&goredis.Options{Addr: addr})
}

// DomainStore implements repo.DomainStore on a Redis client.
type DomainStore struct {
	Client *goredis.Client
}

var _ repo.DomainStore = (*DomainStore)(nil)

func NewDomainStore(client *goredis.Client) *DomainStore {
	return &DomainStore{Client: client}
}

func (s *DomainStore) putRecord(ctx context.Context, rec *domain.DomainRecord) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.Client.Set(ctx, domainKey(rec.Domain), b, 0).Err()
}

func (s *DomainStore) Add(ctx context.Context, name, group string) (bool, error) {
	if group == "" {
		group = domain.DefaultGroup
	}
	added, err := s.Client.SAdd(ctx, domainsKey, name).Result()
	if err != nil {
		return false, err
	}
	if added == 0 {
		return false, nil
	}
	rec := &domain.DomainRecord{Domain: name, Group: group, AddedAt: tzutil.Now()}
	return true, s.putRecord(ctx, rec)
}

func (s *DomainStore) BulkAdd(ctx context.Context, names []string, group string) (*repo.BulkAddReport, error) {
	if group == "" {
		group = domain.DefaultGroup
	}
	rep := &repo.BulkAddReport{
		Added:              []string{},
		Existing:           []string{},
		ExistingSameGroup:  []string{},
		ExistingOtherGroup: []string{},
	}
	for _, name := range names {
		rec, err := s.Get(ctx, name)
		if err != nil {
			return nil, err
		}
		if rec != nil {
			rep.Existing = append(rep.Existing, name)
			if rec.Group == group {
				rep.ExistingSameGroup = append(rep.ExistingSameGroup, name)
			} else {
				rep.ExistingOtherGroup = append(rep.ExistingOtherGroup, name+" (in "+rec.Group+")")
			}
			continue
		}
		if _, err := s.Add(ctx, name, group); err != nil {
			return nil, err
		}
		rep.Added = append(rep.Added, name)
	}
	return rep, nil
}

func (s *DomainStore) Remove(ctx context.Context, name string) (bool, error) {
	removed, err := s.Client.SRem(ctx, domainsKey, name).Result()
	if err != nil {
		return false, err
	}
	if removed == 0 {
		return false, nil
	}
	return true, s.Client.Del(ctx, domainKey(name)).Err()
}

func (s *DomainStore) Get(ctx context.Context, name string) (*domain.DomainRecord, error) {
	val, err := s.Client.Get(ctx, domainKey(name)).Result()
	if err == goredis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rec domain.DomainRecord
	if err := json.Unmarshal([]byte(val), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *DomainStore) List(ctx context.Context) ([]domain.DomainRecord, error) {
	names, err := s.Client.SMembers(ctx, domainsKey).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	out := make([]domain.DomainRecord, 0, len(names))
	if len(names) == 0 {
		return out, nil
	}
	keys := make([]string, len(names))
	for i, n := range names {
		keys[i] = domainKey(n)
	}
	vals, err := s.Client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	for _, v := range vals {
		str, ok := v.(string)
		if !ok {
			continue // index entry without a record; skip
		}
		var rec domain.DomainRecord
		if err := json.Unmarshal([]byte(str), &rec); err == nil {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *DomainStore) ListByGroup(ctx context.Context, group string) ([]domain.DomainRecord, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.DomainRecord, 0)
	for _, rec := range all {
		if rec.Group == group {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *DomainStore) Groups(ctx context.Context) ([]string, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	seen := map[string]struct{}{}
	for _, rec := range all {
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

func (s *DomainStore) GroupSummary(ctx context.Context) (map[string]domain.GroupSummary, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	out := map[string]domain.GroupSummary{}
	for _, rec := range all {
		sum := out[rec.Group]
		sum.Total++
		switch rec.LastStatus {
		case domain.StatusUp:
			sum.Up++
		case domain.StatusDown:
			sum.Down++
		default:
			sum.Unknown++
		}
		out[rec.Group] = sum
	}
	return out, nil
}

func (s *DomainStore) SetGroup(ctx context.Context, name, group string) (bool, error) {
	rec, err := s.Get(ctx, name)
	if err != nil || rec == nil {
		return false, err
	}
	rec.Group = group
	return true, s.putRecord(ctx, rec)
}

func (s *DomainStore) BulkUpdateStatus(ctx context.Context, ops []domain.UpdateOp) (int, error) {
	if len(ops) == 0 {
		return 0, nil
	}
	pipe := s.Client.Pipeline()
	n := 0
	for _, op := range ops {
		rec, err := s.Get(ctx, op.Domain)
		if err != nil {
			return n, err
		}
		if rec == nil {
			continue // removed mid-run; nothing to update
		}
		checked := op.Checked
		rec.LastStatus = op.Status
		rec.LastChecked = &checked
		rec.LastResponseTime = op.ResponseTime
		rec.LastStatusCode = op.StatusCode
		rec.LastError = op.Error
		b, err := json.Marshal(rec)
		if err != nil {
			return n, err
		}
		pipe.Set(ctx, domainKey(op.Domain), b, 0)
		n++
	}
	if _, err := pipe.Exec(ctx); err != nil {
		// n sets were queued; some may have landed before the failure.
		return n, err
	}
	return n, nil
}

func (s *DomainStore) Count(ctx context.Context) (int, error) {
	n, err := s.Client.SCard(ctx, domainsKey).Result()
	return int(n), err
}

// UserStore implements repo.UserStore on a Redis client.
type UserStore struct {
	Client *goredis.Client
}

var _ repo.UserStore = (*UserStore)(nil)

func NewUserStore(client *goredis.Client) *UserStore {
	return &UserStore{Client: client}
}

func (s *UserStore) Upsert(ctx context.Context, u *domain.User) error {
	cp := *u
	if cp.AddedAt.IsZero() {
		cp.AddedAt = tzutil.Now()
	}
	b, err := json.Marshal(&cp)
	if err != nil {
		return err
	}
	pipe := s.Client.Pipeline()
	pipe.SAdd(ctx, usersKey, cp.ID)
	pipe.Set(ctx, userKey(cp.ID), b, 0)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *UserStore) Get(ctx context.Context, id int64) (*domain.User, error) {
	val, err := s.Client.Get(ctx, userKey(id)).Result()
	if err == goredis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var u domain.User
	if err := json.Unmarshal([]byte(val), &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *UserStore) List(ctx context.Context) ([]domain.User, error) {
	ids, err := s.Client.SMembers(ctx, usersKey).Result()
	if err != nil {
		return nil, err
	}
	out := make([]domain.User, 0, len(ids))
	for _, raw := range ids {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		u, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if u != nil {
			out = append(out, *u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *UserStore) SetRole(ctx context.Context, id int64, role domain.Role) (bool, error) {
	u, err := s.Get(ctx, id)
	if err != nil || u == nil {
		return false, err
	}
	u.Role = role
	return true, s.Upsert(ctx, u)
}

func (s *UserStore) Remove(ctx context.Context, id int64) (bool, error) {
	removed, err := s.Client.SRem(ctx, usersKey, id).Result()
	if err != nil {
		return false, err
	}
	if removed == 0 {
		return false, nil
	}
	return true, s.Client.Del(ctx, userKey(id)).Err()
}

type seenEntry struct {
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastSeen  string `json:"last_seen"`
}

func (s *UserStore) RecordInteraction(ctx context.Context, id int64, username, firstName string) error {
	clean := strings.ToLower(strings.TrimPrefix(username, "@"))
	entry := seenEntry{
		Username:  clean,
		FirstName: firstName,
		LastSeen:  tzutil.Now().Format("2006-01-02 15:04:05"),
	}
	b, _ := json.Marshal(entry)

	pipe := s.Client.Pipeline()
	pipe.Set(ctx, seenKey(id), b, 0)
	if clean != "" {
		pipe.Set(ctx, usernameKey(clean), id, 0)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}

	if u, err := s.Get(ctx, id); err == nil && u != nil {
		u.LastSeen = tzutil.Now()
		if username != "" {
			u.Username = username
		}
		return s.Upsert(ctx, u)
	}
	return nil
}

func (s *UserStore) ResolveUsername(ctx context.Context, username string) (int64, bool, error) {
	clean := strings.ToLower(strings.TrimPrefix(username, "@"))
	if clean == "" {
		return 0, false, nil
	}
	val, err := s.Client.Get(ctx, usernameKey(clean)).Result()
	if err == goredis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	id, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}
