// Package users implements role-based access control for the bot:
// admins manage everything, users can check and list, guests only see
// the groups assigned to them.
package users

import (
	"context"

	"go.uber.org/zap"

	"github.com/myatko/domainwatch/internal/domain"
	"github.com/myatko/domainwatch/internal/repo"
)

// Permission names one gated operation.
type Permission string

const (
	PermAddDomains     Permission = "add_domains"
	PermRemoveDomains  Permission = "remove_domains"
	PermCheckDomains   Permission = "check_domains"
	PermListDomains    Permission = "list_domains"
	PermManageUsers    Permission = "manage_users"
	PermViewAllGroups  Permission = "view_all_groups"
	PermCreateGroups   Permission = "create_groups"
	PermDeleteGroups   Permission = "delete_groups"
	PermBulkOperations Permission = "bulk_operations"
	PermSystemSettings Permission = "system_settings"
)

var rolePermissions = map[domain.Role]map[Permission]bool{
	domain.RoleAdmin: {
		PermAddDomains:     true,
		PermRemoveDomains:  true,
		PermCheckDomains:   true,
		PermListDomains:    true,
		PermManageUsers:    true,
		PermViewAllGroups:  true,
		PermCreateGroups:   true,
		PermDeleteGroups:   true,
		PermBulkOperations: true,
		PermSystemSettings: true,
	},
	domain.RoleUser: {
		PermCheckDomains:  true,
		PermListDomains:   true,
		PermViewAllGroups: true,
	},
	domain.RoleGuest: {
		PermCheckDomains: true,
		PermListDomains:  true,
	},
}

// RoleAllows reports whether a role carries a permission.
func RoleAllows(role domain.Role, p Permission) bool {
	return rolePermissions[role][p]
}

// Service resolves caller identities to roles and recipients. Admin chat
// IDs configured in the environment are implicit admins even when never
// registered in the store.
type Service struct {
	Store    repo.UserStore
	AdminIDs []int64
	Log      *zap.Logger
}

func NewService(store repo.UserStore, adminIDs []int64, log *zap.Logger) *Service {
	return &Service{Store: store, AdminIDs: adminIDs, Log: log}
}

func (s *Service) isConfiguredAdmin(id int64) bool {
	for _, a := range s.AdminIDs {
		if a == id {
			return true
		}
	}
	return false
}

// RoleFor resolves a caller's role. Unknown callers are guests.
func (s *Service) RoleFor(ctx context.Context, id int64) domain.Role {
	if s.isConfiguredAdmin(id) {
		return domain.RoleAdmin
	}
	u, err := s.Store.Get(ctx, id)
	if err != nil {
		s.Log.Warn("user lookup failed", zap.Int64("user_id", id), zap.Error(err))
		return domain.RoleGuest
	}
	if u == nil || !u.Role.Valid() {
		return domain.RoleGuest
	}
	return u.Role
}

// Allowed checks one permission for a caller.
func (s *Service) Allowed(ctx context.Context, id int64, p Permission) bool {
	return RoleAllows(s.RoleFor(ctx, id), p)
}

// VisibleGroups returns the group names a caller may see. all=true means
// unrestricted (admins and users); guests get their assigned list.
func (s *Service) VisibleGroups(ctx context.Context, id int64) (groups []string, all bool) {
	role := s.RoleFor(ctx, id)
	if RoleAllows(role, PermViewAllGroups) {
		return nil, true
	}
	u, err := s.Store.Get(ctx, id)
	if err != nil || u == nil {
		return []string{}, false
	}
	return u.Groups, false
}

// Register adds or updates a user with the given role.
func (s *Service) Register(ctx context.Context, u *domain.User) error {
	if !u.Role.Valid() {
		u.Role = domain.RoleGuest
	}
	return s.Store.Upsert(ctx, u)
}

// Recipients is the notification fan-out list: configured admin IDs
// unioned with every registered user, deduplicated.
func (s *Service) Recipients(ctx context.Context) []int64 {
	seen := map[int64]struct{}{}
	out := make([]int64, 0, len(s.AdminIDs))
	for _, id := range s.AdminIDs {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	list, err := s.Store.List(ctx)
	if err != nil {
		s.Log.Warn("listing users for notification failed", zap.Error(err))
		return out
	}
	for _, u := range list {
		if _, ok := seen[u.ID]; !ok {
			seen[u.ID] = struct{}{}
			out = append(out, u.ID)
		}
	}
	return out
}
