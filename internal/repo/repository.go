package repo

import (
	"context"

	"github.com/myatko/domainwatch/internal/domain"
)

// BulkAddReport breaks a bulk add down for the caller: what went in, and
// which names were already monitored (split by whether they sit in the
// requested group or somewhere else).
type BulkAddReport struct {
	Added              []string `json:"added"`
	Existing           []string `json:"existing"`
	ExistingSameGroup  []string `json:"existing_same_group"`
	ExistingOtherGroup []string `json:"existing_other_groups"`
}

// Ports (interfaces) — swap in any storage adapter.

// DomainStore persists monitored domains and their last-known status.
// The checking engine never deletes; removal is a user operation.
type DomainStore interface {
	// Add registers a domain in a group. Returns false when the name is
	// already monitored.
	Add(ctx context.Context, name, group string) (bool, error)
	BulkAdd(ctx context.Context, names []string, group string) (*BulkAddReport, error)
	Remove(ctx context.Context, name string) (bool, error)
	// Get returns nil, nil when the domain is not monitored.
	Get(ctx context.Context, name string) (*domain.DomainRecord, error)
	List(ctx context.Context) ([]domain.DomainRecord, error)
	ListByGroup(ctx context.Context, group string) ([]domain.DomainRecord, error)
	Groups(ctx context.Context) ([]string, error)
	GroupSummary(ctx context.Context) (map[string]domain.GroupSummary, error)
	SetGroup(ctx context.Context, name, group string) (bool, error)
	// BulkUpdateStatus applies one run's results in a single round-trip
	// and reports how many records it touched. Ops for unknown domains
	// are skipped, not errors.
	BulkUpdateStatus(ctx context.Context, ops []domain.UpdateOp) (int, error)
	Count(ctx context.Context) (int, error)
}

// UserStore persists registered bot users and interaction breadcrumbs
// for username→ID resolution.
type UserStore interface {
	Upsert(ctx context.Context, u *domain.User) error
	// Get returns nil, nil for unknown users.
	Get(ctx context.Context, id int64) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	SetRole(ctx context.Context, id int64, role domain.Role) (bool, error)
	Remove(ctx context.Context, id int64) (bool, error)
	RecordInteraction(ctx context.Context, id int64, username, firstName string) error
	// ResolveUsername maps a @username (case-insensitive) to a user ID
	// seen in a past interaction.
	ResolveUsername(ctx context.Context, username string) (int64, bool, error)
}
