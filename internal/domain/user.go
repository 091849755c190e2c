package domain

import "time"

// Role is a bot user's permission level.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
	RoleGuest Role = "guest"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleUser, RoleGuest:
		return true
	}
	return false
}

// User is a registered bot user. Guests only see the groups listed in
// Groups; admins and users see everything.
type User struct {
	ID        int64     `json:"user_id"`
	Username  string    `json:"username,omitempty"`
	FirstName string    `json:"first_name,omitempty"`
	Role      Role      `json:"role"`
	Groups    []string  `json:"groups,omitempty"`
	AddedAt   time.Time `json:"added_at"`
	LastSeen  time.Time `json:"last_seen"`
}
