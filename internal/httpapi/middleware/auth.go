package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/myatko/domainwatch/internal/domain"
	"github.com/myatko/domainwatch/internal/users"
)

// Keys holds the static API key sets. Admin keys act as the admin role,
// public keys as the user role.
type Keys struct {
	Public []string
	Admin  []string
}

type ctxKey int

const (
	roleKey ctxKey = iota
	userIDKey
)

func readAuth(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(h), "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	if k := r.Header.Get("X-API-Key"); k != "" {
		return strings.TrimSpace(k)
	}
	return ""
}

func readUserID(r *http.Request) int64 {
	raw := r.Header.Get("X-User-ID")
	if raw == "" {
		return 0
	}
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

func hasKey(given string, set []string) bool {
	if given == "" || len(set) == 0 {
		return false
	}
	for _, k := range set {
		if k == given {
			return true
		}
	}
	return false
}

// Authenticator resolves each request to a role. An admin key grants
// admin; a public key grants the caller's registered role (or plain
// user when no identity header is present). With no keys configured
// everything is open as admin — handy for local dev, same trade-off the
// key middleware always made.
type Authenticator struct {
	Keys  Keys
	Users *users.Service
}

// Resolve authenticates the request and stores role and caller ID in
// the context. Unauthenticated requests get 401 when keys are
// configured.
func (a *Authenticator) Resolve(next http.Handler) http.Handler {
	enabled := len(a.Keys.Public) > 0 || len(a.Keys.Admin) > 0
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := readAuth(r)
		uid := readUserID(r)

		var role domain.Role
		switch {
		case hasKey(key, a.Keys.Admin):
			role = domain.RoleAdmin
		case hasKey(key, a.Keys.Public):
			role = domain.RoleUser
			if uid != 0 && a.Users != nil {
				role = a.Users.RoleFor(r.Context(), uid)
			}
		case !enabled:
			role = domain.RoleAdmin
			if uid != 0 && a.Users != nil {
				role = a.Users.RoleFor(r.Context(), uid)
			}
		default:
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
			return
		}

		if uid != 0 && a.Users != nil {
			// Breadcrumb for username→ID resolution later. Best effort:
			// a store hiccup must not fail the request.
			if err := a.Users.Store.RecordInteraction(r.Context(), uid, r.Header.Get("X-User-Name"), ""); err != nil {
				a.Users.Log.Warn("interaction record failed",
					zap.Int64("user_id", uid), zap.Error(err))
			}
		}

		ctx := context.WithValue(r.Context(), roleKey, role)
		ctx = context.WithValue(ctx, userIDKey, uid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequirePermission gates a route on the resolved role's permissions.
func RequirePermission(p users.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !users.RoleAllows(RoleFrom(r.Context()), p) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"error":"forbidden"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RoleFrom returns the role Resolve stored; guest when absent.
func RoleFrom(ctx context.Context) domain.Role {
	if role, ok := ctx.Value(roleKey).(domain.Role); ok {
		return role
	}
	return domain.RoleGuest
}

// UserIDFrom returns the caller ID Resolve stored; 0 when absent.
func UserIDFrom(ctx context.Context) int64 {
	if id, ok := ctx.Value(userIDKey).(int64); ok {
		return id
	}
	return 0
}
