package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/myatko/domainwatch/internal/domain"
	"github.com/myatko/domainwatch/internal/tzutil"
)

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	list, err := s.Users.Store.List(r.Context())
	if err != nil {
		s.Log.Error("list users failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list error")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

type addUserPayload struct {
	ID        int64    `json:"id"`
	Username  string   `json:"username"`
	FirstName string   `json:"first_name"`
	Role      string   `json:"role"`
	Groups    []string `json:"groups"`
}

// handleAddUser registers a user by numeric ID or by @username. Username
// registration only works for users already seen interacting with the
// bot, same as the Telegram-side flow.
func (s *Server) handleAddUser(w http.ResponseWriter, r *http.Request) {
	var p addUserPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "bad payload")
		return
	}

	id := p.ID
	if id == 0 && p.Username != "" {
		resolved, ok, err := s.Users.Store.ResolveUsername(r.Context(), strings.TrimPrefix(p.Username, "@"))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "lookup error")
			return
		}
		if !ok {
			writeError(w, http.StatusNotFound, "username not seen yet; ask the user to contact the bot first")
			return
		}
		id = resolved
	}
	if id == 0 {
		writeError(w, http.StatusBadRequest, "id or username required")
		return
	}

	role := domain.Role(p.Role)
	if p.Role == "" {
		role = domain.RoleGuest
	}
	if !role.Valid() {
		writeError(w, http.StatusBadRequest, "unknown role")
		return
	}

	u := &domain.User{
		ID:        id,
		Username:  strings.TrimPrefix(p.Username, "@"),
		FirstName: p.FirstName,
		Role:      role,
		Groups:    p.Groups,
		AddedAt:   tzutil.Now(),
	}
	if err := s.Users.Register(r.Context(), u); err != nil {
		s.Log.Error("register user failed", zap.Int64("user_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not register")
		return
	}
	s.Log.Info("user registered", zap.Int64("user_id", id), zap.String("role", string(role)))
	writeJSON(w, http.StatusCreated, u)
}

type setRolePayload struct {
	Role string `json:"role"`
}

func (s *Server) handleSetUserRole(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad user id")
		return
	}
	var p setRolePayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "bad payload")
		return
	}
	role := domain.Role(p.Role)
	if !role.Valid() {
		writeError(w, http.StatusBadRequest, "unknown role")
		return
	}
	ok, err := s.Users.Store.SetRole(r.Context(), id, role)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "update error")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "user not registered")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "role": role})
}

func (s *Server) handleRemoveUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad user id")
		return
	}
	ok, err := s.Users.Store.Remove(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "remove error")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "user not registered")
		return
	}
	s.Log.Info("user removed", zap.Int64("user_id", id))
	writeJSON(w, http.StatusOK, map[string]int64{"removed": id})
}
