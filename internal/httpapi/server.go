// Package httpapi is the bot's trigger surface: domain CRUD, manual
// check runs and user administration over a chi router.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/myatko/domainwatch/internal/check"
	"github.com/myatko/domainwatch/internal/domain"
	"github.com/myatko/domainwatch/internal/httpapi/middleware"
	"github.com/myatko/domainwatch/internal/repo"
	"github.com/myatko/domainwatch/internal/users"
)

// CheckEngine is the slice of the checking engine the API drives.
// *check.Engine satisfies it.
type CheckEngine interface {
	CheckMany(ctx context.Context, names []string) []domain.ProbeResult
	CheckByGroup(ctx context.Context, byGroup map[string][]string) map[string][]domain.ProbeResult
}

// SyncProber is the single-domain synchronous check path.
type SyncProber interface {
	Probe(ctx context.Context, name string) domain.ProbeResult
}

type Server struct {
	Log     *zap.Logger
	Domains repo.DomainStore
	Users   *users.Service
	Engine  CheckEngine
	Prober  SyncProber
	Keys    middleware.Keys
	Origins []string

	started time.Time
}

func NewServer(
	log *zap.Logger,
	domains repo.DomainStore,
	usersvc *users.Service,
	engine CheckEngine,
	prober SyncProber,
	keys middleware.Keys,
	origins []string,
) *Server {
	return &Server{
		Log:     log,
		Domains: domains,
		Users:   usersvc,
		Engine:  engine,
		Prober:  prober,
		Keys:    keys,
		Origins: origins,
		started: time.Now(),
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	if len(s.Origins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.Origins,
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Authorization", "Content-Type", "X-API-Key", "X-User-ID", "X-User-Name"},
		}))
	} else {
		r.Use(cors.AllowAll().Handler)
	}
	r.Use(middleware.RateLimit(240, 60))

	r.Get("/healthz", s.handleHealth)

	auth := &middleware.Authenticator{Keys: s.Keys, Users: s.Users}
	perm := middleware.RequirePermission

	r.Route("/api", func(r chi.Router) {
		r.Use(auth.Resolve)

		r.With(perm(users.PermListDomains)).Get("/domains", s.handleListDomains)
		r.With(perm(users.PermAddDomains)).Post("/domains", s.handleAddDomain)
		r.With(perm(users.PermBulkOperations)).Post("/domains/bulk", s.handleBulkAdd)
		r.With(perm(users.PermRemoveDomains)).Delete("/domains/{domain}", s.handleRemoveDomain)
		r.With(perm(users.PermCreateGroups)).Put("/domains/{domain}/group", s.handleSetGroup)

		r.With(perm(users.PermListDomains)).Get("/groups", s.handleGroups)
		r.With(perm(users.PermListDomains)).Get("/groups/summary", s.handleGroupSummary)

		r.With(perm(users.PermCheckDomains)).Post("/check", s.handleCheckAll)
		r.With(perm(users.PermCheckDomains)).Post("/check/groups", s.handleCheckGroups)
		r.With(perm(users.PermCheckDomains)).Post("/check/domains/{domain}", s.handleCheckOne)

		r.Route("/users", func(r chi.Router) {
			r.Use(perm(users.PermManageUsers))
			r.Get("/", s.handleListUsers)
			r.Post("/", s.handleAddUser)
			r.Put("/{id}/role", s.handleSetUserRole)
			r.Delete("/{id}", s.handleRemoveUser)
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "healthy",
		"uptime_seconds": time.Since(s.started).Seconds(),
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	})
}

// callerVisibility resolves group visibility from the role the auth
// middleware already established. Admin keys and open mode carry no user
// ID, so the store lookup runs only for identified guests.
func (s *Server) callerVisibility(r *http.Request) (groups []string, all bool) {
	if users.RoleAllows(middleware.RoleFrom(r.Context()), users.PermViewAllGroups) {
		return nil, true
	}
	return s.Users.VisibleGroups(r.Context(), middleware.UserIDFrom(r.Context()))
}

// visibleRecords applies guest group restrictions to a record listing.
func (s *Server) visibleRecords(r *http.Request, recs []domain.DomainRecord) []domain.DomainRecord {
	groups, all := s.callerVisibility(r)
	if all {
		return recs
	}
	allowed := map[string]bool{}
	for _, g := range groups {
		allowed[g] = true
	}
	out := make([]domain.DomainRecord, 0, len(recs))
	for _, rec := range recs {
		if allowed[rec.Group] {
			out = append(out, rec)
		}
	}
	return out
}

func (s *Server) handleListDomains(w http.ResponseWriter, r *http.Request) {
	var recs []domain.DomainRecord
	var err error
	if group := r.URL.Query().Get("group"); group != "" {
		recs, err = s.Domains.ListByGroup(r.Context(), group)
	} else {
		recs, err = s.Domains.List(r.Context())
	}
	if err != nil {
		s.Log.Error("list domains failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list error")
		return
	}
	writeJSON(w, http.StatusOK, s.visibleRecords(r, recs))
}

type addDomainPayload struct {
	Domain string `json:"domain"`
	Group  string `json:"group"`
}

func (s *Server) handleAddDomain(w http.ResponseWriter, r *http.Request) {
	var p addDomainPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil || p.Domain == "" {
		writeError(w, http.StatusBadRequest, "bad payload")
		return
	}

	added, err := s.Domains.Add(r.Context(), p.Domain, p.Group)
	if err != nil {
		s.Log.Error("add domain failed", zap.String("domain", p.Domain), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not add")
		return
	}
	if !added {
		writeError(w, http.StatusConflict, "domain already monitored")
		return
	}

	// One synchronous probe for immediate feedback, persisted right away.
	res := s.Prober.Probe(r.Context(), p.Domain)
	if _, err := s.Domains.BulkUpdateStatus(r.Context(), check.ToBulkUpdate([]domain.ProbeResult{res})); err != nil {
		s.Log.Warn("initial status write failed", zap.String("domain", p.Domain), zap.Error(err))
	}

	rec, _ := s.Domains.Get(r.Context(), p.Domain)
	s.Log.Info("domain added",
		zap.String("domain", p.Domain),
		zap.String("group", p.Group),
		zap.String("status", string(res.Status)),
	)
	writeJSON(w, http.StatusCreated, map[string]any{"record": rec, "result": res})
}

type bulkAddPayload struct {
	Domains []string `json:"domains"`
	Group   string   `json:"group"`
}

func (s *Server) handleBulkAdd(w http.ResponseWriter, r *http.Request) {
	var p bulkAddPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil || len(p.Domains) == 0 {
		writeError(w, http.StatusBadRequest, "bad payload")
		return
	}
	rep, err := s.Domains.BulkAdd(r.Context(), p.Domains, p.Group)
	if err != nil {
		s.Log.Error("bulk add failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "bulk add error")
		return
	}
	s.Log.Info("bulk add",
		zap.Int("requested", len(p.Domains)),
		zap.Int("added", len(rep.Added)),
		zap.Int("existing", len(rep.Existing)),
	)
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleRemoveDomain(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "domain")
	removed, err := s.Domains.Remove(r.Context(), name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "remove error")
		return
	}
	if !removed {
		writeError(w, http.StatusNotFound, "domain not monitored")
		return
	}
	s.Log.Info("domain removed", zap.String("domain", name))
	writeJSON(w, http.StatusOK, map[string]string{"removed": name})
}

type setGroupPayload struct {
	Group string `json:"group"`
}

func (s *Server) handleSetGroup(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "domain")
	var p setGroupPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil || p.Group == "" {
		writeError(w, http.StatusBadRequest, "bad payload")
		return
	}
	ok, err := s.Domains.SetGroup(r.Context(), name, p.Group)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "update error")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "domain not monitored")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"domain": name, "group": p.Group})
}

func (s *Server) handleGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := s.Domains.Groups(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "groups error")
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

func (s *Server) handleGroupSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.Domains.GroupSummary(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "summary error")
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// downEntry is one DOWN domain in a check report.
type downEntry struct {
	Domain string `json:"domain"`
	Error  string `json:"error"`
}

type checkReport struct {
	Total       int                  `json:"total"`
	Up          int                  `json:"up"`
	Down        int                  `json:"down"`
	DownDomains []downEntry          `json:"down_domains"`
	Results     []domain.ProbeResult `json:"results"`
}

func buildReport(results []domain.ProbeResult) checkReport {
	rep := checkReport{
		Total:       len(results),
		DownDomains: []downEntry{},
		Results:     results,
	}
	for _, res := range results {
		if res.Status == domain.StatusUp {
			rep.Up++
			continue
		}
		rep.Down++
		rep.DownDomains = append(rep.DownDomains, downEntry{Domain: res.Domain, Error: res.Error})
	}
	return rep
}

// handleCheckAll runs the engine over every visible domain and persists
// the outcome. Manual checks report but never alert; alerting belongs
// to the scheduled pass.
func (s *Server) handleCheckAll(w http.ResponseWriter, r *http.Request) {
	recs, err := s.Domains.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list error")
		return
	}
	recs = s.visibleRecords(r, recs)
	names := make([]string, 0, len(recs))
	for _, rec := range recs {
		names = append(names, rec.Domain)
	}

	results := s.Engine.CheckMany(r.Context(), names)
	if _, err := s.Domains.BulkUpdateStatus(r.Context(), check.ToBulkUpdate(results)); err != nil {
		s.Log.Error("bulk status update failed", zap.Error(err))
	}
	writeJSON(w, http.StatusOK, buildReport(results))
}

type checkGroupsPayload struct {
	Groups []string `json:"groups"`
}

func (s *Server) handleCheckGroups(w http.ResponseWriter, r *http.Request) {
	var p checkGroupsPayload
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&p) // empty body means all groups
	}
	groups := p.Groups
	if len(groups) == 0 {
		all, err := s.Domains.Groups(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "groups error")
			return
		}
		groups = all
	}

	visible, allVisible := s.callerVisibility(r)
	allowed := map[string]bool{}
	for _, g := range visible {
		allowed[g] = true
	}

	byGroup := map[string][]string{}
	for _, g := range groups {
		if !allVisible && !allowed[g] {
			continue
		}
		recs, err := s.Domains.ListByGroup(r.Context(), g)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "list error")
			return
		}
		names := make([]string, 0, len(recs))
		for _, rec := range recs {
			names = append(names, rec.Domain)
		}
		byGroup[g] = names
	}

	resultsByGroup := s.Engine.CheckByGroup(r.Context(), byGroup)

	reports := make(map[string]checkReport, len(resultsByGroup))
	for g, results := range resultsByGroup {
		if _, err := s.Domains.BulkUpdateStatus(r.Context(), check.ToBulkUpdate(results)); err != nil {
			s.Log.Error("bulk status update failed", zap.String("group", g), zap.Error(err))
		}
		reports[g] = buildReport(results)
	}
	writeJSON(w, http.StatusOK, reports)
}

func (s *Server) handleCheckOne(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "domain")
	res := s.Prober.Probe(r.Context(), name)

	// Persist only when the domain is actually monitored.
	if rec, err := s.Domains.Get(r.Context(), name); err == nil && rec != nil {
		if _, err := s.Domains.BulkUpdateStatus(r.Context(), check.ToBulkUpdate([]domain.ProbeResult{res})); err != nil {
			s.Log.Warn("status write failed", zap.String("domain", name), zap.Error(err))
		}
	}
	writeJSON(w, http.StatusOK, res)
}
