package server

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sells-group/sportcar/internal/auth"
	"github.com/sells-group/sportcar/internal/export"
	"github.com/sells-group/sportcar/internal/model"
	"github.com/sells-group/sportcar/internal/quota"
	"github.com/sells-group/sportcar/internal/session"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Store.Ping(r.Context()); err != nil {
		zap.L().Warn("server: store ping failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- Identity ---

type loginResponse struct {
	Token string      `json:"token"`
	User  auth.User   `json:"user"`
	Usage model.Usage `json:"usage"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	u, err := auth.Login(req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	token, err := s.deps.Issuer.Issue(u)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	q, err := quota.New(r.Context(), s.deps.Store, u.Subject(), s.quotaLimit())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	zap.L().Info("server: login", zap.String("user_id", u.ID), zap.String("mode", string(req.Mode)))
	writeJSON(w, http.StatusOK, loginResponse{Token: token, User: u, Usage: q.Usage()})
}

func (s *Server) quotaLimit() int {
	if s.cfg.QuotaLimit > 0 {
		return s.cfg.QuotaLimit
	}
	return quota.DefaultLimit
}

func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.FromContext(r.Context())
	q, err := quota.New(r.Context(), s.deps.Store, u.Subject(), s.quotaLimit())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q.Usage())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.FromContext(r.Context())
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	recs, err := s.deps.Store.ListComparisons(r.Context(), u.Subject(), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if recs == nil {
		recs = []model.ComparisonRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"comparisons": recs})
}

// --- Catalog ---

func (s *Server) handleBrands(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"brands": s.deps.Catalog.ListBrands()})
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	brand := chi.URLParam(r, "brand")
	models := s.deps.Catalog.ListModels(brand)
	if models == nil {
		writeError(w, http.StatusNotFound, "unknown brand "+brand)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"brand": brand, "models": models})
}

type versionEntry struct {
	Version string        `json:"version"`
	Vehicle model.Vehicle `json:"vehicle"`
}

func (s *Server) handleVersions(w http.ResponseWriter, r *http.Request) {
	brand, mdl := chi.URLParam(r, "brand"), chi.URLParam(r, "model")
	versions := s.deps.Catalog.ListVersions(brand, mdl)
	if versions == nil {
		writeError(w, http.StatusNotFound, "unknown model "+brand+" "+mdl)
		return
	}
	out := make([]versionEntry, 0, len(versions))
	for _, v := range versions {
		veh, err := s.deps.Catalog.Resolve(brand, mdl, v)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		out = append(out, versionEntry{Version: v, Vehicle: veh})
	}
	writeJSON(w, http.StatusOK, map[string]any{"brand": brand, "model": mdl, "versions": out})
}

func (s *Server) handleVehicle(w http.ResponseWriter, r *http.Request) {
	v, err := s.deps.Catalog.Lookup(chi.URLParam(r, "vehicleID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handlePopularList(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"popular": s.deps.Catalog.Popular()})
}

// --- Sessions ---

type sessionResponse struct {
	ID   string       `json:"id"`
	View session.View `json:"view"`
}

func (s *Server) sessionOptions() []session.Option {
	return []session.Option{
		session.WithAnalysisDelay(s.cfg.AnalysisDelay),
		session.WithQuotaLimit(s.quotaLimit()),
		session.WithHistory(s.deps.Store),
	}
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var (
		id    session.Identity = auth.NewAnonymous()
		owner string
	)
	if u, ok := auth.FromContext(r.Context()); ok {
		id, owner = u, u.Subject()
	}
	ctl, err := session.New(r.Context(), s.deps.Catalog, s.deps.Engine, s.deps.Store, id, s.sessionOptions()...)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	sid := s.sessions.Add(ctl, owner)
	zap.L().Debug("server: session created", zap.String("session_id", sid), zap.Bool("authenticated", owner != ""))
	writeJSON(w, http.StatusCreated, sessionResponse{ID: sid, View: ctl.View()})
}

// lookup resolves the session of the request and enforces that a session
// owned by a user is only driven by that user.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*session.Controller, string, bool) {
	sid := chi.URLParam(r, "sessionID")
	ctl, owner, ok := s.sessions.Get(sid)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown session")
		return nil, "", false
	}
	if owner != "" {
		u, authed := auth.FromContext(r.Context())
		if !authed || u.Subject() != owner {
			writeError(w, http.StatusForbidden, "session belongs to another user")
			return nil, "", false
		}
	}
	return ctl, sid, true
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	ctl, sid, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{ID: sid, View: ctl.View()})
}

func (s *Server) handleIdentity(w http.ResponseWriter, r *http.Request) {
	ctl, sid, ok := s.lookup(w, r)
	if !ok {
		return
	}
	u, _ := auth.FromContext(r.Context())
	if err := ctl.SetIdentity(r.Context(), u); err != nil {
		writeDomainError(w, err)
		return
	}
	s.sessions.SetOwner(sid, u.Subject())
	writeJSON(w, http.StatusOK, sessionResponse{ID: sid, View: ctl.View()})
}

type selectRequest struct {
	ID      string `json:"id,omitempty"`
	Brand   string `json:"brand,omitempty"`
	Model   string `json:"model,omitempty"`
	Version string `json:"version,omitempty"`
}

type selectResponse struct {
	Changed bool         `json:"changed"`
	View    session.View `json:"view"`
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	ctl, _, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req selectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var (
		added bool
		err   error
	)
	switch {
	case req.ID != "":
		added, err = ctl.SelectByID(req.ID)
	case req.Brand != "" && req.Model != "":
		added, err = ctl.SelectPath(req.Brand, req.Model, req.Version)
	default:
		writeError(w, http.StatusBadRequest, "id or brand and model required")
		return
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, selectResponse{Changed: added, View: ctl.View()})
}

func (s *Server) handleDeselect(w http.ResponseWriter, r *http.Request) {
	ctl, _, ok := s.lookup(w, r)
	if !ok {
		return
	}
	removed, err := ctl.Deselect(chi.URLParam(r, "vehicleID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, selectResponse{Changed: removed, View: ctl.View()})
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	ctl, sid, ok := s.lookup(w, r)
	if !ok {
		return
	}
	state, err := ctl.RequestCompare(r.Context())
	if err != nil {
		status := statusFor(err)
		writeJSON(w, status, map[string]any{
			"error": err.Error(),
			"state": state,
			"view":  ctl.View(),
		})
		return
	}
	writeJSON(w, http.StatusAccepted, sessionResponse{ID: sid, View: ctl.View()})
}

func (s *Server) transition(fn func(*session.Controller) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctl, sid, ok := s.lookup(w, r)
		if !ok {
			return
		}
		if err := fn(ctl); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sessionResponse{ID: sid, View: ctl.View()})
	}
}

func (s *Server) handleNewComparison(w http.ResponseWriter, r *http.Request) {
	s.transition((*session.Controller).NewComparison)(w, r)
}

func (s *Server) handleDismiss(w http.ResponseWriter, r *http.Request) {
	s.transition((*session.Controller).Dismiss)(w, r)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.transition((*session.Controller).Reset)(w, r)
}

func (s *Server) handleShowPopular(w http.ResponseWriter, r *http.Request) {
	ctl, sid, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if _, err := ctl.ShowPopular(r.Context(), chi.URLParam(r, "popularID")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{ID: sid, View: ctl.View()})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	ctl, sid, ok := s.lookup(w, r)
	if !ok {
		return
	}
	view := ctl.View()
	if view.State != model.StateShowingResults || view.Result == nil || len(view.Result.Ranking) == 0 {
		writeError(w, http.StatusConflict, "no comparison result to export")
		return
	}
	var buf bytes.Buffer
	if err := export.Write(&buf, view.Result); err != nil {
		writeDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="comparaison-`+sid+`.xlsx"`)
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		zap.L().Warn("server: export", zap.String("session_id", sid), zap.Error(err))
	}
}
