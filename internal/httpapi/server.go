// Package httpapi exposes the family service as a JSON HTTP API with
// Prometheus metrics.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-ports/silsilah/internal/auth"
	"github.com/go-ports/silsilah/internal/family"
	"github.com/go-ports/silsilah/internal/models"
	"github.com/go-ports/silsilah/internal/service"
	"github.com/go-ports/silsilah/internal/store"
)

// maxBodyBytes caps request bodies on mutating routes.
const maxBodyBytes = 1 << 20

// Family is the subset of *service.Service used by the API.
type Family interface {
	ListMembers(ctx context.Context) ([]models.Member, error)
	Search(ctx context.Context, query string, limit int) ([]models.Member, error)
	GetMember(ctx context.Context, docID string) (*models.Member, error)
	AddMember(ctx context.Context, in *models.MemberInput) (*models.SaveResult, error)
	UpdateMember(ctx context.Context, docID string, patch *models.MemberPatch) (*models.Member, error)
	DeleteMember(ctx context.Context, docID string) error
	Tree(ctx context.Context) (*service.Forest, error)
	Generation(ctx context.Context, ref string) (*models.Member, int, error)
	Diagnose(ctx context.Context) (*service.Diagnostics, error)
}

// Server routes HTTP requests to a Family.
type Server struct {
	family  Family
	auth    *auth.Authenticator
	metrics *Metrics
	logger  *slog.Logger
	mux     *http.ServeMux
}

// New builds the route table. A nil logger uses slog.Default.
func New(f Family, authn *auth.Authenticator, m *Metrics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{family: f, auth: authn, metrics: m, logger: logger, mux: http.NewServeMux()}

	s.handle("GET /healthz", s.handleHealth)
	s.handle("GET /api/members", s.handleList)
	s.handle("POST /api/members", s.admin(s.handleCreate))
	s.handle("GET /api/members/{docID}", s.handleGet)
	s.handle("PATCH /api/members/{docID}", s.admin(s.handleUpdate))
	s.handle("DELETE /api/members/{docID}", s.admin(s.handleDelete))
	s.handle("GET /api/members/{docID}/generation", s.handleGeneration)
	s.handle("GET /api/tree", s.handleTree)
	s.handle("GET /api/diagnostics", s.handleDiagnostics)
	s.mux.Handle("GET /metrics", m.Handler())
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ---------------------------------------------------------------------------
// Middleware
// ---------------------------------------------------------------------------

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// handle registers h under pattern and counts its responses.
func (s *Server) handle(pattern string, h http.HandlerFunc) {
	s.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r)
		s.metrics.requests.WithLabelValues(pattern, strconv.Itoa(rec.status)).Inc()
	})
}

// admin rejects requests without a valid admin session.
func (s *Server) admin(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.auth.Require(s.auth.Session(r)); err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer realm="silsilah"`)
			s.writeErr(w, err)
			return
		}
		h(w, r)
	}
}

// ---------------------------------------------------------------------------
// Handlers
// ---------------------------------------------------------------------------

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	var (
		members []models.Member
		err     error
	)
	if q := r.URL.Query().Get("q"); q != "" {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		members, err = s.family.Search(r.Context(), q, limit)
	} else {
		members, err = s.family.ListMembers(r.Context())
	}
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"members": members, "count": len(members)})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	m, err := s.family.GetMember(r.Context(), r.PathValue("docID"))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var in models.MemberInput
	if !s.decode(w, r, &in) {
		return
	}
	res, err := s.family.AddMember(r.Context(), &in)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var patch models.MemberPatch
	if !s.decode(w, r, &patch) {
		return
	}
	m, err := s.family.UpdateMember(r.Context(), r.PathValue("docID"), &patch)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.family.DeleteMember(r.Context(), r.PathValue("docID")); err != nil {
		s.writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	forest, err := s.family.Tree(r.Context())
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.metrics.observeTree(string(forest.Report.Strategy), time.Since(start), forest.Members)

	body := map[string]any{
		"strategy": forest.Report.Strategy,
		"roots":    forest.Roots,
		"members":  forest.Members,
	}
	if len(forest.Report.Unplaced) > 0 {
		body["unplaced"] = forest.Report.Unplaced
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleGeneration(w http.ResponseWriter, r *http.Request) {
	m, level, err := s.family.Generation(r.Context(), r.PathValue("docID"))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": m.ID, "doc_id": m.DocID, "generation": level})
}

func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	d, err := s.family.Diagnose(r.Context())
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

// statusFor maps a service error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidMember):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, family.ErrParentCycle):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeErr(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "err", err)
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
