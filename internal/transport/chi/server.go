package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/compsearch/internal/domain"
	logpkg "github.com/kailas-cloud/compsearch/internal/logger"
	healthuc "github.com/kailas-cloud/compsearch/internal/usecase/health"
	sessionuc "github.com/kailas-cloud/compsearch/internal/usecase/session"
)

// DefaultWaitTimeout bounds GET /sessions/{id}?wait=true.
const DefaultWaitTimeout = 30 * time.Second

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the session API.
type Server struct {
	sessions      *sessionuc.Manager
	health        *healthuc.Service
	waitTimeout   time.Duration
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. waitTimeout <= 0 uses DefaultWaitTimeout.
func NewServer(
	sessions *sessionuc.Manager,
	health *healthuc.Service,
	waitTimeout time.Duration,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if waitTimeout <= 0 {
		waitTimeout = DefaultWaitTimeout
	}
	s := &Server{
		sessions:    sessions,
		health:      health,
		waitTimeout: waitTimeout,
		logger:      logger,
	}
	s.errorHandlers = []errorHandler{
		validationHandler,
		sentinelHandler(domain.ErrSessionNotFound, http.StatusNotFound, ErrorCodeSessionNotFound),
		sentinelHandler(domain.ErrItemNotFound, http.StatusNotFound, ErrorCodeItemNotFound),
		sentinelHandler(domain.ErrDatasetNotFound, http.StatusNotFound, ErrorCodeDatasetNotFound),
		sentinelHandler(domain.ErrExportNotOpen, http.StatusConflict, ErrorCodeExportNotOpen),
		sentinelHandler(domain.ErrNothingSelected, http.StatusConflict, ErrorCodeNothingSelected),
		sentinelHandler(domain.ErrResponseTimeout, http.StatusGatewayTimeout, ErrorCodeSearchTimeout),
		sentinelHandler(context.DeadlineExceeded, http.StatusGatewayTimeout, ErrorCodeSearchTimeout),
		sentinelHandler(domain.ErrSearchTransport, http.StatusBadGateway, ErrorCodeSearchFailed),
		sentinelHandler(domain.ErrChannelClosed, http.StatusServiceUnavailable, ErrorCodeSearchFailed),
	}
	return s
}

// Register mounts the API routes on r.
func (s *Server) Register(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Get("/versions", s.ListVersions)

	r.Post("/sessions", s.CreateSession)
	r.Route("/sessions/{id}", func(r chi.Router) {
		r.Get("/", s.GetSession)
		r.Delete("/", s.DeleteSession)
		r.Post("/search", s.Search)

		r.Get("/pages", s.SetPage)
		r.Post("/pages/{action}", s.Paginate)

		r.Post("/selection:all", s.SelectAll)
		r.Delete("/selection", s.ClearSelection)
		r.Post("/selection/{identity}", s.ToggleSelection)

		r.Post("/items/{identity}", s.SelectItem)
		r.Delete("/items", s.CloseItem)

		r.Post("/export", s.OpenExport)
		r.Delete("/export", s.CloseExport)
		r.Post("/export/confirm", s.ConfirmExport)
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, HealthResponse{Status: string(report.Status), Checks: checks})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// ListVersions handles GET /versions.
func (s *Server) ListVersions(w http.ResponseWriter, _ *http.Request) {
	c := s.sessions.Catalog()
	writeJSON(w, http.StatusOK, VersionsResponse{Versions: c.Versions(), Default: c.DefaultVersion()})
}

// CreateSession handles POST /sessions.
func (s *Server) CreateSession(w http.ResponseWriter, _ *http.Request) {
	sess := s.sessions.Create()
	w.Header().Set("Location", "/sessions/"+sess.ID())
	writeJSON(w, http.StatusCreated, SessionResponse{Session: sess.View()})
}

// GetSession handles GET /sessions/{id}. With wait=true it blocks until the
// last search resolves or the wait timeout passes.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var wait bool
	if err := runtime.BindQueryParameter("form", true, false, "wait", r.URL.Query(), &wait); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "invalid wait parameter")
		return
	}
	if !wait {
		writeJSON(w, http.StatusOK, SessionResponse{Session: sess.View()})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.waitTimeout)
	defer cancel()
	view, err := sess.Wait(ctx)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SessionResponse{Session: view})
}

// DeleteSession handles DELETE /sessions/{id}.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	var id string
	if !bindPath(w, r, "id", &id) {
		return
	}
	if err := s.sessions.Delete(id); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search handles POST /sessions/{id}/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	view, err := sess.Search(r.Context(), sessionuc.Input{Query: req.Query, Version: req.Version, Mode: req.Mode})
	if errors.Is(err, domain.ErrValidation) {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Code:    ErrorCodeValidationFailed,
			Message: validationMessage(err),
			Errors:  view.Errors,
		})
		return
	}
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, SessionResponse{Session: view})
}

// Paginate handles POST /sessions/{id}/pages/{action}.
func (s *Server) Paginate(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var action string
	if !bindPath(w, r, "action", &action) {
		return
	}

	view, err := sess.Paginate(action)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SessionResponse{Session: view})
}

// SetPage handles GET /sessions/{id}/pages?page=N.
func (s *Server) SetPage(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var page int
	if err := runtime.BindQueryParameter("form", true, true, "page", r.URL.Query(), &page); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Code:    ErrorCodeValidationFailed,
			Message: "page must be an integer",
			Errors:  map[string]string{domain.FieldPage: "page must be an integer"},
		})
		return
	}
	writeJSON(w, http.StatusOK, SessionResponse{Session: sess.SetPage(page)})
}

// ToggleSelection handles POST /sessions/{id}/selection/{identity}.
func (s *Server) ToggleSelection(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var identity string
	if !bindPath(w, r, "identity", &identity) {
		return
	}

	selected, err := sess.Toggle(identity)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ToggleResponse{
		Identity:      identity,
		Selected:      selected,
		SelectedCount: sess.View().SelectedCount,
	})
}

// SelectAll handles POST /sessions/{id}/selection:all.
func (s *Server) SelectAll(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.SelectAll()
	view := sess.View()
	writeJSON(w, http.StatusOK, SelectionResponse{SelectedCount: view.SelectedCount, Selected: view.Selected})
}

// ClearSelection handles DELETE /sessions/{id}/selection.
func (s *Server) ClearSelection(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.ClearSelection()
	w.WriteHeader(http.StatusNoContent)
}

// SelectItem handles POST /sessions/{id}/items/{identity}.
func (s *Server) SelectItem(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var identity string
	if !bindPath(w, r, "identity", &identity) {
		return
	}

	it, err := sess.SelectItem(identity)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

// CloseItem handles DELETE /sessions/{id}/items.
func (s *Server) CloseItem(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.CloseItem()
	w.WriteHeader(http.StatusNoContent)
}

// OpenExport handles POST /sessions/{id}/export.
func (s *Server) OpenExport(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.OpenExport()
	writeJSON(w, http.StatusOK, SessionResponse{Session: sess.View()})
}

// CloseExport handles DELETE /sessions/{id}/export.
func (s *Server) CloseExport(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.CloseExport()
	w.WriteHeader(http.StatusNoContent)
}

// ConfirmExport handles POST /sessions/{id}/export/confirm and streams the artifact.
func (s *Server) ConfirmExport(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	art, err := sess.ConfirmExport(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	contentType := art.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", art.Name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(art.Body)
}

// session resolves the {id} path parameter. It writes the error response itself.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*sessionuc.Session, bool) {
	var id string
	if !bindPath(w, r, "id", &id) {
		return nil, false
	}
	sess, err := s.sessions.Get(id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return nil, false
	}
	return sess, true
}

// bindPath binds and unescapes a path parameter.
func bindPath(w http.ResponseWriter, r *http.Request, name string, dest *string) bool {
	err := runtime.BindStyledParameterWithLocation("simple", false, name, runtime.ParamLocationPath,
		chi.URLParam(r, name), dest)
	if err != nil || *dest == "" {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, fmt.Sprintf("invalid %s parameter", name))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrSessionNotFound,
		domain.ErrItemNotFound,
		domain.ErrDatasetNotFound,
		domain.ErrExportNotOpen,
		domain.ErrNothingSelected,
		domain.ErrResponseTimeout,
		domain.ErrSearchTransport,
		domain.ErrChannelClosed,
		context.DeadlineExceeded,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// validationMessage returns the field message of a ValidationError.
func validationMessage(err error) string {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return ve.Message
	}
	return domain.ErrValidation.Error()
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// validationHandler reports a ValidationError with its field.
func validationHandler(w http.ResponseWriter, err error, _ string) bool {
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		return false
	}
	writeJSON(w, http.StatusBadRequest, ErrorResponse{
		Code:    ErrorCodeValidationFailed,
		Message: ve.Message,
		Errors:  map[string]string{ve.Field: ve.Message},
	})
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	logger := logpkg.FromContextOr(r.Context(), s.logger)
	logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}
