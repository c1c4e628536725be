package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	appIncident "github.com/quiz-hub/quiz-hub/internal/application/incident"
	appReport "github.com/quiz-hub/quiz-hub/internal/application/report"
	appSession "github.com/quiz-hub/quiz-hub/internal/application/session"
	"github.com/quiz-hub/quiz-hub/internal/domain/game"
	"github.com/quiz-hub/quiz-hub/internal/domain/incident"
	"github.com/quiz-hub/quiz-hub/internal/domain/report"
	"github.com/quiz-hub/quiz-hub/internal/infrastructure/sse"
	"github.com/quiz-hub/quiz-hub/internal/infrastructure/websocket"
)

// PackLister lists the packages sessions can be created from.
type PackLister interface {
	List() ([]string, error)
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	sessionSvc  *appSession.Service
	reportSvc   *appReport.Service
	incidentSvc *appIncident.Service
	packs       PackLister
	sseHub      *sse.Hub
	gateway     *websocket.Gateway
	logger      zerolog.Logger
}

func NewServer(
	sessionSvc *appSession.Service,
	reportSvc *appReport.Service,
	incidentSvc *appIncident.Service,
	packs PackLister,
	sseHub *sse.Hub,
	gateway *websocket.Gateway,
	logger zerolog.Logger,
) *Server {
	return &Server{
		sessionSvc:  sessionSvc,
		reportSvc:   reportSvc,
		incidentSvc: incidentSvc,
		packs:       packs,
		sseHub:      sseHub,
		gateway:     gateway,
		logger:      logger.With().Str("service", "http").Logger(),
	}
}

// Router builds the HTTP router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.health)

	r.Route("/v1", func(r chi.Router) {
		// Streams stay open for the whole game.
		r.Get("/sessions/{sessionId}/stream", s.sseEndpoint)
		r.Get("/sessions/{sessionId}/ws", s.wsEndpoint)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))

			r.Get("/packs", s.listPacks)

			r.Route("/sessions", func(r chi.Router) {
				r.Post("/", s.createSession)
				r.Get("/", s.listSessions)
				r.Get("/{sessionId}", s.getSession)
				r.Delete("/{sessionId}", s.closeSession)
				r.Post("/{sessionId}/messages", s.postMessage)
				r.Post("/{sessionId}/step", s.stepSession)
				r.Get("/{sessionId}/snapshot", s.getSnapshot)
				r.Get("/{sessionId}/diagnostics", s.getDiagnostics)
				r.Get("/{sessionId}/reports", s.listSessionReports)
			})

			r.Route("/reports", func(r chi.Router) {
				r.Get("/", s.listReports)
				r.Get("/{reportId}", s.getReport)
				r.Get("/{reportId}/verify", s.verifyReport)
			})

			r.Route("/incidents", func(r chi.Router) {
				r.Get("/", s.queryIncidents)
				r.Get("/{incidentId}", s.getIncident)
			})
		})
	})

	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"sessions": s.sessionSvc.Count(),
	})
}

// Helpers
func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, map[string]interface{}{
		"error":   code,
		"message": message,
	})
}

// respondServiceError maps a service error onto a status and error code.
func respondServiceError(w http.ResponseWriter, err error) {
	var pv *game.ProtocolViolation
	switch {
	case errors.Is(err, appSession.ErrNotFound),
		errors.Is(err, report.ErrNotFound),
		errors.Is(err, incident.ErrNotFound):
		respondError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, appSession.ErrInvalidParams):
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
	case errors.Is(err, game.ErrWrongPassword),
		errors.Is(err, game.ErrNotAuthorized),
		errors.Is(err, game.ErrBanned):
		respondError(w, http.StatusForbidden, "FORBIDDEN", err.Error())
	case errors.As(err, &pv):
		respondError(w, http.StatusUnprocessableEntity, "REJECTED", err.Error())
	case errors.Is(err, game.ErrSessionFinished):
		respondError(w, http.StatusGone, "SESSION_FINISHED", err.Error())
	case errors.Is(err, game.ErrLockTimeout):
		respondError(w, http.StatusServiceUnavailable, "BUSY", err.Error())
	case errors.Is(err, appReport.ErrNoStore):
		respondError(w, http.StatusServiceUnavailable, "NO_STORE", err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
	}
}

func parseUUIDParam(r *http.Request, key string) (uuid.UUID, error) {
	val := chi.URLParam(r, key)
	return uuid.Parse(val)
}

func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func parseLimitOffset(r *http.Request, defaultLimit, maxLimit int) (int, int) {
	limit := defaultLimit
	offset := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if l, err := strconv.Atoi(v); err == nil {
			limit = l
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if o, err := strconv.Atoi(v); err == nil {
			offset = o
		}
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
