package httpapi

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	appIncident "github.com/quiz-hub/quiz-hub/internal/application/incident"
)

func (s *Server) listReports(w http.ResponseWriter, r *http.Request) {
	limit, offset := parseLimitOffset(r, 50, 200)
	list, err := s.reportSvc.List(r.Context(), limit, offset)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"reports": list, "limit": limit, "offset": offset})
}

func (s *Server) listSessionReports(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "sessionId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid sessionId")
		return
	}
	list, err := s.reportSvc.ListBySession(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"reports": list})
}

func (s *Server) getReport(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "reportId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid reportId")
		return
	}
	rep, err := s.reportSvc.Get(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rep)
}

func (s *Server) verifyReport(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "reportId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid reportId")
		return
	}
	ok, err := s.reportSvc.Verify(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"reportId": id, "valid": ok})
}

func (s *Server) queryIncidents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := appIncident.QueryParams{}
	if v := q.Get("session_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid session_id")
			return
		}
		params.SessionID = &id
	}
	if v := q.Get("kind"); v != "" {
		params.Kind = &v
	}
	if v := q.Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid since")
			return
		}
		params.Since = &t
	}
	if v := q.Get("cursor"); v != "" {
		params.Cursor = &v
	}
	params.Limit, _ = parseLimitOffset(r, 50, 200)

	res, err := s.incidentSvc.Query(r.Context(), params)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) getIncident(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "incidentId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid incidentId")
		return
	}
	inc, err := s.incidentSvc.GetByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, inc)
}
