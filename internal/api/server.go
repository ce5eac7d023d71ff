// Package api exposes the daemon's local HTTP surface: the retained
// snapshot, command relays, health, and Prometheus metrics.
package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/dm/tdarrmon/internal/client"
	"github.com/dm/tdarrmon/internal/engine"
	"github.com/dm/tdarrmon/internal/metrics"
	"github.com/dm/tdarrmon/internal/model"
)

// Server wires the coordinator and command relay into HTTP handlers.
type Server struct {
	coord *engine.Coordinator
	cmds  *engine.Commands
	log   zerolog.Logger
}

// NewServer creates the HTTP surface over the given coordinator and relay.
func NewServer(coord *engine.Coordinator, cmds *engine.Commands, log zerolog.Logger) *Server {
	return &Server{coord: coord, cmds: cmds, log: log}
}

// Router builds the chi handler tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", s.handleHealthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/snapshot", s.handleSnapshot)
		r.Post("/refresh", s.handleRefresh)
		r.Post("/libraries/scan", s.handleScan)
		r.Post("/settings/pause-all", s.handlePauseAll)
		r.Post("/settings/ignore-schedules", s.handleIgnoreSchedules)
		r.Route("/nodes/{node}", func(r chi.Router) {
			r.Post("/paused", s.handleNodePaused)
			r.Post("/worker-limits", s.handleWorkerLimit)
			r.Post("/workers/{worker}/cancel", s.handleCancelWorker)
		})
	})

	return r
}

// snapshotEnvelope wraps the retained snapshot with its freshness.
type snapshotEnvelope struct {
	Available bool            `json:"available"`
	LastError string          `json:"lastError,omitempty"`
	Snapshot  *model.Snapshot `json:"snapshot"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, available, lastErr := s.coord.Latest()
	if snap == nil {
		s.writeError(w, http.StatusServiceUnavailable, "no snapshot yet", lastErr)
		return
	}
	env := snapshotEnvelope{Available: available, Snapshot: snap}
	if lastErr != nil {
		env.LastError = lastErr.Error()
	}
	s.writeJSON(w, http.StatusOK, env)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	snap, err := s.coord.Refresh(r.Context())
	if err != nil {
		s.commandError(w, "refresh", err)
		return
	}
	s.writeJSON(w, http.StatusOK, snapshotEnvelope{Available: true, Snapshot: snap})
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Library string `json:"library"`
		Mode    string `json:"mode"`
	}
	if !s.decodeBody(w, r, &req) {
		return
	}
	if req.Library == "" {
		s.writeError(w, http.StatusBadRequest, "library is required", nil)
		return
	}
	if err := s.cmds.ScanLibrary(r.Context(), req.Library, req.Mode); err != nil {
		s.commandError(w, "scan_library", err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "scanning"})
}

func (s *Server) handlePauseAll(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Paused bool `json:"paused"`
	}
	if !s.decodeBody(w, r, &req) {
		return
	}
	if err := s.cmds.SetPauseAll(r.Context(), req.Paused); err != nil {
		s.commandError(w, "pause_all", err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"paused": req.Paused})
}

func (s *Server) handleIgnoreSchedules(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Ignore bool `json:"ignore"`
	}
	if !s.decodeBody(w, r, &req) {
		return
	}
	if err := s.cmds.SetIgnoreSchedules(r.Context(), req.Ignore); err != nil {
		s.commandError(w, "ignore_schedules", err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"ignore": req.Ignore})
}

func (s *Server) handleNodePaused(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Paused bool `json:"paused"`
	}
	if !s.decodeBody(w, r, &req) {
		return
	}
	node := chi.URLParam(r, "node")
	if err := s.cmds.SetNodePaused(r.Context(), node, req.Paused); err != nil {
		s.commandError(w, "node_paused", err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"node": node, "paused": req.Paused})
}

func (s *Server) handleWorkerLimit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WorkerType string `json:"workerType"`
		Limit      *int   `json:"limit"`
	}
	if !s.decodeBody(w, r, &req) {
		return
	}
	if req.Limit == nil {
		s.writeError(w, http.StatusBadRequest, "limit is required", nil)
		return
	}
	node := chi.URLParam(r, "node")
	if err := s.cmds.SetWorkerLimit(r.Context(), node, req.WorkerType, *req.Limit); err != nil {
		s.commandError(w, "worker_limit", err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"node": node, "workerType": req.WorkerType, "limit": *req.Limit,
	})
}

func (s *Server) handleCancelWorker(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reason string `json:"reason"`
	}
	if !s.decodeBody(w, r, &req) {
		return
	}
	node := chi.URLParam(r, "node")
	worker := chi.URLParam(r, "worker")
	if err := s.cmds.CancelWorkerItem(r.Context(), node, worker, req.Reason); err != nil {
		s.commandError(w, "cancel_worker", err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"node": node, "worker": worker})
}

// commandError maps engine and client errors onto HTTP statuses.
func (s *Server) commandError(w http.ResponseWriter, op string, err error) {
	metrics.RecordCommandError(op)

	var (
		notFound   *engine.NotFoundError
		ambiguous  *engine.AmbiguousError
		validation *engine.ValidationError
		partial    *engine.PartialError
		rejected   *client.RejectedError
		unavail    *client.UnavailableError
	)
	switch {
	case errors.As(err, &validation):
		s.writeError(w, http.StatusBadRequest, validation.Error(), nil)
	case errors.As(err, &notFound):
		s.writeError(w, http.StatusNotFound, notFound.Error(), nil)
	case errors.As(err, &ambiguous):
		s.writeError(w, http.StatusConflict, ambiguous.Error(), nil)
	case errors.As(err, &partial):
		// The limit moved but not all the way; callers need the applied
		// count to decide whether to retry.
		s.writeJSON(w, http.StatusBadGateway, map[string]any{
			"error":     partial.Error(),
			"applied":   partial.Applied,
			"requested": partial.Requested,
		})
	case errors.As(err, &rejected):
		s.writeError(w, http.StatusBadGateway, rejected.Error(), nil)
	case errors.As(err, &unavail):
		s.writeError(w, http.StatusServiceUnavailable, unavail.Error(), nil)
	default:
		s.log.Error().Err(err).Str("op", op).Msg("command failed")
		s.writeError(w, http.StatusInternalServerError, "internal error", nil)
	}
}

func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body", err)
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error().Err(err).Msg("write response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string, err error) {
	body := map[string]string{"error": msg}
	if err != nil {
		body["detail"] = err.Error()
	}
	s.writeJSON(w, status, body)
}
