package service

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/review-impact/impact-sim/sim"
	"github.com/review-impact/impact-sim/sim/impact"
)

// Server wires the HTTP handlers of the impact API.
type Server struct {
	analyzer    *Analyzer
	metrics     *Metrics
	bus         *redis.Client
	requestList string
}

// NewServer constructs the API server. bus may be nil, in which case requests
// can only be analyzed synchronously.
func NewServer(analyzer *Analyzer, metrics *Metrics, bus *redis.Client, requestList string) *Server {
	return &Server{analyzer: analyzer, metrics: metrics, bus: bus, requestList: requestList}
}

// Router builds the HTTP router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.metrics != nil {
		r.Mount("/metrics", s.metrics.Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/impact", s.handleImpact)
		if s.bus != nil {
			r.Post("/requests", s.handleSubmit)
		}
	})
	return r
}

// handleImpact analyzes the posted change request and answers with its report.
func (s *Server) handleImpact(w http.ResponseWriter, r *http.Request) {
	requestID := r.Header.Get("X-Request-ID")
	var req sim.ChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		report := s.analyzer.Reject(SourceHTTP, requestID, fmt.Errorf("decode request: %w", err))
		writeJSON(w, http.StatusBadRequest, report)
		return
	}
	report := s.analyzer.Analyze(r.Context(), SourceHTTP, requestID, req)
	writeJSON(w, statusCode(report.Status), report)
}

type submitResponse struct {
	RequestID string `json:"request_id"`
}

// handleSubmit queues the posted change request on the bus for the listener.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req sim.ChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	id, err := Submit(r.Context(), s.bus, s.requestList, req)
	if err != nil {
		logrus.Errorf("Submitting change request: %v", err)
		http.Error(w, "enqueue failed", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusAccepted, submitResponse{RequestID: id})
}

func statusCode(status impact.Status) int {
	switch status {
	case impact.StatusOK:
		return http.StatusOK
	case impact.StatusInvalidRequest:
		return http.StatusBadRequest
	case impact.StatusNotConverged:
		return http.StatusUnprocessableEntity
	case impact.StatusLoadFailed:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}
