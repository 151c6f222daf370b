package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"askrelay/pkg/interfaces"
	"askrelay/pkg/types"
)

// SessionRuntime is the slice of the session store the API needs; an
// interface here keeps handlers testable with mocks
type SessionRuntime interface {
	ListPending() []types.PendingSessionView
	Submit(ctx context.Context, payload *types.SubmitPayload) error
}

// NotifierStats exposes UI connection counts without coupling to the
// notify.Registry implementation
type NotifierStats interface {
	GetStats() map[string]int
}

// Server is the UI-facing HTTP layer: listing, submission, resolution
// history and health. No business logic, only HTTP handling and JSON.
type Server struct {
	runtime SessionRuntime
	history interfaces.ResolutionLog
	stats   NotifierStats
	router  *http.ServeMux
}

// NewServer initializes all dependencies and sets up routing
func NewServer(runtime SessionRuntime, history interfaces.ResolutionLog, stats NotifierStats) *Server {
	s := &Server{
		runtime: runtime,
		history: history,
		stats:   stats,
		router:  http.NewServeMux(),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Handle("/api/asks", s.corsMiddleware(s.jsonMiddleware(http.HandlerFunc(s.handleAsks))))
	s.router.Handle("/api/asks/", s.corsMiddleware(s.jsonMiddleware(http.HandlerFunc(s.handleAskByID))))
	s.router.Handle("/api/resolutions", s.corsMiddleware(s.jsonMiddleware(http.HandlerFunc(s.handleResolutions))))
	s.router.Handle("/health", s.corsMiddleware(s.jsonMiddleware(http.HandlerFunc(s.healthCheck))))
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response types for JSON serialization
type ListAsksResponse struct {
	Asks []types.PendingSessionView `json:"asks"`
}

type ListResolutionsResponse struct {
	Resolutions []*types.ResolutionRecord `json:"resolutions"`
}

type HealthResponse struct {
	Status      string         `json:"status"`
	Timestamp   time.Time      `json:"timestamp"`
	Database    string         `json:"database"`
	Connections map[string]int `json:"connections"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// handleAsks handles GET /api/asks - the listing entry point the UI polls
func (s *Server) handleAsks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		json.NewEncoder(w).Encode(ListAsksResponse{Asks: s.runtime.ListPending()})
	case http.MethodOptions:
		w.WriteHeader(http.StatusOK)
	default:
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleAskByID handles POST /api/asks/{id}/response - the submission entry
// point. A failed validation never mutates the session.
func (s *Server) handleAskByID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/asks/")
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "response" {
		s.sendError(w, "Not found", http.StatusNotFound)
		return
	}
	askID := parts[0]

	switch r.Method {
	case http.MethodPost:
		s.submitResponse(w, r, askID)
	case http.MethodOptions:
		w.WriteHeader(http.StatusOK)
	default:
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) submitResponse(w http.ResponseWriter, r *http.Request, askID string) {
	var payload types.SubmitPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.sendError(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if payload.AskID == "" {
		payload.AskID = askID
	}
	if payload.AskID != askID {
		s.sendError(w, "ask_id does not match URL", http.StatusBadRequest)
		return
	}

	if err := s.runtime.Submit(r.Context(), &payload); err != nil {
		switch {
		case errors.Is(err, interfaces.ErrSessionNotFound),
			errors.Is(err, interfaces.ErrSessionExpired):
			s.sendError(w, err.Error(), http.StatusNotFound)
		default:
			// Validation failures: session stays pending, reason goes back as text
			s.sendError(w, err.Error(), http.StatusBadRequest)
		}
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"message": "Response submitted successfully"})
}

// handleResolutions handles GET /api/resolutions - terminal outcome history
func (s *Server) handleResolutions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
	case http.MethodOptions:
		w.WriteHeader(http.StatusOK)
		return
	default:
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			s.sendError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	records, err := s.history.ListResolutions(r.Context(), limit)
	if err != nil {
		s.sendError(w, "Failed to list resolutions", http.StatusInternalServerError)
		return
	}

	if records == nil {
		records = []*types.ResolutionRecord{}
	}

	json.NewEncoder(w).Encode(ListResolutionsResponse{Resolutions: records})
}

// healthCheck handles GET /health - database and notifier status
func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "healthy"
	dbStatus := "healthy"

	if err := s.history.HealthCheck(ctx); err != nil {
		status = "unhealthy"
		dbStatus = fmt.Sprintf("error: %v", err)
	}

	response := HealthResponse{
		Status:      status,
		Timestamp:   time.Now(),
		Database:    dbStatus,
		Connections: s.stats.GetStats(),
	}

	if status == "unhealthy" {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	json.NewEncoder(w).Encode(response)
}

// sendError writes the consistent error response format
func (s *Server) sendError(w http.ResponseWriter, message string, code int) {
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   http.StatusText(code),
		Code:    code,
		Message: message,
	})
}

// corsMiddleware enables web client access for the local UI
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// jsonMiddleware ensures proper content-type headers
func (s *Server) jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}
