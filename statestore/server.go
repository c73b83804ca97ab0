package statestore

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hedge-machine/models"
	"hedge-machine/observability"
)

// Server exposes a Store over HTTP so the pipeline and the store can live in
// separate processes. The whole state travels on every request.
type Server struct {
	store Store
}

// NewServer creates a Server backed by the given store.
func NewServer(store Store) *Server {
	return &Server{store: store}
}

// Router builds the chi router for the state store service.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(metricsMiddleware)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/state", s.handleGetState)
		r.Put("/state", s.handlePutState)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleGetState returns the stored state, or 404 when nothing has been
// stored. Absence is part of the contract, not an error condition.
func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	state, err := s.store.Get(r.Context())
	if err != nil {
		if errors.Is(err, ErrStateAbsent) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "no state stored"})
			return
		}
		observability.Error("failed to read state", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to read state"})
		return
	}

	writeJSON(w, http.StatusOK, state)
}

// handlePutState durably replaces the stored state before acknowledging.
func (s *Server) handlePutState(w http.ResponseWriter, r *http.Request) {
	var state models.AgentState
	if err := json.NewDecoder(r.Body).Decode(&state); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid state payload"})
		return
	}

	if err := s.store.Set(r.Context(), &state); err != nil {
		observability.Error("failed to write state", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to write state"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

// ListenAndServe runs the state store service until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		observability.Info("state store listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// metricsMiddleware records HTTP metrics for each request
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		routePattern := chi.RouteContext(r.Context()).RoutePattern()
		if routePattern == "" {
			routePattern = r.URL.Path
		}

		metrics := observability.GetMetrics()
		metrics.RecordHTTPRequest(r.Method, routePattern, strconv.Itoa(wrapped.statusCode), time.Since(start))
	})
}
