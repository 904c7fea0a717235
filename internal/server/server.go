// Package server exposes the coach over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/moorebrett0/climbcoach/internal/config"
)

const maxBodyBytes = 64 << 10

// Coach answers one question.
type Coach interface {
	Ask(ctx context.Context, question string) (string, error)
}

// Status is what /health reports about the loaded data.
type Status struct {
	Exercises int
	SheetRows int
	Ascents   int
}

// Server is the HTTP front-end.
type Server struct {
	cfg    config.ServerConfig
	coach  Coach
	status Status
}

func New(cfg config.ServerConfig, coach Coach, status Status) *Server {
	return &Server{cfg: cfg, coach: coach, status: status}
}

// Handler returns the router with its middleware stack.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(cors(s.cfg.CORSOrigin))
	r.Use(logRequests)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	if s.cfg.RequestTimeout > 0 {
		r.Use(chimw.Timeout(s.cfg.RequestTimeout))
	}

	r.Get("/health", s.handleHealth)
	r.Post("/analyze", s.handleAnalyze)
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		slog.Info("server: listening", "addr", s.cfg.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	slog.Info("server: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type analyzeRequest struct {
	Message string `json:"message"`
}

type analyzeResponse struct {
	Reply  string `json:"reply,omitempty"`
	Error  string `json:"error,omitempty"`
	Status string `json:"status"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "No message provided")
		return
	}

	slog.Info("server: analyze", "message_len", len(req.Message))
	reply, err := s.coach.Ask(r.Context(), req.Message)
	if err != nil {
		slog.Error("server: coach failed", "err", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if reply == "" {
		writeError(w, http.StatusInternalServerError, "empty response from coach")
		return
	}

	writeJSON(w, http.StatusOK, analyzeResponse{Reply: reply, Status: "success"})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"exercises":  s.status.Exercises,
		"sheet_rows": s.status.SheetRows,
		"ascents":    s.status.Ascents,
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("server: write response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, analyzeResponse{Error: msg, Status: "error"})
}
