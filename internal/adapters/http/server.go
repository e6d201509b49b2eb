// Package http exposes the simulation pipeline as a small JSON API: submit
// a protocol, fetch stored run logs, and scrape service metrics.
package http

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wetbench/labsim"
	"github.com/wetbench/labsim/internal/observability"
	"github.com/wetbench/labsim/pkg/domain"
	"github.com/wetbench/labsim/pkg/ports"
)

// Simulator runs one protocol simulation. The HTTP layer depends on this
// narrow interface so tests can stub the pipeline.
type Simulator interface {
	Simulate(ctx context.Context, contents []byte, fileName string) (domain.RunLog, *domain.BundleContents, error)
}

// SimulatorFunc adapts a function to the Simulator interface.
type SimulatorFunc func(ctx context.Context, contents []byte, fileName string) (domain.RunLog, *domain.BundleContents, error)

func (f SimulatorFunc) Simulate(ctx context.Context, contents []byte, fileName string) (domain.RunLog, *domain.BundleContents, error) {
	return f(ctx, contents, fileName)
}

// Server handles the run endpoints.
type Server struct {
	sim     Simulator
	store   ports.RunStore
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewHandler wires the routes for the simulation service.
func NewHandler(sim Simulator, store ports.RunStore, metrics *observability.Metrics, logger *slog.Logger) http.Handler {
	s := &Server{
		sim:     sim,
		store:   store,
		metrics: metrics,
		logger:  logger,
	}

	r := chi.NewRouter()
	r.Get("/healthz", s.health)
	r.Handle("/metrics", metrics.Handler())
	r.Post("/runs", s.createRun)
	r.Get("/runs", s.listRuns)
	r.Get("/runs/{id}", s.getRun)
	r.Get("/runs/{id}/text", s.getRunText)
	r.Delete("/runs/{id}", s.deleteRun)
	return r
}

// createRunRequest is the POST /runs body. Content carries the protocol;
// set encoding to "base64" for binary bundle archives.
type createRunRequest struct {
	FileName string `json:"fileName"`
	Content  string `json:"content"`
	Encoding string `json:"encoding,omitempty"`
}

// createRunResponse is the stored record plus the rendered run log, so
// simple clients need no second round trip.
type createRunResponse struct {
	*domain.RunRecord
	Text  string `json:"text,omitempty"`
	Error string `json:"error,omitempty"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) createRun(w http.ResponseWriter, r *http.Request) {
	var req createRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.FileName == "" || req.Content == "" {
		http.Error(w, "fileName and content are required", http.StatusBadRequest)
		return
	}

	contents := []byte(req.Content)
	if req.Encoding == "base64" {
		decoded, err := base64.StdEncoding.DecodeString(req.Content)
		if err != nil {
			http.Error(w, "Invalid base64 content", http.StatusBadRequest)
			return
		}
		contents = decoded
	}

	start := time.Now()
	runlog, bundleContents, err := s.sim.Simulate(r.Context(), contents, req.FileName)
	status := "ok"
	if err != nil {
		status = "error"
	}
	s.metrics.ObserveRun(status, time.Since(start), runlog)

	if err != nil {
		var execErr *domain.ExecutionError
		if !errors.As(err, &execErr) {
			s.writeSimulationError(w, err)
			return
		}
		// An execution failure still produced a partial run log worth
		// keeping.
		s.logger.Warn("protocol execution failed", "file", req.FileName, "err", err)
	}

	rec := &domain.RunRecord{
		ID:        newRunID(),
		FileName:  req.FileName,
		CreatedAt: time.Now().UTC(),
		RunLog:    runlog,
		Bundle:    bundleContents,
	}
	if saveErr := s.store.Save(r.Context(), rec); saveErr != nil {
		s.logger.Error("cannot persist run", "id", rec.ID, "err", saveErr)
		http.Error(w, "Failed to persist run", http.StatusInternalServerError)
		return
	}

	resp := createRunResponse{RunRecord: rec}
	if err != nil {
		resp.Error = err.Error()
	} else if text, ferr := labsim.FormatRunLog(runlog); ferr == nil {
		resp.Text = text
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("cannot encode run response", "err", err)
	}
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	ids, err := s.store.List(r.Context())
	if err != nil {
		http.Error(w, "Failed to list runs", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string][]string{"runs": ids}); err != nil {
		s.logger.Error("cannot encode run list", "err", err)
	}
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.loadRun(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(rec); err != nil {
		s.logger.Error("cannot encode run", "id", rec.ID, "err", err)
	}
}

func (s *Server) getRunText(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.loadRun(w, r)
	if !ok {
		return
	}

	text, err := labsim.FormatRunLog(rec.RunLog)
	if err != nil {
		http.Error(w, "Failed to render run log", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(text + "\n"))
}

func (s *Server) deleteRun(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		http.Error(w, "Failed to delete run", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) loadRun(w http.ResponseWriter, r *http.Request) (*domain.RunRecord, bool) {
	id := chi.URLParam(r, "id")
	rec, err := s.store.Load(r.Context(), id)
	if err != nil {
		if errors.Is(err, ports.ErrRunNotFound) {
			http.Error(w, "Run not found", http.StatusNotFound)
			return nil, false
		}
		http.Error(w, "Failed to load run", http.StatusInternalServerError)
		return nil, false
	}
	return rec, true
}

// writeSimulationError maps pre-execution failures to client error codes:
// malformed protocols and resources are the caller's fault, incompatible
// flag combinations are unprocessable.
func (s *Server) writeSimulationError(w http.ResponseWriter, err error) {
	var (
		parseErr *domain.ParseError
		confErr  *domain.ConfigurationError
		resErr   *domain.ResourceError
	)
	switch {
	case errors.As(err, &parseErr), errors.As(err, &resErr):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.As(err, &confErr):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		s.logger.Error("simulation failed", "err", err)
		http.Error(w, "Simulation failed", http.StatusInternalServerError)
	}
}

func newRunID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return time.Now().UTC().Format("run-20060102150405.000000000")
	}
	return "run-" + hex.EncodeToString(buf)
}
