// Package api exposes the session store and the processing pipeline
// over HTTP for the browser frontend.
package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/pdfgarden/pdfgarden/internal/config"
	"github.com/pdfgarden/pdfgarden/internal/crypto"
	"github.com/pdfgarden/pdfgarden/internal/crypto/types"
	"github.com/pdfgarden/pdfgarden/internal/ingest"
	"github.com/pdfgarden/pdfgarden/internal/metrics"
	"github.com/pdfgarden/pdfgarden/internal/pdf"
	"github.com/pdfgarden/pdfgarden/internal/pipeline"
	"github.com/pdfgarden/pdfgarden/internal/store"
)

// Collaborators bundle the document backends the server dispatches to.
type Collaborators struct {
	Renderer  pdf.Renderer
	Prober    pdf.Prober
	Assembler pdf.Assembler
	Merger    pdf.Merger
	Unlocker  pdf.Unlocker
}

// DefaultCollaborators returns the production pdfcpu/mupdf backends.
func DefaultCollaborators() Collaborators {
	return Collaborators{
		Renderer:  pdf.NewRenderer(),
		Prober:    pdf.NewProber(),
		Assembler: pdf.NewAssembler(),
		Merger:    pdf.NewMerger(),
		Unlocker:  pdf.NewUnlocker(),
	}
}

// Server owns the session state and routes requests to it.
type Server struct {
	config       *config.Config
	store        *store.Store
	session      *crypto.Session
	ingestor     *ingest.Ingestor
	orchestrator *pipeline.Orchestrator
	preview      *pipeline.PreviewGenerator
	collab       Collaborators
	metrics      *metrics.Metrics
	router       *mux.Router
	log          *logrus.Entry

	// baseCtx outlives individual requests; processing jobs started by
	// a request keep running after the response is written.
	baseCtx    context.Context
	cancelJobs context.CancelFunc
	jobs       sync.WaitGroup
}

// NewServer wires the whole session: a fresh encryption key, an empty
// store and the processing collaborators.
func NewServer(cfg *config.Config, collab Collaborators) (*Server, error) {
	sess, err := crypto.NewSession(types.Algorithm(cfg.Crypto.Algorithm))
	if err != nil {
		return nil, fmt.Errorf("failed to create crypto session: %w", err)
	}

	m := metrics.NewMetrics("pdfgarden")
	st := store.New()

	previewGen, err := pipeline.NewPreviewGenerator(
		sess, st, collab.Renderer, m,
		cfg.Pipeline.PreviewCacheSize, cfg.Pipeline.PreviewThrottle,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create preview generator: %w", err)
	}

	baseCtx, cancel := context.WithCancel(context.Background())

	s := &Server{
		config:       cfg,
		store:        st,
		session:      sess,
		ingestor:     ingest.New(sess, st, collab.Prober, m),
		orchestrator: pipeline.NewOrchestrator(st, sess, m),
		preview:      previewGen,
		collab:       collab,
		metrics:      m,
		router:       mux.NewRouter(),
		log:          logrus.WithField("component", "api"),
		baseCtx:      baseCtx,
		cancelJobs:   cancel,
	}

	s.setupRoutes()
	s.router.Use(m.Middleware())

	if cfg.Limits.Enabled {
		rl := NewRateLimiter(cfg.Limits.GlobalRPS, cfg.Limits.Burst)
		s.router.Use(rl.Middleware(cfg.Limits.PerIPRPS))
	}
	if cfg.Limits.MaxConcurrent > 0 {
		cl := NewConcurrencyLimiter(cfg.Limits.MaxConcurrent)
		s.router.Use(cl.Middleware())
	}

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Shutdown stops background processing jobs and waits for them.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancelJobs()

	done := make(chan struct{})
	go func() {
		s.jobs.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.Handle("/metrics", s.metrics.Handler()).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/files", s.handleUpload).Methods("POST")
	api.HandleFunc("/files", s.handleList).Methods("GET")
	api.HandleFunc("/files/{id}", s.handleGetFile).Methods("GET")
	api.HandleFunc("/files/{id}", s.handleRemoveFile).Methods("DELETE")
	api.HandleFunc("/files/{id}/unlock", s.handleUnlock).Methods("POST")
	api.HandleFunc("/files/{id}/preview", s.handlePreview).Methods("GET")
	api.HandleFunc("/files/{id}/pages/{page}", s.handleDownloadPage).Methods("GET")
	api.HandleFunc("/files/{id}/download", s.handleDownloadFile).Methods("GET")
	api.HandleFunc("/jobs", s.handleStartJob).Methods("POST")
	api.HandleFunc("/merge", s.handleMerge).Methods("POST")
	api.HandleFunc("/password", s.handleGeneratePassword).Methods("POST")
	api.HandleFunc("/download", s.handleDownloadAll).Methods("GET")
	api.HandleFunc("/session", s.handleSessionStats).Methods("GET")
	api.HandleFunc("/session/reset", s.handleReset).Methods("POST")
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"healthy"}`))
}

// startJob runs a strategy over all pending records in the background,
// tied to the server's lifetime rather than the request's.
func (s *Server) startJob(strat pipeline.Strategy) {
	s.jobs.Add(1)
	go func() {
		defer s.jobs.Done()
		s.orchestrator.RunAll(s.baseCtx, strat)
	}()
}
