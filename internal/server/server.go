// Package server exposes layouts, widget records, edit sessions and live
// updates over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/fourbar/fourbar/pkg/pipeline"
	"github.com/fourbar/fourbar/pkg/realtime"
	"github.com/fourbar/fourbar/pkg/session"
)

// Options configure a Server.
type Options struct {
	// Runner loads, renders and saves layouts. Its Store must be set.
	Runner *pipeline.Runner

	// Hub carries live events. A hub accepting every origin is created when nil.
	Hub *realtime.Hub

	// Sessions stores edit session metadata. In-memory when nil.
	Sessions session.Store

	// SessionTTL is the idle lifetime of an edit session.
	SessionTTL time.Duration

	Logger *log.Logger
}

// Server is the fourbar HTTP API.
type Server struct {
	runner  *pipeline.Runner
	hub     *realtime.Hub
	editors *EditorManager
	logger  *log.Logger
	router  chi.Router
}

// New creates a server and its routes.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	hub := opts.Hub
	if hub == nil {
		hub = realtime.NewHub(realtime.Options{Logger: logger})
	}
	sessions := opts.Sessions
	if sessions == nil {
		sessions = session.NewMemoryStore()
	}

	s := &Server{
		runner:  opts.Runner,
		hub:     hub,
		editors: NewEditorManager(opts.Runner, hub, sessions, opts.SessionTTL, logger),
		logger:  logger,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/health", s.handleHealth)
	r.Get("/communities/{id}", s.handleView)
	r.Get("/communities/{id}/preview.svg", s.handlePreview)

	r.Route("/api/communities/{id}", func(r chi.Router) {
		r.Get("/layout", s.handleGetLayout)
		r.Put("/layout", s.handlePutLayout)
		r.Get("/widgets", s.handleListWidgets)
		r.Post("/widgets", s.handlePutWidget)
		r.Delete("/widgets/{type}/{widgetID}", s.handleDeleteWidget)
		r.Get("/events", s.handleEvents)
		r.Post("/editor", s.handleOpenEditor)
	})

	r.Route("/api/editor/{sid}", func(r chi.Router) {
		r.Get("/", s.handleEditorHTML)
		r.Delete("/", s.handleCloseEditor)
		r.Get("/summary", s.handleEditorSummary)
		r.Post("/rows", s.handleAddRow)
		r.Delete("/rows", s.handleRemoveRow)
		r.Post("/rows/{y}/columns", s.handleAddColumn)
		r.Delete("/rows/{y}/columns", s.handleRemoveColumn)
		r.Post("/palette", s.handleAddAvailable)
		r.Post("/drop", s.handleDrop)
		r.Post("/save", s.handleSave)
	})
	return r
}

// Handler returns the server's root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Editors returns the server's edit session manager.
func (s *Server) Editors() *EditorManager {
	return s.editors
}

// Hub returns the server's event hub.
func (s *Server) Hub() *realtime.Hub {
	return s.hub
}

// Timeouts bound request handling and shutdown.
type Timeouts struct {
	Read     time.Duration
	Write    time.Duration
	Shutdown time.Duration
}

// Run serves on addr until ctx is done, then shuts down gracefully.
// Expired edit sessions are swept every cleanup interval when it is positive.
func (s *Server) Run(ctx context.Context, addr string, t Timeouts, cleanup time.Duration) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  t.Read,
		WriteTimeout: t.Write,
	}

	if cleanup > 0 {
		go s.editors.RunCleanup(ctx, cleanup)
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdown := t.Shutdown
	if shutdown <= 0 {
		shutdown = 10 * time.Second
	}
	sctx, cancel := context.WithTimeout(context.Background(), shutdown)
	defer cancel()
	s.logger.Info("shutting down")
	return srv.Shutdown(sctx)
}
