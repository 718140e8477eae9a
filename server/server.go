// Package server exposes the crosswalk resolution API over HTTP. Requests
// authenticate with an API token, route by domain slug, and respond with
// the flattened entity envelope.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/The-Politico/crosswalk/config"
	"github.com/The-Politico/crosswalk/resolve"
	"github.com/The-Politico/crosswalk/scorer"
	"github.com/The-Politico/crosswalk/storage"
)

// Server is the crosswalk HTTP API server.
type Server struct {
	cfg      *config.Config
	entities *storage.EntityStore
	domains  *storage.DomainStore
	users    *storage.UserStore
	service  *resolve.Service
	logger   *zap.SugaredLogger

	mux        *http.ServeMux
	httpServer *http.Server
}

// NewServer wires the stores and resolution service over db and registers
// all routes.
func NewServer(db *sql.DB, cfg *config.Config, logger *zap.SugaredLogger) *Server {
	entities := storage.NewEntityStore(db, logger)
	domains := storage.NewDomainStore(db, logger)
	s := &Server{
		cfg:      cfg,
		entities: entities,
		domains:  domains,
		users:    storage.NewUserStore(db),
		service:  resolve.NewService(entities, domains, scorer.NewRegistry(), logger),
		logger:   logger,
		mux:      http.NewServeMux(),
	}
	s.setupRoutes()
	return s
}

// Handler returns the root handler, exposed for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start runs the HTTP server until Shutdown or a listener error.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Server.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	if s.logger != nil {
		s.logger.Infow("Starting crosswalk server", "addr", addr, "auth", s.cfg.Server.AuthEnabled)
	}
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
