// Package api exposes the knowledge hub over REST. Routes are thin
// plumbing over the driving services; all retrieval and indexing
// logic lives in the core.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/khub-cli/internal/core/ports/driven"
	"github.com/custodia-labs/khub-cli/internal/core/ports/driving"
	"github.com/custodia-labs/khub-cli/internal/logger"
)

// shutdownTimeout bounds how long in-flight requests may run after
// the server is asked to stop.
const shutdownTimeout = 10 * time.Second

// Config holds server listen options.
type Config struct {
	Host string
	Port int
}

// Deps are the driving services the REST surface exposes.
type Deps struct {
	Search   driving.SearchService
	Answer   driving.AnswerService
	Indexer  driving.Indexer
	Scanner  driving.ScanService
	Library  driving.LibraryService
	Settings driving.SettingsService
	DocStore driven.DocumentStore
}

// Server is the REST server.
type Server struct {
	cfg    Config
	router *gin.Engine
}

// NewServer builds the server and its routes.
func NewServer(cfg Config, deps Deps) *Server {
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 8000
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	h := &handler{deps: deps}
	h.register(router)

	return &Server{cfg: cfg, router: router}
}

// Router returns the underlying handler, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start serves until the context is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("REST server listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return ctx.Err()
	}
}
