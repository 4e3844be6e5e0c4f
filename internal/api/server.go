package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/amaumene/clipgrab/internal/api/handlers"
	"github.com/amaumene/clipgrab/internal/api/middleware"
	"github.com/amaumene/clipgrab/internal/config"
	"github.com/amaumene/clipgrab/internal/controllers"
	"github.com/amaumene/clipgrab/internal/models"
	"github.com/amaumene/clipgrab/internal/services/ytdlp"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// Server represents the HTTP server
type Server struct {
	server       *http.Server
	db           *models.Database
	probeCtrl    *controllers.ProbeController
	downloadCtrl *controllers.DownloadController
	publicFs     afero.Fs
	cancelBase   context.CancelFunc
	logger       *logrus.Logger
}

// NewServer creates a new HTTP server. publicFs holds the static UI.
func NewServer(cfg *config.Config, db *models.Database, probeCtrl *controllers.ProbeController, downloadCtrl *controllers.DownloadController, publicFs afero.Fs, logger *logrus.Logger) *Server {
	s := &Server{
		db:           db,
		probeCtrl:    probeCtrl,
		downloadCtrl: downloadCtrl,
		publicFs:     publicFs,
		logger:       logger,
	}

	mux := http.NewServeMux()
	s.setupRoutes(mux)

	// Request contexts derive from baseCtx so shutdown can kill running streams
	baseCtx, cancel := context.WithCancel(context.Background())
	s.cancelBase = cancel

	s.server = &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           middleware.Logging(mux, logger),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}

	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(mux *http.ServeMux) {
	// Probe
	probeHandler := handlers.NewProbeHandler(s.probeCtrl, s.logger)
	mux.Handle("/probe", probeHandler)

	// Streams
	mux.Handle("/download", handlers.NewVideoHandler(s.downloadCtrl, s.logger))
	mux.Handle("/audio", handlers.NewAudioHandler(s.downloadCtrl, s.logger))

	// Health check
	healthHandler := handlers.NewHealthHandler(s.db, ytdlp.StageName, s.logger)
	mux.HandleFunc("/health", healthHandler.ServeHTTP)

	// Status endpoint
	statusHandler := handlers.NewStatusHandler(s.db, s.logger)
	mux.HandleFunc("/status", statusHandler.ServeHTTP)

	// Prometheus
	mux.Handle("/metrics", promhttp.Handler())

	// Static UI
	httpFs := afero.NewHttpFs(afero.NewReadOnlyFs(s.publicFs))
	mux.Handle("/", http.FileServer(httpFs.Dir("/")))
}

// Handler returns the root handler, middleware included
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	s.logger.WithField("port", s.server.Addr).Info("Starting HTTP server")

	errChan := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		s.cancelBase()
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the HTTP server. Streams still running after
// the grace period are cancelled, which kills their processes.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	err := s.server.Shutdown(shutdownCtx)
	s.cancelBase()
	if err != nil {
		s.logger.WithError(err).Warn("Graceful shutdown timed out, closing connections")
		return s.server.Close()
	}
	return nil
}
