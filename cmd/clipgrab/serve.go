package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/amaumene/clipgrab/internal/api"
	"github.com/amaumene/clipgrab/internal/config"
	"github.com/amaumene/clipgrab/internal/controllers"
	"github.com/amaumene/clipgrab/internal/models"
	"github.com/amaumene/clipgrab/internal/pipeline"
	"github.com/amaumene/clipgrab/internal/scheduler"
	"github.com/amaumene/clipgrab/internal/services/ffmpeg"
	"github.com/amaumene/clipgrab/internal/services/ytdlp"
	"github.com/amaumene/clipgrab/internal/utils"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}

	cmd.Flags().String("port", "", "listen port")
	cmd.Flags().String("public-dir", "", "directory of the static UI")
	viper.BindPFlag("PORT", cmd.Flags().Lookup("port"))
	viper.BindPFlag("PUBLIC_DIR", cmd.Flags().Lookup("public-dir"))

	return cmd
}

func runServe(parent context.Context) error {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// 2. Setup logger
	logger := utils.NewLogger(cfg.LogLevel, cfg.LogFormat)
	logger.Info("Starting clipgrab")
	logger.WithField("config_dir", filepath.Dir(cfg.DatabaseFile)).Info("Configuration loaded")

	// 3. Initialize database
	db, err := models.NewDatabase(cfg.DatabaseFile)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()
	logger.Info("Database initialized")

	// 4. Initialize services
	runner := pipeline.NewRunner(logger)
	ytdlpClient := ytdlp.NewClient(cfg, runner, logger)
	ffmpegClient := ffmpeg.NewClient(cfg)
	logger.WithFields(logrus.Fields{
		"ytdlp":  cfg.YtDlpPath,
		"ffmpeg": cfg.FFmpegPath,
	}).Info("Tool clients initialized")

	// 5. Initialize controllers
	probeCtrl := controllers.NewProbeController(ytdlpClient, db, cfg.ProbeRetryDelay, logger)
	downloadCtrl := controllers.NewDownloadController(runner, ytdlpClient, ffmpegClient, db, cfg.StreamTimeout, logger)
	toolCtrl := controllers.NewToolCheckController(afero.NewOsFs(), runner, db, ytdlpClient, ffmpegClient, logger)
	logger.Info("Controllers initialized")

	// 6. Initialize scheduler
	sched := scheduler.NewScheduler(toolCtrl, scheduler.Options{
		ToolCheckSchedule: cfg.ToolCheckSchedule,
		AutoUpdate:        cfg.AutoUpdate,
		UpdateSchedule:    cfg.UpdateSchedule,
	}, logger)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer sched.Stop()

	// 7. Initialize HTTP server
	publicFs := afero.NewBasePathFs(afero.NewOsFs(), cfg.PublicDir)
	server := api.NewServer(cfg, db, probeCtrl, downloadCtrl, publicFs, logger)

	// Start server in goroutine
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	serverErrChan := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil {
			serverErrChan <- err
		}
	}()

	// 8. Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	logger.WithField("port", cfg.ServerPort).Info("clipgrab is running")

	select {
	case err := <-serverErrChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		logger.WithField("signal", sig).Info("Received shutdown signal")
		cancel()
		if err := server.Shutdown(context.Background()); err != nil {
			logger.WithError(err).Error("Error during server shutdown")
		}
	}

	logger.Info("clipgrab stopped")
	return nil
}
