package scheduler

import (
	"context"
	"fmt"

	"github.com/amaumene/clipgrab/internal/models"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// ToolMaintainer checks and updates the external tools
type ToolMaintainer interface {
	CheckAll(ctx context.Context) []*models.ToolStatus
	UpdateExtractor(ctx context.Context) error
}

// Options selects the scheduled jobs
type Options struct {
	ToolCheckSchedule string
	AutoUpdate        bool
	UpdateSchedule    string
}

// Scheduler manages scheduled tasks
type Scheduler struct {
	cron   *cron.Cron
	tools  ToolMaintainer
	opts   Options
	logger *logrus.Logger
}

// NewScheduler creates a new scheduler
func NewScheduler(tools ToolMaintainer, opts Options, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		tools:  tools,
		opts:   opts,
		logger: logger,
	}
}

// Start registers the jobs, starts the scheduler and runs an initial tool check
func (s *Scheduler) Start() error {
	s.logger.Info("Starting scheduler")

	_, err := s.cron.AddFunc(s.opts.ToolCheckSchedule, func() {
		s.runToolCheck()
	})
	if err != nil {
		return fmt.Errorf("failed to add tool check job: %w", err)
	}

	if s.opts.AutoUpdate {
		_, err = s.cron.AddFunc(s.opts.UpdateSchedule, func() {
			s.runUpdate()
		})
		if err != nil {
			return fmt.Errorf("failed to add update job: %w", err)
		}
	}

	s.cron.Start()
	s.logger.WithFields(logrus.Fields{
		"tool_check":  s.opts.ToolCheckSchedule,
		"auto_update": s.opts.AutoUpdate,
	}).Info("Scheduler started")

	go s.runToolCheck()

	return nil
}

// Stop stops the scheduler and waits for running jobs
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping scheduler")
	<-s.cron.Stop().Done()
}

// runToolCheck executes the tool check job
func (s *Scheduler) runToolCheck() {
	s.logger.Debug("Running tool check")

	available := 0
	statuses := s.tools.CheckAll(context.Background())
	for _, status := range statuses {
		if status.Available {
			available++
		}
	}

	s.logger.WithFields(logrus.Fields{
		"available": available,
		"total":     len(statuses),
	}).Debug("Tool check completed")
}

// runUpdate executes the extraction tool update job
func (s *Scheduler) runUpdate() {
	s.logger.Info("Running scheduled extraction tool update")

	if err := s.tools.UpdateExtractor(context.Background()); err != nil {
		s.logger.WithError(err).Error("Update job failed")
	} else {
		s.logger.Info("Update job completed successfully")
	}
}
