package controllers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amaumene/clipgrab/internal/metrics"
	"github.com/amaumene/clipgrab/internal/models"
	"github.com/amaumene/clipgrab/internal/utils"
	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

// ErrNoUsableEncodings is the failure of an attempt that succeeded without playable formats
var ErrNoUsableEncodings = errors.New("no usable encodings found")

// ProbeFailure is returned when every planned attempt failed
type ProbeFailure struct {
	Attempts int
	Err      error // cause of the last attempt
}

func (e *ProbeFailure) Error() string {
	return fmt.Sprintf("probe failed after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *ProbeFailure) Unwrap() error {
	return e.Err
}

// AttemptExecutor runs one probe attempt
type AttemptExecutor interface {
	RunAttempt(ctx context.Context, attempt models.Attempt) (*models.ProbeResult, error)
}

// StatsRecorder receives aggregate outcomes. Only platforms and counts are recorded.
type StatsRecorder interface {
	RecordProbe(platform models.Platform, ok bool) error
	RecordStream(platform models.Platform, kind models.StreamKind, ok bool) error
}

// ProbeController discovers metadata and formats for a query
type ProbeController struct {
	executor   AttemptExecutor
	stats      StatsRecorder
	retryDelay time.Duration
	logger     *logrus.Logger
}

// NewProbeController creates a new probe controller. stats may be nil.
func NewProbeController(executor AttemptExecutor, stats StatsRecorder, retryDelay time.Duration, logger *logrus.Logger) *ProbeController {
	return &ProbeController{
		executor:   executor,
		stats:      stats,
		retryDelay: retryDelay,
		logger:     logger,
	}
}

// Probe tries the planned attempts one after the other and returns the first acceptable result
func (c *ProbeController) Probe(ctx context.Context, q models.MediaQuery) (*models.ProbeResult, error) {
	start := time.Now()
	attempts := PlanAttempts(q)
	strategy := StrategyFor(q.Platform)

	log := c.logger.WithFields(logrus.Fields{
		"platform": q.Platform,
		"attempts": len(attempts),
	})
	log.Debug("Starting probe")

	tried := 0
	operation := func() (*models.ProbeResult, error) {
		attempt := attempts[tried]
		tried++

		result, err := c.executor.RunAttempt(ctx, attempt)
		if err == nil && strategy.RetryOnEmpty && len(utils.FilterPlayable(result.Formats)) == 0 {
			err = ErrNoUsableEncodings
		}
		c.observeAttempt(attempt, err)

		if err != nil {
			if ctx.Err() != nil {
				return nil, backoff.Permanent(ctx.Err())
			}
			if tried >= len(attempts) {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		return result, nil
	}

	notify := func(err error, wait time.Duration) {
		log.WithError(err).WithFields(logrus.Fields{
			"attempt": tried,
			"next_in": wait,
		}).Debug("Probe attempt failed, trying next")
	}

	policy := backoff.WithContext(backoff.NewConstantBackOff(c.retryDelay), ctx)
	result, err := backoff.RetryNotifyWithData(operation, policy, notify)
	metrics.ProbeDuration.WithLabelValues(string(q.Platform)).Observe(time.Since(start).Seconds())

	if err != nil {
		c.recordProbe(q.Platform, false)
		if ctxErr := ctx.Err(); ctxErr != nil {
			log.WithError(ctxErr).Info("Probe cancelled")
			return nil, ctxErr
		}

		failure := &ProbeFailure{Attempts: tried, Err: err}
		log.WithError(failure).Warn("Probe failed")
		return nil, failure
	}

	c.recordProbe(q.Platform, true)
	log.WithFields(logrus.Fields{
		"attempt": tried,
		"formats": len(result.Formats),
	}).Info("Probe succeeded")

	return result, nil
}

// Preview probes q and reduces the format list to the shortlist shown to users
func (c *ProbeController) Preview(ctx context.Context, q models.MediaQuery) (*models.Preview, error) {
	result, err := c.Probe(ctx, q)
	if err != nil {
		return nil, err
	}

	shortlist := utils.Shortlist(result.Formats)
	return &models.Preview{
		Query:    q,
		Metadata: result.Metadata,
		Formats:  shortlist,
		Default:  utils.DefaultSelection(shortlist),
	}, nil
}

func (c *ProbeController) observeAttempt(attempt models.Attempt, err error) {
	outcome := metrics.OutcomeSuccess
	switch {
	case errors.Is(err, ErrNoUsableEncodings):
		outcome = metrics.OutcomeEmpty
	case err != nil:
		outcome = metrics.OutcomeError
	}
	metrics.ProbeAttempts.WithLabelValues(string(attempt.Platform), attempt.Profile.Name, outcome).Inc()
}

func (c *ProbeController) recordProbe(platform models.Platform, ok bool) {
	outcome := metrics.OutcomeSuccess
	if !ok {
		outcome = metrics.OutcomeError
	}
	metrics.Probes.WithLabelValues(string(platform), outcome).Inc()

	if c.stats == nil {
		return
	}
	if err := c.stats.RecordProbe(platform, ok); err != nil {
		c.logger.WithError(err).Warn("Failed to record probe stats")
	}
}
