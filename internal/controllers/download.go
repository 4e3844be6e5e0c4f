package controllers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"time"

	"github.com/amaumene/clipgrab/internal/metrics"
	"github.com/amaumene/clipgrab/internal/models"
	"github.com/amaumene/clipgrab/internal/pipeline"
	"github.com/sirupsen/logrus"
)

// ErrInvalidFormat is returned for format ids that cannot come from the extraction tool
var ErrInvalidFormat = errors.New("invalid format id")

var formatIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.+\-/]*$`)

// StageRunner runs a chain of processes into a sink
type StageRunner interface {
	Run(ctx context.Context, sink io.Writer, stages ...pipeline.Stage) error
}

// MediaSource builds the extraction stages
type MediaSource interface {
	VideoStage(url, referer, formatID string) pipeline.Stage
	AudioStage(url, referer string) pipeline.Stage
}

// AudioEncoder builds the transcoding stage
type AudioEncoder interface {
	MP3Stage() pipeline.Stage
}

// DownloadController streams media to clients
type DownloadController struct {
	runner  StageRunner
	source  MediaSource
	encoder AudioEncoder
	stats   StatsRecorder
	timeout time.Duration
	logger  *logrus.Logger
}

// NewDownloadController creates a new download controller. stats may be nil,
// a zero timeout leaves streams bounded only by ctx.
func NewDownloadController(runner StageRunner, source MediaSource, encoder AudioEncoder, stats StatsRecorder, timeout time.Duration, logger *logrus.Logger) *DownloadController {
	return &DownloadController{
		runner:  runner,
		source:  source,
		encoder: encoder,
		stats:   stats,
		timeout: timeout,
		logger:  logger,
	}
}

// ValidateFormatID accepts the empty id (fallback selector) and tool-style ids
func ValidateFormatID(formatID string) error {
	if formatID == "" || formatIDPattern.MatchString(formatID) {
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidFormat, formatID)
}

// StreamVideo writes the chosen encoding, or the best progressive one when formatID is empty
func (c *DownloadController) StreamVideo(ctx context.Context, q models.MediaQuery, formatID string, w io.Writer) error {
	if err := ValidateFormatID(formatID); err != nil {
		return err
	}

	stage := c.source.VideoStage(q.URL, RefererFor(q), formatID)
	return c.stream(ctx, q, models.StreamVideo, w, stage)
}

// StreamAudio writes the best audio track transcoded to MP3
func (c *DownloadController) StreamAudio(ctx context.Context, q models.MediaQuery, w io.Writer) error {
	return c.stream(ctx, q, models.StreamAudio, w,
		c.source.AudioStage(q.URL, RefererFor(q)),
		c.encoder.MP3Stage(),
	)
}

func (c *DownloadController) stream(ctx context.Context, q models.MediaQuery, kind models.StreamKind, w io.Writer, stages ...pipeline.Stage) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	counter := &countingWriter{w: w}
	log := c.logger.WithFields(logrus.Fields{
		"platform": q.Platform,
		"kind":     kind,
	})
	log.Info("Starting stream")

	err := c.runner.Run(ctx, counter, stages...)

	log = log.WithFields(logrus.Fields{
		"bytes":    counter.n,
		"duration": time.Since(start).Round(time.Millisecond),
	})
	c.recordStream(q.Platform, kind, err == nil)

	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("stream exceeded %s: %w", c.timeout, err)
		}
		log.WithError(err).Warn("Stream failed")
		return err
	}

	log.Info("Stream completed")
	return nil
}

func (c *DownloadController) recordStream(platform models.Platform, kind models.StreamKind, ok bool) {
	outcome := metrics.OutcomeSuccess
	if !ok {
		outcome = metrics.OutcomeError
	}
	metrics.Streams.WithLabelValues(string(kind), string(platform), outcome).Inc()

	if c.stats == nil {
		return
	}
	if err := c.stats.RecordStream(platform, kind, ok); err != nil {
		c.logger.WithError(err).Warn("Failed to record stream stats")
	}
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}
