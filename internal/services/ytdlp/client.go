package ytdlp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amaumene/clipgrab/internal/config"
	"github.com/amaumene/clipgrab/internal/models"
	"github.com/amaumene/clipgrab/internal/pipeline"
	"github.com/sirupsen/logrus"
)

// StageName labels yt-dlp processes in errors, logs and metrics
const StageName = "yt-dlp"

const (
	// FallbackVideoSelector picks the best progressive http download, mp4 first
	FallbackVideoSelector = "b[ext=mp4][vcodec!=none][acodec!=none][protocol^=http][protocol!*=dash]/b[vcodec!=none][acodec!=none][protocol^=http][protocol!*=dash]"

	audioSelector = "bestaudio/best"
)

// OutputRunner runs a single process to completion
type OutputRunner interface {
	Output(ctx context.Context, stage pipeline.Stage) ([]byte, error)
}

// Client builds and runs yt-dlp invocations
type Client struct {
	path         string
	userAgent    string
	probeTimeout time.Duration
	runner       OutputRunner
	logger       *logrus.Logger
}

// NewClient creates a new yt-dlp client
func NewClient(cfg *config.Config, runner OutputRunner, logger *logrus.Logger) *Client {
	return &Client{
		path:         cfg.YtDlpPath,
		userAgent:    cfg.UserAgent,
		probeTimeout: cfg.ProbeTimeout,
		runner:       runner,
		logger:       logger,
	}
}

// RunAttempt probes one URL variant with one profile
func (c *Client) RunAttempt(ctx context.Context, attempt models.Attempt) (*models.ProbeResult, error) {
	if c.probeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.probeTimeout)
		defer cancel()
	}

	args := c.baseArgs(attempt.Referer)
	args = append(args, attempt.Profile.Args...)
	args = append(args, "-J", "--", attempt.URL)

	c.logger.WithFields(logrus.Fields{
		"platform": attempt.Platform,
		"profile":  attempt.Profile.Name,
		"url":      attempt.URL,
	}).Debug("Running probe attempt")

	out, err := c.runner.Output(ctx, c.stage(args))
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("probe timed out after %s: %w", c.probeTimeout, err)
		}
		return nil, err
	}

	return ParseInfo(out)
}

// VideoStage streams a video to stdout, using the fallback selector when formatID is empty
func (c *Client) VideoStage(url, referer, formatID string) pipeline.Stage {
	selector := formatID
	if selector == "" {
		selector = FallbackVideoSelector
	}

	args := c.baseArgs(referer)
	args = append(args, "-f", selector, "-o", "-", "--", url)
	return c.stage(args)
}

// AudioStage streams the best audio track to stdout
func (c *Client) AudioStage(url, referer string) pipeline.Stage {
	args := c.baseArgs(referer)
	args = append(args, "-f", audioSelector, "-o", "-", "--", url)
	return c.stage(args)
}

// VersionStage prints the installed version
func (c *Client) VersionStage() pipeline.Stage {
	return c.stage([]string{"--version"})
}

// UpdateStage self-updates the binary
func (c *Client) UpdateStage() pipeline.Stage {
	return c.stage([]string{"--no-color", "-U"})
}

// Path returns the configured binary
func (c *Client) Path() string {
	return c.path
}

func (c *Client) baseArgs(referer string) []string {
	args := []string{
		"--no-color",
		"--no-warnings",
		"--no-playlist",
		"--force-ipv4",
		"--user-agent", c.userAgent,
	}
	if referer != "" {
		args = append(args, "--referer", referer)
	}
	return args
}

func (c *Client) stage(args []string) pipeline.Stage {
	return pipeline.Stage{Name: StageName, Path: c.path, Args: args}
}
