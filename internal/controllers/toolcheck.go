package controllers

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/amaumene/clipgrab/internal/models"
	"github.com/amaumene/clipgrab/internal/pipeline"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

const (
	versionTimeout = 10 * time.Second
	updateTimeout  = 5 * time.Minute
)

// OutputRunner runs a single process to completion
type OutputRunner interface {
	Output(ctx context.Context, stage pipeline.Stage) ([]byte, error)
}

// VersionedTool is an external binary that can report its version
type VersionedTool interface {
	Path() string
	VersionStage() pipeline.Stage
}

// ExtractorTool is the extraction binary, which can also update itself
type ExtractorTool interface {
	VersionedTool
	UpdateStage() pipeline.Stage
}

// ToolStore persists health check results
type ToolStore interface {
	SaveToolStatus(status *models.ToolStatus) error
}

// ToolCheckController verifies the external binaries are installed and runnable
type ToolCheckController struct {
	fs        afero.Fs
	runner    OutputRunner
	store     ToolStore
	extractor ExtractorTool
	tools     []VersionedTool
	logger    *logrus.Logger
}

// NewToolCheckController creates a new tool check controller. store may be nil.
func NewToolCheckController(fs afero.Fs, runner OutputRunner, store ToolStore, extractor ExtractorTool, transcoder VersionedTool, logger *logrus.Logger) *ToolCheckController {
	return &ToolCheckController{
		fs:        fs,
		runner:    runner,
		store:     store,
		extractor: extractor,
		tools:     []VersionedTool{extractor, transcoder},
		logger:    logger,
	}
}

// CheckAll checks every tool and stores the results
func (c *ToolCheckController) CheckAll(ctx context.Context) []*models.ToolStatus {
	statuses := make([]*models.ToolStatus, 0, len(c.tools))
	for _, tool := range c.tools {
		status := c.check(ctx, tool)
		statuses = append(statuses, status)

		log := c.logger.WithFields(logrus.Fields{
			"tool": status.Name,
			"path": status.Path,
		})
		if status.Available {
			log.WithField("version", status.Version).Debug("Tool available")
		} else {
			log.WithField("error", status.Error).Warn("Tool unavailable")
		}

		if c.store != nil {
			if err := c.store.SaveToolStatus(status); err != nil {
				c.logger.WithError(err).Error("Failed to save tool status")
			}
		}
	}
	return statuses
}

// UpdateExtractor runs the extraction tool's self-update, then re-checks every tool
func (c *ToolCheckController) UpdateExtractor(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, updateTimeout)
	defer cancel()

	c.logger.Info("Updating extraction tool")
	out, err := c.runner.Output(ctx, c.extractor.UpdateStage())
	if err != nil {
		return fmt.Errorf("failed to update extraction tool: %w", err)
	}

	c.logger.WithField("output", lastOutputLine(out)).Info("Extraction tool update finished")
	c.CheckAll(ctx)
	return nil
}

func (c *ToolCheckController) check(ctx context.Context, tool VersionedTool) *models.ToolStatus {
	stage := tool.VersionStage()
	status := &models.ToolStatus{
		Name:      stage.Name,
		Path:      tool.Path(),
		CheckedAt: time.Now(),
	}

	resolved, err := c.resolve(tool.Path())
	if err != nil {
		status.Error = err.Error()
		return status
	}
	status.Path = resolved

	ctx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()

	out, err := c.runner.Output(ctx, stage)
	if err != nil {
		status.Error = err.Error()
		return status
	}

	status.Version = firstOutputLine(out)
	status.Available = true
	return status
}

// resolve checks an explicit path on the filesystem and looks bare names up in PATH
func (c *ToolCheckController) resolve(path string) (string, error) {
	if !strings.ContainsRune(path, '/') {
		resolved, err := exec.LookPath(path)
		if err != nil {
			return "", fmt.Errorf("%s not found in PATH", path)
		}
		return resolved, nil
	}

	info, err := c.fs.Stat(path)
	if err != nil {
		return "", fmt.Errorf("%s not found: %w", path, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", path)
	}
	if info.Mode().Perm()&0111 == 0 {
		return "", fmt.Errorf("%s is not executable", path)
	}
	return path, nil
}

func firstOutputLine(out []byte) string {
	line, _, _ := strings.Cut(strings.TrimSpace(string(out)), "\n")
	return strings.TrimSpace(line)
}

func lastOutputLine(out []byte) string {
	s := strings.TrimSpace(string(out))
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}
