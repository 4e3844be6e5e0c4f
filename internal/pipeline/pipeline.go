// Package pipeline runs external tools as chains of processes whose standard
// streams are connected to each other, with uniform failure propagation: when
// one stage fails, every other stage is killed and the error is returned.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/amaumene/clipgrab/internal/metrics"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const defaultWaitDelay = 5 * time.Second

// Stage is one external process in a pipeline
type Stage struct {
	Name string // used in errors, logs and metrics
	Path string
	Args []string
}

// Runner starts stages and supervises them
type Runner struct {
	logger    *logrus.Logger
	waitDelay time.Duration
}

// NewRunner creates a new runner
func NewRunner(logger *logrus.Logger) *Runner {
	return &Runner{
		logger:    logger,
		waitDelay: defaultWaitDelay,
	}
}

// Run connects the stages stdout-to-stdin and streams the last stage's output
// into sink. It returns nil only if every stage exited cleanly. Cancelling ctx
// kills every stage.
func (r *Runner) Run(ctx context.Context, sink io.Writer, stages ...Stage) error {
	if len(stages) == 0 {
		return errors.New("pipeline has no stages")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	cmds := make([]*exec.Cmd, len(stages))
	tails := make([]*tailBuffer, len(stages))
	for i, stage := range stages {
		cmds[i] = r.command(gctx, stage)
		tails[i] = newTailBuffer(stderrTailSize)
		cmds[i].Stderr = tails[i]
	}

	// The parent's copies of the pipe ends are closed once the children hold theirs
	var pipeEnds []*os.File
	closePipes := func() {
		for _, f := range pipeEnds {
			f.Close()
		}
		pipeEnds = nil
	}

	for i := 0; i < len(cmds)-1; i++ {
		pr, pw, err := os.Pipe()
		if err != nil {
			closePipes()
			return fmt.Errorf("failed to create pipe: %w", err)
		}
		cmds[i].Stdout = pw
		cmds[i+1].Stdin = pr
		pipeEnds = append(pipeEnds, pr, pw)
	}
	cmds[len(cmds)-1].Stdout = sink

	for i, cmd := range cmds {
		if err := cmd.Start(); err != nil {
			closePipes()
			cancel()
			for j := 0; j < i; j++ {
				_ = cmds[j].Wait()
				metrics.ActiveProcesses.WithLabelValues(stages[j].Name).Dec()
			}
			return spawnError(stages[i].Name, err)
		}
		metrics.ActiveProcesses.WithLabelValues(stages[i].Name).Inc()

		r.logger.WithFields(logrus.Fields{
			"stage": stages[i].Name,
			"pid":   cmd.Process.Pid,
		}).Debug("Started pipeline stage")
	}
	closePipes()

	for i := range cmds {
		stage, cmd, tail := stages[i], cmds[i], tails[i]
		g.Go(func() error {
			return r.wait(stage, cmd, tail)
		})
	}

	return g.Wait()
}

// Output runs a single stage to completion and returns its standard output
func (r *Runner) Output(ctx context.Context, stage Stage) ([]byte, error) {
	cmd := r.command(ctx, stage)

	var stdout bytes.Buffer
	tail := newTailBuffer(stderrTailSize)
	cmd.Stdout = &stdout
	cmd.Stderr = tail

	if err := cmd.Start(); err != nil {
		return nil, spawnError(stage.Name, err)
	}
	metrics.ActiveProcesses.WithLabelValues(stage.Name).Inc()

	if err := r.wait(stage, cmd, tail); err != nil {
		return stdout.Bytes(), err
	}
	return stdout.Bytes(), nil
}

func (r *Runner) command(ctx context.Context, stage Stage) *exec.Cmd {
	cmd := exec.CommandContext(ctx, stage.Path, stage.Args...)
	setProcessGroup(cmd)
	cmd.WaitDelay = r.waitDelay
	return cmd
}

func (r *Runner) wait(stage Stage, cmd *exec.Cmd, tail *tailBuffer) error {
	err := cmd.Wait()
	metrics.ActiveProcesses.WithLabelValues(stage.Name).Dec()

	if err != nil {
		stageErr := exitError(stage.Name, err, tail.String())
		r.logger.WithError(stageErr).WithFields(logrus.Fields{
			"stage":     stage.Name,
			"exit_code": stageErr.ExitCode,
		}).Debug("Pipeline stage failed")
		return stageErr
	}

	if stderr := tail.String(); stderr != "" {
		r.logger.WithFields(logrus.Fields{
			"stage":  stage.Name,
			"stderr": lastLine(stderr),
		}).Debug("Pipeline stage finished")
	}
	return nil
}
