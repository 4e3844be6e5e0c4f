package pipeline

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRunner(t *testing.T) *Runner {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewRunner(logger)
}

func shell(name, script string) Stage {
	return Stage{Name: name, Path: "sh", Args: []string{"-c", script}}
}

func TestRunSingleStage(t *testing.T) {
	r := newTestRunner(t)

	var out bytes.Buffer
	err := r.Run(context.Background(), &out, shell("echo", "printf 'hello world'"))

	require.NoError(t, err)
	assert.Equal(t, "hello world", out.String())
}

func TestRunConnectsStages(t *testing.T) {
	r := newTestRunner(t)

	var out bytes.Buffer
	err := r.Run(context.Background(), &out,
		shell("source", "printf 'abc'"),
		shell("upper", "tr a-z A-Z"),
		shell("wrap", "printf '['; cat; printf ']'"),
	)

	require.NoError(t, err)
	assert.Equal(t, "[ABC]", out.String())
}

func TestRunExitAfterPartialOutput(t *testing.T) {
	r := newTestRunner(t)

	var out bytes.Buffer
	err := r.Run(context.Background(), &out, shell("yt-dlp", "printf 'partial'; echo 'ERROR: connection reset' >&2; exit 137"))

	require.Error(t, err)
	assert.Equal(t, "partial", out.String())
	assert.True(t, errors.Is(err, ErrExit))
	assert.False(t, errors.Is(err, ErrSpawn))

	var stageErr *StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, "yt-dlp", stageErr.Stage)
	assert.Equal(t, 137, stageErr.ExitCode)
	assert.Contains(t, stageErr.Error(), "ERROR: connection reset")
}

func TestRunDownstreamFailure(t *testing.T) {
	r := newTestRunner(t)

	var out bytes.Buffer
	err := r.Run(context.Background(), &out,
		shell("yt-dlp", "printf 'audio bytes'"),
		shell("ffmpeg", "cat >/dev/null; printf 'mp3'; exit 1"),
	)

	require.Error(t, err)
	var stageErr *StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, "ffmpeg", stageErr.Stage)
	assert.Equal(t, 1, stageErr.ExitCode)
}

func TestRunUpstreamFailureKillsDownstream(t *testing.T) {
	r := newTestRunner(t)

	done := make(chan error, 1)
	go func() {
		var out bytes.Buffer
		done <- r.Run(context.Background(), &out,
			shell("yt-dlp", "exit 2"),
			shell("ffmpeg", "sleep 30"),
		)
	}()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrExit))
	case <-time.After(10 * time.Second):
		t.Fatal("pipeline did not terminate after upstream failure")
	}
}

func TestRunSpawnFailure(t *testing.T) {
	r := newTestRunner(t)

	missing := filepath.Join(t.TempDir(), "does-not-exist")
	var out bytes.Buffer
	err := r.Run(context.Background(), &out,
		shell("yt-dlp", "sleep 30"),
		Stage{Name: "ffmpeg", Path: missing},
	)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSpawn))
	assert.Contains(t, err.Error(), "ffmpeg could not be started")
}

func TestRunCancellation(t *testing.T) {
	r := newTestRunner(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		var out bytes.Buffer
		done <- r.Run(ctx, &out, shell("yt-dlp", "sleep 30"))
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrExit))
	case <-time.After(10 * time.Second):
		t.Fatal("cancelled pipeline did not terminate")
	}
}

func TestRunNoStages(t *testing.T) {
	r := newTestRunner(t)
	assert.Error(t, r.Run(context.Background(), io.Discard))
}

func TestOutput(t *testing.T) {
	r := newTestRunner(t)

	out, err := r.Output(context.Background(), shell("version", "echo 2024.03.10"))
	require.NoError(t, err)
	assert.Equal(t, "2024.03.10\n", string(out))

	_, err = r.Output(context.Background(), shell("version", "echo boom >&2; exit 3"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExit))
	assert.Contains(t, err.Error(), "exited with code 3: boom")
}

func TestTailBuffer(t *testing.T) {
	tail := newTailBuffer(5)
	tail.Write([]byte("abc"))
	tail.Write([]byte("defgh"))
	assert.Equal(t, "defgh", tail.String())
}
