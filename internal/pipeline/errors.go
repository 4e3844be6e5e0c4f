package pipeline

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

var (
	// ErrSpawn matches failures to start a process (missing or unexecutable binary)
	ErrSpawn = errors.New("process could not be started")

	// ErrExit matches processes that ran but did not exit cleanly
	ErrExit = errors.New("process exited abnormally")
)

// StageError describes the failure of one pipeline stage
type StageError struct {
	Stage    string
	ExitCode int // -1 when the process never started or was killed by a signal
	Stderr   string
	Err      error
	spawn    bool
}

func (e *StageError) Error() string {
	var b strings.Builder
	if e.spawn {
		fmt.Fprintf(&b, "%s could not be started: %v", e.Stage, e.Err)
	} else if e.ExitCode >= 0 {
		fmt.Fprintf(&b, "%s exited with code %d", e.Stage, e.ExitCode)
	} else {
		fmt.Fprintf(&b, "%s terminated: %v", e.Stage, e.Err)
	}
	if msg := lastLine(e.Stderr); msg != "" {
		b.WriteString(": ")
		b.WriteString(msg)
	}
	return b.String()
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match ErrSpawn and ErrExit
func (e *StageError) Is(target error) bool {
	switch target {
	case ErrSpawn:
		return e.spawn
	case ErrExit:
		return !e.spawn
	}
	return false
}

func spawnError(stage string, err error) *StageError {
	return &StageError{Stage: stage, ExitCode: -1, Err: err, spawn: true}
}

func exitError(stage string, err error, stderr string) *StageError {
	code := -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code = exitErr.ExitCode()
	}
	return &StageError{Stage: stage, ExitCode: code, Stderr: stderr, Err: err}
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}
