//go:build !unix

package pipeline

import "os/exec"

// setProcessGroup keeps the default behaviour (kill the process) where process groups are unavailable
func setProcessGroup(cmd *exec.Cmd) {}
