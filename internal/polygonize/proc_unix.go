// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

//go:build unix

package polygonize

import (
	"os/exec"
	"syscall"
)

// startOwnGroup puts the tool in a new process group so wrappers that fork
// (shell shims around gdal_polygonize.py) can be stopped as a whole.
func startOwnGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// terminate sends SIGTERM to the tool's process group.
func terminate(cmd *exec.Cmd) error {
	return syscall.Kill(-cmd.Process.Pid, syscall.SIGTERM)
}
