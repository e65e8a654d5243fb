// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

//go:build !unix

package polygonize

import "os/exec"

func startOwnGroup(cmd *exec.Cmd) {}

func terminate(cmd *exec.Cmd) error {
	return cmd.Process.Kill()
}
