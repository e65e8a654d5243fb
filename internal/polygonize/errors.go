// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package polygonize

import (
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// ErrConversionFailed is wrapped by the error Batch.Run returns when one or
// more conversions exited non-zero.
var ErrConversionFailed = errors.New("conversion failed")

// ToolError reports a polygonize tool run that exited unsuccessfully. It
// carries the tool's captured output so callers can show the diagnostic.
type ToolError struct {
	// Command is the printable command line.
	Command string
	// ExitCode is the process exit status, or -1 when the process did not
	// exit normally (not started, killed by a signal).
	ExitCode int
	Stdout   string
	Stderr   string
	Err      error
}

func (e *ToolError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "command %s failed: %v", e.Command, e.Err)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		fmt.Fprintf(&b, "\nstderr:\n%s", s)
	}
	if s := strings.TrimSpace(e.Stdout); s != "" {
		fmt.Fprintf(&b, "\nstdout:\n%s", s)
	}
	return b.String()
}

func (e *ToolError) Unwrap() error { return e.Err }

func newToolError(name string, args []string, stdout, stderr string, err error) *ToolError {
	code := -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code = exitErr.ExitCode()
	}
	return &ToolError{
		Command:  formatCommand(name, args),
		ExitCode: code,
		Stdout:   stdout,
		Stderr:   stderr,
		Err:      err,
	}
}

func formatCommand(name string, args []string) string {
	parts := []string{quoteArg(name)}
	for _, arg := range args {
		parts = append(parts, quoteArg(arg))
	}
	return strings.Join(parts, " ")
}

func quoteArg(arg string) string {
	if arg == "" || strings.ContainsAny(arg, " \t\n\r\"\\") {
		return strconv.Quote(arg)
	}
	return arg
}
