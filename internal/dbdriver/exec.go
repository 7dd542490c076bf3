// Custodian - GRC Backup and Restore Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodian

package dbdriver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/tomtom215/custodian/internal/logging"
)

// maxStderr bounds the tool output kept on a ToolError.
const maxStderr = 4096

// waitDelay bounds how long Wait blocks on output pipes after the tool is killed.
const waitDelay = 5 * time.Second

// ToolError reports a dump or restore tool that exited unsuccessfully.
type ToolError struct {
	Tool     string
	ExitCode int
	Stderr   string
	// Err is the underlying cause when the tool was killed or never started.
	Err error
}

func (e *ToolError) Error() string {
	msg := fmt.Sprintf("%s failed with return code: %d", e.Tool, e.ExitCode)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	if e.Err != nil {
		msg += " (" + e.Err.Error() + ")"
	}
	return msg
}

func (e *ToolError) Unwrap() error { return e.Err }

// toolRun describes one subprocess invocation.
type toolRun struct {
	bin    string
	args   []string
	env    []string // appended to the parent environment
	stdin  io.Reader
	stdout io.Writer
}

// tailBuffer keeps only the last maxStderr bytes written to it.
type tailBuffer struct {
	buf bytes.Buffer
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	n := len(p)
	t.buf.Write(p)
	if over := t.buf.Len() - maxStderr; over > 0 {
		t.buf.Next(over)
	}
	return n, nil
}

func (t *tailBuffer) String() string {
	return strings.TrimSpace(t.buf.String())
}

func runTool(ctx context.Context, run toolRun) error {
	cmd := exec.CommandContext(ctx, run.bin, run.args...) //nolint:gosec // G204: binary comes from operator configuration
	cmd.Env = append(os.Environ(), run.env...)
	cmd.Stdin = run.stdin
	cmd.Stdout = run.stdout
	stderr := &tailBuffer{}
	cmd.Stderr = stderr
	// Children that outlive a killed tool must not hold Wait open on stderr.
	cmd.WaitDelay = waitDelay

	logging.Ctx(ctx).Debug().
		Str("tool", run.bin).
		Strs("args", run.args).
		Msg("Running database tool")

	err := cmd.Run()
	if err == nil {
		return nil
	}

	toolErr := &ToolError{Tool: run.bin, ExitCode: -1, Stderr: stderr.String()}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		toolErr.ExitCode = exitErr.ExitCode()
	} else {
		toolErr.Err = err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		toolErr.Err = ctxErr
	}
	return toolErr
}

// writePartial runs fn against "<outputPath>.partial" and renames it to
// outputPath only when fn succeeds.
func writePartial(outputPath string, fn func(partial string) error) error {
	partial := outputPath + ".partial"
	_ = os.Remove(partial)

	if err := fn(partial); err != nil {
		_ = os.Remove(partial)
		return err
	}
	if err := os.Rename(partial, outputPath); err != nil {
		_ = os.Remove(partial)
		return fmt.Errorf("finalize dump: %w", err)
	}
	return nil
}

// dumpToFile runs a tool with stdout redirected to a partial file.
func dumpToFile(ctx context.Context, outputPath string, run toolRun) error {
	return writePartial(outputPath, func(partial string) error {
		f, err := os.OpenFile(partial, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600) //nolint:gosec // G304: workspace path
		if err != nil {
			return fmt.Errorf("create dump file: %w", err)
		}
		run.stdout = f
		if err := runTool(ctx, run); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Sync(); err != nil {
			_ = f.Close()
			return fmt.Errorf("sync dump file: %w", err)
		}
		return f.Close()
	})
}
