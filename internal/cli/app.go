// Custodian - GRC Backup and Restore Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodian

/*
app.go - Command Line Application

The custodian binary is a kingpin application with one command per
operation. Every command loads configuration, opens the job ledger and
builds a backup.Service, runs, then closes everything again. Commands
return errors; Run converts any error into exit code 1.
*/

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"

	"github.com/tomtom215/custodian/internal/logging"
)

// Version is stamped at build time with -ldflags.
var Version = "dev"

// Exit codes.
const (
	ExitOK      = 0
	ExitFailure = 1
)

// errBatchFailed reports that some items of a batch failed after each was
// already printed.
var errBatchFailed = errors.New("one or more items failed")

// App is the custodian command line.
type App struct {
	app *kingpin.Application

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	configPath string
	logLevel   string
	logFormat  string
	serving    bool

	// ctx is the signal-aware context of the current Run.
	ctx context.Context
}

// New creates the application with all commands registered.
func New(stdin io.Reader, stdout, stderr io.Writer) *App {
	a := &App{
		app:    kingpin.New("custodian", "Backup and restore engine for the GRC application."),
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
		ctx:    context.Background(),
	}

	a.app.Version(Version)
	a.app.UsageWriter(stdout)
	a.app.ErrorWriter(stderr)

	a.app.Flag("config", "Path to the YAML configuration file.").Short('c').Envar("CONFIG_PATH").StringVar(&a.configPath)
	a.app.Flag("log-level", "Log level, overrides the configuration.").EnumVar(&a.logLevel, "debug", "info", "warn", "error")
	a.app.Flag("log-format", "Log format; console for commands and the configured format for serve by default.").EnumVar(&a.logFormat, "console", "json")

	(&commandBackupDatabase{}).setup(a)
	(&commandBackupFull{}).setup(a)
	(&commandRestore{}).setup(a)
	(&commandVerify{}).setup(a)
	(&commandCleanup{}).setup(a)
	(&commandList{}).setup(a)
	(&commandCancel{}).setup(a)
	(&commandServe{}).setup(a)
	(&commandToken{}).setup(a)

	return a
}

// Run parses args, runs the selected command and returns the exit code.
func (a *App) Run(ctx context.Context, args []string) int {
	a.ctx = ctx
	if _, err := a.app.Parse(args); err != nil {
		fmt.Fprintf(a.stderr, "custodian: error: %v\n", err)
		return ExitFailure
	}
	return ExitOK
}

// Main runs the application against the process environment and exits.
func Main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := New(os.Stdin, os.Stdout, os.Stderr).Run(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}

// action adapts a command body to a kingpin action with an open environment.
func (a *App) action(run func(ctx context.Context, env *environment) error) kingpin.Action {
	return func(*kingpin.ParseContext) error {
		env, err := a.openEnvironment()
		if err != nil {
			return err
		}
		defer func() {
			if cerr := env.Close(); cerr != nil {
				logging.Warn().Err(cerr).Msg("Failed to close environment")
			}
		}()
		return run(a.ctx, env)
	}
}
