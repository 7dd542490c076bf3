// Custodian - GRC Backup and Restore Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodian

// Package logging provides the zerolog-based structured logger shared by every
// Custodian component.
//
// A single global logger is configured once at startup with Init and then
// used through package-level helpers:
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//	logging.Info().Str("job_id", id).Msg("Backup completed")
//	logging.Error().Err(err).Str("step", "dump").Msg("Backup failed")
//
// Job-scoped logging carries the job ID through context.Context:
//
//	ctx = logging.ContextWithJobID(ctx, job.ID)
//	logging.Ctx(ctx).Info().Msg("Dump started")
//
// Adapters bridge the global logger into libraries that expect their own
// logging interface: NewSlogLogger for sutureslog and NewWatermillLogger for
// watermill publishers.
//
// Credentials never reach the log stream. Use RedactSecret and RedactDSN
// when a value may contain a password.
package logging
