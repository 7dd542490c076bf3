// Custodian - GRC Backup and Restore Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodian

/*
Package supervisor runs the long-lived parts of `custodian serve` under a
suture v4 tree.

Backups themselves are not supervised services: they are request-scoped and
run to completion inside the API handler or CLI command that started them.
What the tree owns is infrastructure that must stay up for as long as the
process does:

  - the admin HTTP server (services.HTTPServerService)
  - BadgerDB value-log GC for the job ledger (ledger.GCService)

Failed services are restarted with suture's backoff; restarts and panics are
logged through the slog bridge to zerolog (logging.NewSlogLogger).

	tree, _ := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{})
	tree.AddMaintenanceService(ledger.NewGCService(store, 10*time.Minute))
	tree.AddAPIService(services.NewHTTPServerService(srv, addr, 30*time.Second))
	err := tree.Serve(ctx)
*/
package supervisor
