// Custodian - GRC Backup and Restore Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodian

/*
Package services adapts long-running components to suture.Service.

A suture service blocks in Serve(ctx) until ctx is cancelled and returns an
error to ask for a restart. HTTPServerService translates the http.Server
Serve/Shutdown pair into that shape. The ledger's GCService already has the
right shape and is added to the tree directly.
*/
package services
