// Custodian - GRC Backup and Restore Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodian

/*
Package api provides the admin HTTP API served by "custodian serve".

The API is a thin layer over backup.Service built on the Chi router. Every
response uses the models.APIResponse envelope.

# Routes

	GET    /api/v1/health                  Ledger liveness
	GET    /api/v1/backups                 List jobs (status, type, storage, limit, offset, sort)
	POST   /api/v1/backups                 Start a database, files or full backup (202)
	GET    /api/v1/backups/{id}            Get one job
	DELETE /api/v1/backups/{id}            Delete artifact and ledger entry
	POST   /api/v1/backups/{id}/verify     Verify checksum and mark verified
	POST   /api/v1/backups/{id}/restore    Verify, then restore
	POST   /api/v1/backups/{id}/cancel     Cancel a pending or running job
	GET    /api/v1/backups/{id}/download   302 to a time-limited artifact URL
	POST   /api/v1/backups/cleanup         Retention sweep
	GET    /metrics                        Prometheus metrics

Backups are started asynchronously: POST /api/v1/backups returns the pending
job and the caller polls GET /api/v1/backups/{id} or subscribes to the
lifecycle events.

# Middleware

Requests pass through request ID and logging context, real IP, panic
recovery, CORS (go-chi/cors), per-IP rate limiting (go-chi/httprate) and
Prometheus instrumentation. When server.jwt_secret is set, every /api/v1
route except health requires an HS256 bearer token; the token subject becomes
the job's created_by and the logging actor. The token's role claim is then
checked against the Casbin policy of package authz: viewers read, operators
also create, verify, cancel and download, and only admins restore, delete
or clean up. A denied request gets 403 FORBIDDEN.
*/
package api
