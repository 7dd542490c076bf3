// Custodian - GRC Backup and Restore Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodian

// Package authz gates admin API routes by the role claim of the caller's
// token, using a Casbin RBAC model.
//
//	Request -> auth.Middleware -> authz.Middleware -> Handler
//
// The embedded policy defines three roles, each inheriting the one above:
//
//	viewer    read
//	operator  create, verify, cancel, download
//	admin     restore, delete, cleanup
//
// A token without a role claim is treated as DefaultRole. server.authz_policy
// replaces the embedded policy with a CSV file in the same format:
//
//	p, viewer, backups, read
//	g, operator, viewer
package authz
