// Custodian - GRC Backup and Restore Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodian

/*
Package auth authenticates admin API callers with HS256 bearer tokens.

Tokens are issued by the host application (or `custodian token`) with the
shared server.jwt_secret. The middleware only authenticates; the role claim
is checked per route by package authz. The token subject becomes the actor
recorded on jobs (CreatedBy) and on cancellations.

	mgr, err := auth.NewJWTManager(cfg.Server.JWTSecret, time.Hour)
	r.Use(auth.Middleware(mgr))
	...
	subject := auth.SubjectFromContext(r.Context())
*/
package auth
