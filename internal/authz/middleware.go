// Custodian - GRC Backup and Restore Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodian

package authz

import (
	"errors"
	"net/http"

	"github.com/tomtom215/custodian/internal/auth"
	"github.com/tomtom215/custodian/internal/logging"
)

// ErrForbidden means the caller's role does not allow the action.
var ErrForbidden = errors.New("insufficient permissions")

// Middleware authorizes authenticated requests. It must run after
// auth.Middleware.
type Middleware struct {
	enforcer *Enforcer
	onError  auth.ErrorHandler
}

// NewMiddleware creates an authorization middleware. onError renders
// ErrForbidden and enforcement failures.
func NewMiddleware(enforcer *Enforcer, onError auth.ErrorHandler) *Middleware {
	if onError == nil {
		onError = func(w http.ResponseWriter, _ *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusForbidden)
		}
	}
	return &Middleware{enforcer: enforcer, onError: onError}
}

// Authorize returns middleware that allows the request only when the
// caller's role may perform action on object.
func (m *Middleware) Authorize(object, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject := auth.SubjectFromContext(r.Context())
			if subject == nil {
				m.onError(w, r, ErrForbidden)
				return
			}

			allowed, err := m.enforcer.Enforce(subject.Role, object, action)
			if err != nil {
				logging.Ctx(r.Context()).Error().Err(err).Msg("Authorization error")
				m.onError(w, r, err)
				return
			}
			if !allowed {
				logging.Ctx(r.Context()).Warn().
					Str("role", subject.Role).
					Str("action", action).
					Msg("Admin API request denied")
				m.onError(w, r, ErrForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
