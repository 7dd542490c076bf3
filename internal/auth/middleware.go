// Custodian - GRC Backup and Restore Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodian

package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/tomtom215/custodian/internal/logging"
)

type contextKey struct{}

// Subject is an authenticated caller.
type Subject struct {
	Name string
	Role string
}

// ContextWithSubject stores s in ctx.
func ContextWithSubject(ctx context.Context, s *Subject) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// SubjectFromContext returns the caller stored by Middleware, or nil.
func SubjectFromContext(ctx context.Context) *Subject {
	s, _ := ctx.Value(contextKey{}).(*Subject)
	return s
}

// ErrorHandler writes the response for a rejected request.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// Middleware rejects requests without a valid bearer token. The subject is
// stored in the request context and as the logging actor.
func Middleware(m *JWTManager, onError ErrorHandler) func(http.Handler) http.Handler {
	if onError == nil {
		onError = func(w http.ResponseWriter, _ *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusUnauthorized)
		}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				onError(w, r, ErrNoCredentials)
				return
			}
			claims, err := m.ValidateToken(token)
			if err != nil {
				if !errors.Is(err, ErrExpiredCredentials) {
					logging.Ctx(r.Context()).Warn().Err(err).Str("remote", r.RemoteAddr).Msg("Rejected admin API token")
				}
				onError(w, r, err)
				return
			}

			subject := &Subject{Name: claims.Subject, Role: claims.Role}
			ctx := ContextWithSubject(r.Context(), subject)
			ctx = logging.ContextWithActor(ctx, subject.Name)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
