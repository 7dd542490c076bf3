// Custodian - GRC Backup and Restore Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodian

package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/klauspost/compress/gzhttp"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/custodian/internal/auth"
	"github.com/tomtom215/custodian/internal/authz"
	"github.com/tomtom215/custodian/internal/config"
	"github.com/tomtom215/custodian/internal/logging"
)

// NewRouter builds the admin API router. Bearer authentication and
// role-based authorization are enabled when cfg.JWTSecret is set. Responses
// are gzip-compressed for clients that accept it.
func NewRouter(h *Handler, cfg config.ServerConfig) (http.Handler, error) {
	var jwtManager *auth.JWTManager
	authorize := func(string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler { return next }
	}
	if cfg.JWTSecret != "" {
		m, err := auth.NewJWTManager(cfg.JWTSecret, 0)
		if err != nil {
			return nil, fmt.Errorf("configure API authentication: %w", err)
		}
		jwtManager = m

		enforcer, err := authz.NewEnforcer(authz.EnforcerConfig{PolicyPath: cfg.AuthzPolicy})
		if err != nil {
			return nil, fmt.Errorf("configure API authorization: %w", err)
		}
		mw := authz.NewMiddleware(enforcer, respondForbidden)
		authorize = func(action string) func(http.Handler) http.Handler {
			return mw.Authorize(authz.ObjectBackups, action)
		}
	} else {
		logging.Warn().Msg("server.jwt_secret is not set; the admin API is unauthenticated")
	}

	r := chi.NewRouter()
	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(PrometheusMetrics)
	r.Use(RequestLogger)
	r.Use(CORS(cfg))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusNotFound, CodeNotFound, "route not found", nil, nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusMethodNotAllowed, CodeValidation, "method not allowed", nil, nil)
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(RateLimit(cfg))

		r.Get("/health", h.Health)

		r.Group(func(r chi.Router) {
			if jwtManager != nil {
				r.Use(auth.Middleware(jwtManager, respondUnauthorized))
			}

			r.Route("/backups", func(r chi.Router) {
				r.With(authorize(authz.ActionRead)).Get("/", h.ListBackups)
				r.With(authorize(authz.ActionCreate)).Post("/", h.CreateBackup)
				r.With(authorize(authz.ActionCleanup)).Post("/cleanup", h.CleanupBackups)

				r.Route("/{id}", func(r chi.Router) {
					r.With(authorize(authz.ActionRead)).Get("/", h.GetBackup)
					r.With(authorize(authz.ActionDelete)).Delete("/", h.DeleteBackup)
					r.With(authorize(authz.ActionVerify)).Post("/verify", h.VerifyBackup)
					r.With(authorize(authz.ActionRestore)).Post("/restore", h.RestoreBackup)
					r.With(authorize(authz.ActionCancel)).Post("/cancel", h.CancelBackup)
					r.With(authorize(authz.ActionDownload)).Get("/download", h.DownloadBackup)
				})
			})
		})
	})

	return gzhttp.GzipHandler(r), nil
}
