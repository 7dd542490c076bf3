// Custodian - GRC Backup and Restore Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodian

package api

import (
	"errors"
	"net/http"

	"github.com/tomtom215/custodian/internal/auth"
	"github.com/tomtom215/custodian/internal/authz"
	"github.com/tomtom215/custodian/internal/backup"
	"github.com/tomtom215/custodian/internal/dbdriver"
	"github.com/tomtom215/custodian/internal/ledger"
	"github.com/tomtom215/custodian/internal/models"
	"github.com/tomtom215/custodian/internal/storage"
)

// Error codes carried in models.APIError.
const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeNotFound           = "NOT_FOUND"
	CodeConflict           = "CONFLICT"
	CodeVerificationFailed = "VERIFICATION_FAILED"
	CodeNotSupported       = "NOT_SUPPORTED"
	CodeStorageUnavailable = "STORAGE_UNAVAILABLE"
	CodeRateLimited        = "RATE_LIMIT_EXCEEDED"
	CodeInternal           = "INTERNAL_ERROR"
)

// classify maps a service error to an HTTP status and error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ledger.ErrNotFound), errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, backup.ErrJobActive),
		errors.Is(err, backup.ErrJobNotActive),
		errors.Is(err, backup.ErrJobNotCompleted),
		errors.Is(err, ledger.ErrInvalidTransition):
		return http.StatusConflict, CodeConflict
	case errors.Is(err, backup.ErrEngineMismatch):
		return http.StatusUnprocessableEntity, CodeConflict
	case errors.Is(err, backup.ErrInvalidConfig),
		errors.Is(err, backup.ErrUnsupportedType),
		errors.Is(err, backup.ErrEncryptionUnavailable),
		errors.Is(err, dbdriver.ErrUnsupportedDriver):
		return http.StatusBadRequest, CodeValidation
	case errors.Is(err, storage.ErrTemporaryURLNotSupported):
		return http.StatusNotImplemented, CodeNotSupported
	case errors.Is(err, storage.ErrCircuitOpen):
		return http.StatusServiceUnavailable, CodeStorageUnavailable
	case errors.Is(err, auth.ErrNoCredentials),
		errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrExpiredCredentials):
		return http.StatusUnauthorized, CodeUnauthorized
	case errors.Is(err, authz.ErrForbidden):
		return http.StatusForbidden, CodeForbidden
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

// respondServiceError renders err using classify. Internal errors get a
// generic message; the cause is only logged.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal server error"
	}
	respondError(w, r, status, code, message, err, nil)
}

// respondUnauthorized is the auth.ErrorHandler for the API.
func respondUnauthorized(w http.ResponseWriter, r *http.Request, err error) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="custodian"`)
	respondError(w, r, http.StatusUnauthorized, CodeUnauthorized, err.Error(), err, nil)
}

// respondForbidden is the authz error handler for the API.
func respondForbidden(w http.ResponseWriter, r *http.Request, err error) {
	respondServiceError(w, r, err)
}

// respondRateLimited is the httprate limit handler.
func respondRateLimited(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusTooManyRequests, &models.APIResponse{
		Status:   models.StatusError,
		Metadata: metadata(r),
		Error: &models.APIError{
			Code:    CodeRateLimited,
			Message: "too many requests",
		},
	})
}
