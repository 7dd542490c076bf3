// Custodian - GRC Backup and Restore Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodian

package models

import (
	"time"
)

// Response status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// APIResponse wraps every admin API response.
//
//	{
//	  "status": "success",
//	  "data": {"id": "4f0c...", "status": "pending", ...},
//	  "metadata": {"timestamp": "2026-03-14T09:26:53Z", "request_id": "..."}
//	}
//
//	{
//	  "status": "error",
//	  "error": {"code": "NOT_FOUND", "message": "backup job not found"},
//	  "metadata": {"timestamp": "2026-03-14T09:26:53Z"}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata describes the response itself.
type Metadata struct {
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
	// Count is the number of items in a list response.
	Count *int `json:"count,omitempty"`
}

// APIError is a machine-readable error.
//
// Codes used by the admin API:
//   - VALIDATION_ERROR: the request body or query is invalid
//   - UNAUTHORIZED: missing, invalid or expired bearer token
//   - NOT_FOUND: no such backup job
//   - CONFLICT: the job is in the wrong state for the operation
//   - VERIFICATION_FAILED: restore refused because the artifact did not verify
//   - NOT_SUPPORTED: the storage backend cannot issue download URLs
//   - STORAGE_UNAVAILABLE: the storage backend's circuit breaker is open
//   - RATE_LIMIT_EXCEEDED: too many requests
//   - INTERNAL_ERROR: anything else
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
