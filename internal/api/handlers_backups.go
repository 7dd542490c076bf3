// Custodian - GRC Backup and Restore Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodian

/*
handlers_backups.go - Backup Job Handlers

HTTP handlers for the backup job lifecycle: list, start, inspect, delete,
verify, restore, cancel, download and the retention sweep.
*/

//nolint:staticcheck // File documentation, not package doc
package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tomtom215/custodian/internal/auth"
	"github.com/tomtom215/custodian/internal/backup"
	"github.com/tomtom215/custodian/internal/ledger"
	"github.com/tomtom215/custodian/internal/logging"
	"github.com/tomtom215/custodian/internal/validation"
)

const (
	defaultListLimit = 50
	maxListLimit     = 1000
)

// CreateBackupRequest is the body of POST /api/v1/backups. Omitted fields
// take the configured defaults.
type CreateBackupRequest struct {
	Type              string   `json:"type" validate:"required,oneof=database full files"`
	Name              string   `json:"name,omitempty" validate:"omitempty,max=128,backupname"`
	Encrypt           bool     `json:"encrypt"`
	Compress          *bool    `json:"compress,omitempty"`
	Storage           string   `json:"storage,omitempty" validate:"omitempty,max=64"`
	RetentionDays     *int     `json:"retention_days,omitempty" validate:"omitempty,gte=0,lte=36500"`
	IncludeTables     []string `json:"include_tables,omitempty" validate:"dive,identifier"`
	ExcludeTables     []string `json:"exclude_tables,omitempty" validate:"dive,identifier"`
	BackupDirectories []string `json:"backup_directories,omitempty" validate:"dive,required"`
	ExcludePatterns   []string `json:"exclude_patterns,omitempty" validate:"dive,required"`
}

// apply overlays the request on the service defaults.
func (req *CreateBackupRequest) apply(cfg backup.BackupConfig, createdBy string) backup.BackupConfig {
	cfg.Name = req.Name
	cfg.Encrypt = req.Encrypt
	if req.Compress != nil {
		cfg.Compress = *req.Compress
	}
	if req.Storage != "" {
		cfg.StorageDriver = req.Storage
	}
	if req.RetentionDays != nil {
		cfg.RetentionDays = *req.RetentionDays
	}
	if req.IncludeTables != nil {
		cfg.IncludeTables = req.IncludeTables
	}
	if req.ExcludeTables != nil {
		cfg.ExcludeTables = req.ExcludeTables
	}
	if req.BackupDirectories != nil {
		cfg.BackupDirectories = req.BackupDirectories
	}
	if req.ExcludePatterns != nil {
		cfg.ExcludePatterns = req.ExcludePatterns
	}
	cfg.CreatedBy = createdBy
	return cfg
}

// createdBy names the caller recorded on new jobs.
func createdBy(ctx context.Context) string {
	if s := auth.SubjectFromContext(ctx); s != nil && s.Name != "" {
		return "api:" + s.Name
	}
	return "api"
}

// jobID returns the {id} path parameter, or writes a 400 and returns false.
func jobID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		respondError(w, r, http.StatusBadRequest, CodeValidation, "invalid backup job id", nil, nil)
		return "", false
	}
	return id, true
}

func respondValidation(w http.ResponseWriter, r *http.Request, verr *validation.Error) {
	respondError(w, r, http.StatusBadRequest, CodeValidation, verr.Error(), nil, verr.Details())
}

// parseListFilter reads status, type, storage, limit, offset and sort.
func parseListFilter(r *http.Request) (ledger.ListFilter, error) {
	q := r.URL.Query()
	filter := ledger.ListFilter{
		Status:        ledger.Status(q.Get("status")),
		Type:          ledger.JobType(q.Get("type")),
		StorageDriver: q.Get("storage"),
		Limit:         defaultListLimit,
	}

	switch filter.Status {
	case "", ledger.StatusPending, ledger.StatusRunning, ledger.StatusCompleted, ledger.StatusFailed, ledger.StatusCancelled:
	default:
		return filter, fmt.Errorf("unknown status %q", filter.Status)
	}
	switch filter.Type {
	case "", ledger.TypeDatabase, ledger.TypeFiles, ledger.TypeFull, ledger.TypeIncremental:
	default:
		return filter, fmt.Errorf("unknown type %q", filter.Type)
	}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxListLimit {
			return filter, fmt.Errorf("limit must be between 1 and %d", maxListLimit)
		}
		filter.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return filter, fmt.Errorf("offset must be a non-negative integer")
		}
		filter.Offset = n
	}
	switch q.Get("sort") {
	case "", "desc":
	case "asc":
		filter.SortAsc = true
	default:
		return filter, fmt.Errorf("sort must be asc or desc")
	}
	return filter, nil
}

// ListBackups handles GET /api/v1/backups.
func (h *Handler) ListBackups(w http.ResponseWriter, r *http.Request) {
	filter, err := parseListFilter(r)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, CodeValidation, err.Error(), nil, nil)
		return
	}
	jobs, err := h.svc.List(r.Context(), filter)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondList(w, r, jobs)
}

// CreateBackup handles POST /api/v1/backups. The job runs in the background
// and the pending entry is returned with 202.
func (h *Handler) CreateBackup(w http.ResponseWriter, r *http.Request) {
	var req CreateBackupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, CodeValidation, "invalid request body", err, nil)
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondValidation(w, r, verr)
		return
	}

	cfg := req.apply(h.svc.DefaultBackupConfig(), createdBy(r.Context()))
	job, err := h.svc.Start(r.Context(), ledger.JobType(req.Type), cfg)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	logging.Ctx(r.Context()).Info().
		Str("job_id", job.ID).
		Str("type", req.Type).
		Str("storage", job.StorageDriver).
		Msg("Backup job started")
	w.Header().Set("Location", "/api/v1/backups/"+job.ID)
	respondData(w, r, http.StatusAccepted, job)
}

// GetBackup handles GET /api/v1/backups/{id}.
func (h *Handler) GetBackup(w http.ResponseWriter, r *http.Request) {
	id, ok := jobID(w, r)
	if !ok {
		return
	}
	job, err := h.svc.Get(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondData(w, r, http.StatusOK, job)
}

// DeleteBackup handles DELETE /api/v1/backups/{id}.
func (h *Handler) DeleteBackup(w http.ResponseWriter, r *http.Request) {
	id, ok := jobID(w, r)
	if !ok {
		return
	}
	job, err := h.svc.Delete(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondData(w, r, http.StatusOK, job)
}

// VerifyBackup handles POST /api/v1/backups/{id}/verify. An artifact that
// fails verification is a 200 with valid=false.
func (h *Handler) VerifyBackup(w http.ResponseWriter, r *http.Request) {
	id, ok := jobID(w, r)
	if !ok {
		return
	}
	res, err := h.svc.Verify(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondData(w, r, http.StatusOK, res)
}

// RestoreBackup handles POST /api/v1/backups/{id}/restore. The job is
// verified first and a failed verification is a 422.
func (h *Handler) RestoreBackup(w http.ResponseWriter, r *http.Request) {
	id, ok := jobID(w, r)
	if !ok {
		return
	}
	var opts backup.RestoreOptions
	if err := decodeJSON(w, r, &opts); err != nil {
		respondError(w, r, http.StatusBadRequest, CodeValidation, "invalid request body", err, nil)
		return
	}
	verified, err := h.svc.Verify(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if !verified.Valid {
		respondError(w, r, http.StatusUnprocessableEntity, CodeVerificationFailed,
			"backup failed verification; refusing to restore", nil,
			map[string]interface{}{"job_id": verified.JobID, "reason": verified.Reason})
		return
	}

	// A client disconnect must not abort a restore halfway through.
	ctx := context.WithoutCancel(r.Context())
	res, err := h.svc.Restore(ctx, id, opts)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondData(w, r, http.StatusOK, res)
}

// CancelBackup handles POST /api/v1/backups/{id}/cancel.
func (h *Handler) CancelBackup(w http.ResponseWriter, r *http.Request) {
	id, ok := jobID(w, r)
	if !ok {
		return
	}
	job, err := h.svc.Cancel(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondData(w, r, http.StatusOK, job)
}

// DownloadBackup handles GET /api/v1/backups/{id}/download with a redirect
// to a time-limited URL.
func (h *Handler) DownloadBackup(w http.ResponseWriter, r *http.Request) {
	id, ok := jobID(w, r)
	if !ok {
		return
	}
	url, err := h.svc.DownloadURL(r.Context(), id, h.downloadTTL)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, url, http.StatusFound)
}

// CleanupBackups handles POST /api/v1/backups/cleanup. Per-entry failures
// are reported in the result, not as an error status.
func (h *Handler) CleanupBackups(w http.ResponseWriter, r *http.Request) {
	var opts backup.CleanupOptions
	if err := decodeJSON(w, r, &opts); err != nil {
		respondError(w, r, http.StatusBadRequest, CodeValidation, "invalid request body", err, nil)
		return
	}
	if verr := validation.ValidateStruct(&opts); verr != nil {
		respondValidation(w, r, verr)
		return
	}
	res, err := h.svc.Cleanup(r.Context(), opts)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondData(w, r, http.StatusOK, res)
}
