// Custodian - GRC Backup and Restore Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodian

package backup

import (
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/custodian/internal/ledger"
	"github.com/tomtom215/custodian/internal/validation"
)

// nameTimeFormat is used in generated backup names.
const nameTimeFormat = "2006-01-02_15-04-05"

// BackupConfig is the per-job request. Start from Service.DefaultBackupConfig
// and override fields; zero values are taken literally.
type BackupConfig struct {
	// Name is the artifact directory; generated when empty.
	Name     string `json:"name,omitempty" validate:"omitempty,max=128,backupname"`
	Encrypt  bool   `json:"encrypt"`
	Compress bool   `json:"compress"`
	// StorageDriver names the backend; the configured default when empty.
	StorageDriver string `json:"storage_driver,omitempty"`
	// RetentionDays sets ExpiresAt; 0 keeps the backup forever.
	RetentionDays int      `json:"retention_days" validate:"gte=0,lte=36500"`
	IncludeTables []string `json:"include_tables,omitempty" validate:"dive,identifier"`
	ExcludeTables []string `json:"exclude_tables,omitempty" validate:"dive,identifier"`

	// BackupDirectories and ExcludePatterns apply to files and full backups.
	// Relative directories are resolved against the application root.
	BackupDirectories []string `json:"backup_directories,omitempty" validate:"dive,required"`
	ExcludePatterns   []string `json:"exclude_patterns,omitempty" validate:"dive,required"`

	CreatedBy string `json:"created_by,omitempty" validate:"max=255"`
}

// DefaultBackupConfig returns the process-wide defaults.
func (s *Service) DefaultBackupConfig() BackupConfig {
	b := s.cfg.Backup
	return BackupConfig{
		Compress:          b.Compress,
		StorageDriver:     b.DefaultStorage,
		RetentionDays:     b.RetentionDays,
		ExcludeTables:     append([]string(nil), b.ExcludeTables...),
		BackupDirectories: append([]string(nil), b.Directories...),
		ExcludePatterns:   append([]string(nil), b.ExcludePatterns...),
	}
}

// GenerateName returns the default name for a job of jobType started at now.
func GenerateName(jobType ledger.JobType, now time.Time) string {
	return fmt.Sprintf("backup_%s_%s", jobType, now.UTC().Format(nameTimeFormat))
}

// normalize fills defaults and validates cfg.
func (s *Service) normalize(cfg BackupConfig, jobType ledger.JobType, now time.Time) (BackupConfig, error) {
	cfg.Name = strings.TrimSpace(cfg.Name)
	if cfg.Name == "" {
		cfg.Name = GenerateName(jobType, now)
	}
	if cfg.StorageDriver == "" {
		cfg.StorageDriver = s.cfg.Backup.DefaultStorage
	}
	if jobType == ledger.TypeFull || jobType == ledger.TypeFiles {
		if len(cfg.BackupDirectories) == 0 {
			cfg.BackupDirectories = append([]string(nil), s.cfg.Backup.Directories...)
		}
		if cfg.ExcludePatterns == nil {
			cfg.ExcludePatterns = append([]string(nil), s.cfg.Backup.ExcludePatterns...)
		}
	}

	if verr := validation.ValidateStruct(cfg); verr != nil {
		return cfg, fmt.Errorf("%w: %v", ErrInvalidConfig, verr)
	}
	if jobType == ledger.TypeFull || jobType == ledger.TypeFiles {
		if len(cfg.BackupDirectories) == 0 {
			return cfg, fmt.Errorf("%w: no backup directories configured", ErrInvalidConfig)
		}
	}
	return cfg, nil
}
