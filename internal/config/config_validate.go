// Custodian - GRC Backup and Restore Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodian

package config

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/tomtom215/custodian/internal/validation"
)

// MinEncryptionKeyLength is the minimum decoded key length in bytes.
const MinEncryptionKeyLength = 32

var supportedDrivers = map[string]bool{
	"mysql":    true,
	"mariadb":  true,
	"postgres": true,
	"pgsql":    true,
	"sqlite":   true,
	"duckdb":   true,
}

// Validate checks struct tags first, then cross-field rules.
func (c *Config) Validate() error {
	if verr := validation.ValidateStruct(c); verr != nil {
		return verr
	}

	validators := []func() error{
		c.validateDatabase,
		c.validateStorage,
		c.validateEncryption,
		c.validateLedger,
	}
	for _, v := range validators {
		if err := v(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateDatabase() error {
	driver := strings.ToLower(c.Database.Driver)
	if !supportedDrivers[driver] {
		return fmt.Errorf("DB_CONNECTION %q is not supported (use mysql, postgres, sqlite or duckdb)", c.Database.Driver)
	}
	if driver == "sqlite" || driver == "duckdb" {
		return nil
	}
	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required for %s", driver)
	}
	return nil
}

func (c *Config) validateStorage() error {
	switch c.Backup.DefaultStorage {
	case "local":
		if c.Storage.Local.Root == "" {
			return fmt.Errorf("storage.local.root is required when BACKUP_DISK=local")
		}
	case "private":
		if c.Storage.Private.Root == "" {
			return fmt.Errorf("storage.private.root is required when BACKUP_DISK=private")
		}
	case "s3":
		if !c.Storage.S3.Enabled {
			return fmt.Errorf("AWS_S3_ENABLED must be true when BACKUP_DISK=s3")
		}
	default:
		return fmt.Errorf("BACKUP_DISK %q is not a known storage backend", c.Backup.DefaultStorage)
	}

	if c.Storage.S3.Enabled && c.Storage.S3.Bucket == "" {
		return fmt.Errorf("AWS_BUCKET is required when S3 storage is enabled")
	}
	return nil
}

func (c *Config) validateEncryption() error {
	if c.Encryption.Key == "" {
		return nil
	}
	key, err := DecodeKey(c.Encryption.Key)
	if err != nil {
		return err
	}
	if len(key) < MinEncryptionKeyLength {
		return fmt.Errorf("encryption key must be at least %d bytes, got %d", MinEncryptionKeyLength, len(key))
	}
	return nil
}

func (c *Config) validateLedger() error {
	if !c.Ledger.InMemory && c.Ledger.Path == "" {
		return fmt.Errorf("LEDGER_PATH is required unless the ledger is in memory")
	}
	return nil
}

// DecodeKey returns the raw key bytes for a "base64:"-prefixed or raw key.
func DecodeKey(key string) ([]byte, error) {
	if encoded, ok := strings.CutPrefix(key, "base64:"); ok {
		raw, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("encryption key is not valid base64: %w", err)
		}
		return raw, nil
	}
	return []byte(key), nil
}
