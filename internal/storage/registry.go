// Custodian - GRC Backup and Restore Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodian

package storage

import (
	"fmt"
	"path/filepath"

	"github.com/tomtom215/custodian/internal/config"
	"github.com/tomtom215/custodian/internal/logging"
)

// NewRegistry builds the configured backends. Relative local roots are
// resolved against appRoot.
func NewRegistry(cfg config.StorageConfig, appRoot string) (*Registry, error) {
	reg := NewEmptyRegistry()

	disks := []struct {
		name string
		root string
	}{
		{"local", cfg.Local.Root},
		{"private", cfg.Private.Root},
	}
	for _, d := range disks {
		if d.root == "" {
			continue
		}
		root := d.root
		if !filepath.IsAbs(root) && appRoot != "" {
			root = filepath.Join(appRoot, root)
		}
		backend, err := NewLocalBackend(d.name, root)
		if err != nil {
			return nil, err
		}
		reg.Register(decorate(backend, cfg.MaxBytesPerSecond))
	}

	if cfg.S3.Enabled {
		s3Backend, err := NewS3Backend(S3Options{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			Prefix:          cfg.S3.Prefix,
			UsePathStyle:    cfg.S3.UsePathStyle,
		})
		if err != nil {
			return nil, fmt.Errorf("configure s3 storage: %w", err)
		}
		breaker := NewBreaker(s3Backend, BreakerConfig{
			FailureThreshold: cfg.S3.BreakerFailures,
			Timeout:          cfg.S3.BreakerTimeout,
		})
		reg.Register(decorate(breaker, cfg.MaxBytesPerSecond))
	}

	logging.Debug().Strs("backends", reg.Names()).Msg("Storage backends registered")
	return reg, nil
}

func decorate(b Backend, bytesPerSecond int64) Backend {
	if bytesPerSecond > 0 {
		b = NewThrottle(b, bytesPerSecond)
	}
	return NewInstrumented(b)
}
