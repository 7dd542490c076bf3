// Custodian - GRC Backup and Restore Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodian

package cli

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/fatih/color"

	"github.com/tomtom215/custodian/internal/backup"
	"github.com/tomtom215/custodian/internal/codec"
	"github.com/tomtom215/custodian/internal/config"
	"github.com/tomtom215/custodian/internal/events"
	"github.com/tomtom215/custodian/internal/ledger"
	"github.com/tomtom215/custodian/internal/logging"
	"github.com/tomtom215/custodian/internal/storage"
)

// environment is everything a command needs, opened from configuration.
type environment struct {
	cfg       *config.Config
	store     *ledger.BadgerStore
	storage   *storage.Registry
	publisher events.Publisher
	svc       *backup.Service
}

// openEnvironment loads configuration and wires the backup service.
func (a *App) openEnvironment() (*environment, error) {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return nil, err
	}
	a.initLogging(cfg)

	env := &environment{cfg: cfg}
	if err := env.open(); err != nil {
		if cerr := env.Close(); cerr != nil {
			logging.Warn().Err(cerr).Msg("Failed to close partially opened environment")
		}
		return nil, err
	}
	return env, nil
}

func (a *App) initLogging(cfg *config.Config) {
	lc := logging.DefaultConfig()
	lc.Level = cfg.Logging.Level
	if a.logLevel != "" {
		lc.Level = a.logLevel
	}
	lc.Format = a.logFormat
	if lc.Format == "" {
		lc.Format = "console"
		if a.serving {
			lc.Format = cfg.Logging.Format
		}
	}
	lc.Caller = cfg.Logging.Caller
	lc.Version = Version
	lc.NoColor = color.NoColor
	lc.Output = a.stderr
	logging.Init(lc)
}

func (e *environment) open() error {
	cfg := e.cfg

	ledgerPath := cfg.Ledger.Path
	if ledgerPath != "" && !filepath.IsAbs(ledgerPath) {
		ledgerPath = filepath.Join(cfg.App.Root, ledgerPath)
	}
	store, err := ledger.Open(ledger.Options{Path: ledgerPath, InMemory: cfg.Ledger.InMemory})
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	e.store = store

	reg, err := storage.NewRegistry(cfg.Storage, cfg.App.Root)
	if err != nil {
		return fmt.Errorf("configure storage: %w", err)
	}
	e.storage = reg

	var enc *codec.Encryptor
	if cfg.Encryption.Key != "" {
		key, err := config.DecodeKey(cfg.Encryption.Key)
		if err != nil {
			return err
		}
		if enc, err = codec.NewEncryptor(key); err != nil {
			return fmt.Errorf("configure encryption: %w", err)
		}
	}

	pub, err := events.New(cfg.Events)
	if err != nil {
		return fmt.Errorf("configure events: %w", err)
	}
	e.publisher = pub

	svc, err := backup.NewService(backup.Options{
		Config:    cfg,
		Ledger:    store,
		Storage:   reg,
		Encryptor: enc,
		Publisher: pub,
	})
	if err != nil {
		return err
	}
	e.svc = svc
	return nil
}

// Close releases the publisher and the ledger.
func (e *environment) Close() error {
	var errs []error
	if e.publisher != nil {
		if err := e.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close events publisher: %w", err))
		}
	}
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close ledger: %w", err))
		}
	}
	return errors.Join(errs...)
}
