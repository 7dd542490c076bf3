// Custodian - GRC Backup and Restore Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodian

package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/custodian/internal/logging"
)

const defaultGCInterval = 10 * time.Minute

// GCService periodically runs ledger value-log garbage collection.
// It implements suture.Service.
type GCService struct {
	store    *BadgerStore
	interval time.Duration
}

// NewGCService creates a GC service. A non-positive interval uses 10 minutes.
func NewGCService(store *BadgerStore, interval time.Duration) *GCService {
	if interval <= 0 {
		interval = defaultGCInterval
	}
	return &GCService{store: store, interval: interval}
}

// Serve runs until ctx is cancelled.
func (g *GCService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			rewritten, err := g.store.RunGC()
			if err != nil {
				if errors.Is(err, ErrStoreClosed) {
					logging.Info().Msg("Ledger closed, stopping GC")
					return suture.ErrDoNotRestart
				}
				logging.Warn().Err(err).Msg("Ledger GC failed")
				continue
			}
			logging.Debug().Bool("rewritten", rewritten).Msg("Ledger GC complete")
		}
	}
}

// String returns the service name for supervisor logging.
func (g *GCService) String() string {
	return "ledger-gc"
}
