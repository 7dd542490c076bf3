// Custodian - GRC Backup and Restore Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodian

//go:build !nats

package events

import "fmt"

// NewNATSPublisher is unavailable without the nats build tag.
func NewNATSPublisher(url, topic string) (*WatermillPublisher, error) {
	return nil, fmt.Errorf("NATS publisher not available: build with -tags=nats")
}
