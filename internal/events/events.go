// Custodian - GRC Backup and Restore Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodian

package events

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/custodian/internal/config"
	"github.com/tomtom215/custodian/internal/ledger"
	"github.com/tomtom215/custodian/internal/logging"
)

// DefaultTopic is used when the configured topic is empty.
const DefaultTopic = "backup.jobs"

// JobEvent is the payload published on every job status change.
type JobEvent struct {
	EventID       string         `json:"event_id"`
	Event         string         `json:"event"`
	JobID         string         `json:"job_id"`
	Name          string         `json:"name"`
	Type          ledger.JobType `json:"type"`
	Status        ledger.Status  `json:"status"`
	StorageDriver string         `json:"storage_driver,omitempty"`
	FilePath      string         `json:"file_path,omitempty"`
	FileSizeBytes int64          `json:"file_size_bytes,omitempty"`
	ErrorMessage  string         `json:"error_message,omitempty"`
	CreatedBy     string         `json:"created_by,omitempty"`
	OccurredAt    time.Time      `json:"occurred_at"`
}

// EventName returns the event name for a status.
func EventName(status ledger.Status) string {
	return "backup.job." + string(status)
}

// NewJobEvent builds the event for a job's current status.
func NewJobEvent(job *ledger.BackupJob, at time.Time) JobEvent {
	return JobEvent{
		EventID:       uuid.New().String(),
		Event:         EventName(job.Status),
		JobID:         job.ID,
		Name:          job.Name,
		Type:          job.Type,
		Status:        job.Status,
		StorageDriver: job.StorageDriver,
		FilePath:      job.FilePath,
		FileSizeBytes: job.FileSizeBytes,
		ErrorMessage:  job.ErrorMessage,
		CreatedBy:     job.CreatedBy,
		OccurredAt:    at.UTC(),
	}
}

// Publisher publishes job lifecycle events.
type Publisher interface {
	PublishJob(ctx context.Context, job *ledger.BackupJob) error
	Close() error
}

// Noop discards every event.
type Noop struct{}

// PublishJob implements Publisher.
func (Noop) PublishJob(context.Context, *ledger.BackupJob) error { return nil }

// Close implements Publisher.
func (Noop) Close() error { return nil }

// New builds the publisher selected by cfg.
func New(cfg config.EventsConfig) (Publisher, error) {
	if !cfg.Enabled {
		return Noop{}, nil
	}

	topic := cfg.Topic
	if topic == "" {
		topic = DefaultTopic
	}

	switch cfg.Transport {
	case "", "gochannel":
		pub, _ := NewGoChannel(topic)
		logging.Info().Str("topic", topic).Msg("Job events published in-process")
		return pub, nil
	case "nats":
		pub, err := NewNATSPublisher(cfg.NATSURL, topic)
		if err != nil {
			return nil, err
		}
		logging.Info().Str("topic", topic).Str("url", logging.RedactDSN(cfg.NATSURL)).Msg("Job events published to NATS")
		return pub, nil
	default:
		return nil, fmt.Errorf("unknown events transport %q", cfg.Transport)
	}
}
