// Custodian - GRC Backup and Restore Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodian

package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"

	"github.com/tomtom215/custodian/internal/ledger"
	"github.com/tomtom215/custodian/internal/logging"
	"github.com/tomtom215/custodian/internal/metrics"
)

// WatermillPublisher publishes JobEvents to one topic of any Watermill publisher.
type WatermillPublisher struct {
	publisher message.Publisher
	topic     string
	now       func() time.Time

	mu     sync.RWMutex
	closed bool
}

// NewWatermillPublisher wraps pub.
func NewWatermillPublisher(pub message.Publisher, topic string) *WatermillPublisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &WatermillPublisher{publisher: pub, topic: topic, now: time.Now}
}

// NewGoChannel creates an in-process publisher. The returned GoChannel can be
// used to subscribe to the same topic.
func NewGoChannel(topic string) (*WatermillPublisher, *gochannel.GoChannel) {
	gc := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 64,
	}, logging.NewWatermillLogger())
	return NewWatermillPublisher(gc, topic), gc
}

// Topic returns the topic events are published on.
func (p *WatermillPublisher) Topic() string {
	return p.topic
}

// PublishJob publishes the event for job's current status.
func (p *WatermillPublisher) PublishJob(ctx context.Context, job *ledger.BackupJob) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return fmt.Errorf("publisher is closed")
	}

	event := NewJobEvent(job, p.now())
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal job event: %w", err)
	}

	msg := message.NewMessage(event.EventID, data)
	msg.Metadata.Set("event", event.Event)
	msg.Metadata.Set("job_id", event.JobID)
	msg.SetContext(ctx)

	err = p.publisher.Publish(p.topic, msg)
	metrics.RecordEventPublished(event.Event, err)
	if err != nil {
		return fmt.Errorf("publish %s: %w", event.Event, err)
	}
	return nil
}

// Close shuts down the underlying publisher.
func (p *WatermillPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.publisher.Close()
}

// DecodeJobEvent parses a message payload published by WatermillPublisher.
func DecodeJobEvent(msg *message.Message) (JobEvent, error) {
	var event JobEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return event, fmt.Errorf("decode job event: %w", err)
	}
	return event, nil
}
