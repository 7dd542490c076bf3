// Custodian - GRC Backup and Restore Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodian

//go:build nats

package events

import (
	"context"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/nats-io/nats-server/v2/server"
	natsgo "github.com/nats-io/nats.go"

	"github.com/tomtom215/custodian/internal/ledger"
)

func startNATS(t *testing.T) string {
	t.Helper()
	ns, err := server.NewServer(&server.Options{
		Host:   "127.0.0.1",
		Port:   -1,
		NoLog:  true,
		NoSigs: true,
	})
	if err != nil {
		t.Fatalf("create NATS server: %v", err)
	}
	go ns.Start()
	if !ns.ReadyForConnections(10 * time.Second) {
		ns.Shutdown()
		t.Fatal("NATS server not ready")
	}
	t.Cleanup(func() {
		ns.Shutdown()
		ns.WaitForShutdown()
	})
	return ns.ClientURL()
}

func TestNATSPublisher_PublishJob(t *testing.T) {
	url := startNATS(t)

	nc, err := natsgo.Connect(url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer nc.Close()

	sub, err := nc.SubscribeSync(DefaultTopic)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	pub, err := NewNATSPublisher(url, DefaultTopic)
	if err != nil {
		t.Fatalf("NewNATSPublisher: %v", err)
	}
	defer pub.Close()

	job := ledger.NewJob("nightly", ledger.TypeDatabase, time.Now())
	if err := pub.PublishJob(context.Background(), job); err != nil {
		t.Fatalf("PublishJob: %v", err)
	}

	msg, err := sub.NextMsg(5 * time.Second)
	if err != nil {
		t.Fatalf("NextMsg: %v", err)
	}

	var event JobEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if event.Event != "backup.job.pending" || event.JobID != job.ID {
		t.Errorf("unexpected event %+v", event)
	}
}

func TestNewNATSPublisher_RequiresURL(t *testing.T) {
	if _, err := NewNATSPublisher("", DefaultTopic); err == nil {
		t.Error("expected error without URL")
	}
}
