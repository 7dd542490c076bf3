// Custodian - GRC Backup and Restore Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodian

package ledger

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

func newTestStore(t *testing.T) *BadgerStore {
	t.Helper()
	store, err := Open(Options{InMemory: true})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestBadgerStore_CRUD(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	job := NewJob("first", TypeDatabase, testNow)
	job.ExcludedTables = []string{"sessions"}
	if err := store.Create(ctx, job); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := store.Create(ctx, job); err == nil {
		t.Error("expected duplicate Create to fail")
	}

	got, err := store.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != "first" || got.Status != StatusPending || got.ExcludedTables[0] != "sessions" {
		t.Errorf("unexpected job %+v", got)
	}
	if !got.CreatedAt.Equal(testNow) {
		t.Errorf("CreatedAt round trip: got %v", got.CreatedAt)
	}

	_ = got.MarkRunning(testNow)
	if err := store.Update(ctx, got); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, _ = store.Get(ctx, job.ID)
	if got.Status != StatusRunning {
		t.Errorf("expected running, got %s", got.Status)
	}

	if err := store.Delete(ctx, job.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(ctx, job.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.Delete(ctx, job.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound deleting twice, got %v", err)
	}
}

func TestBadgerStore_UpdateMissing(t *testing.T) {
	store := newTestStore(t)
	job := NewJob("ghost", TypeDatabase, testNow)
	if err := store.Update(context.Background(), job); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestBadgerStore_ExpiresAtImmutable(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	job := NewJob("r", TypeDatabase, testNow)
	job.SetRetention(testNow, 7)
	if err := store.Create(ctx, job); err != nil {
		t.Fatalf("Create: %v", err)
	}

	job.SetRetention(testNow, 365)
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, _ := store.Get(ctx, job.ID)
	if !got.ExpiresAt.Equal(testNow.AddDate(0, 0, 7)) {
		t.Errorf("ExpiresAt changed to %v", got.ExpiresAt)
	}
}

func TestBadgerStore_CancelledCannotComplete(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	job := NewJob("race", TypeDatabase, testNow)
	_ = job.MarkRunning(testNow)
	if err := store.Create(ctx, job); err != nil {
		t.Fatalf("Create: %v", err)
	}

	// A second caller cancels the stored job.
	other, _ := store.Get(ctx, job.ID)
	_ = other.MarkCancelled(testNow, "cancelled by operator")
	if err := store.Update(ctx, other); err != nil {
		t.Fatalf("cancel Update: %v", err)
	}

	// The worker's stale copy tries to complete.
	_ = job.MarkCompleted(testNow, Artifact{Path: "p", Checksum: "c"})
	err := store.Update(ctx, job)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	got, _ := store.Get(ctx, job.ID)
	if got.Status != StatusCancelled {
		t.Errorf("expected cancelled to win, got %s", got.Status)
	}
}

func TestBadgerStore_List(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	for i := 0; i < 5; i++ {
		job := NewJob(fmt.Sprintf("job-%d", i), TypeDatabase, testNow.Add(time.Duration(i)*time.Hour))
		job.StorageDriver = "local"
		if i%2 == 1 {
			job.Type = TypeFull
			job.StorageDriver = "s3"
		}
		if err := store.Create(ctx, job); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	tests := []struct {
		name   string
		filter ListFilter
		want   []string
	}{
		{"all newest first", ListFilter{}, []string{"job-4", "job-3", "job-2", "job-1", "job-0"}},
		{"ascending", ListFilter{SortAsc: true}, []string{"job-0", "job-1", "job-2", "job-3", "job-4"}},
		{"by type", ListFilter{Type: TypeFull}, []string{"job-3", "job-1"}},
		{"by storage", ListFilter{StorageDriver: "local"}, []string{"job-4", "job-2", "job-0"}},
		{"created before", ListFilter{CreatedBefore: testNow.Add(2 * time.Hour)}, []string{"job-1", "job-0"}},
		{"limit", ListFilter{Limit: 2}, []string{"job-4", "job-3"}},
		{"offset", ListFilter{Offset: 3}, []string{"job-1", "job-0"}},
		{"offset past end", ListFilter{Offset: 10}, []string{}},
		{"status", ListFilter{Status: StatusCompleted}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jobs, err := store.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(jobs) != len(tt.want) {
				t.Fatalf("expected %d jobs, got %d", len(tt.want), len(jobs))
			}
			for i, name := range tt.want {
				if jobs[i].Name != name {
					t.Errorf("position %d: expected %s, got %s", i, name, jobs[i].Name)
				}
			}
		})
	}
}

func TestBadgerStore_OnDisk(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := Open(Options{Path: dir})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	job := NewJob("persisted", TypeDatabase, testNow)
	if err := store.Create(ctx, job); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := store.RunGC(); err != nil {
		t.Errorf("RunGC: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := Open(Options{Path: dir})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if got.Name != "persisted" {
		t.Errorf("unexpected name %q", got.Name)
	}
}

func TestBadgerStore_Closed(t *testing.T) {
	store, err := Open(Options{InMemory: true})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := store.Ping(context.Background()); err != nil {
		t.Fatalf("Ping on open store: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := store.Ping(context.Background()); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("Ping after Close: expected ErrStoreClosed, got %v", err)
	}
	if err := store.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if _, err := store.Get(context.Background(), "x"); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("expected ErrStoreClosed, got %v", err)
	}
}

func TestOpen_RequiresPath(t *testing.T) {
	if _, err := Open(Options{}); err == nil {
		t.Error("expected error without path")
	}
}

func TestGCService_StopsOnCancel(t *testing.T) {
	store := newTestStore(t)
	svc := NewGCService(store, 5*time.Millisecond)
	if svc.String() != "ledger-gc" {
		t.Errorf("unexpected name %q", svc.String())
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("GC service did not stop")
	}
}

func TestGCService_StopsWhenStoreClosed(t *testing.T) {
	store, err := Open(Options{InMemory: true})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	store.Close()

	done := make(chan error, 1)
	go func() { done <- NewGCService(store, 5*time.Millisecond).Serve(context.Background()) }()

	select {
	case err := <-done:
		if !errors.Is(err, suture.ErrDoNotRestart) {
			t.Errorf("expected suture.ErrDoNotRestart, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("GC service kept running on a closed store")
	}
}
