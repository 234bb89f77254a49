package core

import (
	"context"
	"testing"
	"time"

	db "github.com/emilyselwood/csv-to-ics/internal/database"
	"github.com/jackc/pgx/v5/pgtype"
)

func TestRunRetentionJob(t *testing.T) {
	now := time.Date(2025, 7, 31, 12, 0, 0, 0, time.UTC)
	store := &fakeStore{rows: []db.Conversion{
		{SourceName: "old.csv", CreatedAt: pgtype.Timestamptz{Time: now.AddDate(0, 0, -45), Valid: true}},
		{SourceName: "new.csv", CreatedAt: pgtype.Timestamptz{Time: now.AddDate(0, 0, -2), Valid: true}},
	}}
	svc := newTestService(t, store)

	deleted := svc.runRetentionJob(context.Background(), RetentionConfig{RetentionDays: 30}, now)

	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}
	if len(store.rows) != 1 || store.rows[0].SourceName != "new.csv" {
		t.Errorf("remaining rows = %+v", store.rows)
	}
	if want := now.AddDate(0, 0, -30); !store.deleted[0].Equal(want) {
		t.Errorf("cutoff = %v, want %v", store.deleted[0], want)
	}
}

func TestStartRetentionScheduler_StopsOnCancel(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(t, store)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.StartRetentionScheduler(ctx, RetentionConfig{RetentionDays: 1, CheckInterval: time.Hour})
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.deleted) != 1 {
		t.Errorf("job ran %d times, want 1 on start", len(store.deleted))
	}
}

func TestStartRetentionScheduler_NoStore(t *testing.T) {
	svc := newTestService(t, nil)

	done := make(chan struct{})
	go func() {
		svc.StartRetentionScheduler(context.Background(), RetentionConfig{})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler should return at once without a store")
	}
}
