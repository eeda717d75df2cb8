package checkin

import (
	"context"
	"testing"
	"time"
)

func seedRequest(store *fakeRequestStore, id string, status Status, expiresAt time.Time) {
	store.requests[id] = Request{
		ID:        id,
		ChildID:   "child-" + id,
		ServiceID: "svc-1",
		ParentID:  "parent-1",
		Token:     "TOKEN" + id,
		Status:    status,
		CreatedAt: expiresAt.Add(-15 * time.Minute),
		ExpiresAt: expiresAt,
	}
}

func TestSweepOnceExpiresExactlyStalePending(t *testing.T) {
	store := newFakeRequestStore()
	seedRequest(store, "stale-1", StatusPending, fixedNow.Add(-time.Minute))
	seedRequest(store, "stale-2", StatusPending, fixedNow.Add(-time.Hour))
	seedRequest(store, "fresh", StatusPending, fixedNow.Add(10*time.Minute))
	seedRequest(store, "done", StatusApproved, fixedNow.Add(-time.Hour))

	sweeper := NewSweeper(store, time.Minute)
	sweeper.clock = func() time.Time { return fixedNow }

	var notified []string
	sweeper.Notify = func(ids []string) { notified = append(notified, ids...) }

	ids, err := sweeper.SweepOnce(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(ids) != 2 || ids[0] != "stale-1" || ids[1] != "stale-2" {
		t.Fatalf("expected [stale-1 stale-2], got %v", ids)
	}
	if len(notified) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(notified))
	}
	if got := store.requests["stale-1"].Status; got != StatusExpired {
		t.Fatalf("stale-1 status = %s, want expired", got)
	}
	if got := store.requests["fresh"].Status; got != StatusPending {
		t.Fatalf("fresh status = %s, want pending", got)
	}
	if got := store.requests["done"].Status; got != StatusApproved {
		t.Fatalf("done status = %s, want approved", got)
	}
}

func TestSweepOnceIdempotent(t *testing.T) {
	store := newFakeRequestStore()
	seedRequest(store, "stale", StatusPending, fixedNow.Add(-time.Minute))

	sweeper := NewSweeper(store, time.Minute)
	sweeper.clock = func() time.Time { return fixedNow }

	first, err := sweeper.SweepOnce(context.Background())
	if err != nil {
		t.Fatalf("first sweep: %v", err)
	}
	if len(first) != 1 {
		t.Fatalf("expected 1 expired, got %d", len(first))
	}

	notifies := 0
	sweeper.Notify = func([]string) { notifies++ }
	second, err := sweeper.SweepOnce(context.Background())
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if len(second) != 0 {
		t.Fatalf("expected no-op second sweep, got %v", second)
	}
	if notifies != 0 {
		t.Fatalf("empty sweep must not notify, got %d calls", notifies)
	}
}

func TestSweepRespectsBoundary(t *testing.T) {
	store := newFakeRequestStore()
	// Expiring exactly at the cutoff is not yet stale.
	seedRequest(store, "edge", StatusPending, fixedNow)

	sweeper := NewSweeper(store, time.Minute)
	sweeper.clock = func() time.Time { return fixedNow }

	ids, err := sweeper.SweepOnce(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("expected nothing swept, got %v", ids)
	}
}
