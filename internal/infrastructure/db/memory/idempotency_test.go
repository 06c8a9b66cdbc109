package memory

import (
	"context"
	"testing"
	"time"
)

func TestIdempotency_FirstWriterWinsUntilExpiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewIdempotency(time.Minute)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	_ = store.Remember(ctx, "items", "k", "1")
	_ = store.Remember(ctx, "items", "k", "2")

	if id, found, _ := store.Recall(ctx, "items", "k"); !found || id != "1" {
		t.Fatalf("expected 1, got %q found=%v", id, found)
	}

	now = now.Add(2 * time.Minute)
	if _, found, _ := store.Recall(ctx, "items", "k"); found {
		t.Fatal("entry must expire")
	}
	_ = store.Remember(ctx, "items", "k", "3")
	if id, _, _ := store.Recall(ctx, "items", "k"); id != "3" {
		t.Fatalf("expected 3 after expiry, got %q", id)
	}
}
