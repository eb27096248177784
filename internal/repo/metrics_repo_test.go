package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/go-wellness-backend/internal/domain"
)

func TestMetricsSnapshots_Latest(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	if _, err := LatestMetricsSnapshot(ctx, db, "u1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("no snapshots: want ErrNotFound, got %v", err)
	}

	steps1, steps2 := 1200.0, 8400.0
	old := &domain.MetricsSnapshot{UserID: "u1", Steps: &steps1, RecordedAt: time.Now().UTC().Add(-time.Hour)}
	cur := &domain.MetricsSnapshot{UserID: "u1", Steps: &steps2}
	for _, s := range []*domain.MetricsSnapshot{old, cur} {
		if err := CreateMetricsSnapshot(ctx, db, s); err != nil {
			t.Fatalf("CreateMetricsSnapshot: %v", err)
		}
	}

	got, err := LatestMetricsSnapshot(ctx, db, "u1")
	if err != nil {
		t.Fatalf("LatestMetricsSnapshot: %v", err)
	}
	if got.ID != cur.ID || got.Steps == nil || *got.Steps != 8400 || got.HeartRate != nil {
		t.Fatalf("unexpected latest snapshot: %+v", got)
	}
}

func TestCreateConversationSignal(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	sig := &domain.ConversationSignal{UserID: "u1", EntryID: "e1", MessageID: "m1", PromptWords: 4}
	if err := CreateConversationSignal(ctx, db, sig); err != nil {
		t.Fatalf("CreateConversationSignal: %v", err)
	}
	if sig.ID == "" || sig.CreatedAt.IsZero() {
		t.Fatalf("defaults not assigned: %+v", sig)
	}
	var n int64
	db.Model(&domain.ConversationSignal{}).Where("user_id = ?", "u1").Count(&n)
	if n != 1 {
		t.Fatalf("count = %d; want 1", n)
	}
}
