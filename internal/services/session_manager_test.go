package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tbourn/go-wellness-backend/internal/cache"
	"github.com/tbourn/go-wellness-backend/internal/domain"
	"github.com/tbourn/go-wellness-backend/internal/streak"
)

func newSessions(t *testing.T, at time.Time) (*JournalSessionManager, *cache.MemoryEntryCache, func(time.Time)) {
	t.Helper()
	now, set := fixedClock(at)
	entries := cache.NewMemoryEntryCache()
	return &JournalSessionManager{
		DB:       newTestDB(t),
		Entries:  entries,
		Calendar: streak.NewCalendar(time.UTC),
		Now:      now,
	}, entries, set
}

func TestDayKey(t *testing.T) {
	if got := DayKey("2025-03-15"); got != "journal_entry_2025-03-15" {
		t.Fatalf("DayKey = %q", got)
	}
}

func TestResolveActiveEntry_CreatesOncePerDay(t *testing.T) {
	ctx := context.Background()
	day1 := time.Date(2025, 3, 15, 8, 0, 0, 0, time.UTC)
	m, entries, set := newSessions(t, day1)
	uc := UserContext{UserID: "u1"}

	first, err := m.ResolveActiveEntry(ctx, uc)
	if err != nil {
		t.Fatalf("ResolveActiveEntry: %v", err)
	}
	if first.Title != "Journal - 2025-03-15" || first.Content != "" {
		t.Fatalf("unexpected new entry: %+v", first)
	}
	if first.DayKey == nil || *first.DayKey != "journal_entry_2025-03-15" {
		t.Fatalf("day key not stored: %+v", first.DayKey)
	}

	set(day1.Add(10 * time.Hour))
	again, err := m.ResolveActiveEntry(ctx, uc)
	if err != nil || again.ID != first.ID {
		t.Fatalf("same day resolved to %v (err %v); want %s", again, err, first.ID)
	}

	set(day1.AddDate(0, 0, 1))
	next, err := m.ResolveActiveEntry(ctx, uc)
	if err != nil {
		t.Fatalf("next day: %v", err)
	}
	if next.ID == first.ID || next.Title != "Journal - 2025-03-16" {
		t.Fatalf("next day reused or mistitled entry: %+v", next)
	}
	if _, ok, _ := entries.Get(ctx, "u1", "journal_entry_2025-03-15"); ok {
		t.Fatalf("previous day mapping should be pruned at rollover")
	}

	var n int64
	m.DB.Model(&domain.JournalEntry{}).Where("user_id = ?", "u1").Count(&n)
	if n != 2 {
		t.Fatalf("entries = %d; want 2", n)
	}
}

func TestResolveActiveEntry_RecoversFromStoreAfterRestart(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2025, 3, 15, 8, 0, 0, 0, time.UTC)
	m, _, _ := newSessions(t, at)
	uc := UserContext{UserID: "u1"}

	first, err := m.ResolveActiveEntry(ctx, uc)
	if err != nil {
		t.Fatalf("ResolveActiveEntry: %v", err)
	}

	restarted := &JournalSessionManager{
		DB:       m.DB,
		Entries:  cache.NewMemoryEntryCache(),
		Calendar: m.Calendar,
		Now:      m.Now,
	}
	got, err := restarted.ResolveActiveEntry(ctx, uc)
	if err != nil || got.ID != first.ID {
		t.Fatalf("after restart got %v (err %v); want %s", got, err, first.ID)
	}
}

func TestResolveActiveEntry_StaleCacheMapping(t *testing.T) {
	ctx := context.Background()
	m, entries, _ := newSessions(t, time.Date(2025, 3, 15, 8, 0, 0, 0, time.UTC))
	_ = entries.Set(ctx, "u1", "journal_entry_2025-03-15", "deleted-entry")

	e, err := m.ResolveActiveEntry(ctx, UserContext{UserID: "u1"})
	if err != nil || e.ID == "deleted-entry" {
		t.Fatalf("stale mapping served: %v, %v", e, err)
	}
	if id, _, _ := entries.Get(ctx, "u1", "journal_entry_2025-03-15"); id != e.ID {
		t.Fatalf("cache not repaired: %q", id)
	}
}

func TestResolveActiveEntry_ConcurrentCallersShareEntry(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newSessions(t, time.Date(2025, 3, 15, 8, 0, 0, 0, time.UTC))
	uc := UserContext{UserID: "u1"}

	const n = 8
	ids := make([]string, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			e, err := m.ResolveActiveEntry(ctx, uc)
			errs[i] = err
			if e != nil {
				ids[i] = e.ID
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		if ids[i] != ids[0] {
			t.Fatalf("callers resolved different entries: %v", ids)
		}
	}
	var count int64
	m.DB.Model(&domain.JournalEntry{}).Count(&count)
	if count != 1 {
		t.Fatalf("entries = %d; want 1", count)
	}
}

func TestResolveActiveEntry_UsersAreIndependent(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newSessions(t, time.Date(2025, 3, 15, 8, 0, 0, 0, time.UTC))

	a, _ := m.ResolveActiveEntry(ctx, UserContext{UserID: "a"})
	b, _ := m.ResolveActiveEntry(ctx, UserContext{UserID: "b"})
	if a == nil || b == nil || a.ID == b.ID {
		t.Fatalf("users must get separate entries: %v %v", a, b)
	}
}

func TestResolveActiveEntry_StorageUnavailable(t *testing.T) {
	m, _, _ := newSessions(t, time.Date(2025, 3, 15, 8, 0, 0, 0, time.UTC))
	closeDB(t, m.DB)
	if _, err := m.ResolveActiveEntry(context.Background(), UserContext{UserID: "u1"}); !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("want ErrStorageUnavailable, got %v", err)
	}
}
