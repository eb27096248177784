package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"github.com/tbourn/go-wellness-backend/internal/cache"
	"github.com/tbourn/go-wellness-backend/internal/domain"
	"github.com/tbourn/go-wellness-backend/internal/repo"
	"github.com/tbourn/go-wellness-backend/internal/streak"
)

const dayKeyPrefix = "journal_entry_"

// DayKey returns the session key of a YYYY-MM-DD day.
func DayKey(day string) string { return dayKeyPrefix + day }

// JournalSessionManager resolves the single auto-created journal entry a user
// talks to on a given day. The first message of the day creates the entry;
// later calls reuse it through Entries. When the day changes the cache is
// pruned, so the key of a previous day is never served again.
type JournalSessionManager struct {
	DB       *gorm.DB
	Entries  cache.EntryCache
	Calendar streak.Calendar
	Now      func() time.Time

	group singleflight.Group

	mu      sync.Mutex
	current string
}

func (m *JournalSessionManager) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

// ResolveActiveEntry returns today's entry for uc, creating it on first use.
// Concurrent calls for the same user and day share one resolution.
func (m *JournalSessionManager) ResolveActiveEntry(ctx context.Context, uc UserContext) (*domain.JournalEntry, error) {
	day := m.Calendar.Key(m.now())
	key := DayKey(day)

	ctx, span := otel.Tracer("services/JournalSessionManager").Start(ctx, "ResolveActiveEntry",
		trace.WithAttributes(
			attribute.String("user.id", uc.UserID),
			attribute.String("journal.day_key", key),
		))
	defer span.End()

	m.rollover(ctx, key)

	v, err, _ := m.group.Do(uc.UserID+"|"+key, func() (any, error) {
		return m.resolve(ctx, uc.UserID, day, key)
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.JournalEntry), nil
}

// rollover prunes mappings of earlier days the first time a new key is seen.
func (m *JournalSessionManager) rollover(ctx context.Context, key string) {
	m.mu.Lock()
	changed := m.current != key
	m.current = key
	m.mu.Unlock()
	if !changed || m.Entries == nil {
		return
	}
	if err := m.Entries.Prune(ctx, key); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("entry cache prune failed")
	}
}

func (m *JournalSessionManager) resolve(ctx context.Context, userID, day, key string) (*domain.JournalEntry, error) {
	log := zerolog.Ctx(ctx)

	if m.Entries != nil {
		id, ok, err := m.Entries.Get(ctx, userID, key)
		if err != nil {
			log.Warn().Err(err).Msg("entry cache read failed")
		}
		if ok {
			e, err := repo.GetEntry(ctx, m.DB, id, userID)
			if err == nil {
				entriesResolved.WithLabelValues("cache").Inc()
				return e, nil
			}
			if !errors.Is(err, repo.ErrNotFound) {
				return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
			}
		}
	}

	e, err := repo.FindEntryByDayKey(ctx, m.DB, userID, key)
	switch {
	case err == nil:
		entriesResolved.WithLabelValues("store").Inc()
	case errors.Is(err, repo.ErrNotFound):
		e, err = m.create(ctx, userID, day, key)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	if m.Entries != nil {
		if err := m.Entries.Set(ctx, userID, key, e.ID); err != nil {
			log.Warn().Err(err).Msg("entry cache write failed")
		}
	}
	return e, nil
}

func (m *JournalSessionManager) create(ctx context.Context, userID, day, key string) (*domain.JournalEntry, error) {
	e, err := repo.CreateEntry(ctx, m.DB, userID, "Journal - "+day, "", &key)
	if errors.Is(err, repo.ErrDuplicate) {
		// another replica created it first
		e, err = repo.FindEntryByDayKey(ctx, m.DB, userID, key)
		if err == nil {
			entriesResolved.WithLabelValues("store").Inc()
			return e, nil
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	entriesResolved.WithLabelValues("created").Inc()
	zerolog.Ctx(ctx).Info().Str("user_id", userID).Str("entry_id", e.ID).Str("day_key", key).Msg("journal session created")
	return e, nil
}
