package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-wellness-backend/internal/domain"
	"github.com/tbourn/go-wellness-backend/internal/repo"
)

// IdempotencyService remembers which assistant reply answered a given
// Idempotency-Key so that client retries get the same reply back.
type IdempotencyService struct {
	DB *gorm.DB
	// TTL is how long a key is honored; 24h when zero.
	TTL time.Duration
	Now func() time.Time
}

func (s *IdempotencyService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *IdempotencyService) ttl() time.Duration {
	if s.TTL > 0 {
		return s.TTL
	}
	return 24 * time.Hour
}

// Exists reports whether a live record exists. It matches the middleware
// lookup signature.
func (s *IdempotencyService) Exists(ctx context.Context, userID, entryID, key string, now time.Time) (bool, error) {
	_, err := repo.GetIdempotency(ctx, s.DB, userID, entryID, key, now)
	if errors.Is(err, repo.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Lookup returns the reply recorded for (userID, entryID, key), or
// ErrMessageNotFound when there is none or it is gone.
func (s *IdempotencyService) Lookup(ctx context.Context, userID, entryID, key string) (*domain.ChatMessage, error) {
	rec, err := repo.GetIdempotency(ctx, s.DB, userID, entryID, key, s.now())
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrMessageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	msg, err := repo.GetMessage(ctx, s.DB, rec.MessageID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrMessageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	return msg, nil
}

// Remember records messageID as the reply for the key. A concurrent request
// that got there first wins; that is not an error.
func (s *IdempotencyService) Remember(ctx context.Context, userID, entryID, key, messageID string, status int) error {
	_, err := repo.CreateIdempotency(ctx, s.DB, userID, entryID, key, messageID, status, s.ttl())
	if err != nil && !errors.Is(err, repo.ErrDuplicate) {
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	return nil
}

// Purge drops expired records and returns how many were removed.
func (s *IdempotencyService) Purge(ctx context.Context) (int64, error) {
	return repo.PurgeExpiredIdempotency(ctx, s.DB, s.now())
}
