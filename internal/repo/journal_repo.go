package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-wellness-backend/internal/domain"
)

// CreateEntry inserts a journal entry. dayKey is nil for entries created
// explicitly by the client; a duplicate day key yields ErrDuplicate.
func CreateEntry(ctx context.Context, db *gorm.DB, userID, title, content string, dayKey *string) (*domain.JournalEntry, error) {
	e := &domain.JournalEntry{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		Content:   content,
		DayKey:    dayKey,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(e).Error; err != nil {
		if IsDuplicate(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return e, nil
}

// GetEntry fetches an entry by id that belongs to userID.
func GetEntry(ctx context.Context, db *gorm.DB, id, userID string) (*domain.JournalEntry, error) {
	var e domain.JournalEntry
	if err := db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&e).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

// FindEntryByDayKey returns the auto-created entry for (userID, dayKey).
func FindEntryByDayKey(ctx context.Context, db *gorm.DB, userID, dayKey string) (*domain.JournalEntry, error) {
	var e domain.JournalEntry
	err := db.WithContext(ctx).Where("user_id = ? AND day_key = ?", userID, dayKey).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListEntries returns up to limit entries for userID, newest first.
func ListEntries(ctx context.Context, db *gorm.DB, userID string, limit int) ([]domain.JournalEntry, error) {
	var out []domain.JournalEntry
	q := db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}
