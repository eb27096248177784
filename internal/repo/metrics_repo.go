package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-wellness-backend/internal/domain"
)

// CreateMetricsSnapshot inserts a device metrics submission.
func CreateMetricsSnapshot(ctx context.Context, db *gorm.DB, s *domain.MetricsSnapshot) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.RecordedAt.IsZero() {
		s.RecordedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(s).Error
}

// LatestMetricsSnapshot returns the newest submission of userID.
func LatestMetricsSnapshot(ctx context.Context, db *gorm.DB, userID string) (*domain.MetricsSnapshot, error) {
	var s domain.MetricsSnapshot
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("recorded_at DESC, id DESC").
		First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// CreateConversationSignal inserts an analytics row.
func CreateConversationSignal(ctx context.Context, db *gorm.DB, sig *domain.ConversationSignal) error {
	if sig.ID == "" {
		sig.ID = uuid.NewString()
	}
	if sig.CreatedAt.IsZero() {
		sig.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(sig).Error
}
