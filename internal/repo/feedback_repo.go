package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-wellness-backend/internal/domain"
)

// CreateFeedback inserts a feedback row. The (message_id, user_id) pair is
// unique; a second rating yields ErrDuplicate.
func CreateFeedback(ctx context.Context, db *gorm.DB, messageID, userID string, value int) error {
	fb := &domain.Feedback{
		ID:        uuid.NewString(),
		MessageID: messageID,
		UserID:    userID,
		Value:     value,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(fb).Error; err != nil {
		if IsDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}
