package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-wellness-backend/internal/domain"
)

// appendAttempts bounds retries when two writers race for the same seq.
const appendAttempts = 3

// AppendMessage inserts a message at the end of an entry, assigning the next
// per-entry sequence number inside a transaction.
func AppendMessage(ctx context.Context, db *gorm.DB, entryID, userID, sender, content string) (*domain.ChatMessage, error) {
	var (
		m   *domain.ChatMessage
		err error
	)
	for attempt := 0; attempt < appendAttempts; attempt++ {
		m = &domain.ChatMessage{
			ID:        uuid.NewString(),
			EntryID:   entryID,
			UserID:    userID,
			Sender:    sender,
			Content:   content,
			CreatedAt: time.Now().UTC(),
		}
		err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var last int64
			if err := tx.Model(&domain.ChatMessage{}).
				Where("entry_id = ?", entryID).
				Select("COALESCE(MAX(seq), 0)").
				Row().Scan(&last); err != nil {
				return err
			}
			m.Seq = last + 1
			return tx.Create(m).Error
		})
		if err == nil || !IsDuplicate(err) {
			break
		}
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// AppendReply stores an assistant reply to prompt unless one already exists.
// The check and the insert share a transaction, and a losing writer retries
// into the check, so a prompt is answered at most once. When a reply exists
// it is returned with answered set and nothing is written.
func AppendReply(ctx context.Context, db *gorm.DB, prompt *domain.ChatMessage, content string) (reply *domain.ChatMessage, answered bool, err error) {
	for attempt := 0; attempt < appendAttempts; attempt++ {
		reply, answered = nil, false
		err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var next domain.ChatMessage
			res := tx.Where("entry_id = ? AND seq > ?", prompt.EntryID, prompt.Seq).
				Order("seq ASC").
				Limit(1).
				Find(&next)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected > 0 && next.Sender == domain.SenderAssistant {
				reply, answered = &next, true
				return nil
			}

			var last int64
			if err := tx.Model(&domain.ChatMessage{}).
				Where("entry_id = ?", prompt.EntryID).
				Select("COALESCE(MAX(seq), 0)").
				Row().Scan(&last); err != nil {
				return err
			}
			reply = &domain.ChatMessage{
				ID:        uuid.NewString(),
				EntryID:   prompt.EntryID,
				UserID:    prompt.UserID,
				Sender:    domain.SenderAssistant,
				Content:   content,
				Seq:       last + 1,
				CreatedAt: time.Now().UTC(),
			}
			return tx.Create(reply).Error
		})
		if err == nil || !IsDuplicate(err) {
			break
		}
	}
	if err != nil {
		return nil, false, err
	}
	return reply, answered, nil
}

// ListMessages returns an entry's messages in conversation order.
func ListMessages(ctx context.Context, db *gorm.DB, entryID string) ([]domain.ChatMessage, error) {
	var out []domain.ChatMessage
	err := db.WithContext(ctx).
		Where("entry_id = ?", entryID).
		Order("seq ASC, created_at ASC, id ASC").
		Find(&out).Error
	return out, err
}

// ListRecentMessages returns the last n messages of an entry, still in
// conversation order.
func ListRecentMessages(ctx context.Context, db *gorm.DB, entryID string, n int) ([]domain.ChatMessage, error) {
	if n <= 0 {
		return ListMessages(ctx, db, entryID)
	}
	var out []domain.ChatMessage
	err := db.WithContext(ctx).
		Where("entry_id = ?", entryID).
		Order("seq DESC").
		Limit(n).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// LastMessage returns the newest message of an entry.
func LastMessage(ctx context.Context, db *gorm.DB, entryID string) (*domain.ChatMessage, error) {
	var m domain.ChatMessage
	if err := db.WithContext(ctx).Where("entry_id = ?", entryID).Order("seq DESC").First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// GetMessage fetches a message by ID.
func GetMessage(ctx context.Context, db *gorm.DB, id string) (*domain.ChatMessage, error) {
	var m domain.ChatMessage
	if err := db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}
