package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-wellness-backend/internal/domain"
)

// MessagesStats returns the number of messages in an entry and the highest
// sequence number. Messages are append-only, so the pair changes whenever the
// conversation does and is enough to build an ETag.
func MessagesStats(ctx context.Context, db *gorm.DB, entryID string) (count, maxSeq int64, err error) {
	row := db.WithContext(ctx).
		Model(&domain.ChatMessage{}).
		Where("entry_id = ?", entryID).
		Select("COUNT(*), COALESCE(MAX(seq), 0)").
		Row()
	err = row.Scan(&count, &maxSeq)
	return count, maxSeq, err
}
