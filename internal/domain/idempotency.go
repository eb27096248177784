package domain

import "time"

// Idempotency records the assistant reply produced for a message POST,
// keyed by (user_id, entry_id, key). A retry carrying the same
// Idempotency-Key gets the recorded reply instead of a second LLM call.
type Idempotency struct {
	ID        string    `gorm:"type:char(36);primaryKey"`
	UserID    string    `gorm:"type:varchar(64);not null;uniqueIndex:ux_user_entry_key,priority:1"`
	EntryID   string    `gorm:"type:char(36);not null;uniqueIndex:ux_user_entry_key,priority:2"`
	Key       string    `gorm:"type:varchar(200);not null;uniqueIndex:ux_user_entry_key,priority:3"`
	MessageID string    `gorm:"type:char(36);not null"`
	Status    int       `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime"`
	ExpiresAt time.Time `gorm:"not null;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
