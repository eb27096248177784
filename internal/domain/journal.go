package domain

import "time"

// Sender values for ChatMessage.
const (
	SenderUser      = "user"
	SenderAssistant = "assistant"
)

// JournalEntry is the day-scoped container for a user's AI conversation.
// Entries created by the session manager carry a DayKey
// ("journal_entry_YYYY-MM-DD"); the unique (user_id, day_key) index keeps a
// user to one such entry per day. Entries created explicitly through the API
// leave DayKey NULL.
type JournalEntry struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	UserID    string    `json:"user_id"    gorm:"type:varchar(64);not null;index:idx_user_entries;uniqueIndex:ux_user_entry_day,priority:1"`
	Title     string    `json:"title"      gorm:"type:varchar(255);not null;default:''"`
	Content   string    `json:"content"    gorm:"type:text;not null;default:''"`
	DayKey    *string   `json:"day_key,omitempty" gorm:"type:varchar(32);uniqueIndex:ux_user_entry_day,priority:2"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for JournalEntry.
func (JournalEntry) TableName() string { return "journal_entries" }

// ChatMessage is one utterance in a journal conversation.
//
// Seq increases by one per message within an entry and is the primary sort
// key when history is rebuilt, so two writes in the same instant still have a
// defined order.
type ChatMessage struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	EntryID   string    `json:"entry_id"   gorm:"type:char(36);not null;uniqueIndex:ux_entry_seq,priority:1"`
	Seq       int64     `json:"seq"        gorm:"not null;uniqueIndex:ux_entry_seq,priority:2"`
	UserID    string    `json:"user_id"    gorm:"type:varchar(64);not null;index"`
	Sender    string    `json:"sender"     gorm:"type:varchar(16);not null;check:sender IN ('user','assistant')"`
	Content   string    `json:"content"    gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at"`

	Entry JournalEntry `json:"-" gorm:"foreignKey:EntryID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for ChatMessage.
func (ChatMessage) TableName() string { return "chat_messages" }

// Feedback is a user's rating (+1 or -1) of an assistant reply. One row per
// (message, user).
type Feedback struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	MessageID string    `json:"message_id" gorm:"type:char(36);not null;uniqueIndex:ux_feedback_message_user"`
	UserID    string    `json:"user_id"    gorm:"type:varchar(64);not null;uniqueIndex:ux_feedback_message_user"`
	Value     int       `json:"value"      gorm:"not null;check:value IN (-1,1)"`
	CreatedAt time.Time `json:"created_at"`

	Message ChatMessage `json:"-" gorm:"foreignKey:MessageID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Feedback.
func (Feedback) TableName() string { return "message_feedback" }
