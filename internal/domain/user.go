package domain

import "time"

// User is a registered app installation. IDs are UUIDs when issued by
// /users/register, but any client-supplied identifier is accepted and
// registered on first use.
//
// The profile fields are optional and set through the profile endpoint;
// ProfileUpdatedAt stays nil until the first update.
type User struct {
	ID               string     `json:"id"           gorm:"type:varchar(64);primaryKey"`
	Name             *string    `json:"name"         gorm:"type:varchar(100)"`
	AvatarURL        *string    `json:"avatar_url"   gorm:"type:varchar(2048)"`
	Bio              *string    `json:"bio"          gorm:"type:text"`
	CreatedAt        time.Time  `json:"created_at"`
	LastSeenAt       time.Time  `json:"last_seen_at"`
	ProfileUpdatedAt *time.Time `json:"updated_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// MetricsSnapshot is one device-side metrics submission. Every measurement is
// optional because the client only sends the groups it could collect.
type MetricsSnapshot struct {
	ID     string `json:"id"      gorm:"type:char(36);primaryKey"`
	UserID string `json:"user_id" gorm:"type:varchar(64);not null;index:idx_user_metrics,priority:1"`

	// health
	Steps            *float64 `json:"steps,omitempty"`
	ActiveEnergy     *float64 `json:"active_energy,omitempty"`
	HeartRate        *float64 `json:"heart_rate,omitempty"`
	RestingHeartRate *float64 `json:"resting_heart_rate,omitempty"`
	SleepHours       *float64 `json:"sleep_hours,omitempty"`
	MindfulMinutes   *float64 `json:"mindful_minutes,omitempty"`

	// typing
	WordsPerMinute *float64 `json:"words_per_minute,omitempty"`
	TotalEditCount *int     `json:"total_edit_count,omitempty"`

	// motion
	AvgAccelerationX *float64 `json:"avg_acceleration_x,omitempty"`
	AvgAccelerationY *float64 `json:"avg_acceleration_y,omitempty"`
	AvgAccelerationZ *float64 `json:"avg_acceleration_z,omitempty"`

	RecordedAt time.Time `json:"recorded_at" gorm:"not null;index:idx_user_metrics,priority:2"`
}

// TableName returns the database table name for MetricsSnapshot.
func (MetricsSnapshot) TableName() string { return "metrics_snapshots" }

// ConversationSignal links a journal prompt to the most recent metrics the
// user had submitted at that moment. It is written on a side channel while
// the assistant reply is generated and is never fed back into the prompt.
type ConversationSignal struct {
	ID          string     `json:"id"          gorm:"type:char(36);primaryKey"`
	UserID      string     `json:"user_id"     gorm:"type:varchar(64);not null;index"`
	EntryID     string     `json:"entry_id"    gorm:"type:char(36);not null;index"`
	MessageID   string     `json:"message_id"  gorm:"type:char(36);not null"`
	PromptWords int        `json:"prompt_words"`
	Steps       *float64   `json:"steps,omitempty"`
	HeartRate   *float64   `json:"heart_rate,omitempty"`
	SleepHours  *float64   `json:"sleep_hours,omitempty"`
	MetricsAt   *time.Time `json:"metrics_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// TableName returns the database table name for ConversationSignal.
func (ConversationSignal) TableName() string { return "conversation_signals" }
