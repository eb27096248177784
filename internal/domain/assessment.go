// Package domain defines the persistence models of the wellness backend:
// daily assessments, journal entries and their chat messages, users, health
// metric snapshots and the bookkeeping rows around them. The types are
// mapped with GORM and shared by the repository and service layers.
package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Assessment is one daily self-report questionnaire submission.
//
// Fields:
//   - ID: UUID primary key.
//   - UserID: owner; indexed together with Day for per-day lookups.
//   - AssessmentType: questionnaire identifier (e.g. "phq8"), lower-cased.
//   - Date: start of the calendar day in the reference zone.
//   - Day: the same day rendered as YYYY-MM-DD; used for equality queries so
//     day matching does not depend on how a driver serializes timestamps.
//   - Score: total of the per-item answers.
//   - Answers: ordered per-item answers as a JSON array, null when absent.
//
// Several rows per (UserID, Day) are accepted; streak logic counts a day once.
type Assessment struct {
	ID             string         `json:"id"              gorm:"type:char(36);primaryKey"`
	UserID         string         `json:"user_id"         gorm:"type:varchar(64);not null;index:idx_user_assessment_day,priority:1"`
	AssessmentType string         `json:"assessment_type" gorm:"type:varchar(32);not null"`
	Date           time.Time      `json:"date"            gorm:"not null"`
	Day            string         `json:"day"             gorm:"type:char(10);not null;index:idx_user_assessment_day,priority:2"`
	Score          int            `json:"score"           gorm:"not null"`
	Answers        datatypes.JSON `json:"answers"`
	CreatedAt      time.Time      `json:"created_at"`
}

// TableName returns the database table name for Assessment.
func (Assessment) TableName() string { return "assessments" }
