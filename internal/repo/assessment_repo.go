package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-wellness-backend/internal/domain"
)

// CreateAssessment inserts a, assigning ID and CreatedAt when empty.
// No per-day uniqueness is enforced here.
func CreateAssessment(ctx context.Context, db *gorm.DB, a *domain.Assessment) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(a).Error
}

// ListAssessments returns up to limit assessments for userID, newest first.
func ListAssessments(ctx context.Context, db *gorm.DB, userID string, limit int) ([]domain.Assessment, error) {
	var out []domain.Assessment
	q := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("day DESC, created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

// ListAssessmentDays returns the distinct YYYY-MM-DD days on which userID
// submitted an assessment, newest first, capped at limit days.
func ListAssessmentDays(ctx context.Context, db *gorm.DB, userID string, limit int) ([]string, error) {
	var days []string
	q := db.WithContext(ctx).
		Model(&domain.Assessment{}).
		Where("user_id = ?", userID).
		Distinct("day").
		Order("day DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Pluck("day", &days).Error
	return days, err
}

// CountAssessmentsOn counts userID's assessments on day (YYYY-MM-DD).
func CountAssessmentsOn(ctx context.Context, db *gorm.DB, userID, day string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Assessment{}).
		Where("user_id = ? AND day = ?", userID, day).
		Count(&n).Error
	return n, err
}
