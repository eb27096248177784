package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-wellness-backend/internal/domain"
)

// CreateUser inserts a new user row with the given id.
func CreateUser(ctx context.Context, db *gorm.DB, id string) (*domain.User, error) {
	now := time.Now().UTC()
	u := &domain.User{ID: id, CreatedAt: now, LastSeenAt: now}
	if err := db.WithContext(ctx).Create(u).Error; err != nil {
		if IsDuplicate(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return u, nil
}

// TouchUser creates the user if missing and refreshes last_seen_at.
// It reports whether the row was newly created.
func TouchUser(ctx context.Context, db *gorm.DB, id string) (created bool, err error) {
	now := time.Now().UTC()
	res := db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&domain.User{ID: id, CreatedAt: now, LastSeenAt: now})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 1 {
		return true, nil
	}
	err = db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", id).
		Update("last_seen_at", now).Error
	return false, err
}

// GetUser fetches a user by id.
func GetUser(ctx context.Context, db *gorm.DB, id string) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// ProfileChanges lists the profile fields to overwrite; nil fields are kept.
type ProfileChanges struct {
	Name      *string
	AvatarURL *string
	Bio       *string
}

// UpdateUserProfile applies ch to the user and returns the updated row.
// It returns ErrNotFound when the user does not exist.
func UpdateUserProfile(ctx context.Context, db *gorm.DB, id string, ch ProfileChanges) (*domain.User, error) {
	updates := map[string]any{"profile_updated_at": time.Now().UTC()}
	if ch.Name != nil {
		updates["name"] = *ch.Name
	}
	if ch.AvatarURL != nil {
		updates["avatar_url"] = *ch.AvatarURL
	}
	if ch.Bio != nil {
		updates["bio"] = *ch.Bio
	}
	res := db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return GetUser(ctx, db, id)
}
