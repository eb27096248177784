package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-wellness-backend/internal/domain"
	"github.com/tbourn/go-wellness-backend/internal/repo"
)

// UserContext identifies the caller of a service operation. It is produced
// by UserService.Resolve and passed explicitly to every user-scoped call.
type UserContext struct {
	UserID string
}

// UserService registers app installations.
type UserService struct {
	DB *gorm.DB
}

// Register creates a new user with a fresh UUID.
func (s *UserService) Register(ctx context.Context) (string, error) {
	ctx, span := otel.Tracer("services/UserService").Start(ctx, "Register")
	defer span.End()

	id := uuid.NewString()
	if _, err := repo.CreateUser(ctx, s.DB, id); err != nil {
		return "", fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	zerolog.Ctx(ctx).Info().Str("user_id", id).Msg("user registered")
	return id, nil
}

// Resolve validates userID and registers it on first use. Registration
// failures are logged and do not block the caller; the identifier is still
// usable for reads and writes keyed by user.
func (s *UserService) Resolve(ctx context.Context, userID string) (UserContext, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return UserContext{}, ErrMissingUser
	}

	ctx, span := otel.Tracer("services/UserService").Start(ctx, "Resolve",
		trace.WithAttributes(attribute.String("user.id", userID)))
	defer span.End()

	if s.DB != nil {
		created, err := repo.TouchUser(ctx, s.DB, userID)
		switch {
		case err != nil:
			zerolog.Ctx(ctx).Warn().Err(err).Str("user_id", userID).Msg("user registration on demand failed")
		case created:
			zerolog.Ctx(ctx).Info().Str("user_id", userID).Msg("user registered on demand")
		}
	}
	return UserContext{UserID: userID}, nil
}

// ProfileInput carries a partial profile update; nil fields are unchanged.
type ProfileInput struct {
	Name      *string
	AvatarURL *string
	Bio       *string
}

const (
	maxNameRunes   = 100
	maxAvatarRunes = 2048
	maxBioRunes    = 1000
)

// Profile returns the stored user. Unknown users are not registered here.
func (s *UserService) Profile(ctx context.Context, userID string) (*domain.User, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrMissingUser
	}
	u, err := repo.GetUser(ctx, s.DB, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	return u, nil
}

// UpdateProfile overwrites the non-nil fields of in. Values are trimmed.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, in ProfileInput) (*domain.User, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrMissingUser
	}

	ctx, span := otel.Tracer("services/UserService").Start(ctx, "UpdateProfile",
		trace.WithAttributes(attribute.String("user.id", userID)))
	defer span.End()

	ch := repo.ProfileChanges{}
	var err error
	if ch.Name, err = profileField(in.Name, maxNameRunes); err != nil {
		return nil, err
	}
	if ch.AvatarURL, err = profileField(in.AvatarURL, maxAvatarRunes); err != nil {
		return nil, err
	}
	if ch.Bio, err = profileField(in.Bio, maxBioRunes); err != nil {
		return nil, err
	}

	u, err := repo.UpdateUserProfile(ctx, s.DB, userID, ch)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	return u, nil
}

func profileField(v *string, max int) (*string, error) {
	if v == nil {
		return nil, nil
	}
	t := strings.TrimSpace(*v)
	if utf8.RuneCountInString(t) > max {
		return nil, ErrInvalidProfile
	}
	return &t, nil
}
