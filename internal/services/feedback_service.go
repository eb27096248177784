// FeedbackService governs how users rate assistant replies (-1 or +1). It
// enforces the business rules (message existence, entry ownership,
// assistant-only restriction, uniqueness) and persists feedback atomically.
package services

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-wellness-backend/internal/domain"
	"github.com/tbourn/go-wellness-backend/internal/repo"
)

// FeedbackService implements the use-cases around message feedback.
type FeedbackService struct {
	// DB is the database handle used for all feedback operations.
	DB *gorm.DB
}

// Leave records a feedback value for messageID on behalf of uc.
//
// Semantics and validation:
//   - value must be exactly -1 or 1; otherwise ErrInvalidFeedback.
//   - messageID must exist; otherwise ErrMessageNotFound.
//   - The message must belong to an entry owned by the user and must be an
//     assistant reply; otherwise ErrForbiddenFeedback.
//   - A user may rate a message once; a second attempt yields
//     ErrDuplicateFeedback.
//
// The checks and the insert run in one transaction.
func (s *FeedbackService) Leave(ctx context.Context, uc UserContext, messageID string, value int) error {
	ctx, span := otel.Tracer("services/FeedbackService").Start(ctx, "Leave",
		trace.WithAttributes(
			attribute.String("user.id", uc.UserID),
			attribute.String("message.id", messageID),
			attribute.Int("feedback.value", value),
		))
	defer span.End()

	if value != -1 && value != 1 {
		return ErrInvalidFeedback
	}

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		msg, err := repo.GetMessage(ctx, tx, messageID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrMessageNotFound
			}
			return err
		}

		if _, err := repo.GetEntry(ctx, tx, msg.EntryID, uc.UserID); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrForbiddenFeedback
			}
			return err
		}

		if msg.Sender != domain.SenderAssistant {
			return ErrForbiddenFeedback
		}

		if err := repo.CreateFeedback(ctx, tx, messageID, uc.UserID, value); err != nil {
			if errors.Is(err, repo.ErrDuplicate) {
				return ErrDuplicateFeedback
			}
			return err
		}
		return nil
	})
}
