package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-wellness-backend/internal/domain"
	"github.com/tbourn/go-wellness-backend/internal/repo"
)

// JournalService covers the plain CRUD side of journal entries and their
// messages. The conversational write path lives in ConversationOrchestrator.
type JournalService struct {
	DB *gorm.DB

	// TitleMaxLen caps entry titles in runes; 255 when zero.
	TitleMaxLen int
}

// CreateEntry stores a client-created entry. Such entries never become the
// day's session entry.
func (s *JournalService) CreateEntry(ctx context.Context, uc UserContext, title, content string) (*domain.JournalEntry, error) {
	ctx, span := otel.Tracer("services/JournalService").Start(ctx, "CreateEntry",
		trace.WithAttributes(attribute.String("user.id", uc.UserID)))
	defer span.End()

	title = strings.Join(strings.Fields(title), " ")
	max := s.TitleMaxLen
	if max <= 0 {
		max = 255
	}
	if utf8.RuneCountInString(title) > max {
		title = string([]rune(title)[:max])
	}

	e, err := repo.CreateEntry(ctx, s.DB, uc.UserID, title, content, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	return e, nil
}

// ListEntries returns the user's entries, newest first.
func (s *JournalService) ListEntries(ctx context.Context, uc UserContext, limit int) ([]domain.JournalEntry, error) {
	items, err := repo.ListEntries(ctx, s.DB, uc.UserID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	return items, nil
}

// GetEntry returns the entry if uc owns it.
func (s *JournalService) GetEntry(ctx context.Context, uc UserContext, entryID string) (*domain.JournalEntry, error) {
	e, err := repo.GetEntry(ctx, s.DB, entryID, uc.UserID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	return e, nil
}

// ListMessages returns an entry's messages in conversation order.
func (s *JournalService) ListMessages(ctx context.Context, uc UserContext, entryID string) ([]domain.ChatMessage, error) {
	ctx, span := otel.Tracer("services/JournalService").Start(ctx, "ListMessages",
		trace.WithAttributes(
			attribute.String("user.id", uc.UserID),
			attribute.String("entry.id", entryID),
		))
	defer span.End()

	if _, err := s.GetEntry(ctx, uc, entryID); err != nil {
		return nil, err
	}
	items, err := repo.ListMessages(ctx, s.DB, entryID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	return items, nil
}

// MessagesVersion returns (count, maxSeq) for conditional GETs.
func (s *JournalService) MessagesVersion(ctx context.Context, entryID string) (int64, int64, error) {
	return repo.MessagesStats(ctx, s.DB, entryID)
}
