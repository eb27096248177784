package handlers

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-wellness-backend/internal/domain"
	"github.com/tbourn/go-wellness-backend/internal/http/middleware"
	"github.com/tbourn/go-wellness-backend/internal/services"
	"github.com/tbourn/go-wellness-backend/internal/streak"
)

//
// Service contracts (context-aware)
//

// UserService registers users and resolves caller identities.
type UserService interface {
	Register(ctx context.Context) (string, error)
	Resolve(ctx context.Context, userID string) (services.UserContext, error)
	Profile(ctx context.Context, userID string) (*domain.User, error)
	UpdateProfile(ctx context.Context, userID string, in services.ProfileInput) (*domain.User, error)
}

// AssessmentService stores check-ins and derives streaks.
type AssessmentService interface {
	Submit(ctx context.Context, uc services.UserContext, in services.AssessmentInput) (*domain.Assessment, error)
	List(ctx context.Context, uc services.UserContext, limit int) ([]domain.Assessment, error)
	GetStreak(ctx context.Context, uc services.UserContext) (streak.Snapshot, error)
	CanSubmitToday(ctx context.Context, uc services.UserContext) (bool, string, error)
}

// JournalService reads and creates journal entries.
type JournalService interface {
	CreateEntry(ctx context.Context, uc services.UserContext, title, content string) (*domain.JournalEntry, error)
	ListEntries(ctx context.Context, uc services.UserContext, limit int) ([]domain.JournalEntry, error)
	GetEntry(ctx context.Context, uc services.UserContext, entryID string) (*domain.JournalEntry, error)
	ListMessages(ctx context.Context, uc services.UserContext, entryID string) ([]domain.ChatMessage, error)
	MessagesVersion(ctx context.Context, entryID string) (count, maxSeq int64, err error)
}

// SessionService yields today's journal entry.
type SessionService interface {
	ResolveActiveEntry(ctx context.Context, uc services.UserContext) (*domain.JournalEntry, error)
}

// ConversationService runs a conversation turn.
type ConversationService interface {
	SendMessage(ctx context.Context, uc services.UserContext, prompt string) (*services.Reply, error)
	SendToEntry(ctx context.Context, uc services.UserContext, entryID, prompt string) (*services.Reply, error)
	Retry(ctx context.Context, uc services.UserContext, entryID string) (*services.Reply, error)
}

// MetricsService stores device metric submissions.
type MetricsService interface {
	Submit(ctx context.Context, uc services.UserContext, in services.MetricsInput) (*domain.MetricsSnapshot, error)
}

// FeedbackService captures ratings on assistant replies.
type FeedbackService interface {
	Leave(ctx context.Context, uc services.UserContext, messageID string, value int) error
}

// IdempotencyStore records and replays conversation turns by key.
type IdempotencyStore interface {
	Lookup(ctx context.Context, userID, entryID, key string) (*domain.ChatMessage, error)
	Remember(ctx context.Context, userID, entryID, key, messageID string, status int) error
}

//
// Handler wiring
//

// Services bundles the dependencies of Handlers. Idempotency is optional.
type Services struct {
	Users        UserService
	Assessments  AssessmentService
	Journal      JournalService
	Sessions     SessionService
	Conversation ConversationService
	Metrics      MetricsService
	Feedback     FeedbackService
	Idempotency  IdempotencyStore
}

// Handlers groups the HTTP endpoints of the API.
type Handlers struct {
	users        UserService
	assessments  AssessmentService
	journal      JournalService
	sessions     SessionService
	conversation ConversationService
	metrics      MetricsService
	feedback     FeedbackService
	idem         IdempotencyStore
}

// New constructs Handlers bound to the given services.
func New(s Services) *Handlers {
	return &Handlers{
		users:        s.Users,
		assessments:  s.Assessments,
		journal:      s.Journal,
		sessions:     s.Sessions,
		conversation: s.Conversation,
		metrics:      s.Metrics,
		feedback:     s.Feedback,
		idem:         s.Idempotency,
	}
}

// userContext resolves the caller from, in order, the JSON body field,
// the userId query parameter, and the identity stashed by middleware
// (query or X-User-ID header). It writes the error response and returns
// false when no user could be resolved.
func (h *Handlers) userContext(c *gin.Context, fromBody string) (services.UserContext, bool) {
	uid := strings.TrimSpace(fromBody)
	if uid == "" {
		uid = strings.TrimSpace(c.Query("userId"))
	}
	if uid == "" {
		uid = middleware.UserIDFrom(c)
	}
	if uid == "" {
		uid = strings.TrimSpace(c.GetHeader(middleware.HeaderUserID))
	}

	uc, err := h.users.Resolve(c.Request.Context(), uid)
	if err != nil {
		failFrom(c, err, ErrCodeInternal)
		return services.UserContext{}, false
	}
	return uc, true
}
