package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"github.com/tbourn/go-wellness-backend/internal/domain"
	"github.com/tbourn/go-wellness-backend/internal/llm"
	"github.com/tbourn/go-wellness-backend/internal/repo"
)

// ModerationFallback is stored as the assistant reply when the provider
// refuses a prompt on content-safety grounds.
const ModerationFallback = "I'm here to listen. Sometimes the system is extra cautious. " +
	"Could you rephrase that, or tell me more about how you're feeling today?"

// EntryResolver yields the user's active entry for today.
type EntryResolver interface {
	ResolveActiveEntry(ctx context.Context, uc UserContext) (*domain.JournalEntry, error)
}

// AnalyticsSink receives the side-channel capture that runs next to the
// model call. Its result never affects the reply.
type AnalyticsSink interface {
	Capture(ctx context.Context, uc UserContext, entryID, messageID, prompt string) error
}

// ConversationOrchestrator runs one user turn: persist the prompt, ask the
// model with the entry's history, persist the answer.
//
// The user message is committed before any network call. When the model
// call fails for a reason other than moderation, no assistant message is
// written and ErrAIServiceUnavailable is returned; Retry answers the stored
// prompt later without storing it again.
type ConversationOrchestrator struct {
	DB        *gorm.DB
	Sessions  EntryResolver
	LLM       llm.Completer
	Analytics AnalyticsSink // optional

	SystemPrompt     string
	MaxHistory       int           // messages sent to the model; 0 means all
	MaxPromptRunes   int           // 0 disables the check
	LLMTimeout       time.Duration // 30s when zero
	AnalyticsTimeout time.Duration // 5s when zero

	retries singleflight.Group // keyed by entry ID
}

// Reply is the outcome of a turn.
type Reply struct {
	Message *domain.ChatMessage
	// Moderated is set when Message carries ModerationFallback.
	Moderated bool
	// Replayed is set by Retry when the entry was already answered.
	Replayed bool
}

// SendMessage posts prompt to today's session entry.
func (o *ConversationOrchestrator) SendMessage(ctx context.Context, uc UserContext, prompt string) (*Reply, error) {
	ctx, span := o.tracer().Start(ctx, "SendMessage",
		trace.WithAttributes(attribute.String("user.id", uc.UserID)))
	defer span.End()

	prompt, err := o.validate(prompt)
	if err != nil {
		return nil, err
	}
	entry, err := o.Sessions.ResolveActiveEntry(ctx, uc)
	if err != nil {
		return nil, err
	}
	return o.send(ctx, uc, entry.ID, prompt)
}

// SendToEntry posts prompt to an entry owned by uc.
func (o *ConversationOrchestrator) SendToEntry(ctx context.Context, uc UserContext, entryID, prompt string) (*Reply, error) {
	ctx, span := o.tracer().Start(ctx, "SendToEntry",
		trace.WithAttributes(
			attribute.String("user.id", uc.UserID),
			attribute.String("entry.id", entryID),
		))
	defer span.End()

	prompt, err := o.validate(prompt)
	if err != nil {
		return nil, err
	}
	if err := o.checkOwner(ctx, uc, entryID); err != nil {
		return nil, err
	}
	return o.send(ctx, uc, entryID, prompt)
}

// Retry answers the trailing user message of an entry. If the entry already
// ends with an assistant message, that message is returned with Replayed set.
// Concurrent retries of one entry share a single model call.
func (o *ConversationOrchestrator) Retry(ctx context.Context, uc UserContext, entryID string) (*Reply, error) {
	ctx, span := o.tracer().Start(ctx, "Retry",
		trace.WithAttributes(
			attribute.String("user.id", uc.UserID),
			attribute.String("entry.id", entryID),
		))
	defer span.End()

	if err := o.checkOwner(ctx, uc, entryID); err != nil {
		return nil, err
	}
	v, err, _ := o.retries.Do(entryID, func() (any, error) {
		return o.retry(ctx, uc, entryID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Reply), nil
}

func (o *ConversationOrchestrator) retry(ctx context.Context, uc UserContext, entryID string) (*Reply, error) {
	last, err := repo.LastMessage(ctx, o.DB, entryID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrNothingToRetry
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	if last.Sender == domain.SenderAssistant {
		conversationReplies.WithLabelValues("retry_replayed").Inc()
		return &Reply{Message: last, Replayed: true}, nil
	}
	return o.answer(ctx, uc, last)
}

func (o *ConversationOrchestrator) validate(prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", ErrEmptyPrompt
	}
	if o.MaxPromptRunes > 0 && utf8.RuneCountInString(prompt) > o.MaxPromptRunes {
		return "", ErrTooLong
	}
	return prompt, nil
}

func (o *ConversationOrchestrator) checkOwner(ctx context.Context, uc UserContext, entryID string) error {
	_, err := repo.GetEntry(ctx, o.DB, entryID, uc.UserID)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrEntryNotFound
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	return nil
}

func (o *ConversationOrchestrator) send(ctx context.Context, uc UserContext, entryID, prompt string) (*Reply, error) {
	userMsg, err := repo.AppendMessage(ctx, o.DB, entryID, uc.UserID, domain.SenderUser, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	return o.answer(ctx, uc, userMsg)
}

// answer runs the model call and the analytics capture side by side, then
// stores the outcome. Neither branch cancels the other.
func (o *ConversationOrchestrator) answer(ctx context.Context, uc UserContext, userMsg *domain.ChatMessage) (*Reply, error) {
	log := zerolog.Ctx(ctx)
	span := trace.SpanFromContext(ctx)

	var (
		text  string
		aiErr error
		g     errgroup.Group
	)

	g.Go(func() error {
		lctx, cancel := context.WithTimeout(ctx, o.llmTimeout())
		defer cancel()

		history, err := repo.ListRecentMessages(lctx, o.DB, userMsg.EntryID, o.MaxHistory)
		if err != nil {
			aiErr = fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
			return nil
		}
		text, aiErr = o.LLM.Complete(lctx, o.conversation(history))
		return nil
	})

	if o.Analytics != nil {
		g.Go(func() error {
			actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.analyticsTimeout())
			defer cancel()
			if err := o.Analytics.Capture(actx, uc, userMsg.EntryID, userMsg.ID, userMsg.Content); err != nil {
				log.Warn().Err(err).Str("entry_id", userMsg.EntryID).Msg("conversation analytics capture failed")
			}
			return nil
		})
	}
	_ = g.Wait()

	if aiErr == nil {
		msg, answered, err := repo.AppendReply(ctx, o.DB, userMsg, text)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
		}
		if answered {
			return o.alreadyAnswered(ctx, msg), nil
		}
		conversationReplies.WithLabelValues("model").Inc()
		return &Reply{Message: msg}, nil
	}

	if errors.Is(aiErr, ErrStorageUnavailable) {
		return nil, aiErr
	}

	failure := llm.Classify(aiErr, "")
	var mod *llm.ModerationRejected
	if errors.As(failure, &mod) {
		log.Warn().
			Str("user_id", uc.UserID).
			Str("entry_id", userMsg.EntryID).
			Str("provider_code", mod.ProviderCode).
			Str("details", mod.Message).
			Msg("prompt rejected by provider moderation, storing fallback reply")
		span.AddEvent("moderation_fallback")

		msg, answered, err := repo.AppendReply(ctx, o.DB, userMsg, ModerationFallback)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
		}
		if answered {
			return o.alreadyAnswered(ctx, msg), nil
		}
		conversationReplies.WithLabelValues("moderation_fallback").Inc()
		return &Reply{Message: msg, Moderated: true}, nil
	}

	conversationReplies.WithLabelValues("ai_error").Inc()
	span.RecordError(failure)
	span.SetStatus(codes.Error, failure.Code())
	log.Error().Err(failure).Str("entry_id", userMsg.EntryID).Msg("assistant reply failed")
	return nil, fmt.Errorf("%w: %w", ErrAIServiceUnavailable, failure)
}

// alreadyAnswered is the outcome when another caller stored the reply to the
// same prompt first; the stored reply wins and this one is dropped.
func (o *ConversationOrchestrator) alreadyAnswered(ctx context.Context, msg *domain.ChatMessage) *Reply {
	zerolog.Ctx(ctx).Info().Str("entry_id", msg.EntryID).Str("message_id", msg.ID).
		Msg("prompt already answered, keeping the stored reply")
	conversationReplies.WithLabelValues("retry_replayed").Inc()
	return &Reply{Message: msg, Replayed: true, Moderated: msg.Content == ModerationFallback}
}

// conversation prepends the system prompt and maps stored senders to roles.
func (o *ConversationOrchestrator) conversation(history []domain.ChatMessage) []llm.Message {
	out := make([]llm.Message, 0, len(history)+1)
	if sp := strings.TrimSpace(o.SystemPrompt); sp != "" {
		out = append(out, llm.Message{Role: llm.RoleSystem, Content: sp})
	}
	for _, m := range history {
		role := llm.RoleUser
		if m.Sender == domain.SenderAssistant {
			role = llm.RoleAssistant
		}
		out = append(out, llm.Message{Role: role, Content: m.Content})
	}
	return out
}

func (o *ConversationOrchestrator) llmTimeout() time.Duration {
	if o.LLMTimeout > 0 {
		return o.LLMTimeout
	}
	return 30 * time.Second
}

func (o *ConversationOrchestrator) analyticsTimeout() time.Duration {
	if o.AnalyticsTimeout > 0 {
		return o.AnalyticsTimeout
	}
	return 5 * time.Second
}

func (o *ConversationOrchestrator) tracer() trace.Tracer {
	return otel.Tracer("services/ConversationOrchestrator")
}
