package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tbourn/go-wellness-backend/internal/cache"
	"github.com/tbourn/go-wellness-backend/internal/domain"
	"github.com/tbourn/go-wellness-backend/internal/repo"
	"github.com/tbourn/go-wellness-backend/internal/streak"
)

// AssessmentInput is a new check-in. Score is a pointer so that a missing
// score can be told apart from zero.
type AssessmentInput struct {
	Type    string
	Score   *int
	Answers json.RawMessage
}

// AssessmentGateway stores check-ins and derives streaks from them.
//
// Writes are permissive: several assessments on the same day are all kept,
// and the streak calculation de-duplicates by day on read.
type AssessmentGateway struct {
	DB         *gorm.DB
	History    cache.HistoryCache // optional; enables the degraded streak path
	Calculator streak.Calculator

	// HistoryLimit caps the number of distinct days read for a streak.
	// Zero means unbounded.
	HistoryLimit int

	// Now is the clock; time.Now when nil.
	Now func() time.Time
}

var typeFolder = cases.Lower(language.Und)

func (g *AssessmentGateway) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now()
}

// Submit writes a new assessment dated now. It fails only on invalid input
// or when storage is unreachable.
func (g *AssessmentGateway) Submit(ctx context.Context, uc UserContext, in AssessmentInput) (*domain.Assessment, error) {
	ctx, span := otel.Tracer("services/AssessmentGateway").Start(ctx, "Submit",
		trace.WithAttributes(attribute.String("user.id", uc.UserID)))
	defer span.End()

	typ := typeFolder.String(strings.TrimSpace(in.Type))
	if typ == "" || in.Score == nil {
		return nil, ErrInvalidAssessment
	}
	span.SetAttributes(attribute.String("assessment.type", typ))

	var answers datatypes.JSON
	if raw := strings.TrimSpace(string(in.Answers)); raw != "" && raw != "null" {
		if !json.Valid([]byte(raw)) {
			return nil, ErrInvalidAssessment
		}
		answers = datatypes.JSON(raw)
	}

	now := g.now()
	a := &domain.Assessment{
		UserID:         uc.UserID,
		AssessmentType: typ,
		Date:           g.Calculator.Calendar.Day(now),
		Day:            g.Calculator.Calendar.Key(now),
		Score:          *in.Score,
		Answers:        answers,
	}
	if err := repo.CreateAssessment(ctx, g.DB, a); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	if g.History != nil {
		if err := g.History.Add(ctx, uc.UserID, a.Day); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("user_id", uc.UserID).Msg("history cache update failed")
		}
	}
	return a, nil
}

// List returns up to limit assessments, newest first.
func (g *AssessmentGateway) List(ctx context.Context, uc UserContext, limit int) ([]domain.Assessment, error) {
	items, err := repo.ListAssessments(ctx, g.DB, uc.UserID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	return items, nil
}

// GetStreak computes the current and longest streak from the user's history.
// When the database is unreachable it recomputes from the cached subset of
// history; a cache miss fails with ErrStorageUnavailable rather than
// reporting a zero streak.
func (g *AssessmentGateway) GetStreak(ctx context.Context, uc UserContext) (streak.Snapshot, error) {
	ctx, span := otel.Tracer("services/AssessmentGateway").Start(ctx, "GetStreak",
		trace.WithAttributes(attribute.String("user.id", uc.UserID)))
	defer span.End()

	days, err := repo.ListAssessmentDays(ctx, g.DB, uc.UserID, g.HistoryLimit)
	if err != nil {
		cached, cerr := g.cachedDays(ctx, uc.UserID)
		if cerr != nil {
			return streak.Snapshot{}, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
		}
		streakFallbacks.Inc()
		span.SetAttributes(attribute.Bool("streak.degraded", true))
		zerolog.Ctx(ctx).Warn().Err(err).Str("user_id", uc.UserID).Int("cached_days", len(cached)).
			Msg("streak computed from cached history")
		days = cached
	} else if g.History != nil {
		if perr := g.History.Put(ctx, uc.UserID, days); perr != nil {
			zerolog.Ctx(ctx).Warn().Err(perr).Str("user_id", uc.UserID).Msg("history cache refresh failed")
		}
	}

	snap := g.Calculator.Snapshot(g.parseDays(days), g.now())
	span.SetAttributes(
		attribute.Int("streak.current", snap.CurrentStreak),
		attribute.Int("streak.longest", snap.LongestStreak),
	)
	return snap, nil
}

// CanSubmitToday reports whether the user has no assessment dated today.
func (g *AssessmentGateway) CanSubmitToday(ctx context.Context, uc UserContext) (bool, string, error) {
	day := g.Calculator.Calendar.Key(g.now())
	n, err := repo.CountAssessmentsOn(ctx, g.DB, uc.UserID, day)
	if err != nil {
		return false, day, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	return n == 0, day, nil
}

func (g *AssessmentGateway) cachedDays(ctx context.Context, userID string) ([]string, error) {
	if g.History == nil {
		return nil, ErrStorageUnavailable
	}
	days, ok, err := g.History.Days(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrStorageUnavailable
	}
	return days, nil
}

// parseDays drops keys that do not parse; a malformed row never fails a
// streak read.
func (g *AssessmentGateway) parseDays(keys []string) []time.Time {
	out := make([]time.Time, 0, len(keys))
	for _, k := range keys {
		if d, err := g.Calculator.Calendar.ParseKey(k); err == nil {
			out = append(out, d)
		}
	}
	return out
}
