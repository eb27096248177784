package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-wellness-backend/internal/domain"
	"github.com/tbourn/go-wellness-backend/internal/repo"
)

// DailyMetrics are the health measurements a client collected for the day.
type DailyMetrics struct {
	Steps            *float64
	ActiveEnergy     *float64
	HeartRate        *float64
	RestingHeartRate *float64
	SleepHours       *float64
	MindfulMinutes   *float64
}

// TypingMetrics describe how the user typed recently.
type TypingMetrics struct {
	WordsPerMinute *float64
	TotalEditCount *int
}

// MotionMetrics are averaged accelerometer readings.
type MotionMetrics struct {
	AvgAccelerationX *float64
	AvgAccelerationY *float64
	AvgAccelerationZ *float64
}

// MetricsInput groups one submission.
type MetricsInput struct {
	Daily  DailyMetrics
	Typing TypingMetrics
	Motion MotionMetrics
}

// MetricsService stores device metrics and records the conversation signals
// derived from them.
type MetricsService struct {
	DB  *gorm.DB
	Now func() time.Time
}

func (s *MetricsService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Submit stores a metrics snapshot.
func (s *MetricsService) Submit(ctx context.Context, uc UserContext, in MetricsInput) (*domain.MetricsSnapshot, error) {
	ctx, span := otel.Tracer("services/MetricsService").Start(ctx, "Submit",
		trace.WithAttributes(attribute.String("user.id", uc.UserID)))
	defer span.End()

	snap := &domain.MetricsSnapshot{
		UserID:           uc.UserID,
		Steps:            in.Daily.Steps,
		ActiveEnergy:     in.Daily.ActiveEnergy,
		HeartRate:        in.Daily.HeartRate,
		RestingHeartRate: in.Daily.RestingHeartRate,
		SleepHours:       in.Daily.SleepHours,
		MindfulMinutes:   in.Daily.MindfulMinutes,
		WordsPerMinute:   in.Typing.WordsPerMinute,
		TotalEditCount:   in.Typing.TotalEditCount,
		AvgAccelerationX: in.Motion.AvgAccelerationX,
		AvgAccelerationY: in.Motion.AvgAccelerationY,
		AvgAccelerationZ: in.Motion.AvgAccelerationZ,
		RecordedAt:       s.now().UTC(),
	}
	if err := repo.CreateMetricsSnapshot(ctx, s.DB, snap); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	return snap, nil
}

// Capture links a user prompt to the latest metrics the user submitted.
// It is the analytics side channel of the conversation flow.
func (s *MetricsService) Capture(ctx context.Context, uc UserContext, entryID, messageID, prompt string) error {
	ctx, span := otel.Tracer("services/MetricsService").Start(ctx, "Capture",
		trace.WithAttributes(
			attribute.String("user.id", uc.UserID),
			attribute.String("entry.id", entryID),
		))
	defer span.End()

	sig := &domain.ConversationSignal{
		UserID:      uc.UserID,
		EntryID:     entryID,
		MessageID:   messageID,
		PromptWords: len(strings.Fields(prompt)),
	}

	latest, err := repo.LatestMetricsSnapshot(ctx, s.DB, uc.UserID)
	switch {
	case err == nil:
		at := latest.RecordedAt
		sig.Steps = latest.Steps
		sig.HeartRate = latest.HeartRate
		sig.SleepHours = latest.SleepHours
		sig.MetricsAt = &at
	case errors.Is(err, repo.ErrNotFound):
	default:
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	if err := repo.CreateConversationSignal(ctx, s.DB, sig); err != nil {
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	return nil
}
