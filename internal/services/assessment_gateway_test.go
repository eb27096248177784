package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tbourn/go-wellness-backend/internal/cache"
	"github.com/tbourn/go-wellness-backend/internal/domain"
	"github.com/tbourn/go-wellness-backend/internal/streak"
)

func intp(v int) *int { return &v }

func newGateway(t *testing.T, at time.Time, loc *time.Location) (*AssessmentGateway, func(time.Time)) {
	t.Helper()
	now, set := fixedClock(at)
	return &AssessmentGateway{
		DB:         newTestDB(t),
		History:    cache.NewMemoryHistoryCache(366),
		Calculator: streak.NewCalculator(loc),
		Now:        now,
	}, set
}

func TestAssessmentGateway_SubmitValidation(t *testing.T) {
	g, _ := newGateway(t, time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC), time.UTC)
	ctx := context.Background()
	uc := UserContext{UserID: "u1"}

	cases := []AssessmentInput{
		{Type: "", Score: intp(3)},
		{Type: "mood", Score: nil},
		{Type: "mood", Score: intp(1), Answers: json.RawMessage(`{broken`)},
	}
	for i, in := range cases {
		if _, err := g.Submit(ctx, uc, in); !errors.Is(err, ErrInvalidAssessment) {
			t.Fatalf("case %d: want ErrInvalidAssessment, got %v", i, err)
		}
	}
}

func TestAssessmentGateway_SubmitNormalizesAndDates(t *testing.T) {
	sgt := time.FixedZone("SGT", 8*3600)
	// 20:30 UTC on the 14th is already the 15th in Singapore.
	g, _ := newGateway(t, time.Date(2025, 3, 14, 20, 30, 0, 0, time.UTC), sgt)
	ctx := context.Background()
	uc := UserContext{UserID: "u1"}

	a, err := g.Submit(ctx, uc, AssessmentInput{Type: "  PHQ-9 ", Score: intp(0)})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if a.AssessmentType != "phq-9" || a.Score != 0 || a.Day != "2025-03-15" {
		t.Fatalf("unexpected assessment: %+v", a)
	}
	if a.Answers != nil {
		t.Fatalf("absent answers should stay null, got %s", a.Answers)
	}

	cal := g.Calculator.Calendar
	if !a.Date.Equal(cal.Day(a.Date)) {
		t.Fatalf("date %v is not the start of a day", a.Date)
	}
	if y, m, d := a.Date.In(sgt).Date(); y != 2025 || m != time.March || d != 15 {
		t.Fatalf("date %v is not 2025-03-15 in the reference zone", a.Date)
	}

	var nulls int64
	if err := g.DB.Model(&domain.Assessment{}).Where("id = ? AND answers IS NULL", a.ID).Count(&nulls).Error; err != nil || nulls != 1 {
		t.Fatalf("answers column should be NULL: count=%d err=%v", nulls, err)
	}
	var stored domain.Assessment
	if err := g.DB.First(&stored, "id = ?", a.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if string(stored.Answers) != "null" || !stored.Date.Equal(a.Date) {
		t.Fatalf("stored row = answers %s, date %v", stored.Answers, stored.Date)
	}

	withAnswers, err := g.Submit(ctx, uc, AssessmentInput{Type: "phq-9", Score: intp(3), Answers: json.RawMessage(`[1,2]`)})
	if err != nil || string(withAnswers.Answers) != "[1,2]" {
		t.Fatalf("answers = %s, %v", withAnswers.Answers, err)
	}
	if nullAnswers, err := g.Submit(ctx, uc, AssessmentInput{Type: "phq-9", Score: intp(3), Answers: json.RawMessage(`null`)}); err != nil || nullAnswers.Answers != nil {
		t.Fatalf("explicit null answers = %s, %v", nullAnswers.Answers, err)
	}

	days, _, _ := g.History.Days(ctx, "u1")
	if len(days) != 1 || days[0] != "2025-03-15" {
		t.Fatalf("history cache not updated: %v", days)
	}
}

func TestAssessmentGateway_GetStreakAndCanSubmit(t *testing.T) {
	start := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	g, set := newGateway(t, start, time.UTC)
	ctx := context.Background()
	uc := UserContext{UserID: "u1"}

	// 10, 11, 12 then a gap, then 14 and 15 (twice).
	for _, d := range []int{0, 1, 2, 4, 5, 5} {
		set(start.AddDate(0, 0, d))
		if _, err := g.Submit(ctx, uc, AssessmentInput{Type: "mood", Score: intp(d)}); err != nil {
			t.Fatalf("Submit day %d: %v", d, err)
		}
	}

	set(start.AddDate(0, 0, 5))
	snap, err := g.GetStreak(ctx, uc)
	if err != nil {
		t.Fatalf("GetStreak: %v", err)
	}
	if snap != (streak.Snapshot{CurrentStreak: 2, LongestStreak: 3}) {
		t.Fatalf("snapshot = %+v", snap)
	}

	ok, day, err := g.CanSubmitToday(ctx, uc)
	if err != nil || ok || day != "2025-03-15" {
		t.Fatalf("CanSubmitToday = %v %q %v; want false", ok, day, err)
	}

	// Next day: grace period keeps the streak, and a new check-in is allowed.
	set(start.AddDate(0, 0, 6))
	snap, _ = g.GetStreak(ctx, uc)
	if snap.CurrentStreak != 2 {
		t.Fatalf("grace period current = %d; want 2", snap.CurrentStreak)
	}
	if ok, _, _ := g.CanSubmitToday(ctx, uc); !ok {
		t.Fatalf("expected CanSubmitToday on a fresh day")
	}

	list, err := g.List(ctx, uc, 0)
	if err != nil || len(list) != 6 {
		t.Fatalf("List = %d, %v; want 6", len(list), err)
	}
}

func TestAssessmentGateway_GetStreakFallsBackToCache(t *testing.T) {
	today := time.Date(2025, 3, 15, 9, 0, 0, 0, time.UTC)
	g, _ := newGateway(t, today, time.UTC)
	ctx := context.Background()
	uc := UserContext{UserID: "u1"}

	_ = g.History.Put(ctx, "u1", []string{"2025-03-15", "2025-03-14", "2025-03-13", "bogus"})
	closeDB(t, g.DB)

	before := testutil.ToFloat64(streakFallbacks)
	snap, err := g.GetStreak(ctx, uc)
	if err != nil {
		t.Fatalf("GetStreak with cache: %v", err)
	}
	if snap.CurrentStreak != 3 || snap.LongestStreak != 3 {
		t.Fatalf("degraded snapshot = %+v", snap)
	}
	if got := testutil.ToFloat64(streakFallbacks) - before; got != 1 {
		t.Fatalf("fallback counter delta = %v; want 1", got)
	}
}

func TestAssessmentGateway_GetStreakUncachedUserFailsWhenStorageDown(t *testing.T) {
	g, _ := newGateway(t, time.Date(2025, 3, 15, 9, 0, 0, 0, time.UTC), time.UTC)
	ctx := context.Background()
	_ = g.History.Put(ctx, "someone-else", []string{"2025-03-15"})
	closeDB(t, g.DB)

	before := testutil.ToFloat64(streakFallbacks)
	if _, err := g.GetStreak(ctx, UserContext{UserID: "never-cached"}); !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("GetStreak: want ErrStorageUnavailable, got %v", err)
	}
	if got := testutil.ToFloat64(streakFallbacks) - before; got != 0 {
		t.Fatalf("a cache miss must not count as a fallback, delta = %v", got)
	}
}

func TestAssessmentGateway_StorageUnavailableWithoutCache(t *testing.T) {
	g, _ := newGateway(t, time.Now(), time.UTC)
	g.History = nil
	closeDB(t, g.DB)
	ctx := context.Background()
	uc := UserContext{UserID: "u1"}

	if _, err := g.GetStreak(ctx, uc); !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("GetStreak: want ErrStorageUnavailable, got %v", err)
	}
	if _, err := g.Submit(ctx, uc, AssessmentInput{Type: "mood", Score: intp(1)}); !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("Submit: want ErrStorageUnavailable, got %v", err)
	}
	if _, _, err := g.CanSubmitToday(ctx, uc); !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("CanSubmitToday: want ErrStorageUnavailable, got %v", err)
	}
}

func TestAssessmentGateway_EmptyHistory(t *testing.T) {
	g, _ := newGateway(t, time.Now(), time.UTC)
	snap, err := g.GetStreak(context.Background(), UserContext{UserID: "nobody"})
	if err != nil || snap != (streak.Snapshot{}) {
		t.Fatalf("empty history = %+v, %v", snap, err)
	}
}
