package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/tbourn/go-wellness-backend/internal/domain"
	"github.com/tbourn/go-wellness-backend/internal/services"
	"github.com/tbourn/go-wellness-backend/internal/streak"
)

func TestSubmitAssessment(t *testing.T) {
	var got services.AssessmentInput
	h := New(Services{
		Users: stubUsers{},
		Assessments: stubAssessments{submit: func(uc services.UserContext, in services.AssessmentInput) (*domain.Assessment, error) {
			got = in
			if in.Type == "" || in.Score == nil {
				return nil, services.ErrInvalidAssessment
			}
			return &domain.Assessment{ID: "a1", UserID: uc.UserID, AssessmentType: in.Type, Score: *in.Score, Day: "2025-03-14"}, nil
		}},
	})
	r := newTestRouter(h)

	w := do(t, r, http.MethodPost, "/assessments", map[string]any{
		"userId": "u1", "assessmentType": "daily", "score": 0, "answers": []int{0, 0},
	}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("want 201, got %d %s", w.Code, w.Body.String())
	}
	a := decode[domain.Assessment](t, w)
	if a.UserID != "u1" || a.Score != 0 || string(got.Answers) != "[0,0]" {
		t.Fatalf("unexpected result %+v / input %+v", a, got)
	}

	w = do(t, r, http.MethodPost, "/assessments", map[string]any{"userId": "u1", "assessmentType": "daily"}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing score should be 400, got %d", w.Code)
	}

	w = do(t, r, http.MethodPost, "/assessments", map[string]any{"assessmentType": "daily", "score": 3}, nil)
	if w.Code != http.StatusBadRequest || decode[ErrorResponse](t, w).Code != ErrCodeMissingUser {
		t.Fatalf("missing user should be 400 missing_user, got %d %s", w.Code, w.Body.String())
	}

	w = do(t, r, http.MethodPost, "/assessments", "{not json", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad json should be 400, got %d", w.Code)
	}
}

func TestSubmitAssessment_StorageFailure(t *testing.T) {
	h := New(Services{
		Users: stubUsers{},
		Assessments: stubAssessments{submit: func(services.UserContext, services.AssessmentInput) (*domain.Assessment, error) {
			return nil, fmt.Errorf("%w: %w", services.ErrStorageUnavailable, errors.New("locked"))
		}},
	})
	w := do(t, newTestRouter(h), http.MethodPost, "/assessments", map[string]any{"userId": "u1", "assessmentType": "daily", "score": 3}, nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("want 500, got %d", w.Code)
	}
}

func TestAssessmentReads(t *testing.T) {
	var limit int
	h := New(Services{
		Users: stubUsers{},
		Assessments: stubAssessments{
			list: func(_ services.UserContext, n int) ([]domain.Assessment, error) {
				limit = n
				return []domain.Assessment{{ID: "a2"}, {ID: "a1"}}, nil
			},
			streak: func(services.UserContext) (streak.Snapshot, error) {
				return streak.Snapshot{CurrentStreak: 3, LongestStreak: 5}, nil
			},
			today: func(services.UserContext) (bool, string, error) { return false, "2025-03-14", nil },
		},
	})
	r := newTestRouter(h)

	w := do(t, r, http.MethodGet, "/assessments?userId=u1&limit=9999", nil, nil)
	if w.Code != http.StatusOK || limit != 366 {
		t.Fatalf("list: %d limit=%d", w.Code, limit)
	}
	if items := decode[[]domain.Assessment](t, w); len(items) != 2 || items[0].ID != "a2" {
		t.Fatalf("unexpected items %+v", items)
	}

	w = do(t, r, http.MethodGet, "/assessments/streak?userId=u1", nil, nil)
	if w.Code != http.StatusOK || w.Body.String() != `{"currentStreak":3,"longestStreak":5}` {
		t.Fatalf("streak: %d %s", w.Code, w.Body.String())
	}

	w = do(t, r, http.MethodGet, "/assessments/today?userId=u1", nil, nil)
	if st := decode[TodayStatusResponse](t, w); st.CanSubmit || st.Day != "2025-03-14" {
		t.Fatalf("today: %+v", st)
	}
}
