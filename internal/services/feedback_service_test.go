package services

import (
	"context"
	"errors"
	"testing"

	"github.com/tbourn/go-wellness-backend/internal/domain"
	"github.com/tbourn/go-wellness-backend/internal/repo"
)

func TestFeedback_Leave_InvalidValue(t *testing.T) {
	svc := &FeedbackService{DB: newTestDB(t)}

	err := svc.Leave(context.Background(), UserContext{UserID: "u1"}, "m1", 0)
	if !errors.Is(err, ErrInvalidFeedback) {
		t.Fatalf("expected ErrInvalidFeedback, got %v", err)
	}
}

func TestFeedback_Leave_MessageNotFound(t *testing.T) {
	svc := &FeedbackService{DB: newTestDB(t)}

	err := svc.Leave(context.Background(), UserContext{UserID: "u1"}, "missing", 1)
	if !errors.Is(err, ErrMessageNotFound) {
		t.Fatalf("expected ErrMessageNotFound, got %v", err)
	}
}

func TestFeedback_Leave_Rules(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc := &FeedbackService{DB: db}

	e, err := repo.CreateEntry(ctx, db, "owner", "t", "", nil)
	if err != nil {
		t.Fatalf("seed entry: %v", err)
	}
	userMsg, _ := repo.AppendMessage(ctx, db, e.ID, "owner", domain.SenderUser, "hi")
	reply, _ := repo.AppendMessage(ctx, db, e.ID, "owner", domain.SenderAssistant, "hello")

	if err := svc.Leave(ctx, UserContext{UserID: "intruder"}, reply.ID, 1); !errors.Is(err, ErrForbiddenFeedback) {
		t.Fatalf("not owner: want ErrForbiddenFeedback, got %v", err)
	}
	if err := svc.Leave(ctx, UserContext{UserID: "owner"}, userMsg.ID, 1); !errors.Is(err, ErrForbiddenFeedback) {
		t.Fatalf("user message: want ErrForbiddenFeedback, got %v", err)
	}
	if err := svc.Leave(ctx, UserContext{UserID: "owner"}, reply.ID, -1); err != nil {
		t.Fatalf("first feedback: %v", err)
	}
	if err := svc.Leave(ctx, UserContext{UserID: "owner"}, reply.ID, 1); !errors.Is(err, ErrDuplicateFeedback) {
		t.Fatalf("second feedback: want ErrDuplicateFeedback, got %v", err)
	}

	var n int64
	db.Model(&domain.Feedback{}).Where("message_id = ?", reply.ID).Count(&n)
	if n != 1 {
		t.Fatalf("feedback rows = %d; want 1", n)
	}
}
