package repo

import (
	"context"
	"errors"
	"testing"

	"github.com/tbourn/go-wellness-backend/internal/domain"
)

func TestCreateFeedback_UniquePerUser(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	e, _ := CreateEntry(ctx, db, "u1", "t", "", nil)
	m, err := AppendMessage(ctx, db, e.ID, "u1", domain.SenderAssistant, "reply")
	if err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}

	if err := CreateFeedback(ctx, db, m.ID, "u1", 1); err != nil {
		t.Fatalf("first feedback: %v", err)
	}
	if err := CreateFeedback(ctx, db, m.ID, "u1", -1); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("second feedback: want ErrDuplicate, got %v", err)
	}
	if err := CreateFeedback(ctx, db, m.ID, "u2", -1); err != nil {
		t.Fatalf("other user's feedback: %v", err)
	}
	if err := CreateFeedback(ctx, db, m.ID, "u3", 5); err == nil {
		t.Fatalf("expected check constraint to reject value 5")
	}
}
