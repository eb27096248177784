package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-wellness-backend/internal/llm"
	"github.com/tbourn/go-wellness-backend/internal/repo"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db.DB(): %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// closeDB makes every later query fail, standing in for an unreachable
// database.
func closeDB(t *testing.T, db *gorm.DB) {
	t.Helper()
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db.DB(): %v", err)
	}
	_ = sqlDB.Close()
}

// fixedClock returns a clock frozen at the given instant and a setter.
func fixedClock(at time.Time) (func() time.Time, func(time.Time)) {
	var mu sync.Mutex
	now := at
	return func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			return now
		}, func(t time.Time) {
			mu.Lock()
			now = t
			mu.Unlock()
		}
}

type stubLLM struct {
	mu    sync.Mutex
	reply string
	err   error
	calls int
	got   [][]llm.Message
}

func (s *stubLLM) Complete(_ context.Context, msgs []llm.Message) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	cp := make([]llm.Message, len(msgs))
	copy(cp, msgs)
	s.got = append(s.got, cp)
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func (s *stubLLM) set(reply string, err error) {
	s.mu.Lock()
	s.reply, s.err = reply, err
	s.mu.Unlock()
}

func (s *stubLLM) last() []llm.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.got) == 0 {
		return nil
	}
	return s.got[len(s.got)-1]
}

type stubSink struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (s *stubSink) Capture(context.Context, UserContext, string, string, string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.err
}
