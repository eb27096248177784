package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestHelpers_GetIdempotencyKey_IsReplay(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	if k, ok := GetIdempotencyKey(c); k != "" || ok {
		t.Fatalf("expected empty key when not set")
	}
	if IsReplay(c) {
		t.Fatalf("expected IsReplay=false by default")
	}
	c.Set(ctxKeyIdemKey, 123)
	if _, ok := GetIdempotencyKey(c); ok {
		t.Fatalf("non-string key must read as absent")
	}
	c.Set(ctxKeyIdemReplay, true)
	if !IsReplay(c) {
		t.Fatalf("expected IsReplay=true")
	}
	c.Set(ctxKeyIdemReplay, "yes")
	if IsReplay(c) {
		t.Fatalf("expected IsReplay=false for non-bool")
	}
}

type lookupCall struct {
	userID, entryID, key string
}

func newIdemRouter(opts IdempotencyOptions, lookup IdempotencyLookup, out *map[string]any) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(UserIdentity(), IdempotencyValidator(opts, lookup))
	r.POST("/journal/entries/:entryId/messages", func(c *gin.Context) {
		k, _ := GetIdempotencyKey(c)
		*out = map[string]any{"key": k, "replay": IsReplay(c), "bypass": IsRateBypass(c)}
		c.Status(http.StatusCreated)
	})
	return r
}

func TestIdempotencyValidator_NoHeader_NoLookup(t *testing.T) {
	called := false
	var got map[string]any
	r := newIdemRouter(IdempotencyOptions{}, func(context.Context, string, string, string, time.Time) (bool, error) {
		called = true
		return true, nil
	}, &got)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/journal/entries/e1/messages?userId=u1", nil))
	if w.Code != http.StatusCreated || called {
		t.Fatalf("code=%d called=%v", w.Code, called)
	}
	if got["key"] != "" || got["replay"] != false {
		t.Fatalf("unexpected state: %v", got)
	}
}

func TestIdempotencyValidator_InvalidKey(t *testing.T) {
	var got map[string]any
	r := newIdemRouter(IdempotencyOptions{MaxLen: 8, Pattern: regexp.MustCompile(`^[a-z]+$`)}, nil, &got)

	for _, key := range []string{"UPPER", "waytoolongkey", "sp ace"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/journal/entries/e1/messages", nil)
		req.Header.Set(HeaderIdempotencyKey, key)
		r.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), "bad_idempotency_key") {
			t.Fatalf("key %q: code=%d body=%s", key, w.Code, w.Body.String())
		}
	}
}

func TestIdempotencyValidator_ReplayDetected(t *testing.T) {
	var calls []lookupCall
	var got map[string]any
	r := newIdemRouter(IdempotencyOptions{}, func(_ context.Context, u, e, k string, _ time.Time) (bool, error) {
		calls = append(calls, lookupCall{u, e, k})
		return true, nil
	}, &got)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/journal/entries/e1/messages?userId=u1", nil)
	req.Header.Set(HeaderIdempotencyKey, "k-1")
	r.ServeHTTP(w, req)

	if len(calls) != 1 || calls[0] != (lookupCall{"u1", "e1", "k-1"}) {
		t.Fatalf("unexpected lookups: %+v", calls)
	}
	if got["key"] != "k-1" || got["replay"] != true || got["bypass"] != true {
		t.Fatalf("unexpected state: %v", got)
	}
}

func TestIdempotencyValidator_UnknownUserSkipsLookup(t *testing.T) {
	called := false
	var got map[string]any
	r := newIdemRouter(IdempotencyOptions{}, func(context.Context, string, string, string, time.Time) (bool, error) {
		called = true
		return true, nil
	}, &got)

	req := httptest.NewRequest(http.MethodPost, "/journal/entries/e1/messages", nil)
	req.Header.Set(HeaderIdempotencyKey, "k-1")
	r.ServeHTTP(httptest.NewRecorder(), req)

	if called {
		t.Fatalf("lookup must wait until the user is known")
	}
	if got["key"] != "k-1" || got["replay"] != false {
		t.Fatalf("unexpected state: %v", got)
	}
}

func TestIdempotencyValidator_LookupErrorDoesNotBlock(t *testing.T) {
	var got map[string]any
	r := newIdemRouter(IdempotencyOptions{}, func(context.Context, string, string, string, time.Time) (bool, error) {
		return false, errors.New("db down")
	}, &got)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/journal/entries/e1/messages?userId=u1", nil)
	req.Header.Set(HeaderIdempotencyKey, "k-1")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusCreated || got["replay"] != false {
		t.Fatalf("code=%d state=%v", w.Code, got)
	}
}
