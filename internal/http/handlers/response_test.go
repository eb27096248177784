package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/tbourn/go-wellness-backend/internal/llm"
	"github.com/tbourn/go-wellness-backend/internal/services"
)

func serveFail(t *testing.T, fn gin.HandlerFunc) (*httptest.ResponseRecorder, *bytes.Buffer) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("X-Request-ID", "rid-1")
		c.Set("logger", &logger)
		c.Next()
	})
	r.GET("/x", fn)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	return w, &buf
}

func Test_fail_500_LogsAndBody(t *testing.T) {
	w, buf := serveFail(t, func(c *gin.Context) {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "kaboom")
	})
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", w.Code)
	}
	resp := decode[ErrorResponse](t, w)
	if resp.RequestID != "rid-1" || resp.Code != ErrCodeInternal || resp.Message != "kaboom" {
		t.Fatalf("unexpected body: %+v", resp)
	}
	if !strings.Contains(buf.String(), `"level":"error"`) {
		t.Fatalf("expected error log, got: %s", buf.String())
	}
}

func Test_fail_4xx_NotLogged(t *testing.T) {
	w, buf := serveFail(t, func(c *gin.Context) {
		Fail(c, http.StatusNotFound, ErrCodeNotFound, "nope")
	})
	if w.Code != http.StatusNotFound || buf.Len() != 0 {
		t.Fatalf("status=%d logs=%q", w.Code, buf.String())
	}
}

func TestFailFrom_Mapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{services.ErrMissingUser, http.StatusBadRequest, ErrCodeMissingUser},
		{services.ErrInvalidAssessment, http.StatusBadRequest, ErrCodeBadRequest},
		{fmt.Errorf("wrap: %w", services.ErrTooLong), http.StatusBadRequest, ErrCodeBadRequest},
		{services.ErrEntryNotFound, http.StatusNotFound, ErrCodeNotFound},
		{services.ErrMessageNotFound, http.StatusNotFound, ErrCodeNotFound},
		{services.ErrForbiddenFeedback, http.StatusForbidden, ErrCodeForbidden},
		{services.ErrDuplicateFeedback, http.StatusConflict, ErrCodeConflict},
		{services.ErrNothingToRetry, http.StatusConflict, ErrCodeConflict},
		{fmt.Errorf("%w: %w", services.ErrStorageUnavailable, errors.New("disk")), http.StatusInternalServerError, ErrCodeUnavailable},
		{errors.New("surprise"), http.StatusInternalServerError, ErrCodeListFailed},
	}
	for _, tc := range cases {
		w, _ := serveFail(t, func(c *gin.Context) { failFrom(c, tc.err, ErrCodeListFailed) })
		if w.Code != tc.status {
			t.Fatalf("%v: status=%d want %d", tc.err, w.Code, tc.status)
		}
		if got := decode[ErrorResponse](t, w).Code; got != tc.code {
			t.Fatalf("%v: code=%q want %q", tc.err, got, tc.code)
		}
	}
}

func TestFailFrom_AIEnvelope(t *testing.T) {
	failure := &llm.Transient{Status: 503, ProviderCode: "ModelArts.4203", Err: errors.New("overloaded")}
	err := fmt.Errorf("%w: %w", services.ErrAIServiceUnavailable, failure)

	w, buf := serveFail(t, func(c *gin.Context) { failFrom(c, err, ErrCodeInternal) })
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", w.Code)
	}
	resp := decode[AIErrorResponse](t, w)
	if resp.Error != "AI service error" || resp.Code != "ModelArts.4203" || resp.RequestID != "rid-1" {
		t.Fatalf("unexpected envelope: %+v", resp)
	}
	if resp.Details != failure.Details() {
		t.Fatalf("details = %q", resp.Details)
	}
	if !strings.Contains(buf.String(), "ai service error") {
		t.Fatalf("expected log line, got %q", buf.String())
	}
}

func TestFailFrom_AIEnvelopeWithoutFailure(t *testing.T) {
	w, _ := serveFail(t, func(c *gin.Context) { failFrom(c, services.ErrAIServiceUnavailable, ErrCodeInternal) })
	resp := decode[AIErrorResponse](t, w)
	if resp.Code != ErrCodeAIFailed || resp.Details == "" {
		t.Fatalf("unexpected envelope: %+v", resp)
	}
}

func Test_ok_and_noContent(t *testing.T) {
	w, _ := serveFail(t, func(c *gin.Context) { ok(c, http.StatusCreated, gin.H{"a": 1}) })
	if w.Code != http.StatusCreated || strings.TrimSpace(w.Body.String()) != `{"a":1}` {
		t.Fatalf("ok: %d %s", w.Code, w.Body.String())
	}
	w, _ = serveFail(t, func(c *gin.Context) { noContent(c) })
	if w.Code != http.StatusNoContent {
		t.Fatalf("noContent: %d", w.Code)
	}
}
