package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func serveSecurity(t *testing.T, opt SecurityOptions, prep func(*http.Request)) http.Header {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), SecurityHeaders(opt))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if prep != nil {
		prep(req)
	}
	r.ServeHTTP(w, req)
	return w.Header()
}

func TestSecurityHeaders_Baseline(t *testing.T) {
	h := serveSecurity(t, SecurityOptions{}, nil)
	if h.Get("X-Content-Type-Options") != "nosniff" || h.Get("X-Frame-Options") != "DENY" {
		t.Fatalf("baseline headers missing: %v", h)
	}
	if h.Get("Strict-Transport-Security") != "" || h.Get("Cache-Control") != "" {
		t.Fatalf("optional headers should be off: %v", h)
	}
	exposed := h.Get("Access-Control-Expose-Headers")
	for _, n := range []string{"X-Request-ID", "ETag", "Idempotency-Replayed", "Retry-After"} {
		if !strings.Contains(exposed, n) {
			t.Fatalf("%s not exposed: %q", n, exposed)
		}
	}
}

func TestSecurityHeaders_Options(t *testing.T) {
	opt := SecurityOptions{EnableHSTS: true, HSTSMaxAge: time.Hour, NoStore: true, EnablePolicy: true}

	h := serveSecurity(t, opt, nil)
	if h.Get("Strict-Transport-Security") != "" {
		t.Fatalf("HSTS must not be sent over plain HTTP")
	}
	if h.Get("Cache-Control") != "no-store" || h.Get("Permissions-Policy") == "" {
		t.Fatalf("options not applied: %v", h)
	}

	h = serveSecurity(t, opt, func(r *http.Request) { r.Header.Set("X-Forwarded-Proto", "https") })
	if got := h.Get("Strict-Transport-Security"); got != "max-age=3600; includeSubDomains; preload" {
		t.Fatalf("HSTS = %q", got)
	}
}

func TestExposeHeaders_NoDuplicates(t *testing.T) {
	h := http.Header{}
	h.Set("Access-Control-Expose-Headers", "etag")
	exposeHeaders(h, "ETag", "X-Request-ID")
	if got := h.Get("Access-Control-Expose-Headers"); got != "etag, X-Request-ID" {
		t.Fatalf("expose = %q", got)
	}
}
