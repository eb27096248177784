// Package httpapi wires the HTTP transport (Gin) to the application services,
// middleware and route handlers. It owns the cross-cutting concerns: tracing,
// correlation IDs, redacted logging, panic recovery, metrics, idempotency,
// rate limiting, CORS, compression and security headers.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/go-wellness-backend/internal/cache"
	"github.com/tbourn/go-wellness-backend/internal/config"
	"github.com/tbourn/go-wellness-backend/internal/http/handlers"
	"github.com/tbourn/go-wellness-backend/internal/http/middleware"
	"github.com/tbourn/go-wellness-backend/internal/llm"
	"github.com/tbourn/go-wellness-backend/internal/services"
	"github.com/tbourn/go-wellness-backend/internal/streak"
)

const (
	maxBodyBytes   = 1 << 20
	maxPromptRunes = 4000
)

// Deps are the infrastructure handles the API is built on. Entries and
// History default to in-memory caches when nil.
type Deps struct {
	DB      *gorm.DB
	LLM     llm.Completer
	Entries cache.EntryCache
	History cache.HistoryCache
	// Now overrides the service clock; time.Now when nil.
	Now func() time.Time
}

// NewServices builds the service graph from deps and cfg.
func NewServices(d Deps, cfg config.Config) (handlers.Services, *services.IdempotencyService) {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	if d.Entries == nil {
		d.Entries = cache.NewMemoryEntryCache()
	}
	if d.History == nil {
		d.History = cache.NewMemoryHistoryCache(cfg.HistoryLimit)
	}

	calc := streak.NewCalculator(loc)
	metricsSvc := &services.MetricsService{DB: d.DB, Now: d.Now}
	sessions := &services.JournalSessionManager{
		DB:       d.DB,
		Entries:  d.Entries,
		Calendar: calc.Calendar,
		Now:      d.Now,
	}
	idem := &services.IdempotencyService{DB: d.DB, TTL: cfg.IdempotencyTTL, Now: d.Now}

	return handlers.Services{
		Users: &services.UserService{DB: d.DB},
		Assessments: &services.AssessmentGateway{
			DB:           d.DB,
			History:      d.History,
			Calculator:   calc,
			HistoryLimit: cfg.HistoryLimit,
			Now:          d.Now,
		},
		Journal:  &services.JournalService{DB: d.DB},
		Sessions: sessions,
		Conversation: &services.ConversationOrchestrator{
			DB:               d.DB,
			Sessions:         sessions,
			LLM:              d.LLM,
			Analytics:        metricsSvc,
			SystemPrompt:     cfg.LLM.SystemPrompt,
			MaxHistory:       cfg.LLM.MaxHistory,
			MaxPromptRunes:   maxPromptRunes,
			LLMTimeout:       cfg.LLM.Timeout,
			AnalyticsTimeout: cfg.AnalyticsTimeout,
		},
		Metrics:     metricsSvc,
		Feedback:    &services.FeedbackService{DB: d.DB},
		Idempotency: idem,
	}, idem
}

// RegisterRoutes attaches all middleware and endpoints to r and mounts the
// public API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry
//  2. RequestID
//  3. RedactingLogger
//  4. Recovery (after the logger so panics are logged with request fields)
//  5. Body size limit
//  6. Metrics
//  7. UserIdentity, then Idempotency (so a replay can bypass the limiter)
//  8. Rate limiter
//  9. CORS, security headers, gzip
func RegisterRoutes(r *gin.Engine, d Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	svcs, idem := NewServices(d, cfg)
	h := handlers.New(svcs)

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{MaskHeaders: []string{"X-API-Key"}}))
	r.Use(middleware.Recovery())
	r.Use(limitBody(maxBodyBytes))

	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.Use(middleware.UserIdentity())
	r.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{MaxLen: 200}, idem.Exists))

	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	r.Use(corsMiddleware(cfg.CORS.AllowedOrigins))
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics", "/swagger"})))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeNotSupported, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		api.POST("/users/register", h.RegisterUser)
		api.GET("/users/profile/:userId", h.GetProfile)
		api.PUT("/users/profile/:userId", h.UpdateProfile)

		api.POST("/assessments", h.SubmitAssessment)
		api.GET("/assessments", h.ListAssessments)
		api.GET("/assessments/streak", h.GetStreak)
		api.GET("/assessments/today", h.TodayStatus)

		api.POST("/journal/entries", h.CreateEntry)
		api.GET("/journal/entries", h.ListEntries)
		api.GET("/journal/today", h.TodayEntry)
		api.POST("/journal/today/messages", h.PostTodayMessage)
		api.POST("/journal/entries/:entryId/messages", h.PostEntryMessage)
		api.GET("/journal/entries/:entryId/messages", h.ListEntryMessages)
		api.POST("/journal/entries/:entryId/messages/retry", h.RetryEntryMessage)
		api.POST("/journal/messages/:messageId/feedback", h.LeaveFeedback)

		api.POST("/metrics/submit", h.SubmitMetrics)
	}
}

// corsMiddleware allows every origin when none is configured, otherwise only
// the allowlist. Credentials are never allowed; identity travels in userId.
func corsMiddleware(origins []string) gin.HandlerFunc {
	cc := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "If-None-Match",
			middleware.HeaderUserID, middleware.HeaderIdempotencyKey},
		ExposeHeaders: []string{"X-Request-ID", "ETag", handlers.HeaderIdempotencyReplayed, "Retry-After"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		cc.AllowAllOrigins = true
	} else {
		cc.AllowOrigins = origins
	}
	return cors.New(cc)
}

// limitBody caps request bodies at maxBytes; larger bodies fail to bind.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
