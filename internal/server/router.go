package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"blog-sync/internal/handler"
	"blog-sync/internal/metrics"
	"blog-sync/internal/middleware"
	"blog-sync/internal/store"
)

type Deps struct {
	Store            store.ViewStore
	Syncer           handler.DiscussionSyncer
	Notifier         handler.Revalidation
	Logger           *zap.Logger
	Metrics          *metrics.Metrics
	WebhookSecret    string
	IncrementLimiter *middleware.RateLimiter
}

func NewRouter(deps Deps) *gin.Engine {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}

	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(deps.Logger))

	r.NoMethod(func(c *gin.Context) {
		c.String(http.StatusMethodNotAllowed, "Only POST requests are accepted")
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))

	webhookHandler := &handler.WebhookHandler{
		Syncer:   deps.Syncer,
		Notifier: deps.Notifier,
		Logger:   deps.Logger,
		Metrics:  deps.Metrics,
	}
	requireSignature := middleware.RequireSignature(deps.WebhookSecret)
	r.POST("/", requireSignature, webhookHandler.Handle)
	r.POST("/webhook", requireSignature, webhookHandler.Handle)

	viewHandler := &handler.ViewHandler{Store: deps.Store, Logger: deps.Logger, Metrics: deps.Metrics}
	api := r.Group("/api/post")
	increment := api.Group("/increment")
	if deps.IncrementLimiter != nil {
		increment.Use(middleware.RateLimit(deps.IncrementLimiter))
	}
	increment.POST("", viewHandler.Increment)
	increment.POST("/:slug", viewHandler.Increment)
	api.POST("", viewHandler.Metadata)

	return r
}
