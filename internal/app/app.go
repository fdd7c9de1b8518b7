// Package app assembles the service from configuration. Nothing here is
// package-level state: each Runtime owns its store, clients and router.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"blog-sync/internal/auth"
	"blog-sync/internal/config"
	"blog-sync/internal/github"
	"blog-sync/internal/metrics"
	"blog-sync/internal/middleware"
	"blog-sync/internal/notify"
	"blog-sync/internal/server"
	"blog-sync/internal/store"
)

const outboundTimeout = 15 * time.Second

type Runtime struct {
	Config   config.Config
	Logger   *zap.Logger
	Store    store.ViewStore
	GitHub   *github.App
	Notifier *notify.Revalidator
	Metrics  *metrics.Metrics
	Router   *gin.Engine

	limiter *middleware.RateLimiter
}

// NewGitHubApp builds the App flow for cfg. It holds configuration only.
func NewGitHubApp(cfg config.Config) *github.App {
	client := &http.Client{Timeout: outboundTimeout}
	return &github.App{
		Credential:   auth.AppCredential{AppID: cfg.GitHubAppID, PrivateKey: cfg.GitHubPrivateKey},
		Repo:         cfg.GitHubRepo,
		WebsiteURL:   cfg.WebsiteURL,
		Minter:       auth.NewMinter(),
		Resolver:     github.NewInstallationResolver(cfg.GitHubAPIURL, client),
		Synchronizer: github.NewSynchronizer(cfg.GitHubAPIURL, cfg.GitHubGraphQLURL, http.DefaultTransport),
	}
}

func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Runtime, error) {
	st, err := store.Open(ctx, store.Options{
		Driver:        cfg.StoreDriver,
		SQLitePath:    cfg.SQLitePath,
		DatabaseURL:   cfg.DatabaseURL,
		DynamoTable:   cfg.DynamoTable,
		AWSRegion:     cfg.AWSRegion,
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisDB:       cfg.RedisDB,
	})
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	rt := &Runtime{
		Config:   cfg,
		Logger:   logger,
		Store:    st,
		GitHub:   NewGitHubApp(cfg),
		Notifier: notify.NewRevalidator(cfg.WebsiteURL, &http.Client{Timeout: cfg.RevalidateTimeout}, cfg.RevalidateTimeout, logger, m),
		Metrics:  m,
		limiter:  middleware.NewRateLimiter(cfg.IncrementRateLimit, time.Minute),
	}

	gin.SetMode(cfg.GinMode)
	rt.Router = server.NewRouter(server.Deps{
		Store:            rt.Store,
		Syncer:           rt.GitHub,
		Notifier:         rt.Notifier,
		Logger:           logger,
		Metrics:          m,
		WebhookSecret:    cfg.GitHubWebhookSecret,
		IncrementLimiter: rt.limiter,
	})
	return rt, nil
}

// Close waits for pending revalidations and releases the store.
func (rt *Runtime) Close() error {
	rt.limiter.Stop()
	rt.Notifier.Wait()
	return rt.Store.Close()
}
