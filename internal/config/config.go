package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port        int
	GinMode     string
	TLSCertFile string
	TLSKeyFile  string
	LogLevel    string
	Environment string

	GitHubAppID         string
	GitHubPrivateKey    string
	GitHubRepo          string
	GitHubAPIURL        string
	GitHubGraphQLURL    string
	GitHubWebhookSecret string
	WebsiteURL          string

	StoreDriver   string
	SQLitePath    string
	DatabaseURL   string
	DynamoTable   string
	AWSRegion     string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	IncrementRateLimit int
	RevalidateTimeout  time.Duration
}

type Env interface {
	Getenv(key string) string
}

type osEnv struct{}

func (osEnv) Getenv(key string) string { return os.Getenv(key) }

func LoadConfig() (Config, error) {
	return LoadConfigFromEnv(osEnv{})
}

func LoadConfigFromEnv(env Env) (Config, error) {
	cfg := Config{
		Port:               3000,
		GinMode:            "release",
		LogLevel:           "info",
		Environment:        "production",
		GitHubAPIURL:       "https://api.github.com",
		GitHubGraphQLURL:   "https://api.github.com/graphql",
		StoreDriver:        "sqlite",
		SQLitePath:         "blog.db",
		DynamoTable:        "posts",
		RedisAddr:          "localhost:6379",
		IncrementRateLimit: 60,
		RevalidateTimeout:  5 * time.Second,
	}

	if raw := env.Getenv("PORT"); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil || port <= 0 || port > 65535 {
			return Config{}, fmt.Errorf("invalid PORT")
		}
		cfg.Port = port
	}

	if raw := env.Getenv("GIN_MODE"); raw != "" {
		cfg.GinMode = raw
	}
	cfg.TLSCertFile = env.Getenv("TLS_CERT_FILE")
	cfg.TLSKeyFile = env.Getenv("TLS_KEY_FILE")

	if raw := env.Getenv("LOG_LEVEL"); raw != "" {
		cfg.LogLevel = raw
	}
	if raw := env.Getenv("ENVIRONMENT"); raw != "" {
		if raw != "production" && raw != "development" {
			return Config{}, fmt.Errorf("invalid ENVIRONMENT")
		}
		cfg.Environment = raw
	}

	for _, req := range []struct {
		key string
		dst *string
	}{
		{"GITHUB_APP_ID", &cfg.GitHubAppID},
		{"GITHUB_PRIVATE_KEY", &cfg.GitHubPrivateKey},
		{"GITHUB_REPO", &cfg.GitHubRepo},
		{"WEBSITE_URL", &cfg.WebsiteURL},
	} {
		*req.dst = env.Getenv(req.key)
		if *req.dst == "" {
			return Config{}, fmt.Errorf("%s is required", req.key)
		}
	}
	if _, err := strconv.ParseInt(cfg.GitHubAppID, 10, 64); err != nil {
		return Config{}, fmt.Errorf("invalid GITHUB_APP_ID")
	}
	if parts := strings.Split(cfg.GitHubRepo, "/"); len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Config{}, fmt.Errorf("invalid GITHUB_REPO: expected owner/name")
	}
	if u, err := url.Parse(cfg.WebsiteURL); err != nil || u.Scheme == "" || u.Host == "" {
		return Config{}, fmt.Errorf("invalid WEBSITE_URL")
	}
	cfg.WebsiteURL = strings.TrimRight(cfg.WebsiteURL, "/")

	if raw := env.Getenv("GITHUB_API_URL"); raw != "" {
		cfg.GitHubAPIURL = raw
	}
	if raw := env.Getenv("GITHUB_GRAPHQL_URL"); raw != "" {
		cfg.GitHubGraphQLURL = raw
	}
	cfg.GitHubWebhookSecret = env.Getenv("GITHUB_WEBHOOK_SECRET")

	if raw := env.Getenv("STORE_DRIVER"); raw != "" {
		switch raw {
		case "memory", "sqlite", "postgres", "dynamodb", "redis":
			cfg.StoreDriver = raw
		default:
			return Config{}, fmt.Errorf("invalid STORE_DRIVER")
		}
	}
	if raw := env.Getenv("SQLITE_PATH"); raw != "" {
		cfg.SQLitePath = raw
	}
	cfg.DatabaseURL = env.Getenv("DATABASE_URL")
	if cfg.StoreDriver == "postgres" && cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is required for the postgres store")
	}
	if raw := env.Getenv("DYNAMODB_TABLE"); raw != "" {
		cfg.DynamoTable = raw
	}
	cfg.AWSRegion = env.Getenv("AWS_REGION")
	if raw := env.Getenv("REDIS_ADDR"); raw != "" {
		cfg.RedisAddr = raw
	}
	cfg.RedisPassword = env.Getenv("REDIS_PASSWORD")
	if raw := env.Getenv("REDIS_DB"); raw != "" {
		db, err := strconv.Atoi(raw)
		if err != nil || db < 0 {
			return Config{}, fmt.Errorf("invalid REDIS_DB")
		}
		cfg.RedisDB = db
	}

	if raw := env.Getenv("INCREMENT_RATE_LIMIT"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return Config{}, fmt.Errorf("invalid INCREMENT_RATE_LIMIT")
		}
		cfg.IncrementRateLimit = limit
	}
	if raw := env.Getenv("REVALIDATE_TIMEOUT_SECONDS"); raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil || seconds <= 0 {
			return Config{}, fmt.Errorf("invalid REVALIDATE_TIMEOUT_SECONDS")
		}
		cfg.RevalidateTimeout = time.Duration(seconds) * time.Second
	}

	return cfg, nil
}
