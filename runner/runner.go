// Package runner selects and configures the process run mode: the HTTP
// API server, the Redis-driven worker, or a one-shot migration run.
package runner

import (
	"context"
	"errors"
	"flag"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/jarvisapp/jarvis-sync/tlmt"
	"github.com/jarvisapp/jarvis-sync/tlmt/gonoop"
	"github.com/jarvisapp/jarvis-sync/tlmt/goposthog"
)

const (
	RunModeWeb = iota + 1
	RunModeWorker
	RunModeMigrate
)

var ErrInvalidRunMode = errors.New("invalid run mode")

type Runner interface {
	Run(context.Context) error
	Close(context.Context) error
}

type Config struct {
	RunMode int
	Debug   bool

	// Addr is the HTTP listen address in web mode.
	Addr   string
	APIKey string

	// Dsn selects PostgreSQL; when empty the engine falls back to the
	// embedded SQLite database at DatabasePath.
	Dsn          string
	DatabasePath string

	// EncryptionKey protects stored OAuth tokens. 32 bytes.
	EncryptionKey string

	RedisHost     string
	RedisPort     int
	RedisPassword string
	RedisDB       int

	Workers         int
	BatchSize       int
	MaxAttempts     int
	RetryDelay      time.Duration
	RetryBackoff    string
	ProcessInterval time.Duration

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	SlackClientID      string
	SlackClientSecret  string
	SlackRedirectURL   string
	NotionClientID     string
	NotionClientSecret string
	NotionRedirectURL  string

	DisableTelemetry bool
}

func ParseConfig() *Config {
	cfg := Config{}

	var (
		worker  bool
		migrate bool
	)

	flag.StringVar(&cfg.Addr, "addr", ":8080", "address to listen on for the HTTP API")
	flag.StringVar(&cfg.Dsn, "dsn", os.Getenv("DATABASE_URL"), "PostgreSQL connection string [default: embedded SQLite]")
	flag.StringVar(&cfg.DatabasePath, "db", "jarvis-sync.db", "path to the SQLite database file (used when no dsn is set)")
	flag.BoolVar(&worker, "worker", false, "run the Redis-driven worker instead of the HTTP API")
	flag.BoolVar(&migrate, "migrate", false, "run database migrations and exit (requires dsn)")
	flag.BoolVar(&cfg.Debug, "debug", false, "enable debug logging")
	flag.StringVar(&cfg.RedisHost, "redis-host", envOr("REDIS_HOST", "localhost"), "Redis host")
	flag.IntVar(&cfg.RedisPort, "redis-port", envIntOr("REDIS_PORT", 6379), "Redis port")
	flag.IntVar(&cfg.RedisDB, "redis-db", 0, "Redis database number")
	flag.IntVar(&cfg.Workers, "workers", 5, "worker handler concurrency")
	flag.IntVar(&cfg.BatchSize, "batch-size", 10, "tasks claimed per processing pass")
	flag.IntVar(&cfg.MaxAttempts, "max-attempts", 3, "attempts before a task fails permanently")
	flag.DurationVar(&cfg.RetryDelay, "retry-delay", 5*time.Minute, "base delay before a failed task retries")
	flag.StringVar(&cfg.RetryBackoff, "retry-backoff", "fixed", "retry policy: fixed or exponential")
	flag.DurationVar(&cfg.ProcessInterval, "process-interval", time.Minute, "how often the worker polls the queue")
	flag.BoolVar(&cfg.DisableTelemetry, "disable-telemetry", false, "disable anonymous usage telemetry")

	flag.Parse()

	cfg.APIKey = os.Getenv("API_KEY")
	cfg.EncryptionKey = os.Getenv("ENCRYPTION_KEY")
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")

	cfg.GoogleClientID = os.Getenv("GOOGLE_CLIENT_ID")
	cfg.GoogleClientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")
	cfg.GoogleRedirectURL = os.Getenv("GOOGLE_REDIRECT_URL")
	cfg.SlackClientID = os.Getenv("SLACK_CLIENT_ID")
	cfg.SlackClientSecret = os.Getenv("SLACK_CLIENT_SECRET")
	cfg.SlackRedirectURL = os.Getenv("SLACK_REDIRECT_URL")
	cfg.NotionClientID = os.Getenv("NOTION_CLIENT_ID")
	cfg.NotionClientSecret = os.Getenv("NOTION_CLIENT_SECRET")
	cfg.NotionRedirectURL = os.Getenv("NOTION_REDIRECT_URL")

	if os.Getenv("DISABLE_TELEMETRY") == "1" {
		cfg.DisableTelemetry = true
	}

	if migrate && cfg.Dsn == "" {
		panic("dsn must be provided when using migrate")
	}

	if cfg.Workers < 1 {
		panic("workers must be greater than 0")
	}

	if cfg.BatchSize < 1 {
		panic("batch-size must be greater than 0")
	}

	if cfg.MaxAttempts < 1 {
		panic("max-attempts must be greater than 0")
	}

	switch {
	case migrate:
		cfg.RunMode = RunModeMigrate
	case worker:
		cfg.RunMode = RunModeWorker
	default:
		cfg.RunMode = RunModeWeb
	}

	return &cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func envIntOr(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}

	return n
}

var (
	telemetryOnce sync.Once
	telemetry     tlmt.Telemetry
)

func Telemetry() tlmt.Telemetry {
	telemetryOnce.Do(func() {
		if os.Getenv("DISABLE_TELEMETRY") == "1" {
			telemetry = gonoop.New()

			return
		}

		apiKey := os.Getenv("POSTHOG_API_KEY")
		if apiKey == "" {
			telemetry = gonoop.New()

			return
		}

		endpoint := envOr("POSTHOG_ENDPOINT", "https://eu.i.posthog.com")

		val, err := goposthog.New(apiKey, endpoint)
		if err != nil || val == nil {
			telemetry = gonoop.New()

			return
		}

		telemetry = val
	})

	return telemetry
}
