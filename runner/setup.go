package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/jarvisapp/jarvis-sync/models"
	"github.com/jarvisapp/jarvis-sync/pkg/encryption"
	"github.com/jarvisapp/jarvis-sync/postgres"
	"github.com/jarvisapp/jarvis-sync/providers"
	"github.com/jarvisapp/jarvis-sync/queue"
	"github.com/jarvisapp/jarvis-sync/sqlite"
	"github.com/jarvisapp/jarvis-sync/syncer"
	"github.com/jarvisapp/jarvis-sync/token"
)

// Store is the storage surface the engine needs, satisfied by both the
// PostgreSQL and SQLite implementations.
type Store interface {
	models.IntegrationRepository
	models.TaskRepository
	models.MirrorRepository
	Close() error
}

// Engine bundles the sync core shared by the web and worker runners.
type Engine struct {
	Store     Store
	Codec     *encryption.Codec
	Tokens    *token.Store
	Syncer    *syncer.Syncer
	Tasks     *queue.Service
	Processor *queue.Processor
	OAuth     map[models.Provider]*oauth2.Config
	Logger    *zap.Logger
}

// NewEngine builds the full dependency graph from configuration.
func NewEngine(ctx context.Context, cfg *Config) (*Engine, error) {
	logger, err := newLogger(cfg.Debug)
	if err != nil {
		return nil, err
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if cfg.EncryptionKey == "" {
		_ = store.Close()

		return nil, errors.New("ENCRYPTION_KEY must be set")
	}

	codec, err := encryption.NewCodec([]byte(cfg.EncryptionKey))
	if err != nil {
		_ = store.Close()

		return nil, fmt.Errorf("invalid encryption key: %w", err)
	}

	oauthConfigs := buildOAuthConfigs(cfg)
	tokens := token.New(store, codec, oauthConfigs, logger)

	calendar := providers.NewCalendar(store, logger)
	slack := providers.NewSlack(store, logger)
	notion := providers.NewNotion(store, logger)
	food := providers.NewFoodDelivery(store, logger)
	rides := providers.NewRideBooking(store, logger)

	sync := syncer.New(tokens, store, calendar, slack, notion, food, rides, logger)
	registry := queue.NewRegistry(tokens, sync, calendar, slack, notion, food, rides)

	processor := queue.NewProcessor(store, registry, logger,
		queue.WithRetryPolicy(retryPolicy(cfg)),
		queue.WithMaxAttempts(cfg.MaxAttempts),
		queue.WithBatchSize(cfg.BatchSize),
	)

	return &Engine{
		Store:     store,
		Codec:     codec,
		Tokens:    tokens,
		Syncer:    sync,
		Tasks:     queue.NewService(store, logger),
		Processor: processor,
		OAuth:     oauthConfigs,
		Logger:    logger,
	}, nil
}

func (e *Engine) Close() error {
	_ = e.Logger.Sync()

	return e.Store.Close()
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}

	return zap.NewProduction()
}

func openStore(ctx context.Context, cfg *Config) (Store, error) {
	if cfg.Dsn == "" {
		return sqlite.New(cfg.DatabasePath)
	}

	db, err := postgres.Connect(ctx, cfg.Dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	return postgres.NewStore(db), nil
}

func retryPolicy(cfg *Config) queue.RetryPolicy {
	if cfg.RetryBackoff == "exponential" {
		return queue.ExponentialBackoff{
			Base:   cfg.RetryDelay,
			Max:    time.Hour,
			Jitter: 0.2,
		}
	}

	return queue.FixedDelay{Delay: cfg.RetryDelay}
}

func buildOAuthConfigs(cfg *Config) map[models.Provider]*oauth2.Config {
	configs := make(map[models.Provider]*oauth2.Config)

	if cfg.GoogleClientID != "" && cfg.GoogleClientSecret != "" {
		configs[models.ProviderGoogleCalendar] = &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/calendar",
				"https://www.googleapis.com/auth/calendar.events",
			},
			Endpoint: google.Endpoint,
		}
	}

	if cfg.SlackClientID != "" && cfg.SlackClientSecret != "" {
		configs[models.ProviderSlack] = &oauth2.Config{
			ClientID:     cfg.SlackClientID,
			ClientSecret: cfg.SlackClientSecret,
			RedirectURL:  cfg.SlackRedirectURL,
			Scopes:       []string{"channels:read", "chat:write", "reminders:write"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  "https://slack.com/oauth/v2/authorize",
				TokenURL: "https://slack.com/api/oauth.v2.access",
			},
		}
	}

	if cfg.NotionClientID != "" && cfg.NotionClientSecret != "" {
		configs[models.ProviderNotion] = &oauth2.Config{
			ClientID:     cfg.NotionClientID,
			ClientSecret: cfg.NotionClientSecret,
			RedirectURL:  cfg.NotionRedirectURL,
			Endpoint: oauth2.Endpoint{
				AuthURL:  "https://api.notion.com/v1/oauth/authorize",
				TokenURL: "https://api.notion.com/v1/oauth/token",
			},
		}
	}

	return configs
}
