package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/fitlab/coachbill/internal/handler"
	"github.com/fitlab/coachbill/internal/storage/postgres"
	"github.com/fitlab/coachbill/pkg/config"
	"github.com/fitlab/coachbill/pkg/entitlement"
	"github.com/fitlab/coachbill/pkg/featuregate"
	"github.com/fitlab/coachbill/pkg/httpserver"
	"github.com/fitlab/coachbill/pkg/logger"
	"github.com/fitlab/coachbill/pkg/pg"
	"github.com/fitlab/coachbill/pkg/plan"
	"github.com/fitlab/coachbill/pkg/preference"
	"github.com/fitlab/coachbill/pkg/redis"
	"github.com/fitlab/coachbill/pkg/subscription"
)

type appConfig struct {
	ServiceName string `env:"SERVICE_NAME" envDefault:"coachbill"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	PlansPath   string `env:"PLANS_PATH" envDefault:"plans.yaml"`

	// CacheEnabled turns on the redis-backed display cache for the
	// entitlements endpoint. Authorization paths never use it.
	CacheEnabled bool          `env:"ENTITLEMENTS_CACHE_ENABLED" envDefault:"false"`
	CacheTTL     time.Duration `env:"ENTITLEMENTS_CACHE_TTL" envDefault:"3m"`

	HTTP  httpserver.Config
	PG    pg.Config
	Redis redis.Config
}

func main() {
	var cfg appConfig
	config.MustLoad(&cfg)

	logLevel := slog.LevelInfo
	if err := logLevel.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		logLevel = slog.LevelInfo
	}
	log := logger.New(
		logger.WithLevel(logLevel),
		logger.WithService(cfg.ServiceName),
	)
	logger.SetAsDefault(log)

	if err := run(context.Background(), cfg, log); err != nil {
		log.Error("service exited with error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg appConfig, log *slog.Logger) error {
	pool, err := pg.Connect(ctx, cfg.PG)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, cfg.PG, log); err != nil {
		return err
	}

	catalog, err := plan.NewCatalog(ctx, plan.NewYAMLSource(cfg.PlansPath))
	if err != nil {
		return err
	}
	log.InfoContext(ctx, "plan catalog loaded",
		slog.String("path", cfg.PlansPath),
		slog.Int("plans", len(catalog.All())))

	subStore := postgres.NewSubscriptionStore(pool)
	relStore := postgres.NewRelationshipStore(pool)
	trialStore := postgres.NewTrialStore(pool)
	prefStore := postgres.NewPreferenceStore(pool)
	scoreStore := postgres.NewScoreStore(pool)

	subSvc := subscription.NewService(subStore, catalog, subscription.WithLogger(log))
	prefSvc := preference.NewService(prefStore, subStore, preference.WithLogger(log))
	resolver := entitlement.NewResolver(subStore, relStore, trialStore, catalog,
		entitlement.WithLogger(log))

	readiness := []func(context.Context) error{pg.Healthcheck(pool)}

	var cache entitlement.DisplayCache
	if cfg.CacheEnabled {
		client, err := redis.Connect(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer client.Close() //nolint:errcheck
		cache = entitlement.NewRedisDisplayCache(client, cfg.CacheTTL)
		readiness = append(readiness, redis.Healthcheck(client))
	}

	router := handler.NewRouter(handler.RouterDeps{
		Entitlements:    handler.NewEntitlementsHandler(resolver, cache, log),
		Subscriptions:   handler.NewSubscriptionsHandler(subSvc, log),
		Preferences:     handler.NewPreferencesHandler(prefSvc, log),
		Webhooks:        handler.NewWebhooksHandler(subSvc, log),
		Scores:          handler.NewScoresHandler(scoreStore, log),
		ScoreGate:       featuregate.New(resolver.ResolveStudent, log),
		Log:             log,
		ReadinessChecks: readiness,
	})

	srv := httpserver.NewFromConfig(cfg.HTTP, log)
	return srv.Run(ctx, router)
}
