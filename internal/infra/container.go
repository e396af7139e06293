package infra

import (
	"context"
	"database/sql"

	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/zacharykka/blog-assistant/internal/ai/provider"
	"github.com/zacharykka/blog-assistant/internal/config"
	"github.com/zacharykka/blog-assistant/internal/domain"
	"github.com/zacharykka/blog-assistant/internal/infra/bootstrap"
	"github.com/zacharykka/blog-assistant/internal/infra/cache"
	"github.com/zacharykka/blog-assistant/internal/infra/database"
	"github.com/zacharykka/blog-assistant/internal/infra/ratelimit"
	"github.com/zacharykka/blog-assistant/internal/infra/repository"
	"github.com/zacharykka/blog-assistant/internal/service/assistant"
	authsvc "github.com/zacharykka/blog-assistant/internal/service/auth"
	"github.com/zacharykka/blog-assistant/internal/service/quota"
	"github.com/zacharykka/blog-assistant/internal/service/template"
)

// Container 持有应用依赖资源，负责集中关闭。
type Container struct {
	DB    *sql.DB
	Redis *redis.Client
	Repos *domain.Repositories

	Providers *provider.Registry
	Catalog   *cache.ModelCatalog
	Quota     *quota.Service
	Templates *template.Service
	Assistant *assistant.Service
	Models    *assistant.ModelService
	Auth      *authsvc.Service
	// UserLimiter 在限流关闭时为 nil。
	UserLimiter *limiter.Limiter
}

// Initialize 构建各类依赖并返回关闭函数。
func Initialize(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Container, func(context.Context) error, error) {
	container := &Container{}

	cleanup := func(context.Context) error {
		var errs error
		if container.DB != nil {
			errs = multierr.Append(errs, container.DB.Close())
		}
		if container.Redis != nil {
			errs = multierr.Append(errs, container.Redis.Close())
		}
		return errs
	}
	fail := func(err error) (*Container, func(context.Context) error, error) {
		return nil, nil, multierr.Append(err, cleanup(ctx))
	}

	db, err := database.New(ctx, cfg.Database, logger)
	if err != nil {
		return nil, nil, err
	}
	container.DB = db
	if err := database.Migrate(ctx, db); err != nil {
		return fail(err)
	}

	dialect := database.NewDialect(cfg.Database.Driver)
	container.Repos = repository.NewSQLRepositories(db, dialect)

	redisClient, err := cache.New(ctx, cfg.Redis, logger)
	if err != nil {
		return fail(err)
	}
	container.Redis = redisClient

	if err := bootstrap.Run(ctx, container.Repos, cfg.Bootstrap, logger); err != nil {
		return fail(err)
	}

	store, err := ratelimit.NewStore(redisClient)
	if err != nil {
		return fail(err)
	}
	if cfg.RateLimit.Enabled {
		container.UserLimiter = ratelimit.NewPerMinute(store, cfg.RateLimit.RequestsPerMinute)
	}

	container.Providers = provider.NewRegistry(provider.NewMock(cfg.AI.MockDelay))
	container.Providers.Register(domain.ProviderHuggingFace, provider.NewHuggingFace(provider.HuggingFaceOptions{
		BaseURL:        cfg.AI.BaseURL,
		APIToken:       cfg.AI.APIToken,
		Timeout:        cfg.AI.Timeout,
		SentimentModel: cfg.AI.SentimentModel,
		Logger:         logger,
	}))
	if cfg.AI.APIToken == "" {
		logger.Warn("ai api token not configured; huggingface requests will be rejected upstream")
	}

	container.Catalog = cache.NewModelCatalog(container.Repos.AIModels, redisClient, cfg.AI.CatalogTTL, logger)
	container.Quota = quota.NewService(container.Repos, quota.Limits{
		Requests: cfg.Quota.MonthlyRequestLimit,
		Tokens:   cfg.Quota.MonthlyTokenLimit,
		Cost:     cfg.Quota.MonthlyCostLimit,
	})
	container.Templates = template.NewService(container.Repos)

	processor := assistant.NewProcessor(
		container.Repos.AIRequests,
		container.Catalog,
		container.Providers,
		ratelimit.NewModelGate(store),
		container.Quota,
		assistant.ProcessorOptions{DefaultTokens: cfg.AI.DefaultTokens, DefaultCost: cfg.AI.DefaultCost},
		logger,
	)
	container.Assistant = assistant.NewService(container.Repos, processor, container.Templates, container.Quota, logger)
	container.Models = assistant.NewModelService(container.Repos.AIModels, container.Catalog)
	container.Auth = authsvc.NewService(container.Repos, cfg.Auth)

	return container, cleanup, nil
}
