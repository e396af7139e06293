package http

import (
	"database/sql"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/zacharykka/blog-assistant/internal/config"
	"github.com/zacharykka/blog-assistant/internal/infra/cache"
	"github.com/zacharykka/blog-assistant/internal/infra/database"
	"github.com/zacharykka/blog-assistant/internal/middleware"
)

// HealthDependencies 汇总健康检查所需的依赖。
type HealthDependencies struct {
	DB    *sql.DB
	Redis *redis.Client
}

// RouterOptions 用于自定义路由行为，例如注入中间件。
type RouterOptions struct {
	Middlewares    []gin.HandlerFunc
	HealthHandler  gin.HandlerFunc
	HealthDeps     *HealthDependencies
	AuthHandler    *AuthHandler
	AIHandler      *AIHandler
	CatalogHandler *CatalogHandler
	// QuotaChecker 为空时 AI 处理路由不做额度拦截。
	QuotaChecker middleware.QuotaChecker
	// UserLimiter 为空时不做按用户限流。
	UserLimiter *limiter.Limiter
}

// NewEngine 根据环境配置初始化 Gin 引擎，并注册基础路由。
func NewEngine(cfg *config.Config, logger *zap.Logger, opts RouterOptions) *gin.Engine {
	ginMode := gin.DebugMode
	switch cfg.App.Env {
	case "production":
		ginMode = gin.ReleaseMode
	case "test":
		ginMode = gin.TestMode
	}
	gin.SetMode(ginMode)

	engine := gin.New()

	engine.Use(gin.Recovery())
	if cfg.Tracing.Enabled {
		engine.Use(otelgin.Middleware(serviceName(cfg)))
	}
	engine.Use(cors.New(buildCORSConfig(cfg.Server)))
	engine.Use(middleware.SecurityHeaders(cfg.Server.SecurityHeaders))
	engine.Use(middleware.RequestLogger(logger))
	if cfg.Server.MaxRequestBody > 0 {
		engine.Use(middleware.LimitRequestBody(cfg.Server.MaxRequestBody))
	}

	for _, mw := range opts.Middlewares {
		if mw != nil {
			engine.Use(mw)
		}
	}

	healthHandler := opts.HealthHandler
	if healthHandler == nil {
		healthHandler = defaultHealthHandler(cfg, opts.HealthDeps)
	}

	engine.GET("/healthz", healthHandler)

	api := engine.Group("/api/v1")
	if opts.AuthHandler != nil {
		authGroup := api.Group("/auth")
		opts.AuthHandler.RegisterRoutes(authGroup)
	}

	if opts.AIHandler != nil || opts.CatalogHandler != nil {
		aiGroup := api.Group("/ai")
		aiGroup.Use(middleware.AuthGuard(cfg.Auth.AccessTokenSecret))
		adminGroup := aiGroup.Group("")
		adminGroup.Use(middleware.RequireRoles(middleware.RoleAdmin))

		if h := opts.AIHandler; h != nil {
			// 会调用 provider 的路由需经过额度与限流检查
			processing := aiGroup.Group("")
			if opts.QuotaChecker != nil {
				processing.Use(middleware.QuotaGuard(opts.QuotaChecker, logger))
			}
			if opts.UserLimiter != nil {
				processing.Use(middleware.RateLimit(opts.UserLimiter, middleware.KeyByUserOrIP(), logger))
			}
			processing.POST("/blog/generate-draft", h.GenerateDraft)
			processing.POST("/blog/improve-content", h.ImproveContent)
			processing.POST("/blog/generate-title", h.GenerateTitles)
			processing.POST("/blog/analyze-tone", h.AnalyzeTone)
			processing.POST("/analyze/sentiment", h.AnalyzeSentiment)
			processing.POST("/analyze/keywords", h.ExtractKeywords)
			processing.POST("/requests", h.ProcessRequest)

			aiGroup.POST("/blog/generate-tags", h.SuggestTags)
			aiGroup.POST("/blog/seo-optimize", h.OptimizeSEO)
			aiGroup.GET("/requests", h.ListRequests)
			aiGroup.GET("/requests/:id", h.GetRequest)
			aiGroup.POST("/requests/:id/feedback", h.SubmitFeedback)
			aiGroup.GET("/usage", h.Usage)

			adminGroup.PUT("/usage/:userId/limits", h.UpdateLimits)
			adminGroup.GET("/analytics", h.Analytics)
		}

		if h := opts.CatalogHandler; h != nil {
			aiGroup.GET("/models", h.ListModels)
			aiGroup.GET("/models/:id", h.GetModel)
			aiGroup.GET("/templates", h.ListTemplates)
			aiGroup.GET("/templates/:id", h.GetTemplate)
			aiGroup.POST("/templates/render", h.RenderTemplate)

			adminGroup.POST("/models", h.CreateModel)
			adminGroup.PATCH("/models/:id/status", h.SetModelStatus)
		}
	}

	logger.Info("http router ready", zap.String("env", cfg.App.Env))

	return engine
}

func serviceName(cfg *config.Config) string {
	if cfg.Tracing.ServiceName != "" {
		return cfg.Tracing.ServiceName
	}
	if cfg.App.Name != "" {
		return cfg.App.Name
	}
	return "blog-assistant"
}

// buildCORSConfig 将配置转换为 cors 中间件选项，支持 * 通配子域名。
func buildCORSConfig(cfg config.ServerConfig) cors.Config {
	corsCfg := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		ExposeHeaders:    []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           12 * time.Hour,
	}

	var exact, patterns []string
	for _, origin := range cfg.CORS.AllowOrigins {
		origin = strings.TrimSpace(origin)
		switch {
		case origin == "":
		case origin == "*":
			corsCfg.AllowAllOrigins = true
			corsCfg.AllowCredentials = false
			return corsCfg
		case strings.Contains(origin, "*"):
			patterns = append(patterns, origin)
		default:
			exact = append(exact, origin)
		}
	}

	if len(patterns) == 0 {
		if len(exact) == 0 {
			corsCfg.AllowAllOrigins = true
			corsCfg.AllowCredentials = false
			return corsCfg
		}
		corsCfg.AllowOrigins = exact
		return corsCfg
	}

	allowed := make(map[string]struct{}, len(exact))
	for _, origin := range exact {
		allowed[origin] = struct{}{}
	}
	corsCfg.AllowOriginFunc = func(origin string) bool {
		if _, ok := allowed[origin]; ok {
			return true
		}
		for _, pattern := range patterns {
			if ok, _ := path.Match(pattern, origin); ok {
				return true
			}
		}
		return false
	}
	return corsCfg
}

func defaultHealthHandler(cfg *config.Config, deps *HealthDependencies) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		httpStatus := http.StatusOK
		result := gin.H{
			"status":  "ok",
			"service": cfg.App.Name,
			"env":     cfg.App.Env,
		}

		if deps != nil {
			dependencies := gin.H{}
			if err := database.Health(ctx.Request.Context(), deps.DB); err != nil {
				httpStatus = http.StatusServiceUnavailable
				result["status"] = "degraded"
				dependencies["database"] = gin.H{
					"status": "error",
					"error":  err.Error(),
				}
			} else {
				dependencies["database"] = gin.H{"status": "ok"}
			}

			// Redis 为可选依赖，未配置时不影响整体状态
			if deps.Redis != nil {
				if err := cache.Health(ctx.Request.Context(), deps.Redis); err != nil {
					httpStatus = http.StatusServiceUnavailable
					result["status"] = "degraded"
					dependencies["redis"] = gin.H{
						"status": "error",
						"error":  err.Error(),
					}
				} else {
					dependencies["redis"] = gin.H{"status": "ok"}
				}
			} else {
				dependencies["redis"] = gin.H{"status": "disabled"}
			}

			result["dependencies"] = dependencies
		}

		ctx.JSON(httpStatus, result)
	}
}
