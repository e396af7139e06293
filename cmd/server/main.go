package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/zacharykka/blog-assistant/internal/app"
	"github.com/zacharykka/blog-assistant/internal/config"
	"github.com/zacharykka/blog-assistant/internal/infra"
	"github.com/zacharykka/blog-assistant/internal/infra/tracing"
	httpserver "github.com/zacharykka/blog-assistant/internal/server/http"
	"github.com/zacharykka/blog-assistant/pkg/logger"
)

func main() {
	opts := parseFlags()

	cfg, err := config.Load(opts.ConfigDir, opts.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Options{
		Level:      cfg.Logging.Level,
		FilePath:   cfg.Logging.File.Path,
		MaxSizeMB:  cfg.Logging.File.MaxSizeMB,
		MaxBackups: cfg.Logging.File.MaxBackups,
		MaxAgeDays: cfg.Logging.File.MaxAgeDays,
		Compress:   cfg.Logging.File.Compress,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = log.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing, cfg.App.Env, log)
	if err != nil {
		log.Fatal("初始化链路追踪失败", zap.Error(err))
	}

	container, cleanup, err := infra.Initialize(ctx, cfg, log)
	if err != nil {
		_ = shutdownTracing(context.Background())
		log.Fatal("初始化依赖失败", zap.Error(err))
	}

	engine := httpserver.NewEngine(cfg, log, httpserver.RouterOptions{
		HealthDeps: &httpserver.HealthDependencies{
			DB:    container.DB,
			Redis: container.Redis,
		},
		AuthHandler:    httpserver.NewAuthHandler(container.Auth),
		AIHandler:      httpserver.NewAIHandler(container.Assistant, container.Quota),
		CatalogHandler: httpserver.NewCatalogHandler(container.Models, container.Templates),
		QuotaChecker:   container.Quota,
		UserLimiter:    container.UserLimiter,
	})

	application := app.New(cfg, log, engine, app.Closer(cleanup), app.Closer(shutdownTracing))

	if err := application.Run(ctx); err != nil {
		log.Error("服务运行异常", zap.Error(err))
		os.Exit(1)
	}
}

// options 控制命令行参数。
type options struct {
	ConfigDir string
	Env       string
}

func parseFlags() options {
	var opts options
	pflag.StringVar(&opts.ConfigDir, "config-dir", "./config", "配置文件目录")
	pflag.StringVar(&opts.Env, "env", "", "强制指定运行环境，覆盖 BLOG_ASSISTANT_ENV")
	pflag.Parse()
	return opts
}
