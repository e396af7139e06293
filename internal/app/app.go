package app

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/zacharykka/blog-assistant/internal/config"
)

// Closer 为停机时需要释放的资源。
type Closer func(context.Context) error

// Application 负责组织配置、日志与 HTTP Server 的生命周期。
type Application struct {
	cfg     *config.Config
	logger  *zap.Logger
	engine  *gin.Engine
	server  *http.Server
	closers []Closer
}

// New 构建应用实例，并初始化 HTTP 服务配置。
func New(cfg *config.Config, logger *zap.Logger, engine *gin.Engine, closers ...Closer) *Application {
	httpServer := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           engine,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	return &Application{
		cfg:     cfg,
		logger:  logger,
		engine:  engine,
		server:  httpServer,
		closers: closers,
	}
}

// Run 启动 HTTP 服务并监听上下文取消，实现优雅退出。
func (a *Application) Run(ctx context.Context) error {
	a.logger.Info("starting http server", zap.String("addr", a.server.Addr))

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.Server.ShutdownTimeout)
		defer cancel()
		return a.shutdown(shutdownCtx)
	case err := <-errCh:
		closeErr := a.close(context.WithoutCancel(ctx))
		if errors.Is(err, http.ErrServerClosed) {
			return closeErr
		}
		return multierr.Append(err, closeErr)
	}
}

// shutdown 先停止接收请求，再按注册顺序释放资源。
func (a *Application) shutdown(ctx context.Context) error {
	a.logger.Info("shutting down http server")
	err := a.server.Shutdown(ctx)
	if err != nil {
		a.logger.Error("graceful shutdown failed", zap.Error(err))
	}
	err = multierr.Append(err, a.close(ctx))
	if err == nil {
		a.logger.Info("shutdown complete")
	}
	return err
}

func (a *Application) close(ctx context.Context) error {
	var errs error
	for _, closer := range a.closers {
		if closer == nil {
			continue
		}
		if err := closer(ctx); err != nil {
			a.logger.Error("release resource failed", zap.Error(err))
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

// Engine 暴露 Gin 引擎实例，方便注册额外路由。
func (a *Application) Engine() *gin.Engine {
	return a.engine
}
