package infra

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"go.uber.org/zap"

	"github.com/zacharykka/blog-assistant/internal/config"
	"github.com/zacharykka/blog-assistant/internal/domain"
	"github.com/zacharykka/blog-assistant/internal/service/assistant"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		App: config.AppConfig{Name: "blog-assistant", Env: "test"},
		Database: config.DatabaseConfig{
			Driver: "sqlite",
			DSN:    "file:" + filepath.Join(t.TempDir(), "app.db") + "?_fk=1",
		},
		Auth: config.AuthConfig{
			AccessTokenSecret:  "access-secret-access-secret-0123",
			RefreshTokenSecret: "refresh-secret-refresh-secret-01",
		},
		AI: config.AIConfig{
			BaseURL:       "http://127.0.0.1:0",
			Timeout:       time.Second,
			DefaultTokens: 100,
			DefaultCost:   0.001,
		},
		Quota:     config.QuotaConfig{MonthlyRequestLimit: 100, MonthlyTokenLimit: 50000, MonthlyCostLimit: 10},
		RateLimit: config.RateLimitConfig{Enabled: true, RequestsPerMinute: 30},
		Bootstrap: config.BootstrapConfig{
			Enabled: true,
			Admin:   config.AdminConfig{Email: "seed@example.com", Password: "super-secure-password", Role: "admin"},
		},
	}
}

func TestInitializeSeedsAndWires(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	container, cleanup, err := Initialize(ctx, cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	defer func() {
		if err := cleanup(ctx); err != nil {
			t.Fatalf("cleanup: %v", err)
		}
	}()

	if container.Redis != nil {
		t.Fatalf("redis should be disabled without an address")
	}
	if container.UserLimiter == nil {
		t.Fatalf("expected user limiter when rate limiting is enabled")
	}

	admin, err := container.Repos.Users.GetByEmail(ctx, "seed@example.com")
	if err != nil {
		t.Fatalf("expected seeded admin: %v", err)
	}
	if admin.Role != "admin" {
		t.Fatalf("expected admin role got %s", admin.Role)
	}

	models, err := container.Models.List(ctx, domain.ModelTypeTextGeneration)
	if err != nil || len(models) == 0 {
		t.Fatalf("expected seeded text generation models, got %d (%v)", len(models), err)
	}
	if container.Providers.For(domain.ProviderHuggingFace) == container.Providers.For(domain.ProviderMock) {
		t.Fatalf("expected huggingface client registered separately from the mock fallback")
	}

	// 模拟 provider 不依赖网络
	var mockModelID string
	for _, m := range models {
		if m.Provider == domain.ProviderMock {
			mockModelID = m.ID
		}
	}
	if mockModelID == "" {
		t.Fatalf("expected a seeded mock model")
	}
	result, err := container.Assistant.Process(ctx, assistant.ProcessInput{
		UserID:      admin.ID,
		RequestType: domain.RequestSummarization,
		InputText:   "summarise me",
		ModelID:     mockModelID,
	})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if result.Status != domain.StatusCompleted {
		t.Fatalf("unexpected status %s", result.Status)
	}
}

func TestInitializeWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.Redis.Addr = mr.Addr()
	cfg.RateLimit.Enabled = false
	cfg.Bootstrap.Enabled = false
	ctx := context.Background()

	container, cleanup, err := Initialize(ctx, cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if container.Redis == nil {
		t.Fatalf("expected redis client")
	}
	if container.UserLimiter != nil {
		t.Fatalf("limiter should be nil when disabled")
	}
	if _, err := container.Catalog.ListActive(ctx, ""); err != nil {
		t.Fatalf("list catalog: %v", err)
	}
	if err := cleanup(ctx); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
}

func TestInitializeFailsOnUnreachableRedis(t *testing.T) {
	cfg := testConfig(t)
	cfg.Redis.Addr = "127.0.0.1:1"

	if _, _, err := Initialize(context.Background(), cfg, zap.NewNop()); err == nil {
		t.Fatalf("expected redis connection error")
	}
}
