package http

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
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

	_ "modernc.org/sqlite"
)

const (
	testAdminEmail    = "admin@example.com"
	testAdminPassword = "admin-password"
)

type testServer struct {
	engine *gin.Engine
	db     *sql.DB
	repos  *domain.Repositories
	cfg    *config.Config
}

type envelope struct {
	Data    json.RawMessage `json:"data"`
	Meta    json.RawMessage `json:"meta"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Details json.RawMessage `json:"details"`
}

func setupServer(t *testing.T, monthlyRequests int) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := "file:http_" + uuid.NewString() + ".db?mode=memory&cache=shared&_fk=1"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	ctx := context.Background()
	if err := database.Migrate(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	cfg := &config.Config{
		App: config.AppConfig{Name: "blog-assistant", Env: "test"},
		Server: config.ServerConfig{
			MaxRequestBody: 1 << 20,
			CORS:           config.CORSConfig{AllowOrigins: []string{"*"}},
		},
		Auth: config.AuthConfig{
			AccessTokenSecret:  "access-secret-access-secret-0123",
			RefreshTokenSecret: "refresh-secret-refresh-secret-01",
			AccessTokenTTL:     15 * time.Minute,
			RefreshTokenTTL:    24 * time.Hour,
		},
	}

	repos := repository.NewSQLRepositories(db, database.NewDialect("sqlite"))
	if err := bootstrap.Run(ctx, repos, config.BootstrapConfig{
		Enabled: true,
		Admin:   config.AdminConfig{Email: testAdminEmail, Password: testAdminPassword, Role: "admin"},
	}, zap.NewNop()); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	store, err := ratelimit.NewStore(nil)
	if err != nil {
		t.Fatalf("limiter store: %v", err)
	}
	quotaSvc := quota.NewService(repos, quota.Limits{Requests: monthlyRequests, Tokens: 50000, Cost: 10})
	catalog := cache.NewModelCatalog(repos.AIModels, nil, time.Minute, zap.NewNop())
	processor := assistant.NewProcessor(repos.AIRequests, catalog, provider.NewRegistry(provider.NewMock(0)),
		ratelimit.NewModelGate(store), quotaSvc, assistant.ProcessorOptions{DefaultTokens: 100, DefaultCost: 0.001}, zap.NewNop())
	templates := template.NewService(repos)

	engine := NewEngine(cfg, zap.NewNop(), RouterOptions{
		HealthDeps:     &HealthDependencies{DB: db},
		AuthHandler:    NewAuthHandler(authsvc.NewService(repos, cfg.Auth)),
		AIHandler:      NewAIHandler(assistant.NewService(repos, processor, templates, quotaSvc, zap.NewNop()), quotaSvc),
		CatalogHandler: NewCatalogHandler(assistant.NewModelService(repos.AIModels, catalog), templates),
		QuotaChecker:   quotaSvc,
		UserLimiter:    ratelimit.NewPerMinute(store, 100),
	})

	return &testServer{engine: engine, db: db, repos: repos, cfg: cfg}
}

func (s *testServer) do(t *testing.T, method, target, token string, payload any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "blog-assistant-test")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec, env
}

// login 登录并返回访问令牌与用户 ID。
func (s *testServer) login(t *testing.T, email, password string) (string, string) {
	t.Helper()
	rec, env := s.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": email, "password": password})
	if rec.Code != http.StatusOK {
		t.Fatalf("login failed: %d %s", rec.Code, rec.Body.String())
	}
	var data struct {
		Tokens authsvc.Tokens `json:"tokens"`
		User   domain.User    `json:"user"`
	}
	decode(t, env.Data, &data)
	return data.Tokens.AccessToken, data.User.ID
}

// newUser 注册一个 editor 并返回其令牌与 ID。
func (s *testServer) newUser(t *testing.T) (string, string) {
	t.Helper()
	email := uuid.NewString()[:8] + "@example.com"
	rec, _ := s.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"email": email, "password": "password123", "role": "editor",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register failed: %d %s", rec.Code, rec.Body.String())
	}
	return s.login(t, email, "password123")
}

func decode(t *testing.T, raw json.RawMessage, dst any) {
	t.Helper()
	if err := json.Unmarshal(raw, dst); err != nil {
		t.Fatalf("decode %s: %v", string(raw), err)
	}
}
