package quota

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	domain "github.com/zacharykka/blog-assistant/internal/domain"
	"github.com/zacharykka/blog-assistant/internal/infra/database"
	"github.com/zacharykka/blog-assistant/internal/infra/repository"

	_ "modernc.org/sqlite"
)

type testEnv struct {
	db    *sql.DB
	repos *domain.Repositories
	svc   *Service
	now   time.Time
}

func setupQuotaService(t *testing.T) (*testEnv, func()) {
	t.Helper()
	dsn := "file:quota_" + uuid.NewString() + ".db?mode=memory&cache=shared&_fk=1"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	if err := database.Migrate(context.Background(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	repos := repository.NewSQLRepositories(db, database.NewDialect("sqlite"))
	env := &testEnv{
		db:    db,
		repos: repos,
		svc:   NewService(repos, Limits{Requests: 100, Tokens: 50000, Cost: 10}),
		now:   time.Date(2026, time.March, 15, 10, 0, 0, 0, time.UTC),
	}
	env.svc.WithClock(func() time.Time { return env.now })
	return env, func() { _ = db.Close() }
}

func (e *testEnv) user(t *testing.T) string {
	t.Helper()
	id := uuid.NewString()
	if err := e.repos.Users.Create(context.Background(), &domain.User{ID: id, Email: id + "@example.com", HashedPassword: "x"}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return id
}

func TestRolloverIsPure(t *testing.T) {
	usage := domain.UserAIUsage{
		CurrentMonth:      time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
		RequestsThisMonth: 100,
		TokensThisMonth:   900,
		CostThisMonth:     3,
		TotalTokens:       900,
		IsQuotaExceeded:   true,
	}
	next, rolled := Rollover(usage, time.Date(2026, time.February, 3, 0, 0, 0, 0, time.UTC))
	if !rolled {
		t.Fatalf("expected rollover")
	}
	if next.RequestsThisMonth != 0 || next.TokensThisMonth != 0 || next.CostThisMonth != 0 || next.IsQuotaExceeded {
		t.Fatalf("expected monthly counters reset %+v", next)
	}
	if next.TotalTokens != 900 {
		t.Fatalf("expected lifetime totals kept")
	}
	if usage.RequestsThisMonth != 100 {
		t.Fatalf("input snapshot must not be mutated")
	}

	same, rolled := Rollover(usage, time.Date(2026, time.January, 31, 23, 0, 0, 0, time.UTC))
	if rolled || same.RequestsThisMonth != 100 {
		t.Fatalf("expected no rollover within the month")
	}
}

func TestCheckDeniesAtRequestLimit(t *testing.T) {
	env, cleanup := setupQuotaService(t)
	defer cleanup()
	ctx := context.Background()
	userID := env.user(t)

	status, err := env.svc.Check(ctx, userID)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !status.HasQuota || status.RequestsLimit != 100 {
		t.Fatalf("expected fresh user to have quota %+v", status)
	}

	if _, err := env.db.ExecContext(ctx, `UPDATE user_ai_usage SET requests_this_month = 100 WHERE user_id = ?`, userID); err != nil {
		t.Fatalf("set counter: %v", err)
	}
	status, err = env.svc.Check(ctx, userID)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if status.HasQuota {
		t.Fatalf("expected quota denied at limit")
	}
	usage, err := env.repos.Usage.Get(ctx, userID)
	if err != nil {
		t.Fatalf("get usage: %v", err)
	}
	if !usage.IsQuotaExceeded {
		t.Fatalf("expected exceeded flag persisted")
	}
}

func TestCheckInNewMonthResets(t *testing.T) {
	env, cleanup := setupQuotaService(t)
	defer cleanup()
	ctx := context.Background()
	userID := env.user(t)

	if err := env.svc.Consume(ctx, userID, 60000, 12); err != nil {
		t.Fatalf("consume: %v", err)
	}
	if status, _ := env.svc.Check(ctx, userID); status.HasQuota {
		t.Fatalf("expected exhausted quota")
	}

	env.now = time.Date(2026, time.April, 1, 0, 0, 1, 0, time.UTC)
	status, err := env.svc.Check(ctx, userID)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !status.HasQuota || status.TokensUsed != 0 || status.CostUsed != 0 || status.RequestsUsed != 0 {
		t.Fatalf("expected reset in new month %+v", status)
	}

	usage, err := env.repos.Usage.Get(ctx, userID)
	if err != nil {
		t.Fatalf("get usage: %v", err)
	}
	if usage.IsQuotaExceeded || usage.TotalTokens != 60000 {
		t.Fatalf("expected flag cleared and totals kept %+v", usage)
	}
	if usage.CurrentMonth.UTC().Month() != time.April {
		t.Fatalf("expected stored month April got %s", usage.CurrentMonth)
	}
}

func TestConsumeAccumulatesAcrossMonths(t *testing.T) {
	env, cleanup := setupQuotaService(t)
	defer cleanup()
	ctx := context.Background()
	userID := env.user(t)

	march := []struct {
		tokens int
		cost   float64
	}{{100, 0.001}, {250, 0.02}, {40, 0.5}}
	for _, d := range march {
		if err := env.svc.Consume(ctx, userID, d.tokens, d.cost); err != nil {
			t.Fatalf("consume: %v", err)
		}
	}
	usage, err := env.svc.Usage(ctx, userID)
	if err != nil {
		t.Fatalf("usage: %v", err)
	}
	if usage.TokensThisMonth != 390 || math.Abs(usage.CostThisMonth-0.521) > 1e-9 || usage.RequestsThisMonth != 3 {
		t.Fatalf("unexpected march counters %+v", usage)
	}

	env.now = time.Date(2026, time.May, 2, 0, 0, 0, 0, time.UTC)
	if err := env.svc.Consume(ctx, userID, 10, 0.1); err != nil {
		t.Fatalf("consume: %v", err)
	}
	usage, err = env.svc.Usage(ctx, userID)
	if err != nil {
		t.Fatalf("usage: %v", err)
	}
	if usage.TokensThisMonth != 10 || usage.RequestsThisMonth != 1 {
		t.Fatalf("expected may counters only %+v", usage)
	}
	if usage.TotalTokens != 400 || usage.TotalRequests != 4 || math.Abs(usage.TotalCost-0.621) > 1e-9 {
		t.Fatalf("unexpected lifetime totals %+v", usage)
	}
	if usage.LastRequestAt == nil {
		t.Fatalf("expected last request timestamp")
	}
}

func TestUpdateLimitsRecomputesFlag(t *testing.T) {
	env, cleanup := setupQuotaService(t)
	defer cleanup()
	ctx := context.Background()
	userID := env.user(t)

	if err := env.svc.Consume(ctx, userID, 10, 0.01); err != nil {
		t.Fatalf("consume: %v", err)
	}
	usage, err := env.svc.UpdateLimits(ctx, userID, Limits{Requests: 1, Tokens: 1000, Cost: 1})
	if err != nil {
		t.Fatalf("update limits: %v", err)
	}
	if !usage.IsQuotaExceeded || usage.MonthlyRequestLimit != 1 {
		t.Fatalf("expected exceeded after lowering limit %+v", usage)
	}

	usage, err = env.svc.UpdateLimits(ctx, userID, Limits{Requests: 10, Tokens: 1000, Cost: 1})
	if err != nil {
		t.Fatalf("update limits: %v", err)
	}
	if usage.IsQuotaExceeded {
		t.Fatalf("expected flag cleared after raising limit")
	}

	if _, err := env.svc.UpdateLimits(ctx, userID, Limits{Requests: -1}); !errors.Is(err, ErrInvalidLimits) {
		t.Fatalf("expected invalid limits got %v", err)
	}
	if _, err := env.svc.UpdateLimits(ctx, uuid.NewString(), Limits{Requests: 1, Tokens: 1, Cost: 1}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected unknown user not found got %v", err)
	}
}
