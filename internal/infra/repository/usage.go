package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/zacharykka/blog-assistant/internal/domain"
	"github.com/zacharykka/blog-assistant/internal/infra/database"
)

type usageRepository struct {
	db      *sql.DB
	dialect database.Dialect
}

const usageColumns = `user_id, current_month, requests_this_month, tokens_this_month, cost_this_month,
total_requests, total_tokens, total_cost, monthly_request_limit, monthly_token_limit, monthly_cost_limit,
is_quota_exceeded, last_request_at, created_at, updated_at`

func (r *usageRepository) Get(ctx context.Context, userID string) (*domain.UserAIUsage, error) {
	ph := database.NewPlaceholderBuilder(r.dialect)
	query := fmt.Sprintf(`SELECT %s FROM user_ai_usage WHERE user_id = %s`, usageColumns, ph.Next())

	var (
		usage         domain.UserAIUsage
		lastRequestAt sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&usage.UserID, &usage.CurrentMonth,
		&usage.RequestsThisMonth, &usage.TokensThisMonth, &usage.CostThisMonth,
		&usage.TotalRequests, &usage.TotalTokens, &usage.TotalCost,
		&usage.MonthlyRequestLimit, &usage.MonthlyTokenLimit, &usage.MonthlyCostLimit,
		&usage.IsQuotaExceeded, &lastRequestAt, &usage.CreatedAt, &usage.UpdatedAt)
	if err != nil {
		return nil, translateErr(err)
	}
	usage.LastRequestAt = timePtr(lastRequestAt)
	return &usage, nil
}

func (r *usageRepository) Create(ctx context.Context, usage *domain.UserAIUsage) error {
	ph := database.NewPlaceholderBuilder(r.dialect)
	query := fmt.Sprintf(`INSERT INTO user_ai_usage (user_id, current_month, monthly_request_limit, monthly_token_limit, monthly_cost_limit)
VALUES (%s, %s, %s, %s, %s)`, ph.Next(), ph.Next(), ph.Next(), ph.Next(), ph.Next())

	_, err := r.db.ExecContext(ctx, query, usage.UserID, usage.CurrentMonth,
		usage.MonthlyRequestLimit, usage.MonthlyTokenLimit, usage.MonthlyCostLimit)
	return translateErr(err)
}

func (r *usageRepository) ResetMonth(ctx context.Context, userID string, month time.Time) error {
	ph := database.NewPlaceholderBuilder(r.dialect)
	query := fmt.Sprintf(`UPDATE user_ai_usage
SET current_month = %s, requests_this_month = 0, tokens_this_month = 0, cost_this_month = 0,
    is_quota_exceeded = %s, updated_at = CURRENT_TIMESTAMP
WHERE user_id = %s`, ph.Next(), ph.Next(), ph.Next())

	result, err := r.db.ExecContext(ctx, query, month, false, userID)
	if err != nil {
		return err
	}
	return expectAffected(result)
}

func (r *usageRepository) SetQuotaExceeded(ctx context.Context, userID string, exceeded bool) error {
	ph := database.NewPlaceholderBuilder(r.dialect)
	query := fmt.Sprintf(`UPDATE user_ai_usage SET is_quota_exceeded = %s, updated_at = CURRENT_TIMESTAMP WHERE user_id = %s`, ph.Next(), ph.Next())

	result, err := r.db.ExecContext(ctx, query, exceeded, userID)
	if err != nil {
		return err
	}
	return expectAffected(result)
}

// Increment 在单条 UPDATE 中累加月度与累计计数，依赖数据库行级原子性。
func (r *usageRepository) Increment(ctx context.Context, userID string, tokens int, cost float64, at time.Time) error {
	ph := database.NewPlaceholderBuilder(r.dialect)
	tokensMonth, costMonth := ph.Next(), ph.Next()
	tokensTotal, costTotal := ph.Next(), ph.Next()
	query := fmt.Sprintf(`UPDATE user_ai_usage
SET requests_this_month = requests_this_month + 1,
    tokens_this_month = tokens_this_month + %s,
    cost_this_month = cost_this_month + %s,
    total_requests = total_requests + 1,
    total_tokens = total_tokens + %s,
    total_cost = total_cost + %s,
    last_request_at = %s,
    updated_at = CURRENT_TIMESTAMP
WHERE user_id = %s`, tokensMonth, costMonth, tokensTotal, costTotal, ph.Next(), ph.Next())

	result, err := r.db.ExecContext(ctx, query, tokens, cost, tokens, cost, at, userID)
	if err != nil {
		return err
	}
	return expectAffected(result)
}

func (r *usageRepository) UpdateLimits(ctx context.Context, userID string, requests, tokens int, cost float64) error {
	ph := database.NewPlaceholderBuilder(r.dialect)
	query := fmt.Sprintf(`UPDATE user_ai_usage
SET monthly_request_limit = %s, monthly_token_limit = %s, monthly_cost_limit = %s, updated_at = CURRENT_TIMESTAMP
WHERE user_id = %s`, ph.Next(), ph.Next(), ph.Next(), ph.Next())

	result, err := r.db.ExecContext(ctx, query, requests, tokens, cost, userID)
	if err != nil {
		return err
	}
	return expectAffected(result)
}
