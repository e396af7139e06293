package quota

import (
	"context"
	"errors"
	"time"

	domain "github.com/zacharykka/blog-assistant/internal/domain"
)

// Limits 为月度上限。
type Limits struct {
	Requests int
	Tokens   int
	Cost     float64
}

// Status 为额度检查结果及当月用量。
type Status struct {
	HasQuota      bool    `json:"has_quota"`
	RequestsUsed  int     `json:"requests_used"`
	RequestsLimit int     `json:"requests_limit"`
	TokensUsed    int     `json:"tokens_used"`
	TokensLimit   int     `json:"tokens_limit"`
	CostUsed      float64 `json:"cost_used"`
	CostLimit     float64 `json:"cost_limit"`
}

// Service 维护用户的月度用量与额度。
type Service struct {
	repos    *domain.Repositories
	defaults Limits
	now      func() time.Time
}

// NewService 创建额度服务，defaults 用于首次创建用量记录。
func NewService(repos *domain.Repositories, defaults Limits) *Service {
	return &Service{repos: repos, defaults: defaults, now: time.Now}
}

// WithClock 用于测试注入时间。
func (s *Service) WithClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// MonthStart 返回 t 所在月份的第一天（UTC）。
func MonthStart(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// Rollover 返回跨月后的用量快照：月度计数清零、超额标记清除，累计值保留。
// 第二个返回值表示是否发生了跨月。
func Rollover(usage domain.UserAIUsage, now time.Time) (domain.UserAIUsage, bool) {
	current := MonthStart(now)
	if MonthStart(usage.CurrentMonth).Equal(current) {
		return usage, false
	}
	usage.CurrentMonth = current
	usage.RequestsThisMonth = 0
	usage.TokensThisMonth = 0
	usage.CostThisMonth = 0
	usage.IsQuotaExceeded = false
	return usage, true
}

// Exceeded 报告任一月度计数是否已达到上限。
func Exceeded(usage domain.UserAIUsage) bool {
	return usage.RequestsThisMonth >= usage.MonthlyRequestLimit ||
		usage.TokensThisMonth >= usage.MonthlyTokenLimit ||
		usage.CostThisMonth >= usage.MonthlyCostLimit
}

// Usage 返回当月视角的用量记录，必要时创建记录并持久化跨月重置。
func (s *Service) Usage(ctx context.Context, userID string) (*domain.UserAIUsage, error) {
	usage, err := s.ensure(ctx, userID)
	if err != nil {
		return nil, err
	}
	next, rolled := Rollover(*usage, s.now())
	if rolled {
		if err := s.repos.Usage.ResetMonth(ctx, userID, next.CurrentMonth); err != nil {
			return nil, err
		}
	}
	return &next, nil
}

// Check 先处理跨月重置，再判断是否仍有额度，并同步 is_quota_exceeded。
func (s *Service) Check(ctx context.Context, userID string) (Status, error) {
	usage, err := s.Usage(ctx, userID)
	if err != nil {
		return Status{}, err
	}

	exceeded := Exceeded(*usage)
	if exceeded != usage.IsQuotaExceeded {
		if err := s.repos.Usage.SetQuotaExceeded(ctx, userID, exceeded); err != nil {
			return Status{}, err
		}
		usage.IsQuotaExceeded = exceeded
	}
	return statusOf(usage, !exceeded), nil
}

// Consume 记录一次成功请求的用量；仅应在 provider 成功返回后调用。
func (s *Service) Consume(ctx context.Context, userID string, tokens int, cost float64) error {
	if tokens < 0 {
		tokens = 0
	}
	if cost < 0 {
		cost = 0
	}
	if _, err := s.Usage(ctx, userID); err != nil {
		return err
	}
	return s.repos.Usage.Increment(ctx, userID, tokens, cost, s.now().UTC())
}

// UpdateLimits 修改月度上限并重新计算超额标记。
func (s *Service) UpdateLimits(ctx context.Context, userID string, limits Limits) (*domain.UserAIUsage, error) {
	if limits.Requests < 0 || limits.Tokens < 0 || limits.Cost < 0 {
		return nil, ErrInvalidLimits
	}
	if _, err := s.repos.Users.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	if _, err := s.Usage(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.repos.Usage.UpdateLimits(ctx, userID, limits.Requests, limits.Tokens, limits.Cost); err != nil {
		return nil, err
	}
	if _, err := s.Check(ctx, userID); err != nil {
		return nil, err
	}
	return s.repos.Usage.Get(ctx, userID)
}

func (s *Service) ensure(ctx context.Context, userID string) (*domain.UserAIUsage, error) {
	usage, err := s.repos.Usage.Get(ctx, userID)
	if err == nil {
		return usage, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	fresh := &domain.UserAIUsage{
		UserID:              userID,
		CurrentMonth:        MonthStart(s.now()),
		MonthlyRequestLimit: s.defaults.Requests,
		MonthlyTokenLimit:   s.defaults.Tokens,
		MonthlyCostLimit:    s.defaults.Cost,
	}
	if err := s.repos.Usage.Create(ctx, fresh); err != nil && !errors.Is(err, domain.ErrConflict) {
		return nil, err
	}
	return s.repos.Usage.Get(ctx, userID)
}

func statusOf(usage *domain.UserAIUsage, hasQuota bool) Status {
	return Status{
		HasQuota:      hasQuota,
		RequestsUsed:  usage.RequestsThisMonth,
		RequestsLimit: usage.MonthlyRequestLimit,
		TokensUsed:    usage.TokensThisMonth,
		TokensLimit:   usage.MonthlyTokenLimit,
		CostUsed:      usage.CostThisMonth,
		CostLimit:     usage.MonthlyCostLimit,
	}
}
