package assistant

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	domain "github.com/zacharykka/blog-assistant/internal/domain"
	"github.com/zacharykka/blog-assistant/internal/service/quota"
	"github.com/zacharykka/blog-assistant/internal/service/template"
)

const (
	recentRequestLimit = 10
	topModelLimit      = 5
	defaultPageSize    = 20
	maxPageSize        = 100
)

// Service 组合请求处理、模板与额度，提供博客写作辅助能力。
type Service struct {
	repos     *domain.Repositories
	processor *Processor
	templates *template.Service
	quota     *quota.Service
	logger    *zap.Logger
	now       func() time.Time
}

// NewService 创建辅助服务。
func NewService(repos *domain.Repositories, processor *Processor, templates *template.Service, quotaSvc *quota.Service, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repos:     repos,
		processor: processor,
		templates: templates,
		quota:     quotaSvc,
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock 用于测试注入时间。
func (s *Service) WithClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Process 执行通用 AI 请求。
func (s *Service) Process(ctx context.Context, in ProcessInput) (*Result, error) {
	return s.processor.Process(ctx, in)
}

// GetRequest 返回请求详情，仅本人或管理员可见。
func (s *Service) GetRequest(ctx context.Context, userID string, isAdmin bool, requestID string) (*domain.AIRequest, error) {
	req, err := s.repos.AIRequests.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	if !isAdmin && req.UserID != userID {
		return nil, ErrForbidden
	}
	return req, nil
}

// ListRequests 分页返回用户的请求历史（新到旧）及总数。
func (s *Service) ListRequests(ctx context.Context, userID string, limit, offset int) ([]*domain.AIRequest, int64, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	items, err := s.repos.AIRequests.List(ctx, domain.RequestListOptions{UserID: userID, Limit: limit, Offset: offset})
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repos.AIRequests.Count(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// FeedbackInput 为用户对请求结果的评价。
type FeedbackInput struct {
	QualityRating     int
	UsefulnessRating  int
	PositiveAspects   string
	NegativeAspects   string
	Suggestions       string
	ContentUsed       bool
	ModificationsMade string
}

// SubmitFeedback 记录反馈：仅限请求本人、仅限终态请求、每个请求一次。
// 请求使用过模板时，以质量评分更新模板的平均评分。
func (s *Service) SubmitFeedback(ctx context.Context, userID, requestID string, in FeedbackInput) (*domain.AIFeedback, error) {
	if !validRating(in.QualityRating) || !validRating(in.UsefulnessRating) {
		return nil, ErrInvalidRating
	}
	req, err := s.GetRequest(ctx, userID, false, requestID)
	if err != nil {
		return nil, err
	}
	if !req.Status.IsTerminal() {
		return nil, ErrRequestNotFinished
	}

	feedback := &domain.AIFeedback{
		ID:                uuid.NewString(),
		RequestID:         req.ID,
		QualityRating:     in.QualityRating,
		UsefulnessRating:  in.UsefulnessRating,
		PositiveAspects:   strings.TrimSpace(in.PositiveAspects),
		NegativeAspects:   strings.TrimSpace(in.NegativeAspects),
		Suggestions:       strings.TrimSpace(in.Suggestions),
		ContentUsed:       in.ContentUsed,
		ModificationsMade: strings.TrimSpace(in.ModificationsMade),
		CreatedAt:         s.now().UTC(),
	}
	if err := s.repos.Feedback.Create(ctx, feedback); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, ErrFeedbackExists
		}
		return nil, err
	}

	if req.PromptTemplate != "" {
		if err := s.repos.Templates.AddRating(ctx, req.PromptTemplate, in.QualityRating); err != nil && !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("update template rating failed",
				zap.String("template", req.PromptTemplate),
				zap.String("request_id", req.ID),
				zap.Error(err),
			)
		}
	}
	return feedback, nil
}

func validRating(r int) bool {
	return r >= 1 && r <= 5
}

// RecentRequest 为用量页中的请求摘要。
type RecentRequest struct {
	ID             string               `json:"id"`
	Type           domain.RequestType   `json:"type"`
	Status         domain.RequestStatus `json:"status"`
	CreatedAt      time.Time            `json:"created_at"`
	ProcessingTime float64              `json:"processing_time"`
	TokensUsed     int                  `json:"tokens_used"`
}

// UsageSummary 为当前用户的额度与最近请求。
type UsageSummary struct {
	Quota          quota.Status    `json:"quota"`
	RecentRequests []RecentRequest `json:"recent_requests"`
	TotalRequests  int64           `json:"total_requests"`
}

// UsageSummary 汇总额度状态、最近 10 条请求与请求总数。
func (s *Service) UsageSummary(ctx context.Context, userID string) (*UsageSummary, error) {
	status, err := s.quota.Check(ctx, userID)
	if err != nil {
		return nil, err
	}
	recent, err := s.repos.AIRequests.List(ctx, domain.RequestListOptions{UserID: userID, Limit: recentRequestLimit})
	if err != nil {
		return nil, err
	}
	total, err := s.repos.AIRequests.Count(ctx, userID)
	if err != nil {
		return nil, err
	}

	items := make([]RecentRequest, 0, len(recent))
	for _, req := range recent {
		items = append(items, RecentRequest{
			ID:             req.ID,
			Type:           req.RequestType,
			Status:         req.Status,
			CreatedAt:      req.CreatedAt,
			ProcessingTime: float64(req.DurationMs) / 1000,
			TokensUsed:     req.TokensUsed,
		})
	}
	return &UsageSummary{Quota: status, RecentRequests: items, TotalRequests: total}, nil
}

// Analytics 为全局请求统计。
type Analytics struct {
	TotalRequests      int64                       `json:"total_requests"`
	SuccessfulRequests int64                       `json:"successful_requests"`
	SuccessRate        float64                     `json:"success_rate"`
	PopularModels      []*domain.ModelRequestCount `json:"popular_models"`
}

// Analytics 并发执行三项统计查询。
func (s *Service) Analytics(ctx context.Context) (*Analytics, error) {
	var (
		total     int64
		completed int64
		popular   []*domain.ModelRequestCount
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		total, err = s.repos.AIRequests.Count(gctx, "")
		return err
	})
	g.Go(func() error {
		var err error
		completed, err = s.repos.AIRequests.CountByStatus(gctx, domain.StatusCompleted)
		return err
	})
	g.Go(func() error {
		var err error
		popular, err = s.repos.AIRequests.TopModels(gctx, topModelLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if popular == nil {
		popular = []*domain.ModelRequestCount{}
	}
	result := &Analytics{TotalRequests: total, SuccessfulRequests: completed, PopularModels: popular}
	if total > 0 {
		result.SuccessRate = float64(completed) / float64(total) * 100
	}
	return result, nil
}
