package domain

import (
	"context"
	"time"
)

// UserRepository 定义用户存取接口。
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, userID string) (*User, error)
	UpdateLastLogin(ctx context.Context, userID string) error
}

// AIModelRepository 定义 AI 模型目录的存取接口。
type AIModelRepository interface {
	Create(ctx context.Context, model *AIModel) error
	GetByID(ctx context.Context, modelID string) (*AIModel, error)
	GetByProviderModel(ctx context.Context, provider Provider, modelID string) (*AIModel, error)
	// ListActive 按 provider、name 排序返回启用的模型；modelType 为空时不过滤。
	ListActive(ctx context.Context, modelType ModelType) ([]*AIModel, error)
	SetActive(ctx context.Context, modelID string, active bool) error
}

// AIRequestRepository 定义 AI 请求日志接口，记录只追加、终态后不再修改。
type AIRequestRepository interface {
	Create(ctx context.Context, req *AIRequest) error
	GetByID(ctx context.Context, requestID string) (*AIRequest, error)
	// MarkCompleted 仅在 processing 状态下生效。
	MarkCompleted(ctx context.Context, req *AIRequest) error
	// MarkFailed 仅在 processing 状态下生效。
	MarkFailed(ctx context.Context, requestID, message string, completedAt time.Time) error
	List(ctx context.Context, opts RequestListOptions) ([]*AIRequest, error)
	Count(ctx context.Context, userID string) (int64, error)
	CountByStatus(ctx context.Context, status RequestStatus) (int64, error)
	TopModels(ctx context.Context, limit int) ([]*ModelRequestCount, error)
}

// PromptTemplateRepository 定义提示词模板接口。
type PromptTemplateRepository interface {
	Create(ctx context.Context, tpl *PromptTemplate) error
	GetByID(ctx context.Context, templateID string) (*PromptTemplate, error)
	GetByName(ctx context.Context, name string) (*PromptTemplate, error)
	// GetActiveByType 返回该类型下按名称排序的第一个启用模板。
	GetActiveByType(ctx context.Context, templateType TemplateType) (*PromptTemplate, error)
	List(ctx context.Context, activeOnly bool) ([]*PromptTemplate, error)
	IncrementUsage(ctx context.Context, templateID string) error
	AddRating(ctx context.Context, name string, rating int) error
}

// UserAIUsageRepository 定义用户用量接口，计数更新均为原子自增。
type UserAIUsageRepository interface {
	Get(ctx context.Context, userID string) (*UserAIUsage, error)
	// Create 在记录已存在时返回 ErrConflict。
	Create(ctx context.Context, usage *UserAIUsage) error
	ResetMonth(ctx context.Context, userID string, month time.Time) error
	SetQuotaExceeded(ctx context.Context, userID string, exceeded bool) error
	Increment(ctx context.Context, userID string, tokens int, cost float64, at time.Time) error
	UpdateLimits(ctx context.Context, userID string, requests, tokens int, cost float64) error
}

// AIFeedbackRepository 定义反馈接口。
type AIFeedbackRepository interface {
	Create(ctx context.Context, feedback *AIFeedback) error
	GetByRequest(ctx context.Context, requestID string) (*AIFeedback, error)
}

// Repositories 聚合全部仓储接口，便于依赖注入。
type Repositories struct {
	Users      UserRepository
	AIModels   AIModelRepository
	AIRequests AIRequestRepository
	Templates  PromptTemplateRepository
	Usage      UserAIUsageRepository
	Feedback   AIFeedbackRepository
}
