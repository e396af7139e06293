package domain

import (
	"encoding/json"
	"time"
)

// User 代表发起 AI 请求的主体。
type User struct {
	ID             string     `json:"id"`
	Email          string     `json:"email"`
	HashedPassword string     `json:"-"`
	Role           string     `json:"role"`
	Status         string     `json:"status"`
	LastLoginAt    *time.Time `json:"last_login_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// AIModel 描述一个可调用的 provider/model 组合及其生成参数。
type AIModel struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Provider     Provider   `json:"provider"`
	ModelID      string     `json:"model_id"`
	ModelType    ModelType  `json:"model_type"`
	Description  string     `json:"description"`
	MaxTokens    int        `json:"max_tokens"`
	Temperature  float64    `json:"temperature"`
	TopP         float64    `json:"top_p"`
	APIEndpoint  string     `json:"api_endpoint,omitempty"`
	RequiresAuth bool       `json:"requires_auth"`
	RateLimit    int        `json:"rate_limit"`
	IsActive     bool       `json:"is_active"`
	LastTestedAt *time.Time `json:"last_tested_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// AIRequest 记录一次 AI 调用的完整生命周期。
type AIRequest struct {
	ID             string          `json:"id"`
	UserID         string          `json:"user_id"`
	ModelID        string          `json:"ai_model_id"`
	RequestType    RequestType     `json:"request_type"`
	InputText      string          `json:"input_text"`
	OutputText     string          `json:"output_text"`
	PromptTemplate string          `json:"prompt_template,omitempty"`
	Parameters     json.RawMessage `json:"parameters,omitempty"`
	DurationMs     int64           `json:"duration_ms"`
	TokensUsed     int             `json:"tokens_used"`
	Cost           float64         `json:"cost"`
	Status         RequestStatus   `json:"status"`
	ErrorMessage   string          `json:"error_message,omitempty"`
	IPAddress      string          `json:"ip_address,omitempty"`
	UserAgent      string          `json:"user_agent,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
}

// PromptTemplate 为可复用的提示词模板，占位符格式为 {name}。
type PromptTemplate struct {
	ID                 string       `json:"id"`
	Name               string       `json:"name"`
	Description        string       `json:"description"`
	TemplateType       TemplateType `json:"template_type"`
	Body               string       `json:"template_text"`
	RequiredVariables  []string     `json:"required_variables"`
	OptionalVariables  []string     `json:"optional_variables"`
	DefaultTemperature float64      `json:"default_temperature"`
	DefaultMaxTokens   int          `json:"default_max_tokens"`
	UsageCount         int          `json:"usage_count"`
	AvgRating          float64      `json:"avg_rating"`
	RatingCount        int          `json:"rating_count"`
	IsActive           bool         `json:"is_active"`
	CreatedAt          time.Time    `json:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at"`
}

// UserAIUsage 保存单个用户的月度计数、上限与累计用量。
type UserAIUsage struct {
	UserID              string     `json:"user_id"`
	CurrentMonth        time.Time  `json:"current_month"`
	RequestsThisMonth   int        `json:"requests_this_month"`
	TokensThisMonth     int        `json:"tokens_this_month"`
	CostThisMonth       float64    `json:"cost_this_month"`
	TotalRequests       int        `json:"total_requests"`
	TotalTokens         int        `json:"total_tokens"`
	TotalCost           float64    `json:"total_cost"`
	MonthlyRequestLimit int        `json:"monthly_request_limit"`
	MonthlyTokenLimit   int        `json:"monthly_token_limit"`
	MonthlyCostLimit    float64    `json:"monthly_cost_limit"`
	IsQuotaExceeded     bool       `json:"is_quota_exceeded"`
	LastRequestAt       *time.Time `json:"last_request_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// AIFeedback 为用户对某次 AI 输出的评价，每个请求至多一条。
type AIFeedback struct {
	ID                string    `json:"id"`
	RequestID         string    `json:"ai_request_id"`
	QualityRating     int       `json:"quality_rating"`
	UsefulnessRating  int       `json:"usefulness_rating"`
	PositiveAspects   string    `json:"positive_aspects,omitempty"`
	NegativeAspects   string    `json:"negative_aspects,omitempty"`
	Suggestions       string    `json:"suggestions,omitempty"`
	ContentUsed       bool      `json:"content_used"`
	ModificationsMade string    `json:"modifications_made,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// ModelRequestCount 为分析接口中的模型调用次数统计。
type ModelRequestCount struct {
	ModelID      string `json:"model_id"`
	Name         string `json:"name"`
	RequestCount int64  `json:"request_count"`
}

// RequestListOptions 控制请求历史查询。
type RequestListOptions struct {
	UserID string
	Limit  int
	Offset int
}
