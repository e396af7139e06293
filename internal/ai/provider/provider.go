// Package provider 定义 AI 能力接口及其 mock 与 HTTP 实现。
package provider

import (
	"context"
	"errors"
	"sync"

	"github.com/zacharykka/blog-assistant/internal/domain"
)

// ErrUnexpectedResponse 表示 provider 返回了无法识别的响应结构。
var ErrUnexpectedResponse = errors.New("Unexpected response format from API")

// TextRequest 描述一次文本生成调用。
type TextRequest struct {
	ModelID     string
	Endpoint    string
	Prompt      string
	MaxTokens   int
	Temperature float64
	TopP        float64
}

// Sentiment 为情感分析结果，JSON 形态即请求记录中保存的输出。
type Sentiment struct {
	Label      string  `json:"sentiment"`
	Confidence float64 `json:"confidence"`
}

// Client 为所有 provider 共享的能力集合。
type Client interface {
	GenerateText(ctx context.Context, req TextRequest) (string, error)
	AnalyzeSentiment(ctx context.Context, text string) (Sentiment, error)
	ExtractKeywords(ctx context.Context, text string) ([]string, error)
}

// Error 为 provider 调用失败，Message 会原样写入请求记录。
type Error struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Registry 按 provider 标识查找实现，未注册的 provider 一律落到 fallback。
type Registry struct {
	mu       sync.RWMutex
	clients  map[domain.Provider]Client
	fallback Client
}

// NewRegistry 构建注册表，fallback 通常为 Mock。
func NewRegistry(fallback Client) *Registry {
	return &Registry{clients: make(map[domain.Provider]Client), fallback: fallback}
}

// Register 绑定 provider 与实现。
func (r *Registry) Register(p domain.Provider, client Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[p] = client
}

// For 返回 provider 对应的实现。
func (r *Registry) For(p domain.Provider) Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if client, ok := r.clients[p]; ok {
		return client
	}
	return r.fallback
}
