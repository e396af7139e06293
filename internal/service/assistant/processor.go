package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/zacharykka/blog-assistant/internal/ai/provider"
	domain "github.com/zacharykka/blog-assistant/internal/domain"
)

const tracerName = "github.com/zacharykka/blog-assistant/internal/service/assistant"

// ModelCatalog 提供启用模型的查询，通常由带缓存的目录实现。
type ModelCatalog interface {
	ListActive(ctx context.Context, modelType domain.ModelType) ([]*domain.AIModel, error)
	GetActive(ctx context.Context, modelID string) (*domain.AIModel, error)
}

// ProviderResolver 按 provider 标识返回能力实现。
type ProviderResolver interface {
	For(p domain.Provider) provider.Client
}

// ModelGate 执行模型级的每分钟限流。
type ModelGate interface {
	Allow(ctx context.Context, model *domain.AIModel) (bool, error)
}

// QuotaConsumer 在请求成功后记录用量。
type QuotaConsumer interface {
	Consume(ctx context.Context, userID string, tokens int, cost float64) error
}

// ProcessorOptions 为未由 provider 计量时使用的占位用量。
type ProcessorOptions struct {
	DefaultTokens int
	DefaultCost   float64
}

// ProcessInput 描述一次 AI 请求。
type ProcessInput struct {
	UserID         string
	RequestType    domain.RequestType
	InputText      string
	ModelID        string
	Parameters     map[string]any
	PromptTemplate string
	IPAddress      string
	UserAgent      string
	// TokensUsed 与 Cost 只由服务端调用方设置，Parameters 中的同名键不参与计量；零值使用默认占位用量。
	TokensUsed int
	Cost       float64
}

// Result 为成功请求的返回值，ProcessingTime 单位为秒。
type Result struct {
	RequestID      string               `json:"request_id"`
	Output         string               `json:"output"`
	ProcessingTime float64              `json:"processing_time"`
	Status         domain.RequestStatus `json:"status"`
}

// Processor 负责单个 AI 请求从模型选择到结果落库的完整流程。
type Processor struct {
	requests  domain.AIRequestRepository
	catalog   ModelCatalog
	providers ProviderResolver
	gate      ModelGate
	quota     QuotaConsumer
	opts      ProcessorOptions
	logger    *zap.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewProcessor 创建请求处理器；gate 与 quota 可为 nil。
func NewProcessor(requests domain.AIRequestRepository, catalog ModelCatalog, providers ProviderResolver, gate ModelGate, quota QuotaConsumer, opts ProcessorOptions, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{
		requests:  requests,
		catalog:   catalog,
		providers: providers,
		gate:      gate,
		quota:     quota,
		opts:      opts,
		logger:    logger,
		tracer:    otel.Tracer(tracerName),
		now:       time.Now,
	}
}

// WithClock 用于测试注入时间。
func (p *Processor) WithClock(now func() time.Time) {
	if now != nil {
		p.now = now
	}
}

// ModelTypeFor 返回请求类型默认使用的模型类别。
func ModelTypeFor(t domain.RequestType) domain.ModelType {
	switch t {
	case domain.RequestSentimentAnalysis, domain.RequestKeywordExtraction:
		return domain.ModelTypeTextClassification
	default:
		return domain.ModelTypeTextGeneration
	}
}

// Process 执行请求：解析模型、限流、创建 processing 记录、调用 provider 并落终态。
// 记录创建之后的任何失败都会写入 failed 状态并以 *ServiceError 返回。
func (p *Processor) Process(ctx context.Context, in ProcessInput) (*Result, error) {
	if strings.TrimSpace(in.InputText) == "" {
		return nil, ErrInputRequired
	}
	if !in.RequestType.Valid() {
		return nil, ErrInvalidRequestType
	}

	model, err := p.resolveModel(ctx, in)
	if err != nil {
		return nil, err
	}
	if p.gate != nil {
		allowed, err := p.gate.Allow(ctx, model)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, ErrModelRateLimited
		}
	}

	var params json.RawMessage
	if len(in.Parameters) > 0 {
		data, err := json.Marshal(in.Parameters)
		if err != nil {
			return nil, err
		}
		params = data
	}

	started := p.now().UTC()
	req := &domain.AIRequest{
		ID:             uuid.NewString(),
		UserID:         in.UserID,
		ModelID:        model.ID,
		RequestType:    in.RequestType,
		InputText:      in.InputText,
		PromptTemplate: in.PromptTemplate,
		Parameters:     params,
		Status:         domain.StatusProcessing,
		IPAddress:      in.IPAddress,
		UserAgent:      in.UserAgent,
		CreatedAt:      started,
	}
	if err := p.requests.Create(ctx, req); err != nil {
		return nil, err
	}

	ctx, span := p.tracer.Start(ctx, "ai.process_request", trace.WithAttributes(
		attribute.String("ai.request_id", req.ID),
		attribute.String("ai.request_type", string(in.RequestType)),
		attribute.String("ai.provider", string(model.Provider)),
		attribute.String("ai.model_id", model.ModelID),
	))
	defer span.End()

	output, err := p.invoke(ctx, model, in)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, p.fail(ctx, req, model, started, err)
	}

	completed := p.now().UTC()
	if completed.Before(started) {
		completed = started
	}
	req.OutputText = output
	req.TokensUsed, req.Cost = p.accounting(in)
	req.DurationMs = completed.Sub(started).Milliseconds()
	req.Status = domain.StatusCompleted
	req.CompletedAt = &completed
	if err := p.requests.MarkCompleted(ctx, req); err != nil {
		span.RecordError(err)
		return nil, p.fail(ctx, req, model, started, err)
	}

	p.logger.Info("ai request completed",
		zap.String("request_id", req.ID),
		zap.String("model", model.ModelID),
		zap.String("request_type", string(in.RequestType)),
		zap.Int64("duration_ms", req.DurationMs),
	)

	if p.quota != nil && in.UserID != "" {
		if err := p.quota.Consume(context.WithoutCancel(ctx), in.UserID, req.TokensUsed, req.Cost); err != nil {
			p.logger.Error("record ai usage failed", zap.String("request_id", req.ID), zap.Error(err))
		}
	}

	return &Result{
		RequestID:      req.ID,
		Output:         output,
		ProcessingTime: completed.Sub(started).Seconds(),
		Status:         domain.StatusCompleted,
	}, nil
}

func (p *Processor) resolveModel(ctx context.Context, in ProcessInput) (*domain.AIModel, error) {
	if id := strings.TrimSpace(in.ModelID); id != "" {
		model, err := p.catalog.GetActive(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, ErrModelNotFound
			}
			return nil, err
		}
		return model, nil
	}

	modelType := ModelTypeFor(in.RequestType)
	models, err := p.catalog.ListActive(ctx, modelType)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoActiveModel, modelType)
	}
	return models[0], nil
}

func (p *Processor) invoke(ctx context.Context, model *domain.AIModel, in ProcessInput) (string, error) {
	client := p.providers.For(model.Provider)
	switch in.RequestType {
	case domain.RequestSentimentAnalysis:
		sentiment, err := client.AnalyzeSentiment(ctx, in.InputText)
		if err != nil {
			return "", err
		}
		return marshalOutput(sentiment)
	case domain.RequestKeywordExtraction:
		keywords, err := client.ExtractKeywords(ctx, in.InputText)
		if err != nil {
			return "", err
		}
		if keywords == nil {
			keywords = []string{}
		}
		return marshalOutput(keywords)
	default:
		return client.GenerateText(ctx, textRequest(model, in))
	}
}

// fail 将请求落为 failed；请求上下文可能已取消，因此写库使用脱离取消的上下文。
func (p *Processor) fail(ctx context.Context, req *domain.AIRequest, model *domain.AIModel, started time.Time, cause error) error {
	completed := p.now().UTC()
	if completed.Before(started) {
		completed = started
	}
	message := cause.Error()
	if message == "" {
		message = "unknown error"
	}
	if err := p.requests.MarkFailed(context.WithoutCancel(ctx), req.ID, message, completed); err != nil {
		p.logger.Error("mark ai request failed", zap.String("request_id", req.ID), zap.Error(err))
	}
	p.logger.Warn("ai request failed",
		zap.String("request_id", req.ID),
		zap.String("model", model.ModelID),
		zap.String("request_type", string(req.RequestType)),
		zap.Int64("duration_ms", completed.Sub(started).Milliseconds()),
		zap.Error(cause),
	)
	return &ServiceError{RequestID: req.ID, Err: cause}
}

func (p *Processor) accounting(in ProcessInput) (int, float64) {
	tokens, cost := p.opts.DefaultTokens, p.opts.DefaultCost
	if in.TokensUsed > 0 && in.TokensUsed <= maxParamValue {
		tokens = in.TokensUsed
	}
	if in.Cost > 0 && in.Cost <= maxParamValue {
		cost = in.Cost
	}
	return tokens, cost
}

func textRequest(model *domain.AIModel, in ProcessInput) provider.TextRequest {
	return provider.TextRequest{
		ModelID:     model.ModelID,
		Endpoint:    model.APIEndpoint,
		Prompt:      in.InputText,
		MaxTokens:   intParam(in.Parameters, "max_tokens", model.MaxTokens),
		Temperature: floatParam(in.Parameters, "temperature", model.Temperature),
		TopP:        floatParam(in.Parameters, "top_p", model.TopP),
	}
}

func marshalOutput(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func numberParam(params map[string]any, key string) (float64, bool) {
	raw, ok := params[key]
	if !ok {
		return 0, false
	}
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// maxParamValue 限制来自请求参数的数值，避免溢出转换。
const maxParamValue = math.MaxInt32

func intParam(params map[string]any, key string, fallback int) int {
	if v, ok := numberParam(params, key); ok && v >= 0 && v <= maxParamValue {
		return int(v)
	}
	return fallback
}

func floatParam(params map[string]any, key string, fallback float64) float64 {
	if v, ok := numberParam(params, key); ok && v >= 0 && v <= maxParamValue {
		return v
	}
	return fallback
}
