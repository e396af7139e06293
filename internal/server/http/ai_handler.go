package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/zacharykka/blog-assistant/internal/domain"
	"github.com/zacharykka/blog-assistant/internal/middleware"
	"github.com/zacharykka/blog-assistant/internal/service/assistant"
	"github.com/zacharykka/blog-assistant/internal/service/quota"
	"github.com/zacharykka/blog-assistant/pkg/httpx"
)

// AIHandler 处理博客写作辅助与 AI 请求相关接口。
type AIHandler struct {
	service *assistant.Service
	quota   *quota.Service
}

// NewAIHandler 创建 AIHandler。
func NewAIHandler(service *assistant.Service, quotaSvc *quota.Service) *AIHandler {
	return &AIHandler{service: service, quota: quotaSvc}
}

type draftRequest struct {
	Topic    string `json:"topic" binding:"required"`
	Tone     string `json:"tone"`
	Length   string `json:"length" binding:"omitempty,oneof=short medium long"`
	Keywords string `json:"keywords"`
	Audience string `json:"audience"`
	ModelID  string `json:"model_id"`
}

type improveRequest struct {
	Content  string `json:"content" binding:"required"`
	Type     string `json:"type"`
	Audience string `json:"audience"`
	ModelID  string `json:"model_id"`
}

type titleRequest struct {
	Topic       string `json:"topic" binding:"required"`
	Keywords    string `json:"keywords"`
	Tone        string `json:"tone"`
	ContentType string `json:"content_type"`
	ModelID     string `json:"model_id"`
}

type tagRequest struct {
	Content  string `json:"content"`
	Title    string `json:"title"`
	Category string `json:"category"`
}

type seoRequest struct {
	Title   string `json:"title"`
	Content string `json:"content" binding:"required"`
	Keyword string `json:"keyword"`
}

type toneRequest struct {
	Content string `json:"content" binding:"required"`
	ModelID string `json:"model_id"`
}

type textRequest struct {
	Text    string `json:"text" binding:"required"`
	ModelID string `json:"model_id"`
}

type processRequest struct {
	RequestType string         `json:"request_type" binding:"required"`
	InputText   string         `json:"input_text" binding:"required"`
	ModelID     string         `json:"model_id"`
	Parameters  map[string]any `json:"parameters"`
}

type feedbackRequest struct {
	QualityRating     int    `json:"quality_rating" binding:"required,min=1,max=5"`
	UsefulnessRating  int    `json:"usefulness_rating" binding:"required,min=1,max=5"`
	PositiveAspects   string `json:"positive_aspects"`
	NegativeAspects   string `json:"negative_aspects"`
	Suggestions       string `json:"suggestions"`
	ContentUsed       bool   `json:"content_used"`
	ModificationsMade string `json:"modifications_made"`
}

type limitsRequest struct {
	MonthlyRequestLimit *int     `json:"monthly_request_limit" binding:"required"`
	MonthlyTokenLimit   *int     `json:"monthly_token_limit" binding:"required"`
	MonthlyCostLimit    *float64 `json:"monthly_cost_limit" binding:"required"`
}

// GenerateDraft 生成博客草稿。
func (h *AIHandler) GenerateDraft(ctx *gin.Context) {
	var req draftRequest
	if !bindJSON(ctx, &req) {
		return
	}
	result, err := h.service.GenerateDraft(ctx.Request.Context(), callerFrom(ctx), assistant.DraftInput{
		Topic:    req.Topic,
		Tone:     req.Tone,
		Length:   req.Length,
		Keywords: req.Keywords,
		Audience: req.Audience,
		ModelID:  req.ModelID,
	})
	if err != nil {
		respondAIError(ctx, err)
		return
	}
	httpx.RespondOK(ctx, result)
}

// ImproveContent 改进已有内容。
func (h *AIHandler) ImproveContent(ctx *gin.Context) {
	var req improveRequest
	if !bindJSON(ctx, &req) {
		return
	}
	result, err := h.service.ImproveContent(ctx.Request.Context(), callerFrom(ctx), assistant.ImproveInput{
		Content:  req.Content,
		Type:     req.Type,
		Audience: req.Audience,
		ModelID:  req.ModelID,
	})
	if err != nil {
		respondAIError(ctx, err)
		return
	}
	httpx.RespondOK(ctx, result)
}

// GenerateTitles 生成标题候选。
func (h *AIHandler) GenerateTitles(ctx *gin.Context) {
	var req titleRequest
	if !bindJSON(ctx, &req) {
		return
	}
	result, err := h.service.GenerateTitles(ctx.Request.Context(), callerFrom(ctx), assistant.TitleInput{
		Topic:       req.Topic,
		Keywords:    req.Keywords,
		Tone:        req.Tone,
		ContentType: req.ContentType,
		ModelID:     req.ModelID,
	})
	if err != nil {
		respondAIError(ctx, err)
		return
	}
	httpx.RespondOK(ctx, result)
}

// SuggestTags 基于词表推荐标签，不产生 AI 请求。
func (h *AIHandler) SuggestTags(ctx *gin.Context) {
	var req tagRequest
	if !bindJSON(ctx, &req) {
		return
	}
	result, err := assistant.SuggestTags(assistant.TagInput{
		Content:  req.Content,
		Title:    req.Title,
		Category: req.Category,
	})
	if err != nil {
		respondAIError(ctx, err)
		return
	}
	httpx.RespondOK(ctx, result)
}

// OptimizeSEO 返回 SEO 评分与建议。
func (h *AIHandler) OptimizeSEO(ctx *gin.Context) {
	var req seoRequest
	if !bindJSON(ctx, &req) {
		return
	}
	result, err := assistant.OptimizeSEO(assistant.SEOInput{
		Title:   req.Title,
		Content: req.Content,
		Keyword: req.Keyword,
	})
	if err != nil {
		respondAIError(ctx, err)
		return
	}
	httpx.RespondOK(ctx, result)
}

// AnalyzeTone 分析文章语气。
func (h *AIHandler) AnalyzeTone(ctx *gin.Context) {
	var req toneRequest
	if !bindJSON(ctx, &req) {
		return
	}
	result, err := h.service.AnalyzeTone(ctx.Request.Context(), callerFrom(ctx), req.Content, req.ModelID)
	if err != nil {
		respondAIError(ctx, err)
		return
	}
	httpx.RespondOK(ctx, result)
}

// AnalyzeSentiment 情感分析。
func (h *AIHandler) AnalyzeSentiment(ctx *gin.Context) {
	var req textRequest
	if !bindJSON(ctx, &req) {
		return
	}
	result, err := h.service.AnalyzeSentiment(ctx.Request.Context(), callerFrom(ctx), req.Text, req.ModelID)
	if err != nil {
		respondAIError(ctx, err)
		return
	}
	httpx.RespondOK(ctx, result)
}

// ExtractKeywords 关键词提取。
func (h *AIHandler) ExtractKeywords(ctx *gin.Context) {
	var req textRequest
	if !bindJSON(ctx, &req) {
		return
	}
	result, err := h.service.ExtractKeywords(ctx.Request.Context(), callerFrom(ctx), req.Text, req.ModelID)
	if err != nil {
		respondAIError(ctx, err)
		return
	}
	httpx.RespondOK(ctx, result)
}

// ProcessRequest 执行通用 AI 请求。
func (h *AIHandler) ProcessRequest(ctx *gin.Context) {
	var req processRequest
	if !bindJSON(ctx, &req) {
		return
	}
	caller := callerFrom(ctx)
	result, err := h.service.Process(ctx.Request.Context(), assistant.ProcessInput{
		UserID:      caller.UserID,
		RequestType: domain.RequestType(strings.TrimSpace(req.RequestType)),
		InputText:   req.InputText,
		ModelID:     req.ModelID,
		Parameters:  req.Parameters,
		IPAddress:   caller.IPAddress,
		UserAgent:   caller.UserAgent,
	})
	if err != nil {
		respondAIError(ctx, err)
		return
	}
	httpx.RespondOK(ctx, result)
}

// ListRequests 返回当前用户的请求历史。
func (h *AIHandler) ListRequests(ctx *gin.Context) {
	limit, offset := parsePagination(ctx.Query("limit"), ctx.Query("offset"))
	items, total, err := h.service.ListRequests(ctx.Request.Context(), middleware.CurrentUserID(ctx), limit, offset)
	if err != nil {
		respondAIError(ctx, err)
		return
	}
	httpx.RespondPage(ctx, gin.H{"requests": items}, httpx.PageMeta{Total: total, Limit: limit, Offset: offset})
}

// GetRequest 返回单个请求，管理员可查看任意请求。
func (h *AIHandler) GetRequest(ctx *gin.Context) {
	req, err := h.service.GetRequest(ctx.Request.Context(), middleware.CurrentUserID(ctx), middleware.IsAdmin(ctx), ctx.Param("id"))
	if err != nil {
		respondAIError(ctx, err)
		return
	}
	httpx.RespondOK(ctx, gin.H{"request": req})
}

// SubmitFeedback 提交请求反馈。
func (h *AIHandler) SubmitFeedback(ctx *gin.Context) {
	var req feedbackRequest
	if !bindJSON(ctx, &req) {
		return
	}
	feedback, err := h.service.SubmitFeedback(ctx.Request.Context(), middleware.CurrentUserID(ctx), ctx.Param("id"), assistant.FeedbackInput{
		QualityRating:     req.QualityRating,
		UsefulnessRating:  req.UsefulnessRating,
		PositiveAspects:   req.PositiveAspects,
		NegativeAspects:   req.NegativeAspects,
		Suggestions:       req.Suggestions,
		ContentUsed:       req.ContentUsed,
		ModificationsMade: req.ModificationsMade,
	})
	if err != nil {
		respondAIError(ctx, err)
		return
	}
	httpx.RespondCreated(ctx, gin.H{"feedback": feedback})
}

// Usage 返回额度与近期请求。
func (h *AIHandler) Usage(ctx *gin.Context) {
	summary, err := h.service.UsageSummary(ctx.Request.Context(), middleware.CurrentUserID(ctx))
	if err != nil {
		respondAIError(ctx, err)
		return
	}
	httpx.RespondOK(ctx, summary)
}

// UpdateLimits 修改指定用户的月度上限。
func (h *AIHandler) UpdateLimits(ctx *gin.Context) {
	var req limitsRequest
	if !bindJSON(ctx, &req) {
		return
	}
	usage, err := h.quota.UpdateLimits(ctx.Request.Context(), ctx.Param("userId"), quota.Limits{
		Requests: *req.MonthlyRequestLimit,
		Tokens:   *req.MonthlyTokenLimit,
		Cost:     *req.MonthlyCostLimit,
	})
	if err != nil {
		respondAIError(ctx, err)
		return
	}
	httpx.RespondOK(ctx, gin.H{"usage": usage})
}

// Analytics 返回全局统计。
func (h *AIHandler) Analytics(ctx *gin.Context) {
	analytics, err := h.service.Analytics(ctx.Request.Context())
	if err != nil {
		respondAIError(ctx, err)
		return
	}
	httpx.RespondOK(ctx, analytics)
}

func callerFrom(ctx *gin.Context) assistant.Caller {
	return assistant.Caller{
		UserID:    middleware.CurrentUserID(ctx),
		IPAddress: ctx.ClientIP(),
		UserAgent: ctx.Request.UserAgent(),
	}
}

func bindJSON(ctx *gin.Context, dst any) bool {
	if err := ctx.ShouldBindJSON(dst); err != nil {
		httpx.RespondError(ctx, http.StatusBadRequest, "INVALID_PAYLOAD", err.Error(), nil)
		return false
	}
	return true
}

func parsePagination(limitStr, offsetStr string) (int, int) {
	limit := 20
	offset := 0

	if limitStr != "" {
		if v, err := strconv.Atoi(limitStr); err == nil && v > 0 {
			limit = min(v, 100)
		}
	}
	if offsetStr != "" {
		if v, err := strconv.Atoi(offsetStr); err == nil && v >= 0 {
			offset = v
		}
	}
	return limit, offset
}
