package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/zacharykka/blog-assistant/internal/domain"
	"github.com/zacharykka/blog-assistant/internal/service/assistant"
	"github.com/zacharykka/blog-assistant/internal/service/template"
	"github.com/zacharykka/blog-assistant/pkg/httpx"
)

// CatalogHandler 处理模型目录与提示词模板接口。
type CatalogHandler struct {
	models    *assistant.ModelService
	templates *template.Service
}

// NewCatalogHandler 创建 CatalogHandler。
func NewCatalogHandler(models *assistant.ModelService, templates *template.Service) *CatalogHandler {
	return &CatalogHandler{models: models, templates: templates}
}

type createModelRequest struct {
	Name         string   `json:"name" binding:"required,max=100"`
	Provider     string   `json:"provider" binding:"required"`
	ModelID      string   `json:"model_id" binding:"required,max=200"`
	ModelType    string   `json:"model_type" binding:"required"`
	Description  string   `json:"description"`
	MaxTokens    int      `json:"max_tokens" binding:"omitempty,min=1"`
	Temperature  *float64 `json:"temperature" binding:"omitempty,min=0,max=2"`
	TopP         *float64 `json:"top_p" binding:"omitempty,min=0,max=1"`
	APIEndpoint  string   `json:"api_endpoint" binding:"omitempty,url"`
	RequiresAuth bool     `json:"requires_auth"`
	RateLimit    int      `json:"rate_limit" binding:"omitempty,min=0"`
}

type modelStatusRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

type renderRequest struct {
	Name         string         `json:"name"`
	TemplateType string         `json:"template_type"`
	Variables    map[string]any `json:"variables"`
}

// ListModels 列出启用模型，可按 model_type 过滤。
func (h *CatalogHandler) ListModels(ctx *gin.Context) {
	models, err := h.models.List(ctx.Request.Context(), domain.ModelType(strings.TrimSpace(ctx.Query("model_type"))))
	if err != nil {
		respondAIError(ctx, err)
		return
	}
	httpx.RespondOK(ctx, gin.H{"models": models})
}

// GetModel 返回单个启用模型。
func (h *CatalogHandler) GetModel(ctx *gin.Context) {
	model, err := h.models.Get(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		respondAIError(ctx, err)
		return
	}
	httpx.RespondOK(ctx, gin.H{"model": model})
}

// CreateModel 注册模型（管理员）。
func (h *CatalogHandler) CreateModel(ctx *gin.Context) {
	var req createModelRequest
	if !bindJSON(ctx, &req) {
		return
	}
	model, err := h.models.Create(ctx.Request.Context(), assistant.CreateModelInput{
		Name:         req.Name,
		Provider:     domain.Provider(strings.ToLower(strings.TrimSpace(req.Provider))),
		ModelID:      req.ModelID,
		ModelType:    domain.ModelType(strings.TrimSpace(req.ModelType)),
		Description:  req.Description,
		MaxTokens:    req.MaxTokens,
		Temperature:  req.Temperature,
		TopP:         req.TopP,
		APIEndpoint:  req.APIEndpoint,
		RequiresAuth: req.RequiresAuth,
		RateLimit:    req.RateLimit,
	})
	if err != nil {
		respondAIError(ctx, err)
		return
	}
	httpx.RespondCreated(ctx, gin.H{"model": model})
}

// SetModelStatus 启用或停用模型（管理员）。
func (h *CatalogHandler) SetModelStatus(ctx *gin.Context) {
	var req modelStatusRequest
	if !bindJSON(ctx, &req) {
		return
	}
	model, err := h.models.SetActive(ctx.Request.Context(), ctx.Param("id"), *req.IsActive)
	if err != nil {
		respondAIError(ctx, err)
		return
	}
	httpx.RespondOK(ctx, gin.H{"model": model})
}

// ListTemplates 列出模板，all=true 时包含停用模板。
func (h *CatalogHandler) ListTemplates(ctx *gin.Context) {
	templates, err := h.templates.List(ctx.Request.Context(), ctx.Query("all") != "true")
	if err != nil {
		respondAIError(ctx, err)
		return
	}
	httpx.RespondOK(ctx, gin.H{"templates": templates})
}

// GetTemplate 返回单个模板。
func (h *CatalogHandler) GetTemplate(ctx *gin.Context) {
	tpl, err := h.templates.Get(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		respondAIError(ctx, err)
		return
	}
	httpx.RespondOK(ctx, gin.H{"template": tpl})
}

// RenderTemplate 按名称或类型渲染模板，返回提示词。
func (h *CatalogHandler) RenderTemplate(ctx *gin.Context) {
	var req renderRequest
	if !bindJSON(ctx, &req) {
		return
	}
	vars := template.Stringify(req.Variables)

	var (
		rendered *template.Rendered
		err      error
	)
	name := strings.TrimSpace(req.Name)
	templateType := domain.TemplateType(strings.TrimSpace(req.TemplateType))
	switch {
	case name != "":
		rendered, err = h.templates.RenderByName(ctx.Request.Context(), name, vars)
	case templateType.Valid():
		rendered, err = h.templates.RenderByType(ctx.Request.Context(), templateType, vars)
	default:
		httpx.RespondError(ctx, http.StatusBadRequest, "INVALID_INPUT", "需要提供 name 或合法的 template_type", nil)
		return
	}
	if err != nil {
		respondAIError(ctx, err)
		return
	}
	httpx.RespondOK(ctx, gin.H{
		"prompt":   rendered.Prompt,
		"template": rendered.TemplateName(),
	})
}
