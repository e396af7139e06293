package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zacharykka/blog-assistant/internal/domain"
	"github.com/zacharykka/blog-assistant/internal/service/assistant"
	"github.com/zacharykka/blog-assistant/internal/service/quota"
	"github.com/zacharykka/blog-assistant/internal/service/template"
	"github.com/zacharykka/blog-assistant/pkg/httpx"
)

// respondAIError 将 AI 相关服务错误映射为统一错误响应。
func respondAIError(ctx *gin.Context, err error) {
	var (
		serviceErr *assistant.ServiceError
		missingErr *template.MissingVariablesError
	)
	switch {
	case errors.As(err, &serviceErr):
		httpx.RespondError(ctx, http.StatusInternalServerError, "AI_PROCESSING_FAILED", serviceErr.Error(),
			gin.H{"request_id": serviceErr.RequestID})
	case errors.As(err, &missingErr):
		httpx.RespondError(ctx, http.StatusBadRequest, "MISSING_VARIABLES", missingErr.Error(),
			gin.H{"missing": missingErr.Names})
	case errors.Is(err, assistant.ErrInputRequired),
		errors.Is(err, assistant.ErrInvalidRequestType),
		errors.Is(err, assistant.ErrTopicRequired),
		errors.Is(err, assistant.ErrContentRequired),
		errors.Is(err, assistant.ErrContentOrTitle),
		errors.Is(err, assistant.ErrInvalidRating),
		errors.Is(err, assistant.ErrInvalidModel),
		errors.Is(err, quota.ErrInvalidLimits):
		httpx.RespondError(ctx, http.StatusBadRequest, "INVALID_INPUT", err.Error(), nil)
	case errors.Is(err, assistant.ErrModelNotFound), errors.Is(err, assistant.ErrNoActiveModel):
		httpx.RespondError(ctx, http.StatusNotFound, "MODEL_NOT_FOUND", err.Error(), nil)
	case errors.Is(err, template.ErrTemplateNotFound):
		httpx.RespondError(ctx, http.StatusNotFound, "TEMPLATE_NOT_FOUND", err.Error(), nil)
	case errors.Is(err, assistant.ErrRequestNotFound):
		httpx.RespondError(ctx, http.StatusNotFound, "REQUEST_NOT_FOUND", err.Error(), nil)
	case errors.Is(err, domain.ErrNotFound):
		httpx.RespondError(ctx, http.StatusNotFound, "NOT_FOUND", "资源不存在", nil)
	case errors.Is(err, assistant.ErrForbidden):
		httpx.RespondError(ctx, http.StatusForbidden, "FORBIDDEN", "无权访问该请求", nil)
	case errors.Is(err, assistant.ErrRequestNotFinished):
		httpx.RespondError(ctx, http.StatusConflict, "REQUEST_NOT_FINISHED", err.Error(), nil)
	case errors.Is(err, assistant.ErrFeedbackExists):
		httpx.RespondError(ctx, http.StatusConflict, "FEEDBACK_EXISTS", err.Error(), nil)
	case errors.Is(err, assistant.ErrModelExists):
		httpx.RespondError(ctx, http.StatusConflict, "MODEL_EXISTS", err.Error(), nil)
	case errors.Is(err, assistant.ErrModelRateLimited):
		httpx.RespondError(ctx, http.StatusTooManyRequests, "MODEL_RATE_LIMITED", err.Error(), nil)
	default:
		httpx.RespondError(ctx, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error(), nil)
	}
}
