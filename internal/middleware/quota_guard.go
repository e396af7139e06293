package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/zacharykka/blog-assistant/internal/service/quota"
	"github.com/zacharykka/blog-assistant/pkg/httpx"
)

// QuotaChecker 执行额度检查（含跨月重置）。
type QuotaChecker interface {
	Check(ctx context.Context, userID string) (quota.Status, error)
}

// QuotaGuard 在进入 AI 处理路由前检查当前用户的月度额度，超额返回 429 并附带额度详情。
func QuotaGuard(checker QuotaChecker, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx *gin.Context) {
		userID := CurrentUserID(ctx)
		if userID == "" {
			httpx.RespondError(ctx, http.StatusUnauthorized, "UNAUTHORIZED", "缺少认证信息", nil)
			return
		}

		status, err := checker.Check(ctx.Request.Context(), userID)
		if err != nil {
			logger.Error("quota check failed", zap.String("user_id", userID), zap.Error(err))
			httpx.RespondError(ctx, http.StatusInternalServerError, "QUOTA_CHECK_FAILED", "额度检查失败", nil)
			return
		}
		if !status.HasQuota {
			httpx.RespondError(ctx, http.StatusTooManyRequests, "QUOTA_EXCEEDED", quota.ErrQuotaExceeded.Error(), gin.H{"quota_info": status})
			return
		}
		ctx.Next()
	}
}
