package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zacharykka/blog-assistant/pkg/httpx"
)

// LimitRequestBody 限制请求体大小；声明的 Content-Length 超限时直接返回 413，
// 未声明长度时由 MaxBytesReader 在读取阶段截断。
func LimitRequestBody(maxBytes int64) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if maxBytes <= 0 {
			ctx.Next()
			return
		}
		if ctx.Request.ContentLength > maxBytes {
			httpx.RespondError(ctx, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "请求体过大", nil)
			return
		}
		ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, maxBytes)
		ctx.Next()
	}
}
