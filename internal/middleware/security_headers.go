package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/zacharykka/blog-assistant/internal/config"
)

type headerPair struct {
	name  string
	value string
}

// SecurityHeaders 设置通用 Web 安全响应头；空值的头不会下发。
func SecurityHeaders(cfg config.SecurityHeadersConfig) gin.HandlerFunc {
	candidates := []headerPair{
		{"X-Frame-Options", cfg.FrameOptions},
		{"Referrer-Policy", cfg.ReferrerPolicy},
		{"Content-Security-Policy", cfg.ContentSecurityPolicy},
		{"X-XSS-Protection", cfg.XSSProtection},
		{"Cross-Origin-Opener-Policy", cfg.CrossOriginOpenerPolicy},
		{"Cross-Origin-Embedder-Policy", cfg.CrossOriginEmbedderPolicy},
		{"Cross-Origin-Resource-Policy", cfg.CrossOriginResourcePolicy},
	}
	if cfg.ContentTypeNosniff {
		candidates = append(candidates, headerPair{"X-Content-Type-Options", "nosniff"})
	}

	headers := make([]headerPair, 0, len(candidates))
	for _, h := range candidates {
		if v := strings.TrimSpace(h.value); v != "" {
			headers = append(headers, headerPair{name: http.CanonicalHeaderKey(h.name), value: v})
		}
	}

	return func(ctx *gin.Context) {
		dst := ctx.Writer.Header()
		for _, h := range headers {
			dst.Set(h.name, h.value)
		}
		ctx.Next()
	}
}
