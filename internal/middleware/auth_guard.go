package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	authutil "github.com/zacharykka/blog-assistant/pkg/auth"
	"github.com/zacharykka/blog-assistant/pkg/httpx"
)

const (
	// UserContextKey 在上下文中存储用户 ID。
	UserContextKey = "user_id"
	// UserRoleContextKey 在上下文中存储用户角色。
	UserRoleContextKey = "user_role"
	claimsContextKey   = "auth_claims"
)

// Roles 定义可用角色名称。
const (
	RoleAdmin  = "admin"
	RoleEditor = "editor"
	RoleViewer = "viewer"
)

// AuthGuard 校验 Bearer 访问令牌并注入用户信息。
func AuthGuard(accessSecret string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		header := ctx.GetHeader("Authorization")
		if header == "" {
			httpx.RespondError(ctx, http.StatusUnauthorized, "UNAUTHORIZED", "缺少认证信息", nil)
			return
		}
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			httpx.RespondError(ctx, http.StatusUnauthorized, "UNAUTHORIZED", "认证信息格式错误", nil)
			return
		}

		claims, err := authutil.ParseToken(strings.TrimSpace(token), accessSecret, authutil.TokenTypeAccess)
		if err != nil {
			httpx.RespondError(ctx, http.StatusUnauthorized, "UNAUTHORIZED", "令牌无效", nil)
			return
		}

		ctx.Set(UserContextKey, claims.UserID)
		ctx.Set(UserRoleContextKey, claims.Role)
		ctx.Set(claimsContextKey, claims)
		ctx.Next()
	}
}

// RequireRoles 验证当前用户是否具备指定角色之一。
func RequireRoles(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[strings.ToLower(role)] = struct{}{}
	}

	return func(ctx *gin.Context) {
		role := strings.ToLower(ctx.GetString(UserRoleContextKey))
		if _, ok := allowed[role]; !ok {
			httpx.RespondError(ctx, http.StatusForbidden, "FORBIDDEN", "当前角色无权限执行该操作", nil)
			return
		}
		ctx.Next()
	}
}

// CurrentUserID 返回 AuthGuard 注入的用户 ID。
func CurrentUserID(ctx *gin.Context) string {
	return ctx.GetString(UserContextKey)
}

// IsAdmin 报告当前用户是否为管理员。
func IsAdmin(ctx *gin.Context) bool {
	return strings.EqualFold(ctx.GetString(UserRoleContextKey), RoleAdmin)
}
