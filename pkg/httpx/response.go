package httpx

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SuccessResponse 标准成功响应结构。
type SuccessResponse struct {
	Data interface{} `json:"data,omitempty"`
	Meta interface{} `json:"meta,omitempty"`
}

// ErrorResponse 标准错误响应结构。
type ErrorResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// PageMeta 为分页列表的元信息。
type PageMeta struct {
	Total  int64 `json:"total"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}

// RespondOK 输出成功响应。
func RespondOK(ctx *gin.Context, data interface{}) {
	ctx.JSON(http.StatusOK, SuccessResponse{Data: data})
}

// RespondCreated 输出 201 响应。
func RespondCreated(ctx *gin.Context, data interface{}) {
	ctx.JSON(http.StatusCreated, SuccessResponse{Data: data})
}

// RespondPage 输出带分页信息的列表。
func RespondPage(ctx *gin.Context, data interface{}, meta PageMeta) {
	ctx.JSON(http.StatusOK, SuccessResponse{Data: data, Meta: meta})
}

// RespondError 输出错误响应并终止处理流程。
func RespondError(ctx *gin.Context, status int, code string, message string, details interface{}) {
	ctx.AbortWithStatusJSON(status, ErrorResponse{
		Code:    code,
		Message: message,
		Details: details,
	})
}
