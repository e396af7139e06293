package http

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/zacharykka/blog-assistant/internal/domain"
	"github.com/zacharykka/blog-assistant/internal/service/assistant"
	"github.com/zacharykka/blog-assistant/internal/service/quota"
)

func TestAIRoutesRequireAuth(t *testing.T) {
	srv := setupServer(t, 100)

	rec, env := srv.do(t, http.MethodPost, "/api/v1/ai/blog/generate-draft", "", gin.H{"topic": "Go"})
	if rec.Code != http.StatusUnauthorized || env.Code != "UNAUTHORIZED" {
		t.Fatalf("expected 401, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestGenerateDraftFlow(t *testing.T) {
	srv := setupServer(t, 100)
	token, userID := srv.newUser(t)

	rec, env := srv.do(t, http.MethodPost, "/api/v1/ai/blog/generate-draft", token, gin.H{
		"topic":    "Go generics",
		"keywords": "go, generics",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("generate draft: %d %s", rec.Code, rec.Body.String())
	}
	var result assistant.DraftResult
	decode(t, env.Data, &result)
	if result.RequestID == "" || !strings.HasPrefix(result.Draft, "This is a mock AI response") {
		t.Fatalf("unexpected draft %+v", result)
	}
	if len(result.Suggestions.TitleSuggestions) != 4 || len(result.Suggestions.TagSuggestions) != 3 {
		t.Fatalf("unexpected suggestions %+v", result.Suggestions)
	}

	rec, env = srv.do(t, http.MethodGet, "/api/v1/ai/requests/"+result.RequestID, token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get request: %d %s", rec.Code, rec.Body.String())
	}
	var detail struct {
		Request domain.AIRequest `json:"request"`
	}
	decode(t, env.Data, &detail)
	if detail.Request.Status != domain.StatusCompleted || detail.Request.UserID != userID {
		t.Fatalf("unexpected request %+v", detail.Request)
	}
	if detail.Request.PromptTemplate != "Blog Draft Generator" || detail.Request.UserAgent != "blog-assistant-test" {
		t.Fatalf("expected template and user agent recorded, got %+v", detail.Request)
	}

	rec, env = srv.do(t, http.MethodGet, "/api/v1/ai/usage", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("usage: %d %s", rec.Code, rec.Body.String())
	}
	var summary assistant.UsageSummary
	decode(t, env.Data, &summary)
	if summary.TotalRequests != 1 || summary.Quota.RequestsUsed != 1 || len(summary.RecentRequests) != 1 {
		t.Fatalf("unexpected usage summary %+v", summary)
	}
}

func TestGenerateDraftValidation(t *testing.T) {
	srv := setupServer(t, 100)
	token, _ := srv.newUser(t)

	rec, env := srv.do(t, http.MethodPost, "/api/v1/ai/blog/generate-draft", token, gin.H{"tone": "casual"})
	if rec.Code != http.StatusBadRequest || env.Code != "INVALID_PAYLOAD" {
		t.Fatalf("expected 400 for missing topic, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestQuotaExceededBlocksProcessing(t *testing.T) {
	srv := setupServer(t, 2)
	token, _ := srv.newUser(t)

	for i := 0; i < 2; i++ {
		rec, _ := srv.do(t, http.MethodPost, "/api/v1/ai/analyze/keywords", token, gin.H{"text": "golang concurrency patterns"})
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: %d %s", i, rec.Code, rec.Body.String())
		}
	}

	rec, env := srv.do(t, http.MethodPost, "/api/v1/ai/analyze/keywords", token, gin.H{"text": "one more"})
	if rec.Code != http.StatusTooManyRequests || env.Code != "QUOTA_EXCEEDED" {
		t.Fatalf("expected 429 quota exceeded, got %d %s", rec.Code, rec.Body.String())
	}
	var details struct {
		QuotaInfo quota.Status `json:"quota_info"`
	}
	decode(t, env.Details, &details)
	if details.QuotaInfo.HasQuota || details.QuotaInfo.RequestsUsed != 2 || details.QuotaInfo.RequestsLimit != 2 {
		t.Fatalf("unexpected quota info %+v", details.QuotaInfo)
	}

	// 本地启发式接口不消耗额度
	rec, _ = srv.do(t, http.MethodPost, "/api/v1/ai/blog/generate-tags", token, gin.H{"title": "Python and Django tips"})
	if rec.Code != http.StatusOK {
		t.Fatalf("tag suggestion should not be quota guarded, got %d", rec.Code)
	}
}

func TestProcessRequestErrors(t *testing.T) {
	srv := setupServer(t, 100)
	token, _ := srv.newUser(t)

	rec, env := srv.do(t, http.MethodPost, "/api/v1/ai/requests", token, gin.H{
		"request_type": "poetry",
		"input_text":   "hello",
	})
	if rec.Code != http.StatusBadRequest || env.Code != "INVALID_INPUT" {
		t.Fatalf("expected invalid request type, got %d %s", rec.Code, rec.Body.String())
	}

	rec, env = srv.do(t, http.MethodPost, "/api/v1/ai/requests", token, gin.H{
		"request_type": "summarization",
		"input_text":   "hello",
		"model_id":     "missing",
	})
	if rec.Code != http.StatusNotFound || env.Code != "MODEL_NOT_FOUND" {
		t.Fatalf("expected model not found, got %d %s", rec.Code, rec.Body.String())
	}

	rec, env = srv.do(t, http.MethodPost, "/api/v1/ai/requests", token, gin.H{
		"request_type": "sentiment_analysis",
		"input_text":   "I love this great article",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("process sentiment: %d %s", rec.Code, rec.Body.String())
	}
	var result assistant.Result
	decode(t, env.Data, &result)
	if result.Status != domain.StatusCompleted || !strings.Contains(result.Output, "POSITIVE") {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestProcessRequestIgnoresClientAccounting(t *testing.T) {
	srv := setupServer(t, 100)
	token, userID := srv.newUser(t)

	for _, params := range []gin.H{
		{"tokens_used": 0, "cost": 0},
		{"tokens_used": 0, "cost": 0},
		{"tokens_used": 1e12, "cost": 1e12, "max_tokens": 1e30},
	} {
		rec, _ := srv.do(t, http.MethodPost, "/api/v1/ai/requests", token, gin.H{
			"request_type": "summarization",
			"input_text":   "summarize this post",
			"parameters":   params,
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("process: %d %s", rec.Code, rec.Body.String())
		}
	}

	usage, err := srv.repos.Usage.Get(context.Background(), userID)
	if err != nil {
		t.Fatalf("get usage: %v", err)
	}
	if usage.RequestsThisMonth != 3 || usage.TokensThisMonth != 300 {
		t.Fatalf("expected default accounting per request, got %+v", usage)
	}
	if usage.CostThisMonth < 0.0029 || usage.CostThisMonth > 0.0031 {
		t.Fatalf("unexpected cost %f", usage.CostThisMonth)
	}
}

func TestRequestOwnershipAndFeedback(t *testing.T) {
	srv := setupServer(t, 100)
	ownerToken, _ := srv.newUser(t)
	otherToken, _ := srv.newUser(t)
	adminToken, _ := srv.login(t, testAdminEmail, testAdminPassword)

	rec, env := srv.do(t, http.MethodPost, "/api/v1/ai/blog/generate-draft", ownerToken, gin.H{"topic": "Testing in Go"})
	if rec.Code != http.StatusOK {
		t.Fatalf("generate draft: %d %s", rec.Code, rec.Body.String())
	}
	var draft assistant.DraftResult
	decode(t, env.Data, &draft)

	rec, _ = srv.do(t, http.MethodGet, "/api/v1/ai/requests/"+draft.RequestID, otherToken, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for another user, got %d", rec.Code)
	}
	rec, _ = srv.do(t, http.MethodGet, "/api/v1/ai/requests/"+draft.RequestID, adminToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin should read any request, got %d", rec.Code)
	}

	feedback := gin.H{"quality_rating": 4, "usefulness_rating": 5, "content_used": true}
	rec, _ = srv.do(t, http.MethodPost, "/api/v1/ai/requests/"+draft.RequestID+"/feedback", otherToken, feedback)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for foreign feedback, got %d", rec.Code)
	}
	rec, _ = srv.do(t, http.MethodPost, "/api/v1/ai/requests/"+draft.RequestID+"/feedback", ownerToken, feedback)
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit feedback: %d %s", rec.Code, rec.Body.String())
	}
	rec, env = srv.do(t, http.MethodPost, "/api/v1/ai/requests/"+draft.RequestID+"/feedback", ownerToken, feedback)
	if rec.Code != http.StatusConflict || env.Code != "FEEDBACK_EXISTS" {
		t.Fatalf("expected duplicate feedback conflict, got %d %s", rec.Code, rec.Body.String())
	}
	rec, _ = srv.do(t, http.MethodPost, "/api/v1/ai/requests/"+draft.RequestID+"/feedback", ownerToken, gin.H{"quality_rating": 9, "usefulness_rating": 1})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected rating validation, got %d", rec.Code)
	}

	rec, env = srv.do(t, http.MethodGet, "/api/v1/ai/requests?limit=10", ownerToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list requests: %d", rec.Code)
	}
	var listing struct {
		Requests []domain.AIRequest `json:"requests"`
	}
	decode(t, env.Data, &listing)
	if len(listing.Requests) != 1 || listing.Requests[0].ID != draft.RequestID {
		t.Fatalf("unexpected listing %+v", listing.Requests)
	}
}

func TestLocalBlogHelpers(t *testing.T) {
	srv := setupServer(t, 100)
	token, _ := srv.newUser(t)

	rec, env := srv.do(t, http.MethodPost, "/api/v1/ai/blog/generate-tags", token, gin.H{"category": "misc"})
	if rec.Code != http.StatusBadRequest || env.Code != "INVALID_INPUT" {
		t.Fatalf("expected content or title error, got %d %s", rec.Code, rec.Body.String())
	}

	rec, env = srv.do(t, http.MethodPost, "/api/v1/ai/blog/seo-optimize", token, gin.H{
		"title":   "Go testing guide",
		"content": "A short note about go testing.",
		"keyword": "go testing",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("seo optimize: %d %s", rec.Code, rec.Body.String())
	}
	var seo assistant.SEOResult
	decode(t, env.Data, &seo)
	if seo.CurrentSEOScore != 95 {
		t.Fatalf("expected seo score 95, got %d", seo.CurrentSEOScore)
	}
}

func TestAdminRoutes(t *testing.T) {
	srv := setupServer(t, 100)
	userToken, userID := srv.newUser(t)
	adminToken, _ := srv.login(t, testAdminEmail, testAdminPassword)

	limits := gin.H{"monthly_request_limit": 1, "monthly_token_limit": 1000, "monthly_cost_limit": 1.5}
	rec, _ := srv.do(t, http.MethodPut, "/api/v1/ai/usage/"+userID+"/limits", userToken, limits)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("non-admin must not update limits, got %d", rec.Code)
	}
	rec, env := srv.do(t, http.MethodPut, "/api/v1/ai/usage/"+userID+"/limits", adminToken, limits)
	if rec.Code != http.StatusOK {
		t.Fatalf("update limits: %d %s", rec.Code, rec.Body.String())
	}
	var updated struct {
		Usage domain.UserAIUsage `json:"usage"`
	}
	decode(t, env.Data, &updated)
	if updated.Usage.MonthlyRequestLimit != 1 || updated.Usage.MonthlyCostLimit != 1.5 {
		t.Fatalf("unexpected usage %+v", updated.Usage)
	}

	rec, _ = srv.do(t, http.MethodPut, "/api/v1/ai/usage/missing-user/limits", adminToken, limits)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown user, got %d", rec.Code)
	}

	if rec, _ := srv.do(t, http.MethodPost, "/api/v1/ai/analyze/sentiment", userToken, gin.H{"text": "terrible"}); rec.Code != http.StatusOK {
		t.Fatalf("sentiment: %d %s", rec.Code, rec.Body.String())
	}

	rec, env = srv.do(t, http.MethodGet, "/api/v1/ai/analytics", adminToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("analytics: %d %s", rec.Code, rec.Body.String())
	}
	var analytics assistant.Analytics
	decode(t, env.Data, &analytics)
	if analytics.TotalRequests != 1 || analytics.SuccessfulRequests != 1 || analytics.SuccessRate != 100 {
		t.Fatalf("unexpected analytics %+v", analytics)
	}
	if len(analytics.PopularModels) != 1 {
		t.Fatalf("expected one popular model, got %+v", analytics.PopularModels)
	}

	rec, _ = srv.do(t, http.MethodGet, "/api/v1/ai/analytics", userToken, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("analytics must be admin only, got %d", rec.Code)
	}
}
