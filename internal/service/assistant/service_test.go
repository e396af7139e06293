package assistant

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	domain "github.com/zacharykka/blog-assistant/internal/domain"
	"github.com/zacharykka/blog-assistant/internal/service/template"
)

func (e *testEnv) template(t *testing.T, name string, templateType domain.TemplateType, body string, required, optional []string) *domain.PromptTemplate {
	t.Helper()
	tpl := &domain.PromptTemplate{
		ID:                uuid.NewString(),
		Name:              name,
		TemplateType:      templateType,
		Body:              body,
		RequiredVariables: required,
		OptionalVariables: optional,
		IsActive:          true,
	}
	if err := e.repos.Templates.Create(context.Background(), tpl); err != nil {
		t.Fatalf("create template: %v", err)
	}
	return tpl
}

func TestGenerateDraftUsesTemplate(t *testing.T) {
	env := setupAssistant(t)
	ctx := context.Background()
	userID := env.user(t)
	env.model(t, "writer", domain.ProviderMock, domain.ModelTypeTextGeneration, 0)
	tpl := env.template(t, "Blog Draft Generator", domain.TemplateBlogDraft,
		"Draft {topic} in a {tone} tone", []string{"topic"}, []string{"tone", "length", "keywords", "audience"})

	draft, err := env.svc.GenerateDraft(ctx, Caller{UserID: userID}, DraftInput{Topic: "Go"})
	if err != nil {
		t.Fatalf("generate draft: %v", err)
	}
	if !strings.Contains(draft.Draft, "Draft Go in a professional tone") {
		t.Fatalf("expected rendered prompt echoed by mock got %q", draft.Draft)
	}
	if len(draft.Suggestions.TitleSuggestions) != 4 || draft.Suggestions.TitleSuggestions[0] != "Complete Guide to Go" {
		t.Fatalf("unexpected title suggestions %v", draft.Suggestions.TitleSuggestions)
	}
	if strings.Join(draft.Suggestions.TagSuggestions, ",") != "tutorial,guide,tips" {
		t.Fatalf("unexpected tag suggestions %v", draft.Suggestions.TagSuggestions)
	}

	stored, err := env.repos.AIRequests.GetByID(ctx, draft.RequestID)
	if err != nil {
		t.Fatalf("get request: %v", err)
	}
	if stored.PromptTemplate != tpl.Name || stored.RequestType != domain.RequestBlogDraft {
		t.Fatalf("unexpected stored request %+v", stored)
	}
	reloaded, err := env.repos.Templates.GetByID(ctx, tpl.ID)
	if err != nil {
		t.Fatalf("get template: %v", err)
	}
	if reloaded.UsageCount != 1 {
		t.Fatalf("expected usage count 1 got %d", reloaded.UsageCount)
	}
}

func TestGenerateDraftFallsBackWithoutTemplate(t *testing.T) {
	env := setupAssistant(t)
	userID := env.user(t)
	env.model(t, "writer", domain.ProviderMock, domain.ModelTypeTextGeneration, 0)

	draft, err := env.svc.GenerateDraft(context.Background(), Caller{UserID: userID}, DraftInput{Topic: "Rust"})
	if err != nil {
		t.Fatalf("generate draft: %v", err)
	}
	if !strings.Contains(draft.Draft, "Generate content for: Rust") {
		t.Fatalf("expected fallback prompt got %q", draft.Draft)
	}
}

func TestGenerateDraftMissingVariablesLeavesNoRequest(t *testing.T) {
	env := setupAssistant(t)
	ctx := context.Background()
	userID := env.user(t)
	env.model(t, "writer", domain.ProviderMock, domain.ModelTypeTextGeneration, 0)
	env.template(t, "Strict Draft", domain.TemplateBlogDraft, "{topic} for {reader_level}", []string{"topic", "reader_level"}, nil)

	_, err := env.svc.GenerateDraft(ctx, Caller{UserID: userID}, DraftInput{Topic: "Go"})
	if !errors.Is(err, template.ErrMissingVariables) {
		t.Fatalf("expected missing variables got %v", err)
	}
	total, err := env.repos.AIRequests.Count(ctx, userID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if total != 0 {
		t.Fatalf("expected no request persisted got %d", total)
	}

	if _, err := env.svc.GenerateDraft(ctx, Caller{UserID: userID}, DraftInput{}); !errors.Is(err, ErrTopicRequired) {
		t.Fatalf("expected topic required got %v", err)
	}
}

func TestImproveContentReportsWordCountChange(t *testing.T) {
	env := setupAssistant(t)
	userID := env.user(t)
	env.model(t, "writer", domain.ProviderMock, domain.ModelTypeTextGeneration, 0)

	result, err := env.svc.ImproveContent(context.Background(), Caller{UserID: userID}, ImproveInput{Content: "short text"})
	if err != nil {
		t.Fatalf("improve: %v", err)
	}
	want := len(strings.Fields(result.ImprovedContent)) - 2
	if result.ImprovementsMade.WordCountChange != want {
		t.Fatalf("expected word count change %d got %d", want, result.ImprovementsMade.WordCountChange)
	}
	if result.ReadabilityScore != 85.5 {
		t.Fatalf("unexpected readability %v", result.ReadabilityScore)
	}
}

func TestGenerateTitlesParsesOutput(t *testing.T) {
	env := setupAssistant(t)
	userID := env.user(t)
	env.model(t, "writer", domain.ProviderMock, domain.ModelTypeTextGeneration, 0)

	result, err := env.svc.GenerateTitles(context.Background(), Caller{UserID: userID}, TitleInput{Topic: "Go", Keywords: "mock"})
	if err != nil {
		t.Fatalf("generate titles: %v", err)
	}
	if len(result.Titles) != 1 || len(result.SEOAnalysis) != 1 {
		t.Fatalf("expected one parsed title got %v", result.Titles)
	}
	if !result.SEOAnalysis[0].HasKeywords {
		t.Fatalf("expected keyword hit in %q", result.Titles[0])
	}
}

func TestParseTitles(t *testing.T) {
	output := "1. Mastering Go\n2. Go Concurrency Patterns\n\n- Testing in Go\n* Go Modules Explained\n" +
		"Fifth\nSixth\nSeventh\nEighth\nNinth\n"
	titles := ParseTitles(output)
	if len(titles) != 8 {
		t.Fatalf("expected 8 titles got %d: %v", len(titles), titles)
	}
	if titles[0] != "Mastering Go" || titles[2] != "Testing in Go" || titles[3] != "Go Modules Explained" {
		t.Fatalf("expected list markers stripped: %v", titles)
	}
}

func TestAnalyzeTitles(t *testing.T) {
	long := strings.Repeat("a", 61)
	analysis := AnalyzeTitles([]string{"Learning Rust", long}, "rust")
	if analysis[0].SEOScore != 95 || !analysis[0].HasKeywords || analysis[0].Length != 13 {
		t.Fatalf("unexpected short title analysis %+v", analysis[0])
	}
	if analysis[1].SEOScore != 75 || analysis[1].HasKeywords {
		t.Fatalf("unexpected long title analysis %+v", analysis[1])
	}
}

func TestSuggestTags(t *testing.T) {
	result, err := SuggestTags(TagInput{Title: "Python Tutorial", Content: "A guide to django development"})
	if err != nil {
		t.Fatalf("suggest tags: %v", err)
	}
	want := []string{"python", "django", "tutorial", "guide", "development"}
	if strings.Join(result.SuggestedTags, ",") != strings.Join(want, ",") {
		t.Fatalf("expected %v got %v", want, result.SuggestedTags)
	}
	if result.ConfidenceScores["python"] != 0.9 {
		t.Fatalf("expected confidence 0.9 got %v", result.ConfidenceScores)
	}

	if _, err := SuggestTags(TagInput{Category: "misc"}); !errors.Is(err, ErrContentOrTitle) {
		t.Fatalf("expected content or title error got %v", err)
	}
}

func TestOptimizeSEO(t *testing.T) {
	result, err := OptimizeSEO(SEOInput{Title: "Go Testing", Content: "All about testing in go", Keyword: "go"})
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	if result.CurrentSEOScore != 95 {
		t.Fatalf("expected score 95 got %d", result.CurrentSEOScore)
	}
	if len(result.Recommendations) != 1 || !strings.Contains(result.Recommendations[0], "300+") {
		t.Fatalf("unexpected recommendations %v", result.Recommendations)
	}
	if result.Optimizations.SuggestedTitle != "Go Testing - Complete go Guide" {
		t.Fatalf("unexpected suggested title %q", result.Optimizations.SuggestedTitle)
	}

	if score := SEOScore(strings.Repeat("x", 70), "body", ""); score != 70 {
		t.Fatalf("expected base score got %d", score)
	}
	recs := SEORecommendations(strings.Repeat("x", 70), "body", "")
	if len(recs) != 3 {
		t.Fatalf("expected three recommendations got %v", recs)
	}
	if _, err := OptimizeSEO(SEOInput{Title: "t"}); !errors.Is(err, ErrContentRequired) {
		t.Fatalf("expected content required got %v", err)
	}
}

func TestAnalyzeToneAndSentiment(t *testing.T) {
	env := setupAssistant(t)
	ctx := context.Background()
	userID := env.user(t)
	env.model(t, "classifier", domain.ProviderMock, domain.ModelTypeTextClassification, 0)

	tone, err := env.svc.AnalyzeTone(ctx, Caller{UserID: userID}, "What a terrible outage", "")
	if err != nil {
		t.Fatalf("analyze tone: %v", err)
	}
	if tone.Tone.PrimaryTone != "NEGATIVE" || tone.Tone.Confidence != 0.80 {
		t.Fatalf("unexpected tone %+v", tone.Tone)
	}
	if tone.Suggestions[0] != "Consider balancing with more positive language." {
		t.Fatalf("unexpected suggestions %v", tone.Suggestions)
	}

	sentiment, err := env.svc.AnalyzeSentiment(ctx, Caller{UserID: userID}, "This is a great day", "")
	if err != nil {
		t.Fatalf("analyze sentiment: %v", err)
	}
	if sentiment.Sentiment != "POSITIVE" || sentiment.Confidence != 0.85 {
		t.Fatalf("unexpected sentiment %+v", sentiment)
	}

	keywords, err := env.svc.ExtractKeywords(ctx, Caller{UserID: userID}, "some text", "")
	if err != nil {
		t.Fatalf("extract keywords: %v", err)
	}
	if len(keywords.Keywords) == 0 || keywords.RequestID == "" {
		t.Fatalf("unexpected keywords %+v", keywords)
	}

	if got := ToneSuggestions("MIXED"); got[0] != toneSuggestions["NEUTRAL"][0] {
		t.Fatalf("expected neutral suggestions for unknown label")
	}
}

func TestGetRequestOwnership(t *testing.T) {
	env := setupAssistant(t)
	ctx := context.Background()
	owner := env.user(t)
	other := env.user(t)
	env.model(t, "writer", domain.ProviderMock, domain.ModelTypeTextGeneration, 0)

	result, err := env.svc.Process(ctx, ProcessInput{UserID: owner, RequestType: domain.RequestBlogDraft, InputText: "x"})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if _, err := env.svc.GetRequest(ctx, owner, false, result.RequestID); err != nil {
		t.Fatalf("owner get: %v", err)
	}
	if _, err := env.svc.GetRequest(ctx, other, false, result.RequestID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden got %v", err)
	}
	if _, err := env.svc.GetRequest(ctx, other, true, result.RequestID); err != nil {
		t.Fatalf("admin get: %v", err)
	}
	if _, err := env.svc.GetRequest(ctx, owner, false, uuid.NewString()); !errors.Is(err, ErrRequestNotFound) {
		t.Fatalf("expected not found got %v", err)
	}
}

func TestSubmitFeedback(t *testing.T) {
	env := setupAssistant(t)
	ctx := context.Background()
	owner := env.user(t)
	other := env.user(t)
	env.model(t, "writer", domain.ProviderMock, domain.ModelTypeTextGeneration, 0)
	tpl := env.template(t, "Blog Draft Generator", domain.TemplateBlogDraft, "Draft {topic}", []string{"topic"}, nil)

	draft, err := env.svc.GenerateDraft(ctx, Caller{UserID: owner}, DraftInput{Topic: "Go"})
	if err != nil {
		t.Fatalf("generate draft: %v", err)
	}

	if _, err := env.svc.SubmitFeedback(ctx, owner, draft.RequestID, FeedbackInput{QualityRating: 6, UsefulnessRating: 3}); !errors.Is(err, ErrInvalidRating) {
		t.Fatalf("expected invalid rating got %v", err)
	}
	if _, err := env.svc.SubmitFeedback(ctx, other, draft.RequestID, FeedbackInput{QualityRating: 4, UsefulnessRating: 4}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden got %v", err)
	}

	feedback, err := env.svc.SubmitFeedback(ctx, owner, draft.RequestID, FeedbackInput{QualityRating: 4, UsefulnessRating: 5, ContentUsed: true})
	if err != nil {
		t.Fatalf("submit feedback: %v", err)
	}
	if feedback.RequestID != draft.RequestID {
		t.Fatalf("unexpected feedback %+v", feedback)
	}
	if _, err := env.svc.SubmitFeedback(ctx, owner, draft.RequestID, FeedbackInput{QualityRating: 2, UsefulnessRating: 2}); !errors.Is(err, ErrFeedbackExists) {
		t.Fatalf("expected duplicate feedback error got %v", err)
	}

	reloaded, err := env.repos.Templates.GetByID(ctx, tpl.ID)
	if err != nil {
		t.Fatalf("get template: %v", err)
	}
	if reloaded.RatingCount != 1 || reloaded.AvgRating != 4 {
		t.Fatalf("expected rating applied once got %+v", reloaded)
	}
}

func TestSubmitFeedbackRequiresFinishedRequest(t *testing.T) {
	env := setupAssistant(t)
	ctx := context.Background()
	owner := env.user(t)
	model := env.model(t, "writer", domain.ProviderMock, domain.ModelTypeTextGeneration, 0)

	req := &domain.AIRequest{
		ID:          uuid.NewString(),
		UserID:      owner,
		ModelID:     model.ID,
		RequestType: domain.RequestBlogDraft,
		InputText:   "still running",
		Status:      domain.StatusProcessing,
		CreatedAt:   env.now,
	}
	if err := env.repos.AIRequests.Create(ctx, req); err != nil {
		t.Fatalf("create request: %v", err)
	}
	if _, err := env.svc.SubmitFeedback(ctx, owner, req.ID, FeedbackInput{QualityRating: 3, UsefulnessRating: 3}); !errors.Is(err, ErrRequestNotFinished) {
		t.Fatalf("expected not finished got %v", err)
	}
}

func TestUsageSummaryAndListRequests(t *testing.T) {
	env := setupAssistant(t)
	ctx := context.Background()
	userID := env.user(t)
	env.model(t, "writer", domain.ProviderMock, domain.ModelTypeTextGeneration, 0)

	for i := 0; i < 12; i++ {
		if _, err := env.svc.Process(ctx, ProcessInput{UserID: userID, RequestType: domain.RequestBlogDraft, InputText: "post"}); err != nil {
			t.Fatalf("process %d: %v", i, err)
		}
	}

	summary, err := env.svc.UsageSummary(ctx, userID)
	if err != nil {
		t.Fatalf("usage summary: %v", err)
	}
	if !summary.Quota.HasQuota || summary.Quota.RequestsUsed != 12 || summary.Quota.RequestsLimit != 100 {
		t.Fatalf("unexpected quota %+v", summary.Quota)
	}
	if len(summary.RecentRequests) != 10 || summary.TotalRequests != 12 {
		t.Fatalf("unexpected summary sizes %d/%d", len(summary.RecentRequests), summary.TotalRequests)
	}

	page, total, err := env.svc.ListRequests(ctx, userID, 5, 10)
	if err != nil {
		t.Fatalf("list requests: %v", err)
	}
	if len(page) != 2 || total != 12 {
		t.Fatalf("expected second page of 2 got %d (total %d)", len(page), total)
	}
}

func TestAnalytics(t *testing.T) {
	env := setupAssistant(t)
	ctx := context.Background()
	userID := env.user(t)
	writer := env.model(t, "writer", domain.ProviderMock, domain.ModelTypeTextGeneration, 0)
	env.model(t, "remote", domain.ProviderHuggingFace, domain.ModelTypeTextGeneration, 0)
	env.registry.Register(domain.ProviderHuggingFace, failingClient{err: errors.New("down")})

	for i := 0; i < 3; i++ {
		if _, err := env.svc.Process(ctx, ProcessInput{UserID: userID, RequestType: domain.RequestBlogDraft, InputText: "ok", ModelID: writer.ID}); err != nil {
			t.Fatalf("process: %v", err)
		}
	}
	if _, err := env.svc.Process(ctx, ProcessInput{UserID: userID, RequestType: domain.RequestBlogDraft, InputText: "bad"}); err == nil {
		t.Fatalf("expected failure from remote provider")
	}

	analytics, err := env.svc.Analytics(ctx)
	if err != nil {
		t.Fatalf("analytics: %v", err)
	}
	if analytics.TotalRequests != 4 || analytics.SuccessfulRequests != 3 || analytics.SuccessRate != 75 {
		t.Fatalf("unexpected analytics %+v", analytics)
	}
	if len(analytics.PopularModels) == 0 || analytics.PopularModels[0].ModelID != writer.ID || analytics.PopularModels[0].RequestCount != 3 {
		t.Fatalf("unexpected popular models %+v", analytics.PopularModels)
	}
}
