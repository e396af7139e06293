package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/zacharykka/blog-assistant/internal/ai/provider"
	domain "github.com/zacharykka/blog-assistant/internal/domain"
)

const (
	maxTitles         = 8
	maxTags           = 8
	titleSEOLimit     = 60
	tagConfidence     = 0.9
	seoMinWords       = 300
	toneScore         = 82.5
	readabilityScore  = 85.5
	draftTagSuggested = 3
)

var (
	commonTags = []string{"tutorial", "guide", "tips", "development", "programming"}

	tagVocabulary = []string{
		"python", "django", "javascript", "react", "ai", "machine-learning",
		"web-development", "tutorial", "guide", "tips", "best-practices",
		"programming", "coding", "development", "software", "technology",
	}

	toneSuggestions = map[string][]string{
		"POSITIVE": {"Great tone! Consider adding more specific examples."},
		"NEGATIVE": {"Consider balancing with more positive language."},
		"NEUTRAL":  {"Consider adding more engaging language to make content more compelling."},
	}
)

// Caller 为发起请求的用户及其来源信息。
type Caller struct {
	UserID    string
	IPAddress string
	UserAgent string
}

// DraftInput 为草稿生成参数，空字段使用默认语气、篇幅与受众。
type DraftInput struct {
	Topic    string
	Tone     string
	Length   string
	Keywords string
	Audience string
	ModelID  string
}

// DraftSuggestions 为草稿附带的标题与标签建议。
type DraftSuggestions struct {
	TitleSuggestions []string `json:"title_suggestions"`
	TagSuggestions   []string `json:"tag_suggestions"`
}

// DraftResult 为草稿生成结果。
type DraftResult struct {
	Draft          string           `json:"draft"`
	RequestID      string           `json:"request_id"`
	ProcessingTime float64          `json:"processing_time"`
	Suggestions    DraftSuggestions `json:"suggestions"`
}

// GenerateDraft 渲染 blog_draft 模板并生成草稿。
func (s *Service) GenerateDraft(ctx context.Context, caller Caller, in DraftInput) (*DraftResult, error) {
	topic := strings.TrimSpace(in.Topic)
	if topic == "" {
		return nil, ErrTopicRequired
	}
	vars := map[string]string{
		"topic":    topic,
		"tone":     defaultString(in.Tone, "professional"),
		"length":   defaultString(in.Length, "medium"),
		"keywords": in.Keywords,
		"audience": defaultString(in.Audience, "general"),
	}
	rendered, err := s.templates.RenderByType(ctx, domain.TemplateBlogDraft, vars)
	if err != nil {
		return nil, err
	}

	result, err := s.processor.Process(ctx, ProcessInput{
		UserID:         caller.UserID,
		RequestType:    domain.RequestBlogDraft,
		InputText:      rendered.Prompt,
		ModelID:        in.ModelID,
		PromptTemplate: rendered.TemplateName(),
		Parameters: map[string]any{
			"topic":  topic,
			"tone":   vars["tone"],
			"length": vars["length"],
		},
		IPAddress: caller.IPAddress,
		UserAgent: caller.UserAgent,
	})
	if err != nil {
		return nil, err
	}

	return &DraftResult{
		Draft:          result.Output,
		RequestID:      result.RequestID,
		ProcessingTime: result.ProcessingTime,
		Suggestions: DraftSuggestions{
			TitleSuggestions: TitlePatterns(topic),
			TagSuggestions:   append([]string(nil), commonTags[:draftTagSuggested]...),
		},
	}, nil
}

// TitlePatterns 基于主题生成固定句式的标题建议。
func TitlePatterns(topic string) []string {
	return []string{
		fmt.Sprintf("Complete Guide to %s", topic),
		fmt.Sprintf("Understanding %s: A Beginner's Guide", topic),
		fmt.Sprintf("10 Things You Need to Know About %s", topic),
		fmt.Sprintf("The Future of %s: Trends and Insights", topic),
	}
}

// ImproveInput 为内容改进参数。
type ImproveInput struct {
	Content  string
	Type     string
	Audience string
	ModelID  string
}

// Improvements 记录改写前后的字数变化。
type Improvements struct {
	WordCountChange int      `json:"word_count_change"`
	Improvements    []string `json:"improvements"`
}

// ImproveResult 为内容改进结果。
type ImproveResult struct {
	ImprovedContent  string       `json:"improved_content"`
	RequestID        string       `json:"request_id"`
	ImprovementsMade Improvements `json:"improvements_made"`
	ReadabilityScore float64      `json:"readability_score"`
}

// ImproveContent 渲染 blog_improve 模板并改写内容。
func (s *Service) ImproveContent(ctx context.Context, caller Caller, in ImproveInput) (*ImproveResult, error) {
	if strings.TrimSpace(in.Content) == "" {
		return nil, ErrContentRequired
	}
	focus := defaultString(in.Type, "readability")
	rendered, err := s.templates.RenderByType(ctx, domain.TemplateBlogImprove, map[string]string{
		"content":           in.Content,
		"improvement_focus": focus,
		"audience":          defaultString(in.Audience, "general"),
	})
	if err != nil {
		return nil, err
	}

	result, err := s.processor.Process(ctx, ProcessInput{
		UserID:         caller.UserID,
		RequestType:    domain.RequestBlogImprove,
		InputText:      rendered.Prompt,
		ModelID:        in.ModelID,
		PromptTemplate: rendered.TemplateName(),
		Parameters:     map[string]any{"improvement_type": focus},
		IPAddress:      caller.IPAddress,
		UserAgent:      caller.UserAgent,
	})
	if err != nil {
		return nil, err
	}

	return &ImproveResult{
		ImprovedContent: result.Output,
		RequestID:       result.RequestID,
		ImprovementsMade: Improvements{
			WordCountChange: len(strings.Fields(result.Output)) - len(strings.Fields(in.Content)),
			Improvements:    []string{"Better readability", "Improved flow", "Enhanced clarity"},
		},
		ReadabilityScore: readabilityScore,
	}, nil
}

// TitleInput 为标题生成参数。
type TitleInput struct {
	Topic       string
	Keywords    string
	Tone        string
	ContentType string
	ModelID     string
}

// TitleAnalysis 为单个标题的 SEO 评估。
type TitleAnalysis struct {
	Title       string `json:"title"`
	Length      int    `json:"length"`
	SEOScore    int    `json:"seo_score"`
	HasKeywords bool   `json:"has_keywords"`
}

// TitleResult 为标题生成结果。
type TitleResult struct {
	Titles      []string        `json:"titles"`
	RequestID   string          `json:"request_id"`
	SEOAnalysis []TitleAnalysis `json:"seo_analysis"`
}

// GenerateTitles 渲染 title_generation 模板，解析输出中的标题并做 SEO 评估。
func (s *Service) GenerateTitles(ctx context.Context, caller Caller, in TitleInput) (*TitleResult, error) {
	topic := strings.TrimSpace(in.Topic)
	if topic == "" {
		return nil, ErrTopicRequired
	}
	rendered, err := s.templates.RenderByType(ctx, domain.TemplateTitleGeneration, map[string]string{
		"topic":        topic,
		"keywords":     in.Keywords,
		"tone":         defaultString(in.Tone, "professional"),
		"content_type": defaultString(in.ContentType, "article"),
	})
	if err != nil {
		return nil, err
	}

	result, err := s.processor.Process(ctx, ProcessInput{
		UserID:         caller.UserID,
		RequestType:    domain.RequestTitleGeneration,
		InputText:      rendered.Prompt,
		ModelID:        in.ModelID,
		PromptTemplate: rendered.TemplateName(),
		IPAddress:      caller.IPAddress,
		UserAgent:      caller.UserAgent,
	})
	if err != nil {
		return nil, err
	}

	titles := ParseTitles(result.Output)
	return &TitleResult{
		Titles:      titles,
		RequestID:   result.RequestID,
		SEOAnalysis: AnalyzeTitles(titles, in.Keywords),
	}, nil
}

// ParseTitles 从模型输出中逐行提取标题，去掉编号与列表符号，最多 8 条。
func ParseTitles(output string) []string {
	titles := make([]string, 0, maxTitles)
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		listed := strings.HasPrefix(line, "1.") || strings.HasPrefix(line, "2.") ||
			strings.HasPrefix(line, "3.") || strings.HasPrefix(line, "-") || strings.HasPrefix(line, "*")
		if !listed && len(titles) >= maxTitles {
			continue
		}
		title := strings.TrimSpace(strings.TrimLeft(line, "123456789.-* "))
		if title != "" {
			titles = append(titles, title)
		}
	}
	if len(titles) > maxTitles {
		titles = titles[:maxTitles]
	}
	return titles
}

// AnalyzeTitles 评估标题长度与关键词命中。
func AnalyzeTitles(titles []string, keywords string) []TitleAnalysis {
	kw := strings.ToLower(strings.TrimSpace(keywords))
	analysis := make([]TitleAnalysis, 0, len(titles))
	for _, title := range titles {
		length := len([]rune(title))
		score := 75
		if length <= titleSEOLimit {
			score = 95
		}
		analysis = append(analysis, TitleAnalysis{
			Title:       title,
			Length:      length,
			SEOScore:    score,
			HasKeywords: kw != "" && strings.Contains(strings.ToLower(title), kw),
		})
	}
	return analysis
}

// TagInput 为标签建议参数，content 与 title 至少提供一个。
type TagInput struct {
	Content  string
	Title    string
	Category string
}

// TagResult 为标签建议结果。
type TagResult struct {
	SuggestedTags    []string           `json:"suggested_tags"`
	ConfidenceScores map[string]float64 `json:"confidence_scores"`
}

// SuggestTags 在固定词表中匹配文本，不调用 provider。
func SuggestTags(in TagInput) (*TagResult, error) {
	if strings.TrimSpace(in.Content) == "" && strings.TrimSpace(in.Title) == "" {
		return nil, ErrContentOrTitle
	}
	text := strings.ToLower(in.Title + " " + in.Content + " " + in.Category)
	tags := make([]string, 0, maxTags)
	scores := make(map[string]float64)
	for _, tag := range tagVocabulary {
		if len(tags) == maxTags {
			break
		}
		if strings.Contains(text, tag) {
			tags = append(tags, tag)
			scores[tag] = tagConfidence
		}
	}
	return &TagResult{SuggestedTags: tags, ConfidenceScores: scores}, nil
}

// SEOInput 为 SEO 优化参数。
type SEOInput struct {
	Title   string
	Content string
	Keyword string
}

// SEOOptimizations 为 SEO 评分与建议。
type SEOOptimizations struct {
	MetaDescription string   `json:"meta_description"`
	SuggestedTitle  string   `json:"suggested_title"`
	Keywords        []string `json:"keywords"`
	InternalLinks   []string `json:"internal_links"`
	ImageAltTexts   []string `json:"image_alt_texts"`
}

// SEOResult 为 SEO 优化结果。
type SEOResult struct {
	Optimizations   SEOOptimizations `json:"seo_optimizations"`
	CurrentSEOScore int              `json:"current_seo_score"`
	Recommendations []string         `json:"recommendations"`
}

// OptimizeSEO 使用本地规则给出 SEO 评分与建议。
func OptimizeSEO(in SEOInput) (*SEOResult, error) {
	if strings.TrimSpace(in.Content) == "" {
		return nil, ErrContentRequired
	}
	kw := in.Keyword
	return &SEOResult{
		Optimizations: SEOOptimizations{
			MetaDescription: fmt.Sprintf("Learn about %s in this comprehensive guide. Discover key insights and practical tips.", kw),
			SuggestedTitle:  fmt.Sprintf("%s - Complete %s Guide", in.Title, kw),
			Keywords:        []string{kw, kw + " tutorial", kw + " guide"},
			InternalLinks:   []string{"Related tutorials", "Best practices guide"},
			ImageAltTexts:   []string{kw + " diagram", kw + " example"},
		},
		CurrentSEOScore: SEOScore(in.Title, in.Content, kw),
		Recommendations: SEORecommendations(in.Title, in.Content, kw),
	}, nil
}

// SEOScore 基础分 70，关键词出现在标题、正文各加 10，标题不超过 60 字符加 5，上限 100。
func SEOScore(title, content, keyword string) int {
	score := 70
	kw := strings.ToLower(keyword)
	if kw != "" && strings.Contains(strings.ToLower(title), kw) {
		score += 10
	}
	if kw != "" && strings.Contains(strings.ToLower(content), kw) {
		score += 10
	}
	if len([]rune(title)) <= titleSEOLimit {
		score += 5
	}
	return min(score, 100)
}

// SEORecommendations 根据关键词命中与标题长度给出优化建议。
func SEORecommendations(title, content, keyword string) []string {
	recommendations := []string{}
	if keyword == "" {
		recommendations = append(recommendations, "Add a target keyword for better optimization")
	}
	if len([]rune(title)) > titleSEOLimit {
		recommendations = append(recommendations, "Shorten title to under 60 characters")
	}
	if len(strings.Fields(content)) < seoMinWords {
		recommendations = append(recommendations, "Add more content for better SEO (aim for 300+ words)")
	}
	return recommendations
}

// ToneAnalysis 为语气分析明细。
type ToneAnalysis struct {
	PrimaryTone string  `json:"primary_tone"`
	Confidence  float64 `json:"confidence"`
	ToneScore   float64 `json:"tone_score"`
	Readability float64 `json:"readability"`
}

// ToneResult 为语气分析结果。
type ToneResult struct {
	RequestID   string       `json:"request_id"`
	Tone        ToneAnalysis `json:"tone"`
	Suggestions []string     `json:"suggestions"`
}

// AnalyzeTone 以 sentiment_analysis 请求分析语气并给出建议。
func (s *Service) AnalyzeTone(ctx context.Context, caller Caller, content, modelID string) (*ToneResult, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrContentRequired
	}
	result, sentiment, err := s.sentiment(ctx, caller, content, modelID)
	if err != nil {
		return nil, err
	}
	label := sentiment.Label
	if label == "" {
		label = "NEUTRAL"
	}
	return &ToneResult{
		RequestID: result.RequestID,
		Tone: ToneAnalysis{
			PrimaryTone: label,
			Confidence:  sentiment.Confidence,
			ToneScore:   toneScore,
			Readability: readabilityScore,
		},
		Suggestions: ToneSuggestions(label),
	}, nil
}

// ToneSuggestions 返回情感标签对应的建议，未知标签按 NEUTRAL 处理。
func ToneSuggestions(label string) []string {
	if s, ok := toneSuggestions[label]; ok {
		return s
	}
	return toneSuggestions["NEUTRAL"]
}

// SentimentResult 为情感分析结果。
type SentimentResult struct {
	RequestID  string  `json:"request_id"`
	Sentiment  string  `json:"sentiment"`
	Confidence float64 `json:"confidence"`
}

// AnalyzeSentiment 直接以 sentiment_analysis 类型处理文本。
func (s *Service) AnalyzeSentiment(ctx context.Context, caller Caller, text, modelID string) (*SentimentResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrInputRequired
	}
	result, sentiment, err := s.sentiment(ctx, caller, text, modelID)
	if err != nil {
		return nil, err
	}
	return &SentimentResult{RequestID: result.RequestID, Sentiment: sentiment.Label, Confidence: sentiment.Confidence}, nil
}

// KeywordsResult 为关键词提取结果。
type KeywordsResult struct {
	RequestID string   `json:"request_id"`
	Keywords  []string `json:"keywords"`
}

// ExtractKeywords 以 keyword_extraction 类型处理文本。
func (s *Service) ExtractKeywords(ctx context.Context, caller Caller, text, modelID string) (*KeywordsResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrInputRequired
	}
	result, err := s.processor.Process(ctx, ProcessInput{
		UserID:      caller.UserID,
		RequestType: domain.RequestKeywordExtraction,
		InputText:   text,
		ModelID:     modelID,
		IPAddress:   caller.IPAddress,
		UserAgent:   caller.UserAgent,
	})
	if err != nil {
		return nil, err
	}
	var keywords []string
	if err := json.Unmarshal([]byte(result.Output), &keywords); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedOutput, err)
	}
	return &KeywordsResult{RequestID: result.RequestID, Keywords: keywords}, nil
}

func (s *Service) sentiment(ctx context.Context, caller Caller, text, modelID string) (*Result, provider.Sentiment, error) {
	result, err := s.processor.Process(ctx, ProcessInput{
		UserID:      caller.UserID,
		RequestType: domain.RequestSentimentAnalysis,
		InputText:   text,
		ModelID:     modelID,
		IPAddress:   caller.IPAddress,
		UserAgent:   caller.UserAgent,
	})
	if err != nil {
		return nil, provider.Sentiment{}, err
	}
	var sentiment provider.Sentiment
	if err := json.Unmarshal([]byte(result.Output), &sentiment); err != nil {
		return nil, provider.Sentiment{}, fmt.Errorf("%w: %v", ErrUnexpectedOutput, err)
	}
	return result, sentiment, nil
}

func defaultString(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}
