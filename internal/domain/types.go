package domain

// Provider 标识 AI 能力的实现方。
type Provider string

const (
	ProviderHuggingFace Provider = "huggingface"
	ProviderMock        Provider = "mock"
	ProviderOpenAI      Provider = "openai"
	ProviderAnthropic   Provider = "anthropic"
	ProviderGoogle      Provider = "google"
	ProviderCustom      Provider = "custom"
)

// ModelType 描述模型擅长的任务类别。
type ModelType string

const (
	ModelTypeTextGeneration      ModelType = "text_generation"
	ModelTypeTextClassification  ModelType = "text_classification"
	ModelTypeImageGeneration     ModelType = "image_generation"
	ModelTypeImageClassification ModelType = "image_classification"
	ModelTypeSentimentAnalysis   ModelType = "sentiment_analysis"
	ModelTypeSummarization       ModelType = "summarization"
	ModelTypeTranslation         ModelType = "translation"
	ModelTypeQuestionAnswering   ModelType = "question_answering"
)

// RequestType 为一次 AI 请求的业务类型。
type RequestType string

const (
	RequestBlogDraft         RequestType = "blog_draft"
	RequestBlogImprove       RequestType = "blog_improve"
	RequestSEOOptimization   RequestType = "seo_optimization"
	RequestImageGeneration   RequestType = "image_generation"
	RequestContentAnalysis   RequestType = "content_analysis"
	RequestTagSuggestion     RequestType = "tag_suggestion"
	RequestTitleGeneration   RequestType = "title_generation"
	RequestGrammarCheck      RequestType = "grammar_check"
	RequestToneAnalysis      RequestType = "tone_analysis"
	RequestSummarization     RequestType = "summarization"
	RequestSentimentAnalysis RequestType = "sentiment_analysis"
	RequestKeywordExtraction RequestType = "keyword_extraction"
)

// RequestStatus 为 AI 请求状态；completed/failed/cancelled 为终态。
type RequestStatus string

const (
	StatusPending    RequestStatus = "pending"
	StatusProcessing RequestStatus = "processing"
	StatusCompleted  RequestStatus = "completed"
	StatusFailed     RequestStatus = "failed"
	// StatusCancelled 保留状态，目前没有任何流程会进入。
	StatusCancelled RequestStatus = "cancelled"
)

// IsTerminal 报告状态是否为终态。
func (s RequestStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// TemplateType 为提示词模板的用途分类。
type TemplateType string

const (
	TemplateBlogDraft       TemplateType = "blog_draft"
	TemplateBlogImprove     TemplateType = "blog_improve"
	TemplateSEOMeta         TemplateType = "seo_meta"
	TemplateContentExpand   TemplateType = "content_expand"
	TemplateContentSummary  TemplateType = "content_summarize"
	TemplateTitleGeneration TemplateType = "title_generation"
	TemplateTagSuggestion   TemplateType = "tag_suggestion"
	TemplateToneAdjustment  TemplateType = "tone_adjustment"
	TemplateGrammarFix      TemplateType = "grammar_fix"
)

var knownRequestTypes = map[RequestType]struct{}{
	RequestBlogDraft:         {},
	RequestBlogImprove:       {},
	RequestSEOOptimization:   {},
	RequestImageGeneration:   {},
	RequestContentAnalysis:   {},
	RequestTagSuggestion:     {},
	RequestTitleGeneration:   {},
	RequestGrammarCheck:      {},
	RequestToneAnalysis:      {},
	RequestSummarization:     {},
	RequestSentimentAnalysis: {},
	RequestKeywordExtraction: {},
}

// Valid 报告请求类型是否在已知集合内。
func (t RequestType) Valid() bool {
	_, ok := knownRequestTypes[t]
	return ok
}

var knownProviders = map[Provider]struct{}{
	ProviderHuggingFace: {},
	ProviderMock:        {},
	ProviderOpenAI:      {},
	ProviderAnthropic:   {},
	ProviderGoogle:      {},
	ProviderCustom:      {},
}

// Valid 报告 provider 是否在已知集合内。
func (p Provider) Valid() bool {
	_, ok := knownProviders[p]
	return ok
}

var knownModelTypes = map[ModelType]struct{}{
	ModelTypeTextGeneration:      {},
	ModelTypeTextClassification:  {},
	ModelTypeImageGeneration:     {},
	ModelTypeImageClassification: {},
	ModelTypeSentimentAnalysis:   {},
	ModelTypeSummarization:       {},
	ModelTypeTranslation:         {},
	ModelTypeQuestionAnswering:   {},
}

// Valid 报告模型类型是否在已知集合内。
func (t ModelType) Valid() bool {
	_, ok := knownModelTypes[t]
	return ok
}

var knownTemplateTypes = map[TemplateType]struct{}{
	TemplateBlogDraft:       {},
	TemplateBlogImprove:     {},
	TemplateSEOMeta:         {},
	TemplateContentExpand:   {},
	TemplateContentSummary:  {},
	TemplateTitleGeneration: {},
	TemplateTagSuggestion:   {},
	TemplateToneAdjustment:  {},
	TemplateGrammarFix:      {},
}

// Valid 报告模板类型是否在已知集合内。
func (t TemplateType) Valid() bool {
	_, ok := knownTemplateTypes[t]
	return ok
}
