package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// HuggingFaceOptions 为 HTTP provider 的显式配置。
type HuggingFaceOptions struct {
	BaseURL        string
	APIToken       string
	Timeout        time.Duration
	SentimentModel string
	Transport      http.RoundTripper
	Logger         *zap.Logger
}

// HuggingFace 通过 Inference API 调用远端模型；关键词提取在本地完成。
type HuggingFace struct {
	baseURL        string
	apiToken       string
	sentimentModel string
	httpClient     *http.Client
	fallback       *Mock
	logger         *zap.Logger
}

// NewHuggingFace 构建 HTTP provider；token 为空时仍可构建，请求会由远端拒绝。
func NewHuggingFace(opts HuggingFaceOptions) *HuggingFace {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HuggingFace{
		baseURL:        strings.TrimRight(opts.BaseURL, "/"),
		apiToken:       opts.APIToken,
		sentimentModel: opts.SentimentModel,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(transport),
		},
		fallback: NewMock(0),
		logger:   logger,
	}
}

type generationParameters struct {
	MaxNewTokens   int     `json:"max_new_tokens"`
	Temperature    float64 `json:"temperature"`
	TopP           float64 `json:"top_p"`
	ReturnFullText bool    `json:"return_full_text"`
}

type generationPayload struct {
	Inputs     string               `json:"inputs"`
	Parameters generationParameters `json:"parameters"`
}

func (h *HuggingFace) GenerateText(ctx context.Context, req TextRequest) (string, error) {
	payload := generationPayload{
		Inputs: req.Prompt,
		Parameters: generationParameters{
			MaxNewTokens:   req.MaxTokens,
			Temperature:    req.Temperature,
			TopP:           req.TopP,
			ReturnFullText: false,
		},
	}

	raw, err := h.post(ctx, "generate_text", h.endpoint(req.Endpoint, req.ModelID), payload)
	if err != nil {
		return "", err
	}

	var results []struct {
		GeneratedText *string `json:"generated_text"`
	}
	if err := json.Unmarshal(raw, &results); err != nil || len(results) == 0 || results[0].GeneratedText == nil ||
		strings.TrimSpace(*results[0].GeneratedText) == "" {
		return "", &Error{Op: "generate_text", Message: ErrUnexpectedResponse.Error(), Err: ErrUnexpectedResponse}
	}
	return *results[0].GeneratedText, nil
}

type labelScore struct {
	Label *string  `json:"label"`
	Score *float64 `json:"score"`
}

// AnalyzeSentiment 调用远端分类模型，失败时回退到 Mock 的关键词匹配。
func (h *HuggingFace) AnalyzeSentiment(ctx context.Context, text string) (Sentiment, error) {
	raw, err := h.post(ctx, "analyze_sentiment", h.endpoint("", h.sentimentModel), map[string]string{"inputs": text})
	if err != nil {
		if ctx.Err() != nil {
			return Sentiment{}, err
		}
		h.logger.Warn("sentiment analysis failed, using keyword fallback", zap.Error(err))
		return h.fallback.AnalyzeSentiment(ctx, text)
	}
	return parseSentiment(raw), nil
}

// parseSentiment 兼容 [{label,score}] 与 [[{label,score},...]] 两种返回结构。
func parseSentiment(raw []byte) Sentiment {
	unknown := Sentiment{Label: "UNKNOWN", Confidence: 0}

	var nested [][]labelScore
	if err := json.Unmarshal(raw, &nested); err == nil && len(nested) > 0 && len(nested[0]) > 0 {
		candidates := nested[0]
		sort.SliceStable(candidates, func(i, j int) bool {
			return scoreOf(candidates[i]) > scoreOf(candidates[j])
		})
		return toSentiment(candidates[0])
	}

	var flat []labelScore
	if err := json.Unmarshal(raw, &flat); err == nil && len(flat) > 0 {
		return toSentiment(flat[0])
	}
	return unknown
}

func scoreOf(item labelScore) float64 {
	if item.Score == nil {
		return 0
	}
	return *item.Score
}

func toSentiment(item labelScore) Sentiment {
	result := Sentiment{Label: "UNKNOWN", Confidence: scoreOf(item)}
	if item.Label != nil && *item.Label != "" {
		result.Label = strings.ToUpper(*item.Label)
	}
	return result
}

func (h *HuggingFace) ExtractKeywords(_ context.Context, text string) ([]string, error) {
	return ExtractKeywords(text), nil
}

func (h *HuggingFace) endpoint(override, modelID string) string {
	if override != "" {
		return override
	}
	return h.baseURL + "/" + modelID
}

func (h *HuggingFace) post(ctx context.Context, op, url string, body any) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, &Error{Op: op, Message: fmt.Sprintf("API request failed: %v", err), Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return nil, &Error{Op: op, Message: fmt.Sprintf("API request failed: %v", err), Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+h.apiToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Op: op, Message: fmt.Sprintf("API request failed: %v", err), Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Op: op, StatusCode: resp.StatusCode, Message: fmt.Sprintf("API request failed: %v", err), Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &Error{
			Op:         op,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("API request failed: %d %s: %s", resp.StatusCode, http.StatusText(resp.StatusCode), strings.TrimSpace(string(raw))),
		}
	}
	return raw, nil
}
