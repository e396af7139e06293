package provider

import (
	"context"
	"fmt"
	"strings"
	"time"
)

var (
	positiveWords  = []string{"good", "great", "excellent", "amazing", "wonderful"}
	negativeWords  = []string{"bad", "terrible", "awful", "horrible", "poor"}
	cannedKeywords = []string{"technology", "development", "programming", "software", "web"}
)

// Mock 为离线、确定性的 provider。
type Mock struct {
	delay time.Duration
}

// NewMock 构建 Mock，delay 模拟生成耗时。
func NewMock(delay time.Duration) *Mock {
	return &Mock{delay: delay}
}

func (m *Mock) GenerateText(ctx context.Context, req TextRequest) (string, error) {
	if m.delay > 0 {
		timer := time.NewTimer(m.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
		}
	}
	return fmt.Sprintf("This is a mock AI response to the prompt: '%s...'", truncateRunes(req.Prompt, 50)), nil
}

// AnalyzeSentiment 按关键词做朴素匹配，正向词优先。
func (m *Mock) AnalyzeSentiment(_ context.Context, text string) (Sentiment, error) {
	return mockSentiment(text), nil
}

func (m *Mock) ExtractKeywords(_ context.Context, _ string) ([]string, error) {
	keywords := make([]string, len(cannedKeywords))
	copy(keywords, cannedKeywords)
	return keywords, nil
}

func mockSentiment(text string) Sentiment {
	lower := strings.ToLower(text)
	for _, word := range positiveWords {
		if strings.Contains(lower, word) {
			return Sentiment{Label: "POSITIVE", Confidence: 0.85}
		}
	}
	for _, word := range negativeWords {
		if strings.Contains(lower, word) {
			return Sentiment{Label: "NEGATIVE", Confidence: 0.80}
		}
	}
	return Sentiment{Label: "NEUTRAL", Confidence: 0.70}
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
