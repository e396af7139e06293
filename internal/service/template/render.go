package template

import (
	"fmt"
	"regexp"

	domain "github.com/zacharykka/blog-assistant/internal/domain"
)

var placeholderPattern = regexp.MustCompile(`\{([^{}]+)\}`)

// Render 校验必填变量后一次性替换所有 {name} 占位符。
// 替换结果不会被再次扫描；没有对应变量的占位符原样保留。
func Render(tpl *domain.PromptTemplate, vars map[string]string) (string, error) {
	var missing []string
	for _, name := range tpl.RequiredVariables {
		if _, ok := vars[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return "", &MissingVariablesError{Names: missing}
	}

	return placeholderPattern.ReplaceAllStringFunc(tpl.Body, func(token string) string {
		name := token[1 : len(token)-1]
		if value, ok := vars[name]; ok {
			return value
		}
		return token
	}), nil
}

// FallbackPrompt 在没有可用模板时使用。
func FallbackPrompt(vars map[string]string) string {
	topic := vars["topic"]
	if topic == "" {
		topic = "the given topic"
	}
	return "Generate content for: " + topic
}

// Stringify 将任意 JSON 值转换为替换所用的字符串。
func Stringify(values map[string]any) map[string]string {
	out := make(map[string]string, len(values))
	for key, value := range values {
		switch v := value.(type) {
		case nil:
			out[key] = ""
		case string:
			out[key] = v
		default:
			out[key] = fmt.Sprint(v)
		}
	}
	return out
}
