package rewrite

import (
	"encoding/json"
	"regexp"
	"strings"
)

const resultKey = "重写结果"

var resultPatterns = []*regexp.Regexp{
	// 完整 JSON 对象（双引号）
	regexp.MustCompile(`(?s)\{\s*"重写结果"\s*:\s*"((?:[^"\\]|\\.)*?)"\s*\}`),
	// 完整 JSON 对象（单引号）
	regexp.MustCompile(`(?s)\{\s*'重写结果'\s*:\s*'((?:[^'\\]|\\.)*?)'\s*\}`),
	// 宽松匹配
	regexp.MustCompile(`(?s)\{[^{]*?"重写结果"\s*:\s*"(.*?)"\s*\}`),
}

// extractRewriteResult 从模型响应里抽取重写结果。
// 模型不总是老实返回裸 JSON：可能包一层 markdown 代码块，
// 也可能在 JSON 前后夹带说明文字，逐级降级解析。
func extractRewriteResult(text string) (string, bool) {
	text = strings.TrimSpace(text)

	// markdown 代码块
	if strings.HasPrefix(text, "```") && strings.HasSuffix(text, "```") {
		lines := strings.Split(text, "\n")
		if len(lines) > 2 {
			text = strings.Join(lines[1:len(lines)-1], "\n")
		}
	}

	// 整体就是 JSON
	if result, ok := unmarshalResult(text); ok {
		return result, true
	}

	// 文本中嵌着 JSON
	if start, end := strings.Index(text, "{"), strings.LastIndex(text, "}"); start >= 0 && end > start {
		if result, ok := unmarshalResult(text[start : end+1]); ok {
			return result, true
		}
	}

	// 正则兜底
	for _, re := range resultPatterns {
		if m := re.FindStringSubmatch(text); m != nil && m[1] != "" {
			var unquoted string
			if err := json.Unmarshal([]byte(`"`+m[1]+`"`), &unquoted); err == nil {
				return unquoted, true
			}
			return m[1], true
		}
	}

	return "", false
}

func unmarshalResult(text string) (string, bool) {
	var data map[string]string
	if err := json.Unmarshal([]byte(text), &data); err != nil {
		return "", false
	}
	result, ok := data[resultKey]
	return result, ok && result != ""
}
