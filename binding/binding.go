package binding

import (
	"regexp"
	"strings"
)

var exprPattern = regexp.MustCompile(`%\{([^}|\n]*)(?:\|([^}\n]*))?\}`)

// Interpolate 将文本中的 %{key} 替换为 meta 中的值，键名不区分大小写。
// %{key|fallback} 在键不存在或值为空时使用 fallback；没有 fallback 时保留原占位符。
func Interpolate(text string, meta map[string]string) string {
	if !strings.Contains(text, "%{") {
		return text
	}
	return exprPattern.ReplaceAllStringFunc(text, func(match string) string {
		groups := exprPattern.FindStringSubmatch(match)
		key := strings.ToLower(strings.TrimSpace(groups[1]))
		if key == "" {
			return match
		}
		if val, ok := meta[key]; ok && val != "" {
			return val
		}
		if strings.Contains(match, "|") {
			return groups[2]
		}
		return match
	})
}

// InterpolateMeta 对元信息自身做一轮替换，例如 {subtitle: %{artist} 作品}。
// 只做一轮，值中互相引用不会递归展开。
func InterpolateMeta(meta map[string]string) map[string]string {
	out := make(map[string]string, len(meta))
	for k, v := range meta {
		out[k] = Interpolate(v, meta)
	}
	return out
}
