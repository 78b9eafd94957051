package fonts

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
)

// builtin 收录 Go 字体家族，名称不区分大小写。
var builtin = map[string][]byte{
	"go-regular":     goregular.TTF,
	"go-bold":        gobold.TTF,
	"go-italic":      goitalic.TTF,
	"go-bold-italic": gobolditalic.TTF,
	"go-mono":        gomono.TTF,
}

// Default 是未指定字体来源时使用的内置字体。
const Default = "embed:go-regular"

// Load 返回内置字体的字节数据，path 可写为 "embed:go-bold" 或直接 "go-bold"。
func Load(path string) ([]byte, error) {
	name := strings.ToLower(strings.TrimPrefix(path, "embed:"))
	name = strings.TrimSuffix(name, ".ttf")
	data, ok := builtin[name]
	if !ok {
		return nil, fmt.Errorf("读取内置字体 %s 失败: 可用字体为 %s", path, strings.Join(Names(), ", "))
	}
	return data, nil
}

// IsEmbedded 判断字体来源是否指向内置字体。
func IsEmbedded(src string) bool {
	return strings.HasPrefix(src, "embed:")
}

// Names 按字母序返回内置字体名称。
func Names() []string {
	out := make([]string, 0, len(builtin))
	for name := range builtin {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ForStyle 按样式（"bold"、"italic"、"bold italic"）挑选内置字体来源。
func ForStyle(style string) string {
	s := strings.ToLower(style)
	bold := strings.Contains(s, "bold")
	italic := strings.Contains(s, "italic") || strings.Contains(s, "oblique")
	switch {
	case bold && italic:
		return "embed:go-bold-italic"
	case bold:
		return "embed:go-bold"
	case italic:
		return "embed:go-italic"
	case strings.Contains(s, "mono"):
		return "embed:go-mono"
	default:
		return Default
	}
}
