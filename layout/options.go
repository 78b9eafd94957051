package layout

import (
	"errors"
	"log/slog"
)

var (
	ErrNoMeasurer   = errors.New("layout: 缺少测量后端 Measurer")
	ErrNoTypesetter = errors.New("layout: 隐藏和弦模式缺少排版后端 Typesetter")
)

// BuildOptions 配置一次排版所需的依赖与开关。
type BuildOptions struct {
	// Width 为可用宽度（与测量后端同单位，画布渲染器为 mm）。
	Width float64
	// LineHeight 为单个文字带的高度；每个逻辑行预留两倍（和弦带 + 歌词带）。
	// 为 0 时按歌词字号的 1.4 倍计算。
	LineHeight float64

	Lyric TextStyle
	Chord TextStyle

	HideChords   bool
	CenterChords bool

	Measurer   Measurer
	Typesetter Typesetter
	Logger     *slog.Logger

	// Meta 原样写入 Result.Meta（歌曲标题等），不参与排版。
	Meta map[string]string
}

// Measurer 负责测量一段文本在给定字体下的字形范围。
type Measurer interface {
	Measure(text string, font FontResource, size float64) (Metrics, error)
}

// Typesetter 负责根据字体与宽度约束将文本拆成可绘制的行（宿主的普通段落重排）。
type Typesetter interface {
	LayoutLines(content string, width float64, font FontResource, fontSize float64, lineHeight float64, wrap string) ([]TextLine, error)
}

func (o BuildOptions) lineHeight() float64 {
	if o.LineHeight > 0 {
		return o.LineHeight
	}
	spec := LineHeightSpec{Kind: LineHeightFactor, Factor: defaultLineHeightFactor}
	return spec.Resolve(Length{Value: o.Lyric.Size, Unit: UnitMM}, UnitMM)
}

func (o BuildOptions) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.New(slog.DiscardHandler)
}

// ClampScale 将缩放倍数限制在 [MinScale, MaxScale] 内；非正数视为 1。
func ClampScale(scale float64) float64 {
	switch {
	case scale <= 0:
		return 1
	case scale < MinScale:
		return MinScale
	case scale > MaxScale:
		return MaxScale
	default:
		return scale
	}
}

const (
	MinScale = 0.5
	MaxScale = 3.0

	defaultLineHeightFactor = 1.4
)

// Scaled 返回字号与行高按 scale 缩放后的选项副本。
func (o BuildOptions) Scaled(scale float64) BuildOptions {
	s := ClampScale(scale)
	o.Lyric.Size *= s
	o.Chord.Size *= s
	o.LineHeight *= s
	return o
}
