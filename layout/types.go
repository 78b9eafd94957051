package layout

// 该文件定义排版结果与片段描述，供排版计算、渲染与调试 JSON 共用。

// Mode 表示当前游标放置的是和弦还是歌词。
type Mode int

const (
	ModePlain Mode = iota
	ModeChord
)

func (m Mode) String() string {
	if m == ModeChord {
		return "chord"
	}
	return "plain"
}

// toggle 在每个顶层片段结束后切换模式，与换行无关。
func (m Mode) toggle() Mode {
	if m == ModeChord {
		return ModePlain
	}
	return ModeChord
}

// Fragment 表示一个已经排好坐标的文本片段（和弦或歌词）。
// Text 与 IsChord 在创建后不再改变；X/Y 只会被居中与压缩两个阶段改写。
type Fragment struct {
	IsChord bool    `json:"isChord"`
	Text    string  `json:"text"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Width   float64 `json:"width"`
	Line    int     `json:"line"` // 逻辑行号（压缩前的行序号）
}

// Result 保存排版后的片段与绘制所需的样式。
type Result struct {
	Mode       string     `json:"mode"` // "chords" | "plain"
	Fragments  []Fragment `json:"fragments"`
	Width      float64    `json:"width"`
	Height     float64    `json:"height"`
	LineHeight float64    `json:"lineHeight"`
	Lines      int        `json:"lines"`
	Lyric      TextStyle  `json:"lyric"`
	Chord      TextStyle  `json:"chord"`
	// Text 仅在隐藏和弦模式下填写：去掉和弦标记后交给段落重排的原文。
	Text string            `json:"text,omitempty"`
	Meta map[string]string `json:"meta,omitempty"`
}

const (
	ResultModeChords = "chords"
	ResultModePlain  = "plain"
)

// TextStyle 描述一种文本（和弦或歌词）的字体、字号（mm）与颜色。
type TextStyle struct {
	Font  FontResource `json:"font"`
	Size  float64      `json:"size"`
	Color Color        `json:"color"`
}

// FontResource 描述字体资源，src 可以是文件路径、embed:* 内置字体或 builtin:* 注入字体。
type FontResource struct {
	Name   string `json:"name"`
	Src    string `json:"src"`
	Style  string `json:"style"`
	Family string `json:"family"`
}

// Color 采用 0-255 的 RGB 数值。
type Color struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

var (
	DefaultLyricColor = Color{R: 0, G: 0, B: 0}
	DefaultChordColor = Color{R: 33, G: 84, B: 201}
)

// Metrics 是测量后端返回的字形范围。
// Width/LeftBearing/RightExtent 采用墨迹范围语义：前导空格只体现在 LeftBearing 中，结尾空格不计入。
type Metrics struct {
	Width       float64 `json:"width"`
	LeftBearing float64 `json:"leftBearing"`
	RightExtent float64 `json:"rightExtent"`
	Ascent      float64 `json:"ascent"`
	Descent     float64 `json:"descent"`
}

// TextLine 表示段落重排后的一行文本内容及其宽高。
type TextLine struct {
	Content   string  `json:"content"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	GapBefore float64 `json:"gapBefore,omitempty"`
}

// Clone 返回结果的深拷贝，缓存的条目不会被调用方改写。
func (r *Result) Clone() *Result {
	if r == nil {
		return nil
	}
	out := *r
	out.Fragments = append([]Fragment(nil), r.Fragments...)
	if r.Meta != nil {
		out.Meta = make(map[string]string, len(r.Meta))
		for k, v := range r.Meta {
			out.Meta[k] = v
		}
	}
	return &out
}
