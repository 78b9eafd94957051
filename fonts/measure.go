package fonts

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"

	"github.com/ByLCY/chordline/layout"
)

// Loader resolves a font resource to its raw TrueType/OpenType bytes.
type Loader func(res layout.FontResource) ([]byte, error)

// LoadResource is the default Loader: empty Src picks a built-in face by Style,
// "embed:" sources come from Load, anything else is read from disk.
func LoadResource(res layout.FontResource) ([]byte, error) {
	src := res.Src
	if src == "" {
		src = ForStyle(res.Style)
	}
	if IsEmbedded(src) {
		return Load(src)
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return nil, fmt.Errorf("读取字体 %s 失败: %w", src, err)
	}
	return data, nil
}

// Measurer measures ink extents with golang.org/x/image faces.
// Sizes go in and metrics come out in millimetres; faces are built at 72 DPI so
// one pixel is one point. Leading spaces only shift LeftBearing and trailing
// spaces carry no ink, which is what layout.Build expects.
type Measurer struct {
	load Loader

	mu    sync.Mutex
	fonts map[string]*sfnt.Font
	faces map[faceKey]font.Face
}

type faceKey struct {
	src  string
	size float64
}

var _ layout.Measurer = (*Measurer)(nil)

// NewMeasurer returns a measurer resolving fonts through load (LoadResource when nil).
func NewMeasurer(load Loader) *Measurer {
	if load == nil {
		load = LoadResource
	}
	return &Measurer{
		load:  load,
		fonts: map[string]*sfnt.Font{},
		faces: map[faceKey]font.Face{},
	}
}

// Measure implements layout.Measurer.
func (m *Measurer) Measure(text string, res layout.FontResource, size float64) (layout.Metrics, error) {
	if size <= 0 {
		return layout.Metrics{}, fmt.Errorf("字号必须为正数: %g", size)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	face, err := m.face(res, size*layout.MmToPt)
	if err != nil {
		return layout.Metrics{}, err
	}
	bounds, _ := font.BoundString(face, text)
	fm := face.Metrics()

	left, right := toMM(bounds.Min.X), toMM(bounds.Max.X)
	if bounds.Empty() {
		left, right = 0, 0
	}
	return layout.Metrics{
		Width:       right - left,
		LeftBearing: left,
		RightExtent: right,
		Ascent:      toMM(fm.Ascent),
		Descent:     toMM(fm.Descent),
	}, nil
}

// Advance returns the pen advance of text in millimetres, spaces included.
func (m *Measurer) Advance(text string, res layout.FontResource, size float64) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	face, err := m.face(res, size*layout.MmToPt)
	if err != nil {
		return 0, err
	}
	return toMM(font.MeasureString(face, text)), nil
}

// face 返回缓存的字体面，调用方需持有 m.mu：opentype 的 Face 不可并发使用。
func (m *Measurer) face(res layout.FontResource, sizePt float64) (font.Face, error) {
	src := res.Src
	if src == "" {
		src = ForStyle(res.Style)
	}
	key := faceKey{src: src, size: sizePt}
	if f, ok := m.faces[key]; ok {
		return f, nil
	}
	sf, ok := m.fonts[src]
	if !ok {
		data, err := m.load(res)
		if err != nil {
			return nil, err
		}
		sf, err = opentype.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("解析字体 %s 失败: %w", src, err)
		}
		m.fonts[src] = sf
	}
	f, err := opentype.NewFace(sf, &opentype.FaceOptions{Size: sizePt, DPI: 72, Hinting: font.HintingNone})
	if err != nil {
		return nil, fmt.Errorf("创建字体面失败: %w", err)
	}
	m.faces[key] = f
	return f, nil
}

func toMM(v fixed.Int26_6) float64 {
	return float64(v) / 64 * layout.PtToMm
}
