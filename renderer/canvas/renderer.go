package canvasrenderer

import (
	"bytes"
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"

	"github.com/ByLCY/chordline/fonts"
	"github.com/ByLCY/chordline/layout"
	"github.com/ByLCY/chordline/renderer"
)

// DefaultMargin is the page margin in millimetres when Options.Margin is zero.
const DefaultMargin = 15.0

// titleScale 为标题字号相对歌词字号的倍数。
const titleScale = 1.6

// Renderer draws chord layouts to a single PDF page via github.com/tdewolff/canvas.
// It also serves as the layout.Typesetter (greedy paragraph reflow) and the
// layout.Measurer (ink bounds through fonts.Measurer) for the same fonts it draws with.
type Renderer struct {
	baseDir string
	margin  float64

	// injected resources
	fontBlobs map[string][]byte // by unique name

	fontMu         sync.Mutex
	fontFamilies   map[string]*fontFamilyEntry
	fallbackFamily *canvas.FontFamily

	measurer *fonts.Measurer
}

var (
	_ renderer.Backend  = (*Renderer)(nil)
	_ layout.Typesetter = (*Renderer)(nil)
	_ layout.Measurer   = (*Renderer)(nil)
)

type fontFamilyEntry struct {
	family *canvas.FontFamily
	style  canvas.FontStyle
}

// Options configures the canvas renderer.
type Options struct {
	BaseDir string
	Margin  float64             // mm
	Fonts   map[string]Resource // fonts accessible via built-in:<name>
}

// Resource can be provided either by Bytes or by Path.
type Resource struct {
	Bytes []byte
	Path  string
}

// NewRenderer creates a canvas-based renderer rooted at baseDir for resolving font paths.
func NewRenderer(baseDir string) *Renderer { return NewRendererWithOptions(Options{BaseDir: baseDir}) }

// NewRendererWithOptions creates a renderer with injected fonts and optional baseDir.
func NewRendererWithOptions(opts Options) *Renderer {
	r := &Renderer{
		baseDir:      opts.BaseDir,
		margin:       opts.Margin,
		fontBlobs:    map[string][]byte{},
		fontFamilies: map[string]*fontFamilyEntry{},
	}
	if r.margin <= 0 {
		r.margin = DefaultMargin
	}
	for name, res := range opts.Fonts {
		if name == "" {
			continue
		}
		if len(res.Bytes) > 0 {
			r.fontBlobs[name] = res.Bytes
			continue
		}
		if res.Path != "" {
			data, _ := os.ReadFile(res.Path) // 读取失败时在实际使用处报错
			if len(data) > 0 {
				r.fontBlobs[name] = data
			}
		}
	}
	r.measurer = fonts.NewMeasurer(r.loadFontBytes)
	return r
}

// Measure 实现 layout.Measurer：与绘制使用同一份字体数据，尺寸单位为 mm。
func (r *Renderer) Measure(text string, font layout.FontResource, size float64) (layout.Metrics, error) {
	return r.measurer.Measure(text, font, size)
}

// PageSize returns the page size in millimetres for result: the layout box plus
// margins and the title block. Fragments overflowing the layout width widen the page.
func (r *Renderer) PageSize(result *layout.Result) (width, height float64) {
	content := math.Max(result.Width, 0)
	for _, f := range result.Fragments {
		content = math.Max(content, f.X+f.Width)
	}
	return content + 2*r.margin, r.headerHeight(result) + result.Height + 2*r.margin
}

// Render renders the result into a single-page PDF byte slice.
func (r *Renderer) Render(result *layout.Result) ([]byte, error) {
	if result == nil {
		return nil, fmt.Errorf("渲染结果为空")
	}
	width, height := r.PageSize(result)

	var buf bytes.Buffer
	writer := pdf.New(&buf, width, height, nil)
	r.applyMeta(writer, result.Meta)

	c := canvas.New(width, height)
	ctx := canvas.NewContext(c)
	ctx.SetCoordSystem(canvas.CartesianIV) // 使坐标与布局保持左上角为原点

	top, err := r.drawHeader(ctx, result)
	if err != nil {
		return nil, err
	}
	for _, f := range result.Fragments {
		if err := r.drawFragment(ctx, f, result, top); err != nil {
			return nil, err
		}
	}
	c.RenderTo(writer)

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("写入 PDF 失败: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) applyMeta(writer *pdf.PDF, meta map[string]string) {
	if writer == nil {
		return
	}
	keywords := strings.Join(nonEmpty(meta["key"], meta["capo"], meta["tempo"]), ", ")
	writer.SetInfo(meta["title"], meta["subtitle"], keywords, meta["artist"], "chordline")
}

func nonEmpty(values ...string) []string {
	out := values[:0]
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// headerLines 返回标题块中要绘制的行：标题与副标题（或作者）。
func headerLines(meta map[string]string) (title, sub string) {
	title = meta["title"]
	sub = meta["subtitle"]
	if sub == "" {
		sub = meta["artist"]
	}
	return title, sub
}

func (r *Renderer) headerHeight(result *layout.Result) float64 {
	title, sub := headerLines(result.Meta)
	h := 0.0
	if title != "" {
		h += result.Lyric.Size * titleScale * 1.4
	}
	if sub != "" {
		h += result.Lyric.Size * 1.4
	}
	if h > 0 {
		h += result.LineHeight
	}
	return h
}

// drawHeader 绘制标题块，返回正文顶部的 y（mm）。
func (r *Renderer) drawHeader(ctx *canvas.Context, result *layout.Result) (float64, error) {
	y := r.margin
	title, sub := headerLines(result.Meta)
	if title != "" {
		bold := result.Lyric.Font
		bold.Src, bold.Style = "", "bold"
		size := result.Lyric.Size * titleScale
		if err := r.drawText(ctx, title, r.margin, y, bold, size, result.Lyric.Color); err != nil {
			return 0, err
		}
		y += size * 1.4
	}
	if sub != "" {
		if err := r.drawText(ctx, sub, r.margin, y, result.Lyric.Font, result.Lyric.Size, result.Chord.Color); err != nil {
			return 0, err
		}
		y += result.Lyric.Size * 1.4
	}
	if y > r.margin {
		y += result.LineHeight
	}
	return y, nil
}

func (r *Renderer) drawFragment(ctx *canvas.Context, f layout.Fragment, result *layout.Result, top float64) error {
	style := result.Lyric
	if f.IsChord {
		style = result.Chord
	}
	if style.Size <= 0 {
		style.Size = result.Lyric.Size
	}
	return r.drawText(ctx, f.Text, r.margin+f.X, top+f.Y, style.Font, style.Size, style.Color)
}

// drawText 在 (x, y) 处绘制一行文本，y 为文字带顶部；字号为 mm，创建字体面时换算为 pt。
func (r *Renderer) drawText(ctx *canvas.Context, text string, x, y float64, font layout.FontResource, size float64, col layout.Color) error {
	if text == "" {
		return nil
	}
	face, err := r.fontFace(font, toPt(size), col)
	if err != nil {
		return err
	}
	// 基线位置：文字带顶部加上字体上升部（Ascent）
	baseline := y + face.Metrics().Ascent
	ctx.DrawText(x, baseline, canvas.NewTextLine(face, text, canvas.Left))
	return nil
}

// LayoutLines 实现 layout.Typesetter 接口，隐藏和弦时用它重排纯歌词；wrap 为 "nowrap" 时只按显式换行分行。
// 约定：fontSize/lineHeight 入参均为毫米（mm）。渲染器内部与字体系统交互使用 pt，并在边界做 mm↔pt 换算。
func (r *Renderer) LayoutLines(content string, width float64, font layout.FontResource, fontSize, lineHeight float64, wrap string) ([]layout.TextLine, error) {
	face, err := r.fontFace(font, toPt(fontSize), layout.DefaultLyricColor)
	if err != nil {
		return nil, err
	}

	lines := reflow(content, width, face, wrap)
	textHeight := face.Metrics().LineHeight
	if textHeight <= 0 {
		textHeight = lineHeight
	}
	leading := math.Max(lineHeight-textHeight, 0)
	if len(lines) == 0 {
		lines = []layout.TextLine{{Height: textHeight}}
	}
	for i := range lines {
		if lines[i].Height <= 0 {
			lines[i].Height = textHeight
		}
		if i > 0 {
			lines[i].GapBefore = leading
		}
	}
	return lines, nil
}

func (r *Renderer) fontFace(font layout.FontResource, size float64, col layout.Color) (*canvas.FontFace, error) {
	family, style, err := r.ensureFontFamily(font)
	if err != nil {
		return nil, err
	}
	return family.Face(size, colorFromLayout(col), style, canvas.FontNormal), nil
}

func (r *Renderer) ensureFontFamily(font layout.FontResource) (*canvas.FontFamily, canvas.FontStyle, error) {
	key := fontCacheKey(font)
	r.fontMu.Lock()
	defer r.fontMu.Unlock()

	if entry, ok := r.fontFamilies[key]; ok {
		return entry.family, entry.style, nil
	}

	style := parseFontStyle(font.Style)
	familyName := font.Family
	if familyName == "" {
		familyName = font.Name
	}
	if familyName == "" {
		familyName = "Lyric"
	}
	family := canvas.NewFontFamily(familyName)

	data, err := r.loadFontBytes(font)
	if err == nil {
		err = family.LoadFont(data, 0, style)
	}
	if err != nil {
		fallback, fbStyle, fbErr := r.fallback()
		if fbErr != nil {
			return nil, canvas.FontRegular, err
		}
		r.fontFamilies[key] = &fontFamilyEntry{family: fallback, style: fbStyle}
		return fallback, fbStyle, nil
	}

	entry := &fontFamilyEntry{family: family, style: style}
	r.fontFamilies[key] = entry
	return family, style, nil
}

// loadFontBytes 解析字体来源：空 src 按样式选内置 Go 字体，built-in: 取注入的字体，
// embed: 取内置字体，其余按 baseDir 解析为文件路径。
func (r *Renderer) loadFontBytes(font layout.FontResource) ([]byte, error) {
	src := font.Src
	if src == "" {
		src = fonts.ForStyle(font.Style)
	}
	if strings.HasPrefix(src, "built-in:") || strings.HasPrefix(src, "builtin:") {
		name := strings.TrimPrefix(strings.TrimPrefix(src, "built-in:"), "builtin:")
		if blob, ok := r.fontBlobs[name]; ok {
			return blob, nil
		}
		return nil, fmt.Errorf("找不到内置字体资源 built-in:%s", name)
	}
	if fonts.IsEmbedded(src) {
		return fonts.Load(src)
	}
	path := src
	if r.baseDir == "" && !filepath.IsAbs(path) {
		return nil, fmt.Errorf("未指定资源目录时不允许直接使用字体路径：%s（请改用 built-in: 或 embed:）", src)
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(r.baseDir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取字体 %s 失败: %w", path, err)
	}
	return data, nil
}

func (r *Renderer) fallback() (*canvas.FontFamily, canvas.FontStyle, error) {
	if r.fallbackFamily != nil {
		return r.fallbackFamily, canvas.FontRegular, nil
	}
	data, err := fonts.Load(fonts.Default)
	if err != nil {
		return nil, canvas.FontRegular, err
	}
	family := canvas.NewFontFamily("chordline-fallback")
	if err := family.LoadFont(data, 0, canvas.FontRegular); err != nil {
		return nil, canvas.FontRegular, err
	}
	r.fallbackFamily = family
	return family, canvas.FontRegular, nil
}

// parseFontStyle maps style words such as "bold" or "semibold italic" to a canvas style.
func parseFontStyle(style string) canvas.FontStyle {
	s := strings.ToLower(style)
	weights := []struct {
		word  string
		style canvas.FontStyle
	}{
		{"black", canvas.FontBlack},
		{"extrabold", canvas.FontExtraBold},
		{"semibold", canvas.FontSemiBold},
		{"bold", canvas.FontBold},
		{"medium", canvas.FontMedium},
		{"light", canvas.FontLight},
	}
	result := canvas.FontRegular
	for _, w := range weights {
		if strings.Contains(s, w.word) {
			result = w.style
			break
		}
	}
	if strings.Contains(s, "italic") || strings.Contains(s, "oblique") {
		result |= canvas.FontItalic
	}
	return result
}

func fontCacheKey(font layout.FontResource) string {
	return fmt.Sprintf("%s|%s|%s|%s", font.Name, font.Src, font.Style, font.Family)
}

func colorFromLayout(c layout.Color) color.Color {
	return canvas.RGBA(float64(c.R)/255.0, float64(c.G)/255.0, float64(c.B)/255.0, 1.0)
}

// toPt 将毫米(mm)转换为点(pt)。
func toPt(mm float64) float64 { return mm * layout.MmToPt }

// reflow 按显式换行分段，段内以空格为断点贪心折行；宽度单位为 mm，与 canvas 的 TextWidth 一致。
// 整行测量而非累加词宽，恰好等宽的行不会被误折。
func reflow(content string, width float64, face *canvas.FontFace, wrap string) []layout.TextLine {
	limit := width
	if limit <= 0 {
		limit = math.MaxFloat64
	}
	var lines []layout.TextLine
	emit := func(s string) {
		lines = append(lines, layout.TextLine{Content: s, Width: face.TextWidth(s)})
	}
	for _, para := range strings.Split(strings.ReplaceAll(content, "\r", ""), "\n") {
		if wrap == "nowrap" {
			emit(strings.TrimRight(para, " \t"))
			continue
		}
		cur := ""
		for _, word := range strings.Fields(para) {
			for _, chunk := range splitByWidth(word, limit, face) {
				next := chunk
				if cur != "" {
					next = cur + " " + chunk
				}
				if cur != "" && face.TextWidth(next) > limit {
					emit(cur)
					next = chunk
				}
				cur = next
			}
		}
		emit(cur)
	}
	return lines
}

// splitByWidth 把单个放不下的词按字符拆成不超过 limit 的若干段。
func splitByWidth(word string, limit float64, face *canvas.FontFace) []string {
	if limit == math.MaxFloat64 || face.TextWidth(word) <= limit {
		return []string{word}
	}
	var parts []string
	runes := []rune(word)
	start := 0
	for i := 1; i <= len(runes); i++ {
		if i-start > 1 && face.TextWidth(string(runes[start:i])) > limit {
			parts = append(parts, string(runes[start:i-1]))
			start = i - 1
		}
	}
	return append(parts, string(runes[start:]))
}

// Extension implements renderer.Backend.
func (r *Renderer) Extension() string { return ".pdf" }
