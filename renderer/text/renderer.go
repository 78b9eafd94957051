// Package textrenderer lays out and draws chord sheets on a monospace cell grid.
// Every length is measured in terminal cells: wide runes take two cells and font
// sizes are ignored.
package textrenderer

import (
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/mattn/go-runewidth"

	"github.com/ByLCY/chordline/layout"
	"github.com/ByLCY/chordline/renderer"
)

// Renderer measures, reflows and draws text in cell units.
type Renderer struct {
	// Color wraps chords and the title in 24-bit ANSI colour escapes.
	Color bool
}

var _ renderer.Backend = (*Renderer)(nil)

// New returns a cell renderer; color enables ANSI escapes.
func New(color bool) *Renderer { return &Renderer{Color: color} }

// Extension implements renderer.Backend.
func (r *Renderer) Extension() string { return ".txt" }

// Measure 实现 layout.Measurer：以单元格为单位，前导空格只计入 LeftBearing，结尾空格不计。
func (r *Renderer) Measure(text string, font layout.FontResource, size float64) (layout.Metrics, error) {
	ink := strings.TrimRight(text, " ")
	body := strings.TrimLeft(ink, " ")
	left := float64(len(ink) - len(body))
	right := left + float64(runewidth.StringWidth(body))
	return layout.Metrics{
		Width:       right - left,
		LeftBearing: left,
		RightExtent: right,
		Ascent:      1,
	}, nil
}

// LayoutLines 实现 layout.Typesetter：按单元格宽度贪心折行，超长的词按字符拆开。
func (r *Renderer) LayoutLines(content string, width float64, font layout.FontResource, fontSize, lineHeight float64, wrap string) ([]layout.TextLine, error) {
	limit := int(math.Floor(width))
	if width <= 0 || width >= math.MaxInt32 {
		limit = math.MaxInt32
	}
	if lineHeight <= 0 {
		lineHeight = 1
	}
	var lines []layout.TextLine
	emit := func(s string) {
		s = strings.TrimRight(s, " ")
		lines = append(lines, layout.TextLine{Content: s, Width: float64(runewidth.StringWidth(s)), Height: lineHeight})
	}
	for _, para := range strings.Split(strings.ReplaceAll(content, "\r", ""), "\n") {
		if wrap == "nowrap" {
			emit(para)
			continue
		}
		var cur strings.Builder
		curW := 0
		for _, word := range strings.Fields(para) {
			for _, chunk := range splitCells(word, limit) {
				w := runewidth.StringWidth(chunk)
				if curW > 0 && curW+1+w > limit {
					emit(cur.String())
					cur.Reset()
					curW = 0
				}
				if curW > 0 {
					cur.WriteByte(' ')
					curW++
				}
				cur.WriteString(chunk)
				curW += w
			}
		}
		emit(cur.String())
	}
	return lines, nil
}

// splitCells 将超过 limit 个单元格的词拆成若干段。
func splitCells(word string, limit int) []string {
	if runewidth.StringWidth(word) <= limit {
		return []string{word}
	}
	var parts []string
	var b strings.Builder
	w := 0
	for _, r := range word {
		rw := runewidth.RuneWidth(r)
		if w > 0 && w+rw > limit {
			parts = append(parts, b.String())
			b.Reset()
			w = 0
		}
		b.WriteRune(r)
		w += rw
	}
	if b.Len() > 0 {
		parts = append(parts, b.String())
	}
	return parts
}

type cell struct {
	r     rune
	chord bool
	cont  bool // 宽字符的第二个单元格
}

// Render 实现 renderer.Renderer：片段按 Y/LineHeight 落到行，按 X 四舍五入落到列。
// 后绘制的片段覆盖先绘制的。
func (r *Renderer) Render(result *layout.Result) ([]byte, error) {
	if result == nil {
		return nil, fmt.Errorf("渲染结果为空")
	}
	lh := result.LineHeight
	if lh <= 0 {
		lh = 1
	}
	var grid [][]cell
	for _, f := range result.Fragments {
		row := int(math.Round(f.Y / lh))
		col := int(math.Round(f.X))
		if row < 0 || col < 0 {
			continue
		}
		for len(grid) <= row {
			grid = append(grid, nil)
		}
		grid[row] = put(grid[row], col, f.Text, f.IsChord)
	}

	var b strings.Builder
	if title := result.Meta["title"]; title != "" {
		b.WriteString(r.paint(title, layout.DefaultLyricColor, true))
		b.WriteString("\n")
		if sub := firstNonEmpty(result.Meta["subtitle"], result.Meta["artist"]); sub != "" {
			b.WriteString(sub)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	for _, line := range grid {
		b.WriteString(r.drawRow(line, result.Chord.Color))
		b.WriteString("\n")
	}
	return []byte(b.String()), nil
}

func put(line []cell, col int, text string, chord bool) []cell {
	for _, ch := range text {
		w := runewidth.RuneWidth(ch)
		if w == 0 {
			continue
		}
		for len(line) < col+w {
			line = append(line, cell{r: ' '})
		}
		line[col] = cell{r: ch, chord: chord}
		if w == 2 {
			line[col+1] = cell{chord: chord, cont: true}
		}
		col += w
	}
	return line
}

func (r *Renderer) drawRow(line []cell, chordColor layout.Color) string {
	var b strings.Builder
	var run strings.Builder
	inChord := false
	flush := func() {
		if run.Len() == 0 {
			return
		}
		if inChord {
			b.WriteString(r.paint(run.String(), chordColor, false))
		} else {
			b.WriteString(run.String())
		}
		run.Reset()
	}
	for _, c := range line {
		if c.cont {
			continue
		}
		chord := c.chord && !unicode.IsSpace(c.r)
		if chord != inChord {
			flush()
			inChord = chord
		}
		run.WriteRune(c.r)
	}
	flush()
	return strings.TrimRight(b.String(), " ")
}

func (r *Renderer) paint(s string, c layout.Color, bold bool) string {
	if !r.Color {
		return s
	}
	weight := ""
	if bold {
		weight = "1;"
	}
	return fmt.Sprintf("\x1b[%s38;2;%d;%d;%dm%s\x1b[0m", weight, c.R, c.G, c.B, s)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
