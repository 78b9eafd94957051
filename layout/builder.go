package layout

import (
	"fmt"
	"log/slog"
	"maps"
	"math"
	"strings"
)

// Build 将带 [和弦] 标记的文本排版为按放置顺序排列的片段。
// 流程：分词 → 放置/折行/边界修复（单趟）→ 可选的和弦居中 → 行高压缩。
// HideChords 时绕过整个流程，去掉和弦后交给 Typesetter 做普通段落重排。
// 只有当前行已有内容（x > 0）时才折行：比整行还宽的词放在行首直接溢出，不会先开一个空行。
func Build(text string, opts BuildOptions) (*Result, error) {
	if opts.HideChords {
		return buildPlain(text, opts)
	}
	if opts.Measurer == nil {
		return nil, ErrNoMeasurer
	}

	b := &lineBuilder{
		width:    opts.Width,
		lyric:    opts.Lyric,
		chord:    opts.Chord,
		measurer: opts.Measurer,
		log:      opts.logger(),
		lines:    [][]Fragment{nil},
	}
	if b.width <= 0 {
		b.width = math.MaxFloat64
	}
	if b.chord.Size <= 0 {
		b.chord.Size = b.lyric.Size
	}
	if b.chord.Font == (FontResource{}) {
		b.chord.Font = b.lyric.Font
	}

	cur, err := b.newCursor(opts.lineHeight())
	if err != nil {
		return nil, err
	}
	if err := b.run(cur, Tokenize(text)); err != nil {
		return nil, err
	}

	if opts.CenterChords {
		if err := centerChords(b.lines, b.measurer, b.lyric); err != nil {
			return nil, fmt.Errorf("和弦居中失败: %w", err)
		}
	}
	deficit := compactLines(b.lines, cur.lineHeight)
	frags := flatten(b.lines)

	height := 0.0
	if len(frags) > 0 {
		height = 2*cur.lineHeight*float64(len(b.lines)) - deficit
	}
	b.log.Debug("layout done", "fragments", len(frags), "lines", len(b.lines), "height", height)

	return &Result{
		Mode:       ResultModeChords,
		Fragments:  frags,
		Width:      opts.Width,
		Height:     height,
		LineHeight: cur.lineHeight,
		Lines:      len(b.lines),
		Lyric:      b.lyric,
		Chord:      b.chord,
		Meta:       maps.Clone(opts.Meta),
	}, nil
}

// cursor 是一次 Build 内唯一的可变排版游标，按指针在各放置步骤间传递，不跨调用复用。
type cursor struct {
	mode       Mode
	x          float64
	y          float64
	lineHeight float64
	spaceWidth float64
}

type lineBuilder struct {
	width    float64
	lyric    TextStyle
	chord    TextStyle
	measurer Measurer
	log      *slog.Logger
	// lines 是按行分组的片段存储；居中与压缩阶段直接改写其中的坐标。
	lines [][]Fragment
}

func (b *lineBuilder) newCursor(lineHeight float64) (*cursor, error) {
	sw, err := b.spaceWidth()
	if err != nil {
		return nil, err
	}
	return &cursor{
		mode:       ModePlain,
		y:          lineHeight,
		lineHeight: lineHeight,
		spaceWidth: sw,
	}, nil
}

// spaceWidth 用 "x x" 与 "x" 的差推算空格宽度：测量后端不计首尾空格。
func (b *lineBuilder) spaceWidth() (float64, error) {
	pair, err := b.measurer.Measure("x x", b.lyric.Font, b.lyric.Size)
	if err != nil {
		return 0, fmt.Errorf("测量空格宽度失败: %w", err)
	}
	single, err := b.measurer.Measure("x", b.lyric.Font, b.lyric.Size)
	if err != nil {
		return 0, fmt.Errorf("测量空格宽度失败: %w", err)
	}
	return pair.Width - 2*single.Width, nil
}

func (b *lineBuilder) run(cur *cursor, segs []Segment) error {
	for _, seg := range segs {
		cur.mode = seg.Kind
		for si, words := range seg.Slices() {
			if si > 0 {
				b.newLine(cur)
			}
			for _, w := range words {
				if w.Empty {
					continue
				}
				if err := b.placeWord(cur, w, words); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// placeWord 决定词两侧的空格、判断是否折行，然后放置该词。
func (b *lineBuilder) placeWord(cur *cursor, w Word, words []Word) error {
	n := len(words)
	plain := cur.mode == ModePlain
	// 结尾空词说明紧跟着一个和弦边界，空格要跟着这个词一起测量。
	postfix := plain && w.Index == n-2 && words[n-1].Empty
	// 首词为空说明和弦出现在短语中间，切分括号时吃掉的空格要补回来。
	afterChordGap := w.Index == 1 && words[0].Empty
	prefix := plain && cur.x > 0 && (b.lastIsPlain() || afterChordGap)

	text := w.Text
	if prefix {
		text = " " + text
	}
	if postfix {
		text += " "
	}

	width, _, err := b.extent(cur, strings.TrimRight(text, " "))
	if err != nil {
		return err
	}
	if cur.x > 0 && width+cur.x > b.width {
		b.log.Debug("line break", "word", text, "mode", cur.mode.String(), "x", cur.x, "width", width)
		b.newLine(cur)
		if err := b.repair(cur); err != nil {
			return err
		}
		text = strings.TrimLeft(text, " ")
	}
	return b.place(cur, text)
}

// place 在游标处生成一个片段：和弦浮在文字带上方且不占水平空间，歌词推进 x。
func (b *lineBuilder) place(cur *cursor, text string) error {
	width, right, err := b.extent(cur, text)
	if err != nil {
		return err
	}
	idx := len(b.lines) - 1
	f := Fragment{
		IsChord: cur.mode == ModeChord,
		Text:    text,
		X:       cur.x,
		Y:       cur.y,
		Width:   width,
		Line:    idx,
	}
	if f.IsChord {
		f.Y -= cur.lineHeight
	} else {
		cur.x += right
	}
	b.lines[idx] = append(b.lines[idx], f)
	b.log.Debug("place", "text", text, "chord", f.IsChord, "x", f.X, "y", f.Y)
	return nil
}

// extent 返回文本的占用宽度与右边界，首尾空格按 spaceWidth 补足。
func (b *lineBuilder) extent(cur *cursor, text string) (width, right float64, err error) {
	style := b.lyric
	if cur.mode == ModeChord {
		style = b.chord
	}
	m, err := b.measurer.Measure(text, style.Font, style.Size)
	if err != nil {
		return 0, 0, fmt.Errorf("测量 %q 失败: %w", text, err)
	}
	width = m.Width
	right = m.RightExtent
	if strings.HasPrefix(text, " ") {
		width += cur.spaceWidth
	}
	if strings.HasSuffix(text, " ") {
		width += cur.spaceWidth
		right += cur.spaceWidth
	}
	return width, right, nil
}

func (b *lineBuilder) newLine(cur *cursor) {
	cur.y += 2 * cur.lineHeight
	cur.x = 0
	b.lines = append(b.lines, nil)
}

func (b *lineBuilder) lastIsPlain() bool {
	for i := len(b.lines) - 1; i >= 0; i-- {
		if line := b.lines[i]; len(line) > 0 {
			return !line[len(line)-1].IsChord
		}
	}
	return false
}

// repair 在折行后把刚结束的行末尾的和弦+词组整体挪到新行，保证和弦与它修饰的词不被拆开。
func (b *lineBuilder) repair(cur *cursor) error {
	closedIdx := len(b.lines) - 2
	if closedIdx < 0 {
		return nil
	}
	closed := b.lines[closedIdx]
	if len(closed) == 0 {
		return nil
	}
	last := closed[len(closed)-1]

	// A: 歌词放不下，而上一行以和弦结尾；B: 和弦放不下，而上一行以无结尾空格的歌词结尾（和弦在词中间）。
	caseA := cur.mode == ModePlain && last.IsChord
	caseB := cur.mode == ModeChord && !last.IsChord && !strings.HasSuffix(last.Text, " ")
	if !caseA && !caseB {
		return nil
	}

	// 从行尾向前收集：和弦总是跟着走；歌词片段只有在与后一个片段同属一个词时才跟着走
	// （自身不以空格结尾，后一个片段也不以空格开头）。
	start := len(closed)
	var next *Fragment
	for start > 0 {
		f := &closed[start-1]
		joined := !strings.HasSuffix(f.Text, " ") && (next == nil || !strings.HasPrefix(next.Text, " "))
		if !f.IsChord && !joined {
			break
		}
		next = f
		start--
	}

	moved := append([]Fragment(nil), closed[start:]...)
	b.lines[closedIdx] = closed[:start]
	b.log.Debug("relocate", "count", len(moved), "from", closedIdx)

	mode := cur.mode
	for _, f := range moved {
		cur.mode = ModePlain
		if f.IsChord {
			cur.mode = ModeChord
		}
		text := f.Text
		if !f.IsChord && cur.x == 0 {
			text = strings.TrimLeft(text, " ")
		}
		if err := b.place(cur, text); err != nil {
			return err
		}
	}
	cur.mode = mode
	return nil
}

func flatten(lines [][]Fragment) []Fragment {
	n := 0
	for _, line := range lines {
		n += len(line)
	}
	out := make([]Fragment, 0, n)
	for _, line := range lines {
		out = append(out, line...)
	}
	return out
}
