package layout

import (
	"fmt"
	"maps"
	"regexp"
)

// chordRun 匹配一个和弦标记（含空括号）及其后紧跟的水平空白。
var chordRun = regexp.MustCompile(`\[[^\]]*\][ \t]*`)

// StripChords 去掉所有和弦标记及其后紧跟的空白，换行保持不变。
func StripChords(text string) string {
	return chordRun.ReplaceAllString(text, "")
}

// buildPlain 是隐藏和弦模式：不走和弦排版流程，直接把去掉和弦后的文本交给宿主的段落重排。
func buildPlain(text string, opts BuildOptions) (*Result, error) {
	if opts.Typesetter == nil {
		return nil, ErrNoTypesetter
	}
	plain := StripChords(text)
	lineHeight := opts.lineHeight()
	lines, err := opts.Typesetter.LayoutLines(plain, opts.Width, opts.Lyric.Font, opts.Lyric.Size, lineHeight, "normal")
	if err != nil {
		return nil, fmt.Errorf("段落重排失败: %w", err)
	}

	frags := make([]Fragment, 0, len(lines))
	y := 0.0
	for i, ln := range lines {
		y += ln.GapBefore
		if ln.Content != "" {
			frags = append(frags, Fragment{Text: ln.Content, X: 0, Y: y, Width: ln.Width, Line: i})
		}
		h := ln.Height
		if h <= 0 {
			h = lineHeight
		}
		y += h
	}
	if len(frags) == 0 {
		y = 0
	}
	opts.logger().Debug("plain reflow done", "lines", len(lines), "height", y)

	return &Result{
		Mode:       ResultModePlain,
		Fragments:  frags,
		Width:      opts.Width,
		Height:     y,
		LineHeight: lineHeight,
		Lines:      len(lines),
		Lyric:      opts.Lyric,
		Chord:      opts.Chord,
		Text:       plain,
		Meta:       maps.Clone(opts.Meta),
	}, nil
}
