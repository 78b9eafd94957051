package layout

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Segment 是两个括号边界之间同一类型（和弦或歌词）的最长片段。
type Segment struct {
	Kind Mode
	Text string
}

// Word 是按单个空格切分后的词，Index 为其在所在切片中的下标。
type Word struct {
	Text  string
	Index int
	Empty bool
}

// Tokenize 按 [ 与 ] 切分带和弦标记的文本。
// 文本以 [ 开头时首段为和弦，之后和弦/歌词严格交替；括号不做合法性校验。
func Tokenize(text string) []Segment {
	text = norm.NFC.String(text)
	kind := ModePlain
	if strings.HasPrefix(text, "[") {
		kind = ModeChord
		text = text[1:]
	}
	parts := splitBrackets(text)
	segs := make([]Segment, 0, len(parts))
	for _, p := range parts {
		segs = append(segs, Segment{Kind: kind, Text: p})
		kind = kind.toggle()
	}
	return segs
}

func splitBrackets(text string) []string {
	var parts []string
	start := 0
	for i := 0; i < len(text); i++ {
		if text[i] == '[' || text[i] == ']' {
			parts = append(parts, text[start:i])
			start = i + 1
		}
	}
	return append(parts, text[start:])
}

// Slices 将片段按换行拆开，再把每个不含换行的切片按单个空格拆成词。
func (s Segment) Slices() [][]Word {
	lines := strings.Split(s.Text, "\n")
	out := make([][]Word, len(lines))
	for li, line := range lines {
		line = strings.TrimSuffix(line, "\r")
		raw := strings.Split(line, " ")
		words := make([]Word, len(raw))
		for i, w := range raw {
			words[i] = Word{Text: w, Index: i, Empty: w == ""}
		}
		out[li] = words
	}
	return out
}

var (
	ErrUnbalancedBracket = errors.New("和弦括号不成对")
	ErrNestedBracket     = errors.New("和弦括号嵌套")
)

// CheckBrackets 报告嵌套或不成对的括号，只做检查不做修复。
func CheckBrackets(text string) error {
	open := -1
	line := 1
	for i, r := range text {
		switch r {
		case '\n':
			line++
		case '[':
			if open >= 0 {
				return fmt.Errorf("第 %d 行偏移 %d: %w", line, i, ErrNestedBracket)
			}
			open = i
		case ']':
			if open < 0 {
				return fmt.Errorf("第 %d 行偏移 %d: %w", line, i, ErrUnbalancedBracket)
			}
			open = -1
		}
	}
	if open >= 0 {
		return fmt.Errorf("偏移 %d 处的 [ 没有闭合: %w", open, ErrUnbalancedBracket)
	}
	return nil
}
