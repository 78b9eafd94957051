package layout

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"
)

// centerChords 把紧贴在词前（中间没有空格）的和弦左移，使其居中于后一个词的首字符上方。
// 从最后一行的最后一个片段倒序处理；位移只向左且 x 不小于 0。
func centerChords(lines [][]Fragment, m Measurer, lyric TextStyle) error {
	for li := len(lines) - 1; li >= 0; li-- {
		line := lines[li]
		for i := len(line) - 1; i >= 0; i-- {
			chord := &line[i]
			if !chord.IsChord || i+1 >= len(line) {
				continue
			}
			next := line[i+1]
			if next.IsChord || next.Text == "" || strings.HasPrefix(next.Text, " ") {
				continue
			}
			first, _ := utf8.DecodeRuneInString(next.Text)
			fm, err := m.Measure(string(first), lyric.Font, lyric.Size)
			if err != nil {
				return fmt.Errorf("测量 %q 首字符失败: %w", next.Text, err)
			}
			shift := math.Max(0, (chord.Width-fm.Width)/2)
			chord.X = math.Max(0, chord.X-shift)
		}
	}
	return nil
}
