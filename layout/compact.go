package layout

// compactLines 回收没有和弦的行预留的和弦带高度。
// 每遇到一个空行或无和弦行，累计差额增加 lineHeight，并从该行及之后所有行的 y 中扣除；差额单调不减。
// 返回最终的累计差额。
func compactLines(lines [][]Fragment, lineHeight float64) float64 {
	deficit := 0.0
	for _, line := range lines {
		if !hasChord(line) {
			deficit += lineHeight
		}
		for i := range line {
			line[i].Y -= deficit
		}
	}
	return deficit
}

func hasChord(line []Fragment) bool {
	for _, f := range line {
		if f.IsChord {
			return true
		}
	}
	return false
}
