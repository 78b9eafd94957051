package layout

import (
	"math"
	"testing"
)

func TestPtMmRoundTrip(t *testing.T) {
	for _, v := range []float64{0, 0.001, 1, 12, 14.4, 72, 1000} {
		if back := v * PtToMm * MmToPt; math.Abs(back-v) > 1e-9 {
			t.Fatalf("pt→mm→pt 往返误差过大: in=%g back=%g", v, back)
		}
		if back := v * MmToPt * PtToMm; math.Abs(back-v) > 1e-9 {
			t.Fatalf("mm→pt→mm 往返误差过大: in=%g back=%g", v, back)
		}
	}
}

// TestLengthConversions 覆盖命令行常见写法（页面宽度、字号）到 mm/pt 的换算。
func TestLengthConversions(t *testing.T) {
	cases := []struct {
		in     string
		mm, pt float64
	}{
		{"7in", 7 * 25.4, 7 * 25.4 * MmToPt},
		{"18cm", 180, 180 * MmToPt},
		{"12pt", 12 * PtToMm, 12},
		{"180mm", 180, 180 * MmToPt},
		{"180", 180, 180 * MmToPt},
	}
	for _, c := range cases {
		l, err := ParseLength(c.in)
		if err != nil {
			t.Fatalf("%q 解析失败: %v", c.in, err)
		}
		if got := l.ToMM(); math.Abs(got-c.mm) > 1e-9 {
			t.Fatalf("%q 转 mm 期望 %g，实际 %g", c.in, c.mm, got)
		}
		if got := l.ToPT(); math.Abs(got-c.pt) > 1e-9 {
			t.Fatalf("%q 转 pt 期望 %g，实际 %g", c.in, c.pt, got)
		}
	}
}

// TestLineHeightResolve 验证倍数与绝对值两种行高在 mm 下的解析结果。
func TestLineHeightResolve(t *testing.T) {
	size := Length{Value: 12, Unit: UnitPT}
	cases := []struct {
		spec LineHeightSpec
		want float64
	}{
		{LineHeightSpec{Kind: LineHeightFactor, Factor: 1.2}, 12 * 1.2 * PtToMm},
		{LineHeightSpec{Kind: LineHeightFactor}, 12 * PtToMm * 1.4},
		{LineHeightSpec{Kind: LineHeightAbsolute, Len: Length{Value: 18, Unit: UnitPT}}, 18 * PtToMm},
		{LineHeightSpec{Kind: LineHeightAbsolute, Len: Length{Value: 6, Unit: UnitMM}}, 6},
	}
	for _, c := range cases {
		if got := c.spec.Resolve(size, UnitMM); math.Abs(got-c.want) > 1e-9 {
			t.Fatalf("%+v 解析为 mm 错误: got=%g want=%g", c.spec, got, c.want)
		}
	}
}

// TestParseLineHeight 覆盖倍数、裸数字与绝对长度三种写法。
func TestParseLineHeight(t *testing.T) {
	cases := []struct {
		in   string
		kind LineHeightKind
		want float64 // 12pt 字号下解析为 mm 的结果
	}{
		{"1.5x", LineHeightFactor, 12 * PtToMm * 1.5},
		{"2", LineHeightFactor, 12 * PtToMm * 2},
		{"", LineHeightFactor, 12 * PtToMm * 1.4},
		{"8mm", LineHeightAbsolute, 8},
		{"18pt", LineHeightAbsolute, 18 * PtToMm},
	}
	fontSize := Length{Value: 12, Unit: UnitPT}
	for _, c := range cases {
		spec, err := ParseLineHeight(c.in)
		if err != nil {
			t.Fatalf("%q 解析失败: %v", c.in, err)
		}
		if spec.Kind != c.kind {
			t.Fatalf("%q 类型错误: got=%v want=%v", c.in, spec.Kind, c.kind)
		}
		if got := spec.Resolve(fontSize, UnitMM); math.Abs(got-c.want) > 1e-9 {
			t.Fatalf("%q 解析为 mm 错误: got=%g want=%g", c.in, got, c.want)
		}
	}
	for _, bad := range []string{"-1x", "abc", "0"} {
		if _, err := ParseLineHeight(bad); err == nil {
			t.Fatalf("%q 应解析失败", bad)
		}
	}
}

// TestLengthUnmarshalText 验证命令行长度参数可直接解码。
func TestLengthUnmarshalText(t *testing.T) {
	var l Length
	if err := l.UnmarshalText([]byte("180mm")); err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if l.Unit != UnitMM || l.Value != 180 || l.String() != "180mm" {
		t.Fatalf("长度解析错误: %#v", l)
	}
	if err := l.UnmarshalText([]byte("wide")); err == nil {
		t.Fatalf("非法长度应返回错误")
	}
	if got := ParseRawLengthStr("wide"); got != (Length{}) {
		t.Fatalf("ParseRawLengthStr 非法输入应返回零值，实际 %#v", got)
	}
}

func TestParseColor(t *testing.T) {
	cases := map[string]Color{
		"#2154c9":  {R: 0x21, G: 0x54, B: 0xc9},
		"#fff":     {R: 255, G: 255, B: 255},
		"000000ff": {},
	}
	for in, want := range cases {
		got, err := ParseColor(in)
		if err != nil {
			t.Fatalf("%q 解析失败: %v", in, err)
		}
		if got != want {
			t.Fatalf("%q 解析错误: got=%#v want=%#v", in, got, want)
		}
	}
	for _, bad := range []string{"#12", "#12345", "#zzzzzz", ""} {
		if _, err := ParseColor(bad); err == nil {
			t.Fatalf("%q 应解析失败", bad)
		}
	}
}
