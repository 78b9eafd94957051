package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/ByLCY/chordline/binding"
	"github.com/ByLCY/chordline/dsl"
	"github.com/ByLCY/chordline/fonts"
	"github.com/ByLCY/chordline/layout"
	"github.com/ByLCY/chordline/renderer"
	canvasrenderer "github.com/ByLCY/chordline/renderer/canvas"
	textrenderer "github.com/ByLCY/chordline/renderer/text"
)

// CLI 定义命令行；--config 指向的 JSON 文件可以为任意参数提供默认值。
type CLI struct {
	Config    kong.ConfigFlag `name:"config" short:"c" help:"JSON 配置文件"`
	LogLevel  string          `name:"log-level" enum:"debug,info,warn,error" default:"warn" help:"日志级别"`
	LogFormat string          `name:"log-format" enum:"text,json" default:"text" help:"日志格式"`

	Render RenderCmd `cmd:"" default:"withargs" help:"将歌谱排版并输出为 PDF 或终端文本"`
	Strip  StripCmd  `cmd:"" help:"输出去掉和弦后的歌词"`
	Check  CheckCmd  `cmd:"" help:"检查歌谱语法与和弦括号"`
	Fonts  FontsCmd  `cmd:"" help:"列出内置字体"`
}

// LayoutFlags 是排版相关的参数。
type LayoutFlags struct {
	Width        layout.Length         `name:"width" default:"180mm" help:"可用宽度（mm/cm/in/pt）"`
	Columns      int                   `name:"columns" default:"0" help:"文本输出的列数，0 表示终端宽度"`
	FontSize     layout.Length         `name:"font-size" default:"12pt" help:"歌词字号"`
	ChordSize    layout.Length         `name:"chord-size" help:"和弦字号，默认与歌词相同"`
	LineHeight   layout.LineHeightSpec `name:"line-height" default:"1.4x" help:"行高：倍数（1.4x）或绝对长度（6mm）"`
	Font         string                `name:"font" default:"embed:go-regular" help:"歌词字体（embed:<名称> 或文件路径）"`
	ChordFont    string                `name:"chord-font" default:"embed:go-bold" help:"和弦字体"`
	LyricColor   layout.Color          `name:"lyric-color" default:"#000000" help:"歌词颜色"`
	ChordColor   layout.Color          `name:"chord-color" default:"#2154c9" help:"和弦颜色"`
	Scale        float64               `name:"scale" default:"1" help:"字号缩放（0.5 到 3）"`
	HideChords   bool                  `name:"hide-chords" help:"隐藏和弦，只输出歌词"`
	CenterChords bool                  `name:"center-chords" help:"将和弦居中于其后的首字符"`
}

// RenderCmd 渲染一份或多份歌谱。
type RenderCmd struct {
	LayoutFlags `embed:""`

	Inputs []string `arg:"" help:"歌谱文件，可以有多个"`
	Output string   `name:"output" short:"o" help:"输出路径，默认与输入同名；- 表示标准输出（仅单个输入）"`
	Format string   `name:"format" short:"f" enum:"pdf,text" default:"pdf" help:"输出格式"`
	Color  string   `name:"color" enum:"auto,always,never" default:"auto" help:"文本输出中为和弦着色"`
	Jobs   int      `name:"jobs" short:"j" default:"4" help:"同时渲染的文件数"`
	Debug  string   `name:"debug" help:"布局调试 JSON 输出路径（仅单个输入）"`
	Watch  bool     `name:"watch" short:"w" help:"文件变化时重新渲染"`
}

// Validate 由 kong 在执行前调用。
func (c *RenderCmd) Validate() error {
	if len(c.Inputs) > 1 && (c.Output != "" || c.Debug != "") {
		return fmt.Errorf("多个输入时不能指定 --output 或 --debug")
	}
	return nil
}

func (c *RenderCmd) Run(log *slog.Logger) error {
	backend := c.backend()
	cache := layout.NewCache(64)

	if err := c.renderAll(backend, cache, log); err != nil {
		if !c.Watch {
			return err
		}
		log.Error("render failed", "err", err)
	}
	if !c.Watch {
		return nil
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return watchFiles(ctx, c.Inputs, log, func(path string) error {
		return c.renderOne(path, backend, cache, log)
	})
}

// renderAll 并发渲染所有输入，共享同一个后端与排版缓存。
func (c *RenderCmd) renderAll(backend renderer.Backend, cache *layout.Cache, log *slog.Logger) error {
	var g errgroup.Group
	g.SetLimit(max(c.Jobs, 1))
	for _, in := range c.Inputs {
		g.Go(func() error { return c.renderOne(in, backend, cache, log) })
	}
	return g.Wait()
}

func (c *RenderCmd) renderOne(input string, backend renderer.Backend, cache *layout.Cache, log *slog.Logger) error {
	src, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("无法打开歌谱文件 %s: %w", input, err)
	}
	res, data, err := renderSong(src, c.LayoutFlags, c.Format, backend, cache, log)
	if err != nil {
		return fmt.Errorf("%s: %w", input, err)
	}
	if c.Debug != "" {
		if err := writeDebug(res, c.Debug); err != nil {
			return err
		}
	}
	out := c.outputPath(input, backend)
	if err := writeOutput(out, data); err != nil {
		return err
	}
	log.Info("rendered", "input", input, "output", out, "lines", res.Lines, "size", humanize.Bytes(uint64(len(data))))
	return nil
}

func (c *RenderCmd) backend() renderer.Backend {
	if c.Format == "text" {
		return textrenderer.New(c.useColor())
	}
	return canvasrenderer.NewRenderer(filepath.Dir(c.Inputs[0]))
}

func (c *RenderCmd) useColor() bool {
	switch c.Color {
	case "always":
		return true
	case "never":
		return false
	default:
		return c.Output == "" && len(c.Inputs) == 1 && term.IsTerminal(int(os.Stdout.Fd()))
	}
}

func (c *RenderCmd) outputPath(input string, b renderer.Backend) string {
	if c.Output != "" {
		return c.Output
	}
	if c.Format == "text" && len(c.Inputs) == 1 {
		return "-"
	}
	return strings.TrimSuffix(input, filepath.Ext(input)) + b.Extension()
}

// StripCmd 输出去掉和弦的歌词正文。
type StripCmd struct {
	Input string `arg:"" help:"歌谱文件"`
}

func (c *StripCmd) Run() error {
	song, err := loadSong(c.Input)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(os.Stdout, layout.StripChords(song.Body))
	return err
}

// CheckCmd 只解析与检查，不排版。
type CheckCmd struct {
	Input string `arg:"" help:"歌谱文件"`
}

func (c *CheckCmd) Run(log *slog.Logger) error {
	song, err := loadSong(c.Input)
	if err != nil {
		return err
	}
	if err := layout.CheckBrackets(song.Body); err != nil {
		return fmt.Errorf("%s: %w", c.Input, err)
	}
	log.Info("ok", "input", c.Input, "meta", len(song.Meta))
	return nil
}

// FontsCmd 列出可通过 embed: 引用的内置字体。
type FontsCmd struct{}

func (c *FontsCmd) Run() error {
	for _, name := range fonts.Names() {
		fmt.Println("embed:" + name)
	}
	return nil
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("chordline"),
		kong.Description("将带 [和弦] 标记的歌谱排版为和弦谱"),
		kong.UsageOnError(),
		kong.Configuration(kong.JSON, "~/.config/chordline.json"),
	)
	log := setupLogger(os.Stderr, cli.LogLevel, cli.LogFormat)
	err := ctx.Run(log)
	ctx.FatalIfErrorf(err)
}

func loadSong(path string) (*dsl.Song, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("无法打开歌谱文件 %s: %w", path, err)
	}
	defer f.Close()
	sheet, err := dsl.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("解析歌谱失败: %w", err)
	}
	return sheet.Song(), nil
}

// renderSong 串联解析、元信息替换、排版与渲染。
func renderSong(src []byte, flags LayoutFlags, format string, backend renderer.Backend, cache *layout.Cache, log *slog.Logger) (*layout.Result, []byte, error) {
	sheet, err := dsl.ParseString(string(src))
	if err != nil {
		return nil, nil, fmt.Errorf("解析歌谱失败: %w", err)
	}
	song := sheet.Song()
	meta := binding.InterpolateMeta(song.Meta)
	body := binding.Interpolate(song.Body, meta)
	if err := layout.CheckBrackets(body); err != nil {
		log.Warn("chord brackets", "err", err)
	}

	opts := flags.options(format, backend, meta, log)
	res, err := cache.Build(body, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("排版失败: %w", err)
	}
	data, err := backend.Render(res)
	if err != nil {
		return nil, nil, fmt.Errorf("渲染失败: %w", err)
	}
	return res, data, nil
}

// options 将命令行参数换算为排版选项：PDF 以 mm 为单位，文本以单元格为单位。
func (f LayoutFlags) options(format string, backend renderer.Backend, meta map[string]string, log *slog.Logger) layout.BuildOptions {
	opts := layout.BuildOptions{
		Lyric: layout.TextStyle{
			Font:  layout.FontResource{Name: "lyric", Src: f.Font},
			Size:  f.FontSize.ToMM(),
			Color: f.LyricColor,
		},
		Chord: layout.TextStyle{
			Font:  layout.FontResource{Name: "chord", Src: f.ChordFont, Style: "bold"},
			Size:  f.ChordSize.ToMM(),
			Color: f.ChordColor,
		},
		Width:        f.Width.ToMM(),
		LineHeight:   f.LineHeight.Resolve(f.FontSize, layout.UnitMM),
		HideChords:   f.HideChords,
		CenterChords: f.CenterChords,
		Measurer:     backend,
		Typesetter:   backend,
		Logger:       log,
		Meta:         meta,
	}
	if format == "text" {
		opts.Width = float64(f.Columns)
		if f.Columns <= 0 {
			opts.Width = float64(terminalColumns())
		}
		opts.Lyric.Size, opts.Chord.Size, opts.LineHeight = 1, 1, 1
		return opts
	}
	return opts.Scaled(f.Scale)
}

// terminalColumns 返回标准输出所在终端的宽度，非终端时为 60。
func terminalColumns() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return 60
}

func writeOutput(path string, data []byte) error {
	if path == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return writeFile(path, data)
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("创建输出目录失败: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("写入文件 %s 失败: %w", path, err)
	}
	return nil
}

func writeDebug(result *layout.Result, debugPath string) error {
	if debugPath == "-" {
		return layout.EncodeDebugJSON(os.Stdout, result)
	}
	if err := os.MkdirAll(filepath.Dir(debugPath), 0o755); err != nil {
		return fmt.Errorf("创建调试目录失败: %w", err)
	}
	if err := layout.WriteDebugJSON(result, debugPath); err != nil {
		return fmt.Errorf("输出调试 JSON 失败: %w", err)
	}
	return nil
}
