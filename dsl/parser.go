package dsl

import (
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var (
	// 规则按顺序尝试：行首的 {…} 是指令，# 开头是注释，其余整行都是歌词。
	// 指令值里允许出现 %{key} 占位符，其余花括号不能嵌套。
	sheetLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Newline", Pattern: `\r?\n`},
		{Name: "Directive", Pattern: `[ \t]*\{(?:[^{}\n]|%\{[^}\n]*\})*\}[ \t\r]*`},
		{Name: "Comment", Pattern: `[ \t]*#[^\n]*`},
		{Name: "Text", Pattern: `[^\n]+`},
	})

	sheetParser = participle.MustBuild[Sheet](
		participle.Lexer(sheetLexer),
	)
)

// Sheet is the root AST node of a song sheet: one node per source line.
type Sheet struct {
	Pos   lexer.Position `parser:"" json:"-"`
	Lines []*Line        `parser:"@@*"`
}

// Line is a directive, a comment, a lyric line or (all nil) a blank line.
type Line struct {
	Pos       lexer.Position `parser:"" json:"-"`
	Directive *Directive     `parser:"( @@"`
	Comment   *string        `parser:"| @Comment"`
	Text      *string        `parser:"| @Text )? Newline"`
}

// Directive is a `{key: value}` line; the value is optional (`{start_of_chorus}`).
type Directive struct {
	Pos lexer.Position `parser:"" json:"-"`
	Raw string         `parser:"@Directive"`
}

// Key returns the lower-cased directive name with short aliases expanded.
func (d *Directive) Key() string {
	key, _ := d.split()
	return key
}

// Value returns the trimmed directive value, empty when absent.
func (d *Directive) Value() string {
	_, val := d.split()
	return val
}

func (d *Directive) split() (string, string) {
	body := strings.TrimSpace(d.Raw)
	body = strings.TrimSuffix(strings.TrimPrefix(body, "{"), "}")
	key, val, _ := strings.Cut(body, ":")
	key = strings.ToLower(strings.TrimSpace(key))
	if alias, ok := directiveAliases[key]; ok {
		key = alias
	}
	return key, strings.TrimSpace(val)
}

var directiveAliases = map[string]string{
	"t":   "title",
	"st":  "subtitle",
	"c":   "comment",
	"ci":  "comment",
	"cb":  "comment",
	"soc": "start_of_chorus",
	"eoc": "end_of_chorus",
}

// commentKeys 指令会作为普通歌词行保留在正文中。
var commentKeys = map[string]bool{
	"comment":        true,
	"comment_italic": true,
	"comment_box":    true,
}

// Song is a parsed sheet split into metadata and the chord-marked body text.
type Song struct {
	Meta map[string]string `json:"meta"`
	Body string            `json:"body"`
}

// Song collects metadata from valued directives and joins the remaining lines into the
// body: comment directives become body lines, # comments and bare directives are dropped.
func (s *Sheet) Song() *Song {
	song := &Song{Meta: map[string]string{}}
	var body []string
	for _, ln := range s.Lines {
		switch {
		case ln.Directive != nil:
			key, val := ln.Directive.split()
			switch {
			case commentKeys[key]:
				body = append(body, val)
			case val != "":
				song.Meta[key] = val
			}
		case ln.Comment != nil:
		case ln.Text != nil:
			body = append(body, strings.TrimRight(*ln.Text, "\r"))
		default:
			body = append(body, "")
		}
	}
	song.Body = strings.TrimRight(strings.Join(body, "\n"), "\n")
	return song
}

// Parse parses a song sheet from an io.Reader.
func Parse(r io.Reader) (*Sheet, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return ParseString(string(data))
}

// ParseString parses a song sheet from a string.
func ParseString(input string) (*Sheet, error) {
	if input != "" && !strings.HasSuffix(input, "\n") {
		input += "\n"
	}
	sheet, err := sheetParser.ParseString("", input)
	if err != nil {
		return nil, err
	}
	for _, ln := range sheet.Lines {
		if ln.Directive != nil && ln.Directive.Key() == "" {
			return nil, fmt.Errorf("%s: 指令缺少名称: %s", ln.Directive.Pos, strings.TrimSpace(ln.Directive.Raw))
		}
	}
	return sheet, nil
}
