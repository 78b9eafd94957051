package dsl_test

import (
	"strings"
	"testing"

	"github.com/ByLCY/chordline/dsl"
)

const sampleSheet = `{title: Amazing Grace}
{st: Traditional}
{key: G}
# verse 1
[G]Amazing [G7]grace, how [C]sweet the [G]sound
{c: slowly}

That [G]saved a wretch like [D]me
{soc}
{eoc}`

func TestParseSheet(t *testing.T) {
	sheet, err := dsl.ParseString(sampleSheet)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(sheet.Lines) != 10 {
		t.Fatalf("expected 10 lines, got %d", len(sheet.Lines))
	}
	if d := sheet.Lines[1].Directive; d == nil || d.Key() != "subtitle" || d.Value() != "Traditional" {
		t.Fatalf("expected subtitle directive, got %+v", sheet.Lines[1])
	}
	if sheet.Lines[3].Comment == nil {
		t.Fatalf("expected comment line, got %+v", sheet.Lines[3])
	}
	if sheet.Lines[4].Text == nil || !strings.HasPrefix(*sheet.Lines[4].Text, "[G]Amazing") {
		t.Fatalf("expected lyric line, got %+v", sheet.Lines[4])
	}
	blank := sheet.Lines[6]
	if blank.Directive != nil || blank.Comment != nil || blank.Text != nil {
		t.Fatalf("expected blank line, got %+v", blank)
	}
	if d := sheet.Lines[8].Directive; d == nil || d.Key() != "start_of_chorus" || d.Value() != "" {
		t.Fatalf("expected bare directive, got %+v", sheet.Lines[8])
	}
}

func TestSheetSong(t *testing.T) {
	sheet, err := dsl.ParseString(sampleSheet)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	song := sheet.Song()
	if song.Meta["title"] != "Amazing Grace" || song.Meta["subtitle"] != "Traditional" || song.Meta["key"] != "G" {
		t.Fatalf("unexpected meta: %v", song.Meta)
	}
	if _, ok := song.Meta["start_of_chorus"]; ok {
		t.Fatalf("bare directives should not become meta")
	}
	want := "[G]Amazing [G7]grace, how [C]sweet the [G]sound\nslowly\n\nThat [G]saved a wretch like [D]me"
	if song.Body != want {
		t.Fatalf("unexpected body:\n%q\nwant\n%q", song.Body, want)
	}
}

func TestParseCRLF(t *testing.T) {
	sheet, err := dsl.Parse(strings.NewReader("{title: x}\r\n[C]la\r\n"))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	song := sheet.Song()
	if song.Meta["title"] != "x" || song.Body != "[C]la" {
		t.Fatalf("unexpected song: %+v", song)
	}
}

func TestParseLyricWithBraces(t *testing.T) {
	sheet, err := dsl.ParseString("la {not a directive}\n")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if got := sheet.Song().Body; got != "la {not a directive}" {
		t.Fatalf("mid-line braces should stay lyric, got %q", got)
	}
}

func TestParseDirectivePlaceholder(t *testing.T) {
	sheet, err := dsl.ParseString("{subtitle: by %{artist}}\n{c: %{key|C} major}\n[C]Amazing %{title}\n")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if got := sheet.Lines[0].Directive.Value(); got != "by %{artist}" {
		t.Fatalf("unexpected subtitle value %q", got)
	}
	song := sheet.Song()
	if song.Meta["subtitle"] != "by %{artist}" {
		t.Fatalf("unexpected meta: %+v", song.Meta)
	}
	if want := "%{key|C} major\n[C]Amazing %{title}"; song.Body != want {
		t.Fatalf("unexpected body %q, want %q", song.Body, want)
	}
}

func TestParseErrors(t *testing.T) {
	for _, src := range []string{
		"{: nameless}\n",
		"{title: x} trailing\n",
	} {
		if _, err := dsl.ParseString(src); err == nil {
			t.Fatalf("expected error for %q", src)
		}
	}
}

func TestParseEmpty(t *testing.T) {
	sheet, err := dsl.ParseString("")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if song := sheet.Song(); song.Body != "" || len(song.Meta) != 0 {
		t.Fatalf("expected empty song, got %+v", song)
	}
}
