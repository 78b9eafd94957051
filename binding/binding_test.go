package binding

import (
	"reflect"
	"testing"
)

func TestInterpolate(t *testing.T) {
	meta := map[string]string{"title": "Amazing Grace", "key": "G", "capo": ""}
	cases := map[string]string{
		"%{title}":                     "Amazing Grace",
		"%{ TITLE } in %{key}":         "Amazing Grace in G",
		"capo %{capo|none}":            "capo none",
		"%{tempo|}bpm":                 "bpm",
		"%{missing}":                   "%{missing}",
		"%{}":                          "%{}",
		"[C]no placeholders":           "[C]no placeholders",
		"%{artist|Unknown} - %{title}": "Unknown - Amazing Grace",
	}
	for in, want := range cases {
		if got := Interpolate(in, meta); got != want {
			t.Fatalf("Interpolate(%q) = %q, want %q", in, got, want)
		}
	}
	if got := Interpolate("%{title}", nil); got != "%{title}" {
		t.Fatalf("meta 为空时应保留占位符，实际 %q", got)
	}
}

func TestInterpolateMeta(t *testing.T) {
	meta := map[string]string{"artist": "John Newton", "subtitle": "by %{artist}"}
	got := InterpolateMeta(meta)
	want := map[string]string{"artist": "John Newton", "subtitle": "by John Newton"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("InterpolateMeta = %v, want %v", got, want)
	}
	if meta["subtitle"] != "by %{artist}" {
		t.Fatalf("不应修改传入的 meta")
	}
}
