package split_engine

import (
	"bytes"
	"testing"
)

func TestDecodeTextString(t *testing.T) {
	m := Match{Raw: []byte(`"line one\nline two"`), Shape: ShapeString}
	if got := DecodeText(m); got != "line one\nline two" {
		t.Fatalf("decoded %q", got)
	}
}

func TestDecodeTextSegments(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{`["plain"]`, "plain"},
		{`[{"type":"bold","text":"a"},{"type":"plain","text":"b"}]`, "ab"},
		{`["x ",{"type":"link","text":"example.com"}," y"]`, "x example.com y"},
		// Elements with no usable text contribute nothing.
		{`[{"type":"custom_emoji"},42,"tail"]`, "tail"},
		{`[]`, ""},
	}
	for _, c := range cases {
		m := Match{Raw: []byte(c.raw), Shape: ShapeArray}
		if got := DecodeText(m); got != c.want {
			t.Fatalf("raw %s: decoded %q, want %q", c.raw, got, c.want)
		}
	}
}

func TestDecodeTextInvalid(t *testing.T) {
	if got := DecodeText(Match{Raw: []byte(`"unterminated`), Shape: ShapeString}); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
	if got := DecodeText(Match{Raw: []byte(`[{"broken"`), Shape: ShapeArray}); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}

func TestBuildRecordDiscardsEmptyText(t *testing.T) {
	m := Match{Raw: []byte(`"   "`), Shape: ShapeString, Window: []byte(`{"id":1,"text":"   "}`), KeyOffset: 8}
	if _, ok := BuildRecord(m); ok {
		t.Fatalf("whitespace-only text should be discarded")
	}
}

func TestBuildRecordCarriesMetrics(t *testing.T) {
	win := []byte(`{"id":7,"date":"2024-01-02T03:04:05","from":"Alice","from_id":"user7","text":"hi","views":3}`)
	m := Match{Raw: []byte(`"hi"`), Shape: ShapeString, Window: win, KeyOffset: bytes.Index(win, []byte(`"text"`))}
	rec, ok := BuildRecord(m)
	if !ok {
		t.Fatalf("expected a record")
	}
	if rec.ID != 7 || rec.Text != "hi" || rec.SenderName != "Alice" {
		t.Fatalf("record %+v", rec)
	}
	if rec.ViewsCount == nil || *rec.ViewsCount != 3 {
		t.Fatalf("views %v", rec.ViewsCount)
	}
}
