package chunker

import (
	"strings"
	"testing"

	"github.com/tranhohoangvu/rag-kb-chatbot/internal/extract"
)

func TestNew_rejectsBadConfig(t *testing.T) {
	if _, err := New(0, 0); err == nil {
		t.Error("zero window must be rejected")
	}
	if _, err := New(10, 10); err == nil {
		t.Error("overlap == window must be rejected")
	}
	if _, err := New(10, 15); err == nil {
		t.Error("overlap > window must be rejected")
	}
	if _, err := New(10, -1); err == nil {
		t.Error("negative overlap must be rejected")
	}
}

func TestChunk_empty(t *testing.T) {
	c, _ := New(100, 10)
	if got := c.Chunk(nil); got != nil {
		t.Errorf("nil segments should yield no windows, got %v", got)
	}
	if got := c.Chunk([]extract.Segment{{Text: "  \n\t "}}); got != nil {
		t.Errorf("whitespace-only text should yield no windows, got %v", got)
	}
}

func TestChunk_shorterThanWindow(t *testing.T) {
	c, _ := New(100, 10)
	windows := c.Chunk([]extract.Segment{{Text: "short text"}})
	if len(windows) != 1 {
		t.Fatalf("expected exactly 1 window, got %d", len(windows))
	}
	if windows[0].Content != "short text" || windows[0].Index != 0 {
		t.Errorf("got %+v", windows[0])
	}
}

// A 1300-character text with window 1200 / overlap 200 must produce exactly
// two windows: chars [0,1200) and chars [1000,1300).
func TestChunk_twoWindowScenario(t *testing.T) {
	text := strings.Repeat("a", 1300)
	c, _ := New(1200, 200)
	windows := c.Chunk([]extract.Segment{{Text: text}})
	if len(windows) != 2 {
		t.Fatalf("expected 2 windows, got %d", len(windows))
	}
	if len(windows[0].Content) != 1200 {
		t.Errorf("window 0 length = %d, want 1200", len(windows[0].Content))
	}
	if len(windows[1].Content) != 300 {
		t.Errorf("window 1 length = %d, want 300", len(windows[1].Content))
	}
	if windows[0].Index != 0 || windows[1].Index != 1 {
		t.Errorf("indices: %d, %d", windows[0].Index, windows[1].Index)
	}
}

// Round-trip law: chunk 0 plus each later chunk with its first O characters
// removed reconstructs the normalized text exactly.
func TestChunk_roundTrip(t *testing.T) {
	cases := []struct {
		window, overlap int
	}{
		{10, 0},
		{10, 3},
		{50, 25},
		{7, 6},
	}
	text := Normalize(strings.Repeat("the quick brown fox jumps over the lazy dog ", 20))
	for _, tc := range cases {
		c, err := New(tc.window, tc.overlap)
		if err != nil {
			t.Fatal(err)
		}
		windows := c.Chunk([]extract.Segment{{Text: text}})
		var b strings.Builder
		for i, w := range windows {
			content := []rune(w.Content)
			if i == 0 {
				b.WriteString(w.Content)
			} else {
				b.WriteString(string(content[tc.overlap:]))
			}
		}
		if b.String() != text {
			t.Errorf("W=%d O=%d: reconstruction mismatch (got %d chars, want %d)",
				tc.window, tc.overlap, b.Len(), len(text))
		}
	}
}

func TestChunk_deterministic(t *testing.T) {
	c, _ := New(30, 5)
	segs := []extract.Segment{{Text: strings.Repeat("deterministic windows ", 10)}}
	a := c.Chunk(segs)
	b := c.Chunk(segs)
	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("window %d differs", i)
		}
	}
}

func TestChunk_pagesAndGlobalIndex(t *testing.T) {
	p1, p2 := 1, 2
	c, _ := New(20, 5)
	windows := c.Chunk([]extract.Segment{
		{Page: &p1, Text: strings.Repeat("page one text ", 4)},
		{Page: &p2, Text: "page two"},
	})
	if len(windows) < 3 {
		t.Fatalf("expected windows from both pages, got %d", len(windows))
	}
	for i, w := range windows {
		if w.Index != i {
			t.Errorf("window %d has index %d; indices must be contiguous from 0", i, w.Index)
		}
	}
	last := windows[len(windows)-1]
	if last.Page == nil || *last.Page != 2 {
		t.Errorf("last window should carry page 2, got %v", last.Page)
	}
	if windows[0].Page == nil || *windows[0].Page != 1 {
		t.Errorf("first window should carry page 1, got %v", windows[0].Page)
	}
}

func TestNormalize(t *testing.T) {
	if Normalize("  a \n\t b  ") != "a b" {
		t.Error("expected trimmed and collapsed spaces")
	}
}
