package source

import (
	"testing"
)

func TestFileSetVersioning(t *testing.T) {
	fs := NewFileSet()
	id1 := fs.Add("Book.dto", []byte("BookView {}"), 0)
	id2 := fs.Add("Book.dto", []byte("BookView { name }"), 0)
	if id1 == id2 {
		t.Fatalf("expected distinct ids, got %d twice", id1)
	}
	latest, ok := fs.GetLatest("Book.dto")
	if !ok || latest != id2 {
		t.Fatalf("GetLatest = %d,%v want %d", latest, ok, id2)
	}
	if got := string(fs.Get(id1).Content); got != "BookView {}" {
		t.Fatalf("old content lost: %q", got)
	}
	if fs.Get(FileID(99)) != nil {
		t.Fatalf("expected nil for unknown id")
	}
}

func TestPositionAndOffset(t *testing.T) {
	fs := NewFileSet()
	f := fs.Get(fs.AddVirtual("a.dto", []byte("ab\ncd\n\nef")))

	cases := []struct {
		off  uint32
		want LineCol
	}{
		{0, LineCol{1, 0}},
		{2, LineCol{1, 2}},
		{3, LineCol{2, 0}},
		{6, LineCol{3, 0}},
		{7, LineCol{4, 0}},
		{9, LineCol{4, 2}},
		{100, LineCol{4, 2}},
	}
	for _, tc := range cases {
		if got := f.Position(tc.off); got != tc.want {
			t.Fatalf("Position(%d) = %+v, want %+v", tc.off, got, tc.want)
		}
		if tc.off <= 9 {
			if back := f.Offset(tc.want); back != tc.off {
				t.Fatalf("Offset(%+v) = %d, want %d", tc.want, back, tc.off)
			}
		}
	}
	if got := f.Offset(LineCol{Line: 1, Col: 50}); got != 2 {
		t.Fatalf("expected clamp to line end, got %d", got)
	}
	if f.LineCount() != 4 {
		t.Fatalf("LineCount = %d", f.LineCount())
	}
	if f.GetLine(2) != "cd" || f.GetLine(3) != "" || f.GetLine(9) != "" {
		t.Fatalf("GetLine mismatch")
	}
}

func TestNormalizeCRLFAndBOM(t *testing.T) {
	in := []byte("\xEF\xBB\xBFa\r\nb\rc")
	out, bom := RemoveBOM(in)
	if !bom {
		t.Fatalf("expected BOM")
	}
	out, changed := NormalizeCRLF(out)
	if !changed || string(out) != "a\nb\rc" {
		t.Fatalf("unexpected normalize result %q", out)
	}
}

func TestSpanCover(t *testing.T) {
	a := Span{File: 1, Start: 4, End: 6}
	b := Span{File: 1, Start: 2, End: 5}
	if got := a.Cover(b); got.Start != 2 || got.End != 6 {
		t.Fatalf("Cover = %v", got)
	}
	if got := a.Cover(Span{File: 2, Start: 0, End: 10}); got != a {
		t.Fatalf("cross-file cover changed span: %v", got)
	}
	if !a.Contains(6) || a.Contains(7) {
		t.Fatalf("Contains mismatch")
	}
}
