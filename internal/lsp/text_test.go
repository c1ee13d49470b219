package lsp

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"dtolsp/internal/parser"
)

func TestUTF16Positions(t *testing.T) {
	text := "a🙂b\nxé\n"
	// 🙂 is two UTF-16 units and four bytes
	assert.Equal(t, 5, offsetForPosition(text, position{Line: 0, Character: 3}))
	assert.Equal(t, 1, offsetForPosition(text, position{Line: 0, Character: 2}), "inside a surrogate pair")
	assert.Equal(t, 6, offsetForPosition(text, position{Line: 0, Character: 99}))
	assert.Equal(t, len(text), offsetForPosition(text, position{Line: 9}))
	assert.Equal(t, position{Line: 1, Character: 2}, positionForOffset(text, 10))
	assert.Equal(t, position{Line: 0, Character: 3}, positionForOffset(text, 5))
}

func TestApplyChanges(t *testing.T) {
	text := "BookView {\n    name\n}\n"
	got := applyChanges(text, []textDocumentContentChangeEvent{
		{Range: &lspRange{Start: position{Line: 1, Character: 4}, End: position{Line: 1, Character: 8}}, Text: "🙂"},
		{Range: &lspRange{Start: position{Line: 1, Character: 6}, End: position{Line: 1, Character: 6}}, Text: "x"},
	})
	assert.Equal(t, "BookView {\n    🙂x\n}\n", got)
	assert.Equal(t, "A {}", applyChanges(text, []textDocumentContentChangeEvent{{Text: "A {}"}}))
}

func TestFilePositionsMatchTextPositions(t *testing.T) {
	text := "export com.x.Book\n\n/** é🙂 */\nBookView { name }\n"
	res := parser.ParseText(text, parser.Options{Path: testURI})
	for off := 0; off <= len(text); off++ {
		want := positionForOffset(text, off)
		if utf8Boundary(text, off) {
			got := positionForOffsetInFile(res.File, uint32(off))
			if got != want {
				t.Fatalf("offset %d: file position %+v, text position %+v", off, got, want)
			}
			if back := offsetForPositionInFile(res.File, want); int(back) != off {
				t.Fatalf("offset %d round-tripped to %d", off, back)
			}
		}
	}
}

func utf8Boundary(s string, off int) bool {
	return off == len(s) || s[off]&0xC0 != 0x80
}
