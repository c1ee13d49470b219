package lsp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type semToken struct {
	line, char, length int
	typ                string
}

func decodeSemantic(t *testing.T, data []uint32) []semToken {
	t.Helper()
	require.Zero(t, len(data)%5)
	var out []semToken
	line, char := 0, 0
	for i := 0; i < len(data); i += 5 {
		if data[i] > 0 {
			line += int(data[i])
			char = 0
		}
		char += int(data[i+1])
		out = append(out, semToken{line, char, int(data[i+2]), tokenTypes[data[i+3]]})
	}
	return out
}

func TestSemanticTokens(t *testing.T) {
	text := "export com.x.Book\n\n// plain\n@Foo\nBookView {\n    #allScalars\n    like(name)?\n}\n"
	ts := newTestServer(t, nil)
	_, snap := ts.open(t, testURI, text)
	toks := decodeSemantic(t, buildSemanticTokens(snap))

	for _, want := range []semToken{
		{0, 0, 6, "keyword"},
		{0, 7, 3, "namespace"},
		{0, 11, 1, "namespace"},
		{0, 13, 4, "class"},
		{2, 0, 8, "comment"},
		{3, 0, 1, "decorator"},
		{3, 1, 3, "decorator"},
		{4, 0, 8, "struct"},
		{5, 4, 1, "macro"},
		{5, 5, 10, "macro"},
		{6, 4, 4, "function"},
		{6, 14, 1, "keyword"},
	} {
		assert.Contains(t, toks, want)
	}
	for _, tok := range toks {
		if tok.line == 6 && tok.char == 9 {
			t.Fatalf("prop argument should not be highlighted: %+v", tok)
		}
	}
}

func TestSemanticTokensSplitDocComments(t *testing.T) {
	text := "/**\n * Book\n */\nBookView {}\n"
	ts := newTestServer(t, nil)
	_, snap := ts.open(t, testURI, text)
	toks := decodeSemantic(t, buildSemanticTokens(snap))
	require.GreaterOrEqual(t, len(toks), 3)
	assert.Equal(t, semToken{0, 0, 3, "comment"}, toks[0])
	assert.Equal(t, semToken{1, 0, 7, "comment"}, toks[1])
	assert.Equal(t, semToken{2, 0, 3, "comment"}, toks[2])
}
