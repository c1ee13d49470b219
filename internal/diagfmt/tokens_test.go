package diagfmt

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"dtolsp/internal/lexer"
	"dtolsp/internal/source"
)

func TestFormatTokens(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("Book.dto", []byte("// c\nexport com.x.Book\n"))
	toks := lexer.Tokenize(fs.Get(id), lexer.Options{})

	var pretty bytes.Buffer
	require.NoError(t, FormatTokensPretty(&pretty, toks, fs))
	first := strings.SplitN(pretty.String(), "\n", 2)[0]
	if first != `  1: export          "export" at 2:1-2:7 (leading: line-comment, newline)` {
		t.Fatalf("unexpected first line: %q", first)
	}

	var js bytes.Buffer
	require.NoError(t, FormatTokensJSON(&js, toks))
	var out []TokenOutput
	require.NoError(t, json.Unmarshal(js.Bytes(), &out))
	require.Equal(t, len(toks), len(out))
	require.Equal(t, "EOF", out[len(out)-1].Kind)
}
