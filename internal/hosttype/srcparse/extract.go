package srcparse

import (
	"context"
	"fmt"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/kotlin"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	grammars     map[Lang]*sitter.Language
	grammarsOnce sync.Once
)

func grammarFor(l Lang) (*sitter.Language, bool) {
	grammarsOnce.Do(func() {
		grammars = map[Lang]*sitter.Language{
			LangJava:   java.GetLanguage(),
			LangKotlin: kotlin.GetLanguage(),
		}
	})
	g, ok := grammars[l]
	return g, ok
}

// Extract parses one source file. A file with syntax errors still yields the
// declarations tree-sitter could recover.
func Extract(ctx context.Context, path string, src []byte) (*FileDecls, error) {
	lang := LangOf(path)
	grammar, ok := grammarFor(lang)
	if !ok {
		return nil, fmt.Errorf("srcparse: unsupported file %s", path)
	}
	src, err := decodeSource(src)
	if err != nil {
		return nil, fmt.Errorf("srcparse: decode %s: %w", path, err)
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(grammar)
	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("srcparse: parse %s: %w", path, err)
	}
	defer tree.Close()

	x := &extractor{src: src, file: &FileDecls{Path: path, Lang: lang}}
	switch lang {
	case LangJava:
		x.javaFile(tree.RootNode())
	case LangKotlin:
		x.kotlinFile(tree.RootNode())
	}
	return x.file, nil
}

// decodeSource honors a UTF-8 or UTF-16 byte order mark and strips it.
func decodeSource(src []byte) ([]byte, error) {
	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	out, _, err := transform.Bytes(dec, src)
	return out, err
}

type extractor struct {
	src  []byte
	file *FileDecls
}

func (x *extractor) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Content(x.src)
}

// compact drops the whitespace inside a dotted name.
func (x *extractor) compact(n *sitter.Node) string {
	return strings.Join(strings.Fields(x.text(n)), "")
}

// position is 0-based, columns in bytes.
func position(n *sitter.Node) (line, col uint32) {
	p := n.StartPoint()
	return p.Row, p.Column
}

func namedChildren(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	count := int(n.NamedChildCount())
	out := make([]*sitter.Node, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, n.NamedChild(i))
	}
	return out
}

// hasToken reports whether n has a direct child (named or not) of the given
// type, e.g. an anonymous "static" keyword.
func hasToken(n *sitter.Node, typ string) bool {
	if n == nil {
		return false
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if n.Child(i).Type() == typ {
			return true
		}
	}
	return false
}

func childOfType(n *sitter.Node, types ...string) *sitter.Node {
	for _, c := range namedChildren(n) {
		for _, t := range types {
			if c.Type() == t {
				return c
			}
		}
	}
	return nil
}

func childrenOfType(n *sitter.Node, typ string) []*sitter.Node {
	var out []*sitter.Node
	for _, c := range namedChildren(n) {
		if c.Type() == typ {
			out = append(out, c)
		}
	}
	return out
}

func qualify(outer, name string) string {
	if outer == "" {
		return name
	}
	return outer + "." + name
}
