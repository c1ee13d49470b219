package format

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"dtolsp/internal/ast"
	"dtolsp/internal/parser"
	"dtolsp/internal/settings"
	"dtolsp/internal/token"
)

type Options struct {
	IndentWidth    int
	PropsSpaceLine settings.PropsSpaceLine
}

func (o Options) withDefaults() Options {
	if o.IndentWidth <= 0 {
		o.IndentWidth = 4
	}
	if !o.PropsSpaceLine.Valid() {
		o.PropsSpaceLine = settings.SpaceHasAnnotation
	}
	return o
}

// ErrSyntax is returned for input that does not parse cleanly.
var ErrSyntax = errors.New("format: source has syntax errors")

type printer struct {
	w        *Writer
	opt      Options
	comments []comment
	next     int
}

// Source parses src and formats it.
func Source(path string, src []byte, opt Options) ([]byte, error) {
	res := parser.ParseText(string(src), parser.Options{Path: path, MaxErrors: 1})
	if res.Bag.HasErrors() {
		d := res.Bag.Items()[0]
		if res.File != nil {
			pos := res.File.Position(d.Primary.Start)
			return nil, fmt.Errorf("%w: %d:%d: %s", ErrSyntax, pos.Line, pos.Col+1, d.Message)
		}
		return nil, fmt.Errorf("%w: %s", ErrSyntax, d.Message)
	}
	return File(res, opt), nil
}

// File formats an already parsed file. The result always ends with a single
// newline, or is empty for an empty file.
func File(res parser.Result, opt Options) []byte {
	opt = opt.withDefaults()
	size := 0
	if res.File != nil {
		size = len(res.File.Content)
	}
	p := &printer{
		w:        NewWriter(size, opt),
		opt:      opt,
		comments: collectComments(res.Tokens),
	}
	p.printFile(res.AST)
	out := p.w.Bytes()
	if len(out) > 0 && out[len(out)-1] != '\n' {
		out = append(out, '\n')
	}
	return out
}

func (p *printer) printFile(f *ast.File) {
	if f == nil {
		p.flush(math.MaxUint32, p.w.Newline)
		return
	}
	if f.Export != nil {
		p.flush(f.Export.Span.Start, p.w.BlankLine)
		p.printExport(f.Export)
	}
	if len(f.Imports) > 0 {
		p.flush(f.Imports[0].Span.Start, p.w.BlankLine)
		p.printImports(f.Imports)
	}
	for _, t := range f.Types {
		p.flush(t.Span.Start, p.w.BlankLine)
		p.printType(t)
	}
	p.flush(math.MaxUint32, p.w.Newline)
}

// comment is a plain comment from token trivia. Trailing comments share a
// line with the token before them.
type comment struct {
	start      uint32
	text       string
	trailing   bool
	blankAfter bool
}

func collectComments(toks []token.Token) []comment {
	var out []comment
	for i, tok := range toks {
		sawNewline := false
		newlines := 0
		last := -1
		for _, tr := range tok.Leading {
			switch {
			case tr.Kind == token.TriviaNewline:
				sawNewline = true
				newlines += max(1, strings.Count(tr.Text, "\n"))
			case tr.IsComment():
				if last >= 0 && newlines >= 2 {
					out[last].blankAfter = true
				}
				newlines = 0
				last = len(out)
				out = append(out, comment{
					start:    tr.Span.Start,
					text:     strings.TrimRight(tr.Text, " \t\r\n"),
					trailing: i > 0 && !sawNewline,
				})
			}
		}
		if last >= 0 && newlines >= 2 {
			out[last].blankAfter = true
		}
	}
	slices.SortStableFunc(out, func(a, b comment) int { return int(a.start) - int(b.start) })
	return out
}

// flush writes every comment before off: trailing ones on the current line,
// then sep, then the rest on lines of their own.
func (p *printer) flush(off uint32, sep func()) {
	start := p.next
	for p.next < len(p.comments) && p.comments[p.next].start < off {
		p.next++
	}
	pending := p.comments[start:p.next]
	i := 0
	for ; i < len(pending) && pending[i].trailing && len(p.w.buf) > 0; i++ {
		p.w.Space()
		p.w.WriteString(pending[i].text)
	}
	sep()
	for _, c := range pending[i:] {
		p.w.Newline()
		p.writeLines(c.text)
		p.w.Newline()
		if c.blankAfter {
			p.w.BlankLine()
		}
	}
}

// CheckRoundTrip formats src, parses the result again and verifies that the
// declarations are unchanged and that formatting is a fixed point.
func CheckRoundTrip(path string, src []byte, opt Options) (ok bool, msg string) {
	orig := parser.ParseText(string(src), parser.Options{Path: path, MaxErrors: 1})
	if orig.Bag.HasErrors() {
		return false, "fmt-check: initial parse has errors"
	}
	formatted := File(orig, opt)
	again := parser.ParseText(string(formatted), parser.Options{Path: path, MaxErrors: 1})
	if again.Bag.HasErrors() {
		return false, "fmt-check: reparse failed: " + again.Bag.Items()[0].Message
	}
	if a, b := outline(orig.AST), outline(again.AST); a != b {
		return false, "fmt-check: declarations differ after round-trip"
	}
	if !bytes.Equal(File(again, opt), formatted) {
		return false, "fmt-check: formatting is not idempotent"
	}
	return true, "fmt-check: OK"
}

// outline summarizes the declarations of f, ignoring layout and comments.
func outline(f *ast.File) string {
	var sb strings.Builder
	if f == nil {
		return ""
	}
	if f.Export != nil {
		sb.WriteString("export " + f.Export.Type.String() + " " + f.Export.PackageName() + "\n")
	}
	var names []string
	for _, imp := range f.Imports {
		for local, qualified := range imp.Names() {
			names = append(names, local+"="+qualified)
		}
	}
	slices.Sort(names)
	sb.WriteString(strings.Join(names, ",") + "\n")
	ast.Inspect(f, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.DtoType:
			sb.WriteString("type " + n.Name.Name + "\n")
		case *ast.PositiveProp:
			fn := ""
			if n.Func != nil {
				fn = n.Func.Name
			}
			fmt.Fprintf(&sb, "prop %s(%d) %s %d\n", fn, len(n.Args), n.Name().Name, len(n.Configs))
		case *ast.NegativeProp:
			sb.WriteString("-" + n.Name.Name + "\n")
		case *ast.UserProp:
			sb.WriteString("user " + n.Name.Name + "\n")
		case *ast.Macro:
			sb.WriteString("#" + n.Name.Name + "\n")
		case *ast.AliasGroup:
			sb.WriteString("as\n")
		}
		return true
	})
	return sb.String()
}
