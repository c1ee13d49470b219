package format

import (
	"strings"

	"dtolsp/internal/ast"
)

func (p *printer) printType(t *ast.DtoType) {
	p.printDoc(t.Doc)
	p.printAnnotations(t.Annotations, true)
	for _, m := range t.Modifiers {
		p.w.WriteString(m.Name + " ")
	}
	p.w.WriteString(t.Name.Name)
	p.printImplements(t.Implements)
	if t.Body != nil {
		p.w.Space()
		p.printBody(t.Body)
	}
}

// printDoc writes a doc comment on lines of its own, re-indenting the
// continuation lines so that their leading '*' column lines up.
func (p *printer) printDoc(d *ast.Doc) {
	if d == nil {
		return
	}
	p.writeLines(d.Text)
	p.w.Newline()
}

func (p *printer) writeLines(text string) {
	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, " \t\r")
		if i > 0 {
			p.w.Newline()
			line = strings.TrimLeft(line, " \t")
			if strings.HasPrefix(line, "*") {
				line = " " + line
			}
		}
		p.w.WriteString(line)
	}
}

// printAnnotations writes each annotation on its own line, or space
// separated on the current line when own is false.
func (p *printer) printAnnotations(anns []*ast.Annotation, own bool) {
	for _, a := range anns {
		p.w.WriteString(annotationString(a))
		if own {
			p.w.Newline()
		} else {
			p.w.WriteString(" ")
		}
	}
}

func annotationString(a *ast.Annotation) string {
	s := "@" + a.Name.String()
	if a.HasParens {
		s += "(" + joinTokens(a.Args) + ")"
	}
	return s
}

func (p *printer) printImplements(refs []*ast.TypeRef) {
	if len(refs) == 0 {
		return
	}
	p.w.WriteString(" implements ")
	for i, r := range refs {
		if i > 0 {
			p.w.WriteString(", ")
		}
		p.w.WriteString(typeRefString(r))
	}
}

func typeRefString(t *ast.TypeRef) string {
	if t == nil {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(t.Name.String())
	if len(t.Args) > 0 {
		sb.WriteByte('<')
		for i, arg := range t.Args {
			if i > 0 {
				sb.WriteString(", ")
			}
			switch {
			case arg.Wildcard:
				sb.WriteByte('*')
			default:
				if arg.Modifier != nil {
					sb.WriteString(arg.Modifier.Name + " ")
				}
				sb.WriteString(typeRefString(arg.Type))
			}
		}
		sb.WriteByte('>')
	}
	if t.Nullable {
		sb.WriteByte('?')
	}
	return sb.String()
}
