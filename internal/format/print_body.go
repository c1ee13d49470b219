package format

import (
	"strings"

	"dtolsp/internal/ast"
	"dtolsp/internal/settings"
)

// printBody writes `{`, one prop per line one level deeper, and `}`.
func (p *printer) printBody(b *ast.Body) {
	closeOff := b.Span.End
	if b.Closed && closeOff > 0 {
		closeOff--
	}
	if len(b.Props) == 0 && !p.hasCommentBefore(closeOff) {
		p.w.WriteString("{}")
		return
	}
	p.w.WriteString("{")
	p.w.IndentPush()
	for i, prop := range b.Props {
		sep := p.w.Newline
		if i > 0 && p.blankBetween(b.Props[i-1]) {
			sep = p.w.BlankLine
		}
		p.flush(prop.NodeSpan().Start, sep)
		p.printProp(prop)
	}
	p.flush(closeOff, p.w.Newline)
	p.w.IndentPop()
	p.w.Newline()
	p.w.WriteString("}")
}

func (p *printer) hasCommentBefore(off uint32) bool {
	return p.next < len(p.comments) && p.comments[p.next].start < off
}

func (p *printer) blankBetween(prev ast.Prop) bool {
	switch p.opt.PropsSpaceLine {
	case settings.SpaceAlways:
		return true
	case settings.SpaceNever:
		return false
	}
	switch prev := prev.(type) {
	case *ast.PositiveProp:
		return len(prev.Annotations) > 0
	case *ast.UserProp:
		return len(prev.Annotations) > 0
	}
	return false
}

func (p *printer) printProp(prop ast.Prop) {
	switch prop := prop.(type) {
	case *ast.PositiveProp:
		p.printPositiveProp(prop)
	case *ast.NegativeProp:
		p.w.WriteString("-" + prop.Name.Name)
	case *ast.UserProp:
		p.printUserProp(prop)
	case *ast.Macro:
		p.printMacro(prop)
	case *ast.AliasGroup:
		p.printAliasGroup(prop)
	}
}

func (p *printer) printPositiveProp(pp *ast.PositiveProp) {
	p.printDoc(pp.Doc)
	for _, cfg := range pp.Configs {
		p.w.WriteString(cfg.Kind.String() + "(" + joinTokens(cfg.Args) + ")")
		p.w.Newline()
	}
	p.printAnnotations(pp.Annotations, true)
	if pp.Plus {
		p.w.WriteString("+")
	}
	if pp.Modifier != nil {
		p.w.WriteString(pp.Modifier.Name + " ")
	}
	if pp.Func != nil {
		p.w.WriteString(pp.Func.Name + funcFlagString(pp.FuncFlag) + "(" + identList(pp.Args) + ")")
	} else {
		p.w.WriteString(pp.Name().Name)
	}
	switch {
	case pp.Optional:
		p.w.WriteString("?")
	case pp.Required:
		p.w.WriteString("!")
	}
	if pp.Recursive {
		p.w.WriteString("*")
	}
	if pp.Alias != nil {
		p.w.WriteString(" as " + pp.Alias.Name)
	}

	switch {
	case pp.EnumBody != nil:
		p.printEnumBody(pp.EnumBody)
	case pp.Body != nil:
		if pp.ChildDoc != nil || len(pp.BodyAnnotations) > 0 {
			p.w.Space()
			if pp.ChildDoc != nil {
				p.writeLines(pp.ChildDoc.Text)
				p.w.Space()
			}
			p.printAnnotations(pp.BodyAnnotations, false)
			p.w.trimTrailingSpace()
		}
		p.printImplements(pp.BodyImplements)
		p.w.Space()
		p.printBody(pp.Body)
	}
}

func funcFlagString(f *ast.FuncFlag) string {
	if f == nil {
		return ""
	}
	s := "/"
	if f.Insensitive != nil {
		s += f.Insensitive.Name
	}
	if f.Prefix {
		s += "^"
	}
	if f.Suffix {
		s += "$"
	}
	return s
}

func identList(ids []ast.Ident) string {
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = id.Name
	}
	return strings.Join(names, ", ")
}

func (p *printer) printEnumBody(eb *ast.EnumBody) {
	p.w.WriteString(" -> {")
	p.w.IndentPush()
	for _, m := range eb.Mappings {
		p.flush(m.Span.Start, p.w.Newline)
		p.w.WriteString(m.Constant.Name + ": " + m.Value.Text)
	}
	end := eb.Span.End
	if end > 0 {
		end--
	}
	p.flush(end, p.w.Newline)
	p.w.IndentPop()
	p.w.Newline()
	p.w.WriteString("}")
}

func (p *printer) printUserProp(u *ast.UserProp) {
	p.printDoc(u.Doc)
	p.printAnnotations(u.Annotations, true)
	p.w.WriteString(u.Name.Name + ": " + typeRefString(u.Type))
	if len(u.Default) > 0 {
		p.w.WriteString(" = " + joinTokens(u.Default))
	}
}

func (p *printer) printMacro(m *ast.Macro) {
	p.w.WriteString("#" + m.Name.Name)
	if m.HasParens {
		args := make([]string, len(m.Args))
		for i, a := range m.Args {
			args[i] = a.String()
		}
		p.w.WriteString("(" + strings.Join(args, ", ") + ")")
	}
	switch {
	case m.Optional:
		p.w.WriteString("?")
	case m.Required:
		p.w.WriteString("!")
	}
}

func (p *printer) printAliasGroup(g *ast.AliasGroup) {
	pat := g.Pattern
	s := "as("
	if pat.Prefix {
		s += "^"
	}
	if pat.Original != nil {
		s += pat.Original.Name
	}
	if pat.Suffix {
		s += "$"
	}
	s += " ->"
	if pat.Replacement != nil {
		s += " " + pat.Replacement.Name
	}
	p.w.WriteString(s + ")")
	if g.Body != nil {
		p.w.Space()
		p.printBody(g.Body)
	}
}
