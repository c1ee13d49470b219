package srcparse

import (
	"dtolsp/internal/hosttype"
)

const backendName = "srcparse"

// Type is a host type declared in a Java or Kotlin source file.
type Type struct {
	hosttype.TypeBase
	File *FileDecls
	Decl *TypeDecl
}

// Prop is a property declared in source.
type Prop struct {
	hosttype.PropBase
	Decl *PropDecl
}

func (p *Prop) Redeclare(owner hosttype.BaseType) hosttype.BaseProp {
	cp := *p
	cp.PropBase = p.PropBase.Rebind(owner)
	return &cp
}

func kindOf(td *TypeDecl) hosttype.Kind {
	if td.Enum {
		return hosttype.KindEnum
	}
	var anns []hosttype.Annotation
	for _, a := range td.Annotations {
		anns = append(anns, hosttype.Annotation{Name: a.Name})
	}
	return hosttype.KindOf(anns)
}

// newType builds the structural view of td. Only immutable types and enums are
// exposed.
func newType(ctx *hosttype.Context, file *FileDecls, td *TypeDecl, has func(string) bool) *Type {
	kind := kindOf(td)
	if kind == hosttype.KindUnknown {
		return nil
	}
	s := newScope(file, td, has)

	t := &Type{File: file, Decl: td}
	t.Qualified = file.QualifiedName(td)
	t.TypeKind = kind
	t.Params = td.TypeParams
	t.SuperNames = s.superNames(td.SuperTypes)
	t.Anns = s.annotations(td.Annotations)
	t.Src = hosttype.Origin{Backend: backendName, Path: file.Path, Line: td.Line, Col: td.Col}
	if kind == hosttype.KindEnum {
		t.Enum = td.Constants
	}
	t.Init(t)
	if kind == hosttype.KindEnum {
		return t
	}

	for i := range td.Props {
		pd := &td.Props[i]
		origin := hosttype.Origin{Backend: backendName, Path: file.Path, Line: pd.Line, Col: pd.Col}
		p := &Prop{Decl: pd}
		p.PropBase = hosttype.NewPropBase(ctx, t, pd.Name, s.typeRef(pd.Type, false), s.annotations(pd.Annotations), origin)
		t.Declare(p)
	}
	return t
}
