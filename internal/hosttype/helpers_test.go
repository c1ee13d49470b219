package hosttype

import (
	"maps"
	"slices"
)

type fakeType struct{ TypeBase }

type fakeProp struct{ PropBase }

func (p *fakeProp) Redeclare(owner BaseType) BaseProp {
	cp := *p
	cp.PropBase = p.PropBase.Rebind(owner)
	return &cp
}

type propDecl struct {
	name string
	ref  TypeRef
	anns []string
}

type typeDecl struct {
	kind   Kind
	supers []string
	props  []propDecl
	enum   []string
}

// fakeProvider builds types from in-memory declarations.
type fakeProvider struct {
	name    string
	decls   map[string]typeDecl
	resolve int
}

func newFake(name string, decls map[string]typeDecl) *fakeProvider {
	return &fakeProvider{name: name, decls: decls}
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Resolve(ctx *Context, name string) (BaseType, error) {
	d, ok := f.decls[name]
	if !ok {
		return nil, nil
	}
	f.resolve++
	t := &fakeType{TypeBase{Qualified: name, TypeKind: d.kind, SuperNames: d.supers, Enum: d.enum}}
	t.Init(t)
	for _, pd := range d.props {
		var anns []Annotation
		for _, a := range pd.anns {
			anns = append(anns, Annotation{Name: a})
		}
		p := &fakeProp{NewPropBase(ctx, t, pd.name, pd.ref, anns, Origin{Backend: f.name})}
		t.Declare(p)
	}
	return t, nil
}

func (f *fakeProvider) ClassNames() []string {
	return slices.Sorted(maps.Keys(f.decls))
}

func (f *fakeProvider) AnnotationNames() []string { return nil }

func (f *fakeProvider) ImmutableNames() []string {
	var out []string
	for name, d := range f.decls {
		if d.kind.IsImmutable() {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out
}

func ref(name string, args ...TypeRef) TypeRef {
	return TypeRef{Name: name, Args: args}
}

func id(name string) propDecl {
	return propDecl{name: name, ref: ref("long"), anns: []string{"org.babyfish.jimmer.sql.Id"}}
}

func scalar(name string) propDecl {
	return propDecl{name: name, ref: ref("java.lang.String")}
}

func owners(m *PropMap) map[string]string {
	out := make(map[string]string)
	for _, p := range m.Values() {
		out[p.Name()] = p.DeclaringType().QualifiedName()
	}
	return out
}
