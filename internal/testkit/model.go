package testkit

import (
	"maps"
	"slices"

	"dtolsp/internal/hosttype"
)

const jimmerSQL = "org.babyfish.jimmer.sql."

// Model is an in-memory host model keyed by qualified type name. It serves as
// a hosttype.Provider for tests that do not care how types are read.
type Model map[string]TypeSpec

type TypeSpec struct {
	Kind   hosttype.Kind
	Supers []string
	Props  []PropSpec
	Enum   []string
	Params []string
}

type PropSpec struct {
	Name string
	Type hosttype.TypeRef
	Anns []string
}

// Entity is a shorthand for an entity type spec.
func Entity(props ...PropSpec) TypeSpec {
	return TypeSpec{Kind: hosttype.KindEntity, Props: props}
}

func Ref(name string, args ...hosttype.TypeRef) hosttype.TypeRef {
	return hosttype.TypeRef{Name: name, Args: args}
}

func ID(name string) PropSpec {
	return PropSpec{Name: name, Type: Ref("long"), Anns: []string{jimmerSQL + "Id"}}
}

func Scalar(name, typ string, anns ...string) PropSpec {
	return PropSpec{Name: name, Type: Ref(typ), Anns: anns}
}

func String(name string, anns ...string) PropSpec {
	return Scalar(name, "java.lang.String", anns...)
}

// Nullable marks the prop type optional, as Kotlin T? does.
func (p PropSpec) Nullable() PropSpec {
	p.Type.Nullable = true
	return p
}

// With appends annotations, e.g. With("Key").
func (p PropSpec) With(anns ...string) PropSpec {
	for _, a := range anns {
		p.Anns = append(p.Anns, jimmerSQL+a)
	}
	return p
}

func ManyToOne(name, target string) PropSpec {
	return PropSpec{Name: name, Type: Ref(target), Anns: []string{jimmerSQL + "ManyToOne"}}
}

func OneToMany(name, target string) PropSpec {
	return PropSpec{Name: name, Type: Ref("java.util.List", Ref(target)), Anns: []string{jimmerSQL + "OneToMany"}}
}

func (m Model) Name() string { return "memory" }

func (m Model) Resolve(ctx *hosttype.Context, name string) (hosttype.BaseType, error) {
	spec, ok := m[name]
	if !ok {
		return nil, nil
	}
	t := &memType{}
	t.Qualified = name
	t.TypeKind = spec.Kind
	t.SuperNames = spec.Supers
	t.Enum = spec.Enum
	t.Params = spec.Params
	t.Src = hosttype.Origin{Backend: "memory", Path: name}
	t.Init(t)
	for _, ps := range spec.Props {
		var anns []hosttype.Annotation
		for _, a := range ps.Anns {
			anns = append(anns, hosttype.Annotation{Name: a})
		}
		p := &memProp{}
		p.PropBase = hosttype.NewPropBase(ctx, t, ps.Name, ps.Type, anns, hosttype.Origin{Backend: "memory", Path: name})
		t.Declare(p)
	}
	return t, nil
}

func (m Model) ClassNames() []string {
	return slices.Sorted(maps.Keys(m))
}

func (m Model) AnnotationNames() []string {
	return []string{jimmerSQL + "Entity", jimmerSQL + "Id", jimmerSQL + "Key"}
}

func (m Model) ImmutableNames() []string {
	var out []string
	for name, spec := range m {
		if spec.Kind.IsImmutable() {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out
}

// Context returns a fresh type arena over the model.
func (m Model) Context() *hosttype.Context {
	return hosttype.NewContext(m, nil)
}

type memType struct{ hosttype.TypeBase }

type memProp struct{ hosttype.PropBase }

func (p *memProp) Redeclare(owner hosttype.BaseType) hosttype.BaseProp {
	cp := *p
	cp.PropBase = p.PropBase.Rebind(owner)
	return &cp
}

// Library is the book store model most tests share.
func Library() Model {
	return Model{
		"com.x.BaseEntity": {
			Kind:  hosttype.KindMappedSuperclass,
			Props: []PropSpec{Scalar("createdTime", "java.time.LocalDateTime")},
		},
		"com.x.Book": {
			Kind:   hosttype.KindEntity,
			Supers: []string{"com.x.BaseEntity"},
			Props: []PropSpec{
				ID("id"),
				String("name").With("Key"),
				Scalar("edition", "java.lang.Integer"),
				Scalar("price", "java.math.BigDecimal"),
				ManyToOne("store", "com.x.BookStore").Nullable(),
				PropSpec{Name: "authors", Type: Ref("java.util.List", Ref("com.x.Author")), Anns: []string{jimmerSQL + "ManyToMany"}},
				Scalar("status", "com.x.Status"),
				String("summary").With("Formula"),
				Scalar("deleted", "boolean").With("LogicalDeleted"),
			},
		},
		"com.x.BookStore": Entity(ID("id"), String("name"), OneToMany("books", "com.x.Book")),
		"com.x.Author": Entity(ID("id"), String("firstName"), String("lastName"),
			PropSpec{Name: "books", Type: Ref("java.util.List", Ref("com.x.Book")), Anns: []string{jimmerSQL + "ManyToMany"}}),
		"com.x.Status": {Kind: hosttype.KindEnum, Enum: []string{"DRAFT", "PUBLISHED"}},
		"com.x.Foo": Entity(
			ID("id"),
			String("name"),
			ManyToOne("parent", "com.x.Foo").Nullable(),
			OneToMany("children", "com.x.Foo"),
		),
	}
}
