// Package hosttype is the structural view of host-language (Java/Kotlin) entity
// models that DTO files project over.
//
// Two backends implement BaseType and BaseProp: hosttype/reflected reads compiled
// class files, hosttype/srcparse parses Java and Kotlin sources. Everything above
// this package (the merge engine, the compiler, LSP features) works on the
// interfaces only and never asks which backend produced a value.
package hosttype

import (
	"strings"
)

// Kind classifies a host type by its Jimmer annotation.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindEntity
	KindEmbeddable
	KindMappedSuperclass
	KindImmutable
	// KindEnum marks enum classes, which are resolvable only as prop targets.
	KindEnum
)

var kindNames = [...]string{
	KindUnknown:          "Unknown",
	KindEntity:           "Entity",
	KindEmbeddable:       "Embeddable",
	KindMappedSuperclass: "MappedSuperclass",
	KindImmutable:        "Immutable",
	KindEnum:             "Enum",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Unknown"
}

// IsImmutable reports whether values of the kind are Jimmer immutable types.
func (k Kind) IsImmutable() bool {
	return k >= KindEntity && k <= KindImmutable
}

// TypeRef is a declared prop type. Name is qualified when the backend could
// resolve it (class files always can) and simple otherwise.
type TypeRef struct {
	Name     string
	Args     []TypeRef
	Nullable bool // structural optional marker (Kotlin T?)
}

// SimpleName is the last dotted segment of Name.
func (r TypeRef) SimpleName() string {
	if i := strings.LastIndexByte(r.Name, '.'); i >= 0 {
		return r.Name[i+1:]
	}
	return r.Name
}

// Element is the first type argument for collection types, the ref itself otherwise.
func (r TypeRef) Element() TypeRef {
	if IsListType(r) && len(r.Args) > 0 {
		return r.Args[0]
	}
	return r
}

// String renders the ref with simple names, e.g. "List<Book>?".
func (r TypeRef) String() string {
	var sb strings.Builder
	r.write(&sb)
	return sb.String()
}

func (r TypeRef) write(sb *strings.Builder) {
	sb.WriteString(r.SimpleName())
	if len(r.Args) > 0 {
		sb.WriteByte('<')
		for i, a := range r.Args {
			if i > 0 {
				sb.WriteString(", ")
			}
			a.write(sb)
		}
		sb.WriteByte('>')
	}
	if r.Nullable {
		sb.WriteByte('?')
	}
}

// Origin locates a declaration. Line and Col are 0-based; Path is empty for
// declarations without a file (classes inside jars have the jar path plus Entry).
type Origin struct {
	Backend string
	Path    string
	Entry   string
	Line    uint32
	Col     uint32
}

// Annotation is an annotation use. Name is qualified when known. Args holds
// element values as source text.
type Annotation struct {
	Name string
	Args map[string]string
}

// SimpleName is the last dotted segment of Name.
func (a Annotation) SimpleName() string {
	if i := strings.LastIndexByte(a.Name, '.'); i >= 0 {
		return a.Name[i+1:]
	}
	return a.Name
}

// BaseType is a host type seen structurally.
type BaseType interface {
	Name() string
	PackageName() string
	QualifiedName() string
	Kind() Kind
	SuperTypes() []BaseType
	DeclaredProps() *PropMap
	Props() *PropMap
	IDProp() BaseProp
	TypeParams() []string
	EnumConstants() []string
	Annotations() []Annotation
	Origin() Origin
}

// BaseProp is one property of a host type.
type BaseProp interface {
	DeclaringType() BaseType
	Name() string
	Type() TypeRef
	// Facets returns every facet, resolving the target type on first use.
	Facets() Facets
	// DeclaredFacets returns the facets that follow from annotations and the
	// declared type alone.
	DeclaredFacets() Facets
	TargetType() BaseType
	EnumConstants() []string
	Annotations() []Annotation
	Origin() Origin
	IsReference() bool
	// Redeclare returns a copy of the prop owned by owner.
	Redeclare(owner BaseType) BaseProp
}

// PropMap is an insertion-ordered map of props by name. Setting an existing
// key replaces the value but keeps its position.
type PropMap struct {
	keys  []string
	props map[string]BaseProp
}

func NewPropMap() *PropMap {
	return &PropMap{props: make(map[string]BaseProp)}
}

func (m *PropMap) Set(name string, p BaseProp) {
	if _, ok := m.props[name]; !ok {
		m.keys = append(m.keys, name)
	}
	m.props[name] = p
}

func (m *PropMap) Get(name string) (BaseProp, bool) {
	if m == nil {
		return nil, false
	}
	p, ok := m.props[name]
	return p, ok
}

func (m *PropMap) Has(name string) bool {
	_, ok := m.Get(name)
	return ok
}

func (m *PropMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Keys returns the names in order. Callers must not modify the slice.
func (m *PropMap) Keys() []string {
	if m == nil {
		return nil
	}
	return m.keys
}

// Values returns the props in order.
func (m *PropMap) Values() []BaseProp {
	if m == nil {
		return nil
	}
	out := make([]BaseProp, len(m.keys))
	for i, k := range m.keys {
		out[i] = m.props[k]
	}
	return out
}
