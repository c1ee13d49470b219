// Package ast holds the syntax tree produced by internal/parser.
//
// Nodes are plain pointers. Every node records the span of each sub-token that a
// feature needs (hover, definition, formatting), so consumers never re-lex.
// A node created during error recovery may have zero-valued identifiers; callers
// check Ident.Valid before using a name.
package ast

import (
	"strings"

	"dtolsp/internal/source"
	"dtolsp/internal/token"
)

// Node is implemented by every syntax node.
type Node interface {
	NodeSpan() source.Span
}

type Ident struct {
	Name string
	Span source.Span
}

// Valid reports whether the identifier was actually present in the source.
func (id Ident) Valid() bool { return id.Name != "" }

type QualifiedName struct {
	Parts []Ident
	Span  source.Span
}

func (q QualifiedName) String() string {
	names := make([]string, len(q.Parts))
	for i, p := range q.Parts {
		names[i] = p.Name
	}
	return strings.Join(names, ".")
}

// Last returns the final segment or an invalid Ident.
func (q QualifiedName) Last() Ident {
	if len(q.Parts) == 0 {
		return Ident{}
	}
	return q.Parts[len(q.Parts)-1]
}

type Doc struct {
	Text string
	Span source.Span
}

type File struct {
	Span    source.Span
	Export  *Export
	Imports []*Import
	Types   []*DtoType
}

func (f *File) NodeSpan() source.Span { return f.Span }

// ImportedNames maps every locally visible imported name to its qualified name.
func (f *File) ImportedNames() map[string]string {
	out := make(map[string]string)
	for _, imp := range f.Imports {
		for local, qualified := range imp.Names() {
			out[local] = qualified
		}
	}
	return out
}

type Export struct {
	Span    source.Span
	Type    QualifiedName
	Package *QualifiedName // after "-> package"
}

func (e *Export) NodeSpan() source.Span { return e.Span }

// PackageName is the package generated DTO classes land in: the explicit
// "-> package" clause, otherwise the exported type's package plus ".dto".
func (e *Export) PackageName() string {
	if e.Package != nil && len(e.Package.Parts) > 0 {
		return e.Package.String()
	}
	if len(e.Type.Parts) > 1 {
		return QualifiedName{Parts: e.Type.Parts[:len(e.Type.Parts)-1]}.String() + ".dto"
	}
	return ""
}

type Import struct {
	Span    source.Span
	Path    QualifiedName
	Grouped bool
	Group   []ImportedType // import a.b.{C, D as E}
	Alias   *Ident         // import a.b.C as D
}

func (i *Import) NodeSpan() source.Span { return i.Span }

type ImportedType struct {
	Name  Ident
	Alias *Ident
}

// Names maps each locally visible name to its qualified name.
func (i *Import) Names() map[string]string {
	out := make(map[string]string)
	if i.Grouped {
		pkg := i.Path.String()
		for _, it := range i.Group {
			local := it.Name.Name
			if it.Alias != nil {
				local = it.Alias.Name
			}
			out[local] = pkg + "." + it.Name.Name
		}
		return out
	}
	local := i.Path.Last().Name
	if i.Alias != nil {
		local = i.Alias.Name
	}
	if local != "" {
		out[local] = i.Path.String()
	}
	return out
}

type Annotation struct {
	Span      source.Span
	Name      QualifiedName
	HasParens bool
	Args      []token.Token // verbatim tokens between the parentheses
}

func (a *Annotation) NodeSpan() source.Span { return a.Span }

type TypeRef struct {
	Span     source.Span
	Name     QualifiedName
	Args     []*GenericArg
	Nullable bool
}

func (t *TypeRef) NodeSpan() source.Span { return t.Span }

type GenericArg struct {
	Span     source.Span
	Wildcard bool
	Modifier *Ident // in / out
	Type     *TypeRef
}

type DtoType struct {
	Span        source.Span
	Doc         *Doc
	Annotations []*Annotation
	Modifiers   []Ident
	Name        Ident
	Implements  []*TypeRef
	Body        *Body
}

func (d *DtoType) NodeSpan() source.Span { return d.Span }

// HasModifier reports whether the type carries the named modifier.
func (d *DtoType) HasModifier(name string) bool {
	for _, m := range d.Modifiers {
		if m.Name == name {
			return true
		}
	}
	return false
}

type Body struct {
	Span   source.Span // from '{' through '}'
	Props  []Prop
	Closed bool
}

func (b *Body) NodeSpan() source.Span { return b.Span }

// Prop is one of *PositiveProp, *NegativeProp, *UserProp, *AliasGroup, *Macro.
type Prop interface {
	Node
	propNode()
}

type PositiveProp struct {
	Span        source.Span
	Doc         *Doc
	Configs     []*Config
	Annotations []*Annotation
	Plus        bool
	Modifier    *Ident // fixed / static / dynamic / fuzzy
	Func        *Ident
	FuncFlag    *FuncFlag
	Args        []Ident // names; one entry unless Func is set
	Optional    bool
	Required    bool
	Recursive   bool
	Alias       *Ident

	ChildDoc        *Doc
	BodyAnnotations []*Annotation
	BodyImplements  []*TypeRef
	Body            *Body
	EnumBody        *EnumBody
}

func (*PositiveProp) propNode()               {}
func (p *PositiveProp) NodeSpan() source.Span { return p.Span }

// Name is the base prop referenced: the only argument, or the first argument of a func.
func (p *PositiveProp) Name() Ident {
	if len(p.Args) == 0 {
		return Ident{}
	}
	return p.Args[0]
}

// FuncFlag is the "/i^$" flag block of QBE string functions such as like(/i name).
type FuncFlag struct {
	Span        source.Span
	Insensitive *Ident
	Prefix      bool
	Suffix      bool
}

type NegativeProp struct {
	Span source.Span
	Name Ident
}

func (*NegativeProp) propNode()               {}
func (n *NegativeProp) NodeSpan() source.Span { return n.Span }

type UserProp struct {
	Span        source.Span
	Doc         *Doc
	Annotations []*Annotation
	Name        Ident
	Type        *TypeRef
	Default     []token.Token
}

func (*UserProp) propNode()               {}
func (u *UserProp) NodeSpan() source.Span { return u.Span }

type AliasGroup struct {
	Span    source.Span
	Pattern AliasPattern
	Body    *Body
}

func (*AliasGroup) propNode()               {}
func (a *AliasGroup) NodeSpan() source.Span { return a.Span }

type AliasPattern struct {
	Span        source.Span
	Prefix      bool
	Original    *Ident
	Suffix      bool
	Replacement *Ident
}

// Apply renames a prop the way the alias group does at code generation.
func (p AliasPattern) Apply(name string) string {
	replacement := ""
	if p.Replacement != nil {
		replacement = p.Replacement.Name
	}
	switch {
	case p.Original != nil:
		return strings.Replace(name, p.Original.Name, replacement, 1)
	case p.Prefix:
		if name == "" {
			return replacement
		}
		return replacement + strings.ToUpper(name[:1]) + name[1:]
	case p.Suffix:
		return name + replacement
	default:
		return name
	}
}

type Macro struct {
	Span      source.Span
	Name      Ident
	HasParens bool
	Args      []QualifiedName
	Optional  bool
	Required  bool
}

func (*Macro) propNode()               {}
func (m *Macro) NodeSpan() source.Span { return m.Span }

type EnumBody struct {
	Span     source.Span
	Mappings []EnumMapping
}

type EnumMapping struct {
	Span     source.Span
	Constant Ident
	Value    token.Token
}

// Config is a configuration clause attached to a positive prop.
// Args holds the tokens between the parentheses verbatim.
type Config struct {
	Span    source.Span
	Kind    token.Kind
	Keyword source.Span
	Args    []token.Token
}

func (c *Config) NodeSpan() source.Span { return c.Span }

// Name returns the clause name without the bang, e.g. "orderBy".
func (c *Config) Name() string {
	return strings.TrimPrefix(c.Kind.String(), "!")
}
