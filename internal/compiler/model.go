package compiler

import (
	"dtolsp/internal/ast"
	"dtolsp/internal/hosttype"
)

// Model is the validated form of one DTO file.
type Model struct {
	File  *ast.File
	Base  hosttype.BaseType
	Types []*DtoType
}

// Type returns the compiled DTO type with the given name.
func (m *Model) Type(name string) *DtoType {
	if m == nil {
		return nil
	}
	for _, t := range m.Types {
		if t.Name == name {
			return t
		}
	}
	return nil
}

type DtoType struct {
	Node      *ast.DtoType
	Name      string
	Base      hosttype.BaseType
	Modifiers []string
	Body      *Body
}

func (t *DtoType) Is(modifier string) bool {
	for _, m := range t.Modifiers {
		if m == modifier {
			return true
		}
	}
	return false
}

// Body is a bound prop list. Owner is nil when the enclosing prop has no
// resolvable target.
type Body struct {
	Node      *ast.Body
	Owner     hosttype.BaseType
	Props     []*PropNode
	UserProps []*UserPropNode
}

// Find returns the prop node with the given output name.
func (b *Body) Find(name string) *PropNode {
	if b == nil {
		return nil
	}
	for _, p := range b.Props {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// Names lists the output names of bound props and user props in order.
func (b *Body) Names() []string {
	if b == nil {
		return nil
	}
	out := make([]string, 0, len(b.Props)+len(b.UserProps))
	for _, p := range b.Props {
		out = append(out, p.Name)
	}
	for _, u := range b.UserProps {
		out = append(out, u.Name)
	}
	return out
}

// PropNode is a positive prop bound to host props. Chain has one element for
// plain props and the whole path for props inside flat(...) bodies. Props
// produced by a macro have a nil Node and a non-nil Macro.
type PropNode struct {
	Node      *ast.PositiveProp
	Macro     *ast.Macro
	Chain     []hosttype.BaseProp
	Args      []hosttype.BaseProp // every argument of a func prop
	Name      string
	Func      string
	Alias     string
	Modifier  string
	Optional  bool
	Required  bool
	Recursive bool
	Configs   []*ast.Config
	EnumMap   map[string]string
	Body      *Body
}

// BaseProp is the host prop the node projects.
func (p *PropNode) BaseProp() hosttype.BaseProp {
	if len(p.Chain) == 0 {
		return nil
	}
	return p.Chain[len(p.Chain)-1]
}

// IsFlat reports whether the node is a flat(...) projection.
func (p *PropNode) IsFlat() bool { return p.Func == "flat" }

type UserPropNode struct {
	Node *ast.UserProp
	Name string
	Type hosttype.TypeRef
}
