package compiler

import (
	"slices"

	"dtolsp/internal/ast"
	"dtolsp/internal/hosttype"
)

var macros = map[string]func(hosttype.BaseProp) bool{
	"allScalars":    hosttype.IsAutoScalar,
	"allReferences": hosttype.IsAutoReference,
}

// MacroNames lists the macros in the order completion offers them.
func MacroNames() []string {
	return []string{"allScalars", "allReferences"}
}

// ExpandMacro returns the props a macro selects from owner, in owner's prop
// order. Each argument names the declaring type ("this", or a simple or
// qualified supertype name); with arguments only props declared there are
// kept. The error is non-empty when the macro or an argument is unknown.
func ExpandMacro(m *ast.Macro, owner hosttype.BaseType) ([]hosttype.BaseProp, *Error) {
	selects, ok := macros[m.Name.Name]
	if !ok {
		return nil, &Error{Kind: MacroExpansion, Span: m.Name.Span, Message: "Unknown macro #" + m.Name.Name}
	}
	if owner == nil {
		return nil, &Error{Kind: MacroExpansion, Span: m.Span, Message: "Macro #" + m.Name.Name + " has no owning type to expand"}
	}
	var declaring []hosttype.BaseType
	for _, arg := range m.Args {
		t := findDeclaring(owner, arg.String())
		if t == nil {
			return nil, &Error{
				Kind:    MacroExpansion,
				Span:    arg.Span,
				Message: "'" + arg.String() + "' is neither 'this' nor a supertype of '" + owner.QualifiedName() + "'",
			}
		}
		declaring = append(declaring, t)
	}

	var out []hosttype.BaseProp
	for _, p := range owner.Props().Values() {
		if !selects(p) {
			continue
		}
		if len(declaring) > 0 && !slices.ContainsFunc(declaring, func(t hosttype.BaseType) bool {
			return t.DeclaredProps().Has(p.Name())
		}) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// findDeclaring resolves a macro argument against owner and its supertypes.
func findDeclaring(owner hosttype.BaseType, name string) hosttype.BaseType {
	if name == "this" {
		return owner
	}
	var found hosttype.BaseType
	seen := make(map[string]bool)
	var visit func(t hosttype.BaseType)
	visit = func(t hosttype.BaseType) {
		if found != nil || seen[t.QualifiedName()] {
			return
		}
		seen[t.QualifiedName()] = true
		if t.QualifiedName() == name || t.Name() == name {
			found = t
			return
		}
		for _, s := range t.SuperTypes() {
			visit(s)
		}
	}
	visit(owner)
	return found
}

func (c *compiler) expandMacro(s *bodyState, m *ast.Macro, owner hosttype.BaseType, prefix []hosttype.BaseProp, pattern *ast.AliasPattern) {
	props, err := ExpandMacro(m, owner)
	if err != nil {
		c.errs = append(c.errs, err)
		return
	}
	for _, p := range props {
		node := &PropNode{
			Macro:    m,
			Chain:    append(slices.Clone(prefix), p),
			Args:     []hosttype.BaseProp{p},
			Name:     p.Name(),
			Optional: m.Optional,
			Required: m.Required,
		}
		if pattern != nil {
			node.Name = pattern.Apply(p.Name())
		}
		s.add(c, node, false, m.Span)
	}
}
