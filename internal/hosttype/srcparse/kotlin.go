package srcparse

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

var kotlinTypeNodes = map[string]struct{}{
	"user_type":          {},
	"nullable_type":      {},
	"parenthesized_type": {},
	"not_nullable_type":  {},
	"function_type":      {},
}

func (x *extractor) kotlinFile(root *sitter.Node) {
	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		for _, c := range namedChildren(n) {
			switch c.Type() {
			case "package_header":
				x.file.Package = x.compact(childOfType(c, "identifier"))
			case "import_list":
				visit(c)
			case "import_header":
				x.kotlinImport(c)
			case "class_declaration":
				x.kotlinType(c, "")
			}
		}
	}
	visit(root)
}

func (x *extractor) kotlinImport(n *sitter.Node) {
	imp := Import{Path: x.compact(childOfType(n, "identifier"))}
	if imp.Path == "" {
		return
	}
	if alias := childOfType(n, "import_alias"); alias != nil {
		imp.Alias = x.text(childOfType(alias, "type_identifier", "simple_identifier"))
	} else if strings.HasSuffix(x.compact(n), "*") {
		imp.Wildcard = true
	}
	x.file.Imports = append(x.file.Imports, imp)
}

func (x *extractor) kotlinType(n *sitter.Node, outer string) {
	nameNode := childOfType(n, "type_identifier", "simple_identifier")
	if nameNode == nil {
		return
	}
	mods := childOfType(n, "modifiers")
	td := TypeDecl{
		Name:      qualify(outer, x.text(nameNode)),
		Interface: hasToken(n, "interface"),
		Enum:      hasToken(n, "enum") || childOfType(n, "enum_class_body") != nil,
	}
	for _, cm := range childrenOfType(mods, "class_modifier") {
		if x.text(cm) == "annotation" {
			td.Annotation = true
		}
	}
	td.Line, td.Col = position(n)
	td.Annotations = x.kotlinAnnotations(mods)

	for _, p := range childrenOfType(childOfType(n, "type_parameters"), "type_parameter") {
		if id := childOfType(p, "type_identifier", "simple_identifier"); id != nil {
			td.TypeParams = append(td.TypeParams, x.text(id))
		}
	}

	specs := childrenOfType(n, "delegation_specifier")
	if wrapped := childOfType(n, "delegation_specifiers"); wrapped != nil {
		specs = append(specs, childrenOfType(wrapped, "delegation_specifier")...)
	}
	for _, spec := range specs {
		target := childOfType(spec, "user_type")
		if target == nil {
			if call := childOfType(spec, "constructor_invocation"); call != nil {
				target = childOfType(call, "user_type")
			}
		}
		if target != nil {
			td.SuperTypes = append(td.SuperTypes, x.kotlinTypeExpr(target))
		}
	}

	index := len(x.file.Types)
	x.file.Types = append(x.file.Types, td)

	body := childOfType(n, "class_body", "enum_class_body")
	var members []*sitter.Node
	for _, c := range namedChildren(body) {
		switch c.Type() {
		case "enum_entry":
			if id := childOfType(c, "simple_identifier"); id != nil {
				x.file.Types[index].Constants = append(x.file.Types[index].Constants, x.text(id))
			}
		case "class_member_declarations":
			members = append(members, namedChildren(c)...)
		default:
			members = append(members, c)
		}
	}
	for _, m := range members {
		switch m.Type() {
		case "class_declaration":
			x.kotlinType(m, td.Name)
		case "property_declaration":
			if td.Enum {
				continue
			}
			if p, ok := x.kotlinProp(m); ok {
				x.file.Types[index].Props = append(x.file.Types[index].Props, p)
			}
		}
	}
}

// kotlinProp extracts a val/var member. Extension and private properties are
// skipped.
func (x *extractor) kotlinProp(n *sitter.Node) (PropDecl, bool) {
	mods := childOfType(n, "modifiers")
	for _, vm := range childrenOfType(mods, "visibility_modifier") {
		if x.text(vm) == "private" {
			return PropDecl{}, false
		}
	}
	decl := childOfType(n, "variable_declaration")
	if decl == nil {
		return PropDecl{}, false
	}
	// A receiver type before the name makes this an extension property.
	for _, c := range namedChildren(n) {
		if c == decl {
			break
		}
		if _, ok := kotlinTypeNodes[c.Type()]; ok {
			return PropDecl{}, false
		}
	}
	nameNode := childOfType(decl, "simple_identifier")
	if nameNode == nil {
		return PropDecl{}, false
	}
	var typ TypeExpr
	for _, c := range namedChildren(decl) {
		if _, ok := kotlinTypeNodes[c.Type()]; ok {
			typ = x.kotlinTypeExpr(c)
			break
		}
	}
	if typ.Name == "" {
		return PropDecl{}, false
	}
	p := PropDecl{
		Name:        x.text(nameNode),
		Type:        typ,
		Annotations: append(x.kotlinAnnotations(mods), x.kotlinAnnotations(decl)...),
	}
	p.Line, p.Col = position(nameNode)
	return p, true
}

func (x *extractor) kotlinAnnotations(n *sitter.Node) []AnnDecl {
	var out []AnnDecl
	for _, c := range childrenOfType(n, "annotation") {
		var a AnnDecl
		if call := childOfType(c, "constructor_invocation"); call != nil {
			a.Name = x.compact(childOfType(call, "user_type"))
			for _, arg := range childrenOfType(childOfType(call, "value_arguments"), "value_argument") {
				if a.Args == nil {
					a.Args = make(map[string]string)
				}
				kids := namedChildren(arg)
				if hasToken(arg, "=") && len(kids) >= 2 {
					a.Args[x.text(kids[0])] = x.text(kids[len(kids)-1])
				} else if len(kids) > 0 {
					a.Args["value"] = x.text(kids[len(kids)-1])
				}
			}
		} else {
			a.Name = x.compact(childOfType(c, "user_type"))
		}
		if a.Name != "" {
			out = append(out, a)
		}
	}
	return out
}

func (x *extractor) kotlinTypeExpr(n *sitter.Node) TypeExpr {
	if n == nil {
		return TypeExpr{}
	}
	switch n.Type() {
	case "nullable_type":
		for _, c := range namedChildren(n) {
			if _, ok := kotlinTypeNodes[c.Type()]; ok {
				t := x.kotlinTypeExpr(c)
				t.Nullable = true
				return t
			}
		}
		return TypeExpr{}
	case "parenthesized_type", "not_nullable_type":
		for _, c := range namedChildren(n) {
			if _, ok := kotlinTypeNodes[c.Type()]; ok {
				return x.kotlinTypeExpr(c)
			}
		}
		return TypeExpr{}
	case "function_type":
		return TypeExpr{Name: "kotlin.Function"}
	case "user_type":
		// the grammar inlines simple_user_type; older builds still emit it
		var parts []string
		var args *sitter.Node
		for _, c := range namedChildren(n) {
			switch c.Type() {
			case "type_identifier", "simple_identifier":
				parts = append(parts, x.text(c))
				args = nil
			case "type_arguments":
				args = c
			case "simple_user_type":
				parts = append(parts, x.text(childOfType(c, "type_identifier", "simple_identifier")))
				args = childOfType(c, "type_arguments")
			}
		}
		if len(parts) == 0 {
			return TypeExpr{Name: x.compact(n)}
		}
		t := TypeExpr{Name: strings.Join(parts, ".")}
		for _, proj := range childrenOfType(args, "type_projection") {
			arg := TypeExpr{Name: "*"}
			for _, c := range namedChildren(proj) {
				if _, ok := kotlinTypeNodes[c.Type()]; ok {
					arg = x.kotlinTypeExpr(c)
					break
				}
			}
			t.Args = append(t.Args, arg)
		}
		return t
	default:
		return TypeExpr{Name: x.compact(n)}
	}
}
