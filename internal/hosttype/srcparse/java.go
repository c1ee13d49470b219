package srcparse

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"dtolsp/internal/hosttype"
)

var javaTypeDecls = map[string]struct{}{
	"class_declaration":           {},
	"interface_declaration":       {},
	"enum_declaration":            {},
	"annotation_type_declaration": {},
	"record_declaration":          {},
}

func (x *extractor) javaFile(root *sitter.Node) {
	for _, c := range namedChildren(root) {
		switch c.Type() {
		case "package_declaration":
			x.file.Package = x.compact(childOfType(c, "scoped_identifier", "identifier"))
		case "import_declaration":
			if hasToken(c, "static") {
				continue
			}
			imp := Import{Path: x.compact(childOfType(c, "scoped_identifier", "identifier"))}
			imp.Wildcard = childOfType(c, "asterisk") != nil
			if imp.Path != "" {
				x.file.Imports = append(x.file.Imports, imp)
			}
		default:
			if _, ok := javaTypeDecls[c.Type()]; ok {
				x.javaType(c, "")
			}
		}
	}
}

func (x *extractor) javaType(n *sitter.Node, outer string) {
	name := x.text(n.ChildByFieldName("name"))
	if name == "" {
		return
	}
	td := TypeDecl{
		Name:       qualify(outer, name),
		Interface:  n.Type() == "interface_declaration" || n.Type() == "annotation_type_declaration",
		Enum:       n.Type() == "enum_declaration",
		Annotation: n.Type() == "annotation_type_declaration",
	}
	td.Line, td.Col = position(n)
	td.Annotations = x.javaAnnotations(childOfType(n, "modifiers"))

	if tp := n.ChildByFieldName("type_parameters"); tp != nil {
		for _, p := range childrenOfType(tp, "type_parameter") {
			if id := childOfType(p, "type_identifier", "identifier"); id != nil {
				td.TypeParams = append(td.TypeParams, x.text(id))
			}
		}
	}

	if sc := n.ChildByFieldName("superclass"); sc != nil {
		for _, t := range namedChildren(sc) {
			td.SuperTypes = append(td.SuperTypes, x.javaTypeExpr(t))
		}
	}
	for _, list := range []*sitter.Node{n.ChildByFieldName("interfaces"), childOfType(n, "extends_interfaces")} {
		if list == nil {
			continue
		}
		for _, t := range namedChildren(childOfType(list, "type_list")) {
			td.SuperTypes = append(td.SuperTypes, x.javaTypeExpr(t))
		}
	}

	index := len(x.file.Types)
	x.file.Types = append(x.file.Types, td)

	body := n.ChildByFieldName("body")
	var members []*sitter.Node
	for _, c := range namedChildren(body) {
		switch c.Type() {
		case "enum_constant":
			x.file.Types[index].Constants = append(x.file.Types[index].Constants, x.text(c.ChildByFieldName("name")))
		case "enum_body_declarations":
			members = append(members, namedChildren(c)...)
		default:
			members = append(members, c)
		}
	}
	for _, m := range members {
		if _, ok := javaTypeDecls[m.Type()]; ok {
			x.javaType(m, td.Name)
			continue
		}
		if m.Type() != "method_declaration" || td.Enum {
			continue
		}
		if p, ok := x.javaProp(m, td.Interface); ok {
			x.file.Types[index].Props = append(x.file.Types[index].Props, p)
		}
	}
}

// javaProp accepts parameterless non-void instance methods: every such
// interface method (abstract or default), and abstract methods of classes.
func (x *extractor) javaProp(m *sitter.Node, iface bool) (PropDecl, bool) {
	mods := childOfType(m, "modifiers")
	if hasToken(mods, "static") || hasToken(mods, "private") {
		return PropDecl{}, false
	}
	if !iface && !hasToken(mods, "abstract") {
		return PropDecl{}, false
	}
	if params := m.ChildByFieldName("parameters"); params == nil || len(namedChildren(params)) > 0 {
		return PropDecl{}, false
	}
	typ := m.ChildByFieldName("type")
	if typ == nil || typ.Type() == "void_type" {
		return PropDecl{}, false
	}
	if m.ChildByFieldName("type_parameters") != nil {
		return PropDecl{}, false
	}
	nameNode := m.ChildByFieldName("name")
	p := PropDecl{
		Name:        hosttype.ToPropName(x.text(nameNode)),
		Type:        x.javaTypeExpr(typ),
		Annotations: x.javaAnnotations(mods),
	}
	p.Line, p.Col = position(nameNode)
	return p, true
}

func (x *extractor) javaAnnotations(mods *sitter.Node) []AnnDecl {
	var out []AnnDecl
	for _, c := range namedChildren(mods) {
		if c.Type() != "marker_annotation" && c.Type() != "annotation" {
			continue
		}
		a := AnnDecl{Name: x.compact(c.ChildByFieldName("name"))}
		if args := c.ChildByFieldName("arguments"); args != nil {
			for _, arg := range namedChildren(args) {
				if a.Args == nil {
					a.Args = make(map[string]string)
				}
				if arg.Type() == "element_value_pair" {
					a.Args[x.text(arg.ChildByFieldName("key"))] = x.text(arg.ChildByFieldName("value"))
				} else {
					a.Args["value"] = x.text(arg)
				}
			}
		}
		out = append(out, a)
	}
	return out
}

func (x *extractor) javaTypeExpr(n *sitter.Node) TypeExpr {
	if n == nil {
		return TypeExpr{}
	}
	switch n.Type() {
	case "generic_type":
		t := TypeExpr{Name: x.compact(childOfType(n, "scoped_type_identifier", "type_identifier"))}
		for _, a := range namedChildren(childOfType(n, "type_arguments")) {
			t.Args = append(t.Args, x.javaTypeExpr(a))
		}
		return t
	case "array_type":
		t := x.javaTypeExpr(n.ChildByFieldName("element"))
		t.Dims += strings.Count(x.text(n.ChildByFieldName("dimensions")), "[")
		return t
	case "annotated_type":
		kids := namedChildren(n)
		if len(kids) == 0 {
			return TypeExpr{}
		}
		return x.javaTypeExpr(kids[len(kids)-1])
	case "wildcard":
		// "? extends T" and "? super T" erase to their bound; "?" to Object.
		kids := namedChildren(n)
		for i := len(kids) - 1; i >= 0; i-- {
			if kids[i].Type() != "annotation" && kids[i].Type() != "marker_annotation" {
				return x.javaTypeExpr(kids[i])
			}
		}
		return TypeExpr{Name: "java.lang.Object"}
	default:
		return TypeExpr{Name: x.compact(n)}
	}
}
