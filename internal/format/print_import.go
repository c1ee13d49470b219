package format

import (
	"dtolsp/internal/ast"
)

func (p *printer) printExport(e *ast.Export) {
	p.w.WriteString("export ")
	p.w.WriteString(e.Type.String())
	if e.Package != nil && len(e.Package.Parts) > 0 {
		p.w.Newline()
		p.w.IndentPush()
		p.w.WriteString("-> package ")
		p.w.WriteString(e.Package.String())
		p.w.IndentPop()
	}
}

type importedName struct {
	name  string
	alias string
}

// printImports prints one line per package. Names imported from the same
// package are merged into a brace group in first-seen order.
func (p *printer) printImports(imports []*ast.Import) {
	var (
		order  []string
		groups = make(map[string][]importedName)
	)
	add := func(pkg string, n importedName) {
		if n.name == "" {
			return
		}
		if _, ok := groups[pkg]; !ok {
			order = append(order, pkg)
		}
		for _, have := range groups[pkg] {
			if have == n {
				return
			}
		}
		groups[pkg] = append(groups[pkg], n)
	}
	for _, imp := range imports {
		if imp.Grouped {
			pkg := imp.Path.String()
			for _, it := range imp.Group {
				n := importedName{name: it.Name.Name}
				if it.Alias != nil {
					n.alias = it.Alias.Name
				}
				add(pkg, n)
			}
			continue
		}
		parts := imp.Path.Parts
		if len(parts) == 0 {
			continue
		}
		pkg := ast.QualifiedName{Parts: parts[:len(parts)-1]}.String()
		n := importedName{name: parts[len(parts)-1].Name}
		if imp.Alias != nil {
			n.alias = imp.Alias.Name
		}
		add(pkg, n)
	}

	for i, pkg := range order {
		if i > 0 {
			p.w.Newline()
		}
		names := groups[pkg]
		p.w.WriteString("import ")
		if pkg != "" {
			p.w.WriteString(pkg + ".")
		}
		if len(names) == 1 {
			p.w.WriteString(names[0].String())
			continue
		}
		p.w.WriteString("{")
		for j, n := range names {
			if j > 0 {
				p.w.WriteString(", ")
			}
			p.w.WriteString(n.String())
		}
		p.w.WriteString("}")
	}
}

func (n importedName) String() string {
	if n.alias != "" {
		return n.name + " as " + n.alias
	}
	return n.name
}
