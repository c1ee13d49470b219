package ast

// Inspect walks the tree depth-first, calling fn for every node. Returning false
// skips the node's children.
func Inspect(f *File, fn func(Node) bool) {
	if f == nil || !fn(f) {
		return
	}
	if f.Export != nil {
		fn(f.Export)
	}
	for _, imp := range f.Imports {
		fn(imp)
	}
	for _, t := range f.Types {
		if fn(t) && t.Body != nil {
			inspectBody(t.Body, fn)
		}
	}
}

func inspectBody(b *Body, fn func(Node) bool) {
	if !fn(b) {
		return
	}
	for _, p := range b.Props {
		if !fn(p) {
			continue
		}
		switch p := p.(type) {
		case *PositiveProp:
			if p.Body != nil {
				inspectBody(p.Body, fn)
			}
		case *AliasGroup:
			if p.Body != nil {
				inspectBody(p.Body, fn)
			}
		}
	}
}

// TracedBody is a body together with the dotted path of names leading to it,
// e.g. ["BookView", "authors", "store"].
type TracedBody struct {
	Path  []string
	Owner Node // *DtoType or *PositiveProp
	Body  *Body
}

// Traces lists every body in the file with its path. Alias groups do not add a
// path segment; their props belong to the enclosing body. A flat(x) prop is
// named by x.
func Traces(f *File) []TracedBody {
	if f == nil {
		return nil
	}
	var out []TracedBody
	var walk func(path []string, owner Node, b *Body)
	visitProp := func(path []string, p Prop) {
		pp, ok := p.(*PositiveProp)
		if ok && pp.Body != nil && pp.Name().Valid() {
			walk(appendPath(path, pp.Name().Name), pp, pp.Body)
		}
	}
	walk = func(path []string, owner Node, b *Body) {
		out = append(out, TracedBody{Path: path, Owner: owner, Body: b})
		for _, p := range b.Props {
			if group, ok := p.(*AliasGroup); ok {
				if group.Body != nil {
					for _, inner := range group.Body.Props {
						visitProp(path, inner)
					}
				}
				continue
			}
			visitProp(path, p)
		}
	}
	for _, t := range f.Types {
		if t.Body != nil && t.Name.Valid() {
			walk([]string{t.Name.Name}, t, t.Body)
		}
	}
	return out
}

// TraceAt returns the innermost body containing off.
func TraceAt(f *File, off uint32) (TracedBody, bool) {
	var best TracedBody
	found := false
	for _, tb := range Traces(f) {
		if !tb.Body.Span.Contains(off) {
			continue
		}
		if !found || tb.Body.Span.Start >= best.Body.Span.Start {
			best, found = tb, true
		}
	}
	return best, found
}

func appendPath(path []string, name string) []string {
	out := make([]string, len(path), len(path)+1)
	copy(out, path)
	return append(out, name)
}
