package srcparse

import (
	"strings"

	"dtolsp/internal/hosttype"
)

// Names visible without import in both languages.
var javaLang = map[string]struct{}{
	"Object": {}, "String": {}, "Integer": {}, "Long": {}, "Short": {}, "Byte": {},
	"Double": {}, "Float": {}, "Boolean": {}, "Character": {}, "Number": {},
	"Enum": {}, "Record": {}, "Comparable": {}, "Cloneable": {}, "Iterable": {},
	"CharSequence": {}, "Runnable": {}, "Void": {},
}

// Kotlin builtins as the JVM sees them. Primitives erase to the primitive
// when non-null and to the box otherwise.
var kotlinPrimitives = map[string][2]string{
	"Int":     {"int", "java.lang.Integer"},
	"Long":    {"long", "java.lang.Long"},
	"Short":   {"short", "java.lang.Short"},
	"Byte":    {"byte", "java.lang.Byte"},
	"Float":   {"float", "java.lang.Float"},
	"Double":  {"double", "java.lang.Double"},
	"Boolean": {"boolean", "java.lang.Boolean"},
	"Char":    {"char", "java.lang.Character"},
}

var kotlinClasses = map[string]string{
	"String":            "java.lang.String",
	"Any":               "java.lang.Object",
	"Number":            "java.lang.Number",
	"CharSequence":      "java.lang.CharSequence",
	"Comparable":        "java.lang.Comparable",
	"Enum":              "java.lang.Enum",
	"Iterable":          "java.lang.Iterable",
	"MutableIterable":   "java.lang.Iterable",
	"List":              "java.util.List",
	"MutableList":       "java.util.List",
	"Set":               "java.util.Set",
	"MutableSet":        "java.util.Set",
	"Collection":        "java.util.Collection",
	"MutableCollection": "java.util.Collection",
	"Map":               "java.util.Map",
	"MutableMap":        "java.util.Map",
}

var implicitSupers = map[string]struct{}{
	"java.lang.Object": {},
	"java.lang.Enum":   {},
	"java.lang.Record": {},
}

// scope resolves names written inside one type declaration.
type scope struct {
	file     *FileDecls
	has      func(qualified string) bool
	params   map[string]struct{}
	explicit map[string]string
}

func newScope(file *FileDecls, td *TypeDecl, has func(string) bool) *scope {
	s := &scope{
		file:     file,
		has:      has,
		params:   make(map[string]struct{}, len(td.TypeParams)),
		explicit: make(map[string]string),
	}
	for _, p := range td.TypeParams {
		s.params[p] = struct{}{}
	}
	for _, imp := range file.Imports {
		if local := imp.Local(); local != "" {
			s.explicit[local] = imp.Path
		}
	}
	return s
}

// typeName resolves a possibly dotted name as written to a qualified name.
// Unresolvable names are returned unchanged.
func (s *scope) typeName(name string) string {
	if _, ok := s.params[name]; ok {
		return name
	}
	first, rest := name, ""
	if i := strings.IndexByte(name, '.'); i >= 0 {
		first, rest = name[:i], name[i:]
	}
	if q, ok := s.explicit[first]; ok {
		return q + rest
	}
	if rest != "" && s.has(name) {
		return name
	}
	for i := range s.file.Types {
		t := &s.file.Types[i]
		if t.Name == first || strings.HasSuffix(t.Name, "."+first) {
			return s.file.QualifiedName(t) + rest
		}
	}
	if s.file.Package != "" {
		if cand := s.file.Package + "." + name; s.has(cand) {
			return cand
		}
	}
	for _, imp := range s.file.Imports {
		if imp.Wildcard {
			if cand := imp.Path + "." + name; s.has(cand) {
				return cand
			}
		}
	}
	if _, ok := javaLang[first]; ok && rest == "" {
		return "java.lang." + name
	}
	return name
}

// kotlinBuiltin maps a Kotlin builtin (plain or kotlin-qualified) unless an
// import shadows it.
func (s *scope) kotlinBuiltin(name string, boxed bool) (string, bool) {
	if _, shadowed := s.explicit[name]; shadowed {
		return "", false
	}
	bare := strings.TrimPrefix(strings.TrimPrefix(name, "kotlin.collections."), "kotlin.")
	if p, ok := kotlinPrimitives[bare]; ok {
		if boxed {
			return p[1], true
		}
		return p[0], true
	}
	if c, ok := kotlinClasses[bare]; ok {
		return c, true
	}
	return "", false
}

// typeRef resolves a written type. generic marks a type argument position,
// where Kotlin primitives are boxed.
func (s *scope) typeRef(e TypeExpr, generic bool) hosttype.TypeRef {
	if e.Name == "*" {
		return hosttype.TypeRef{Name: "java.lang.Object"}
	}
	ref := hosttype.TypeRef{Nullable: e.Nullable}
	if s.file.Lang == LangKotlin {
		if q, ok := s.kotlinBuiltin(e.Name, e.Nullable || generic); ok {
			ref.Name = q
		}
	}
	if ref.Name == "" {
		ref.Name = s.typeName(e.Name)
	}
	for i := 0; i < e.Dims; i++ {
		ref.Name += "[]"
	}
	for _, a := range e.Args {
		ref.Args = append(ref.Args, s.typeRef(a, true))
	}
	return ref
}

func (s *scope) annotations(in []AnnDecl) []hosttype.Annotation {
	var out []hosttype.Annotation
	for _, a := range in {
		name := a.Name
		first, rest := name, ""
		if i := strings.IndexByte(name, '.'); i >= 0 {
			first, rest = name[:i], name[i:]
		}
		if q, ok := s.explicit[first]; ok {
			name = q + rest
		}
		out = append(out, hosttype.Annotation{Name: name, Args: a.Args})
	}
	return out
}

// superNames resolves supertypes, dropping the implicit roots.
func (s *scope) superNames(in []TypeExpr) []string {
	var out []string
	for _, e := range in {
		name := s.typeRef(TypeExpr{Name: e.Name}, false).Name
		if _, skip := implicitSupers[name]; skip {
			continue
		}
		out = append(out, name)
	}
	return out
}
