package compiler

import (
	"strings"

	"dtolsp/internal/ast"
	"dtolsp/internal/hosttype"
)

// builtinTypes are the names a user prop may use without an import.
var builtinTypes = map[string]string{
	"boolean": "boolean", "char": "char", "byte": "byte", "short": "short",
	"int": "int", "long": "long", "float": "float", "double": "double",
	"Boolean":           "java.lang.Boolean",
	"Char":              "java.lang.Character",
	"Character":         "java.lang.Character",
	"Byte":              "java.lang.Byte",
	"Short":             "java.lang.Short",
	"Int":               "java.lang.Integer",
	"Integer":           "java.lang.Integer",
	"Long":              "java.lang.Long",
	"Float":             "java.lang.Float",
	"Double":            "java.lang.Double",
	"Any":               "java.lang.Object",
	"Object":            "java.lang.Object",
	"String":            "java.lang.String",
	"Array":             "kotlin.Array",
	"Iterable":          "java.lang.Iterable",
	"MutableIterable":   "java.lang.Iterable",
	"Collection":        "java.util.Collection",
	"MutableCollection": "java.util.Collection",
	"List":              "java.util.List",
	"MutableList":       "java.util.List",
	"Set":               "java.util.Set",
	"MutableSet":        "java.util.Set",
	"Map":               "java.util.Map",
	"MutableMap":        "java.util.Map",
}

// BuiltinTypeNames lists the builtin user prop type names.
func BuiltinTypeNames() []string {
	out := make([]string, 0, len(builtinTypes))
	for name := range builtinTypes {
		out = append(out, name)
	}
	return out
}

func (c *compiler) userProp(s *bodyState, u *ast.UserProp) {
	if !u.Name.Valid() || u.Type == nil {
		return
	}
	ref, ok := c.userTypeRef(u.Type)
	if !ok {
		return
	}
	for _, p := range s.out.Props {
		if p.Name == u.Name.Name {
			c.errorf(Duplicate, u.Name.Span, "Duplicated property %q", u.Name.Name)
			return
		}
	}
	for _, existing := range s.out.UserProps {
		if existing.Name == u.Name.Name {
			c.errorf(Duplicate, u.Name.Span, "Duplicated property %q", u.Name.Name)
			return
		}
	}
	s.out.UserProps = append(s.out.UserProps, &UserPropNode{Node: u, Name: u.Name.Name, Type: ref})
}

func (c *compiler) userTypeRef(tr *ast.TypeRef) (hosttype.TypeRef, bool) {
	written := tr.Name.String()
	name, ok := builtinTypes[written]
	if !ok {
		name, ok = c.imports[written]
	}
	if !ok && strings.Contains(written, ".") {
		name, ok = written, true
	}
	if !ok {
		e := c.errorf(UnresolvedType, tr.Name.Span, "Type %q is neither builtin nor imported", written)
		e.userType = true
		return hosttype.TypeRef{}, false
	}
	ref := hosttype.TypeRef{Name: name, Nullable: tr.Nullable}
	valid := true
	for _, a := range tr.Args {
		if a.Wildcard || a.Type == nil {
			ref.Args = append(ref.Args, hosttype.TypeRef{Name: "java.lang.Object"})
			continue
		}
		arg, ok := c.userTypeRef(a.Type)
		valid = valid && ok
		ref.Args = append(ref.Args, arg)
	}
	return ref, valid
}
