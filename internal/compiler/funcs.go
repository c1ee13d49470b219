package compiler

import (
	"dtolsp/internal/ast"
	"dtolsp/internal/hosttype"
)

// funcRule checks one argument of a QBE function. It returns the reason the
// prop is rejected, or "".
type funcRule func(p hosttype.BaseProp) string

func scalarOnly(p hosttype.BaseProp) string {
	if p.Facets().Has(hosttype.FacetAssociation) {
		return "a scalar property"
	}
	return ""
}

func stringOnly(p hosttype.BaseProp) string {
	if !p.Facets().Has(hosttype.FacetString) {
		return "a string property"
	}
	return ""
}

func comparableOnly(p hosttype.BaseProp) string {
	if p.Facets().Has(hosttype.FacetAssociation) || !hosttype.ScalarKindOf(p.Type()).Comparable() {
		return "a comparable scalar property"
	}
	return ""
}

func associationOnly(p hosttype.BaseProp) string {
	if !p.Facets().Has(hosttype.FacetEntityAssociation) {
		return "an association property"
	}
	return ""
}

func anyProp(hosttype.BaseProp) string { return "" }

var qbeFuncs = map[string]funcRule{
	"eq":                scalarOnly,
	"ne":                scalarOnly,
	"gt":                comparableOnly,
	"ge":                comparableOnly,
	"lt":                comparableOnly,
	"le":                comparableOnly,
	"like":              stringOnly,
	"notLike":           stringOnly,
	"null":              anyProp,
	"notNull":           anyProp,
	"valueIn":           scalarOnly,
	"valueNotIn":        scalarOnly,
	"associatedIdEq":    associationOnly,
	"associatedIdNe":    associationOnly,
	"associatedIdIn":    associationOnly,
	"associatedIdNotIn": associationOnly,
}

// QBEFuncNames lists the specification functions in a stable order.
func QBEFuncNames() []string {
	return []string{
		"eq", "ne", "gt", "ge", "lt", "le", "like", "notLike", "null", "notNull",
		"valueIn", "valueNotIn", "associatedIdEq", "associatedIdNe", "associatedIdIn", "associatedIdNotIn",
	}
}

// IsQBEFunc reports whether name is a specification-only function.
func IsQBEFunc(name string) bool {
	_, ok := qbeFuncs[name]
	return ok
}

// checkFunc validates the function of p, if any, against its bound args.
func (c *compiler) checkFunc(p *ast.PositiveProp, fn string, args []hosttype.BaseProp) bool {
	if p.FuncFlag != nil && fn != "like" && fn != "notLike" {
		c.errorf(InvalidFunc, p.FuncFlag.Span, "Flags are only allowed for like and notLike")
	}
	switch fn {
	case "":
		return true
	case "id":
		if len(args) != 1 {
			c.errorf(InvalidFunc, p.Func.Span, "id(...) takes exactly one property")
			return false
		}
		if !args[0].IsReference() {
			c.errorf(InvalidFunc, p.Args[0].Span, "id(%s) requires a reference association", args[0].Name())
			return false
		}
		return true
	case "flat":
		if len(args) != 1 {
			c.errorf(InvalidFunc, p.Func.Span, "flat(...) takes exactly one property")
			return false
		}
		if !args[0].Facets().Has(hosttype.FacetAssociation) {
			c.errorf(InvalidFunc, p.Args[0].Span, "flat(%s) requires an association", args[0].Name())
			return false
		}
		return true
	}

	rule, ok := qbeFuncs[fn]
	if !ok {
		c.errorf(InvalidFunc, p.Func.Span, "Unknown function %q", fn)
		return false
	}
	if !c.current.Is("specification") {
		c.errorf(InvalidFunc, p.Func.Span, "Function %q is only allowed in specification types", fn)
		return false
	}
	valid := true
	for i, a := range args {
		if reason := rule(a); reason != "" {
			c.errorf(InvalidFunc, p.Args[i].Span, "%s(...) requires %s, but %q is %s", fn, reason, a.Name(), hosttype.PropTypeOf(a))
			valid = false
		}
	}
	if len(args) > 1 && p.Alias == nil {
		c.errorf(InvalidFunc, p.Func.Span, "%s(...) with several properties requires an alias", fn)
		valid = false
	}
	return valid
}
