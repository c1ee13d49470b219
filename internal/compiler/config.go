package compiler

import (
	"slices"
	"strings"

	"dtolsp/internal/ast"
	"dtolsp/internal/hosttype"
	"dtolsp/internal/token"
)

// FetchTypes are the values !fetchType accepts.
var FetchTypes = []string{"SELECT", "JOIN_IF_NO_CACHE", "JOIN_ALWAYS"}

func (c *compiler) checkConfigs(cfgs []*ast.Config, prop hosttype.BaseProp) {
	seen := make(map[token.Kind]bool, len(cfgs))
	for _, cfg := range cfgs {
		if seen[cfg.Kind] {
			c.errorf(InvalidConfig, cfg.Keyword, "Duplicated !%s", cfg.Name())
			continue
		}
		seen[cfg.Kind] = true
		c.checkConfig(cfg, prop)
	}
}

func (c *compiler) checkConfig(cfg *ast.Config, prop hosttype.BaseProp) {
	f := prop.Facets()
	switch cfg.Kind {
	case token.CfgRecursion, token.CfgDepth:
		if !f.Has(hosttype.FacetRecursive) {
			c.errorf(InvalidConfig, cfg.Keyword, "!%s only applies to recursive associations, %q is not one", cfg.Name(), prop.Name())
			return
		}
	default:
		if !f.Has(hosttype.FacetEntityAssociation) {
			c.errorf(InvalidConfig, cfg.Keyword, "!%s only applies to associations, %q is not one", cfg.Name(), prop.Name())
			return
		}
	}

	span := cfg.Span
	switch cfg.Kind {
	case token.CfgLimit:
		if n := intArgs(cfg.Args); n < 1 || n > 2 {
			c.errorf(InvalidConfig, span, "!limit expects (limit) or (limit, offset) integer arguments")
		}
	case token.CfgOffset, token.CfgBatch, token.CfgDepth:
		if intArgs(cfg.Args) != 1 {
			c.errorf(InvalidConfig, span, "!%s expects one integer argument", cfg.Name())
		}
	case token.CfgFetchType:
		if len(cfg.Args) != 1 || !slices.Contains(FetchTypes, cfg.Args[0].Text) {
			c.errorf(InvalidConfig, span, "!fetchType expects one of %s", strings.Join(FetchTypes, ", "))
		}
	case token.CfgFilter, token.CfgRecursion:
		if !isQualifiedName(cfg.Args) {
			c.errorf(InvalidConfig, span, "!%s expects a class name", cfg.Name())
		}
	case token.CfgWhere:
		if len(cfg.Args) == 0 {
			c.errorf(InvalidConfig, span, "!where expects a predicate")
		}
	case token.CfgOrderBy:
		c.checkOrderBy(cfg, prop.TargetType())
	}
}

// intArgs returns the number of comma-separated integer arguments, or -1
// when anything else appears.
func intArgs(args []token.Token) int {
	if len(args) == 0 {
		return 0
	}
	n := 0
	for i, t := range args {
		if i%2 == 0 {
			if t.Kind != token.IntLit {
				return -1
			}
			n++
		} else if t.Kind != token.Comma {
			return -1
		}
	}
	if args[len(args)-1].Kind == token.Comma {
		return -1
	}
	return n
}

func isQualifiedName(args []token.Token) bool {
	if len(args) == 0 || len(args)%2 == 0 {
		return false
	}
	for i, t := range args {
		if i%2 == 0 && !t.IsWord() {
			return false
		}
		if i%2 == 1 && t.Kind != token.Dot {
			return false
		}
	}
	return true
}

// checkOrderBy validates "path [asc|desc], ..." items. The first segment of
// each path must be a prop of the association target.
func (c *compiler) checkOrderBy(cfg *ast.Config, target hosttype.BaseType) {
	if len(cfg.Args) == 0 {
		c.errorf(InvalidConfig, cfg.Span, "!orderBy expects at least one property")
		return
	}
	var item []token.Token
	flush := func() {
		defer func() { item = item[:0] }()
		if len(item) == 0 {
			c.errorf(InvalidConfig, cfg.Span, "!orderBy has an empty item")
			return
		}
		path := item
		if last := item[len(item)-1]; len(item) > 1 && item[len(item)-2].Kind != token.Dot {
			dir := strings.ToLower(last.Text)
			if dir != "asc" && dir != "desc" {
				c.errorf(InvalidConfig, last.Span, "!orderBy direction must be asc or desc")
				return
			}
			path = item[:len(item)-1]
		}
		if !isQualifiedName(path) {
			c.errorf(InvalidConfig, path[0].Span, "!orderBy expects a property path")
			return
		}
		if target != nil && !target.Props().Has(path[0].Text) {
			c.errorf(UnresolvedProp, path[0].Span, "There is no property %q in the type %q", path[0].Text, target.QualifiedName())
		}
	}
	for _, t := range cfg.Args {
		if t.Kind == token.Comma {
			flush()
			continue
		}
		item = append(item, t)
	}
	flush()
}
