// Package compiler binds a parsed DTO file to its host base type: every prop
// reference is resolved, macros are expanded, function and configuration
// clauses are checked. Errors are collected, never panicked.
package compiler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"dtolsp/internal/ast"
	"dtolsp/internal/diag"
	"dtolsp/internal/hosttype"
	"dtolsp/internal/source"
)

// DefaultMaxDepth bounds how deep nested bodies may follow associations.
const DefaultMaxDepth = 10

var knownModifiers = []string{"abstract", "input", "specification", "unsafe"}

type Options struct {
	// BaseName is the name reported when base is nil.
	BaseName string
	// Context is the arena base was resolved in. When set, cycle and backend
	// errors recorded for BaseName explain an unresolved base.
	Context  *hosttype.Context
	MaxDepth int
	Reporter diag.Reporter
	Log      *slog.Logger
}

var tracer = otel.Tracer("dtolsp/compiler")

// Compile validates file against base. The model is nil only when ctx is
// cancelled; otherwise it holds every type that could be bound, even when
// errors were found.
func Compile(ctx context.Context, file *ast.File, base hosttype.BaseType, opts Options) (*Model, []*Error) {
	ctx, span := tracer.Start(ctx, "compiler.Compile")
	defer span.End()

	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	if opts.Log == nil {
		opts.Log = slog.New(slog.DiscardHandler)
	}
	c := &compiler{opts: opts}
	model := &Model{File: file, Base: base}
	if file == nil {
		return model, nil
	}
	c.imports = file.ImportedNames()

	seen := make(map[string]bool)
	for _, t := range file.Types {
		if err := ctx.Err(); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, c.errs
		}
		if !t.Name.Valid() {
			continue
		}
		if seen[t.Name.Name] {
			c.errorf(Duplicate, t.Name.Span, "Duplicated DTO type %q", t.Name.Name)
			continue
		}
		seen[t.Name.Name] = true
		model.Types = append(model.Types, c.compileType(t, base))
	}

	if base != nil {
		span.SetAttributes(attribute.String("dto.base", base.QualifiedName()))
	}
	span.SetAttributes(
		attribute.Int("dto.types", len(model.Types)),
		attribute.Int("dto.errors", len(c.errs)),
	)
	Report(opts.Reporter, c.errs)
	opts.Log.Debug("dto compiled", "types", len(model.Types), "errors", len(c.errs))
	return model, c.errs
}

type compiler struct {
	opts    Options
	imports map[string]string
	errs    []*Error
	current *DtoType
}

func (c *compiler) errorf(kind Kind, sp source.Span, format string, args ...any) *Error {
	e := &Error{Kind: kind, Span: sp, Message: fmt.Sprintf(format, args...)}
	c.errs = append(c.errs, e)
	return e
}

func (c *compiler) compileType(t *ast.DtoType, base hosttype.BaseType) *DtoType {
	dt := &DtoType{Node: t, Name: t.Name.Name, Base: base}
	c.current = dt
	for _, m := range t.Modifiers {
		if !slices.Contains(knownModifiers, m.Name) {
			c.errorf(InvalidModifier, m.Span, "Unknown modifier %q on DTO type", m.Name)
			continue
		}
		if slices.Contains(dt.Modifiers, m.Name) {
			c.errorf(InvalidModifier, m.Span, "Duplicated modifier %q", m.Name)
			continue
		}
		dt.Modifiers = append(dt.Modifiers, m.Name)
	}
	if dt.Is("input") && dt.Is("specification") {
		c.errorf(InvalidModifier, t.Name.Span, "A DTO type cannot be both input and specification")
	}

	if base == nil {
		c.unresolvedBase(t.Name.Span)
		return dt
	}
	if cyc := c.cycleOf(base.QualifiedName()); cyc != nil {
		e := c.errorf(UnresolvedType, t.Name.Span, "Immutable type '%s' has a cyclic supertype: %s", base.QualifiedName(), cyc)
		e.Cause = cyc
		return dt
	}
	if t.Body != nil {
		dt.Body = c.bindBody(t.Body, base, 0, nil)
	}
	return dt
}

func (c *compiler) unresolvedBase(sp source.Span) {
	name := c.opts.BaseName
	if c.opts.Context != nil {
		for _, err := range c.opts.Context.ErrorsFor(name) {
			var inc *hosttype.InconsistencyError
			if errors.As(err, &inc) {
				e := c.errorf(BackendInconsistency, sp, "Type metadata for '%s' is inconsistent: %s", name, inc.Detail)
				e.Cause = err
				return
			}
		}
		if cyc := c.cycleOf(name); cyc != nil {
			e := c.errorf(UnresolvedType, sp, "Immutable type '%s' has a cyclic supertype: %s", name, cyc)
			e.Cause = cyc
			return
		}
	}
	c.errorf(UnresolvedType, sp, "No immutable type '%s' found. Please build the project or use the export statement.", name)
}

func (c *compiler) cycleOf(name string) error {
	if c.opts.Context == nil {
		return nil
	}
	for _, err := range c.opts.Context.ErrorsFor(name) {
		var cyc *hosttype.CycleError
		if errors.As(err, &cyc) {
			return err
		}
	}
	return nil
}

// bodyState tracks which names are taken and whether by an explicit prop.
type bodyState struct {
	out      *Body
	explicit map[string]bool
}

func (s *bodyState) add(c *compiler, n *PropNode, explicit bool, sp source.Span) {
	for i, existing := range s.out.Props {
		if existing.Name != n.Name {
			continue
		}
		switch {
		case explicit && !s.explicit[n.Name]:
			// An explicit prop overrides a macro expansion in place.
			s.out.Props[i] = n
			s.explicit[n.Name] = true
		case explicit:
			c.errorf(Duplicate, sp, "Duplicated property %q", n.Name)
		}
		return
	}
	for _, u := range s.out.UserProps {
		if u.Name == n.Name {
			if explicit {
				c.errorf(Duplicate, sp, "Duplicated property %q", n.Name)
			}
			return
		}
	}
	s.out.Props = append(s.out.Props, n)
	s.explicit[n.Name] = explicit
}

func (c *compiler) bindBody(b *ast.Body, owner hosttype.BaseType, depth int, prefix []hosttype.BaseProp) *Body {
	s := &bodyState{out: &Body{Node: b, Owner: owner}, explicit: make(map[string]bool)}
	for _, p := range b.Props {
		c.bindEntry(s, p, owner, depth, prefix, nil)
	}
	return s.out
}

func (c *compiler) bindEntry(s *bodyState, p ast.Prop, owner hosttype.BaseType, depth int, prefix []hosttype.BaseProp, pattern *ast.AliasPattern) {
	switch p := p.(type) {
	case *ast.Macro:
		c.expandMacro(s, p, owner, prefix, pattern)
	case *ast.AliasGroup:
		if pattern != nil {
			c.errorf(InvalidFunc, p.Span, "Alias groups cannot be nested")
		}
		if p.Body == nil {
			return
		}
		for _, inner := range p.Body.Props {
			switch inner.(type) {
			case *ast.Macro, *ast.PositiveProp:
				c.bindEntry(s, inner, owner, depth, prefix, &p.Pattern)
			default:
				c.errorf(InvalidFunc, inner.NodeSpan(), "Only positive properties and macros are allowed in an alias group")
			}
		}
	case *ast.NegativeProp:
		c.negate(s, p, owner)
	case *ast.UserProp:
		c.userProp(s, p)
	case *ast.PositiveProp:
		c.bindProp(s, p, owner, depth, prefix, pattern)
	}
}

func (c *compiler) lookup(owner hosttype.BaseType, name ast.Ident) (hosttype.BaseProp, bool) {
	if owner == nil || !name.Valid() {
		return nil, false
	}
	if p, ok := owner.Props().Get(name.Name); ok {
		return p, true
	}
	e := c.errorf(UnresolvedProp, name.Span, "There is no property %q in the type %q", name.Name, owner.QualifiedName())
	e.Suggestion = closestName(name.Name, owner.Props().Keys())
	return nil, false
}

func (c *compiler) negate(s *bodyState, n *ast.NegativeProp, owner hosttype.BaseType) {
	if owner == nil {
		return
	}
	if _, ok := c.lookup(owner, n.Name); !ok {
		return
	}
	s.out.Props = slices.DeleteFunc(s.out.Props, func(p *PropNode) bool {
		if bp := p.BaseProp(); bp != nil && p.Func == "" && bp.Name() == n.Name.Name {
			delete(s.explicit, p.Name)
			return true
		}
		return false
	})
}

func (c *compiler) bindProp(s *bodyState, p *ast.PositiveProp, owner hosttype.BaseType, depth int, prefix []hosttype.BaseProp, pattern *ast.AliasPattern) {
	if owner == nil {
		// The enclosing body already failed; still check nested macros.
		if p.Body != nil {
			c.walkOrphan(p.Body)
		}
		return
	}
	name := p.Name()
	if !name.Valid() {
		return
	}
	fn := ""
	if p.Func != nil {
		fn = p.Func.Name
	}

	var args []hosttype.BaseProp
	for _, a := range p.Args {
		bp, ok := c.lookup(owner, a)
		if !ok {
			return
		}
		args = append(args, bp)
	}
	prop := args[0]
	if !c.checkFunc(p, fn, args) {
		return
	}

	node := &PropNode{
		Node:      p,
		Chain:     append(slices.Clone(prefix), prop),
		Args:      args,
		Func:      fn,
		Optional:  p.Optional,
		Required:  p.Required,
		Recursive: p.Recursive,
		Configs:   p.Configs,
	}
	node.Name = prop.Name()
	if p.Alias != nil {
		node.Alias = p.Alias.Name
		node.Name = p.Alias.Name
	} else if pattern != nil {
		node.Name = pattern.Apply(prop.Name())
	}
	if p.Modifier != nil {
		node.Modifier = p.Modifier.Name
		if !c.current.Is("input") && !c.current.Is("specification") {
			c.errorf(InvalidModifier, p.Modifier.Span, "Modifier %q is only allowed in input or specification types", p.Modifier.Name)
		}
	}
	if p.Recursive && !prop.Facets().Has(hosttype.FacetRecursive) {
		c.errorf(InvalidFunc, name.Span, "Property %q is not a recursive association", prop.Name())
	}
	c.checkConfigs(p.Configs, prop)

	switch {
	case p.EnumBody != nil:
		node.EnumMap = c.enumMapping(p.EnumBody, prop)
	case p.Body != nil:
		node.Body = c.childBody(p, fn, prop, node, depth)
	case fn == "" && !p.Recursive && prop.Facets().Has(hosttype.FacetEntityAssociation):
		c.errorf(MissingBody, name.Span, "Association property %q requires a body, or use id(%s)", prop.Name(), prop.Name())
	case fn == "flat":
		c.errorf(MissingBody, name.Span, "flat(%s) requires a body", prop.Name())
	}

	if fn == "flat" {
		// Children of a flat body surface on the enclosing body.
		if node.Body != nil {
			for _, child := range node.Body.Props {
				s.add(c, child, child.Node != nil, child.spanOr(p.Span))
			}
		}
		return
	}
	s.add(c, node, true, name.Span)
}

func (n *PropNode) spanOr(def source.Span) source.Span {
	if n.Node != nil {
		return n.Node.Span
	}
	if n.Macro != nil {
		return n.Macro.Span
	}
	return def
}

func (c *compiler) childBody(p *ast.PositiveProp, fn string, prop hosttype.BaseProp, node *PropNode, depth int) *Body {
	if fn != "" && fn != "flat" {
		c.errorf(InvalidFunc, p.Body.Span, "%s(...) cannot have a body", fn)
		c.walkOrphan(p.Body)
		return nil
	}
	target := prop.TargetType()
	if target == nil || !target.Kind().IsImmutable() {
		c.errorf(UnresolvedType, p.Body.Span, "Property %q is not an association, it cannot have a body", prop.Name())
		c.walkOrphan(p.Body)
		return nil
	}
	if depth+1 > c.opts.MaxDepth {
		c.errorf(DepthExceeded, p.Body.Span, "Nested bodies exceed the maximum depth of %d", c.opts.MaxDepth)
		return nil
	}
	var prefix []hosttype.BaseProp
	if fn == "flat" {
		prefix = node.Chain
	}
	return c.bindBody(p.Body, target, depth+1, prefix)
}

// walkOrphan reports macros inside a body that has no owning type.
func (c *compiler) walkOrphan(b *ast.Body) {
	for _, p := range b.Props {
		switch p := p.(type) {
		case *ast.Macro:
			c.errorf(MacroExpansion, p.Span, "Macro #%s has no owning type to expand", p.Name.Name)
		case *ast.AliasGroup:
			if p.Body != nil {
				c.walkOrphan(p.Body)
			}
		case *ast.PositiveProp:
			if p.Body != nil {
				c.walkOrphan(p.Body)
			}
		}
	}
}

func (c *compiler) enumMapping(eb *ast.EnumBody, prop hosttype.BaseProp) map[string]string {
	constants := prop.EnumConstants()
	if len(constants) == 0 {
		c.errorf(UnresolvedType, eb.Span, "Property %q is not an enum, it cannot have an enum mapping", prop.Name())
		return nil
	}
	out := make(map[string]string, len(eb.Mappings))
	values := make(map[string]bool, len(eb.Mappings))
	for _, m := range eb.Mappings {
		name := m.Constant.Name
		switch {
		case !slices.Contains(constants, name):
			c.errorf(UnresolvedProp, m.Constant.Span, "There is no enum constant %q in %q", name, prop.Type().Name)
		case out[name] != "":
			c.errorf(Duplicate, m.Constant.Span, "Duplicated mapping for %q", name)
		case values[m.Value.Text]:
			c.errorf(Duplicate, m.Value.Span, "Duplicated mapped value %s", m.Value.Text)
		default:
			out[name] = m.Value.Text
			values[m.Value.Text] = true
		}
	}
	for _, constant := range constants {
		if _, ok := out[constant]; !ok {
			c.errorf(InvalidConfig, eb.Span, "Enum constant %q is not mapped", constant)
		}
	}
	return out
}
