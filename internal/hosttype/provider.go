package hosttype

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrNotFound is returned by lookups that need a type to exist.
var ErrNotFound = errors.New("type not found")

// Provider resolves qualified names to types. Resolve returns (nil, nil) when
// the name is unknown. Implementations build the type and its props but must
// not call ctx.Type; supertypes are bound by the Context afterwards and prop
// targets are resolved lazily.
type Provider interface {
	Name() string
	Resolve(ctx *Context, qualifiedName string) (BaseType, error)
	ClassNames() []string
	AnnotationNames() []string
	ImmutableNames() []string
}

// CycleError records a supertype edge back to a type still being resolved.
type CycleError struct {
	Chain []string
}

func (e *CycleError) Error() string {
	return "cyclic supertype: " + strings.Join(e.Chain, " -> ")
}

// InconsistencyError is returned when two providers describe the same type
// differently.
type InconsistencyError struct {
	Name   string
	First  string
	Second string
	Detail string
}

func (e *InconsistencyError) Error() string {
	return fmt.Sprintf("%s: %s and %s disagree: %s", e.Name, e.First, e.Second, e.Detail)
}

// Chain tries providers in order. With Verify set it resolves the name in every
// provider and fails closed when two of them disagree.
type Chain struct {
	Providers []Provider
	Verify    bool
}

func NewChain(verify bool, providers ...Provider) *Chain {
	return &Chain{Providers: providers, Verify: verify}
}

func (c *Chain) Name() string {
	names := make([]string, len(c.Providers))
	for i, p := range c.Providers {
		names[i] = p.Name()
	}
	return "chain(" + strings.Join(names, ",") + ")"
}

func (c *Chain) Resolve(ctx *Context, qualifiedName string) (BaseType, error) {
	var first BaseType
	var firstProvider Provider
	for _, p := range c.Providers {
		t, err := p.Resolve(ctx, qualifiedName)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p.Name(), err)
		}
		if t == nil {
			continue
		}
		if first == nil {
			if !c.Verify {
				return t, nil
			}
			first, firstProvider = t, p
			continue
		}
		if detail := Compare(first, t); detail != "" {
			return nil, &InconsistencyError{
				Name:   qualifiedName,
				First:  firstProvider.Name(),
				Second: p.Name(),
				Detail: detail,
			}
		}
	}
	return first, nil
}

func (c *Chain) ClassNames() []string {
	return c.union(Provider.ClassNames)
}

func (c *Chain) AnnotationNames() []string {
	return c.union(Provider.AnnotationNames)
}

func (c *Chain) ImmutableNames() []string {
	return c.union(Provider.ImmutableNames)
}

func (c *Chain) union(get func(Provider) []string) []string {
	var out []string
	for _, p := range c.Providers {
		out = append(out, get(p)...)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Compare describes the first structural difference between two freshly
// resolved descriptions of the same type, or returns "" when they agree. Only
// what both backends can see before supertypes are bound is compared: kind,
// supertype names, enum constants, and each declared prop's declared facets and
// element type.
func Compare(a, b BaseType) string {
	if a.Kind() != b.Kind() {
		return fmt.Sprintf("kind %s vs %s", a.Kind(), b.Kind())
	}
	if sa, sb := superNamesOf(a), superNamesOf(b); !slices.Equal(sa, sb) {
		return fmt.Sprintf("supertypes %v vs %v", sa, sb)
	}
	if !slices.Equal(a.EnumConstants(), b.EnumConstants()) {
		return fmt.Sprintf("enum constants %v vs %v", a.EnumConstants(), b.EnumConstants())
	}
	pa, pb := a.DeclaredProps(), b.DeclaredProps()
	ka := slices.Sorted(slices.Values(pa.Keys()))
	kb := slices.Sorted(slices.Values(pb.Keys()))
	if !slices.Equal(ka, kb) {
		return fmt.Sprintf("props %v vs %v", ka, kb)
	}
	for _, name := range ka {
		x, _ := pa.Get(name)
		y, _ := pb.Get(name)
		if fx, fy := x.DeclaredFacets(), y.DeclaredFacets(); fx != fy {
			return fmt.Sprintf("prop %s facets %s vs %s", name, fx, fy)
		}
		if ex, ey := x.Type().Element().Name, y.Type().Element().Name; ex != ey {
			return fmt.Sprintf("prop %s type %s vs %s", name, ex, ey)
		}
	}
	return ""
}

func superNamesOf(t BaseType) []string {
	if b, ok := t.(superBinder); ok {
		return b.superTypeNames()
	}
	names := make([]string, 0, len(t.SuperTypes()))
	for _, s := range t.SuperTypes() {
		names = append(names, s.QualifiedName())
	}
	return names
}
