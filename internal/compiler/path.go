package compiler

import (
	"dtolsp/internal/hosttype"
)

// OwnerAlongPath follows prop names from base through association targets,
// as a nested body does. It stops with false at an unknown name, a
// non-association, or past DefaultMaxDepth.
func OwnerAlongPath(base hosttype.BaseType, names []string) (hosttype.BaseType, bool) {
	owner := base
	for i, name := range names {
		if owner == nil || i >= DefaultMaxDepth {
			return nil, false
		}
		p, ok := owner.Props().Get(name)
		if !ok {
			return nil, false
		}
		owner = p.TargetType()
		if owner != nil && !owner.Kind().IsImmutable() {
			return nil, false
		}
	}
	return owner, owner != nil
}

// PropsAlongPath is the merged prop set of the owner reached by names.
func PropsAlongPath(base hosttype.BaseType, names []string) *hosttype.PropMap {
	owner, ok := OwnerAlongPath(base, names)
	if !ok {
		return nil
	}
	return owner.Props()
}

// PropAt returns the innermost compiled prop whose source span contains off,
// together with the body holding it.
func (m *Model) PropAt(off uint32) (*PropNode, *Body) {
	if m == nil {
		return nil, nil
	}
	for _, t := range m.Types {
		if t.Node == nil || !t.Node.Span.Contains(off) {
			continue
		}
		return propAt(t.Body, off)
	}
	return nil, nil
}

func propAt(b *Body, off uint32) (*PropNode, *Body) {
	if b == nil {
		return nil, nil
	}
	for _, p := range b.Props {
		if p.Node == nil || !p.Node.Span.Contains(off) {
			continue
		}
		if inner, body := propAt(p.Body, off); inner != nil {
			return inner, body
		}
		return p, b
	}
	return nil, nil
}
