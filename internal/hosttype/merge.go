package hosttype

// MergeProps computes the full prop set of t from its declared props and its
// supertypes' merged props. Id props come first, then the rest. Within each
// group the order is: props of each supertype in supertype order, props
// redefined at this level, props declared here. A later entry for an existing
// name replaces the value in place, so the most specific declaration wins while
// the first position is kept.
func MergeProps(t BaseType) *PropMap {
	declared := t.DeclaredProps()
	supers := t.SuperTypes()
	out := NewPropMap()
	if len(supers) == 0 {
		for _, id := range []bool{true, false} {
			for _, p := range declared.Values() {
				if isID(p) == id {
					out.Set(p.Name(), p)
				}
			}
		}
		return out
	}

	redefined := redefinedProps(t, supers)
	for _, id := range []bool{true, false} {
		for _, s := range supers {
			for _, p := range s.Props().Values() {
				if isID(p) == id {
					out.Set(p.Name(), p)
				}
			}
		}
		for _, p := range redefined.Values() {
			if isID(p) == id {
				out.Set(p.Name(), p)
			}
		}
		for _, p := range declared.Values() {
			if isID(p) == id {
				out.Set(p.Name(), p)
			}
		}
	}
	return out
}

// redefinedProps are the supertype props (first occurrence per name) that the
// primary supertype does not provide, re-owned by t.
func redefinedProps(t BaseType, supers []BaseType) *PropMap {
	primary := PrimarySuperType(t)
	first := NewPropMap()
	for _, s := range supers {
		for _, p := range s.Props().Values() {
			if !first.Has(p.Name()) {
				first.Set(p.Name(), p)
			}
		}
	}
	out := NewPropMap()
	for _, p := range first.Values() {
		if primary == nil || !primary.Props().Has(p.Name()) {
			out.Set(p.Name(), p.Redeclare(t))
		}
	}
	return out
}

// PrimarySuperType is the first supertype that is not a mapped superclass.
func PrimarySuperType(t BaseType) BaseType {
	for _, s := range t.SuperTypes() {
		if s.Kind() != KindMappedSuperclass {
			return s
		}
	}
	return nil
}

// IDProp returns the first declared id prop, else the id prop of the first
// supertype that has one.
func IDProp(t BaseType) BaseProp {
	for _, p := range t.DeclaredProps().Values() {
		if isID(p) {
			return p
		}
	}
	for _, s := range t.SuperTypes() {
		if id := s.IDProp(); id != nil {
			return id
		}
	}
	return nil
}

func isID(p BaseProp) bool {
	return p.DeclaredFacets().Has(FacetID)
}
