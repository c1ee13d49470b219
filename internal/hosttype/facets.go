package hosttype

import (
	"strings"
)

// Facets is a set of boolean prop properties.
type Facets uint32

const (
	FacetID Facets = 1 << iota
	FacetKey
	FacetFormula
	FacetTransient
	FacetTransientResolver
	FacetLogicalDeleted
	FacetEmbedded
	FacetList
	FacetAssociation
	FacetEntityAssociation
	FacetRecursive
	FacetIDView
	FacetManyToManyView
	FacetExcluded
	FacetNullable
	FacetGeneratedValue
	FacetString
)

// targetFacets are derived from the resolved target type.
const targetFacets = FacetEmbedded | FacetAssociation | FacetEntityAssociation | FacetRecursive

var facetNames = []struct {
	f    Facets
	name string
}{
	{FacetID, "id"},
	{FacetKey, "key"},
	{FacetFormula, "formula"},
	{FacetTransient, "transient"},
	{FacetTransientResolver, "transientResolver"},
	{FacetLogicalDeleted, "logicalDeleted"},
	{FacetEmbedded, "embedded"},
	{FacetList, "list"},
	{FacetAssociation, "association"},
	{FacetEntityAssociation, "entityAssociation"},
	{FacetRecursive, "recursive"},
	{FacetIDView, "idView"},
	{FacetManyToManyView, "manyToManyView"},
	{FacetExcluded, "excluded"},
	{FacetNullable, "nullable"},
	{FacetGeneratedValue, "generatedValue"},
	{FacetString, "string"},
}

func (f Facets) Has(x Facets) bool { return f&x == x }

func (f Facets) String() string {
	var parts []string
	for _, n := range facetNames {
		if f.Has(n.f) {
			parts = append(parts, n.name)
		}
	}
	return "{" + strings.Join(parts, ",") + "}"
}

// facetTable maps annotation simple names to the facet they set. Both backends
// consult it, so a prop carries the same facets whichever backend built it.
var facetTable = map[string]Facets{
	"Id":                    FacetID,
	"Key":                   FacetKey,
	"Formula":               FacetFormula,
	"Transient":             FacetTransient,
	"LogicalDeleted":        FacetLogicalDeleted,
	"IdView":                FacetIDView,
	"ManyToManyView":        FacetManyToManyView,
	"ExcludeFromAllScalars": FacetExcluded,
	"GeneratedValue":        FacetGeneratedValue,
}

var kindTable = map[string]Kind{
	"Entity":           KindEntity,
	"Embeddable":       KindEmbeddable,
	"MappedSuperclass": KindMappedSuperclass,
	"Immutable":        KindImmutable,
}

// KindOf returns the kind named by the type's annotations. When several kind
// annotations are present the last one wins.
func KindOf(anns []Annotation) Kind {
	kind := KindUnknown
	for _, a := range anns {
		if k, ok := kindTable[a.SimpleName()]; ok {
			kind = k
		}
	}
	return kind
}

// IsKindAnnotation reports whether name (simple or qualified) is one of the
// annotations that make a type immutable.
func IsKindAnnotation(name string) bool {
	_, ok := kindTable[Annotation{Name: name}.SimpleName()]
	return ok
}

var boxedTypes = map[string]struct{}{
	"java.lang.Long":    {},
	"java.lang.Integer": {},
	"java.lang.Short":   {},
	"java.lang.Byte":    {},
	"java.lang.Double":  {},
	"java.lang.Float":   {},
	"java.lang.Boolean": {},
}

var listTypes = map[string]struct{}{
	"java.util.List":                 {},
	"java.util.Set":                  {},
	"java.util.Collection":           {},
	"kotlin.collections.List":        {},
	"kotlin.collections.Set":         {},
	"kotlin.collections.Collection":  {},
	"kotlin.collections.MutableList": {},
	"kotlin.collections.MutableSet":  {},
	"List":                           {},
	"Set":                            {},
	"Collection":                     {},
	"MutableList":                    {},
	"MutableSet":                     {},
	"MutableCollection":              {},
}

// IsListType reports whether r is a collection the DTO language treats as a list.
func IsListType(r TypeRef) bool {
	_, ok := listTypes[r.Name]
	return ok
}

// IsBoxed reports whether r erases to a boxed JVM primitive.
func IsBoxed(r TypeRef) bool {
	_, ok := boxedTypes[r.Name]
	return ok
}

// DeclaredFacetsOf computes the facets that follow from annotations and the
// declared type. A prop is nullable when its type carries the optional marker,
// when an annotation's simple name starts with "Null", or when it is boxed.
func DeclaredFacetsOf(ref TypeRef, anns []Annotation) Facets {
	var f Facets
	for _, a := range anns {
		simple := a.SimpleName()
		if x, ok := facetTable[simple]; ok {
			f |= x
		}
		if strings.HasPrefix(simple, "Null") {
			f |= FacetNullable
		}
		if simple == "Transient" && (a.Args["value"] != "" || a.Args["ref"] != "") {
			f |= FacetTransientResolver
		}
	}
	if ref.Nullable || IsBoxed(ref) {
		f |= FacetNullable
	}
	if IsListType(ref) {
		f |= FacetList
	}
	if ScalarKindOf(ref) == ScalarString {
		f |= FacetString
	}
	return f
}
