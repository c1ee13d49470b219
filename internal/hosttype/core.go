package hosttype

import (
	"strings"
	"sync"
)

// TypeBase implements BaseType for backends to embed. A backend fills the
// exported fields, calls Init with the outer value, then Declare for each prop.
// Supertypes are bound by the Context after Provider.Resolve returns.
type TypeBase struct {
	Qualified  string
	TypeKind   Kind
	Params     []string
	SuperNames []string // qualified where resolvable
	Enum       []string
	Anns       []Annotation
	Src        Origin

	self     BaseType
	supers   []BaseType
	declared *PropMap
	lazy     *typeLazy
}

type typeLazy struct {
	propsOnce sync.Once
	props     *PropMap
	idOnce    sync.Once
	id        BaseProp
}

// Init records the outer value that embeds t. It must be called before any
// other method.
func (t *TypeBase) Init(self BaseType) {
	t.self = self
	t.declared = NewPropMap()
	t.lazy = &typeLazy{}
}

// Declare adds a prop declared directly on this type.
func (t *TypeBase) Declare(p BaseProp) {
	t.declared.Set(p.Name(), p)
}

func (t *TypeBase) Name() string {
	if i := strings.LastIndexByte(t.Qualified, '.'); i >= 0 {
		return t.Qualified[i+1:]
	}
	return t.Qualified
}

func (t *TypeBase) PackageName() string {
	if i := strings.LastIndexByte(t.Qualified, '.'); i >= 0 {
		return t.Qualified[:i]
	}
	return ""
}

func (t *TypeBase) QualifiedName() string     { return t.Qualified }
func (t *TypeBase) Kind() Kind                { return t.TypeKind }
func (t *TypeBase) SuperTypes() []BaseType    { return t.supers }
func (t *TypeBase) DeclaredProps() *PropMap   { return t.declared }
func (t *TypeBase) TypeParams() []string      { return t.Params }
func (t *TypeBase) EnumConstants() []string   { return t.Enum }
func (t *TypeBase) Annotations() []Annotation { return t.Anns }
func (t *TypeBase) Origin() Origin            { return t.Src }

// Props returns the merged prop set, computed once.
func (t *TypeBase) Props() *PropMap {
	t.lazy.propsOnce.Do(func() {
		t.lazy.props = MergeProps(t.self)
	})
	return t.lazy.props
}

func (t *TypeBase) IDProp() BaseProp {
	t.lazy.idOnce.Do(func() {
		t.lazy.id = IDProp(t.self)
	})
	return t.lazy.id
}

func (t *TypeBase) superTypeNames() []string { return t.SuperNames }

func (t *TypeBase) bindSuperTypes(supers []BaseType) { t.supers = supers }

// superBinder is satisfied by every type that embeds TypeBase.
type superBinder interface {
	superTypeNames() []string
	bindSuperTypes([]BaseType)
}

// PropBase implements most of BaseProp for backends to embed. Redeclare stays
// with the backend so the copy keeps its concrete type; Rebind does the shared
// part.
type PropBase struct {
	Owner    BaseType
	PropName string
	Ref      TypeRef
	Anns     []Annotation
	Src      Origin

	ctx      *Context
	declared Facets
	lazy     *propLazy
}

type propLazy struct {
	once   sync.Once
	target BaseType
	facets Facets
}

// NewPropBase computes the declared facets once. ctx resolves the target type
// on first access.
func NewPropBase(ctx *Context, owner BaseType, name string, ref TypeRef, anns []Annotation, src Origin) PropBase {
	return PropBase{
		Owner:    owner,
		PropName: name,
		Ref:      ref,
		Anns:     anns,
		Src:      src,
		ctx:      ctx,
		declared: DeclaredFacetsOf(ref, anns),
		lazy:     &propLazy{},
	}
}

// Rebind returns a copy owned by owner with fresh target-derived facets.
func (p PropBase) Rebind(owner BaseType) PropBase {
	p.Owner = owner
	p.lazy = &propLazy{}
	return p
}

func (p *PropBase) DeclaringType() BaseType   { return p.Owner }
func (p *PropBase) Name() string              { return p.PropName }
func (p *PropBase) Type() TypeRef             { return p.Ref }
func (p *PropBase) DeclaredFacets() Facets    { return p.declared }
func (p *PropBase) Annotations() []Annotation { return p.Anns }
func (p *PropBase) Origin() Origin            { return p.Src }

func (p *PropBase) Facets() Facets {
	p.resolve()
	return p.lazy.facets
}

// TargetType is the resolved element type when it is an immutable type or an
// enum, nil otherwise.
func (p *PropBase) TargetType() BaseType {
	p.resolve()
	return p.lazy.target
}

func (p *PropBase) EnumConstants() []string {
	if t := p.TargetType(); t != nil && t.Kind() == KindEnum {
		return t.EnumConstants()
	}
	return nil
}

func (p *PropBase) IsReference() bool {
	f := p.Facets()
	return f.Has(FacetAssociation) && !f.Has(FacetList)
}

func (p *PropBase) resolve() {
	p.lazy.once.Do(func() {
		f := p.declared &^ targetFacets
		var target BaseType
		if p.ctx != nil {
			target = p.ctx.Type(p.Ref.Element().Name)
		}
		if target != nil && target.Kind().IsImmutable() {
			f |= FacetAssociation
			switch target.Kind() {
			case KindEntity:
				f |= FacetEntityAssociation
			case KindEmbeddable:
				f |= FacetEmbedded
			}
			if p.Owner != nil && p.Owner.Kind() == KindEntity &&
				f&FacetManyToManyView == 0 && IsAssignable(p.Owner, target) {
				f |= FacetRecursive
			}
		}
		p.lazy.target = target
		p.lazy.facets = f
	})
}

// IsAssignable reports whether a value of type from can be used where to is
// expected, that is from is to or inherits it.
func IsAssignable(to, from BaseType) bool {
	return isAssignable(to.QualifiedName(), from, 0)
}

func isAssignable(to string, from BaseType, depth int) bool {
	if from == nil || depth > 32 {
		return false
	}
	if from.QualifiedName() == to {
		return true
	}
	for _, s := range from.SuperTypes() {
		if isAssignable(to, s, depth+1) {
			return true
		}
	}
	return false
}
