package reflected

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"dtolsp/internal/hosttype"
	"dtolsp/internal/hosttype/classfile"
)

const backendName = "reflected"

const (
	kotlinMetadata    = "kotlin.Metadata"
	jetbrainsNullable = "org.jetbrains.annotations.Nullable"
	jetbrainsNotNull  = "org.jetbrains.annotations.NotNull"
	annotationsSuffix = "$annotations"
)

// Type is a host type read from a class file.
type Type struct {
	hosttype.TypeBase
	Class *classfile.Class
}

// Prop is a property backed by an abstract getter.
type Prop struct {
	hosttype.PropBase
	Method string
}

func (p *Prop) Redeclare(owner hosttype.BaseType) hosttype.BaseProp {
	cp := *p
	cp.PropBase = p.PropBase.Rebind(owner)
	return &cp
}

var implicitSupers = map[string]struct{}{
	"java.lang.Object": {},
	"java.lang.Enum":   {},
	"java.lang.Record": {},
}

func kindOf(cls *classfile.Class) hosttype.Kind {
	if cls.IsEnum() {
		return hosttype.KindEnum
	}
	return hosttype.KindOf(annotations(cls.Annotations, false))
}

// newType builds the structural view of cls. Only immutable types and enums
// are exposed; everything else resolves to nil.
func newType(ctx *hosttype.Context, cls *classfile.Class, origin hosttype.Origin) *Type {
	kind := kindOf(cls)
	if kind == hosttype.KindUnknown {
		return nil
	}
	kotlin := cls.HasAnnotation(kotlinMetadata)

	t := &Type{Class: cls}
	t.Qualified = javaName(cls.Name)
	t.TypeKind = kind
	t.Anns = annotations(cls.Annotations, kotlin)
	t.Src = origin
	if kind == hosttype.KindEnum {
		t.Enum = cls.EnumConstants()
	}

	supers := cls.Interfaces
	if cls.SuperName != "" && !cls.IsInterface() {
		supers = append([]string{cls.SuperName}, supers...)
	}
	if cls.Signature != "" {
		if sig, err := classfile.ParseClassSignature(cls.Signature); err == nil {
			t.Params = sig.TypeParams
		}
	}
	for _, s := range supers {
		if _, skip := implicitSupers[s]; !skip {
			t.SuperNames = append(t.SuperNames, javaName(s))
		}
	}
	t.Init(t)
	if kind == hosttype.KindEnum {
		return t
	}

	extra := kotlinPropertyAnnotations(cls)
	for _, m := range cls.Methods {
		if !isPropGetter(m, cls.IsInterface()) {
			continue
		}
		ref, err := returnType(m)
		if err != nil {
			continue
		}
		name := propName(m.Name, kotlin)
		raw := append(append([]classfile.Annotation(nil), extra[m.Name]...), m.Annotations...)
		if kotlin && hasAnnotation(raw, jetbrainsNullable) {
			ref.Nullable = true
		}
		p := &Prop{Method: m.Name}
		p.PropBase = hosttype.NewPropBase(ctx, t, name, ref, annotations(raw, kotlin), origin)
		t.Declare(p)
	}
	return t
}

// isPropGetter accepts parameterless non-void instance methods: abstract ones,
// plus default methods of interfaces (formula and transient props).
func isPropGetter(m classfile.Member, iface bool) bool {
	if m.Access&(classfile.AccStatic|classfile.AccPrivate|classfile.AccSynthetic|classfile.AccBridge) != 0 {
		return false
	}
	if m.Access&classfile.AccAbstract == 0 && !iface {
		return false
	}
	if m.Name == "<init>" || m.Name == "<clinit>" {
		return false
	}
	return strings.HasPrefix(m.Descriptor, "()") && m.Descriptor != "()V"
}

// kotlinPropertyAnnotations collects annotations the Kotlin compiler parks on
// synthetic getX$annotations methods, keyed by the getter name.
func kotlinPropertyAnnotations(cls *classfile.Class) map[string][]classfile.Annotation {
	out := make(map[string][]classfile.Annotation)
	for _, m := range cls.Methods {
		if getter, ok := strings.CutSuffix(m.Name, annotationsSuffix); ok {
			out[getter] = append(out[getter], m.Annotations...)
		}
	}
	return out
}

// propName maps a getter to its property name. Kotlin keeps the "is" prefix of
// boolean properties.
func propName(method string, kotlin bool) string {
	if kotlin && strings.HasPrefix(method, "is") {
		if r, _ := utf8.DecodeRuneInString(method[2:]); unicode.IsUpper(r) {
			return method
		}
	}
	return hosttype.ToPropName(method)
}

func returnType(m classfile.Member) (hosttype.TypeRef, error) {
	sig := m.Signature
	if sig == "" {
		sig = m.Descriptor
	}
	ms, err := classfile.ParseMethodSignature(sig)
	if err != nil {
		ms, err = classfile.ParseMethodSignature(m.Descriptor)
		if err != nil {
			return hosttype.TypeRef{}, err
		}
	}
	return typeRef(ms.Return), nil
}

func typeRef(jt classfile.JavaType) hosttype.TypeRef {
	ref := hosttype.TypeRef{Name: javaName(jt.Name)}
	if jt.Wildcard == '*' {
		ref.Name = "java.lang.Object"
	}
	for i := 0; i < jt.Dims; i++ {
		ref.Name += "[]"
	}
	for _, a := range jt.Args {
		ref.Args = append(ref.Args, typeRef(a))
	}
	return ref
}

func hasAnnotation(anns []classfile.Annotation, name string) bool {
	for _, a := range anns {
		if a.Type == name {
			return true
		}
	}
	return false
}

// annotations converts class-file annotations. For Kotlin classes the
// compiler's nullability annotations are dropped; the marker on TypeRef
// carries that information instead.
func annotations(in []classfile.Annotation, kotlin bool) []hosttype.Annotation {
	var out []hosttype.Annotation
	for _, a := range in {
		if a.Type == kotlinMetadata {
			continue
		}
		if kotlin && (a.Type == jetbrainsNullable || a.Type == jetbrainsNotNull) {
			continue
		}
		ann := hosttype.Annotation{Name: javaName(a.Type)}
		if len(a.Values) > 0 {
			ann.Args = make(map[string]string, len(a.Values))
			for _, v := range a.Values {
				ann.Args[v.Name] = v.Value.String()
			}
		}
		out = append(out, ann)
	}
	return out
}
