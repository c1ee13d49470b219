package classfile

import (
	"fmt"
	"strings"
)

// Annotation is a runtime annotation. Type is the dotted qualified name.
type Annotation struct {
	Type    string
	Visible bool
	Values  []ElementPair
}

// ElementPair is one name=value element of an annotation.
type ElementPair struct {
	Name  string
	Value ElementValue
}

// ElementValue is an annotation element. Tag follows the class-file encoding:
// primitive tags and 's' carry Const, 'e' carries EnumType and Const, 'c'
// carries Class, '@' carries Nested, '[' carries Array.
type ElementValue struct {
	Tag      byte
	Const    string
	EnumType string
	Class    string
	Nested   *Annotation
	Array    []ElementValue
}

// Value returns the element with the given name.
func (a *Annotation) Value(name string) (ElementValue, bool) {
	for _, p := range a.Values {
		if p.Name == name {
			return p.Value, true
		}
	}
	return ElementValue{}, false
}

// SimpleName is the annotation's unqualified name.
func (a *Annotation) SimpleName() string {
	if i := strings.LastIndexAny(a.Type, ".$"); i >= 0 {
		return a.Type[i+1:]
	}
	return a.Type
}

// String renders the element in source-like form, e.g. "Foo.class" or
// "{1, 2}".
func (v ElementValue) String() string {
	switch v.Tag {
	case 'e':
		return v.Const
	case 'c':
		return v.Class + ".class"
	case '@':
		if v.Nested == nil {
			return "@?"
		}
		return "@" + v.Nested.Type
	case '[':
		parts := make([]string, len(v.Array))
		for i, e := range v.Array {
			parts[i] = e.String()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case 's':
		return fmt.Sprintf("%q", v.Const)
	default:
		return v.Const
	}
}

func readAnnotations(r *reader, pool *constPool, visible bool) ([]Annotation, error) {
	n := int(r.u2())
	out := make([]Annotation, 0, n)
	for i := 0; i < n; i++ {
		a, err := readAnnotation(r, pool, visible, 0)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

const maxElementDepth = 32

func readAnnotation(r *reader, pool *constPool, visible bool, depth int) (Annotation, error) {
	desc, err := pool.utf8(r.u2())
	if err != nil {
		return Annotation{}, err
	}
	a := Annotation{Type: descriptorClass(desc), Visible: visible}
	n := int(r.u2())
	for i := 0; i < n; i++ {
		name, err := pool.utf8(r.u2())
		if err != nil {
			return Annotation{}, err
		}
		v, err := readElementValue(r, pool, visible, depth+1)
		if err != nil {
			return Annotation{}, fmt.Errorf("%s.%s: %w", a.Type, name, err)
		}
		a.Values = append(a.Values, ElementPair{Name: name, Value: v})
	}
	return a, nil
}

func readElementValue(r *reader, pool *constPool, visible bool, depth int) (ElementValue, error) {
	if depth > maxElementDepth {
		return ElementValue{}, fmt.Errorf("classfile: annotation nesting deeper than %d", maxElementDepth)
	}
	v := ElementValue{Tag: r.u1()}
	var err error
	switch v.Tag {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z', 's':
		v.Const, err = pool.text(r.u2())
		if err == nil && v.Tag == 'Z' {
			if v.Const == "0" {
				v.Const = "false"
			} else {
				v.Const = "true"
			}
		}
	case 'e':
		var desc string
		if desc, err = pool.utf8(r.u2()); err == nil {
			v.EnumType = descriptorClass(desc)
			v.Const, err = pool.utf8(r.u2())
		}
	case 'c':
		var desc string
		if desc, err = pool.utf8(r.u2()); err == nil {
			v.Class = descriptorClass(desc)
		}
	case '@':
		var nested Annotation
		nested, err = readAnnotation(r, pool, visible, depth)
		v.Nested = &nested
	case '[':
		n := int(r.u2())
		for i := 0; i < n && err == nil; i++ {
			var e ElementValue
			e, err = readElementValue(r, pool, visible, depth+1)
			v.Array = append(v.Array, e)
		}
	default:
		err = fmt.Errorf("classfile: unknown element value tag %q", v.Tag)
	}
	return v, err
}

// descriptorClass turns "Lcom/x/Foo;" into "com.x.Foo". Other descriptors
// are rendered through ParseFieldType.
func descriptorClass(desc string) string {
	if strings.HasPrefix(desc, "L") && strings.HasSuffix(desc, ";") {
		return strings.ReplaceAll(desc[1:len(desc)-1], "/", ".")
	}
	if t, err := ParseFieldType(desc); err == nil {
		return t.String()
	}
	return desc
}
