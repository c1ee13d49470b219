// Package classfile reads the parts of JVM class files that describe a type's
// shape: names, access flags, supertypes, members, generic signatures and
// annotations. Code attributes are skipped.
package classfile

import (
	"errors"
	"fmt"
	"strings"
)

const magic = 0xCAFEBABE

// Access flags used by the reflected backend.
const (
	AccPublic     uint16 = 0x0001
	AccPrivate    uint16 = 0x0002
	AccStatic     uint16 = 0x0008
	AccSynthetic  uint16 = 0x1000
	AccBridge     uint16 = 0x0040
	AccInterface  uint16 = 0x0200
	AccAbstract   uint16 = 0x0400
	AccAnnotation uint16 = 0x2000
	AccEnum       uint16 = 0x4000
)

var (
	ErrBadMagic  = errors.New("classfile: bad magic")
	ErrTruncated = errors.New("classfile: truncated")
)

// Class is a parsed class file. Names use dots: "com.example.Book".
type Class struct {
	Major       uint16
	Minor       uint16
	Access      uint16
	Name        string
	SuperName   string // empty for java.lang.Object and module-info
	Interfaces  []string
	Signature   string
	Annotations []Annotation
	Fields      []Member
	Methods     []Member
}

// Member is a field or method.
type Member struct {
	Access      uint16
	Name        string
	Descriptor  string
	Signature   string
	Annotations []Annotation
}

func (c *Class) IsInterface() bool  { return c.Access&AccInterface != 0 }
func (c *Class) IsEnum() bool       { return c.Access&AccEnum != 0 }
func (c *Class) IsAnnotation() bool { return c.Access&AccAnnotation != 0 }

// SimpleName is the part after the last dot or '$'.
func (c *Class) SimpleName() string {
	name := c.Name
	if i := strings.LastIndexAny(name, ".$"); i >= 0 {
		return name[i+1:]
	}
	return name
}

// PackageName is the part before the last dot.
func (c *Class) PackageName() string {
	if i := strings.LastIndexByte(c.Name, '.'); i >= 0 {
		return c.Name[:i]
	}
	return ""
}

// HasAnnotation reports whether the class carries the annotation with the
// given qualified name, visible or not.
func (c *Class) HasAnnotation(name string) bool {
	for _, a := range c.Annotations {
		if a.Type == name {
			return true
		}
	}
	return false
}

// EnumConstants lists the ACC_ENUM fields in declaration order.
func (c *Class) EnumConstants() []string {
	var out []string
	for _, f := range c.Fields {
		if f.Access&AccEnum != 0 {
			out = append(out, f.Name)
		}
	}
	return out
}

// Parse decodes a class file.
func Parse(data []byte) (cls *Class, err error) {
	r := &reader{data: data}
	defer func() {
		if rec := recover(); rec != nil {
			if e, ok := rec.(error); ok && errors.Is(e, ErrTruncated) {
				cls, err = nil, e
				return
			}
			panic(rec)
		}
	}()

	if r.u4() != magic {
		return nil, ErrBadMagic
	}
	cls = &Class{}
	cls.Minor = r.u2()
	cls.Major = r.u2()
	pool, err := readPool(r)
	if err != nil {
		return nil, err
	}
	cls.Access = r.u2()
	if cls.Name, err = pool.className(r.u2()); err != nil {
		return nil, err
	}
	if idx := r.u2(); idx != 0 {
		if cls.SuperName, err = pool.className(idx); err != nil {
			return nil, err
		}
	}
	n := int(r.u2())
	for i := 0; i < n; i++ {
		name, err := pool.className(r.u2())
		if err != nil {
			return nil, err
		}
		cls.Interfaces = append(cls.Interfaces, name)
	}

	if cls.Fields, err = readMembers(r, pool); err != nil {
		return nil, fmt.Errorf("fields: %w", err)
	}
	if cls.Methods, err = readMembers(r, pool); err != nil {
		return nil, fmt.Errorf("methods: %w", err)
	}
	attrs, err := readAttributes(r, pool)
	if err != nil {
		return nil, err
	}
	cls.Signature = attrs.signature
	cls.Annotations = attrs.annotations
	return cls, nil
}

func readMembers(r *reader, pool *constPool) ([]Member, error) {
	n := int(r.u2())
	out := make([]Member, 0, n)
	for i := 0; i < n; i++ {
		var m Member
		var err error
		m.Access = r.u2()
		if m.Name, err = pool.utf8(r.u2()); err != nil {
			return nil, err
		}
		if m.Descriptor, err = pool.utf8(r.u2()); err != nil {
			return nil, err
		}
		attrs, err := readAttributes(r, pool)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", m.Name, err)
		}
		m.Signature = attrs.signature
		m.Annotations = attrs.annotations
		out = append(out, m)
	}
	return out, nil
}

type attributes struct {
	signature   string
	annotations []Annotation
}

func readAttributes(r *reader, pool *constPool) (attributes, error) {
	var out attributes
	n := int(r.u2())
	for i := 0; i < n; i++ {
		name, err := pool.utf8(r.u2())
		if err != nil {
			return out, err
		}
		length := int(r.u4())
		body := r.bytes(length)
		switch name {
		case "Signature":
			sub := &reader{data: body}
			if out.signature, err = pool.utf8(sub.u2()); err != nil {
				return out, err
			}
		case "RuntimeVisibleAnnotations", "RuntimeInvisibleAnnotations":
			anns, err := readAnnotations(&reader{data: body}, pool, name == "RuntimeVisibleAnnotations")
			if err != nil {
				return out, fmt.Errorf("%s: %w", name, err)
			}
			out.annotations = append(out.annotations, anns...)
		}
	}
	return out, nil
}
