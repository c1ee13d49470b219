package testkit

import (
	"encoding/binary"
	"fmt"
	"strings"

	"fortio.org/safecast"
)

// ClassBuilder assembles minimal JVM class files for tests: no code
// attributes, just the shape the reflected host backend reads.
type ClassBuilder struct {
	name       string
	super      string
	access     uint16
	interfaces []string
	signature  string
	anns       []Ann
	fields     []member
	methods    []member
}

type member struct {
	access    uint16
	name      string
	desc      string
	signature string
	anns      []Ann
}

// Ann is an annotation to attach. Type is the dotted qualified name.
type Ann struct {
	Type      string
	Invisible bool
	Elems     []Elem
}

// Elem is an annotation element; build it with the *Elem helpers.
type Elem struct {
	Name     string
	tag      byte
	value    string
	enumType string
	array    []Elem
}

func StringElem(name, v string) Elem { return Elem{Name: name, tag: 's', value: v} }
func IntElem(name string, v int32) Elem {
	return Elem{Name: name, tag: 'I', value: fmt.Sprint(v)}
}
func BoolElem(name string, v bool) Elem {
	s := "0"
	if v {
		s = "1"
	}
	return Elem{Name: name, tag: 'Z', value: s}
}
func ClassElem(name, class string) Elem { return Elem{Name: name, tag: 'c', value: class} }
func EnumElem(name, enumType, constant string) Elem {
	return Elem{Name: name, tag: 'e', value: constant, enumType: enumType}
}
func ArrayElem(name string, elems ...Elem) Elem { return Elem{Name: name, tag: '[', array: elems} }

// NewClass starts a public class extending java.lang.Object.
func NewClass(name string) *ClassBuilder {
	return &ClassBuilder{name: name, super: "java.lang.Object", access: 0x0001}
}

// NewInterface starts a public abstract interface.
func NewInterface(name string) *ClassBuilder {
	return &ClassBuilder{name: name, super: "java.lang.Object", access: 0x0001 | 0x0200 | 0x0400}
}

// NewEnum starts a public enum with the given constants.
func NewEnum(name string, constants ...string) *ClassBuilder {
	b := &ClassBuilder{name: name, super: "java.lang.Enum", access: 0x0001 | 0x0010 | 0x4000}
	for _, c := range constants {
		b.Field(0x0001|0x0008|0x0010|0x4000, c, Desc(name))
	}
	return b
}

func (b *ClassBuilder) Access(flags uint16) *ClassBuilder  { b.access = flags; return b }
func (b *ClassBuilder) Super(name string) *ClassBuilder    { b.super = name; return b }
func (b *ClassBuilder) Signature(sig string) *ClassBuilder { b.signature = sig; return b }
func (b *ClassBuilder) Annotate(anns ...Ann) *ClassBuilder {
	b.anns = append(b.anns, anns...)
	return b
}
func (b *ClassBuilder) Implements(names ...string) *ClassBuilder {
	b.interfaces = append(b.interfaces, names...)
	return b
}

// Field adds a field with the given descriptor.
func (b *ClassBuilder) Field(access uint16, name, desc string, anns ...Ann) *ClassBuilder {
	b.fields = append(b.fields, member{access: access, name: name, desc: desc, anns: anns})
	return b
}

// Method adds a method. sig may be empty when the descriptor is not generic.
func (b *ClassBuilder) Method(access uint16, name, desc, sig string, anns ...Ann) *ClassBuilder {
	b.methods = append(b.methods, member{access: access, name: name, desc: desc, signature: sig, anns: anns})
	return b
}

// Getter adds a public abstract no-arg method returning typ, the way an
// interface-style immutable declares a property. typ is a Java type such as
// "java.util.List<a.Book>".
func (b *ClassBuilder) Getter(name, typ string, anns ...Ann) *ClassBuilder {
	desc := "()" + Desc(typ)
	sig := ""
	if strings.Contains(typ, "<") {
		sig = "()" + Sig(typ)
	}
	return b.Method(0x0001|0x0400, name, desc, sig, anns...)
}

// Desc renders an erased field descriptor for a Java type name.
func Desc(typ string) string {
	if i := strings.IndexByte(typ, '<'); i >= 0 {
		typ = typ[:i]
	}
	dims := ""
	for strings.HasSuffix(typ, "[]") {
		dims += "["
		typ = strings.TrimSuffix(typ, "[]")
	}
	if p, ok := primitiveDesc[typ]; ok {
		return dims + p
	}
	return dims + "L" + strings.ReplaceAll(typ, ".", "/") + ";"
}

// Sig renders a generic field signature, e.g. "java.util.List<a.Book>".
func Sig(typ string) string {
	typ = strings.TrimSpace(typ)
	i := strings.IndexByte(typ, '<')
	if i < 0 {
		return Desc(typ)
	}
	var sb strings.Builder
	sb.WriteString("L")
	sb.WriteString(strings.ReplaceAll(typ[:i], ".", "/"))
	sb.WriteString("<")
	for _, arg := range splitArgs(typ[i+1 : strings.LastIndexByte(typ, '>')]) {
		sb.WriteString(Sig(arg))
	}
	sb.WriteString(">;")
	return sb.String()
}

func splitArgs(s string) []string {
	var out []string
	depth, start := 0, 0
	for i, c := range s {
		switch c {
		case '<':
			depth++
		case '>':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	return append(out, s[start:])
}

var primitiveDesc = map[string]string{
	"byte": "B", "char": "C", "double": "D", "float": "F",
	"int": "I", "long": "J", "short": "S", "boolean": "Z", "void": "V",
}

// Bytes encodes the class file.
func (b *ClassBuilder) Bytes() []byte {
	pool := &poolBuilder{index: map[string]uint16{}}
	// Pre-intern everything so the pool is written before the body.
	body := b.body(pool)

	out := binary.BigEndian.AppendUint32(nil, 0xCAFEBABE)
	out = binary.BigEndian.AppendUint16(out, 0)
	out = binary.BigEndian.AppendUint16(out, 61)
	out = binary.BigEndian.AppendUint16(out, pool.next())
	out = append(out, pool.buf...)
	return append(out, body...)
}

func (b *ClassBuilder) body(pool *poolBuilder) []byte {
	var out []byte
	out = u2(out, b.access)
	out = u2(out, pool.class(b.name))
	if b.super == "" {
		out = u2(out, 0)
	} else {
		out = u2(out, pool.class(b.super))
	}
	out = u2(out, mustU16(len(b.interfaces)))
	for _, i := range b.interfaces {
		out = u2(out, pool.class(i))
	}
	out = writeMembers(out, pool, b.fields)
	out = writeMembers(out, pool, b.methods)
	return writeAttributes(out, pool, b.signature, b.anns)
}

func writeMembers(out []byte, pool *poolBuilder, members []member) []byte {
	out = u2(out, mustU16(len(members)))
	for _, m := range members {
		out = u2(out, m.access)
		out = u2(out, pool.utf8(m.name))
		out = u2(out, pool.utf8(m.desc))
		out = writeAttributes(out, pool, m.signature, m.anns)
	}
	return out
}

func writeAttributes(out []byte, pool *poolBuilder, signature string, anns []Ann) []byte {
	var visible, invisible []Ann
	for _, a := range anns {
		if a.Invisible {
			invisible = append(invisible, a)
		} else {
			visible = append(visible, a)
		}
	}
	count := 0
	var attrs []byte
	if signature != "" {
		count++
		attrs = u2(attrs, pool.utf8("Signature"))
		attrs = binary.BigEndian.AppendUint32(attrs, 2)
		attrs = u2(attrs, pool.utf8(signature))
	}
	for _, group := range []struct {
		name string
		anns []Ann
	}{{"RuntimeVisibleAnnotations", visible}, {"RuntimeInvisibleAnnotations", invisible}} {
		if len(group.anns) == 0 {
			continue
		}
		count++
		var data []byte
		data = u2(data, mustU16(len(group.anns)))
		for _, a := range group.anns {
			data = writeAnnotation(data, pool, a)
		}
		attrs = u2(attrs, pool.utf8(group.name))
		n, err := safecast.Conv[uint32](len(data))
		if err != nil {
			panic(err)
		}
		attrs = binary.BigEndian.AppendUint32(attrs, n)
		attrs = append(attrs, data...)
	}
	out = u2(out, mustU16(count))
	return append(out, attrs...)
}

func writeAnnotation(out []byte, pool *poolBuilder, a Ann) []byte {
	out = u2(out, pool.utf8(Desc(a.Type)))
	out = u2(out, mustU16(len(a.Elems)))
	for _, e := range a.Elems {
		out = u2(out, pool.utf8(e.Name))
		out = writeElem(out, pool, e)
	}
	return out
}

func writeElem(out []byte, pool *poolBuilder, e Elem) []byte {
	out = append(out, e.tag)
	switch e.tag {
	case 's':
		out = u2(out, pool.utf8(e.value))
	case 'I', 'Z':
		var v int32
		if _, err := fmt.Sscan(e.value, &v); err != nil {
			panic(err)
		}
		out = u2(out, pool.integer(v))
	case 'c':
		out = u2(out, pool.utf8(Desc(e.value)))
	case 'e':
		out = u2(out, pool.utf8(Desc(e.enumType)))
		out = u2(out, pool.utf8(e.value))
	case '[':
		out = u2(out, mustU16(len(e.array)))
		for _, sub := range e.array {
			out = writeElem(out, pool, sub)
		}
	}
	return out
}

type poolBuilder struct {
	buf   []byte
	count uint16
	index map[string]uint16
}

func (p *poolBuilder) next() uint16 { return p.count + 1 }

func (p *poolBuilder) add(key string, entry []byte) uint16 {
	if idx, ok := p.index[key]; ok {
		return idx
	}
	p.count++
	p.index[key] = p.count
	p.buf = append(p.buf, entry...)
	return p.count
}

func (p *poolBuilder) utf8(s string) uint16 {
	entry := []byte{1}
	entry = u2(entry, mustU16(len(s)))
	entry = append(entry, s...)
	return p.add("u:"+s, entry)
}

func (p *poolBuilder) class(name string) uint16 {
	ref := p.utf8(strings.ReplaceAll(name, ".", "/"))
	return p.add("c:"+name, u2([]byte{7}, ref))
}

func (p *poolBuilder) integer(v int32) uint16 {
	entry := binary.BigEndian.AppendUint32([]byte{3}, uint32(v))
	return p.add(fmt.Sprint("i:", v), entry)
}

func u2(out []byte, v uint16) []byte { return binary.BigEndian.AppendUint16(out, v) }

func mustU16(n int) uint16 {
	v, err := safecast.Conv[uint16](n)
	if err != nil {
		panic(err)
	}
	return v
}
