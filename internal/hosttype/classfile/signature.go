package classfile

import (
	"fmt"
	"strings"
)

// JavaType is a decoded descriptor or generic signature type.
type JavaType struct {
	// Name is a dotted class name, a primitive keyword ("int", "void"), or a
	// type variable name when TypeVar is set.
	Name     string
	TypeVar  bool
	Args     []JavaType
	Wildcard byte // 0, '*', '+' (extends) or '-' (super)
	Dims     int
}

var primitives = map[byte]string{
	'B': "byte", 'C': "char", 'D': "double", 'F': "float",
	'I': "int", 'J': "long", 'S': "short", 'Z': "boolean", 'V': "void",
}

func (t JavaType) IsPrimitive() bool {
	if t.TypeVar || t.Dims > 0 {
		return false
	}
	for _, p := range primitives {
		if p == t.Name {
			return true
		}
	}
	return false
}

func (t JavaType) String() string {
	var sb strings.Builder
	switch t.Wildcard {
	case '*':
		return "?"
	case '+':
		sb.WriteString("? extends ")
	case '-':
		sb.WriteString("? super ")
	}
	sb.WriteString(t.Name)
	if len(t.Args) > 0 {
		sb.WriteByte('<')
		for i, a := range t.Args {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(a.String())
		}
		sb.WriteByte('>')
	}
	for i := 0; i < t.Dims; i++ {
		sb.WriteString("[]")
	}
	return sb.String()
}

// MethodSignature is a decoded method descriptor or signature.
type MethodSignature struct {
	TypeParams []string
	Params     []JavaType
	Return     JavaType
}

// ClassSignature is a decoded class Signature attribute.
type ClassSignature struct {
	TypeParams []string
	Super      JavaType
	Interfaces []JavaType
}

type sigParser struct {
	s   string
	pos int
}

func (p *sigParser) eof() bool { return p.pos >= len(p.s) }

func (p *sigParser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.s[p.pos]
}

func (p *sigParser) expect(c byte) error {
	if p.peek() != c {
		return fmt.Errorf("classfile: signature %q: expected %q at %d", p.s, c, p.pos)
	}
	p.pos++
	return nil
}

func (p *sigParser) ident(stops string) string {
	start := p.pos
	for !p.eof() && !strings.ContainsRune(stops, rune(p.s[p.pos])) {
		p.pos++
	}
	return p.s[start:p.pos]
}

func (p *sigParser) typeSig() (JavaType, error) {
	c := p.peek()
	switch {
	case c == 'L':
		return p.classType()
	case c == 'T':
		p.pos++
		name := p.ident(";")
		if err := p.expect(';'); err != nil {
			return JavaType{}, err
		}
		return JavaType{Name: name, TypeVar: true}, nil
	case c == '[':
		p.pos++
		elem, err := p.typeSig()
		if err != nil {
			return JavaType{}, err
		}
		elem.Dims++
		return elem, nil
	case primitives[c] != "":
		p.pos++
		return JavaType{Name: primitives[c]}, nil
	}
	return JavaType{}, fmt.Errorf("classfile: signature %q: unexpected %q at %d", p.s, c, p.pos)
}

func (p *sigParser) classType() (JavaType, error) {
	if err := p.expect('L'); err != nil {
		return JavaType{}, err
	}
	var t JavaType
	name := strings.ReplaceAll(p.ident("<.;"), "/", ".")
	for {
		t.Name = name
		t.Args = nil
		if p.peek() == '<' {
			args, err := p.typeArgs()
			if err != nil {
				return JavaType{}, err
			}
			t.Args = args
		}
		if p.peek() != '.' {
			break
		}
		p.pos++
		name = name + "$" + p.ident("<.;")
	}
	if err := p.expect(';'); err != nil {
		return JavaType{}, err
	}
	return t, nil
}

func (p *sigParser) typeArgs() ([]JavaType, error) {
	if err := p.expect('<'); err != nil {
		return nil, err
	}
	var out []JavaType
	for p.peek() != '>' {
		if p.eof() {
			return nil, fmt.Errorf("classfile: signature %q: unterminated type arguments", p.s)
		}
		switch p.peek() {
		case '*':
			p.pos++
			out = append(out, JavaType{Name: "java.lang.Object", Wildcard: '*'})
			continue
		case '+', '-':
			w := p.peek()
			p.pos++
			t, err := p.typeSig()
			if err != nil {
				return nil, err
			}
			t.Wildcard = w
			out = append(out, t)
			continue
		}
		t, err := p.typeSig()
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	p.pos++
	return out, nil
}

func (p *sigParser) typeParams() ([]string, error) {
	if p.peek() != '<' {
		return nil, nil
	}
	p.pos++
	var names []string
	for p.peek() != '>' {
		if p.eof() {
			return nil, fmt.Errorf("classfile: signature %q: unterminated type parameters", p.s)
		}
		names = append(names, p.ident(":"))
		// Class bound may be empty; interface bounds follow each ':'.
		for p.peek() == ':' {
			p.pos++
			if c := p.peek(); c == 'L' || c == 'T' || c == '[' {
				if _, err := p.typeSig(); err != nil {
					return nil, err
				}
			}
		}
	}
	p.pos++
	return names, nil
}

// ParseFieldType decodes a field descriptor or field signature.
func ParseFieldType(s string) (JavaType, error) {
	p := &sigParser{s: s}
	t, err := p.typeSig()
	if err != nil {
		return JavaType{}, err
	}
	if !p.eof() {
		return JavaType{}, fmt.Errorf("classfile: signature %q: trailing input at %d", s, p.pos)
	}
	return t, nil
}

// ParseMethodSignature decodes a method descriptor or method signature.
// Throws clauses are ignored.
func ParseMethodSignature(s string) (MethodSignature, error) {
	p := &sigParser{s: s}
	var m MethodSignature
	var err error
	if m.TypeParams, err = p.typeParams(); err != nil {
		return m, err
	}
	if err := p.expect('('); err != nil {
		return m, err
	}
	for p.peek() != ')' {
		if p.eof() {
			return m, fmt.Errorf("classfile: signature %q: unterminated parameters", s)
		}
		t, err := p.typeSig()
		if err != nil {
			return m, err
		}
		m.Params = append(m.Params, t)
	}
	p.pos++
	if m.Return, err = p.typeSig(); err != nil {
		return m, err
	}
	if !p.eof() && p.peek() != '^' {
		return m, fmt.Errorf("classfile: signature %q: trailing input at %d", s, p.pos)
	}
	return m, nil
}

// ParseClassSignature decodes a class Signature attribute.
func ParseClassSignature(s string) (ClassSignature, error) {
	p := &sigParser{s: s}
	var c ClassSignature
	var err error
	if c.TypeParams, err = p.typeParams(); err != nil {
		return c, err
	}
	if c.Super, err = p.classType(); err != nil {
		return c, err
	}
	for !p.eof() {
		t, err := p.classType()
		if err != nil {
			return c, err
		}
		c.Interfaces = append(c.Interfaces, t)
	}
	return c, nil
}
