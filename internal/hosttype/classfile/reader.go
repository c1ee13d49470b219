package classfile

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// reader panics with ErrTruncated when the input runs out; Parse recovers it.
type reader struct {
	data []byte
	off  int
}

func (r *reader) need(n int) {
	if n < 0 || r.off+n > len(r.data) {
		panic(fmt.Errorf("%w at offset %d", ErrTruncated, r.off))
	}
}

func (r *reader) u1() uint8 {
	r.need(1)
	v := r.data[r.off]
	r.off++
	return v
}

func (r *reader) u2() uint16 {
	r.need(2)
	v := binary.BigEndian.Uint16(r.data[r.off:])
	r.off += 2
	return v
}

func (r *reader) u4() uint32 {
	r.need(4)
	v := binary.BigEndian.Uint32(r.data[r.off:])
	r.off += 4
	return v
}

func (r *reader) bytes(n int) []byte {
	r.need(n)
	v := r.data[r.off : r.off+n]
	r.off += n
	return v
}

// Constant pool tags.
const (
	tagUtf8               = 1
	tagInteger            = 3
	tagFloat              = 4
	tagLong               = 5
	tagDouble             = 6
	tagClass              = 7
	tagString             = 8
	tagFieldref           = 9
	tagMethodref          = 10
	tagInterfaceMethodref = 11
	tagNameAndType        = 12
	tagMethodHandle       = 15
	tagMethodType         = 16
	tagDynamic            = 17
	tagInvokeDynamic      = 18
	tagModule             = 19
	tagPackage            = 20
)

type constant struct {
	tag   uint8
	str   string // Utf8
	ref   uint16 // Class, String, MethodType, Module, Package: index of the Utf8
	value string // Integer, Float, Long, Double rendered as text
}

type constPool struct {
	entries []constant
}

func readPool(r *reader) (*constPool, error) {
	count := int(r.u2())
	pool := &constPool{entries: make([]constant, count)}
	for i := 1; i < count; i++ {
		tag := r.u1()
		c := constant{tag: tag}
		switch tag {
		case tagUtf8:
			c.str = decodeModifiedUTF8(r.bytes(int(r.u2())))
		case tagInteger:
			c.value = fmt.Sprint(int32(r.u4()))
		case tagFloat:
			c.value = fmt.Sprint(math.Float32frombits(r.u4()))
		case tagLong:
			hi, lo := r.u4(), r.u4()
			c.value = fmt.Sprint(int64(uint64(hi)<<32 | uint64(lo)))
		case tagDouble:
			hi, lo := r.u4(), r.u4()
			c.value = fmt.Sprint(math.Float64frombits(uint64(hi)<<32 | uint64(lo)))
		case tagClass, tagString, tagMethodType, tagModule, tagPackage:
			c.ref = r.u2()
		case tagFieldref, tagMethodref, tagInterfaceMethodref, tagNameAndType, tagDynamic, tagInvokeDynamic:
			r.u2()
			r.u2()
		case tagMethodHandle:
			r.u1()
			r.u2()
		default:
			return nil, fmt.Errorf("classfile: unknown constant tag %d at index %d", tag, i)
		}
		pool.entries[i] = c
		// Long and Double occupy two slots.
		if tag == tagLong || tag == tagDouble {
			i++
		}
	}
	return pool, nil
}

func (p *constPool) get(idx uint16) (constant, error) {
	if idx == 0 || int(idx) >= len(p.entries) {
		return constant{}, fmt.Errorf("classfile: constant index %d out of range", idx)
	}
	return p.entries[idx], nil
}

func (p *constPool) utf8(idx uint16) (string, error) {
	c, err := p.get(idx)
	if err != nil {
		return "", err
	}
	if c.tag != tagUtf8 {
		return "", fmt.Errorf("classfile: constant %d is not Utf8", idx)
	}
	return c.str, nil
}

// className resolves a Class constant to a dotted name.
func (p *constPool) className(idx uint16) (string, error) {
	c, err := p.get(idx)
	if err != nil {
		return "", err
	}
	if c.tag != tagClass {
		return "", fmt.Errorf("classfile: constant %d is not a Class", idx)
	}
	name, err := p.utf8(c.ref)
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(name, "/", "."), nil
}

// text renders a constant used as an annotation element value.
func (p *constPool) text(idx uint16) (string, error) {
	c, err := p.get(idx)
	if err != nil {
		return "", err
	}
	switch c.tag {
	case tagUtf8:
		return c.str, nil
	case tagString:
		return p.utf8(c.ref)
	default:
		return c.value, nil
	}
}

// decodeModifiedUTF8 handles the JVM encoding of NUL and supplementary
// characters well enough for identifiers and annotation strings.
func decodeModifiedUTF8(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b))
	for i := 0; i < len(b); {
		c := b[i]
		switch {
		case c < 0x80:
			sb.WriteByte(c)
			i++
		case c&0xE0 == 0xC0 && i+1 < len(b):
			r := rune(c&0x1F)<<6 | rune(b[i+1]&0x3F)
			sb.WriteRune(r)
			i += 2
		case c&0xF0 == 0xE0 && i+2 < len(b):
			r := rune(c&0x0F)<<12 | rune(b[i+1]&0x3F)<<6 | rune(b[i+2]&0x3F)
			// Surrogate pair written as two 3-byte sequences.
			if r >= 0xD800 && r <= 0xDBFF && i+5 < len(b) && b[i+3]&0xF0 == 0xE0 {
				lo := rune(b[i+3]&0x0F)<<12 | rune(b[i+4]&0x3F)<<6 | rune(b[i+5]&0x3F)
				if lo >= 0xDC00 && lo <= 0xDFFF {
					sb.WriteRune((r-0xD800)<<10 + (lo - 0xDC00) + 0x10000)
					i += 6
					continue
				}
			}
			sb.WriteRune(r)
			i += 3
		default:
			sb.WriteByte(c)
			i++
		}
	}
	return sb.String()
}
