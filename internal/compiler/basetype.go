package compiler

import (
	"path"
	"strings"

	"dtolsp/internal/hosttype"
)

// BaseTypeQuery describes how a DTO file names its base type.
type BaseTypeQuery struct {
	Export   string // qualified name from the export statement, empty when absent
	FileName string // base name of the DTO file, e.g. "Book.dto"
	Dir      string // slash-separated directory of the file relative to the project
}

// SourceTypeName is the name the file asks for: the export, else the file name
// without extension.
func (q BaseTypeQuery) SourceTypeName() string {
	if q.Export != "" {
		return q.Export
	}
	return strings.TrimSuffix(path.Base(q.FileName), ".dto")
}

// Candidates lists the qualified names tried in order. Without an export the
// directory is read as a package and leading segments are stripped one at a
// time: src/main/dto/com/x + Book gives src.main.dto.com.x.Book, then
// main.dto.com.x.Book, and so on down to Book.
func (q BaseTypeQuery) Candidates() []string {
	name := q.SourceTypeName()
	if q.Export != "" || name == "" {
		return []string{name}
	}
	var segs []string
	for _, s := range strings.Split(path.Clean(q.Dir), "/") {
		if s != "" && s != "." && s != ".." {
			segs = append(segs, s)
		}
	}
	out := make([]string, 0, len(segs)+1)
	for i := range segs {
		out = append(out, strings.Join(segs[i:], ".")+"."+name)
	}
	return append(out, name)
}

// ResolveBaseType looks the candidates up in order and returns the first
// immutable type found with the name that matched. The name is the source type
// name when nothing matched.
func ResolveBaseType(hctx *hosttype.Context, q BaseTypeQuery) (hosttype.BaseType, string) {
	for _, name := range q.Candidates() {
		if t := hctx.Type(name); t != nil && t.Kind().IsImmutable() {
			return t, name
		}
	}
	return nil, q.SourceTypeName()
}
