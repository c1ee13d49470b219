// Package srcparse resolves host types by parsing Java and Kotlin sources with
// tree-sitter. Extraction produces plain declaration records (cached on disk);
// names are resolved against imports and the index when a type is requested.
package srcparse

import (
	"path/filepath"
	"strings"
)

// Lang is a host source language.
type Lang uint8

const (
	LangUnknown Lang = iota
	LangJava
	LangKotlin
)

func (l Lang) String() string {
	switch l {
	case LangJava:
		return "java"
	case LangKotlin:
		return "kotlin"
	default:
		return "unknown"
	}
}

// LangOf picks the language from a file extension.
func LangOf(path string) Lang {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".java":
		return LangJava
	case ".kt":
		return LangKotlin
	default:
		return LangUnknown
	}
}

// FileDecls is everything extracted from one source file.
type FileDecls struct {
	Path    string     `msgpack:"path"`
	Lang    Lang       `msgpack:"lang"`
	Package string     `msgpack:"pkg"`
	Imports []Import   `msgpack:"imports"`
	Types   []TypeDecl `msgpack:"types"`
}

// Import is one import directive. Wildcard imports name a package.
type Import struct {
	Path     string `msgpack:"path"`
	Alias    string `msgpack:"alias,omitempty"`
	Wildcard bool   `msgpack:"wildcard,omitempty"`
}

// Local is the name the import makes visible, empty for wildcards.
func (i Import) Local() string {
	if i.Wildcard {
		return ""
	}
	if i.Alias != "" {
		return i.Alias
	}
	return i.Path[strings.LastIndexByte(i.Path, '.')+1:]
}

// TypeDecl is a declared class, interface, enum or annotation type. Name is
// dotted relative to the package for nested types ("Outer.Inner").
type TypeDecl struct {
	Name        string     `msgpack:"name"`
	Interface   bool       `msgpack:"iface,omitempty"`
	Enum        bool       `msgpack:"enum,omitempty"`
	Annotation  bool       `msgpack:"ann,omitempty"`
	TypeParams  []string   `msgpack:"tparams,omitempty"`
	SuperTypes  []TypeExpr `msgpack:"supers,omitempty"`
	Annotations []AnnDecl  `msgpack:"anns,omitempty"`
	Props       []PropDecl `msgpack:"props,omitempty"`
	Constants   []string   `msgpack:"consts,omitempty"`
	Line        uint32     `msgpack:"line"`
	Col         uint32     `msgpack:"col"`
}

// PropDecl is a property candidate: a parameterless Java method or a Kotlin
// val/var.
type PropDecl struct {
	Name        string    `msgpack:"name"`
	Type        TypeExpr  `msgpack:"type"`
	Annotations []AnnDecl `msgpack:"anns,omitempty"`
	Line        uint32    `msgpack:"line"`
	Col         uint32    `msgpack:"col"`
}

// TypeExpr is a type as written, before name resolution.
type TypeExpr struct {
	Name     string     `msgpack:"name"`
	Args     []TypeExpr `msgpack:"args,omitempty"`
	Nullable bool       `msgpack:"nullable,omitempty"`
	Dims     int        `msgpack:"dims,omitempty"`
}

// AnnDecl is an annotation as written. Positional arguments use key "value".
type AnnDecl struct {
	Name string            `msgpack:"name"`
	Args map[string]string `msgpack:"args,omitempty"`
}

func (a AnnDecl) SimpleName() string {
	return a.Name[strings.LastIndexByte(a.Name, '.')+1:]
}

// QualifiedName joins the package and the type name.
func (f *FileDecls) QualifiedName(t *TypeDecl) string {
	if f.Package == "" {
		return t.Name
	}
	return f.Package + "." + t.Name
}
