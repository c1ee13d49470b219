package hosttype

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// ToPropName strips a JavaBean accessor prefix: getName -> name, isActive ->
// active. Names that merely start with "get" or "is" are kept (getaway, island).
func ToPropName(method string) string {
	for _, prefix := range []string{"get", "is"} {
		rest, ok := strings.CutPrefix(method, prefix)
		if !ok || rest == "" {
			continue
		}
		r, size := utf8.DecodeRuneInString(rest)
		if !unicode.IsUpper(r) {
			continue
		}
		return string(unicode.ToLower(r)) + rest[size:]
	}
	return method
}

// SplitQualified splits "a.b.C" into ("a.b", "C").
func SplitQualified(name string) (pkg, simple string) {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[:i], name[i+1:]
	}
	return "", name
}
