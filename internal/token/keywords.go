package token

var keywords = map[string]Kind{
	"export":     KwExport,
	"package":    KwPackage,
	"import":     KwImport,
	"as":         KwAs,
	"implements": KwImplements,
	"fixed":      KwFixed,
	"static":     KwStatic,
	"dynamic":    KwDynamic,
	"fuzzy":      KwFuzzy,
	"null":       KwNull,
	"or":         KwOr,
	"and":        KwAnd,
	"is":         KwIs,
	"not":        KwNot,
	"class":      KwClass,
}

var configurations = map[string]Kind{
	"where":     CfgWhere,
	"orderBy":   CfgOrderBy,
	"filter":    CfgFilter,
	"recursion": CfgRecursion,
	"fetchType": CfgFetchType,
	"limit":     CfgLimit,
	"offset":    CfgOffset,
	"batch":     CfgBatch,
	"depth":     CfgDepth,
}

// LookupKeyword reports whether ident is a reserved word. Keywords are case-sensitive.
func LookupKeyword(ident string) (Kind, bool) {
	k, ok := keywords[ident]
	return k, ok
}

// LookupConfiguration maps the word following '!' to its configuration token.
func LookupConfiguration(word string) (Kind, bool) {
	k, ok := configurations[word]
	return k, ok
}

// Modifiers lists the DTO type modifiers in canonical order.
var Modifiers = []string{"abstract", "input", "specification", "unsafe", "fixed", "static", "dynamic", "fuzzy"}

// IsModifier reports whether text names a DTO type modifier.
func IsModifier(text string) bool {
	for _, m := range Modifiers {
		if m == text {
			return true
		}
	}
	return false
}
