package token

// Kind represents the category of a source token.
type Kind uint8

const (
	// Invalid indicates an erroneous token.
	Invalid Kind = iota
	// EOF marks the end of the source input.
	EOF

	// Ident represents an identifier token.
	Ident
	// DocComment is a /** ... */ comment.
	DocComment

	KwExport     // export
	KwPackage    // package
	KwImport     // import
	KwAs         // as
	KwImplements // implements
	KwFixed      // fixed
	KwStatic     // static
	KwDynamic    // dynamic
	KwFuzzy      // fuzzy
	KwNull       // null
	KwOr         // or
	KwAnd        // and
	KwIs         // is
	KwNot        // not
	KwClass      // class

	CfgWhere     // !where
	CfgOrderBy   // !orderBy
	CfgFilter    // !filter
	CfgRecursion // !recursion
	CfgFetchType // !fetchType
	CfgLimit     // !limit
	CfgOffset    // !offset
	CfgBatch     // !batch
	CfgDepth     // !depth

	IntLit       // 42, 0x2A, 42L
	FloatLit     // 1.5, 1e3, 2f
	StringLit    // "text"
	SqlStringLit // 'text'
	CharLit      // 'c' (single code point)

	Dot        // .
	Arrow      // ->
	LBrace     // {
	RBrace     // }
	Comma      // ,
	Semicolon  // ;
	Hash       // #
	LParen     // (
	RParen     // )
	Question   // ?
	Bang       // !
	Caret      // ^
	Dollar     // $
	Plus       // +
	Slash      // /
	Star       // *
	Minus      // -
	Colon      // :
	ColonColon // ::
	Assign     // =
	Lt         // <
	Gt         // >
	LtGt       // <>
	BangEq     // !=
	LtEq       // <=
	GtEq       // >=
	At         // @
	LBracket   // [
	RBracket   // ]
)

var kindNames = [...]string{
	Invalid:      "Invalid",
	EOF:          "EOF",
	Ident:        "Ident",
	DocComment:   "DocComment",
	KwExport:     "export",
	KwPackage:    "package",
	KwImport:     "import",
	KwAs:         "as",
	KwImplements: "implements",
	KwFixed:      "fixed",
	KwStatic:     "static",
	KwDynamic:    "dynamic",
	KwFuzzy:      "fuzzy",
	KwNull:       "null",
	KwOr:         "or",
	KwAnd:        "and",
	KwIs:         "is",
	KwNot:        "not",
	KwClass:      "class",
	CfgWhere:     "!where",
	CfgOrderBy:   "!orderBy",
	CfgFilter:    "!filter",
	CfgRecursion: "!recursion",
	CfgFetchType: "!fetchType",
	CfgLimit:     "!limit",
	CfgOffset:    "!offset",
	CfgBatch:     "!batch",
	CfgDepth:     "!depth",
	IntLit:       "IntLit",
	FloatLit:     "FloatLit",
	StringLit:    "StringLit",
	SqlStringLit: "SqlStringLit",
	CharLit:      "CharLit",
	Dot:          ".",
	Arrow:        "->",
	LBrace:       "{",
	RBrace:       "}",
	Comma:        ",",
	Semicolon:    ";",
	Hash:         "#",
	LParen:       "(",
	RParen:       ")",
	Question:     "?",
	Bang:         "!",
	Caret:        "^",
	Dollar:       "$",
	Plus:         "+",
	Slash:        "/",
	Star:         "*",
	Minus:        "-",
	Colon:        ":",
	ColonColon:   "::",
	Assign:       "=",
	Lt:           "<",
	Gt:           ">",
	LtGt:         "<>",
	BangEq:       "!=",
	LtEq:         "<=",
	GtEq:         ">=",
	At:           "@",
	LBracket:     "[",
	RBracket:     "]",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return "Kind(?)"
}
