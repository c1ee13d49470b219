package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// lexical
	LexInfo                     Code = 1000
	LexUnknownChar              Code = 1001
	LexUnterminatedString       Code = 1002
	LexUnterminatedBlockComment Code = 1003
	LexBadNumber                Code = 1004
	LexUnknownConfiguration     Code = 1005

	// syntax
	SynInfo              Code = 2000
	SynUnexpectedToken   Code = 2001
	SynUnclosedBrace     Code = 2002
	SynUnclosedParen     Code = 2003
	SynExpectIdentifier  Code = 2004
	SynExpectBody        Code = 2005
	SynExpectType        Code = 2006
	SynExpectLiteral     Code = 2007
	SynExportPosition    Code = 2008
	SynImportPosition    Code = 2009
	SynEmptyImportGroup  Code = 2010
	SynExpectArrow       Code = 2011
	SynInternalRecovered Code = 2099

	// DTO semantics
	DtoInfo                 Code = 3000
	DtoUnresolvedType       Code = 3001
	DtoUnresolvedProp       Code = 3002
	DtoMacroExpansion       Code = 3003
	DtoBackendInconsistency Code = 3004
	DtoInvalidConfig        Code = 3005
	DtoInvalidFunc          Code = 3006
	DtoDuplicateProp        Code = 3007
	DtoCyclicSupertype      Code = 3008
	DtoNoBody               Code = 3009
	DtoInvalidModifier      Code = 3010
	DtoUnresolvedUserType   Code = 3011
	DtoDepthExceeded        Code = 3012

	// host metadata
	HostInfo       Code = 4000
	HostBadClass   Code = 4001
	HostBadSource  Code = 4002
	HostUnreadable Code = 4003
)

var codeDescription = map[Code]string{
	UnknownCode:                 "Unknown error",
	LexInfo:                     "Lexical information",
	LexUnknownChar:              "Unknown character",
	LexUnterminatedString:       "Unterminated string literal",
	LexUnterminatedBlockComment: "Unterminated block comment",
	LexBadNumber:                "Malformed number literal",
	LexUnknownConfiguration:     "Unknown configuration clause",
	SynInfo:                     "Syntax information",
	SynUnexpectedToken:          "Unexpected token",
	SynUnclosedBrace:            "Unclosed brace",
	SynUnclosedParen:            "Unclosed parenthesis",
	SynExpectIdentifier:         "Expect identifier",
	SynExpectBody:               "Expect body",
	SynExpectType:               "Expect type",
	SynExpectLiteral:            "Expect literal",
	SynExportPosition:           "Export must be the first statement",
	SynImportPosition:           "Import must precede DTO types",
	SynEmptyImportGroup:         "Empty import group",
	SynExpectArrow:              "Expect '->'",
	SynInternalRecovered:        "Parser recovered from an internal fault",
	DtoInfo:                     "DTO information",
	DtoUnresolvedType:           "Unresolved immutable type",
	DtoUnresolvedProp:           "Unresolved property",
	DtoMacroExpansion:           "Macro expansion failed",
	DtoBackendInconsistency:     "Type metadata providers disagree",
	DtoInvalidConfig:            "Invalid configuration clause",
	DtoInvalidFunc:              "Invalid property function",
	DtoDuplicateProp:            "Duplicate property",
	DtoCyclicSupertype:          "Cyclic supertype",
	DtoNoBody:                   "Association requires a body",
	DtoInvalidModifier:          "Invalid modifier",
	DtoUnresolvedUserType:       "Unresolved user property type",
	DtoDepthExceeded:            "Nesting depth exceeded",
	HostInfo:                    "Host metadata information",
	HostBadClass:                "Malformed class file",
	HostBadSource:               "Malformed host source",
	HostUnreadable:              "Host file unreadable",
}

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("LEX%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("SYN%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("DTO%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("HST%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
