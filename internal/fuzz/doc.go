// Package fuzztests houses Go fuzz harnesses for the DTO front end
// (source -> lexer -> parser -> formatter). They guard against panics, hangs
// and formatter instability on arbitrary input.
package fuzztests
