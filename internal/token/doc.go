// Package token defines lexical token kinds and trivia for the DTO language.
// Invariants:
//   - Token.Text is the exact source text covered by Token.Span.
//   - Doc comments (/** ... */) are real tokens (DocComment) because the grammar
//     attaches them to types and props; plain comments and whitespace are Leading trivia.
//   - Configuration clauses are single tokens including the bang (!where, !orderBy, ...).
//   - DTO type modifiers that are not reserved (abstract, input, specification, unsafe)
//     lex as identifiers and are recognized by the parser.
package token
