// Package diag defines the diagnostic model shared by the lexer, the parser and
// the DTO compiler.
//
// # Data model
//
// Diagnostic is the central record:
//
//   - Severity: Info, Warning or Error.
//   - Code: compact numeric identifier with a stable string form (LEX/SYN/DTO/HST).
//   - Message: short, actionable text.
//   - Primary: the source.Span the editor highlights.
//   - Notes: optional secondary spans.
//   - Fixes: optional structured edits, surfaced as LSP code actions by callers.
//
// # Producers
//
// Producers talk to a Reporter, never to a Bag directly. BagReporter collects into
// a Bag; ReportBuilder lets a producer attach notes and fixes before emitting.
//
// Package diag does no formatting or IO. Rendering lives in internal/diagfmt and
// in the LSP layer.
package diag
