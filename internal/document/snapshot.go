package document

import (
	"dtolsp/internal/ast"
	"dtolsp/internal/compiler"
	"dtolsp/internal/diag"
	"dtolsp/internal/hosttype"
	"dtolsp/internal/source"
	"dtolsp/internal/token"
)

// Snapshot is the immutable analysis state of one document version. A new
// snapshot is built for every edit and every analysis; fields are never
// written after the snapshot is published.
type Snapshot struct {
	URI     string
	Version int
	Seq     uint64
	Text    string

	File   *source.File
	Tokens []token.Token
	AST    *ast.File
	Syntax *diag.Bag

	// Set once the snapshot has been analyzed.
	Analyzed bool
	BaseName string
	Base     hosttype.BaseType
	Types    *hosttype.Context
	Model    *compiler.Model
	Errors   []*compiler.Error
}

// Compiled reports whether the snapshot parsed cleanly, resolved its base
// type, and compiled without errors.
func (s *Snapshot) Compiled() bool {
	return s != nil && s.Analyzed && s.Base != nil && s.Model != nil &&
		!s.Syntax.HasErrors() && len(s.Errors) == 0
}

// Diagnostics returns syntax diagnostics followed by semantic ones, sorted by
// position and deduplicated.
func (s *Snapshot) Diagnostics() []diag.Diagnostic {
	if s == nil {
		return nil
	}
	bag := diag.NewBag(s.Syntax.Cap() + len(s.Errors))
	bag.Merge(s.Syntax)
	for _, e := range s.Errors {
		bag.Add(e.Diagnostic())
	}
	bag.Sort()
	bag.Dedup()
	return bag.Items()
}

// analyzed derives the post-analysis snapshot from s.
func (s *Snapshot) analyzed(res Resolution, model *compiler.Model, errs []*compiler.Error) *Snapshot {
	out := *s
	out.Analyzed = true
	out.BaseName = res.Name
	out.Base = res.Base
	out.Types = res.Context
	out.Model = model
	out.Errors = errs
	return &out
}
