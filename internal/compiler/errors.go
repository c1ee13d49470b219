package compiler

import (
	"errors"
	"fmt"

	"dtolsp/internal/diag"
	"dtolsp/internal/hosttype"
	"dtolsp/internal/source"
)

// Kind classifies a compile error.
type Kind uint8

const (
	UnresolvedType Kind = iota
	UnresolvedProp
	MacroExpansion
	BackendInconsistency
	InvalidConfig
	InvalidFunc
	Duplicate
	InvalidModifier
	MissingBody
	DepthExceeded
)

var kindNames = [...]string{
	UnresolvedType:       "UnresolvedType",
	UnresolvedProp:       "UnresolvedProp",
	MacroExpansion:       "MacroExpansion",
	BackendInconsistency: "BackendInconsistency",
	InvalidConfig:        "InvalidConfig",
	InvalidFunc:          "InvalidFunc",
	Duplicate:            "Duplicate",
	InvalidModifier:      "InvalidModifier",
	MissingBody:          "MissingBody",
	DepthExceeded:        "DepthExceeded",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Unknown"
}

var kindCodes = [...]diag.Code{
	UnresolvedType:       diag.DtoUnresolvedType,
	UnresolvedProp:       diag.DtoUnresolvedProp,
	MacroExpansion:       diag.DtoMacroExpansion,
	BackendInconsistency: diag.DtoBackendInconsistency,
	InvalidConfig:        diag.DtoInvalidConfig,
	InvalidFunc:          diag.DtoInvalidFunc,
	Duplicate:            diag.DtoDuplicateProp,
	InvalidModifier:      diag.DtoInvalidModifier,
	MissingBody:          diag.DtoNoBody,
	DepthExceeded:        diag.DtoDepthExceeded,
}

// Error is a positioned compile error. Cause is set when the error comes
// from the type layer (a cycle or a backend disagreement).
type Error struct {
	Kind    Kind
	Span    source.Span
	Message string
	Cause   error
	// Suggestion is a known name close to the unresolved one, if any.
	Suggestion string

	userType bool
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Code maps the error to its diagnostic code.
func (e *Error) Code() diag.Code {
	var cyc *hosttype.CycleError
	if errors.As(e.Cause, &cyc) {
		return diag.DtoCyclicSupertype
	}
	if e.Kind == UnresolvedType && e.Cause == nil && e.userType {
		return diag.DtoUnresolvedUserType
	}
	if int(e.Kind) < len(kindCodes) {
		return kindCodes[e.Kind]
	}
	return diag.UnknownCode
}

func (e *Error) Diagnostic() diag.Diagnostic {
	d := diag.NewError(e.Code(), e.Span, e.Message)
	if e.Suggestion != "" {
		d = d.WithFix(fmt.Sprintf("Replace with %q", e.Suggestion), diag.FixEdit{Span: e.Span, NewText: e.Suggestion})
	}
	return d
}

// Report forwards errs to r in order.
func Report(r diag.Reporter, errs []*Error) {
	if r == nil {
		return
	}
	for _, e := range errs {
		b := diag.ReportError(r, e.Code(), e.Span, e.Message)
		if e.Suggestion != "" {
			b.WithFix(fmt.Sprintf("Replace with %q", e.Suggestion), diag.FixEdit{Span: e.Span, NewText: e.Suggestion})
		}
		b.Emit()
	}
}
