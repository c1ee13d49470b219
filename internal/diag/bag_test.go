package diag

import (
	"testing"

	"dtolsp/internal/source"
)

func TestBagLimitSortDedup(t *testing.T) {
	b := NewBag(3)
	b.Add(NewError(DtoUnresolvedProp, source.Span{Start: 10, End: 12}, "b"))
	b.Add(New(SevWarning, DtoInvalidConfig, source.Span{Start: 1, End: 2}, "a"))
	b.Add(NewError(DtoUnresolvedProp, source.Span{Start: 10, End: 12}, "b"))
	if b.Add(NewError(SynUnexpectedToken, source.Span{}, "dropped")) {
		t.Fatalf("expected limit to reject the fourth diagnostic")
	}
	b.Dedup()
	if b.Len() != 2 {
		t.Fatalf("Dedup left %d items", b.Len())
	}
	b.Sort()
	if b.Items()[0].Message != "a" {
		t.Fatalf("Sort order wrong: %+v", b.Items())
	}
	if !b.HasErrors() {
		t.Fatalf("expected HasErrors")
	}
}

func TestReportBuilderEmitsOnce(t *testing.T) {
	b := NewBag(10)
	rb := ReportError(BagReporter{Bag: b}, DtoMacroExpansion, source.Span{}, "no body").
		WithNote(source.Span{Start: 3}, "declared here")
	rb.Emit()
	rb.Emit()
	if b.Len() != 1 || len(b.Items()[0].Notes) != 1 {
		t.Fatalf("unexpected bag %+v", b.Items())
	}
}

func TestCodeID(t *testing.T) {
	if got := DtoUnresolvedType.ID(); got != "DTO3001" {
		t.Fatalf("ID = %s", got)
	}
	if got := SynUnexpectedToken.String(); got != "[SYN2001]: Unexpected token" {
		t.Fatalf("String = %s", got)
	}
}
