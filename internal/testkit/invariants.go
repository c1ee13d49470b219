package testkit

import (
	"fmt"

	"fortio.org/safecast"

	"dtolsp/internal/ast"
	"dtolsp/internal/source"
)

// CheckSpanInvariants runs a minimal set of span invariants on a parsed file:
// 1) file.Span lies within the file content and points at the file
// 2) every type and prop span is non-empty and inside the span of its parent
// 3) sibling props appear in source order
func CheckSpanInvariants(f *ast.File, sf *source.File) error {
	if f == nil || sf == nil {
		return fmt.Errorf("nil tree or file")
	}
	lenContent, err := safecast.Conv[uint32](len(sf.Content))
	if err != nil {
		return fmt.Errorf("len content overflow: %w", err)
	}
	if f.Span.End > lenContent {
		return fmt.Errorf("file span end beyond content: %d > %d", f.Span.End, lenContent)
	}
	if f.Span.File != sf.ID {
		return fmt.Errorf("file span points to different file id: got=%d want=%d", f.Span.File, sf.ID)
	}

	for _, t := range f.Types {
		if err := within(t.Span, f.Span, "type"); err != nil {
			return err
		}
		if t.Body != nil {
			if err := checkBody(t.Body, t.Span); err != nil {
				return fmt.Errorf("%s: %w", t.Name.Name, err)
			}
		}
	}
	return nil
}

func checkBody(b *ast.Body, parent source.Span) error {
	if err := within(b.Span, parent, "body"); err != nil {
		return err
	}
	var prev uint32
	for i, p := range b.Props {
		sp := p.NodeSpan()
		if err := within(sp, b.Span, "prop"); err != nil {
			return err
		}
		if i > 0 && sp.Start < prev {
			return fmt.Errorf("prop %v starts before its predecessor ends at %d", sp, prev)
		}
		prev = sp.End
		var child *ast.Body
		switch p := p.(type) {
		case *ast.PositiveProp:
			child = p.Body
		case *ast.AliasGroup:
			child = p.Body
		}
		if child != nil {
			if err := checkBody(child, sp); err != nil {
				return err
			}
		}
	}
	return nil
}

func within(sp, parent source.Span, what string) error {
	if sp.End <= sp.Start {
		return fmt.Errorf("empty %s span: %v", what, sp)
	}
	if sp.File != parent.File {
		return fmt.Errorf("%s span file mismatch: got=%d want=%d", what, sp.File, parent.File)
	}
	if sp.Start < parent.Start || sp.End > parent.End {
		return fmt.Errorf("%s span %v is outside %v", what, sp, parent)
	}
	return nil
}
