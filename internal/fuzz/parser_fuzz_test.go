package fuzztests

import (
	"testing"
	"time"

	"dtolsp/internal/format"
	"dtolsp/internal/parser"
)

// parseTimeout bounds one parse; a slower parse points at a recovery loop.
const parseTimeout = 5 * time.Second

func FuzzParserNoHang(f *testing.F) {
	addCorpusSeeds(f)
	f.Add([]byte("A { B { C { D { E { F {"))
	f.Add([]byte("import a.b.{c as, d as e,,}"))
	f.Add([]byte("A { as(^ -> ) { as(x$) } }"))
	f.Fuzz(func(t *testing.T, input []byte) {
		input = clampInput(input)

		done := make(chan struct{})
		go func() {
			defer close(done)
			_ = parser.ParseText(string(input), parser.Options{Path: "fuzz.dto", MaxErrors: 128})
		}()

		select {
		case <-done:
		case <-time.After(parseTimeout):
			t.Fatalf("parser hang detected: parsing took longer than %v\ninput (%d bytes): %q",
				parseTimeout, len(input), truncateForLog(input, 200))
		}
	})
}

// FuzzFormatFixedPoint checks that clean input formats to a fixed point with
// the same declarations.
func FuzzFormatFixedPoint(f *testing.F) {
	addCorpusSeeds(f)
	f.Fuzz(func(t *testing.T, input []byte) {
		input = clampInput(input)
		res := parser.ParseText(string(input), parser.Options{Path: "fuzz.dto", MaxErrors: 1})
		if res.Bag.HasErrors() {
			return
		}
		if ok, msg := format.CheckRoundTrip("fuzz.dto", input, format.Options{}); !ok {
			t.Fatalf("%s\ninput: %q", msg, truncateForLog(input, 400))
		}
	})
}

func truncateForLog(input []byte, maxLen int) []byte {
	if len(input) <= maxLen {
		return input
	}
	return append(input[:maxLen:maxLen], []byte("...")...)
}
