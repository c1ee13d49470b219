package document

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dtolsp/internal/compiler"
	"dtolsp/internal/diag"
	"dtolsp/internal/testkit"
)

const uri = "file:///p/src/main/dto/com/x/Foo.dto"

const good = `export com.x.Foo

FooView {
    name
    parent {
        name
    }
}
`

func libraryResolver() Resolver {
	lib := testkit.Library()
	return ResolverFunc(func(_ context.Context, _ string, hint compiler.BaseTypeQuery) Resolution {
		hctx := lib.Context()
		hint.Dir = "com/x"
		base, name := compiler.ResolveBaseType(hctx, hint)
		return Resolution{Context: hctx, Base: base, Name: name}
	})
}

func mustAnalyze(t *testing.T, m *Manager, seq uint64) *Snapshot {
	t.Helper()
	snap, err := m.Analyze(context.Background(), uri, seq)
	if err != nil {
		t.Fatalf("analyze seq %d: %v", seq, err)
	}
	return snap
}

func TestSnapshotMonotonicity(t *testing.T) {
	m := NewManager(libraryResolver(), Options{})
	seq := m.Open(uri, 1, good)
	snap := mustAnalyze(t, m, seq)

	d, ok := m.Get(uri)
	require.True(t, ok)
	require.True(t, snap.Compiled(), "%v", snap.Diagnostics())
	assert.Same(t, d.RealTime(), d.RightTime())
	good1 := d.RightTime()

	// A syntax error advances only the latest snapshot.
	seq, err := m.Change(uri, 2, "export com.x.Foo\n\nFooView {\n    name\n")
	require.NoError(t, err)
	broken := mustAnalyze(t, m, seq)
	assert.False(t, broken.Compiled())
	assert.Same(t, broken, d.RealTime())
	assert.Same(t, good1, d.RightTime())
	assert.True(t, broken.Syntax.HasErrors())

	// A semantic error does the same and carries its diagnostics.
	seq, err = m.Change(uri, 3, "export com.x.Foo\n\nFooView { missingProp }\n")
	require.NoError(t, err)
	bad := mustAnalyze(t, m, seq)
	assert.Same(t, good1, d.RightTime())
	diags := bad.Diagnostics()
	require.Len(t, diags, 1)
	assert.Equal(t, diag.DtoUnresolvedProp, diags[0].Code)

	// Fixing the text promotes again.
	seq, err = m.Change(uri, 4, good)
	require.NoError(t, err)
	fixed := mustAnalyze(t, m, seq)
	assert.Same(t, fixed, d.RightTime())
	assert.Same(t, d.RealTime(), d.RightTime())
	assert.Equal(t, 4, d.RightTime().Version)
}

func TestStaleAnalysisIsDiscarded(t *testing.T) {
	m := NewManager(libraryResolver(), Options{})
	first := m.Open(uri, 1, good)
	second, err := m.Change(uri, 2, "export com.x.Foo\n\nFooView { nope }\n")
	require.NoError(t, err)
	require.Greater(t, second, first)

	_, err = m.Analyze(context.Background(), uri, first)
	assert.ErrorIs(t, err, ErrStale)

	d, _ := m.Get(uri)
	assert.Nil(t, d.RightTime())
	assert.False(t, d.RealTime().Analyzed)
}

func TestCommitLosesToConcurrentEdit(t *testing.T) {
	var m *Manager
	var once sync.Once
	var editSeq uint64
	lib := testkit.Library()
	// The resolver runs between snapshot load and commit; an edit made there
	// must win over the analysis in flight.
	m = NewManager(ResolverFunc(func(_ context.Context, _ string, hint compiler.BaseTypeQuery) Resolution {
		once.Do(func() {
			editSeq, _ = m.Change(uri, 2, good+"\n")
		})
		hctx := lib.Context()
		base, name := compiler.ResolveBaseType(hctx, hint)
		return Resolution{Context: hctx, Base: base, Name: name}
	}), Options{})

	seq := m.Open(uri, 1, good)
	_, err := m.Analyze(context.Background(), uri, seq)
	require.ErrorIs(t, err, ErrStale)

	d, _ := m.Get(uri)
	assert.Equal(t, editSeq, d.RealTime().Seq)
	assert.Nil(t, d.RightTime())

	snap := mustAnalyze(t, m, editSeq)
	assert.True(t, snap.Compiled())
}

func TestUnresolvedBaseNeverPromotes(t *testing.T) {
	m := NewManager(libraryResolver(), Options{})
	seq := m.Open(uri, 1, "export com.x.Missing\n\nV { id }\n")
	snap := mustAnalyze(t, m, seq)
	assert.False(t, snap.Compiled())
	assert.Equal(t, "com.x.Missing", snap.BaseName)
	diags := snap.Diagnostics()
	require.NotEmpty(t, diags)
	assert.Equal(t, diag.DtoUnresolvedType, diags[0].Code)
}

func TestPathFallbackWithoutExport(t *testing.T) {
	m := NewManager(libraryResolver(), Options{})
	seq := m.Open(uri, 1, "FooView { name }\n")
	snap := mustAnalyze(t, m, seq)
	assert.True(t, snap.Compiled(), "%v", snap.Diagnostics())
	assert.Equal(t, "com.x.Foo", snap.BaseName)
}

func TestCloseDropsSnapshots(t *testing.T) {
	m := NewManager(libraryResolver(), Options{})
	seq := m.Open(uri, 1, good)
	mustAnalyze(t, m, seq)
	d, _ := m.Get(uri)

	require.True(t, m.Close(uri))
	assert.False(t, m.Close(uri))
	assert.Nil(t, d.RealTime())
	assert.Nil(t, d.RightTime())
	assert.Empty(t, m.URIs())

	_, err := m.Change(uri, 2, good)
	assert.ErrorIs(t, err, ErrNotOpen)
	_, err = m.Analyze(context.Background(), uri, seq)
	assert.ErrorIs(t, err, ErrNotOpen)
}

func TestSaveKeepsOrReplacesText(t *testing.T) {
	m := NewManager(libraryResolver(), Options{})
	m.Open(uri, 7, good)
	seq, err := m.Save(uri, nil)
	require.NoError(t, err)
	d, _ := m.Get(uri)
	assert.Equal(t, good, d.RealTime().Text)
	assert.Equal(t, 7, d.RealTime().Version)
	assert.Equal(t, uint64(2), seq)

	text := "FooView { id }\n"
	_, err = m.Save(uri, &text)
	require.NoError(t, err)
	assert.Equal(t, text, d.RealTime().Text)
}

func TestAnalyzeHonorsCancellation(t *testing.T) {
	m := NewManager(libraryResolver(), Options{})
	seq := m.Open(uri, 1, good)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := m.Analyze(ctx, uri, seq)
	require.True(t, errors.Is(err, context.Canceled))
	d, _ := m.Get(uri)
	assert.False(t, d.RealTime().Analyzed)
}

func TestConcurrentEditsKeepSeqMonotonic(t *testing.T) {
	m := NewManager(libraryResolver(), Options{})
	m.Open(uri, 0, good)
	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seq, err := m.Change(uri, i, good)
			if err == nil {
				_, _ = m.Analyze(context.Background(), uri, seq)
			}
		}()
	}
	wg.Wait()
	d, _ := m.Get(uri)
	assert.Equal(t, uint64(17), d.Seq())
	assert.Equal(t, d.Seq(), d.RealTime().Seq)
}
