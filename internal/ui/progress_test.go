package ui

import (
	"errors"
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dtolsp/internal/workspace"
)

func TestProgressModelFoldsStages(t *testing.T) {
	m := NewProgressModel("indexing", []string{"/p/a", "/p/b"}, nil).(*progressModel)

	m.applyEvent(workspace.Event{Project: "/p/a", Stage: workspace.StageClasses, Status: workspace.StatusWorking})
	assert.Equal(t, "scanning", m.items[0].label)
	assert.Equal(t, "queued", m.items[1].label)

	m.applyEvent(workspace.Event{Project: "/p/a", Stage: workspace.StageClasses, Status: workspace.StatusDone, Count: 7})
	m.applyEvent(workspace.Event{Project: "/p/a", Stage: workspace.StageSources, Status: workspace.StatusWorking})
	assert.Equal(t, "parsing", m.items[0].label)
	m.applyEvent(workspace.Event{Project: "/p/a", Stage: workspace.StageSources, Status: workspace.StatusDone, Count: 3})
	assert.Equal(t, "done", m.items[0].label)
	assert.InDelta(t, 0.5, m.percent(), 1e-9)

	m.applyEvent(workspace.Event{Project: "/p/b", Stage: workspace.StageSources, Status: workspace.StatusError, Err: errors.New("boom")})
	assert.Equal(t, "error", m.items[1].label)

	// unknown projects are ignored
	require.Nil(t, m.applyEvent(workspace.Event{Project: "/elsewhere", Status: workspace.StatusDone}))
}

func TestProgressModelView(t *testing.T) {
	m := NewProgressModel("indexing", []string{"/p/a"}, nil).(*progressModel)
	m.applyEvent(workspace.Event{Project: "/p/a", Stage: workspace.StageClasses, Status: workspace.StatusDone, Count: 7})
	m.applyEvent(workspace.Event{Project: "/p/a", Stage: workspace.StageSources, Status: workspace.StatusDone, Count: 3})
	_, _ = m.Update(doneMsg{})

	view := m.View()
	if !strings.Contains(view, "done: indexing") {
		t.Fatalf("expected done header, got:\n%s", view)
	}
	assert.Contains(t, view, "/p/a  (7 classes, 3 sources)")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd...", truncate("abcdefghijkl", 7))
	assert.Equal(t, "ab", truncate("abcdef", 2))
	assert.Equal(t, "日本...", truncate("日本語テキスト", 7))
	if got := runewidth.StringWidth(truncate("/very/long/project/path", 12)); got != 12 {
		t.Fatalf("truncated width = %d, want 12", got)
	}
}
