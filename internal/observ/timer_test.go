package observ

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimerReport(t *testing.T) {
	tm := NewTimer()
	parse := tm.Begin("parse")
	time.Sleep(time.Millisecond)
	tm.End(parse, "3 tokens")
	compile := tm.Begin("compile")
	tm.End(compile, "")
	tm.End(42, "ignored")

	r := tm.Report()
	require.Len(t, r.Phases, 2)
	assert.Equal(t, "parse", r.Phases[0].Name)
	assert.Equal(t, "3 tokens", r.Phases[0].Note)
	assert.GreaterOrEqual(t, r.Phases[0].DurationMS, 1.0)
	assert.InDelta(t, r.Phases[0].DurationMS+r.Phases[1].DurationMS, r.TotalMS, 1e-9)

	s := tm.Summary()
	if !strings.HasPrefix(s, "timings:\n  parse") || !strings.Contains(s, "// 3 tokens") {
		t.Fatalf("unexpected summary:\n%s", s)
	}
}

func TestNilTimer(t *testing.T) {
	var tm *Timer
	assert.Equal(t, -1, tm.Begin("x"))
	tm.End(0, "")
	assert.Equal(t, Report{}, tm.Report())
	ObservePhases(tm)
}

func TestObservePhases(t *testing.T) {
	tm := NewTimer()
	tm.End(tm.Begin("observ-test-phase"), "")
	tm.End(tm.Begin("observ-test-phase"), "")
	ObservePhases(tm)

	metric, ok := CompileDuration.WithLabelValues("observ-test-phase").(prometheus.Metric)
	require.True(t, ok)
	var m dto.Metric
	require.NoError(t, metric.Write(&m))
	assert.Equal(t, uint64(2), m.GetHistogram().GetSampleCount())
}
