package pingpong

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsObserve(t *testing.T) {
	m := NewMetrics()

	m.observeStage(StageRendered)
	if got := testutil.ToFloat64(m.stage); got != float64(StageRendered) {
		t.Errorf("stage gauge = %v, want %v", got, float64(StageRendered))
	}

	m.observeTick(Frame{State: []float32{3, 4}}, 2*time.Millisecond)
	m.observeTick(Frame{State: []float32{4, 5}}, 3*time.Millisecond)
	m.observeFailure(StageTextureSynced)

	if got := testutil.ToFloat64(m.ticks.WithLabelValues("ok", "ReadBack")); got != 2 {
		t.Errorf("ok ticks = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.ticks.WithLabelValues("failed", "TextureSynced")); got != 1 {
		t.Errorf("failed ticks = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.values.WithLabelValues("1")); got != 5 {
		t.Errorf("state_value{index=1} = %v, want 5", got)
	}
	if n := testutil.CollectAndCount(m.duration); n != 1 {
		t.Errorf("duration collectors = %d, want 1", n)
	}
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.observeStage(StageIdle)
	m.observeTick(Frame{}, time.Millisecond)
	m.observeFailure(StageReadBack)
}

func TestMetricsWriteTextfile(t *testing.T) {
	m := NewMetrics()
	m.observeTick(Frame{State: []float32{1}}, time.Millisecond)

	path := filepath.Join(t.TempDir(), "pingpong.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile() = %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), `pingpong_ticks_total{result="ok",stage="ReadBack"} 1`) {
		t.Errorf("textfile missing tick counter:\n%s", b)
	}
}
