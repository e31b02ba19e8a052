package pingpong

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects per-tick counters on a private registry.
//
// Nothing is served over the network: WriteTextfile dumps the registry in
// the text exposition format, suitable for a node_exporter textfile
// collector directory.
type Metrics struct {
	Registry *prometheus.Registry

	ticks    *prometheus.CounterVec
	duration prometheus.Histogram
	stage    prometheus.Gauge
	values   *prometheus.GaugeVec
}

// NewMetrics creates and registers the tick collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		ticks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pingpong",
			Name:      "ticks_total",
			Help:      "Ticks attempted, by result.",
		}, []string{"result", "stage"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "pingpong",
			Name:      "tick_duration_seconds",
			Help:      "Wall time of a full tick, compute through readback.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
		stage: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "pingpong",
			Name:      "stage",
			Help:      "Current tick stage (0 = Idle).",
		}),
		values: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "pingpong",
			Name:      "state_value",
			Help:      "Last read back state vector component.",
		}, []string{"index"}),
	}
	m.Registry.MustRegister(m.ticks, m.duration, m.stage, m.values)
	return m
}

func (m *Metrics) observeStage(s Stage) {
	if m == nil {
		return
	}
	m.stage.Set(float64(s))
}

func (m *Metrics) observeTick(f Frame, d time.Duration) {
	if m == nil {
		return
	}
	m.ticks.WithLabelValues("ok", StageReadBack.String()).Inc()
	m.duration.Observe(d.Seconds())
	for i, v := range f.State {
		m.values.WithLabelValues(strconv.Itoa(i)).Set(float64(v))
	}
}

func (m *Metrics) observeFailure(failed Stage) {
	if m == nil {
		return
	}
	m.ticks.WithLabelValues("failed", failed.String()).Inc()
}

// WriteTextfile writes the current metric values to path atomically.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}
