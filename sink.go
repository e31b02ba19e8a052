package pingpong

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
)

// ReadoutPrefix starts every debug line written by TextSink.
const ReadoutPrefix = "Pixel Buffer Object Data: "

// Sink receives every successfully read back frame. Report is called from
// the goroutine driving the scheduler, once per committed tick.
type Sink interface {
	Report(f Frame)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(f Frame)

// Report calls fn(f).
func (fn SinkFunc) Report(f Frame) { fn(f) }

// FormatReadout returns the human-readable debug line for values:
// ReadoutPrefix followed by the values joined with ", ".
func FormatReadout(values []float32) string {
	var b strings.Builder
	b.WriteString(ReadoutPrefix)
	for i, v := range values {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 32))
	}
	return b.String()
}

// TextSink writes one FormatReadout line per frame to an io.Writer.
type TextSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewTextSink returns a sink writing to w.
func NewTextSink(w io.Writer) *TextSink {
	return &TextSink{w: w}
}

// Report writes the state readback of f.
func (s *TextSink) Report(f Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := fmt.Fprintln(s.w, FormatReadout(f.State)); err != nil {
		Logger().Warn("pingpong: text sink write failed", "err", err)
	}
}

// LogSink logs every frame at Info level.
type LogSink struct {
	Logger *slog.Logger
}

// Report logs f.
func (s LogSink) Report(f Frame) {
	l := s.Logger
	if l == nil {
		l = Logger()
	}
	l.Info("pingpong: frame",
		"tick", f.Tick,
		"state", FormatReadout(f.State)[len(ReadoutPrefix):],
		"format", f.Format)
}

// MultiSink fans a frame out to several sinks in order.
type MultiSink []Sink

// Report forwards f to every non-nil sink.
func (m MultiSink) Report(f Frame) {
	for _, s := range m {
		if s != nil {
			s.Report(f)
		}
	}
}

type discardSink struct{}

func (discardSink) Report(Frame) {}
