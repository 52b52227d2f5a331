package trace

import (
	"fmt"
	"io"
	"sync"
)

// StreamTracer writes events immediately to an io.Writer in a line format.
type StreamTracer struct {
	mu    sync.Mutex
	w     io.Writer
	level Level
}

// NewStreamTracer creates a tracer writing to w at the given level.
func NewStreamTracer(w io.Writer, level Level) *StreamTracer {
	return &StreamTracer{w: w, level: level}
}

// Emit writes an event to the output.
func (t *StreamTracer) Emit(ev Event) {
	if !t.level.ShouldEmit(ev.Scope) {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	// Best-effort write - tracing must never disrupt the runtime.
	line := fmt.Sprintf("%s [%s] %s", ev.Time.Format("15:04:05.000"), ev.Scope, ev.Name)
	if ev.Detail != "" {
		line += " " + ev.Detail
	}
	_, _ = io.WriteString(t.w, line+"\n") //nolint:errcheck
}

// Flush is a no-op for the stream sink.
func (t *StreamTracer) Flush() error { return nil }

// Level returns the configured level.
func (t *StreamTracer) Level() Level { return t.level }

// Enabled reports whether tracing is active.
func (t *StreamTracer) Enabled() bool { return t.level > LevelOff }

// nopTracer is a no-op implementation for when tracing is disabled.
type nopTracer struct{}

func (nopTracer) Emit(Event)    {}
func (nopTracer) Flush() error  { return nil }
func (nopTracer) Level() Level  { return LevelOff }
func (nopTracer) Enabled() bool { return false }

// Nop is the package-level singleton nop tracer.
var Nop Tracer = nopTracer{}
