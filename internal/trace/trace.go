// Package trace provides leveled runtime tracing for the series, device,
// and port layers.
package trace

import (
	"fmt"
	"time"
)

// Level controls tracing verbosity.
type Level uint8

const (
	// LevelOff disables tracing.
	LevelOff   Level = iota // no tracing
	LevelError              // only device and port failures
	LevelPort               // port verb dispatch and device completion
	LevelDebug              // everything including series allocation
)

// String returns the string representation of Level.
func (l Level) String() string {
	switch l {
	case LevelOff:
		return "off"
	case LevelError:
		return "error"
	case LevelPort:
		return "port"
	case LevelDebug:
		return "debug"
	default:
		return "unknown"
	}
}

// ParseLevel converts a string to a Level.
func ParseLevel(s string) (Level, error) {
	switch s {
	case "off", "OFF":
		return LevelOff, nil
	case "error", "ERROR":
		return LevelError, nil
	case "port", "PORT":
		return LevelPort, nil
	case "debug", "DEBUG":
		return LevelDebug, nil
	default:
		return LevelOff, fmt.Errorf("invalid trace level: %q (expected: off|error|port|debug)", s)
	}
}

// Scope indicates the granularity of an event. Lower values are coarser.
type Scope uint8

const (
	// ScopeRuntime covers boot, shutdown, and native entry.
	ScopeRuntime Scope = iota + 1
	// ScopePort covers actor verb dispatch.
	ScopePort
	// ScopeDevice covers device requests and poll completions.
	ScopeDevice
	// ScopeSeries covers allocation, expansion, and recycle sweeps.
	ScopeSeries
)

// String returns the string representation of Scope.
func (s Scope) String() string {
	switch s {
	case ScopeRuntime:
		return "runtime"
	case ScopePort:
		return "port"
	case ScopeDevice:
		return "device"
	case ScopeSeries:
		return "series"
	default:
		return "unknown"
	}
}

// ShouldEmit returns true if the given scope should emit at this level.
func (l Level) ShouldEmit(scope Scope) bool {
	switch l {
	case LevelOff, LevelError:
		return false // error events go through the crash path
	case LevelPort:
		return scope <= ScopeDevice
	case LevelDebug:
		return true
	}
	return false
}

// Event is a single trace record.
type Event struct {
	Time   time.Time // wall-clock timestamp
	Scope  Scope     // granularity level
	Name   string    // e.g. "port.read", "device.poll", "series.expand"
	Detail string    // optional detail message
}

// Tracer is the interface for emitting trace events.
type Tracer interface {
	// Emit records a trace event.
	Emit(ev Event)

	// Flush ensures all buffered events are written.
	Flush() error

	// Level returns the current tracing level.
	Level() Level

	// Enabled returns true if tracing is active (Level > LevelOff).
	Enabled() bool
}

// Point emits an instant event if the tracer accepts the scope.
func Point(t Tracer, scope Scope, name, detail string) {
	if t == nil || !t.Level().ShouldEmit(scope) {
		return
	}
	t.Emit(Event{Time: time.Now(), Scope: scope, Name: name, Detail: detail})
}
