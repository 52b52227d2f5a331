// Package port implements the actor state machines that map the generic
// verb repertoire onto the device layer.
package port

import (
	"rebo/internal/device"
	"rebo/internal/trace"
	"rebo/internal/value"
)

// Fixed cell slots of a port object series.
const (
	SlotSpec = iota
	SlotState
	SlotScheme
	SlotData
	SlotRequest
	NumSlots
)

// Spec carries the decoded port spec. Building it from a spec object is
// the evaluator's business; the core consumes the decoded form.
type Spec struct {
	Scheme string
	Host   string // DNS name; empty means none
	IP     [4]byte
	HasIP  bool
	Port   int
	Path   string
	Signal []int // signal numbers; nil means all
	New    bool  // create on open
}

// Context is what every actor needs: the series pool, the device
// registry, the process-wide event queue, and the tracer.
type Context struct {
	Pool    *value.Pool
	Devices *device.Registry
	Events  *Queue
	Tracer  trace.Tracer
}

// Port wraps the fixed array series describing one port instance. The
// state cell doubles as the FSM state: none is closed, a block is open.
type Port struct {
	Obj   *value.Series
	Actor Actor
	Spec  *Spec
}

// New allocates a port object for a spec and actor.
func New(ctx *Context, spec *Spec, actor Actor) *Port {
	obj := ctx.Pool.Make(NumSlots, value.CellWide, value.FlagArray|value.FlagManaged)
	cells := make([]value.Cell, NumSlots)
	cells[SlotSpec] = value.MakeHandle(&value.Handle{Name: "spec", Data: spec})
	cells[SlotState] = value.MakeNone()
	cells[SlotScheme] = value.MakeHandle(&value.Handle{Name: spec.Scheme})
	cells[SlotData] = value.MakeNone()
	cells[SlotRequest] = value.MakeNone()
	obj.AppendCells(cells...)
	return &Port{Obj: obj, Actor: actor, Spec: spec}
}

// Cell returns the port as a value cell.
func (p *Port) Cell() value.Cell { return value.MakePort(p.Obj) }

// State returns the state cell.
func (p *Port) State() value.Cell { return *p.Obj.CellAt(SlotState) }

// SetState stores the state cell.
func (p *Port) SetState(c value.Cell) { *p.Obj.CellAt(SlotState) = c }

// IsOpenState reports whether the state cell marks the port open.
func (p *Port) IsOpenState() bool { return p.Obj.CellAt(SlotState).Kind == value.KindBlock }

// MarkOpen stores an open-state block in the state cell.
func (p *Port) MarkOpen(ctx *Context) {
	state := ctx.Pool.Make(1, value.CellWide, value.FlagArray|value.FlagManaged)
	p.SetState(value.MakeBlock(state, 0))
}

// MarkClosed stores none in the state cell.
func (p *Port) MarkClosed() { p.SetState(value.MakeNone()) }

// Data returns the data buffer cell.
func (p *Port) Data() value.Cell { return *p.Obj.CellAt(SlotData) }

// SetData stores the data buffer cell. Holding the series here keeps it
// reachable while a device request points into it.
func (p *Port) SetData(c value.Cell) { *p.Obj.CellAt(SlotData) = c }

// Request returns the device request, or nil before the first use.
func (p *Port) Request() *device.Request {
	c := p.Obj.CellAt(SlotRequest)
	if c.Kind != value.KindHandle || c.H == nil {
		return nil
	}
	req, _ := c.H.Data.(*device.Request)
	return req
}

// UseState fetches the port's device request, lazily allocating and
// binding it on first use.
func (p *Port) UseState(devID device.ID) *device.Request {
	if req := p.Request(); req != nil {
		return req
	}
	req := &device.Request{Device: devID, PortRef: p}
	*p.Obj.CellAt(SlotRequest) = value.MakeHandle(&value.Handle{Name: "request", Data: req})
	return req
}

// Roots returns the series the recycler must treat as live while the
// port exists.
func (p *Port) Roots() []*value.Series {
	roots := []*value.Series{p.Obj}
	if st := p.State(); st.Kind.IsSeries() && st.Ser != nil {
		roots = append(roots, st.Ser)
	}
	if d := p.Data(); d.Kind.IsSeries() && d.Ser != nil {
		roots = append(roots, d.Ser)
	}
	return roots
}
