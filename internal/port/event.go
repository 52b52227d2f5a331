package port

import (
	"rebo/internal/device"
	"rebo/internal/fault"
	"rebo/internal/value"
)

const (
	// EventsLimit is the hard cap of queued events. Reaching it is
	// fatal.
	EventsLimit = 65535
	// EventsChunk is the growth step of the queue series.
	EventsChunk = 128
)

// Queue is the process-wide FIFO of asynchronous completions. Exactly
// one exists per runtime; the event, callback, and system actors share
// it, each bindable at most once.
type Queue struct {
	series *value.Series
	signal bool
	bound  map[string]bool
}

// NewQueue allocates the event queue series.
func NewQueue(pool *value.Pool) *Queue {
	return &Queue{
		series: pool.Make(EventsChunk, value.CellWide, value.FlagArray),
		bound:  make(map[string]bool, 3),
	}
}

// Series exposes the queue storage for GC rooting.
func (q *Queue) Series() *value.Series { return q.series }

// Len returns the number of queued events.
func (q *Queue) Len() int { return q.series.Tail() }

// Append reserves one event slot and returns a pointer to it. The queue
// grows in chunks; overflowing the hard cap panics.
func (q *Queue) Append() *value.Event {
	if q.series.Tail() >= EventsLimit {
		panic(fault.New(fault.ErrMaxEvents, "event queue overflow at %d events", EventsLimit))
	}
	if q.series.Tail() == q.series.Rest() {
		q.series.Extend(EventsChunk)
	}
	ev := &value.Event{}
	q.series.AppendCells(value.MakeEvent(ev))
	q.signal = true
	return ev
}

// Push appends a completed device request as an event.
func (q *Queue) Push(req *device.Request, typ uint8, model uint8) {
	ev := q.Append()
	ev.Type = typ
	ev.Model = model
	ev.Data = int32(req.Actual)
	ev.Request = req
}

// FindLast scans backward and returns the most recent event of the
// given model iff its type matches; otherwise nil.
func (q *Queue) FindLast(model, typ uint8) *value.Event {
	cells := q.series.Cells()
	for i := len(cells) - 1; i >= 0; i-- {
		ev := cells[i].Ev
		if ev == nil || ev.Model != model {
			continue
		}
		if ev.Type == typ {
			return ev
		}
		return nil
	}
	return nil
}

// Pick returns the event at a one-based index, or none past the end.
func (q *Queue) Pick(index int) value.Cell {
	if index < 1 || index > q.series.Tail() {
		return value.MakeNone()
	}
	return *q.series.CellAt(index - 1)
}

// Shift removes and returns the oldest event. The head bias makes this
// O(1).
func (q *Queue) Shift() (value.Cell, bool) {
	if q.series.Tail() == 0 {
		return value.MakeNone(), false
	}
	c := *q.series.CellAt(0)
	q.series.Remove(0, 1)
	return c, true
}

// Clear empties the queue and clears the event signal.
func (q *Queue) Clear() {
	q.series.Reset()
	q.signal = false
}

// Signaled reports whether events arrived since the last clear.
func (q *Queue) Signaled() bool { return q.signal }

// eventActor exposes the queue through the port verb interface.
type eventActor struct{ base }

// NewEventActor creates the event scheme actor.
func NewEventActor() Actor { return &eventActor{base{scheme: "event"}} }

// Open binds the port to the process event queue. Each queue scheme may
// be open at most once per process; the schemes do not block each other.
func (a *eventActor) Open(ctx *Context, p *Port) *fault.Error {
	if ctx.Events.bound[a.scheme] {
		return fault.New(fault.ErrAlreadyOpen, "%s port already open", a.scheme).WithPort(a.scheme)
	}
	ctx.Events.bound[a.scheme] = true
	p.MarkOpen(ctx)
	p.SetData(value.MakeBlock(ctx.Events.series, 0))
	req := p.UseState(device.DevEvent)
	req.Flags |= device.FlagOpen
	return nil
}

// Close unbinds the scheme; the shared queue is cleared only when no
// scheme stays bound.
func (a *eventActor) Close(ctx *Context, p *Port) *fault.Error {
	if !ctx.Events.bound[a.scheme] {
		return nil
	}
	delete(ctx.Events.bound, a.scheme)
	if len(ctx.Events.bound) == 0 {
		ctx.Events.Clear()
	}
	p.MarkClosed()
	p.SetData(value.MakeNone())
	if req := p.Request(); req != nil {
		req.Flags &^= device.FlagOpen
	}
	return nil
}

func (a *eventActor) IsOpen(ctx *Context, p *Port) bool { return ctx.Events.bound[a.scheme] }

// Read polls the device layer once and returns the oldest event, or
// none when the queue stays empty.
func (a *eventActor) Read(ctx *Context, p *Port, part int) (value.Cell, *fault.Error) {
	if ctx.Events.Len() == 0 {
		ctx.Devices.Poll(0)
	}
	c, ok := ctx.Events.Shift()
	if !ok {
		return value.MakeNone(), nil
	}
	return c, nil
}

// Pick indexes into the event series.
func (a *eventActor) Pick(ctx *Context, p *Port, index int) (value.Cell, *fault.Error) {
	return ctx.Events.Pick(index), nil
}

// Clear empties the event queue and clears the event signal.
func (a *eventActor) Clear(ctx *Context, p *Port) *fault.Error {
	ctx.Events.Clear()
	return nil
}

// Update drains ready device completions into the queue.
func (a *eventActor) Update(ctx *Context, p *Port, req *device.Request) *fault.Error {
	ctx.Devices.Poll(0)
	return nil
}

func (a *eventActor) Query(ctx *Context, p *Port) (value.Cell, *fault.Error) {
	return value.MakeInteger(int64(ctx.Events.Len())), nil
}
