package port

import (
	"fmt"

	"rebo/internal/device"
	"rebo/internal/fault"
	"rebo/internal/trace"
	"rebo/internal/value"
)

// Verb is the generic action routed to an actor.
type Verb uint8

const (
	VerbOpen Verb = iota + 1
	VerbClose
	VerbRead
	VerbWrite
	VerbUpdate
	VerbQuery
	VerbOpenQ
	VerbPick
	VerbClear
	VerbCreate
	VerbRename
	VerbDelete
)

// String returns the verb name.
func (v Verb) String() string {
	switch v {
	case VerbOpen:
		return "open"
	case VerbClose:
		return "close"
	case VerbRead:
		return "read"
	case VerbWrite:
		return "write"
	case VerbUpdate:
		return "update"
	case VerbQuery:
		return "query"
	case VerbOpenQ:
		return "open?"
	case VerbPick:
		return "pick"
	case VerbClear:
		return "clear"
	case VerbCreate:
		return "create"
	case VerbRename:
		return "rename"
	case VerbDelete:
		return "delete"
	default:
		return fmt.Sprintf("verb(%d)", v)
	}
}

// Args carries the verb operands that vary by action.
type Args struct {
	Data  value.Cell // write source, pick selector, rename target
	Part  int        // /part length, < 0 when absent
	Index int        // pick index
}

// Actor is the uniform verb interface every scheme implements. Verbs an
// actor does not support come from base and return an invalid-port
// error.
type Actor interface {
	Scheme() string
	Open(ctx *Context, p *Port) *fault.Error
	Close(ctx *Context, p *Port) *fault.Error
	Read(ctx *Context, p *Port, part int) (value.Cell, *fault.Error)
	Write(ctx *Context, p *Port, data value.Cell, part int) (value.Cell, *fault.Error)
	Update(ctx *Context, p *Port, req *device.Request) *fault.Error
	Query(ctx *Context, p *Port) (value.Cell, *fault.Error)
	IsOpen(ctx *Context, p *Port) bool
	Pick(ctx *Context, p *Port, index int) (value.Cell, *fault.Error)
	Clear(ctx *Context, p *Port) *fault.Error
	Create(ctx *Context, p *Port) *fault.Error
	Rename(ctx *Context, p *Port, to value.Cell) *fault.Error
	Delete(ctx *Context, p *Port) *fault.Error
}

// base supplies the unsupported-verb defaults actors embed.
type base struct{ scheme string }

func (b base) Scheme() string { return b.scheme }

func (b base) badAction(verb string) *fault.Error {
	return fault.New(fault.ErrInvalidPort, "%s port does not support %s", b.scheme, verb).WithPort(b.scheme)
}

func (b base) Open(*Context, *Port) *fault.Error  { return b.badAction("open") }
func (b base) Close(*Context, *Port) *fault.Error { return b.badAction("close") }
func (b base) Read(*Context, *Port, int) (value.Cell, *fault.Error) {
	return value.Cell{}, b.badAction("read")
}
func (b base) Write(*Context, *Port, value.Cell, int) (value.Cell, *fault.Error) {
	return value.Cell{}, b.badAction("write")
}
func (b base) Update(*Context, *Port, *device.Request) *fault.Error { return nil }
func (b base) Query(*Context, *Port) (value.Cell, *fault.Error) {
	return value.Cell{}, b.badAction("query")
}
func (b base) IsOpen(_ *Context, p *Port) bool {
	req := p.Request()
	return req != nil && req.IsOpen()
}
func (b base) Pick(*Context, *Port, int) (value.Cell, *fault.Error) {
	return value.Cell{}, b.badAction("pick")
}
func (b base) Clear(*Context, *Port) *fault.Error              { return b.badAction("clear") }
func (b base) Create(*Context, *Port) *fault.Error             { return b.badAction("create") }
func (b base) Rename(*Context, *Port, value.Cell) *fault.Error { return b.badAction("rename") }
func (b base) Delete(*Context, *Port) *fault.Error             { return b.badAction("delete") }

// Dispatch routes a generic verb into the actor method. The result cell
// is none for verbs without a value.
func Dispatch(ctx *Context, p *Port, verb Verb, args Args) (value.Cell, *fault.Error) {
	if p == nil || p.Actor == nil {
		return value.Cell{}, fault.New(fault.ErrInvalidPort, "not a port")
	}
	trace.Point(ctx.Tracer, trace.ScopePort, "port."+verb.String(), p.Actor.Scheme())
	switch verb {
	case VerbOpen:
		return value.MakeNone(), p.Actor.Open(ctx, p)
	case VerbClose:
		return value.MakeNone(), p.Actor.Close(ctx, p)
	case VerbRead:
		return p.Actor.Read(ctx, p, args.Part)
	case VerbWrite:
		return p.Actor.Write(ctx, p, args.Data, args.Part)
	case VerbUpdate:
		return value.MakeNone(), p.Actor.Update(ctx, p, p.Request())
	case VerbQuery:
		return p.Actor.Query(ctx, p)
	case VerbOpenQ:
		return value.MakeLogic(p.Actor.IsOpen(ctx, p)), nil
	case VerbPick:
		return p.Actor.Pick(ctx, p, args.Index)
	case VerbClear:
		return value.MakeNone(), p.Actor.Clear(ctx, p)
	case VerbCreate:
		return value.MakeNone(), p.Actor.Create(ctx, p)
	case VerbRename:
		return value.MakeNone(), p.Actor.Rename(ctx, p, args.Data)
	case VerbDelete:
		return value.MakeNone(), p.Actor.Delete(ctx, p)
	default:
		return value.Cell{}, fault.New(fault.ErrInvalidPort, "unknown verb %d", verb)
	}
}

// readBuffer ensures the port data field holds a byte series with at
// least capacity free elements and returns it.
func readBuffer(ctx *Context, p *Port, capacity int) *value.Series {
	d := p.Data()
	if d.Kind == value.KindBinary && d.Ser != nil {
		d.Ser.Extend(capacity - (d.Ser.Rest() - d.Ser.Tail()))
		return d.Ser
	}
	s := ctx.Pool.Make(capacity, 1, value.FlagManaged)
	p.SetData(value.MakeBinary(s, 0))
	return s
}

// deviceError tags and returns a device failure as the port's error.
func deviceError(p *Port, req *device.Request, code fault.Code, what string) *fault.Error {
	if req.Err != nil {
		return req.Err.WithPort(p.Spec.Scheme)
	}
	return fault.New(code, "%s failed on %s port", what, p.Spec.Scheme).WithPort(p.Spec.Scheme)
}
