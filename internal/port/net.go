package port

import (
	"rebo/internal/device"
	"rebo/internal/fault"
	"rebo/internal/value"
)

// defaultChunk is the transport read buffer granularity. The buffer
// grows when its free space drops below half of this.
const defaultChunk = 32 * 1024

// transportActor serves both tcp and udp; the protocol is the only
// difference the device layer sees.
type transportActor struct {
	base
	proto uint8
}

// NewTCPActor creates the tcp scheme actor.
func NewTCPActor() Actor { return &transportActor{base{scheme: "tcp"}, device.ProtoTCP} }

// NewUDPActor creates the udp scheme actor.
func NewUDPActor() Actor { return &transportActor{base{scheme: "udp"}, device.ProtoUDP} }

// Open distinguishes the three spec shapes: a DNS name connects after a
// lookup, a literal address connects immediately, and a missing host
// listens on the local port.
func (a *transportActor) Open(ctx *Context, p *Port) *fault.Error {
	req := p.UseState(device.DevNet)
	if req.IsOpen() {
		return nil
	}
	req.State = a.proto

	switch {
	case p.Spec.Host != "":
		req.Net.Host = p.Spec.Host
		if ctx.Devices.Do(req, device.CmdLookup) < 0 {
			return deviceError(p, req, fault.ErrNoConnect, "lookup")
		}
		req.Net.RemotePort = p.Spec.Port
		if ctx.Devices.Do(req, device.CmdOpen) < 0 {
			return deviceError(p, req, fault.ErrNoConnect, "connect")
		}
	case p.Spec.HasIP:
		req.Net.RemoteIP = p.Spec.IP
		req.Net.RemotePort = p.Spec.Port
		if ctx.Devices.Do(req, device.CmdOpen) < 0 {
			return deviceError(p, req, fault.ErrNoConnect, "connect")
		}
	default:
		req.Flags |= device.FlagListen
		req.Net.LocalPort = p.Spec.Port
		if ctx.Devices.Do(req, device.CmdOpen) < 0 {
			return deviceError(p, req, fault.ErrCannotOpen, "listen")
		}
	}
	p.MarkOpen(ctx)
	return nil
}

func (a *transportActor) Close(ctx *Context, p *Port) *fault.Error {
	req := p.Request()
	if req != nil && req.IsOpen() {
		ctx.Devices.Do(req, device.CmdClose)
	}
	p.MarkClosed()
	p.SetData(value.MakeNone())
	return nil
}

// Read issues a device read into the port buffer. A pending result
// returns none; completion arrives through Update.
func (a *transportActor) Read(ctx *Context, p *Port, part int) (value.Cell, *fault.Error) {
	req := p.Request()
	if req == nil || !req.IsOpen() {
		if err := a.Open(ctx, p); err != nil {
			return value.Cell{}, err
		}
		req = p.Request()
	}

	buf := readBuffer(ctx, p, defaultChunk)
	if buf.Rest()-buf.Tail() < defaultChunk/2 {
		buf.Extend(defaultChunk)
	}
	req.Data = buf.FreeBytes()
	req.Length = len(req.Data)
	if part >= 0 && part < req.Length {
		req.Length = part
	}

	result := ctx.Devices.Do(req, device.CmdRead)
	switch {
	case result < 0:
		return value.Cell{}, deviceError(p, req, fault.ErrReadError, "read")
	case result > 0:
		return value.MakeNone(), nil
	}
	buf.AdvanceTail(req.Actual)
	return value.MakeBinary(buf, 0), nil
}

// Write sends a string or binary cell. The source is held in the data
// field so it stays reachable while the device points into it.
func (a *transportActor) Write(ctx *Context, p *Port, data value.Cell, part int) (value.Cell, *fault.Error) {
	req := p.Request()
	if req == nil || !req.IsOpen() {
		if err := a.Open(ctx, p); err != nil {
			return value.Cell{}, err
		}
		req = p.Request()
	}

	bytes, err := writeBytes(ctx, p, data, part)
	if err != nil {
		return value.Cell{}, err
	}
	req.Data = bytes
	req.Length = len(bytes)
	req.Actual = 0

	result := ctx.Devices.Do(req, device.CmdWrite)
	switch {
	case result < 0:
		return value.Cell{}, deviceError(p, req, fault.ErrWriteError, "write")
	case result > 0:
		return value.MakeNone(), nil
	}
	p.SetData(value.MakeNone())
	return value.MakeInteger(int64(req.Actual)), nil
}

// Update observes the exact request that completed.
func (a *transportActor) Update(ctx *Context, p *Port, req *device.Request) *fault.Error {
	if req == nil || !req.IsOpen() {
		// Update after close is a no-op.
		return nil
	}
	switch req.Command {
	case device.CmdRead:
		if d := p.Data(); d.Kind == value.KindBinary && d.Ser != nil {
			d.Ser.AdvanceTail(req.Actual)
		}
	case device.CmdWrite:
		p.SetData(value.MakeNone())
	case device.CmdOpen, device.CmdConnect:
		if !p.IsOpenState() {
			p.MarkOpen(ctx)
		}
	}
	return nil
}

// Query reports local and remote endpoint info as a block of
// [local-ip local-port remote-ip remote-port].
func (a *transportActor) Query(ctx *Context, p *Port) (value.Cell, *fault.Error) {
	req := p.Request()
	if req == nil || !req.IsOpen() {
		return value.Cell{}, fault.New(fault.ErrNotOpen, "%s port not open", a.scheme).WithPort(a.scheme)
	}
	ctx.Devices.Do(req, device.CmdQuery)
	out := ctx.Pool.Make(4, value.CellWide, value.FlagArray|value.FlagManaged)
	out.AppendCells(
		value.MakeTuple(ipTuple(req.Net.LocalIP)),
		value.MakeInteger(int64(req.Net.LocalPort)),
		value.MakeTuple(ipTuple(req.Net.RemoteIP)),
		value.MakeInteger(int64(req.Net.RemotePort)),
	)
	return value.MakeBlock(out, 0), nil
}

// Pick on a listener dequeues the accept at a one-based index and wraps
// it in a cloned port. Out of range returns none.
func (a *transportActor) Pick(ctx *Context, p *Port, index int) (value.Cell, *fault.Error) {
	req := p.Request()
	if req == nil || req.Flags&device.FlagListen == 0 {
		return value.Cell{}, fault.New(fault.ErrInvalidPort, "pick on a non-listening %s port", a.scheme).WithPort(a.scheme)
	}
	if index < 1 || index > len(req.Net.AcceptQueue) {
		return value.MakeNone(), nil
	}
	conn := req.Net.AcceptQueue[index-1]
	req.Net.AcceptQueue = append(req.Net.AcceptQueue[:index-1], req.Net.AcceptQueue[index:]...)

	spec := &Spec{
		Scheme: a.scheme,
		IP:     conn.RemoteIP,
		HasIP:  true,
		Port:   conn.RemotePort,
	}
	child := New(ctx, spec, a)
	creq := child.UseState(device.DevNet)
	creq.State = a.proto
	creq.Net = conn
	creq.Flags |= device.FlagOpen
	child.MarkOpen(ctx)
	return child.Cell(), nil
}

func ipTuple(ip [4]byte) value.Tuple {
	var t value.Tuple
	t.Len = 4
	copy(t.Data[:], ip[:])
	return t
}
