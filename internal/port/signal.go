package port

import (
	"rebo/internal/device"
	"rebo/internal/fault"
	"rebo/internal/value"
)

// signalActor delivers POSIX signals as blocks of records on the port's
// data block.
type signalActor struct{ base }

// NewSignalActor creates the signal scheme actor.
func NewSignalActor() Actor { return &signalActor{base{scheme: "signal"}} }

// Open installs the signal mask from the spec. A nil mask means every
// catchable signal.
func (a *signalActor) Open(ctx *Context, p *Port) *fault.Error {
	req := p.UseState(device.DevSignal)
	if req.IsOpen() {
		return fault.New(fault.ErrAlreadyOpen, "signal port already open").WithPort(a.scheme)
	}
	req.Signal.Mask = p.Spec.Signal
	if ctx.Devices.Do(req, device.CmdOpen) < 0 {
		return deviceError(p, req, fault.ErrCannotOpen, "open")
	}
	data := ctx.Pool.Make(8, value.CellWide, value.FlagArray|value.FlagManaged)
	p.SetData(value.MakeBlock(data, 0))
	p.MarkOpen(ctx)
	return nil
}

// Close aborts any pending read before closing.
func (a *signalActor) Close(ctx *Context, p *Port) *fault.Error {
	req := p.Request()
	if req != nil && req.IsOpen() {
		ctx.Devices.Do(req, device.CmdAbort)
		ctx.Devices.Do(req, device.CmdClose)
	}
	p.MarkClosed()
	p.SetData(value.MakeNone())
	return nil
}

// Read collects up to eight pending signal records. A pending result
// returns none; Update appends the records on completion.
func (a *signalActor) Read(ctx *Context, p *Port, part int) (value.Cell, *fault.Error) {
	req := p.Request()
	if req == nil || !req.IsOpen() {
		return value.Cell{}, fault.New(fault.ErrNotOpen, "signal port not open").WithPort(a.scheme)
	}
	result := ctx.Devices.Do(req, device.CmdRead)
	switch {
	case result < 0:
		return value.Cell{}, deviceError(p, req, fault.ErrReadError, "read")
	case result > 0:
		return value.MakeNone(), nil
	}
	if err := a.Update(ctx, p, req); err != nil {
		return value.Cell{}, err
	}
	return p.Data(), nil
}

// Update builds one record per delivered signal with the fields
// signal-no, code, source-pid, source-uid and appends it to the data
// block.
func (a *signalActor) Update(ctx *Context, p *Port, req *device.Request) *fault.Error {
	if req == nil || !req.IsOpen() {
		return nil
	}
	d := p.Data()
	if d.Kind != value.KindBlock || d.Ser == nil {
		return nil
	}
	for i := 0; i < req.Signal.Count; i++ {
		info := req.Signal.Infos[i]
		rec := ctx.Pool.Make(4, value.CellWide, value.FlagArray|value.FlagManaged)
		rec.AppendCells(
			value.MakeInteger(int64(info.Signo)),
			value.MakeInteger(int64(info.Code)),
			value.MakeInteger(int64(info.SourcePID)),
			value.MakeInteger(int64(info.SourceUID)),
		)
		d.Ser.AppendCells(value.MakeBlock(rec, 0))
	}
	req.Signal.Count = 0
	return nil
}

func (a *signalActor) Query(ctx *Context, p *Port) (value.Cell, *fault.Error) {
	req := p.Request()
	if req == nil || !req.IsOpen() {
		return value.Cell{}, fault.New(fault.ErrNotOpen, "signal port not open").WithPort(a.scheme)
	}
	mask := ctx.Pool.Make(len(req.Signal.Mask), value.CellWide, value.FlagArray|value.FlagManaged)
	for _, signo := range req.Signal.Mask {
		mask.AppendCells(value.MakeInteger(int64(signo)))
	}
	return value.MakeBlock(mask, 0), nil
}
