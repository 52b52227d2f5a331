package port

import (
	"rebo/internal/device"
	"rebo/internal/fault"
	"rebo/internal/value"
)

// consoleBufSize is the preallocated console read buffer.
const consoleBufSize = 32 * 1024

// consoleActor reads and writes raw bytes through the console device.
// No CR/LF conversion happens at this layer.
type consoleActor struct{ base }

// NewConsoleActor creates the console scheme actor.
func NewConsoleActor() Actor { return &consoleActor{base{scheme: "console"}} }

// Open always succeeds; the console opens implicitly.
func (a *consoleActor) Open(ctx *Context, p *Port) *fault.Error {
	req := p.UseState(device.DevConsole)
	if req.IsOpen() {
		return nil
	}
	if ctx.Devices.Do(req, device.CmdOpen) < 0 {
		return deviceError(p, req, fault.ErrCannotOpen, "open")
	}
	p.MarkOpen(ctx)
	return nil
}

func (a *consoleActor) Close(ctx *Context, p *Port) *fault.Error {
	req := p.Request()
	if req != nil && req.IsOpen() {
		ctx.Devices.Do(req, device.CmdClose)
	}
	p.MarkClosed()
	return nil
}

func (a *consoleActor) Read(ctx *Context, p *Port, part int) (value.Cell, *fault.Error) {
	if err := a.Open(ctx, p); err != nil {
		return value.Cell{}, err
	}
	req := p.Request()

	buf := readBuffer(ctx, p, consoleBufSize)
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
	start := buf.Tail()
	buf.AdvanceTail(req.Actual)
	return value.MakeBinary(buf, start), nil
}

func (a *consoleActor) Write(ctx *Context, p *Port, data value.Cell, part int) (value.Cell, *fault.Error) {
	if err := a.Open(ctx, p); err != nil {
		return value.Cell{}, err
	}
	req := p.Request()

	bytes, err := writeBytes(ctx, p, data, part)
	if err != nil {
		return value.Cell{}, err
	}
	req.Data = bytes
	req.Length = len(bytes)
	req.Actual = 0

	if ctx.Devices.Do(req, device.CmdWrite) < 0 {
		return value.Cell{}, deviceError(p, req, fault.ErrWriteError, "write")
	}
	p.SetData(value.MakeNone())
	return value.MakeInteger(int64(req.Actual)), nil
}

func (a *consoleActor) Update(ctx *Context, p *Port, req *device.Request) *fault.Error {
	if req == nil || !req.IsOpen() {
		return nil
	}
	if req.Command == device.CmdWrite {
		p.SetData(value.MakeNone())
	}
	return nil
}
