package port

import (
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"

	"rebo/internal/device"
	"rebo/internal/fault"
	"rebo/internal/value"
)

// clipboardActor moves text through the clipboard device, transcoding
// between UTF-8 and the wide encoding the device stores.
type clipboardActor struct{ base }

// NewClipboardActor creates the clipboard scheme actor.
func NewClipboardActor() Actor { return &clipboardActor{base{scheme: "clipboard"}} }

var utf16Codec = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

func (a *clipboardActor) Open(ctx *Context, p *Port) *fault.Error {
	req := p.UseState(device.DevClipboard)
	if req.IsOpen() {
		return nil
	}
	if ctx.Devices.Do(req, device.CmdOpen) < 0 {
		return deviceError(p, req, fault.ErrCannotOpen, "open")
	}
	p.MarkOpen(ctx)
	return nil
}

func (a *clipboardActor) Close(ctx *Context, p *Port) *fault.Error {
	req := p.Request()
	if req != nil && req.IsOpen() {
		ctx.Devices.Do(req, device.CmdClose)
	}
	p.MarkClosed()
	p.SetData(value.MakeNone())
	return nil
}

// Read fetches the clipboard content. Wide payloads decode from UTF-16
// into a fresh string series.
func (a *clipboardActor) Read(ctx *Context, p *Port, part int) (value.Cell, *fault.Error) {
	if err := a.Open(ctx, p); err != nil {
		return value.Cell{}, err
	}
	req := p.Request()

	if ctx.Devices.Do(req, device.CmdQuery) < 0 {
		return value.Cell{}, deviceError(p, req, fault.ErrReadError, "query")
	}
	capacity := req.Actual
	if capacity < 256 {
		capacity = 256
	}

	buf := readBuffer(ctx, p, capacity)
	buf.Reset()
	req.Data = buf.FreeBytes()
	req.Length = len(req.Data)

	if ctx.Devices.Do(req, device.CmdRead) < 0 {
		return value.Cell{}, deviceError(p, req, fault.ErrReadError, "read")
	}
	buf.AdvanceTail(req.Actual)

	raw := buf.Bytes()
	if part >= 0 && part < len(raw) {
		raw = raw[:part]
	}
	if req.Flags&device.FlagWide != 0 {
		decoded, err := utf16Codec.NewDecoder().Bytes(raw)
		if err != nil {
			return value.Cell{}, fault.New(fault.ErrReadError, "clipboard decode: %v", err).WithPort(a.scheme)
		}
		raw = decoded
	}
	out := ctx.Pool.Make(len(raw), 1, value.FlagManaged)
	out.Append(raw)
	return value.MakeString(out, 0), nil
}

// Write stores text on the clipboard. Non-ASCII byte strings transcode
// to UTF-16 when the device stores wide characters.
func (a *clipboardActor) Write(ctx *Context, p *Port, data value.Cell, part int) (value.Cell, *fault.Error) {
	if err := a.Open(ctx, p); err != nil {
		return value.Cell{}, err
	}
	req := p.Request()

	bytes, err := writeBytes(ctx, p, data, part)
	if err != nil {
		return value.Cell{}, err
	}

	req.Flags &^= device.FlagWide
	if !asciiOnly(bytes) {
		encoded, eerr := utf16Codec.NewEncoder().Bytes(bytes)
		if eerr != nil {
			return value.Cell{}, fault.New(fault.ErrWriteError, "clipboard encode: %v", eerr).WithPort(a.scheme)
		}
		bytes = encoded
		req.Flags |= device.FlagWide
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

func (a *clipboardActor) Query(ctx *Context, p *Port) (value.Cell, *fault.Error) {
	req := p.Request()
	if req == nil || !req.IsOpen() {
		return value.Cell{}, fault.New(fault.ErrNotOpen, "clipboard not open").WithPort(a.scheme)
	}
	if ctx.Devices.Do(req, device.CmdQuery) < 0 {
		return value.Cell{}, deviceError(p, req, fault.ErrReadError, "query")
	}
	return value.MakeInteger(int64(req.Actual)), nil
}

func asciiOnly(data []byte) bool {
	for _, b := range data {
		if b >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
