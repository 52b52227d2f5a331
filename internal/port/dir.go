package port

import (
	"strings"

	"rebo/internal/device"
	"rebo/internal/fault"
	"rebo/internal/path"
	"rebo/internal/value"
)

// dirActor serves the file scheme for directories: listing, create,
// rename, delete, and metadata queries. The state cell doubles as the
// open indicator: a block means open.
type dirActor struct{ base }

// NewDirActor creates the file scheme actor.
func NewDirActor() Actor { return &dirActor{base{scheme: "file"}} }

// localPath converts the spec path, splitting a trailing wildcard
// segment off into a match pattern.
func (a *dirActor) localPath(p *Port) (local, pattern string, err *fault.Error) {
	spec := p.Spec.Path
	if i := strings.LastIndexByte(spec, '/'); i >= 0 && path.HasWildcard(spec[i+1:]) {
		pattern = spec[i+1:]
		spec = spec[:i+1]
	} else if path.HasWildcard(spec) {
		pattern = spec
		spec = "."
	}
	local, err = path.ToLocal(spec, false)
	if err != nil {
		return "", "", err.WithPort(a.scheme)
	}
	local = strings.TrimSuffix(local, "/")
	if local == "" {
		local = "/"
	}
	return local, pattern, nil
}

func (a *dirActor) Open(ctx *Context, p *Port) *fault.Error {
	if p.IsOpenState() {
		return nil
	}
	req := p.UseState(device.DevFile)
	local, _, err := a.localPath(p)
	if err != nil {
		return err
	}
	req.File.Path = local
	req.Flags |= device.FlagDir
	if p.Spec.New {
		req.Flags |= device.FlagNew
	}
	if ctx.Devices.Do(req, device.CmdOpen) < 0 {
		return deviceError(p, req, fault.ErrCannotOpen, "open")
	}
	p.MarkOpen(ctx)
	return nil
}

func (a *dirActor) Close(ctx *Context, p *Port) *fault.Error {
	req := p.Request()
	if req != nil && req.IsOpen() {
		ctx.Devices.Do(req, device.CmdClose)
	}
	p.MarkClosed()
	return nil
}

// IsOpen follows the state cell, not the request flags: a block state
// means open.
func (a *dirActor) IsOpen(ctx *Context, p *Port) bool { return p.IsOpenState() }

// Read lists the directory into a block of file strings. Directory
// entries carry a trailing slash. A wildcard tail filters the listing.
func (a *dirActor) Read(ctx *Context, p *Port, part int) (value.Cell, *fault.Error) {
	if !p.IsOpenState() {
		if err := a.Open(ctx, p); err != nil {
			return value.Cell{}, err
		}
	}
	req := p.Request()
	local, pattern, err := a.localPath(p)
	if err != nil {
		return value.Cell{}, err
	}
	req.File.Path = local
	if ctx.Devices.Do(req, device.CmdRead) < 0 {
		return value.Cell{}, deviceError(p, req, fault.ErrReadError, "read")
	}

	out := ctx.Pool.Make(len(req.File.Entries), value.CellWide, value.FlagArray|value.FlagManaged)
	for _, name := range req.File.Entries {
		if pattern != "" && !path.WildcardMatch(pattern, strings.TrimSuffix(name, "/")) {
			continue
		}
		s := ctx.Pool.Make(len(name), 1, value.FlagManaged)
		s.Append([]byte(name))
		out.AppendCells(value.MakeString(s, 0))
	}
	return value.MakeBlock(out, 0), nil
}

func (a *dirActor) Create(ctx *Context, p *Port) *fault.Error {
	req := p.UseState(device.DevFile)
	local, _, err := a.localPath(p)
	if err != nil {
		return err
	}
	req.File.Path = local
	if ctx.Devices.Do(req, device.CmdCreate) < 0 {
		return deviceError(p, req, fault.ErrNoCreate, "create")
	}
	return nil
}

func (a *dirActor) Rename(ctx *Context, p *Port, to value.Cell) *fault.Error {
	req := p.UseState(device.DevFile)
	local, _, err := a.localPath(p)
	if err != nil {
		return err
	}
	target, terr := path.ValueToOS(to, false)
	if terr != nil {
		return terr.WithPort(a.scheme)
	}
	req.File.Path = local
	req.File.ToPath = strings.TrimSuffix(target, "/")
	if ctx.Devices.Do(req, device.CmdRename) < 0 {
		return deviceError(p, req, fault.ErrNoRename, "rename")
	}
	return nil
}

func (a *dirActor) Delete(ctx *Context, p *Port) *fault.Error {
	req := p.UseState(device.DevFile)
	local, _, err := a.localPath(p)
	if err != nil {
		return err
	}
	req.File.Path = local
	if ctx.Devices.Do(req, device.CmdDelete) < 0 {
		return deviceError(p, req, fault.ErrNoDelete, "delete")
	}
	return nil
}

// Query reports [size date dir?] for the path.
func (a *dirActor) Query(ctx *Context, p *Port) (value.Cell, *fault.Error) {
	req := p.UseState(device.DevFile)
	local, _, err := a.localPath(p)
	if err != nil {
		return value.Cell{}, err
	}
	req.File.Path = local
	if ctx.Devices.Do(req, device.CmdQuery) < 0 {
		return value.Cell{}, deviceError(p, req, fault.ErrReadError, "query")
	}
	out := ctx.Pool.Make(3, value.CellWide, value.FlagArray|value.FlagManaged)
	out.AppendCells(
		value.MakeInteger(req.File.Size),
		value.MakeDate(req.File.ModTime.Unix()/86400),
		value.MakeLogic(req.File.IsDir),
	)
	return value.MakeBlock(out, 0), nil
}
