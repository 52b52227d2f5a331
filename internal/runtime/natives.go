package runtime

import (
	"rebo/internal/fault"
	"rebo/internal/value"
)

// CallCtx is how a native reads its arguments and refinements. The
// evaluator provides the real implementation; Call below serves direct
// callers and tests.
type CallCtx interface {
	Arg(i int) value.Cell
	ArgCount() int
	Has(refine string) bool
	RefineArg(refine string) value.Cell
}

// Call is a literal argument frame.
type Call struct {
	Args    []value.Cell
	Refines map[string]value.Cell
}

func (c *Call) Arg(i int) value.Cell {
	if i < 0 || i >= len(c.Args) {
		return value.MakeUnset()
	}
	return c.Args[i]
}

func (c *Call) ArgCount() int { return len(c.Args) }

func (c *Call) Has(refine string) bool {
	_, ok := c.Refines[refine]
	return ok
}

func (c *Call) RefineArg(refine string) value.Cell {
	if v, ok := c.Refines[refine]; ok {
		return v
	}
	return value.MakeUnset()
}

// setSkip decodes the /skip refinement into a record stride.
func setSkip(ctx CallCtx) (int, *fault.Error) {
	if !ctx.Has("skip") {
		return 1, nil
	}
	size := ctx.RefineArg("skip")
	if size.Kind != value.KindInteger || size.Int < 1 {
		return 0, fault.New(fault.ErrBadRefine, "skip size must be a positive integer")
	}
	return int(size.Int), nil
}

// setOp2 runs a two-set native.
func (rt *Runtime) setOp2(ctx CallCtx, flags value.SetFlag) (value.Cell, *fault.Error) {
	skip, err := setSkip(ctx)
	if err != nil {
		return value.Cell{}, err
	}
	return value.SetOp(rt.Scratch, flags, ctx.Arg(0), ctx.Arg(1), ctx.Has("case"), skip)
}

// Union merges two sets, keeping records from either side once.
func (rt *Runtime) Union(ctx CallCtx) (value.Cell, *fault.Error) {
	return rt.setOp2(ctx, value.SetOpUnion)
}

// Intersect keeps records present in both sets.
func (rt *Runtime) Intersect(ctx CallCtx) (value.Cell, *fault.Error) {
	return rt.setOp2(ctx, value.SetOpIntersect)
}

// Difference keeps records present in exactly one set. For two dates it
// returns the span between them.
func (rt *Runtime) Difference(ctx CallCtx) (value.Cell, *fault.Error) {
	return rt.setOp2(ctx, value.SetOpDifference)
}

// Exclude keeps records of the first set absent from the second.
func (rt *Runtime) Exclude(ctx CallCtx) (value.Cell, *fault.Error) {
	return rt.setOp2(ctx, value.SetOpExclude)
}

// Unique drops duplicate records from one set.
func (rt *Runtime) Unique(ctx CallCtx) (value.Cell, *fault.Error) {
	skip, err := setSkip(ctx)
	if err != nil {
		return value.Cell{}, err
	}
	return value.SetOp(rt.Scratch, value.SetOpUnique, ctx.Arg(0), ctx.Arg(0), ctx.Has("case"), skip)
}

// NativeRecycle drives the collector: a bare call sweeps now, /off and
// /on toggle automatic collection, /ballast sets the budget, /torture
// sweeps on every allocation tick.
func (rt *Runtime) NativeRecycle(ctx CallCtx) (value.Cell, *fault.Error) {
	switch {
	case ctx.Has("off"):
		rt.SetRecycle(false)
		return value.MakeUnset(), nil
	case ctx.Has("on"):
		rt.SetRecycle(true)
		return value.MakeUnset(), nil
	case ctx.Has("ballast"):
		n := ctx.RefineArg("ballast")
		if n.Kind != value.KindInteger || n.Int <= 0 {
			return value.Cell{}, fault.New(fault.ErrBadRefine, "ballast must be a positive integer")
		}
		rt.SetBallast(int(n.Int))
		return value.MakeUnset(), nil
	case ctx.Has("torture"):
		rt.SetTorture(true)
		return value.MakeUnset(), nil
	default:
		swept := rt.Recycle()
		return value.MakeInteger(int64(swept)), nil
	}
}

// NativeStats reports runtime counters as a block of integers:
// [evals managed pending events made freed expanded recycles].
func (rt *Runtime) NativeStats(ctx CallCtx) (value.Cell, *fault.Error) {
	s := rt.Snapshot()
	out := rt.Pool.Make(8, value.CellWide, value.FlagArray|value.FlagManaged)
	out.AppendCells(
		value.MakeInteger(s.Evals),
		value.MakeInteger(int64(s.Managed)),
		value.MakeInteger(int64(s.Pending)),
		value.MakeInteger(int64(s.Events)),
		value.MakeInteger(int64(s.Pool.Made)),
		value.MakeInteger(int64(s.Pool.Freed)),
		value.MakeInteger(int64(s.Pool.Expanded)),
		value.MakeInteger(int64(s.Pool.Recycles)),
	)
	return value.MakeBlock(out, 0), nil
}

// NativeQuit unwinds the runtime. /with supplies the exit code.
func (rt *Runtime) NativeQuit(ctx CallCtx) (value.Cell, *fault.Error) {
	code := 0
	if ctx.Has("with") {
		v := ctx.RefineArg("with")
		if v.Kind != value.KindInteger {
			return value.Cell{}, fault.New(fault.ErrBadRefine, "quit code must be an integer")
		}
		code = int(v.Int)
	}
	rt.Quit(code)
	return value.MakeUnset(), nil
}

// NativeLimitUsage arms a write-once usage limit. The first argument is
// the word eval or memory, the second the limit.
func (rt *Runtime) NativeLimitUsage(ctx CallCtx) (value.Cell, *fault.Error) {
	field := ctx.Arg(0)
	limit := ctx.Arg(1)
	if field.Kind != value.KindString && field.Kind != value.KindIssue {
		return value.Cell{}, fault.New(fault.ErrBadArg, "limit field must name eval or memory")
	}
	if limit.Kind != value.KindInteger || limit.Int <= 0 {
		return value.Cell{}, fault.New(fault.ErrBadArg, "limit must be a positive integer")
	}
	name := string(field.Ser.BytesAt(field.Index()))
	if err := rt.LimitUsage(name, limit.Int); err != nil {
		return value.Cell{}, err
	}
	return value.MakeUnset(), nil
}
