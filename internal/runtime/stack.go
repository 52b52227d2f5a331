package runtime

import (
	"rebo/internal/fault"
	"rebo/internal/value"
)

// Frame is one call record on the runtime stack.
type Frame struct {
	Word string
	Args []value.Cell
}

// stackLimit bounds call depth.
const stackLimit = 4096

// PushFrame records a call. Exceeding the depth limit raises an error.
func (rt *Runtime) PushFrame(word string, args []value.Cell) {
	if len(rt.frames) >= stackLimit {
		rt.Raise(fault.New(fault.ErrOverflow, "stack depth limit %d reached", stackLimit))
	}
	rt.frames = append(rt.frames, Frame{Word: word, Args: args})
}

// PopFrame discards the newest call record.
func (rt *Runtime) PopFrame() {
	if n := len(rt.frames); n > 0 {
		rt.frames = rt.frames[:n-1]
	}
}

// Depth returns the current call depth.
func (rt *Runtime) Depth() int { return len(rt.frames) }

// frameAt returns the frame offset levels below the top, or nil.
func (rt *Runtime) frameAt(offset int) *Frame {
	i := len(rt.frames) - 1 - offset
	if i < 0 || i >= len(rt.frames) {
		return nil
	}
	return &rt.frames[i]
}

// NativeStack inspects the call stack. The argument is an offset from
// the top; /word returns the calling word, /args its arguments, /depth
// the current depth, /limit the depth cap, /size the cell footprint of
// the recorded frames. /block (also the default) returns the whole
// frame as a block. The core records words, not function values, so
// /func returns none.
func (rt *Runtime) NativeStack(ctx CallCtx) (value.Cell, *fault.Error) {
	switch {
	case ctx.Has("depth"):
		return value.MakeInteger(int64(rt.Depth())), nil
	case ctx.Has("limit"):
		return value.MakeInteger(stackLimit), nil
	case ctx.Has("size"):
		cells := 0
		for i := range rt.frames {
			cells += 1 + len(rt.frames[i].Args)
		}
		return value.MakeInteger(int64(cells)), nil
	}

	off := ctx.Arg(0)
	if off.Kind != value.KindInteger || off.Int < 0 {
		return value.Cell{}, fault.New(fault.ErrBadArg, "stack offset must be a non-negative integer")
	}
	frame := rt.frameAt(int(off.Int))
	if frame == nil {
		return value.MakeNone(), nil
	}

	word := rt.makeString(frame.Word)
	switch {
	case ctx.Has("word"):
		return word, nil
	case ctx.Has("args"):
		return rt.makeBlock(frame.Args), nil
	case ctx.Has("func"):
		return value.MakeNone(), nil
	default:
		cells := append([]value.Cell{word}, frame.Args...)
		return rt.makeBlock(cells), nil
	}
}

func (rt *Runtime) makeString(text string) value.Cell {
	s := rt.Pool.Make(len(text), 1, value.FlagManaged)
	s.Append([]byte(text))
	return value.MakeString(s, 0)
}

func (rt *Runtime) makeBlock(cells []value.Cell) value.Cell {
	s := rt.Pool.Make(len(cells), value.CellWide, value.FlagArray|value.FlagManaged)
	s.AppendCells(cells...)
	return value.MakeBlock(s, 0)
}
