package value

import (
	"strings"

	"rebo/internal/fault"
)

// SetFlag parameterizes the single set-operation dispatcher.
type SetFlag uint8

const (
	// SetBoth walks both series (union, difference).
	SetBoth SetFlag = 1 << iota
	// SetCheck tests membership in the other series.
	SetCheck
	// SetInvert keeps records absent from the other series.
	SetInvert
)

// Canonical flag sets per operation.
const (
	SetOpUnique     = SetFlag(0)
	SetOpUnion      = SetBoth
	SetOpIntersect  = SetCheck
	SetOpExclude    = SetCheck | SetInvert
	SetOpDifference = SetBoth | SetCheck | SetInvert
)

// Scratch holds the two process-wide scratch series: the emit buffer for
// block results and the mold buffer for string results. Natives reset
// them on entry and copy results out before returning.
type Scratch struct {
	Emit *Series
	Mold *Series
}

// NewScratch allocates the scratch buffers from the pool. They are
// unmanaged: the runtime owns them for the life of the process.
func NewScratch(p *Pool) *Scratch {
	return &Scratch{
		Emit: p.Make(256, CellWide, FlagArray),
		Mold: p.Make(512, 1, 0),
	}
}

// SetOp runs one set operation over two set cells. The skip stride
// groups elements into records; cased selects case-sensitive keys.
func SetOp(sc *Scratch, flags SetFlag, a, b Cell, cased bool, skip int) (Cell, *fault.Error) {
	if skip < 1 {
		skip = 1
	}
	switch a.Kind {
	case KindBlock:
		if b.Kind != KindBlock {
			return Cell{}, fault.New(fault.ErrBadSeries, "set operation on %s and %s", a.Kind, b.Kind)
		}
		return setOpBlock(sc, flags, a, b, cased, skip), nil
	case KindString, KindBinary, KindIssue:
		if b.Kind != a.Kind {
			return Cell{}, fault.New(fault.ErrBadSeries, "set operation on %s and %s", a.Kind, b.Kind)
		}
		return setOpString(sc, flags, a, b, cased, skip), nil
	case KindBitset:
		if b.Kind != KindBitset {
			return Cell{}, fault.New(fault.ErrBadSeries, "set operation on %s and %s", a.Kind, b.Kind)
		}
		return setOpBitset(flags, a, b), nil
	case KindTypeset:
		if b.Kind != KindTypeset {
			return Cell{}, fault.New(fault.ErrBadSeries, "set operation on %s and %s", a.Kind, b.Kind)
		}
		return setOpTypeset(flags, a, b), nil
	case KindDate:
		if flags != SetOpDifference || b.Kind != KindDate {
			return Cell{}, fault.New(fault.ErrBadSeries, "set operation on %s and %s", a.Kind, b.Kind)
		}
		return MakeInteger(a.Int - b.Int), nil
	default:
		return Cell{}, fault.New(fault.ErrBadSeries, "set operation on %s", a.Kind)
	}
}

// recordKey builds a hash key for one record of cells.
func recordKey(cells []Cell, cased bool) string {
	var sb strings.Builder
	for _, c := range cells {
		sb.WriteByte(byte(c.Kind))
		text := Form(c)
		if !cased {
			text = strings.ToLower(text)
		}
		sb.WriteString(text)
		sb.WriteByte(0)
	}
	return sb.String()
}

// hashRecords indexes every record of a block view by key.
func hashRecords(c Cell, cased bool, skip int) map[string]struct{} {
	idx := make(map[string]struct{})
	if c.Ser == nil {
		return idx
	}
	cells := c.Ser.Cells()[c.Index():]
	for i := 0; i+skip <= len(cells); i += skip {
		idx[recordKey(cells[i:i+skip], cased)] = struct{}{}
	}
	return idx
}

func setOpBlock(sc *Scratch, flags SetFlag, a, b Cell, cased bool, skip int) Cell {
	sc.Emit.Reset()
	seen := make(map[string]struct{})

	walk := func(src, other Cell) {
		var index map[string]struct{}
		if flags&SetCheck != 0 {
			index = hashRecords(other, cased, skip)
		}
		if src.Ser == nil {
			return
		}
		cells := src.Ser.Cells()[src.Index():]
		for i := 0; i+skip <= len(cells); i += skip {
			rec := cells[i : i+skip]
			if flags&SetCheck != 0 {
				_, found := index[recordKey(rec, cased)]
				if found == (flags&SetInvert != 0) {
					continue
				}
			}
			key := recordKey(rec, cased)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			sc.Emit.AppendCells(rec...)
		}
	}

	walk(a, b)
	if flags&SetBoth != 0 {
		walk(b, a)
	}

	out := sc.Emit.pool.Make(sc.Emit.Tail(), CellWide, FlagArray|FlagManaged)
	out.AppendCells(sc.Emit.Cells()...)
	sc.Emit.Reset()
	return MakeBlock(out, 0)
}

func setOpString(sc *Scratch, flags SetFlag, a, b Cell, cased bool, skip int) Cell {
	sc.Mold.Reset()
	seen := make(map[string]struct{})

	fold := func(rec []byte) string {
		if cased {
			return string(rec)
		}
		return strings.ToLower(string(rec))
	}

	hash := func(c Cell) map[string]struct{} {
		idx := make(map[string]struct{})
		if c.Ser == nil {
			return idx
		}
		data := c.Ser.BytesAt(c.Index())
		for i := 0; i+skip <= len(data); i += skip {
			idx[fold(data[i:i+skip])] = struct{}{}
		}
		return idx
	}

	walk := func(src, other Cell) {
		var index map[string]struct{}
		if flags&SetCheck != 0 {
			index = hash(other)
		}
		if src.Ser == nil {
			return
		}
		data := src.Ser.BytesAt(src.Index())
		for i := 0; i+skip <= len(data); i += skip {
			rec := data[i : i+skip]
			if flags&SetCheck != 0 {
				_, found := index[fold(rec)]
				if found == (flags&SetInvert != 0) {
					continue
				}
			}
			key := fold(rec)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			sc.Mold.Append(rec)
		}
	}

	walk(a, b)
	if flags&SetBoth != 0 {
		walk(b, a)
	}

	out := sc.Mold.pool.Make(sc.Mold.Tail(), 1, FlagManaged)
	out.Append(sc.Mold.Bytes())
	sc.Mold.Reset()
	return MakeSeries(a.Kind, out, 0)
}

func setOpBitset(flags SetFlag, a, b Cell) Cell {
	var ab, bb []byte
	if a.Ser != nil {
		ab = a.Ser.Bytes()
	}
	if b.Ser != nil {
		bb = b.Ser.Bytes()
	}
	n := len(ab)
	if len(bb) > n {
		n = len(bb)
	}
	at := func(data []byte, i int) byte {
		if i < len(data) {
			return data[i]
		}
		return 0
	}
	pool := a.Ser.pool
	out := pool.Make(n, 1, FlagManaged)
	buf := make([]byte, n)
	for i := range buf {
		x, y := at(ab, i), at(bb, i)
		switch flags {
		case SetOpUnique:
			buf[i] = x
		case SetOpUnion:
			buf[i] = x | y
		case SetOpIntersect:
			buf[i] = x & y
		case SetOpExclude:
			buf[i] = x &^ y
		case SetOpDifference:
			buf[i] = x ^ y
		}
	}
	out.Append(buf)
	return MakeBitset(out)
}

func setOpTypeset(flags SetFlag, a, b Cell) Cell {
	x, y := uint64(a.Int), uint64(b.Int)
	var m uint64
	switch flags {
	case SetOpUnique:
		m = x
	case SetOpUnion:
		m = x | y
	case SetOpIntersect:
		m = x & y
	case SetOpExclude:
		m = x &^ y
	case SetOpDifference:
		m = x ^ y
	}
	return MakeTypeset(m)
}
