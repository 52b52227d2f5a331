package value

import (
	"fmt"
	"time"

	"rebo/internal/fault"
	"rebo/internal/trace"
)

// Flag is the series flag bitset.
type Flag uint16

const (
	// FlagArray marks a series whose elements are value cells.
	FlagArray Flag = 1 << iota
	// FlagManaged marks a series the recycler may collect.
	FlagManaged
	// FlagExternal marks a series whose data is not owned.
	FlagExternal
	// FlagLocked forbids structural mutation.
	FlagLocked
	// FlagPowerOf2 selects doubling growth instead of pool rounding.
	FlagPowerOf2
	// flagMarked is the recycler mark bit.
	flagMarked
)

// MaxBias is the largest head bias a series may accumulate before a
// removal falls back to moving the live region to the allocation base.
const MaxBias = 0xFFFF

// shrinkHeadroom is the free space in bytes past which a shrink copies
// into a right-sized allocation.
const shrinkHeadroom = 1024

// poolSizes are the size-segregated allocation classes in elements.
var poolSizes = [...]int{8, 16, 32, 64, 128, 256, 512, 1024, 2048}

// Series is the variable-width growable buffer with head bias that backs
// every aggregate datatype.
//
// For a non-array series the element at index tail is the zero
// terminator; for an array series it is the end-marker cell. The data
// window starts bias elements into the backing allocation so head
// removal is O(1).
type Series struct {
	wide  int
	tail  int
	rest  int
	bias  int
	flags Flag

	base  []byte // non-array backing, (bias+rest+1)*wide bytes
	cbase []Cell // array backing, bias+rest+1 cells

	pool *Pool
}

// Wide returns the element width in bytes.
func (s *Series) Wide() int { return s.wide }

// Tail returns the number of populated elements.
func (s *Series) Tail() int { return s.tail }

// Rest returns the capacity in elements from the data window forward.
func (s *Series) Rest() int { return s.rest }

// Bias returns the hidden free prefix in elements.
func (s *Series) Bias() int { return s.bias }

// Flags returns the flag bitset.
func (s *Series) Flags() Flag { return s.flags }

// IsArray reports whether the elements are value cells.
func (s *Series) IsArray() bool { return s.flags&FlagArray != 0 }

// SetFlags ors extra flags into the bitset.
func (s *Series) SetFlags(f Flag) { s.flags |= f }

// Bytes returns the live data region of a non-array series.
func (s *Series) Bytes() []byte {
	return s.base[s.bias*s.wide : (s.bias+s.tail)*s.wide]
}

// BytesAt returns the live data region from element i to the tail.
func (s *Series) BytesAt(i int) []byte {
	if i < 0 {
		i = 0
	}
	if i > s.tail {
		i = s.tail
	}
	return s.base[(s.bias+i)*s.wide : (s.bias+s.tail)*s.wide]
}

// FreeBytes returns the writable region between the tail and the end of
// the capacity. Devices deposit read bytes here; AdvanceTail publishes
// them.
func (s *Series) FreeBytes() []byte {
	return s.base[(s.bias+s.tail)*s.wide : (s.bias+s.rest)*s.wide]
}

// AdvanceTail publishes n elements a device wrote into the free region.
func (s *Series) AdvanceTail(n int) {
	if n <= 0 {
		return
	}
	if s.tail+n > s.rest {
		n = s.rest - s.tail
	}
	s.tail += n
	s.Terminate()
}

// Cells returns the live cells of an array series.
func (s *Series) Cells() []Cell {
	return s.cbase[s.bias : s.bias+s.tail]
}

// CellAt returns a pointer to the cell at index i of an array series.
func (s *Series) CellAt(i int) *Cell {
	return &s.cbase[s.bias+i]
}

// TerminatorZero reports whether the terminator invariant holds.
func (s *Series) TerminatorZero() bool {
	if s.IsArray() {
		return s.cbase[s.bias+s.tail].IsEnd()
	}
	at := (s.bias + s.tail) * s.wide
	for _, b := range s.base[at : at+s.wide] {
		if b != 0 {
			return false
		}
	}
	return true
}

// PoolStats counts allocator and recycler activity.
type PoolStats struct {
	Made      uint64 // series created
	Freed     uint64 // series freed (explicit or swept)
	Expanded  uint64 // backing reallocations
	Recycles  uint64 // sweeps run
	Swept     uint64 // managed series collected by sweeps
	Bytes     uint64 // live backing bytes across all series
	LastSweep time.Duration
}

// Pool allocates series from size-segregated classes and tracks every
// managed series for the recycler.
type Pool struct {
	managed map[*Series]struct{}
	marked  []*Series
	stats   PoolStats
	tracer  trace.Tracer
}

// NewPool creates an empty series pool.
func NewPool(tracer trace.Tracer) *Pool {
	if tracer == nil {
		tracer = trace.Nop
	}
	return &Pool{
		managed: make(map[*Series]struct{}, 128),
		tracer:  tracer,
	}
}

// Stats returns a copy of the allocator counters.
func (p *Pool) Stats() PoolStats { return p.stats }

// roundCapacity rounds a requested capacity up to the next pool class,
// or to the next power of two when the flag asks for doubling growth.
func roundCapacity(n int, pow2 bool) int {
	if n < 1 {
		n = 1
	}
	if pow2 {
		c := 1
		for c < n {
			c <<= 1
		}
		return c
	}
	for _, size := range poolSizes {
		if n <= size {
			return size
		}
	}
	return n
}

// Make allocates a series able to hold capacity elements of the given
// width. An array series must use CellWide.
func (p *Pool) Make(capacity, wide int, flags Flag) *Series {
	if wide <= 0 {
		panic(fault.New(fault.ErrBadSeries, "series width %d", wide))
	}
	if flags&FlagArray != 0 && wide != CellWide {
		panic(fault.New(fault.ErrBadSeries, "array series must have cell width, got %d", wide))
	}
	rest := roundCapacity(capacity, flags&FlagPowerOf2 != 0)
	s := &Series{
		wide:  wide,
		rest:  rest,
		flags: flags,
		pool:  p,
	}
	if flags&FlagArray != 0 {
		s.cbase = make([]Cell, rest+1)
	} else {
		s.base = make([]byte, (rest+1)*wide)
	}
	p.stats.Made++
	p.stats.Bytes += uint64(s.byteSize())
	if flags&FlagManaged != 0 {
		p.managed[s] = struct{}{}
	}
	trace.Point(p.tracer, trace.ScopeSeries, "series.make",
		fmt.Sprintf("wide=%d rest=%d flags=%#x", wide, rest, flags))
	return s
}

// Manage hands an unmanaged series to the recycler.
func (p *Pool) Manage(s *Series) {
	s.flags |= FlagManaged
	p.managed[s] = struct{}{}
}

// Free releases an unmanaged series explicitly. Freeing a managed series
// is the recycler's job.
func (p *Pool) Free(s *Series) {
	if s.flags&FlagManaged != 0 {
		delete(p.managed, s)
	}
	p.stats.Bytes -= uint64(s.byteSize())
	s.base = nil
	s.cbase = nil
	s.tail, s.rest, s.bias = 0, 0, 0
	p.stats.Freed++
}

// CellWide is the accounting width of one value cell in bytes. Array
// series always carry this width so the bias and rest arithmetic stays
// uniform across element kinds.
const CellWide = 16

// Mark marks a series and, for arrays, every series reachable from its
// cells. Every marked series, managed or not, is recorded so Recycle can
// clear the bit at the end of the cycle.
func (p *Pool) Mark(s *Series) {
	if s == nil || s.flags&flagMarked != 0 {
		return
	}
	s.flags |= flagMarked
	p.marked = append(p.marked, s)
	if !s.IsArray() {
		return
	}
	for i := range s.cbase {
		p.MarkCell(&s.cbase[i])
	}
}

// MarkCell marks any series reachable from one cell.
func (p *Pool) MarkCell(c *Cell) {
	if c == nil {
		return
	}
	if c.Kind.IsSeries() && c.Ser != nil {
		p.Mark(c.Ser)
	}
}

// Recycle runs a mark-sweep over the managed set, starting from the
// given roots. Returns the number of series collected.
func (p *Pool) Recycle(roots []*Series) int {
	start := time.Now()
	for _, r := range roots {
		p.Mark(r)
	}
	swept := 0
	for s := range p.managed {
		if s.flags&flagMarked != 0 {
			continue
		}
		delete(p.managed, s)
		p.stats.Bytes -= uint64(s.byteSize())
		s.base = nil
		s.cbase = nil
		s.tail, s.rest, s.bias = 0, 0, 0
		swept++
	}
	for _, s := range p.marked {
		s.flags &^= flagMarked
	}
	p.marked = p.marked[:0]
	p.stats.Recycles++
	p.stats.Swept += uint64(swept)
	p.stats.Freed += uint64(swept)
	p.stats.LastSweep = time.Since(start)
	trace.Point(p.tracer, trace.ScopeSeries, "series.recycle",
		fmt.Sprintf("swept=%d live=%d", swept, len(p.managed)))
	return swept
}

// Managed returns the number of live managed series.
func (p *Pool) Managed() int { return len(p.managed) }
