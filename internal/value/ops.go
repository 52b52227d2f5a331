package value

import (
	"fmt"

	"rebo/internal/fault"
	"rebo/internal/trace"
)

// total returns the allocation size in elements, excluding the spare
// terminator slot.
func (s *Series) total() int { return s.bias + s.rest }

// byteSize returns the backing allocation size in accounting bytes,
// terminator slot included. Array series count CellWide per element.
func (s *Series) byteSize() int { return (s.total() + 1) * s.wide }

// Extend reserves space for delta more elements beyond the tail without
// changing the tail.
func (s *Series) Extend(delta int) {
	if delta <= 0 {
		return
	}
	s.ensure(delta)
}

// ensure grows the backing allocation so tail+extra fits in rest. Growth
// drops the bias: the live region is copied to the new allocation base.
func (s *Series) ensure(extra int) {
	if s.tail+extra <= s.rest {
		return
	}
	need := s.tail + extra
	rest := roundCapacity(need, s.flags&FlagPowerOf2 != 0)
	if rest <= s.rest {
		rest = s.rest * 2
	}
	was := s.byteSize()
	if s.IsArray() {
		cbase := make([]Cell, rest+1)
		copy(cbase, s.cbase[s.bias:s.bias+s.tail])
		s.cbase = cbase
	} else {
		base := make([]byte, (rest+1)*s.wide)
		copy(base, s.base[s.bias*s.wide:(s.bias+s.tail)*s.wide])
		s.base = base
	}
	s.bias = 0
	s.rest = rest
	if s.pool != nil {
		s.pool.stats.Bytes += uint64(s.byteSize() - was)
		s.pool.stats.Expanded++
		trace.Point(s.pool.tracer, trace.ScopeSeries, "series.expand",
			fmt.Sprintf("rest=%d tail=%d", rest, s.tail))
	}
	s.Terminate()
}

// Terminate writes the zero terminator (or end-marker cell) at the tail.
func (s *Series) Terminate() {
	if s.IsArray() {
		s.cbase[s.bias+s.tail] = End()
		return
	}
	at := (s.bias + s.tail) * s.wide
	clear(s.base[at : at+s.wide])
}

// Insert shifts [i, tail) right by n elements and copies n*wide bytes
// from src into the hole. The index is clamped to the tail. No
// terminator is written. Returns i+n.
func (s *Series) Insert(i int, src []byte) int {
	n := len(src) / s.wide
	i = s.openHole(i, n)
	copy(s.base[(s.bias+i)*s.wide:], src[:n*s.wide])
	return i + n
}

// InsertCells is Insert for array series.
func (s *Series) InsertCells(i int, src []Cell) int {
	n := len(src)
	i = s.openHole(i, n)
	copy(s.cbase[s.bias+i:], src)
	return i + n
}

// openHole clamps i, grows by n, and shifts [i, tail) right by n.
// The tail accounts for the hole afterwards.
func (s *Series) openHole(i, n int) int {
	if i < 0 {
		i = 0
	}
	if i > s.tail {
		i = s.tail
	}
	if n <= 0 {
		return i
	}
	s.ensure(n)
	if s.IsArray() {
		copy(s.cbase[s.bias+i+n:], s.cbase[s.bias+i:s.bias+s.tail])
	} else {
		w := s.wide
		copy(s.base[(s.bias+i+n)*w:], s.base[(s.bias+i)*w:(s.bias+s.tail)*w])
	}
	s.tail += n
	return i
}

// Append inserts at the tail and writes the terminator.
func (s *Series) Append(src []byte) {
	s.Insert(s.tail, src)
	s.Terminate()
}

// AppendCells appends cells and writes the end marker.
func (s *Series) AppendCells(src ...Cell) {
	s.InsertCells(s.tail, src)
	s.Terminate()
}

// AppendExtra appends src reserving extra additional elements beyond the
// terminator. The tail accounts for the appended elements only.
func (s *Series) AppendExtra(src []byte, extra int) {
	n := len(src) / s.wide
	s.ensure(n + extra)
	s.Insert(s.tail, src)
	s.Terminate()
}

// Remove deletes n elements starting at i. With n <= 0 it is a no-op.
// Head removal grows the bias instead of moving memory; crossing MaxBias
// or rest/2 falls back to moving the live region to the allocation base.
func (s *Series) Remove(i, n int) {
	if n <= 0 || i < 0 || i >= s.tail {
		return
	}
	if n > s.tail-i {
		n = s.tail - i
	}

	// Tail removal: truncate.
	if i+n >= s.tail {
		s.tail = i
		s.Terminate()
		if s.tail == 0 {
			s.resetBias()
		}
		return
	}

	// Head removal: advance the data window.
	if i == 0 {
		if s.bias+n > MaxBias || s.bias+n > s.rest/2 {
			s.removeByMove(0, n)
			s.resetBias()
		} else {
			s.bias += n
			s.rest -= n
			s.tail -= n
		}
		if s.tail == 0 {
			s.resetBias()
		}
		return
	}

	// Interior removal.
	s.removeByMove(i, n)
}

// removeByMove shifts [i+n, tail) down by n and truncates.
func (s *Series) removeByMove(i, n int) {
	if s.IsArray() {
		copy(s.cbase[s.bias+i:], s.cbase[s.bias+i+n:s.bias+s.tail])
	} else {
		w := s.wide
		copy(s.base[(s.bias+i)*w:], s.base[(s.bias+i+n)*w:(s.bias+s.tail)*w])
	}
	s.tail -= n
	s.Terminate()
}

// RemoveLast drops the last element and re-terminates.
func (s *Series) RemoveLast() {
	if s.tail == 0 {
		return
	}
	s.tail--
	s.Terminate()
}

// resetBias moves the live region back to the allocation base and
// reclaims the hidden prefix.
func (s *Series) resetBias() {
	if s.bias == 0 {
		return
	}
	if s.IsArray() {
		copy(s.cbase, s.cbase[s.bias:s.bias+s.tail])
	} else {
		w := s.wide
		copy(s.base, s.base[s.bias*w:(s.bias+s.tail)*w])
	}
	s.rest += s.bias
	s.bias = 0
	s.Terminate()
}

// Reset empties the series: tail 0, bias 0, terminator in place.
func (s *Series) Reset() {
	s.tail = 0
	s.resetBias()
	s.Terminate()
}

// Clear is Reset plus zeroing the whole allocation, not just the
// terminator.
func (s *Series) Clear() {
	s.tail = 0
	s.rest += s.bias
	s.bias = 0
	if s.IsArray() {
		clear(s.cbase)
	} else {
		clear(s.base)
	}
}

// Resize resets the series and reserves room for n elements.
func (s *Series) Resize(n int) {
	s.Reset()
	s.Extend(n)
	s.tail = 0
	s.Terminate()
}

// Shrink opportunistically right-sizes the allocation after a shrink.
// It keeps the backing when the free headroom is small.
func (s *Series) Shrink() {
	headroom := (s.rest - s.tail) * s.wide
	if headroom <= shrinkHeadroom {
		return
	}
	was := s.byteSize()
	rest := roundCapacity(s.tail, s.flags&FlagPowerOf2 != 0)
	if s.IsArray() {
		cbase := make([]Cell, rest+1)
		copy(cbase, s.cbase[s.bias:s.bias+s.tail])
		s.cbase = cbase
	} else {
		base := make([]byte, (rest+1)*s.wide)
		copy(base, s.base[s.bias*s.wide:(s.bias+s.tail)*s.wide])
		s.base = base
	}
	s.bias = 0
	s.rest = rest
	if s.pool != nil {
		s.pool.stats.Bytes -= uint64(was - s.byteSize())
	}
	s.Terminate()
}

// CopySequence clones a non-array series including its terminator into a
// fresh allocation with the tail preserved.
func (s *Series) CopySequence() (*Series, *fault.Error) {
	if s.IsArray() {
		return nil, fault.New(fault.ErrBadSeries, "copy-sequence on an array series")
	}
	out := s.pool.Make(s.tail, s.wide, s.flags&^(FlagExternal|flagMarked))
	out.Append(s.Bytes())
	return out, nil
}

// CopySequenceAtLen clones the sub-range [i, i+n) into a fresh series of
// the same width.
func (s *Series) CopySequenceAtLen(i, n int) *Series {
	if i < 0 {
		i = 0
	}
	if i > s.tail {
		i = s.tail
	}
	if n > s.tail-i {
		n = s.tail - i
	}
	if n < 0 {
		n = 0
	}
	out := s.pool.Make(n, s.wide, s.flags&^(FlagExternal|flagMarked))
	if s.IsArray() {
		out.AppendCells(s.cbase[s.bias+i : s.bias+i+n]...)
	} else {
		w := s.wide
		out.Append(s.base[(s.bias+i)*w : (s.bias+i+n)*w])
	}
	return out
}
