package value

import (
	"bytes"
	"testing"

	"rebo/internal/trace"
)

func newPool(t *testing.T) *Pool {
	t.Helper()
	return NewPool(trace.Nop)
}

func TestMakeRoundsCapacity(t *testing.T) {
	p := newPool(t)

	s := p.Make(10, 1, 0)
	if s.Rest() != 16 {
		t.Fatalf("Rest() = %d, want 16", s.Rest())
	}
	if s.Tail() != 0 || s.Bias() != 0 {
		t.Fatalf("new series tail=%d bias=%d, want 0 0", s.Tail(), s.Bias())
	}
	if !s.TerminatorZero() {
		t.Fatal("new series is not terminated")
	}

	big := p.Make(5000, 1, 0)
	if big.Rest() != 5000 {
		t.Fatalf("oversized Rest() = %d, want 5000", big.Rest())
	}

	pow2 := p.Make(20, 1, FlagPowerOf2)
	if pow2.Rest() != 32 {
		t.Fatalf("power-of-2 Rest() = %d, want 32", pow2.Rest())
	}
}

func TestMakeArrayWidth(t *testing.T) {
	p := newPool(t)
	defer func() {
		if recover() == nil {
			t.Fatal("array series with wrong width did not panic")
		}
	}()
	p.Make(4, 1, FlagArray)
}

func TestAppendAndTerminator(t *testing.T) {
	p := newPool(t)
	s := p.Make(8, 1, 0)
	s.Append([]byte("hello"))

	if got := string(s.Bytes()); got != "hello" {
		t.Fatalf("Bytes() = %q, want %q", got, "hello")
	}
	if !s.TerminatorZero() {
		t.Fatal("terminator not zero after append")
	}

	// Fill exactly to capacity; the spare slot keeps the terminator.
	s.Append([]byte("abc"))
	if s.Tail() != 8 || s.Rest() != 8 {
		t.Fatalf("tail=%d rest=%d, want 8 8", s.Tail(), s.Rest())
	}
	if !s.TerminatorZero() {
		t.Fatal("terminator lost at full capacity")
	}
}

func TestInsertShiftsTail(t *testing.T) {
	p := newPool(t)
	s := p.Make(16, 1, 0)
	s.Append([]byte("acd"))
	at := s.Insert(1, []byte("b"))
	if at != 2 {
		t.Fatalf("Insert returned %d, want 2", at)
	}
	s.Terminate()
	if got := string(s.Bytes()); got != "abcd" {
		t.Fatalf("Bytes() = %q, want %q", got, "abcd")
	}
}

func TestRemoveHeadGrowsBias(t *testing.T) {
	p := newPool(t)
	s := p.Make(64, 1, 0)
	s.Append([]byte("0123456789"))

	total := s.Bias() + s.Rest()
	s.Remove(0, 3)
	if s.Bias() != 3 {
		t.Fatalf("Bias() = %d, want 3", s.Bias())
	}
	if got := string(s.Bytes()); got != "3456789" {
		t.Fatalf("Bytes() = %q, want %q", got, "3456789")
	}
	if s.Bias()+s.Rest() != total {
		t.Fatalf("bias+rest = %d, want %d", s.Bias()+s.Rest(), total)
	}
	if !s.TerminatorZero() {
		t.Fatal("terminator lost after head removal")
	}
}

func TestRemoveHeadFallsBackPastHalf(t *testing.T) {
	p := newPool(t)
	s := p.Make(8, 1, 0)
	s.Append([]byte("abcdefgh"))

	// Repeated head removal crosses rest/2 and resets the bias.
	s.Remove(0, 3)
	s.Remove(0, 3)
	if s.Bias() != 0 {
		t.Fatalf("Bias() = %d after fallback, want 0", s.Bias())
	}
	if got := string(s.Bytes()); got != "gh" {
		t.Fatalf("Bytes() = %q, want %q", got, "gh")
	}
}

func TestRemoveHeadMaxBiasFallback(t *testing.T) {
	p := newPool(t)
	// Large enough that rest/2 stays above the bias cap for the whole
	// run, so only the cap can trigger the fallback.
	n := 300000
	s := p.Make(n, 1, 0)
	data := make([]byte, n)
	for i := range data {
		data[i] = byte('a' + i%26)
	}
	s.Append(data)

	for s.Tail() > n-(MaxBias+10) {
		before := s.Bias()
		s.Remove(0, 1)
		if before+1 > MaxBias {
			if s.Bias() != 0 {
				t.Fatalf("Bias() = %d after cap fallback, want 0", s.Bias())
			}
			break
		}
		if s.Bias() != before+1 {
			t.Fatalf("Bias() = %d, want %d", s.Bias(), before+1)
		}
	}
	removed := n - s.Tail()
	if !bytes.Equal(s.Bytes(), data[removed:]) {
		t.Fatal("data corrupted across bias fallback")
	}
}

func TestRemoveAllResetsBias(t *testing.T) {
	p := newPool(t)
	s := p.Make(16, 1, 0)
	s.Append([]byte("abcdef"))
	s.Remove(0, 2)
	s.Remove(0, s.Tail())
	if s.Tail() != 0 || s.Bias() != 0 {
		t.Fatalf("tail=%d bias=%d after removing all, want 0 0", s.Tail(), s.Bias())
	}
}

func TestRemoveInterior(t *testing.T) {
	p := newPool(t)
	s := p.Make(16, 1, 0)
	s.Append([]byte("abcdef"))
	s.Remove(2, 2)
	if got := string(s.Bytes()); got != "abef" {
		t.Fatalf("Bytes() = %q, want %q", got, "abef")
	}
}

func TestGrowthDropsBias(t *testing.T) {
	p := newPool(t)
	s := p.Make(8, 1, 0)
	s.Append([]byte("abcdefgh"))
	s.Remove(0, 2)
	if s.Bias() == 0 {
		t.Fatal("expected nonzero bias before growth")
	}

	fill := make([]byte, 100)
	for i := range fill {
		fill[i] = 'x'
	}
	s.Append(fill)
	if s.Bias() != 0 {
		t.Fatalf("Bias() = %d after growth, want 0", s.Bias())
	}
	if got := string(s.Bytes()[:6]); got != "cdefgh" {
		t.Fatalf("head after growth = %q, want %q", got, "cdefgh")
	}
	if s.Tail() != 106 {
		t.Fatalf("Tail() = %d, want 106", s.Tail())
	}
	if p.Stats().Expanded == 0 {
		t.Fatal("growth did not count an expansion")
	}
}

func TestArrayAppendAndEndMarker(t *testing.T) {
	p := newPool(t)
	s := p.Make(4, CellWide, FlagArray)
	s.AppendCells(MakeInteger(1), MakeInteger(2), MakeInteger(3))

	cells := s.Cells()
	if len(cells) != 3 {
		t.Fatalf("len(Cells()) = %d, want 3", len(cells))
	}
	if !s.TerminatorZero() {
		t.Fatal("end marker missing")
	}

	s.Remove(0, 1)
	if s.CellAt(0).Int != 2 {
		t.Fatalf("CellAt(0).Int = %d, want 2", s.CellAt(0).Int)
	}
}

func TestFreeBytesAdvanceTail(t *testing.T) {
	p := newPool(t)
	s := p.Make(16, 1, 0)
	s.Append([]byte("ab"))

	free := s.FreeBytes()
	if len(free) != s.Rest()-s.Tail() {
		t.Fatalf("len(FreeBytes()) = %d, want %d", len(free), s.Rest()-s.Tail())
	}
	copy(free, "cd")
	s.AdvanceTail(2)
	if got := string(s.Bytes()); got != "abcd" {
		t.Fatalf("Bytes() = %q, want %q", got, "abcd")
	}
	if !s.TerminatorZero() {
		t.Fatal("terminator lost after AdvanceTail")
	}
}

func TestCopySequence(t *testing.T) {
	p := newPool(t)
	s := p.Make(8, 1, 0)
	s.Append([]byte("abcdef"))
	s.Remove(0, 2)

	dup, err := s.CopySequence()
	if err != nil {
		t.Fatalf("CopySequence: %v", err)
	}
	if got := string(dup.Bytes()); got != "cdef" {
		t.Fatalf("copy = %q, want %q", got, "cdef")
	}
	if dup.Bias() != 0 {
		t.Fatalf("copy Bias() = %d, want 0", dup.Bias())
	}

	arr := p.Make(2, CellWide, FlagArray)
	if _, err := arr.CopySequence(); err == nil {
		t.Fatal("CopySequence on array series did not error")
	}
}

func TestCopySequenceAtLen(t *testing.T) {
	p := newPool(t)
	s := p.Make(8, 1, 0)
	s.Append([]byte("abcdef"))
	part := s.CopySequenceAtLen(2, 3)
	if got := string(part.Bytes()); got != "cde" {
		t.Fatalf("part = %q, want %q", got, "cde")
	}
	over := s.CopySequenceAtLen(4, 99)
	if got := string(over.Bytes()); got != "ef" {
		t.Fatalf("clamped part = %q, want %q", got, "ef")
	}
}

func TestRecycleSweepsUnreachable(t *testing.T) {
	p := newPool(t)

	root := p.Make(4, CellWide, FlagArray|FlagManaged)
	kept := p.Make(8, 1, FlagManaged)
	kept.Append([]byte("keep"))
	root.AppendCells(MakeString(kept, 0))

	lost := p.Make(8, 1, FlagManaged)
	lost.Append([]byte("lose"))

	swept := p.Recycle([]*Series{root})
	if swept != 1 {
		t.Fatalf("Recycle swept %d, want 1", swept)
	}
	if p.Managed() != 2 {
		t.Fatalf("Managed() = %d, want 2", p.Managed())
	}
	if got := string(kept.Bytes()); got != "keep" {
		t.Fatalf("rooted series = %q, want %q", got, "keep")
	}
	if lost.Rest() != 0 {
		t.Fatal("swept series kept its backing")
	}
}

func TestPoolByteAccounting(t *testing.T) {
	p := newPool(t)
	if got := p.Stats().Bytes; got != 0 {
		t.Fatalf("fresh pool Bytes = %d, want 0", got)
	}

	s := p.Make(8, 1, 0)
	if got := p.Stats().Bytes; got != 9 {
		t.Fatalf("after Make Bytes = %d, want 9", got)
	}

	s.Append(make([]byte, 20))
	if got := p.Stats().Bytes; got != 33 {
		t.Fatalf("after growth Bytes = %d, want 33", got)
	}

	g := p.Make(16, CellWide, FlagArray|FlagManaged)
	if got := p.Stats().Bytes; got != 33+17*CellWide {
		t.Fatalf("after array Make Bytes = %d, want %d", got, 33+17*CellWide)
	}
	_ = g

	p.Recycle(nil)
	if got := p.Stats().Bytes; got != 33 {
		t.Fatalf("after sweep Bytes = %d, want 33", got)
	}

	wide := p.Make(2048, 1, 0)
	wide.Append([]byte("abcd"))
	wide.Shrink()
	if got := p.Stats().Bytes; got != 33+9 {
		t.Fatalf("after Shrink Bytes = %d, want %d", got, 33+9)
	}

	p.Free(wide)
	p.Free(s)
	if got := p.Stats().Bytes; got != 0 {
		t.Fatalf("after Free Bytes = %d, want 0", got)
	}
}

func TestRecycleUnmanagedRootKeepsChildren(t *testing.T) {
	p := newPool(t)

	root := p.Make(4, CellWide, FlagArray)
	kept := p.Make(8, 1, FlagManaged)
	kept.Append([]byte("keep"))
	root.AppendCells(MakeString(kept, 0))

	for cycle := 1; cycle <= 3; cycle++ {
		if swept := p.Recycle([]*Series{root}); swept != 0 {
			t.Fatalf("cycle %d swept %d, want 0", cycle, swept)
		}
		if got := string(kept.Bytes()); got != "keep" {
			t.Fatalf("cycle %d: rooted series = %q, want %q", cycle, got, "keep")
		}
	}
	if p.Managed() != 1 {
		t.Fatalf("Managed() = %d, want 1", p.Managed())
	}
}

func TestRecycleClearsMarksBetweenCycles(t *testing.T) {
	p := newPool(t)

	mid := p.Make(4, CellWide, FlagArray)
	deep := p.Make(8, 1, FlagManaged)
	deep.Append([]byte("deep"))
	mid.AppendCells(MakeString(deep, 0))

	root := p.Make(4, CellWide, FlagArray)
	root.AppendCells(MakeBlock(mid, 0))

	p.Recycle([]*Series{root})
	if root.Flags()&flagMarked != 0 || mid.Flags()&flagMarked != 0 {
		t.Fatal("mark bit survived the cycle on an unmanaged series")
	}
	if swept := p.Recycle([]*Series{root}); swept != 0 {
		t.Fatalf("second recycle swept %d, want 0", swept)
	}
	if got := string(deep.Bytes()); got != "deep" {
		t.Fatalf("nested series = %q, want %q", got, "deep")
	}
}

func TestResetAndClear(t *testing.T) {
	p := newPool(t)
	s := p.Make(8, 1, 0)
	s.Append([]byte("abcdef"))
	s.Remove(0, 2)

	s.Reset()
	if s.Tail() != 0 || s.Bias() != 0 {
		t.Fatalf("after Reset tail=%d bias=%d, want 0 0", s.Tail(), s.Bias())
	}

	s.Append([]byte("xy"))
	s.Clear()
	if s.Tail() != 0 || !s.TerminatorZero() {
		t.Fatal("Clear left data behind")
	}
}
