package value

import (
	"testing"

	"rebo/internal/trace"
)

func byteSeries(t *testing.T, p *Pool, text string) *Series {
	t.Helper()
	s := p.Make(len(text), 1, 0)
	s.Append([]byte(text))
	return s
}

func strCell(p *Pool, text string) Cell {
	s := p.Make(len(text), 1, 0)
	s.Append([]byte(text))
	return MakeString(s, 0)
}

func blockOfInts(p *Pool, ns ...int64) Cell {
	s := p.Make(len(ns), CellWide, FlagArray)
	for _, n := range ns {
		s.AppendCells(MakeInteger(n))
	}
	return MakeBlock(s, 0)
}

func TestModifyStringInsert(t *testing.T) {
	p := NewPool(trace.Nop)
	s := byteSeries(t, p, "hello")

	at := ModifyString(ModInsert, s, 0, strCell(p, ">> "), 0, -1, 1)
	if at != 3 {
		t.Fatalf("insert returned %d, want 3", at)
	}
	if got := string(s.Bytes()); got != ">> hello" {
		t.Fatalf("result = %q, want %q", got, ">> hello")
	}
}

func TestModifyStringAppendChar(t *testing.T) {
	p := NewPool(trace.Nop)
	s := byteSeries(t, p, "ab")

	if at := ModifyString(ModAppend, s, 0, MakeChar('c'), 0, -1, 1); at != 0 {
		t.Fatalf("append returned %d, want 0", at)
	}
	if got := string(s.Bytes()); got != "abc" {
		t.Fatalf("result = %q, want %q", got, "abc")
	}
}

func TestModifyStringDups(t *testing.T) {
	p := NewPool(trace.Nop)

	s := byteSeries(t, p, "")
	ModifyString(ModAppend, s, 0, strCell(p, "ab"), 0, -1, 3)
	if got := string(s.Bytes()); got != "ababab" {
		t.Fatalf("dup result = %q, want %q", got, "ababab")
	}

	// Zero dups is a no-op that still reports the original index.
	s2 := byteSeries(t, p, "xyz")
	if at := ModifyString(ModInsert, s2, 1, strCell(p, "q"), 0, -1, 0); at != 1 {
		t.Fatalf("zero dups returned %d, want 1", at)
	}
	if got := string(s2.Bytes()); got != "xyz" {
		t.Fatalf("zero dups changed the series: %q", got)
	}

	// Negative dups is also a no-op.
	if at := ModifyString(ModAppend, s2, 0, strCell(p, "q"), 0, -1, -2); at != 0 {
		t.Fatalf("negative dups returned %d, want 0", at)
	}
}

func TestModifyStringChangePart(t *testing.T) {
	p := NewPool(trace.Nop)

	// Replacement shorter than the part shrinks the series.
	s := byteSeries(t, p, "aaXXXbb")
	ModifyString(ModChange, s, 2, strCell(p, "Y"), ModPart, 3, 1)
	if got := string(s.Bytes()); got != "aaYbb" {
		t.Fatalf("shrink change = %q, want %q", got, "aaYbb")
	}

	// Replacement longer than the part expands it.
	s2 := byteSeries(t, p, "aaXbb")
	ModifyString(ModChange, s2, 2, strCell(p, "YYY"), ModPart, 1, 1)
	if got := string(s2.Bytes()); got != "aaYYYbb" {
		t.Fatalf("grow change = %q, want %q", got, "aaYYYbb")
	}
}

func TestModifyStringChangePastEnd(t *testing.T) {
	p := NewPool(trace.Nop)
	s := byteSeries(t, p, "abc")
	at := ModifyString(ModChange, s, 2, strCell(p, "XYZ"), 0, -1, 1)
	if at != 5 {
		t.Fatalf("change returned %d, want 5", at)
	}
	if got := string(s.Bytes()); got != "abXYZ" {
		t.Fatalf("change past end = %q, want %q", got, "abXYZ")
	}
}

func TestModifyStringPartLimitsSource(t *testing.T) {
	p := NewPool(trace.Nop)
	s := byteSeries(t, p, "ab")
	ModifyString(ModAppend, s, 0, strCell(p, "cdefgh"), ModPart, 2, 1)
	if got := string(s.Bytes()); got != "abcd" {
		t.Fatalf("part-limited append = %q, want %q", got, "abcd")
	}
}

func TestModifyStringIntegerSource(t *testing.T) {
	p := NewPool(trace.Nop)
	s := byteSeries(t, p, "")
	ModifyString(ModAppend, s, 0, MakeInteger(0x2764), 0, -1, 1)
	if got := string(s.Bytes()); got != "❤" {
		t.Fatalf("codepoint append = %q, want %q", got, "❤")
	}
}

func TestModifyArraySpreadsBlocks(t *testing.T) {
	p := NewPool(trace.Nop)
	dst := p.Make(8, CellWide, FlagArray)
	dst.AppendCells(MakeInteger(1), MakeInteger(4))

	src := blockOfInts(p, 2, 3)
	at := ModifyArray(ModInsert, dst, 1, src, 0, -1, 1)
	if at != 3 {
		t.Fatalf("insert returned %d, want 3", at)
	}
	got := make([]int64, 0, 4)
	for _, c := range dst.Cells() {
		got = append(got, c.Int)
	}
	want := []int64{1, 2, 3, 4}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("cells = %v, want %v", got, want)
		}
	}
}

func TestModifyArrayOnly(t *testing.T) {
	p := NewPool(trace.Nop)
	dst := p.Make(8, CellWide, FlagArray)
	dst.AppendCells(MakeInteger(1))

	src := blockOfInts(p, 2, 3)
	ModifyArray(ModAppend, dst, 0, src, ModOnly, -1, 1)
	if dst.Tail() != 2 {
		t.Fatalf("Tail() = %d, want 2", dst.Tail())
	}
	if dst.CellAt(1).Kind != KindBlock {
		t.Fatalf("appended cell kind = %s, want block", dst.CellAt(1).Kind)
	}
}

func TestModifyArraySameSeriesSource(t *testing.T) {
	p := NewPool(trace.Nop)
	dst := p.Make(8, CellWide, FlagArray)
	dst.AppendCells(MakeInteger(7), MakeInteger(8))

	src := MakeBlock(dst, 0)
	ModifyArray(ModAppend, dst, 0, src, 0, -1, 1)
	if dst.Tail() != 4 {
		t.Fatalf("Tail() = %d, want 4", dst.Tail())
	}
	want := []int64{7, 8, 7, 8}
	for i, w := range want {
		if dst.CellAt(i).Int != w {
			t.Fatalf("CellAt(%d).Int = %d, want %d", i, dst.CellAt(i).Int, w)
		}
	}
}

func TestFormBlock(t *testing.T) {
	p := NewPool(trace.Nop)
	b := blockOfInts(p, 1, 2, 3)
	if got := FormBlock(b); got != "1 2 3" {
		t.Fatalf("FormBlock = %q, want %q", got, "1 2 3")
	}
}
