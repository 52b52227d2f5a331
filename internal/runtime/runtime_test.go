package runtime

import (
	"testing"

	"rebo/internal/fault"
	"rebo/internal/port"
	"rebo/internal/value"
)

func bootTest(t *testing.T) *Runtime {
	t.Helper()
	rt := Boot(DefaultConfig())
	t.Cleanup(rt.Shutdown)
	return rt
}

func TestTrapCatchesRaise(t *testing.T) {
	rt := bootTest(t)

	err := rt.Trap(func() {
		rt.Raise(fault.New(fault.ErrPastEnd, "past end"))
	})
	if err == nil || err.Code != fault.ErrPastEnd {
		t.Fatalf("Trap returned %v, want %s", err, fault.ErrPastEnd)
	}

	if err := rt.Trap(func() {}); err != nil {
		t.Fatalf("clean Trap returned %v", err)
	}
}

func TestTrapNests(t *testing.T) {
	rt := bootTest(t)

	outer := rt.Trap(func() {
		inner := rt.Trap(func() {
			rt.Raise(fault.New(fault.ErrBadSeries, "inner"))
		})
		if inner == nil || inner.Code != fault.ErrBadSeries {
			t.Fatalf("inner Trap returned %v", inner)
		}
	})
	if outer != nil {
		t.Fatalf("outer Trap returned %v, want nil", outer)
	}
}

func TestTrapPassesFatal(t *testing.T) {
	rt := bootTest(t)

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("fatal error was trapped")
		}
		err, ok := r.(*fault.Error)
		if !ok || err.Code != fault.ErrNoMemory {
			t.Fatalf("panic value = %v, want %s", r, fault.ErrNoMemory)
		}
	}()
	_ = rt.Trap(func() {
		rt.Raise(fault.New(fault.ErrNoMemory, "oom"))
	})
}

func TestGuardRunsOnEveryExit(t *testing.T) {
	rt := bootTest(t)

	var runs []string
	_ = rt.Trap(func() {
		rt.Guard(func() { runs = append(runs, "clean") })
	})
	err := rt.Trap(func() {
		rt.Guard(func() { runs = append(runs, "error") })
		rt.Raise(fault.New(fault.ErrPastEnd, "unwind"))
	})
	if err == nil {
		t.Fatal("expected trapped error")
	}
	if len(runs) != 2 || runs[0] != "clean" || runs[1] != "error" {
		t.Fatalf("guard runs = %v, want [clean error]", runs)
	}
}

func TestQuitUnwindsThroughTraps(t *testing.T) {
	rt := bootTest(t)

	code := rt.CatchQuit(func() {
		_ = rt.Trap(func() {
			rt.Quit(7)
		})
	})
	if code != 7 {
		t.Fatalf("CatchQuit = %d, want 7", code)
	}

	if code := rt.CatchQuit(func() {}); code != -1 {
		t.Fatalf("CatchQuit without quit = %d, want -1", code)
	}
}

func TestLimitUsageWriteOnce(t *testing.T) {
	rt := bootTest(t)

	if err := rt.LimitUsage("eval", 1000); err != nil {
		t.Fatalf("first eval limit: %v", err)
	}
	if err := rt.LimitUsage("eval", 2000); err == nil {
		t.Fatal("second eval limit did not error")
	}
	if err := rt.LimitUsage("memory", 1 << 20); err != nil {
		t.Fatalf("first memory limit: %v", err)
	}
	if err := rt.LimitUsage("pixels", 5); err == nil {
		t.Fatal("unknown limit field did not error")
	}
}

func TestEvalLimitQuits(t *testing.T) {
	rt := bootTest(t)
	if err := rt.LimitUsage("eval", 10); err != nil {
		t.Fatalf("LimitUsage: %v", err)
	}
	code := rt.CatchQuit(func() {
		for i := 0; i < 100; i++ {
			rt.CountEval(1)
		}
	})
	if code != 101 {
		t.Fatalf("eval limit quit code = %d, want 101", code)
	}
}

func TestMemoryLimitRecyclesThenRaises(t *testing.T) {
	rt := bootTest(t)
	baseline := int64(rt.Pool.Stats().Bytes)
	if err := rt.LimitUsage("memory", baseline+1024); err != nil {
		t.Fatalf("LimitUsage: %v", err)
	}

	// Collectable garbage: the recycle pass brings usage back under.
	rt.Pool.Make(8192, 1, value.FlagManaged)
	rt.CountEval(1)
	if got := int64(rt.Pool.Stats().Bytes); got > baseline+1024 {
		t.Fatalf("usage %d still over limit after recycle", got)
	}

	// An unmanaged series cannot be collected, so the limit trips.
	rt.Pool.Make(8192, 1, 0)
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("memory limit crossing did not raise")
		}
		err, ok := r.(*fault.Error)
		if !ok || err.Code != fault.ErrNoMemory {
			t.Fatalf("panic value = %v, want %s", r, fault.ErrNoMemory)
		}
	}()
	rt.CountEval(1)
}

func TestUnionNative(t *testing.T) {
	rt := bootTest(t)
	a := intBlock(rt, 1, 2, 3)
	b := intBlock(rt, 3, 4, 5)

	out, err := rt.Union(&Call{Args: []value.Cell{a, b}})
	if err != nil {
		t.Fatalf("Union: %v", err)
	}
	want := []int64{1, 2, 3, 4, 5}
	cells := out.Ser.Cells()
	if len(cells) != len(want) {
		t.Fatalf("union has %d cells, want %d", len(cells), len(want))
	}
	for i, w := range want {
		if cells[i].Int != w {
			t.Fatalf("union[%d] = %d, want %d", i, cells[i].Int, w)
		}
	}
}

func TestDifferenceNativeCase(t *testing.T) {
	rt := bootTest(t)
	a := rt.makeString("abc")
	b := rt.makeString("BCD")

	folded, err := rt.Difference(&Call{Args: []value.Cell{a, b}})
	if err != nil {
		t.Fatalf("Difference: %v", err)
	}
	if got := string(folded.Ser.Bytes()); got != "aD" {
		t.Fatalf("folded difference = %q, want %q", got, "aD")
	}

	cased, err := rt.Difference(&Call{
		Args:    []value.Cell{a, b},
		Refines: map[string]value.Cell{"case": value.MakeLogic(true)},
	})
	if err != nil {
		t.Fatalf("Difference /case: %v", err)
	}
	if got := string(cased.Ser.Bytes()); got != "abcBCD" {
		t.Fatalf("cased difference = %q, want %q", got, "abcBCD")
	}
}

func TestUniqueNativeSkip(t *testing.T) {
	rt := bootTest(t)
	a := intBlock(rt, 1, 10, 1, 10, 2, 20)

	out, err := rt.Unique(&Call{
		Args:    []value.Cell{a},
		Refines: map[string]value.Cell{"skip": value.MakeInteger(2)},
	})
	if err != nil {
		t.Fatalf("Unique: %v", err)
	}
	if n := len(out.Ser.Cells()); n != 4 {
		t.Fatalf("unique kept %d cells, want 4", n)
	}

	if _, err := rt.Unique(&Call{
		Args:    []value.Cell{a},
		Refines: map[string]value.Cell{"skip": value.MakeInteger(0)},
	}); err == nil {
		t.Fatal("zero skip did not error")
	}
}

func TestRecycleNative(t *testing.T) {
	rt := bootTest(t)

	// Garbage with no root.
	rt.Pool.Make(32, 1, value.FlagManaged)
	before := rt.Pool.Managed()

	out, err := rt.NativeRecycle(&Call{})
	if err != nil {
		t.Fatalf("NativeRecycle: %v", err)
	}
	if out.Kind != value.KindInteger || out.Int < 1 {
		t.Fatalf("recycle swept %d, want at least 1", out.Int)
	}
	if rt.Pool.Managed() >= before {
		t.Fatal("managed count did not drop")
	}

	if _, err := rt.NativeRecycle(&Call{Refines: map[string]value.Cell{"off": value.MakeLogic(true)}}); err != nil {
		t.Fatalf("recycle/off: %v", err)
	}
	if rt.gcOn {
		t.Fatal("recycle/off left the collector on")
	}
	if _, err := rt.NativeRecycle(&Call{Refines: map[string]value.Cell{"ballast": value.MakeInteger(100)}}); err != nil {
		t.Fatalf("recycle/ballast: %v", err)
	}
	if rt.gcBallast != 100 {
		t.Fatalf("ballast = %d, want 100", rt.gcBallast)
	}
	if _, err := rt.NativeRecycle(&Call{Refines: map[string]value.Cell{"ballast": value.MakeInteger(-5)}}); err == nil {
		t.Fatal("negative ballast did not error")
	}
}

func TestStatsNative(t *testing.T) {
	rt := bootTest(t)
	rt.CountEval(3)

	out, err := rt.NativeStats(&Call{})
	if err != nil {
		t.Fatalf("NativeStats: %v", err)
	}
	cells := out.Ser.Cells()
	if len(cells) != 8 {
		t.Fatalf("stats block has %d cells, want 8", len(cells))
	}
	if cells[0].Int != 3 {
		t.Fatalf("evals = %d, want 3", cells[0].Int)
	}
}

func TestStackNative(t *testing.T) {
	rt := bootTest(t)
	rt.PushFrame("outer", []value.Cell{value.MakeInteger(1)})
	rt.PushFrame("inner", []value.Cell{value.MakeInteger(2), value.MakeInteger(3)})
	defer func() {
		rt.PopFrame()
		rt.PopFrame()
	}()

	depth, err := rt.NativeStack(&Call{Refines: map[string]value.Cell{"depth": value.MakeLogic(true)}})
	if err != nil || depth.Int != 2 {
		t.Fatalf("depth = %d %v, want 2", depth.Int, err)
	}

	word, err := rt.NativeStack(&Call{
		Args:    []value.Cell{value.MakeInteger(1)},
		Refines: map[string]value.Cell{"word": value.MakeLogic(true)},
	})
	if err != nil {
		t.Fatalf("stack/word: %v", err)
	}
	if got := string(word.Ser.Bytes()); got != "outer" {
		t.Fatalf("stack/word = %q, want %q", got, "outer")
	}

	args, err := rt.NativeStack(&Call{
		Args:    []value.Cell{value.MakeInteger(0)},
		Refines: map[string]value.Cell{"args": value.MakeLogic(true)},
	})
	if err != nil {
		t.Fatalf("stack/args: %v", err)
	}
	if n := len(args.Ser.Cells()); n != 2 {
		t.Fatalf("stack/args has %d cells, want 2", n)
	}

	limit, err := rt.NativeStack(&Call{Refines: map[string]value.Cell{"limit": value.MakeLogic(true)}})
	if err != nil || limit.Int != stackLimit {
		t.Fatalf("stack/limit = %d %v, want %d", limit.Int, err, stackLimit)
	}

	// One word slot plus args per frame: (1+1) + (1+2).
	size, err := rt.NativeStack(&Call{Refines: map[string]value.Cell{"size": value.MakeLogic(true)}})
	if err != nil || size.Int != 5 {
		t.Fatalf("stack/size = %d %v, want 5", size.Int, err)
	}

	fn, err := rt.NativeStack(&Call{
		Args:    []value.Cell{value.MakeInteger(0)},
		Refines: map[string]value.Cell{"func": value.MakeLogic(true)},
	})
	if err != nil || fn.Kind != value.KindNone {
		t.Fatalf("stack/func = %s %v, want none", fn.Kind, err)
	}

	none, err := rt.NativeStack(&Call{Args: []value.Cell{value.MakeInteger(9)}})
	if err != nil || none.Kind != value.KindNone {
		t.Fatalf("deep offset = %s %v, want none", none.Kind, err)
	}
}

func TestQuitNative(t *testing.T) {
	rt := bootTest(t)
	code := rt.CatchQuit(func() {
		_, _ = rt.NativeQuit(&Call{Refines: map[string]value.Cell{"with": value.MakeInteger(3)}})
	})
	if code != 3 {
		t.Fatalf("quit code = %d, want 3", code)
	}
}

func TestOpenPortTracksRoots(t *testing.T) {
	rt := bootTest(t)

	p, err := rt.OpenPort(&port.Spec{Scheme: "event"})
	if err != nil {
		t.Fatalf("OpenPort: %v", err)
	}
	if len(rt.ports) != 1 {
		t.Fatalf("tracked ports = %d, want 1", len(rt.ports))
	}
	if cerr := rt.ClosePort(p); cerr != nil {
		t.Fatalf("ClosePort: %v", cerr)
	}
	if len(rt.ports) != 0 {
		t.Fatalf("tracked ports = %d after close, want 0", len(rt.ports))
	}
}

func intBlock(rt *Runtime, ns ...int64) value.Cell {
	cells := make([]value.Cell, len(ns))
	for i, n := range ns {
		cells[i] = value.MakeInteger(n)
	}
	return rt.makeBlock(cells)
}
