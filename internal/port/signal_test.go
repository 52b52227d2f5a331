package port

import (
	"testing"

	"rebo/internal/device"
	"rebo/internal/fault"
	"rebo/internal/value"
)

// fakeSignalDevice delivers canned siginfo records, either in place or
// parked until Service runs.
type fakeSignalDevice struct {
	infos   []device.SigInfo
	park    bool
	parked  []*device.Request
	aborted bool
}

func (d *fakeSignalDevice) Do(req *device.Request, cmd device.Command) int {
	switch cmd {
	case device.CmdOpen:
		req.Flags |= device.FlagOpen
	case device.CmdRead:
		if d.park {
			d.parked = append(d.parked, req)
			return 1
		}
		d.deliver(req)
	case device.CmdAbort:
		d.aborted = true
	case device.CmdClose:
		req.Flags &^= device.FlagOpen
	}
	return 0
}

func (d *fakeSignalDevice) deliver(req *device.Request) {
	req.Signal.Count = copy(req.Signal.Infos[:], d.infos)
}

func (d *fakeSignalDevice) Service(reqs []*device.Request, timeoutMs int) []*device.Request {
	done := d.parked
	d.parked = nil
	for _, req := range done {
		d.deliver(req)
	}
	return done
}

func signalCtx(t *testing.T) (*Context, *Schemes, *fakeSignalDevice) {
	t.Helper()
	ctx := newCtx(t)
	dev := &fakeSignalDevice{}
	ctx.Devices.Register(device.DevSignal, dev)
	return ctx, NewSchemes(), dev
}

func TestSignalReadBuildsRecords(t *testing.T) {
	ctx, schemes, dev := signalCtx(t)
	dev.infos = []device.SigInfo{
		{Signo: 2, Code: 0, SourcePID: 4242, SourceUID: 1000},
		{Signo: 15, Code: 1, SourcePID: 1, SourceUID: 0},
	}
	p := openScheme(t, ctx, schemes, &Spec{Scheme: "signal", Signal: []int{2, 15}})
	if _, err := Dispatch(ctx, p, VerbOpen, Args{}); err != nil {
		t.Fatalf("open: %v", err)
	}

	out, err := Dispatch(ctx, p, VerbRead, Args{Part: -1})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if out.Kind != value.KindBlock {
		t.Fatalf("read returned %s, want block", out.Kind)
	}
	records := out.Ser.Cells()
	if len(records) != 2 {
		t.Fatalf("read delivered %d records, want 2", len(records))
	}
	first := records[0].Ser.Cells()
	if len(first) != 4 {
		t.Fatalf("record has %d fields, want 4", len(first))
	}
	if first[0].Int != 2 || first[1].Int != 0 || first[2].Int != 4242 || first[3].Int != 1000 {
		t.Fatalf("record = [%d %d %d %d], want [2 0 4242 1000]",
			first[0].Int, first[1].Int, first[2].Int, first[3].Int)
	}
	second := records[1].Ser.Cells()
	if second[0].Int != 15 || second[2].Int != 1 {
		t.Fatalf("second record = [%d _ %d _], want signal 15 from pid 1", second[0].Int, second[2].Int)
	}

	if p.Request().Signal.Count != 0 {
		t.Fatal("delivered records were not consumed from the request")
	}
}

func TestSignalPendingReadCompletesViaUpdate(t *testing.T) {
	ctx, schemes, dev := signalCtx(t)
	dev.park = true
	dev.infos = []device.SigInfo{{Signo: 10, SourcePID: 99}}
	p := openScheme(t, ctx, schemes, &Spec{Scheme: "signal", Signal: []int{10}})
	if _, err := Dispatch(ctx, p, VerbOpen, Args{}); err != nil {
		t.Fatalf("open: %v", err)
	}

	got, err := Dispatch(ctx, p, VerbRead, Args{Part: -1})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Kind != value.KindNone {
		t.Fatalf("pending read returned %s, want none", got.Kind)
	}

	if n := ctx.Devices.Poll(0); n != 1 {
		t.Fatalf("poll completed %d requests, want 1", n)
	}
	if _, err := Dispatch(ctx, p, VerbUpdate, Args{}); err != nil {
		t.Fatalf("update: %v", err)
	}

	d := p.Data()
	records := d.Ser.Cells()
	if len(records) != 1 {
		t.Fatalf("data block holds %d records, want 1", len(records))
	}
	rec := records[0].Ser.Cells()
	if rec[0].Int != 10 || rec[2].Int != 99 {
		t.Fatalf("record = [%d _ %d _], want signal 10 from pid 99", rec[0].Int, rec[2].Int)
	}
}

func TestSignalOpenTwiceFails(t *testing.T) {
	ctx, schemes, _ := signalCtx(t)
	p := openScheme(t, ctx, schemes, &Spec{Scheme: "signal"})
	if _, err := Dispatch(ctx, p, VerbOpen, Args{}); err != nil {
		t.Fatalf("open: %v", err)
	}

	_, err := Dispatch(ctx, p, VerbOpen, Args{})
	if err == nil || err.Code != fault.ErrAlreadyOpen {
		t.Fatalf("second open err = %v, want %s", err, fault.ErrAlreadyOpen)
	}
}

func TestSignalQueryReportsMask(t *testing.T) {
	ctx, schemes, _ := signalCtx(t)
	p := openScheme(t, ctx, schemes, &Spec{Scheme: "signal", Signal: []int{1, 2, 15}})
	if _, err := Dispatch(ctx, p, VerbOpen, Args{}); err != nil {
		t.Fatalf("open: %v", err)
	}

	out, err := Dispatch(ctx, p, VerbQuery, Args{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	cells := out.Ser.Cells()
	if len(cells) != 3 || cells[0].Int != 1 || cells[1].Int != 2 || cells[2].Int != 15 {
		t.Fatalf("mask block = %v, want [1 2 15]", cells)
	}
}

func TestSignalCloseAborts(t *testing.T) {
	ctx, schemes, dev := signalCtx(t)
	dev.park = true
	p := openScheme(t, ctx, schemes, &Spec{Scheme: "signal", Signal: []int{10}})
	if _, err := Dispatch(ctx, p, VerbOpen, Args{}); err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := Dispatch(ctx, p, VerbRead, Args{Part: -1}); err != nil {
		t.Fatalf("read: %v", err)
	}

	if _, err := Dispatch(ctx, p, VerbClose, Args{}); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !dev.aborted {
		t.Fatal("close did not abort the pending read")
	}
	if p.IsOpenState() {
		t.Fatal("port state still open")
	}
	if ctx.Devices.PendingCount() != 0 {
		t.Fatalf("pending count = %d after close, want 0", ctx.Devices.PendingCount())
	}

	// Update after close is a no-op.
	if _, err := Dispatch(ctx, p, VerbUpdate, Args{}); err != nil {
		t.Fatalf("update after close: %v", err)
	}
}
