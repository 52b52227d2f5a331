package runtime

import (
	"time"

	"rebo/internal/device"
	"rebo/internal/fault"
	"rebo/internal/port"
	"rebo/internal/trace"
	"rebo/internal/value"
)

// Runtime is the process-wide context: the series pool, the device
// registry, the scheme table, and the shared event queue.
type Runtime struct {
	Pool    *value.Pool
	Scratch *value.Scratch
	Devices *device.Registry
	Schemes *port.Schemes
	Events  *port.Queue
	Codecs  *CodecRegistry
	Tracer  trace.Tracer
	Config  Config

	portCtx *port.Context
	ports   []*port.Port

	gcOn      bool
	gcBallast int
	gcBudget  int
	gcTorture bool

	evalLimit int64
	memLimit  int64
	evalCount int64

	start time.Time

	traps          []*trapFrame
	shutdownGuards []func()

	frames []Frame
}

// Stats is a point-in-time snapshot of runtime activity.
type Stats struct {
	Uptime  time.Duration
	Evals   int64
	Managed int
	Pending int
	Events  int
	Pool    value.PoolStats
}

// Boot builds a runtime from a config, wiring the standard devices and
// scheme actors.
func Boot(cfg Config) *Runtime {
	tracer := tracerFor(cfg)
	pool := value.NewPool(tracer)
	rt := &Runtime{
		Pool:      pool,
		Scratch:   value.NewScratch(pool),
		Devices:   device.NewRegistry(tracer),
		Schemes:   port.NewSchemes(),
		Events:    port.NewQueue(pool),
		Codecs:    NewCodecRegistry(),
		Tracer:    tracer,
		Config:    cfg,
		gcOn:      true,
		gcBallast: cfg.Ballast,
		gcBudget:  cfg.Ballast,
		evalLimit: cfg.EvalLimit,
		memLimit:  cfg.MemLimit,
		start:     time.Now(),
	}
	if rt.gcBallast <= 0 {
		rt.gcBallast = DefaultConfig().Ballast
		rt.gcBudget = rt.gcBallast
	}

	rt.Devices.Register(device.DevConsole, device.NewConsole())
	rt.Devices.Register(device.DevClipboard, device.NewClipboard())
	rt.Devices.Register(device.DevFile, device.NewFile())
	rt.Devices.Register(device.DevNet, device.NewNet())
	rt.Devices.Register(device.DevSignal, device.NewSignal())
	rt.Devices.OnCompletion(func(req *device.Request, evt uint8) {
		rt.Events.Push(req, evt, device.ModelDevice)
	})

	rt.portCtx = &port.Context{
		Pool:    pool,
		Devices: rt.Devices,
		Events:  rt.Events,
		Tracer:  tracer,
	}
	RegisterMsgpack(rt.Codecs)
	return rt
}

// PortContext returns the shared actor context.
func (rt *Runtime) PortContext() *port.Context { return rt.portCtx }

// OpenPort creates and opens a port for a spec, tracking it as a GC
// root until it is closed.
func (rt *Runtime) OpenPort(spec *port.Spec) (*port.Port, *fault.Error) {
	p, err := rt.Schemes.Open(rt.portCtx, spec)
	if err != nil {
		return nil, err
	}
	if _, err := port.Dispatch(rt.portCtx, p, port.VerbOpen, port.Args{}); err != nil {
		return nil, err
	}
	rt.ports = append(rt.ports, p)
	return p, nil
}

// ClosePort closes a port and drops it from the root set.
func (rt *Runtime) ClosePort(p *port.Port) *fault.Error {
	_, err := port.Dispatch(rt.portCtx, p, port.VerbClose, port.Args{})
	for i, q := range rt.ports {
		if q == p {
			copy(rt.ports[i:], rt.ports[i+1:])
			rt.ports = rt.ports[:len(rt.ports)-1]
			break
		}
	}
	return err
}

// Wait polls the device layer, then drains completion events by
// dispatching UPDATE on each originating port. Returns the number of
// events processed.
func (rt *Runtime) Wait(timeoutMs int) int {
	rt.Devices.Poll(timeoutMs)
	processed := 0
	for {
		cell, ok := rt.Events.Shift()
		if !ok {
			break
		}
		processed++
		ev := cell.Ev
		if ev == nil || ev.Request == nil {
			continue
		}
		req, ok := ev.Request.(*device.Request)
		if !ok {
			continue
		}
		p, ok := req.PortRef.(*port.Port)
		if !ok || p == nil {
			continue
		}
		if _, err := port.Dispatch(rt.portCtx, p, port.VerbUpdate, port.Args{}); err != nil {
			trace.Point(rt.Tracer, trace.ScopeRuntime, "update.error", err.Error())
		}
	}
	return processed
}

// CountEval advances the evaluation counter and enforces the usage
// limits. Crossing the eval limit quits with code 101; crossing the
// memory limit recycles first and raises the fatal no-memory error when
// the live byte total stays over.
func (rt *Runtime) CountEval(n int64) {
	rt.evalCount += n
	if rt.evalLimit > 0 && rt.evalCount >= rt.evalLimit {
		rt.Quit(101)
	}
	if rt.memLimit > 0 && int64(rt.Pool.Stats().Bytes) > rt.memLimit {
		rt.Recycle()
		if int64(rt.Pool.Stats().Bytes) > rt.memLimit {
			rt.Raise(fault.New(fault.ErrNoMemory,
				"live series bytes %d exceed the memory limit %d",
				rt.Pool.Stats().Bytes, rt.memLimit))
		}
		return
	}
	if rt.gcTorture {
		rt.Recycle()
		return
	}
	rt.gcBudget -= int(n)
	if rt.gcOn && rt.gcBudget <= 0 {
		rt.Recycle()
	}
}

// LimitUsage arms an evaluation or memory limit. Each limit is
// write-once; a second call raises an error.
func (rt *Runtime) LimitUsage(field string, limit int64) *fault.Error {
	switch field {
	case "eval":
		if rt.evalLimit > 0 {
			return fault.New(fault.ErrBadRefine, "eval limit already set")
		}
		rt.evalLimit = limit
	case "memory":
		if rt.memLimit > 0 {
			return fault.New(fault.ErrBadRefine, "memory limit already set")
		}
		rt.memLimit = limit
	default:
		return fault.New(fault.ErrBadRefine, "unknown limit field %q", field)
	}
	return nil
}

// Recycle runs a mark-and-sweep over the managed set from the runtime
// roots: the event queue, the scratch buffers, and every open port.
func (rt *Runtime) Recycle() int {
	roots := []*value.Series{rt.Events.Series(), rt.Scratch.Emit, rt.Scratch.Mold}
	for _, p := range rt.ports {
		roots = append(roots, p.Roots()...)
	}
	swept := rt.Pool.Recycle(roots)
	rt.gcBudget = rt.gcBallast
	trace.Point(rt.Tracer, trace.ScopeRuntime, "recycle",
		time.Since(rt.start).String())
	return swept
}

// SetRecycle turns automatic recycling on or off.
func (rt *Runtime) SetRecycle(on bool) { rt.gcOn = on }

// SetBallast adjusts the allocation budget between automatic recycles.
func (rt *Runtime) SetBallast(n int) {
	if n > 0 {
		rt.gcBallast = n
		rt.gcBudget = n
	}
}

// SetTorture makes every CountEval trigger a full recycle.
func (rt *Runtime) SetTorture(on bool) { rt.gcTorture = on }

// Snapshot gathers the runtime statistics.
func (rt *Runtime) Snapshot() Stats {
	return Stats{
		Uptime:  time.Since(rt.start),
		Evals:   rt.evalCount,
		Managed: rt.Pool.Managed(),
		Pending: rt.Devices.PendingCount(),
		Events:  rt.Events.Len(),
		Pool:    rt.Pool.Stats(),
	}
}

// Shutdown closes every open port and runs outstanding guards.
func (rt *Runtime) Shutdown() {
	for i := len(rt.ports) - 1; i >= 0; i-- {
		p := rt.ports[i]
		_, _ = port.Dispatch(rt.portCtx, p, port.VerbClose, port.Args{}) //nolint:errcheck
	}
	rt.ports = nil
	for i := len(rt.shutdownGuards) - 1; i >= 0; i-- {
		rt.shutdownGuards[i]()
	}
	rt.shutdownGuards = nil
	_ = rt.Tracer.Flush() //nolint:errcheck
}
