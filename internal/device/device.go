package device

import (
	"fmt"

	"rebo/internal/fault"
	"rebo/internal/trace"
)

// Device is one OS driver. Do returns a negative value on error (the
// request's Err field carries the translated error), zero on synchronous
// completion, and a positive value when the operation is pending and
// will complete through the poll loop.
type Device interface {
	Do(req *Request, cmd Command) int
}

// Servicer is implemented by devices whose pending requests the poll
// loop can drive to completion.
type Servicer interface {
	// Service examines pending requests and returns those that
	// completed. timeoutMs < 0 blocks, 0 polls.
	Service(reqs []*Request, timeoutMs int) []*Request
}

// CompletionFunc receives requests the poll loop completed.
type CompletionFunc func(req *Request, evt uint8)

// Registry maps device ids to drivers and tracks in-flight requests.
// The references it keeps are dropped as soon as a request completes.
type Registry struct {
	devices map[ID]Device
	pending []*Request
	onDone  CompletionFunc
	tracer  trace.Tracer
}

// NewRegistry creates an empty device registry.
func NewRegistry(tracer trace.Tracer) *Registry {
	if tracer == nil {
		tracer = trace.Nop
	}
	return &Registry{
		devices: make(map[ID]Device, 8),
		tracer:  tracer,
	}
}

// Register installs a driver for a device id.
func (r *Registry) Register(id ID, dev Device) {
	r.devices[id] = dev
}

// OnCompletion installs the completion sink, normally the event port.
func (r *Registry) OnCompletion(fn CompletionFunc) {
	r.onDone = fn
}

// Do routes a request to its driver. Pending requests are retained for
// the poll loop.
func (r *Registry) Do(req *Request, cmd Command) int {
	dev, ok := r.devices[req.Device]
	if !ok {
		return req.fail(failCodeFor(cmd), "no driver for %s", req.Device)
	}
	req.Command = cmd
	result := dev.Do(req, cmd)
	trace.Point(r.tracer, trace.ScopeDevice, "device.do",
		fmt.Sprintf("%s %s -> %d", req.Device, cmd, result))
	if result > 0 {
		req.Flags |= FlagPending
		r.pending = append(r.pending, req)
	}
	if cmd == CmdClose || cmd == CmdAbort {
		r.dropPending(req)
	}
	return result
}

// Poll drives pending requests forward. Returns how many completed.
// Completed requests are handed to the completion sink in FIFO order of
// device completion.
func (r *Registry) Poll(timeoutMs int) int {
	if len(r.pending) == 0 {
		return 0
	}

	byDev := make(map[ID][]*Request)
	for _, req := range r.pending {
		byDev[req.Device] = append(byDev[req.Device], req)
	}

	completed := 0
	for id, reqs := range byDev {
		dev := r.devices[id]
		svc, ok := dev.(Servicer)
		if !ok {
			continue
		}
		for _, req := range svc.Service(reqs, timeoutMs) {
			req.Flags |= FlagDone
			req.Flags &^= FlagPending
			r.dropPending(req)
			completed++
			evt := completionEvent(req)
			trace.Point(r.tracer, trace.ScopeDevice, "device.done",
				fmt.Sprintf("%s %s actual=%d", req.Device, req.Command, req.Actual))
			if r.onDone != nil {
				r.onDone(req, evt)
			}
			// An open listener keeps a standing request in the poll set.
			if req.Flags&FlagListen != 0 && req.IsOpen() {
				req.Flags &^= FlagDone
				req.Flags |= FlagPending
				r.pending = append(r.pending, req)
			}
		}
	}
	return completed
}

// PendingCount returns the number of in-flight requests.
func (r *Registry) PendingCount() int { return len(r.pending) }

func (r *Registry) dropPending(req *Request) {
	for i, p := range r.pending {
		if p == req {
			copy(r.pending[i:], r.pending[i+1:])
			r.pending = r.pending[:len(r.pending)-1]
			return
		}
	}
}

func completionEvent(req *Request) uint8 {
	if req.Err != nil {
		return EvtError
	}
	switch req.Command {
	case CmdRead:
		if req.Device == DevSignal {
			return EvtSignal
		}
		return EvtRead
	case CmdWrite:
		return EvtWrote
	case CmdConnect, CmdLookup:
		return EvtConnect
	case CmdOpen:
		if req.Flags&FlagListen != 0 {
			return EvtAccept
		}
		return EvtConnect
	default:
		return EvtRead
	}
}

// failCodeFor picks the error taxonomy entry for a failed command.
func failCodeFor(cmd Command) fault.Code {
	switch cmd {
	case CmdOpen, CmdConnect, CmdLookup:
		return fault.ErrCannotOpen
	case CmdRead, CmdQuery:
		return fault.ErrReadError
	case CmdWrite:
		return fault.ErrWriteError
	case CmdCreate:
		return fault.ErrNoCreate
	case CmdDelete:
		return fault.ErrNoDelete
	case CmdRename:
		return fault.ErrNoRename
	default:
		return fault.ErrReadError
	}
}
