//go:build linux

package device

import (
	"os"
	"os/signal"

	"golang.org/x/sys/unix"

	"rebo/internal/fault"
)

// Signal is the POSIX signal driver. Open installs the mask from the
// request payload; reads deliver up to eight records per batch.
type Signal struct {
	ch   chan os.Signal
	open bool
}

// NewSignal creates the signal driver.
func NewSignal() *Signal { return &Signal{} }

// fillMask expands an empty mask to every catchable signal, matching
// sigfillset semantics.
func fillMask() []int {
	var mask []int
	for signo := 1; signo <= int(unix.SIGSYS); signo++ {
		if signo == int(unix.SIGKILL) || signo == int(unix.SIGSTOP) {
			continue
		}
		mask = append(mask, signo)
	}
	return mask
}

// Do implements Device.
func (s *Signal) Do(req *Request, cmd Command) int {
	switch cmd {
	case CmdOpen:
		mask := req.Signal.Mask
		if len(mask) == 0 {
			mask = fillMask()
		}
		s.ch = make(chan os.Signal, 64)
		sigs := make([]os.Signal, 0, len(mask))
		for _, signo := range mask {
			sigs = append(sigs, unix.Signal(signo))
		}
		signal.Notify(s.ch, sigs...)
		s.open = true
		req.Flags |= FlagOpen
		return 0
	case CmdClose, CmdAbort:
		if s.open {
			signal.Stop(s.ch)
			s.open = false
		}
		req.Flags &^= FlagOpen | FlagPending
		return 0
	case CmdRead:
		if !s.open {
			return req.fail(fault.ErrNotOpen, "signal port not open")
		}
		if s.drain(req) {
			return 0
		}
		return 1
	default:
		return req.fail(fault.ErrReadError, "signal does not support %s", cmd)
	}
}

// Service completes pending signal reads when signals arrived.
func (s *Signal) Service(reqs []*Request, timeoutMs int) []*Request {
	var done []*Request
	for _, req := range reqs {
		if req.Command == CmdRead && s.drain(req) {
			done = append(done, req)
		}
	}
	return done
}

// drain moves up to maxSigBatch queued signals into the request.
func (s *Signal) drain(req *Request) bool {
	req.Signal.Count = 0
	for req.Signal.Count < maxSigBatch {
		select {
		case sig := <-s.ch:
			signo, ok := sig.(unix.Signal)
			if !ok {
				continue
			}
			req.Signal.Infos[req.Signal.Count] = SigInfo{Signo: int32(signo)}
			req.Signal.Count++
		default:
			return req.Signal.Count > 0
		}
	}
	return true
}
