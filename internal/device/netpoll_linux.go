//go:build linux

package device

import (
	"syscall"

	"golang.org/x/sys/unix"

	"rebo/internal/fault"
)

// Service drives pending socket requests with one poll pass.
func (n *Net) Service(reqs []*Request, timeoutMs int) []*Request {
	pfds := make([]unix.PollFd, 0, len(reqs))
	refs := make([]*Request, 0, len(reqs))
	for _, req := range reqs {
		if req.Net.Socket <= 0 {
			continue
		}
		var events int16
		switch {
		case req.Flags&FlagListen != 0:
			events = unix.POLLIN
		case req.Command == CmdRead:
			events = unix.POLLIN
		case req.Command == CmdWrite, req.Command == CmdOpen, req.Command == CmdConnect:
			events = unix.POLLOUT
		default:
			continue
		}
		pfds = append(pfds, unix.PollFd{Fd: int32(req.Net.Socket), Events: events})
		refs = append(refs, req)
	}
	if len(pfds) == 0 {
		return nil
	}

	for {
		count, err := unix.Poll(pfds, timeoutMs)
		if err == unix.EINTR {
			continue
		}
		if err != nil || count == 0 {
			return nil
		}
		break
	}

	var done []*Request
	for i, pfd := range pfds {
		if pfd.Revents == 0 {
			continue
		}
		req := refs[i]
		switch {
		case req.Flags&FlagListen != 0:
			if n.acceptReady(req) {
				done = append(done, req)
			}
		case req.Command == CmdOpen || req.Command == CmdConnect:
			n.connectReady(req)
			done = append(done, req)
		case req.Command == CmdRead:
			if n.read(req) <= 0 {
				done = append(done, req)
			}
		case req.Command == CmdWrite:
			if n.write(req) <= 0 {
				done = append(done, req)
			}
		}
	}
	return done
}

// acceptReady drains the kernel accept backlog into the request's
// accept queue. Returns true when at least one connection arrived.
func (n *Net) acceptReady(req *Request) bool {
	got := false
	for {
		fd, sa, err := syscall.Accept(req.Net.Socket)
		if err == syscall.EAGAIN || err == syscall.EWOULDBLOCK {
			break
		}
		if err != nil {
			req.Err = fault.New(fault.ErrNoConnect, "accept: %v", err)
			return true
		}
		if err := syscall.SetNonblock(fd, true); err != nil {
			closeSocket(fd)
			continue
		}
		conn := NetPayload{Socket: fd}
		if sa4, ok := sa.(*syscall.SockaddrInet4); ok {
			conn.RemoteIP = sa4.Addr
			conn.RemotePort = sa4.Port
		}
		req.Net.AcceptQueue = append(req.Net.AcceptQueue, conn)
		got = true
	}
	return got
}

// connectReady resolves an in-progress connect through SO_ERROR.
func (n *Net) connectReady(req *Request) {
	serr, err := syscall.GetsockoptInt(req.Net.Socket, syscall.SOL_SOCKET, syscall.SO_ERROR)
	if err != nil || serr != 0 {
		closeSocket(req.Net.Socket)
		req.Net.Socket = 0
		req.Err = fault.New(fault.ErrNoConnect, "connect: errno %d", serr)
		return
	}
	req.Flags |= FlagOpen
}
