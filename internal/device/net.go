package device

import (
	"net"
	"syscall"

	"rebo/internal/fault"
)

// Transport protocols carried in Request.State.
const (
	ProtoTCP uint8 = iota
	ProtoUDP
)

// Net is the socket driver. Sockets are nonblocking; operations that
// cannot finish immediately return pending and complete through the
// poll loop.
type Net struct{}

// NewNet creates the socket driver.
func NewNet() *Net { return &Net{} }

func closeSocket(fd int) {
	if err := syscall.Close(fd); err != nil {
		// Best-effort cleanup; preserve the original error.
		_ = err
	}
}

// Do implements Device.
func (n *Net) Do(req *Request, cmd Command) int {
	switch cmd {
	case CmdOpen:
		if req.Flags&FlagListen != 0 {
			return n.listen(req)
		}
		return n.connect(req)
	case CmdLookup:
		return n.lookup(req)
	case CmdConnect:
		return n.connect(req)
	case CmdRead:
		return n.read(req)
	case CmdWrite:
		return n.write(req)
	case CmdClose, CmdAbort:
		if req.Net.Socket > 0 {
			closeSocket(req.Net.Socket)
			req.Net.Socket = 0
		}
		req.Flags &^= FlagOpen | FlagListen | FlagPending
		return 0
	case CmdQuery:
		return n.query(req)
	default:
		return req.fail(fault.ErrReadError, "net does not support %s", cmd)
	}
}

func (n *Net) socket(req *Request) (int, *fault.Error) {
	typ := syscall.SOCK_STREAM
	if req.State == ProtoUDP {
		typ = syscall.SOCK_DGRAM
	}
	fd, err := syscall.Socket(syscall.AF_INET, typ, 0)
	if err != nil {
		return 0, fault.New(fault.ErrCannotOpen, "socket: %v", err)
	}
	if err := syscall.SetNonblock(fd, true); err != nil {
		closeSocket(fd)
		return 0, fault.New(fault.ErrCannotOpen, "socket: %v", err)
	}
	return fd, nil
}

func (n *Net) listen(req *Request) int {
	fd, ferr := n.socket(req)
	if ferr != nil {
		req.Err = ferr
		return -1
	}
	if err := syscall.SetsockoptInt(fd, syscall.SOL_SOCKET, syscall.SO_REUSEADDR, 1); err != nil {
		closeSocket(fd)
		return req.fail(fault.ErrCannotOpen, "listen: %v", err)
	}
	sa := &syscall.SockaddrInet4{Port: req.Net.LocalPort, Addr: req.Net.LocalIP}
	if err := syscall.Bind(fd, sa); err != nil {
		closeSocket(fd)
		return req.fail(fault.ErrCannotOpen, "bind port %d: %v", req.Net.LocalPort, err)
	}
	req.Net.Socket = fd
	req.Flags |= FlagOpen

	if req.State == ProtoUDP {
		// Datagram sockets are bound, not listening.
		return 0
	}
	if err := syscall.Listen(fd, syscall.SOMAXCONN); err != nil {
		closeSocket(fd)
		req.Net.Socket = 0
		req.Flags &^= FlagOpen
		return req.fail(fault.ErrCannotOpen, "listen port %d: %v", req.Net.LocalPort, err)
	}
	// The listener stays pending so the poll loop watches for accepts.
	return 1
}

func (n *Net) lookup(req *Request) int {
	ips, err := net.LookupIP(req.Net.Host)
	if err != nil {
		return req.fail(fault.ErrNoConnect, "lookup %s: %v", req.Net.Host, err)
	}
	for _, ip := range ips {
		if ip4 := ip.To4(); ip4 != nil {
			copy(req.Net.RemoteIP[:], ip4)
			return 0
		}
	}
	return req.fail(fault.ErrNoConnect, "lookup %s: no IPv4 address", req.Net.Host)
}

func (n *Net) connect(req *Request) int {
	if req.Net.Socket == 0 {
		fd, ferr := n.socket(req)
		if ferr != nil {
			req.Err = ferr
			return -1
		}
		req.Net.Socket = fd
	}
	sa := &syscall.SockaddrInet4{Port: req.Net.RemotePort, Addr: req.Net.RemoteIP}
	err := syscall.Connect(req.Net.Socket, sa)
	switch err {
	case nil:
		req.Flags |= FlagOpen
		return 0
	case syscall.EINPROGRESS:
		return 1
	default:
		closeSocket(req.Net.Socket)
		req.Net.Socket = 0
		return req.fail(fault.ErrNoConnect, "connect: %v", err)
	}
}

func (n *Net) read(req *Request) int {
	if req.Net.Socket == 0 {
		return req.fail(fault.ErrNotOpen, "read on closed socket")
	}
	limit := req.Length
	if limit > len(req.Data) {
		limit = len(req.Data)
	}
	if req.State == ProtoUDP {
		read, from, err := syscall.Recvfrom(req.Net.Socket, req.Data[:limit], 0)
		if err == syscall.EAGAIN || err == syscall.EWOULDBLOCK {
			return 1
		}
		if err != nil {
			return req.fail(fault.ErrReadError, "recvfrom: %v", err)
		}
		if sa, ok := from.(*syscall.SockaddrInet4); ok {
			req.Net.RemoteIP = sa.Addr
			req.Net.RemotePort = sa.Port
		}
		req.Actual = read
		return 0
	}
	read, err := syscall.Read(req.Net.Socket, req.Data[:limit])
	if err == syscall.EAGAIN || err == syscall.EWOULDBLOCK {
		return 1
	}
	if err != nil {
		return req.fail(fault.ErrReadError, "read: %v", err)
	}
	req.Actual = read
	return 0
}

func (n *Net) write(req *Request) int {
	if req.Net.Socket == 0 {
		return req.fail(fault.ErrNotOpen, "write on closed socket")
	}
	limit := req.Length
	if limit > len(req.Data) {
		limit = len(req.Data)
	}
	for req.Actual < limit {
		var wrote int
		var err error
		if req.State == ProtoUDP {
			sa := &syscall.SockaddrInet4{Port: req.Net.RemotePort, Addr: req.Net.RemoteIP}
			err = syscall.Sendto(req.Net.Socket, req.Data[req.Actual:limit], 0, sa)
			wrote = limit - req.Actual
		} else {
			wrote, err = syscall.Write(req.Net.Socket, req.Data[req.Actual:limit])
		}
		if err == syscall.EAGAIN || err == syscall.EWOULDBLOCK {
			return 1
		}
		if err != nil {
			return req.fail(fault.ErrWriteError, "write: %v", err)
		}
		req.Actual += wrote
	}
	return 0
}

func (n *Net) query(req *Request) int {
	if req.Net.Socket == 0 {
		return req.fail(fault.ErrNotOpen, "query on closed socket")
	}
	if sa, err := syscall.Getsockname(req.Net.Socket); err == nil {
		if sa4, ok := sa.(*syscall.SockaddrInet4); ok {
			req.Net.LocalIP = sa4.Addr
			req.Net.LocalPort = sa4.Port
		}
	}
	if sa, err := syscall.Getpeername(req.Net.Socket); err == nil {
		if sa4, ok := sa.(*syscall.SockaddrInet4); ok {
			req.Net.RemoteIP = sa4.Addr
			req.Net.RemotePort = sa4.Port
		}
	}
	return 0
}
