// Package device implements the uniform asynchronous request object and
// the OS drivers the port actors talk to.
package device

import (
	"fmt"
	"time"

	"rebo/internal/fault"
)

// ID identifies a device family.
type ID uint8

const (
	DevClipboard ID = iota + 1
	DevConsole
	DevFile
	DevNet
	DevSignal
	DevEvent
)

// String returns the device name.
func (id ID) String() string {
	switch id {
	case DevClipboard:
		return "clipboard"
	case DevConsole:
		return "console"
	case DevFile:
		return "file"
	case DevNet:
		return "net"
	case DevSignal:
		return "signal"
	case DevEvent:
		return "event"
	default:
		return fmt.Sprintf("device(%d)", id)
	}
}

// Command is the verb carried by a request.
type Command uint8

const (
	CmdOpen Command = iota + 1
	CmdClose
	CmdRead
	CmdWrite
	CmdQuery
	CmdCreate
	CmdRename
	CmdDelete
	CmdLookup
	CmdConnect
	CmdAbort
)

// String returns the command name.
func (c Command) String() string {
	switch c {
	case CmdOpen:
		return "open"
	case CmdClose:
		return "close"
	case CmdRead:
		return "read"
	case CmdWrite:
		return "write"
	case CmdQuery:
		return "query"
	case CmdCreate:
		return "create"
	case CmdRename:
		return "rename"
	case CmdDelete:
		return "delete"
	case CmdLookup:
		return "lookup"
	case CmdConnect:
		return "connect"
	case CmdAbort:
		return "abort"
	default:
		return fmt.Sprintf("command(%d)", c)
	}
}

// Flag is the request flag bitset.
type Flag uint16

const (
	// FlagOpen marks the request's device as open.
	FlagOpen Flag = 1 << iota
	// FlagDir marks a directory request.
	FlagDir
	// FlagWide marks wide-character payloads.
	FlagWide
	// FlagListen marks a listening socket.
	FlagListen
	// FlagDone marks an asynchronously completed request.
	FlagDone
	// FlagPending marks a request waiting on the poll loop.
	FlagPending
	// FlagNew asks open to create the target.
	FlagNew
)

// Completion kinds delivered to the event port when a pending request
// finishes.
const (
	EvtRead uint8 = iota + 1
	EvtWrote
	EvtAccept
	EvtConnect
	EvtClose
	EvtSignal
	EvtError
)

// Delivery models for events.
const (
	ModelDevice uint8 = iota + 1
	ModelCallback
	ModelSystem
)

// NetPayload is the socket variant of the request payload.
type NetPayload struct {
	Socket     int
	LocalIP    [4]byte
	LocalPort  int
	RemoteIP   [4]byte
	RemotePort int
	Host       string // DNS name for lookup

	// AcceptQueue holds sockets accepted on a listener, oldest first.
	AcceptQueue []NetPayload
}

// FilePayload is the file variant of the request payload.
type FilePayload struct {
	Path    string
	ToPath  string // rename target
	Size    int64
	Index   int64
	ModTime time.Time
	IsDir   bool

	// Entries holds a directory listing: names, dirs carry a trailing
	// slash already.
	Entries []string
}

// SigInfo is one delivered POSIX signal record.
type SigInfo struct {
	Signo     int32
	Code      int32
	SourcePID int32
	SourceUID int32
}

// maxSigBatch bounds how many signal records one read delivers.
const maxSigBatch = 8

// SignalPayload is the signal variant of the request payload.
type SignalPayload struct {
	Mask  []int // signal numbers; empty means all
	Infos [maxSigBatch]SigInfo
	Count int
}

// Request is the uniform request/response object that travels to a
// device and back. Actual and Err are the return channel. The port that
// created the request owns it; the device layer holds it only while an
// operation is in flight.
type Request struct {
	Device  ID
	Command Command
	Flags   Flag
	State   uint8

	Length int // bytes requested
	Actual int // bytes transferred
	Err    *fault.Error

	// Data points into the owning port's series buffer.
	Data []byte

	Net    NetPayload
	File   FilePayload
	Signal SignalPayload

	// PortRef identifies the originating port for completion routing.
	// The device layer treats it as opaque.
	PortRef any
}

// IsOpen reports whether the device behind the request is open.
func (r *Request) IsOpen() bool { return r.Flags&FlagOpen != 0 }

// fail records a device error translated into the runtime taxonomy and
// returns the error result code.
func (r *Request) fail(code fault.Code, format string, args ...any) int {
	r.Err = fault.New(code, format, args...)
	return -1
}
