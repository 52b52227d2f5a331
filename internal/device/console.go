package device

import (
	"io"
	"os"

	"golang.org/x/term"

	"rebo/internal/fault"
)

// Console is the stdin/stdout driver. Reads and writes move raw bytes;
// no CR/LF conversion happens at this layer.
type Console struct {
	in  io.Reader
	out io.Writer
	tty bool
}

// NewConsole creates the console driver bound to the process stdio.
func NewConsole() *Console {
	return &Console{
		in:  os.Stdin,
		out: os.Stdout,
		tty: term.IsTerminal(int(os.Stdin.Fd())),
	}
}

// NewConsoleOn creates a console driver over explicit streams. Used by
// tests and embedders.
func NewConsoleOn(in io.Reader, out io.Writer) *Console {
	return &Console{in: in, out: out}
}

// IsTerminal reports whether stdin is a terminal.
func (c *Console) IsTerminal() bool { return c.tty }

// Do implements Device.
func (c *Console) Do(req *Request, cmd Command) int {
	switch cmd {
	case CmdOpen:
		req.Flags |= FlagOpen
		return 0
	case CmdClose:
		req.Flags &^= FlagOpen
		return 0
	case CmdRead:
		n := req.Length
		if n > len(req.Data) {
			n = len(req.Data)
		}
		read, err := c.in.Read(req.Data[:n])
		if err != nil && err != io.EOF {
			return req.fail(fault.ErrReadError, "console read: %v", err)
		}
		req.Actual = read
		return 0
	case CmdWrite:
		n := req.Length
		if n > len(req.Data) {
			n = len(req.Data)
		}
		wrote, err := c.out.Write(req.Data[:n])
		req.Actual = wrote
		if err != nil {
			return req.fail(fault.ErrWriteError, "console write: %v", err)
		}
		return 0
	case CmdQuery:
		return 0
	default:
		return req.fail(fault.ErrReadError, "console does not support %s", cmd)
	}
}
