package device

import "rebo/internal/fault"

// Clipboard is a process-local clipboard driver. The stored payload may
// be wide-character data; the wide flag travels with the content so a
// reader knows how to decode it.
type Clipboard struct {
	buf  []byte
	wide bool
	open bool
}

// NewClipboard creates an empty clipboard driver.
func NewClipboard() *Clipboard { return &Clipboard{} }

// Do implements Device.
func (c *Clipboard) Do(req *Request, cmd Command) int {
	switch cmd {
	case CmdOpen:
		c.open = true
		req.Flags |= FlagOpen
		return 0
	case CmdClose:
		c.open = false
		req.Flags &^= FlagOpen
		return 0
	case CmdRead:
		if !c.open {
			return req.fail(fault.ErrNotOpen, "clipboard not open")
		}
		n := len(c.buf)
		if n > len(req.Data) {
			n = len(req.Data)
		}
		copy(req.Data, c.buf[:n])
		req.Actual = n
		if c.wide {
			req.Flags |= FlagWide
		} else {
			req.Flags &^= FlagWide
		}
		return 0
	case CmdWrite:
		if !c.open {
			return req.fail(fault.ErrNotOpen, "clipboard not open")
		}
		n := req.Length
		if n > len(req.Data) {
			n = len(req.Data)
		}
		c.buf = append(c.buf[:0], req.Data[:n]...)
		c.wide = req.Flags&FlagWide != 0
		req.Actual = n
		return 0
	case CmdQuery:
		req.Actual = len(c.buf)
		return 0
	default:
		return req.fail(fault.ErrReadError, "clipboard does not support %s", cmd)
	}
}
