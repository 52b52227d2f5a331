package port

import (
	"rebo/internal/fault"
	"rebo/internal/value"
)

// writeBytes extracts the byte payload of a write source, applies /part
// clipping, and holds the source series in the port's data field so it
// stays reachable while the device points into it.
func writeBytes(ctx *Context, p *Port, data value.Cell, part int) ([]byte, *fault.Error) {
	var bytes []byte
	switch data.Kind {
	case value.KindString, value.KindBinary, value.KindIssue:
		if data.Ser == nil {
			return nil, fault.New(fault.ErrInvalidPort, "empty write source")
		}
		bytes = data.Ser.BytesAt(data.Index())
		p.SetData(data)
	case value.KindChar, value.KindInteger, value.KindBlock:
		bytes = []byte(value.Form(data))
	default:
		return nil, fault.New(fault.ErrInvalidPort, "cannot write %s to a port", data.Kind)
	}
	if part >= 0 && part < len(bytes) {
		bytes = bytes[:part]
	}
	return bytes, nil
}
