// Package value implements the tagged value cell and the series container
// that backs every collection-like datatype in the runtime.
package value

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Kind identifies the runtime type of a Cell.
type Kind uint8

const (
	// KindEnd is the array-series terminator sentinel. It is the zero
	// value so that zeroed cell memory reads as an end marker.
	KindEnd Kind = iota
	// KindNone represents the none value.
	KindNone
	// KindUnset represents an unset value.
	KindUnset
	// KindLogic represents a boolean value.
	KindLogic
	// KindInteger represents a 64-bit signed integer.
	KindInteger
	// KindDecimal represents a 64-bit float.
	KindDecimal
	// KindChar represents a single codepoint.
	KindChar
	// KindPair represents two 32-bit floats.
	KindPair
	// KindTuple represents up to ten unsigned bytes.
	KindTuple
	// KindMoney represents a signed decimal of fixed precision.
	KindMoney
	// KindDate represents a calendar date as days since the epoch.
	KindDate
	// KindBinary is a series-view over a byte series.
	KindBinary
	// KindString is a series-view over a character series.
	KindString
	// KindIssue is a series-view over a byte series holding issue text.
	KindIssue
	// KindBlock is a series-view over an array series.
	KindBlock
	// KindBitset is a series-view over a byte series used as a bit table.
	KindBitset
	// KindTypeset is a fixed-width bitmask of datatype ids.
	KindTypeset
	// KindPort is a series-view over the fixed port object cells.
	KindPort
	// KindEvent is an inline asynchronous completion record.
	KindEvent
	// KindHandle is an opaque pointer with an optional code pointer.
	KindHandle
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindEnd:
		return "end"
	case KindNone:
		return "none"
	case KindUnset:
		return "unset"
	case KindLogic:
		return "logic"
	case KindInteger:
		return "integer"
	case KindDecimal:
		return "decimal"
	case KindChar:
		return "char"
	case KindPair:
		return "pair"
	case KindTuple:
		return "tuple"
	case KindMoney:
		return "money"
	case KindDate:
		return "date"
	case KindBinary:
		return "binary"
	case KindString:
		return "string"
	case KindIssue:
		return "issue"
	case KindBlock:
		return "block"
	case KindBitset:
		return "bitset"
	case KindTypeset:
		return "typeset"
	case KindPort:
		return "port"
	case KindEvent:
		return "event"
	case KindHandle:
		return "handle"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// IsSeries reports whether cells of this kind carry a series view.
func (k Kind) IsSeries() bool {
	switch k {
	case KindBinary, KindString, KindIssue, KindBlock, KindBitset, KindPort:
		return true
	default:
		return false
	}
}

// Event is the inline completion record boxed in an event cell.
type Event struct {
	Type    uint8 // event type id, actor-defined
	Model   uint8 // delivery model (device, callback, ...)
	Data    int32 // small payload (byte count, signal number)
	Request any   // originating device request, nil for synthetic events
}

// Handle is an opaque pointer cell payload. Code is an optional entry
// point (codec functions are stored here).
type Handle struct {
	Name string
	Data any
	Code any
}

// Cell is the fixed-shape tagged value. All variants share one struct so
// that array series can store cells inline.
type Cell struct {
	Kind Kind

	Int  int64           // integer, char, logic (0/1), date, typeset mask
	Flo  float64         // decimal
	X, Y float32         // pair
	Tup  Tuple           // tuple
	Dec  decimal.Decimal // money

	Ser *Series // series views
	Idx int     // series view index

	Ev *Event  // event
	H  *Handle // handle
}

// End returns the terminator sentinel cell.
func End() Cell { return Cell{} }

// IsEnd reports whether the cell is the terminator sentinel.
func (c Cell) IsEnd() bool { return c.Kind == KindEnd }

// MakeNone creates a none cell.
func MakeNone() Cell { return Cell{Kind: KindNone} }

// MakeUnset creates an unset cell.
func MakeUnset() Cell { return Cell{Kind: KindUnset} }

// MakeLogic creates a logic cell.
func MakeLogic(b bool) Cell {
	c := Cell{Kind: KindLogic}
	if b {
		c.Int = 1
	}
	return c
}

// Logic reads a logic cell as a bool.
func (c Cell) Logic() bool { return c.Kind == KindLogic && c.Int != 0 }

// MakeInteger creates an integer cell.
func MakeInteger(n int64) Cell { return Cell{Kind: KindInteger, Int: n} }

// MakeDecimal creates a decimal cell.
func MakeDecimal(f float64) Cell { return Cell{Kind: KindDecimal, Flo: f} }

// MakeChar creates a char cell.
func MakeChar(r rune) Cell { return Cell{Kind: KindChar, Int: int64(r)} }

// MakePair creates a pair cell.
func MakePair(x, y float32) Cell { return Cell{Kind: KindPair, X: x, Y: y} }

// MakeTuple creates a tuple cell.
func MakeTuple(t Tuple) Cell { return Cell{Kind: KindTuple, Tup: t} }

// MakeMoney creates a money cell.
func MakeMoney(d decimal.Decimal) Cell { return Cell{Kind: KindMoney, Dec: d} }

// MakeDate creates a date cell from days since the epoch.
func MakeDate(days int64) Cell { return Cell{Kind: KindDate, Int: days} }

// MakeTypeset creates a typeset cell from a datatype bitmask.
func MakeTypeset(mask uint64) Cell { return Cell{Kind: KindTypeset, Int: int64(mask)} }

// MakeSeries creates a series-view cell of the given kind at index.
func MakeSeries(kind Kind, s *Series, index int) Cell {
	return Cell{Kind: kind, Ser: s, Idx: index}
}

// MakeBinary creates a binary view cell.
func MakeBinary(s *Series, index int) Cell { return MakeSeries(KindBinary, s, index) }

// MakeString creates a string view cell.
func MakeString(s *Series, index int) Cell { return MakeSeries(KindString, s, index) }

// MakeBlock creates a block view cell.
func MakeBlock(s *Series, index int) Cell { return MakeSeries(KindBlock, s, index) }

// MakeBitset creates a bitset view cell.
func MakeBitset(s *Series) Cell { return MakeSeries(KindBitset, s, 0) }

// MakePort creates a port cell from the port object series.
func MakePort(s *Series) Cell { return MakeSeries(KindPort, s, 0) }

// MakeEvent creates an event cell.
func MakeEvent(ev *Event) Cell { return Cell{Kind: KindEvent, Ev: ev} }

// MakeHandle creates a handle cell.
func MakeHandle(h *Handle) Cell { return Cell{Kind: KindHandle, H: h} }

// Index returns the view index clamped to the series tail.
func (c Cell) Index() int {
	if c.Ser == nil {
		return 0
	}
	if c.Idx < 0 {
		return 0
	}
	if c.Idx > c.Ser.Tail() {
		return c.Ser.Tail()
	}
	return c.Idx
}

// ViewLen returns the number of elements from the view index to the tail.
func (c Cell) ViewLen() int {
	if c.Ser == nil {
		return 0
	}
	return c.Ser.Tail() - c.Index()
}

// String returns a human-readable representation of the cell.
func (c Cell) String() string {
	switch c.Kind {
	case KindEnd:
		return "<end>"
	case KindNone:
		return "none"
	case KindUnset:
		return "unset"
	case KindLogic:
		if c.Int != 0 {
			return "true"
		}
		return "false"
	case KindInteger:
		return fmt.Sprintf("%d", c.Int)
	case KindDecimal:
		return fmt.Sprintf("%g", c.Flo)
	case KindChar:
		return string(rune(c.Int))
	case KindPair:
		return fmt.Sprintf("%gx%g", c.X, c.Y)
	case KindTuple:
		return c.Tup.String()
	case KindMoney:
		return "$" + c.Dec.String()
	case KindDate:
		return fmt.Sprintf("date(%d)", c.Int)
	case KindString, KindIssue:
		if c.Ser != nil {
			return string(c.Ser.Bytes()[c.Index()*c.Ser.Wide():])
		}
		return ""
	case KindBinary:
		if c.Ser != nil {
			return fmt.Sprintf("#{%x}", c.Ser.Bytes()[c.Index():])
		}
		return "#{}"
	case KindBlock:
		return "block"
	case KindBitset:
		return "bitset"
	case KindTypeset:
		return fmt.Sprintf("typeset(%#x)", uint64(c.Int))
	case KindPort:
		return "port"
	case KindEvent:
		return "event"
	case KindHandle:
		if c.H != nil {
			return "handle:" + c.H.Name
		}
		return "handle"
	default:
		return fmt.Sprintf("<unknown:%d>", c.Kind)
	}
}
