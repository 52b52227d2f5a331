package value

import (
	"strconv"
	"strings"

	"fortio.org/safecast"

	"rebo/internal/fault"
)

// MaxTupleLen is the most bytes a tuple carries.
const MaxTupleLen = 10

// Tuple is a length-prefixed run of up to ten unsigned bytes. Unused
// trailing bytes stay zero.
type Tuple struct {
	Len  uint8
	Data [MaxTupleLen]byte
}

// String renders the tuple in dotted form.
func (t Tuple) String() string {
	var sb strings.Builder
	for i := 0; i < int(t.Len); i++ {
		if i > 0 {
			sb.WriteByte('.')
		}
		sb.WriteString(strconv.Itoa(int(t.Data[i])))
	}
	return sb.String()
}

// ParseTuple parses dotted form back into a tuple.
func ParseTuple(s string) (Tuple, *fault.Error) {
	var t Tuple
	if s == "" {
		return t, fault.New(fault.ErrBadMake, "empty tuple text")
	}
	for _, part := range strings.Split(s, ".") {
		n, err := strconv.Atoi(part)
		if err != nil {
			return Tuple{}, fault.New(fault.ErrBadMake, "invalid tuple component %q", part)
		}
		b, cerr := safecast.Conv[uint8](n)
		if cerr != nil {
			return Tuple{}, fault.New(fault.ErrBadMake, "tuple component %d out of range", n)
		}
		if t.Len >= MaxTupleLen {
			return Tuple{}, fault.New(fault.ErrBadMake, "tuple longer than %d bytes", MaxTupleLen)
		}
		t.Data[t.Len] = b
		t.Len++
	}
	return t, nil
}

// TupleFromBlock builds a tuple from a block of integers and chars.
func TupleFromBlock(c Cell) (Tuple, *fault.Error) {
	var t Tuple
	if c.Ser == nil {
		return t, fault.New(fault.ErrBadMake, "cannot make tuple from empty block")
	}
	for _, el := range c.Ser.Cells()[c.Index():] {
		if el.Kind != KindInteger && el.Kind != KindChar {
			return Tuple{}, fault.New(fault.ErrBadMake, "cannot make tuple from %s", el.Kind)
		}
		b, err := safecast.Conv[uint8](el.Int)
		if err != nil {
			return Tuple{}, fault.New(fault.ErrBadMake, "tuple component %d out of range", el.Int)
		}
		if t.Len >= MaxTupleLen {
			return Tuple{}, fault.New(fault.ErrBadMake, "tuple longer than %d bytes", MaxTupleLen)
		}
		t.Data[t.Len] = b
		t.Len++
	}
	return t, nil
}

// TupleFromBytes builds a tuple from raw bytes (binary construction).
func TupleFromBytes(data []byte) (Tuple, *fault.Error) {
	if len(data) > MaxTupleLen {
		data = data[:MaxTupleLen]
	}
	var t Tuple
	t.Len = uint8(len(data))
	copy(t.Data[:], data)
	return t, nil
}

// TupleFromIssue builds a tuple from hex issue text, one byte per pair
// of hex digits.
func TupleFromIssue(s string) (Tuple, *fault.Error) {
	if len(s)%2 != 0 || len(s) == 0 || len(s)/2 > MaxTupleLen {
		return Tuple{}, fault.New(fault.ErrBadMake, "invalid hex issue %q", s)
	}
	var t Tuple
	for i := 0; i < len(s); i += 2 {
		n, err := strconv.ParseUint(s[i:i+2], 16, 8)
		if err != nil {
			return Tuple{}, fault.New(fault.ErrBadMake, "invalid hex issue %q", s)
		}
		t.Data[t.Len] = byte(n)
		t.Len++
	}
	return t, nil
}

// TupleCompare compares byte-by-byte up to the longer length, treating
// missing bytes as zero.
func TupleCompare(a, b Tuple) int {
	n := int(a.Len)
	if int(b.Len) > n {
		n = int(b.Len)
	}
	for i := 0; i < n; i++ {
		var x, y byte
		if i < int(a.Len) {
			x = a.Data[i]
		}
		if i < int(b.Len) {
			y = b.Data[i]
		}
		if x != y {
			if x < y {
				return -1
			}
			return 1
		}
	}
	return 0
}

// TupleOp selects a tuple arithmetic or bitwise operation.
type TupleOp uint8

const (
	TupAdd TupleOp = iota
	TupSub
	TupMul
	TupDiv
	TupAnd
	TupOr
	TupXor
)

// clampByte saturates an integer into [0, 255].
func clampByte(n int64) byte {
	if n < 0 {
		return 0
	}
	if n > 255 {
		return 255
	}
	return byte(n)
}

// TupleMath performs element-wise tuple arithmetic with saturation.
// Mixing with a decimal does the arithmetic in floating point first and
// casts the result. The second operand may be a tuple, an integer, or a
// decimal (broadcast).
func TupleMath(op TupleOp, a Cell, b Cell) (Cell, *fault.Error) {
	t := a.Tup
	n := int(t.Len)

	bVal := func(i int) (int64, float64, bool, *fault.Error) {
		switch b.Kind {
		case KindTuple:
			var v byte
			if i < int(b.Tup.Len) {
				v = b.Tup.Data[i]
			}
			return int64(v), float64(v), false, nil
		case KindInteger:
			return b.Int, float64(b.Int), false, nil
		case KindDecimal:
			return int64(b.Flo), b.Flo, true, nil
		default:
			return 0, 0, false, fault.New(fault.ErrBadMake, "cannot use %s in tuple math", b.Kind)
		}
	}
	if b.Kind == KindTuple && int(b.Tup.Len) > n {
		n = int(b.Tup.Len)
	}
	if n > MaxTupleLen {
		n = MaxTupleLen
	}

	var out Tuple
	out.Len = uint8(n)
	for i := 0; i < n; i++ {
		var av byte
		if i < int(t.Len) {
			av = t.Data[i]
		}
		bi, bf, isFloat, err := bVal(i)
		if err != nil {
			return Cell{}, err
		}
		switch op {
		case TupAdd:
			if isFloat {
				out.Data[i] = clampByte(int64(float64(av) + bf))
			} else {
				out.Data[i] = clampByte(int64(av) + bi)
			}
		case TupSub:
			if isFloat {
				out.Data[i] = clampByte(int64(float64(av) - bf))
			} else {
				out.Data[i] = clampByte(int64(av) - bi)
			}
		case TupMul:
			if isFloat {
				out.Data[i] = clampByte(int64(float64(av) * bf))
			} else {
				out.Data[i] = clampByte(int64(av) * bi)
			}
		case TupDiv:
			if isFloat {
				if bf == 0 {
					return Cell{}, fault.New(fault.ErrZeroDivide, "tuple divide by zero")
				}
				out.Data[i] = clampByte(int64(float64(av) / bf))
			} else {
				if bi == 0 {
					return Cell{}, fault.New(fault.ErrZeroDivide, "tuple divide by zero")
				}
				out.Data[i] = clampByte(int64(av) / bi)
			}
		case TupAnd:
			out.Data[i] = av & byte(bi)
		case TupOr:
			out.Data[i] = av | byte(bi)
		case TupXor:
			out.Data[i] = av ^ byte(bi)
		default:
			return Cell{}, fault.New(fault.ErrBadMake, "unknown tuple op %d", op)
		}
	}
	return MakeTuple(out), nil
}
