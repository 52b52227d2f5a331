package value

import (
	"math/big"

	"github.com/shopspring/decimal"

	"rebo/internal/fault"
)

// MoneyOp selects a money arithmetic operation.
type MoneyOp uint8

const (
	MoneyAdd MoneyOp = iota
	MoneySub
	MoneyMul
	MoneyDiv
)

// moneyDivPrecision bounds the scale of money division results.
const moneyDivPrecision = 12

// asMoney promotes an integer or decimal operand to money.
func asMoney(c Cell) (decimal.Decimal, *fault.Error) {
	switch c.Kind {
	case KindMoney:
		return c.Dec, nil
	case KindInteger:
		return decimal.NewFromInt(c.Int), nil
	case KindDecimal:
		return decimal.NewFromFloat(c.Flo), nil
	default:
		return decimal.Decimal{}, fault.New(fault.ErrBadMake, "cannot use %s as money", c.Kind)
	}
}

// MoneyMath performs money arithmetic, delegating to the decimal
// library.
func MoneyMath(op MoneyOp, a, b Cell) (Cell, *fault.Error) {
	x, err := asMoney(a)
	if err != nil {
		return Cell{}, err
	}
	y, err := asMoney(b)
	if err != nil {
		return Cell{}, err
	}
	switch op {
	case MoneyAdd:
		return MakeMoney(x.Add(y)), nil
	case MoneySub:
		return MakeMoney(x.Sub(y)), nil
	case MoneyMul:
		return MakeMoney(x.Mul(y)), nil
	case MoneyDiv:
		if y.IsZero() {
			return Cell{}, fault.New(fault.ErrZeroDivide, "money divide by zero")
		}
		return MakeMoney(x.DivRound(y, moneyDivPrecision)), nil
	default:
		return Cell{}, fault.New(fault.ErrBadMake, "unknown money op %d", op)
	}
}

// MoneyNegate returns the negated amount.
func MoneyNegate(c Cell) Cell { return MakeMoney(c.Dec.Neg()) }

// MoneyAbs returns the absolute amount.
func MoneyAbs(c Cell) Cell { return MakeMoney(c.Dec.Abs()) }

// MoneyRound rounds to the scale argument. The result keeps the scale's
// datatype: an integer scale yields an integer, a decimal scale a
// decimal, anything else money.
func MoneyRound(c Cell, scale Cell) (Cell, *fault.Error) {
	switch scale.Kind {
	case KindInteger:
		if scale.Int <= 0 {
			return Cell{}, fault.New(fault.ErrBadMake, "money round scale must be positive")
		}
		step := decimal.NewFromInt(scale.Int)
		r := c.Dec.Div(step).Round(0).Mul(step)
		return MakeInteger(r.IntPart()), nil
	case KindDecimal:
		if scale.Flo <= 0 {
			return Cell{}, fault.New(fault.ErrBadMake, "money round scale must be positive")
		}
		step := decimal.NewFromFloat(scale.Flo)
		r := c.Dec.Div(step).Round(0).Mul(step)
		f, _ := r.Float64()
		return MakeDecimal(f), nil
	case KindMoney:
		if scale.Dec.IsZero() {
			return Cell{}, fault.New(fault.ErrBadMake, "money round scale must be positive")
		}
		r := c.Dec.Div(scale.Dec).Round(0).Mul(scale.Dec)
		return MakeMoney(r), nil
	default:
		// Default rounding to whole units.
		return MakeMoney(c.Dec.Round(0)), nil
	}
}

// MoneyFromString parses decimal text into money.
func MoneyFromString(s string) (Cell, *fault.Error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Cell{}, fault.New(fault.ErrBadMake, "cannot make money from %q", s)
	}
	return MakeMoney(d), nil
}

// MoneyFromBytes builds money from up to 12 bytes, right-aligned, read
// as a big-endian two's-complement unscaled integer.
func MoneyFromBytes(data []byte) (Cell, *fault.Error) {
	if len(data) > 12 {
		return Cell{}, fault.New(fault.ErrBadMake, "money binary longer than 12 bytes")
	}
	var buf [12]byte
	copy(buf[12-len(data):], data)
	neg := len(data) > 0 && buf[12-len(data)]&0x80 != 0
	if neg {
		for i := 0; i < 12-len(data); i++ {
			buf[i] = 0xFF
		}
	}
	n := new(big.Int).SetBytes(buf[:])
	if neg {
		// Two's complement over the full 96 bits.
		n.Sub(n, new(big.Int).Lsh(big.NewInt(1), 96))
	}
	return MakeMoney(decimal.NewFromBigInt(n, 0)), nil
}
