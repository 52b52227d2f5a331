package value

import "rebo/internal/fault"

// PairOp selects a pair arithmetic operation.
type PairOp uint8

const (
	PairAdd PairOp = iota
	PairSub
	PairMul
	PairDiv
)

// asPair broadcasts a scalar cell to a pair. Integers and decimals
// promote; anything else is a bad-make.
func asPair(c Cell) (x, y float32, err *fault.Error) {
	switch c.Kind {
	case KindPair:
		return c.X, c.Y, nil
	case KindInteger:
		f := float32(c.Int)
		return f, f, nil
	case KindDecimal:
		f := float32(c.Flo)
		return f, f, nil
	default:
		return 0, 0, fault.New(fault.ErrBadMake, "cannot use %s as pair", c.Kind)
	}
}

// PairMath performs element-wise pair arithmetic with scalar broadcast.
func PairMath(op PairOp, a, b Cell) (Cell, *fault.Error) {
	ax, ay, err := asPair(a)
	if err != nil {
		return Cell{}, err
	}
	bx, by, err := asPair(b)
	if err != nil {
		return Cell{}, err
	}
	switch op {
	case PairAdd:
		return MakePair(ax+bx, ay+by), nil
	case PairSub:
		return MakePair(ax-bx, ay-by), nil
	case PairMul:
		return MakePair(ax*bx, ay*by), nil
	case PairDiv:
		if bx == 0 || by == 0 {
			return Cell{}, fault.New(fault.ErrZeroDivide, "pair divide by zero")
		}
		return MakePair(ax/bx, ay/by), nil
	default:
		return Cell{}, fault.New(fault.ErrBadMake, "unknown pair op %d", op)
	}
}

// PairReverse swaps the x and y components.
func PairReverse(c Cell) Cell { return MakePair(c.Y, c.X) }

// PairPick reads a component by selector: 'x'/'y' or 1/2.
func PairPick(c Cell, sel Cell) (Cell, *fault.Error) {
	switch pairSelector(sel) {
	case 1:
		return MakeDecimal(float64(c.X)), nil
	case 2:
		return MakeDecimal(float64(c.Y)), nil
	default:
		return Cell{}, fault.New(fault.ErrPastEnd, "invalid pair selector")
	}
}

// PairPoke writes a component by selector and returns the updated pair.
func PairPoke(c Cell, sel, val Cell) (Cell, *fault.Error) {
	var f float32
	switch val.Kind {
	case KindInteger:
		f = float32(val.Int)
	case KindDecimal:
		f = float32(val.Flo)
	default:
		return Cell{}, fault.New(fault.ErrBadMake, "cannot set pair component from %s", val.Kind)
	}
	switch pairSelector(sel) {
	case 1:
		return MakePair(f, c.Y), nil
	case 2:
		return MakePair(c.X, f), nil
	default:
		return Cell{}, fault.New(fault.ErrPastEnd, "invalid pair selector")
	}
}

func pairSelector(sel Cell) int {
	switch sel.Kind {
	case KindInteger:
		return int(sel.Int)
	case KindChar, KindString, KindIssue:
		switch Form(sel) {
		case "x", "X":
			return 1
		case "y", "Y":
			return 2
		}
	}
	return 0
}

// PairCompare orders pairs lexicographically on (y, x).
func PairCompare(a, b Cell) int {
	switch {
	case a.Y < b.Y:
		return -1
	case a.Y > b.Y:
		return 1
	case a.X < b.X:
		return -1
	case a.X > b.X:
		return 1
	default:
		return 0
	}
}
