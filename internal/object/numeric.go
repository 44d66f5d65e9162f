package object

import "cmp"

// Numeric is the arithmetic view of an Int or Real.
type Numeric struct {
	Int    int64
	Real   float64
	IsReal bool
}

func (n Numeric) Float() float64 {
	if n.IsReal {
		return n.Real
	}
	return float64(n.Int)
}

// AsNumeric returns the arithmetic view of o; ok is false for anything but
// Int and Real.
func AsNumeric(o Object) (n Numeric, ok bool) {
	switch v := o.(type) {
	case *Int:
		return Numeric{Int: v.Value}, true
	case *Real:
		return Numeric{Real: v.Value, IsReal: true}, true
	}
	return Numeric{}, false
}

// IsComparable reports whether o supports EqualTo/Compare at all.
func IsComparable(o Object) bool {
	switch o.(type) {
	case *Int, *Real, *Bool:
		return true
	}
	return false
}

func Add(a, b Object) (Object, error) {
	return arithmetic("plus", a, b,
		func(x, y int64) int64 { return x + y },
		func(x, y float64) float64 { return x + y })
}

func Subtract(a, b Object) (Object, error) {
	return arithmetic("minus", a, b,
		func(x, y int64) int64 { return x - y },
		func(x, y float64) float64 { return x - y })
}

func Multiply(a, b Object) (Object, error) {
	return arithmetic("times", a, b,
		func(x, y int64) int64 { return x * y },
		func(x, y float64) float64 { return x * y })
}

// Divide always promotes to Real; a zero divisor follows IEEE 754.
func Divide(a, b Object) (Object, error) {
	return arithmetic("divide", a, b, nil,
		func(x, y float64) float64 { return x / y })
}

func arithmetic(op string, a, b Object, ints func(x, y int64) int64, reals func(x, y float64) float64) (Object, error) {
	x, ok := AsNumeric(a)
	if !ok {
		return nil, newTypeError(op, "left operand must be numeric, got %s", a.Type())
	}
	y, ok := AsNumeric(b)
	if !ok {
		return nil, newTypeError(op, "right operand must be numeric, got %s", b.Type())
	}
	if ints != nil && !x.IsReal && !y.IsReal {
		return &Int{Value: ints(x.Int, y.Int)}, nil
	}
	return &Real{Value: reals(x.Float(), y.Float())}, nil
}

// EqualTo never fails: pairs outside {Int,Real}x{Int,Real} and {Bool,Bool}
// are simply unequal.
func EqualTo(a, b Object) bool {
	if x, ok := AsNumeric(a); ok {
		y, ok := AsNumeric(b)
		if !ok {
			return false
		}
		return compareNumeric(x, y) == 0
	}
	if x, ok := a.(*Bool); ok {
		if y, ok := b.(*Bool); ok {
			return x.Value == y.Value
		}
	}
	return false
}

// Compare orders two numerics, returning -1, 0 or 1. Everything else,
// including two Bools, is a TypeError.
func Compare(a, b Object) (int, error) {
	x, ok := AsNumeric(a)
	if !ok {
		return 0, newTypeError("compare", "ordering is not defined for %s", a.Type())
	}
	y, ok := AsNumeric(b)
	if !ok {
		return 0, newTypeError("compare", "ordering is not defined for %s", b.Type())
	}
	return compareNumeric(x, y), nil
}

func compareNumeric(x, y Numeric) int {
	if !x.IsReal && !y.IsReal {
		return cmp.Compare(x.Int, y.Int)
	}
	return cmp.Compare(x.Float(), y.Float())
}
