package value

import "github.com/gloudx/longtable/langerr"

// Add implements numeric promotion (Int+Int=Int, any Float=Float) plus
// string concatenation for `+`. Other kind combinations are a type
// error.
func Add(a, b Value) (Value, error) {
	if a.Kind() == KindString && b.Kind() == KindString {
		return Str(a.AsString() + b.AsString()), nil
	}
	return numericOp(a, b, func(x, y int64) int64 { return x + y }, func(x, y float64) float64 { return x + y })
}

func Sub(a, b Value) (Value, error) {
	return numericOp(a, b, func(x, y int64) int64 { return x - y }, func(x, y float64) float64 { return x - y })
}

func Mul(a, b Value) (Value, error) {
	return numericOp(a, b, func(x, y int64) int64 { return x * y }, func(x, y float64) float64 { return x * y })
}

func Div(a, b Value) (Value, error) {
	if isZero(b) {
		return Nil, langerr.DivisionByZero()
	}
	return numericOp(a, b, func(x, y int64) int64 { return x / y }, func(x, y float64) float64 { return x / y })
}

func Mod(a, b Value) (Value, error) {
	if isZero(b) {
		return Nil, langerr.DivisionByZero()
	}
	return numericOp(a, b, func(x, y int64) int64 { return x % y }, func(x, y float64) float64 {
		m := x - y*float64(int64(x/y))
		return m
	})
}

func isZero(v Value) bool {
	switch v.Kind() {
	case KindInt:
		return v.AsInt() == 0
	case KindFloat:
		return v.AsFloat() == 0.0
	default:
		return false
	}
}

func numericOp(a, b Value, intOp func(int64, int64) int64, floatOp func(float64, float64) float64) (Value, error) {
	switch {
	case a.Kind() == KindInt && b.Kind() == KindInt:
		return Int(intOp(a.AsInt(), b.AsInt())), nil
	case a.Kind() == KindFloat && b.Kind() == KindFloat:
		return Float(floatOp(a.AsFloat(), b.AsFloat())), nil
	case a.Kind() == KindInt && b.Kind() == KindFloat:
		return Float(floatOp(float64(a.AsInt()), b.AsFloat())), nil
	case a.Kind() == KindFloat && b.Kind() == KindInt:
		return Float(floatOp(a.AsFloat(), float64(b.AsInt()))), nil
	default:
		return Nil, langerr.TypeMismatch("int or float", a.TypeName()+" and "+b.TypeName())
	}
}

func Neg(a Value) (Value, error) {
	switch a.Kind() {
	case KindInt:
		return Int(-a.AsInt()), nil
	case KindFloat:
		return Float(-a.AsFloat()), nil
	default:
		return Nil, langerr.TypeMismatch("int or float", a.TypeName())
	}
}
