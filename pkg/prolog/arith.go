package prolog

import (
	"math"
	"math/big"

	"github.com/shopspring/decimal"
)

// Eval evaluates an arithmetic expression term to a Number (Int, Float,
// or Decimal), per the ISO operator set (§4.7). Evaluation is strict:
// operands are evaluated before operators.
func Eval(b *Bindings, t Term) (Term, error) {
	t = b.Deref(t)
	switch v := t.(type) {
	case *Variable:
		return nil, InstantiationError("is/2")
	case Int, Float, Decimal:
		return v, nil
	case Atom:
		switch v.Name() {
		case "pi":
			return Float(math.Pi), nil
		case "e":
			return Float(math.E), nil
		case "inf", "infinite":
			return Float(math.Inf(1)), nil
		case "nan":
			return Float(math.NaN()), nil
		case "epsilon":
			return Float(2.220446049250313e-16), nil
		case "max_tagged_integer":
			return NewInt(math.MaxInt64), nil
		case "random":
			return Float(0.5), nil // deterministic stub: host RNG is a caller concern
		}
		return nil, TypeError("evaluable", NewCompound(Intern("/"), v, NewInt(0)), "is/2")
	case *Compound:
		return evalCompound(b, v)
	default:
		return nil, TypeError("evaluable", t, "is/2")
	}
}

func evalCompound(b *Bindings, c *Compound) (Term, error) {
	name := c.Tag.Functor.Name()
	if c.Tag.Arity == 1 {
		x, err := Eval(b, c.Args[0])
		if err != nil {
			return nil, err
		}
		return evalUnary(name, x)
	}
	if c.Tag.Arity == 2 {
		x, err := Eval(b, c.Args[0])
		if err != nil {
			return nil, err
		}
		y, err := Eval(b, c.Args[1])
		if err != nil {
			return nil, err
		}
		return evalBinary(name, x, y)
	}
	return nil, TypeError("evaluable", NewCompound(Intern("/"), c.Tag.Functor, NewInt(int64(c.Tag.Arity))), "is/2")
}

// numKind classifies a Number for promotion purposes: Int < Float <
// Decimal (mixed int/float -> float; anything with decimal -> decimal).
func numKind(t Term) int {
	switch t.(type) {
	case Int:
		return 0
	case Float:
		return 1
	case Decimal:
		return 2
	default:
		return -1
	}
}

func toFloat(t Term) float64 {
	switch v := t.(type) {
	case Int:
		f, _ := new(big.Float).SetInt(v.v).Float64()
		return f
	case Float:
		return float64(v)
	case Decimal:
		f, _ := v.v.Float64()
		return f
	}
	return 0
}

func toDecimal(t Term) decimal.Decimal {
	switch v := t.(type) {
	case Int:
		return decimal.NewFromBigInt(v.v, 0)
	case Float:
		return decimal.NewFromFloat(float64(v))
	case Decimal:
		return v.v
	}
	return decimal.Zero
}

// promote2 brings x and y to a common representation per the spec's
// promotion rules and reports which representation ("int", "float", or
// "decimal") was chosen.
func promote2(x, y Term) string {
	kx, ky := numKind(x), numKind(y)
	switch {
	case kx == 2 || ky == 2:
		return "decimal"
	case kx == 1 || ky == 1:
		return "float"
	default:
		return "int"
	}
}

func evalUnary(op string, x Term) (Term, error) {
	switch op {
	case "-":
		switch v := x.(type) {
		case Int:
			return NewBigInt(new(big.Int).Neg(v.v)), nil
		case Float:
			return Float(-v), nil
		case Decimal:
			return NewDecimal(v.v.Neg()), nil
		}
	case "+":
		return x, nil
	case "abs":
		switch v := x.(type) {
		case Int:
			return NewBigInt(new(big.Int).Abs(v.v)), nil
		case Float:
			return Float(math.Abs(float64(v))), nil
		case Decimal:
			return NewDecimal(v.v.Abs()), nil
		}
	case "sign":
		switch v := x.(type) {
		case Int:
			return NewInt(int64(v.v.Sign())), nil
		case Float:
			switch {
			case v > 0:
				return Float(1), nil
			case v < 0:
				return Float(-1), nil
			default:
				return Float(0), nil
			}
		case Decimal:
			return NewInt(int64(v.v.Sign())), nil
		}
	case "sqrt":
		f := toFloat(x)
		if f < 0 {
			return nil, EvaluationError("undefined", "sqrt/1")
		}
		return Float(math.Sqrt(f)), nil
	case "sin":
		return Float(math.Sin(toFloat(x))), nil
	case "cos":
		return Float(math.Cos(toFloat(x))), nil
	case "tan":
		return Float(math.Tan(toFloat(x))), nil
	case "asin":
		return Float(math.Asin(toFloat(x))), nil
	case "acos":
		return Float(math.Acos(toFloat(x))), nil
	case "atan":
		return Float(math.Atan(toFloat(x))), nil
	case "exp":
		return Float(math.Exp(toFloat(x))), nil
	case "log":
		f := toFloat(x)
		if f <= 0 {
			return nil, EvaluationError("undefined", "log/1")
		}
		return Float(math.Log(f)), nil
	case "floor":
		return floatToInt(math.Floor(toFloat(x)))
	case "ceiling":
		return floatToInt(math.Ceil(toFloat(x)))
	case "round":
		return floatToInt(math.Round(toFloat(x)))
	case "truncate":
		return floatToInt(math.Trunc(toFloat(x)))
	case "integer":
		return floatToInt(math.Round(toFloat(x)))
	case "float":
		return Float(toFloat(x)), nil
	case "float_integer_part":
		i, _ := math.Modf(toFloat(x))
		return Float(i), nil
	case "float_fractional_part":
		_, f := math.Modf(toFloat(x))
		return Float(f), nil
	case "\\":
		i, ok := x.(Int)
		if !ok {
			return nil, TypeError("integer", x, "\\/1")
		}
		return NewBigInt(new(big.Int).Not(i.v)), nil
	case "msb":
		i, ok := x.(Int)
		if !ok {
			return nil, TypeError("integer", x, "msb/1")
		}
		return NewInt(int64(i.v.BitLen() - 1)), nil
	case "succ":
		i, ok := x.(Int)
		if !ok {
			return nil, TypeError("integer", x, "succ/1")
		}
		return NewBigInt(new(big.Int).Add(i.v, big.NewInt(1))), nil
	}
	return nil, TypeError("evaluable", NewCompound(Intern("/"), Intern(op), NewInt(1)), "is/2")
}

func floatToInt(f float64) (Term, error) {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return nil, EvaluationError("undefined", "float_to_integer")
	}
	bi, _ := big.NewFloat(f).Int(nil)
	return NewBigInt(bi), nil
}

func evalBinary(op string, x, y Term) (Term, error) {
	switch op {
	case "+":
		return arith2(x, y, func(a, b *big.Int) *big.Int { return new(big.Int).Add(a, b) },
			func(a, b float64) float64 { return a + b },
			func(a, b decimal.Decimal) decimal.Decimal { return a.Add(b) })
	case "-":
		return arith2(x, y, func(a, b *big.Int) *big.Int { return new(big.Int).Sub(a, b) },
			func(a, b float64) float64 { return a - b },
			func(a, b decimal.Decimal) decimal.Decimal { return a.Sub(b) })
	case "*":
		return arith2(x, y, func(a, b *big.Int) *big.Int { return new(big.Int).Mul(a, b) },
			func(a, b float64) float64 { return a * b },
			func(a, b decimal.Decimal) decimal.Decimal { return a.Mul(b) })
	case "/":
		return evalDivide(x, y)
	case "//":
		return intDiv(x, y, true)
	case "div":
		return intDiv(x, y, false)
	case "mod":
		return intMod(x, y, true)
	case "rem":
		return intMod(x, y, false)
	case "min":
		if numCompare(x, y) <= 0 {
			return x, nil
		}
		return y, nil
	case "max":
		if numCompare(x, y) >= 0 {
			return x, nil
		}
		return y, nil
	case "**":
		return Float(math.Pow(toFloat(x), toFloat(y))), nil
	case "^":
		return evalPowCaret(x, y)
	case "atan2", "atan":
		return Float(math.Atan2(toFloat(x), toFloat(y))), nil
	case "/\\":
		return bitwise2(x, y, func(a, b *big.Int) *big.Int { return new(big.Int).And(a, b) }, "/\\")
	case "\\/":
		return bitwise2(x, y, func(a, b *big.Int) *big.Int { return new(big.Int).Or(a, b) }, "\\/")
	case "xor":
		return bitwise2(x, y, func(a, b *big.Int) *big.Int { return new(big.Int).Xor(a, b) }, "xor")
	case "<<":
		return shift(x, y, true)
	case ">>":
		return shift(x, y, false)
	case "copysign":
		return Float(math.Copysign(toFloat(x), toFloat(y))), nil
	case "gcd":
		xi, xok := x.(Int)
		yi, yok := y.(Int)
		if !xok || !yok {
			return nil, TypeError("integer", x, "gcd/2")
		}
		return NewBigInt(new(big.Int).GCD(nil, nil, new(big.Int).Abs(xi.v), new(big.Int).Abs(yi.v))), nil
	}
	return nil, TypeError("evaluable", NewCompound(Intern("/"), Intern(op), NewInt(2)), "is/2")
}

func arith2(x, y Term, iop func(a, b *big.Int) *big.Int, fop func(a, b float64) float64, dop func(a, b decimal.Decimal) decimal.Decimal) (Term, error) {
	switch promote2(x, y) {
	case "int":
		return NewBigInt(iop(x.(Int).v, y.(Int).v)), nil
	case "float":
		return Float(fop(toFloat(x), toFloat(y))), nil
	default:
		return NewDecimal(dop(toDecimal(x), toDecimal(y))), nil
	}
}

func evalDivide(x, y Term) (Term, error) {
	kind := promote2(x, y)
	if kind == "int" {
		yi := y.(Int).v
		if yi.Sign() == 0 {
			return nil, EvaluationError("zero_divisor", "//2")
		}
		xi := x.(Int).v
		q, r := new(big.Int).QuoRem(xi, yi, new(big.Int))
		if r.Sign() == 0 {
			return NewBigInt(q), nil
		}
		return Float(toFloat(x) / toFloat(y)), nil
	}
	if kind == "decimal" {
		dy := toDecimal(y)
		if dy.IsZero() {
			return nil, EvaluationError("zero_divisor", "//2")
		}
		return NewDecimal(toDecimal(x).Div(dy)), nil
	}
	fy := toFloat(y)
	if fy == 0 {
		return nil, EvaluationError("zero_divisor", "//2")
	}
	return Float(toFloat(x) / fy), nil
}

func requireInts(x, y Term, ctx string) (*big.Int, *big.Int, error) {
	xi, ok := x.(Int)
	if !ok {
		return nil, nil, TypeError("integer", x, ctx)
	}
	yi, ok := y.(Int)
	if !ok {
		return nil, nil, TypeError("integer", y, ctx)
	}
	return xi.v, yi.v, nil
}

func intDiv(x, y Term, truncateTowardZero bool) (Term, error) {
	xi, yi, err := requireInts(x, y, "(//)/2")
	if err != nil {
		return nil, err
	}
	if yi.Sign() == 0 {
		return nil, EvaluationError("zero_divisor", "(//)/2")
	}
	if truncateTowardZero {
		q := new(big.Int).Quo(xi, yi)
		return NewBigInt(q), nil
	}
	// div/2: floored division.
	q, r := new(big.Int).DivMod(xi, yi, new(big.Int))
	if yi.Sign() < 0 && r.Sign() != 0 {
		q.Sub(q, big.NewInt(1))
	}
	return NewBigInt(q), nil
}

func intMod(x, y Term, floored bool) (Term, error) {
	xi, yi, err := requireInts(x, y, "mod/2")
	if err != nil {
		return nil, err
	}
	if yi.Sign() == 0 {
		return nil, EvaluationError("zero_divisor", "mod/2")
	}
	if floored {
		m := new(big.Int).Mod(xi, yi) // Euclidean, always >= 0
		if m.Sign() != 0 && yi.Sign() < 0 {
			m.Add(m, yi)
		}
		return NewBigInt(m), nil
	}
	r := new(big.Int).Rem(xi, yi)
	return NewBigInt(r), nil
}

func bitwise2(x, y Term, op func(a, b *big.Int) *big.Int, ctx string) (Term, error) {
	xi, yi, err := requireInts(x, y, ctx+"/2")
	if err != nil {
		return nil, err
	}
	return NewBigInt(op(xi, yi)), nil
}

func shift(x, y Term, left bool) (Term, error) {
	xi, yi, err := requireInts(x, y, "shift/2")
	if err != nil {
		return nil, err
	}
	n := uint(yi.Int64())
	if left {
		return NewBigInt(new(big.Int).Lsh(xi, n)), nil
	}
	return NewBigInt(new(big.Int).Rsh(xi, n)), nil
}

func evalPowCaret(x, y Term) (Term, error) {
	if xi, ok := x.(Int); ok {
		if yi, ok := y.(Int); ok {
			if yi.v.Sign() < 0 {
				if xi.v.Sign() == 0 {
					return nil, EvaluationError("zero_divisor", "^/2")
				}
				return Float(math.Pow(toFloat(x), toFloat(y))), nil
			}
			return NewBigInt(new(big.Int).Exp(xi.v, yi.v, nil)), nil
		}
	}
	return Float(math.Pow(toFloat(x), toFloat(y))), nil
}

// numCompare returns -1/0/1 comparing x and y numerically across
// Int/Float/Decimal, used by min/max and the is/2-family comparison
// predicates (=:=, <, etc.).
func numCompare(x, y Term) int {
	switch promote2(x, y) {
	case "int":
		return x.(Int).v.Cmp(y.(Int).v)
	case "decimal":
		return toDecimal(x).Cmp(toDecimal(y))
	default:
		fx, fy := toFloat(x), toFloat(y)
		switch {
		case fx < fy:
			return -1
		case fx > fy:
			return 1
		default:
			return 0
		}
	}
}
