package prolog

// termRank orders the five term categories of the standard order of
// terms: Var < Number < Atom < OpaqueHandle < Compound (there is no
// separate String type — double-quoted text already became a
// code/char list or atom at read time per the double_quotes flag).
func termRank(t Term) int {
	switch t.(type) {
	case *Variable:
		return 0
	case Float, Int, Decimal:
		return 1
	case Atom:
		return 2
	case OpaqueHandle:
		return 3
	case *Compound:
		return 4
	default:
		return 5
	}
}

// CompareTerms implements the standard order of terms (@</2 family,
// compare/3, msort/2, sort/2): Var by id, numbers by value, atoms by
// name, compounds by arity then functor name then arguments
// left-to-right.
func CompareTerms(b *Bindings, x, y Term) int {
	x, y = b.Deref(x), b.Deref(y)
	rx, ry := termRank(x), termRank(y)
	if rx != ry {
		return rx - ry
	}
	switch xv := x.(type) {
	case *Variable:
		yv := y.(*Variable)
		switch {
		case xv.id < yv.id:
			return -1
		case xv.id > yv.id:
			return 1
		default:
			return 0
		}
	case Int, Float, Decimal:
		return numCompare(x, y)
	case Atom:
		yv := y.(Atom)
		return compareStrings(xv.Name(), yv.Name())
	case OpaqueHandle:
		yv := y.(OpaqueHandle)
		return compareStrings(xv.String(), yv.String())
	case *Compound:
		yv := y.(*Compound)
		if xv.Tag.Arity != yv.Tag.Arity {
			return xv.Tag.Arity - yv.Tag.Arity
		}
		if c := compareStrings(xv.Tag.Functor.Name(), yv.Tag.Functor.Name()); c != 0 {
			return c
		}
		for i := range xv.Args {
			if c := CompareTerms(b, xv.Args[i], yv.Args[i]); c != 0 {
				return c
			}
		}
		return 0
	}
	return 0
}

func compareStrings(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
