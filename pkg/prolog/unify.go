package prolog

// unifyPair is a work-list item: two terms still to be made equal.
type unifyPair struct{ a, b Term }

// Unify attempts to make a and b equal, binding variables through
// bindings and recording every binding on the trail. On failure it
// leaves whatever bindings were made up to the point of failure on the
// trail — callers that need atomicity must Mark before calling and
// UnwindTo on failure (the interpreter's clause-call path does this).
//
// Algorithm, iterative and work-list based (§4.3):
//  1. pop a pair, deref both sides
//  2. same variable identity -> continue
//  3/4. either side an unbound variable -> bind it, continue
//  5. both atomic -> require value equality
//  6. both compounds with equal CompoundTag -> push argument pairs
//  7. otherwise fail
func Unify(bindings *Bindings, a, b Term) bool {
	work := []unifyPair{{a, b}}
	for len(work) > 0 {
		p := work[len(work)-1]
		work = work[:len(work)-1]

		x := bindings.Deref(p.a)
		y := bindings.Deref(p.b)

		if xv, ok := x.(*Variable); ok {
			if yv, ok := y.(*Variable); ok && xv.id == yv.id {
				continue
			}
			bindings.Bind(xv, y)
			continue
		}
		if yv, ok := y.(*Variable); ok {
			bindings.Bind(yv, x)
			continue
		}

		xc, xIsCompound := x.(*Compound)
		yc, yIsCompound := y.(*Compound)
		if xIsCompound || yIsCompound {
			if !xIsCompound || !yIsCompound || xc.Tag != yc.Tag {
				return false
			}
			// Push the last pair first so arguments are unified left to right.
			for i := len(xc.Args) - 1; i >= 0; i-- {
				work = append(work, unifyPair{xc.Args[i], yc.Args[i]})
			}
			continue
		}

		if !numericOrAtomicEqual(x, y) {
			return false
		}
	}
	return true
}

// numericOrAtomicEqual implements the spec's value-semantics equality
// for the non-variable, non-compound case: atoms by identity, integers
// by magnitude, floats by IEEE equality (NaN never unifies), decimals by
// normalized value, opaque handles by identity.
func numericOrAtomicEqual(x, y Term) bool {
	switch xv := x.(type) {
	case Atom:
		yv, ok := y.(Atom)
		return ok && xv.Equal(yv)
	case Int:
		switch yv := y.(type) {
		case Int:
			return xv.Equal(yv)
		case Float:
			return false // distinct types never unify under ISO unification
		case Decimal:
			return false
		}
		return false
	case Float:
		yv, ok := y.(Float)
		return ok && xv.Equal(yv)
	case Decimal:
		yv, ok := y.(Decimal)
		return ok && xv.Equal(yv)
	case OpaqueHandle:
		yv, ok := y.(OpaqueHandle)
		return ok && xv.Equal(yv)
	default:
		return false
	}
}

// UnifyOccursCheck is the sound variant of Unify: before binding a
// variable to a term, it verifies the variable does not occur within
// that term (a depth-first traversal), failing instead of creating a
// cyclic structure (P4).
func UnifyOccursCheck(bindings *Bindings, a, b Term) bool {
	work := []unifyPair{{a, b}}
	for len(work) > 0 {
		p := work[len(work)-1]
		work = work[:len(work)-1]

		x := bindings.Deref(p.a)
		y := bindings.Deref(p.b)

		if xv, ok := x.(*Variable); ok {
			if yv, ok := y.(*Variable); ok && xv.id == yv.id {
				continue
			}
			if occursIn(bindings, xv, y) {
				return false
			}
			bindings.Bind(xv, y)
			continue
		}
		if yv, ok := y.(*Variable); ok {
			if occursIn(bindings, yv, x) {
				return false
			}
			bindings.Bind(yv, x)
			continue
		}

		xc, xIsCompound := x.(*Compound)
		yc, yIsCompound := y.(*Compound)
		if xIsCompound || yIsCompound {
			if !xIsCompound || !yIsCompound || xc.Tag != yc.Tag {
				return false
			}
			for i := range xc.Args {
				work = append(work, unifyPair{xc.Args[i], yc.Args[i]})
			}
			continue
		}

		if !numericOrAtomicEqual(x, y) {
			return false
		}
	}
	return true
}

func occursIn(bindings *Bindings, v *Variable, t Term) bool {
	t = bindings.Deref(t)
	if tv, ok := t.(*Variable); ok {
		return tv.id == v.id
	}
	if c, ok := t.(*Compound); ok {
		for _, arg := range c.Args {
			if occursIn(bindings, v, arg) {
				return true
			}
		}
	}
	return false
}
