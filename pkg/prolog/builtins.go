package prolog

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"strings"
)

var backgroundCtx = context.Background()

// RegisterBuiltins installs every foreign predicate in env's database.
// Control constructs (","/2, ";"/2, "->"/2, "!"/0, call/N, catch/3,
// throw/1, findall/3, forall/2, once/1, \+/1, ...) are handled directly
// by the interpreter (interp.go) and are never looked up here.
func RegisterBuiltins(env *Environment) {
	def := func(name string, arity int, fn ForeignFunc) {
		env.DB.DefineForeign(Tag(Intern(name), arity), fn)
	}

	def("var", 1, biVar)
	def("nonvar", 1, biNonvar)
	def("atom", 1, biAtom)
	def("atomic", 1, biAtomic)
	def("number", 1, biNumber)
	def("integer", 1, biInteger)
	def("float", 1, biFloat)
	def("compound", 1, biCompound)
	def("callable", 1, biCallable)
	def("is_list", 1, biIsList)
	def("ground", 1, biGround)

	def("=", 2, biUnify)
	def("\\=", 2, biNotUnify)
	def("==", 2, biTermEqual)
	def("\\==", 2, biTermNotEqual)
	def("@<", 2, compareBuiltin(func(c int) bool { return c < 0 }))
	def("@>", 2, compareBuiltin(func(c int) bool { return c > 0 }))
	def("@=<", 2, compareBuiltin(func(c int) bool { return c <= 0 }))
	def("@>=", 2, compareBuiltin(func(c int) bool { return c >= 0 }))
	def("compare", 3, biCompare)

	def("is", 2, biIs)
	def("=:=", 2, arithCompareBuiltin(func(c int) bool { return c == 0 }))
	def("=\\=", 2, arithCompareBuiltin(func(c int) bool { return c != 0 }))
	def("<", 2, arithCompareBuiltin(func(c int) bool { return c < 0 }))
	def(">", 2, arithCompareBuiltin(func(c int) bool { return c > 0 }))
	def("=<", 2, arithCompareBuiltin(func(c int) bool { return c <= 0 }))
	def(">=", 2, arithCompareBuiltin(func(c int) bool { return c >= 0 }))

	def("functor", 3, biFunctor)
	def("arg", 3, biArg)
	def("=..", 2, biUniv)
	def("copy_term", 2, biCopyTerm)

	def("asserta", 1, biAsserta)
	def("assertz", 1, biAssertz)
	def("assert", 1, biAssertz)
	def("retract", 1, biRetract)
	def("retractall", 1, biRetractAll)
	def("abolish", 1, biAbolish)
	def("dynamic", 1, biDynamic)
	def("clause", 2, biClause)

	def("bagof", 3, biBagof)
	def("setof", 3, biSetof)
	def("aggregate_all", 3, biAggregateAll)
	def("between", 3, biBetween)
	def("length", 2, biLength)
	def("append", 3, biAppend)
	def("member", 2, biMember)
	def("nth0", 3, biNth0)
	def("msort", 2, biMsort)
	def("sort", 2, biSort)

	def("atom_codes", 2, biAtomCodes)
	def("atom_chars", 2, biAtomChars)
	def("atom_length", 2, biAtomLength)
	def("atom_concat", 3, biAtomConcat)
	def("char_code", 2, biCharCode)
	def("number_codes", 2, biNumberCodes)
	def("number_chars", 2, biNumberChars)
	def("sub_atom", 5, biSubAtom)
	def("upcase_atom", 2, biUpcaseAtom)
	def("downcase_atom", 2, biDowncaseAtom)

	def("write", 1, biWrite)
	def("writeln", 1, biWriteln)
	def("print", 1, biWrite)
	def("write_canonical", 1, biWriteCanonical)
	def("writeq", 1, biWriteq)
	def("nl", 0, biNl)
	def("tab", 1, biTab)
	def("halt", 0, biHalt0)
	def("halt", 1, biHalt1)

	def("op", 3, biOp)
	def("set_prolog_flag", 2, biSetFlag)
	def("current_prolog_flag", 2, biCurrentFlag)
}

func unaryTypeCheck(pred func(Term) bool) ForeignFunc {
	return func(i *Interpreter, args []Term, depth int) (Outcome, error) {
		if pred(i.Bindings.Deref(args[0])) {
			return OutcomeSucceed, nil
		}
		return OutcomeFail, nil
	}
}

func biVar(i *Interpreter, args []Term, depth int) (Outcome, error) {
	return unaryTypeCheck(func(t Term) bool { return t.IsVar() })(i, args, depth)
}
func biNonvar(i *Interpreter, args []Term, depth int) (Outcome, error) {
	return unaryTypeCheck(func(t Term) bool { return !t.IsVar() })(i, args, depth)
}
func biAtom(i *Interpreter, args []Term, depth int) (Outcome, error) {
	return unaryTypeCheck(func(t Term) bool { _, ok := t.(Atom); return ok })(i, args, depth)
}
func biAtomic(i *Interpreter, args []Term, depth int) (Outcome, error) {
	return unaryTypeCheck(IsAtomic)(i, args, depth)
}
func biNumber(i *Interpreter, args []Term, depth int) (Outcome, error) {
	return unaryTypeCheck(IsNumber)(i, args, depth)
}
func biInteger(i *Interpreter, args []Term, depth int) (Outcome, error) {
	return unaryTypeCheck(func(t Term) bool { _, ok := t.(Int); return ok })(i, args, depth)
}
func biFloat(i *Interpreter, args []Term, depth int) (Outcome, error) {
	return unaryTypeCheck(func(t Term) bool { _, ok := t.(Float); return ok })(i, args, depth)
}
func biCompound(i *Interpreter, args []Term, depth int) (Outcome, error) {
	return unaryTypeCheck(func(t Term) bool { _, ok := t.(*Compound); return ok })(i, args, depth)
}
func biCallable(i *Interpreter, args []Term, depth int) (Outcome, error) {
	return unaryTypeCheck(IsCallable)(i, args, depth)
}
func biIsList(i *Interpreter, args []Term, depth int) (Outcome, error) {
	_, ok := ListSlice(i.Bindings, args[0])
	if ok {
		return OutcomeSucceed, nil
	}
	return OutcomeFail, nil
}
func biGround(i *Interpreter, args []Term, depth int) (Outcome, error) {
	if isGround(i.Bindings, args[0]) {
		return OutcomeSucceed, nil
	}
	return OutcomeFail, nil
}

func isGround(b *Bindings, t Term) bool {
	t = b.Deref(t)
	switch v := t.(type) {
	case *Variable:
		return false
	case *Compound:
		for _, a := range v.Args {
			if !isGround(b, a) {
				return false
			}
		}
	}
	return true
}

func biUnify(i *Interpreter, args []Term, depth int) (Outcome, error) {
	if Unify(i.Bindings, args[0], args[1]) {
		return OutcomeSucceed, nil
	}
	return OutcomeFail, nil
}

func biNotUnify(i *Interpreter, args []Term, depth int) (Outcome, error) {
	mark := i.Bindings.Mark()
	ok := Unify(i.Bindings, args[0], args[1])
	i.Bindings.UnwindTo(mark)
	if ok {
		return OutcomeFail, nil
	}
	return OutcomeSucceed, nil
}

func biTermEqual(i *Interpreter, args []Term, depth int) (Outcome, error) {
	if CompareTerms(i.Bindings, args[0], args[1]) == 0 {
		return OutcomeSucceed, nil
	}
	return OutcomeFail, nil
}

func biTermNotEqual(i *Interpreter, args []Term, depth int) (Outcome, error) {
	if CompareTerms(i.Bindings, args[0], args[1]) != 0 {
		return OutcomeSucceed, nil
	}
	return OutcomeFail, nil
}

func compareBuiltin(accept func(int) bool) ForeignFunc {
	return func(i *Interpreter, args []Term, depth int) (Outcome, error) {
		if accept(CompareTerms(i.Bindings, args[0], args[1])) {
			return OutcomeSucceed, nil
		}
		return OutcomeFail, nil
	}
}

func biCompare(i *Interpreter, args []Term, depth int) (Outcome, error) {
	c := CompareTerms(i.Bindings, args[1], args[2])
	var sym string
	switch {
	case c < 0:
		sym = "<"
	case c > 0:
		sym = ">"
	default:
		sym = "="
	}
	if Unify(i.Bindings, args[0], Intern(sym)) {
		return OutcomeSucceed, nil
	}
	return OutcomeFail, nil
}

func arithCompareBuiltin(accept func(int) bool) ForeignFunc {
	return func(i *Interpreter, args []Term, depth int) (Outcome, error) {
		x, err := Eval(i.Bindings, args[0])
		if err != nil {
			return OutcomeFail, err
		}
		y, err := Eval(i.Bindings, args[1])
		if err != nil {
			return OutcomeFail, err
		}
		if accept(numCompare(x, y)) {
			return OutcomeSucceed, nil
		}
		return OutcomeFail, nil
	}
}

func biIs(i *Interpreter, args []Term, depth int) (Outcome, error) {
	v, err := Eval(i.Bindings, args[1])
	if err != nil {
		return OutcomeFail, err
	}
	if Unify(i.Bindings, args[0], v) {
		return OutcomeSucceed, nil
	}
	return OutcomeFail, nil
}

func biFunctor(i *Interpreter, args []Term, depth int) (Outcome, error) {
	t := i.Bindings.Deref(args[0])
	if !t.IsVar() {
		var name Term
		var arity int
		switch v := t.(type) {
		case *Compound:
			name, arity = v.Tag.Functor, v.Tag.Arity
		case Atom:
			name, arity = v, 0
		default:
			name, arity = t, 0
		}
		if Unify(i.Bindings, args[1], name) && Unify(i.Bindings, args[2], NewInt(int64(arity))) {
			return OutcomeSucceed, nil
		}
		return OutcomeFail, nil
	}
	nameTerm := i.Bindings.Deref(args[1])
	arityTerm := i.Bindings.Deref(args[2])
	if nameTerm.IsVar() || arityTerm.IsVar() {
		return OutcomeFail, InstantiationError("functor/3")
	}
	arityInt, ok := arityTerm.(Int)
	if !ok {
		return OutcomeFail, TypeError("integer", arityTerm, "functor/3")
	}
	arity := int(arityInt.Big().Int64())
	if arity == 0 {
		if Unify(i.Bindings, args[0], nameTerm) {
			return OutcomeSucceed, nil
		}
		return OutcomeFail, nil
	}
	nameAtom, ok := nameTerm.(Atom)
	if !ok {
		return OutcomeFail, TypeError("atom", nameTerm, "functor/3")
	}
	newArgs := make([]Term, arity)
	for j := range newArgs {
		newArgs[j] = NewVar(i.Bindings, "")
	}
	if Unify(i.Bindings, args[0], NewCompound(nameAtom, newArgs...)) {
		return OutcomeSucceed, nil
	}
	return OutcomeFail, nil
}

func biArg(i *Interpreter, args []Term, depth int) (Outcome, error) {
	nTerm := i.Bindings.Deref(args[0])
	n, ok := nTerm.(Int)
	if !ok {
		return OutcomeFail, TypeError("integer", nTerm, "arg/3")
	}
	c, ok := i.Bindings.Deref(args[1]).(*Compound)
	if !ok {
		return OutcomeFail, TypeError("compound", args[1], "arg/3")
	}
	idx := int(n.Big().Int64())
	if idx < 1 || idx > len(c.Args) {
		return OutcomeFail, nil
	}
	if Unify(i.Bindings, args[2], c.Args[idx-1]) {
		return OutcomeSucceed, nil
	}
	return OutcomeFail, nil
}

func biUniv(i *Interpreter, args []Term, depth int) (Outcome, error) {
	t := i.Bindings.Deref(args[0])
	if !t.IsVar() {
		var list Term
		switch v := t.(type) {
		case *Compound:
			elems := append([]Term{v.Tag.Functor}, v.Args...)
			list = MakeList(elems...)
		default:
			list = MakeList(t)
		}
		if Unify(i.Bindings, args[1], list) {
			return OutcomeSucceed, nil
		}
		return OutcomeFail, nil
	}
	elems, ok := ListSlice(i.Bindings, args[1])
	if !ok || len(elems) == 0 {
		return OutcomeFail, InstantiationError("=../2")
	}
	head := i.Bindings.Deref(elems[0])
	if len(elems) == 1 {
		if Unify(i.Bindings, args[0], head) {
			return OutcomeSucceed, nil
		}
		return OutcomeFail, nil
	}
	fa, ok := head.(Atom)
	if !ok {
		return OutcomeFail, TypeError("atom", head, "=../2")
	}
	if Unify(i.Bindings, args[0], NewCompound(fa, elems[1:]...)) {
		return OutcomeSucceed, nil
	}
	return OutcomeFail, nil
}

func biCopyTerm(i *Interpreter, args []Term, depth int) (Outcome, error) {
	copied := CopyTerm(i.Bindings, args[0])
	if Unify(i.Bindings, args[1], copied) {
		return OutcomeSucceed, nil
	}
	return OutcomeFail, nil
}

func biAsserta(i *Interpreter, args []Term, depth int) (Outcome, error) {
	if _, err := i.Env.DB.Assert(true, CopyTerm(i.Bindings, args[0])); err != nil {
		return OutcomeFail, err
	}
	return OutcomeSucceed, nil
}

func biAssertz(i *Interpreter, args []Term, depth int) (Outcome, error) {
	if _, err := i.Env.DB.Assert(false, CopyTerm(i.Bindings, args[0])); err != nil {
		return OutcomeFail, err
	}
	return OutcomeSucceed, nil
}

func biRetract(i *Interpreter, args []Term, depth int) (Outcome, error) {
	ok, err := i.Env.DB.Retract(i.Bindings, args[0])
	if err != nil {
		return OutcomeFail, err
	}
	if ok {
		return OutcomeSucceed, nil
	}
	return OutcomeFail, nil
}

func biRetractAll(i *Interpreter, args []Term, depth int) (Outcome, error) {
	if err := i.Env.DB.RetractAll(i.Bindings, args[0]); err != nil {
		return OutcomeFail, err
	}
	return OutcomeSucceed, nil
}

func biAbolish(i *Interpreter, args []Term, depth int) (Outcome, error) {
	ind, ok := i.Bindings.Deref(args[0]).(*Compound)
	if !ok || ind.Tag.Functor.Name() != "/" || ind.Tag.Arity != 2 {
		return OutcomeFail, TypeError("predicate_indicator", args[0], "abolish/1")
	}
	name, ok := i.Bindings.Deref(ind.Args[0]).(Atom)
	if !ok {
		return OutcomeFail, TypeError("atom", ind.Args[0], "abolish/1")
	}
	arity, ok := i.Bindings.Deref(ind.Args[1]).(Int)
	if !ok {
		return OutcomeFail, TypeError("integer", ind.Args[1], "abolish/1")
	}
	i.Env.DB.Abolish(Tag(name, int(arity.Big().Int64())))
	return OutcomeSucceed, nil
}

func biDynamic(i *Interpreter, args []Term, depth int) (Outcome, error) {
	for _, ind := range flattenConjunctionOrList(i.Bindings, args[0]) {
		c, ok := i.Bindings.Deref(ind).(*Compound)
		if !ok || c.Tag.Functor.Name() != "/" || c.Tag.Arity != 2 {
			return OutcomeFail, TypeError("predicate_indicator", ind, "dynamic/1")
		}
		name, ok1 := i.Bindings.Deref(c.Args[0]).(Atom)
		arity, ok2 := i.Bindings.Deref(c.Args[1]).(Int)
		if !ok1 || !ok2 {
			return OutcomeFail, TypeError("predicate_indicator", ind, "dynamic/1")
		}
		i.Env.DB.MarkDynamic(Tag(name, int(arity.Big().Int64())))
	}
	return OutcomeSucceed, nil
}

// flattenConjunctionOrList supports both dynamic(a/1, b/2) (comma term)
// and dynamic([a/1, b/2]) (list) spellings.
func flattenConjunctionOrList(b *Bindings, t Term) []Term {
	if elems, ok := ListSlice(b, t); ok {
		return elems
	}
	var out []Term
	var walk func(Term)
	walk = func(x Term) {
		x = b.Deref(x)
		if c, ok := x.(*Compound); ok && c.Tag.Functor.Name() == "," && c.Tag.Arity == 2 {
			walk(c.Args[0])
			walk(c.Args[1])
			return
		}
		out = append(out, x)
	}
	walk(t)
	return out
}

func biClause(i *Interpreter, args []Term, depth int) (Outcome, error) {
	head := i.Bindings.Deref(args[0])
	if !IsCallable(head) {
		if head.IsVar() {
			return OutcomeFail, InstantiationError("clause/2")
		}
		return OutcomeFail, TypeError("callable", head, "clause/2")
	}
	functor, arity, _ := Functor(head)
	p, ok := i.Env.DB.Lookup(Tag(functor, arity))
	if !ok {
		return OutcomeFail, nil
	}
	clauses := p.ClauseIterator(i.Bindings, head)
	idx := 0
	tryNext := func() (bool, error) {
		for idx < len(clauses) {
			cl := clauses[idx]
			idx++
			renamed := renameClause(i.Bindings, cl)
			body := renamed.Body
			if body == nil {
				body = atomTrue
			}
			if Unify(i.Bindings, head, renamed.Head) && Unify(i.Bindings, args[1], body) {
				return true, nil
			}
		}
		return false, nil
	}
	ok2, err := tryNext()
	if err != nil {
		return OutcomeFail, err
	}
	if !ok2 {
		return OutcomeFail, nil
	}
	i.PushGenerator(tryNext)
	return OutcomeSucceed, nil
}

func biBetween(i *Interpreter, args []Term, depth int) (Outcome, error) {
	lo, ok := i.Bindings.Deref(args[0]).(Int)
	if !ok {
		return OutcomeFail, TypeError("integer", args[0], "between/3")
	}
	hiTerm := i.Bindings.Deref(args[1])
	unbounded := false
	var hiInt Int
	if a, isAtom := hiTerm.(Atom); isAtom && (a.Name() == "inf" || a.Name() == "infinite") {
		unbounded = true
	} else if h, isInt := hiTerm.(Int); isInt {
		hiInt = h
	} else {
		return OutcomeFail, TypeError("integer", hiTerm, "between/3")
	}

	if x := i.Bindings.Deref(args[2]); !x.IsVar() {
		xi, ok := x.(Int)
		if !ok {
			return OutcomeFail, TypeError("integer", x, "between/3")
		}
		if xi.Big().Cmp(lo.Big()) >= 0 && (unbounded || xi.Big().Cmp(hiInt.Big()) <= 0) {
			return OutcomeSucceed, nil
		}
		return OutcomeFail, nil
	}

	current := new(big.Int).Set(lo.Big())
	one := big.NewInt(1)
	tryNext := func() (bool, error) {
		if !unbounded && current.Cmp(hiInt.Big()) > 0 {
			return false, nil
		}
		v := NewBigInt(current)
		current = new(big.Int).Add(current, one)
		if !Unify(i.Bindings, args[2], v) {
			return false, nil
		}
		return true, nil
	}
	ok2, err := tryNext()
	if err != nil || !ok2 {
		return OutcomeFail, err
	}
	i.PushGenerator(tryNext)
	return OutcomeSucceed, nil
}

func biLength(i *Interpreter, args []Term, depth int) (Outcome, error) {
	if elems, ok := ListSlice(i.Bindings, args[0]); ok {
		if Unify(i.Bindings, args[1], NewInt(int64(len(elems)))) {
			return OutcomeSucceed, nil
		}
		return OutcomeFail, nil
	}
	n, ok := i.Bindings.Deref(args[1]).(Int)
	if !ok {
		return OutcomeFail, InstantiationError("length/2")
	}
	count := int(n.Big().Int64())
	elems := make([]Term, count)
	for j := range elems {
		elems[j] = NewVar(i.Bindings, "")
	}
	if Unify(i.Bindings, args[0], MakeList(elems...)) {
		return OutcomeSucceed, nil
	}
	return OutcomeFail, nil
}

func biMsort(i *Interpreter, args []Term, depth int) (Outcome, error) {
	elems, ok := ListSlice(i.Bindings, args[0])
	if !ok {
		return OutcomeFail, TypeError("list", args[0], "msort/2")
	}
	sorted := append([]Term(nil), elems...)
	sort.SliceStable(sorted, func(a, b int) bool { return CompareTerms(i.Bindings, sorted[a], sorted[b]) < 0 })
	if Unify(i.Bindings, args[1], MakeList(sorted...)) {
		return OutcomeSucceed, nil
	}
	return OutcomeFail, nil
}

func biSort(i *Interpreter, args []Term, depth int) (Outcome, error) {
	elems, ok := ListSlice(i.Bindings, args[0])
	if !ok {
		return OutcomeFail, TypeError("list", args[0], "sort/2")
	}
	sorted := append([]Term(nil), elems...)
	sort.SliceStable(sorted, func(a, b int) bool { return CompareTerms(i.Bindings, sorted[a], sorted[b]) < 0 })
	deduped := sorted[:0:0]
	for idx, t := range sorted {
		if idx == 0 || CompareTerms(i.Bindings, t, sorted[idx-1]) != 0 {
			deduped = append(deduped, t)
		}
	}
	if Unify(i.Bindings, args[1], MakeList(deduped...)) {
		return OutcomeSucceed, nil
	}
	return OutcomeFail, nil
}

func biWrite(i *Interpreter, args []Term, depth int) (Outcome, error) {
	return writeTo(i, args[0], WriteOptions{})
}
func biWriteln(i *Interpreter, args []Term, depth int) (Outcome, error) {
	o, err := writeTo(i, args[0], WriteOptions{})
	if err != nil {
		return o, err
	}
	return writeRaw(i, "\n")
}
func biWriteq(i *Interpreter, args []Term, depth int) (Outcome, error) {
	return writeTo(i, args[0], WriteOptions{Quoted: true, NumberVars: true})
}
func biWriteCanonical(i *Interpreter, args []Term, depth int) (Outcome, error) {
	return writeTo(i, args[0], WriteOptions{Quoted: true, IgnoreOps: true})
}

func writeTo(i *Interpreter, t Term, opts WriteOptions) (Outcome, error) {
	return writeRaw(i, Write(i.Env, i.Bindings, t, opts))
}

func writeRaw(i *Interpreter, s string) (Outcome, error) {
	if out, ok := i.Env.LookupStream("current_output"); ok {
		if err := out.WriteString(s); err != nil {
			return OutcomeFail, err
		}
		return OutcomeSucceed, nil
	}
	fmt.Print(s)
	return OutcomeSucceed, nil
}

func biNl(i *Interpreter, args []Term, depth int) (Outcome, error) { return writeRaw(i, "\n") }

func biTab(i *Interpreter, args []Term, depth int) (Outcome, error) {
	n, ok := i.Bindings.Deref(args[0]).(Int)
	if !ok {
		return OutcomeFail, TypeError("integer", args[0], "tab/1")
	}
	count := int(n.Big().Int64())
	s := ""
	for j := 0; j < count; j++ {
		s += " "
	}
	return writeRaw(i, s)
}

func biHalt0(i *Interpreter, args []Term, depth int) (Outcome, error) {
	i.halted, i.haltCode = true, 0
	return OutcomeFail, haltSignal{}
}

func biHalt1(i *Interpreter, args []Term, depth int) (Outcome, error) {
	n, _ := i.Bindings.Deref(args[0]).(Int)
	i.halted = true
	if n.Big() != nil {
		i.haltCode = int(n.Big().Int64())
	}
	i.Env.CloseAllStreams()
	return OutcomeFail, haltSignal{code: i.haltCode}
}

func biOp(i *Interpreter, args []Term, depth int) (Outcome, error) {
	prio, ok := i.Bindings.Deref(args[0]).(Int)
	if !ok {
		return OutcomeFail, TypeError("integer", args[0], "op/3")
	}
	typeAtom, ok := i.Bindings.Deref(args[1]).(Atom)
	if !ok {
		return OutcomeFail, TypeError("atom", args[1], "op/3")
	}
	ot, ok := parseOpType(typeAtom.Name())
	if !ok {
		return OutcomeFail, DomainError("operator_specifier", typeAtom, "op/3")
	}
	for _, nameTerm := range flattenConjunctionOrList(i.Bindings, args[2]) {
		name, ok := i.Bindings.Deref(nameTerm).(Atom)
		if !ok {
			return OutcomeFail, TypeError("atom", nameTerm, "op/3")
		}
		i.Env.Operators.Define(int(prio.Big().Int64()), ot, name.Name())
	}
	return OutcomeSucceed, nil
}

func parseOpType(s string) (OpType, bool) {
	switch s {
	case "xfx":
		return XFX, true
	case "xfy":
		return XFY, true
	case "yfx":
		return YFX, true
	case "fy":
		return FY, true
	case "fx":
		return FX, true
	case "xf":
		return XF, true
	case "yf":
		return YF, true
	}
	return 0, false
}

func biSetFlag(i *Interpreter, args []Term, depth int) (Outcome, error) {
	name, ok := i.Bindings.Deref(args[0]).(Atom)
	if !ok {
		return OutcomeFail, TypeError("atom", args[0], "set_prolog_flag/2")
	}
	i.Env.SetFlag(name.Name(), i.Bindings.Deref(args[1]))
	return OutcomeSucceed, nil
}

func biCurrentFlag(i *Interpreter, args []Term, depth int) (Outcome, error) {
	name, ok := i.Bindings.Deref(args[0]).(Atom)
	if !ok {
		return OutcomeFail, TypeError("atom", args[0], "current_prolog_flag/2")
	}
	v, ok := i.Env.Flag(name.Name())
	if !ok {
		return OutcomeFail, nil
	}
	if Unify(i.Bindings, args[1], v) {
		return OutcomeSucceed, nil
	}
	return OutcomeFail, nil
}

// --- list library predicates (append/3, member/2, nth0/3) -----------
//
// These are ordinarily library-level Prolog, but are implemented here
// directly as ForeignFuncs that drive the interpreter's generator
// choice point, grounded on the teacher's goroutine-driven stream
// enumeration (gitrdm-gokando pkg/minikanren/stream.go) reworked into a
// pull-based redo closure instead of a channel.

func biAppend(i *Interpreter, args []Term, depth int) (Outcome, error) {
	if xs, ok := ListSlice(i.Bindings, args[0]); ok {
		if Unify(i.Bindings, args[2], MakeImproperList(args[1], xs...)) {
			return OutcomeSucceed, nil
		}
		return OutcomeFail, nil
	}
	// args[0] is partial/unbound: enumerate splits of args[2].
	whole, wholeOk := ListSlice(i.Bindings, args[2])
	if !wholeOk {
		return OutcomeFail, InstantiationError("append/3")
	}
	idx := 0
	tryNext := func() (bool, error) {
		for idx <= len(whole) {
			front := whole[:idx]
			back := whole[idx:]
			idx++
			if Unify(i.Bindings, args[0], MakeList(front...)) && Unify(i.Bindings, args[1], MakeList(back...)) {
				return true, nil
			}
		}
		return false, nil
	}
	ok, err := tryNext()
	if err != nil || !ok {
		return OutcomeFail, err
	}
	i.PushGenerator(tryNext)
	return OutcomeSucceed, nil
}

func biMember(i *Interpreter, args []Term, depth int) (Outcome, error) {
	rest := args[1]
	tryNext := func() (bool, error) {
		for {
			r := i.Bindings.Deref(rest)
			c, ok := r.(*Compound)
			if !ok || c.Tag.Functor.Name() != "." || c.Tag.Arity != 2 {
				return false, nil
			}
			head, tail := c.Args[0], c.Args[1]
			rest = tail
			if Unify(i.Bindings, args[0], head) {
				return true, nil
			}
		}
	}
	ok, err := tryNext()
	if err != nil || !ok {
		return OutcomeFail, err
	}
	i.PushGenerator(tryNext)
	return OutcomeSucceed, nil
}

func biNth0(i *Interpreter, args []Term, depth int) (Outcome, error) {
	elems, ok := ListSlice(i.Bindings, args[1])
	if !ok {
		return OutcomeFail, TypeError("list", args[1], "nth0/3")
	}
	if n, isInt := i.Bindings.Deref(args[0]).(Int); isInt {
		idx := int(n.Big().Int64())
		if idx < 0 || idx >= len(elems) {
			return OutcomeFail, nil
		}
		if Unify(i.Bindings, args[2], elems[idx]) {
			return OutcomeSucceed, nil
		}
		return OutcomeFail, nil
	}
	idx := 0
	tryNext := func() (bool, error) {
		for idx < len(elems) {
			j := idx
			idx++
			if Unify(i.Bindings, args[0], NewInt(int64(j))) && Unify(i.Bindings, args[2], elems[j]) {
				return true, nil
			}
		}
		return false, nil
	}
	ok2, err := tryNext()
	if err != nil || !ok2 {
		return OutcomeFail, err
	}
	i.PushGenerator(tryNext)
	return OutcomeSucceed, nil
}

// --- atom/string conversion predicates --------------------------------

func biAtomCodes(i *Interpreter, args []Term, depth int) (Outcome, error) {
	t := i.Bindings.Deref(args[0])
	if !t.IsVar() {
		s := atomicText(t)
		codes := make([]Term, 0, len(s))
		for _, r := range s {
			codes = append(codes, NewInt(int64(r)))
		}
		if Unify(i.Bindings, args[1], MakeList(codes...)) {
			return OutcomeSucceed, nil
		}
		return OutcomeFail, nil
	}
	elems, ok := ListSlice(i.Bindings, args[1])
	if !ok {
		return OutcomeFail, InstantiationError("atom_codes/2")
	}
	var b strings.Builder
	for _, e := range elems {
		code, ok := i.Bindings.Deref(e).(Int)
		if !ok {
			return OutcomeFail, TypeError("character_code", e, "atom_codes/2")
		}
		b.WriteRune(rune(code.Big().Int64()))
	}
	if Unify(i.Bindings, args[0], Intern(b.String())) {
		return OutcomeSucceed, nil
	}
	return OutcomeFail, nil
}

func biAtomChars(i *Interpreter, args []Term, depth int) (Outcome, error) {
	t := i.Bindings.Deref(args[0])
	if !t.IsVar() {
		s := atomicText(t)
		chars := make([]Term, 0, len(s))
		for _, r := range s {
			chars = append(chars, Intern(string(r)))
		}
		if Unify(i.Bindings, args[1], MakeList(chars...)) {
			return OutcomeSucceed, nil
		}
		return OutcomeFail, nil
	}
	elems, ok := ListSlice(i.Bindings, args[1])
	if !ok {
		return OutcomeFail, InstantiationError("atom_chars/2")
	}
	var b strings.Builder
	for _, e := range elems {
		a, ok := i.Bindings.Deref(e).(Atom)
		if !ok {
			return OutcomeFail, TypeError("character", e, "atom_chars/2")
		}
		b.WriteString(a.Name())
	}
	if Unify(i.Bindings, args[0], Intern(b.String())) {
		return OutcomeSucceed, nil
	}
	return OutcomeFail, nil
}

func biAtomLength(i *Interpreter, args []Term, depth int) (Outcome, error) {
	t := i.Bindings.Deref(args[0])
	if t.IsVar() {
		return OutcomeFail, InstantiationError("atom_length/2")
	}
	n := len([]rune(atomicText(t)))
	if Unify(i.Bindings, args[1], NewInt(int64(n))) {
		return OutcomeSucceed, nil
	}
	return OutcomeFail, nil
}

func biAtomConcat(i *Interpreter, args []Term, depth int) (Outcome, error) {
	a, aOk := i.Bindings.Deref(args[0]).(Atom)
	b, bOk := i.Bindings.Deref(args[1]).(Atom)
	if aOk && bOk {
		if Unify(i.Bindings, args[2], Intern(a.Name()+b.Name())) {
			return OutcomeSucceed, nil
		}
		return OutcomeFail, nil
	}
	whole := i.Bindings.Deref(args[2])
	if whole.IsVar() {
		return OutcomeFail, InstantiationError("atom_concat/3")
	}
	runes := []rune(atomicText(whole))
	idx := 0
	tryNext := func() (bool, error) {
		for idx <= len(runes) {
			j := idx
			idx++
			if Unify(i.Bindings, args[0], Intern(string(runes[:j]))) && Unify(i.Bindings, args[1], Intern(string(runes[j:]))) {
				return true, nil
			}
		}
		return false, nil
	}
	ok, err := tryNext()
	if err != nil || !ok {
		return OutcomeFail, err
	}
	i.PushGenerator(tryNext)
	return OutcomeSucceed, nil
}

func biCharCode(i *Interpreter, args []Term, depth int) (Outcome, error) {
	c := i.Bindings.Deref(args[0])
	if a, ok := c.(Atom); ok {
		runes := []rune(a.Name())
		if len(runes) != 1 {
			return OutcomeFail, TypeError("character", c, "char_code/2")
		}
		if Unify(i.Bindings, args[1], NewInt(int64(runes[0]))) {
			return OutcomeSucceed, nil
		}
		return OutcomeFail, nil
	}
	code, ok := i.Bindings.Deref(args[1]).(Int)
	if !ok {
		return OutcomeFail, InstantiationError("char_code/2")
	}
	if Unify(i.Bindings, args[0], Intern(string(rune(code.Big().Int64())))) {
		return OutcomeSucceed, nil
	}
	return OutcomeFail, nil
}

func biNumberCodes(i *Interpreter, args []Term, depth int) (Outcome, error) {
	t := i.Bindings.Deref(args[0])
	if IsNumber(t) {
		codes := make([]Term, 0)
		for _, r := range t.String() {
			codes = append(codes, NewInt(int64(r)))
		}
		if Unify(i.Bindings, args[1], MakeList(codes...)) {
			return OutcomeSucceed, nil
		}
		return OutcomeFail, nil
	}
	elems, ok := ListSlice(i.Bindings, args[1])
	if !ok {
		return OutcomeFail, InstantiationError("number_codes/2")
	}
	var b strings.Builder
	for _, e := range elems {
		code, ok := i.Bindings.Deref(e).(Int)
		if !ok {
			return OutcomeFail, TypeError("character_code", e, "number_codes/2")
		}
		b.WriteRune(rune(code.Big().Int64()))
	}
	n, err := parseNumberText(b.String())
	if err != nil {
		return OutcomeFail, SyntaxError("illegal_number")
	}
	if Unify(i.Bindings, args[0], n) {
		return OutcomeSucceed, nil
	}
	return OutcomeFail, nil
}

func biNumberChars(i *Interpreter, args []Term, depth int) (Outcome, error) {
	t := i.Bindings.Deref(args[0])
	if IsNumber(t) {
		chars := make([]Term, 0)
		for _, r := range t.String() {
			chars = append(chars, Intern(string(r)))
		}
		if Unify(i.Bindings, args[1], MakeList(chars...)) {
			return OutcomeSucceed, nil
		}
		return OutcomeFail, nil
	}
	elems, ok := ListSlice(i.Bindings, args[1])
	if !ok {
		return OutcomeFail, InstantiationError("number_chars/2")
	}
	var b strings.Builder
	for _, e := range elems {
		a, ok := i.Bindings.Deref(e).(Atom)
		if !ok {
			return OutcomeFail, TypeError("character", e, "number_chars/2")
		}
		b.WriteString(a.Name())
	}
	n, err := parseNumberText(b.String())
	if err != nil {
		return OutcomeFail, SyntaxError("illegal_number")
	}
	if Unify(i.Bindings, args[0], n) {
		return OutcomeSucceed, nil
	}
	return OutcomeFail, nil
}

func parseNumberText(s string) (Term, error) {
	env := NewEnvironment()
	tz, err := NewTokenizer(env, "<number_codes>", s+" .")
	if err != nil {
		return nil, err
	}
	r := NewReader(env, NewBindings(), tz)
	t, err := r.ReadTerm()
	if err != nil {
		return nil, err
	}
	if !IsNumber(t) {
		return nil, SyntaxError("illegal_number")
	}
	return t, nil
}

func biSubAtom(i *Interpreter, args []Term, depth int) (Outcome, error) {
	whole, ok := i.Bindings.Deref(args[0]).(Atom)
	if !ok {
		return OutcomeFail, InstantiationError("sub_atom/5")
	}
	runes := []rune(whole.Name())
	n := len(runes)

	type split struct{ before, length int }
	var splits []split
	for before := 0; before <= n; before++ {
		for length := 0; before+length <= n; length++ {
			splits = append(splits, split{before, length})
		}
	}
	idx := 0
	tryNext := func() (bool, error) {
		for idx < len(splits) {
			s := splits[idx]
			idx++
			after := n - s.before - s.length
			sub := string(runes[s.before : s.before+s.length])
			mark := i.Bindings.Mark()
			if Unify(i.Bindings, args[1], NewInt(int64(s.before))) &&
				Unify(i.Bindings, args[2], NewInt(int64(s.length))) &&
				Unify(i.Bindings, args[3], NewInt(int64(after))) &&
				Unify(i.Bindings, args[4], Intern(sub)) {
				return true, nil
			}
			i.Bindings.UnwindTo(mark)
		}
		return false, nil
	}
	ok2, err := tryNext()
	if err != nil || !ok2 {
		return OutcomeFail, err
	}
	i.PushGenerator(tryNext)
	return OutcomeSucceed, nil
}

func biUpcaseAtom(i *Interpreter, args []Term, depth int) (Outcome, error) {
	a, ok := i.Bindings.Deref(args[0]).(Atom)
	if !ok {
		return OutcomeFail, TypeError("atom", args[0], "upcase_atom/2")
	}
	if Unify(i.Bindings, args[1], Intern(strings.ToUpper(a.Name()))) {
		return OutcomeSucceed, nil
	}
	return OutcomeFail, nil
}

func biDowncaseAtom(i *Interpreter, args []Term, depth int) (Outcome, error) {
	a, ok := i.Bindings.Deref(args[0]).(Atom)
	if !ok {
		return OutcomeFail, TypeError("atom", args[0], "downcase_atom/2")
	}
	if Unify(i.Bindings, args[1], Intern(strings.ToLower(a.Name()))) {
		return OutcomeSucceed, nil
	}
	return OutcomeFail, nil
}

func atomicText(t Term) string {
	if a, ok := t.(Atom); ok {
		return a.Name()
	}
	return t.String()
}

// --- bagof/3, setof/3, aggregate_all/3 --------------------------------
//
// The "V^Goal" existential-quantification prefix is stripped before
// collecting free variables; bagof/setof group solutions by the
// remaining free variables of Goal, backtracking over one group per
// solution (ISO 7.8.14/7.8.15 simplified: witnesses are grouped by
// structural equality of their free-variable binding, not re-ordered
// to a canonical key enumeration).

func stripCarets(b *Bindings, goal Term) Term {
	for {
		c, ok := b.Deref(goal).(*Compound)
		if !ok || c.Tag.Functor.Name() != "^" || c.Tag.Arity != 2 {
			return b.Deref(goal)
		}
		goal = c.Args[1]
	}
}

func biBagof(i *Interpreter, args []Term, depth int) (Outcome, error) {
	return collectGrouped(i, args, false)
}

func biSetof(i *Interpreter, args []Term, depth int) (Outcome, error) {
	return collectGrouped(i, args, true)
}

func collectGrouped(i *Interpreter, args []Term, sorted bool) (Outcome, error) {
	template, goalWithCarets, result := args[0], args[1], args[2]
	goal := stripCarets(i.Bindings, goalWithCarets)

	type group struct {
		witness Term
		items   []Term
	}
	var groups []group
	freeVars := freeVariablesExcept(i.Bindings, goal, template)

	barrier := i.cutBarrier()
	mark := i.Bindings.Mark()
	sub := i.Prepare(goal)
	sub.cpBase = barrier
	for {
		ok, err := sub.Execute(backgroundCtx)
		if err != nil {
			i.cutTo(barrier)
			i.Bindings.UnwindTo(mark)
			return OutcomeFail, err
		}
		if !ok {
			break
		}
		witness := CopyTerm(i.Bindings, MakeList(freeVars...))
		item := CopyTerm(i.Bindings, template)
		placed := false
		for gi := range groups {
			if CompareTerms(i.Bindings, groups[gi].witness, witness) == 0 {
				groups[gi].items = append(groups[gi].items, item)
				placed = true
				break
			}
		}
		if !placed {
			groups = append(groups, group{witness: witness, items: []Term{item}})
		}
	}
	i.cutTo(barrier)
	i.Bindings.UnwindTo(mark)

	if len(groups) == 0 {
		return OutcomeFail, nil
	}
	idx := 0
	tryNext := func() (bool, error) {
		for idx < len(groups) {
			g := groups[idx]
			idx++
			items := g.items
			if sorted {
				items = append([]Term(nil), items...)
				sort.SliceStable(items, func(a, b int) bool { return CompareTerms(i.Bindings, items[a], items[b]) < 0 })
				deduped := items[:0:0]
				for j, t := range items {
					if j == 0 || CompareTerms(i.Bindings, t, items[j-1]) != 0 {
						deduped = append(deduped, t)
					}
				}
				items = deduped
			}
			if Unify(i.Bindings, MakeList(freeVars...), g.witness) && Unify(i.Bindings, result, MakeList(items...)) {
				return true, nil
			}
		}
		return false, nil
	}
	ok, err := tryNext()
	if err != nil || !ok {
		return OutcomeFail, err
	}
	i.PushGenerator(tryNext)
	return OutcomeSucceed, nil
}

// freeVariablesExcept collects the distinct unbound variables in goal
// that do not occur in template, in first-occurrence order.
func freeVariablesExcept(b *Bindings, goal, template Term) []Term {
	excluded := map[int64]bool{}
	collectVars(b, template, excluded)
	seen := map[int64]bool{}
	var out []Term
	var walk func(Term)
	walk = func(t Term) {
		t = b.Deref(t)
		switch v := t.(type) {
		case *Variable:
			if !excluded[v.id] && !seen[v.id] {
				seen[v.id] = true
				out = append(out, v)
			}
		case *Compound:
			for _, a := range v.Args {
				walk(a)
			}
		}
	}
	walk(goal)
	return out
}

func collectVars(b *Bindings, t Term, into map[int64]bool) {
	t = b.Deref(t)
	switch v := t.(type) {
	case *Variable:
		into[v.id] = true
	case *Compound:
		for _, a := range v.Args {
			collectVars(b, a, into)
		}
	}
}

func biAggregateAll(i *Interpreter, args []Term, depth int) (Outcome, error) {
	spec := i.Bindings.Deref(args[0])
	goal, result := args[1], args[2]

	countAll := func(template Term) ([]Term, error) {
		var out []Term
		barrier := i.cutBarrier()
		mark := i.Bindings.Mark()
		sub := i.Prepare(goal)
		sub.cpBase = barrier
		for {
			ok, err := sub.Execute(backgroundCtx)
			if err != nil {
				i.cutTo(barrier)
				i.Bindings.UnwindTo(mark)
				return nil, err
			}
			if !ok {
				break
			}
			out = append(out, CopyTerm(i.Bindings, template))
		}
		i.cutTo(barrier)
		i.Bindings.UnwindTo(mark)
		return out, nil
	}

	switch s := spec.(type) {
	case *Compound:
		if s.Tag.Arity != 1 {
			return OutcomeFail, DomainError("aggregate_spec", spec, "aggregate_all/3")
		}
		items, err := countAll(s.Args[0])
		if err != nil {
			return OutcomeFail, err
		}
		switch s.Tag.Functor.Name() {
		case "count":
			return unifyOrFail(i, result, NewInt(int64(len(items))))
		case "bag":
			return unifyOrFail(i, result, MakeList(items...))
		case "set":
			sorted := append([]Term(nil), items...)
			sort.SliceStable(sorted, func(a, b int) bool { return CompareTerms(i.Bindings, sorted[a], sorted[b]) < 0 })
			deduped := sorted[:0:0]
			for j, t := range sorted {
				if j == 0 || CompareTerms(i.Bindings, t, sorted[j-1]) != 0 {
					deduped = append(deduped, t)
				}
			}
			return unifyOrFail(i, result, MakeList(deduped...))
		case "sum":
			acc := Term(NewInt(0))
			for _, t := range items {
				v, err := Eval(i.Bindings, t)
				if err != nil {
					return OutcomeFail, err
				}
				acc, err = evalBinary("+", acc, v)
				if err != nil {
					return OutcomeFail, err
				}
			}
			return unifyOrFail(i, result, acc)
		case "max", "min":
			if len(items) == 0 {
				return OutcomeFail, nil
			}
			best, err := Eval(i.Bindings, items[0])
			if err != nil {
				return OutcomeFail, err
			}
			for _, t := range items[1:] {
				v, err := Eval(i.Bindings, t)
				if err != nil {
					return OutcomeFail, err
				}
				if (s.Tag.Functor.Name() == "max" && numCompare(v, best) > 0) ||
					(s.Tag.Functor.Name() == "min" && numCompare(v, best) < 0) {
					best = v
				}
			}
			return unifyOrFail(i, result, best)
		}
	case Atom:
		if s.Name() == "count" {
			items, err := countAll(atomTrue)
			if err != nil {
				return OutcomeFail, err
			}
			return unifyOrFail(i, result, NewInt(int64(len(items))))
		}
	}
	return OutcomeFail, DomainError("aggregate_spec", spec, "aggregate_all/3")
}

func unifyOrFail(i *Interpreter, a, b Term) (Outcome, error) {
	if Unify(i.Bindings, a, b) {
		return OutcomeSucceed, nil
	}
	return OutcomeFail, nil
}
