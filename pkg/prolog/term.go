package prolog

import (
	"fmt"
	"math/big"
	"strings"
	"sync/atomic"

	"github.com/segmentio/ksuid"
	"github.com/shopspring/decimal"
)

// Term is the sum type for everything the unifier, interpreter, and
// writer operate on: Variable, Atom, Int, Float, Decimal, *Compound, and
// OpaqueHandle.
type Term interface {
	// String renders the term without consulting the operator table
	// (use Write/WriteString for operator-aware, quoted output).
	String() string

	// IsVar reports whether this term is (syntactically) a Variable.
	// It does not dereference — callers that need the dereferenced
	// identity should call deref first.
	IsVar() bool

	// Equal is strict structural/value equality, not unification.
	Equal(other Term) bool
}

// varCounter hands out globally unique variable identities (I1-style
// identity for Variables: two unbound variables are distinct iff their
// ids differ).
var varCounter int64

// Variable is a logical variable: a mutable binding slot with a stable
// identity. The slot itself lives in the owning Trail/Bindings arena;
// Variable only carries the id used to index into it, so copying a
// Variable value never risks divergent binding state (§9 Design Notes:
// arena allocation, binding vector indexed by id).
type Variable struct {
	id   int64
	name string
	// bindings points at the arena that owns this variable's slot. A nil
	// bindings means the variable was constructed outside any arena
	// (e.g. during renaming before attachment) and must be bound to a
	// Bindings arena before use.
	bindings *Bindings
}

// NewVar allocates a fresh variable with a globally unique identity,
// attached to the given Bindings arena (typically an Interpreter's, or
// the Reader's parse-time arena).
func NewVar(bindings *Bindings, name string) *Variable {
	id := atomic.AddInt64(&varCounter, 1)
	v := &Variable{id: id, name: name, bindings: bindings}
	bindings.register(v)
	return v
}

func (v *Variable) ID() int64   { return v.id }
func (v *Variable) IsVar() bool { return true }

func (v *Variable) String() string {
	if v.name != "" {
		return "_" + v.name
	}
	return fmt.Sprintf("_G%d", v.id)
}

func (v *Variable) Equal(other Term) bool {
	if o, ok := other.(*Variable); ok {
		return v.id == o.id
	}
	return false
}

// Int is an arbitrary-precision signed integer term.
type Int struct{ v *big.Int }

func NewInt(i int64) Int           { return Int{v: big.NewInt(i)} }
func NewBigInt(v *big.Int) Int     { return Int{v: new(big.Int).Set(v)} }
func (i Int) Big() *big.Int        { return i.v }
func (i Int) IsVar() bool          { return false }
func (i Int) String() string       { return i.v.String() }
func (i Int) Equal(other Term) bool {
	if o, ok := other.(Int); ok {
		return i.v.Cmp(o.v) == 0
	}
	return false
}

// Float is an IEEE-754 double term.
type Float float64

func (f Float) IsVar() bool    { return false }
func (f Float) String() string { return formatFloat(float64(f)) }
func (f Float) Equal(other Term) bool {
	o, ok := other.(Float)
	if !ok {
		return false
	}
	// NaN never unifies/equals, including with itself (spec §4.3).
	return float64(f) == float64(o)
}

func formatFloat(f float64) string {
	s := fmt.Sprintf("%g", f)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// Decimal is an arbitrary-precision decimal term, kept distinct from
// Float so that exact decimal literals (e.g. money, configuration
// constants) round-trip without binary-floating-point error.
type Decimal struct{ v decimal.Decimal }

func NewDecimal(d decimal.Decimal) Decimal { return Decimal{v: d} }

func NewDecimalFromString(s string) (Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Decimal{}, err
	}
	return Decimal{v: d}, nil
}

func (d Decimal) Value() decimal.Decimal { return d.v }
func (d Decimal) IsVar() bool            { return false }
func (d Decimal) String() string         { return d.v.String() }
func (d Decimal) Equal(other Term) bool {
	if o, ok := other.(Decimal); ok {
		return d.v.Equal(o.v)
	}
	return false
}

// OpaqueHandle is an implementation-defined value used for stream
// handles, file positions, and other host-owned resources. Equality is
// by identity (the ksuid), never by payload.
type OpaqueHandle struct {
	id      ksuid.KSUID
	kind    string
	payload interface{}
}

// NewOpaqueHandle mints a fresh, time-ordered, host-unguessable handle.
func NewOpaqueHandle(kind string, payload interface{}) OpaqueHandle {
	return OpaqueHandle{id: ksuid.New(), kind: kind, payload: payload}
}

func (h OpaqueHandle) Kind() string        { return h.kind }
func (h OpaqueHandle) Payload() interface{} { return h.payload }
func (h OpaqueHandle) IsVar() bool          { return false }
func (h OpaqueHandle) String() string       { return fmt.Sprintf("<$%s>(%s)", h.kind, h.id.String()) }
func (h OpaqueHandle) Equal(other Term) bool {
	if o, ok := other.(OpaqueHandle); ok {
		return h.id == o.id
	}
	return false
}

// Compound is a functor tag plus an ordered, arity>=1 argument vector.
type Compound struct {
	Tag  CompoundTag
	Args []Term
}

// NewCompound builds a compound term. Panics if len(args) == 0 — a
// 0-arity "compound" is just the functor Atom, per the spec's Compound
// definition (arity>=1).
func NewCompound(functor Atom, args ...Term) *Compound {
	if len(args) == 0 {
		panic("prolog: NewCompound requires at least one argument; use the Atom directly for arity 0")
	}
	return &Compound{Tag: Tag(functor, len(args)), Args: args}
}

func (c *Compound) IsVar() bool { return false }

func (c *Compound) String() string {
	var b strings.Builder
	b.WriteString(c.Tag.Functor.Name())
	b.WriteByte('(')
	for i, a := range c.Args {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(a.String())
	}
	b.WriteByte(')')
	return b.String()
}

func (c *Compound) Equal(other Term) bool {
	o, ok := other.(*Compound)
	if !ok || o.Tag != c.Tag {
		return false
	}
	for i := range c.Args {
		if !c.Args[i].Equal(o.Args[i]) {
			return false
		}
	}
	return true
}

// Functor returns the name atom of a Callable term (Atom or *Compound).
func Functor(t Term) (Atom, int, bool) {
	switch v := t.(type) {
	case Atom:
		return v, 0, true
	case *Compound:
		return v.Tag.Functor, v.Tag.Arity, true
	default:
		return Atom{}, 0, false
	}
}

// IsAtomic reports whether t (already dereferenced) is Atom, Int, Float,
// Decimal, or OpaqueHandle.
func IsAtomic(t Term) bool {
	switch t.(type) {
	case Atom, Int, Float, Decimal, OpaqueHandle:
		return true
	default:
		return false
	}
}

// IsCallable reports whether t (already dereferenced) is Atom or
// *Compound.
func IsCallable(t Term) bool {
	switch t.(type) {
	case Atom, *Compound:
		return true
	default:
		return false
	}
}

// IsNumber reports whether t (already dereferenced) is Int, Float, or
// Decimal.
func IsNumber(t Term) bool {
	switch t.(type) {
	case Int, Float, Decimal:
		return true
	default:
		return false
	}
}

// List notation: '.'/2 cons cells terminated by the atom [].

var (
	atomNil  = Intern("[]")
	atomDot  = Intern(".")
	atomTrue = Intern("true")
)

// AtomEmptyList is the canonical '[]' atom.
func AtomEmptyList() Atom { return atomNil }

// Cons builds a single '.'(Head, Tail) list cell.
func Cons(head, tail Term) *Compound { return NewCompound(atomDot, head, tail) }

// MakeList builds a proper list from elems, terminated by [].
func MakeList(elems ...Term) Term {
	var tail Term = atomNil
	for i := len(elems) - 1; i >= 0; i-- {
		tail = Cons(elems[i], tail)
	}
	return tail
}

// MakeImproperList builds a list from elems with the given tail instead
// of [].
func MakeImproperList(tail Term, elems ...Term) Term {
	for i := len(elems) - 1; i >= 0; i-- {
		tail = Cons(elems[i], tail)
	}
	return tail
}

// ListSlice walks a proper list and returns its elements. ok is false if
// the term (after dereferencing each cdr) is not a proper, fully-ground
// spine (an unbound tail or a non-list terminator both return ok=false).
func ListSlice(b *Bindings, t Term) (elems []Term, ok bool) {
	for {
		t = b.Deref(t)
		if a, isAtom := t.(Atom); isAtom && a.Equal(atomNil) {
			return elems, true
		}
		c, isCompound := t.(*Compound)
		if !isCompound || c.Tag.Functor != atomDot || c.Tag.Arity != 2 {
			return elems, false
		}
		elems = append(elems, c.Args[0])
		t = c.Args[1]
	}
}
