package prolog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntEqualityIsByMagnitude(t *testing.T) {
	assert.True(t, NewInt(42).Equal(NewInt(42)))
	assert.False(t, NewInt(42).Equal(NewInt(43)))
	assert.False(t, NewInt(1).Equal(Float(1.0)))
}

func TestFloatNaNNeverEqual(t *testing.T) {
	nan := Float(nanValue())
	assert.False(t, nan.Equal(nan))
}

func nanValue() float64 {
	var zero float64
	return zero / zero
}

func TestAtomIdentityInterning(t *testing.T) {
	a := Intern("foo")
	b := Intern("foo")
	assert.True(t, a.Equal(b))
	assert.Equal(t, a, b)
}

func TestNewCompoundPanicsOnZeroArity(t *testing.T) {
	assert.Panics(t, func() {
		NewCompound(Intern("foo"))
	})
}

func TestMakeListAndListSliceRoundTrip(t *testing.T) {
	b := NewBindings()
	list := MakeList(NewInt(1), NewInt(2), NewInt(3))
	elems, ok := ListSlice(b, list)
	require.True(t, ok)
	require.Len(t, elems, 3)
	assert.True(t, elems[0].Equal(NewInt(1)))
	assert.True(t, elems[2].Equal(NewInt(3)))
}

func TestListSliceRejectsImproperList(t *testing.T) {
	b := NewBindings()
	improper := MakeImproperList(Intern("tail"), NewInt(1), NewInt(2))
	_, ok := ListSlice(b, improper)
	assert.False(t, ok)
}

func TestListSliceRejectsUnboundTail(t *testing.T) {
	b := NewBindings()
	v := NewVar(b, "Tail")
	improper := MakeImproperList(v, NewInt(1))
	_, ok := ListSlice(b, improper)
	assert.False(t, ok)
}

func TestFunctorAndIsCallable(t *testing.T) {
	c := NewCompound(Intern("f"), NewInt(1), NewInt(2))
	name, arity, ok := Functor(c)
	require.True(t, ok)
	assert.Equal(t, "f", name.Name())
	assert.Equal(t, 2, arity)
	assert.True(t, IsCallable(c))
	assert.True(t, IsCallable(Intern("atom")))
	assert.False(t, IsCallable(NewInt(1)))
}

func TestIsAtomicAndIsNumber(t *testing.T) {
	assert.True(t, IsAtomic(Intern("a")))
	assert.True(t, IsAtomic(NewInt(1)))
	assert.False(t, IsAtomic(NewCompound(Intern("f"), NewInt(1))))
	assert.True(t, IsNumber(Float(1.5)))
	assert.False(t, IsNumber(Intern("a")))
}
