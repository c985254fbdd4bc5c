package prolog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompareTermsOrdersByCategory(t *testing.T) {
	b := NewBindings()
	v := NewVar(b, "X")
	assert.True(t, CompareTerms(b, v, NewInt(1)) < 0, "variable < number")
	assert.True(t, CompareTerms(b, NewInt(1), Intern("a")) < 0, "number < atom")
	assert.True(t, CompareTerms(b, Intern("a"), NewCompound(Intern("f"), NewInt(1))) < 0, "atom < compound")
}

func TestCompareTermsNumbersByValueAcrossKinds(t *testing.T) {
	b := NewBindings()
	assert.Equal(t, 0, CompareTerms(b, NewInt(2), Float(2.0)))
	assert.True(t, CompareTerms(b, NewInt(1), NewInt(2)) < 0)
	assert.True(t, CompareTerms(b, Float(3.0), NewInt(2)) > 0)
}

func TestCompareTermsAtomsByName(t *testing.T) {
	b := NewBindings()
	assert.True(t, CompareTerms(b, Intern("abc"), Intern("abd")) < 0)
	assert.Equal(t, 0, CompareTerms(b, Intern("abc"), Intern("abc")))
}

func TestCompareTermsCompoundsByArityThenFunctorThenArgs(t *testing.T) {
	b := NewBindings()
	f1 := NewCompound(Intern("f"), NewInt(1))
	g2 := NewCompound(Intern("g"), NewInt(1), NewInt(2))
	assert.True(t, CompareTerms(b, f1, g2) < 0, "lower arity sorts first")

	fa := NewCompound(Intern("f"), NewInt(1))
	ga := NewCompound(Intern("g"), NewInt(1))
	assert.True(t, CompareTerms(b, fa, ga) < 0, "same arity: functor name breaks tie")

	p1 := NewCompound(Intern("p"), NewInt(1), NewInt(9))
	p2 := NewCompound(Intern("p"), NewInt(1), NewInt(2))
	assert.True(t, CompareTerms(b, p1, p2) > 0, "same functor/arity: args left-to-right")
}

func TestCompareTermsVariablesOrderedById(t *testing.T) {
	b := NewBindings()
	x := NewVar(b, "X")
	y := NewVar(b, "Y")
	assert.True(t, CompareTerms(b, x, y) < 0)
	assert.Equal(t, 0, CompareTerms(b, x, x))
}
