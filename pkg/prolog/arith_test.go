package prolog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func evalStr(t *testing.T, b *Bindings, expr string, env *Environment) Term {
	t.Helper()
	term := parseOne(t, env, b, expr+".")
	v, err := Eval(b, term)
	require.NoError(t, err)
	return v
}

func TestEvalArithmeticPrecedenceAndPromotion(t *testing.T) {
	env := NewEnvironment()
	b := NewBindings()
	v := evalStr(t, b, "2 + 3 * 4", env)
	assert.True(t, v.Equal(NewInt(14)))

	v = evalStr(t, b, "1 + 2.0", env)
	assert.Equal(t, Float(3.0), v)
}

func TestEvalIntegerDivisionByZeroIsEvaluationError(t *testing.T) {
	b := NewBindings()
	_, err := Eval(b, NewCompound(Intern("//"), NewInt(1), NewInt(0)))
	require.Error(t, err)
	pe, ok := err.(*PrologError)
	require.True(t, ok)
	assert.Contains(t, pe.Term.String(), "zero_divisor")
}

func TestEvalUnboundVariableIsInstantiationError(t *testing.T) {
	b := NewBindings()
	v := NewVar(b, "X")
	_, err := Eval(b, NewCompound(Intern("+"), v, NewInt(1)))
	require.Error(t, err)
	pe, ok := err.(*PrologError)
	require.True(t, ok)
	assert.Contains(t, pe.Term.String(), "instantiation_error")
}

func TestEvalUnknownFunctorIsTypeErrorEvaluable(t *testing.T) {
	b := NewBindings()
	_, err := Eval(b, NewCompound(Intern("frobnicate"), NewInt(1)))
	require.Error(t, err)
	pe, ok := err.(*PrologError)
	require.True(t, ok)
	assert.Contains(t, pe.Term.String(), "evaluable")
}

func TestEvalFloorCeilingTruncateRound(t *testing.T) {
	b := NewBindings()
	v, err := Eval(b, NewCompound(Intern("floor"), Float(1.9)))
	require.NoError(t, err)
	assert.True(t, v.Equal(NewInt(1)))

	v, err = Eval(b, NewCompound(Intern("ceiling"), Float(1.1)))
	require.NoError(t, err)
	assert.True(t, v.Equal(NewInt(2)))

	v, err = Eval(b, NewCompound(Intern("truncate"), Float(-1.9)))
	require.NoError(t, err)
	assert.True(t, v.Equal(NewInt(-1)))
}

func TestEvalModAndRemSignConventions(t *testing.T) {
	b := NewBindings()
	v, err := Eval(b, NewCompound(Intern("mod"), NewInt(-7), NewInt(3)))
	require.NoError(t, err)
	assert.True(t, v.Equal(NewInt(2)), "floored mod: -7 mod 3 == 2")

	v, err = Eval(b, NewCompound(Intern("rem"), NewInt(-7), NewInt(3)))
	require.NoError(t, err)
	assert.True(t, v.Equal(NewInt(-1)), "truncating rem: -7 rem 3 == -1")
}

func TestNumCompareAcrossKinds(t *testing.T) {
	assert.Equal(t, 0, numCompare(NewInt(2), Float(2.0)))
	assert.Equal(t, -1, numCompare(NewInt(1), NewInt(2)))
	assert.Equal(t, 1, numCompare(Float(3.5), NewInt(2)))
}
