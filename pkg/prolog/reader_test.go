package prolog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadTermParsesFact(t *testing.T) {
	env := NewEnvironment()
	b := NewBindings()
	term := parseOne(t, env, b, "parent(tom, bob).")
	c, ok := term.(*Compound)
	require.True(t, ok)
	assert.Equal(t, "parent", c.Tag.Functor.Name())
	assert.Equal(t, 2, c.Tag.Arity)
}

func TestReadTermParsesOperatorExpressionWithPrecedence(t *testing.T) {
	env := NewEnvironment()
	b := NewBindings()
	term := parseOne(t, env, b, "1 + 2 * 3.")
	c := term.(*Compound)
	assert.Equal(t, "+", c.Tag.Functor.Name())
	rhs := c.Args[1].(*Compound)
	assert.Equal(t, "*", rhs.Tag.Functor.Name())
}

func TestReadTermParsesNegativeNumberLiteral(t *testing.T) {
	env := NewEnvironment()
	b := NewBindings()
	term := parseOne(t, env, b, "-1.")
	i, ok := term.(Int)
	require.True(t, ok)
	assert.True(t, i.Equal(NewInt(-1)))
}

func TestReadTermDistinguishesMinusOperatorFromNegativeLiteral(t *testing.T) {
	env := NewEnvironment()
	b := NewBindings()
	term := parseOne(t, env, b, "3 - 1.")
	c := term.(*Compound)
	assert.Equal(t, "-", c.Tag.Functor.Name())
	assert.Equal(t, 2, c.Tag.Arity)
}

func TestReadTermParsesList(t *testing.T) {
	env := NewEnvironment()
	b := NewBindings()
	term := parseOne(t, env, b, "[a, b, c].")
	elems, ok := ListSlice(b, term)
	require.True(t, ok)
	require.Len(t, elems, 3)
	assert.True(t, elems[1].Equal(Intern("b")))
}

func TestReadTermParsesImproperListWithBar(t *testing.T) {
	env := NewEnvironment()
	b := NewBindings()
	term := parseOne(t, env, b, "[a, b | T].")
	c, ok := term.(*Compound)
	require.True(t, ok)
	assert.Equal(t, ".", c.Tag.Functor.Name())
	assert.True(t, c.Args[0].Equal(Intern("a")))
	tail := c.Args[1].(*Compound)
	assert.Equal(t, ".", tail.Tag.Functor.Name())
	_, isVar := tail.Args[1].(*Variable)
	assert.True(t, isVar)
}

func TestReadTermParsesQuotedAtomWithEscapes(t *testing.T) {
	env := NewEnvironment()
	b := NewBindings()
	term := parseOne(t, env, b, "'hello world'.")
	a, ok := term.(Atom)
	require.True(t, ok)
	assert.Equal(t, "hello world", a.Name())
}

func TestReadTermParsesDoubleQuotedStringAsCodeList(t *testing.T) {
	env := NewEnvironment()
	b := NewBindings()
	term := parseOne(t, env, b, `"ab".`)
	elems, ok := ListSlice(b, term)
	require.True(t, ok)
	require.Len(t, elems, 2)
	assert.True(t, elems[0].Equal(NewInt(int64('a'))))
}

func TestReadTermSharesVariableAcrossOccurrences(t *testing.T) {
	env := NewEnvironment()
	b := NewBindings()
	tz, err := NewTokenizer(env, "test", "f(X, X).")
	require.NoError(t, err)
	r := NewReader(env, b, tz)
	term, err := r.ReadTerm()
	require.NoError(t, err)
	c := term.(*Compound)
	assert.Same(t, c.Args[0].(*Variable), c.Args[1].(*Variable))
}

func TestReadTermParsesUserDefinedInfixOperator(t *testing.T) {
	env := NewEnvironment()
	env.Operators.Define(700, XFX, "likes")
	b := NewBindings()
	term := parseOne(t, env, b, "alice likes bob.")
	c := term.(*Compound)
	assert.Equal(t, "likes", c.Tag.Functor.Name())
	assert.True(t, c.Args[0].Equal(Intern("alice")))
	assert.True(t, c.Args[1].Equal(Intern("bob")))
}

func TestReadTermEndOfFileReturnsAtomEndOfFile(t *testing.T) {
	env := NewEnvironment()
	b := NewBindings()
	tz, err := NewTokenizer(env, "test", "")
	require.NoError(t, err)
	r := NewReader(env, b, tz)
	term, err := r.ReadTerm()
	require.NoError(t, err)
	assert.Equal(t, AtomEndOfFile, term)
}
