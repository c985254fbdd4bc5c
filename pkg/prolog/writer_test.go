package prolog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriteAtomicTerms(t *testing.T) {
	env := NewEnvironment()
	b := NewBindings()
	assert.Equal(t, "hello", Write(env, b, Intern("hello"), WriteOptions{}))
	assert.Equal(t, "42", Write(env, b, NewInt(42), WriteOptions{}))
}

func TestWriteQuotedAtomNeedingEscape(t *testing.T) {
	env := NewEnvironment()
	b := NewBindings()
	got := Write(env, b, Intern("Hello World"), WriteOptions{Quoted: true})
	assert.Equal(t, "'Hello World'", got)

	unquoted := Write(env, b, Intern("Hello World"), WriteOptions{})
	assert.Equal(t, "Hello World", unquoted)
}

func TestWriteListSyntax(t *testing.T) {
	env := NewEnvironment()
	b := NewBindings()
	list := MakeList(NewInt(1), NewInt(2), NewInt(3))
	assert.Equal(t, "[1,2,3]", Write(env, b, list, WriteOptions{}))
}

func TestWriteImproperListUsesBarSyntax(t *testing.T) {
	env := NewEnvironment()
	b := NewBindings()
	v := NewVar(b, "T")
	improper := MakeImproperList(v, NewInt(1), NewInt(2))
	got := Write(env, b, improper, WriteOptions{})
	assert.Contains(t, got, "|")
}

func TestWriteInfixOperatorWithPrecedenceParens(t *testing.T) {
	env := NewEnvironment()
	b := NewBindings()
	// (1 + 2) * 3 needs parens around the lower-priority + subterm.
	inner := NewCompound(Intern("+"), NewInt(1), NewInt(2))
	outer := NewCompound(Intern("*"), inner, NewInt(3))
	got := Write(env, b, outer, WriteOptions{})
	assert.Equal(t, "(1+2)*3", got)
}

func TestWriteInfixOperatorWithoutParensWhenNotNeeded(t *testing.T) {
	env := NewEnvironment()
	b := NewBindings()
	// 1 + 2 * 3 needs no parens: * binds tighter than +.
	inner := NewCompound(Intern("*"), NewInt(2), NewInt(3))
	outer := NewCompound(Intern("+"), NewInt(1), inner)
	got := Write(env, b, outer, WriteOptions{})
	assert.Equal(t, "1+2*3", got)
}

func TestWriteIgnoreOpsRendersCanonicalForm(t *testing.T) {
	env := NewEnvironment()
	b := NewBindings()
	term := NewCompound(Intern("+"), NewInt(1), NewInt(2))
	got := Write(env, b, term, WriteOptions{IgnoreOps: true})
	assert.Equal(t, "+(1,2)", got)
}

func TestWriteNumberVarsRendersLetters(t *testing.T) {
	env := NewEnvironment()
	b := NewBindings()
	term := NewCompound(Intern("$VAR"), NewInt(0))
	assert.Equal(t, "A", Write(env, b, term, WriteOptions{NumberVars: true}))

	term26 := NewCompound(Intern("$VAR"), NewInt(26))
	assert.Equal(t, "A1", Write(env, b, term26, WriteOptions{NumberVars: true}))
}

func TestWriteCustomOperatorIsHonored(t *testing.T) {
	env := NewEnvironment()
	env.Operators.Define(700, XFX, "likes")
	b := NewBindings()
	term := NewCompound(Intern("likes"), Intern("alice"), Intern("bob"))
	got := Write(env, b, term, WriteOptions{})
	assert.Equal(t, "alice likes bob", got)
}
