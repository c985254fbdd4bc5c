package prolog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsultStringInstallsFactsAndRules(t *testing.T) {
	env := NewStandardEnvironment()
	loader := NewLoader(env)
	err := loader.ConsultString("family", `
parent(tom, bob).
parent(bob, ann).
grandparent(X, Z) :- parent(X, Y), parent(Y, Z).
`, false)
	require.NoError(t, err)

	rows := solutions(t, env, "grandparent(X, Z).", []string{"X", "Z"}, 1)
	require.Len(t, rows, 1)
	assert.Equal(t, "tom", rows[0][0])
	assert.Equal(t, "ann", rows[0][1])
}

func TestConsultStringIsNoOpOnRepeatNameUnlessForced(t *testing.T) {
	env := NewStandardEnvironment()
	loader := NewLoader(env)
	require.NoError(t, loader.ConsultString("mod", "counter(1).\n", false))
	require.NoError(t, loader.ConsultString("mod", "counter(2).\n", false))

	rows := solutions(t, env, "counter(X).", []string{"X"}, 10)
	require.Len(t, rows, 1, "second load with same name was skipped")

	require.NoError(t, loader.ConsultString("mod", "counter(2).\n", true))
	rows = solutions(t, env, "counter(X).", []string{"X"}, 10)
	assert.Len(t, rows, 2, "forced reload re-runs the source")
}

func TestConsultStringDynamicDirectiveAcceptsCommaAndListForms(t *testing.T) {
	env := NewStandardEnvironment()
	loader := NewLoader(env)
	require.NoError(t, loader.ConsultString("d1", ":- dynamic(foo/1, bar/2).\n", false))
	_, ok := env.DB.Lookup(Tag(Intern("foo"), 1))
	require.True(t, ok)
	_, ok = env.DB.Lookup(Tag(Intern("bar"), 2))
	require.True(t, ok)

	require.NoError(t, loader.ConsultString("d2", ":- dynamic([baz/1, qux/3]).\n", false))
	_, ok = env.DB.Lookup(Tag(Intern("baz"), 1))
	require.True(t, ok)
	_, ok = env.DB.Lookup(Tag(Intern("qux"), 3))
	require.True(t, ok)
}

func TestConsultStringRunsOpDirectiveBeforeSubsequentClauses(t *testing.T) {
	env := NewStandardEnvironment()
	loader := NewLoader(env)
	err := loader.ConsultString("ops", ":- op(700, xfx, likes).\nlikes(alice, bob).\n", false)
	require.NoError(t, err)

	rows := solutions(t, env, "alice likes X.", []string{"X"}, 1)
	require.Len(t, rows, 1)
	assert.Equal(t, "bob", rows[0][0])
}

func TestConsultStringCollectsLoadErrorsWithoutAbortingWholeFile(t *testing.T) {
	env := NewStandardEnvironment()
	loader := NewLoader(env)
	err := loader.ConsultString("broken", `
good(1).
bad(
good(2).
`, false)
	require.NoError(t, err, "ConsultString itself never returns a hard error, it records them")

	summary := LoadErrorsSummary(env)
	assert.NotEmpty(t, summary)

	rows := solutions(t, env, "good(X).", []string{"X"}, 10)
	assert.True(t, len(rows) >= 1, "clauses before the broken one stay loaded")
}

func TestConsultStringStaticClauseRejectsRetraction(t *testing.T) {
	env := NewStandardEnvironment()
	loader := NewLoader(env)
	require.NoError(t, loader.ConsultString("static", "fixed(1).\n", false))

	b := NewBindings()
	_, err := env.DB.Retract(b, factTerm("fixed", NewInt(1)))
	require.Error(t, err)
	pe, ok := err.(*PrologError)
	require.True(t, ok)
	assert.Contains(t, pe.Term.String(), "permission_error")
}

func TestConsultStringModuleAndUseModuleDirectivesAreNoOps(t *testing.T) {
	env := NewStandardEnvironment()
	loader := NewLoader(env)
	err := loader.ConsultString("mods", ":- module(foo, [bar/1]).\n:- use_module(library(lists)).\nbar(1).\n", false)
	require.NoError(t, err)

	rows := solutions(t, env, "bar(X).", []string{"X"}, 1)
	require.Len(t, rows, 1)
	assert.Equal(t, "1", rows[0][0])
}
